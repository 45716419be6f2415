// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package random provides seeded scalar samplers for the parametric
// distributions used by uncertainty analysis.
//
// # Description
//
// A Generator wraps a single deterministic pseudorandom source and
// exposes one sampling method per supported distribution. Two
// generators constructed with the same seed produce identical sample
// streams, which is what makes Monte Carlo runs reproducible.
//
// # Contracts
//
// Parameter validity is the caller's responsibility; the samplers do
// not validate their inputs. A Generator is owned by exactly one call
// site at a time and is not safe for concurrent use.
package random

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Generator produces scalar samples from named distributions.
//
// The zero value is not usable; construct with New.
type Generator struct {
	src *rand.PCG
	rng *rand.Rand
}

// New creates a Generator seeded with the given value.
func New(seed int64) *Generator {
	src := rand.NewPCG(uint64(seed), uint64(seed))
	return &Generator{
		src: src,
		rng: rand.New(src),
	}
}

// Uniform samples from a uniform distribution on [min, max).
func (g *Generator) Uniform(min, max float64) float64 {
	return distuv.Uniform{Min: min, Max: max, Src: g.src}.Rand()
}

// Triangular samples from a triangular distribution with the given
// lower bound, mode, and upper bound.
func (g *Generator) Triangular(lower, mode, upper float64) float64 {
	return distuv.NewTriangle(lower, upper, mode, g.src).Rand()
}

// PiecewiseLinear samples from a piecewise linear density.
//
// The intervals must be strictly increasing, and weights holds the
// density at each interval point: len(weights) == len(intervals).
// Extra weights are ignored.
func (g *Generator) PiecewiseLinear(intervals, weights []float64) float64 {
	n := len(intervals) - 1
	masses := make([]float64, n)
	for i := 0; i < n; i++ {
		masses[i] = (weights[i] + weights[i+1]) / 2 * (intervals[i+1] - intervals[i])
	}
	i := g.discreteIndex(masses)

	a, b := intervals[i], intervals[i+1]
	w0, w1 := weights[i], weights[i+1]
	length := b - a
	u := g.rng.Float64() * masses[i]
	if w1 == w0 {
		if w0 == 0 {
			return a + u // degenerate zero-density segment
		}
		return a + u/w0
	}
	// Invert the trapezoid CDF: slope*t^2/2 + w0*t - u = 0.
	slope := (w1 - w0) / length
	t := (-w0 + math.Sqrt(w0*w0+2*slope*u)) / slope
	return a + t
}

// Histogram samples from a piecewise constant density.
//
// The intervals must be strictly increasing, and weights holds the
// density over each interval: len(weights) == len(intervals) - 1.
// Extra weights are ignored.
func (g *Generator) Histogram(intervals, weights []float64) float64 {
	n := len(intervals) - 1
	masses := make([]float64, n)
	for i := 0; i < n; i++ {
		masses[i] = weights[i] * (intervals[i+1] - intervals[i])
	}
	i := g.discreteIndex(masses)
	return g.Uniform(intervals[i], intervals[i+1])
}

// Discrete returns one of values with probability proportional to the
// corresponding non-negative weight. Ties break by index order. The
// slices must have the same length.
func (g *Generator) Discrete(values, weights []float64) float64 {
	return values[g.discreteIndex(weights)]
}

// Normal samples from a normal distribution with the given mean and
// standard deviation.
func (g *Generator) Normal(mean, sigma float64) float64 {
	return distuv.Normal{Mu: mean, Sigma: sigma, Src: g.src}.Rand()
}

// LogNormal samples from a lognormal distribution whose underlying
// normal has the given mean and standard deviation.
func (g *Generator) LogNormal(mu, sigma float64) float64 {
	return distuv.LogNormal{Mu: mu, Sigma: sigma, Src: g.src}.Rand()
}

// Gamma samples from a gamma distribution with shape k and scale
// theta. The rate parameter is 1/theta, so for an alpha/beta system
// pass 1/beta as the second argument.
func (g *Generator) Gamma(k, theta float64) float64 {
	return distuv.Gamma{Alpha: k, Beta: 1 / theta, Src: g.src}.Rand()
}

// Beta samples from a beta distribution with shape parameters alpha
// and beta.
func (g *Generator) Beta(alpha, beta float64) float64 {
	return distuv.Beta{Alpha: alpha, Beta: beta, Src: g.src}.Rand()
}

// Weibull samples from a Weibull distribution with shape k and scale
// lambda.
func (g *Generator) Weibull(k, lambda float64) float64 {
	return distuv.Weibull{K: k, Lambda: lambda, Src: g.src}.Rand()
}

// Exponential samples from an exponential distribution with rate
// lambda.
func (g *Generator) Exponential(lambda float64) float64 {
	return distuv.Exponential{Rate: lambda, Src: g.src}.Rand()
}

// Poisson samples from a Poisson distribution with the given mean.
func (g *Generator) Poisson(mean float64) float64 {
	return distuv.Poisson{Lambda: mean, Src: g.src}.Rand()
}

// discreteIndex picks an index in [0, len(weights)) with probability
// proportional to the weight at that index.
func (g *Generator) discreteIndex(weights []float64) int {
	var total float64
	for _, w := range weights {
		total += w
	}
	r := g.rng.Float64() * total
	var acc float64
	for i, w := range weights {
		acc += w
		if r < acc {
			return i
		}
	}
	return len(weights) - 1
}
