// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package model

import (
	"math"

	"github.com/AleutianAI/AleutianRisk/cmd/aleutian-risk/internal/random"
)

// Expression is a basic-event probability: a point value or a named
// parametric distribution for uncertainty analysis.
type Expression interface {
	// Nominal returns the point value used for probability analysis.
	Nominal() float64

	// Sample draws one value from the distribution. For constant
	// expressions Sample returns the nominal value.
	Sample(g *random.Generator) float64

	// Constant reports whether Sample always returns the nominal.
	Constant() bool
}

// BasicEvent is a named leaf of the fault tree with a failure
// probability. A sampled value is cached until Reset so that one
// Monte Carlo trial sees a consistent probability.
type BasicEvent struct {
	Name string
	Expr Expression

	sample  float64
	sampled bool
}

// Probability returns the nominal failure probability.
func (b *BasicEvent) Probability() float64 {
	return b.Expr.Nominal()
}

// IsConstant reports whether this event has no uncertainty
// distribution.
func (b *BasicEvent) IsConstant() bool {
	return b.Expr.Constant()
}

// Reset discards the cached sample.
func (b *BasicEvent) Reset() {
	b.sampled = false
}

// SampleProbability draws a new value from the distribution (or
// returns the nominal if there is none) and caches it until Reset.
func (b *BasicEvent) SampleProbability(g *random.Generator) float64 {
	if !b.sampled {
		b.sample = b.Expr.Sample(g)
		b.sampled = true
	}
	return b.sample
}

// HouseEvent is a basic event fixed to TRUE or FALSE. House events
// are substituted away during preprocessing.
type HouseEvent struct {
	Name  string
	State bool
}

// ConstantProb is a fixed point probability.
type ConstantProb float64

func (c ConstantProb) Nominal() float64                 { return float64(c) }
func (c ConstantProb) Sample(*random.Generator) float64 { return float64(c) }
func (c ConstantProb) Constant() bool                   { return true }

// Exponential converts a failure rate into a probability over the
// mission time: p = 1 - exp(-lambda * t).
type Exponential struct {
	Lambda float64
	Time   float64
}

func (e Exponential) Nominal() float64                 { return 1 - math.Exp(-e.Lambda*e.Time) }
func (e Exponential) Sample(*random.Generator) float64 { return e.Nominal() }
func (e Exponential) Constant() bool                   { return true }

// Uniform is a uniform distribution on [Lower, Upper).
type Uniform struct {
	Lower, Upper float64
}

func (u Uniform) Nominal() float64                   { return (u.Lower + u.Upper) / 2 }
func (u Uniform) Sample(g *random.Generator) float64 { return g.Uniform(u.Lower, u.Upper) }
func (u Uniform) Constant() bool                     { return false }

// Triangular is a triangular distribution.
type Triangular struct {
	Lower, Mode, Upper float64
}

func (t Triangular) Nominal() float64 { return (t.Lower + t.Mode + t.Upper) / 3 }
func (t Triangular) Sample(g *random.Generator) float64 {
	return g.Triangular(t.Lower, t.Mode, t.Upper)
}
func (t Triangular) Constant() bool { return false }

// Normal is a normal distribution with the given mean and standard
// deviation.
type Normal struct {
	Mean, Sigma float64
}

func (n Normal) Nominal() float64                   { return n.Mean }
func (n Normal) Sample(g *random.Generator) float64 { return g.Normal(n.Mean, n.Sigma) }
func (n Normal) Constant() bool                     { return false }

// LogNormal is a lognormal distribution parameterized by the mean and
// standard deviation of the underlying normal.
type LogNormal struct {
	Mu, Sigma float64
}

func (l LogNormal) Nominal() float64                   { return math.Exp(l.Mu + l.Sigma*l.Sigma/2) }
func (l LogNormal) Sample(g *random.Generator) float64 { return g.LogNormal(l.Mu, l.Sigma) }
func (l LogNormal) Constant() bool                     { return false }

// Gamma is a gamma distribution with shape k and scale theta.
type Gamma struct {
	Shape, Scale float64
}

func (d Gamma) Nominal() float64                   { return d.Shape * d.Scale }
func (d Gamma) Sample(g *random.Generator) float64 { return g.Gamma(d.Shape, d.Scale) }
func (d Gamma) Constant() bool                     { return false }

// Beta is a beta distribution with shape parameters Alpha and Beta.
type Beta struct {
	Alpha, B float64
}

func (d Beta) Nominal() float64                   { return d.Alpha / (d.Alpha + d.B) }
func (d Beta) Sample(g *random.Generator) float64 { return g.Beta(d.Alpha, d.B) }
func (d Beta) Constant() bool                     { return false }

// Weibull is a Weibull distribution with shape k and scale lambda.
type Weibull struct {
	Shape, Scale float64
}

func (d Weibull) Nominal() float64                   { return d.Scale * math.Gamma(1+1/d.Shape) }
func (d Weibull) Sample(g *random.Generator) float64 { return g.Weibull(d.Shape, d.Scale) }
func (d Weibull) Constant() bool                     { return false }

// Histogram is a piecewise constant density over strictly increasing
// interval boundaries; Weights holds one density per interval.
type Histogram struct {
	Intervals []float64
	Weights   []float64
}

func (h Histogram) Nominal() float64 {
	var total, weighted float64
	for i, w := range h.Weights {
		mass := w * (h.Intervals[i+1] - h.Intervals[i])
		mid := (h.Intervals[i] + h.Intervals[i+1]) / 2
		total += mass
		weighted += mid * mass
	}
	if total == 0 {
		return 0
	}
	return weighted / total
}

func (h Histogram) Sample(g *random.Generator) float64 {
	return g.Histogram(h.Intervals, h.Weights)
}

func (h Histogram) Constant() bool { return false }
