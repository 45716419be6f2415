// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package mc propagates basic-event uncertainty to the top event by
// Monte Carlo simulation.
//
// # Description
//
// The engine reuses the truncated inclusion–exclusion expansion built
// by the probability engine. Events without a distribution are
// multiplied out of every term once, up front; each trial then only
// resamples the uncertain events and re-multiplies the variable
// factors, which makes the per-trial cost proportional to the number
// of uncertain literals rather than to a fresh series expansion.
//
// # Determinism
//
// The engine owns its random generator, seeded from the options, so
// runs are bit-reproducible for a fixed input and seed.
package mc

import (
	"math"
	"slices"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/AleutianAI/AleutianRisk/cmd/aleutian-risk/internal/mocus"
	"github.com/AleutianAI/AleutianRisk/cmd/aleutian-risk/internal/model"
	"github.com/AleutianAI/AleutianRisk/cmd/aleutian-risk/internal/prob"
	"github.com/AleutianAI/AleutianRisk/cmd/aleutian-risk/internal/random"
)

// Defaults for the output resolution.
const (
	DefaultNumBins      = 20
	DefaultNumQuantiles = 20
)

// Options configures one uncertainty analysis.
type Options struct {
	NumTrials int
	Seed      int64

	// CutOff, NumSums, and Approx select the series the trials
	// re-evaluate; rare-event behaves as a single sum.
	CutOff  float64
	NumSums int
	Approx  string

	// NumBins and NumQuantiles default to 20 when zero.
	NumBins      int
	NumQuantiles int
}

// Bin is one density histogram cell.
type Bin struct {
	Midpoint float64
	Density  float64
}

// Result holds the sample statistics of the top-event probability.
type Result struct {
	Mean  float64
	Sigma float64

	// CI is the 95% confidence interval on the mean.
	CI [2]float64

	// Quantiles holds the sample quantile at i/NumQuantiles for
	// i = 1..NumQuantiles.
	Quantiles []float64

	// Distribution is the sample density histogram.
	Distribution []Bin

	Warnings []string
}

// Analyze runs the Monte Carlo propagation over the minimal cut sets.
// events backs leaf index i with events[i-1]; probs is indexed by
// leaf index with entry 0 unused and holds the nominal probabilities.
func Analyze(sets []mocus.CutSet, events []*model.BasicEvent, probs []float64, opts Options) (*Result, error) {
	if opts.NumBins <= 0 {
		opts.NumBins = DefaultNumBins
	}
	if opts.NumQuantiles <= 0 {
		opts.NumQuantiles = DefaultNumQuantiles
	}

	// Guaranteed failure: the only cut set is empty.
	if len(sets) == 1 && len(sets[0]) == 0 {
		res := &Result{
			Mean:         1,
			Sigma:        0,
			CI:           [2]float64{1, 1},
			Distribution: []Bin{{Midpoint: 1, Density: 1}},
			Warnings:     []string{"uncertainty for a unity top event"},
		}
		for i := 1; i <= opts.NumQuantiles; i++ {
			res.Quantiles = append(res.Quantiles, 1)
		}
		return res, nil
	}

	numSums := opts.NumSums
	if opts.Approx == prob.ApproxRareEvent {
		numSums = 1
	}
	series, err := prob.Expand(sets, probs, opts.CutOff, numSums)
	if err != nil {
		return nil, err
	}

	s := &sampler{
		series: series,
		events: events,
		iprobs: slices.Clone(probs),
		gen:    random.New(opts.Seed),
	}
	s.factorConstants()
	results := s.run(opts.NumTrials)

	return statistics(results, opts), nil
}

// sampler holds the per-analysis sampling state.
type sampler struct {
	series *prob.Series
	events []*model.BasicEvent
	iprobs []float64
	gen    *random.Generator

	uncertain []int // leaf indices with distributions

	posTerms [][]int // variable literals per positive term
	negTerms [][]int
	posConst []float64 // constant factor per positive term
	negConst []float64
}

// event returns the basic event behind a leaf index.
func (s *sampler) event(index int) *model.BasicEvent {
	return s.events[index-1]
}

// factorConstants splits every series term into its variable literals
// and a pre-multiplied constant factor, and collects the uncertain
// events that the trials must resample.
func (s *sampler) factorConstants() {
	seen := make(map[int]bool)
	for _, terms := range [][][]int{s.series.PosTerms, s.series.NegTerms} {
		for _, term := range terms {
			for _, literal := range term {
				index := literal
				if index < 0 {
					index = -index
				}
				if seen[index] {
					continue
				}
				seen[index] = true
				if !s.event(index).IsConstant() {
					s.uncertain = append(s.uncertain, index)
				}
			}
		}
	}
	sort.Ints(s.uncertain)

	s.posTerms, s.posConst = s.splitTerms(s.series.PosTerms)
	s.negTerms, s.negConst = s.splitTerms(s.series.NegTerms)
}

func (s *sampler) splitTerms(terms [][]int) ([][]int, []float64) {
	variable := make([][]int, 0, len(terms))
	constants := make([]float64, 0, len(terms))
	for _, term := range terms {
		factor := 1.0
		var rest []int
		for _, literal := range term {
			index := literal
			if index < 0 {
				index = -index
			}
			if s.event(index).IsConstant() {
				if literal > 0 {
					factor *= s.iprobs[index]
				} else {
					factor *= 1 - s.iprobs[index]
				}
			} else {
				rest = append(rest, literal)
			}
		}
		variable = append(variable, rest)
		constants = append(constants, factor)
	}
	return variable, constants
}

// run executes the trials and returns the sampled top-event
// probabilities.
func (s *sampler) run(numTrials int) []float64 {
	results := make([]float64, 0, numTrials)
	for trial := 0; trial < numTrials; trial++ {
		for _, index := range s.uncertain {
			s.event(index).Reset()
		}
		for _, index := range s.uncertain {
			p := s.event(index).SampleProbability(s.gen)
			// Distribution tails may leave [0,1]; a probability must not.
			s.iprobs[index] = math.Min(1, math.Max(0, p))
		}
		var pos float64
		for j, term := range s.posTerms {
			pos += prob.ProbAnd(term, s.iprobs) * s.posConst[j]
		}
		var neg float64
		for j, term := range s.negTerms {
			neg += prob.ProbAnd(term, s.iprobs) * s.negConst[j]
		}
		results = append(results, pos-neg)
	}
	return results
}

// statistics reduces the sample to the reported aggregates.
func statistics(results []float64, opts Options) *Result {
	res := &Result{}
	n := float64(len(results))
	res.Mean = stat.Mean(results, nil)
	var variance float64
	if len(results) > 1 {
		variance = stat.Variance(results, nil)
	}
	res.Sigma = math.Sqrt(variance)
	margin := 1.96 * res.Sigma / math.Sqrt(n)
	res.CI = [2]float64{res.Mean - margin, res.Mean + margin}

	sorted := slices.Clone(results)
	sort.Float64s(sorted)
	for i := 1; i <= opts.NumQuantiles; i++ {
		p := float64(i) / float64(opts.NumQuantiles)
		res.Quantiles = append(res.Quantiles, stat.Quantile(p, stat.Empirical, sorted, nil))
	}

	res.Distribution = histogram(sorted, opts.NumBins)
	return res
}

// histogram bins the sorted sample into equal-width cells and
// normalizes counts to densities.
func histogram(sorted []float64, numBins int) []Bin {
	min, max := sorted[0], sorted[len(sorted)-1]
	if min == max {
		return []Bin{{Midpoint: min, Density: 1}}
	}
	dividers := make([]float64, numBins+1)
	floats.Span(dividers, min, max)
	dividers[numBins] = math.Nextafter(max, math.Inf(1))
	counts := stat.Histogram(nil, dividers, sorted, nil)

	width := (max - min) / float64(numBins)
	n := float64(len(sorted))
	bins := make([]Bin, numBins)
	for i, count := range counts {
		bins[i] = Bin{
			Midpoint: min + width*(float64(i)+0.5),
			Density:  count / (n * width),
		}
	}
	return bins
}
