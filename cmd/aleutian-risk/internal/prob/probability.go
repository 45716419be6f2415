// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package prob evaluates the top-event probability and per-event
// importance from a set of minimal cut sets.
//
// Three evaluation modes are supported: the exact Sylvester–Poincaré
// series truncated to a configurable number of sums, the rare-event
// approximation (a plain sum, exact to first order), and the min-cut
// upper bound (MCUB). The exact mode materializes the series as
// positive and negative term sets so that uncertainty analysis can
// re-evaluate the same polynomial under resampled probabilities
// without re-expanding it.
package prob

import (
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/AleutianAI/AleutianRisk/cmd/aleutian-risk/internal/fault"
	"github.com/AleutianAI/AleutianRisk/cmd/aleutian-risk/internal/mocus"
)

// Approximation names accepted in settings.
const (
	ApproxNone      = ""
	ApproxRareEvent = "rare-event"
	ApproxMcub      = "mcub"
)

// Options selects the evaluation mode.
type Options struct {
	// CutOff discards cut sets whose product probability falls below
	// this threshold before any series work.
	CutOff float64

	// NumSums truncates the inclusion–exclusion series. The
	// rare-event approximation behaves as NumSums = 1.
	NumSums int

	// Approx is one of ApproxNone, ApproxRareEvent, ApproxMcub.
	Approx string
}

// Importance is the contribution of one signed literal to the top
// event.
type Importance struct {
	// Literal is the signed basic-event index. Complemented literals
	// keep their own row.
	Literal int

	// Contribution is the summed probability of the cut sets holding
	// the literal.
	Contribution float64

	// FussellVesely is Contribution / PTotal.
	FussellVesely float64
}

// Result is the outcome of one probability analysis.
type Result struct {
	// PTotal is the top-event probability.
	PTotal float64

	// NumProbMcs counts the cut sets retained after the cut-off.
	NumProbMcs int

	// SetProbs holds the product probability of every input cut set,
	// aligned with the input ordering.
	SetProbs []float64

	// Importance rows sorted by descending contribution.
	Importance []Importance

	// Series is the materialized expansion; nil outside exact mode.
	Series *Series

	// Warnings carries non-fatal convergence diagnostics.
	Warnings []string
}

// Series is the truncated inclusion–exclusion expansion: PTotal is
// the sum over PosTerms of their product probabilities minus the same
// sum over NegTerms.
type Series struct {
	PosTerms [][]int
	NegTerms [][]int
}

// Compute evaluates the top-event probability from the minimal cut
// sets. probs is indexed by leaf index (entry 0 unused).
func Compute(sets []mocus.CutSet, probs []float64, opts Options) (*Result, error) {
	res := &Result{SetProbs: make([]float64, len(sets))}

	var kept [][]int
	for i, s := range sets {
		p := ProbAnd(s, probs)
		res.SetProbs[i] = p
		if p < opts.CutOff {
			continue
		}
		kept = append(kept, s)
	}
	res.NumProbMcs = len(kept)

	switch opts.Approx {
	case ApproxRareEvent:
		var sum float64
		for _, s := range kept {
			sum += ProbAnd(s, probs)
		}
		if sum > 1 {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("rare-event sum %.6g exceeds 1; reporting 1", sum))
			sum = 1
		}
		res.PTotal = sum

	case ApproxMcub:
		product := 1.0
		for _, s := range kept {
			product *= 1 - ProbAnd(s, probs)
		}
		res.PTotal = 1 - product

	case ApproxNone:
		series := &Series{}
		numSums := opts.NumSums
		if numSums < 1 {
			numSums = 1
		}
		res.PTotal = series.expand(1, numSums, kept, probs)
		res.Series = series
		if res.PTotal > 1 {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("truncated series overshoots: p_total = %.6g", res.PTotal))
		}

	default:
		return nil, fmt.Errorf("%w: unknown approximation %q", fault.ErrInvariant, opts.Approx)
	}

	if math.IsNaN(res.PTotal) || res.PTotal < 0 {
		return nil, fmt.Errorf("%w: p_total = %v", fault.ErrInvariant, res.PTotal)
	}

	res.Importance = importance(kept, probs, res.PTotal)
	return res, nil
}

// Expand filters the cut sets by the cut-off and materializes the
// truncated series without computing a full Result. This is the entry
// point for uncertainty analysis, which re-evaluates the returned
// terms under resampled probabilities.
func Expand(sets []mocus.CutSet, probs []float64, cutOff float64, numSums int) (*Series, error) {
	var kept [][]int
	for _, s := range sets {
		if ProbAnd(s, probs) < cutOff {
			continue
		}
		kept = append(kept, s)
	}
	if numSums < 1 {
		numSums = 1
	}
	series := &Series{}
	if p := series.expand(1, numSums, kept, probs); math.IsNaN(p) {
		return nil, fmt.Errorf("%w: series expansion produced NaN", fault.ErrInvariant)
	}
	return series, nil
}

// ProbAnd returns the product probability of a set of signed
// literals: p(i) for a positive literal, 1-p(-i) for a negative one.
func ProbAnd(set []int, probs []float64) float64 {
	p := 1.0
	for _, literal := range set {
		if literal > 0 {
			p *= probs[literal]
		} else {
			p *= 1 - probs[-literal]
		}
	}
	return p
}

// expand computes P(union of sets) by the recursion
//
//	P(A1 + R) = P(A1) + P(R) - P(A1 * R)
//
// recording every term it adds under the current polarity. numSums
// bounds the depth of the subtracted branch, truncating the series to
// that many sums.
func (s *Series) expand(mult, numSums int, sets [][]int, probs []float64) float64 {
	if numSums <= 0 || len(sets) == 0 {
		return 0
	}
	first, rest := sets[0], sets[1:]
	if mult > 0 {
		s.PosTerms = append(s.PosTerms, first)
	} else {
		s.NegTerms = append(s.NegTerms, first)
	}
	return ProbAnd(first, probs) +
		s.expand(mult, numSums, rest, probs) -
		s.expand(-mult, numSums-1, combine(first, rest), probs)
}

// combine intersects one cut set with a family: the union of the
// literals with each member. Contradictory results (a literal and its
// complement) vanish, and duplicates collapse.
func combine(el []int, sets [][]int) [][]int {
	var result [][]int
	for _, s := range sets {
		merged := unionSorted(el, s)
		if merged == nil {
			continue
		}
		result = append(result, merged)
	}
	slices.SortFunc(result, slices.Compare)
	return slices.CompactFunc(result, slices.Equal)
}

// unionSorted merges two sorted literal sets, or returns nil when the
// merge holds a complement pair.
func unionSorted(a, b []int) []int {
	merged := make([]int, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			merged = append(merged, a[i])
			i++
			j++
		case a[i] < b[j]:
			merged = append(merged, a[i])
			i++
		default:
			merged = append(merged, b[j])
			j++
		}
	}
	merged = append(merged, a[i:]...)
	merged = append(merged, b[j:]...)
	for _, v := range merged {
		if _, ok := slices.BinarySearch(merged, -v); ok {
			return nil
		}
	}
	return merged
}

// importance sums, per signed literal, the probability of the cut
// sets containing it, and derives the Fussell–Vesely measure.
func importance(sets [][]int, probs []float64, pTotal float64) []Importance {
	contributions := make(map[int]float64)
	for _, s := range sets {
		p := ProbAnd(s, probs)
		for _, literal := range s {
			contributions[literal] += p
		}
	}
	rows := make([]Importance, 0, len(contributions))
	for literal, c := range contributions {
		row := Importance{Literal: literal, Contribution: c}
		if pTotal > 0 {
			row.FussellVesely = c / pTotal
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Contribution != rows[j].Contribution {
			return rows[i].Contribution > rows[j].Contribution
		}
		return rows[i].Literal < rows[j].Literal
	})
	return rows
}
