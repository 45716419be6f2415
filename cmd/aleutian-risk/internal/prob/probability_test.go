// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package prob

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianRisk/cmd/aleutian-risk/internal/mocus"
)

func cutSets(raw ...[]int) []mocus.CutSet {
	out := make([]mocus.CutSet, len(raw))
	for i, s := range raw {
		out[i] = s
	}
	return out
}

// TestTwoEventOr covers S1: p(a)=0.1, p(b)=0.2 under OR.
func TestTwoEventOr(t *testing.T) {
	sets := cutSets([]int{1}, []int{2})
	probs := []float64{0, 0.1, 0.2}

	t.Run("exact", func(t *testing.T) {
		res, err := Compute(sets, probs, Options{NumSums: 7})
		require.NoError(t, err)
		assert.InDelta(t, 0.28, res.PTotal, 1e-12)
		assert.Equal(t, 2, res.NumProbMcs)
	})

	t.Run("rare-event", func(t *testing.T) {
		res, err := Compute(sets, probs, Options{Approx: ApproxRareEvent})
		require.NoError(t, err)
		assert.InDelta(t, 0.3, res.PTotal, 1e-12)
	})

	t.Run("mcub", func(t *testing.T) {
		res, err := Compute(sets, probs, Options{Approx: ApproxMcub})
		require.NoError(t, err)
		assert.InDelta(t, 0.28, res.PTotal, 1e-12)
	})
}

// TestTwoEventAnd covers S2: the single set {a, b}.
func TestTwoEventAnd(t *testing.T) {
	res, err := Compute(cutSets([]int{1, 2}), []float64{0, 0.1, 0.2}, Options{NumSums: 7})
	require.NoError(t, err)
	assert.InDelta(t, 0.02, res.PTotal, 1e-12)
}

// TestKofN covers S4: 2-of-3 with p = 0.1 everywhere; the exact
// series gives 3*0.01 - 2*0.001.
func TestKofN(t *testing.T) {
	sets := cutSets([]int{1, 2}, []int{1, 3}, []int{2, 3})
	probs := []float64{0, 0.1, 0.1, 0.1}

	res, err := Compute(sets, probs, Options{NumSums: 7})
	require.NoError(t, err)
	assert.InDelta(t, 0.028, res.PTotal, 1e-12)
}

// TestApproximationOrdering covers the law P_exact <= P_mcub <=
// P_rare for small probabilities.
func TestApproximationOrdering(t *testing.T) {
	sets := cutSets([]int{1, 2}, []int{1, 3}, []int{2, 3})
	probs := []float64{0, 0.1, 0.1, 0.1}

	exact, err := Compute(sets, probs, Options{NumSums: 7})
	require.NoError(t, err)
	mcub, err := Compute(sets, probs, Options{Approx: ApproxMcub})
	require.NoError(t, err)
	rare, err := Compute(sets, probs, Options{Approx: ApproxRareEvent})
	require.NoError(t, err)

	assert.LessOrEqual(t, exact.PTotal, mcub.PTotal)
	assert.LessOrEqual(t, mcub.PTotal, rare.PTotal)
	assert.InDelta(t, exact.PTotal, rare.PTotal, 0.005, "agreement to O(p^2)")
}

// TestTruncation checks that one sum reproduces the rare-event
// number in exact mode.
func TestTruncation(t *testing.T) {
	sets := cutSets([]int{1}, []int{2})
	probs := []float64{0, 0.1, 0.2}

	res, err := Compute(sets, probs, Options{NumSums: 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.3, res.PTotal, 1e-12)
	require.NotNil(t, res.Series)
	assert.Len(t, res.Series.PosTerms, 2)
	assert.Empty(t, res.Series.NegTerms)
}

// TestCutOff checks that sets below the threshold are dropped and
// counted out.
func TestCutOff(t *testing.T) {
	sets := cutSets([]int{1}, []int{2, 3})
	probs := []float64{0, 0.1, 0.01, 0.01}

	res, err := Compute(sets, probs, Options{NumSums: 7, CutOff: 1e-3})
	require.NoError(t, err)
	assert.Equal(t, 1, res.NumProbMcs)
	assert.InDelta(t, 0.1, res.PTotal, 1e-12)
	assert.InDelta(t, 1e-4, res.SetProbs[1], 1e-15, "probabilities reported even for cut sets dropped")
}

// TestNegativeLiterals checks ProbAnd over complements.
func TestNegativeLiterals(t *testing.T) {
	assert.InDelta(t, 0.9, ProbAnd([]int{-1}, []float64{0, 0.1}), 1e-12)
	assert.InDelta(t, 0.09, ProbAnd([]int{-2, 1}, []float64{0, 0.1, 0.1}), 1e-12)
}

// TestEmptySetUnity checks that the unity family evaluates to one.
func TestEmptySetUnity(t *testing.T) {
	res, err := Compute(cutSets([]int{}), []float64{0}, Options{NumSums: 7})
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.PTotal)
}

// TestEmptyFamily checks that no cut sets mean zero probability.
func TestEmptyFamily(t *testing.T) {
	res, err := Compute(nil, []float64{0}, Options{NumSums: 7})
	require.NoError(t, err)
	assert.Zero(t, res.PTotal)
	assert.Empty(t, res.Importance)
}

// TestRareEventClipping checks the warning and clip at one.
func TestRareEventClipping(t *testing.T) {
	sets := cutSets([]int{1}, []int{2})
	probs := []float64{0, 0.9, 0.8}

	res, err := Compute(sets, probs, Options{Approx: ApproxRareEvent})
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.PTotal)
	require.Len(t, res.Warnings, 1)
}

// TestImportance covers Fussell-Vesely on the S1 shape.
func TestImportance(t *testing.T) {
	sets := cutSets([]int{1}, []int{2})
	probs := []float64{0, 0.1, 0.2}

	res, err := Compute(sets, probs, Options{NumSums: 7})
	require.NoError(t, err)
	require.Len(t, res.Importance, 2)

	// Sorted by descending contribution: b first.
	assert.Equal(t, 2, res.Importance[0].Literal)
	assert.InDelta(t, 0.2, res.Importance[0].Contribution, 1e-12)
	assert.InDelta(t, 0.2/0.28, res.Importance[0].FussellVesely, 1e-12)

	assert.Equal(t, 1, res.Importance[1].Literal)
	assert.InDelta(t, 0.1/0.28, res.Importance[1].FussellVesely, 1e-12)
}

// TestExpandSeriesReuse checks that Expand records the same series
// Compute uses in exact mode.
func TestExpandSeriesReuse(t *testing.T) {
	sets := cutSets([]int{1}, []int{2})
	probs := []float64{0, 0.1, 0.2}

	series, err := Expand(sets, probs, 0, 7)
	require.NoError(t, err)

	var total float64
	for _, term := range series.PosTerms {
		total += ProbAnd(term, probs)
	}
	for _, term := range series.NegTerms {
		total -= ProbAnd(term, probs)
	}
	assert.InDelta(t, 0.28, total, 1e-12)
}
