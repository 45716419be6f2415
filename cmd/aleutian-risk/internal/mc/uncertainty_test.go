// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package mc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianRisk/cmd/aleutian-risk/internal/mocus"
	"github.com/AleutianAI/AleutianRisk/cmd/aleutian-risk/internal/model"
)

func constEvent(name string, p float64) *model.BasicEvent {
	return &model.BasicEvent{Name: name, Expr: model.ConstantProb(p)}
}

func betaEvent(name string, alpha, beta float64) *model.BasicEvent {
	return &model.BasicEvent{Name: name, Expr: model.Beta{Alpha: alpha, B: beta}}
}

func nominalProbs(events []*model.BasicEvent) []float64 {
	probs := make([]float64, len(events)+1)
	for i, e := range events {
		probs[i+1] = e.Probability()
	}
	return probs
}

// TestUnityTopEvent covers the guaranteed-failure edge case: the only
// cut set is empty.
func TestUnityTopEvent(t *testing.T) {
	res, err := Analyze([]mocus.CutSet{{}}, nil, []float64{0}, Options{
		NumTrials: 100,
		NumSums:   7,
	})
	require.NoError(t, err)

	assert.Equal(t, 1.0, res.Mean)
	assert.Zero(t, res.Sigma)
	assert.Equal(t, [2]float64{1, 1}, res.CI)
	require.Len(t, res.Distribution, 1)
	assert.Equal(t, 1.0, res.Distribution[0].Midpoint)
	require.Len(t, res.Quantiles, DefaultNumQuantiles)
	assert.Equal(t, 1.0, res.Quantiles[0])
	assert.NotEmpty(t, res.Warnings)
}

// TestConstantEventsDegenerate covers a model with no uncertainty:
// every trial reproduces the nominal probability exactly.
func TestConstantEventsDegenerate(t *testing.T) {
	events := []*model.BasicEvent{constEvent("a", 0.1), constEvent("b", 0.2)}
	sets := []mocus.CutSet{{1}, {2}}

	res, err := Analyze(sets, events, nominalProbs(events), Options{
		NumTrials: 500,
		Seed:      17,
		NumSums:   7,
	})
	require.NoError(t, err)

	assert.InDelta(t, 0.28, res.Mean, 1e-12)
	assert.Zero(t, res.Sigma)
	assert.InDelta(t, 0.28, res.CI[0], 1e-12)
	assert.InDelta(t, 0.28, res.CI[1], 1e-12)
	require.Len(t, res.Distribution, 1, "degenerate sample collapses to one bin")
}

// TestBetaDistributedAnd covers CI behavior for a two-event AND with
// Beta(2, 5) events: the analytic mean of the product is (2/7)^2.
func TestBetaDistributedAnd(t *testing.T) {
	events := []*model.BasicEvent{betaEvent("a", 2, 5), betaEvent("b", 2, 5)}
	sets := []mocus.CutSet{{1, 2}}
	analytic := (2.0 / 7.0) * (2.0 / 7.0)

	res, err := Analyze(sets, events, nominalProbs(events), Options{
		NumTrials: 10000,
		Seed:      42,
		NumSums:   7,
	})
	require.NoError(t, err)

	assert.InDelta(t, analytic, res.Mean, 0.01)
	assert.Positive(t, res.Sigma)
	assert.Less(t, res.CI[0], res.CI[1])
	assert.LessOrEqual(t, res.CI[0], analytic+0.01)
	assert.GreaterOrEqual(t, res.CI[1], analytic-0.01)

	// Quantiles are non-decreasing and bracket the mean.
	require.Len(t, res.Quantiles, DefaultNumQuantiles)
	for i := 1; i < len(res.Quantiles); i++ {
		assert.LessOrEqual(t, res.Quantiles[i-1], res.Quantiles[i])
	}
	assert.Len(t, res.Distribution, DefaultNumBins)

	// Density integrates to one over the sample range.
	width := res.Distribution[1].Midpoint - res.Distribution[0].Midpoint
	var mass float64
	for _, bin := range res.Distribution {
		mass += bin.Density * width
	}
	assert.InDelta(t, 1.0, mass, 1e-6)
}

// TestConstantFactoring covers the mixed case: a constant event is
// multiplied out once and only the uncertain factor is resampled.
func TestConstantFactoring(t *testing.T) {
	events := []*model.BasicEvent{
		constEvent("fixed", 0.5),
		{Name: "u", Expr: model.Uniform{Lower: 0, Upper: 1}},
	}
	sets := []mocus.CutSet{{1, 2}}

	res, err := Analyze(sets, events, nominalProbs(events), Options{
		NumTrials: 10000,
		Seed:      7,
		NumSums:   7,
	})
	require.NoError(t, err)

	// E[0.5 * U(0,1)] = 0.25.
	assert.InDelta(t, 0.25, res.Mean, 0.02)
}

// TestDeterminism checks bit-reproducibility for a fixed seed.
func TestDeterminism(t *testing.T) {
	build := func() ([]mocus.CutSet, []*model.BasicEvent) {
		events := []*model.BasicEvent{
			betaEvent("a", 2, 5),
			{Name: "b", Expr: model.LogNormal{Mu: -5, Sigma: 0.5}},
		}
		return []mocus.CutSet{{1}, {2}}, events
	}
	opts := Options{NumTrials: 1000, Seed: 99, NumSums: 7}

	setsA, eventsA := build()
	first, err := Analyze(setsA, eventsA, nominalProbs(eventsA), opts)
	require.NoError(t, err)

	setsB, eventsB := build()
	second, err := Analyze(setsB, eventsB, nominalProbs(eventsB), opts)
	require.NoError(t, err)

	assert.Equal(t, first.Mean, second.Mean)
	assert.Equal(t, first.Sigma, second.Sigma)
	assert.Equal(t, first.Quantiles, second.Quantiles)
	assert.Equal(t, first.Distribution, second.Distribution)
}

// TestRareEventSeries checks that the rare-event toggle truncates the
// series to one sum.
func TestRareEventSeries(t *testing.T) {
	events := []*model.BasicEvent{constEvent("a", 0.1), constEvent("b", 0.2)}
	sets := []mocus.CutSet{{1}, {2}}

	res, err := Analyze(sets, events, nominalProbs(events), Options{
		NumTrials: 10,
		NumSums:   7,
		Approx:    "rare-event",
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.3, res.Mean, 1e-12, "single-sum series is the plain sum")
}
