// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianRisk/cmd/aleutian-risk/internal/random"
)

func newTestGenerator() *random.Generator {
	return random.New(1)
}

const sampleModel = `
<opsa-mef>
  <define-fault-tree name="demo">
    <define-gate name="top">
      <or>
        <gate name="g1"/>
        <basic-event name="b3"/>
        <not><basic-event name="b4"/></not>
      </or>
    </define-gate>
    <define-gate name="g1">
      <atleast min="2">
        <basic-event name="b1"/>
        <basic-event name="b2"/>
        <basic-event name="b3"/>
      </atleast>
    </define-gate>
  </define-fault-tree>
  <model-data>
    <define-basic-event name="b1"><float value="0.1"/></define-basic-event>
    <define-basic-event name="b2">
      <exponential><float value="1e-4"/><mission-time/></exponential>
    </define-basic-event>
    <define-basic-event name="b3">
      <lognormal-deviate><float value="-5"/><float value="0.5"/></lognormal-deviate>
    </define-basic-event>
    <define-basic-event name="b4">
      <histogram lower="0.0">
        <bin upper="0.1" weight="2"/>
        <bin upper="0.2" weight="1"/>
      </histogram>
    </define-basic-event>
    <define-house-event name="h1"><constant value="true"/></define-house-event>
  </model-data>
</opsa-mef>`

// TestParseModel covers the full document shape.
func TestParseModel(t *testing.T) {
	m, err := Parse(strings.NewReader(sampleModel), 8760)
	require.NoError(t, err)

	require.Len(t, m.FaultTrees, 1)
	ft := m.FaultTrees[0]
	assert.Equal(t, "demo", ft.Name)
	assert.Equal(t, []string{"top", "g1"}, ft.GateOrder)
	assert.Equal(t, "top", ft.TopGate())

	top := ft.Gates["top"].Formula
	assert.Equal(t, OpOr, top.Op)
	assert.Equal(t, []string{"g1", "b3"}, top.Refs)
	require.Len(t, top.Subs, 1)
	assert.Equal(t, OpNot, top.Subs[0].Op)
	assert.Equal(t, []string{"b4"}, top.Subs[0].Refs)

	g1 := ft.Gates["g1"].Formula
	assert.Equal(t, OpAtleast, g1.Op)
	assert.Equal(t, 2, g1.VoteNumber)
	assert.Len(t, g1.Refs, 3)

	assert.Equal(t, []string{"b1", "b2", "b3", "b4"}, m.BasicOrder())
	require.Contains(t, m.HouseEvents, "h1")
	assert.True(t, m.HouseEvents["h1"].State)
}

// TestExpressions covers nominal values and constancy per kind.
func TestExpressions(t *testing.T) {
	m, err := Parse(strings.NewReader(sampleModel), 8760)
	require.NoError(t, err)

	b1 := m.BasicEvents["b1"]
	assert.True(t, b1.IsConstant())
	assert.Equal(t, 0.1, b1.Probability())

	b2 := m.BasicEvents["b2"]
	assert.True(t, b2.IsConstant(), "exponential is a point conversion")
	assert.InDelta(t, 0.583, b2.Probability(), 0.01, "1-exp(-1e-4*8760)")

	b3 := m.BasicEvents["b3"]
	assert.False(t, b3.IsConstant())

	b4 := m.BasicEvents["b4"]
	assert.False(t, b4.IsConstant())
	// Mass 0.2 on [0,0.1) and 0.1 on [0.1,0.2): mean (0.05*2 + 0.15*1)/3.
	assert.InDelta(t, (0.05*2+0.15)/3, b4.Expr.Nominal(), 1e-12)
}

// TestParseErrors covers the fail-fast input validation.
func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{
			name: "wrong root",
			doc:  `<model/>`,
			want: ErrParse,
		},
		{
			name: "unknown operator",
			doc: `<opsa-mef><define-fault-tree name="f">
				<define-gate name="g"><maybe><basic-event name="b"/></maybe></define-gate>
				</define-fault-tree></opsa-mef>`,
			want: ErrParse,
		},
		{
			name: "probability out of range",
			doc: `<opsa-mef><define-basic-event name="b">
				<float value="1.5"/></define-basic-event></opsa-mef>`,
			want: ErrValue,
		},
		{
			name: "duplicate basic event",
			doc: `<opsa-mef>
				<define-basic-event name="b"><float value="0.1"/></define-basic-event>
				<define-basic-event name="b"><float value="0.2"/></define-basic-event>
				</opsa-mef>`,
			want: ErrDuplicate,
		},
		{
			name: "loose house boolean",
			doc: `<opsa-mef><define-house-event name="h">
				<constant value="True"/></define-house-event></opsa-mef>`,
			want: ErrValue,
		},
		{
			name: "non-monotone histogram",
			doc: `<opsa-mef><define-basic-event name="b">
				<histogram lower="0.2"><bin upper="0.1" weight="1"/></histogram>
				</define-basic-event></opsa-mef>`,
			want: ErrValue,
		},
		{
			name: "atleast without min",
			doc: `<opsa-mef><define-fault-tree name="f">
				<define-gate name="g"><atleast><basic-event name="b"/></atleast></define-gate>
				</define-fault-tree></opsa-mef>`,
			want: ErrParse,
		},
		{
			name: "empty formula",
			doc: `<opsa-mef><define-fault-tree name="f">
				<define-gate name="g"><and></and></define-gate>
				</define-fault-tree></opsa-mef>`,
			want: ErrParse,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.doc), 1)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

// TestCCFGroup covers parsing and beta-factor expansion arithmetic.
func TestCCFGroup(t *testing.T) {
	doc := `
<opsa-mef>
  <define-basic-event name="p1"><float value="0.01"/></define-basic-event>
  <define-basic-event name="p2"><float value="0.01"/></define-basic-event>
  <define-CCF-group name="pumps" model="beta-factor">
    <members>
      <basic-event name="p1"/>
      <basic-event name="p2"/>
    </members>
    <distribution><float value="0.01"/></distribution>
    <factor><float value="0.1"/></factor>
  </define-CCF-group>
</opsa-mef>`

	m, err := Parse(strings.NewReader(doc), 1)
	require.NoError(t, err)
	require.Len(t, m.CCFGroups, 1)
	group := m.CCFGroups[0]
	assert.Equal(t, []string{"p1", "p2"}, group.Members)
	assert.Equal(t, 0.1, group.Beta)

	expansions, err := m.ExpandCCF()
	require.NoError(t, err)
	require.Contains(t, expansions, "p1")
	require.Contains(t, expansions, "p2")

	assert.Equal(t, OpOr, expansions["p1"].Op)
	assert.Equal(t, []string{"p1.ind", "pumps.common"}, expansions["p1"].Refs)
	assert.InDelta(t, 0.001, m.BasicEvents["pumps.common"].Probability(), 1e-12)
	assert.InDelta(t, 0.009, m.BasicEvents["p1.ind"].Probability(), 1e-12)
}

// TestSampleCaching covers the Reset/SampleProbability contract.
func TestSampleCaching(t *testing.T) {
	// Uses a nil generator path: constant expressions never touch it.
	b := &BasicEvent{Name: "x", Expr: ConstantProb(0.3)}
	assert.Equal(t, 0.3, b.SampleProbability(nil))

	u := &BasicEvent{Name: "u", Expr: Uniform{Lower: 0, Upper: 1}}
	gen := newTestGenerator()
	first := u.SampleProbability(gen)
	assert.Equal(t, first, u.SampleProbability(gen), "cached until Reset")
	u.Reset()
	second := u.SampleProbability(gen)
	assert.NotEqual(t, first, second)
}
