// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianRisk/cmd/aleutian-risk/config"
	"github.com/AleutianAI/AleutianRisk/cmd/aleutian-risk/internal/model"
)

func writeModel(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func run(t *testing.T, cfg *config.Config) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, runAnalyses(context.Background(), cfg, &buf))
	return buf.String()
}

const twoEventOr = `
<opsa-mef>
  <define-fault-tree name="demo">
    <define-gate name="top">
      <or>
        <basic-event name="a"/>
        <basic-event name="b"/>
      </or>
    </define-gate>
  </define-fault-tree>
  <model-data>
    <define-basic-event name="a"><float value="0.1"/></define-basic-event>
    <define-basic-event name="b"><float value="0.2"/></define-basic-event>
  </model-data>
</opsa-mef>`

// TestEndToEndTwoEventOr covers S1 through the full pipeline: exact,
// rare-event, and MCUB probabilities.
func TestEndToEndTwoEventOr(t *testing.T) {
	path := writeModel(t, "or.xml", twoEventOr)

	settings := config.DefaultSettings()
	settings.Probability = true
	settings.Importance = true

	t.Run("exact", func(t *testing.T) {
		out := run(t, &config.Config{InputFiles: []string{path}, Settings: settings})
		assert.Contains(t, out, "Total number of MCS found:")
		assert.Contains(t, out, "{ a }")
		assert.Contains(t, out, "{ b }")
		assert.Contains(t, out, "Total Probability: 0.28")
	})

	t.Run("rare-event", func(t *testing.T) {
		s := settings
		s.Approx = config.ApproxRareEvent
		out := run(t, &config.Config{InputFiles: []string{path}, Settings: s})
		assert.Contains(t, out, "Total Probability: 0.3")
	})

	t.Run("mcub", func(t *testing.T) {
		s := settings
		s.Approx = config.ApproxMcub
		out := run(t, &config.Config{InputFiles: []string{path}, Settings: s})
		assert.Contains(t, out, "Total Probability: 0.28")
	})
}

// TestEndToEndTwoEventAnd covers S2: one second-order cut set.
func TestEndToEndTwoEventAnd(t *testing.T) {
	path := writeModel(t, "and.xml", `
<opsa-mef>
  <define-fault-tree name="demo">
    <define-gate name="top">
      <and>
        <basic-event name="a"/>
        <basic-event name="b"/>
      </and>
    </define-gate>
  </define-fault-tree>
  <model-data>
    <define-basic-event name="a"><float value="0.1"/></define-basic-event>
    <define-basic-event name="b"><float value="0.2"/></define-basic-event>
  </model-data>
</opsa-mef>`)

	settings := config.DefaultSettings()
	settings.Probability = true
	out := run(t, &config.Config{InputFiles: []string{path}, Settings: settings})

	assert.Contains(t, out, "{ a, b }")
	assert.Contains(t, out, "Total Probability: 0.02")
	assert.Contains(t, out, "Minimal Cut Set Maximum Order:")
}

// TestEndToEndKofN covers S4: ATLEAST(2; a, b, c) at p = 0.1.
func TestEndToEndKofN(t *testing.T) {
	path := writeModel(t, "vote.xml", `
<opsa-mef>
  <define-fault-tree name="demo">
    <define-gate name="top">
      <atleast min="2">
        <basic-event name="a"/>
        <basic-event name="b"/>
        <basic-event name="c"/>
      </atleast>
    </define-gate>
  </define-fault-tree>
  <model-data>
    <define-basic-event name="a"><float value="0.1"/></define-basic-event>
    <define-basic-event name="b"><float value="0.1"/></define-basic-event>
    <define-basic-event name="c"><float value="0.1"/></define-basic-event>
  </model-data>
</opsa-mef>`)

	settings := config.DefaultSettings()
	settings.Probability = true
	out := run(t, &config.Config{InputFiles: []string{path}, Settings: settings})

	assert.Contains(t, out, "{ a, b }")
	assert.Contains(t, out, "{ a, c }")
	assert.Contains(t, out, "{ b, c }")
	assert.Contains(t, out, "Total Probability: 0.028")
}

// TestEndToEndComplementPair covers S3: AND(a, NOT a) vanishes.
func TestEndToEndComplementPair(t *testing.T) {
	path := writeModel(t, "null.xml", `
<opsa-mef>
  <define-fault-tree name="demo">
    <define-gate name="top">
      <and>
        <basic-event name="a"/>
        <not><basic-event name="a"/></not>
      </and>
    </define-gate>
  </define-fault-tree>
  <model-data>
    <define-basic-event name="a"><float value="0.1"/></define-basic-event>
  </model-data>
</opsa-mef>`)

	settings := config.DefaultSettings()
	settings.Probability = true
	out := run(t, &config.Config{InputFiles: []string{path}, Settings: settings})

	assert.Regexp(t, `Total number of MCS found:\s+0\n`, out)
	assert.NotContains(t, out, "Order 1:")
	assert.Contains(t, out, "Total Probability: 0\n")
}

// TestEndToEndOrderLimit covers S5: an eighth-order cut set is
// suppressed by limit 6.
func TestEndToEndOrderLimit(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("<opsa-mef><define-fault-tree name=\"demo\"><define-gate name=\"top\"><and>")
	for _, n := range []string{"e1", "e2", "e3", "e4", "e5", "e6", "e7", "e8"} {
		sb.WriteString(`<basic-event name="` + n + `"/>`)
	}
	sb.WriteString("</and></define-gate></define-fault-tree><model-data>")
	for _, n := range []string{"e1", "e2", "e3", "e4", "e5", "e6", "e7", "e8"} {
		sb.WriteString(`<define-basic-event name="` + n + `"><float value="0.5"/></define-basic-event>`)
	}
	sb.WriteString("</model-data></opsa-mef>")
	path := writeModel(t, "chain.xml", sb.String())

	settings := config.DefaultSettings()
	settings.LimitOrder = 6
	out := run(t, &config.Config{InputFiles: []string{path}, Settings: settings})

	assert.Regexp(t, `Total number of MCS found:\s+0\n`, out)
	assert.Regexp(t, `Minimal Cut Set Maximum Order:\s+0\n`, out)
}

// TestEndToEndUncertainty smoke-tests the Monte Carlo stage through
// the driver with distributional events.
func TestEndToEndUncertainty(t *testing.T) {
	path := writeModel(t, "mc.xml", `
<opsa-mef>
  <define-fault-tree name="demo">
    <define-gate name="top">
      <or>
        <basic-event name="a"/>
        <basic-event name="b"/>
      </or>
    </define-gate>
  </define-fault-tree>
  <model-data>
    <define-basic-event name="a">
      <beta-deviate><float value="2"/><float value="5"/></beta-deviate>
    </define-basic-event>
    <define-basic-event name="b"><float value="0.2"/></define-basic-event>
  </model-data>
</opsa-mef>`)

	settings := config.DefaultSettings()
	settings.Probability = true
	settings.Uncertainty = true
	settings.NumTrials = 2000
	settings.Seed = 42

	cfg := &config.Config{InputFiles: []string{path}, Settings: settings}
	out := run(t, cfg)
	assert.Contains(t, out, "Uncertainty Analysis")
	assert.Contains(t, out, "Quantiles:")
	assert.Contains(t, out, "Density Histogram")

	// Determinism: the same seed reproduces the same numbers; only
	// the run ID and elapsed-time lines may differ between runs.
	volatile := []string{
		"Analysis ID:",
		"Gate Expansion Time:",
		"MCS Generation Time:",
		"Probability Operations Time:",
		"Monte Carlo Time:",
	}
	strip := func(s string) string {
		var kept []string
	lines:
		for _, line := range strings.Split(s, "\n") {
			for _, prefix := range volatile {
				if strings.HasPrefix(line, prefix) {
					continue lines
				}
			}
			kept = append(kept, line)
		}
		return strings.Join(kept, "\n")
	}
	assert.Equal(t, strip(out), strip(run(t, cfg)))
}

// TestEndToEndSplitFiles covers a model split across files, the
// common benchmark layout.
func TestEndToEndSplitFiles(t *testing.T) {
	dir := t.TempDir()
	tree := filepath.Join(dir, "tree.xml")
	events := filepath.Join(dir, "events.xml")
	require.NoError(t, os.WriteFile(tree, []byte(`
<opsa-mef>
  <define-fault-tree name="demo">
    <define-gate name="top">
      <or><basic-event name="a"/><basic-event name="b"/></or>
    </define-gate>
  </define-fault-tree>
</opsa-mef>`), 0644))
	require.NoError(t, os.WriteFile(events, []byte(`
<opsa-mef>
  <model-data>
    <define-basic-event name="a"><float value="0.1"/></define-basic-event>
    <define-basic-event name="b"><float value="0.2"/></define-basic-event>
  </model-data>
</opsa-mef>`), 0644))

	settings := config.DefaultSettings()
	settings.Probability = true
	out := run(t, &config.Config{InputFiles: []string{tree, events}, Settings: settings})
	assert.Contains(t, out, "Total Probability: 0.28")
}

// TestModuleSubstitution covers the module law: replacing an
// independent module with a synthetic basic event of the module's
// probability leaves the top-event probability unchanged.
func TestModuleSubstitution(t *testing.T) {
	full := writeModel(t, "full.xml", `
<opsa-mef>
  <define-fault-tree name="demo">
    <define-gate name="top">
      <and><gate name="g1"/><gate name="g2"/></and>
    </define-gate>
    <define-gate name="g1">
      <or><basic-event name="a"/><basic-event name="b"/></or>
    </define-gate>
    <define-gate name="g2">
      <or><basic-event name="c"/><basic-event name="d"/></or>
    </define-gate>
  </define-fault-tree>
  <model-data>
    <define-basic-event name="a"><float value="0.1"/></define-basic-event>
    <define-basic-event name="b"><float value="0.2"/></define-basic-event>
    <define-basic-event name="c"><float value="0.05"/></define-basic-event>
    <define-basic-event name="d"><float value="0.15"/></define-basic-event>
  </model-data>
</opsa-mef>`)

	// g2 substituted by a synthetic event with P(g2) = 1 - 0.95*0.85.
	substituted := writeModel(t, "sub.xml", `
<opsa-mef>
  <define-fault-tree name="demo">
    <define-gate name="top">
      <and><gate name="g1"/><basic-event name="m"/></and>
    </define-gate>
    <define-gate name="g1">
      <or><basic-event name="a"/><basic-event name="b"/></or>
    </define-gate>
  </define-fault-tree>
  <model-data>
    <define-basic-event name="a"><float value="0.1"/></define-basic-event>
    <define-basic-event name="b"><float value="0.2"/></define-basic-event>
    <define-basic-event name="m"><float value="0.1925"/></define-basic-event>
  </model-data>
</opsa-mef>`)

	settings := config.DefaultSettings()
	settings.Probability = true
	settings.NumSums = 10

	pTotal := func(path string) float64 {
		m, err := model.ParseFiles([]string{path}, settings.MissionTime)
		require.NoError(t, err)
		analysis, err := analyzeTree(m.FaultTrees[0], m, nil, settings)
		require.NoError(t, err)
		return analysis.Prob.PTotal
	}

	assert.InDelta(t, pTotal(full), pTotal(substituted), 1e-9)
}

// TestBuildConfigOverrides covers flag overrides on top of defaults.
func TestBuildConfigOverrides(t *testing.T) {
	path := writeModel(t, "or.xml", twoEventOr)

	cmd := analyzeCmd
	require.NoError(t, cmd.Flags().Set("limit-order", "3"))
	require.NoError(t, cmd.Flags().Set("probability", "true"))
	defer func() {
		_ = cmd.Flags().Set("limit-order", "0")
		_ = cmd.Flags().Set("probability", "false")
	}()

	cfg, err := buildConfig(cmd, []string{path})
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Settings.LimitOrder)
	assert.True(t, cfg.Settings.Probability)
	assert.Equal(t, []string{path}, cfg.InputFiles)
}
