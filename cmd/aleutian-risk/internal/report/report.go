// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package report renders analysis results as plain text in the
// layout consumed by downstream tooling: cut sets listed by order,
// probability and importance tables, and uncertainty statistics.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/AleutianAI/AleutianRisk/cmd/aleutian-risk/config"
	"github.com/AleutianAI/AleutianRisk/cmd/aleutian-risk/internal/mc"
	"github.com/AleutianAI/AleutianRisk/cmd/aleutian-risk/internal/mocus"
	"github.com/AleutianAI/AleutianRisk/cmd/aleutian-risk/internal/prob"
)

// Analysis bundles everything one report covers.
type Analysis struct {
	RunID    string
	Tree     string
	Settings config.Settings

	NumEvents int
	NumGates  int

	Mcs         *mocus.Result
	Prob        *prob.Result
	Uncertainty *mc.Result

	ExpTime  time.Duration
	McsTime  time.Duration
	ProbTime time.Duration
	MCTime   time.Duration

	// NameOf resolves a leaf index to its source identifier.
	NameOf func(index int) string
}

// Literal renders a signed index, prefixing complements with "NOT ".
func (a *Analysis) Literal(l int) string {
	if l < 0 {
		return "NOT " + a.NameOf(-l)
	}
	return a.NameOf(l)
}

// SetString renders one cut set as "{ NOT b, a }" with identifiers in
// lexicographic order.
func (a *Analysis) SetString(s mocus.CutSet) string {
	names := make([]string, len(s))
	for i, l := range s {
		names[i] = a.Literal(l)
	}
	sort.Strings(names)
	if len(names) == 0 {
		return "{ }"
	}
	return "{ " + strings.Join(names, ", ") + " }"
}

// Write renders the full report.
func Write(w io.Writer, a *Analysis) error {
	if err := writeMcs(w, a); err != nil {
		return err
	}
	if a.Prob != nil {
		if err := writeProbability(w, a); err != nil {
			return err
		}
	}
	if a.Prob != nil && a.Settings.Importance {
		if err := writeImportance(w, a); err != nil {
			return err
		}
	}
	if a.Uncertainty != nil {
		if err := writeUncertainty(w, a); err != nil {
			return err
		}
	}
	return nil
}

func writeMcs(w io.Writer, a *Analysis) error {
	fmt.Fprintf(w, "\nMinimal Cut Sets\n")
	fmt.Fprintf(w, "================\n\n")
	row(w, "Analysis ID:", a.RunID)
	row(w, "Top Event:", a.Tree)
	row(w, "Number of Basic Events:", fmt.Sprint(a.NumEvents))
	row(w, "Number of Gates:", fmt.Sprint(a.NumGates))
	row(w, "Limit on order of cut sets:", fmt.Sprint(a.Settings.LimitOrder))
	row(w, "Minimal Cut Set Maximum Order:", fmt.Sprint(a.Mcs.MaxOrder))
	row(w, "Total number of MCS found:", fmt.Sprint(len(a.Mcs.Sets)))
	row(w, "Gate Expansion Time:", durationString(a.ExpTime))
	row(w, "MCS Generation Time:", durationString(a.McsTime))

	for order := 1; order <= a.Mcs.MaxOrder; order++ {
		var sets []mocus.CutSet
		for _, s := range a.Mcs.Sets {
			if len(s) == order {
				sets = append(sets, s)
			}
		}
		if len(sets) == 0 {
			continue
		}
		fmt.Fprintf(w, "\nOrder %d:\n", order)
		for i, s := range sets {
			fmt.Fprintf(w, "%d) %s\n", i+1, a.SetString(s))
		}
	}

	fmt.Fprintf(w, "\nQualitative Importance Analysis:\n")
	fmt.Fprintf(w, "--------------------------------\n")
	fmt.Fprintf(w, "%-20s%s\n", "Order", "Number")
	fmt.Fprintf(w, "%-20s%s\n", "-----", "------")
	for order := 1; order <= a.Mcs.MaxOrder; order++ {
		fmt.Fprintf(w, "  %-18d%d\n", order, a.Mcs.Distribution[order])
	}
	fmt.Fprintf(w, "  %-18s%d\n", "ALL", len(a.Mcs.Sets))
	return nil
}

func writeProbability(w io.Writer, a *Analysis) error {
	for _, warning := range a.Prob.Warnings {
		fmt.Fprintf(w, "\nWARNING: %s\n", warning)
	}

	fmt.Fprintf(w, "\nProbability Analysis\n")
	fmt.Fprintf(w, "====================\n\n")
	approx := a.Settings.Approx
	if approx == "" {
		approx = "none"
	}
	row(w, "Approximation:", approx)
	row(w, "Limit on series:", fmt.Sprint(a.Settings.NumSums))
	row(w, "Cut-off probability for cut sets:", fmt.Sprint(a.Settings.CutOff))
	row(w, "Total MCS provided:", fmt.Sprint(len(a.Mcs.Sets)))
	row(w, "Number of Cut Sets Used:", fmt.Sprint(a.Prob.NumProbMcs))
	row(w, "Total Probability:", fmt.Sprintf("%.7g", a.Prob.PTotal))
	row(w, "Probability Operations Time:", durationString(a.ProbTime))

	fmt.Fprintf(w, "\n================================\n")
	fmt.Fprintf(w, "Total Probability: %.7g\n", a.Prob.PTotal)
	fmt.Fprintf(w, "================================\n")

	fmt.Fprintf(w, "\nMinimal Cut Set Probabilities Sorted by Order:\n")
	fmt.Fprintf(w, "----------------------------------------------\n")
	for order := 1; order <= a.Mcs.MaxOrder; order++ {
		printed := false
		for _, i := range byProbability(a, order) {
			if !printed {
				fmt.Fprintf(w, "\nOrder %d:\n", order)
				printed = true
			}
			fmt.Fprintf(w, "%-60s%.7g\n", a.SetString(a.Mcs.Sets[i]), a.Prob.SetProbs[i])
		}
	}

	fmt.Fprintf(w, "\nMinimal Cut Set Probabilities Sorted by Probability:\n")
	fmt.Fprintf(w, "----------------------------------------------------\n")
	for _, i := range byProbability(a, 0) {
		fmt.Fprintf(w, "%-60s%.7g\n", a.SetString(a.Mcs.Sets[i]), a.Prob.SetProbs[i])
	}
	return nil
}

// byProbability returns the set indices of one order (or all orders
// when order is 0), most probable first; probability ties keep the
// deterministic set order.
func byProbability(a *Analysis, order int) []int {
	var indices []int
	for i, s := range a.Mcs.Sets {
		if order == 0 || len(s) == order {
			indices = append(indices, i)
		}
	}
	sort.SliceStable(indices, func(x, y int) bool {
		return a.Prob.SetProbs[indices[x]] > a.Prob.SetProbs[indices[y]]
	})
	return indices
}

func writeImportance(w io.Writer, a *Analysis) error {
	fmt.Fprintf(w, "\nPrimary Event Analysis:\n")
	fmt.Fprintf(w, "-----------------------\n")
	fmt.Fprintf(w, "%-40s%-20s%s\n", "Event", "Failure Contrib.", "Importance")
	fmt.Fprintf(w, "\n")
	for _, imp := range a.Prob.Importance {
		fmt.Fprintf(w, "%-40s%-20.7g%.5g%%\n",
			a.Literal(imp.Literal), imp.Contribution, 100*imp.FussellVesely)
	}
	return nil
}

func writeUncertainty(w io.Writer, a *Analysis) error {
	u := a.Uncertainty
	for _, warning := range u.Warnings {
		fmt.Fprintf(w, "\nWARNING: %s\n", warning)
	}

	fmt.Fprintf(w, "\nUncertainty Analysis\n")
	fmt.Fprintf(w, "====================\n\n")
	row(w, "Number of trials:", fmt.Sprint(a.Settings.NumTrials))
	row(w, "Seed:", fmt.Sprint(a.Settings.Seed))
	row(w, "Mean:", fmt.Sprintf("%.7g", u.Mean))
	row(w, "Standard deviation:", fmt.Sprintf("%.7g", u.Sigma))
	row(w, "95% confidence interval:",
		fmt.Sprintf("[%.7g, %.7g]", u.CI[0], u.CI[1]))
	row(w, "Monte Carlo Time:", durationString(a.MCTime))

	fmt.Fprintf(w, "\nQuantiles:\n")
	for i, q := range u.Quantiles {
		fmt.Fprintf(w, "  %5.3f  %.7g\n", float64(i+1)/float64(len(u.Quantiles)), q)
	}

	fmt.Fprintf(w, "\nDensity Histogram (midpoint, density):\n")
	for _, bin := range u.Distribution {
		fmt.Fprintf(w, "  %.7g  %.7g\n", bin.Midpoint, bin.Density)
	}
	return nil
}

func row(w io.Writer, label, value string) {
	fmt.Fprintf(w, "%-40s%s\n", label, value)
}

func durationString(d time.Duration) string {
	return fmt.Sprintf("%.5gs", d.Seconds())
}
