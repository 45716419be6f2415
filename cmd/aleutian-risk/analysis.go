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
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/AleutianRisk/cmd/aleutian-risk/config"
	"github.com/AleutianAI/AleutianRisk/cmd/aleutian-risk/internal/fault"
	"github.com/AleutianAI/AleutianRisk/cmd/aleutian-risk/internal/mc"
	"github.com/AleutianAI/AleutianRisk/cmd/aleutian-risk/internal/mocus"
	"github.com/AleutianAI/AleutianRisk/cmd/aleutian-risk/internal/model"
	"github.com/AleutianAI/AleutianRisk/cmd/aleutian-risk/internal/prob"
	"github.com/AleutianAI/AleutianRisk/cmd/aleutian-risk/internal/report"
)

// runAnalyses parses the model files and analyzes every fault tree
// they define. Trees are independent, so they run concurrently; the
// reports are emitted in declaration order.
func runAnalyses(ctx context.Context, cfg *config.Config, out io.Writer) error {
	m, err := model.ParseFiles(cfg.InputFiles, cfg.Settings.MissionTime)
	if err != nil {
		return err
	}
	if len(m.FaultTrees) == 0 {
		return fmt.Errorf("%w: no fault trees defined", model.ErrParse)
	}

	var ccf map[string]*model.Formula
	if cfg.Settings.CCF {
		if ccf, err = m.ExpandCCF(); err != nil {
			return err
		}
	}

	buffers := make([]bytes.Buffer, len(m.FaultTrees))
	g, _ := errgroup.WithContext(ctx)
	for i, ft := range m.FaultTrees {
		g.Go(func() error {
			analysis, err := analyzeTree(ft, m, ccf, cfg.Settings)
			if err != nil {
				return fmt.Errorf("fault tree %q: %w", ft.Name, err)
			}
			return report.Write(&buffers[i], analysis)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i := range buffers {
		if _, err := out.Write(buffers[i].Bytes()); err != nil {
			return err
		}
	}
	return nil
}

// analyzeTree runs the full pipeline for one fault tree:
// translation, preprocessing, cut-set generation, and the optional
// probability and uncertainty stages.
func analyzeTree(ft *model.FaultTree, m *model.Model, ccf map[string]*model.Formula, settings config.Settings) (*report.Analysis, error) {
	log := logger.With("tree", ft.Name)

	start := time.Now()
	tr, err := fault.Translate(ft, m, ccf)
	if err != nil {
		return nil, err
	}
	if err := fault.Preprocess(tr.Tree); err != nil {
		return nil, err
	}
	expTime := time.Since(start)
	log.Debug("preprocessing finished", "elapsed", expTime)

	start = time.Now()
	mcsResult, err := mocus.Generate(tr.Tree, settings.LimitOrder)
	if err != nil {
		return nil, err
	}
	mcsTime := time.Since(start)
	log.Info("minimal cut sets generated",
		"count", len(mcsResult.Sets),
		"max_order", mcsResult.MaxOrder,
		"elapsed", mcsTime,
	)

	analysis := &report.Analysis{
		RunID:     uuid.NewString(),
		Tree:      ft.TopGate(),
		Settings:  settings,
		NumEvents: len(tr.Basics),
		NumGates:  len(ft.Gates),
		Mcs:       mcsResult,
		ExpTime:   expTime,
		McsTime:   mcsTime,
		NameOf:    tr.NameOf,
	}

	// Nominal probabilities indexed by leaf index; entry 0 unused.
	probs := make([]float64, len(tr.Basics)+1)
	for i, event := range tr.Basics {
		probs[i+1] = event.Probability()
	}

	if settings.Probability || settings.Importance {
		start = time.Now()
		probResult, err := prob.Compute(mcsResult.Sets, probs, prob.Options{
			CutOff:  settings.CutOff,
			NumSums: settings.NumSums,
			Approx:  settings.Approx,
		})
		if err != nil {
			return nil, err
		}
		analysis.Prob = probResult
		analysis.ProbTime = time.Since(start)
		log.Info("probability analysis finished",
			"p_total", probResult.PTotal,
			"cut_sets_used", probResult.NumProbMcs,
		)
		for _, warning := range probResult.Warnings {
			log.Warn(warning)
		}
	}

	if settings.Uncertainty {
		start = time.Now()
		// Trees run concurrently but basic events are shared model
		// state; each tree samples its own copies.
		events := make([]*model.BasicEvent, len(tr.Basics))
		for i, event := range tr.Basics {
			clone := *event
			events[i] = &clone
		}
		mcResult, err := mc.Analyze(mcsResult.Sets, events, probs, mc.Options{
			NumTrials: settings.NumTrials,
			Seed:      settings.Seed,
			CutOff:    settings.CutOff,
			NumSums:   settings.NumSums,
			Approx:    settings.Approx,
		})
		if err != nil {
			return nil, err
		}
		analysis.Uncertainty = mcResult
		analysis.MCTime = time.Since(start)
		log.Info("uncertainty analysis finished",
			"mean", mcResult.Mean,
			"sigma", mcResult.Sigma,
			"trials", settings.NumTrials,
		)
	}

	return analysis, nil
}
