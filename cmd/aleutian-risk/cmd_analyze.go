// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianRisk/cmd/aleutian-risk/config"
	"github.com/AleutianAI/AleutianRisk/cmd/aleutian-risk/internal/fault"
	"github.com/AleutianAI/AleutianRisk/cmd/aleutian-risk/internal/model"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	analyzeConfig      string
	analyzeOutput      string
	analyzeLimitOrder  int
	analyzeCutOff      float64
	analyzeNumSums     int
	analyzeApprox      string
	analyzeMissionTime float64
	analyzeTrials      int
	analyzeSeed        int64
	analyzeProb        bool
	analyzeImportance  bool
	analyzeUncertainty bool
	analyzeCCF         bool
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

var analyzeCmd = &cobra.Command{
	Use:   "analyze [model files...]",
	Short: "Run fault-tree analysis on OPSA-MEF models",
	Long: `Compute minimal cut sets and, optionally, the top-event probability,
per-event importance, and Monte Carlo uncertainty.

Inputs come either from a config document (--config, XML or YAML) or
from model files given directly on the command line. Command-line
flags override the corresponding config values.

Examples:
  aleutian-risk analyze --config run.xml
  aleutian-risk analyze tree.xml events.xml --limit-order 6 --probability
  aleutian-risk analyze tree.xml --probability --approx rare-event
  aleutian-risk analyze tree.xml --uncertainty --trials 10000 --seed 42

Exit Codes:
  0 = Analysis completed
  1 = Analysis or invariant failure
  2 = Bad input, config, or usage`,
	Run: runAnalyzeCommand,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeConfig, "config", "c", "",
		"Config document (XML or YAML)")
	analyzeCmd.Flags().StringVarP(&analyzeOutput, "output", "o", "",
		"Write the report to this file instead of stdout")
	analyzeCmd.Flags().IntVar(&analyzeLimitOrder, "limit-order", 0,
		"Maximum cut-set order")
	analyzeCmd.Flags().Float64Var(&analyzeCutOff, "cut-off", 0,
		"Cut-set probability cut-off")
	analyzeCmd.Flags().IntVar(&analyzeNumSums, "num-sums", 0,
		"Series truncation depth for exact probability")
	analyzeCmd.Flags().StringVar(&analyzeApprox, "approx", "",
		"Probability approximation: rare-event or mcub")
	analyzeCmd.Flags().Float64Var(&analyzeMissionTime, "mission-time", 0,
		"Mission time for failure-rate conversion")
	analyzeCmd.Flags().IntVar(&analyzeTrials, "trials", 0,
		"Monte Carlo sample size")
	analyzeCmd.Flags().Int64Var(&analyzeSeed, "seed", 0,
		"Random seed for uncertainty analysis")
	analyzeCmd.Flags().BoolVar(&analyzeProb, "probability", false,
		"Enable probability analysis")
	analyzeCmd.Flags().BoolVar(&analyzeImportance, "importance", false,
		"Enable importance analysis")
	analyzeCmd.Flags().BoolVar(&analyzeUncertainty, "uncertainty", false,
		"Enable Monte Carlo uncertainty analysis")
	analyzeCmd.Flags().BoolVar(&analyzeCCF, "ccf", false,
		"Enable common-cause failure analysis")
}

func runAnalyzeCommand(cmd *cobra.Command, args []string) {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		logger.Error("configuration failed", "error", err)
		os.Exit(ExitBadArgs)
	}

	out := os.Stdout
	if cfg.OutputPath != "" {
		file, err := os.Create(cfg.OutputPath)
		if err != nil {
			logger.Error("cannot open output", "path", cfg.OutputPath, "error", err)
			os.Exit(ExitBadArgs)
		}
		defer file.Close()
		out = file
	}

	if err := runAnalyses(context.Background(), cfg, out); err != nil {
		logger.Error("analysis failed", "error", err)
		if errors.Is(err, model.ErrParse) || errors.Is(err, model.ErrValue) ||
			errors.Is(err, model.ErrDuplicate) || errors.Is(err, fault.ErrInput) {
			os.Exit(ExitBadArgs)
		}
		os.Exit(ExitError)
	}
}

// buildConfig merges the config document (if any), bare model-file
// arguments, and flag overrides into one validated Config.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	var cfg *config.Config
	if analyzeConfig != "" {
		loaded, err := config.Load(analyzeConfig)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = &config.Config{Settings: config.DefaultSettings()}
	}
	cfg.InputFiles = append(cfg.InputFiles, args...)
	if len(cfg.InputFiles) == 0 {
		return nil, fmt.Errorf("no input files: pass model files or --config")
	}

	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.OutputPath = analyzeOutput
	}
	if flags.Changed("limit-order") {
		cfg.Settings.LimitOrder = analyzeLimitOrder
	}
	if flags.Changed("cut-off") {
		cfg.Settings.CutOff = analyzeCutOff
	}
	if flags.Changed("num-sums") {
		cfg.Settings.NumSums = analyzeNumSums
	}
	if flags.Changed("approx") {
		cfg.Settings.Approx = analyzeApprox
	}
	if flags.Changed("mission-time") {
		cfg.Settings.MissionTime = analyzeMissionTime
	}
	if flags.Changed("trials") {
		cfg.Settings.NumTrials = analyzeTrials
	}
	if flags.Changed("seed") {
		cfg.Settings.Seed = analyzeSeed
	}
	if flags.Changed("probability") {
		cfg.Settings.Probability = analyzeProb
	}
	if flags.Changed("importance") {
		cfg.Settings.Importance = analyzeImportance
	}
	if flags.Changed("uncertainty") {
		cfg.Settings.Uncertainty = analyzeUncertainty
	}
	if flags.Changed("ccf") {
		cfg.Settings.CCF = analyzeCCF
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
