// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianRisk/pkg/logging"
)

// Exit codes shared by all commands.
const (
	ExitSuccess = 0 // Analysis completed
	ExitError   = 1 // Analysis or invariant failure
	ExitBadArgs = 2 // Bad input, config, or usage
)

// =============================================================================
// GLOBAL FLAGS
// =============================================================================

var (
	flagVerbose bool
	flagQuiet   bool
	flagLogDir  string
)

// logger is the process-wide structured logger, configured by the
// persistent pre-run hook.
var logger = logging.Default()

var rootCmd = &cobra.Command{
	Use:   "aleutian-risk",
	Short: "Fault-tree risk analysis engine",
	Long: `aleutian-risk computes minimal cut sets, top-event probability,
importance measures, and Monte Carlo uncertainty distributions for
Boolean fault-tree models in the OPSA-MEF format.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false,
		"Enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false,
		"Suppress log output")
	rootCmd.PersistentFlags().StringVar(&flagLogDir, "log-dir", "",
		"Also write JSON logs to this directory")

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		level := logging.LevelInfo
		if flagVerbose {
			level = logging.LevelDebug
		}
		logger = logging.New(logging.Config{
			Level:   level,
			Quiet:   flagQuiet,
			LogDir:  flagLogDir,
			Service: "aleutian-risk",
		})
	}

	rootCmd.AddCommand(analyzeCmd)
}
