// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads the analysis configuration: input files, the
// output path, and the Settings consumed by the engines.
//
// Two on-disk forms are accepted: the XML config document (dispatch
// on any other extension) and an equivalent YAML document for .yaml
// and .yml files. Both forms populate the same Config value and run
// through the same validation.
package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Approximation names accepted in settings and config documents.
const (
	ApproxRareEvent = "rare-event"
	ApproxMcub      = "mcub"
)

// Settings holds the analysis limits, toggles, and seed.
//
// Bounds are declared as validate tags and enforced by Validate;
// a violated bound is an input error, never a crash later in the
// engines.
type Settings struct {
	// LimitOrder is the maximum minimal-cut-set cardinality.
	LimitOrder int `yaml:"limit-order" validate:"gte=1"`

	// CutOff discards cut sets below this probability during
	// probability and uncertainty analysis.
	CutOff float64 `yaml:"cut-off" validate:"gte=0,lte=1"`

	// NumSums truncates the inclusion–exclusion series.
	NumSums int `yaml:"number-of-sums" validate:"gte=1"`

	// Approx selects the probability approximation: empty for the
	// exact truncated series, "rare-event", or "mcub".
	Approx string `yaml:"approximation" validate:"omitempty,oneof=rare-event mcub"`

	// MissionTime converts failure rates to probabilities.
	MissionTime float64 `yaml:"mission-time" validate:"gt=0"`

	// NumTrials is the Monte Carlo sample size.
	NumTrials int `yaml:"number-of-trials" validate:"gte=1"`

	// Seed feeds the uncertainty engine's random generator.
	Seed int64 `yaml:"seed"`

	// Analysis toggles.
	Probability bool `yaml:"probability"`
	Importance  bool `yaml:"importance"`
	Uncertainty bool `yaml:"uncertainty"`
	CCF         bool `yaml:"ccf"`
}

// DefaultSettings returns the engine defaults: order limit 20,
// cut-off 1e-8, seven sums, one-year mission time in hours, and one
// thousand trials.
func DefaultSettings() Settings {
	return Settings{
		LimitOrder:  20,
		CutOff:      1e-8,
		NumSums:     7,
		MissionTime: 8760,
		NumTrials:   1000,
	}
}

// Config is one loaded configuration document.
type Config struct {
	InputFiles []string `yaml:"input-files" validate:"min=1"`
	OutputPath string   `yaml:"output-path"`
	Settings   Settings `yaml:"options"`
}

// Validate checks the settings bounds.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
