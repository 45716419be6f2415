// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads and validates a configuration file. The format is
// picked by extension: .yaml and .yml parse as YAML, everything else
// as the XML config document.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := &Config{Settings: DefaultSettings()}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = parseYAML(data, cfg)
	default:
		err = parseXML(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	// Input paths are relative to the config file.
	base := filepath.Dir(path)
	for i, f := range cfg.InputFiles {
		if !filepath.IsAbs(f) {
			cfg.InputFiles[i] = filepath.Join(base, f)
		}
	}
	if cfg.OutputPath != "" && !filepath.IsAbs(cfg.OutputPath) {
		cfg.OutputPath = filepath.Join(base, cfg.OutputPath)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// xmlConfig mirrors the XML config document. Optional limits are
// pointers so that absent elements keep their defaults.
type xmlConfig struct {
	XMLName    xml.Name `xml:"config"`
	InputFiles struct {
		Files []string `xml:"file"`
	} `xml:"input-files"`
	OutputPath string `xml:"output-path"`
	Options    struct {
		Analysis *struct {
			Probability string `xml:"probability,attr"`
			Importance  string `xml:"importance,attr"`
			Uncertainty string `xml:"uncertainty,attr"`
			CCF         string `xml:"ccf,attr"`
		} `xml:"analysis"`
		Approximations *struct {
			RareEvent *struct{} `xml:"rare-event"`
			Mcub      *struct{} `xml:"mcub"`
		} `xml:"approximations"`
		Limits *struct {
			LimitOrder  *int     `xml:"limit-order"`
			CutOff      *float64 `xml:"cut-off"`
			NumSums     *int     `xml:"number-of-sums"`
			MissionTime *float64 `xml:"mission-time"`
			NumTrials   *int     `xml:"number-of-trials"`
			Seed        *int64   `xml:"seed"`
		} `xml:"limits"`
	} `xml:"options"`
}

func parseXML(data []byte, cfg *Config) error {
	var doc xmlConfig
	if err := xml.Unmarshal(data, &doc); err != nil {
		return err
	}
	cfg.InputFiles = doc.InputFiles.Files
	cfg.OutputPath = doc.OutputPath

	if a := doc.Options.Analysis; a != nil {
		for _, flag := range []struct {
			raw  string
			dest *bool
		}{
			{a.Probability, &cfg.Settings.Probability},
			{a.Importance, &cfg.Settings.Importance},
			{a.Uncertainty, &cfg.Settings.Uncertainty},
			{a.CCF, &cfg.Settings.CCF},
		} {
			if flag.raw == "" {
				continue
			}
			value, err := parseBool(flag.raw)
			if err != nil {
				return err
			}
			*flag.dest = value
		}
	}

	if approx := doc.Options.Approximations; approx != nil {
		switch {
		case approx.RareEvent != nil:
			cfg.Settings.Approx = ApproxRareEvent
		case approx.Mcub != nil:
			cfg.Settings.Approx = ApproxMcub
		}
	}

	if l := doc.Options.Limits; l != nil {
		if l.LimitOrder != nil {
			cfg.Settings.LimitOrder = *l.LimitOrder
		}
		if l.CutOff != nil {
			cfg.Settings.CutOff = *l.CutOff
		}
		if l.NumSums != nil {
			cfg.Settings.NumSums = *l.NumSums
		}
		if l.MissionTime != nil {
			cfg.Settings.MissionTime = *l.MissionTime
		}
		if l.NumTrials != nil {
			cfg.Settings.NumTrials = *l.NumTrials
		}
		if l.Seed != nil {
			cfg.Settings.Seed = *l.Seed
		}
	}
	return nil
}

// yamlConfig mirrors the YAML form of the same document.
type yamlConfig struct {
	InputFiles []string `yaml:"input-files"`
	OutputPath string   `yaml:"output-path"`
	Options    struct {
		Analysis *struct {
			Probability *bool `yaml:"probability"`
			Importance  *bool `yaml:"importance"`
			Uncertainty *bool `yaml:"uncertainty"`
			CCF         *bool `yaml:"ccf"`
		} `yaml:"analysis"`
		Approximation string `yaml:"approximation"`
		Limits        *struct {
			LimitOrder  *int     `yaml:"limit-order"`
			CutOff      *float64 `yaml:"cut-off"`
			NumSums     *int     `yaml:"number-of-sums"`
			MissionTime *float64 `yaml:"mission-time"`
			NumTrials   *int     `yaml:"number-of-trials"`
			Seed        *int64   `yaml:"seed"`
		} `yaml:"limits"`
	} `yaml:"options"`
}

func parseYAML(data []byte, cfg *Config) error {
	var doc yamlConfig
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return err
	}
	cfg.InputFiles = doc.InputFiles
	cfg.OutputPath = doc.OutputPath

	if a := doc.Options.Analysis; a != nil {
		if a.Probability != nil {
			cfg.Settings.Probability = *a.Probability
		}
		if a.Importance != nil {
			cfg.Settings.Importance = *a.Importance
		}
		if a.Uncertainty != nil {
			cfg.Settings.Uncertainty = *a.Uncertainty
		}
		if a.CCF != nil {
			cfg.Settings.CCF = *a.CCF
		}
	}
	cfg.Settings.Approx = doc.Options.Approximation

	if l := doc.Options.Limits; l != nil {
		if l.LimitOrder != nil {
			cfg.Settings.LimitOrder = *l.LimitOrder
		}
		if l.CutOff != nil {
			cfg.Settings.CutOff = *l.CutOff
		}
		if l.NumSums != nil {
			cfg.Settings.NumSums = *l.NumSums
		}
		if l.MissionTime != nil {
			cfg.Settings.MissionTime = *l.MissionTime
		}
		if l.NumTrials != nil {
			cfg.Settings.NumTrials = *l.NumTrials
		}
		if l.Seed != nil {
			cfg.Settings.Seed = *l.Seed
		}
	}
	return nil
}

// parseBool accepts the strict config lexicon: 1|true|0|false,
// case sensitive.
func parseBool(raw string) (bool, error) {
	switch raw {
	case "1", "true":
		return true, nil
	case "0", "false":
		return false, nil
	}
	return false, fmt.Errorf("boolean %q, want 1|true|0|false", raw)
}
