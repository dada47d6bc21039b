// Package config loads detector tuning from JSON. The same schema serves
// as the startup configuration file and as the canonical record of the
// field-proven defaults.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/tubecount/internal/hose"
)

// DefaultConfigPath is the path to the canonical tuning defaults file. Its
// values mirror hose.DefaultParams, which is what Params falls back to for
// unset fields.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig carries the detector and pairing tunables. All fields are
// pointers so a partial config file only overrides what it names; Params
// supplies defaults for the rest.
type TuningConfig struct {
	// Sample filter bounds (raw 12-bit ADC counts)
	MinPressure *int `json:"min_pressure,omitempty"`
	MaxPressure *int `json:"max_pressure,omitempty"`

	// Hysteresis offsets above the running baseline
	RiseOffset *int `json:"rise_offset,omitempty"`
	IdleOffset *int `json:"idle_offset,omitempty"`

	// Debounce counts
	RiseCount *int `json:"rise_count,omitempty"`
	FallCount *int `json:"fall_count,omitempty"`

	// Baseline moving-average window
	BaselineWindow *int `json:"baseline_window,omitempty"`

	// Pairing params
	PairWindowMillis  *int     `json:"pair_window_millis,omitempty"`
	HoseSpacingInches *float64 `json:"hose_spacing_inches,omitempty"`
	MaxWheelbaseFeet  *float64 `json:"max_wheelbase_feet,omitempty"`
}

// LoadTuningConfig loads a TuningConfig from a JSON file. The file must
// have a .json extension and stay under the max file size. Fields omitted
// from the JSON retain their defaults, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &TuningConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are usable as detector
// tuning.
func (c *TuningConfig) Validate() error {
	if c.MinPressure != nil && (*c.MinPressure < 0 || *c.MinPressure > 0xFFF) {
		return fmt.Errorf("min_pressure must be a 12-bit value, got %d", *c.MinPressure)
	}
	if c.MaxPressure != nil && *c.MaxPressure < 0 {
		return fmt.Errorf("max_pressure must be non-negative, got %d", *c.MaxPressure)
	}
	if c.MinPressure != nil && c.MaxPressure != nil && *c.MinPressure >= *c.MaxPressure {
		return fmt.Errorf("min_pressure %d must be below max_pressure %d", *c.MinPressure, *c.MaxPressure)
	}

	if c.RiseOffset != nil && c.IdleOffset != nil && *c.RiseOffset <= *c.IdleOffset {
		return fmt.Errorf("rise_offset %d must exceed idle_offset %d or there is no hysteresis",
			*c.RiseOffset, *c.IdleOffset)
	}

	if c.RiseCount != nil && *c.RiseCount < 1 {
		return fmt.Errorf("rise_count must be at least 1, got %d", *c.RiseCount)
	}
	if c.FallCount != nil && *c.FallCount < 1 {
		return fmt.Errorf("fall_count must be at least 1, got %d", *c.FallCount)
	}

	if c.BaselineWindow != nil && *c.BaselineWindow < 2 {
		return fmt.Errorf("baseline_window must be at least 2, got %d", *c.BaselineWindow)
	}

	if c.PairWindowMillis != nil && *c.PairWindowMillis < 1 {
		return fmt.Errorf("pair_window_millis must be positive, got %d", *c.PairWindowMillis)
	}
	if c.HoseSpacingInches != nil && *c.HoseSpacingInches <= 0 {
		return fmt.Errorf("hose_spacing_inches must be positive, got %f", *c.HoseSpacingInches)
	}
	if c.MaxWheelbaseFeet != nil && *c.MaxWheelbaseFeet <= 0 {
		return fmt.Errorf("max_wheelbase_feet must be positive, got %f", *c.MaxWheelbaseFeet)
	}

	return nil
}

// Params maps the configuration onto the detector's parameter struct,
// starting from hose.DefaultParams for anything unset.
func (c *TuningConfig) Params() hose.Params {
	p := hose.DefaultParams()
	if c.MinPressure != nil {
		p.MinPressure = uint16(*c.MinPressure)
	}
	if c.MaxPressure != nil {
		p.MaxPressure = uint16(*c.MaxPressure)
	}
	if c.RiseOffset != nil {
		p.RiseOffset = uint16(*c.RiseOffset)
	}
	if c.IdleOffset != nil {
		p.IdleOffset = uint16(*c.IdleOffset)
	}
	if c.RiseCount != nil {
		p.RiseCount = uint32(*c.RiseCount)
	}
	if c.FallCount != nil {
		p.FallCount = uint32(*c.FallCount)
	}
	if c.BaselineWindow != nil {
		p.BaselineWindow = uint32(*c.BaselineWindow)
	}
	if c.PairWindowMillis != nil {
		p.PairWindowMillis = uint64(*c.PairWindowMillis)
	}
	if c.HoseSpacingInches != nil {
		p.HoseSpacingInches = *c.HoseSpacingInches
	}
	if c.MaxWheelbaseFeet != nil {
		p.MaxWheelbaseFeet = *c.MaxWheelbaseFeet
	}
	return p
}
