// Package config loads the optional config.json from the nibab data directory.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tailscale/hujson"

	"github.com/faizmokh/nibab/internal/schedule"
)

// ErrConfigInvalid wraps every problem found in a config file.
var ErrConfigInvalid = errors.New("invalid config")

// Window is a daily HH:MM window as written in config.json.
type Window struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Config holds defaults applied to new plans and to extensions.
type Config struct {
	Frequency        string  `json:"frequency"`
	MaxVersesPerUnit int     `json:"max_verses_per_unit"`
	TimeLapMinutes   int     `json:"time_lap_minutes"`
	QuietHours       *Window `json:"quiet_hours,omitempty"`
	WorkingHours     *Window `json:"working_hours,omitempty"`
	ExtensionDays    int     `json:"extension_days"`
	Catalog          string  `json:"catalog,omitempty"`

	// Source is the file the values were read from, empty when only defaults apply.
	Source string `json:"-"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Frequency:        string(schedule.Daily),
		MaxVersesPerUnit: schedule.DefaultMaxVersesPerUnit,
		TimeLapMinutes:   schedule.DefaultTimeLapMinutes,
		ExtensionDays:    schedule.DefaultExtensionDays,
	}
}

// Load applies the file at path over the defaults. A missing file is not an
// error. A relative catalog path is resolved against the file's directory.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	fileCfg, err := parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, err)
	}
	if fileCfg.Catalog != "" && !filepath.IsAbs(fileCfg.Catalog) {
		fileCfg.Catalog = filepath.Join(filepath.Dir(path), fileCfg.Catalog)
	}

	cfg = merge(cfg, fileCfg)
	cfg.Source = path
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, err)
	}
	return cfg, nil
}

func parse(data []byte) (Config, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return Config{}, fmt.Errorf("invalid JSON: %w", err)
	}
	return cfg, nil
}

func merge(base, overlay Config) Config {
	if overlay.Frequency != "" {
		base.Frequency = overlay.Frequency
	}
	if overlay.MaxVersesPerUnit != 0 {
		base.MaxVersesPerUnit = overlay.MaxVersesPerUnit
	}
	if overlay.TimeLapMinutes != 0 {
		base.TimeLapMinutes = overlay.TimeLapMinutes
	}
	if overlay.QuietHours != nil {
		base.QuietHours = overlay.QuietHours
	}
	if overlay.WorkingHours != nil {
		base.WorkingHours = overlay.WorkingHours
	}
	if overlay.ExtensionDays != 0 {
		base.ExtensionDays = overlay.ExtensionDays
	}
	if overlay.Catalog != "" {
		base.Catalog = overlay.Catalog
	}
	return base
}

// Validate checks ranges and clock formats.
func (c Config) Validate() error {
	if _, err := schedule.ParseFrequency(c.Frequency); err != nil {
		return err
	}
	if c.MaxVersesPerUnit < 1 || c.MaxVersesPerUnit > schedule.MaxVersesPerUnitLimit {
		return fmt.Errorf("max_verses_per_unit %d out of range [1, %d]", c.MaxVersesPerUnit, schedule.MaxVersesPerUnitLimit)
	}
	if c.TimeLapMinutes < 1 {
		return fmt.Errorf("time_lap_minutes must be positive, got %d", c.TimeLapMinutes)
	}
	if c.ExtensionDays < 1 {
		return fmt.Errorf("extension_days must be positive, got %d", c.ExtensionDays)
	}
	if err := c.QuietHours.validate("quiet_hours"); err != nil {
		return err
	}
	return c.WorkingHours.validate("working_hours")
}

func (w *Window) validate(key string) error {
	if w == nil {
		return nil
	}
	if _, err := schedule.ParseClock(w.Start); err != nil {
		return fmt.Errorf("%s.start: %w", key, err)
	}
	if _, err := schedule.ParseClock(w.End); err != nil {
		return fmt.Errorf("%s.end: %w", key, err)
	}
	return nil
}

// TimeWindow converts w for the scheduler. A nil window stays nil.
func (w *Window) TimeWindow() *schedule.TimeWindow {
	if w == nil {
		return nil
	}
	return &schedule.TimeWindow{Start: w.Start, End: w.End}
}

// PlanFrequency returns the configured frequency, falling back to daily.
func (c Config) PlanFrequency() schedule.Frequency {
	f, err := schedule.ParseFrequency(c.Frequency)
	if err != nil {
		return schedule.Daily
	}
	return f
}

// Format renders the effective configuration as indented JSON.
func Format(c Config) (string, error) {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data) + "\n", nil
}
