// Package config loads the YAML configuration file, creating a commented
// default on first run.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hearthdash/hearth/internal/model"
)

// SourceConfig describes one calendar source shown on the dashboard.
type SourceConfig struct {
	// ID is the backend entity id (e.g. "calendar.family") or, for ICS
	// sources, an internal identifier.
	ID string `yaml:"id"`
	// Name is the label shown in the UI.
	Name string `yaml:"name"`
	// Color is a CSS color for this source's events.
	Color string `yaml:"color"`
	// Icon is an optional icon name.
	Icon string `yaml:"icon"`
	// URL marks this source as an ICS subscription instead of a Home
	// Assistant calendar entity.
	URL string `yaml:"url,omitempty"`
}

// PeriodConfig is one chore period with inclusive HH:MM bounds.
type PeriodConfig struct {
	Name  string `yaml:"name"`
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// KidConfig binds a child to their to-do list.
type KidConfig struct {
	Name  string `yaml:"name"`
	List  string `yaml:"list"`
	Image string `yaml:"image,omitempty"`
}

// HassConfig holds the Home Assistant connection.
type HassConfig struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
}

// GoogleTasksConfig holds the Google Tasks credentials. When set, chore lists
// are read from Google Tasks instead of Home Assistant to-do entities.
type GoogleTasksConfig struct {
	ClientFile string `yaml:"client_file"`
	TokenFile  string `yaml:"token_file"`
}

// Config is the top-level application configuration.
type Config struct {
	Listen   string `yaml:"listen"`
	Timezone string `yaml:"timezone"`
	LogLevel string `yaml:"log_level"`
	Database string `yaml:"database"`

	// RefreshCron re-fetches all calendar sources on a schedule, on top of
	// the fetches triggered by window changes.
	RefreshCron string `yaml:"refresh"`
	// ResetCron drives the daily chore reset check.
	ResetCron string `yaml:"reset_check"`

	HorizonDays int `yaml:"horizon_days"`
	DebounceMS  int `yaml:"debounce_ms"`

	Sources []SourceConfig `yaml:"sources"`
	Periods []PeriodConfig `yaml:"periods"`
	Kids    []KidConfig    `yaml:"kids"`

	Hass        HassConfig         `yaml:"hass"`
	GoogleTasks *GoogleTasksConfig `yaml:"google_tasks,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Listen:      "127.0.0.1:8090",
		Timezone:    "Local",
		LogLevel:    "info",
		Database:    "hearth.db",
		RefreshCron: "*/15 * * * *",
		ResetCron:   "*/5 * * * *",
		HorizonDays: 30,
		DebounceMS:  50,
		Periods: []PeriodConfig{
			{Name: "Morning", Start: "06:00", End: "09:00"},
			{Name: "Evening", Start: "17:00", End: "21:00"},
		},
	}
}

// Normalize fills zero values with defaults so partial configs keep working.
func (c *Config) Normalize() {
	d := Default()
	if c.Listen == "" {
		c.Listen = d.Listen
	}
	if c.Timezone == "" {
		c.Timezone = d.Timezone
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.Database == "" {
		c.Database = d.Database
	}
	if c.RefreshCron == "" {
		c.RefreshCron = d.RefreshCron
	}
	if c.ResetCron == "" {
		c.ResetCron = d.ResetCron
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = d.HorizonDays
	}
	if c.DebounceMS <= 0 {
		c.DebounceMS = d.DebounceMS
	}
	for i := range c.Sources {
		if c.Sources[i].Color == "" {
			c.Sources[i].Color = model.DefaultSourceColor
		}
	}
}

// Validate rejects configs the runtime cannot start with.
func (c *Config) Validate() error {
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	seen := make(map[string]bool, len(c.Sources))
	for _, s := range c.Sources {
		if s.ID == "" {
			return errors.New("source with empty id")
		}
		if seen[s.ID] {
			return fmt.Errorf("duplicate source id %q", s.ID)
		}
		seen[s.ID] = true
	}
	if _, err := c.ChorePeriods(); err != nil {
		return err
	}
	for _, k := range c.Kids {
		if k.Name == "" || k.List == "" {
			return fmt.Errorf("kid %q needs both a name and a list", k.Name)
		}
	}
	if len(c.Kids) > 0 && c.GoogleTasks == nil && c.Hass.URL == "" {
		return errors.New("kids configured but no to-do backend (hass or google_tasks)")
	}
	return nil
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// ChorePeriods parses the period table into model values.
func (c *Config) ChorePeriods() ([]model.ChorePeriod, error) {
	periods := make([]model.ChorePeriod, 0, len(c.Periods))
	for _, p := range c.Periods {
		start, err := model.ParseTimeOfDay(p.Start)
		if err != nil {
			return nil, fmt.Errorf("period %q start: %w", p.Name, err)
		}
		end, err := model.ParseTimeOfDay(p.End)
		if err != nil {
			return nil, fmt.Errorf("period %q end: %w", p.Name, err)
		}
		if end < start {
			return nil, fmt.Errorf("period %q ends before it starts", p.Name)
		}
		periods = append(periods, model.ChorePeriod{Name: p.Name, Start: start, End: end})
	}
	return periods, nil
}

// Debounce returns the aggregator debounce as a duration.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.DebounceMS) * time.Millisecond
}

// CalendarSources converts configured sources to the model type. Everything
// is visible by default; persisted overrides are applied at startup.
func (c *Config) CalendarSources() []model.CalendarSource {
	out := make([]model.CalendarSource, 0, len(c.Sources))
	for _, s := range c.Sources {
		out = append(out, model.CalendarSource{
			ID:      s.ID,
			Name:    s.Name,
			Color:   s.Color,
			Icon:    s.Icon,
			Visible: true,
		})
	}
	return out
}

// ICSSubscriptions returns the id-to-URL map of sources backed by ICS feeds.
func (c *Config) ICSSubscriptions() map[string]string {
	out := make(map[string]string)
	for _, s := range c.Sources {
		if s.URL != "" {
			out[s.ID] = s.URL
		}
	}
	return out
}

// Load reads the config at path. A missing file writes the default config
// with 0600 perms and returns it; any other read error is fatal.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg := Default()
		if err := save(path, cfg); err != nil {
			return nil, fmt.Errorf("write default config: %w", err)
		}
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func save(path string, cfg *Config) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
