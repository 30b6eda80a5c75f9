// Package config loads the TOML configuration and exposes the settings the
// orchestrators, smart lists and menus read.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/Digital-Shane/metaweave/internal/cache"
	"github.com/Digital-Shane/metaweave/internal/media"
	"github.com/Digital-Shane/metaweave/internal/provider"
)

// Specials modes.
const (
	SpecialsOff    = "off"
	SpecialsOn     = "on"
	SpecialsReduce = "reduce"
)

// Provider configures one metadata provider.
type Provider struct {
	Enabled     bool   `toml:"enabled"`
	APIKey      string `toml:"api_key"`
	AccessToken string `toml:"access_token,omitempty"`
	Language    string `toml:"language,omitempty"`
	Country     string `toml:"country,omitempty"`
	BaseURL     string `toml:"base_url,omitempty"`
}

// Providers holds one section per built-in provider.
type Providers struct {
	Trakt  Provider `toml:"trakt"`
	TMDb   Provider `toml:"tmdb"`
	TVDb   Provider `toml:"tvdb"`
	IMDb   Provider `toml:"imdb"`
	Fanart Provider `toml:"fanart"`
}

// Cache configures the persistent store. Durations are Go duration strings
// keyed by timeout class.
type Cache struct {
	Path        string            `toml:"path"`
	External    string            `toml:"external,omitempty"`
	Durations   map[string]string `toml:"durations,omitempty"`
	DelayLong   string            `toml:"delay_long"`
	Synchronous bool              `toml:"synchronous"`
	Undelayed   bool              `toml:"undelayed"`
}

// Menu configures listings.
type Menu struct {
	PageSize   int      `toml:"page_size"`
	Detail     string   `toml:"detail"`
	Language   string   `toml:"language"`
	HideNiches []string `toml:"hide_niches,omitempty"`
}

// Show configures episode listings.
type Show struct {
	Specials         string `toml:"specials"`
	Interleave       bool   `toml:"interleave"`
	Discrepancy      bool   `toml:"discrepancy"`
	ReduceExtras     bool   `toml:"reduce_extras"`
	ReduceUnofficial bool   `toml:"reduce_unofficial"`
	ReduceShort      bool   `toml:"reduce_short"`
	ShortSeconds     int    `toml:"short_seconds"`
}

// Batch configures the bulk generation cool-down.
type Batch struct {
	Start           float64 `toml:"start"`
	Stop            float64 `toml:"stop"`
	IntervalSeconds int     `toml:"interval_seconds"`
}

// Logging configures the logger and batch journals.
type Logging struct {
	Level         string `toml:"level"`
	Format        string `toml:"format"`
	Dir           string `toml:"dir"`
	RetentionDays int    `toml:"retention_days"`
}

// Playback points at the playback history file.
type Playback struct {
	Path string `toml:"path"`
}

// Config is the full configuration document.
type Config struct {
	Providers Providers `toml:"providers"`
	Cache     Cache     `toml:"cache"`
	Menu      Menu      `toml:"menu"`
	Show      Show      `toml:"show"`
	Batch     Batch     `toml:"batch"`
	Logging   Logging   `toml:"logging"`
	Playback  Playback  `toml:"playback"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Providers: Providers{
			Trakt:  Provider{Enabled: true, Country: "us"},
			TMDb:   Provider{Enabled: true, Language: "en-US"},
			TVDb:   Provider{Enabled: true},
			IMDb:   Provider{Enabled: true},
			Fanart: Provider{Enabled: true},
		},
		Cache: Cache{
			Path:      "~/.metaweave/cache.db",
			DelayLong: "2s",
		},
		Menu: Menu{
			PageSize: 20,
			Detail:   provider.DetailStandard.String(),
			Language: "en",
		},
		Show: Show{
			Specials:     SpecialsReduce,
			Interleave:   true,
			Discrepancy:  true,
			ReduceExtras: true,
			ReduceShort:  true,
			ShortSeconds: 600,
		},
		Batch: Batch{
			Start:           0.6,
			Stop:            0.9,
			IntervalSeconds: 5,
		},
		Logging: Logging{
			Level:         "info",
			Format:        "console",
			Dir:           "~/.metaweave/logs",
			RetentionDays: 30,
		},
		Playback: Playback{
			Path: "~/.metaweave/playback.json",
		},
	}
}

// DefaultPath returns the default configuration file location.
func DefaultPath() (string, error) {
	return expandPath("~/.metaweave/config.toml")
}

// Load reads path, or the default location when path is empty. A missing
// file yields the defaults. The returned bool reports whether the file
// existed.
func Load(path string) (*Config, bool, error) {
	cfg := Default()

	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, false, err
		}
		path = p
	}
	resolved, err := expandPath(path)
	if err != nil {
		return nil, false, err
	}

	exists := true
	data, err := os.ReadFile(resolved)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		exists = false
	case err != nil:
		return nil, false, fmt.Errorf("read config: %w", err)
	default:
		if err := toml.NewDecoder(bytes.NewReader(data)).Decode(&cfg); err != nil {
			return nil, false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, false, err
	}
	return &cfg, exists, nil
}

// Save writes the configuration to path as TOML.
func (c *Config) Save(path string) error {
	resolved, err := expandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(resolved, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// normalize fills empty fields from the defaults and expands paths.
func (c *Config) normalize() error {
	defaults := Default()
	if c.Cache.Path == "" {
		c.Cache.Path = defaults.Cache.Path
	}
	if c.Menu.PageSize <= 0 {
		c.Menu.PageSize = defaults.Menu.PageSize
	}
	if c.Menu.Detail == "" {
		c.Menu.Detail = defaults.Menu.Detail
	}
	if c.Menu.Language == "" {
		c.Menu.Language = defaults.Menu.Language
	}
	c.Show.Specials = strings.ToLower(strings.TrimSpace(c.Show.Specials))
	if c.Show.Specials == "" {
		c.Show.Specials = defaults.Show.Specials
	}
	if c.Show.ShortSeconds <= 0 {
		c.Show.ShortSeconds = defaults.Show.ShortSeconds
	}
	if c.Batch.IntervalSeconds <= 0 {
		c.Batch.IntervalSeconds = defaults.Batch.IntervalSeconds
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaults.Logging.Level
	}
	if c.Logging.Dir == "" {
		c.Logging.Dir = defaults.Logging.Dir
	}
	if c.Logging.RetentionDays == 0 {
		c.Logging.RetentionDays = defaults.Logging.RetentionDays
	}
	if c.Playback.Path == "" {
		c.Playback.Path = defaults.Playback.Path
	}

	var err error
	for _, p := range []*string{&c.Cache.Path, &c.Cache.External, &c.Logging.Dir, &c.Playback.Path} {
		if *p == "" || *p == ":memory:" {
			continue
		}
		if *p, err = expandPath(*p); err != nil {
			return err
		}
	}
	return nil
}

// Validate reports configuration values that cannot be used.
func (c *Config) Validate() error {
	switch c.Show.Specials {
	case SpecialsOff, SpecialsOn, SpecialsReduce:
	default:
		return fmt.Errorf("show.specials must be one of off, on, reduce: got %q", c.Show.Specials)
	}
	if c.Batch.Start < 0 || c.Batch.Stop > 1 || c.Batch.Start >= c.Batch.Stop {
		return fmt.Errorf("batch thresholds must satisfy 0 <= start < stop <= 1: got %.2f, %.2f", c.Batch.Start, c.Batch.Stop)
	}
	if _, err := c.CacheOptions(); err != nil {
		return err
	}
	return nil
}

// CacheOptions converts the cache section into cache.Options.
func (c *Config) CacheOptions() (cache.Options, error) {
	opts := cache.Options{
		Path:        c.Cache.Path,
		External:    c.Cache.External,
		Synchronous: c.Cache.Synchronous,
		Undelayed:   c.Cache.Undelayed,
	}
	if c.Cache.DelayLong != "" {
		d, err := time.ParseDuration(c.Cache.DelayLong)
		if err != nil {
			return opts, fmt.Errorf("cache.delay_long: %w", err)
		}
		opts.Delay = d
	}
	if len(c.Cache.Durations) > 0 {
		opts.Durations = make(map[cache.Timeout]time.Duration, len(c.Cache.Durations))
		for class, value := range c.Cache.Durations {
			timeout := cache.Timeout(class)
			if _, ok := cache.DefaultDurations[timeout]; !ok {
				return opts, fmt.Errorf("cache.durations: unknown timeout class %q", class)
			}
			d, err := time.ParseDuration(value)
			if err != nil {
				return opts, fmt.Errorf("cache.durations.%s: %w", class, err)
			}
			opts.Durations[timeout] = d
		}
	}
	return opts, nil
}

// Provider returns the section for a provider name.
func (c *Config) Provider(name string) (Provider, bool) {
	switch name {
	case media.ProviderTrakt:
		return c.Providers.Trakt, true
	case media.ProviderTMDb:
		return c.Providers.TMDb, true
	case media.ProviderTVDb:
		return c.Providers.TVDb, true
	case media.ProviderIMDb:
		return c.Providers.IMDb, true
	case media.ProviderFanart:
		return c.Providers.Fanart, true
	}
	return Provider{}, false
}

// ProviderSettings returns the map passed to provider.Configure. Empty
// values are left out so providers apply their own defaults.
func (c *Config) ProviderSettings(name string) map[string]interface{} {
	p, ok := c.Provider(name)
	if !ok {
		return nil
	}
	out := make(map[string]interface{})
	for key, value := range map[string]string{
		"api_key":      p.APIKey,
		"access_token": p.AccessToken,
		"language":     p.Language,
		"country":      p.Country,
		"base_url":     p.BaseURL,
	} {
		if value = strings.TrimSpace(value); value != "" {
			out[key] = value
		}
	}
	return out
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}
