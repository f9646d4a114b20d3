// Package config loads the settings the vizview command applies to a
// view: renderer, log level, resource loader, live preview and file
// watching.
//
// Sources are layered in increasing precedence: built-in defaults, a TOML
// file, then VIZVIEW_ environment variables.
//
//	renderer = "svg"
//	logLevel = "info"
//
//	[loader]
//	baseURL = "https://example.com/data/"
//	cacheSize = 64
//
//	[live]
//	addr = "127.0.0.1:8080"
//
//	[watch]
//	debounce = "150ms"
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/vizview/internal/config/loader"
	"github.com/dshills/vizview/internal/logging"
)

// EnvPrefix is the environment variable prefix.
const EnvPrefix = "VIZVIEW_"

// Errors returned by configuration operations.
var (
	// ErrInvalidConfig indicates a setting failed validation.
	ErrInvalidConfig = errors.New("invalid config")
)

// ViewConfig holds the settings applied to a view.
type ViewConfig struct {
	Renderer string       `toml:"renderer"`
	LogLevel string       `toml:"logLevel"`
	Loader   LoaderConfig `toml:"loader"`
	Live     LiveConfig   `toml:"live"`
	Watch    WatchConfig  `toml:"watch"`
}

// LoaderConfig configures resource loading.
type LoaderConfig struct {
	BaseURL   string `toml:"baseURL"`
	CacheSize int    `toml:"cacheSize"`
}

// LiveConfig configures the live preview server.
type LiveConfig struct {
	Addr string `toml:"addr"`
}

// WatchConfig configures spec reloading.
type WatchConfig struct {
	Debounce string `toml:"debounce"`
}

// Default returns the built-in settings.
func Default() ViewConfig {
	return ViewConfig{
		Renderer: "canvas",
		LogLevel: "warn",
		Loader:   LoaderConfig{CacheSize: 64},
		Live:     LiveConfig{Addr: "127.0.0.1:8080"},
		Watch:    WatchConfig{Debounce: "100ms"},
	}
}

// Level returns the parsed log level.
func (c ViewConfig) Level() logging.Level {
	return logging.ParseLevel(c.LogLevel)
}

// DebounceDuration returns the parsed watch debounce.
func (c ViewConfig) DebounceDuration() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil {
		return 0
	}
	return d
}

// Validate checks value ranges.
func (c ViewConfig) Validate() error {
	var errs []error
	if c.Renderer == "" {
		errs = append(errs, fmt.Errorf("%w: renderer is empty", ErrInvalidConfig))
	}
	if c.Loader.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("%w: loader.cacheSize must not be negative", ErrInvalidConfig))
	}
	if c.Watch.Debounce != "" {
		if d, err := time.ParseDuration(c.Watch.Debounce); err != nil || d < 0 {
			errs = append(errs, fmt.Errorf("%w: watch.debounce %q", ErrInvalidConfig, c.Watch.Debounce))
		}
	}
	return errors.Join(errs...)
}

// Load builds a ViewConfig from defaults, the TOML file at path (skipped
// when empty or missing) and the environment.
func Load(path string) (ViewConfig, error) {
	return LoadFrom(loader.NewTOMLLoader(path), loader.NewEnvLoader(EnvPrefix))
}

// LoadFrom layers the given sources over the defaults in order.
func LoadFrom(sources ...loader.Loader) (ViewConfig, error) {
	merged := make(map[string]any)
	for _, src := range sources {
		m, err := src.Load()
		if err != nil {
			return ViewConfig{}, err
		}
		merged = loader.DeepMerge(merged, m)
	}

	cfg := Default()
	if len(merged) > 0 {
		data, err := toml.Marshal(merged)
		if err != nil {
			return ViewConfig{}, fmt.Errorf("encoding merged config: %w", err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return ViewConfig{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return ViewConfig{}, err
	}
	return cfg, nil
}
