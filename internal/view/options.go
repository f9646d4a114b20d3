package view

import (
	"github.com/dshills/vizview/internal/config"
	"github.com/dshills/vizview/internal/loader"
	"github.com/dshills/vizview/internal/logging"
	"github.com/dshills/vizview/internal/render"
	"github.com/dshills/vizview/internal/tooltip"
)

type options struct {
	loader    loader.Loader
	logLevel  *logging.Level
	renderer  string
	tooltip   tooltip.Handler
	logger    *logging.Logger
	onError   func(error)
	container render.Container
	registry  *render.Registry
}

// Option configures a View.
type Option func(*options)

// WithLoader sets the resource loader shared by data loading and
// renderers.
func WithLoader(l loader.Loader) Option {
	return func(o *options) {
		o.loader = l
	}
}

// WithLogLevel sets the verbosity: 0 none, 1 error, 2 warn, 3 info,
// 4 debug.
func WithLogLevel(n int) Option {
	return func(o *options) {
		lvl := logging.ClampLevel(n)
		o.logLevel = &lvl
	}
}

// WithRenderer selects the renderer module by type name.
func WithRenderer(typ string) Option {
	return func(o *options) {
		o.renderer = typ
	}
}

// WithTooltip sets the tooltip handler.
func WithTooltip(h tooltip.Handler) Option {
	return func(o *options) {
		o.tooltip = h
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithErrorHandler receives every contained failure: render errors and
// trapped listener errors. It is called in addition to logging.
func WithErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.onError = fn
	}
}

// WithContainer initializes the view against c during construction.
func WithContainer(c render.Container) Option {
	return func(o *options) {
		o.container = c
	}
}

// WithRegistry replaces the renderer module registry.
func WithRegistry(r *render.Registry) Option {
	return func(o *options) {
		o.registry = r
	}
}

// OptionsFromConfig converts loaded settings into options.
func OptionsFromConfig(cfg config.ViewConfig) ([]Option, error) {
	l, err := loader.New(
		loader.WithBaseURL(cfg.Loader.BaseURL),
		loader.WithCacheSize(cfg.Loader.CacheSize),
	)
	if err != nil {
		return nil, err
	}
	return []Option{
		WithLoader(l),
		WithRenderer(cfg.Renderer),
		WithLogLevel(int(cfg.Level())),
	}, nil
}
