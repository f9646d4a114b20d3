package main

import (
	"context"
	"slices"

	"github.com/dshills/vizview/internal/config"
	"github.com/dshills/vizview/internal/logging"
	"github.com/dshills/vizview/internal/render"
	"github.com/dshills/vizview/internal/spec"
	"github.com/dshills/vizview/internal/view"
	"github.com/dshills/vizview/internal/watch"
)

// session builds views from one spec file.
type session struct {
	path   string
	opts   []view.Option
	logger *logging.Logger
}

// build loads the spec and creates a view attached to c. A nil c leaves
// the view headless.
func (s *session) build(c render.Container) (*view.View, error) {
	sp, err := spec.LoadFile(s.path)
	if err != nil {
		return nil, err
	}
	opts := slices.Clone(s.opts)
	if c != nil {
		opts = append(opts, view.WithContainer(c))
	}
	return view.New(sp, opts...)
}

// rebuild replaces old with a fresh view. On failure old is kept and
// the error is logged.
func (s *session) rebuild(ctx context.Context, old *view.View, c render.Container) *view.View {
	nv, err := s.build(c)
	if err != nil {
		s.logger.Error("reloading %s: %v", s.path, err)
		return old
	}
	old.Finalize()
	if err := nv.Run(ctx); err != nil {
		s.logger.Error("running %s: %v", s.path, err)
	}
	s.logger.Info("reloaded %s", s.path)
	return nv
}

// watch starts a watcher on the spec file when enabled. The returned
// channel receives after each settled change; it is nil when disabled.
func (s *session) watch(ctx context.Context, cfg config.ViewConfig, enabled bool) (<-chan struct{}, func(), error) {
	if !enabled {
		return nil, func() {}, nil
	}
	w, err := watch.New(s.path,
		watch.WithDebounce(cfg.DebounceDuration()),
		watch.WithLogger(s.logger),
	)
	if err != nil {
		return nil, nil, err
	}

	reloads := make(chan struct{}, 1)
	go func() {
		err := w.Run(ctx, func(watch.Event) {
			select {
			case reloads <- struct{}{}:
			default:
			}
		})
		if err != nil && ctx.Err() == nil {
			s.logger.Warn("watching %s: %v", s.path, err)
		}
	}()
	return reloads, func() { _ = w.Close() }, nil
}
