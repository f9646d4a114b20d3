package main

import (
	"context"

	"github.com/dshills/vizview/internal/config"
	"github.com/dshills/vizview/internal/live"
)

// runServer shows the view in the live preview and feeds client input
// back into it until ctx is cancelled.
func runServer(ctx context.Context, sess *session, cfg config.ViewConfig, watchSpec bool) error {
	srv := live.NewServer(live.WithLogger(sess.logger))

	v, err := sess.build(srv)
	if err != nil {
		return err
	}
	defer func() { v.Finalize() }()

	if err := v.Run(ctx); err != nil {
		sess.logger.Error("running %s: %v", sess.path, err)
	}

	reloads, closeWatch, err := sess.watch(ctx, cfg, watchSpec)
	if err != nil {
		return err
	}
	defer closeWatch()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(ctx, cfg.Live.Addr) }()

	for {
		select {
		case err := <-errCh:
			return err
		case e := <-srv.Events():
			if err := v.Dispatch(ctx, e); err != nil {
				sess.logger.Warn("dispatch %s: %v", e.Type, err)
			}
		case <-reloads:
			v = sess.rebuild(ctx, v, srv)
		}
	}
}
