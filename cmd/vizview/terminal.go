package main

import (
	"context"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/vizview/internal/config"
	"github.com/dshills/vizview/internal/event"
	"github.com/dshills/vizview/internal/render"
	"github.com/dshills/vizview/internal/render/term"
)

// screenContainer hands the terminal renderer a real screen. The
// renderer flushes the screen itself, so Show has nothing to do.
type screenContainer struct {
	screen tcell.Screen
}

func (c *screenContainer) Show(render.Frame) error {
	return nil
}

func (c *screenContainer) Screen() tcell.Screen {
	return c.screen
}

// quitKey reports whether ev ends the terminal session.
func quitKey(ev tcell.Event) bool {
	k, ok := ev.(*tcell.EventKey)
	if !ok {
		return false
	}
	switch k.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyRune:
		return k.Rune() == 'q'
	}
	return false
}

// runTerminal draws the view on the terminal and dispatches key and
// mouse input to it until the user quits.
func runTerminal(ctx context.Context, sess *session, cfg config.ViewConfig, watchSpec bool) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()
	screen.EnableMouse()

	c := &screenContainer{screen: screen}
	v, err := sess.build(c)
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

	input := make(chan tcell.Event, 16)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				close(input)
				return
			}
			select {
			case input <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	tr := event.NewTcellTranslator(term.CellWidth, term.CellHeight)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-input:
			if !ok || quitKey(ev) {
				return nil
			}
			for _, e := range tr.Translate(ev) {
				if e.Type == event.Resize {
					screen.Sync()
					v.Resize()
				}
				if err := v.Dispatch(ctx, e); err != nil {
					sess.logger.Warn("dispatch %s: %v", e.Type, err)
				}
			}
		case <-reloads:
			v = sess.rebuild(ctx, v, c)
		}
	}
}
