package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func TestNew_MissingFile(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing.json"))
	if !errors.Is(err, ErrPathNotExist) {
		t.Errorf("expected ErrPathNotExist, got %v", err)
	}
}

func TestWatcher_Coalesces(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "view.json")
	other := filepath.Join(dir, "other.json")
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := New(path, WithDebounce(50*time.Millisecond))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan Event, 10)
	go w.Run(ctx, func(e Event) { got <- e })

	// Give the run loop a moment to start receiving.
	time.Sleep(20 * time.Millisecond)
	os.WriteFile(other, []byte("{}"), 0o644)
	for i := 0; i < 3; i++ {
		os.WriteFile(path, []byte(`{"width": 1}`), 0o644)
	}

	select {
	case e := <-got:
		if e.Path != w.Path() {
			t.Errorf("path = %q, want %q", e.Path, w.Path())
		}
		if !e.Op.Has(OpWrite) {
			t.Errorf("op = %v, want write", e.Op)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no change event")
	}

	select {
	case e := <-got:
		t.Errorf("burst should coalesce, got extra %+v", e)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcher_Closed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "view.yaml")
	os.WriteFile(path, nil, 0o644)

	w, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	w.Close()
	if err := w.Run(context.Background(), func(Event) {}); !errors.Is(err, ErrWatcherClosed) {
		t.Errorf("expected ErrWatcherClosed, got %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestConvertOp(t *testing.T) {
	op := convertOp(fsnotify.Create | fsnotify.Write | fsnotify.Chmod)
	if !op.Has(OpCreate) || !op.Has(OpWrite) || op.Has(OpRemove) {
		t.Errorf("convertOp = %b", op)
	}
	if convertOp(fsnotify.Chmod) != 0 {
		t.Error("chmod alone should be ignored")
	}
}
