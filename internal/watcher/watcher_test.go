package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/foliobot/folio/internal/log"
)

type countingReindexer struct {
	count atomic.Int32
}

func (r *countingReindexer) Reindex(context.Context) error {
	r.count.Add(1)
	return nil
}

func TestRun_DebouncesBurstIntoOneReindex(t *testing.T) {
	dir := t.TempDir()
	r := &countingReindexer{}
	w := New(dir, r, log.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher time to register before writing.
	time.Sleep(200 * time.Millisecond)
	for i := range 3 {
		path := filepath.Join(dir, "doc.txt")
		if err := os.WriteFile(path, []byte{byte('a' + i)}, 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(50 * time.Millisecond)
	}

	deadline := time.After(10 * time.Second)
	for r.count.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("reindex never triggered")
		case <-time.After(100 * time.Millisecond):
		}
	}
	// Let any straggler timers fire before asserting the count.
	time.Sleep(3 * time.Second)
	if got := r.count.Load(); got != 1 {
		t.Errorf("reindex ran %d times for one burst, want 1", got)
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run() = %v, want context.Canceled", err)
	}
}

func TestRun_IgnoresUnsupportedFiles(t *testing.T) {
	dir := t.TempDir()
	r := &countingReindexer{}
	w := New(dir, r, log.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	time.Sleep(200 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(dir, "junk.tmp"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	time.Sleep(3 * time.Second)
	if got := r.count.Load(); got != 0 {
		t.Errorf("reindex ran %d times for unsupported file, want 0", got)
	}
}

func TestRun_MissingDirectoryErrors(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "absent"), &countingReindexer{}, log.NewNop())
	if err := w.Run(context.Background()); err == nil {
		t.Fatal("Run() on missing directory succeeded, want error")
	}
}
