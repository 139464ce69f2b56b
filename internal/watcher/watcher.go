// Package watcher monitors the knowledge directory and triggers re-indexing
// when documents change.
package watcher

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounce batches bursts of filesystem events (editors often write a file
// several times in quick succession) into a single re-index.
const debounce = 2 * time.Second

// watchedExtensions are the file types the indexer understands.
var watchedExtensions = map[string]bool{
	".pdf": true,
	".txt": true,
	".md":  true,
}

// Reindexer re-runs indexing over the knowledge directory.
type Reindexer interface {
	Reindex(ctx context.Context) error
}

// Watcher re-indexes the knowledge base when watched files change.
type Watcher struct {
	dir       string
	reindexer Reindexer
	logger    *slog.Logger
}

// New creates a Watcher over dir.
func New(dir string, reindexer Reindexer, logger *slog.Logger) *Watcher {
	return &Watcher{dir: dir, reindexer: reindexer, logger: logger}
}

// Run watches until ctx is canceled. Create, write, remove, and rename
// events on supported file types schedule a debounced re-index.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return err
	}
	w.logger.Info("watching knowledge directory", "dir", w.dir)

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !watchedExtensions[filepath.Ext(event.Name)] {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.logger.Debug("knowledge file changed", "file", filepath.Base(event.Name), "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(debounce)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(debounce)
			}

		case <-timerC:
			timer = nil
			timerC = nil
			w.logger.Info("knowledge directory changed, re-indexing")
			if err := w.reindexer.Reindex(ctx); err != nil {
				w.logger.Error("re-indexing failed", "error", err)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}
