// Package app wires the application together: configuration, storage,
// the Genkit model runtime, the retrieval pipeline, and the HTTP server.
package app

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/firebase/genkit/go/genkit"

	"github.com/foliobot/folio/internal/assistant"
	"github.com/foliobot/folio/internal/cache"
	"github.com/foliobot/folio/internal/config"
	"github.com/foliobot/folio/internal/indexer"
	"github.com/foliobot/folio/internal/leads"
	"github.com/foliobot/folio/internal/vectorstore"
)

// App is the application container. Setup builds it; Close releases it.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Genkit    *genkit.Genkit
	DB        *sql.DB
	Leads     *leads.Store
	Cache     *cache.Cache
	Store     vectorstore.Store
	Indexer   *indexer.Indexer
	Assistant *assistant.Assistant

	closers []func()
}

// Close releases resources in reverse acquisition order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
	a.Logger.Info("application shut down")
}

func (a *App) onClose(f func()) {
	a.closers = append(a.closers, f)
}

// Reindex re-runs indexing over the configured knowledge directory without
// resetting the collection. It satisfies the watcher's Reindexer interface.
func (a *App) Reindex(ctx context.Context) error {
	_, err := a.Indexer.Run(ctx, a.Config.Knowledge.Dir, false)
	return err
}
