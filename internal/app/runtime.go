package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/foliobot/folio/internal/server"
	"github.com/foliobot/folio/internal/watcher"
)

const (
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 2 * time.Minute
	idleTimeout       = 2 * time.Minute
	shutdownTimeout   = 30 * time.Second
)

// Run serves the HTTP API until ctx is canceled. When knowledge watching is
// enabled, a filesystem watcher re-indexes alongside the server; either one
// failing brings the whole runtime down.
func (a *App) Run(ctx context.Context) error {
	srv, err := server.New(server.Config{
		Assistant:   a.Assistant,
		Leads:       a.Leads,
		Cache:       a.Cache,
		Store:       a.Store,
		Logger:      a.Logger.With("component", "server"),
		CORSOrigins: a.Config.Server.CORSOrigins,
		RateBurst:   a.Config.Server.RateBurst,
	})
	if err != nil {
		return err
	}

	httpSrv := &http.Server{
		Addr:              a.Config.Server.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.Info("HTTP server ready", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		a.Logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	if a.Config.Knowledge.Watch {
		w := watcher.New(a.Config.Knowledge.Dir, a, a.Logger.With("component", "watcher"))
		g.Go(func() error {
			if err := w.Run(ctx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
