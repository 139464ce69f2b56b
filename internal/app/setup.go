package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"golang.org/x/time/rate"

	"github.com/foliobot/folio/internal/assistant"
	"github.com/foliobot/folio/internal/cache"
	"github.com/foliobot/folio/internal/chunker"
	"github.com/foliobot/folio/internal/config"
	"github.com/foliobot/folio/internal/database"
	"github.com/foliobot/folio/internal/extract"
	"github.com/foliobot/folio/internal/indexer"
	"github.com/foliobot/folio/internal/leads"
	"github.com/foliobot/folio/internal/notify"
	"github.com/foliobot/folio/internal/retriever"
	"github.com/foliobot/folio/internal/tools"
	"github.com/foliobot/folio/internal/vectorstore"
)

// modelCallsPerSecond throttles outbound model requests so a burst of chat
// traffic degrades into queueing instead of provider 429s.
const modelCallsPerSecond = 2

// Setup initializes every component from cfg. On error, everything already
// acquired is released before returning.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, retErr error) {
	a := &App{Config: cfg, Logger: logger}
	defer func() {
		if retErr != nil {
			a.Close()
		}
	}()

	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	a.DB = db
	a.onClose(func() {
		if err := db.Close(); err != nil {
			logger.Warn("closing database", "error", err)
		}
	})

	a.Leads = leads.NewStore(db, logger.With("component", "leads"))
	a.Cache = cache.New(db, cfg.Cache.TTL, cfg.Cache.MaxBytes, logger.With("component", "cache"))

	a.Genkit = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))

	embedder := googlegenai.GoogleAIEmbedder(a.Genkit, cfg.AI.EmbedderModel)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found", cfg.AI.EmbedderModel)
	}

	store, err := vectorstore.NewPostgres(ctx, cfg.Postgres.DSN(),
		vectorstore.NewGenkitEmbedder(embedder), logger.With("component", "vectorstore"))
	if err != nil {
		return nil, fmt.Errorf("connecting vector store: %w", err)
	}
	a.Store = store
	a.onClose(store.Close)

	c, err := chunker.New(cfg.Knowledge.ChunkSize, cfg.Knowledge.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	a.Indexer = indexer.New(store, extract.NewExtractor(), c, logger.With("component", "indexer"))

	var notifier notify.Notifier = notify.Nop{}
	if cfg.Pushover.User != "" && cfg.Pushover.Token != "" {
		notifier = notify.NewPushover(cfg.Pushover.User, cfg.Pushover.Token,
			logger.With("component", "notify"))
	}

	registry := tools.NewDefaultRegistry(a.Leads, notifier, logger.With("component", "tools"))
	executor := tools.NewExecutor(registry, logger.With("component", "tools"))
	toolRefs := tools.DefineGenkitTools(a.Genkit, registry)

	a.Assistant, err = assistant.New(assistant.Config{
		Model:         assistant.NewGenkitModel(a.Genkit, cfg.AI.Model, toolRefs),
		Retriever:     retriever.New(store, cfg.Retrieval.TopK, cfg.Retrieval.MaxDistance, logger.With("component", "retriever")),
		Cache:         a.Cache,
		Executor:      executor,
		Logger:        logger.With("component", "assistant"),
		Name:          cfg.Assistant.Name,
		Email:         cfg.Assistant.Email,
		MaxToolRounds: cfg.AI.MaxToolRounds,
		Limiter:       rate.NewLimiter(modelCallsPerSecond, modelCallsPerSecond),
	})
	if err != nil {
		return nil, err
	}

	logger.Info("application initialized",
		"model", cfg.AI.Model,
		"embedder", cfg.AI.EmbedderModel,
		"knowledge_dir", cfg.Knowledge.Dir)
	return a, nil
}
