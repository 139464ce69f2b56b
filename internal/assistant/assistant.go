// Package assistant implements the conversation orchestrator: it grounds
// the prompt with retrieved context, consults the response cache, drives
// the model-call / tool-call loop to completion, sanitizes the output, and
// populates the cache.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/foliobot/folio/internal/retriever"
	"github.com/foliobot/folio/internal/tools"
)

// ErrToolRoundsExceeded reports a conversation that kept requesting tools
// past the configured cap. Non-fatal; the caller shows a structured error.
var ErrToolRoundsExceeded = errors.New("assistant could not complete the request")

// ContextRetriever supplies grounded context for a query.
type ContextRetriever interface {
	Retrieve(ctx context.Context, query string) retriever.Context
}

// ResponseCache fronts the model with previously generated answers.
type ResponseCache interface {
	Lookup(ctx context.Context, query, contextBlock string) (string, bool)
	Store(ctx context.Context, query, contextBlock, answer string, metadata map[string]string)
}

// ToolExecutor runs model-issued tool invocations.
type ToolExecutor interface {
	Execute(ctx context.Context, calls []tools.Call) []tools.CallResult
}

// Config contains the orchestrator's dependencies and tuning.
type Config struct {
	Model     Model
	Retriever ContextRetriever
	Cache     ResponseCache
	Executor  ToolExecutor
	Logger    *slog.Logger

	// Name is the persona the assistant speaks as; Email is optionally
	// offered as the direct contact address.
	Name  string
	Email string

	// MaxToolRounds caps the generate/execute cycle per request.
	MaxToolRounds int

	// Limiter throttles model calls. Nil disables throttling.
	Limiter *rate.Limiter
}

func (cfg Config) validate() error {
	if cfg.Model == nil {
		return errors.New("model is required")
	}
	if cfg.Retriever == nil {
		return errors.New("retriever is required")
	}
	if cfg.Cache == nil {
		return errors.New("cache is required")
	}
	if cfg.Executor == nil {
		return errors.New("tool executor is required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Name == "" {
		return errors.New("assistant name is required")
	}
	if cfg.MaxToolRounds <= 0 {
		return errors.New("max tool rounds must be positive")
	}
	return nil
}

// Assistant is the top-level conversation orchestrator. Stateless across
// requests; safe for concurrent use.
type Assistant struct {
	model         Model
	retriever     ContextRetriever
	cache         ResponseCache
	executor      ToolExecutor
	logger        *slog.Logger
	name          string
	email         string
	maxToolRounds int
	limiter       *rate.Limiter
}

// New creates an Assistant from cfg.
func New(cfg Config) (*Assistant, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid assistant config: %w", err)
	}
	return &Assistant{
		model:         cfg.Model,
		retriever:     cfg.Retriever,
		cache:         cfg.Cache,
		executor:      cfg.Executor,
		logger:        cfg.Logger,
		name:          cfg.Name,
		email:         cfg.Email,
		maxToolRounds: cfg.MaxToolRounds,
		limiter:       cfg.Limiter,
	}, nil
}

// Reply processes one user message with the supplied prior history and
// returns the final sanitized answer. The message sequence is rebuilt
// fresh per call; the caller owns cross-turn persistence.
func (a *Assistant) Reply(ctx context.Context, message string, history []Message) (string, error) {
	retrieved := a.retriever.Retrieve(ctx, message)

	if answer, ok := a.cache.Lookup(ctx, message, retrieved.Formatted); ok {
		a.logger.Info("answer served from cache")
		return answer, nil
	}

	messages := make([]Message, 0, len(history)+2)
	messages = append(messages, Message{
		Role:    RoleSystem,
		Content: buildSystemPrompt(a.name, a.email, retrieved.Formatted),
	})
	messages = append(messages, SanitizeHistory(history)...)
	messages = append(messages, Message{Role: RoleUser, Content: message})

	content, err := a.generate(ctx, messages)
	if err != nil {
		return "", err
	}

	answer := Sanitize(content)
	a.cache.Store(ctx, message, retrieved.Formatted, answer, nil)
	return answer, nil
}

// generate drives the model-call / tool-call loop until the model produces
// a final answer or the round cap trips.
func (a *Assistant) generate(ctx context.Context, messages []Message) (string, error) {
	for round := 0; round <= a.maxToolRounds; round++ {
		if err := a.wait(ctx); err != nil {
			return "", err
		}

		completion, err := a.model.Complete(ctx, Request{Messages: messages, UseTools: true})
		if errors.Is(err, ErrToolUseFailed) {
			// Known upstream quirk: the model emitted an unsupported
			// tool-calling form. One retry without tools, output taken
			// as final whatever its shape.
			a.logger.Warn("tool use failed, retrying without tools", "error", err)
			return a.completeWithoutTools(ctx, messages)
		}
		if err != nil {
			return "", fmt.Errorf("completion request: %w", err)
		}

		if len(completion.ToolCalls) == 0 {
			return completion.Content, nil
		}

		a.logger.Info("model requested tools", "round", round+1, "calls", len(completion.ToolCalls))
		results := a.executor.Execute(ctx, completion.ToolCalls)

		messages = append(messages, Message{
			Role:      RoleAssistant,
			Content:   completion.Content,
			ToolCalls: completion.ToolCalls,
		})
		for i := range results {
			messages = append(messages, Message{
				Role:       RoleTool,
				ToolResult: &results[i],
			})
		}
	}

	a.logger.Error("tool round cap exceeded", "cap", a.maxToolRounds)
	return "", ErrToolRoundsExceeded
}

func (a *Assistant) completeWithoutTools(ctx context.Context, messages []Message) (string, error) {
	if err := a.wait(ctx); err != nil {
		return "", err
	}
	completion, err := a.model.Complete(ctx, Request{Messages: messages, UseTools: false})
	if err != nil {
		return "", fmt.Errorf("completion retry without tools: %w", err)
	}
	return completion.Content, nil
}

func (a *Assistant) wait(ctx context.Context) error {
	if a.limiter == nil {
		return nil
	}
	if err := a.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return nil
}
