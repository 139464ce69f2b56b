// Package retriever performs query-time similarity search and formats the
// results into an LLM-ready context block.
package retriever

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/foliobot/folio/internal/vectorstore"
)

// NoContextSentinel replaces an empty result set so the grounding prompt
// is never malformed.
const NoContextSentinel = "No relevant context found in knowledge base."

// Result is one surviving retrieval match. Relevance rescales cosine
// distance onto [0, 1] where 1 means identical.
type Result struct {
	Text      string
	Metadata  vectorstore.Metadata
	Distance  float64
	Relevance float64
}

// Context is the outcome of one retrieval.
type Context struct {
	Query     string
	Results   []Result
	Formatted string
}

// Retriever queries the vector store and filters by a distance threshold.
type Retriever struct {
	store       vectorstore.Store
	topK        int
	maxDistance float64
	logger      *slog.Logger
}

// New creates a Retriever. Results with distance strictly above maxDistance
// are discarded; a result exactly at the threshold is retained.
func New(store vectorstore.Store, topK int, maxDistance float64, logger *slog.Logger) *Retriever {
	return &Retriever{
		store:       store,
		topK:        topK,
		maxDistance: maxDistance,
		logger:      logger,
	}
}

// Retrieve asks the store for the nearest chunks, filters them, and formats
// the survivors. Adapter order is preserved; no re-sort. A store error or
// an empty collection both degrade to the sentinel rather than failing the
// request.
func (r *Retriever) Retrieve(ctx context.Context, query string) Context {
	raw, err := r.store.Query(ctx, query, r.topK)
	if err != nil {
		r.logger.Error("similarity query failed, answering ungrounded", "error", err)
		return Context{Query: query, Formatted: NoContextSentinel}
	}

	var results []Result
	for _, m := range raw {
		if m.Distance > r.maxDistance {
			continue
		}
		relevance := 1 - m.Distance/2
		if relevance < 0 {
			relevance = 0
		}
		results = append(results, Result{
			Text:      m.Text,
			Metadata:  m.Metadata,
			Distance:  m.Distance,
			Relevance: relevance,
		})
	}

	r.logger.Debug("retrieved context",
		"query_len", len(query),
		"matches", len(raw),
		"survivors", len(results))

	return Context{
		Query:     query,
		Results:   results,
		Formatted: format(results),
	}
}

func format(results []Result) string {
	if len(results) == 0 {
		return NoContextSentinel
	}

	var b strings.Builder
	b.WriteString("=== RELEVANT CONTEXT FROM KNOWLEDGE BASE ===\n")
	for i, r := range results {
		source := r.Metadata.Source
		if source == "" {
			source = "Unknown"
		}
		fmt.Fprintf(&b, "\n--- Source %d: %s (relevance: %.2f) ---\n", i+1, source, r.Relevance)
		b.WriteString(r.Text)
		b.WriteString("\n")
	}
	b.WriteString("\n=== END OF CONTEXT ===")
	return b.String()
}
