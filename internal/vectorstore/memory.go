package vectorstore

import (
	"context"
	"math"
	"sort"
	"sync"
)

// Memory is an in-process Store for tests and for running without a
// PostgreSQL instance. Safe for concurrent use.
type Memory struct {
	embedder Embedder

	mu   sync.RWMutex
	docs map[string]memoryDoc
}

type memoryDoc struct {
	doc       Document
	embedding []float32
}

// NewMemory creates an empty in-memory store.
func NewMemory(embedder Embedder) *Memory {
	return &Memory{
		embedder: embedder,
		docs:     make(map[string]memoryDoc),
	}
}

// Add embeds and stores docs, replacing any existing entries with the
// same id.
func (m *Memory) Add(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}
	embeddings, err := m.embedder.Embed(ctx, texts)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i, d := range docs {
		m.docs[d.ID] = memoryDoc{doc: d, embedding: embeddings[i]}
	}
	return nil
}

// Query returns up to k nearest docs by cosine distance, nearest first.
func (m *Memory) Query(ctx context.Context, text string, k int) ([]Result, error) {
	embeddings, err := m.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	query := embeddings[0]

	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]Result, 0, len(m.docs))
	for _, d := range m.docs {
		results = append(results, Result{
			Text:     d.doc.Text,
			Metadata: d.doc.Metadata,
			Distance: cosineDistance(query, d.embedding),
		})
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Count returns the number of stored docs.
func (m *Memory) Count(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.docs)), nil
}

// Reset discards all stored docs.
func (m *Memory) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = make(map[string]memoryDoc)
	return nil
}

// cosineDistance is 1 - cosine similarity, in [0, 2] where 0 = identical.
func cosineDistance(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		if i >= len(b) {
			break
		}
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 2
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
