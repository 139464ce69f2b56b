// Package vectorstore persists document chunks with embeddings and answers
// nearest-neighbor queries over them.
package vectorstore

import "context"

// Metadata describes where a chunk came from.
type Metadata struct {
	Source      string `json:"source"`
	SourceType  string `json:"source_type"`
	ChunkIndex  int    `json:"chunk_index"`
	TotalChunks int    `json:"total_chunks"`
}

// Document is a chunk submitted for indexing.
type Document struct {
	ID       string
	Text     string
	Metadata Metadata
}

// Result is one nearest-neighbor match. Distance is cosine distance in
// [0, 2] where 0 means identical.
type Result struct {
	Text     string
	Metadata Metadata
	Distance float64
}

// Store is the vector store boundary. Query returns results ordered
// nearest-first and gracefully returns fewer than k when the collection
// holds fewer items. Reset drops the collection irrecoverably.
//
// Implementations must be safe for concurrent use.
type Store interface {
	Add(ctx context.Context, docs []Document) error
	Query(ctx context.Context, text string, k int) ([]Result, error)
	Count(ctx context.Context) (int64, error)
	Reset(ctx context.Context) error
}

// Embedder maps texts into the vector space the store searches in.
// Defined here, by the consumer, so tests can substitute deterministic
// implementations.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
