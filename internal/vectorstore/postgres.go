package vectorstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvector "github.com/pgvector/pgvector-go/pgx"
)

// EmbeddingDim is the dimensionality of the embedding model in use
// (text-embedding-004).
const EmbeddingDim = 768

// Postgres is a Store backed by PostgreSQL with the pgvector extension.
// It is safe for concurrent use; the pool provides connection-level
// serialization and the schema uses upserts.
type Postgres struct {
	pool     *pgxpool.Pool
	embedder Embedder
	logger   *slog.Logger
}

// NewPostgres connects a pool to dsn, registers pgvector types on every
// connection, and ensures the chunk table exists.
func NewPostgres(ctx context.Context, dsn string, embedder Embedder, logger *slog.Logger) (*Postgres, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvector.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	s := &Postgres{pool: pool, embedder: embedder, logger: logger}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Postgres) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS knowledge_chunks (
			id           TEXT PRIMARY KEY,
			content      TEXT NOT NULL,
			source       TEXT NOT NULL,
			source_type  TEXT NOT NULL,
			chunk_index  INT NOT NULL,
			total_chunks INT NOT NULL,
			embedding    vector(%d) NOT NULL,
			created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, EmbeddingDim),
		`CREATE INDEX IF NOT EXISTS knowledge_chunks_embedding_idx
			ON knowledge_chunks USING hnsw (embedding vector_cosine_ops)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensuring schema: %w", err)
		}
	}
	return nil
}

// Add embeds and upserts docs. Re-indexing the same id replaces the row,
// so repeated runs without a reset do not duplicate chunks.
func (s *Postgres) Add(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}
	embeddings, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding %d documents: %w", len(docs), err)
	}
	if len(embeddings) != len(docs) {
		return fmt.Errorf("embedder returned %d vectors for %d documents", len(embeddings), len(docs))
	}

	batch := &pgx.Batch{}
	for i, d := range docs {
		batch.Queue(`INSERT INTO knowledge_chunks
				(id, content, source, source_type, chunk_index, total_chunks, embedding)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE SET
				content = EXCLUDED.content,
				source = EXCLUDED.source,
				source_type = EXCLUDED.source_type,
				chunk_index = EXCLUDED.chunk_index,
				total_chunks = EXCLUDED.total_chunks,
				embedding = EXCLUDED.embedding`,
			d.ID, d.Text, d.Metadata.Source, d.Metadata.SourceType,
			d.Metadata.ChunkIndex, d.Metadata.TotalChunks,
			pgvector.NewVector(embeddings[i]))
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range docs {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upserting chunk batch: %w", err)
		}
	}
	return nil
}

// Query embeds text and returns up to k nearest chunks by cosine distance,
// nearest first. An empty collection returns an empty slice.
func (s *Postgres) Query(ctx context.Context, text string, k int) ([]Result, error) {
	embeddings, err := s.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("embedder returned no vector for query")
	}
	query := pgvector.NewVector(embeddings[0])

	rows, err := s.pool.Query(ctx, `SELECT
			content, source, source_type, chunk_index, total_chunks,
			embedding <=> $1 AS distance
		FROM knowledge_chunks
		ORDER BY embedding <=> $1
		LIMIT $2`, query, k)
	if err != nil {
		return nil, fmt.Errorf("similarity query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.Text, &r.Metadata.Source, &r.Metadata.SourceType,
			&r.Metadata.ChunkIndex, &r.Metadata.TotalChunks, &r.Distance); err != nil {
			return nil, fmt.Errorf("scanning result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading results: %w", err)
	}
	return results, nil
}

// Count returns the number of indexed chunks.
func (s *Postgres) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM knowledge_chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}

// Reset drops and recreates the chunk table. Irrecoverable; the caller
// must re-run indexing afterward.
func (s *Postgres) Reset(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DROP TABLE IF EXISTS knowledge_chunks`); err != nil {
		return fmt.Errorf("dropping collection: %w", err)
	}
	s.logger.Warn("vector collection reset, re-indexing required")
	return s.ensureSchema(ctx)
}

// Close releases the connection pool.
func (s *Postgres) Close() {
	s.pool.Close()
}
