// Package indexer loads knowledge-base documents, chunks them, and submits
// the chunks to the vector store in bounded batches.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/foliobot/folio/internal/chunker"
	"github.com/foliobot/folio/internal/extract"
	"github.com/foliobot/folio/internal/vectorstore"
)

// BatchSize bounds how many chunks go to the vector store per call, to
// respect adapter limits.
const BatchSize = 100

// Summary reports what one indexing run accomplished.
type Summary struct {
	FilesIndexed int
	FilesSkipped int
	FilesFailed  int
	Chunks       int
}

// Indexer walks a knowledge directory and indexes every supported file.
type Indexer struct {
	store     vectorstore.Store
	extractor *extract.Extractor
	chunker   *chunker.Chunker
	logger    *slog.Logger
}

// New creates an Indexer.
func New(store vectorstore.Store, extractor *extract.Extractor, c *chunker.Chunker, logger *slog.Logger) *Indexer {
	return &Indexer{
		store:     store,
		extractor: extractor,
		chunker:   c,
		logger:    logger,
	}
}

// Run indexes every supported file under dir. With reset set, the existing
// collection is dropped first; the store holds only this run's chunks
// afterward. Per-file failures are logged and skipped so one corrupt
// document cannot abort the run. A missing or empty directory is a
// successful no-op.
func (ix *Indexer) Run(ctx context.Context, dir string, reset bool) (Summary, error) {
	if reset {
		if err := ix.store.Reset(ctx); err != nil {
			return Summary{}, fmt.Errorf("resetting collection: %w", err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			ix.logger.Warn("knowledge directory not found, nothing to index", "dir", dir)
			return Summary{}, nil
		}
		return Summary{}, fmt.Errorf("reading knowledge directory: %w", err)
	}

	var (
		summary      Summary
		batch        []vectorstore.Document
		chunkCounter int
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := ix.store.Add(ctx, batch); err != nil {
			return fmt.Errorf("submitting batch of %d chunks: %w", len(batch), err)
		}
		batch = batch[:0]
		return nil
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		path := filepath.Join(dir, name)

		text, sourceType, err := ix.extractor.Extract(path)
		if errors.Is(err, extract.ErrUnsupported) {
			ix.logger.Warn("skipping unsupported file type", "file", name)
			summary.FilesSkipped++
			continue
		}
		if err != nil {
			ix.logger.Error("failed to process file, continuing", "file", name, "error", err)
			summary.FilesFailed++
			continue
		}

		chunks := ix.chunker.Split(text)
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		for i, chunk := range chunks {
			batch = append(batch, vectorstore.Document{
				ID:   fmt.Sprintf("%s_chunk_%d", stem, chunkCounter),
				Text: chunk,
				Metadata: vectorstore.Metadata{
					Source:      name,
					SourceType:  sourceType,
					ChunkIndex:  i,
					TotalChunks: len(chunks),
				},
			})
			chunkCounter++

			if len(batch) >= BatchSize {
				if err := flush(); err != nil {
					return summary, err
				}
			}
		}

		ix.logger.Info("indexed document", "file", name, "chunks", len(chunks))
		summary.FilesIndexed++
		summary.Chunks += len(chunks)
	}

	if err := flush(); err != nil {
		return summary, err
	}

	ix.logger.Info("indexing complete",
		"files", summary.FilesIndexed,
		"skipped", summary.FilesSkipped,
		"failed", summary.FilesFailed,
		"chunks", summary.Chunks)
	return summary, nil
}
