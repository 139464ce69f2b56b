// Package cache provides a semantic response cache keyed by (query, context)
// digests, with time-based expiry and LRU eviction under a byte budget.
//
// The cache is a cost optimization in front of the language model, never a
// correctness dependency: every failure path degrades to a miss or a no-op.
package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Stats summarizes cache occupancy.
type Stats struct {
	Entries   int64 `json:"total_entries"`
	SizeBytes int64 `json:"size_bytes"`
}

// Cache stores generated answers in SQLite. Safe for concurrent use; the
// database serializes writers.
type Cache struct {
	db       *sql.DB
	ttl      time.Duration
	maxBytes int64
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the time source. Test use only.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates a Cache over db. Entries older than ttl are treated as absent;
// once stored bytes exceed maxBytes, least-recently-used entries are evicted.
func New(db *sql.DB, ttl time.Duration, maxBytes int64, logger *slog.Logger, opts ...Option) *Cache {
	c := &Cache{
		db:       db,
		ttl:      ttl,
		maxBytes: maxBytes,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key derives the deterministic cache key for a (query, context) pair.
// The query is normalized (lowercased, trimmed) so trivially different
// phrasings of the same question share an entry; the context is hashed
// verbatim so distinct retrievals never falsely merge.
func Key(query, context string) string {
	combined := strings.ToLower(strings.TrimSpace(query)) + "|" + context
	sum := sha256.Sum256([]byte(combined))
	return hex.EncodeToString(sum[:])
}

// Lookup returns the cached answer for (query, context), or ok=false on a
// miss. Expired entries are treated as absent. A hit refreshes the entry's
// recency for eviction ordering. Errors are logged and reported as misses.
func (c *Cache) Lookup(ctx context.Context, query, contextBlock string) (answer string, ok bool) {
	key := Key(query, contextBlock)
	now := c.now()

	var (
		response  string
		createdAt time.Time
	)
	err := c.db.QueryRowContext(ctx,
		`SELECT response, created_at FROM response_cache WHERE key = ?`, key,
	).Scan(&response, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false
	}
	if err != nil {
		c.logger.Error("cache lookup failed", "error", err)
		return "", false
	}

	if now.Sub(createdAt) > c.ttl {
		// Physically present but logically absent. Reap it so the byte
		// budget reflects live entries.
		if _, err := c.db.ExecContext(ctx,
			`DELETE FROM response_cache WHERE key = ?`, key); err != nil {
			c.logger.Error("expired entry cleanup failed", "error", err)
		}
		return "", false
	}

	if _, err := c.db.ExecContext(ctx,
		`UPDATE response_cache SET last_accessed = ? WHERE key = ?`, now, key); err != nil {
		c.logger.Error("recency update failed", "error", err)
	}

	c.logger.Debug("cache hit", "key", key[:12])
	return response, true
}

// Store writes answer under the (query, context) key with optional metadata.
// Best effort: errors are logged, never returned, so a cache failure cannot
// block returning a freshly generated answer.
func (c *Cache) Store(ctx context.Context, query, contextBlock, answer string, metadata map[string]string) {
	key := Key(query, contextBlock)
	now := c.now()

	metaJSON := "{}"
	if len(metadata) > 0 {
		b, err := json.Marshal(metadata)
		if err != nil {
			c.logger.Error("cache metadata marshal failed", "error", err)
		} else {
			metaJSON = string(b)
		}
	}

	size := int64(len(query) + len(answer) + len(metaJSON))
	_, err := c.db.ExecContext(ctx, `INSERT INTO response_cache
			(key, query, response, metadata, size, created_at, last_accessed)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET
			response = excluded.response,
			metadata = excluded.metadata,
			size = excluded.size,
			created_at = excluded.created_at,
			last_accessed = excluded.last_accessed`,
		key, query, answer, metaJSON, size, now, now)
	if err != nil {
		c.logger.Error("cache store failed", "error", err)
		return
	}

	if err := c.evict(ctx); err != nil {
		c.logger.Error("cache eviction failed", "error", err)
	}
}

// evict removes least-recently-used entries until total size fits the budget.
func (c *Cache) evict(ctx context.Context) error {
	for {
		var total int64
		if err := c.db.QueryRowContext(ctx,
			`SELECT COALESCE(SUM(size), 0) FROM response_cache`).Scan(&total); err != nil {
			return fmt.Errorf("summing cache size: %w", err)
		}
		if total <= c.maxBytes {
			return nil
		}

		res, err := c.db.ExecContext(ctx, `DELETE FROM response_cache WHERE key = (
			SELECT key FROM response_cache ORDER BY last_accessed ASC LIMIT 1
		)`)
		if err != nil {
			return fmt.Errorf("evicting LRU entry: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil || n == 0 {
			return err
		}
	}
}

// Stats reports live entry count and total stored bytes.
func (c *Cache) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := c.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(size), 0) FROM response_cache`,
	).Scan(&s.Entries, &s.SizeBytes)
	if err != nil {
		return Stats{}, fmt.Errorf("reading cache stats: %w", err)
	}
	return s, nil
}

// Clear removes every entry.
func (c *Cache) Clear(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM response_cache`); err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}
	return nil
}
