// Package config provides application configuration with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (prefix FOLIO_, runtime override)
//  2. Config file (folio.yaml in the working directory or ~/.folio/)
//  3. Default values
//
// Sensitive values (Postgres password, Pushover token) are expected to come
// from the environment and are never logged.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Sentinel errors for configuration validation.
var (
	// ErrInvalidChunking indicates chunk overlap >= chunk size, which would
	// prevent the chunking window from advancing. Fatal at indexing start.
	ErrInvalidChunking = errors.New("invalid chunking configuration")

	// ErrInvalidTopK indicates the retrieval top-k is out of range.
	ErrInvalidTopK = errors.New("invalid retrieval top_k")

	// ErrInvalidMaxDistance indicates the relevance threshold is out of the
	// cosine distance range [0, 2].
	ErrInvalidMaxDistance = errors.New("invalid retrieval max_distance")

	// ErrInvalidCacheSize indicates a non-positive cache byte budget.
	ErrInvalidCacheSize = errors.New("invalid cache size limit")

	// ErrInvalidToolRounds indicates a non-positive tool round cap.
	ErrInvalidToolRounds = errors.New("invalid max tool rounds")
)

// Defaults mirroring the knowledge pipeline's tuning.
const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 50
	DefaultTopK         = 3

	// DefaultMaxDistance is the cosine-distance cutoff for retrieval.
	// 2.0 is the metric's theoretical maximum and would filter nothing;
	// 1.5 keeps clearly unrelated chunks out while staying permissive.
	DefaultMaxDistance = 1.5

	DefaultCacheTTL      = 7 * 24 * time.Hour
	DefaultCacheMaxBytes = 5 * 1024 * 1024

	DefaultMaxToolRounds = 8

	DefaultIndexBatchSize = 100
)

// Server holds HTTP server settings.
type Server struct {
	Addr        string   `mapstructure:"addr"`
	CORSOrigins []string `mapstructure:"cors_origins"`
	RateBurst   int      `mapstructure:"rate_burst"`
}

// Knowledge holds knowledge-base indexing settings.
type Knowledge struct {
	Dir          string `mapstructure:"dir"`
	ChunkSize    int    `mapstructure:"chunk_size"`
	ChunkOverlap int    `mapstructure:"chunk_overlap"`
	Watch        bool   `mapstructure:"watch"`
}

// Retrieval holds query-time retrieval settings.
type Retrieval struct {
	TopK        int     `mapstructure:"top_k"`
	MaxDistance float64 `mapstructure:"max_distance"`
}

// Cache holds response cache settings.
type Cache struct {
	TTL      time.Duration `mapstructure:"ttl"`
	MaxBytes int64         `mapstructure:"max_bytes"`
}

// AI holds model and embedder settings.
type AI struct {
	// Model is the provider-qualified model name, e.g. "googleai/gemini-2.5-flash".
	Model         string `mapstructure:"model"`
	EmbedderModel string `mapstructure:"embedder_model"`
	MaxToolRounds int    `mapstructure:"max_tool_rounds"`
}

// Assistant holds the persona the model speaks as.
type Assistant struct {
	Name  string `mapstructure:"name"`
	Email string `mapstructure:"email"`
}

// Postgres holds vector store connection settings.
type Postgres struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN builds a pgx connection string.
func (p Postgres) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DBName, p.SSLMode)
}

// Pushover holds notification credentials. Empty values disable notifications.
type Pushover struct {
	User  string `mapstructure:"user"`
	Token string `mapstructure:"token"`
}

// Config stores application configuration.
type Config struct {
	Server    Server    `mapstructure:"server"`
	Knowledge Knowledge `mapstructure:"knowledge"`
	Retrieval Retrieval `mapstructure:"retrieval"`
	Cache     Cache     `mapstructure:"cache"`
	AI        AI        `mapstructure:"ai"`
	Assistant Assistant `mapstructure:"assistant"`
	Postgres  Postgres  `mapstructure:"postgres"`
	Pushover  Pushover  `mapstructure:"pushover"`

	// DatabasePath is the SQLite file backing leads, knowledge gaps,
	// and the response cache.
	DatabasePath string `mapstructure:"database_path"`
}

// Load reads configuration from defaults, an optional config file, and the
// environment, then validates the result.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("folio")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.folio")

	v.SetEnvPrefix("FOLIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// No config file is fine; defaults + env apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.cors_origins", []string{})
	v.SetDefault("server.rate_burst", 60)

	v.SetDefault("knowledge.dir", "data/knowledge")
	v.SetDefault("knowledge.chunk_size", DefaultChunkSize)
	v.SetDefault("knowledge.chunk_overlap", DefaultChunkOverlap)
	v.SetDefault("knowledge.watch", false)

	v.SetDefault("retrieval.top_k", DefaultTopK)
	v.SetDefault("retrieval.max_distance", DefaultMaxDistance)

	v.SetDefault("cache.ttl", DefaultCacheTTL)
	v.SetDefault("cache.max_bytes", DefaultCacheMaxBytes)

	v.SetDefault("ai.model", "googleai/gemini-2.5-flash")
	v.SetDefault("ai.embedder_model", "text-embedding-004")
	v.SetDefault("ai.max_tool_rounds", DefaultMaxToolRounds)

	v.SetDefault("assistant.name", "the site owner")
	v.SetDefault("assistant.email", "")

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "folio")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.dbname", "folio")
	v.SetDefault("postgres.sslmode", "disable")

	v.SetDefault("database_path", "data/folio.db")
}

// Validate checks configuration invariants. The chunking check is the one
// the indexer treats as fatal: overlap >= chunk size would keep the window
// from ever advancing.
func (c *Config) Validate() error {
	if c.Knowledge.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk_size must be positive, got %d",
			ErrInvalidChunking, c.Knowledge.ChunkSize)
	}
	if c.Knowledge.ChunkOverlap < 0 || c.Knowledge.ChunkOverlap >= c.Knowledge.ChunkSize {
		return fmt.Errorf("%w: overlap %d must be in [0, chunk_size=%d)",
			ErrInvalidChunking, c.Knowledge.ChunkOverlap, c.Knowledge.ChunkSize)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidTopK, c.Retrieval.TopK)
	}
	if c.Retrieval.MaxDistance < 0 || c.Retrieval.MaxDistance > 2 {
		return fmt.Errorf("%w: %v not in [0, 2]", ErrInvalidMaxDistance, c.Retrieval.MaxDistance)
	}
	if c.Cache.MaxBytes <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidCacheSize, c.Cache.MaxBytes)
	}
	if c.AI.MaxToolRounds <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidToolRounds, c.AI.MaxToolRounds)
	}
	return nil
}
