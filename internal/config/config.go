// ABOUTME: Centralized configuration for the FK-Guiden pipeline, indexer and server
// ABOUTME: Loads defaults from an optional YAML file, then applies environment overrides
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// Store backends for the retriever
const (
	StoreMemory   = "memory"
	StorePgvector = "pgvector"
)

// Snapshot sources for the memory store
const (
	SnapshotBolt  = "bolt"
	SnapshotJSON  = "json"
	SnapshotCharm = "charm"
)

// Citation policies
const (
	CitationSuppress = "suppress"
	CitationAppend   = "append"
)

// Config holds all configuration for the system
type Config struct {
	// OpenAI settings
	OpenAIKey      string        `yaml:"-"`
	OpenAIBaseURL  string        `yaml:"openai_base_url"`
	ChatModel      string        `yaml:"chat_model"`
	EmbeddingModel string        `yaml:"embedding_model"`
	Temperature    float64       `yaml:"temperature"`
	StageTimeout   time.Duration `yaml:"stage_timeout"`
	MaxRetries     int           `yaml:"max_retries"`
	RetryDelay     time.Duration `yaml:"retry_delay"`

	// Pipeline settings
	TopK             int     `yaml:"top_k"`
	HistoryWindow    int     `yaml:"history_window"`
	MinSimilarity    float64 `yaml:"min_similarity"`
	RetrievalEnabled bool    `yaml:"retrieval_enabled"`
	CitationPolicy   string  `yaml:"citation_policy"`

	// Chunk store settings
	Store        string `yaml:"store"`
	Snapshot     string `yaml:"snapshot"`
	SnapshotPath string `yaml:"snapshot_path"`
	PostgresDSN  string `yaml:"postgres_dsn"`
	Collection   string `yaml:"collection"`

	// Charm settings
	CharmHost   string `yaml:"charm_host"`
	CharmDBName string `yaml:"charm_db"`

	// Server settings
	ListenAddr    string        `yaml:"listen_addr"`
	AllowedOrigin string        `yaml:"allowed_origin"`
	RateLimit     int           `yaml:"rate_limit"`
	RateWindow    time.Duration `yaml:"rate_window"`

	// Indexer settings
	IndexParallel  int `yaml:"index_parallel"`
	ChunkMaxTokens int `yaml:"chunk_max_tokens"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Defaults returns the built-in configuration
func Defaults() *Config {
	return &Config{
		ChatModel:        "gpt-4o",
		EmbeddingModel:   "text-embedding-3-small",
		Temperature:      0.2,
		StageTimeout:     20 * time.Second,
		MaxRetries:       3,
		RetryDelay:       2 * time.Second,
		TopK:             5,
		HistoryWindow:    6,
		MinSimilarity:    0.25,
		RetrievalEnabled: true,
		CitationPolicy:   CitationSuppress,
		Store:            StoreMemory,
		Snapshot:         SnapshotBolt,
		SnapshotPath:     DefaultSnapshotPath(),
		Collection:       "FK_Document",
		CharmHost:        "charm.2389.dev",
		CharmDBName:      "fkguiden",
		ListenAddr:       ":3000",
		AllowedOrigin:    "http://localhost:3000",
		RateLimit:        5,
		RateWindow:       time.Minute,
		IndexParallel:    5,
		ChunkMaxTokens:   3000,
		LogLevel:         "info",
		LogFormat:        "text",
	}
}

// DefaultSnapshotPath returns the XDG data path of the local chunk snapshot
func DefaultSnapshotPath() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		dataHome = xdg.DataHome
	}
	return filepath.Join(dataHome, "fkguiden", "chunks.db")
}

// Load reads configuration from environment variables only
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile reads the YAML file at path (if non-empty) as the base
// configuration and then applies environment overrides
func LoadFile(path string) (*Config, error) {
	base := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, base); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	cfg := &Config{
		OpenAIKey:        os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:    getEnv("OPENAI_BASE_URL", base.OpenAIBaseURL),
		ChatModel:        getEnv("FK_CHAT_MODEL", base.ChatModel),
		EmbeddingModel:   getEnv("FK_EMBEDDING_MODEL", base.EmbeddingModel),
		Temperature:      getEnvFloat("FK_TEMPERATURE", base.Temperature),
		StageTimeout:     getEnvDuration("FK_STAGE_TIMEOUT", base.StageTimeout),
		MaxRetries:       getEnvInt("OPENAI_MAX_RETRIES", base.MaxRetries),
		RetryDelay:       getEnvDuration("OPENAI_RETRY_DELAY", base.RetryDelay),
		TopK:             getEnvInt("FK_TOP_K", base.TopK),
		HistoryWindow:    getEnvInt("FK_HISTORY_WINDOW", base.HistoryWindow),
		MinSimilarity:    getEnvFloat("FK_MIN_SIMILARITY", base.MinSimilarity),
		RetrievalEnabled: getEnvBool("FK_RETRIEVAL_ENABLED", base.RetrievalEnabled),
		CitationPolicy:   getEnv("FK_CITATION_POLICY", base.CitationPolicy),
		Store:            getEnv("FK_STORE", base.Store),
		Snapshot:         getEnv("FK_SNAPSHOT", base.Snapshot),
		SnapshotPath:     getEnv("FK_SNAPSHOT_PATH", base.SnapshotPath),
		PostgresDSN:      getEnv("FK_PG_DSN", base.PostgresDSN),
		Collection:       getEnv("FK_COLLECTION", base.Collection),
		CharmHost:        getEnv("CHARM_HOST", base.CharmHost),
		CharmDBName:      getEnv("CHARM_DB", base.CharmDBName),
		ListenAddr:       getEnv("FK_LISTEN_ADDR", base.ListenAddr),
		AllowedOrigin:    getEnv("FK_ALLOWED_ORIGIN", base.AllowedOrigin),
		RateLimit:        getEnvInt("FK_RATE_LIMIT", base.RateLimit),
		RateWindow:       getEnvDuration("FK_RATE_WINDOW", base.RateWindow),
		IndexParallel:    getEnvInt("FK_INDEX_PARALLEL", base.IndexParallel),
		ChunkMaxTokens:   getEnvInt("FK_CHUNK_MAX_TOKENS", base.ChunkMaxTokens),
		LogLevel:         getEnv("FK_LOG_LEVEL", base.LogLevel),
		LogFormat:        getEnv("FK_LOG_FORMAT", base.LogFormat),
	}

	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	if c.MinSimilarity < 0 || c.MinSimilarity > 1 {
		return fmt.Errorf("FK_MIN_SIMILARITY must be 0-1, got %f", c.MinSimilarity)
	}
	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		return fmt.Errorf("OPENAI_MAX_RETRIES must be 0-10, got %d", c.MaxRetries)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("FK_TEMPERATURE must be 0-2, got %f", c.Temperature)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("FK_TOP_K must be positive, got %d", c.TopK)
	}
	if c.HistoryWindow < 0 {
		return fmt.Errorf("FK_HISTORY_WINDOW must not be negative, got %d", c.HistoryWindow)
	}
	if c.StageTimeout <= 0 {
		return errors.New("FK_STAGE_TIMEOUT must be positive")
	}
	if c.IndexParallel <= 0 {
		return fmt.Errorf("FK_INDEX_PARALLEL must be positive, got %d", c.IndexParallel)
	}
	if c.ChunkMaxTokens <= 0 {
		return fmt.Errorf("FK_CHUNK_MAX_TOKENS must be positive, got %d", c.ChunkMaxTokens)
	}
	if c.RateLimit <= 0 || c.RateWindow <= 0 {
		return errors.New("FK_RATE_LIMIT and FK_RATE_WINDOW must be positive")
	}
	switch c.Store {
	case StoreMemory, StorePgvector:
	default:
		return fmt.Errorf("FK_STORE must be %q or %q, got %q", StoreMemory, StorePgvector, c.Store)
	}
	switch c.Snapshot {
	case SnapshotBolt, SnapshotJSON, SnapshotCharm:
	default:
		return fmt.Errorf("FK_SNAPSHOT must be bolt, json or charm, got %q", c.Snapshot)
	}
	switch c.CitationPolicy {
	case CitationSuppress, CitationAppend:
	default:
		return fmt.Errorf("FK_CITATION_POLICY must be %q or %q, got %q", CitationSuppress, CitationAppend, c.CitationPolicy)
	}
	if c.Store == StorePgvector && c.PostgresDSN == "" {
		return errors.New("FK_PG_DSN is required when FK_STORE=pgvector")
	}
	return nil
}

// Helper functions
func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v == "true" || v == "1"
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
