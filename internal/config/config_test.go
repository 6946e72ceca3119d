// ABOUTME: Tests for centralized configuration system
// ABOUTME: Verifies YAML defaults, environment variable overrides and validation
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	// Clear environment to test defaults
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.ChatModel != "gpt-4o" {
		t.Errorf("ChatModel = %s, want gpt-4o", cfg.ChatModel)
	}
	if cfg.EmbeddingModel != "text-embedding-3-small" {
		t.Errorf("EmbeddingModel = %s, want text-embedding-3-small", cfg.EmbeddingModel)
	}
	if cfg.Temperature != 0.2 {
		t.Errorf("Temperature = %f, want 0.2", cfg.Temperature)
	}
	if cfg.StageTimeout != 20*time.Second {
		t.Errorf("StageTimeout = %v, want 20s", cfg.StageTimeout)
	}
	if cfg.TopK != 5 {
		t.Errorf("TopK = %d, want 5", cfg.TopK)
	}
	if cfg.HistoryWindow != 6 {
		t.Errorf("HistoryWindow = %d, want 6", cfg.HistoryWindow)
	}
	if cfg.MinSimilarity != 0.25 {
		t.Errorf("MinSimilarity = %f, want 0.25", cfg.MinSimilarity)
	}
	if !cfg.RetrievalEnabled {
		t.Error("RetrievalEnabled = false, want true")
	}
	if cfg.CitationPolicy != CitationSuppress {
		t.Errorf("CitationPolicy = %s, want %s", cfg.CitationPolicy, CitationSuppress)
	}
	if cfg.Store != StoreMemory || cfg.Snapshot != SnapshotBolt {
		t.Errorf("Store/Snapshot = %s/%s, want memory/bolt", cfg.Store, cfg.Snapshot)
	}
	if cfg.Collection != "FK_Document" {
		t.Errorf("Collection = %s, want FK_Document", cfg.Collection)
	}
	if cfg.ListenAddr != ":3000" {
		t.Errorf("ListenAddr = %s, want :3000", cfg.ListenAddr)
	}
	if cfg.RateLimit != 5 || cfg.RateWindow != time.Minute {
		t.Errorf("rate limit = %d per %v, want 5 per 1m", cfg.RateLimit, cfg.RateWindow)
	}
	if cfg.IndexParallel != 5 || cfg.ChunkMaxTokens != 3000 {
		t.Errorf("indexer = %d/%d, want 5/3000", cfg.IndexParallel, cfg.ChunkMaxTokens)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	os.Clearenv()
	os.Setenv("OPENAI_API_KEY", "test-key")
	os.Setenv("FK_CHAT_MODEL", "gpt-4o-mini")
	os.Setenv("FK_STAGE_TIMEOUT", "5s")
	os.Setenv("FK_TOP_K", "8")
	os.Setenv("FK_MIN_SIMILARITY", "0.4")
	os.Setenv("FK_RETRIEVAL_ENABLED", "false")
	os.Setenv("FK_CITATION_POLICY", "append")
	os.Setenv("FK_STORE", "pgvector")
	os.Setenv("FK_PG_DSN", "postgres://localhost/fk")
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.OpenAIKey != "test-key" {
		t.Errorf("OpenAIKey = %s, want test-key", cfg.OpenAIKey)
	}
	if cfg.ChatModel != "gpt-4o-mini" {
		t.Errorf("ChatModel = %s, want gpt-4o-mini", cfg.ChatModel)
	}
	if cfg.StageTimeout != 5*time.Second {
		t.Errorf("StageTimeout = %v, want 5s", cfg.StageTimeout)
	}
	if cfg.TopK != 8 {
		t.Errorf("TopK = %d, want 8", cfg.TopK)
	}
	if cfg.MinSimilarity != 0.4 {
		t.Errorf("MinSimilarity = %f, want 0.4", cfg.MinSimilarity)
	}
	if cfg.RetrievalEnabled {
		t.Error("RetrievalEnabled = true, want false")
	}
	if cfg.CitationPolicy != CitationAppend {
		t.Errorf("CitationPolicy = %s, want append", cfg.CitationPolicy)
	}
	if cfg.Store != StorePgvector {
		t.Errorf("Store = %s, want pgvector", cfg.Store)
	}
}

func TestLoadFile_EnvOverridesYAML(t *testing.T) {
	os.Clearenv()
	defer os.Clearenv()

	path := filepath.Join(t.TempDir(), "fkguiden.yaml")
	yamlDoc := "chat_model: gpt-4.1\ntop_k: 3\nstage_timeout: 7s\ncollection: Test_Doc\n"
	if err := os.WriteFile(path, []byte(yamlDoc), 0o600); err != nil {
		t.Fatal(err)
	}
	os.Setenv("FK_TOP_K", "9")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}

	if cfg.ChatModel != "gpt-4.1" {
		t.Errorf("ChatModel = %s, want gpt-4.1 from YAML", cfg.ChatModel)
	}
	if cfg.TopK != 9 {
		t.Errorf("TopK = %d, want env override 9", cfg.TopK)
	}
	if cfg.StageTimeout != 7*time.Second {
		t.Errorf("StageTimeout = %v, want 7s", cfg.StageTimeout)
	}
	if cfg.Collection != "Test_Doc" {
		t.Errorf("Collection = %s, want Test_Doc", cfg.Collection)
	}
	// Unset YAML keys keep their defaults
	if cfg.HistoryWindow != 6 {
		t.Errorf("HistoryWindow = %d, want 6", cfg.HistoryWindow)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	os.Clearenv()
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	os.Clearenv()
	os.Setenv("FK_TOP_K", "lots")
	os.Setenv("FK_STAGE_TIMEOUT", "soon")
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.TopK != 5 {
		t.Errorf("TopK = %d, want default 5", cfg.TopK)
	}
	if cfg.StageTimeout != 20*time.Second {
		t.Errorf("StageTimeout = %v, want default 20s", cfg.StageTimeout)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"threshold too high", func(c *Config) { c.MinSimilarity = 1.5 }, true},
		{"negative threshold", func(c *Config) { c.MinSimilarity = -0.1 }, true},
		{"zero top k", func(c *Config) { c.TopK = 0 }, true},
		{"negative window", func(c *Config) { c.HistoryWindow = -1 }, true},
		{"zero window allowed", func(c *Config) { c.HistoryWindow = 0 }, false},
		{"too many retries", func(c *Config) { c.MaxRetries = 11 }, true},
		{"unknown store", func(c *Config) { c.Store = "weaviate" }, true},
		{"unknown snapshot", func(c *Config) { c.Snapshot = "s3" }, true},
		{"unknown citation policy", func(c *Config) { c.CitationPolicy = "inline" }, true},
		{"pgvector without dsn", func(c *Config) { c.Store = StorePgvector }, true},
		{"zero timeout", func(c *Config) { c.StageTimeout = 0 }, true},
		{"zero parallel", func(c *Config) { c.IndexParallel = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
