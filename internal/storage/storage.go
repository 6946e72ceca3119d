// ABOUTME: Chunk store interfaces, sentinel errors and snapshot factory
// ABOUTME: Snapshots (bolt, json, charm) feed the in-memory store; writers serve the indexer
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/harper/fkguiden/internal/charm"
	"github.com/harper/fkguiden/internal/config"
	"github.com/harper/fkguiden/internal/models"
)

var (
	// ErrCollectionMissing means the chunk collection was never created
	ErrCollectionMissing = errors.New("collection missing")

	// ErrDimensionMismatch means a vector does not match the collection dimension
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Source loads every chunk of a collection in insertion order
type Source interface {
	Load(ctx context.Context) ([]models.Chunk, error)
}

// Writer is the indexer's view of a store. EnsureCollection is idempotent.
type Writer interface {
	EnsureCollection(ctx context.Context, dim int) error
	Upsert(ctx context.Context, chunks ...models.Chunk) error
}

// Lister returns up to limit chunks in insertion order; limit <= 0 means all
type Lister interface {
	List(ctx context.Context, limit int) ([]models.Chunk, error)
}

// Snapshot is a persisted chunk collection that can be loaded and written
type Snapshot interface {
	Source
	Writer
	Close() error
}

// OpenSnapshot opens the snapshot backend selected by cfg.Snapshot
func OpenSnapshot(cfg *config.Config) (Snapshot, error) {
	switch cfg.Snapshot {
	case config.SnapshotJSON:
		return NewJSONStore(cfg.SnapshotPath), nil
	case config.SnapshotCharm:
		client, err := charm.NewClient(&charm.Config{
			Host:     cfg.CharmHost,
			DBName:   cfg.CharmDBName,
			AutoSync: true,
		})
		if err != nil {
			return nil, err
		}
		return NewCharmStore(client, cfg.Collection), nil
	case config.SnapshotBolt, "":
		if err := ensureDir(cfg.SnapshotPath); err != nil {
			return nil, err
		}
		return OpenBoltStore(cfg.SnapshotPath)
	default:
		return nil, fmt.Errorf("unknown snapshot backend %q", cfg.Snapshot)
	}
}

// checkDim validates chunk embeddings against dim; dim 0 accepts any
func checkDim(dim int, chunks []models.Chunk) error {
	for _, c := range chunks {
		if dim > 0 && len(c.Embedding) != dim {
			return fmt.Errorf("%w: chunk %s has %d, collection has %d", ErrDimensionMismatch, c.ID, len(c.Embedding), dim)
		}
	}
	return nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

func limitChunks(chunks []models.Chunk, limit int) []models.Chunk {
	if limit > 0 && len(chunks) > limit {
		return chunks[:limit]
	}
	return chunks
}
