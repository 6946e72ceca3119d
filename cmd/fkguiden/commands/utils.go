// ABOUTME: Shared wiring and formatting helpers for CLI commands
// ABOUTME: Builds the store, OpenAI client and pipeline from configuration
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/harper/fkguiden/internal/config"
	"github.com/harper/fkguiden/internal/core"
	"github.com/harper/fkguiden/internal/llm"
	"github.com/harper/fkguiden/internal/storage"
	"github.com/harper/fkguiden/internal/storage/pgstore"
)

// app holds the collaborators shared by the query commands
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	pipeline *core.Pipeline
	lister   storage.Lister
	memory   *storage.MemoryStore
	closers  []func() error
}

// newApp wires the query pipeline. The query path uses zero retries so an
// upstream failure degrades the request instead of stalling it.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	client, err := llm.NewOpenAIClientWithConfig(llm.ConfigFrom(cfg, 0))
	if err != nil {
		return nil, fmt.Errorf("initializing OpenAI client: %w", err)
	}

	a := &app{cfg: cfg, logger: logger}

	var store core.ChunkStore
	switch cfg.Store {
	case config.StorePgvector:
		pg, err := pgstore.Open(ctx, cfg.PostgresDSN, cfg.Collection)
		if err != nil {
			return nil, fmt.Errorf("opening pgvector store: %w", err)
		}
		a.closers = append(a.closers, pg.Close)
		a.lister = pg
		store = pg
	default:
		mem, err := storage.NewMemoryStore(nil)
		if err != nil {
			return nil, err
		}
		a.memory = mem
		a.lister = mem
		store = mem
		if _, err := a.reload(ctx); err != nil {
			if !errors.Is(err, storage.ErrCollectionMissing) {
				return nil, err
			}
			logger.Warn("no chunk snapshot found, answers will be ungrounded", "snapshot", cfg.Snapshot, "path", cfg.SnapshotPath)
		}
	}

	a.pipeline = core.NewPipeline(client, client, store, core.OptionsFromConfig(cfg, logger))
	return a, nil
}

// reload replaces the memory store contents with the configured snapshot
func (a *app) reload(ctx context.Context) (int, error) {
	if a.memory == nil {
		return 0, errors.New("reload is only supported for the memory store")
	}
	snap, err := storage.OpenSnapshot(a.cfg)
	if err != nil {
		return 0, fmt.Errorf("opening snapshot: %w", err)
	}
	defer snap.Close()

	n, err := a.memory.Reload(ctx, snap)
	if err != nil {
		return 0, err
	}
	a.logger.Info("loaded chunk snapshot", "chunks", n, "snapshot", a.cfg.Snapshot)
	return n, nil
}

// Close releases every resource opened by newApp
func (a *app) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// openWriter returns the store the indexer writes to
func openWriter(ctx context.Context, cfg *config.Config) (storage.Writer, func() error, error) {
	if cfg.Store == config.StorePgvector {
		pg, err := pgstore.Open(ctx, cfg.PostgresDSN, cfg.Collection)
		if err != nil {
			return nil, nil, fmt.Errorf("opening pgvector store: %w", err)
		}
		return pg, pg.Close, nil
	}
	snap, err := storage.OpenSnapshot(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("opening snapshot: %w", err)
	}
	return snap, snap.Close, nil
}

// openLister returns a read-only view of the configured collection
func openLister(ctx context.Context, cfg *config.Config) (storage.Lister, func() error, error) {
	if cfg.Store == config.StorePgvector {
		pg, err := pgstore.Open(ctx, cfg.PostgresDSN, cfg.Collection)
		if err != nil {
			return nil, nil, fmt.Errorf("opening pgvector store: %w", err)
		}
		return pg, pg.Close, nil
	}
	snap, err := storage.OpenSnapshot(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("opening snapshot: %w", err)
	}
	lister, ok := snap.(storage.Lister)
	if !ok {
		snap.Close()
		return nil, nil, fmt.Errorf("snapshot %q cannot list chunks", cfg.Snapshot)
	}
	return lister, snap.Close, nil
}

// truncate shortens a string to maxLen, adding "..." if truncated
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// validatePositiveInt returns error if n is not positive
func validatePositiveInt(n int, name string) error {
	if n <= 0 {
		return fmt.Errorf("%s must be positive, got %d", name, n)
	}
	return nil
}
