// ABOUTME: Indexer embeds source documents and upserts them into a chunk store
// ABOUTME: Embeds in bounded parallel batches; per-chunk failures are counted, not fatal
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/harper/fkguiden/internal/core"
	"github.com/harper/fkguiden/internal/models"
	"github.com/harper/fkguiden/internal/storage"
	"golang.org/x/sync/errgroup"
)

// DefaultParallel is the embedding batch width
const DefaultParallel = 5

// Options configures an Indexer
type Options struct {
	MaxTokens int
	Parallel  int
	Logger    *slog.Logger
}

// Stats summarizes one indexing run
type Stats struct {
	Files       int           `json:"files"`
	FailedFiles int           `json:"failed_files"`
	Chunks      int           `json:"chunks"`
	Indexed     int           `json:"indexed"`
	Failed      int           `json:"failed"`
	Duration    time.Duration `json:"duration"`
}

// Indexer turns source files into embedded chunks
type Indexer struct {
	embedder core.Embedder
	store    storage.Writer
	splitter *Splitter
	parallel int
	logger   *slog.Logger

	ensured bool
}

// New creates an Indexer writing to store
func New(embedder core.Embedder, store storage.Writer, opts Options) *Indexer {
	if opts.Parallel <= 0 {
		opts.Parallel = DefaultParallel
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Indexer{
		embedder: embedder,
		store:    store,
		splitter: NewSplitter(opts.MaxTokens),
		parallel: opts.Parallel,
		logger:   opts.Logger,
	}
}

// SourceFiles lists the indexable files directly inside dir, sorted by name
func SourceFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !Supported(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// IndexDir indexes every supported file in dir
func (ix *Indexer) IndexDir(ctx context.Context, dir string) (Stats, error) {
	files, err := SourceFiles(dir)
	if err != nil {
		return Stats{}, err
	}
	return ix.IndexFiles(ctx, files)
}

// IndexFiles splits, embeds and upserts each file. Unreadable files and
// failed chunks are logged and counted; store setup failures abort the run.
func (ix *Indexer) IndexFiles(ctx context.Context, files []string) (Stats, error) {
	start := time.Now()
	var stats Stats
	var pending []models.Chunk

	for _, path := range files {
		stats.Files++
		text, err := ReadSource(path)
		if err != nil {
			stats.FailedFiles++
			ix.logger.Warn("skipping unreadable source", "file", path, "error", err)
			continue
		}

		name := filepath.Base(path)
		for i, piece := range ix.splitter.Split(text) {
			pending = append(pending, models.Chunk{
				ID:        models.ChunkID(name, i),
				SourceRef: name,
				Text:      piece,
			})
		}
	}
	stats.Chunks = len(pending)
	ix.logger.Info("prepared chunks", "files", stats.Files, "chunks", stats.Chunks)

	for offset := 0; offset < len(pending); offset += ix.parallel {
		end := min(offset+ix.parallel, len(pending))
		indexed, err := ix.indexBatch(ctx, pending[offset:end])
		if err != nil {
			stats.Duration = time.Since(start)
			return stats, err
		}
		stats.Indexed += indexed
		stats.Failed += (end - offset) - indexed
	}

	stats.Duration = time.Since(start)
	ix.logger.Info("indexing complete",
		"indexed", stats.Indexed,
		"failed", stats.Failed,
		"failed_files", stats.FailedFiles,
		"duration", stats.Duration.Round(time.Millisecond).String(),
	)
	return stats, nil
}

// indexBatch embeds batch concurrently and upserts the successes
func (ix *Indexer) indexBatch(ctx context.Context, batch []models.Chunk) (int, error) {
	embedded := make([]models.Chunk, len(batch))
	ok := make([]bool, len(batch))

	g, gctx := errgroup.WithContext(ctx)
	for i := range batch {
		g.Go(func() error {
			vec, err := ix.embedder.Embed(gctx, batch[i].Text)
			if err != nil || len(vec) == 0 {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				ix.logger.Warn("failed to embed chunk", "chunk", batch[i].ID, "source", batch[i].SourceRef, "error", err)
				return nil
			}
			c := batch[i]
			c.Embedding = vec
			embedded[i] = c
			ok[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	var ready []models.Chunk
	for i, c := range embedded {
		if ok[i] {
			ready = append(ready, c)
		}
	}
	if len(ready) == 0 {
		return 0, nil
	}

	if !ix.ensured {
		if err := ix.store.EnsureCollection(ctx, len(ready[0].Embedding)); err != nil {
			return 0, fmt.Errorf("failed to ensure collection: %w", err)
		}
		ix.ensured = true
	}

	if err := ix.store.Upsert(ctx, ready...); err != nil {
		if errors.Is(err, storage.ErrDimensionMismatch) || errors.Is(err, storage.ErrCollectionMissing) {
			return 0, fmt.Errorf("failed to upsert chunks: %w", err)
		}
		ix.logger.Warn("failed to upsert batch", "chunks", len(ready), "error", err)
		return 0, nil
	}
	return len(ready), nil
}
