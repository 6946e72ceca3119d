// ABOUTME: Retriever embeds a question and searches the chunk store
// ABOUTME: Every failure mode is reported uniformly as ErrNoEvidence
package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/harper/fkguiden/internal/models"
)

// DefaultTopK is the number of chunks requested per question
const DefaultTopK = 5

// ErrNoEvidence means retrieval produced nothing usable. It wraps the
// underlying cause when there is one.
var ErrNoEvidence = errors.New("no evidence")

// Retriever performs similarity search for a standalone question
type Retriever struct {
	embedder Embedder
	store    ChunkStore
	minScore float64
	logger   *slog.Logger
}

// NewRetriever creates a Retriever. Matches scoring below minScore are
// dropped; minScore <= 0 keeps everything the store returns.
func NewRetriever(embedder Embedder, store ChunkStore, minScore float64, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{
		embedder: embedder,
		store:    store,
		minScore: minScore,
		logger:   logger,
	}
}

// Retrieve returns up to k chunks ranked by similarity. On embedding
// failure, store failure or no match above threshold it returns nil and
// an error satisfying errors.Is(err, ErrNoEvidence).
func (r *Retriever) Retrieve(ctx context.Context, question string, k int) ([]models.ScoredChunk, error) {
	if k <= 0 {
		k = DefaultTopK
	}
	if r.embedder == nil || r.store == nil {
		return nil, fmt.Errorf("%w: retriever not configured", ErrNoEvidence)
	}

	vector, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding failed: %w", ErrNoEvidence, err)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty embedding", ErrNoEvidence)
	}

	matches, err := r.store.NearestNeighbors(ctx, vector, k)
	if err != nil {
		return nil, fmt.Errorf("%w: search failed: %w", ErrNoEvidence, err)
	}

	kept := make([]models.ScoredChunk, 0, len(matches))
	for _, m := range matches {
		if r.minScore > 0 && m.Score < r.minScore {
			continue
		}
		kept = append(kept, m)
		if len(kept) == k {
			break
		}
	}

	if len(kept) == 0 {
		return nil, fmt.Errorf("%w: %d matches, none above %.2f", ErrNoEvidence, len(matches), r.minScore)
	}

	r.logger.Debug("retrieved chunks", "requested", k, "returned", len(matches), "kept", len(kept))
	return kept, nil
}
