// ABOUTME: Collaborator interfaces consumed by the query pipeline
// ABOUTME: Embedding, generation and nearest-neighbour search are injected, never global
package core

import (
	"context"

	"github.com/harper/fkguiden/internal/models"
)

// Embedder turns text into a fixed-dimension vector
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Generator runs one chat completion
type Generator interface {
	Generate(ctx context.Context, messages []models.Message, temperature float32) (string, error)
}

// ChunkStore returns the k nearest chunks to vector, best first.
// Ties are broken by insertion order.
type ChunkStore interface {
	NearestNeighbors(ctx context.Context, vector []float32, k int) ([]models.ScoredChunk, error)
}
