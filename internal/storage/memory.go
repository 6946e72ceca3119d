// ABOUTME: In-memory chunk store with brute-force cosine similarity search
// ABOUTME: Holds an immutable snapshot that can be swapped atomically while serving
package storage

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/harper/fkguiden/internal/models"
)

type snapshot struct {
	chunks []models.Chunk
	norms  []float64
	dim    int
}

// MemoryStore serves nearest-neighbour queries over a read-only snapshot.
// Queries never block on Replace.
type MemoryStore struct {
	snap    atomic.Pointer[snapshot]
	writeMu sync.Mutex
}

// NewMemoryStore creates a store over chunks. Chunks are copied.
func NewMemoryStore(chunks []models.Chunk) (*MemoryStore, error) {
	m := &MemoryStore{}
	if err := m.Replace(chunks); err != nil {
		return nil, err
	}
	return m, nil
}

// Replace swaps in a new snapshot. All embeddings must share one dimension.
func (m *MemoryStore) Replace(chunks []models.Chunk) error {
	snap, err := buildSnapshot(chunks)
	if err != nil {
		return err
	}
	m.snap.Store(snap)
	return nil
}

// Reload replaces the snapshot with the contents of src
func (m *MemoryStore) Reload(ctx context.Context, src Source) (int, error) {
	chunks, err := src.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load snapshot: %w", err)
	}
	if err := m.Replace(chunks); err != nil {
		return 0, err
	}
	return len(chunks), nil
}

// Len returns the number of chunks in the current snapshot
func (m *MemoryStore) Len() int {
	snap := m.snap.Load()
	if snap == nil {
		return 0
	}
	return len(snap.chunks)
}

// NearestNeighbors ranks every chunk by cosine similarity to vector.
// Equal scores keep insertion order.
func (m *MemoryStore) NearestNeighbors(ctx context.Context, vector []float32, k int) ([]models.ScoredChunk, error) {
	snap := m.snap.Load()
	if snap == nil || len(snap.chunks) == 0 {
		return nil, ErrCollectionMissing
	}
	if len(vector) != snap.dim {
		return nil, fmt.Errorf("%w: query has %d, collection has %d", ErrDimensionMismatch, len(vector), snap.dim)
	}
	if k <= 0 {
		return nil, nil
	}

	qNorm := norm(vector)
	results := make([]models.ScoredChunk, len(snap.chunks))
	for i, c := range snap.chunks {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		results[i] = models.ScoredChunk{
			Chunk: c,
			Score: cosine(vector, c.Embedding, qNorm, snap.norms[i]),
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// EnsureCollection checks dim against the current snapshot
func (m *MemoryStore) EnsureCollection(_ context.Context, dim int) error {
	snap := m.snap.Load()
	if snap != nil && snap.dim > 0 && snap.dim != dim {
		return fmt.Errorf("%w: collection has %d, requested %d", ErrDimensionMismatch, snap.dim, dim)
	}
	return nil
}

// Upsert adds or replaces chunks by ID, keeping the original position of
// replaced chunks
func (m *MemoryStore) Upsert(_ context.Context, chunks ...models.Chunk) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	var current []models.Chunk
	if snap := m.snap.Load(); snap != nil {
		current = snap.chunks
	}

	next := make([]models.Chunk, len(current), len(current)+len(chunks))
	copy(next, current)
	pos := make(map[string]int, len(next))
	for i, c := range next {
		pos[c.ID] = i
	}
	for _, c := range chunks {
		if i, ok := pos[c.ID]; ok {
			next[i] = c
			continue
		}
		pos[c.ID] = len(next)
		next = append(next, c)
	}
	return m.Replace(next)
}

// Load returns a copy of the current snapshot
func (m *MemoryStore) Load(_ context.Context) ([]models.Chunk, error) {
	snap := m.snap.Load()
	if snap == nil {
		return nil, nil
	}
	out := make([]models.Chunk, len(snap.chunks))
	copy(out, snap.chunks)
	return out, nil
}

// List returns up to limit chunks in insertion order
func (m *MemoryStore) List(ctx context.Context, limit int) ([]models.Chunk, error) {
	chunks, err := m.Load(ctx)
	if err != nil {
		return nil, err
	}
	return limitChunks(chunks, limit), nil
}

func buildSnapshot(chunks []models.Chunk) (*snapshot, error) {
	snap := &snapshot{
		chunks: make([]models.Chunk, len(chunks)),
		norms:  make([]float64, len(chunks)),
	}
	copy(snap.chunks, chunks)

	for i, c := range snap.chunks {
		if len(c.Embedding) == 0 {
			return nil, fmt.Errorf("chunk %s has no embedding", c.ID)
		}
		if i == 0 {
			snap.dim = len(c.Embedding)
		} else if len(c.Embedding) != snap.dim {
			return nil, fmt.Errorf("%w: chunk %s has %d, expected %d", ErrDimensionMismatch, c.ID, len(c.Embedding), snap.dim)
		}
		snap.norms[i] = norm(c.Embedding)
	}
	return snap, nil
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// cosine calculates cosine similarity given precomputed norms
func cosine(a, b []float32, normA, normB float64) float64 {
	if normA == 0 || normB == 0 {
		return 0.0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (normA * normB)
}
