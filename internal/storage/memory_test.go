// ABOUTME: Tests for the in-memory chunk store and cosine ranking
// ABOUTME: Covers round-trip lookup, tie ordering, snapshot swaps and error cases
package storage

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/harper/fkguiden/internal/models"
)

func testChunks() []models.Chunk {
	return []models.Chunk{
		{ID: "a", SourceRef: "foraldrapenning.txt", Text: "Föräldrapenning i 480 dagar.", Embedding: []float32{1, 0, 0}},
		{ID: "b", SourceRef: "sjukpenning.txt", Text: "Sjukpenning från dag 2.", Embedding: []float32{0, 1, 0}},
		{ID: "c", SourceRef: "vab.txt", Text: "VAB för barn under 12.", Embedding: []float32{0, 0, 1}},
		{ID: "d", SourceRef: "foraldrapenning.txt", Text: "Tvillingar ger 180 extra dagar.", Embedding: []float32{0.9, 0.1, 0}},
	}
}

func TestMemoryStore_RoundTrip(t *testing.T) {
	store, err := NewMemoryStore(testChunks())
	if err != nil {
		t.Fatalf("NewMemoryStore() error = %v", err)
	}

	for _, c := range testChunks() {
		results, err := store.NearestNeighbors(context.Background(), c.Embedding, 1)
		if err != nil {
			t.Fatalf("NearestNeighbors() error = %v", err)
		}
		if len(results) != 1 || results[0].ID != c.ID {
			t.Errorf("query with %s's embedding returned %v", c.ID, results)
		}
		if math.Abs(results[0].Score-1.0) > 1e-6 {
			t.Errorf("self-similarity = %f, want 1.0", results[0].Score)
		}
	}
}

func TestMemoryStore_RanksBySimilarity(t *testing.T) {
	store, _ := NewMemoryStore(testChunks())

	results, err := store.NearestNeighbors(context.Background(), []float32{1, 0, 0}, 3)
	if err != nil {
		t.Fatalf("NearestNeighbors() error = %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("len = %d, want 3", len(results))
	}
	if results[0].ID != "a" || results[1].ID != "d" {
		t.Errorf("order = %s,%s, want a,d", results[0].ID, results[1].ID)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("results not sorted at %d", i)
		}
	}
}

func TestMemoryStore_TiesKeepInsertionOrder(t *testing.T) {
	chunks := []models.Chunk{
		{ID: "first", Text: "x", Embedding: []float32{1, 1}},
		{ID: "second", Text: "y", Embedding: []float32{1, 1}},
		{ID: "third", Text: "z", Embedding: []float32{1, 1}},
	}
	store, _ := NewMemoryStore(chunks)

	for run := 0; run < 5; run++ {
		results, _ := store.NearestNeighbors(context.Background(), []float32{1, 1}, 3)
		if results[0].ID != "first" || results[1].ID != "second" || results[2].ID != "third" {
			t.Fatalf("run %d: tie order = %v", run, results)
		}
	}
}

func TestMemoryStore_Empty(t *testing.T) {
	store, err := NewMemoryStore(nil)
	if err != nil {
		t.Fatalf("NewMemoryStore(nil) error = %v", err)
	}
	_, err = store.NearestNeighbors(context.Background(), []float32{1}, 5)
	if !errors.Is(err, ErrCollectionMissing) {
		t.Errorf("expected ErrCollectionMissing, got %v", err)
	}
}

func TestMemoryStore_DimensionMismatch(t *testing.T) {
	store, _ := NewMemoryStore(testChunks())
	_, err := store.NearestNeighbors(context.Background(), []float32{1, 0}, 5)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}

	bad := append(testChunks(), models.Chunk{ID: "e", Text: "x", Embedding: []float32{1}})
	if _, err := NewMemoryStore(bad); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("mixed dimensions should fail, got %v", err)
	}
}

func TestMemoryStore_ZeroVector(t *testing.T) {
	store, _ := NewMemoryStore(testChunks())
	results, err := store.NearestNeighbors(context.Background(), []float32{0, 0, 0}, 2)
	if err != nil {
		t.Fatalf("NearestNeighbors() error = %v", err)
	}
	for _, r := range results {
		if r.Score != 0 {
			t.Errorf("zero query vector should score 0, got %f", r.Score)
		}
	}
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	store, _ := NewMemoryStore(testChunks())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := store.NearestNeighbors(ctx, []float32{1, 0, 0}, 2); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestMemoryStore_ReplaceWhileQuerying(t *testing.T) {
	store, _ := NewMemoryStore(testChunks())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if _, err := store.NearestNeighbors(context.Background(), []float32{1, 0, 0}, 2); err != nil {
					t.Errorf("query during swap failed: %v", err)
					return
				}
			}
		}()
	}
	for j := 0; j < 50; j++ {
		if err := store.Replace(testChunks()[:2+j%3]); err != nil {
			t.Fatalf("Replace() error = %v", err)
		}
	}
	wg.Wait()
}

func TestMemoryStore_UpsertKeepsPosition(t *testing.T) {
	store, _ := NewMemoryStore(testChunks())
	ctx := context.Background()

	updated := models.Chunk{ID: "b", Text: "Sjukpenning, uppdaterad.", Embedding: []float32{0, 1, 0}}
	added := models.Chunk{ID: "e", Text: "Bostadsbidrag.", Embedding: []float32{0.5, 0.5, 0}}
	if err := store.Upsert(ctx, updated, added); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	chunks, _ := store.List(ctx, 0)
	if len(chunks) != 5 {
		t.Fatalf("len = %d, want 5", len(chunks))
	}
	if chunks[1].ID != "b" || chunks[1].Text != "Sjukpenning, uppdaterad." {
		t.Errorf("updated chunk moved or not replaced: %+v", chunks[1])
	}
	if chunks[4].ID != "e" {
		t.Errorf("new chunk should be appended, got %s", chunks[4].ID)
	}

	limited, _ := store.List(ctx, 2)
	if len(limited) != 2 {
		t.Errorf("List(2) len = %d", len(limited))
	}
}

func TestMemoryStore_Reload(t *testing.T) {
	store, _ := NewMemoryStore(nil)
	src, _ := NewMemoryStore(testChunks())

	n, err := store.Reload(context.Background(), src)
	if err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if n != 4 || store.Len() != 4 {
		t.Errorf("reloaded %d chunks, Len() = %d, want 4", n, store.Len())
	}
}
