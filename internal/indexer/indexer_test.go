// ABOUTME: Tests for the corpus indexer over an in-memory store
// ABOUTME: Verifies file selection, stable chunk IDs, batching and failure counting
package indexer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/harper/fkguiden/internal/models"
	"github.com/harper/fkguiden/internal/storage"
)

type stubEmbedder struct {
	mu       sync.Mutex
	inFlight int
	peak     int
	failOn   string
	calls    atomic.Int32
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	s.calls.Add(1)
	s.mu.Lock()
	s.inFlight++
	if s.inFlight > s.peak {
		s.peak = s.inFlight
	}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.inFlight--
		s.mu.Unlock()
	}()

	if s.failOn != "" && strings.Contains(text, s.failOn) {
		return nil, errors.New("embedding rejected")
	}
	return []float32{float32(len(text)), 1, 0}, nil
}

func writeCorpus(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func newTestIndexer(t *testing.T, embedder *stubEmbedder, parallel int) (*Indexer, *storage.MemoryStore) {
	t.Helper()
	store, err := storage.NewMemoryStore(nil)
	if err != nil {
		t.Fatal(err)
	}
	ix := New(embedder, store, Options{
		MaxTokens: 5,
		Parallel:  parallel,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return ix, store
}

func TestSourceFiles(t *testing.T) {
	dir := writeCorpus(t, map[string]string{
		"vab.txt":             "x",
		"foraldrapenning.txt": "x",
		".DS_Store":           "x",
		"readme.md":           "x",
	})
	if err := os.Mkdir(filepath.Join(dir, "sub.txt"), 0o700); err != nil {
		t.Fatal(err)
	}

	files, err := SourceFiles(dir)
	if err != nil {
		t.Fatalf("SourceFiles() failed: %v", err)
	}
	if len(files) != 2 || filepath.Base(files[0]) != "foraldrapenning.txt" || filepath.Base(files[1]) != "vab.txt" {
		t.Errorf("SourceFiles() = %v", files)
	}
}

func TestIndexDir(t *testing.T) {
	dir := writeCorpus(t, map[string]string{
		"foraldrapenning.txt": "aaaa bbbb cccc dd\n\ndddd",
		"vab.txt":             "Vård av barn.",
	})
	embedder := &stubEmbedder{}
	ix, store := newTestIndexer(t, embedder, 2)

	stats, err := ix.IndexDir(context.Background(), dir)
	if err != nil {
		t.Fatalf("IndexDir() failed: %v", err)
	}
	if stats.Files != 2 || stats.Chunks != 3 || stats.Indexed != 3 || stats.Failed != 0 {
		t.Errorf("stats = %+v", stats)
	}
	if store.Len() != 3 {
		t.Fatalf("store has %d chunks, want 3", store.Len())
	}

	chunks, _ := store.List(context.Background(), 0)
	if chunks[0].ID != models.ChunkID("foraldrapenning.txt", 0) || chunks[1].ID != models.ChunkID("foraldrapenning.txt", 1) {
		t.Errorf("unexpected chunk IDs %s, %s", chunks[0].ID, chunks[1].ID)
	}
	if chunks[2].SourceRef != "vab.txt" || chunks[2].Text != "Vård av barn." {
		t.Errorf("chunk 2 = %+v", chunks[2])
	}
}

func TestIndexDir_ReindexIsIdempotent(t *testing.T) {
	dir := writeCorpus(t, map[string]string{"vab.txt": "Vård av barn."})
	embedder := &stubEmbedder{}
	ix, store := newTestIndexer(t, embedder, 5)

	for i := 0; i < 2; i++ {
		if _, err := ix.IndexDir(context.Background(), dir); err != nil {
			t.Fatalf("IndexDir() run %d failed: %v", i, err)
		}
	}
	if store.Len() != 1 {
		t.Errorf("store has %d chunks after re-index, want 1", store.Len())
	}
}

func TestIndexFiles_CountsFailures(t *testing.T) {
	dir := writeCorpus(t, map[string]string{
		"ok.txt":     "bra text",
		"bad.txt":    "AVVISA detta",
		"broken.pdf": "not really a pdf",
	})
	embedder := &stubEmbedder{failOn: "AVVISA"}
	ix, store := newTestIndexer(t, embedder, 5)

	stats, err := ix.IndexDir(context.Background(), dir)
	if err != nil {
		t.Fatalf("IndexDir() failed: %v", err)
	}
	if stats.FailedFiles != 1 {
		t.Errorf("FailedFiles = %d, want 1", stats.FailedFiles)
	}
	if stats.Indexed != 1 || stats.Failed != 1 {
		t.Errorf("stats = %+v, want 1 indexed and 1 failed", stats)
	}
	if store.Len() != 1 {
		t.Errorf("store has %d chunks, want 1", store.Len())
	}
}

func TestIndexFiles_BoundedParallelism(t *testing.T) {
	files := map[string]string{}
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		files[name+".txt"] = "text " + name
	}
	embedder := &stubEmbedder{}
	ix, _ := newTestIndexer(t, embedder, 3)

	stats, err := ix.IndexDir(context.Background(), writeCorpus(t, files))
	if err != nil {
		t.Fatalf("IndexDir() failed: %v", err)
	}
	if stats.Indexed != 7 {
		t.Errorf("Indexed = %d, want 7", stats.Indexed)
	}
	if embedder.peak > 3 {
		t.Errorf("peak concurrency = %d, want <= 3", embedder.peak)
	}
}

func TestIndexFiles_DimensionMismatchAborts(t *testing.T) {
	store, err := storage.NewMemoryStore([]models.Chunk{{ID: "x", Text: "x", Embedding: []float32{1, 2}}})
	if err != nil {
		t.Fatal(err)
	}
	ix := New(&stubEmbedder{}, store, Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})

	_, err = ix.IndexDir(context.Background(), writeCorpus(t, map[string]string{"vab.txt": "Vård av barn."}))
	if !errors.Is(err, storage.ErrDimensionMismatch) {
		t.Errorf("IndexDir() error = %v, want ErrDimensionMismatch", err)
	}
}

func TestIndexFiles_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	embedder := &stubEmbedder{failOn: "text"}
	ix, _ := newTestIndexer(t, embedder, 2)
	_, err := ix.IndexDir(ctx, writeCorpus(t, map[string]string{"a.txt": "text"}))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("IndexDir() error = %v, want context.Canceled", err)
	}
}
