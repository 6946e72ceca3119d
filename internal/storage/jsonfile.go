// ABOUTME: Chunk snapshot stored as a single JSON document
// ABOUTME: Reads and writes the {"chunks": [...]} layout produced by earlier exports
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/harper/fkguiden/internal/models"
)

type jsonDocument struct {
	Collection string         `json:"collection,omitempty"`
	Dimension  int            `json:"dimension,omitempty"`
	Chunks     []models.Chunk `json:"chunks"`
}

// JSONStore is a Snapshot backed by one JSON file
type JSONStore struct {
	path string
	mu   sync.Mutex
}

// NewJSONStore creates a store for the file at path. The file is read lazily.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

// Close is a no-op
func (s *JSONStore) Close() error {
	return nil
}

// EnsureCollection creates the file if needed and checks dim
func (s *JSONStore) EnsureCollection(_ context.Context, dim int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if errors.Is(err, ErrCollectionMissing) {
		return s.write(&jsonDocument{Dimension: dim, Chunks: []models.Chunk{}})
	}
	if err != nil {
		return err
	}
	if doc.Dimension == 0 {
		doc.Dimension = dim
		return s.write(doc)
	}
	if doc.Dimension != dim {
		return fmt.Errorf("%w: collection has %d, requested %d", ErrDimensionMismatch, doc.Dimension, dim)
	}
	return nil
}

// Upsert adds or replaces chunks by ID and rewrites the file
func (s *JSONStore) Upsert(_ context.Context, chunks ...models.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	if err := checkDim(doc.Dimension, chunks); err != nil {
		return err
	}

	pos := make(map[string]int, len(doc.Chunks))
	for i, c := range doc.Chunks {
		pos[c.ID] = i
	}
	for _, c := range chunks {
		if i, ok := pos[c.ID]; ok {
			doc.Chunks[i] = c
			continue
		}
		pos[c.ID] = len(doc.Chunks)
		doc.Chunks = append(doc.Chunks, c)
	}
	return s.write(doc)
}

// Load returns every chunk in file order
func (s *JSONStore) Load(ctx context.Context) ([]models.Chunk, error) {
	return s.List(ctx, 0)
}

// List returns up to limit chunks in file order
func (s *JSONStore) List(_ context.Context, limit int) ([]models.Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	return limitChunks(doc.Chunks, limit), nil
}

func (s *JSONStore) read() (*jsonDocument, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrCollectionMissing, s.path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var doc jsonDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot %s: %w", s.path, err)
	}
	if doc.Dimension == 0 && len(doc.Chunks) > 0 {
		doc.Dimension = len(doc.Chunks[0].Embedding)
	}
	return &doc, nil
}

// write replaces the file atomically via a temp file in the same directory
func (s *JSONStore) write(doc *jsonDocument) error {
	if err := ensureDir(s.path); err != nil {
		return err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}
