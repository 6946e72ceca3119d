// ABOUTME: Chunk snapshot stored in Charm KV for cloud sync between devices
// ABOUTME: Sequence-numbered keys keep chunks in insertion order
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v3"
	"github.com/harper/fkguiden/internal/charm"
	"github.com/harper/fkguiden/internal/models"
)

type charmCollection struct {
	Name      string `json:"name"`
	Dimension int    `json:"dimension"`
	NextSeq   uint64 `json:"next_seq"`
}

// charmKV is the subset of *charm.Client the store needs
type charmKV interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	GetJSON(key string, v any) error
	SetJSON(key string, v any) error
	ListKeys(prefix string) ([]string, error)
	Flush() error
	Sync() error
	Close() error
}

// CharmStore is a Snapshot backed by a Charm KV database. Keys are scoped
// by collection so several collections can share one database.
type CharmStore struct {
	client     charmKV
	collection string
	mu         sync.Mutex
}

// NewCharmStore creates a store for collection on client
func NewCharmStore(client *charm.Client, collection string) *CharmStore {
	return newCharmStore(client, collection)
}

func newCharmStore(client charmKV, collection string) *CharmStore {
	return &CharmStore{client: client, collection: collection}
}

// Close closes the underlying client
func (s *CharmStore) Close() error {
	return s.client.Close()
}

// Sync pulls and pushes the KV database
func (s *CharmStore) Sync() error {
	return s.client.Sync()
}

// EnsureCollection records the collection schema on first use
func (s *CharmStore) EnsureCollection(_ context.Context, dim int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, err := s.meta()
	if errors.Is(err, ErrCollectionMissing) {
		meta = &charmCollection{Name: s.collection, Dimension: dim}
		if err := s.client.SetJSON(charm.CollectionKey(s.collection), meta); err != nil {
			return err
		}
		return s.client.Flush()
	}
	if err != nil {
		return err
	}
	if meta.Dimension != dim {
		return fmt.Errorf("%w: collection has %d, requested %d", ErrDimensionMismatch, meta.Dimension, dim)
	}
	return nil
}

// Upsert writes chunks, replacing existing chunks with the same ID in place
func (s *CharmStore) Upsert(_ context.Context, chunks ...models.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, err := s.meta()
	if err != nil {
		return err
	}
	if err := checkDim(meta.Dimension, chunks); err != nil {
		return err
	}

	for _, c := range chunks {
		key, err := s.client.Get(charm.ChunkIndexKey(s.collection, c.ID))
		if err != nil && !isMissingKey(err) {
			return fmt.Errorf("failed to look up chunk %s: %w", c.ID, err)
		}
		if key == nil {
			meta.NextSeq++
			key = []byte(charm.ChunkKey(s.collection, meta.NextSeq))
			if err := s.client.Set(charm.ChunkIndexKey(s.collection, c.ID), key); err != nil {
				return err
			}
		}
		if err := s.client.SetJSON(string(key), c); err != nil {
			return err
		}
	}

	if err := s.client.SetJSON(charm.CollectionKey(s.collection), meta); err != nil {
		return err
	}
	return s.client.Flush()
}

// Load returns every chunk in insertion order
func (s *CharmStore) Load(ctx context.Context) ([]models.Chunk, error) {
	return s.List(ctx, 0)
}

// List returns up to limit chunks in insertion order
func (s *CharmStore) List(ctx context.Context, limit int) ([]models.Chunk, error) {
	if _, err := s.meta(); err != nil {
		return nil, err
	}

	keys, err := s.client.ListKeys(charm.CollectionChunkPrefix(s.collection))
	if err != nil {
		return nil, err
	}

	var chunks []models.Chunk
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var c models.Chunk
		if err := s.client.GetJSON(key, &c); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", key, err)
		}
		chunks = append(chunks, c)
		if limit > 0 && len(chunks) >= limit {
			break
		}
	}
	return chunks, nil
}

func (s *CharmStore) meta() (*charmCollection, error) {
	var meta charmCollection
	err := s.client.GetJSON(charm.CollectionKey(s.collection), &meta)
	if err != nil {
		if isMissingKey(err) {
			return nil, fmt.Errorf("%w: %s", ErrCollectionMissing, s.collection)
		}
		return nil, fmt.Errorf("failed to read collection %s: %w", s.collection, err)
	}
	if meta.Name == "" {
		meta.Name = s.collection
	}
	return &meta, nil
}

// isMissingKey reports whether err is the KV's not-found error
func isMissingKey(err error) bool {
	return errors.Is(err, badger.ErrKeyNotFound) || strings.Contains(err.Error(), "not found")
}
