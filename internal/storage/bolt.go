// ABOUTME: Local chunk snapshot persisted in a bbolt file
// ABOUTME: Chunks are keyed by a bucket sequence so iteration follows insertion order
package storage

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/harper/fkguiden/internal/models"
	"go.etcd.io/bbolt"
)

var (
	bucketChunks = []byte("chunks")
	bucketIDs    = []byte("chunk_ids")
	bucketMeta   = []byte("meta")
	keyDim       = []byte("dim")
)

// BoltStore is a Snapshot backed by a single bbolt database file
type BoltStore struct {
	db *bbolt.DB
}

// OpenBoltStore opens or creates the database at path
func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt store %s: %w", path, err)
	}
	return &BoltStore{db: db}, nil
}

// Close closes the database file
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// EnsureCollection creates the buckets and records dim on first use
func (s *BoltStore) EnsureCollection(_ context.Context, dim int) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketChunks, bucketIDs, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		meta := tx.Bucket(bucketMeta)
		if existing := meta.Get(keyDim); existing != nil {
			have, err := parseDim(existing)
			if err != nil {
				return err
			}
			if have != dim {
				return fmt.Errorf("%w: collection has %d, requested %d", ErrDimensionMismatch, have, dim)
			}
			return nil
		}
		return meta.Put(keyDim, []byte(strconv.Itoa(dim)))
	})
}

// parseDim decodes the stored collection dimension. An unset value is 0.
func parseDim(raw []byte) (int, error) {
	if raw == nil {
		return 0, nil
	}
	dim, err := strconv.Atoi(string(raw))
	if err != nil {
		return 0, fmt.Errorf("corrupt collection dimension %q: %w", raw, err)
	}
	if dim < 0 {
		return 0, fmt.Errorf("corrupt collection dimension %d", dim)
	}
	return dim, nil
}

// Upsert writes chunks, replacing existing chunks with the same ID in place
func (s *BoltStore) Upsert(_ context.Context, chunks ...models.Chunk) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketChunks)
		ids := tx.Bucket(bucketIDs)
		meta := tx.Bucket(bucketMeta)
		if b == nil || ids == nil || meta == nil {
			return ErrCollectionMissing
		}

		dim, err := parseDim(meta.Get(keyDim))
		if err != nil {
			return err
		}
		if err := checkDim(dim, chunks); err != nil {
			return err
		}

		for _, c := range chunks {
			data, err := json.Marshal(c)
			if err != nil {
				return err
			}

			key := ids.Get([]byte(c.ID))
			if key == nil {
				seq, err := b.NextSequence()
				if err != nil {
					return err
				}
				key = seqKey(seq)
				if err := ids.Put([]byte(c.ID), key); err != nil {
					return err
				}
			}
			if err := b.Put(key, data); err != nil {
				return err
			}
		}
		return nil
	})
}

// Load returns every chunk in insertion order
func (s *BoltStore) Load(ctx context.Context) ([]models.Chunk, error) {
	return s.List(ctx, 0)
}

// List returns up to limit chunks in insertion order
func (s *BoltStore) List(_ context.Context, limit int) ([]models.Chunk, error) {
	var chunks []models.Chunk
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketChunks)
		if b == nil {
			return ErrCollectionMissing
		}
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var chunk models.Chunk
			if err := json.Unmarshal(v, &chunk); err != nil {
				return fmt.Errorf("corrupt chunk at seq %d: %w", binary.BigEndian.Uint64(k), err)
			}
			chunks = append(chunks, chunk)
			if limit > 0 && len(chunks) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return chunks, nil
}

func seqKey(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return b
}
