// ABOUTME: Remote chunk store on PostgreSQL with the pgvector extension
// ABOUTME: Nearest-neighbour search runs in the database using cosine distance
package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/harper/fkguiden/internal/models"
	"github.com/harper/fkguiden/internal/storage"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// Postgres error codes mapped onto storage sentinels
const (
	codeUndefinedTable = "42P01"
	codeDataException  = "22000"
)

// Store is a chunk collection held in one PostgreSQL table
type Store struct {
	db         *sql.DB
	collection string
	table      string
}

// Open connects to dsn and verifies the connection
func Open(ctx context.Context, dsn, collection string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to reach postgres: %w", err)
	}
	return New(db, collection), nil
}

// New wraps an existing connection pool
func New(db *sql.DB, collection string) *Store {
	return &Store{
		db:         db,
		collection: collection,
		table:      pq.QuoteIdentifier(collection),
	}
}

// Close closes the connection pool
func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureCollection creates the extension and table if needed and checks
// that an existing table has the same embedding dimension
func (s *Store) EnsureCollection(ctx context.Context, dim int) error {
	if dim <= 0 {
		return fmt.Errorf("invalid embedding dimension %d", dim)
	}

	if _, err := s.db.ExecContext(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	create := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		seq BIGSERIAL,
		id TEXT PRIMARY KEY,
		source_ref TEXT NOT NULL DEFAULT '',
		text TEXT NOT NULL,
		embedding vector(%d) NOT NULL
	)`, s.table, dim)
	if _, err := s.db.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("failed to create table %s: %w", s.collection, err)
	}

	var have int
	err := s.db.QueryRowContext(ctx,
		`SELECT atttypmod FROM pg_attribute WHERE attrelid = $1::regclass AND attname = 'embedding'`,
		s.table,
	).Scan(&have)
	if err != nil {
		return fmt.Errorf("failed to read embedding dimension: %w", err)
	}
	if have != dim {
		return fmt.Errorf("%w: collection has %d, requested %d", storage.ErrDimensionMismatch, have, dim)
	}
	return nil
}

// Upsert inserts chunks or replaces them by ID in one transaction
func (s *Store) Upsert(ctx context.Context, chunks ...models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO %s (id, source_ref, text, embedding)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			source_ref = EXCLUDED.source_ref,
			text = EXCLUDED.text,
			embedding = EXCLUDED.embedding`, s.table))
	if err != nil {
		return s.mapError(err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		if _, err := stmt.ExecContext(ctx, c.ID, c.SourceRef, c.Text, pgvector.NewVector(c.Embedding)); err != nil {
			return fmt.Errorf("failed to upsert chunk %s: %w", c.ID, s.mapError(err))
		}
	}

	return tx.Commit()
}

// NearestNeighbors returns the k chunks closest to vector by cosine
// distance, ties broken by insertion order. Embeddings are not returned.
func (s *Store) NearestNeighbors(ctx context.Context, vector []float32, k int) ([]models.ScoredChunk, error) {
	if k <= 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT id, source_ref, text, 1 - (embedding <=> $1) AS score
		FROM %s
		ORDER BY embedding <=> $1, seq
		LIMIT $2`, s.table)

	rows, err := s.db.QueryContext(ctx, query, pgvector.NewVector(vector), k)
	if err != nil {
		return nil, s.mapError(err)
	}
	defer rows.Close()

	var results []models.ScoredChunk
	for rows.Next() {
		var r models.ScoredChunk
		if err := rows.Scan(&r.ID, &r.SourceRef, &r.Text, &r.Score); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, s.mapError(err)
	}
	return results, nil
}

// Load returns every chunk with its embedding in insertion order
func (s *Store) Load(ctx context.Context) ([]models.Chunk, error) {
	return s.List(ctx, 0)
}

// List returns up to limit chunks in insertion order; limit <= 0 means all
func (s *Store) List(ctx context.Context, limit int) ([]models.Chunk, error) {
	var lim sql.NullInt64
	if limit > 0 {
		lim = sql.NullInt64{Int64: int64(limit), Valid: true}
	}

	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT id, source_ref, text, embedding FROM %s ORDER BY seq LIMIT $1`, s.table),
		lim,
	)
	if err != nil {
		return nil, s.mapError(err)
	}
	defer rows.Close()

	var chunks []models.Chunk
	for rows.Next() {
		var c models.Chunk
		var vec pgvector.Vector
		if err := rows.Scan(&c.ID, &c.SourceRef, &c.Text, &vec); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		c.Embedding = vec.Slice()
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, s.mapError(err)
	}
	return chunks, nil
}

// mapError converts postgres errors into storage sentinels
func (s *Store) mapError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code == codeUndefinedTable:
			return fmt.Errorf("%w: %s: %w", storage.ErrCollectionMissing, s.collection, err)
		case pqErr.Code == codeDataException && strings.Contains(pqErr.Message, "dimensions"):
			return fmt.Errorf("%w: %w", storage.ErrDimensionMismatch, err)
		}
	}
	return err
}
