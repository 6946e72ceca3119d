// ABOUTME: Chunk represents an indexed text fragment with its embedding vector
// ABOUTME: ScoredChunk pairs a chunk with its similarity to a query
package models

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// chunkNamespace scopes UUIDv5 chunk identifiers to this corpus
var chunkNamespace = uuid.MustParse("6f1c3f0e-5b7a-4d8e-9a1f-2c4b8e7d9a10")

// Chunk is an immutable fragment of a source document
type Chunk struct {
	ID        string    `json:"id"`
	SourceRef string    `json:"source"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding,omitempty"`
}

// ScoredChunk is a chunk returned by a similarity search
type ScoredChunk struct {
	Chunk
	Score float64 `json:"score"`
}

// Validate checks that the chunk can be stored
func (c *Chunk) Validate() error {
	if c.ID == "" {
		return errors.New("chunk ID cannot be empty")
	}
	if strings.TrimSpace(c.Text) == "" {
		return errors.New("chunk text cannot be empty")
	}
	return nil
}

// ChunkKey returns the human-readable key for a chunk: the source file name
// without extension followed by the ordinal, e.g. "foraldrapenning_3"
func ChunkKey(sourceRef string, ordinal int) string {
	base := filepath.Base(sourceRef)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return fmt.Sprintf("%s_%d", base, ordinal)
}

// ChunkID derives a stable UUID from the source file and ordinal so that
// re-indexing the same file overwrites instead of duplicating
func ChunkID(sourceRef string, ordinal int) string {
	return uuid.NewSHA1(chunkNamespace, []byte(ChunkKey(sourceRef, ordinal))).String()
}

// Texts returns the text of each scored chunk in order
func Texts(chunks []ScoredChunk) []string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	return texts
}
