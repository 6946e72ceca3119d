// ABOUTME: Test doubles for the embedding, generation and chunk store collaborators
// ABOUTME: Record every call so tests can assert which stages ran
package core

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/harper/fkguiden/internal/models"
)

var errUpstream = errors.New("upstream unavailable")

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeEmbedder struct {
	mu     sync.Mutex
	calls  []string
	vector []float32
	err    error
	block  bool
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	f.calls = append(f.calls, text)
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.vector == nil {
		return []float32{1, 0, 0}, nil
	}
	return f.vector, nil
}

func (f *fakeEmbedder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type generateCall struct {
	messages    []models.Message
	temperature float32
}

// fakeGenerator answers via respond, or with reply when respond is nil
type fakeGenerator struct {
	mu      sync.Mutex
	calls   []generateCall
	reply   string
	err     error
	respond func(messages []models.Message) (string, error)
}

func (f *fakeGenerator) Generate(ctx context.Context, messages []models.Message, temperature float32) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, generateCall{messages: messages, temperature: temperature})
	f.mu.Unlock()
	if f.respond != nil {
		return f.respond(messages)
	}
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeGenerator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeGenerator) lastCall() generateCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

type fakeStore struct {
	mu      sync.Mutex
	calls   int
	results []models.ScoredChunk
	err     error
}

func (f *fakeStore) NearestNeighbors(ctx context.Context, vector []float32, k int) ([]models.ScoredChunk, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if len(f.results) > k {
		return f.results[:k], nil
	}
	return f.results, nil
}

func (f *fakeStore) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func scored(id, text string, score float64) models.ScoredChunk {
	return models.ScoredChunk{Chunk: models.Chunk{ID: id, SourceRef: id + ".txt", Text: text}, Score: score}
}
