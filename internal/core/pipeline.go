// ABOUTME: Pipeline wires smalltalk, condensation, retrieval, fallback and composition
// ABOUTME: Answer always returns text; failures degrade the request instead of aborting it
package core

import (
	"context"
	"log/slog"
	"time"

	"github.com/harper/fkguiden/internal/config"
	"github.com/harper/fkguiden/internal/models"
)

// Options configures a Pipeline
type Options struct {
	TopK             int
	HistoryWindow    int
	MinSimilarity    float64
	RetrievalEnabled bool
	Temperature      float32
	StageTimeout     time.Duration
	CitationPolicy   CitationPolicy
	Policy           SystemPolicy
	Logger           *slog.Logger
}

// DefaultOptions returns the production defaults
func DefaultOptions() Options {
	return Options{
		TopK:             DefaultTopK,
		HistoryWindow:    DefaultHistoryWindow,
		MinSimilarity:    0.25,
		RetrievalEnabled: true,
		Temperature:      DefaultTemperature,
		StageTimeout:     20 * time.Second,
		CitationPolicy:   CitationSuppress,
		Policy:           DefaultPolicy(),
	}
}

// OptionsFromConfig maps application config onto pipeline options
func OptionsFromConfig(cfg *config.Config, logger *slog.Logger) Options {
	opts := DefaultOptions()
	opts.TopK = cfg.TopK
	opts.HistoryWindow = cfg.HistoryWindow
	opts.MinSimilarity = cfg.MinSimilarity
	opts.RetrievalEnabled = cfg.RetrievalEnabled
	opts.Temperature = float32(cfg.Temperature)
	opts.StageTimeout = cfg.StageTimeout
	opts.CitationPolicy = CitationPolicy(cfg.CitationPolicy)
	opts.Logger = logger
	return opts
}

// Request is one inbound question with optional history
type Request struct {
	Question string                    `json:"question"`
	History  []models.ConversationTurn `json:"history,omitempty"`
}

// Response is the pipeline result. Retrieval is nil for smalltalk.
type Response struct {
	Answer    models.Answer           `json:"answer"`
	Kind      Kind                    `json:"-"`
	Retrieval *models.RetrievalResult `json:"retrieval,omitempty"`
}

// Pipeline is the retrieval-augmented query pipeline
type Pipeline struct {
	governor     *Governor
	composer     *Composer
	retriever    *Retriever
	policy       SystemPolicy
	stageTimeout time.Duration
	logger       *slog.Logger
}

// NewPipeline creates a Pipeline over the given collaborators
func NewPipeline(embedder Embedder, gen Generator, store ChunkStore, opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Policy.System == "" {
		opts.Policy = DefaultPolicy()
	}

	condenser := NewCondenser(gen, opts.HistoryWindow, logger.With("component", "condenser"))
	retriever := NewRetriever(embedder, store, opts.MinSimilarity, logger.With("component", "retriever"))
	governor := NewGovernor(condenser, retriever, opts.TopK, opts.RetrievalEnabled, opts.StageTimeout, logger.With("component", "governor"))
	composer := NewComposer(gen, NewSanitizer(opts.CitationPolicy), opts.Temperature, logger.With("component", "composer"))

	return &Pipeline{
		governor:     governor,
		composer:     composer,
		retriever:    retriever,
		policy:       opts.Policy,
		stageTimeout: opts.StageTimeout,
		logger:       logger,
	}
}

// Answer runs the full pipeline for req. Smalltalk returns its canned
// reply without touching embedding or generation.
func (p *Pipeline) Answer(ctx context.Context, req Request) Response {
	kind := Classify(req.Question)
	if kind.IsSmalltalk() {
		p.logger.Debug("smalltalk short-circuit", "kind", kind.String())
		return Response{Answer: models.Answer{Text: kind.Reply()}, Kind: kind}
	}

	start := time.Now()
	result := p.governor.Route(ctx, req.History, req.Question)

	stageCtx, cancel := withStageTimeout(ctx, p.stageTimeout)
	answer := p.composer.Compose(stageCtx, result.StandaloneQuestion, result.Chunks, p.policy)
	cancel()

	p.logger.Info("answered question",
		"mode", string(result.Mode()),
		"reason", string(result.Reason),
		"chunks", len(result.Chunks),
		"duration", time.Since(start).Round(time.Millisecond).String(),
	)

	return Response{Answer: answer, Kind: kind, Retrieval: &result}
}

// Search runs retrieval alone for question, without condensation or composition
func (p *Pipeline) Search(ctx context.Context, question string, k int) ([]models.ScoredChunk, error) {
	stageCtx, cancel := withStageTimeout(ctx, p.stageTimeout)
	defer cancel()
	return p.retriever.Retrieve(stageCtx, question, k)
}
