// ABOUTME: Governor is the fallback controller deciding grounded vs ungrounded mode
// ABOUTME: Condenses, retrieves, and downgrades to ungrounded on any retrieval failure
package core

import (
	"context"
	"log/slog"
	"time"

	"github.com/harper/fkguiden/internal/models"
)

// Governor routes one request to GROUNDED or UNGROUNDED mode
type Governor struct {
	condenser        *Condenser
	retriever        *Retriever
	topK             int
	retrievalEnabled bool
	stageTimeout     time.Duration
	logger           *slog.Logger
}

// NewGovernor creates a Governor. A zero stageTimeout disables per-stage deadlines.
func NewGovernor(condenser *Condenser, retriever *Retriever, topK int, retrievalEnabled bool, stageTimeout time.Duration, logger *slog.Logger) *Governor {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Governor{
		condenser:        condenser,
		retriever:        retriever,
		topK:             topK,
		retrievalEnabled: retrievalEnabled,
		stageTimeout:     stageTimeout,
		logger:           logger,
	}
}

// Route condenses the question and attempts retrieval. The request moves
// from GROUNDED to UNGROUNDED when retrieval is disabled, errors, times
// out, or finds nothing; it never moves back.
func (g *Governor) Route(ctx context.Context, history []models.ConversationTurn, question string) models.RetrievalResult {
	standalone := question
	if g.condenser != nil {
		stageCtx, cancel := withStageTimeout(ctx, g.stageTimeout)
		standalone = g.condenser.Condense(stageCtx, history, question)
		cancel()
	}

	result := models.RetrievalResult{StandaloneQuestion: standalone}

	if !g.retrievalEnabled || g.retriever == nil {
		g.logger.Debug("retrieval disabled, answering ungrounded")
		result.UsedFallback = true
		result.Reason = models.FallbackRetrievalDisabled
		return result
	}

	stageCtx, cancel := withStageTimeout(ctx, g.stageTimeout)
	chunks, err := g.retriever.Retrieve(stageCtx, standalone, g.topK)
	cancel()

	if err != nil || len(chunks) == 0 {
		g.logger.Warn("retrieval fell back to ungrounded mode", "stage", "retrieve", "error", err)
		result.UsedFallback = true
		result.Reason = models.FallbackNoEvidence
		return result
	}

	result.Chunks = chunks
	return result
}

// withStageTimeout bounds one pipeline stage by d. A non-positive d only
// adds cancellation.
func withStageTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
