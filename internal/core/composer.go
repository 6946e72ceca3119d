// ABOUTME: Composer builds the answer prompt, calls generation and sanitizes output
// ABOUTME: Grounded requests carry chunk context; ungrounded ones a stricter policy
package core

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/harper/fkguiden/internal/models"
)

// DefaultTemperature is the sampling temperature for answers
const DefaultTemperature = 0.2

// Composer turns a question and optional context into a sanitized answer
type Composer struct {
	gen         Generator
	sanitizer   *Sanitizer
	temperature float32
	logger      *slog.Logger
}

// NewComposer creates a Composer
func NewComposer(gen Generator, sanitizer *Sanitizer, temperature float32, logger *slog.Logger) *Composer {
	if sanitizer == nil {
		sanitizer = NewSanitizer(CitationSuppress)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Composer{
		gen:         gen,
		sanitizer:   sanitizer,
		temperature: temperature,
		logger:      logger,
	}
}

// Compose answers question. A non-empty chunks slice means grounded mode.
// Generation failure yields TechnicalErrorMessage and is not retried.
func (c *Composer) Compose(ctx context.Context, question string, chunks []models.ScoredChunk, policy SystemPolicy) models.Answer {
	messages := BuildMessages(question, chunks, policy)

	if c.gen == nil {
		return models.Answer{Text: TechnicalErrorMessage}
	}

	raw, err := c.gen.Generate(ctx, messages, c.temperature)
	if err != nil {
		c.logger.Error("answer generation failed", "error", err, "grounded", len(chunks) > 0)
		return models.Answer{Text: TechnicalErrorMessage}
	}

	text := c.sanitizer.Clean(raw, chunks)
	if text == "" {
		sentinel := policy.UnknownSentinel
		if sentinel == "" {
			sentinel = UnknownSentinel
		}
		c.logger.Warn("generation returned no usable text, using unknown sentinel")
		text = sentinel
	}

	return models.Answer{Text: text}
}

// BuildMessages assembles the system and user messages of one answer request
func BuildMessages(question string, chunks []models.ScoredChunk, policy SystemPolicy) []models.Message {
	sentinel := policy.UnknownSentinel
	if sentinel == "" {
		sentinel = UnknownSentinel
	}
	question = strings.TrimSpace(question)

	if len(chunks) > 0 {
		joined := strings.Join(models.Texts(chunks), ContextDelimiter)
		return []models.Message{
			{Role: models.RoleSystem, Content: policy.System},
			{Role: models.RoleUser, Content: fmt.Sprintf(groundedTemplate, sentinel, joined, question)},
		}
	}

	system := policy.System
	if policy.Ungrounded != "" {
		system = strings.TrimSpace(system + "\n\n" + policy.Ungrounded)
	}
	return []models.Message{
		{Role: models.RoleSystem, Content: system},
		{Role: models.RoleUser, Content: fmt.Sprintf(ungroundedTemplate, question)},
	}
}
