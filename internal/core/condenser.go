// ABOUTME: History condenser rewrites a follow-up into a standalone question
// ABOUTME: Uses a bounded window of recent turns and never fails the request
package core

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/harper/fkguiden/internal/models"
)

// DefaultHistoryWindow is the number of recent turns considered
const DefaultHistoryWindow = 6

// Condenser rewrites the latest question using recent conversation history
type Condenser struct {
	gen    Generator
	window int
	logger *slog.Logger
}

// NewCondenser creates a Condenser over the last window turns
func NewCondenser(gen Generator, window int, logger *slog.Logger) *Condenser {
	if window < 0 {
		window = DefaultHistoryWindow
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Condenser{gen: gen, window: window, logger: logger}
}

// Condense returns a self-contained version of latest. With no usable
// history it returns latest trimmed, without calling the generator.
// Generation errors and empty output also yield latest trimmed.
func (c *Condenser) Condense(ctx context.Context, history []models.ConversationTurn, latest string) string {
	latest = strings.TrimSpace(latest)

	turns := models.RecentTurns(history, c.window)
	if len(turns) == 0 || c.gen == nil {
		return latest
	}

	messages := []models.Message{
		{Role: models.RoleSystem, Content: condenseSystemPrompt},
		{Role: models.RoleUser, Content: fmt.Sprintf(condenseTemplate, FormatTranscript(turns), latest)},
	}

	out, err := c.gen.Generate(ctx, messages, 0)
	if err != nil {
		c.logger.Warn("condensation failed, using latest question", "error", err)
		return latest
	}

	out = cleanQuestion(out)
	if out == "" {
		c.logger.Warn("condensation returned empty output, using latest question")
		return latest
	}

	c.logger.Debug("condensed question", "latest", latest, "standalone", out)
	return out
}

// FormatTranscript renders turns as a labeled transcript
func FormatTranscript(turns []models.ConversationTurn) string {
	var b strings.Builder
	for i, turn := range turns {
		if i > 0 {
			b.WriteString("\n")
		}
		label := "Användare"
		if turn.Role == models.RoleAssistant {
			label = "Assistent"
		}
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(turn.Content)
	}
	return b.String()
}

// cleanQuestion strips wrapping quotes and a leading label the model may add
func cleanQuestion(s string) string {
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"Fristående fråga:", "Fråga:"} {
		s = strings.TrimSpace(strings.TrimPrefix(s, prefix))
	}
	s = strings.Trim(s, "\"'“”«»")
	return strings.TrimSpace(s)
}
