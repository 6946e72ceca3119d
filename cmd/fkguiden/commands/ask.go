// ABOUTME: CLI command to answer a single question
// ABOUTME: Prints the answer, or the full response with retrieval diagnostics as JSON
package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harper/fkguiden/internal/core"
	"github.com/harper/fkguiden/internal/models"
)

var (
	askHistoryFile string
)

type askOutput struct {
	Answer    string                  `json:"answer"`
	Kind      string                  `json:"kind"`
	Retrieval *models.RetrievalResult `json:"retrieval,omitempty"`
}

// NewAskCmd creates the ask command
func NewAskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer one question",
		Long: `Answer one question about Försäkringskassan.

An optional history file holds earlier turns as a JSON array of
{"role": "user"|"assistant", "content": "..."} objects, so follow-up
questions can be condensed into standalone ones.

Examples:
  fkguiden ask "Hur många dagar föräldrapenning får man?"
  fkguiden ask --history turns.json "Och för tvillingar?"
  fkguiden ask --format json "Vad är VAB?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: runAsk,
	}

	cmd.Flags().StringVar(&askHistoryFile, "history", "", "JSON file with earlier conversation turns")

	return cmd
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	history, err := readHistory(askHistoryFile)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	question := strings.Join(args, " ")
	resp := a.pipeline.Answer(cmd.Context(), core.Request{Question: question, History: history})

	if jsonOutput() {
		out := askOutput{Answer: resp.Answer.Text, Kind: resp.Kind.String(), Retrieval: withoutEmbeddings(resp.Retrieval)}
		jsonData, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", jsonData)
		return nil
	}

	fmt.Fprintln(cmd.OutOrStdout(), resp.Answer.Text)
	if verbose && resp.Retrieval != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "\n[%s, %d chunks, standalone: %q]\n",
			resp.Retrieval.Mode(), len(resp.Retrieval.Chunks), resp.Retrieval.StandaloneQuestion)
	}
	return nil
}

func readHistory(path string) ([]models.ConversationTurn, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading history file: %w", err)
	}
	var history []models.ConversationTurn
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("parsing history file: %w", err)
	}
	return history, nil
}

// withoutEmbeddings copies r with chunk vectors dropped for display
func withoutEmbeddings(r *models.RetrievalResult) *models.RetrievalResult {
	if r == nil {
		return nil
	}
	out := *r
	out.Chunks = make([]models.ScoredChunk, len(r.Chunks))
	for i, c := range r.Chunks {
		c.Embedding = nil
		out.Chunks[i] = c
	}
	return &out
}
