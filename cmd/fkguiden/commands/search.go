// ABOUTME: CLI command to search indexed chunks
// ABOUTME: Runs retrieval only and prints chunks with similarity scores
package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/harper/fkguiden/internal/core"
)

var (
	searchLimit int
)

// NewSearchCmd creates search command
func NewSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search indexed chunks",
		Long: `Search indexed chunks by semantic similarity.

Runs retrieval alone, without condensation or answer generation,
which is useful for checking what context a question would get.

Examples:
  fkguiden search "föräldrapenning tvillingar"
  fkguiden search --limit 10 "sjukpenning"
  fkguiden search --format json "VAB"`,
		Args: cobra.MinimumNArgs(1),
		RunE: runSearch,
	}

	cmd.Flags().IntVar(&searchLimit, "limit", core.DefaultTopK, "Maximum results to return")

	return cmd
}

func runSearch(cmd *cobra.Command, args []string) error {
	if err := validatePositiveInt(searchLimit, "limit"); err != nil {
		return err
	}

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	query := strings.Join(args, " ")
	results, err := a.pipeline.Search(cmd.Context(), query, searchLimit)
	if err != nil && !errors.Is(err, core.ErrNoEvidence) {
		return fmt.Errorf("searching chunks: %w", err)
	}

	if len(results) == 0 {
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "No chunks found for query: %s\n", query)
		}
		return nil
	}

	if jsonOutput() {
		for i := range results {
			results[i].Embedding = nil
		}
		jsonData, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", jsonData)
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "SCORE\tSOURCE\tPREVIEW\n")
	fmt.Fprintf(w, "-----\t------\t-------\n")
	for _, r := range results {
		fmt.Fprintf(w, "%.3f\t%s\t%s\n", r.Score, truncate(r.SourceRef, 30), truncate(preview(r.Text), 60))
	}
	w.Flush()

	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "\nFound %d result(s)\n", len(results))
	}
	return nil
}
