// ABOUTME: CLI command to list indexed chunks
// ABOUTME: Shows source file and a text preview in insertion order
package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/harper/fkguiden/internal/storage"
)

var (
	listLimit int
)

// NewListCmd creates list command
func NewListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List indexed chunks",
		Long: `List indexed chunks with their source file and the first
100 characters of text, in insertion order.

Examples:
  fkguiden list
  fkguiden list --limit 50
  fkguiden list --format json`,
		Args: cobra.NoArgs,
		RunE: runList,
	}

	cmd.Flags().IntVar(&listLimit, "limit", 10, "Maximum chunks to list")

	return cmd
}

func runList(cmd *cobra.Command, args []string) error {
	if err := validatePositiveInt(listLimit, "limit"); err != nil {
		return err
	}

	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	lister, closeLister, err := openLister(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer closeLister()

	chunks, err := lister.List(cmd.Context(), listLimit)
	if errors.Is(err, storage.ErrCollectionMissing) {
		if !quiet {
			fmt.Fprintln(cmd.OutOrStdout(), "No chunks indexed yet. Run 'fkguiden index <dir>' first.")
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("listing chunks: %w", err)
	}

	if jsonOutput() {
		for i := range chunks {
			chunks[i].Embedding = nil
		}
		jsonData, err := json.MarshalIndent(chunks, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", jsonData)
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "#\tSOURCE\tPREVIEW\n")
	fmt.Fprintf(w, "-\t------\t-------\n")
	for i, c := range chunks {
		fmt.Fprintf(w, "%d\t%s\t%s\n", i+1, truncate(c.SourceRef, 30), preview(c.Text))
	}
	w.Flush()

	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "\nShowing %d chunk(s)\n", len(chunks))
	}
	return nil
}

// preview flattens whitespace and keeps the first 100 characters
func preview(text string) string {
	flat := strings.Join(strings.Fields(text), " ")
	runes := []rune(flat)
	if len(runes) > 100 {
		return string(runes[:100])
	}
	return flat
}
