// ABOUTME: CLI command to index a corpus directory
// ABOUTME: Splits, embeds and upserts .txt and .pdf sources into the configured store
package commands

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/harper/fkguiden/internal/indexer"
	"github.com/harper/fkguiden/internal/llm"
)

var (
	indexParallel  int
	indexMaxTokens int
)

// NewIndexCmd creates the index command
func NewIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index <dir>",
		Short: "Index a corpus directory",
		Long: `Index the .txt and .pdf files directly inside a directory.

Each file is split into chunks, embedded and upserted into the
configured store. Chunk IDs derive from the file name and chunk
position, so re-indexing a file overwrites its previous chunks.

Examples:
  fkguiden index chunks/
  fkguiden index --parallel 10 chunks/`,
		Args: cobra.ExactArgs(1),
		RunE: runIndex,
	}

	cmd.Flags().IntVar(&indexParallel, "parallel", 0, "Embedding batch width (overrides FK_INDEX_PARALLEL)")
	cmd.Flags().IntVar(&indexMaxTokens, "max-tokens", 0, "Approximate tokens per chunk (overrides FK_CHUNK_MAX_TOKENS)")

	return cmd
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if indexParallel < 0 || indexMaxTokens < 0 {
		return fmt.Errorf("--parallel and --max-tokens must not be negative")
	}
	if indexParallel > 0 {
		cfg.IndexParallel = indexParallel
	}
	if indexMaxTokens > 0 {
		cfg.ChunkMaxTokens = indexMaxTokens
	}

	client, err := llm.NewOpenAIClientWithConfig(llm.ConfigFrom(cfg, cfg.MaxRetries))
	if err != nil {
		return fmt.Errorf("initializing OpenAI client: %w", err)
	}

	writer, closeWriter, err := openWriter(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer closeWriter()

	ix := indexer.New(client, writer, indexer.Options{
		MaxTokens: cfg.ChunkMaxTokens,
		Parallel:  cfg.IndexParallel,
		Logger:    logger.With("component", "indexer"),
	})

	stats, err := ix.IndexDir(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("indexing %s: %w", args[0], err)
	}

	if jsonOutput() {
		jsonData, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", jsonData)
		return nil
	}

	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d of %d chunk(s) from %d file(s) in %s\n",
			stats.Indexed, stats.Chunks, stats.Files, stats.Duration.Round(time.Millisecond))
		if stats.Failed > 0 || stats.FailedFiles > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "Failed: %d chunk(s), %d file(s)\n", stats.Failed, stats.FailedFiles)
		}
	}
	return nil
}
