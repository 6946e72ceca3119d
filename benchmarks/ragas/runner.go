// ABOUTME: Test runner for RAGAS benchmarks - executes scenarios and collects results
// ABOUTME: Indexes each scenario corpus into a fresh store and replays the turns through the pipeline

package ragas

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/harper/fkguiden/internal/config"
	"github.com/harper/fkguiden/internal/core"
	"github.com/harper/fkguiden/internal/indexer"
	"github.com/harper/fkguiden/internal/llm"
	"github.com/harper/fkguiden/internal/models"
	"github.com/harper/fkguiden/internal/storage"
)

// BenchmarkRunner executes RAGAS benchmark tests
type BenchmarkRunner struct {
	embedder  core.Embedder
	generator core.Generator
	opts      core.Options
	metrics   *MetricsCalculator
	logger    *slog.Logger
	out       io.Writer
	verbose   bool
}

// NewBenchmarkRunner creates a runner backed by the configured OpenAI models
func NewBenchmarkRunner(cfg *config.Config, logger *slog.Logger, verbose bool) (*BenchmarkRunner, error) {
	client, err := llm.NewOpenAIClientWithConfig(llm.ConfigFrom(cfg, cfg.MaxRetries))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}
	return NewRunner(client, client, core.OptionsFromConfig(cfg, logger), os.Stdout, verbose), nil
}

// NewRunner creates a runner over arbitrary model collaborators
func NewRunner(embedder core.Embedder, gen core.Generator, opts core.Options, out io.Writer, verbose bool) *BenchmarkRunner {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &BenchmarkRunner{
		embedder:  embedder,
		generator: gen,
		opts:      opts,
		metrics:   NewMetricsCalculator(),
		logger:    logger,
		out:       out,
		verbose:   verbose,
	}
}

// RunTest executes a single benchmark test
func (r *BenchmarkRunner) RunTest(ctx context.Context, scenario TestScenario) (TestResult, error) {
	if r.verbose {
		fmt.Fprintf(r.out, "\n========================================\n")
		fmt.Fprintf(r.out, "RUNNING: %s\n", scenario.Name)
		fmt.Fprintf(r.out, "========================================\n")
		fmt.Fprintf(r.out, "Description: %s\n\n", scenario.Description)
	}

	store, err := r.indexCorpus(ctx, scenario)
	if err != nil {
		return TestResult{}, fmt.Errorf("setup failed: %w", err)
	}
	pipeline := core.NewPipeline(r.embedder, r.generator, store, r.opts)

	var history []models.ConversationTurn
	var finalResponse, mode string
	var retrievedContext []string

	for _, turn := range scenario.Turns {
		if turn.Delay > 0 {
			select {
			case <-time.After(turn.Delay):
			case <-ctx.Done():
				return TestResult{}, ctx.Err()
			}
		}

		if r.verbose {
			fmt.Fprintf(r.out, "[Turn %d] User: %s\n", turn.TurnNumber, turn.Question)
		}

		resp := pipeline.Answer(ctx, core.Request{Question: turn.Question, History: history})

		if r.verbose {
			fmt.Fprintf(r.out, "[Turn %d] FK-Guiden: %s\n\n", turn.TurnNumber, clip(resp.Answer.Text, 150))
		}

		history = append(history,
			models.ConversationTurn{Role: models.RoleUser, Content: turn.Question},
			models.ConversationTurn{Role: models.RoleAssistant, Content: resp.Answer.Text},
		)

		if turn.TurnNumber == scenario.GroundTruth.FinalQueryTurn {
			finalResponse = resp.Answer.Text
			mode, retrievedContext = describe(resp)
		}
	}

	result := r.metrics.EvaluateTest(scenario, finalResponse, retrievedContext, mode)

	if r.verbose {
		fmt.Fprintf(r.out, "\n========================================\n")
		fmt.Fprintf(r.out, "RESULTS: %s\n", scenario.Name)
		fmt.Fprintf(r.out, "========================================\n")
		fmt.Fprintf(r.out, "Faithfulness: %.2f\n", result.FaithfulnessScore)
		fmt.Fprintf(r.out, "Context Recall: %.2f\n", result.ContextRecallScore)
		fmt.Fprintf(r.out, "Overall Score: %.2f\n", result.OverallScore)
		fmt.Fprintf(r.out, "Mode: %s\n", result.Mode)
		fmt.Fprintf(r.out, "Status: %s\n", result.Status)
		fmt.Fprintf(r.out, "========================================\n\n")
	}

	return result, nil
}

// indexCorpus writes the scenario documents to a temporary directory and
// indexes them into a fresh memory store
func (r *BenchmarkRunner) indexCorpus(ctx context.Context, scenario TestScenario) (*storage.MemoryStore, error) {
	store, err := storage.NewMemoryStore(nil)
	if err != nil {
		return nil, err
	}
	if len(scenario.Corpus) == 0 {
		return store, nil
	}

	dir, err := os.MkdirTemp("", "fkguiden_bench_"+scenario.ID+"_")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	for _, doc := range scenario.Corpus {
		if err := os.WriteFile(filepath.Join(dir, doc.Name), []byte(doc.Text), 0o600); err != nil {
			return nil, fmt.Errorf("writing %s: %w", doc.Name, err)
		}
	}

	ix := indexer.New(r.embedder, store, indexer.Options{Logger: r.logger})
	stats, err := ix.IndexDir(ctx, dir)
	if err != nil {
		return nil, err
	}
	if r.verbose {
		fmt.Fprintf(r.out, "✓ Indexed %d chunk(s) from %d document(s)\n", stats.Indexed, stats.Files)
	}
	return store, nil
}

// describe returns the grounding mode and retrieved passages of a response
func describe(resp core.Response) (string, []string) {
	if resp.Retrieval == nil {
		return ModeSmalltalk, nil
	}
	return string(resp.Retrieval.Mode()), models.Texts(resp.Retrieval.Chunks)
}

// RunAllTests executes all benchmark tests
func (r *BenchmarkRunner) RunAllTests(ctx context.Context) ([]TestResult, error) {
	scenarios := GetAllTests()
	results := make([]TestResult, 0, len(scenarios))

	for _, scenario := range scenarios {
		result, err := r.RunTest(ctx, scenario)
		if err != nil {
			return nil, fmt.Errorf("test %s failed: %w", scenario.ID, err)
		}
		results = append(results, result)
	}

	return results, nil
}

// Summary is the exported benchmark report
type Summary struct {
	Timestamp  string       `json:"timestamp"`
	TotalTests int          `json:"total_tests"`
	Passed     int          `json:"passed"`
	Failed     int          `json:"failed"`
	Results    []TestResult `json:"results"`
}

// Summarize counts passed and failed results
func Summarize(results []TestResult) Summary {
	s := Summary{
		Timestamp:  time.Now().Format(time.RFC3339),
		TotalTests: len(results),
		Results:    results,
	}
	for _, result := range results {
		if result.Status == "PASS" {
			s.Passed++
		} else {
			s.Failed++
		}
	}
	return s
}

// ExportResults exports test results to JSON
func (r *BenchmarkRunner) ExportResults(results []TestResult, outputPath string) error {
	jsonData, err := json.MarshalIndent(Summarize(results), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}

	if err := os.WriteFile(outputPath, jsonData, 0o644); err != nil {
		return fmt.Errorf("failed to write results file: %w", err)
	}

	fmt.Fprintf(r.out, "✓ Results exported to: %s\n", outputPath)
	return nil
}
