// ABOUTME: Command-line benchmark runner for the FK-Guiden RAGAS scenarios
// ABOUTME: Executes scenarios against the configured models and outputs JSON results

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/harper/fkguiden/benchmarks/ragas"
	"github.com/harper/fkguiden/internal/config"
	"github.com/harper/fkguiden/internal/logging"
	"github.com/joho/godotenv"
)

func main() {
	// Command-line flags
	testID := flag.String("test", "", "Run specific test (basics, twins, scope, greeting). If empty, runs all tests.")
	outputPath := flag.String("output", "benchmark_results.json", "Output path for JSON results")
	configPath := flag.String("config", "", "YAML config file")
	verbose := flag.Bool("verbose", false, "Enable verbose output")
	flag.Parse()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found (continuing anyway): %v", err)
	}

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if cfg.OpenAIKey == "" {
		log.Fatal("OPENAI_API_KEY environment variable is required for benchmarks")
	}

	level := "warn"
	if *verbose {
		level = "debug"
	}
	logger := logging.Setup(level, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Print header
	fmt.Println("========================================")
	fmt.Println("FK-Guiden RAGAS Benchmarks")
	fmt.Println("========================================")
	fmt.Println()

	runner, err := ragas.NewBenchmarkRunner(cfg, logger, *verbose)
	if err != nil {
		log.Fatalf("Failed to create benchmark runner: %v", err)
	}

	var results []ragas.TestResult

	if *testID == "" {
		fmt.Println("Running all RAGAS benchmark tests...")
		fmt.Println()

		results, err = runner.RunAllTests(ctx)
		if err != nil {
			log.Fatalf("Benchmark failed: %v", err)
		}
	} else {
		scenario, ok := ragas.GetTest(strings.ToLower(*testID))
		if !ok {
			log.Fatalf("Unknown test ID: %s (valid options: basics, twins, scope, greeting)", *testID)
		}

		fmt.Printf("Running test: %s\n\n", scenario.Name)

		result, err := runner.RunTest(ctx, scenario)
		if err != nil {
			log.Fatalf("Test failed: %v", err)
		}

		results = []ragas.TestResult{result}
	}

	// Print summary
	fmt.Println("\n========================================")
	fmt.Println("BENCHMARK SUMMARY")
	fmt.Println("========================================")

	for _, result := range results {
		fmt.Printf("\n%s: %s\n", result.TestID, result.TestName)
		fmt.Printf("  Faithfulness: %.2f\n", result.FaithfulnessScore)
		fmt.Printf("  Context Recall: %.2f\n", result.ContextRecallScore)
		fmt.Printf("  Overall: %.2f\n", result.OverallScore)
		fmt.Printf("  Mode: %s\n", result.Mode)
		fmt.Printf("  Status: %s\n", result.Status)
	}

	summary := ragas.Summarize(results)
	fmt.Println("\n========================================")
	fmt.Printf("Total Tests: %d\n", summary.TotalTests)
	fmt.Printf("Passed: %d\n", summary.Passed)
	fmt.Printf("Failed: %d\n", summary.Failed)
	fmt.Println("========================================")

	if err := runner.ExportResults(results, *outputPath); err != nil {
		log.Fatalf("Failed to export results: %v", err)
	}

	// Exit with error code if any tests failed
	if summary.Failed > 0 {
		os.Exit(1)
	}
}
