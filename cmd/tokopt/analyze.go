package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"tokopt/internal/config"
	"tokopt/internal/engine"
	"tokopt/internal/logging"
	"tokopt/internal/manager"
	"tokopt/internal/telemetry"
)

var (
	analyzeForce  bool
	analyzeSync   bool
	analyzeQuiet  bool
	analyzeFormat string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Analyze the project or a single file",
	Long: `Analyze every source file under the project root, skipping files whose
content has not changed since the last run. With a file argument, only that
file is analyzed and the resulting entry is printed.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeForce, "force", false, "Re-analyze every file, ignoring stored hashes")
	analyzeCmd.Flags().BoolVar(&analyzeSync, "sync", false, "Process files one at a time instead of in parallel")
	analyzeCmd.Flags().BoolVarP(&analyzeQuiet, "quiet", "q", false, "Suppress per-file progress output")
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "human", "Output format (json, human)")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) {
	root := mustGetProjectRoot()
	cfg := mustLoadConfig(root)
	logger := newLogger(cfg, analyzeFormat)
	mgr := mustGetManager(root, cfg, logger)
	ctx := newContext()

	if len(args) == 1 {
		runAnalyzeFile(mgr, args[0])
		return
	}

	var progress chan engine.Progress
	var wg sync.WaitGroup
	if !analyzeQuiet && analyzeFormat == "human" {
		progress = make(chan engine.Progress, 64)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range progress {
				fmt.Fprintf(os.Stderr, "\r[%d/%d] %.0f%% %s\033[K",
					p.Processed, p.Total, p.Percentage, p.CurrentFile)
			}
			fmt.Fprintln(os.Stderr)
		}()
	}

	result, err := mgr.AnalyzeProject(ctx, manager.AnalyzeOptions{
		Force:    analyzeForce,
		Parallel: !analyzeSync,
		Progress: progressSender(progress),
	})
	wg.Wait()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error analyzing project: %v\n", err)
		os.Exit(1)
	}

	recordRun(root, cfg, logger, "analyze", result)
	printResult(result, analyzeFormat)
	if len(result.Errors) > 0 {
		os.Exit(2)
	}
}

// progressSender keeps the nil-channel semantics intact: a nil chan must be
// passed as a typed nil send-only channel, not wrapped.
func progressSender(ch chan engine.Progress) chan<- engine.Progress {
	if ch == nil {
		return nil
	}
	return ch
}

func runAnalyzeFile(mgr *manager.Manager, path string) {
	entry, err := mgr.AnalyzeFile(newContext(), path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error analyzing %s: %v\n", path, err)
		os.Exit(1)
	}
	if err := mgr.Persist(); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving cache: %v\n", err)
		os.Exit(1)
	}

	output, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(output))
}

// printResult writes a batch result in the requested format.
func printResult(result *engine.Result, format string) {
	if format == "json" {
		output, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(output))
		return
	}

	fmt.Printf("Batch %s: %d processed, %d added, %d updated, %d errors in %s\n",
		result.BatchID, result.Processed, result.Added, result.Updated,
		len(result.Errors), result.Duration.Round(time.Millisecond))
	for _, e := range result.Errors {
		fmt.Printf("  error: %s\n", e)
	}
}

// recordRun persists run metrics when telemetry is enabled. Metric failures
// are logged, never fatal.
func recordRun(root string, cfg *config.Config, logger *logging.Logger, command string, result *engine.Result) {
	if !cfg.Telemetry.Enabled || result == nil {
		return
	}
	store, err := telemetry.Open(cfg.TelemetryDbPath(root), logger)
	if err != nil {
		logger.Warn("cannot open metrics database", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	defer store.Close()

	if err := store.RecordRun(telemetry.RunRecord{
		RunID:      result.BatchID,
		Command:    command,
		FilesTotal: result.Processed,
		Processed:  result.Processed,
		Added:      result.Added,
		Updated:    result.Updated,
		Errors:     len(result.Errors),
		DurationMs: result.Duration.Milliseconds(),
	}); err != nil {
		logger.Warn("cannot record run metrics", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
