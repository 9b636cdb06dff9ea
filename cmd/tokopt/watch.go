package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"tokopt/internal/manager"
	"tokopt/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the project and re-analyze on change",
	Long: `Poll the project tree for changes and re-analyze files as they are
created or modified. Entries for deleted files are pruned automatically.
Runs until interrupted.`,
	Run: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) {
	root := mustGetProjectRoot()
	cfg := mustLoadConfig(root)
	logger := newLogger(cfg, "")
	mgr := mustGetManager(root, cfg, logger)
	ctx := newContext()

	handler := func(events []watcher.Event) {
		deleted := 0
		for _, e := range events {
			if e.Type == watcher.EventDelete {
				deleted++
			}
		}
		if deleted > 0 {
			if _, err := mgr.Clean(); err != nil {
				logger.Warn("prune failed", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}

		result, err := mgr.AnalyzeProject(ctx, manager.AnalyzeOptions{Parallel: true})
		if err != nil {
			logger.Error("re-analysis failed", map[string]interface{}{
				"error": err.Error(),
			})
			return
		}
		if result.Processed > 0 || deleted > 0 {
			fmt.Printf("%s  %d analyzed, %d removed, %d errors\n",
				time.Now().Format("15:04:05"), result.Processed, deleted, len(result.Errors))
			recordRun(root, cfg, logger, "watch", result)
		}
	}

	w := watcher.New(watcher.Config{
		PollInterval: time.Duration(cfg.Watch.PollIntervalMs) * time.Millisecond,
		Debounce:     time.Duration(cfg.Watch.DebounceMs) * time.Millisecond,
	}, logger, mgr.EnumerateFiles, handler)

	// Bring the cache up to date before watching for deltas.
	if result, err := mgr.AnalyzeProject(ctx, manager.AnalyzeOptions{Parallel: true}); err != nil {
		fmt.Fprintf(os.Stderr, "Error on initial analysis: %v\n", err)
		os.Exit(1)
	} else {
		printResult(result, "human")
		recordRun(root, cfg, logger, "watch", result)
	}

	if err := w.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Error starting watcher: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Watching %s (poll every %dms, Ctrl-C to stop)\n", root, cfg.Watch.PollIntervalMs)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	w.Stop()
}
