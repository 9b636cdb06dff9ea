package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rebuildFormat string

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Discard the cache and re-analyze everything",
	Run:   runRebuild,
}

func init() {
	rebuildCmd.Flags().StringVar(&rebuildFormat, "format", "human", "Output format (json, human)")
	rootCmd.AddCommand(rebuildCmd)
}

func runRebuild(cmd *cobra.Command, args []string) {
	root := mustGetProjectRoot()
	cfg := mustLoadConfig(root)
	logger := newLogger(cfg, rebuildFormat)
	mgr := mustGetManager(root, cfg, logger)

	result, err := mgr.Rebuild(newContext(), nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error rebuilding cache: %v\n", err)
		os.Exit(1)
	}

	recordRun(root, cfg, logger, "rebuild", result)
	printResult(result, rebuildFormat)
	if len(result.Errors) > 0 {
		os.Exit(2)
	}
}
