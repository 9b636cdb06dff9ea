package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Drop cache entries for deleted files",
	Run:   runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) {
	root := mustGetProjectRoot()
	cfg := mustLoadConfig(root)
	logger := newLogger(cfg, "")
	mgr := mustGetManager(root, cfg, logger)

	removed, err := mgr.Clean()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error cleaning cache: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Removed %d stale entries\n", removed)
}
