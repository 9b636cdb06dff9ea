package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tokopt/internal/cache"
)

var snapshotRestore bool

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Save or restore a compressed cache snapshot",
	Long: `Write a gzip-compressed snapshot of the cache document, or with --restore
replace the live cache with a previously written snapshot.`,
	Run: runSnapshot,
}

func init() {
	snapshotCmd.Flags().BoolVar(&snapshotRestore, "restore", false, "Restore the cache from the snapshot")
	rootCmd.AddCommand(snapshotCmd)
}

func runSnapshot(cmd *cobra.Command, args []string) {
	root := mustGetProjectRoot()
	cfg := mustLoadConfig(root)
	logger := newLogger(cfg, "")
	snapshotPath := cfg.SnapshotPath(root)

	if snapshotRestore {
		store, err := cache.ReadSnapshot(snapshotPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading snapshot: %v\n", err)
			os.Exit(1)
		}
		if err := store.Save(cfg.CachePath(root)); err != nil {
			fmt.Fprintf(os.Stderr, "Error restoring cache: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Restored %d entries from %s\n", store.Len(), snapshotPath)
		return
	}

	mgr := mustGetManager(root, cfg, logger)
	if err := mgr.Store().WriteSnapshot(snapshotPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing snapshot: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %d entries to %s\n", mgr.Store().Len(), snapshotPath)
}
