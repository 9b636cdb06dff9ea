package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"tokopt/internal/export"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the cache as a SCIP index",
	Long: `Write a SCIP index built from cached analysis results, so editors and
code intelligence tools can consume them without re-running analysis.`,
	Run: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output path (default: .tokopt/index.scip)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) {
	root := mustGetProjectRoot()
	cfg := mustLoadConfig(root)
	logger := newLogger(cfg, "")
	mgr := mustGetManager(root, cfg, logger)

	outPath := exportOut
	if outPath == "" {
		outPath = filepath.Join(root, ".tokopt", "index.scip")
	}

	exported, err := export.Export(mgr.Store(), root, outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error exporting index: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Exported %d documents to %s\n", exported, outPath)
}
