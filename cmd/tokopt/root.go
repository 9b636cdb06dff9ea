package main

import (
	"tokopt/internal/version"

	"github.com/spf13/cobra"
)

var (
	// rootFlag is the CLI --root flag value
	rootFlag string
)

var rootCmd = &cobra.Command{
	Use:   "tokopt",
	Short: "tokopt - incremental codebase analysis cache",
	Long: `tokopt maintains a persistent per-file analysis cache for a codebase.
Files are re-analyzed only when their content hash changes, so repeated runs
over large projects touch only what actually moved. Results are stored under
the project's .tokopt directory and can be queried, rebuilt, and exported.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("tokopt version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&rootFlag, "root", "",
		"Project root directory (default: current directory)")
}
