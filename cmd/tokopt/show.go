package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tokopt/internal/cache"
	"tokopt/internal/errors"
)

var showFormat string

var showCmd = &cobra.Command{
	Use:   "show <file>",
	Short: "Show the cache entry for a file",
	Long: `Look up the cache entry for a file. The argument may be project-relative,
absolute, or a trailing path fragment under the source root; an ambiguous
fragment lists its candidates.`,
	Args: cobra.ExactArgs(1),
	Run:  runShow,
}

func init() {
	showCmd.Flags().StringVar(&showFormat, "format", "json", "Output format (json, human)")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) {
	root := mustGetProjectRoot()
	cfg := mustLoadConfig(root)
	logger := newLogger(cfg, showFormat)
	mgr := mustGetManager(root, cfg, logger)

	key, entry, err := mgr.GetEntry(args[0])
	if err != nil {
		if ce, ok := err.(*errors.CacheError); ok && ce.Code == errors.EntryAmbiguous {
			fmt.Fprintf(os.Stderr, "Error: %s\n", ce.Message)
			if details, ok := ce.Details.(map[string]interface{}); ok {
				if candidates, ok := details["candidates"].([]string); ok {
					for _, c := range candidates {
						fmt.Fprintf(os.Stderr, "  candidate: %s\n", c)
					}
				}
			}
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if showFormat == "human" {
		printEntryHuman(key, entry)
		return
	}

	output, err := json.MarshalIndent(map[string]interface{}{
		"key":   key,
		"entry": entry,
	}, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(output))
}

func printEntryHuman(key string, entry *cache.Entry) {
	fmt.Printf("%s\n", key)
	fmt.Printf("  hash:       %s\n", entry.FileHash)
	fmt.Printf("  analyzed:   %s\n", entry.LastAnalyzed)
	fmt.Printf("  kind:       %s\n", entry.Metadata.Kind)
	fmt.Printf("  lines:      %d\n", entry.Metadata.LineCount)
	fmt.Printf("  complexity: %s\n", entry.Metadata.Complexity)
	if len(entry.Dependencies) > 0 {
		fmt.Printf("  depends on: %v\n", entry.Dependencies)
	}
	if len(entry.Dependents) > 0 {
		fmt.Printf("  needed by:  %v\n", entry.Dependents)
	}
	for _, c := range entry.ChangeLog {
		fmt.Printf("  %s %s (%d lines, %s impact)\n",
			c.Timestamp.Format("2006-01-02 15:04"), c.Type, c.LinesChanged, c.Impact)
	}
}
