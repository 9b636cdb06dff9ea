package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"tokopt/internal/analyzer"
	"tokopt/internal/cache"
	"tokopt/internal/project"
	"tokopt/internal/telemetry"
	"tokopt/internal/version"
)

var statusFormat string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cache and project status",
	Long:  "Display cache statistics, detected project manifests, and recent run metrics.",
	Run:   runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusFormat, "format", "human", "Output format (json, human)")
	rootCmd.AddCommand(statusCmd)
}

// StatusResponse contains the complete status for CLI output
type StatusResponse struct {
	Version           string                  `json:"version"`
	ProjectRoot       string                  `json:"projectRoot"`
	AnalyzerAvailable bool                    `json:"analyzerAvailable"`
	Cache             cache.Stats             `json:"cache"`
	CacheVersion      string                  `json:"cacheVersion"`
	Manifests         []project.Manifest      `json:"manifests,omitempty"`
	Runs              *telemetry.RunRecord    `json:"lastRun,omitempty"`
	RunAggregate      *telemetry.RunAggregate `json:"runsLast7Days,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) {
	root := mustGetProjectRoot()
	cfg := mustLoadConfig(root)
	logger := newLogger(cfg, statusFormat)
	mgr := mustGetManager(root, cfg, logger)

	response := &StatusResponse{
		Version:           version.Version,
		ProjectRoot:       root,
		AnalyzerAvailable: analyzer.Available(),
		Cache:             mgr.Stats(),
		CacheVersion:      mgr.Store().Version(),
	}

	if manifests, err := project.Detect(root); err == nil {
		response.Manifests = manifests
	}

	if cfg.Telemetry.Enabled {
		if store, err := telemetry.Open(cfg.TelemetryDbPath(root), logger); err == nil {
			if recent, err := store.RecentRuns(1); err == nil && len(recent) > 0 {
				response.Runs = &recent[0]
			}
			if agg, err := store.Aggregate(time.Now().AddDate(0, 0, -7)); err == nil {
				response.RunAggregate = agg
			}
			store.Close()
		}
	}

	if statusFormat == "json" {
		output, err := json.MarshalIndent(response, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(output))
		return
	}

	fmt.Printf("tokopt %s\n", response.Version)
	fmt.Printf("Project root:  %s\n", response.ProjectRoot)
	fmt.Printf("Analyzer:      available=%v\n", response.AnalyzerAvailable)
	fmt.Printf("Cache:         %d entries (format %s)\n", response.Cache.TotalEntries, response.CacheVersion)
	if !response.Cache.LastUpdated.IsZero() {
		fmt.Printf("Last updated:  %s\n", response.Cache.LastUpdated.Format(time.RFC3339))
	}
	if response.Cache.TotalEntries > 0 {
		fmt.Printf("Analyzed span: %s .. %s\n",
			response.Cache.OldestAnalyzed.Format(time.RFC3339),
			response.Cache.NewestAnalyzed.Format(time.RFC3339))
	}
	for _, m := range response.Manifests {
		fmt.Printf("Manifest:      %s (%s)\n", m.Path, m.Language)
	}
	if response.Runs != nil {
		fmt.Printf("Last run:      %s processed=%d errors=%d (%dms)\n",
			response.Runs.Command, response.Runs.Processed,
			response.Runs.Errors, response.Runs.DurationMs)
	}
	if response.RunAggregate != nil && response.RunAggregate.RunCount > 0 {
		fmt.Printf("Last 7 days:   %d runs, %d files, avg %.0fms\n",
			response.RunAggregate.RunCount, response.RunAggregate.TotalProcessed,
			response.RunAggregate.AvgLatencyMs())
	}
}
