package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"tokopt/internal/analyzer"
	"tokopt/internal/cache"
	"tokopt/internal/config"
	"tokopt/internal/errors"
	"tokopt/internal/logging"
	"tokopt/internal/manager"
)

// getProjectRoot returns the project root directory.
func getProjectRoot() (string, error) {
	if rootFlag != "" {
		return filepath.Abs(rootFlag)
	}
	return os.Getwd()
}

// mustGetProjectRoot returns the project root or exits on error.
func mustGetProjectRoot() string {
	root, err := getProjectRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return root
}

// mustLoadConfig loads and validates the project configuration or exits on
// error.
func mustLoadConfig(root string) *config.Config {
	cfg, err := config.LoadConfig(root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// newLogger creates a logger from the logging section of the config, with an
// optional per-command format override.
func newLogger(cfg *config.Config, formatOverride string) *logging.Logger {
	format := cfg.Logging.Format
	if formatOverride != "" {
		format = formatOverride
	}
	return logging.NewLogger(logging.Config{
		Format: logging.ParseFormat(format),
		Level:  logging.ParseLevel(cfg.Logging.Level),
	})
}

// mustGetManager loads the cache document and wires up a manager. A corrupt
// document is reported and replaced with an empty store instead of blocking
// every command.
func mustGetManager(root string, cfg *config.Config, logger *logging.Logger) *manager.Manager {
	cachePath := cfg.CachePath(root)
	store, err := cache.Load(cachePath)
	if err != nil {
		if errors.CodeOf(err) == errors.CacheCorrupt {
			logger.Warn("cache document is corrupt, starting empty", map[string]interface{}{
				"path":  cachePath,
				"error": err.Error(),
			})
			store = cache.NewStore()
		} else {
			fmt.Fprintf(os.Stderr, "Error loading cache: %v\n", err)
			os.Exit(1)
		}
	}

	return manager.New(root, store, analyzer.NewTreeSitter(), logger, manager.Options{
		CachePath: cachePath,
		Excludes:  cfg.Analysis.Excludes,
		ChunkSize: cfg.Analysis.ChunkSize,
		Workers:   cfg.Analysis.Workers,
	})
}

// newContext creates a new context for command execution.
func newContext() context.Context {
	return context.Background()
}
