package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"tokopt/internal/config"
	"tokopt/internal/project"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize tokopt for a project",
	Long:  "Create the .tokopt state directory with a default configuration.",
	Run:   runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) {
	root := mustGetProjectRoot()

	configPath := filepath.Join(root, ".tokopt", "config.json")
	if _, err := os.Stat(configPath); err == nil {
		fmt.Printf("Already initialized: %s\n", configPath)
		return
	}

	cfg := config.DefaultConfig()
	if err := cfg.Save(root); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing config: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Initialized tokopt in %s\n", filepath.Join(root, ".tokopt"))

	manifests, err := project.Detect(root)
	if err != nil || len(manifests) == 0 {
		return
	}
	fmt.Printf("Detected project language: %s\n", project.PrimaryLanguage(manifests))
	for _, m := range manifests {
		rel, relErr := filepath.Rel(root, m.Path)
		if relErr != nil {
			rel = m.Path
		}
		if m.Name != "" {
			fmt.Printf("  %s (%s %s)\n", rel, m.Name, m.Version)
		} else {
			fmt.Printf("  %s\n", rel)
		}
	}
}
