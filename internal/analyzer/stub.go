//go:build !cgo

package analyzer

import (
	"context"
	"path/filepath"
	"strings"

	"tokopt/internal/errors"
)

// TreeSitter is a stub for non-CGO builds; Analyze always fails.
type TreeSitter struct{}

// NewTreeSitter creates the stub analyzer.
func NewTreeSitter() *TreeSitter {
	return &TreeSitter{}
}

// Supports reports whether the plugin has a grammar for the file.
func (t *TreeSitter) Supports(path string) bool {
	_, ok := LanguageFromExtension(strings.ToLower(filepath.Ext(path)))
	return ok
}

// Analyze returns an error: tree-sitter extraction requires CGO.
func (t *TreeSitter) Analyze(ctx context.Context, path string, content []byte) (*Result, error) {
	return nil, errors.New(errors.AnalysisFailed,
		"built-in analyzer requires CGO (tree-sitter)", nil)
}

// Available reports whether the built-in analyzer is usable in this build.
func Available() bool {
	return false
}
