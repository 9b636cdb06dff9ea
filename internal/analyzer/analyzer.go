// Package analyzer defines the extraction-plugin contract consumed by the
// cache core, plus the built-in tree-sitter implementation.
//
// The cache never inspects what an analyzer produces: Result.Summary travels
// through the store as an opaque payload. The concrete Summary schema below
// belongs to the built-in plugin; downstream consumers that understand it
// (e.g. the SCIP exporter) unmarshal it themselves.
package analyzer

import (
	"context"
	"encoding/json"
	"strings"

	"tokopt/internal/cache"
)

// Analyzer turns a file's raw content into an analysis result. It must be
// pure with respect to the cache, safe to call concurrently for different
// files, and fail fast on unparseable content.
type Analyzer interface {
	// Supports reports whether the plugin can analyze the file at path.
	// Unsupported files are skipped during enumeration, not errored.
	Supports(path string) bool

	Analyze(ctx context.Context, path string, content []byte) (*Result, error)
}

// Result pairs the opaque summary payload with the structural metadata the
// cache stores alongside it.
type Result struct {
	Summary  json.RawMessage
	Metadata cache.FileMetadata
}

// Summary is the built-in plugin's payload schema.
type Summary struct {
	Language  string     `json:"language"`
	Functions []Function `json:"functions,omitempty"`
	Classes   []Class    `json:"classes,omitempty"`
	Imports   []string   `json:"imports,omitempty"`
}

// Function describes one extracted function or method.
type Function struct {
	Name       string `json:"name"`
	Container  string `json:"container,omitempty"`
	Signature  string `json:"signature,omitempty"`
	StartLine  int    `json:"start_line"`
	EndLine    int    `json:"end_line"`
	Cyclomatic int    `json:"cyclomatic"`
}

// Class describes one extracted class, interface, or type declaration.
type Class struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
}

// detail is the opaque detailed-analysis payload stored in FileMetadata.
type detail struct {
	Language        string `json:"language"`
	FunctionCount   int    `json:"function_count"`
	ClassCount      int    `json:"class_count"`
	TotalCyclomatic int    `json:"total_cyclomatic"`
	MaxCyclomatic   int    `json:"max_cyclomatic"`
}

// DetectKind classifies a file by its name. The buckets follow common
// frontend/service naming conventions and degrade to "source".
func DetectKind(path string) string {
	lower := strings.ToLower(path)
	switch {
	case strings.Contains(lower, ".spec.") || strings.Contains(lower, ".test.") ||
		strings.HasSuffix(lower, "_test.go"):
		return "test"
	case strings.Contains(lower, ".service."):
		return "service"
	case strings.Contains(lower, ".component."):
		return "component"
	case strings.Contains(lower, ".module."):
		return "module"
	case strings.Contains(lower, ".pipe.") || strings.Contains(lower, ".directive."):
		return "component"
	case strings.Contains(lower, ".guard.") || strings.Contains(lower, ".interceptor."):
		return "service"
	default:
		return "source"
	}
}

// ComplexityBucket maps a file's total cyclomatic complexity onto the
// low/medium/high buckets stored in FileMetadata.
func ComplexityBucket(totalCyclomatic int) string {
	switch {
	case totalCyclomatic < 10:
		return "low"
	case totalCyclomatic < 25:
		return "medium"
	default:
		return "high"
	}
}

// CountLines returns the number of lines in content.
func CountLines(content []byte) int {
	if len(content) == 0 {
		return 0
	}
	lines := 1
	for _, b := range content {
		if b == '\n' {
			lines++
		}
	}
	if content[len(content)-1] == '\n' {
		lines--
	}
	return lines
}
