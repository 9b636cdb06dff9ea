package manager

import (
	"path/filepath"
	"strings"
)

// Directory names excluded from enumeration: build output, VCS metadata,
// vendored dependencies, and the tool's own state directory.
var ignoredDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	".tokopt":      true,
	".cache":       true,
	".scip":        true,
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	"out":          true,
	"bin":          true,
	"coverage":     true,
	"__pycache__":  true,
}

// Suffixes of generated or minified artifacts that are never worth analyzing.
var ignoredSuffixes = []string{
	".min.js",
	".min.css",
	".map",
	".bundle.js",
}

// IsIgnored is the fixed ignore policy applied to candidate paths before
// enumeration. It is a pure predicate over the path string.
func IsIgnored(path string) bool {
	slashed := filepath.ToSlash(path)

	for _, segment := range strings.Split(slashed, "/") {
		if ignoredDirs[segment] {
			return true
		}
	}
	for _, suffix := range ignoredSuffixes {
		if strings.HasSuffix(slashed, suffix) {
			return true
		}
	}
	return false
}

// matchesExcludes applies the caller-configured exclude patterns on top of
// the fixed policy. Patterns match as globs or as directory prefixes.
func matchesExcludes(path string, excludes []string) bool {
	slashed := filepath.ToSlash(path)
	for _, pattern := range excludes {
		normalized := filepath.ToSlash(pattern)
		if matched, _ := filepath.Match(normalized, slashed); matched {
			return true
		}
		dirPattern := strings.TrimSuffix(normalized, "/") + "/"
		if strings.HasPrefix(slashed, dirPattern) {
			return true
		}
		if slashed == strings.TrimSuffix(normalized, "/") {
			return true
		}
	}
	return false
}
