// Package paths canonicalizes file path spellings into cache keys.
//
// Every logical file must map to exactly one canonical key no matter how a
// caller spells its path (absolute, relative, dot-relative, or prefixed with
// the project directory name). A canonical key always starts with "./", uses
// forward slashes, and is relative to the project root.
package paths

import (
	gopath "path"
	"path/filepath"
	"strings"
)

// RelativeMarker prefixes every canonical key.
const RelativeMarker = "./"

// sourceRootMarker is the well-known segment used to recover a repo-relative
// path from an absolute path that does not lie under the configured root
// (e.g. the cache was built from a different working directory).
const sourceRootMarker = "src"

// Canonicalize converts any spelling of a path into its canonical cache key.
// It is a pure function of (root, path) and never fails: the worst case is
// the cleaned input prefixed with the relative marker.
func Canonicalize(root, path string) string {
	cleaned := clean(path)
	cleanedRoot := clean(root)

	if isAbs(cleaned) {
		if cleanedRoot != "" && isAbs(cleanedRoot) {
			if rel, ok := relativeTo(cleanedRoot, cleaned); ok {
				return RelativeMarker + rel
			}
		}
		if tail, ok := markerTail(cleaned); ok {
			return RelativeMarker + tail
		}
		// Absolute path outside the root with no recognizable source
		// marker: keep the tail after the leading separator.
		return RelativeMarker + strings.TrimPrefix(cleaned, "/")
	}

	return RelativeMarker + strings.TrimPrefix(cleaned, "./")
}

// Match reports whether candidate denotes the same file as the stored
// canonical key. It tries, in order: exact equality after canonical-style
// normalization of the candidate, equality after stripping the relative
// marker from both sides, and suffix equality from the source-root marker
// inside either string.
func Match(canonicalKey, candidate string) bool {
	cleaned := clean(candidate)

	// (a) exact equality after normalizing the candidate
	if RelativeMarker+strings.TrimPrefix(cleaned, "./") == canonicalKey {
		return true
	}

	// (b) equality after stripping the relative marker from both sides
	keyBody := strings.TrimPrefix(canonicalKey, RelativeMarker)
	candBody := strings.TrimPrefix(cleaned, "./")
	if keyBody == candBody {
		return true
	}

	// (c) suffix equality from the source-root marker
	keyTail, keyOk := markerTail(keyBody)
	candTail, candOk := markerTail(candBody)
	switch {
	case keyOk && candOk:
		return keyTail == candTail
	case keyOk:
		return keyTail == candBody
	case candOk:
		return candTail == keyBody
	}

	return false
}

// MatchAll returns every stored key that Match accepts for candidate, in the
// order given. Callers that must not guess between ambiguous suffix matches
// use this to detect when more than one key is plausible.
func MatchAll(keys []string, candidate string) []string {
	var matched []string
	for _, key := range keys {
		if Match(key, candidate) {
			matched = append(matched, key)
		}
	}
	return matched
}

// clean normalizes separators and resolves "." and ".." segments without
// touching the filesystem.
func clean(p string) string {
	if p == "" {
		return ""
	}
	slashed := filepath.ToSlash(p)
	cleaned := gopath.Clean(slashed)
	if cleaned == "." {
		return ""
	}
	return cleaned
}

// isAbs treats both Unix-style and drive-letter paths as absolute.
func isAbs(p string) bool {
	if strings.HasPrefix(p, "/") {
		return true
	}
	return len(p) >= 3 && p[1] == ':' && p[2] == '/'
}

// relativeTo returns path relative to root when path lies under root.
func relativeTo(root, path string) (string, bool) {
	if path == root {
		return "", false
	}
	prefix := root
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	if strings.HasPrefix(path, prefix) {
		return path[len(prefix):], true
	}
	return "", false
}

// markerTail locates the source-root marker segment inside p and returns
// everything from the marker on.
func markerTail(p string) (string, bool) {
	segments := strings.Split(strings.TrimPrefix(p, "/"), "/")
	for i, seg := range segments {
		if seg == sourceRootMarker {
			return strings.Join(segments[i:], "/"), true
		}
	}
	return "", false
}
