// Package manager ties file enumeration, staleness checks, analysis, and the
// persistent store together into the operations the CLI exposes.
package manager

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"tokopt/internal/analyzer"
	"tokopt/internal/cache"
	"tokopt/internal/engine"
	"tokopt/internal/errors"
	"tokopt/internal/hashing"
	"tokopt/internal/logging"
	"tokopt/internal/paths"
)

// StateDirName is the per-project directory holding all tool state.
const StateDirName = ".tokopt"

// DefaultCachePath returns the cache document location for a project root.
func DefaultCachePath(root string) string {
	return filepath.Join(root, StateDirName, "analysis-cache.json")
}

// Options tunes a Manager. Zero values fall back to defaults.
type Options struct {
	CachePath string
	Excludes  []string
	ChunkSize int
	Workers   int
}

// AnalyzeOptions controls one project analysis pass.
type AnalyzeOptions struct {
	// Force re-analyzes every file, bypassing the staleness check.
	Force bool
	// Parallel runs files through the worker pool; otherwise files are
	// processed one at a time.
	Parallel bool
	// Progress, if non-nil, receives one tick per completed file and is
	// closed when the pass ends.
	Progress chan<- engine.Progress
}

// Manager is the orchestrating facade over one project's analysis cache.
type Manager struct {
	root     string
	store    *cache.Store
	analyzer analyzer.Analyzer
	logger   *logging.Logger
	opts     Options
}

// New creates a manager for the project at root.
func New(root string, store *cache.Store, port analyzer.Analyzer, logger *logging.Logger, opts Options) *Manager {
	if opts.CachePath == "" {
		opts.CachePath = DefaultCachePath(root)
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = engine.DefaultChunkSize
	}
	return &Manager{
		root:     root,
		store:    store,
		analyzer: port,
		logger:   logger,
		opts:     opts,
	}
}

// Root returns the project root the manager operates on.
func (m *Manager) Root() string { return m.root }

// Store exposes the underlying store for read access.
func (m *Manager) Store() *cache.Store { return m.store }

// CachePath returns where the cache document is persisted.
func (m *Manager) CachePath() string { return m.opts.CachePath }

// Key canonicalizes any project-relative or absolute path into the store key
// used for that file.
func (m *Manager) Key(path string) string {
	return paths.Canonicalize(m.root, path)
}

// onDiskPath maps a canonical key back to a filesystem path under root.
func (m *Manager) onDiskPath(key string) string {
	rel := filepath.FromSlash(trimMarker(key))
	return filepath.Join(m.root, rel)
}

func trimMarker(key string) string {
	if len(key) >= len(paths.RelativeMarker) && key[:len(paths.RelativeMarker)] == paths.RelativeMarker {
		return key[len(paths.RelativeMarker):]
	}
	return key
}

// AnalyzeFile analyzes one file and writes the resulting entry into the
// store. An existing entry keeps its dependency edges and gains a change-log
// line when the content hash moved; a new entry starts its log with a
// creation line. The store is not persisted here.
func (m *Manager) AnalyzeFile(ctx context.Context, path string) (*cache.Entry, error) {
	_, entry, err := m.analyzeAndStore(ctx, path)
	return entry, err
}

func (m *Manager) analyzeAndStore(ctx context.Context, path string) (string, *cache.Entry, error) {
	key := m.Key(path)
	abs := path
	if !filepath.IsAbs(abs) {
		abs = m.onDiskPath(key)
	}

	if !m.analyzer.Supports(abs) {
		return key, nil, errors.New(errors.AnalysisFailed,
			fmt.Sprintf("no analyzer for %s", path), nil)
	}

	content, err := os.ReadFile(abs)
	if err != nil {
		return key, nil, errors.New(errors.FileUnreadable,
			fmt.Sprintf("cannot read %s", path), err)
	}
	hash := hashing.HashBytes(content)

	result, err := m.analyzer.Analyze(ctx, abs, content)
	if err != nil {
		return key, nil, err
	}

	now := time.Now().UTC()
	entry := &cache.Entry{
		FileHash:     hash,
		LastAnalyzed: now,
		Summary:      result.Summary,
		Metadata:     result.Metadata,
	}

	if prev, existed := m.store.Get(key); existed {
		entry.Dependencies = prev.Dependencies
		entry.Dependents = prev.Dependents
		entry.ChangeLog = prev.ChangeLog
		if prev.FileHash != hash {
			changed := entry.Metadata.LineCount - prev.Metadata.LineCount
			if changed < 0 {
				changed = -changed
			}
			entry.AppendChange(cache.ChangeLogEntry{
				Timestamp:    now,
				Type:         cache.ChangeModified,
				Description:  "content changed since last analysis",
				LinesChanged: changed,
				Impact:       impactFor(changed, entry.Metadata.LineCount),
			})
		}
	} else {
		entry.AppendChange(cache.ChangeLogEntry{
			Timestamp:    now,
			Type:         cache.ChangeCreated,
			Description:  "initial analysis",
			LinesChanged: entry.Metadata.LineCount,
			Impact:       cache.ImpactLow,
		})
	}

	m.store.Set(key, entry)
	return key, entry.Clone(), nil
}

// impactFor buckets a modification by how much of the file it touched.
func impactFor(linesChanged, lineCount int) cache.ImpactLevel {
	if linesChanged == 0 {
		return cache.ImpactLow
	}
	if lineCount <= 0 {
		return cache.ImpactMedium
	}
	ratio := float64(linesChanged) / float64(lineCount)
	switch {
	case ratio > 0.5:
		return cache.ImpactHigh
	case ratio > 0.1:
		return cache.ImpactMedium
	default:
		return cache.ImpactLow
	}
}

// EnumerateFiles walks the project and returns the absolute paths of every
// analyzable file, with the ignore policy and configured excludes applied.
// The result is sorted for deterministic batches.
func (m *Manager) EnumerateFiles() ([]string, error) {
	var files []string
	err := filepath.WalkDir(m.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// An unreadable root means there is no project to walk.
			if path == m.root {
				return err
			}
			// Unreadable subdirectories are skipped, not fatal.
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(m.root, path)
		if relErr != nil || rel == "." {
			return nil
		}
		if IsIgnored(rel) || matchesExcludes(rel, m.opts.Excludes) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !m.analyzer.Supports(path) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, errors.New(errors.FileUnreadable,
			fmt.Sprintf("cannot enumerate %s", m.root), err)
	}
	sort.Strings(files)
	return files, nil
}

// AnalyzeProject analyzes every analyzable file under the root. Files whose
// stored hash still matches on-disk content are skipped unless Force is set.
// The cache document is persisted exactly once, after the whole pass.
func (m *Manager) AnalyzeProject(ctx context.Context, opts AnalyzeOptions) (*engine.Result, error) {
	files, err := m.EnumerateFiles()
	if err != nil {
		if opts.Progress != nil {
			close(opts.Progress)
		}
		return nil, err
	}

	queue := files
	skipped := 0
	if !opts.Force {
		queue = queue[:0:0]
		for _, f := range files {
			upToDate, err := m.store.IsUpToDate(m.Key(f), f)
			if err == nil && upToDate {
				skipped++
				continue
			}
			queue = append(queue, f)
		}
	}
	m.logger.Info("project analysis pass", map[string]interface{}{
		"root":    m.root,
		"files":   len(files),
		"stale":   len(queue),
		"skipped": skipped,
		"force":   opts.Force,
	})

	workers := m.opts.Workers
	if !opts.Parallel {
		workers = 1
	}
	eng := engine.New(m.store, m.opts.CachePath, m.opts.ChunkSize, workers, m.logger)
	task := func(ctx context.Context, path string) (string, error) {
		key, _, err := m.analyzeAndStore(ctx, path)
		return key, err
	}
	return eng.Run(ctx, queue, task, opts.Progress)
}

// Rebuild discards every entry and re-analyzes the whole project.
func (m *Manager) Rebuild(ctx context.Context, progress chan<- engine.Progress) (*engine.Result, error) {
	m.store.Clear()
	return m.AnalyzeProject(ctx, AnalyzeOptions{
		Force:    true,
		Parallel: true,
		Progress: progress,
	})
}

// Clean drops entries whose backing files no longer exist and persists the
// store if anything was removed. It returns the number of entries dropped.
func (m *Manager) Clean() (int, error) {
	removed := m.store.PruneDeleted(m.root)
	if removed == 0 {
		return 0, nil
	}
	m.logger.Info("pruned deleted files", map[string]interface{}{
		"root":    m.root,
		"removed": removed,
	})
	if err := m.store.Save(m.opts.CachePath); err != nil {
		return removed, err
	}
	return removed, nil
}

// GetEntry resolves lookup to a cache entry. Exact canonical keys win; a
// lookup written differently (absolute, missing the "./" marker, or a
// source-root suffix) falls back to key matching. A lookup matching more
// than one entry is an error carrying the candidates.
func (m *Manager) GetEntry(lookup string) (string, *cache.Entry, error) {
	key := m.Key(lookup)
	if entry, ok := m.store.Get(key); ok {
		return key, entry, nil
	}

	matches := paths.MatchAll(m.store.Keys(), lookup)
	switch len(matches) {
	case 0:
		return "", nil, errors.New(errors.EntryNotFound,
			fmt.Sprintf("no cache entry matches %s", lookup), nil)
	case 1:
		entry, _ := m.store.Get(matches[0])
		return matches[0], entry, nil
	default:
		return "", nil, errors.New(errors.EntryAmbiguous,
			fmt.Sprintf("%s matches %d cache entries", lookup, len(matches)), nil).
			WithDetails(map[string]interface{}{"candidates": matches})
	}
}

// SetDependencies records dependency edges for the entry matching lookup.
func (m *Manager) SetDependencies(lookup string, dependencies, dependents []string) error {
	key, _, err := m.GetEntry(lookup)
	if err != nil {
		return err
	}
	return m.store.SetDependencies(key, dependencies, dependents)
}

// Persist writes the cache document to its configured location.
func (m *Manager) Persist() error {
	return m.store.Save(m.opts.CachePath)
}

// Stats aggregates over the current store contents.
func (m *Manager) Stats() cache.Stats {
	return m.store.Stats()
}
