package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"tokopt/internal/errors"
	"tokopt/internal/hashing"
	"tokopt/internal/paths"
)

// Store is the in-memory analysis cache backed by a single JSON document.
// All access goes through the store's lock; methods hold it only for the
// duration of the map operation, never across file I/O on entry content.
type Store struct {
	mu          sync.RWMutex
	entries     map[string]*Entry
	lastUpdated time.Time
	version     string
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		entries: make(map[string]*Entry),
		version: CacheVersion,
	}
}

// Load reads the cache document at path. A missing document yields an empty
// store so that first runs succeed; a malformed document is a load failure
// the caller may treat as "start empty".
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewStore(), nil
		}
		return nil, errors.New(errors.FileUnreadable,
			fmt.Sprintf("cannot read cache document %s", path), err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.New(errors.CacheCorrupt,
			fmt.Sprintf("cannot decode cache document %s", path), err)
	}
	return fromDocument(doc, path)
}

// fromDocument builds a store from a decoded document. A JSON null inside the
// entries map decodes to a nil *Entry without an unmarshal error, so the map
// is checked here; such a document is corrupt, not merely empty.
func fromDocument(doc document, path string) (*Store, error) {
	for key, entry := range doc.Entries {
		if entry == nil {
			return nil, errors.New(errors.CacheCorrupt,
				fmt.Sprintf("cache document %s has a null entry for %s", path, key), nil)
		}
	}
	s := &Store{
		entries:     doc.Entries,
		lastUpdated: doc.LastUpdated,
		version:     doc.CacheVersion,
	}
	if s.entries == nil {
		s.entries = make(map[string]*Entry)
	}
	if s.version == "" {
		s.version = CacheVersion
	}
	return s, nil
}

// Save serializes the whole store to pretty JSON at path, creating parent
// directories as needed. The document is written to a temp file and renamed
// into place so a crash mid-write cannot truncate the previous version.
func (s *Store) Save(path string) error {
	s.mu.RLock()
	doc := document{
		Entries:      s.entries,
		LastUpdated:  s.lastUpdated,
		CacheVersion: s.version,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return errors.New(errors.InternalError, "cannot encode cache document", err)
	}
	data = append(data, '\n')

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.New(errors.CacheUnwritable,
				fmt.Sprintf("cannot create cache directory %s", dir), err)
		}
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return errors.New(errors.CacheUnwritable,
			fmt.Sprintf("cannot write cache document %s", path), err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return errors.New(errors.CacheUnwritable,
			fmt.Sprintf("cannot replace cache document %s", path), err)
	}
	return nil
}

// Get returns a copy of the entry for key, if present.
func (s *Store) Get(key string) (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	return entry.Clone(), true
}

// Set inserts or overwrites the entry for key and bumps last_updated.
func (s *Store) Set(key string, entry *Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry
	s.lastUpdated = time.Now().UTC()
}

// Remove deletes the entry for key and returns it.
func (s *Store) Remove(key string) (*Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	delete(s.entries, key)
	s.lastUpdated = time.Now().UTC()
	return entry, true
}

// Contains reports whether key has an entry.
func (s *Store) Contains(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[key]
	return ok
}

// Keys returns all canonical keys, sorted for deterministic iteration.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// SetDependencies replaces the dependency edges of key. Edges are supplied
// by an external dependency pass; the store only records them.
func (s *Store) SetDependencies(key string, dependencies, dependents []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok {
		return errors.New(errors.EntryNotFound,
			fmt.Sprintf("no cache entry for %s", key), nil)
	}
	entry.Dependencies = sortedSet(dependencies)
	entry.Dependents = sortedSet(dependents)
	s.lastUpdated = time.Now().UTC()
	return nil
}

// IsUpToDate reports whether the entry stored under key still matches the
// file at filePath. The key is used as a raw map key; callers normalize
// before calling. Hash recomputation runs outside the lock.
func (s *Store) IsUpToDate(key, filePath string) (bool, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	var storedHash string
	if ok {
		storedHash = entry.FileHash
	}
	s.mu.RUnlock()

	if !ok {
		return false, nil
	}

	currentHash, err := hashing.HashFile(filePath)
	if err != nil {
		return false, err
	}
	return currentHash == storedHash, nil
}

// PruneDeleted removes every entry whose backing file no longer exists under
// root and returns the count removed. This is the only operation that drops
// entries as a side effect of filesystem state.
func (s *Store) PruneDeleted(root string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key := range s.entries {
		rel := strings.TrimPrefix(key, paths.RelativeMarker)
		onDisk := filepath.Join(root, filepath.FromSlash(rel))
		if _, err := os.Stat(onDisk); os.IsNotExist(err) {
			delete(s.entries, key)
			removed++
		}
	}
	if removed > 0 {
		s.lastUpdated = time.Now().UTC()
	}
	return removed
}

// Clear empties the store and bumps last_updated. Persistence still requires
// an explicit Save.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*Entry)
	s.lastUpdated = time.Now().UTC()
}

// Version returns the cache format version.
func (s *Store) Version() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// LastUpdated returns the time of the most recent mutation.
func (s *Store) LastUpdated() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUpdated
}

// Stats aggregates over current entries on demand, so it is always
// consistent with content at some cost for very large stores.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{
		TotalEntries: len(s.entries),
		LastUpdated:  s.lastUpdated,
	}
	for _, entry := range s.entries {
		stats.TotalSize += entry.Metadata.Size
		if stats.OldestAnalyzed.IsZero() || entry.LastAnalyzed.Before(stats.OldestAnalyzed) {
			stats.OldestAnalyzed = entry.LastAnalyzed
		}
		if entry.LastAnalyzed.After(stats.NewestAnalyzed) {
			stats.NewestAnalyzed = entry.LastAnalyzed
		}
	}
	return stats
}

func sortedSet(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
