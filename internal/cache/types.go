// Package cache implements the persistent per-file analysis store.
//
// The store maps canonical path keys to analysis entries and is the only
// shared mutable resource in the system. Analyzer-produced payloads are
// opaque to this package: they are (de)serialized but never inspected.
package cache

import (
	"encoding/json"
	"time"
)

// CacheVersion is the format version written into every persisted document.
const CacheVersion = "1.0.0"

// ChangeType records how a file changed at analysis time.
type ChangeType string

const (
	ChangeCreated  ChangeType = "created"
	ChangeModified ChangeType = "modified"
	ChangeDeleted  ChangeType = "deleted"
	ChangeRenamed  ChangeType = "renamed"
)

// ImpactLevel buckets how disruptive a change is expected to be.
type ImpactLevel string

const (
	ImpactLow    ImpactLevel = "low"
	ImpactMedium ImpactLevel = "medium"
	ImpactHigh   ImpactLevel = "high"
)

// ChangeLogEntry is one line of an entry's append-only change history.
type ChangeLogEntry struct {
	Timestamp    time.Time   `json:"timestamp"`
	Type         ChangeType  `json:"change_type"`
	Description  string      `json:"description"`
	LinesChanged int         `json:"lines_changed"`
	Impact       ImpactLevel `json:"impact"`
}

// FileMetadata holds the structural facts the analyzer derived from a file.
// Detail carries the analyzer's detailed payload and is never inspected here.
type FileMetadata struct {
	Size       int64           `json:"size"`
	LineCount  int             `json:"line_count"`
	Kind       string          `json:"kind"`
	Complexity string          `json:"complexity"`
	Detail     json.RawMessage `json:"detail,omitempty"`
}

// Entry is the full analysis record stored per logical source file.
//
// Dependencies and Dependents are populated by a caller-supplied dependency
// pass; the store persists and exposes them but never computes them.
type Entry struct {
	FileHash     string           `json:"file_hash"`
	LastAnalyzed time.Time        `json:"last_analyzed"`
	Summary      json.RawMessage  `json:"summary"`
	Metadata     FileMetadata     `json:"metadata"`
	ChangeLog    []ChangeLogEntry `json:"change_log"`
	Dependencies []string         `json:"dependencies"`
	Dependents   []string         `json:"dependents"`
}

// AppendChange appends a change-log line. A single entry's log is always
// append-ordered; ordering across entries is unspecified.
func (e *Entry) AppendChange(c ChangeLogEntry) {
	e.ChangeLog = append(e.ChangeLog, c)
}

// Clone returns a deep copy so callers can read an entry without holding
// the store lock.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	dup := *e
	dup.Summary = append(json.RawMessage(nil), e.Summary...)
	dup.Metadata.Detail = append(json.RawMessage(nil), e.Metadata.Detail...)
	dup.ChangeLog = append([]ChangeLogEntry(nil), e.ChangeLog...)
	dup.Dependencies = append([]string(nil), e.Dependencies...)
	dup.Dependents = append([]string(nil), e.Dependents...)
	return &dup
}

// Stats is a point-in-time aggregation over the store's entries.
type Stats struct {
	TotalEntries   int       `json:"total_entries"`
	TotalSize      int64     `json:"total_size"`
	OldestAnalyzed time.Time `json:"oldest_analyzed"`
	NewestAnalyzed time.Time `json:"newest_analyzed"`
	LastUpdated    time.Time `json:"last_updated"`
}

// document is the on-disk shape of the whole store.
type document struct {
	Entries      map[string]*Entry `json:"entries"`
	LastUpdated  time.Time         `json:"last_updated"`
	CacheVersion string            `json:"cache_version"`
}
