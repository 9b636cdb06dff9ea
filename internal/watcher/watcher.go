// Package watcher provides polling file system watching for project sources.
package watcher

import (
	"context"
	"os"
	"sync"
	"time"

	"tokopt/internal/logging"
)

// EventType represents the type of file system event
type EventType int

const (
	EventCreate EventType = iota
	EventModify
	EventDelete
)

// String returns a string representation of the event type
func (e EventType) String() string {
	switch e {
	case EventCreate:
		return "create"
	case EventModify:
		return "modify"
	case EventDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Event represents a file system event
type Event struct {
	Type      EventType
	Path      string
	Timestamp time.Time
}

// Handler is called with a debounced batch of events
type Handler func(events []Event)

// Config contains watcher configuration
type Config struct {
	PollInterval time.Duration
	Debounce     time.Duration
}

// DefaultConfig returns the default watcher configuration
func DefaultConfig() Config {
	return Config{
		PollInterval: 2 * time.Second,
		Debounce:     500 * time.Millisecond,
	}
}

// fileState is the per-file fingerprint used to detect changes between polls.
// Content hashing is left to the analysis pipeline; mod time plus size is
// enough to decide that a file is worth looking at again.
type fileState struct {
	modTime time.Time
	size    int64
}

// Enumerate lists the files currently worth watching.
type Enumerate func() ([]string, error)

// Watcher polls the project tree and emits debounced change batches.
// Polling is used instead of fsnotify for cross-platform predictability.
type Watcher struct {
	config    Config
	logger    *logging.Logger
	enumerate Enumerate
	batcher   *Batcher

	mu       sync.Mutex
	snapshot map[string]fileState

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a watcher over the files returned by enumerate.
func New(config Config, logger *logging.Logger, enumerate Enumerate, handler Handler) *Watcher {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultConfig().PollInterval
	}
	if config.Debounce <= 0 {
		config.Debounce = DefaultConfig().Debounce
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		config:    config,
		logger:    logger,
		enumerate: enumerate,
		batcher:   NewBatcher(config.Debounce, handler),
		snapshot:  make(map[string]fileState),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start takes the initial snapshot and begins polling.
func (w *Watcher) Start() error {
	w.mu.Lock()
	w.snapshot = w.takeSnapshot()
	w.mu.Unlock()

	w.logger.Info("starting file watcher", map[string]interface{}{
		"poll_interval": w.config.PollInterval.String(),
		"debounce":      w.config.Debounce.String(),
		"files":         len(w.snapshot),
	})

	w.wg.Add(1)
	go w.loop()
	return nil
}

// Stop stops polling and drops any pending batch.
func (w *Watcher) Stop() {
	w.cancel()
	w.wg.Wait()
	w.batcher.Cancel()
	w.logger.Info("file watcher stopped", nil)
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.poll()
		case <-w.ctx.Done():
			return
		}
	}
}

// poll diffs the current tree against the last snapshot and queues events.
func (w *Watcher) poll() {
	current := w.takeSnapshot()
	now := time.Now()

	w.mu.Lock()
	previous := w.snapshot
	w.snapshot = current
	w.mu.Unlock()

	for path, state := range current {
		prev, existed := previous[path]
		switch {
		case !existed:
			w.batcher.Add(Event{Type: EventCreate, Path: path, Timestamp: now})
		case state.modTime != prev.modTime || state.size != prev.size:
			w.batcher.Add(Event{Type: EventModify, Path: path, Timestamp: now})
		}
	}
	for path := range previous {
		if _, still := current[path]; !still {
			w.batcher.Add(Event{Type: EventDelete, Path: path, Timestamp: now})
		}
	}
}

func (w *Watcher) takeSnapshot() map[string]fileState {
	snapshot := make(map[string]fileState)
	files, err := w.enumerate()
	if err != nil {
		w.logger.Warn("enumeration failed during poll", map[string]interface{}{
			"error": err.Error(),
		})
		return snapshot
	}
	for _, path := range files {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		snapshot[path] = fileState{modTime: info.ModTime(), size: info.Size()}
	}
	return snapshot
}

// Stats returns watcher statistics
func (w *Watcher) Stats() map[string]interface{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	return map[string]interface{}{
		"watchedFiles": len(w.snapshot),
		"pollInterval": w.config.PollInterval.String(),
		"debounce":     w.config.Debounce.String(),
	}
}
