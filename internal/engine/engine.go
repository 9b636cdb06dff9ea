// Package engine runs batched, parallel analysis over a set of files.
//
// The engine owns batch mechanics only: chunking, bounded concurrency,
// progress reporting, error isolation, and the single persistence point at
// the end of a batch. What "analyzing a file" means is supplied by the
// caller as a Task.
package engine

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"tokopt/internal/cache"
	"tokopt/internal/logging"
)

// DefaultChunkSize is the number of files grouped per processing wave.
const DefaultChunkSize = 32

// Task analyzes one file and writes the result into the store, returning the
// canonical key it wrote under. A failed Task affects only its own file.
type Task func(ctx context.Context, path string) (key string, err error)

// Progress is one tick of batch progress, emitted after each file completes.
type Progress struct {
	CurrentFile string  `json:"current_file"`
	Processed   int     `json:"processed"`
	Total       int     `json:"total"`
	Percentage  float32 `json:"percentage"`
}

// Result summarizes a finished batch.
type Result struct {
	BatchID   string        `json:"batch_id"`
	Processed int           `json:"processed"`
	Added     int           `json:"added"`
	Updated   int           `json:"updated"`
	Errors    []string      `json:"errors,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// Engine coordinates parallel population of a store.
type Engine struct {
	store     *cache.Store
	savePath  string
	chunkSize int
	workers   int
	logger    *logging.Logger
}

// New creates an engine writing results through store and persisting to
// savePath after each batch. Non-positive sizes fall back to defaults.
func New(store *cache.Store, savePath string, chunkSize, workers int, logger *logging.Logger) *Engine {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Engine{
		store:     store,
		savePath:  savePath,
		chunkSize: chunkSize,
		workers:   workers,
		logger:    logger,
	}
}

type outcome struct {
	path string
	key  string
	err  error
}

// Run processes files in chunks, invoking task for each file with at most
// the configured number of workers in flight. Per-file failures are recorded
// in the result and never abort the batch; the store is saved exactly once,
// after all chunks finish. If progress is non-nil the engine sends one tick
// per completed file and closes the channel when the batch ends.
//
// Added versus updated is decided against the set of keys present before the
// batch started, so a file analyzed twice in one batch still counts once.
func (e *Engine) Run(ctx context.Context, files []string, task Task, progress chan<- Progress) (*Result, error) {
	start := time.Now()
	result := &Result{BatchID: uuid.NewString()}

	if progress != nil {
		defer close(progress)
	}

	preBatch := make(map[string]bool)
	for _, key := range e.store.Keys() {
		preBatch[key] = true
	}

	total := len(files)
	e.logger.Info("starting analysis batch", map[string]interface{}{
		"batch_id":   result.BatchID,
		"files":      total,
		"chunk_size": e.chunkSize,
		"workers":    e.workers,
	})

	sem := make(chan struct{}, e.workers)
	for chunkStart := 0; chunkStart < total; chunkStart += e.chunkSize {
		if err := ctx.Err(); err != nil {
			result.Duration = time.Since(start)
			return result, err
		}

		chunkEnd := chunkStart + e.chunkSize
		if chunkEnd > total {
			chunkEnd = total
		}
		chunk := files[chunkStart:chunkEnd]

		outcomes := make(chan outcome, len(chunk))
		var wg sync.WaitGroup
		for _, path := range chunk {
			wg.Add(1)
			go func(path string) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()
				key, err := task(ctx, path)
				outcomes <- outcome{path: path, key: key, err: err}
			}(path)
		}
		go func() {
			wg.Wait()
			close(outcomes)
		}()

		// Outcomes are drained while workers are still running, so each
		// progress tick goes out as its file completes, not at chunk end.
		for o := range outcomes {
			result.Processed++
			if progress != nil {
				progress <- Progress{
					CurrentFile: o.path,
					Processed:   result.Processed,
					Total:       total,
					Percentage:  float32(result.Processed) / float32(total) * 100,
				}
			}
			if o.err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", o.path, o.err))
				e.logger.Warn("file analysis failed", map[string]interface{}{
					"batch_id": result.BatchID,
					"file":     o.path,
					"error":    o.err.Error(),
				})
				continue
			}
			if preBatch[o.key] {
				result.Updated++
			} else {
				result.Added++
			}
		}
	}

	if err := e.store.Save(e.savePath); err != nil {
		result.Duration = time.Since(start)
		return result, err
	}

	result.Duration = time.Since(start)
	e.logger.Info("analysis batch complete", map[string]interface{}{
		"batch_id":  result.BatchID,
		"processed": result.Processed,
		"added":     result.Added,
		"updated":   result.Updated,
		"errors":    len(result.Errors),
		"duration":  result.Duration.String(),
	})
	return result, nil
}
