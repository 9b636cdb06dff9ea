package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"tokopt/internal/cache"
	"tokopt/internal/logging"
)

func testLogger() *logging.Logger {
	return logging.NewLogger(logging.Config{
		Format: logging.HumanFormat,
		Level:  logging.ErrorLevel,
	})
}

func keyFor(path string) string {
	return "./" + filepath.ToSlash(path)
}

// storingTask writes a trivial entry under the file's key, failing for any
// path listed in failing.
func storingTask(store *cache.Store, failing map[string]bool) Task {
	return func(ctx context.Context, path string) (string, error) {
		if failing[path] {
			return "", fmt.Errorf("boom")
		}
		store.Set(keyFor(path), &cache.Entry{
			FileHash:     "h-" + path,
			LastAnalyzed: time.Now().UTC(),
			Summary:      json.RawMessage(`{}`),
		})
		return keyFor(path), nil
	}
}

func TestRunProcessesAllFiles(t *testing.T) {
	store := cache.NewStore()
	savePath := filepath.Join(t.TempDir(), "cache.json")
	e := New(store, savePath, 4, 2, testLogger())

	files := make([]string, 50)
	for i := range files {
		files[i] = fmt.Sprintf("src/f%02d.ts", i)
	}

	result, err := e.Run(context.Background(), files, storingTask(store, nil), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Processed != 50 || result.Added != 50 || result.Updated != 0 {
		t.Fatalf("result = %+v", result)
	}
	if result.BatchID == "" {
		t.Error("batch ID missing")
	}
	if store.Len() != 50 {
		t.Errorf("store has %d entries, want 50", store.Len())
	}
	if _, err := os.Stat(savePath); err != nil {
		t.Errorf("store not persisted: %v", err)
	}
}

func TestRunAddedVersusUpdated(t *testing.T) {
	store := cache.NewStore()
	store.Set(keyFor("src/old.ts"), &cache.Entry{FileHash: "stale"})
	e := New(store, filepath.Join(t.TempDir(), "cache.json"), 0, 0, testLogger())

	files := []string{"src/old.ts", "src/new.ts"}
	result, err := e.Run(context.Background(), files, storingTask(store, nil), nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.Added != 1 || result.Updated != 1 {
		t.Fatalf("added=%d updated=%d, want 1 and 1", result.Added, result.Updated)
	}
}

func TestRunIsolatesFailures(t *testing.T) {
	store := cache.NewStore()
	e := New(store, filepath.Join(t.TempDir(), "cache.json"), 8, 4, testLogger())

	files := []string{"a.ts", "b.ts", "c.ts", "d.ts"}
	failing := map[string]bool{"b.ts": true, "d.ts": true}

	result, err := e.Run(context.Background(), files, storingTask(store, failing), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Processed != 4 || result.Added != 2 {
		t.Fatalf("result = %+v", result)
	}
	if len(result.Errors) != 2 {
		t.Fatalf("errors = %v", result.Errors)
	}
	for _, msg := range result.Errors {
		if !strings.Contains(msg, ": boom") {
			t.Errorf("error %q missing path prefix", msg)
		}
	}
}

func TestRunReportsProgress(t *testing.T) {
	store := cache.NewStore()
	e := New(store, filepath.Join(t.TempDir(), "cache.json"), 2, 2, testLogger())

	files := []string{"a.ts", "b.ts", "c.ts"}
	progress := make(chan Progress, len(files))

	var ticks []Progress
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for p := range progress {
			ticks = append(ticks, p)
		}
	}()

	if _, err := e.Run(context.Background(), files, storingTask(store, nil), progress); err != nil {
		t.Fatal(err)
	}
	wg.Wait()

	if len(ticks) != len(files) {
		t.Fatalf("got %d ticks, want %d", len(ticks), len(files))
	}
	last := ticks[len(ticks)-1]
	if last.Processed != 3 || last.Total != 3 || last.Percentage != 100 {
		t.Errorf("final tick = %+v", last)
	}
	for i, p := range ticks {
		if p.Processed != i+1 {
			t.Errorf("tick %d has processed=%d", i, p.Processed)
		}
	}
}

// A tick for a finished file must arrive while the rest of its chunk is still
// in flight, not in a burst after the chunk drains.
func TestRunEmitsProgressMidChunk(t *testing.T) {
	store := cache.NewStore()
	e := New(store, filepath.Join(t.TempDir(), "cache.json"), 0, 2, testLogger())

	progress := make(chan Progress)
	firstTick := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		first := true
		for range progress {
			if first {
				close(firstTick)
				first = false
			}
		}
	}()

	task := func(ctx context.Context, path string) (string, error) {
		if path == "slow.ts" {
			select {
			case <-firstTick:
			case <-time.After(5 * time.Second):
				return "", fmt.Errorf("no tick while chunk in flight")
			}
		}
		return keyFor(path), nil
	}

	result, err := e.Run(context.Background(), []string{"fast.ts", "slow.ts"}, task, progress)
	wg.Wait()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("errors = %v", result.Errors)
	}
}

func TestRunEmptyBatchStillSaves(t *testing.T) {
	store := cache.NewStore()
	savePath := filepath.Join(t.TempDir(), "cache.json")
	e := New(store, savePath, 0, 0, testLogger())

	result, err := e.Run(context.Background(), nil, storingTask(store, nil), nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.Processed != 0 {
		t.Errorf("processed = %d", result.Processed)
	}
	if _, err := os.Stat(savePath); err != nil {
		t.Errorf("empty batch did not persist the document: %v", err)
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	store := cache.NewStore()
	e := New(store, filepath.Join(t.TempDir(), "cache.json"), 1, 1, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := e.Run(ctx, []string{"a.ts", "b.ts"}, storingTask(store, nil), nil)
	if err == nil {
		t.Fatal("expected context error")
	}
	if result.Processed != 0 {
		t.Errorf("processed %d files after cancellation", result.Processed)
	}
}
