package telemetry

import (
	"path/filepath"
	"testing"
	"time"

	"tokopt/internal/logging"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	logger := logging.NewLogger(logging.Config{
		Format: logging.HumanFormat,
		Level:  logging.ErrorLevel,
	})
	store, err := Open(filepath.Join(t.TempDir(), ".tokopt", "metrics.db"), logger)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordAndRecentRuns(t *testing.T) {
	store := openTestStore(t)

	runs := []RunRecord{
		{RunID: "run-1", Command: "analyze", FilesTotal: 100, Processed: 100, Added: 100, DurationMs: 1200,
			RecordedAt: time.Now().UTC().Add(-2 * time.Minute)},
		{RunID: "run-2", Command: "analyze", FilesTotal: 100, Processed: 3, Updated: 3, DurationMs: 80,
			RecordedAt: time.Now().UTC().Add(-1 * time.Minute)},
		{RunID: "run-3", Command: "rebuild", FilesTotal: 100, Processed: 100, Added: 100, Errors: 2, DurationMs: 1500,
			RecordedAt: time.Now().UTC()},
	}
	for _, r := range runs {
		if err := store.RecordRun(r); err != nil {
			t.Fatalf("RecordRun(%s): %v", r.RunID, err)
		}
	}

	recent, err := store.RecentRuns(2)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("got %d runs, want 2", len(recent))
	}
	if recent[0].RunID != "run-3" || recent[1].RunID != "run-2" {
		t.Errorf("wrong order: %s, %s", recent[0].RunID, recent[1].RunID)
	}
	if recent[0].Errors != 2 || recent[0].Command != "rebuild" {
		t.Errorf("record fields lost: %+v", recent[0])
	}
}

func TestAggregate(t *testing.T) {
	store := openTestStore(t)

	old := RunRecord{RunID: "old", Command: "analyze", Processed: 50, DurationMs: 500,
		RecordedAt: time.Now().UTC().AddDate(0, 0, -30)}
	fresh := RunRecord{RunID: "fresh", Command: "analyze", Processed: 10, Errors: 1, DurationMs: 100,
		RecordedAt: time.Now().UTC()}
	for _, r := range []RunRecord{old, fresh} {
		if err := store.RecordRun(r); err != nil {
			t.Fatal(err)
		}
	}

	agg, err := store.Aggregate(time.Now().UTC().AddDate(0, 0, -7))
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if agg.RunCount != 1 || agg.TotalProcessed != 10 || agg.TotalErrors != 1 {
		t.Errorf("aggregate = %+v", agg)
	}
	if agg.AvgLatencyMs() != 100 {
		t.Errorf("AvgLatencyMs = %f", agg.AvgLatencyMs())
	}

	empty, err := store.Aggregate(time.Now().UTC().Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if empty.RunCount != 0 || empty.AvgLatencyMs() != 0 {
		t.Errorf("empty window aggregate = %+v", empty)
	}
}

func TestDuplicateRunIDRejected(t *testing.T) {
	store := openTestStore(t)

	r := RunRecord{RunID: "dup", Command: "analyze"}
	if err := store.RecordRun(r); err != nil {
		t.Fatal(err)
	}
	if err := store.RecordRun(r); err == nil {
		t.Error("duplicate run_id accepted")
	}
}
