package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"

	"tokopt/internal/errors"
)

func TestSnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cache.json.gz")

	s := NewStore()
	s.Set("./src/a.ts", testEntry("aaa", 10))
	s.Set("./src/b.ts", testEntry("bbb", 20))

	if err := s.WriteSnapshot(path); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}

	restored, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if restored.Len() != 2 {
		t.Fatalf("restored %d entries, want 2", restored.Len())
	}
	entry, ok := restored.Get("./src/b.ts")
	if !ok || entry.FileHash != "bbb" {
		t.Errorf("entry lost in snapshot round trip: %v, %v", entry, ok)
	}
}

func TestReadSnapshotRejectsNullEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "null.json.gz")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := gzip.NewWriter(f)
	doc := `{"entries":{"./src/a.ts":null},"cache_version":"1.0.0"}`
	if _, err := zw.Write([]byte(doc)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	_, err = ReadSnapshot(path)
	if err == nil {
		t.Fatal("expected error for snapshot with null entry")
	}
	if errors.CodeOf(err) != errors.CacheCorrupt {
		t.Errorf("code = %s, want %s", errors.CodeOf(err), errors.CacheCorrupt)
	}
}

func TestReadSnapshotRejectsPlainJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.gz")
	if err := os.WriteFile(path, []byte(`{"entries":{}}`), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := ReadSnapshot(path)
	if errors.CodeOf(err) != errors.CacheCorrupt {
		t.Errorf("expected %s, got %v", errors.CacheCorrupt, err)
	}
}
