package hashing

import (
	"os"
	"path/filepath"
	"testing"
)

func TestHashBytesDeterministic(t *testing.T) {
	a := HashBytes([]byte("export const x = 1\n"))
	b := HashBytes([]byte("export const x = 1\n"))
	if a != b {
		t.Errorf("same content hashed differently: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}
}

func TestHashBytesSensitive(t *testing.T) {
	a := HashBytes([]byte("export const x = 1\n"))
	b := HashBytes([]byte("export const x = 2\n"))
	if a == b {
		t.Error("different content produced the same hash")
	}
}

func TestHashFileMatchesHashBytes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.ts")
	content := []byte("function f() { return 42 }\n")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}

	fromFile, err := HashFile(path)
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}
	if fromFile != HashBytes(content) {
		t.Error("HashFile and HashBytes disagree on identical content")
	}
}

func TestHashFileMissing(t *testing.T) {
	if _, err := HashFile(filepath.Join(t.TempDir(), "nope.ts")); err == nil {
		t.Error("expected error for missing file")
	}
}
