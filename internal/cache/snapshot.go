package cache

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"

	"tokopt/internal/errors"
)

// WriteSnapshot writes a gzip-compressed copy of the cache document to dst.
// Snapshots are a transport/backup format; the live document stays plain JSON.
func (s *Store) WriteSnapshot(dst string) error {
	s.mu.RLock()
	doc := document{
		Entries:      s.entries,
		LastUpdated:  s.lastUpdated,
		CacheVersion: s.version,
	}
	data, err := json.Marshal(doc)
	s.mu.RUnlock()
	if err != nil {
		return errors.New(errors.InternalError, "cannot encode cache snapshot", err)
	}

	if dir := filepath.Dir(dst); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.New(errors.CacheUnwritable,
				fmt.Sprintf("cannot create snapshot directory %s", dir), err)
		}
	}

	tmpPath := dst + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return errors.New(errors.CacheUnwritable,
			fmt.Sprintf("cannot create snapshot %s", dst), err)
	}

	zw, err := gzip.NewWriterLevel(f, gzip.BestCompression)
	if err != nil {
		f.Close() //nolint:errcheck // Error path cleanup
		_ = os.Remove(tmpPath)
		return errors.New(errors.InternalError, "cannot initialize gzip writer", err)
	}
	if _, err := zw.Write(data); err != nil {
		zw.Close() //nolint:errcheck // Error path cleanup
		f.Close()  //nolint:errcheck // Error path cleanup
		_ = os.Remove(tmpPath)
		return errors.New(errors.CacheUnwritable,
			fmt.Sprintf("cannot write snapshot %s", dst), err)
	}
	if err := zw.Close(); err != nil {
		f.Close() //nolint:errcheck // Error path cleanup
		_ = os.Remove(tmpPath)
		return errors.New(errors.CacheUnwritable,
			fmt.Sprintf("cannot finish snapshot %s", dst), err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return errors.New(errors.CacheUnwritable,
			fmt.Sprintf("cannot close snapshot %s", dst), err)
	}

	if err := os.Rename(tmpPath, dst); err != nil {
		_ = os.Remove(tmpPath)
		return errors.New(errors.CacheUnwritable,
			fmt.Sprintf("cannot replace snapshot %s", dst), err)
	}
	return nil
}

// ReadSnapshot loads a store from a gzip-compressed snapshot written by
// WriteSnapshot.
func ReadSnapshot(src string) (*Store, error) {
	f, err := os.Open(src)
	if err != nil {
		return nil, errors.New(errors.FileUnreadable,
			fmt.Sprintf("cannot open snapshot %s", src), err)
	}
	defer f.Close() //nolint:errcheck // Best effort cleanup

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, errors.New(errors.CacheCorrupt,
			fmt.Sprintf("snapshot %s is not gzip data", src), err)
	}
	defer zr.Close() //nolint:errcheck // Best effort cleanup

	data, err := io.ReadAll(zr)
	if err != nil {
		return nil, errors.New(errors.CacheCorrupt,
			fmt.Sprintf("cannot decompress snapshot %s", src), err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.New(errors.CacheCorrupt,
			fmt.Sprintf("cannot decode snapshot %s", src), err)
	}
	return fromDocument(doc, src)
}
