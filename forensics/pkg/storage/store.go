package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// ErrSourceMissing is returned when a source path does not exist or holds nothing to collect.
var ErrSourceMissing = errors.New("artifact source missing")

// ListFiles returns the regular files directly under dir, sorted by name.
// A missing or empty directory yields ErrSourceMissing; a directory whose
// entries are all non-regular yields an empty slice and no error.
func ListFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrSourceMissing
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	if len(entries) == 0 {
		return nil, ErrSourceMissing
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// CopyFile copies src to dst and returns the number of bytes written.
func CopyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, ErrSourceMissing
		}
		return 0, fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	return writeAtomic(dst, func(w io.Writer) (int64, error) {
		return io.Copy(w, in)
	})
}

// WriteFile writes data to dst and returns its size.
func WriteFile(dst string, data []byte) (int64, error) {
	return writeAtomic(dst, func(w io.Writer) (int64, error) {
		n, err := w.Write(data)
		return int64(n), err
	})
}

// writeAtomic writes through a temp file in dst's directory and renames it into place,
// so readers never observe a partially written artifact.
func writeAtomic(dst string, fill func(io.Writer) (int64, error)) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".tmp-*")
	if err != nil {
		return 0, fmt.Errorf("create temp for %s: %w", dst, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	n, err := fill(tmp)
	if err != nil {
		tmp.Close()
		return 0, fmt.Errorf("write %s: %w", dst, err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("close %s: %w", dst, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return 0, fmt.Errorf("chmod %s: %w", dst, err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		return 0, fmt.Errorf("rename into %s: %w", dst, err)
	}
	return n, nil
}
