package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// AnchorsFile is the file name used inside the data directory.
const AnchorsFile = "anchors.json"

// FileStore keeps every record in one JSON object on disk.
type FileStore struct {
	mu     sync.Mutex
	path   string
	closed bool
}

// NewFileStore creates the data directory if needed and returns a FileStore.
func NewFileStore(dataDir string) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileStore{path: filepath.Join(dataDir, AnchorsFile)}, nil
}

// Put implements Store.
func (s *FileStore) Put(_ context.Context, incidentID string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	anchors, err := s.load()
	if err != nil {
		return err
	}
	anchors[incidentID] = rec
	return s.save(anchors)
}

// Get implements Store.
func (s *FileStore) Get(_ context.Context, incidentID string) (Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Record{}, false, ErrClosed
	}

	anchors, err := s.load()
	if err != nil {
		return Record{}, false, err
	}
	rec, ok := anchors[incidentID]
	return rec, ok, nil
}

// Ping checks that the data directory is still reachable.
func (s *FileStore) Ping(context.Context) error {
	_, err := os.Stat(filepath.Dir(s.path))
	return err
}

// Close implements Store.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *FileStore) load() (map[string]Record, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	anchors := map[string]Record{}
	if err := json.Unmarshal(data, &anchors); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return anchors, nil
}

// save writes through a temp file and renames it over the old one.
func (s *FileStore) save(anchors map[string]Record) error {
	data, err := json.MarshalIndent(anchors, "", "  ")
	if err != nil {
		return fmt.Errorf("encode anchors: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".anchors-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write anchors: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close anchors: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}
