package merchant

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// fileStore keeps the record as a single JSON document on disk, the durable
// local-storage analog for single-process deployments.
type fileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore builds a merchant store backed by a JSON file at path.
func NewFileStore(path string) Store {
	return &fileStore{path: path}
}

func (s *fileStore) Load(_ context.Context) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

func (s *fileStore) Save(_ context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(normalize(record))
}

func (s *fileStore) SetLoggedIn(_ context.Context, loggedIn bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.read()
	if err != nil {
		return err
	}
	record.IsLoggedIn = loggedIn
	return s.write(record)
}

func (s *fileStore) read() (Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return Record{}, ErrNoAccount
	}
	return decodeRecord(data)
}

// write replaces the file atomically so a crash mid-save never leaves a
// half-written record behind.
func (s *fileStore) write(record Record) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".merchant-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace record file: %w", err)
	}
	return nil
}
