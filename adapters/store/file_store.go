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

	"github.com/layer-3/dealguard/core"
)

// FileStore keeps the session layout as a JSON object in a single file.
// Writes go to a temp file first and are renamed into place, so a reader sees
// either the old record or the new one.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates the parent directory and returns a store at path
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	return &FileStore{path: path}, nil
}

// LoadSession reads the session file
func (s *FileStore) LoadSession(ctx context.Context) (core.SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	content, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return core.SessionRecord{}, core.ErrNoSession
	}
	if err != nil {
		return core.SessionRecord{}, fmt.Errorf("failed to read session file: %w", err)
	}

	var values map[string]string
	if err := json.Unmarshal(content, &values); err != nil {
		return core.SessionRecord{}, fmt.Errorf("%w: %v", core.ErrIncompleteSession, err)
	}
	return decodeSession(values)
}

// SaveSession atomically replaces the session file
func (s *FileStore) SaveSession(ctx context.Context, record core.SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	content, err := json.MarshalIndent(encodeSession(record), "", "  ")
	if err != nil {
		return err
	}

	tempPath := s.path + ".tmp"
	if err := os.WriteFile(tempPath, content, 0o600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := os.Rename(tempPath, s.path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to replace session file: %w", err)
	}
	return nil
}

// DeleteSession removes the session file
func (s *FileStore) DeleteSession(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete session file: %w", err)
	}
	return nil
}
