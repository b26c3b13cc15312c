package store

import (
	"context"
	"sync"

	"github.com/layer-3/dealguard/core"
)

// MemoryStore keeps the session layout and the login attempt in maps.
// It backs the ephemeral attempt in production and both roles in tests.
type MemoryStore struct {
	data      map[string]string
	ephemeral map[string]string
	mu        sync.RWMutex
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:      make(map[string]string),
		ephemeral: make(map[string]string),
	}
}

// LoadSession reads the persisted session keys
func (s *MemoryStore) LoadSession(ctx context.Context) (core.SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return decodeSession(s.data)
}

// SaveSession writes all session keys under one lock
func (s *MemoryStore) SaveSession(ctx context.Context, record core.SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, v := range encodeSession(record) {
		s.data[k] = v
	}
	return nil
}

// DeleteSession removes all session keys
func (s *MemoryStore) DeleteSession(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, k := range SessionKeys {
		delete(s.data, k)
	}
	return nil
}

// LoadAttempt reads the ephemeral login attempt
func (s *MemoryStore) LoadAttempt(ctx context.Context) (core.LoginAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return decodeAttempt(s.ephemeral)
}

// SaveAttempt replaces the ephemeral login attempt
func (s *MemoryStore) SaveAttempt(ctx context.Context, attempt core.LoginAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ephemeral = encodeAttempt(attempt)
	return nil
}

// ClearAttempt drops the ephemeral login attempt
func (s *MemoryStore) ClearAttempt(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ephemeral = make(map[string]string)
	return nil
}

// Get returns a raw value from either layout
func (s *MemoryStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if v, ok := s.data[key]; ok {
		return v, true
	}
	v, ok := s.ephemeral[key]
	return v, ok
}

// Set writes a raw persisted value, bypassing the unit write
func (s *MemoryStore) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = value
}

// Clear removes all data from the store
// This is useful for testing to reset the store between tests
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = make(map[string]string)
	s.ephemeral = make(map[string]string)
}
