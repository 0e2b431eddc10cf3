package storage

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// ErrEmptyKey indicates that a document key is blank.
var ErrEmptyKey = errors.New("storage: empty document key")

// DocumentStore is a synchronous key-value store of serialized documents.
// Set replaces the whole value for key or fails without changing it.
type DocumentStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// MemoryStore keeps documents in process memory.
type MemoryStore struct {
	mu        sync.RWMutex
	documents map[string][]byte
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{documents: make(map[string][]byte)}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	if strings.TrimSpace(key) == "" {
		return nil, false, ErrEmptyKey
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.documents[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	if strings.TrimSpace(key) == "" {
		return ErrEmptyKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[key] = append([]byte(nil), value...)
	return nil
}
