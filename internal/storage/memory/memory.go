// Package memstore is the fallback storage.Store for environments with no
// durable backend. It provides no durability across restarts and exists for
// development and testing only; the runtime logs a warning when it is
// selected.
package memstore

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/rezlab/oplog/internal/storage"
)

// Store is an ordered in-memory key-value store.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
	keys []string // sorted
}

var _ storage.Store = (*Store)(nil)

// Open creates an empty in-memory store.
func Open() *Store {
	return &Store{data: make(map[string][]byte)}
}

// Get returns the value for key.
func (s *Store) Get(key []byte) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[string(key)]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Set writes a single key.
func (s *Store) Set(key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set(string(key), value)
	return nil
}

// Delete removes a single key.
func (s *Store) Delete(key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.del(string(key))
	return nil
}

// Apply commits all ops atomically under one lock acquisition.
func (s *Store) Apply(_ context.Context, ops []storage.Op) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, op := range ops {
		if op.Delete {
			s.del(string(op.Key))
		} else {
			s.set(string(op.Key), op.Value)
		}
	}
	return nil
}

// Scan visits keys in [low, high) ascending over a snapshot of the keyspace.
func (s *Store) Scan(low, high []byte, fn func(key, value []byte) bool) error {
	s.mu.RLock()
	start := sort.SearchStrings(s.keys, string(low))
	var visit []string
	for i := start; i < len(s.keys); i++ {
		if bytes.Compare([]byte(s.keys[i]), high) >= 0 {
			break
		}
		visit = append(visit, s.keys[i])
	}
	values := make([][]byte, len(visit))
	for i, k := range visit {
		values[i] = append([]byte(nil), s.data[k]...)
	}
	s.mu.RUnlock()

	for i, k := range visit {
		if !fn([]byte(k), values[i]) {
			break
		}
	}
	return nil
}

// Close releases nothing; present to satisfy storage.Store.
func (s *Store) Close() error { return nil }

func (s *Store) set(key string, value []byte) {
	if _, exists := s.data[key]; !exists {
		i := sort.SearchStrings(s.keys, key)
		s.keys = append(s.keys, "")
		copy(s.keys[i+1:], s.keys[i:])
		s.keys[i] = key
	}
	s.data[key] = append([]byte(nil), value...)
}

func (s *Store) del(key string) {
	if _, exists := s.data[key]; !exists {
		return
	}
	delete(s.data, key)
	i := sort.SearchStrings(s.keys, key)
	if i < len(s.keys) && s.keys[i] == key {
		s.keys = append(s.keys[:i], s.keys[i+1:]...)
	}
}
