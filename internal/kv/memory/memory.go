package memory

import (
	"context"
	"os"
	"path/filepath"
	"sync"
)

// Store keeps values in process memory. It is the default backend and the
// fake used by tests.
type Store struct {
	mu    sync.Mutex
	items map[string][]byte
}

func New() *Store {
	return &Store{items: make(map[string][]byte)}
}

// NewFromFiles seeds the store from "<key>.json" files in base. Missing files
// leave the key absent; contents are loaded verbatim without decoding.
func NewFromFiles(base string, keys ...string) *Store {
	s := New()
	for _, key := range keys {
		b, err := os.ReadFile(filepath.Join(base, key+".json"))
		if err != nil {
			continue
		}
		s.items[key] = b
	}
	return s
}

// Get returns a copy of the stored value.
func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.items[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = append([]byte(nil), value...)
	return nil
}

// Len returns the number of stored keys.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *Store) Close() error { return nil }
