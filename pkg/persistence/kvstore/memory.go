package kvstore

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// InMemoryStore keeps records in a map. It is used for tests and for the
// `memory` backend, where durability ends with the process.
type InMemoryStore struct {
	mu      sync.Mutex
	records map[string][]byte
}

var _ Store = &InMemoryStore{}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: map[string][]byte{}}
}

func (s *InMemoryStore) Close() error { return nil }

func (s *InMemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	if s == nil {
		return nil, false, errors.New("in-memory store: nil store")
	}
	if err := validateKey("in-memory store", key); err != nil {
		return nil, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.records[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (s *InMemoryStore) Put(_ context.Context, key string, value []byte) error {
	if s == nil {
		return errors.New("in-memory store: nil store")
	}
	if err := validateKey("in-memory store", key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = append([]byte(nil), value...)
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, key string) error {
	if s == nil {
		return errors.New("in-memory store: nil store")
	}
	if err := validateKey("in-memory store", key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}

// Len reports the number of stored records.
func (s *InMemoryStore) Len() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
