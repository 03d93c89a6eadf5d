package storage

import "sync"

type memoryStorage struct {
	sync.RWMutex
	store map[string][]byte
}

// NewMemoryStorage returns a non-persistent store, used when no database
// path is configured and in tests.
func NewMemoryStorage() Storage {
	return &memoryStorage{
		store: make(map[string][]byte),
	}
}

func (s *memoryStorage) Set(key []byte, value []byte) error {
	s.Lock()
	defer s.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	s.store[string(key)] = v
	return nil
}

func (s *memoryStorage) Get(key []byte) ([]byte, error) {
	s.RLock()
	defer s.RUnlock()
	v, ok := s.store[string(key)]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return v, nil
}

func (s *memoryStorage) Contains(key []byte) bool {
	s.RLock()
	defer s.RUnlock()
	_, ok := s.store[string(key)]
	return ok
}

func (s *memoryStorage) Close() {}
