package report

import (
	"sync"

	"github.com/golang/groupcache/lru"
)

// LRUStore is an in-memory LRU cache that delegates to a backing Store on miss.
type LRUStore struct {
	mu    sync.Mutex
	cache *lru.Cache
	back  Store
}

// NewLRUStore creates an LRU cache with the given capacity that delegates
// to back on cache misses. Capacity must be >= 1.
func NewLRUStore(cap int, back Store) *LRUStore {
	if cap < 1 {
		cap = 1
	}
	return &LRUStore{cache: lru.New(cap), back: back}
}

// Save writes the result to the cache and to the backing store.
func (s *LRUStore) Save(result *RunResult) error {
	s.mu.Lock()
	s.cache.Add(result.ID, result)
	s.mu.Unlock()
	return s.back.Save(result)
}

// Load checks the cache first. On miss, loads from the backing store
// and promotes the result into the cache.
func (s *LRUStore) Load(runID string) (*RunResult, error) {
	s.mu.Lock()
	v, ok := s.cache.Get(runID)
	s.mu.Unlock()
	if ok {
		return v.(*RunResult), nil
	}

	result, err := s.back.Load(runID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.cache.Add(runID, result)
	s.mu.Unlock()
	return result, nil
}

// Len reports the number of cached results.
func (s *LRUStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Len()
}
