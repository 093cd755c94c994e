package cacheinfra

import (
	"container/list"
	"context"
	"sync"
	"time"
)

type fifoEntry struct {
	key        string
	value      any
	insertedAt time.Time
}

// FIFOStore is a bounded TTL store. Entries expire TTL after their last Set and,
// once the store holds more than Capacity entries, the oldest inserted entry is
// dropped. Reads do not change eviction order.
type FIFOStore struct {
	mu       sync.Mutex
	entries  map[string]*list.Element
	order    *list.List
	capacity int
	ttl      time.Duration
	now      func() time.Time
}

// NewFIFOStore validates cfg and returns an empty store.
func NewFIFOStore(cfg Config) (*FIFOStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &FIFOStore{
		entries:  make(map[string]*list.Element),
		order:    list.New(),
		capacity: cfg.Capacity,
		ttl:      cfg.TTL,
		now:      cfg.clock(),
	}, nil
}

// Get returns the value stored under key. Expired entries are removed and
// reported as a miss.
func (s *FIFOStore) Get(_ context.Context, key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.entries[key]
	if !ok {
		return nil, false
	}

	entry := el.Value.(*fifoEntry)
	if s.now().Sub(entry.insertedAt) >= s.ttl {
		s.remove(el)
		return nil, false
	}

	return entry.value, true
}

// Set stores value under key. Overwriting a key refreshes its insertion time
// but keeps its position in the eviction order.
func (s *FIFOStore) Set(_ context.Context, key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if el, ok := s.entries[key]; ok {
		entry := el.Value.(*fifoEntry)
		entry.value = value
		entry.insertedAt = now
		return
	}

	s.entries[key] = s.order.PushBack(&fifoEntry{key: key, value: value, insertedAt: now})

	if len(s.entries) > s.capacity {
		s.remove(s.order.Front())
	}
}

// Delete removes key if present.
func (s *FIFOStore) Delete(_ context.Context, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.entries[key]; ok {
		s.remove(el)
	}
}

// Len returns the number of entries held, including expired entries that
// have not been read since they expired.
func (s *FIFOStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *FIFOStore) remove(el *list.Element) {
	entry := s.order.Remove(el).(*fifoEntry)
	delete(s.entries, entry.key)
}
