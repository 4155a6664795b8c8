package service

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"
)

// KVStore is the narrow keyed-state contract behind sessions, the attempt
// tracker and the rate limiter. The in-process implementation is the default;
// the Redis one is a drop-in for multi-instance deployments.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete reports whether the key existed.
	Delete(ctx context.Context, key string) (bool, error)
	// Increment atomically adds one to the integer value at key and refreshes
	// its TTL, creating the key at 1 if absent.
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

type InMemoryKVStore struct {
	mu    sync.Mutex
	data  map[string]memoryEntry
	now   func() time.Time
	done  chan struct{}
	close sync.Once
}

// NewInMemoryKVStore returns a process-local store with a background janitor
// sweeping expired keys outside the request path.
func NewInMemoryKVStore() *InMemoryKVStore {
	s := &InMemoryKVStore{
		data: make(map[string]memoryEntry),
		now:  time.Now,
		done: make(chan struct{}),
	}
	go s.janitor(time.Minute)
	return s
}

func (s *InMemoryKVStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	if s.expired(e) {
		delete(s.data, key)
		return nil, false, nil
	}
	return e.value, true, nil
}

func (s *InMemoryKVStore) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = memoryEntry{value: value, expiresAt: s.deadline(ttl)}
	return nil
}

func (s *InMemoryKVStore) Delete(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data[key]
	if !ok || s.expired(e) {
		delete(s.data, key)
		return false, nil
	}
	delete(s.data, key)
	return true, nil
}

func (s *InMemoryKVStore) Increment(_ context.Context, key string, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	if e, ok := s.data[key]; ok && !s.expired(e) {
		parsed, err := strconv.ParseInt(string(e.value), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("increment non-numeric value at %q", key)
		}
		n = parsed
	}
	n++
	s.data[key] = memoryEntry{value: []byte(strconv.FormatInt(n, 10)), expiresAt: s.deadline(ttl)}
	return n, nil
}

// Close stops the janitor goroutine.
func (s *InMemoryKVStore) Close() {
	s.close.Do(func() { close(s.done) })
}

func (s *InMemoryKVStore) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.mu.Lock()
			for k, e := range s.data {
				if s.expired(e) {
					delete(s.data, k)
				}
			}
			s.mu.Unlock()
		}
	}
}

func (s *InMemoryKVStore) expired(e memoryEntry) bool {
	return !e.expiresAt.IsZero() && s.now().After(e.expiresAt)
}

func (s *InMemoryKVStore) deadline(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return s.now().Add(ttl)
}
