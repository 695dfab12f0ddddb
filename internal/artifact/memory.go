package artifact

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

type memoryEntry struct {
	artifact  *Artifact
	expiresAt time.Time
}

// MemoryStore keeps artifacts in process memory
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time

	stored, hits, misses atomic.Int64

	done     chan struct{}
	stopOnce sync.Once
}

// NewMemoryStore creates a store whose entries expire after ttl. A background
// sweep runs every ttl until Close.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	s := &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go s.sweepLoop()
	return s
}

// Put stores a
func (s *MemoryStore) Put(_ context.Context, a *Artifact) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now()
	}
	s.mu.Lock()
	s.entries[a.Name] = memoryEntry{artifact: a, expiresAt: s.now().Add(s.ttl)}
	s.mu.Unlock()
	s.stored.Add(1)
	return nil
}

// Get returns the artifact or ErrNotFound
func (s *MemoryStore) Get(_ context.Context, name string) (*Artifact, error) {
	s.mu.RLock()
	e, ok := s.entries[name]
	s.mu.RUnlock()

	if !ok || !s.now().Before(e.expiresAt) {
		s.misses.Add(1)
		return nil, ErrNotFound
	}
	s.hits.Add(1)
	return e.artifact, nil
}

// Delete removes an artifact; unknown names are not an error
func (s *MemoryStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	delete(s.entries, name)
	s.mu.Unlock()
	return nil
}

// Stats returns usage counters
func (s *MemoryStore) Stats(_ context.Context) (*Stats, error) {
	s.mu.RLock()
	keys := int64(len(s.entries))
	s.mu.RUnlock()

	hits, misses := s.hits.Load(), s.misses.Load()
	return &Stats{
		Backend: "memory",
		Stored:  s.stored.Load(),
		Hits:    hits,
		Misses:  misses,
		HitRate: hitRate(hits, misses),
		Keys:    keys,
	}, nil
}

// Close stops the sweep
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.done) })
	return nil
}

func (s *MemoryStore) sweepLoop() {
	ticker := time.NewTicker(s.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.done:
			return
		}
	}
}

// sweep drops expired entries
func (s *MemoryStore) sweep() int {
	now := s.now()
	removed := 0

	s.mu.Lock()
	defer s.mu.Unlock()
	for name, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, name)
			removed++
		}
	}
	return removed
}
