package refreshgate

import (
	"context"
	"sync"
	"time"
)

// pruneThreshold is the map size above which expired entries are swept on write.
const pruneThreshold = 1024

// MemoryStore keeps cooldown entries for the lifetime of the process. Entries
// older than the cooldown window carry no information and are pruned.
type MemoryStore struct {
	mu     sync.Mutex
	window time.Duration
	last   map[string]time.Time
}

func NewMemoryStore(window time.Duration) *MemoryStore {
	return &MemoryStore{window: window, last: make(map[string]time.Time)}
}

func (s *MemoryStore) LastRefresh(_ context.Context, subjectID string) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	at, ok := s.last[subjectID]
	return at, ok, nil
}

func (s *MemoryStore) MarkRefreshed(_ context.Context, subjectID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last[subjectID] = at
	if len(s.last) > pruneThreshold {
		s.pruneLocked(at)
	}
	return nil
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.last)
}

func (s *MemoryStore) pruneLocked(now time.Time) {
	for id, at := range s.last {
		if now.Sub(at) >= s.window {
			delete(s.last, id)
		}
	}
}
