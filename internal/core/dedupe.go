package core

import (
	"sync"
)

// ProcessedSet tracks site origins already claimed during a run. Two sites
// discovered concurrently on different result pages can race for the same
// origin, so membership check and insert happen as one atomic step.
type ProcessedSet struct {
	mu   sync.RWMutex
	seen map[string]struct{}
}

// NewProcessedSet creates an empty ProcessedSet.
func NewProcessedSet() *ProcessedSet {
	return &ProcessedSet{seen: make(map[string]struct{})}
}

// MarkIfNew claims the origin for the caller. It returns true when the
// origin had not been claimed before; a false return means another
// discovery of the same origin won and the caller must skip it.
func (s *ProcessedSet) MarkIfNew(origin string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.seen[origin]; exists {
		return false
	}
	s.seen[origin] = struct{}{}
	return true
}

// Contains reports whether the origin has been claimed.
func (s *ProcessedSet) Contains(origin string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.seen[origin]
	return exists
}

// Len returns the number of claimed origins.
func (s *ProcessedSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.seen)
}
