package realtime

import (
	"sort"
	"sync"
)

// CacheKey names a client-side cache entry derived from server state.
type CacheKey string

// OrdersKey is the order list cache for a room.
func OrdersKey(room string) CacheKey { return CacheKey("orders:" + room) }

// DashboardKey is the dashboard aggregates cache for a room.
func DashboardKey(room string) CacheKey { return CacheKey("dashboard:" + room) }

// CacheInvalidator marks cached views as stale.
type CacheInvalidator interface {
	Invalidate(keys ...CacheKey)
}

// StaleSet tracks which cached views need a refetch.
type StaleSet struct {
	mu      sync.RWMutex
	stale   map[CacheKey]struct{}
	onStale func(CacheKey)
}

// NewStaleSet creates an empty set. onStale, if set, runs for every
// invalidated key, including keys that are still stale from an earlier
// event, so a refetch that failed gets another chance on the next event.
func NewStaleSet(onStale func(CacheKey)) *StaleSet {
	return &StaleSet{stale: make(map[CacheKey]struct{}), onStale: onStale}
}

func (s *StaleSet) Invalidate(keys ...CacheKey) {
	s.mu.Lock()
	for _, k := range keys {
		s.stale[k] = struct{}{}
	}
	s.mu.Unlock()

	if s.onStale != nil {
		for _, k := range keys {
			s.onStale(k)
		}
	}
}

// IsStale reports whether key was invalidated and not refreshed since.
func (s *StaleSet) IsStale(key CacheKey) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.stale[key]
	return ok
}

// Refreshed clears the stale mark for keys.
func (s *StaleSet) Refreshed(keys ...CacheKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.stale, k)
	}
}

// Stale returns the stale keys in sorted order.
func (s *StaleSet) Stale() []CacheKey {
	s.mu.RLock()
	out := make([]CacheKey, 0, len(s.stale))
	for k := range s.stale {
		out = append(out, k)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
