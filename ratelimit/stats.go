package ratelimit

import (
	"context"
	"sync"
	"time"
)

// UnmatchedRoute labels requests decided before the router resolved a route
// pattern.
const UnmatchedRoute = "*"

// StatsEvent is one rate-limit decision. Route is a route pattern such as
// "/api/invoices/{id}", never a raw request path, so the set of routes stays
// bounded by the router.
type StatsEvent struct {
	Key     string
	Allowed bool
	Method  string
	Route   string
	At      time.Time
}

func (ev StatsEvent) routeField() string {
	route := ev.Route
	if route == "" {
		route = UnmatchedRoute
	}
	return ev.Method + " " + route
}

// StatsStore records decisions. Failures are best effort and never fail the
// request.
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}

// Counters holds allowed and denied totals.
type Counters struct {
	Allowed int64
	Denied  int64
}

func (c *Counters) add(allowed bool) {
	if allowed {
		c.Allowed++
		return
	}
	c.Denied++
}

// MemoryStatsStore keeps counters in process memory. Route counters are
// bounded by the router's patterns; per-identifier counters are not, so
// WithTrackKeys is meant for tests and short diagnostics.
type MemoryStatsStore struct {
	mu      sync.Mutex
	total   Counters
	byRoute map[string]Counters
	byKey   map[string]Counters

	trackKeys bool
}

// MemoryStatsOption configures a MemoryStatsStore.
type MemoryStatsOption func(*MemoryStatsStore)

// WithTrackKeys enables per-identifier counters.
func WithTrackKeys(track bool) MemoryStatsOption {
	return func(s *MemoryStatsStore) { s.trackKeys = track }
}

// NewMemoryStatsStore returns an empty store.
func NewMemoryStatsStore(opts ...MemoryStatsOption) *MemoryStatsStore {
	s := &MemoryStatsStore{
		byRoute: make(map[string]Counters),
		byKey:   make(map[string]Counters),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStatsStore) Record(_ context.Context, ev StatsEvent) error {
	route := ev.routeField()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.total.add(ev.Allowed)

	c := s.byRoute[route]
	c.add(ev.Allowed)
	s.byRoute[route] = c

	if s.trackKeys {
		k := s.byKey[ev.Key]
		k.add(ev.Allowed)
		s.byKey[ev.Key] = k
	}
	return nil
}

// Total returns the counters across all routes.
func (s *MemoryStatsStore) Total() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// ByRoute returns a copy of the per-route counters.
func (s *MemoryStatsStore) ByRoute() map[string]Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Counters, len(s.byRoute))
	for k, v := range s.byRoute {
		out[k] = v
	}
	return out
}

// ByKey returns a copy of the per-identifier counters.
func (s *MemoryStatsStore) ByKey() map[string]Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Counters, len(s.byKey))
	for k, v := range s.byKey {
		out[k] = v
	}
	return out
}
