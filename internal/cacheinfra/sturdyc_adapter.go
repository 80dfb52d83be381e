package cacheinfra

import (
	"context"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/viccon/sturdyc"
)

// Config holds the configuration for the sturdyc cache adapter.
type Config struct {
	// Capacity defines the maximum number of entries that the cache can store.
	// Must be greater than 0.
	Capacity int

	// NumShards determines the number of cache shards for concurrent access.
	// Must be greater than 0. Default: 256
	NumShards int

	// TTL is the longest time-to-live any entry may ask for. The underlying
	// client drops entries older than this regardless of their own TTL.
	TTL time.Duration

	// DefaultTTL applies to entries stored without an explicit TTL.
	// Must be greater than 0 and not exceed TTL. Default: 60s
	DefaultTTL time.Duration

	// EvictionPercentage specifies what percentage of entries to evict
	// when the cache reaches its capacity. Must be between 1-100.
	EvictionPercentage int

	// EvictionInterval sets how often the client scans for expired entries.
	// Zero value uses the default interval.
	EvictionInterval time.Duration

	// Clock overrides the time source. Nil uses the wall clock.
	Clock sturdyc.Clock
}

// DefaultConfig returns a Config with sensible defaults for most use cases.
func DefaultConfig() Config {
	return Config{
		Capacity:           10000,
		NumShards:          256,
		TTL:                5 * time.Minute,
		DefaultTTL:         60 * time.Second,
		EvictionPercentage: 10,
	}
}

// ToSturdycOptions converts the Config to sturdyc options. Capacity,
// NumShards, TTL and EvictionPercentage go to sturdyc.New directly.
func (c Config) ToSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option

	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}

	if c.Clock != nil {
		options = append(options, sturdyc.WithClock(c.Clock))
	}

	return options
}

// Validate checks if the configuration values are valid.
func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
	}

	if c.NumShards <= 0 {
		return &ConfigError{Field: "NumShards", Message: "must be greater than 0"}
	}

	if c.TTL <= 0 {
		return &ConfigError{Field: "TTL", Message: "must be greater than 0"}
	}

	if c.DefaultTTL <= 0 {
		return &ConfigError{Field: "DefaultTTL", Message: "must be greater than 0"}
	}

	if c.DefaultTTL > c.TTL {
		return &ConfigError{Field: "DefaultTTL", Message: "must not exceed TTL"}
	}

	if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
		return &ConfigError{Field: "EvictionPercentage", Message: "must be between 1 and 100"}
	}

	if c.EvictionInterval < 0 {
		return &ConfigError{Field: "EvictionInterval", Message: "must be non-negative"}
	}

	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}

// EntryOptions describe how a loaded value is stored.
type EntryOptions struct {
	TTL  time.Duration
	Tags []string
}

// EntryOption mutates EntryOptions.
type EntryOption func(*EntryOptions)

// entry is stored as a whole value; readers never observe a partial write.
type entry struct {
	value      any
	insertedAt time.Time
	ttl        time.Duration
	tags       []string
}

func (e entry) expired(now time.Time) bool {
	return now.After(e.insertedAt.Add(e.ttl))
}

type keySet = xsync.MapOf[string, struct{}]

// sturdycService stores entries in a sturdyc client and keeps a tag index
// next to it so a whole group of keys can be dropped at once.
type sturdycService struct {
	client     *sturdyc.Client[entry]
	clock      sturdyc.Clock
	defaultTTL time.Duration
	maxTTL     time.Duration
	tags       *xsync.MapOf[string, *keySet]

	// indexMu makes storing an entry with its tag registrations atomic with
	// respect to InvalidateTag. Stores share the read side.
	indexMu sync.RWMutex
}

// NewSturdycService creates a new sturdyc cache service adapter.
func NewSturdycService(cfg Config) (*sturdycService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	clock := cfg.Clock
	if clock == nil {
		clock = sturdyc.NewClock()
	}

	client := sturdyc.New[entry](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)

	return &sturdycService{
		client:     client,
		clock:      clock,
		defaultTTL: cfg.DefaultTTL,
		maxTTL:     cfg.TTL,
		tags:       xsync.NewMapOf[string, *keySet](),
	}, nil
}

// GetOrLoad returns the live entry for key, or calls load and stores its
// result. Failed loads are returned and never stored.
func (s *sturdycService) GetOrLoad(ctx context.Context, key string, load func(context.Context) (any, error), opts ...EntryOption) (any, error) {
	if load == nil {
		return nil, &ConfigError{Field: "load", Message: "cannot be nil"}
	}

	if e, ok := s.client.Get(key); ok {
		if !e.expired(s.clock.Now()) {
			return e.value, nil
		}
		s.remove(key, e)
	}

	value, err := load(ctx)
	if err != nil {
		return nil, err
	}

	eo := s.entryOptions(opts)
	e := entry{
		value:      value,
		insertedAt: s.clock.Now(),
		ttl:        eo.TTL,
		tags:       eo.Tags,
	}
	s.store(key, e)

	return value, nil
}

// store indexes key under its tags, then publishes the entry.
func (s *sturdycService) store(key string, e entry) {
	s.indexMu.RLock()
	defer s.indexMu.RUnlock()

	for _, tag := range e.tags {
		set, _ := s.tags.LoadOrCompute(tag, func() *keySet {
			return xsync.NewMapOf[string, struct{}]()
		})
		set.Store(key, struct{}{})
	}
	s.client.Set(key, e)
}

// InvalidateTag removes every entry stored with tag.
func (s *sturdycService) InvalidateTag(ctx context.Context, tag string) error {
	s.indexMu.Lock()
	defer s.indexMu.Unlock()

	set, ok := s.tags.LoadAndDelete(tag)
	if !ok {
		return nil
	}
	set.Range(func(key string, _ struct{}) bool {
		if e, ok := s.client.Get(key); ok {
			s.untag(key, e.tags, tag)
		}
		s.client.Delete(key)
		return true
	})
	return nil
}

// Delete removes a single entry from the cache.
func (s *sturdycService) Delete(ctx context.Context, key string) error {
	if e, ok := s.client.Get(key); ok {
		s.remove(key, e)
		return nil
	}
	s.client.Delete(key)
	return nil
}

// Size reports the number of stored entries, including expired ones not yet
// evicted.
func (s *sturdycService) Size() int {
	return s.client.Size()
}

func (s *sturdycService) remove(key string, e entry) {
	s.untag(key, e.tags, "")
	s.client.Delete(key)
}

func (s *sturdycService) untag(key string, tags []string, skip string) {
	for _, tag := range tags {
		if tag == skip {
			continue
		}
		if set, ok := s.tags.Load(tag); ok {
			set.Delete(key)
		}
	}
}

func (s *sturdycService) entryOptions(opts []EntryOption) EntryOptions {
	eo := EntryOptions{TTL: s.defaultTTL}
	for _, opt := range opts {
		if opt != nil {
			opt(&eo)
		}
	}
	if eo.TTL <= 0 {
		eo.TTL = s.defaultTTL
	}
	if eo.TTL > s.maxTTL {
		eo.TTL = s.maxTTL
	}
	eo.Tags = dedupe(eo.Tags)
	return eo
}

func dedupe(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
