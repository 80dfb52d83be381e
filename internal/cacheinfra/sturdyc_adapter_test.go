package cacheinfra

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/viccon/sturdyc"
)

func withTTL(d time.Duration) EntryOption {
	return func(o *EntryOptions) { o.TTL = d }
}

func withTags(tags ...string) EntryOption {
	return func(o *EntryOptions) { o.Tags = append(o.Tags, tags...) }
}

func newTestService(t *testing.T) (*sturdycService, *sturdyc.TestClock) {
	t.Helper()

	clock := sturdyc.NewTestClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	cfg := DefaultConfig()
	cfg.NumShards = 4
	cfg.Capacity = 100
	cfg.Clock = clock

	svc, err := NewSturdycService(cfg)
	if err != nil {
		t.Fatalf("NewSturdycService() failed: %v", err)
	}
	return svc, clock
}

func countingLoader(calls *atomic.Int32, value any) func(context.Context) (any, error) {
	return func(context.Context) (any, error) {
		calls.Add(1)
		return value, nil
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Capacity != 10000 {
		t.Errorf("expected Capacity to be 10000, got %d", cfg.Capacity)
	}

	if cfg.NumShards != 256 {
		t.Errorf("expected NumShards to be 256, got %d", cfg.NumShards)
	}

	if cfg.TTL != 5*time.Minute {
		t.Errorf("expected TTL to be 5 minutes, got %v", cfg.TTL)
	}

	if cfg.DefaultTTL != 60*time.Second {
		t.Errorf("expected DefaultTTL to be 60 seconds, got %v", cfg.DefaultTTL)
	}

	if cfg.EvictionPercentage != 10 {
		t.Errorf("expected EvictionPercentage to be 10, got %d", cfg.EvictionPercentage)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := DefaultConfig()

	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{name: "valid default config", mutate: func(*Config) {}},
		{name: "zero capacity", mutate: func(c *Config) { c.Capacity = 0 }, wantField: "Capacity"},
		{name: "zero shards", mutate: func(c *Config) { c.NumShards = 0 }, wantField: "NumShards"},
		{name: "zero ttl", mutate: func(c *Config) { c.TTL = 0 }, wantField: "TTL"},
		{name: "zero default ttl", mutate: func(c *Config) { c.DefaultTTL = 0 }, wantField: "DefaultTTL"},
		{name: "default ttl above max", mutate: func(c *Config) { c.DefaultTTL = 10 * time.Minute }, wantField: "DefaultTTL"},
		{name: "eviction percentage too high", mutate: func(c *Config) { c.EvictionPercentage = 101 }, wantField: "EvictionPercentage"},
		{name: "negative eviction interval", mutate: func(c *Config) { c.EvictionInterval = -time.Second }, wantField: "EvictionInterval"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}

			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigError, got %v", err)
			}
			if cfgErr.Field != tt.wantField {
				t.Errorf("expected field %s, got %s", tt.wantField, cfgErr.Field)
			}
		})
	}
}

func TestGetOrLoad_HitWithinTTL(t *testing.T) {
	svc, clock := newTestService(t)
	ctx := context.Background()
	var calls atomic.Int32

	for _, advance := range []time.Duration{0, 30 * time.Second, 29 * time.Second} {
		clock.Add(advance)
		v, err := svc.GetOrLoad(ctx, "k", countingLoader(&calls, "v1"), withTTL(60*time.Second))
		if err != nil {
			t.Fatalf("GetOrLoad() failed: %v", err)
		}
		if v != "v1" {
			t.Errorf("expected v1, got %v", v)
		}
	}

	if calls.Load() != 1 {
		t.Errorf("expected 1 load within ttl, got %d", calls.Load())
	}
}

func TestGetOrLoad_ReloadsAfterTTL(t *testing.T) {
	svc, clock := newTestService(t)
	ctx := context.Background()
	var calls atomic.Int32

	if _, err := svc.GetOrLoad(ctx, "k", countingLoader(&calls, "v1"), withTTL(60*time.Second)); err != nil {
		t.Fatalf("GetOrLoad() failed: %v", err)
	}

	clock.Add(61 * time.Second)

	v, err := svc.GetOrLoad(ctx, "k", countingLoader(&calls, "v2"), withTTL(60*time.Second))
	if err != nil {
		t.Fatalf("GetOrLoad() failed: %v", err)
	}
	if v != "v2" {
		t.Errorf("expected fresh value v2, got %v", v)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 loads, got %d", calls.Load())
	}
}

func TestGetOrLoad_DoesNotStoreFailures(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	boom := errors.New("boom")
	var calls atomic.Int32

	failing := func(context.Context) (any, error) {
		calls.Add(1)
		return nil, boom
	}

	for i := 0; i < 2; i++ {
		if _, err := svc.GetOrLoad(ctx, "k", failing); !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}
	}

	if calls.Load() != 2 {
		t.Errorf("expected failures to be reloaded, got %d loads", calls.Load())
	}
	if svc.Size() != 0 {
		t.Errorf("expected empty cache, got %d entries", svc.Size())
	}
}

func TestGetOrLoad_NilLoader(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.GetOrLoad(context.Background(), "k", nil)
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestInvalidateTag(t *testing.T) {
	svc, clock := newTestService(t)
	ctx := context.Background()
	var calls atomic.Int32

	_, _ = svc.GetOrLoad(ctx, "a", countingLoader(&calls, "a1"), withTags("invoice"))
	_, _ = svc.GetOrLoad(ctx, "b", countingLoader(&calls, "b1"), withTags("invoice", "client:acme"))
	_, _ = svc.GetOrLoad(ctx, "c", countingLoader(&calls, "c1"), withTags("other"))

	clock.Add(10 * time.Second)
	if err := svc.InvalidateTag(ctx, "invoice"); err != nil {
		t.Fatalf("InvalidateTag() failed: %v", err)
	}

	calls.Store(0)
	_, _ = svc.GetOrLoad(ctx, "a", countingLoader(&calls, "a2"), withTags("invoice"))
	_, _ = svc.GetOrLoad(ctx, "b", countingLoader(&calls, "b2"), withTags("invoice"))
	v, _ := svc.GetOrLoad(ctx, "c", countingLoader(&calls, "c2"), withTags("other"))

	if calls.Load() != 2 {
		t.Errorf("expected 2 reloads after invalidation, got %d", calls.Load())
	}
	if v != "c1" {
		t.Errorf("expected untagged entry to survive, got %v", v)
	}

	if _, ok := svc.tags.Load("client:acme"); !ok {
		t.Fatal("expected secondary tag set to remain")
	}
	set, _ := svc.tags.Load("client:acme")
	if _, ok := set.Load("b"); ok {
		t.Error("expected invalidated key to be removed from secondary tag")
	}
}

func TestInvalidateTag_ConcurrentWithLoads(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("k-%d-%d", w, i%10)
				_, _ = svc.GetOrLoad(ctx, key, func(context.Context) (any, error) {
					return i, nil
				}, withTags("invoice"))
			}
		}(w)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_ = svc.InvalidateTag(ctx, "invoice")
		}
	}()
	wg.Wait()

	for w := 0; w < 4; w++ {
		for i := 0; i < 10; i++ {
			key := fmt.Sprintf("k-%d-%d", w, i)
			if _, live := svc.client.Get(key); !live {
				continue
			}
			set, ok := svc.tags.Load("invoice")
			if !ok {
				t.Fatalf("live entry %s has no tag set", key)
			}
			if _, indexed := set.Load(key); !indexed {
				t.Fatalf("live entry %s is missing from the tag index", key)
			}
		}
	}

	if err := svc.InvalidateTag(ctx, "invoice"); err != nil {
		t.Fatalf("InvalidateTag() failed: %v", err)
	}
	if n := svc.Size(); n != 0 {
		t.Errorf("expected empty cache after invalidation, got %d entries", n)
	}
}

func TestInvalidateTag_Unknown(t *testing.T) {
	svc, _ := newTestService(t)
	if err := svc.InvalidateTag(context.Background(), "nope"); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	var calls atomic.Int32

	_, _ = svc.GetOrLoad(ctx, "k", countingLoader(&calls, "v"), withTags("invoice"))
	if err := svc.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	_, _ = svc.GetOrLoad(ctx, "k", countingLoader(&calls, "v"))

	if calls.Load() != 2 {
		t.Errorf("expected reload after delete, got %d loads", calls.Load())
	}
}

func TestEntryOptions_ClampsTTL(t *testing.T) {
	svc, _ := newTestService(t)

	eo := svc.entryOptions([]EntryOption{withTTL(time.Hour), withTags("a", "", "a", "b")})
	if eo.TTL != svc.maxTTL {
		t.Errorf("expected ttl clamped to %v, got %v", svc.maxTTL, eo.TTL)
	}
	if len(eo.Tags) != 2 {
		t.Errorf("expected deduplicated tags, got %v", eo.Tags)
	}

	eo = svc.entryOptions(nil)
	if eo.TTL != 60*time.Second {
		t.Errorf("expected default ttl, got %v", eo.TTL)
	}
}
