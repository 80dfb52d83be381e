package cache

import (
	"context"
	"errors"
	"time"

	"github.com/gymcoding/invoice-web/internal/cacheinfra"
)

// ErrInvalidResultType is returned by GetOrLoad when a cached value does not
// have the requested type.
var ErrInvalidResultType = errors.New("cache: cached value has unexpected type")

// DefaultTag is attached to every invoice entry so the whole cache can be
// invalidated with one call.
const DefaultTag = "invoice"

// KeySerializer builds a cache key from a method name + arbitrary args.
// It is responsible for producing stable keys across calls.
type KeySerializer interface {
	SerializeKey(method string, args ...any) string
}

// LoadFn is the function signature CacheService expects when loading from the source of truth.
type LoadFn[T any] func(ctx context.Context) (T, error)

// EntryOptions describe how a loaded value is stored.
type EntryOptions = cacheinfra.EntryOptions

// EntryOption customises a single stored entry.
type EntryOption = cacheinfra.EntryOption

// WithTTL overrides the default time-to-live of the stored entry.
func WithTTL(ttl time.Duration) EntryOption {
	return func(o *EntryOptions) {
		o.TTL = ttl
	}
}

// WithTags attaches tags to the stored entry for bulk invalidation.
func WithTags(tags ...string) EntryOption {
	return func(o *EntryOptions) {
		o.Tags = append(o.Tags, tags...)
	}
}

// CacheService exposes the read-through operations used by the repository
// decorator. Entries are expired lazily on lookup and failures are never
// stored.
type CacheService interface {
	GetOrLoad(ctx context.Context, key string, load func(context.Context) (any, error), opts ...EntryOption) (any, error)
	InvalidateTag(ctx context.Context, tag string) error
	Delete(ctx context.Context, key string) error
}

// GetOrLoad is a type-safe wrapper function that provides generic support for CacheService.
func GetOrLoad[T any](ctx context.Context, service CacheService, key string, load LoadFn[T], opts ...EntryOption) (T, error) {
	var zero T

	result, err := service.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		return load(ctx)
	}, opts...)
	if err != nil {
		return zero, err
	}

	if result == nil {
		return zero, nil
	}

	typed, ok := result.(T)
	if !ok {
		return zero, ErrInvalidResultType
	}
	return typed, nil
}
