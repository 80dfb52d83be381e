// Package cache provides the read-through response cache used in front of
// the remote record store.
//
// # Overview
//
// This package exports two main interfaces and their default implementations:
//
//   - CacheService: read-through lookups with per-entry TTL and tag invalidation
//   - KeySerializer: builds stable cache keys from method names and arguments
//
// # Basic Usage
//
//	svc, err := cache.NewCacheService(cache.DefaultConfig())
//	if err != nil {
//		return err
//	}
//
//	inv, err := cache.GetOrLoad(ctx, svc, key, func(ctx context.Context) (invoice.Invoice, error) {
//		return load(ctx, id)
//	}, cache.WithTTL(60*time.Second), cache.WithTags(cache.DefaultTag))
//
// # Expiry
//
// An entry is served while now <= insertedAt + ttl. Expired entries are
// dropped on the next lookup for their key, and the backing client also
// evicts anything older than Config.TTL in the background. Entries are stored
// as whole values, so a concurrent reader sees either the old or the new
// value.
//
// # Tags
//
// InvalidateTag drops every entry stored with the tag. Callers that learn a
// record changed out of band use it to force the next read to reload before
// the TTL elapses:
//
//	_ = svc.InvalidateTag(ctx, cache.DefaultTag)
//
// # Failures
//
// Loader errors are returned to the caller and never stored, so the next
// lookup tries again.
//
// # Keys
//
// The default serializer joins the method name and arguments with "::".
// Keys longer than MaxKeyLength have their argument part replaced by an
// xxhash digest.
package cache
