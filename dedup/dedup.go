// Package dedup collapses concurrent identical requests into one underlying
// operation.
package dedup

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"
)

// Group deduplicates loads by key. The zero value is ready to use.
type Group[T any] struct {
	sf singleflight.Group
}

// New returns an empty Group.
func New[T any]() *Group[T] {
	return &Group[T]{}
}

// Do runs load for key unless a load for key is already in flight, in which
// case the caller waits for that load's outcome instead. Every caller waiting
// on the same flight receives the same value or the same error. The key is
// released once the load settles, so a later call starts a fresh load.
//
// The load runs on a context detached from the caller's cancellation, since
// other callers may share it. A caller whose ctx ends stops waiting and gets
// ctx.Err(); the shared load keeps running for the others.
func (g *Group[T]) Do(ctx context.Context, key string, load func(context.Context) (T, error)) (T, error) {
	var zero T

	detached := context.WithoutCancel(ctx)
	ch := g.sf.DoChan(key, func() (any, error) {
		return load(detached)
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		v, ok := res.Val.(T)
		if !ok && res.Val != nil {
			return zero, fmt.Errorf("dedup: unexpected result type %T for key %q", res.Val, key)
		}
		return v, nil
	}
}
