// Package fanout runs independent tasks concurrently and collects both the
// successes and the failures instead of stopping at the first error.
package fanout

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Failure records a task that returned an error.
type Failure struct {
	Index int
	Err   error
}

// Result holds the outcome of a fan-out. Values keeps input order and only
// contains successful results.
type Result[T any] struct {
	Values   []T
	Failures []Failure
}

// Failed reports how many tasks failed.
func (r Result[T]) Failed() int {
	return len(r.Failures)
}

// Run calls fn for every input concurrently, at most limit at a time when
// limit is positive. A failing task never cancels its siblings.
func Run[In, Out any](ctx context.Context, inputs []In, limit int, fn func(context.Context, In) (Out, error)) Result[Out] {
	if len(inputs) == 0 {
		return Result[Out]{}
	}

	values := make([]Out, len(inputs))
	errs := make([]error, len(inputs))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, in := range inputs {
		g.Go(func() error {
			values[i], errs[i] = fn(ctx, in)
			return nil
		})
	}
	_ = g.Wait()

	res := Result[Out]{Values: make([]Out, 0, len(inputs))}
	for i, err := range errs {
		if err != nil {
			res.Failures = append(res.Failures, Failure{Index: i, Err: err})
			continue
		}
		res.Values = append(res.Values, values[i])
	}
	return res
}
