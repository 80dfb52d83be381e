package remote

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// ThrottledStore paces outbound calls to a Store with a token bucket so the
// provider's request quota is never exceeded by this process.
type ThrottledStore struct {
	next    Store
	limiter *rate.Limiter
}

var _ Store = (*ThrottledStore)(nil)

// NewThrottledStore wraps next, allowing rps calls per second with the given
// burst. A non-positive rps disables throttling.
func NewThrottledStore(next Store, rps float64, burst int) *ThrottledStore {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &ThrottledStore{
		next:    next,
		limiter: rate.NewLimiter(limit, burst),
	}
}

func (s *ThrottledStore) GetRecord(ctx context.Context, id string) (Record, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return Record{}, fmt.Errorf("waiting for store quota: %w", err)
	}
	return s.next.GetRecord(ctx, id)
}

func (s *ThrottledStore) QueryDataSource(ctx context.Context, q Query) (QueryResult, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return QueryResult{}, fmt.Errorf("waiting for store quota: %w", err)
	}
	return s.next.QueryDataSource(ctx, q)
}
