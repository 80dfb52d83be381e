package ratelimit

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

// Options configures Middleware.
type Options struct {
	Limiter *Limiter
	Stats   StatsStore
	KeyFn   KeyFunc
	Logger  *slog.Logger
}

type rejection struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retryAfter"`
}

// Middleware rejects requests over the limiter's budget with 429 and a JSON
// body. Every response carries X-RateLimit-Limit and X-RateLimit-Remaining.
func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.Limiter == nil {
		opts.Limiter = NewLimiter(DefaultLimit, DefaultWindow)
	}
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := opts.KeyFn(r)
			dec := opts.Limiter.Check(key)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(dec.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(dec.Remaining))

			if !dec.Allowed {
				retryAfter := dec.RetryAfterSeconds()
				opts.Logger.InfoContext(r.Context(), "rate limit exceeded",
					slog.String("key", key),
					slog.Int("limit", dec.Limit),
					slog.Int("retry_after_s", retryAfter),
				)

				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(rejection{
					Error:      "요청 한도를 초과했습니다.",
					Message:    limitMessage(dec.Limit, opts.Limiter.Window()),
					RetryAfter: retryAfter,
				})
				record(r, opts, key, dec.Allowed)
				return
			}

			next.ServeHTTP(w, r)
			record(r, opts, key, dec.Allowed)
		})
	}
}

// record runs after routing for allowed requests so the full route pattern
// is known.
func record(r *http.Request, opts Options, key string, allowed bool) {
	if opts.Stats == nil {
		return
	}
	err := opts.Stats.Record(r.Context(), StatsEvent{
		Key:     key,
		Allowed: allowed,
		Method:  r.Method,
		Route:   routePattern(r),
		At:      time.Now(),
	})
	if err != nil {
		opts.Logger.WarnContext(r.Context(), "rate limit stats not recorded", slog.Any("error", err))
	}
}

func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return ""
	}
	return rctx.RoutePattern()
}

func limitMessage(limit int, win time.Duration) string {
	if win == time.Minute {
		return fmt.Sprintf("분당 최대 %d회 요청 가능합니다.", limit)
	}
	return fmt.Sprintf("%s 동안 최대 %d회 요청 가능합니다.", win, limit)
}
