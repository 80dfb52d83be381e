package di

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/viccon/sturdyc"

	"github.com/gymcoding/invoice-web/cache"
	"github.com/gymcoding/invoice-web/document"
	"github.com/gymcoding/invoice-web/internal/auth"
	"github.com/gymcoding/invoice-web/internal/config"
	apphttp "github.com/gymcoding/invoice-web/internal/http"
	"github.com/gymcoding/invoice-web/internal/http/admin"
	invoicehttp "github.com/gymcoding/invoice-web/internal/http/invoice"
	"github.com/gymcoding/invoice-web/invoice"
	"github.com/gymcoding/invoice-web/invoicerepo"
	"github.com/gymcoding/invoice-web/query"
	"github.com/gymcoding/invoice-web/ratelimit"
	"github.com/gymcoding/invoice-web/record"
	"github.com/gymcoding/invoice-web/remote"
	"github.com/gymcoding/invoice-web/retry"
)

// Container owns the long-lived service objects: the response cache, the
// in-flight request table inside the repository, and the rate limiter with
// its janitor. Build one per process and share it.
type Container struct {
	config *config.Config
	logger *slog.Logger

	store         remote.Store
	cacheService  cache.CacheService
	keySerializer cache.KeySerializer
	fetcher       *record.Fetcher
	transformer   *invoice.Transformer
	engine        *query.Engine
	repository    *invoicerepo.Repository

	limiter  *ratelimit.Limiter
	stats    ratelimit.StatsStore
	redis    *redis.Client
	sessions *auth.Sessions

	clock    sturdyc.Clock
	renderer document.Renderer

	mu          sync.Mutex
	stopJanitor context.CancelFunc
	janitorDone <-chan struct{}
}

// Option configures a Container.
type Option func(*Container)

// WithLogger sets the logger handed to every component.
func WithLogger(l *slog.Logger) Option {
	return func(c *Container) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithCacheClock sets the cache clock, for tests.
func WithCacheClock(clock sturdyc.Clock) Option {
	return func(c *Container) {
		c.clock = clock
	}
}

// WithRenderer enables document downloads.
func WithRenderer(r document.Renderer) Option {
	return func(c *Container) {
		c.renderer = r
	}
}

// WithStatsStore overrides the rate limit statistics store picked from the
// configuration.
func WithStatsStore(s ratelimit.StatsStore) Option {
	return func(c *Container) {
		c.stats = s
	}
}

// NewContainer wires every component on top of store.
func NewContainer(store remote.Store, cfg *config.Config, opts ...Option) (*Container, error) {
	if store == nil {
		return nil, errors.New("di: store is required")
	}
	if cfg == nil {
		return nil, errors.New("di: config is required")
	}

	c := &Container{config: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}

	cacheCfg := cache.DefaultConfig()
	cacheCfg.Capacity = cfg.Cache.Capacity
	cacheCfg.NumShards = cfg.Cache.Shards
	cacheCfg.TTL = cfg.Cache.MaxTTL
	cacheCfg.DefaultTTL = cfg.Cache.TTL
	cacheCfg.Clock = c.clock

	cacheService, err := cache.NewCacheService(cacheCfg)
	if err != nil {
		return nil, fmt.Errorf("di: cache: %w", err)
	}
	c.cacheService = cacheService
	c.keySerializer = cache.NewDefaultKeySerializer("invoice")

	policy := retry.Policy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   cfg.Retry.BaseDelay,
		MaxDelay:    cfg.Retry.MaxDelay,
		Logger:      c.logger,
	}

	c.store = remote.NewThrottledStore(store, cfg.Store.RPS, cfg.Store.Burst)
	c.fetcher = record.NewFetcher(c.store, record.WithLogger(c.logger))
	c.transformer = invoice.NewTransformer(invoice.DefaultSchema())
	c.engine = query.NewEngine(c.store, c.fetcher, c.transformer, cfg.Store.DataSourceID,
		query.WithRetryPolicy(policy),
		query.WithLogger(c.logger),
	)
	c.repository = invoicerepo.New(c.fetcher, c.engine, c.transformer, c.cacheService, c.keySerializer,
		invoicerepo.WithTTL(cfg.Cache.TTL),
		invoicerepo.WithRetryPolicy(policy),
		invoicerepo.WithLogger(c.logger),
	)

	c.limiter = ratelimit.NewLimiter(cfg.RateLimit.Limit, cfg.RateLimit.Window,
		ratelimit.WithSweepEvery(cfg.RateLimit.SweepEvery),
	)
	if c.stats == nil {
		c.stats = c.newStatsStore()
	}

	c.sessions = auth.NewSessions(cfg.Admin.Password, cfg.Admin.SessionSecret,
		auth.WithTTL(cfg.Admin.SessionTTL),
		auth.WithSecureCookie(cfg.IsProduction()),
	)

	return c, nil
}

func (c *Container) newStatsStore() ratelimit.StatsStore {
	if c.config.Redis.Addr == "" {
		return ratelimit.NewMemoryStatsStore()
	}

	c.redis = redis.NewClient(&redis.Options{
		Addr:     c.config.Redis.Addr,
		Password: c.config.Redis.Password,
		DB:       c.config.Redis.DB,
	})
	return ratelimit.NewRedisStatsStore(c.redis, ratelimit.WithStatsPrefix(c.config.RateLimit.StatsPrefix))
}

// Start launches the rate limiter janitor. Calling Start again while the
// janitor runs has no effect.
func (c *Container) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopJanitor != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	c.stopJanitor = cancel
	c.janitorDone = c.limiter.StartJanitor(ctx)
}

// Close stops the janitor, waits for it to exit and releases the Redis
// client.
func (c *Container) Close() error {
	c.mu.Lock()
	cancel, done := c.stopJanitor, c.janitorDone
	c.stopJanitor, c.janitorDone = nil, nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	if c.redis != nil {
		return c.redis.Close()
	}
	return nil
}

// Handler builds the HTTP router over the container's components.
func (c *Container) Handler() http.Handler {
	return apphttp.New(
		invoicehttp.NewHandler(c.repository, c.renderer, c.logger),
		admin.NewHandler(c.repository, c.sessions, c.logger),
		apphttp.Options{
			Logger: c.logger,
			RateLimit: ratelimit.Options{
				Limiter: c.limiter,
				Stats:   c.stats,
				Logger:  c.logger,
			},
			Concurrency: ratelimit.ConcurrencyOptions{Max: c.config.RateLimit.ConcurrencyMax},
		},
	)
}

// Config returns the configuration the container was built with.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the shared logger.
func (c *Container) Logger() *slog.Logger {
	return c.logger
}

// CacheService returns the singleton cache service instance.
func (c *Container) CacheService() cache.CacheService {
	return c.cacheService
}

// KeySerializer returns the singleton key serializer instance.
func (c *Container) KeySerializer() cache.KeySerializer {
	return c.keySerializer
}

// Engine returns the list query engine.
func (c *Container) Engine() *query.Engine {
	return c.engine
}

// Repository returns the cached invoice repository.
func (c *Container) Repository() *invoicerepo.Repository {
	return c.repository
}

// Limiter returns the ingress rate limiter.
func (c *Container) Limiter() *ratelimit.Limiter {
	return c.limiter
}

// Stats returns the rate limit statistics store.
func (c *Container) Stats() ratelimit.StatsStore {
	return c.stats
}

// Sessions returns the admin session manager.
func (c *Container) Sessions() *auth.Sessions {
	return c.sessions
}
