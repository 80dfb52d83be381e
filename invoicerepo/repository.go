package invoicerepo

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gymcoding/invoice-web/cache"
	"github.com/gymcoding/invoice-web/dedup"
	"github.com/gymcoding/invoice-web/invoice"
	"github.com/gymcoding/invoice-web/query"
	"github.com/gymcoding/invoice-web/record"
	"github.com/gymcoding/invoice-web/retry"
)

// DefaultTTL is how long a fetched invoice is served from cache.
const DefaultTTL = 60 * time.Second

// Repository serves invoices through request deduplication and a response
// cache in front of the remote store.
type Repository struct {
	cache       cache.CacheService
	keys        cache.KeySerializer
	flights     *dedup.Group[invoice.Invoice]
	fetcher     *record.Fetcher
	engine      *query.Engine
	transformer *invoice.Transformer
	retry       retry.Policy
	ttl         time.Duration
	logger      *slog.Logger
}

// Option configures a Repository.
type Option func(*Repository)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(r *Repository) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithRetryPolicy overrides the policy used around single-record loads.
func WithRetryPolicy(p retry.Policy) Option {
	return func(r *Repository) {
		r.retry = p
	}
}

// WithLogger sets the repository logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Repository) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a Repository. The engine assembles single records the same way
// it assembles list pages.
func New(fetcher *record.Fetcher, engine *query.Engine, transformer *invoice.Transformer, cacheService cache.CacheService, keySerializer cache.KeySerializer, opts ...Option) *Repository {
	r := &Repository{
		cache:       cacheService,
		keys:        keySerializer,
		flights:     dedup.New[invoice.Invoice](),
		fetcher:     fetcher,
		engine:      engine,
		transformer: transformer,
		retry:       retry.DefaultPolicy(),
		ttl:         DefaultTTL,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.retry.Logger == nil {
		r.retry.Logger = r.logger
	}
	return r
}

// GetByID returns the invoice with id. Concurrent callers for the same id
// share one load; a successful load is cached for the repository TTL and
// tagged with cache.DefaultTag plus any tags attached with WithCacheTags.
// Not-found and invalid records fail immediately, other failures are retried.
func (r *Repository) GetByID(ctx context.Context, id string) (invoice.Invoice, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return invoice.Invoice{}, fmt.Errorf("%w: empty id", record.ErrNotFound)
	}

	key := r.keys.SerializeKey("GetByID", id)
	tags := append([]string{cache.DefaultTag}, cacheTagsFromContext(ctx)...)

	inv, err := r.flights.Do(ctx, key, func(ctx context.Context) (invoice.Invoice, error) {
		return cache.GetOrLoad(ctx, r.cache, key, func(ctx context.Context) (invoice.Invoice, error) {
			return retry.Do(ctx, r.retry, func(ctx context.Context) (invoice.Invoice, error) {
				return r.load(ctx, id)
			})
		}, cache.WithTTL(r.ttl), cache.WithTags(tags...))
	})
	if err != nil {
		return invoice.Invoice{}, err
	}

	return inv.Clone(), nil
}

func (r *Repository) load(ctx context.Context, id string) (invoice.Invoice, error) {
	rec, err := r.fetcher.Fetch(ctx, id, r.transformer.Schema().InvoiceShape())
	if err != nil {
		return invoice.Invoice{}, err
	}
	return r.engine.Assemble(ctx, rec), nil
}

// List returns one page of invoices. Pages are not cached.
func (r *Repository) List(ctx context.Context, pageSize int, cursor string, sort query.SortField) (query.Page, error) {
	return r.engine.List(ctx, pageSize, cursor, sort)
}

// Search returns one page of invoices matching filters. Pages are not cached.
func (r *Repository) Search(ctx context.Context, filters query.Filters, pageSize int, cursor string) (query.Page, error) {
	return r.engine.Search(ctx, filters, pageSize, cursor)
}

// InvalidateTag drops every cached invoice carrying tag.
func (r *Repository) InvalidateTag(ctx context.Context, tag string) error {
	if tag == "" {
		tag = cache.DefaultTag
	}
	if err := r.cache.InvalidateTag(ctx, tag); err != nil {
		return fmt.Errorf("invalidate tag %q: %w", tag, err)
	}
	r.logger.InfoContext(ctx, "invoice cache invalidated", slog.String("tag", tag))
	return nil
}

// Invalidate drops the cached invoice with id.
func (r *Repository) Invalidate(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if err := r.cache.Delete(ctx, r.keys.SerializeKey("GetByID", id)); err != nil {
		return fmt.Errorf("invalidate %q: %w", id, err)
	}
	r.logger.InfoContext(ctx, "invoice cache entry invalidated", slog.String("id", id))
	return nil
}
