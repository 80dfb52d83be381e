// Package query lists and searches invoices page by page against the remote
// store, joining each invoice's line items concurrently.
package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gymcoding/invoice-web/internal/fanout"
	"github.com/gymcoding/invoice-web/invoice"
	"github.com/gymcoding/invoice-web/record"
	"github.com/gymcoding/invoice-web/remote"
	"github.com/gymcoding/invoice-web/retry"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = remote.MaxPageSize
)

// User-facing failure messages.
const (
	MsgListFailed   = "unable to load invoices"
	MsgSearchFailed = "invoice search failed"
)

// Page is one page of invoices. NextCursor is nil on the last page.
type Page struct {
	Records    []invoice.Invoice `json:"records"`
	NextCursor *string           `json:"nextCursor"`
	HasMore    bool              `json:"hasMore"`
}

// Failure is returned when a list or search fails. Its message is fixed and
// safe to show; the cause stays reachable through Unwrap for logging.
type Failure struct {
	Op      string
	Message string
	Err     error
}

func (e *Failure) Error() string {
	return e.Message
}

func (e *Failure) Unwrap() error {
	return e.Err
}

// Engine runs list and search queries.
type Engine struct {
	store        remote.Store
	fetcher      *record.Fetcher
	transformer  *invoice.Transformer
	dataSourceID string
	retry        retry.Policy
	logger       *slog.Logger
	concurrency  int
}

// Option configures an Engine.
type Option func(*Engine)

// WithRetryPolicy overrides the policy used for the page query.
func WithRetryPolicy(p retry.Policy) Option {
	return func(e *Engine) {
		e.retry = p
	}
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithConcurrency bounds how many invoices are assembled at once. Zero means
// the whole page at once.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		e.concurrency = n
	}
}

// NewEngine builds an Engine querying dataSourceID.
func NewEngine(store remote.Store, fetcher *record.Fetcher, transformer *invoice.Transformer, dataSourceID string, opts ...Option) *Engine {
	e := &Engine{
		store:        store,
		fetcher:      fetcher,
		transformer:  transformer,
		dataSourceID: dataSourceID,
		retry:        retry.DefaultPolicy(),
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.retry.Logger == nil {
		e.retry.Logger = e.logger
	}
	return e
}

// ClampPageSize applies the default and the store maximum.
func ClampPageSize(n int) int {
	if n <= 0 {
		return DefaultPageSize
	}
	if n > MaxPageSize {
		return MaxPageSize
	}
	return n
}

// List returns one page of invoices ordered by sort, descending.
func (e *Engine) List(ctx context.Context, pageSize int, cursor string, sort SortField) (Page, error) {
	if sort == "" {
		sort = SortIssueDate
	}

	q := remote.Query{
		DataSourceID: e.dataSourceID,
		PageSize:     ClampPageSize(pageSize),
		Cursor:       cursor,
		Sorts:        []remote.Sort{{Property: e.sortProperty(sort), Direction: remote.Descending}},
	}

	page, err := e.run(ctx, q)
	if err != nil {
		e.logger.ErrorContext(ctx, "invoice list failed",
			slog.String("sort", string(sort)),
			slog.Any("error", err),
		)
		return Page{}, &Failure{Op: "list", Message: MsgListFailed, Err: err}
	}

	e.logger.InfoContext(ctx, "invoice list loaded",
		slog.Int("count", len(page.Records)),
		slog.Bool("has_more", page.HasMore),
		slog.String("sort", string(sort)),
	)
	return page, nil
}

// Search returns one page of invoices matching filters, newest issue date
// first. Invalid filters are reported with ErrInvalidFilters.
func (e *Engine) Search(ctx context.Context, filters Filters, pageSize int, cursor string) (Page, error) {
	filters = filters.Normalize()
	if err := filters.Validate(); err != nil {
		return Page{}, err
	}

	q := remote.Query{
		DataSourceID: e.dataSourceID,
		PageSize:     ClampPageSize(pageSize),
		Cursor:       cursor,
		Sorts:        []remote.Sort{{Property: e.transformer.Schema().IssueDate, Direction: remote.Descending}},
		Filter:       BuildFilter(e.transformer.Schema(), filters),
	}

	page, err := e.run(ctx, q)
	if err != nil {
		e.logger.ErrorContext(ctx, "invoice search failed",
			slog.Any("filters", filters),
			slog.Any("error", err),
		)
		return Page{}, &Failure{Op: "search", Message: MsgSearchFailed, Err: err}
	}

	e.logger.InfoContext(ctx, "invoice search loaded",
		slog.Int("count", len(page.Records)),
		slog.Bool("has_more", page.HasMore),
		slog.Any("filters", filters),
	)
	return page, nil
}

func (e *Engine) run(ctx context.Context, q remote.Query) (Page, error) {
	res, err := retry.Do(ctx, e.retry, func(ctx context.Context) (remote.QueryResult, error) {
		res, err := e.store.QueryDataSource(ctx, q)
		if err != nil {
			return remote.QueryResult{}, classify(err)
		}
		return res, nil
	})
	if err != nil {
		return Page{}, err
	}

	shape := e.transformer.Schema().InvoiceShape()
	parents := make([]remote.Record, 0, len(res.Results))
	for _, rec := range res.Results {
		if shape.Matches(rec) {
			parents = append(parents, rec)
		}
	}

	assembled := fanout.Run(ctx, parents, e.concurrency, func(ctx context.Context, rec remote.Record) (invoice.Invoice, error) {
		return e.Assemble(ctx, rec), nil
	})

	page := Page{
		Records: assembled.Values,
		HasMore: res.HasMore,
	}
	if page.Records == nil {
		page.Records = []invoice.Invoice{}
	}
	if res.NextCursor != "" {
		next := res.NextCursor
		page.NextCursor = &next
	}
	return page, nil
}

// Assemble fetches the line items of rec concurrently and transforms the
// result. Items that fail to load are left out and logged as one entry.
func (e *Engine) Assemble(ctx context.Context, rec remote.Record) invoice.Invoice {
	schema := e.transformer.Schema()
	ids := rec.RelationIDs(schema.Items)

	children, report := e.fetcher.FetchMany(ctx, ids, schema.ItemShape())
	if !report.Complete() {
		e.logger.WarnContext(ctx, "child record join incomplete",
			slog.String("parent_id", rec.ID),
			slog.Int("failed_count", report.Failed()),
			slog.Int("total_count", report.Requested),
		)
	}

	return e.transformer.ToInvoice(rec, children)
}

func (e *Engine) sortProperty(sort SortField) string {
	schema := e.transformer.Schema()
	if sort == SortTotalAmount {
		return schema.TotalAmount
	}
	return schema.IssueDate
}

// Query errors are classified like record errors so validation rejections
// from the store are not retried.
func classify(err error) error {
	var pe *remote.ProviderError
	if errors.As(err, &pe) && pe.Code == remote.CodeValidation {
		return &record.FetchError{Kind: record.KindInvalidData, Code: pe.Code, Err: err}
	}
	return fmt.Errorf("query data source: %w", err)
}
