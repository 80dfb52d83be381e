// Package record retrieves raw records and their linked children from the
// remote store and normalises provider failures into a small taxonomy.
package record

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gymcoding/invoice-web/internal/fanout"
	"github.com/gymcoding/invoice-web/remote"
)

const (
	codeMissingProperties = "missing_properties"
	codeMissingProperty   = "missing_property"
	codeUnknown           = "unknown"
)

// Shape lists the properties a record must carry to be considered valid.
type Shape struct {
	Name     string
	Required []string
}

// Matches reports whether rec satisfies the shape.
func (s Shape) Matches(rec remote.Record) bool {
	return validate(rec, s) == nil
}

// JoinReport summarises a FetchMany call.
type JoinReport struct {
	Requested int
	Failures  []fanout.Failure
}

// Failed returns the number of ids that could not be fetched.
func (r JoinReport) Failed() int {
	return len(r.Failures)
}

// Complete reports whether every requested record was fetched.
func (r JoinReport) Complete() bool {
	return len(r.Failures) == 0
}

// Fetcher reads records from a remote.Store.
type Fetcher struct {
	store       remote.Store
	logger      *slog.Logger
	concurrency int
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithLogger sets the logger used for failure entries.
func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithConcurrency bounds the number of concurrent child fetches per
// FetchMany call. Zero means unbounded.
func WithConcurrency(n int) Option {
	return func(f *Fetcher) {
		f.concurrency = n
	}
}

// NewFetcher builds a Fetcher over store.
func NewFetcher(store remote.Store, opts ...Option) *Fetcher {
	f := &Fetcher{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch retrieves one record and validates it against shape. Every failure
// is logged once with the record id and error code and returned as a
// *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, id string, shape Shape) (remote.Record, error) {
	rec, err := f.store.GetRecord(ctx, id)
	if err != nil {
		return remote.Record{}, f.fail(ctx, classify(id, err))
	}

	if err := validate(rec, shape); err != nil {
		err.RecordID = id
		return remote.Record{}, f.fail(ctx, err)
	}

	return rec, nil
}

// FetchMany retrieves ids concurrently. Failed ids are reported, never
// returned as an error, and the successful records keep the order of ids.
func (f *Fetcher) FetchMany(ctx context.Context, ids []string, shape Shape) ([]remote.Record, JoinReport) {
	res := fanout.Run(ctx, ids, f.concurrency, func(ctx context.Context, id string) (remote.Record, error) {
		return f.Fetch(ctx, id, shape)
	})

	return res.Values, JoinReport{
		Requested: len(ids),
		Failures:  res.Failures,
	}
}

func (f *Fetcher) fail(ctx context.Context, err *FetchError) *FetchError {
	f.logger.ErrorContext(ctx, "remote record fetch failed",
		slog.String("record_id", err.RecordID),
		slog.String("error_code", err.Code),
		slog.String("kind", err.Kind.String()),
	)
	return err
}

func classify(id string, err error) *FetchError {
	var pe *remote.ProviderError
	if errors.As(err, &pe) {
		kind := KindTransient
		if pe.Code == remote.CodeObjectNotFound {
			kind = KindNotFound
		}
		return &FetchError{Kind: kind, RecordID: id, Code: pe.Code, Err: err}
	}

	code := codeUnknown
	switch {
	case errors.Is(err, context.Canceled):
		code = "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		code = "timeout"
	}
	return &FetchError{Kind: KindTransient, RecordID: id, Code: code, Err: err}
}

func validate(rec remote.Record, shape Shape) *FetchError {
	if !rec.HasProperties() {
		return &FetchError{
			Kind: KindInvalidData,
			Code: codeMissingProperties,
			Err:  fmt.Errorf("%s record has no property bag", shapeName(shape)),
		}
	}

	for _, name := range shape.Required {
		if _, ok := rec.Properties[name]; !ok {
			return &FetchError{
				Kind: KindInvalidData,
				Code: codeMissingProperty,
				Err:  fmt.Errorf("%s record lacks property %q", shapeName(shape), name),
			}
		}
	}
	return nil
}

func shapeName(s Shape) string {
	if s.Name == "" {
		return "remote"
	}
	return s.Name
}
