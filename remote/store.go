package remote

import (
	"context"
	"fmt"
	"net/http"
)

//go:generate mockgen -source=store.go -destination=mock_store.go -package=remote

// Store is the pair of primitives the hosted record store exposes.
type Store interface {
	// GetRecord fetches a single record by id.
	GetRecord(ctx context.Context, id string) (Record, error)
	// QueryDataSource fetches one page of records from a data source.
	QueryDataSource(ctx context.Context, q Query) (QueryResult, error)
}

// Provider error codes.
const (
	CodeObjectNotFound     = "object_not_found"
	CodeValidation         = "validation_error"
	CodeUnauthorized       = "unauthorized"
	CodeRateLimited        = "rate_limited"
	CodeConflict           = "conflict_error"
	CodeInternal           = "internal_server_error"
	CodeServiceUnavailable = "service_unavailable"
	CodeTimeout            = "gateway_timeout"
)

// ProviderError is an error reported by the store itself.
type ProviderError struct {
	Status  int
	Code    string
	Message string
}

func (e *ProviderError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote store: %s (status %d)", e.Code, e.Status)
	}
	return fmt.Sprintf("remote store: %s (status %d): %s", e.Code, e.Status, e.Message)
}

// NotFound returns the provider error for a missing record.
func NotFound(id string) *ProviderError {
	return &ProviderError{
		Status:  http.StatusNotFound,
		Code:    CodeObjectNotFound,
		Message: fmt.Sprintf("could not find record with id %s", id),
	}
}
