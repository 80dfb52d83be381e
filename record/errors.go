package record

import (
	"errors"
	"fmt"
)

// Kind classifies a fetch failure.
type Kind int

const (
	KindTransient Kind = iota
	KindNotFound
	KindInvalidData
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidData:
		return "invalid_data"
	default:
		return "transient"
	}
}

// Sentinels for errors.Is matching against a *FetchError's kind.
var (
	ErrNotFound    = errors.New("record not found")
	ErrInvalidData = errors.New("record failed validation")
	ErrTransient   = errors.New("transient provider failure")
)

// FetchError is the single error type returned by Fetcher.
type FetchError struct {
	Kind     Kind
	RecordID string
	// Code is the provider error code, or a local code for validation
	// failures.
	Code string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch record %s: %s (%s): %v", e.RecordID, e.Kind, e.Code, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinels.
func (e *FetchError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrInvalidData:
		return e.Kind == KindInvalidData
	case ErrTransient:
		return e.Kind == KindTransient
	}
	return false
}

// Terminal reports whether retrying cannot help.
func (e *FetchError) Terminal() bool {
	return e.Kind == KindNotFound || e.Kind == KindInvalidData
}

// KindOf returns the kind of err, treating unclassified errors as transient.
func KindOf(err error) Kind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindTransient
}
