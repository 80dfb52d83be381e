package query

import (
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/gymcoding/invoice-web/invoice"
	"github.com/gymcoding/invoice-web/remote"
)

// SortField selects the property list results are ordered by. Results are
// always descending.
type SortField string

const (
	SortIssueDate   SortField = "issue_date"
	SortTotalAmount SortField = "total_amount"
)

// ParseSortField parses a sort name. The empty string selects issue date.
func ParseSortField(s string) (SortField, error) {
	switch SortField(strings.TrimSpace(s)) {
	case "", SortIssueDate:
		return SortIssueDate, nil
	case SortTotalAmount:
		return SortTotalAmount, nil
	}
	return "", fmt.Errorf("unsupported sort field %q", s)
}

// ErrInvalidFilters wraps filter validation failures.
var ErrInvalidFilters = errors.New("invalid search filters")

// Filters narrows a search. Every field is optional and present fields are
// combined with AND.
type Filters struct {
	// Query matches the client name or the invoice number.
	Query string `json:"query,omitempty"`
	// Status is a status code such as "approved".
	Status string `json:"status,omitempty"`
	// DateFrom and DateTo bound the issue date inclusively (YYYY-MM-DD).
	DateFrom string `json:"dateFrom,omitempty"`
	DateTo   string `json:"dateTo,omitempty"`
}

// Normalize trims whitespace from every field.
func (f Filters) Normalize() Filters {
	return Filters{
		Query:    strings.TrimSpace(f.Query),
		Status:   strings.ToLower(strings.TrimSpace(f.Status)),
		DateFrom: strings.TrimSpace(f.DateFrom),
		DateTo:   strings.TrimSpace(f.DateTo),
	}
}

// IsZero reports whether no filter is set.
func (f Filters) IsZero() bool {
	return f.Normalize() == Filters{}
}

// Validate checks the filter values.
func (f Filters) Validate() error {
	statuses := make([]any, 0, len(invoice.Statuses))
	for _, s := range invoice.Statuses {
		statuses = append(statuses, string(s))
	}

	err := validation.ValidateStruct(&f,
		validation.Field(&f.Query, validation.Length(0, 100)),
		validation.Field(&f.Status, validation.In(statuses...)),
		validation.Field(&f.DateFrom, validation.Date(time.DateOnly)),
		validation.Field(&f.DateTo, validation.Date(time.DateOnly), validation.By(f.notBeforeFrom)),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFilters, err)
	}
	return nil
}

func (f Filters) notBeforeFrom(value any) error {
	to, _ := value.(string)
	if to == "" || f.DateFrom == "" {
		return nil
	}
	from, errFrom := time.Parse(time.DateOnly, f.DateFrom)
	until, errTo := time.Parse(time.DateOnly, to)
	if errFrom != nil || errTo != nil {
		return nil
	}
	if until.Before(from) {
		return errors.New("must not be before dateFrom")
	}
	return nil
}

// BuildFilter translates filters into the store's filter tree. It returns nil
// when no clause applies. Filters are expected to be valid.
func BuildFilter(schema invoice.Schema, f Filters) remote.Filter {
	f = f.Normalize()
	var clauses remote.And

	if f.Query != "" {
		clauses = append(clauses, remote.Or{
			remote.TextContains{Property: schema.ClientName, Kind: remote.PropertyRichText, Value: f.Query},
			remote.TextContains{Property: schema.InvoiceNumber, Kind: remote.PropertyTitle, Value: f.Query},
		})
	}

	if f.Status != "" {
		if label, ok := schema.LabelFor(invoice.Status(f.Status)); ok {
			clauses = append(clauses, remote.SelectEquals{Property: schema.Status, Value: label})
		}
	}

	if f.DateFrom != "" || f.DateTo != "" {
		clauses = append(clauses, remote.DateRange{
			Property:   schema.IssueDate,
			OnOrAfter:  f.DateFrom,
			OnOrBefore: f.DateTo,
		})
	}

	if len(clauses) == 0 {
		return nil
	}
	return clauses
}
