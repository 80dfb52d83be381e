package query_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gymcoding/invoice-web/invoice"
	"github.com/gymcoding/invoice-web/query"
	"github.com/gymcoding/invoice-web/remote"
)

func TestParseSortField(t *testing.T) {
	tests := []struct {
		in      string
		want    query.SortField
		wantErr bool
	}{
		{in: "", want: query.SortIssueDate},
		{in: "issue_date", want: query.SortIssueDate},
		{in: "total_amount", want: query.SortTotalAmount},
		{in: "client", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := query.ParseSortField(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFilters_Validate(t *testing.T) {
	tests := []struct {
		name    string
		filters query.Filters
		wantErr bool
	}{
		{name: "empty", filters: query.Filters{}},
		{name: "all valid", filters: query.Filters{Query: "acme", Status: "approved", DateFrom: "2025-01-01", DateTo: "2025-12-31"}},
		{name: "unknown status", filters: query.Filters{Status: "archived"}, wantErr: true},
		{name: "bad date", filters: query.Filters{DateFrom: "01/02/2025"}, wantErr: true},
		{name: "inverted range", filters: query.Filters{DateFrom: "2025-02-01", DateTo: "2025-01-01"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.filters.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, query.ErrInvalidFilters)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestBuildFilter(t *testing.T) {
	schema := invoice.DefaultSchema()

	assert.Nil(t, query.BuildFilter(schema, query.Filters{}))
	assert.True(t, query.Filters{Query: "  "}.IsZero())

	got := query.BuildFilter(schema, query.Filters{
		Query:    " acme ",
		Status:   "approved",
		DateFrom: "2025-01-01",
	})

	want := remote.And{
		remote.Or{
			remote.TextContains{Property: "클라이언트명", Kind: remote.PropertyRichText, Value: "acme"},
			remote.TextContains{Property: "견적서 번호", Kind: remote.PropertyTitle, Value: "acme"},
		},
		remote.SelectEquals{Property: "상태", Value: "승인"},
		remote.DateRange{Property: "발행일", OnOrAfter: "2025-01-01"},
	}
	assert.Equal(t, want, got)
}

func TestBuildFilter_DateToOnly(t *testing.T) {
	got := query.BuildFilter(invoice.DefaultSchema(), query.Filters{DateTo: "2025-06-30"})
	assert.Equal(t, remote.And{remote.DateRange{Property: "발행일", OnOrBefore: "2025-06-30"}}, got)
}
