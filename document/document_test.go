package document

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gymcoding/invoice-web/invoice"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"견적서 #001 (2025.10.07)", "견적서-001-2025-10-07"},
		{"INV-2025-001", "inv-2025-001"},
		{"  Q1   Report ", "-q1-report-"},
		{"a.b.c", "a-b-c"},
		{"(#)", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.in))
		})
	}
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "invoice-inv-2025-001.pdf", Filename("INV-2025-001"))
	assert.Equal(t, "invoice-견적서-001.pdf", Filename("견적서 #001"))
}

func TestValidate(t *testing.T) {
	assert.ErrorIs(t, Validate(invoice.Invoice{}), ErrInvalidInvoice)
	assert.ErrorIs(t, Validate(invoice.Invoice{InvoiceNumber: "  "}), ErrInvalidInvoice)
	assert.NoError(t, Validate(invoice.Invoice{InvoiceNumber: "INV-1"}))
}
