// Package document names and renders downloadable invoice documents.
package document

import (
	"context"
	"errors"
	"io"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/gymcoding/invoice-web/invoice"
)

// FilenamePrefix starts every generated document name.
const FilenamePrefix = "invoice"

// ErrInvalidInvoice is returned by renderers for invoices without a number.
var ErrInvalidInvoice = errors.New("invalid invoice data")

// Renderer writes a document for an invoice.
type Renderer interface {
	// ContentType is the media type of the rendered output, for example
	// "application/pdf".
	ContentType() string
	// Render writes the document for inv to w.
	Render(ctx context.Context, w io.Writer, inv invoice.Invoice) error
}

var (
	stripped   = strings.NewReplacer("#", "", "(", "", ")", "")
	whitespace = regexp.MustCompile(`\s+`)
	lower      = cases.Lower(language.Und)
)

// Sanitize makes text safe for use in a file name:
//
//	Sanitize("견적서 #001 (2025.10.07)") == "견적서-001-2025-10-07"
func Sanitize(text string) string {
	s := stripped.Replace(text)
	s = whitespace.ReplaceAllString(s, "-")
	s = strings.ReplaceAll(s, ".", "-")
	return lower.String(s)
}

// Filename returns the download name for an invoice number.
func Filename(invoiceNumber string) string {
	return FilenamePrefix + "-" + Sanitize(invoiceNumber) + ".pdf"
}

// Validate reports ErrInvalidInvoice when inv cannot be rendered.
func Validate(inv invoice.Invoice) error {
	if strings.TrimSpace(inv.InvoiceNumber) == "" {
		return ErrInvalidInvoice
	}
	return nil
}
