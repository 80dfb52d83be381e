// Package importer turns fixture files and spreadsheet exports into store
// records.
//
// Two formats are understood. YAML documents list invoices with nested items:
//
//	invoices:
//	  - number: INV-2025-001
//	    client: Acme
//	    issue_date: 2025-01-10
//	    status: approved
//	    items:
//	      - description: Design
//	        quantity: 2
//	        unit_price: 100
//
// CSV exports hold one row per line item with the store property names as
// header. Rows sharing an invoice number belong to one invoice, and the
// first such row supplies the invoice fields.
package importer

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/gymcoding/invoice-web/invoice"
	"github.com/gymcoding/invoice-web/remote"
)

// Writer stores records in a data source.
type Writer interface {
	Put(ctx context.Context, dataSourceID string, rec remote.Record) error
}

// Batch is the result of one import.
type Batch struct {
	Invoices []remote.Record
	Items    []remote.Record
}

// Len returns the number of invoices in the batch.
func (b Batch) Len() int {
	return len(b.Invoices)
}

// Load writes items first, then invoices, so relations never point at
// missing records.
func (b Batch) Load(ctx context.Context, w Writer, invoiceDataSource, itemDataSource string) error {
	for _, rec := range b.Items {
		if err := w.Put(ctx, itemDataSource, rec); err != nil {
			return fmt.Errorf("load item %s: %w", rec.ID, err)
		}
	}
	for _, rec := range b.Invoices {
		if err := w.Put(ctx, invoiceDataSource, rec); err != nil {
			return fmt.Errorf("load invoice %s: %w", rec.ID, err)
		}
	}
	return nil
}

// Importer converts fixtures using a schema's property names.
type Importer struct {
	schema invoice.Schema
	newID  func() string
}

// Option configures an Importer.
type Option func(*Importer)

// WithIDGenerator replaces the UUID generator.
func WithIDGenerator(fn func() string) Option {
	return func(im *Importer) {
		if fn != nil {
			im.newID = fn
		}
	}
}

// New creates an Importer for schema.
func New(schema invoice.Schema, opts ...Option) *Importer {
	im := &Importer{schema: schema, newID: uuid.NewString}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// Parse picks the format from name's extension.
func (im *Importer) Parse(name string, r io.Reader) (Batch, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return im.ParseYAML(r)
	case ".csv":
		return im.ParseCSV(r)
	}
	return Batch{}, fmt.Errorf("unsupported fixture format %q", filepath.Ext(name))
}

// draft is the format-independent form of one invoice.
type draft struct {
	number     string
	client     string
	issueDate  string
	validUntil string
	status     string
	total      *float64
	items      []itemDraft
}

type itemDraft struct {
	description string
	quantity    *float64
	unitPrice   *float64
	amount      *float64
}

func (im *Importer) build(drafts []draft) (Batch, error) {
	var b Batch
	for i, d := range drafts {
		if strings.TrimSpace(d.number) == "" {
			return Batch{}, fmt.Errorf("invoice %d: number is required", i+1)
		}

		itemIDs := make([]string, 0, len(d.items))
		for j, it := range d.items {
			if strings.TrimSpace(it.description) == "" {
				return Batch{}, fmt.Errorf("invoice %s item %d: description is required", d.number, j+1)
			}
			rec := remote.Record{
				ID: im.newID(),
				Properties: map[string]remote.Property{
					im.schema.ItemDescription: remote.Title(it.description),
				},
			}
			setNumber(rec.Properties, im.schema.ItemQuantity, it.quantity)
			setNumber(rec.Properties, im.schema.ItemUnitPrice, it.unitPrice)
			setNumber(rec.Properties, im.schema.ItemAmount, it.amount)
			b.Items = append(b.Items, rec)
			itemIDs = append(itemIDs, rec.ID)
		}

		rec := remote.Record{
			ID: im.newID(),
			Properties: map[string]remote.Property{
				im.schema.InvoiceNumber: remote.Title(d.number),
				im.schema.Items:         remote.Relation(itemIDs...),
			},
		}
		if d.client != "" {
			rec.Properties[im.schema.ClientName] = remote.RichText(d.client)
		}
		if d.issueDate != "" {
			rec.Properties[im.schema.IssueDate] = remote.Date(d.issueDate)
		}
		if d.validUntil != "" {
			rec.Properties[im.schema.ValidUntil] = remote.Date(d.validUntil)
		}
		if d.status != "" {
			rec.Properties[im.schema.Status] = remote.Select(im.statusLabel(d.status))
		}
		setNumber(rec.Properties, im.schema.TotalAmount, d.total)
		b.Invoices = append(b.Invoices, rec)
	}
	return b, nil
}

// statusLabel accepts either a status code or a provider label.
func (im *Importer) statusLabel(s string) string {
	s = strings.TrimSpace(s)
	if st, err := invoice.ParseStatus(s); err == nil {
		if label, ok := im.schema.LabelFor(st); ok {
			return label
		}
	}
	return s
}

func setNumber(props map[string]remote.Property, name string, v *float64) {
	if v != nil {
		props[name] = remote.Number(*v)
	}
}
