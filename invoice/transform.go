package invoice

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gymcoding/invoice-web/remote"
)

// Transformer maps raw records onto invoices. It never fails: missing or
// malformed values degrade to defaults.
type Transformer struct {
	schema Schema
	now    func() time.Time
}

// TransformerOption configures a Transformer.
type TransformerOption func(*Transformer)

// WithClock overrides the clock used for the issue date fallback.
func WithClock(now func() time.Time) TransformerOption {
	return func(t *Transformer) {
		if now != nil {
			t.now = now
		}
	}
}

// NewTransformer builds a Transformer for schema.
func NewTransformer(schema Schema, opts ...TransformerOption) *Transformer {
	t := &Transformer{schema: schema, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Schema returns the schema the transformer reads.
func (t *Transformer) Schema() Schema {
	return t.schema
}

// ToItem maps a line item record.
func (t *Transformer) ToItem(rec remote.Record) Item {
	props := rec.Properties

	quantity, _ := number(props, t.schema.ItemQuantity)
	if quantity.IsNegative() {
		quantity = decimal.Zero
	}
	unitPrice, _ := number(props, t.schema.ItemUnitPrice)

	amount, ok := number(props, t.schema.ItemAmount)
	if !ok {
		amount = quantity.Mul(unitPrice)
	}

	return Item{
		ID:          rec.ID,
		Description: textOr(props, t.schema.ItemDescription, DefaultItemDescription),
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		Amount:      amount,
	}
}

// ToInvoice maps an invoice record and its already fetched item records.
// Items keep the order of children.
func (t *Transformer) ToInvoice(rec remote.Record, children []remote.Record) Invoice {
	props := rec.Properties

	items := make([]Item, 0, len(children))
	for _, child := range children {
		items = append(items, t.ToItem(child))
	}

	issue, ok := date(props, t.schema.IssueDate)
	if !ok {
		issue = dateOnly(t.now())
	}
	validUntil, ok := date(props, t.schema.ValidUntil)
	if !ok {
		validUntil = issue.AddDate(0, 0, DefaultValidityDays)
	}

	inv := Invoice{
		ID:            rec.ID,
		InvoiceNumber: textOr(props, t.schema.InvoiceNumber, DefaultInvoiceNumber),
		ClientName:    textOr(props, t.schema.ClientName, DefaultClientName),
		IssueDate:     issue.Format(time.DateOnly),
		ValidUntil:    validUntil.Format(time.DateOnly),
		Items:         items,
		Status:        t.schema.StatusFromLabel(selectName(props, t.schema.Status)),
	}

	if total, ok := number(props, t.schema.TotalAmount); ok {
		inv.TotalAmount = total
	} else {
		inv.TotalAmount = inv.ItemsTotal()
	}

	return inv
}

func textOr(props map[string]remote.Property, name, fallback string) string {
	prop, ok := props[name]
	if !ok {
		return fallback
	}
	if s := strings.TrimSpace(prop.PlainText()); s != "" {
		return s
	}
	return fallback
}

// number reports false when the property is absent or empty. An explicit
// zero is a value.
func number(props map[string]remote.Property, name string) (decimal.Decimal, bool) {
	prop, ok := props[name]
	if !ok || prop.Type != remote.PropertyNumber || prop.Number == nil {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(*prop.Number), true
}

func selectName(props map[string]remote.Property, name string) string {
	prop, ok := props[name]
	if !ok || prop.Select == nil {
		return ""
	}
	return prop.Select.Name
}

func date(props map[string]remote.Property, name string) (time.Time, bool) {
	prop, ok := props[name]
	if !ok || prop.Date == nil {
		return time.Time{}, false
	}
	return ParseDate(prop.Date.Start)
}

// ParseDate accepts an ISO calendar date or an RFC 3339 timestamp and returns
// the calendar date it names.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if d, err := time.Parse(time.DateOnly, s); err == nil {
		return d, true
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
