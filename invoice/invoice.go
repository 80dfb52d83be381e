// Package invoice holds the canonical quotation model and the mapping from
// raw store records onto it.
package invoice

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of an invoice.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Statuses lists every valid status.
var Statuses = []Status{StatusPending, StatusApproved, StatusRejected}

// ParseStatus parses a status code such as "approved".
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Statuses {
		if st == known {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown invoice status %q", s)
}

// Item is one line of an invoice.
type Item struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Amount      decimal.Decimal `json:"amount"`
}

// Invoice is a quotation issued to a client. Dates are ISO calendar dates.
type Invoice struct {
	ID            string          `json:"id"`
	InvoiceNumber string          `json:"invoiceNumber"`
	ClientName    string          `json:"clientName"`
	IssueDate     string          `json:"issueDate"`
	ValidUntil    string          `json:"validUntil"`
	Items         []Item          `json:"items"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	Status        Status          `json:"status"`
}

// Clone returns a copy that shares no mutable state with inv.
func (inv Invoice) Clone() Invoice {
	out := inv
	if inv.Items != nil {
		out.Items = make([]Item, len(inv.Items))
		copy(out.Items, inv.Items)
	}
	return out
}

// ItemsTotal sums the item amounts.
func (inv Invoice) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range inv.Items {
		total = total.Add(it.Amount)
	}
	return total
}
