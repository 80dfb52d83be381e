package invoice

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/gymcoding/invoice-web/record"
)

// Defaults applied when a record omits a value.
const (
	DefaultInvoiceNumber   = "INV-UNKNOWN"
	DefaultClientName      = "미지정"
	DefaultItemDescription = "항목명 없음"
	DefaultValidityDays    = 7
)

// Schema names the store properties that hold each field and the store's
// labels for each status.
type Schema struct {
	InvoiceNumber string
	ClientName    string
	IssueDate     string
	ValidUntil    string
	TotalAmount   string
	Status        string
	Items         string

	ItemDescription string
	ItemQuantity    string
	ItemUnitPrice   string
	ItemAmount      string

	StatusLabels map[Status]string
}

// DefaultSchema matches the quotation database layout.
func DefaultSchema() Schema {
	return Schema{
		InvoiceNumber: "견적서 번호",
		ClientName:    "클라이언트명",
		IssueDate:     "발행일",
		ValidUntil:    "유효기간",
		TotalAmount:   "총 금액",
		Status:        "상태",
		Items:         "항목",

		ItemDescription: "항목명",
		ItemQuantity:    "수량",
		ItemUnitPrice:   "단가",
		ItemAmount:      "금액",

		StatusLabels: map[Status]string{
			StatusPending:  "대기",
			StatusApproved: "승인",
			StatusRejected: "거절",
		},
	}
}

// InvoiceShape is the structural requirement for invoice records.
func (s Schema) InvoiceShape() record.Shape {
	return record.Shape{Name: "invoice", Required: []string{s.InvoiceNumber}}
}

// ItemShape is the structural requirement for line item records.
func (s Schema) ItemShape() record.Shape {
	return record.Shape{Name: "item", Required: []string{s.ItemDescription}}
}

// StatusFromLabel maps a store label to a status, defaulting to pending.
func (s Schema) StatusFromLabel(label string) Status {
	key := normalizeLabel(label)
	if key == "" {
		return StatusPending
	}
	for st, l := range s.StatusLabels {
		if normalizeLabel(l) == key {
			return st
		}
	}
	return StatusPending
}

// LabelFor returns the store label for a status.
func (s Schema) LabelFor(st Status) (string, bool) {
	l, ok := s.StatusLabels[st]
	return l, ok
}

// Hangul labels can arrive decomposed depending on the client that wrote
// them, so comparisons happen in NFC.
func normalizeLabel(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
