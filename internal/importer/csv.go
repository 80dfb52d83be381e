package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ParseCSV reads a spreadsheet export in any of the encodings NewUTF8Reader
// recognises.
func (im *Importer) ParseCSV(r io.Reader) (Batch, error) {
	utf8r, err := NewUTF8Reader(r)
	if err != nil {
		return Batch{}, err
	}

	cr := csv.NewReader(utf8r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return Batch{}, nil
	}
	if err != nil {
		return Batch{}, fmt.Errorf("read csv header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.TrimSpace(h)] = i
	}
	if _, ok := col[im.schema.InvoiceNumber]; !ok {
		return Batch{}, fmt.Errorf("csv header is missing %q", im.schema.InvoiceNumber)
	}

	var (
		drafts []draft
		index  = map[string]int{}
	)
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Batch{}, fmt.Errorf("read csv line %d: %w", line, err)
		}

		get := func(name string) string {
			i, ok := col[name]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		number := get(im.schema.InvoiceNumber)
		if number == "" {
			continue
		}

		pos, seen := index[number]
		if !seen {
			total, err := parseAmount(get(im.schema.TotalAmount))
			if err != nil {
				return Batch{}, fmt.Errorf("csv line %d: %s: %w", line, im.schema.TotalAmount, err)
			}
			drafts = append(drafts, draft{
				number:     number,
				client:     get(im.schema.ClientName),
				issueDate:  get(im.schema.IssueDate),
				validUntil: get(im.schema.ValidUntil),
				status:     get(im.schema.Status),
				total:      total,
			})
			pos = len(drafts) - 1
			index[number] = pos
		}

		desc := get(im.schema.ItemDescription)
		if desc == "" {
			continue
		}
		item := itemDraft{description: desc}
		for name, dst := range map[string]**float64{
			im.schema.ItemQuantity:  &item.quantity,
			im.schema.ItemUnitPrice: &item.unitPrice,
			im.schema.ItemAmount:    &item.amount,
		} {
			v, err := parseAmount(get(name))
			if err != nil {
				return Batch{}, fmt.Errorf("csv line %d: %s: %w", line, name, err)
			}
			*dst = v
		}
		drafts[pos].items = append(drafts[pos].items, item)
	}

	return im.build(drafts)
}

var amountCleaner = strings.NewReplacer(",", "", "₩", "", "원", "", " ", "")

// parseAmount reads numbers such as "1,200,000" or "₩500". Empty means
// absent.
func parseAmount(s string) (*float64, error) {
	s = amountCleaner.Replace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q", s)
	}
	return &v, nil
}
