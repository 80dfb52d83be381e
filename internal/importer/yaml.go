package importer

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

type yamlDocument struct {
	Invoices []yamlInvoice `yaml:"invoices"`
}

type yamlInvoice struct {
	Number     string     `yaml:"number"`
	Client     string     `yaml:"client"`
	IssueDate  string     `yaml:"issue_date"`
	ValidUntil string     `yaml:"valid_until"`
	Status     string     `yaml:"status"`
	Total      *float64   `yaml:"total"`
	Items      []yamlItem `yaml:"items"`
}

type yamlItem struct {
	Description string   `yaml:"description"`
	Quantity    *float64 `yaml:"quantity"`
	UnitPrice   *float64 `yaml:"unit_price"`
	Amount      *float64 `yaml:"amount"`
}

// ParseYAML reads a YAML fixture document.
func (im *Importer) ParseYAML(r io.Reader) (Batch, error) {
	var doc yamlDocument
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return Batch{}, fmt.Errorf("decode yaml: %w", err)
	}

	drafts := make([]draft, 0, len(doc.Invoices))
	for _, inv := range doc.Invoices {
		d := draft{
			number:     inv.Number,
			client:     inv.Client,
			issueDate:  inv.IssueDate,
			validUntil: inv.ValidUntil,
			status:     inv.Status,
			total:      inv.Total,
		}
		for _, it := range inv.Items {
			d.items = append(d.items, itemDraft{
				description: it.Description,
				quantity:    it.Quantity,
				unitPrice:   it.UnitPrice,
				amount:      it.Amount,
			})
		}
		drafts = append(drafts, d)
	}
	return im.build(drafts)
}
