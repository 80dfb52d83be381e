// Package remote describes the boundary to the hosted document store that
// holds invoice and line-item records.
//
// The store is treated as an eventually consistent source of truth that
// exposes two primitives: fetching a single record by id and querying a data
// source with an optional filter, sort and cursor. Everything above this
// package depends on the Store interface only.
package remote

import "strings"

// PropertyType identifies the shape of a property value.
type PropertyType string

const (
	PropertyTitle    PropertyType = "title"
	PropertyRichText PropertyType = "rich_text"
	PropertyNumber   PropertyType = "number"
	PropertyDate     PropertyType = "date"
	PropertySelect   PropertyType = "select"
	PropertyRelation PropertyType = "relation"
)

// TextFragment is one run of rich text.
type TextFragment struct {
	PlainText string `json:"plain_text" yaml:"plain_text"`
}

// DateValue holds a date property. Start is an ISO date or timestamp.
type DateValue struct {
	Start string `json:"start" yaml:"start"`
}

// SelectOption is the chosen option of a select property.
type SelectOption struct {
	Name string `json:"name" yaml:"name"`
}

// Reference points at another record.
type Reference struct {
	ID string `json:"id" yaml:"id"`
}

// Property is a single typed value in a record's property bag. Only the field
// matching Type is meaningful.
type Property struct {
	Type     PropertyType   `json:"type" yaml:"type"`
	Title    []TextFragment `json:"title,omitempty" yaml:"title,omitempty"`
	RichText []TextFragment `json:"rich_text,omitempty" yaml:"rich_text,omitempty"`
	Number   *float64       `json:"number,omitempty" yaml:"number,omitempty"`
	Date     *DateValue     `json:"date,omitempty" yaml:"date,omitempty"`
	Select   *SelectOption  `json:"select,omitempty" yaml:"select,omitempty"`
	Relation []Reference    `json:"relation,omitempty" yaml:"relation,omitempty"`
}

// PlainText concatenates the fragments of a title or rich text property.
func (p Property) PlainText() string {
	var fragments []TextFragment
	switch p.Type {
	case PropertyTitle:
		fragments = p.Title
	case PropertyRichText:
		fragments = p.RichText
	default:
		return ""
	}

	var b strings.Builder
	for _, f := range fragments {
		b.WriteString(f.PlainText)
	}
	return b.String()
}

// Record is a raw record as returned by the store. A nil Properties map means
// the store returned a partial object without a property bag.
type Record struct {
	ID         string              `json:"id" yaml:"id"`
	Archived   bool                `json:"archived,omitempty" yaml:"archived,omitempty"`
	Properties map[string]Property `json:"properties" yaml:"properties"`
}

// HasProperties reports whether the record carries a property bag.
func (r Record) HasProperties() bool {
	return r.Properties != nil
}

// RelationIDs returns the ids referenced by the named relation property, in
// the order the store returned them.
func (r Record) RelationIDs(name string) []string {
	prop, ok := r.Properties[name]
	if !ok || prop.Type != PropertyRelation {
		return nil
	}

	ids := make([]string, 0, len(prop.Relation))
	for _, ref := range prop.Relation {
		if ref.ID != "" {
			ids = append(ids, ref.ID)
		}
	}
	return ids
}

// Title builds a title property from plain text.
func Title(text string) Property {
	return Property{Type: PropertyTitle, Title: []TextFragment{{PlainText: text}}}
}

// RichText builds a rich text property from plain text.
func RichText(text string) Property {
	return Property{Type: PropertyRichText, RichText: []TextFragment{{PlainText: text}}}
}

// Number builds a number property.
func Number(v float64) Property {
	return Property{Type: PropertyNumber, Number: &v}
}

// Date builds a date property. An empty start yields an empty date.
func Date(start string) Property {
	if start == "" {
		return Property{Type: PropertyDate}
	}
	return Property{Type: PropertyDate, Date: &DateValue{Start: start}}
}

// Select builds a select property.
func Select(name string) Property {
	if name == "" {
		return Property{Type: PropertySelect}
	}
	return Property{Type: PropertySelect, Select: &SelectOption{Name: name}}
}

// Relation builds a relation property referencing ids.
func Relation(ids ...string) Property {
	refs := make([]Reference, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, Reference{ID: id})
	}
	return Property{Type: PropertyRelation, Relation: refs}
}
