package models

import (
	"fmt"
	"strings"
	"time"
)

// Entry is a single normalized ledger row.
//
// Value is expressed in minor currency units (cents); negative values are
// debits and positive values are credits. The tuple (Date, Description,
// Value, Source, Currency) is the natural key of an entry.
type Entry struct {
	ID          int64
	Date        time.Time
	Description string
	Value       int64
	Category    *string
	Source      string
	Currency    string
}

// Key returns the natural key of the entry as a printable string.
func (e Entry) Key() string {
	return fmt.Sprintf("%d|%s|%d|%s|%s", e.Date.Unix(), e.Description, e.Value, e.Source, e.Currency)
}

// CategoryName returns the category or an empty string when unset.
func (e Entry) CategoryName() string {
	if e.Category == nil {
		return ""
	}
	return *e.Category
}

// EntryBuilder assembles an Entry from raw statement cells. Errors are
// accumulated and reported by Build so parsers can chain setters freely.
type EntryBuilder struct {
	entry Entry
	err   error
}

// NewEntry starts a builder with the given description. Descriptions are
// trimmed and upper-cased so rule matching behaves the same for every format.
func NewEntry(description string) *EntryBuilder {
	return &EntryBuilder{entry: Entry{Description: NormalizeDescription(description)}}
}

// NormalizeDescription trims and upper-cases a statement description.
func NormalizeDescription(description string) string {
	return strings.ToUpper(strings.Join(strings.Fields(description), " "))
}

func (b *EntryBuilder) fail(err error) *EntryBuilder {
	if b.err == nil {
		b.err = err
	}
	return b
}

// Source sets the institution/account label.
func (b *EntryBuilder) Source(source string) *EntryBuilder {
	b.entry.Source = strings.TrimSpace(source)
	return b
}

// Currency sets the ISO 4217 currency code.
func (b *EntryBuilder) Currency(code string) *EntryBuilder {
	b.entry.Currency = strings.ToUpper(strings.TrimSpace(code))
	return b
}

// Date sets the calendar day of the entry.
func (b *EntryBuilder) Date(t time.Time) *EntryBuilder {
	b.entry.Date = Day(t)
	return b
}

// DateString parses value with the given layout.
func (b *EntryBuilder) DateString(layout, value string) *EntryBuilder {
	t, err := time.Parse(layout, strings.TrimSpace(value))
	if err != nil {
		return b.fail(fmt.Errorf("invalid date %q: %w", value, err))
	}
	return b.Date(t)
}

// Amount parses a textual amount in major units into minor units.
func (b *EntryBuilder) Amount(value string) *EntryBuilder {
	minor, err := ParseAmount(value)
	if err != nil {
		return b.fail(err)
	}
	b.entry.Value = minor
	return b
}

// Minor sets the value directly in minor units.
func (b *EntryBuilder) Minor(value int64) *EntryBuilder {
	b.entry.Value = value
	return b
}

// Debit flips the sign of the value. Credit card statements list spend as
// positive numbers; the ledger stores it as negative.
func (b *EntryBuilder) Debit() *EntryBuilder {
	b.entry.Value = -b.entry.Value
	return b
}

// Category sets an initial category; empty strings leave it unset.
func (b *EntryBuilder) Category(category string) *EntryBuilder {
	category = strings.TrimSpace(category)
	if category != "" {
		b.entry.Category = &category
	}
	return b
}

// Build validates the entry and returns it.
func (b *EntryBuilder) Build() (Entry, error) {
	if b.err != nil {
		return Entry{}, b.err
	}
	switch {
	case b.entry.Description == "":
		return Entry{}, fmt.Errorf("description is empty")
	case b.entry.Date.IsZero():
		return Entry{}, fmt.Errorf("date is missing")
	case b.entry.Currency == "":
		return Entry{}, fmt.Errorf("currency is missing")
	}
	return b.entry, nil
}
