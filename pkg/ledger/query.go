package ledger

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yurifrl/caixa/pkg/models"
	"github.com/yurifrl/caixa/pkg/store"
)

// Filter selects ledger rows; see store.EntryFilter.
type Filter = store.EntryFilter

// Row is a ledger entry with its value in the base currency. Unresolved rows
// have no rate on or before their date and carry no base value.
type Row struct {
	models.Entry
	BaseCurrency string
	BaseValue    int64
	Rate         decimal.Decimal
	RateDate     time.Time
	Unresolved   bool
}

// Query returns the rows matching f, newest first, each resolved into the
// base currency.
func (l *Ledger) Query(ctx context.Context, f Filter) ([]Row, error) {
	entries, err := l.store.QueryEntries(ctx, f.Predicate())
	if err != nil {
		return nil, err
	}
	results, err := l.resolver.ResolveAll(ctx, entries)
	if err != nil {
		return nil, err
	}

	rows := make([]Row, len(entries))
	unresolved := 0
	for i, e := range entries {
		rows[i] = Row{Entry: e, BaseCurrency: l.resolver.BaseCurrency()}
		if !results[i].Resolved() {
			rows[i].Unresolved = true
			unresolved++
			continue
		}
		rows[i].BaseValue = results[i].Conversion.Value
		rows[i].Rate = results[i].Conversion.Rate
		rows[i].RateDate = results[i].Conversion.RateDate
	}
	if unresolved > 0 {
		l.logger.Warn("ledger rows without exchange rate", "count", unresolved)
	}
	return rows, nil
}

// ParseFilter reads the ledger query parameters: start and end (yyyy-mm-dd),
// direction, and comma separated categories, source and currency lists where
// "all" means no restriction.
func ParseFilter(q url.Values) (Filter, error) {
	var (
		f   Filter
		err error
	)
	if v := q.Get("start"); v != "" {
		if f.Start, err = ParseDate(v); err != nil {
			return f, &models.ValidationError{Field: "start", Reason: err.Error()}
		}
	}
	if v := q.Get("end"); v != "" {
		if f.End, err = ParseDate(v); err != nil {
			return f, &models.ValidationError{Field: "end", Reason: err.Error()}
		}
	}
	if f.Direction, err = models.ParseDirection(q.Get("direction")); err != nil {
		return f, err
	}
	f.Categories = List(q.Get("categories"))
	f.Sources = List(q.Get("source"))
	f.Currencies = List(strings.ToUpper(q.Get("currency")))
	return f, nil
}

// List splits a comma separated parameter. Empty and "all" yield nil.
func List(v string) []string {
	v = strings.TrimSpace(v)
	if v == "" || strings.EqualFold(v, models.ScopeAll) {
		return nil
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
