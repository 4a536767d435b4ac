package main

import (
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/yurifrl/caixa/pkg/csv"
	"github.com/yurifrl/caixa/pkg/ledger"
	"github.com/yurifrl/caixa/pkg/models"
)

// filters mirrors the query parameters of GET /ledger, plus client-side
// amount and description filters.
type filters struct {
	startDate   string
	endDate     string
	direction   string
	categories  string
	sources     string
	currencies  string
	minAmount   string
	maxAmount   string
	description string
}

func (f *filters) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.startDate, "start", "", "Start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.endDate, "end", "", "End date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.direction, "direction", "", "debit, credit or all")
	cmd.Flags().StringVar(&f.categories, "categories", "", "Comma separated categories")
	cmd.Flags().StringVar(&f.sources, "source", "", "Comma separated sources")
	cmd.Flags().StringVar(&f.currencies, "currency", "", "Comma separated currencies")
	cmd.Flags().StringVar(&f.minAmount, "min", "", "Minimum value in major units")
	cmd.Flags().StringVar(&f.maxAmount, "max", "", "Maximum value in major units")
	cmd.Flags().StringVar(&f.description, "description", "", "Filter by description (case insensitive)")
}

func (f *filters) ledgerFilter() (ledger.Filter, error) {
	q := url.Values{}
	q.Set("start", f.startDate)
	q.Set("end", f.endDate)
	q.Set("direction", f.direction)
	q.Set("categories", f.categories)
	q.Set("source", f.sources)
	q.Set("currency", f.currencies)
	return ledger.ParseFilter(q)
}

func bound(field, v string) (*int64, error) {
	if v == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return nil, &models.ValidationError{Field: field, Reason: err.Error()}
	}
	minor := models.ToMinor(d)
	return &minor, nil
}

func (f *filters) toFilterFunc() (csv.FilterFunc[csv.LedgerRow], error) {
	lower, err := bound("min", f.minAmount)
	if err != nil {
		return nil, err
	}
	upper, err := bound("max", f.maxAmount)
	if err != nil {
		return nil, err
	}
	needle := models.NormalizeDescription(f.description)
	return func(r csv.LedgerRow) bool {
		if lower != nil && r.Value < *lower {
			return false
		}
		if upper != nil && r.Value > *upper {
			return false
		}
		if needle != "" && !strings.Contains(r.Description, needle) {
			return false
		}
		return true
	}, nil
}

// rows runs the ledger query and applies the client-side filters.
func (f *filters) rows(cmd *cobra.Command, l *ledger.Ledger) ([]ledger.Row, error) {
	lf, err := f.ledgerFilter()
	if err != nil {
		return nil, err
	}
	keep, err := f.toFilterFunc()
	if err != nil {
		return nil, err
	}
	all, err := l.Query(cmd.Context(), lf)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, r := range all {
		if keep(csv.LedgerRow(r)) {
			out = append(out, r)
		}
	}
	return out, nil
}
