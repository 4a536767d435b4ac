package csv

import (
	"bytes"
	stdcsv "encoding/csv"
	"fmt"
	"strconv"

	"github.com/yurifrl/caixa/pkg/ledger"
	"github.com/yurifrl/caixa/pkg/models"
)

// Record is one exportable line.
type Record interface {
	Fields() []string
}

type FilterFunc[T Record] func(T) bool

// Create renders header plus every record accepted by filter. A nil filter
// keeps everything.
func Create[T Record](header []string, records []T, filter FilterFunc[T]) ([]byte, error) {
	var buf bytes.Buffer
	w := stdcsv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, r := range records {
		if filter != nil && !filter(r) {
			continue
		}
		if err := w.Write(r.Fields()); err != nil {
			return nil, fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// LedgerHeader is the column layout of a ledger export.
var LedgerHeader = []string{"Date", "Description", "Category", "Source", "Currency", "Value", "BaseCurrency", "BaseValue", "Rate", "Unresolved"}

// LedgerRow adapts a ledger query row for export.
type LedgerRow ledger.Row

func (r LedgerRow) Fields() []string {
	baseValue, rate := "", ""
	if !r.Unresolved {
		baseValue = models.FormatMinor(r.BaseValue)
		rate = r.Rate.String()
	}
	return []string{
		models.FormatDMY(r.Date),
		r.Description,
		r.CategoryName(),
		r.Source,
		r.Currency,
		models.FormatMinor(r.Value),
		r.BaseCurrency,
		baseValue,
		rate,
		strconv.FormatBool(r.Unresolved),
	}
}

// Ledger exports query rows in their original order.
func Ledger(rows []ledger.Row, filter FilterFunc[LedgerRow]) ([]byte, error) {
	records := make([]LedgerRow, len(rows))
	for i, r := range rows {
		records[i] = LedgerRow(r)
	}
	return Create(LedgerHeader, records, filter)
}
