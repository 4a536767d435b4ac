package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"
	"github.com/yurifrl/caixa/pkg/fx"
	"github.com/yurifrl/caixa/pkg/models"
	"github.com/yurifrl/caixa/pkg/parser"
	"github.com/yurifrl/caixa/pkg/store"
)

var ErrEntryNotFound = errors.New("ledger entry not found")

// Store is the ledger persistence used by this package.
type Store interface {
	InsertEntry(ctx context.Context, e models.Entry) (bool, int64, error)
	InsertEntries(ctx context.Context, entries []models.Entry) (int, error)
	QueryEntries(ctx context.Context, p store.Predicate) ([]models.Entry, error)
	SetCategory(ctx context.Context, id int64, category string) (bool, error)
	Sources(ctx context.Context) ([]string, error)
	Currencies(ctx context.Context) ([]string, error)
}

// Ledger imports statements and manual entries and answers filtered
// queries with base-currency values attached.
type Ledger struct {
	store    Store
	parser   *parser.Parser
	resolver *fx.Resolver
	logger   *log.Logger
}

func New(s Store, p *parser.Parser, r *fx.Resolver, logger *log.Logger) *Ledger {
	return &Ledger{store: s, parser: p, resolver: r, logger: logger}
}

// UploadResult describes one imported statement file.
type UploadResult struct {
	StatementType string `json:"statementType"`
	TotalCount    int    `json:"totalCount"`
	InsertedCount int    `json:"insertedCount"`
	SkippedCount  int    `json:"skippedCount"`
}

// Upload parses a statement file and stores its entries. Re-uploading the
// same file inserts nothing.
func (l *Ledger) Upload(ctx context.Context, filename string, data []byte) (*UploadResult, error) {
	st, err := l.parser.ProcessBytes(data, filename)
	if err != nil {
		return nil, err
	}
	return l.Import(ctx, filename, st)
}

// Import stores the entries of an already parsed statement. Entries already
// in the ledger are counted in TotalCount but not inserted.
func (l *Ledger) Import(ctx context.Context, filename string, st *parser.Statement) (*UploadResult, error) {
	inserted, err := l.store.InsertEntries(ctx, st.Entries)
	if err != nil {
		return nil, fmt.Errorf("store %s: %w", filename, err)
	}

	res := &UploadResult{
		StatementType: st.Type,
		TotalCount:    len(st.Entries),
		InsertedCount: inserted,
		SkippedCount:  len(st.Skipped),
	}
	l.logger.Info("statement imported",
		"filename", filename,
		"type", res.StatementType,
		"total", res.TotalCount,
		"inserted", res.InsertedCount,
		"skipped", res.SkippedCount,
	)
	return res, nil
}

// ManualEntry is a single row typed in by the user. Value is in major units.
type ManualEntry struct {
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Value       decimal.Decimal `json:"value"`
	Category    string          `json:"category,omitempty"`
	Source      string          `json:"source"`
	Currency    string          `json:"currency"`
}

// Entry validates m and converts it into a ledger entry. Dates are ISO
// (yyyy-mm-dd) or dd/mm/yyyy.
func (m ManualEntry) Entry() (models.Entry, error) {
	switch {
	case strings.TrimSpace(m.Date) == "":
		return models.Entry{}, &models.ValidationError{Field: "date", Reason: "date is required"}
	case strings.TrimSpace(m.Description) == "":
		return models.Entry{}, &models.ValidationError{Field: "description", Reason: "description is required"}
	case strings.TrimSpace(m.Source) == "":
		return models.Entry{}, &models.ValidationError{Field: "source", Reason: "source is required"}
	case strings.TrimSpace(m.Currency) == "":
		return models.Entry{}, &models.ValidationError{Field: "currency", Reason: "currency is required"}
	}

	date, err := ParseDate(m.Date)
	if err != nil {
		return models.Entry{}, &models.ValidationError{Field: "date", Reason: err.Error()}
	}
	e, err := models.NewEntry(m.Description).
		Date(date).
		Minor(models.ToMinor(m.Value)).
		Source(m.Source).
		Currency(m.Currency).
		Category(m.Category).
		Build()
	if err != nil {
		return models.Entry{}, &models.ValidationError{Field: "entry", Reason: err.Error()}
	}
	return e, nil
}

// ParseDate accepts yyyy-mm-dd and dd/mm/yyyy.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02", "02/01/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q, expected yyyy-mm-dd", s)
}

// AddManual validates and stores one entry. inserted is false when the entry
// already exists.
func (l *Ledger) AddManual(ctx context.Context, m ManualEntry) (bool, error) {
	e, err := m.Entry()
	if err != nil {
		return false, err
	}
	inserted, id, err := l.store.InsertEntry(ctx, e)
	if err != nil {
		return false, err
	}
	l.logger.Info("manual entry added", "id", id, "inserted", inserted, "description", e.Description)
	return inserted, nil
}

// SetCategory assigns a category to one entry.
func (l *Ledger) SetCategory(ctx context.Context, id int64, category string) error {
	ok, err := l.store.SetCategory(ctx, id, strings.TrimSpace(category))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %d", ErrEntryNotFound, id)
	}
	return nil
}

func (l *Ledger) Sources(ctx context.Context) ([]string, error) {
	return l.store.Sources(ctx)
}

func (l *Ledger) Currencies(ctx context.Context) ([]string, error) {
	return l.store.Currencies(ctx)
}
