package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/yurifrl/caixa/pkg/models"
)

// EntryFilter selects ledger rows. Zero values mean no restriction; End is
// inclusive.
type EntryFilter struct {
	Start      time.Time
	End        time.Time
	Direction  models.Direction
	Categories []string
	Sources    []string
	Currencies []string
}

// Predicate translates the filter into SQL conditions.
func (f EntryFilter) Predicate() Predicate {
	var p Predicate
	if !f.Start.IsZero() {
		p = p.And("date >= ?", epoch(f.Start))
	}
	if !f.End.IsZero() {
		p = p.And("date <= ?", epoch(f.End))
	}
	p = DirectionPredicate(p, f.Direction)
	p = p.In("category", f.Categories)
	p = p.In("source", f.Sources)
	p = p.In("currency", f.Currencies)
	return p
}

// epoch is the stored form of a ledger date: seconds at UTC midnight of the
// calendar day.
func epoch(t time.Time) int64 {
	return models.Day(t).Unix()
}

// DirectionPredicate restricts p to strictly negative or strictly positive
// values.
func DirectionPredicate(p Predicate, d models.Direction) Predicate {
	switch d {
	case models.DirectionDebit:
		return p.And("value < 0")
	case models.DirectionCredit:
		return p.And("value > 0")
	}
	return p
}

// InsertEntry stores e unless an entry with the same natural key exists.
// applied is false for duplicates, which are not an error.
func (s *Store) InsertEntry(ctx context.Context, e models.Entry) (applied bool, id int64, err error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO ledger (date, description, value, category, source, currency)
		VALUES (?, ?, ?, ?, ?, ?)
	`, epoch(e.Date), e.Description, e.Value, nullString(e.Category), e.Source, e.Currency)
	if err != nil {
		return false, 0, fmt.Errorf("insert ledger entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, 0, fmt.Errorf("insert ledger entry: %w", err)
	}
	if n == 0 {
		return false, 0, nil
	}
	id, err = res.LastInsertId()
	if err != nil {
		return true, 0, fmt.Errorf("insert ledger entry: %w", err)
	}
	return true, id, nil
}

// InsertEntries stores entries in one transaction and returns how many were
// new.
func (s *Store) InsertEntries(ctx context.Context, entries []models.Entry) (int, error) {
	inserted := 0
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR IGNORE INTO ledger (date, description, value, category, source, currency)
			VALUES (?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("prepare ledger insert: %w", err)
		}
		defer stmt.Close()

		for _, e := range entries {
			res, err := stmt.ExecContext(ctx, epoch(e.Date), e.Description, e.Value,
				nullString(e.Category), e.Source, e.Currency)
			if err != nil {
				return fmt.Errorf("insert ledger entry %q: %w", e.Description, err)
			}
			if n, _ := res.RowsAffected(); n > 0 {
				inserted++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// QueryEntries returns the rows matching p, newest first.
func (s *Store) QueryEntries(ctx context.Context, p Predicate) ([]models.Entry, error) {
	where, args := p.SQL()
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, date, description, value, category, source, currency
		FROM ledger
		WHERE `+where+`
		ORDER BY date DESC, id DESC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}
	defer rows.Close()

	var entries []models.Entry
	for rows.Next() {
		var (
			e        models.Entry
			date     int64
			category sql.NullString
		)
		if err := rows.Scan(&e.ID, &date, &e.Description, &e.Value, &category, &e.Source, &e.Currency); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		e.Date = time.Unix(date, 0).UTC()
		if category.Valid {
			e.Category = &category.String
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// SetCategory assigns category to one entry; an empty category clears it.
// It reports false when no entry has the id.
func (s *Store) SetCategory(ctx context.Context, id int64, category string) (bool, error) {
	value := sql.NullString{String: category, Valid: category != ""}
	res, err := s.db.ExecContext(ctx, `UPDATE ledger SET category = ? WHERE id = ?`, value, id)
	if err != nil {
		return false, fmt.Errorf("set category: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set category: %w", err)
	}
	return n > 0, nil
}

// BulkSetCategory assigns category to every row matching p in a single
// statement and returns the number of rows changed.
func (s *Store) BulkSetCategory(ctx context.Context, p Predicate, category string) (int64, error) {
	where, args := p.SQL()
	res, err := s.db.ExecContext(ctx, `UPDATE ledger SET category = ? WHERE `+where,
		append([]any{category}, args...)...)
	if err != nil {
		return 0, fmt.Errorf("bulk set category: %w", err)
	}
	return res.RowsAffected()
}

// CountWhere counts the rows matching p.
func (s *Store) CountWhere(ctx context.Context, p Predicate) (int64, error) {
	where, args := p.SQL()
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ledger WHERE `+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count ledger: %w", err)
	}
	return n, nil
}

// Sources lists the distinct entry sources.
func (s *Store) Sources(ctx context.Context) ([]string, error) {
	return s.distinct(ctx, `SELECT DISTINCT source FROM ledger ORDER BY source ASC`)
}

// Currencies lists the distinct entry currencies.
func (s *Store) Currencies(ctx context.Context) ([]string, error) {
	return s.distinct(ctx, `SELECT DISTINCT currency FROM ledger ORDER BY currency ASC`)
}

func (s *Store) distinct(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query distinct values: %w", err)
	}
	defer rows.Close()

	values := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan distinct value: %w", err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}
