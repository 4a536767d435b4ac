package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yurifrl/caixa/pkg/models"
)

// RateFilter selects stored rates. Zero values mean no restriction.
type RateFilter struct {
	Currencies []string
	Start      time.Time
	End        time.Time
}

// UpsertRates writes rates in one transaction. A later bulletin for the same
// day and currency replaces the stored quote.
func (s *Store) UpsertRates(ctx context.Context, rates []models.ExchangeRate) (int, error) {
	if len(rates) == 0 {
		return 0, nil
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO rates (date, currency, buying_rate, selling_rate, bulletin_id)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(date, currency) DO UPDATE SET
				buying_rate = excluded.buying_rate,
				selling_rate = excluded.selling_rate,
				bulletin_id = excluded.bulletin_id
		`)
		if err != nil {
			return fmt.Errorf("prepare rate upsert: %w", err)
		}
		defer stmt.Close()

		for _, r := range rates {
			if _, err := stmt.ExecContext(ctx, r.Date.Format(dateLayout), r.Currency,
				r.BuyingRate.String(), r.SellingRate.String(), r.BulletinID); err != nil {
				return fmt.Errorf("upsert rate %s %s: %w", r.Currency, r.Date.Format(dateLayout), err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(rates), nil
}

// RateAsOf returns the latest rate for currency dated on or before date.
func (s *Store) RateAsOf(ctx context.Context, currency string, date time.Time) (models.ExchangeRate, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT date, currency, buying_rate, selling_rate, bulletin_id
		FROM rates
		WHERE currency = ? AND date <= ?
		ORDER BY date DESC
		LIMIT 1
	`, strings.ToUpper(currency), date.Format(dateLayout))

	r, err := scanRate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ExchangeRate{}, ErrNotFound
	}
	return r, err
}

// QueryRates returns rates ordered by date then currency.
func (s *Store) QueryRates(ctx context.Context, f RateFilter) ([]models.ExchangeRate, error) {
	var p Predicate
	p = p.In("currency", f.Currencies)
	if !f.Start.IsZero() {
		p = p.And("date >= ?", f.Start.Format(dateLayout))
	}
	if !f.End.IsZero() {
		p = p.And("date <= ?", f.End.Format(dateLayout))
	}
	where, args := p.SQL()

	rows, err := s.db.QueryContext(ctx, `
		SELECT date, currency, buying_rate, selling_rate, bulletin_id
		FROM rates
		WHERE `+where+`
		ORDER BY date ASC, currency ASC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("query rates: %w", err)
	}
	defer rows.Close()

	rates := []models.ExchangeRate{}
	for rows.Next() {
		r, err := scanRate(rows)
		if err != nil {
			return nil, err
		}
		rates = append(rates, r)
	}
	return rates, rows.Err()
}

// RateCurrencies lists every currency with at least one stored rate.
func (s *Store) RateCurrencies(ctx context.Context) ([]string, error) {
	return s.distinct(ctx, `SELECT DISTINCT currency FROM rates ORDER BY currency ASC`)
}

// MaxBulletinID returns the highest ingested bulletin id, 0 when empty.
func (s *Store) MaxBulletinID(ctx context.Context) (int64, error) {
	var id sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(bulletin_id) FROM rates`).Scan(&id); err != nil {
		return 0, fmt.Errorf("query max bulletin id: %w", err)
	}
	return id.Int64, nil
}

// LatestRateDate returns the most recent rate date. ok is false when no rate
// is stored.
func (s *Store) LatestRateDate(ctx context.Context) (date time.Time, ok bool, err error) {
	var raw sql.NullString
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(date) FROM rates`).Scan(&raw); err != nil {
		return time.Time{}, false, fmt.Errorf("query latest rate date: %w", err)
	}
	if !raw.Valid {
		return time.Time{}, false, nil
	}
	date, err = time.Parse(dateLayout, raw.String)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid rate date %q: %w", raw.String, err)
	}
	return date, true, nil
}

// AvailableCurrencies returns the user-curated currency list.
func (s *Store) AvailableCurrencies(ctx context.Context) ([]string, error) {
	return s.distinct(ctx, `SELECT code FROM available_currencies ORDER BY code ASC`)
}

// SetAvailableCurrencies replaces the curated currency list.
func (s *Store) SetAvailableCurrencies(ctx context.Context, codes []string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM available_currencies`); err != nil {
			return fmt.Errorf("clear available currencies: %w", err)
		}
		for _, code := range codes {
			code = strings.ToUpper(strings.TrimSpace(code))
			if code == "" {
				continue
			}
			if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO available_currencies (code) VALUES (?)`, code); err != nil {
				return fmt.Errorf("insert available currency %s: %w", code, err)
			}
		}
		return nil
	})
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRate(row scanner) (models.ExchangeRate, error) {
	var (
		r    models.ExchangeRate
		date string
	)
	if err := row.Scan(&date, &r.Currency, &r.BuyingRate, &r.SellingRate, &r.BulletinID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r, err
		}
		return r, fmt.Errorf("scan rate: %w", err)
	}
	var err error
	if r.Date, err = time.Parse(dateLayout, date); err != nil {
		return r, fmt.Errorf("invalid rate date %q: %w", date, err)
	}
	return r, nil
}
