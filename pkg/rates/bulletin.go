package rates

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yurifrl/caixa/pkg/models"
)

// ErrEmptyBulletin is returned for a unit whose body has no rate lines.
var ErrEmptyBulletin = errors.New("bulletin has no rates")

// FetchError marks one unit (a bulletin id or a day) that could not be
// fetched or parsed. It counts toward the ingestion circuit breaker.
type FetchError struct {
	Unit int64
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch unit %d: %v", e.Unit, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ParseBulletin parses the semicolon separated bulletin body:
//
//	10072025;220;A;USD;5,5302;5,5308;1,0000;1,0000
//
// Fields are date (ddMMyyyy), currency code, type, currency symbol, buying
// rate and selling rate; extra fields are ignored. One malformed line fails
// the whole unit.
func ParseBulletin(unit int64, text string) ([]models.ExchangeRate, error) {
	var rates []models.ExchangeRate
	for n, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		r, err := parseBulletinLine(line)
		if err != nil {
			return nil, &FetchError{Unit: unit, Err: fmt.Errorf("line %d: %w", n+1, err)}
		}
		r.BulletinID = unit
		rates = append(rates, r)
	}
	if len(rates) == 0 {
		return nil, &FetchError{Unit: unit, Err: ErrEmptyBulletin}
	}
	return rates, nil
}

func parseBulletinLine(line string) (models.ExchangeRate, error) {
	fields := strings.Split(line, ";")
	if len(fields) < 6 {
		return models.ExchangeRate{}, fmt.Errorf("expected at least 6 fields, got %d", len(fields))
	}
	date, err := time.Parse("02012006", strings.TrimSpace(fields[0]))
	if err != nil {
		return models.ExchangeRate{}, fmt.Errorf("invalid date %q: %w", fields[0], err)
	}
	symbol := strings.ToUpper(strings.TrimSpace(fields[3]))
	if symbol == "" {
		return models.ExchangeRate{}, fmt.Errorf("missing currency symbol")
	}
	buy, err := parseRate(fields[4])
	if err != nil {
		return models.ExchangeRate{}, fmt.Errorf("invalid buying rate: %w", err)
	}
	sell, err := parseRate(fields[5])
	if err != nil {
		return models.ExchangeRate{}, fmt.Errorf("invalid selling rate: %w", err)
	}
	return models.ExchangeRate{
		Date:        date,
		Currency:    symbol,
		BuyingRate:  buy,
		SellingRate: sell,
	}, nil
}

// parseRate reads a decimal-comma number such as "5,5302".
func parseRate(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.Replace(strings.TrimSpace(s), ",", ".", 1))
}
