package fx

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yurifrl/caixa/pkg/models"
	"github.com/yurifrl/caixa/pkg/store"
)

// ErrUnresolvedFxRate means no rate for the entry's currency is dated on or
// before the entry's date. The entry has no base-currency value.
var ErrUnresolvedFxRate = errors.New("no exchange rate on or before entry date")

// RateLookup returns the latest rate for currency dated on or before date,
// or store.ErrNotFound.
type RateLookup interface {
	RateAsOf(ctx context.Context, currency string, date time.Time) (models.ExchangeRate, error)
}

// Conversion is an entry value expressed in the base currency.
type Conversion struct {
	Value    int64
	Rate     decimal.Decimal
	RateDate time.Time
}

type Resolver struct {
	rates RateLookup
	base  string
}

func NewResolver(rates RateLookup, baseCurrency string) *Resolver {
	return &Resolver{rates: rates, base: strings.ToUpper(baseCurrency)}
}

func (r *Resolver) BaseCurrency() string { return r.base }

// Resolve converts e into the base currency using the buying rate of the
// most recent bulletin dated on or before e's date.
func (r *Resolver) Resolve(ctx context.Context, e models.Entry) (Conversion, error) {
	if strings.EqualFold(e.Currency, r.base) {
		return Conversion{Value: e.Value, Rate: decimal.NewFromInt(1), RateDate: e.Date}, nil
	}
	rate, err := r.rates.RateAsOf(ctx, e.Currency, e.Date)
	if errors.Is(err, store.ErrNotFound) {
		return Conversion{}, fmt.Errorf("%w: %s on %s", ErrUnresolvedFxRate, e.Currency, e.Date.Format("2006-01-02"))
	}
	if err != nil {
		return Conversion{}, fmt.Errorf("lookup %s rate: %w", e.Currency, err)
	}
	return convert(e.Value, rate), nil
}

func convert(value int64, rate models.ExchangeRate) Conversion {
	base := decimal.NewFromInt(value).Mul(rate.BuyingRate).Round(0)
	return Conversion{Value: base.IntPart(), Rate: rate.BuyingRate, RateDate: rate.Date}
}

// Result is the resolution of one entry: either a conversion or an error
// wrapping ErrUnresolvedFxRate.
type Result struct {
	Conversion Conversion
	Err        error
}

// Resolved reports whether the entry has a base-currency value.
func (r Result) Resolved() bool { return r.Err == nil }

type lookupKey struct {
	currency string
	date     string
}

type lookupResult struct {
	rate models.ExchangeRate
	err  error
}

// ResolveAll resolves entries in order, looking each (currency, date) pair
// up once. Unresolved entries are reported per entry; only store failures
// abort.
func (r *Resolver) ResolveAll(ctx context.Context, entries []models.Entry) ([]Result, error) {
	cache := make(map[lookupKey]lookupResult)
	results := make([]Result, len(entries))

	for i, e := range entries {
		if strings.EqualFold(e.Currency, r.base) {
			results[i].Conversion, _ = r.Resolve(ctx, e)
			continue
		}
		key := lookupKey{currency: strings.ToUpper(e.Currency), date: e.Date.Format("2006-01-02")}
		cached, ok := cache[key]
		if !ok {
			cached.rate, cached.err = r.rates.RateAsOf(ctx, e.Currency, e.Date)
			cache[key] = cached
		}
		switch {
		case errors.Is(cached.err, store.ErrNotFound):
			results[i].Err = fmt.Errorf("%w: %s on %s", ErrUnresolvedFxRate, e.Currency, key.date)
		case cached.err != nil:
			return nil, fmt.Errorf("lookup %s rate: %w", e.Currency, cached.err)
		default:
			results[i].Conversion = convert(e.Value, cached.rate)
		}
	}
	return results, nil
}
