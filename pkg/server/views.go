package server

import (
	"github.com/shopspring/decimal"
	"github.com/yurifrl/caixa/pkg/ledger"
	"github.com/yurifrl/caixa/pkg/models"
)

// Row is the JSON shape of a ledger row. Money is given both as a major-unit
// string and in minor units; dates are dd/mm/yyyy.
type Row struct {
	ID             int64   `json:"id"`
	Date           string  `json:"date"`
	Description    string  `json:"description"`
	Value          string  `json:"value"`
	ValueMinor     int64   `json:"value_minor"`
	Category       *string `json:"category"`
	Source         string  `json:"source"`
	Currency       string  `json:"currency"`
	BaseCurrency   string  `json:"base_currency"`
	BaseValue      *string `json:"base_value"`
	BaseValueMinor *int64  `json:"base_value_minor"`
	Rate           string  `json:"rate,omitempty"`
	RateDate       string  `json:"rate_date,omitempty"`
	Unresolved     bool    `json:"unresolved"`
}

func newRow(r ledger.Row) Row {
	out := Row{
		ID:           r.ID,
		Date:         models.FormatDMY(r.Date),
		Description:  r.Description,
		Value:        models.FormatMinor(r.Value),
		ValueMinor:   r.Value,
		Category:     r.Category,
		Source:       r.Source,
		Currency:     r.Currency,
		BaseCurrency: r.BaseCurrency,
		Unresolved:   r.Unresolved,
	}
	if !r.Unresolved {
		base, minor := models.FormatMinor(r.BaseValue), r.BaseValue
		out.BaseValue, out.BaseValueMinor = &base, &minor
		out.Rate = r.Rate.String()
		out.RateDate = models.FormatDMY(r.RateDate)
	}
	return out
}

// Rate is the JSON shape of a stored exchange rate.
type Rate struct {
	Date        string `json:"date"`
	Currency    string `json:"currency"`
	BuyingRate  string `json:"buying_rate"`
	SellingRate string `json:"selling_rate"`
	BulletinID  int64  `json:"bulletin_id,omitempty"`
}

func newRate(r models.ExchangeRate) Rate {
	return Rate{
		Date:        models.FormatDMY(r.Date),
		Currency:    r.Currency,
		BuyingRate:  r.BuyingRate.String(),
		SellingRate: r.SellingRate.String(),
		BulletinID:  r.BulletinID,
	}
}

// RuleBody is a rule as exchanged over HTTP: bounds are major units.
type RuleBody struct {
	ID             int64             `json:"id,omitempty"`
	LikePattern    string            `json:"like_pattern"`
	NotLikePattern string            `json:"not_like_pattern"`
	LowerBound     *decimal.Decimal  `json:"lower_bound"`
	UpperBound     *decimal.Decimal  `json:"upper_bound"`
	Direction      models.Direction  `json:"direction"`
	UpdateMode     models.UpdateMode `json:"update_mode"`
	Source         string            `json:"source"`
	Currency       string            `json:"currency"`
	Category       string            `json:"category"`
}

func minorPtr(d *decimal.Decimal) *int64 {
	if d == nil {
		return nil
	}
	v := models.ToMinor(*d)
	return &v
}

func majorPtr(v *int64) *decimal.Decimal {
	if v == nil {
		return nil
	}
	d := models.FromMinor(*v)
	return &d
}

func (b RuleBody) Rule() models.Rule {
	return models.Rule{
		ID:             b.ID,
		LikePattern:    b.LikePattern,
		NotLikePattern: b.NotLikePattern,
		LowerBound:     minorPtr(b.LowerBound),
		UpperBound:     minorPtr(b.UpperBound),
		Direction:      b.Direction,
		UpdateMode:     b.UpdateMode,
		Source:         b.Source,
		Currency:       b.Currency,
		Category:       b.Category,
	}
}

func newRuleBody(r models.Rule) RuleBody {
	return RuleBody{
		ID:             r.ID,
		LikePattern:    r.LikePattern,
		NotLikePattern: r.NotLikePattern,
		LowerBound:     majorPtr(r.LowerBound),
		UpperBound:     majorPtr(r.UpperBound),
		Direction:      r.Direction,
		UpdateMode:     r.UpdateMode,
		Source:         r.Source,
		Currency:       r.Currency,
		Category:       r.Category,
	}
}
