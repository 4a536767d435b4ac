package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ParseAmount converts a textual amount in major units into minor units.
//
// It accepts the shapes found in statement exports: "R$ 1.234,56",
// "-2327,00", "113.98", "1,234.56". When both separators are present the
// right-most one is the decimal separator; a lone comma is always decimal.
func ParseAmount(s string) (int64, error) {
	clean := strings.NewReplacer("R$", "", " ", "", " ", "").Replace(strings.TrimSpace(s))
	if clean == "" {
		return 0, fmt.Errorf("amount is empty")
	}

	comma := strings.LastIndex(clean, ",")
	dot := strings.LastIndex(clean, ".")
	switch {
	case comma >= 0 && dot >= 0 && comma > dot:
		clean = strings.ReplaceAll(clean, ".", "")
		clean = strings.Replace(clean, ",", ".", 1)
	case comma >= 0 && dot >= 0:
		clean = strings.ReplaceAll(clean, ",", "")
	case comma >= 0:
		clean = strings.Replace(clean, ",", ".", 1)
	}

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return ToMinor(d), nil
}

// ToMinor converts a major-unit decimal into minor units, rounding half away
// from zero.
func ToMinor(d decimal.Decimal) int64 {
	return d.Mul(hundred).Round(0).IntPart()
}

// FromMinor converts minor units back into a major-unit decimal.
func FromMinor(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

// FormatMinor renders minor units as a major-unit string with two decimals.
func FormatMinor(minor int64) string {
	return FromMinor(minor).StringFixed(2)
}

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatDMY renders a ledger date as dd/mm/yyyy.
func FormatDMY(t time.Time) string {
	return t.UTC().Format("02/01/2006")
}
