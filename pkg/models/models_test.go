package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"-2327,00", -232700},
		{"R$ 123,45", 12345},
		{"R$ 1.234,56", 123456},
		{"113.98", 11398},
		{"1,234.56", 123456},
		{"-16", -1600},
		{" 0,5 ", 50},
		{"194.285", 19429},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseAmountRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "R$", "abc", "12,3x"} {
		_, err := ParseAmount(in)
		assert.Error(t, err, in)
	}
}

func TestFormatMinor(t *testing.T) {
	assert.Equal(t, "-123.45", FormatMinor(-12345))
	assert.Equal(t, "0.05", FormatMinor(5))
}

func TestEntryBuilder(t *testing.T) {
	e, err := NewEntry("  supermarket   xyz ").
		Source("Cartão de crédito - Itaú").
		Currency("brl").
		DateString("02/01/2006", "12/07/2024").
		Amount("123,45").
		Debit().
		Build()
	require.NoError(t, err)

	assert.Equal(t, "SUPERMARKET XYZ", e.Description)
	assert.Equal(t, "BRL", e.Currency)
	assert.Equal(t, int64(-12345), e.Value)
	assert.Equal(t, time.Date(2024, 7, 12, 0, 0, 0, 0, time.UTC), e.Date)
	assert.Nil(t, e.Category)
}

func TestEntryBuilderReportsFirstError(t *testing.T) {
	_, err := NewEntry("x").Currency("BRL").DateString("02/01/2006", "31/02/2024").Amount("nope").Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid date")

	_, err = NewEntry("").Currency("BRL").Date(time.Now()).Build()
	assert.Error(t, err)
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection("")
	require.NoError(t, err)
	assert.Equal(t, DirectionAll, d)

	d, err = ParseDirection("Debit")
	require.NoError(t, err)
	assert.Equal(t, DirectionDebit, d)

	_, err = ParseDirection("sideways")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}
