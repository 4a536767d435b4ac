package csv

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yurifrl/caixa/pkg/ledger"
	"github.com/yurifrl/caixa/pkg/models"
)

func row(desc string, value int64, currency string, unresolved bool) ledger.Row {
	r := ledger.Row{
		Entry: models.Entry{
			ID:          1,
			Date:        time.Date(2024, time.July, 3, 0, 0, 0, 0, time.UTC),
			Description: desc,
			Value:       value,
			Source:      "Conta corrente - Wise",
			Currency:    currency,
		},
		BaseCurrency: "BRL",
		Unresolved:   unresolved,
	}
	if !unresolved {
		r.Rate = decimal.RequireFromString("5.45")
		r.BaseValue = decimal.NewFromInt(value).Mul(r.Rate).Round(0).IntPart()
	}
	return r
}

func TestLedgerExport(t *testing.T) {
	out, err := Ledger([]ledger.Row{
		row("HOTEL, CENTRO", -10000, "USD", false),
		row("TAXI", -2000, "EUR", true),
	}, nil)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Date,Description,Category,Source,Currency,Value,BaseCurrency,BaseValue,Rate,Unresolved", lines[0])
	assert.Equal(t, `03/07/2024,"HOTEL, CENTRO",,Conta corrente - Wise,USD,-100.00,BRL,-545.00,5.45,false`, lines[1])
	assert.Equal(t, "03/07/2024,TAXI,,Conta corrente - Wise,EUR,-20.00,BRL,,,true", lines[2])
}

func TestLedgerExportFilter(t *testing.T) {
	out, err := Ledger([]ledger.Row{
		row("HOTEL", -10000, "USD", false),
		row("TAXI", -2000, "EUR", true),
	}, func(r LedgerRow) bool { return !r.Unresolved })
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(out), "\n"))
	assert.NotContains(t, string(out), "TAXI")
}
