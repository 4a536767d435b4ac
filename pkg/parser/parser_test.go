package parser

import (
	"errors"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func itauSheet(kind string, data ...[]string) *Layout {
	rows := [][]string{
		{"Itaú Unibanco"},
		{"Atualização:", "29/03/2025"},
		{"Nome:", "FULANO"},
		{"Agência:", "0001"},
		{"Conta:", "12345-6"},
		{},
		{kind},
		{},
		{"data", "lançamento", "", "valor (R$)"},
	}
	return &Layout{Family: FamilySheet, Rows: append(rows, data...)}
}

func TestProcessBytesItauExtratoTXT(t *testing.T) {
	content := []byte(`17/03/2025;PIX TRANSF ID_A15/03;-2327,00
17/03/2025;MOBILE PAG TIT 426XXXXXX;-287,00
19/03/2025;PIX TRANSF ID_C19/03;1900,00`)

	st, err := New(log.Default()).ProcessBytes(content, "extrato.txt")
	require.NoError(t, err)
	assert.Equal(t, LabelItauChecking, st.Type)
	require.Len(t, st.Entries, 3)

	assert.Equal(t, day(2025, time.March, 17), st.Entries[0].Date)
	assert.Equal(t, "PIX TRANSF ID_A15/03", st.Entries[0].Description)
	assert.Equal(t, int64(-232700), st.Entries[0].Value)
	assert.Equal(t, int64(-28700), st.Entries[1].Value)
	assert.Equal(t, int64(190000), st.Entries[2].Value)
	for _, e := range st.Entries {
		assert.Equal(t, "BRL", e.Currency)
		assert.Equal(t, LabelItauChecking, e.Source)
	}
}

func TestProcessBytesItauFaturaCSV(t *testing.T) {
	content := []byte("data,lançamento,valor\n" +
		"2025-06-27,IFD*55668457 GABRIEL A,113.98\n" +
		"2025-06-28,PAGAMENTO EFETUADO,-2000.00\n" +
		"2025-06-29,UBER *TRIP,not-a-number\n" +
		"2025-06-30,Padaria Central,7.50\n")

	st, err := New(log.Default()).ProcessBytes(content, "fatura.csv")
	require.NoError(t, err)
	assert.Equal(t, LabelItauCard, st.Type)
	require.Len(t, st.Entries, 2)

	assert.Equal(t, "IFD*55668457 GABRIEL A", st.Entries[0].Description)
	assert.Equal(t, int64(-11398), st.Entries[0].Value)
	assert.Equal(t, "PADARIA CENTRAL", st.Entries[1].Description)
	assert.Equal(t, int64(-750), st.Entries[1].Value)

	require.Len(t, st.Skipped, 1)
	var rowErr *RowParseError
	require.True(t, errors.As(st.Skipped[0], &rowErr))
	assert.Equal(t, 3, rowErr.Row)
}

func TestProcessBytesItauFaturaCSVWindows1252(t *testing.T) {
	// "lançamento" with ç encoded as 0xE7.
	content := []byte("data,lan\xe7amento,valor\n2025-06-27,CAF\xc9,10.00\n")

	st, err := New(log.Default()).ProcessBytes(content, "fatura.csv")
	require.NoError(t, err)
	require.Len(t, st.Entries, 1)
	assert.Equal(t, "CAFÉ", st.Entries[0].Description)
}

func wiseRow(date, amount, currency, description string) []string {
	row := make([]string, wiseColumns)
	row[0] = "TRANSFER-1"
	row[1] = date
	row[3] = amount
	row[4] = currency
	row[5] = description
	row[wiseColumns-1] = "x"
	return row
}

func TestProcessLayoutWiseSkipsBadDates(t *testing.T) {
	header := make([]string, wiseColumns)
	for i := range header {
		header[i] = "col"
	}
	layout := &Layout{Family: FamilySheet, Rows: [][]string{
		header,
		wiseRow("45658", "-12.50", "EUR", "Coffee Berlin"),
		wiseRow("garbage", "-1.00", "EUR", "Broken"),
		wiseRow("03-01-2025", "250", "usd", "Salary"),
	}}

	st, err := New(log.Default()).ProcessLayout(layout, "wise.xlsx")
	require.NoError(t, err)
	assert.Equal(t, LabelWise, st.Type)
	require.Len(t, st.Entries, 2)

	assert.Equal(t, day(2025, time.January, 1), st.Entries[0].Date)
	assert.Equal(t, "EUR", st.Entries[0].Currency)
	assert.Equal(t, int64(-1250), st.Entries[0].Value)

	assert.Equal(t, day(2025, time.January, 3), st.Entries[1].Date)
	assert.Equal(t, "USD", st.Entries[1].Currency)
	assert.Equal(t, int64(25000), st.Entries[1].Value)

	assert.Len(t, st.Skipped, 1)
}

func TestProcessLayoutItauExtratoSheet(t *testing.T) {
	layout := itauSheet("lançamentos",
		[]string{"17/03/2025", "CraftCorner Supplies", "", "-2327,00"},
		[]string{"17/03/2025", "SALDO DO DIA", "", ""},
		[]string{"28/03/2025", "StyleHub Apparel", "", "2000,00"},
	)

	st, err := New(log.Default()).ProcessLayout(layout, "extrato.xls")
	require.NoError(t, err)
	assert.Equal(t, LabelItauChecking, st.Type)
	require.Len(t, st.Entries, 2)
	assert.Empty(t, st.Skipped)

	assert.Equal(t, "CRAFTCORNER SUPPLIES", st.Entries[0].Description)
	assert.Equal(t, int64(-232700), st.Entries[0].Value)
	assert.Equal(t, int64(200000), st.Entries[1].Value)
}

func TestProcessLayoutItauFaturaSheet(t *testing.T) {
	layout := itauSheet("fatura atual",
		[]string{"data", "lançamento", "", "valor"},
		[]string{"28/02/2025", "Clix*GadgetGalaxy", "", "16,00"},
		[]string{"01/03/2025", "PAGAMENTO EFETUADO", "", "-3000,00"},
		[]string{"06/03/2025", "HomeHaven Decor", "", "289,00"},
		[]string{"", "", "", ""},
	)

	st, err := New(log.Default()).ProcessLayout(layout, "fatura.xls")
	require.NoError(t, err)
	assert.Equal(t, LabelItauCard, st.Type)
	require.Len(t, st.Entries, 2)

	assert.Equal(t, day(2025, time.February, 28), st.Entries[0].Date)
	assert.Equal(t, int64(-1600), st.Entries[0].Value)
	assert.Equal(t, "HOMEHAVEN DECOR", st.Entries[1].Description)
	assert.Equal(t, int64(-28900), st.Entries[1].Value)
}

func TestProcessBytesUnsupportedExtension(t *testing.T) {
	_, err := New(log.Default()).ProcessBytes([]byte("whatever"), "statement.docx")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestProcessBytesUnrecognizedLayout(t *testing.T) {
	content := []byte("foo,bar\n1,2\n")

	st, err := New(log.Default()).ProcessBytes(content, "random.csv")
	require.NoError(t, err)
	assert.Empty(t, st.Type)
	assert.Empty(t, st.Entries)

	_, err = New(log.Default(), WithStrictLayout(true)).ProcessBytes(content, "random.csv")
	assert.ErrorIs(t, err, ErrUnrecognizedLayout)
}

func TestRegisterCustomVariant(t *testing.T) {
	p := New(log.Default(), WithBaseCurrency("EUR"))
	p.Register(Variant{
		Name:    "two_columns",
		Label:   "Conta - Teste",
		Family:  FamilyText,
		Matches: func(l *Layout) bool { return l.width(0) == 2 },
		Parse: func(_ *Parser, l *Layout, sink *Sink) {
			for i := range l.Rows {
				sink.Add(i, sink.Entry(l.cell(i, 0)).Date(day(2024, time.May, 1)).Amount(l.cell(i, 1)))
			}
		},
	})

	st, err := p.ProcessBytes([]byte("rent,-900\n"), "custom.csv")
	require.NoError(t, err)
	require.Len(t, st.Entries, 1)
	assert.Equal(t, "EUR", st.Entries[0].Currency)
	assert.Equal(t, "Conta - Teste", st.Entries[0].Source)
	assert.Equal(t, int64(-90000), st.Entries[0].Value)
}
