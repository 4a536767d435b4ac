package plan

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yurifrl/caixa/pkg/models"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "caixa.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`ynab:
  budget_id: b-1
  accounts:
    "Conta corrente - Itaú": acc-1
statements:
  - file: extrato.txt
  - file: /abs/fatura.pdf
rules:
  - like: uber
    direction: debit
    category: Transport
`), 0644))

	p, err := Load(path)
	require.NoError(t, err)
	require.Len(t, p.Statements, 2)
	assert.Equal(t, filepath.Join(dir, "extrato.txt"), p.Statements[0].File)
	assert.Equal(t, "/abs/fatura.pdf", p.Statements[1].File)
	assert.Equal(t, "acc-1", p.YNAB.Accounts["Conta corrente - Itaú"])

	require.Len(t, p.Rules, 1)
	assert.Equal(t, models.UpdateEmptyOnly, p.Rules[0].UpdateMode)
	assert.Equal(t, models.DirectionDebit, p.Rules[0].Direction)

	var buf bytes.Buffer
	p.Print(&buf)
	assert.Contains(t, buf.String(), "YNAB budget: b-1")
	assert.Contains(t, buf.String(), "-> Transport")
}

func TestParseRejects(t *testing.T) {
	for name, doc := range map[string]string{
		"empty":        "ynab: {}\n",
		"missing file": "statements:\n  - file: ''\n",
		"invalid rule": "rules:\n  - like: x\n",
		"bad yaml":     "statements: [\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestStatementPathExpandsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	got, err := Statement{File: "~/extratos/a.xls"}.Path()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "extratos/a.xls"), got)
}
