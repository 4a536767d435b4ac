package app

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yurifrl/caixa/pkg/config"
	"github.com/yurifrl/caixa/pkg/ledger"
	"github.com/yurifrl/caixa/pkg/parser"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Build("", nil)
	require.NoError(t, err)
	cfg.DBPath = filepath.Join(t.TempDir(), "nested", "caixa.db")
	return cfg
}

func TestOpenWiresLedger(t *testing.T) {
	cfg := testConfig(t)
	a, err := Open(cfg, log.New(io.Discard))
	require.NoError(t, err)
	defer a.Close()

	res, err := a.Ledger.Upload(context.Background(), "extrato.txt", []byte("17/03/2025;PADARIA;-7,50\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.InsertedCount)

	rows, err := a.Ledger.Query(context.Background(), ledger.Filter{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "BRL", rows[0].BaseCurrency)

	in, err := a.Ingestor()
	require.NoError(t, err)
	assert.NotNil(t, in)
	assert.NotNil(t, a.Processor())
}

func TestOpenStrictLayout(t *testing.T) {
	cfg := testConfig(t)
	cfg.Upload.StrictLayout = true
	a, err := Open(cfg, log.New(io.Discard))
	require.NoError(t, err)
	defer a.Close()

	_, err = a.Ledger.Upload(context.Background(), "unknown.csv", []byte("a,b\n1,2\n"))
	assert.ErrorIs(t, err, parser.ErrUnrecognizedLayout)
}

func TestExecutorRequiresToken(t *testing.T) {
	cfg := testConfig(t)
	cfg.YNAB.TokenEnv = "CAIXA_TEST_YNAB_TOKEN"
	a, err := Open(cfg, log.New(io.Discard))
	require.NoError(t, err)
	defer a.Close()

	_, err = a.Executor(&bytes.Buffer{})
	assert.ErrorContains(t, err, "CAIXA_TEST_YNAB_TOKEN")

	t.Setenv("CAIXA_TEST_YNAB_TOKEN", "secret")
	_, err = a.Executor(&bytes.Buffer{})
	assert.ErrorContains(t, err, "budget_id")
}
