package executors

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/brunomvsouza/ynab.go/api"
	"github.com/brunomvsouza/ynab.go/api/transaction"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yurifrl/caixa/pkg/ledger"
	"github.com/yurifrl/caixa/pkg/models"
	"github.com/yurifrl/caixa/pkg/ynab"
)

const itau = "Conta corrente - Itaú"

func row(day int, desc string, value int64) ledger.Row {
	return ledger.Row{
		Entry: models.Entry{
			Date:        time.Date(2025, time.March, day, 0, 0, 0, 0, time.UTC),
			Description: desc,
			Value:       value,
			Source:      itau,
			Currency:    "BRL",
		},
		BaseCurrency: "BRL",
		BaseValue:    value,
	}
}

func remoteFor(r ledger.Row, withID bool) *ynab.Transaction {
	payee := r.Description
	tx := &transaction.Transaction{
		Date:      api.Date{Time: r.Date},
		Amount:    Milliunits(r),
		PayeeName: &payee,
	}
	if withID {
		memo := ynab.Memo(r.Entry)
		tx.Memo = &memo
	}
	return ynab.Wrap(tx)
}

func TestBuildReportByID(t *testing.T) {
	a, b := row(1, "PADARIA", -750), row(2, "PIX RECEBIDO", 190000)
	unresolved := row(3, "HOTEL", -10000)
	unresolved.Unresolved = true

	report := BuildReport([]ledger.Row{a, b, unresolved}, []*ynab.Transaction{remoteFor(a, true)}, true)
	assert.Equal(t, 1, report.InSyncCount())
	assert.Equal(t, 1, report.MissingCount())
	require.Len(t, report.Unresolved, 1)
	assert.Equal(t, "HOTEL", report.Unresolved[0].Description)
	assert.Equal(t, ynab.CustomID(a.Entry), report.Items[0].RemoteCustomID())

	payloads := report.Payloads("acc-1")
	require.Len(t, payloads, 1)
	assert.Equal(t, int64(1900000), payloads[0].Amount)
	assert.Equal(t, "acc-1", payloads[0].AccountID)
	assert.Equal(t, "PIX RECEBIDO", *payloads[0].PayeeName)
	assert.Equal(t, ynab.Memo(b.Entry), *payloads[0].Memo)
}

func TestBuildReportByFields(t *testing.T) {
	a := row(1, "PADARIA", -750)
	twin := row(1, "PADARIA", -750)
	twin.ID = 2

	report := BuildReport([]ledger.Row{a, twin}, []*ynab.Transaction{remoteFor(a, false)}, false)
	assert.Equal(t, 1, report.InSyncCount())
	assert.Equal(t, 1, report.MissingCount(), "one remote transaction covers one local row")
	assert.Equal(t, int64(2), report.RowsToSync()[0].ID)
}

type fakeRows []ledger.Row

func (f fakeRows) Query(_ context.Context, filter ledger.Filter) ([]ledger.Row, error) {
	var out []ledger.Row
	for _, r := range f {
		for _, s := range filter.Sources {
			if r.Source == s {
				out = append(out, r)
			}
		}
	}
	return out, nil
}

type fakeRemote struct {
	existing map[string][]*ynab.Transaction
	created  map[string][]transaction.PayloadTransaction
}

func (f *fakeRemote) GetTransactionsByAccount(_, accountID string) ([]*ynab.Transaction, error) {
	return f.existing[accountID], nil
}

func (f *fakeRemote) CreateTransactions(_ string, payloads []transaction.PayloadTransaction) error {
	for _, p := range payloads {
		f.created[p.AccountID] = append(f.created[p.AccountID], p)
	}
	return nil
}

func TestPlanAndApply(t *testing.T) {
	a, b := row(1, "PADARIA", -750), row(2, "PIX RECEBIDO", 190000)
	remote := &fakeRemote{
		existing: map[string][]*ynab.Transaction{"acc-1": {remoteFor(a, true)}},
		created:  map[string][]transaction.PayloadTransaction{},
	}
	var out bytes.Buffer
	exec := New(log.New(io.Discard), Config{
		BudgetID:  "budget",
		Accounts:  map[string]string{itau: "acc-1"},
		MatchByID: true,
	}, fakeRows{a, b}, remote, &out)

	require.NoError(t, exec.Plan(context.Background(), ledger.Filter{}))
	assert.Contains(t, out.String(), "Plan: 1 row(s) will be added, 1 already in sync")
	assert.Contains(t, out.String(), "PIX RECEBIDO")
	assert.Empty(t, remote.created)

	n, err := exec.Apply(context.Background(), ledger.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, remote.created["acc-1"], 1)
	assert.Equal(t, int64(1900000), remote.created["acc-1"][0].Amount)

	n, err = exec.Apply(context.Background(), ledger.Filter{Sources: []string{"Dinheiro"}})
	require.NoError(t, err)
	assert.Zero(t, n)
}
