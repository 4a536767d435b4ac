package executors

import (
	"context"
	"io"
	"sort"

	"github.com/brunomvsouza/ynab.go/api/transaction"
	"github.com/charmbracelet/log"
	"github.com/yurifrl/caixa/pkg/ledger"
	"github.com/yurifrl/caixa/pkg/ynab"
)

// Remote is the YNAB side of a sync.
type Remote interface {
	GetTransactionsByAccount(budgetID, accountID string) ([]*ynab.Transaction, error)
	CreateTransactions(budgetID string, payloads []transaction.PayloadTransaction) error
}

// Rows is the ledger side of a sync.
type Rows interface {
	Query(ctx context.Context, f ledger.Filter) ([]ledger.Row, error)
}

type Config struct {
	BudgetID string
	// Accounts maps a ledger source to the YNAB account receiving its rows.
	Accounts map[string]string
	// MatchByID reconciles on the id kept in the memo instead of
	// amount, payee and date.
	MatchByID bool
}

type Executor struct {
	logger *log.Logger
	config Config
	ledger Rows
	remote Remote
	out    io.Writer
}

func New(logger *log.Logger, config Config, rows Rows, remote Remote, out io.Writer) *Executor {
	return &Executor{
		logger: logger,
		config: config,
		ledger: rows,
		remote: remote,
		out:    out,
	}
}

// sources lists the mapped sources in a stable order, restricted to the
// filter's sources when it names any.
func (e *Executor) sources(f ledger.Filter) []string {
	wanted := make(map[string]bool, len(f.Sources))
	for _, s := range f.Sources {
		wanted[s] = true
	}
	out := make([]string, 0, len(e.config.Accounts))
	for source := range e.config.Accounts {
		if len(wanted) == 0 || wanted[source] {
			out = append(out, source)
		}
	}
	sort.Strings(out)
	return out
}

// report builds the reconciliation of one source against its account.
func (e *Executor) report(ctx context.Context, source string, f ledger.Filter) (*Report, error) {
	f.Sources = []string{source}
	rows, err := e.ledger.Query(ctx, f)
	if err != nil {
		return nil, err
	}
	remote, err := e.remote.GetTransactionsByAccount(e.config.BudgetID, e.config.Accounts[source])
	if err != nil {
		return nil, err
	}
	r := BuildReport(rows, remote, e.config.MatchByID)
	if n := len(r.Unresolved); n > 0 {
		e.logger.Warn("rows without exchange rate left out of sync", "source", source, "count", n)
	}
	return r, nil
}
