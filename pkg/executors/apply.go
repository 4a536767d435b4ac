package executors

import (
	"context"

	"github.com/yurifrl/caixa/pkg/ledger"
)

// Apply creates the missing rows of every mapped source in YNAB and returns
// how many were created.
func (e *Executor) Apply(ctx context.Context, f ledger.Filter) (int, error) {
	e.logger.Debug("applying ledger to ynab", "budget_id", e.config.BudgetID)

	created := 0
	for _, source := range e.sources(f) {
		report, err := e.report(ctx, source, f)
		if err != nil {
			return created, err
		}
		accountID := e.config.Accounts[source]
		e.logger.Info("transactions to create", "count", report.MissingCount(), "account_id", accountID)
		if report.MissingCount() == 0 {
			continue
		}

		batch := report.Payloads(accountID)
		if err := e.remote.CreateTransactions(e.config.BudgetID, batch); err != nil {
			return created, err
		}
		created += len(batch)
		e.logger.Info("created transactions", "count", len(batch), "account_id", accountID)
	}
	return created, nil
}
