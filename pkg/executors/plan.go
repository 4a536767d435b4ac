package executors

import (
	"context"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/yurifrl/caixa/pkg/ledger"
	"github.com/yurifrl/caixa/pkg/models"
)

var (
	syncedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))  // gray
	addedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10")) // green
)

// Plan prints, for every mapped source, which ledger rows are already in YNAB
// and which would be added. Nothing is written remotely.
func (e *Executor) Plan(ctx context.Context, f ledger.Filter) error {
	for _, source := range e.sources(f) {
		report, err := e.report(ctx, source, f)
		if err != nil {
			return err
		}
		e.logger.Debug("processing plan report", "source", source, "total", len(report.Items), "in_sync", report.InSyncCount(), "to_add", report.MissingCount())

		fmt.Fprintf(e.out, "%s -> %s\n", source, e.config.Accounts[source])
		for _, m := range report.Items {
			line := fmt.Sprintf("%s | %-30s | %s | %s %s", models.FormatDMY(m.Local.Date), m.Local.Description, m.Local.Currency, m.Local.BaseCurrency, models.FormatMinor(m.Local.BaseValue))
			if m.Status == Synced {
				fmt.Fprintln(e.out, syncedStyle.Render("= "+line))
				continue
			}
			fmt.Fprintln(e.out, addedStyle.Render("+ "+line))
		}

		if report.MissingCount() == 0 {
			fmt.Fprintf(e.out, "\nPlan: All %d row(s) are in sync\n", report.InSyncCount())
		} else {
			fmt.Fprintf(e.out, "\nPlan: %d row(s) will be added, %d already in sync\n", report.MissingCount(), report.InSyncCount())
		}
	}
	return nil
}
