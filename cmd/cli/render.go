package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/yurifrl/caixa/pkg/ledger"
	"github.com/yurifrl/caixa/pkg/models"
	"github.com/yurifrl/caixa/pkg/service"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	debitStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))  // red
	creditStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10")) // green
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))  // gray
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

func money(minor int64, currency string) string {
	s := fmt.Sprintf("%s %12s", currency, models.FormatMinor(minor))
	if minor < 0 {
		return debitStyle.Render(s)
	}
	return creditStyle.Render(s)
}

func printRows(w io.Writer, rows []ledger.Row) {
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%-10s  %-40s  %-16s  %-16s  %-28s  %s", "Date", "Description", "Value", "Base", "Source", "Category")))
	for _, r := range rows {
		base := mutedStyle.Render(fmt.Sprintf("%-16s", "unresolved"))
		if !r.Unresolved {
			base = money(r.BaseValue, r.BaseCurrency)
		}
		fmt.Fprintf(w, "%-10s  %-40s  %s  %s  %-28s  %s\n",
			models.FormatDMY(r.Date), truncate(r.Description, 40), money(r.Value, r.Currency), base, r.Source, r.CategoryName())
	}
	fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("%d row(s)", len(rows))))
}

func printSummary(w io.Writer, sum *service.Summary) {
	for _, f := range sum.Files {
		if f.Err != nil {
			fmt.Fprintln(w, errorStyle.Render(fmt.Sprintf("✗ %s: %v", f.Path, f.Err)))
			continue
		}
		fmt.Fprintf(w, "%s %s [%s] total=%d inserted=%d skipped=%d\n",
			successStyle.Render("✓"), f.Path, f.Result.StatementType, f.Result.TotalCount, f.Result.InsertedCount, f.Result.SkippedCount)
	}
	fmt.Fprintf(w, "%d file(s), %d inserted, %d failed\n", len(sum.Files), sum.Inserted(), sum.Failed())
	if sum.RulesCreated > 0 {
		fmt.Fprintf(w, "%d rule(s) created, %d row(s) categorized\n", sum.RulesCreated, sum.Categorized)
	}
}

func printList(w io.Writer, items []string) {
	if len(items) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("(none)"))
		return
	}
	fmt.Fprintln(w, strings.Join(items, "\n"))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
