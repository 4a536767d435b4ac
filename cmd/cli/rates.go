package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yurifrl/caixa/pkg/ledger"
	"github.com/yurifrl/caixa/pkg/models"
	"github.com/yurifrl/caixa/pkg/store"
)

var (
	rateCurrencies string
	rateStart      string
	rateEnd        string
)

var ratesCmd = &cobra.Command{
	Use:   "rates",
	Short: "Ingest and inspect exchange rates",
}

var ratesUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Fetch the bulletins not yet stored",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := open(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		in, err := a.Ingestor()
		if err != nil {
			return err
		}
		report, err := in.Run(cmd.Context())
		if report != nil {
			status := successStyle.Render("done")
			if report.Tripped {
				status = errorStyle.Render("stopped by circuit breaker")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: units %d-%d, %d batch(es), %d fetched, %d failed, %d rate(s) stored in %s\n",
				status, report.From, report.To, report.Batches, report.Fetched, report.Failed, report.Persisted, report.Duration)
		}
		return err
	},
}

var ratesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored exchange rates",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		f := store.RateFilter{Currencies: ledger.List(strings.ToUpper(rateCurrencies))}
		var err error
		if rateStart != "" {
			if f.Start, err = ledger.ParseDate(rateStart); err != nil {
				return err
			}
		}
		if rateEnd != "" {
			if f.End, err = ledger.ParseDate(rateEnd); err != nil {
				return err
			}
		}
		a, err := open(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		list, err := a.Store.QueryRates(cmd.Context(), f)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%-10s  %-4s  %12s  %12s  %s", "Date", "Code", "Buying", "Selling", "Bulletin")))
		for _, r := range list {
			fmt.Fprintf(w, "%-10s  %-4s  %12s  %12s  %d\n", models.FormatDMY(r.Date), r.Currency, r.BuyingRate, r.SellingRate, r.BulletinID)
		}
		return nil
	},
}

var ratesAvailableCmd = &cobra.Command{
	Use:   "available [code]...",
	Short: "Show, or replace, the curated list of currencies",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := open(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if len(args) > 0 {
			if err := a.Store.SetAvailableCurrencies(cmd.Context(), args); err != nil {
				return err
			}
		}
		codes, err := a.Store.AvailableCurrencies(cmd.Context())
		if err != nil {
			return err
		}
		printList(cmd.OutOrStdout(), codes)
		return nil
	},
}

func init() {
	ratesListCmd.Flags().StringVar(&rateCurrencies, "currencies", "", "Comma separated currency codes")
	ratesListCmd.Flags().StringVar(&rateStart, "start", "", "Start date (YYYY-MM-DD)")
	ratesListCmd.Flags().StringVar(&rateEnd, "end", "", "End date (YYYY-MM-DD)")

	ratesCmd.AddCommand(ratesUpdateCmd, ratesListCmd, ratesAvailableCmd)
}
