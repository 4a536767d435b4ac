package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yurifrl/caixa/pkg/csv"
)

var (
	listFilters   filters
	exportFilters filters
	exportOutput  string
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Query the ledger",
}

var ledgerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List ledger rows, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := open(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		rows, err := listFilters.rows(cmd, a.Ledger)
		if err != nil {
			return err
		}
		printRows(cmd.OutOrStdout(), rows)
		return nil
	},
}

var ledgerExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export ledger rows as CSV",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := open(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		rows, err := exportFilters.rows(cmd, a.Ledger)
		if err != nil {
			return err
		}
		body, err := csv.Ledger(rows, nil)
		if err != nil {
			return err
		}
		if exportOutput == "" {
			_, err = cmd.OutOrStdout().Write(body)
			return err
		}
		if err := os.WriteFile(exportOutput, body, 0644); err != nil {
			return fmt.Errorf("failed to write export: %w", err)
		}
		a.Logger.Info("ledger exported", "file", exportOutput, "rows", len(rows))
		return nil
	},
}

var ledgerSourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the distinct sources in the ledger",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := open(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		sources, err := a.Ledger.Sources(cmd.Context())
		if err != nil {
			return err
		}
		printList(cmd.OutOrStdout(), sources)
		return nil
	},
}

var ledgerCurrenciesCmd = &cobra.Command{
	Use:   "currencies",
	Short: "List the distinct currencies in the ledger",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := open(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		currencies, err := a.Ledger.Currencies(cmd.Context())
		if err != nil {
			return err
		}
		printList(cmd.OutOrStdout(), currencies)
		return nil
	},
}

var ledgerSetCategoryCmd = &cobra.Command{
	Use:   "set-category <id> <category>",
	Short: "Assign a category to one ledger row",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		a, err := open(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		return a.Ledger.SetCategory(cmd.Context(), id, args[1])
	},
}

func init() {
	listFilters.register(ledgerListCmd)
	exportFilters.register(ledgerExportCmd)
	ledgerExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default stdout)")

	ledgerCmd.AddCommand(ledgerListCmd, ledgerExportCmd, ledgerSourcesCmd, ledgerCurrenciesCmd, ledgerSetCategoryCmd)
}
