package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var ynabFilters filters

var ynabCmd = &cobra.Command{
	Use:   "ynab",
	Short: "Export ledger rows to YNAB accounts",
}

var ynabPlanCmd = &cobra.Command{
	Use:   "plan",
	Short: "Preview which ledger rows would be created in YNAB (dry-run)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		f, err := ynabFilters.ledgerFilter()
		if err != nil {
			return err
		}
		a, err := open(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		exec, err := a.Executor(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		return exec.Plan(cmd.Context(), f)
	},
}

var ynabApplyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Create the missing ledger rows in YNAB",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		f, err := ynabFilters.ledgerFilter()
		if err != nil {
			return err
		}
		a, err := open(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		exec, err := a.Executor(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		n, err := exec.Apply(cmd.Context(), f)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d transaction(s) created\n", n)
		return nil
	},
}

func init() {
	ynabFilters.register(ynabPlanCmd)
	ynabFilters.register(ynabApplyCmd)
	ynabCmd.AddCommand(ynabPlanCmd, ynabApplyCmd)
}
