package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/yurifrl/caixa/pkg/models"
)

var (
	newRule                models.Rule
	newRuleMin, newRuleMax string
	applyAll               bool
)

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func printRule(cmd *cobra.Command, r models.Rule) {
	bounds := ""
	if r.LowerBound != nil {
		bounds += " min=" + models.FormatMinor(*r.LowerBound)
	}
	if r.UpperBound != nil {
		bounds += " max=" + models.FormatMinor(*r.UpperBound)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s like=%q not_like=%q direction=%s mode=%s source=%s currency=%s%s -> %s\n",
		headerStyle.Render(fmt.Sprintf("#%d", r.ID)), r.LikePattern, r.NotLikePattern, r.Direction, r.UpdateMode, r.Source, r.Currency, bounds, successStyle.Render(r.Category))
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage categorization rules",
}

var rulesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a rule",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var err error
		r := newRule
		if r.LowerBound, err = bound("min", newRuleMin); err != nil {
			return err
		}
		if r.UpperBound, err = bound("max", newRuleMax); err != nil {
			return err
		}
		a, err := open(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		created, err := a.Rules.Create(cmd.Context(), r)
		if err != nil {
			return err
		}
		printRule(cmd, created)
		return nil
	},
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List rules",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := open(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		list, err := a.Rules.List(cmd.Context())
		if err != nil {
			return err
		}
		for _, r := range list {
			printRule(cmd, r)
		}
		return nil
	},
}

var rulesApplyCmd = &cobra.Command{
	Use:   "apply [id]",
	Short: "Apply one rule, or every rule with --all",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if applyAll == (len(args) == 1) {
			return fmt.Errorf("pass either a rule id or --all")
		}
		a, err := open(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		var n int64
		if applyAll {
			n, err = a.Rules.ApplyAll(cmd.Context())
		} else {
			var id int64
			if id, err = parseID(args[0]); err != nil {
				return err
			}
			n, err = a.Rules.Apply(cmd.Context(), id)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d row(s) updated\n", n)
		return nil
	},
}

var rulesPreviewCmd = &cobra.Command{
	Use:   "preview <id>",
	Short: "Count the rows a rule would update",
	Args:  cobra.ExactArgs(1),
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

		n, err := a.Rules.Preview(cmd.Context(), id)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d row(s) match\n", n)
		return nil
	},
}

var rulesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a rule",
	Args:  cobra.ExactArgs(1),
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
		return a.Rules.Delete(cmd.Context(), id)
	},
}

var rulesImportCmd = &cobra.Command{
	Use:   "import <rules.yaml>",
	Short: "Create every rule in a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := open(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		created, err := a.Rules.LoadFile(cmd.Context(), args[0])
		for _, r := range created {
			printRule(cmd, r)
		}
		return err
	},
}

func init() {
	f := rulesAddCmd.Flags()
	f.StringVar(&newRule.LikePattern, "like", "", "Description must contain this text")
	f.StringVar(&newRule.NotLikePattern, "not-like", "", "Description must not contain this text")
	f.StringVar(&newRuleMin, "min", "", "Lower bound in major units")
	f.StringVar(&newRuleMax, "max", "", "Upper bound in major units")
	f.StringVar((*string)(&newRule.Direction), "direction", "", "debit, credit or all")
	f.StringVar((*string)(&newRule.UpdateMode), "update-mode", "", "empty_only, filled_only or all")
	f.StringVar(&newRule.Source, "source", "", "Restrict to one source")
	f.StringVar(&newRule.Currency, "currency", "", "Restrict to one currency")
	f.StringVar(&newRule.Category, "category", "", "Category to assign")
	_ = rulesAddCmd.MarkFlagRequired("category")

	rulesApplyCmd.Flags().BoolVar(&applyAll, "all", false, "Apply every rule")

	rulesCmd.AddCommand(rulesAddCmd, rulesListCmd, rulesApplyCmd, rulesPreviewCmd, rulesDeleteCmd, rulesImportCmd)
}
