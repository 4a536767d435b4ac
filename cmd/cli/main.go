package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/yurifrl/caixa/pkg/app"
	"github.com/yurifrl/caixa/pkg/config"
	"github.com/yurifrl/caixa/pkg/version"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:           "caixa",
	Short:         "Bank statement ledger",
	Version:       version.String(),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		// Show help when no subcommand is provided
		return cmd.Help()
	},
}

// open loads configuration (config file + env + flag overrides) and wires
// the application around the configured database.
func open(cmd *cobra.Command) (*app.App, error) {
	cfg, err := config.Build(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	return app.Open(cfg, app.NewLogger(cfg, "caixa"))
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Config file (default is config.yaml)")
	rootCmd.PersistentFlags().String("db", "", "SQLite database path")
	rootCmd.PersistentFlags().String("base-currency", "", "Base currency")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("strict", false, "Reject files with an unrecognized layout")

	rootCmd.AddCommand(uploadCmd, importDirCmd, applyCmd, parseCmd)
	rootCmd.AddCommand(ledgerCmd, rulesCmd, ratesCmd, categoriesCmd, ynabCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: "+err.Error()))
		os.Exit(1)
	}
}
