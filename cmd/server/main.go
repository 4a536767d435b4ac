package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"github.com/yurifrl/caixa/pkg/app"
	"github.com/yurifrl/caixa/pkg/config"
	"github.com/yurifrl/caixa/pkg/server"
	"github.com/yurifrl/caixa/pkg/version"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run returns instead of exiting so the store is always closed.
func run(args []string) error {
	flags := pflag.NewFlagSet("caixa-server", pflag.ContinueOnError)
	cfgFile := flags.StringP("config", "c", "", "Config file (default is config.yaml)")
	flags.String("addr", "", "Listen address")
	flags.String("db", "", "SQLite database path")
	flags.String("base-currency", "", "Base currency")
	flags.String("log-level", "", "Log level")
	flags.Bool("strict", false, "Reject files with an unrecognized layout")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Build(*cfgFile, flags)
	if err != nil {
		return err
	}
	logger := app.NewLogger(cfg, "caixa")

	a, err := app.Open(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer a.Close()

	ingestor, err := a.Ingestor()
	if err != nil {
		return fmt.Errorf("invalid rates configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(logger, a.Ledger, a.Rules, a.Store, ingestor)
	logger.Info("starting server", "addr", cfg.Addr, "db", cfg.DBPath, "version", version.Version)
	if err := srv.Start(ctx, cfg.Addr); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
