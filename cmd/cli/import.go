package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/k0kubun/pp/v3"
	"github.com/spf13/cobra"

	"github.com/yurifrl/caixa/pkg/app"
	"github.com/yurifrl/caixa/pkg/config"
	"github.com/yurifrl/caixa/pkg/parser"
	"github.com/yurifrl/caixa/pkg/plan"
	"github.com/yurifrl/caixa/pkg/service"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file>...",
	Short: "Import statement files into the ledger",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := open(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		var paths []string
		for _, arg := range args {
			matches, err := filepath.Glob(arg)
			if err != nil {
				return err
			}
			if len(matches) == 0 {
				return fmt.Errorf("no files found matching pattern %s", arg)
			}
			paths = append(paths, matches...)
		}

		sum := &service.Summary{}
		p := a.Processor()
		for _, path := range paths {
			sum.Files = append(sum.Files, p.ProcessFile(cmd.Context(), path))
		}
		printSummary(cmd.OutOrStdout(), sum)
		if sum.Failed() > 0 {
			return fmt.Errorf("%d file(s) failed", sum.Failed())
		}
		return nil
	},
}

var importDirCmd = &cobra.Command{
	Use:   "import-dir <dir>",
	Short: "Import every supported statement file in a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := open(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		sum, err := a.Processor().ProcessDirectory(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printSummary(cmd.OutOrStdout(), sum)
		return nil
	},
}

var applyCmd = &cobra.Command{
	Use:   "apply <manifest.yaml>",
	Short: "Import the statements of a manifest and create its rules",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := plan.Load(args[0])
		if err != nil {
			return err
		}
		a, err := open(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		fmt.Fprintf(cmd.OutOrStdout(), "Applying %s\n", args[0])
		p.Print(cmd.OutOrStdout())
		sum, err := a.Processor().ProcessPlan(cmd.Context(), p)
		if sum != nil {
			printSummary(cmd.OutOrStdout(), sum)
		}
		return err
	},
}

var parseCmd = &cobra.Command{
	Use:   "parse <file>",
	Short: "Parse a statement file and print the entries without storing them",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Build(cfgFile, cmd.Flags())
		if err != nil {
			return err
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		logger := app.NewLogger(cfg, "caixa")
		p := parser.New(logger, parser.WithBaseCurrency(cfg.BaseCurrency), parser.WithStrictLayout(cfg.Upload.StrictLayout))
		st, err := p.ProcessBytes(data, filepath.Base(args[0]))
		if err != nil {
			return err
		}
		pp.Println(st)
		return nil
	},
}
