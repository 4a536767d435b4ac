package app

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/yurifrl/caixa/pkg/config"
	"github.com/yurifrl/caixa/pkg/executors"
	"github.com/yurifrl/caixa/pkg/fx"
	"github.com/yurifrl/caixa/pkg/ledger"
	"github.com/yurifrl/caixa/pkg/parser"
	"github.com/yurifrl/caixa/pkg/rates"
	"github.com/yurifrl/caixa/pkg/rules"
	"github.com/yurifrl/caixa/pkg/service"
	"github.com/yurifrl/caixa/pkg/store"
	"github.com/yurifrl/caixa/pkg/ynab"
)

// App holds the components shared by the server and the CLI.
type App struct {
	Config *config.Config
	Logger *log.Logger
	Store  *store.Store
	Parser *parser.Parser
	Ledger *ledger.Ledger
	Rules  *rules.Engine
	client *http.Client
}

func NewLogger(cfg *config.Config, prefix string) *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          prefix,
		Level:           cfg.Level(),
	})
}

// Open opens the store at cfg.DBPath and wires the core around it.
func Open(cfg *config.Config, logger *log.Logger) (*App, error) {
	s, err := store.Open(cfg.DBPath, logger)
	if err != nil {
		return nil, err
	}
	p := parser.New(logger,
		parser.WithBaseCurrency(cfg.BaseCurrency),
		parser.WithStrictLayout(cfg.Upload.StrictLayout),
		parser.WithPDFPassword(cfg.Upload.PDFPassword),
	)
	return &App{
		Config: cfg,
		Logger: logger,
		Store:  s,
		Parser: p,
		Ledger: ledger.New(s, p, fx.NewResolver(s, cfg.BaseCurrency), logger),
		Rules:  rules.NewEngine(s, logger),
		client: &http.Client{},
	}, nil
}

func (a *App) Close() error {
	return a.Store.Close()
}

// Ingestor builds the rate ingestor for the configured source.
func (a *App) Ingestor() (*rates.Ingestor, error) {
	src, err := a.Config.Rates.NewSource(a.client)
	if err != nil {
		return nil, err
	}
	return rates.NewIngestor(src, a.Store, a.Config.Rates.Ingestor(), a.Logger), nil
}

func (a *App) Processor() *service.Processor {
	return service.NewProcessor(a.Ledger, a.Rules, a.Logger)
}

// Executor builds the YNAB exporter. The token is read from the environment
// variable named by ynab.token_env.
func (a *App) Executor(out io.Writer) (*executors.Executor, error) {
	token := os.Getenv(a.Config.YNAB.TokenEnv)
	if token == "" {
		return nil, fmt.Errorf("environment variable %s is not set", a.Config.YNAB.TokenEnv)
	}
	cfg := a.Config.YNAB.Executor()
	if cfg.BudgetID == "" {
		return nil, fmt.Errorf("ynab.budget_id is required")
	}
	if len(cfg.Accounts) == 0 {
		return nil, fmt.Errorf("ynab.accounts maps no source to an account")
	}
	return executors.New(a.Logger, cfg, a.Ledger, ynab.New(token).Transaction(), out), nil
}
