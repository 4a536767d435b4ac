package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
	"github.com/yurifrl/caixa/pkg/executors"
	"github.com/yurifrl/caixa/pkg/rates"
)

const envPrefix = "CAIXA"

type Config struct {
	DBPath       string       `mapstructure:"db_path"`
	BaseCurrency string       `mapstructure:"base_currency"`
	Addr         string       `mapstructure:"addr"`
	LogLevel     string       `mapstructure:"log_level"`
	Upload       UploadConfig `mapstructure:"upload"`
	Rates        RatesConfig  `mapstructure:"rates"`
	YNAB         YNABConfig   `mapstructure:"ynab"`
}

type UploadConfig struct {
	// StrictLayout rejects files whose layout matches no known statement.
	StrictLayout bool `mapstructure:"strict_layout"`
	// PDFPassword opens encrypted PDF statements. Prefer the
	// CAIXA_UPLOAD_PDF_PASSWORD environment variable over the config file.
	PDFPassword string `mapstructure:"pdf_password"`
}

type RatesConfig struct {
	Source           string        `mapstructure:"source"`
	BulletinURL      string        `mapstructure:"bulletin_url"`
	StartID          int64         `mapstructure:"start_id"`
	LookupURL        string        `mapstructure:"lookup_url"`
	LinkPattern      string        `mapstructure:"link_pattern"`
	StartDate        string        `mapstructure:"start_date"`
	Span             int64         `mapstructure:"span"`
	BatchSize        int           `mapstructure:"batch_size"`
	Concurrency      int           `mapstructure:"concurrency"`
	FailureThreshold int           `mapstructure:"failure_threshold"`
	Timeout          time.Duration `mapstructure:"timeout"`
}

// Account maps a ledger source to a YNAB account. A list is used instead of
// a map because viper lower-cases map keys.
type Account struct {
	Source    string `mapstructure:"source"`
	AccountID string `mapstructure:"account_id"`
}

type YNABConfig struct {
	TokenEnv  string    `mapstructure:"token_env"`
	BudgetID  string    `mapstructure:"budget_id"`
	MatchByID bool      `mapstructure:"match_by_id"`
	Accounts  []Account `mapstructure:"accounts"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db_path", "data/caixa.db")
	v.SetDefault("base_currency", "BRL")
	v.SetDefault("addr", "0.0.0.0:3000")
	v.SetDefault("log_level", "info")
	v.SetDefault("upload.strict_layout", false)
	v.SetDefault("upload.pdf_password", "")

	def := rates.DefaultConfig()
	v.SetDefault("rates.source", "bulletin")
	v.SetDefault("rates.bulletin_url", rates.DefaultBulletinURL)
	v.SetDefault("rates.start_id", 1)
	v.SetDefault("rates.lookup_url", "")
	v.SetDefault("rates.link_pattern", `href="([^"]+\.csv)"`)
	v.SetDefault("rates.start_date", "1994-07-01")
	v.SetDefault("rates.span", def.Span)
	v.SetDefault("rates.batch_size", def.BatchSize)
	v.SetDefault("rates.concurrency", def.Concurrency)
	v.SetDefault("rates.failure_threshold", def.FailureThreshold)
	v.SetDefault("rates.timeout", "30s")

	v.SetDefault("ynab.token_env", "YNAB_TOKEN")
	v.SetDefault("ynab.budget_id", "")
	v.SetDefault("ynab.match_by_id", true)
	v.SetDefault("ynab.accounts", []Account{})
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"db":            "db_path",
	"base-currency": "base_currency",
	"addr":          "addr",
	"log-level":     "log_level",
	"strict":        "upload.strict_layout",
}

// Build loads configuration from, in increasing precedence: defaults, the
// YAML file (cfgFile, or ./config.yaml when empty and present), a .env file,
// CAIXA_* environment variables and the flags in flags that were set.
func Build(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	c.BaseCurrency = strings.ToUpper(strings.TrimSpace(c.BaseCurrency))
	if c.BaseCurrency == "" {
		return nil, fmt.Errorf("base_currency is required")
	}
	return &c, nil
}

// Level parses log_level, falling back to info.
func (c *Config) Level() log.Level {
	lvl, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// Ingestor returns the batching knobs of the rate ingestor.
func (c RatesConfig) Ingestor() rates.Config {
	return rates.Config{
		BatchSize:        c.BatchSize,
		Concurrency:      c.Concurrency,
		FailureThreshold: c.FailureThreshold,
		Span:             c.Span,
	}
}

// NewSource builds the configured rate source.
func (c RatesConfig) NewSource(client *http.Client) (rates.Source, error) {
	switch c.Source {
	case "", "bulletin":
		return rates.NewBulletinSource(client, c.BulletinURL, c.StartID, c.Timeout), nil
	case "daily":
		if c.LookupURL == "" {
			return nil, fmt.Errorf("rates.lookup_url is required for the daily source")
		}
		start, err := time.Parse("2006-01-02", c.StartDate)
		if err != nil {
			return nil, fmt.Errorf("invalid rates.start_date: %w", err)
		}
		return rates.NewDailySource(client, c.LookupURL, c.LinkPattern, start, c.Timeout)
	default:
		return nil, fmt.Errorf("unknown rates source %q", c.Source)
	}
}

// Executor returns the YNAB export settings.
func (c YNABConfig) Executor() executors.Config {
	accounts := make(map[string]string, len(c.Accounts))
	for _, a := range c.Accounts {
		accounts[a.Source] = a.AccountID
	}
	return executors.Config{
		BudgetID:  c.BudgetID,
		Accounts:  accounts,
		MatchByID: c.MatchByID,
	}
}
