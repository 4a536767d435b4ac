package plan

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/yurifrl/caixa/pkg/models"
	"github.com/yurifrl/caixa/pkg/rules"
	"gopkg.in/yaml.v3"
)

type YNABConfig struct {
	BudgetID string            `yaml:"budget_id"`
	TokenEnv string            `yaml:"token_env"`
	Accounts map[string]string `yaml:"accounts"`
}

// Plan is an import manifest: statement files to upload and rules to create
// once they are in the ledger.
type Plan struct {
	YNAB       YNABConfig    `yaml:"ynab"`
	Statements []Statement   `yaml:"statements"`
	Rules      []models.Rule `yaml:"rules"`
}

type Statement struct {
	File string `yaml:"file"`
}

// Path returns the statement file path with a leading ~ expanded.
func (s Statement) Path() (string, error) {
	if strings.HasPrefix(s.File, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, s.File[2:]), nil
	}
	return s.File, nil
}

// Load reads and validates a manifest. Relative statement paths are resolved
// against the manifest's directory.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(path)
	for i, st := range p.Statements {
		if !strings.HasPrefix(st.File, "~/") && !filepath.IsAbs(st.File) {
			p.Statements[i].File = filepath.Join(dir, st.File)
		}
	}
	return p, nil
}

func Parse(data []byte) (*Plan, error) {
	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse yaml: %w", err)
	}

	if len(p.Statements) == 0 && len(p.Rules) == 0 {
		return nil, fmt.Errorf("plan has no statements and no rules")
	}
	for i, st := range p.Statements {
		if strings.TrimSpace(st.File) == "" {
			return nil, fmt.Errorf("statement %d: file is required", i+1)
		}
	}
	for i, r := range p.Rules {
		n, err := rules.Normalize(r)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i+1, err)
		}
		p.Rules[i] = n
	}
	return &p, nil
}

func (p *Plan) Print(w io.Writer) {
	if p.YNAB.BudgetID != "" {
		fmt.Fprintf(w, "YNAB budget: %s\n", p.YNAB.BudgetID)
	}
	for i, st := range p.Statements {
		fmt.Fprintf(w, "[%d] file=%s\n", i+1, st.File)
	}
	for i, r := range p.Rules {
		fmt.Fprintf(w, "rule %d: like=%q not_like=%q direction=%s -> %s\n", i+1, r.LikePattern, r.NotLikePattern, r.Direction, r.Category)
	}
}
