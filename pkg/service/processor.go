package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/yurifrl/caixa/pkg/ledger"
	"github.com/yurifrl/caixa/pkg/parser"
	"github.com/yurifrl/caixa/pkg/plan"
	"github.com/yurifrl/caixa/pkg/rules"
)

// FileResult is the outcome of importing one file. Err is set when the file
// could not be imported; other files are still processed.
type FileResult struct {
	Path   string
	Result *ledger.UploadResult
	Err    error
}

// Summary aggregates a batch import.
type Summary struct {
	Files        []FileResult
	RulesCreated int
	Categorized  int64
}

func (s *Summary) Inserted() int {
	n := 0
	for _, f := range s.Files {
		if f.Result != nil {
			n += f.Result.InsertedCount
		}
	}
	return n
}

func (s *Summary) Failed() int {
	n := 0
	for _, f := range s.Files {
		if f.Err != nil {
			n++
		}
	}
	return n
}

type Processor struct {
	ledger *ledger.Ledger
	rules  *rules.Engine
	logger *log.Logger
}

func NewProcessor(l *ledger.Ledger, r *rules.Engine, logger *log.Logger) *Processor {
	return &Processor{
		ledger: l,
		rules:  r,
		logger: logger,
	}
}

// ProcessFile imports a single statement file.
func (p *Processor) ProcessFile(ctx context.Context, path string) FileResult {
	data, err := os.ReadFile(path)
	if err != nil {
		return FileResult{Path: path, Err: fmt.Errorf("failed to read file: %w", err)}
	}
	res, err := p.ledger.Upload(ctx, filepath.Base(path), data)
	if err != nil {
		return FileResult{Path: path, Err: err}
	}
	return FileResult{Path: path, Result: res}
}

// ProcessDirectory imports every supported file directly under dir, in name
// order. Subdirectories and unsupported extensions are skipped.
func (p *Processor) ProcessDirectory(ctx context.Context, dir string) (*Summary, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("error reading directory: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !parser.Supported(entry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	return p.processFiles(ctx, paths)
}

// ProcessPlan imports the manifest's statements, stores the rules not
// already stored and applies every stored rule. Running the same manifest
// again stores no new entries or rules.
func (p *Processor) ProcessPlan(ctx context.Context, pl *plan.Plan) (*Summary, error) {
	paths := make([]string, 0, len(pl.Statements))
	for _, st := range pl.Statements {
		path, err := st.Path()
		if err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	sum, err := p.processFiles(ctx, paths)
	if err != nil {
		return sum, err
	}
	if len(pl.Rules) == 0 {
		return sum, nil
	}

	for _, r := range pl.Rules {
		_, created, err := p.rules.Ensure(ctx, r)
		if err != nil {
			return sum, fmt.Errorf("failed to create rule: %w", err)
		}
		if created {
			sum.RulesCreated++
		}
	}
	if sum.Categorized, err = p.rules.ApplyAll(ctx); err != nil {
		return sum, err
	}
	p.logger.Info("plan rules applied", "created", sum.RulesCreated, "categorized", sum.Categorized)
	return sum, nil
}

func (p *Processor) processFiles(ctx context.Context, paths []string) (*Summary, error) {
	sum := &Summary{}
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		p.logger.Info("processing file", "path", path)
		res := p.ProcessFile(ctx, path)
		if res.Err != nil {
			p.logger.Error("failed to process file", "file", path, "error", res.Err)
		}
		sum.Files = append(sum.Files, res)
	}
	return sum, nil
}
