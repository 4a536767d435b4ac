package rules

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/yurifrl/caixa/pkg/models"
	"github.com/yurifrl/caixa/pkg/store"
	"gopkg.in/yaml.v3"
)

var ErrRuleNotFound = errors.New("rule not found")

// Store is the persistence the engine runs against.
type Store interface {
	CreateRule(ctx context.Context, r models.Rule) (int64, error)
	GetRule(ctx context.Context, id int64) (models.Rule, error)
	ListRules(ctx context.Context) ([]models.Rule, error)
	DeleteRule(ctx context.Context, id int64) (bool, error)
	BulkSetCategory(ctx context.Context, p store.Predicate, category string) (int64, error)
	CountWhere(ctx context.Context, p store.Predicate) (int64, error)
}

// Engine stores rules and applies them to the ledger as single bulk updates.
// Rules have no priority: when predicates overlap, the last applied wins.
type Engine struct {
	store  Store
	logger *log.Logger
}

func NewEngine(s Store, logger *log.Logger) *Engine {
	return &Engine{store: s, logger: logger}
}

// Normalize fills defaults and validates r.
func Normalize(r models.Rule) (models.Rule, error) {
	r.Category = strings.TrimSpace(r.Category)
	r.LikePattern = strings.TrimSpace(r.LikePattern)
	r.NotLikePattern = strings.TrimSpace(r.NotLikePattern)
	r.Source = strings.TrimSpace(r.Source)
	r.Currency = strings.ToUpper(strings.TrimSpace(r.Currency))

	if r.Category == "" {
		return r, &models.ValidationError{Field: "category", Reason: "category is required"}
	}
	if r.LikePattern == "" && r.NotLikePattern == "" {
		return r, &models.ValidationError{Field: "like_pattern", Reason: "at least one of like_pattern or not_like_pattern is required"}
	}

	direction, err := models.ParseDirection(string(r.Direction))
	if err != nil {
		return r, err
	}
	r.Direction = direction

	switch r.UpdateMode {
	case "":
		r.UpdateMode = models.UpdateEmptyOnly
	case models.UpdateEmptyOnly, models.UpdateFilledOnly, models.UpdateAll:
	default:
		return r, &models.ValidationError{Field: "update_mode", Reason: fmt.Sprintf("unknown update mode %q", r.UpdateMode)}
	}

	if r.LowerBound != nil && r.UpperBound != nil && *r.LowerBound > *r.UpperBound {
		return r, &models.ValidationError{Field: "lower_bound", Reason: "lower_bound is greater than upper_bound"}
	}
	if r.Source == "" || strings.EqualFold(r.Source, models.ScopeAll) {
		r.Source = models.ScopeAll
	}
	if r.Currency == "" || strings.EqualFold(r.Currency, models.ScopeAll) {
		r.Currency = models.ScopeAll
	}
	return r, nil
}

// Predicate builds the conjunction selecting the ledger rows r applies to.
// Descriptions are stored upper-cased, so patterns are upper-cased to make
// matching case-insensitive.
func Predicate(r models.Rule) store.Predicate {
	var p store.Predicate
	switch r.UpdateMode {
	case models.UpdateEmptyOnly, "":
		p = p.And("category IS NULL")
	case models.UpdateFilledOnly:
		p = p.And("category IS NOT NULL")
	}
	if r.LikePattern != "" {
		p = p.And("instr(description, ?) > 0", models.NormalizeDescription(r.LikePattern))
	}
	if r.NotLikePattern != "" {
		p = p.And("instr(description, ?) = 0", models.NormalizeDescription(r.NotLikePattern))
	}
	if r.LowerBound != nil {
		p = p.And("value >= ?", *r.LowerBound)
	}
	if r.UpperBound != nil {
		p = p.And("value <= ?", *r.UpperBound)
	}
	p = store.DirectionPredicate(p, r.Direction)
	if r.Currency != "" && r.Currency != models.ScopeAll {
		p = p.And("currency = ?", r.Currency)
	}
	if r.Source != "" && r.Source != models.ScopeAll {
		p = p.And("source = ?", r.Source)
	}
	return p
}

// Create validates and stores r.
func (e *Engine) Create(ctx context.Context, r models.Rule) (models.Rule, error) {
	r, err := Normalize(r)
	if err != nil {
		return r, err
	}
	id, err := e.store.CreateRule(ctx, r)
	if err != nil {
		return r, err
	}
	r.ID = id
	e.logger.Info("rule created", "id", id, "category", r.Category, "like", r.LikePattern, "not_like", r.NotLikePattern)
	return r, nil
}

// Ensure creates r unless a stored rule already selects the same rows for the
// same category. created is false when the stored rule is returned.
func (e *Engine) Ensure(ctx context.Context, r models.Rule) (rule models.Rule, created bool, err error) {
	r, err = Normalize(r)
	if err != nil {
		return r, false, err
	}
	existing, err := e.store.ListRules(ctx)
	if err != nil {
		return r, false, err
	}
	for _, stored := range existing {
		if Equivalent(stored, r) {
			e.logger.Debug("rule already stored", "id", stored.ID, "category", stored.Category)
			return stored, false, nil
		}
	}
	r, err = e.Create(ctx, r)
	return r, err == nil, err
}

// Equivalent reports whether two normalized rules have the same predicate and
// category.
func Equivalent(a, b models.Rule) bool {
	return a.Category == b.Category &&
		models.NormalizeDescription(a.LikePattern) == models.NormalizeDescription(b.LikePattern) &&
		models.NormalizeDescription(a.NotLikePattern) == models.NormalizeDescription(b.NotLikePattern) &&
		sameBound(a.LowerBound, b.LowerBound) &&
		sameBound(a.UpperBound, b.UpperBound) &&
		a.Direction == b.Direction &&
		a.UpdateMode == b.UpdateMode &&
		a.Source == b.Source &&
		a.Currency == b.Currency
}

func sameBound(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (e *Engine) Get(ctx context.Context, id int64) (models.Rule, error) {
	r, err := e.store.GetRule(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return r, fmt.Errorf("%w: %d", ErrRuleNotFound, id)
	}
	return r, err
}

func (e *Engine) List(ctx context.Context) ([]models.Rule, error) {
	return e.store.ListRules(ctx)
}

// Delete removes a rule; unknown ids return ErrRuleNotFound.
func (e *Engine) Delete(ctx context.Context, id int64) error {
	ok, err := e.store.DeleteRule(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %d", ErrRuleNotFound, id)
	}
	return nil
}

// Apply assigns the rule's category to every matching row and returns the
// number of rows changed.
func (e *Engine) Apply(ctx context.Context, id int64) (int64, error) {
	r, err := e.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	n, err := e.store.BulkSetCategory(ctx, Predicate(r), r.Category)
	if err != nil {
		return 0, fmt.Errorf("apply rule %d: %w", id, err)
	}
	e.logger.Info("rule applied", "id", id, "category", r.Category, "updated", n)
	return n, nil
}

// Preview counts the rows Apply would change.
func (e *Engine) Preview(ctx context.Context, id int64) (int64, error) {
	r, err := e.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	return e.store.CountWhere(ctx, Predicate(r))
}

// ApplyAll applies every rule in creation order and returns the total
// number of rows changed.
func (e *Engine) ApplyAll(ctx context.Context) (int64, error) {
	rules, err := e.List(ctx)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, r := range rules {
		n, err := e.store.BulkSetCategory(ctx, Predicate(r), r.Category)
		if err != nil {
			return total, fmt.Errorf("apply rule %d: %w", r.ID, err)
		}
		total += n
	}
	return total, nil
}

// File is the YAML layout of a rules file.
type File struct {
	Rules []models.Rule `yaml:"rules"`
}

// ParseFile decodes and validates a rules file.
func ParseFile(data []byte) ([]models.Rule, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse rules yaml: %w", err)
	}
	out := make([]models.Rule, 0, len(f.Rules))
	for i, r := range f.Rules {
		n, err := Normalize(r)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i+1, err)
		}
		out = append(out, n)
	}
	return out, nil
}

// LoadFile stores every rule in the YAML file at path that is not stored
// yet, and returns the rules the file maps to. Validation happens for the
// whole file before anything is stored.
func (e *Engine) LoadFile(ctx context.Context, path string) ([]models.Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	parsed, err := ParseFile(data)
	if err != nil {
		return nil, err
	}
	created := make([]models.Rule, 0, len(parsed))
	for _, r := range parsed {
		c, _, err := e.Ensure(ctx, r)
		if err != nil {
			return created, err
		}
		created = append(created, c)
	}
	return created, nil
}
