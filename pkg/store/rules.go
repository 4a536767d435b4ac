package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/yurifrl/caixa/pkg/models"
)

// CreateRule stores r and returns its id. Validation is the caller's job.
func (s *Store) CreateRule(ctx context.Context, r models.Rule) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO rules (like_pattern, not_like_pattern, lower_bound, upper_bound,
			direction, update_mode, source, currency, category)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.LikePattern, r.NotLikePattern, nullInt(r.LowerBound), nullInt(r.UpperBound),
		string(r.Direction), string(r.UpdateMode), r.Source, r.Currency, r.Category)
	if err != nil {
		return 0, fmt.Errorf("insert rule: %w", err)
	}
	return res.LastInsertId()
}

const ruleColumns = `id, COALESCE(like_pattern, ''), COALESCE(not_like_pattern, ''), lower_bound, upper_bound,
	direction, update_mode, source, currency, category`

// GetRule returns the rule with the given id or ErrNotFound.
func (s *Store) GetRule(ctx context.Context, id int64) (models.Rule, error) {
	r, err := scanRule(s.db.QueryRowContext(ctx, `SELECT `+ruleColumns+` FROM rules WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Rule{}, ErrNotFound
	}
	return r, err
}

// ListRules returns every rule in creation order.
func (s *Store) ListRules(ctx context.Context) ([]models.Rule, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+ruleColumns+` FROM rules ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	defer rows.Close()

	rules := []models.Rule{}
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// DeleteRule removes a rule and reports whether it existed.
func (s *Store) DeleteRule(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM rules WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete rule: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete rule: %w", err)
	}
	return n > 0, nil
}

func scanRule(row scanner) (models.Rule, error) {
	var (
		r          models.Rule
		lower      sql.NullInt64
		upper      sql.NullInt64
		direction  string
		updateMode string
	)
	if err := row.Scan(&r.ID, &r.LikePattern, &r.NotLikePattern, &lower, &upper,
		&direction, &updateMode, &r.Source, &r.Currency, &r.Category); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r, err
		}
		return r, fmt.Errorf("scan rule: %w", err)
	}
	r.Direction = models.Direction(direction)
	r.UpdateMode = models.UpdateMode(updateMode)
	if lower.Valid {
		r.LowerBound = &lower.Int64
	}
	if upper.Valid {
		r.UpperBound = &upper.Int64
	}
	return r, nil
}

// Categories lists the curated category names.
func (s *Store) Categories(ctx context.Context) ([]models.Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM categories ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// CreateCategory adds a category name. Existing names are not duplicated and
// their id is returned.
func (s *Store) CreateCategory(ctx context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, &models.ValidationError{Field: "name", Reason: "category name is required"}
	}
	if _, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO categories (name) VALUES (?)`, name); err != nil {
		return 0, fmt.Errorf("insert category: %w", err)
	}
	var id int64
	if err := s.db.QueryRowContext(ctx, `SELECT id FROM categories WHERE name = ?`, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("query category: %w", err)
	}
	return id, nil
}

// DeleteCategory removes a category name. Ledger rows keep their value.
func (s *Store) DeleteCategory(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete category: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete category: %w", err)
	}
	return n > 0, nil
}
