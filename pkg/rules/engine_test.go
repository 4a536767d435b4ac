package rules

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yurifrl/caixa/pkg/models"
	"github.com/yurifrl/caixa/pkg/store"
)

func setup(t *testing.T) (*Engine, *store.Store) {
	t.Helper()
	s, err := store.Open(store.MemoryDSN, log.New(io.Discard))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	entries := []struct {
		desc     string
		value    int64
		source   string
		currency string
	}{
		{"UBER *TRIP", -2500, "Cartão de crédito - Itaú", "BRL"},
		{"Uber Eats", -4500, "Cartão de crédito - Itaú", "BRL"},
		{"UBER REFUND", 2500, "Cartão de crédito - Itaú", "BRL"},
		{"UBER LONDON", -1800, "Conta corrente - Wise", "GBP"},
		{"SUPERMERCADO", -35000, "Conta corrente - Itaú", "BRL"},
	}
	for i, e := range entries {
		entry, err := models.NewEntry(e.desc).
			Date(time.Date(2025, time.March, i+1, 0, 0, 0, 0, time.UTC)).
			Minor(e.value).
			Source(e.source).
			Currency(e.currency).
			Build()
		require.NoError(t, err)
		_, _, err = s.InsertEntry(context.Background(), entry)
		require.NoError(t, err)
	}
	return NewEngine(s, log.New(io.Discard)), s
}

func categorized(t *testing.T, s *store.Store, category string) []models.Entry {
	t.Helper()
	entries, err := s.QueryEntries(context.Background(), store.EntryFilter{Categories: []string{category}}.Predicate())
	require.NoError(t, err)
	return entries
}

func TestApplyEmptyOnlyTwice(t *testing.T) {
	ctx := context.Background()
	e, _ := setup(t)

	r, err := e.Create(ctx, models.Rule{LikePattern: "uber", Category: "Transport"})
	require.NoError(t, err)
	assert.Equal(t, models.UpdateEmptyOnly, r.UpdateMode)
	assert.Equal(t, models.DirectionAll, r.Direction)
	assert.Equal(t, models.ScopeAll, r.Source)
	assert.Equal(t, models.ScopeAll, r.Currency)

	n, err := e.Apply(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	n, err = e.Apply(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestApplyDirectionAndScopes(t *testing.T) {
	ctx := context.Background()
	e, s := setup(t)

	r, err := e.Create(ctx, models.Rule{
		LikePattern:    "UBER",
		NotLikePattern: "eats",
		Direction:      models.DirectionDebit,
		Currency:       "brl",
		Category:       "Rides",
	})
	require.NoError(t, err)

	preview, err := e.Preview(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), preview)

	n, err := e.Apply(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, preview, n)

	rides := categorized(t, s, "Rides")
	require.Len(t, rides, 1)
	assert.Equal(t, "UBER *TRIP", rides[0].Description)
}

func TestApplyBoundsAndSource(t *testing.T) {
	ctx := context.Background()
	e, s := setup(t)
	lower, upper := int64(-5000), int64(-2000)

	r, err := e.Create(ctx, models.Rule{
		LikePattern: "uber",
		LowerBound:  &lower,
		UpperBound:  &upper,
		Source:      "Cartão de crédito - Itaú",
		Category:    "Card rides",
	})
	require.NoError(t, err)

	n, err := e.Apply(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	for _, entry := range categorized(t, s, "Card rides") {
		assert.GreaterOrEqual(t, entry.Value, lower)
		assert.LessOrEqual(t, entry.Value, upper)
	}
}

func TestApplyUpdateModes(t *testing.T) {
	ctx := context.Background()
	e, s := setup(t)

	first, err := e.Create(ctx, models.Rule{LikePattern: "UBER", Category: "Transport"})
	require.NoError(t, err)
	_, err = e.Apply(ctx, first.ID)
	require.NoError(t, err)

	// filled_only only touches rows that already have a category.
	refill, err := e.Create(ctx, models.Rule{LikePattern: "", NotLikePattern: "NOTHING", UpdateMode: models.UpdateFilledOnly, Category: "Mobility"})
	require.NoError(t, err)
	n, err := e.Apply(ctx, refill.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	// all rewrites every matching row, even with the same value.
	everything, err := e.Create(ctx, models.Rule{LikePattern: "UBER", UpdateMode: models.UpdateAll, Category: "Mobility"})
	require.NoError(t, err)
	n, err = e.Apply(ctx, everything.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	assert.Len(t, categorized(t, s, "Mobility"), 4)
}

func TestApplyUnknownRule(t *testing.T) {
	e, _ := setup(t)
	_, err := e.Apply(context.Background(), 404)
	assert.ErrorIs(t, err, ErrRuleNotFound)
	assert.ErrorIs(t, e.Delete(context.Background(), 404), ErrRuleNotFound)
}

func TestNormalizeValidation(t *testing.T) {
	lower, upper := int64(10), int64(5)
	tests := []struct {
		name  string
		rule  models.Rule
		field string
	}{
		{"missing category", models.Rule{LikePattern: "X"}, "category"},
		{"missing patterns", models.Rule{Category: "C"}, "like_pattern"},
		{"bad direction", models.Rule{LikePattern: "X", Category: "C", Direction: "sideways"}, "direction"},
		{"bad update mode", models.Rule{LikePattern: "X", Category: "C", UpdateMode: "sometimes"}, "update_mode"},
		{"inverted bounds", models.Rule{LikePattern: "X", Category: "C", LowerBound: &lower, UpperBound: &upper}, "lower_bound"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.rule)
			var vErr *models.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestLoadFile(t *testing.T) {
	ctx := context.Background()
	e, s := setup(t)

	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`rules:
  - like: supermercado
    category: Groceries
  - like: uber
    not_like: refund
    direction: debit
    category: Transport
`), 0644))

	created, err := e.LoadFile(ctx, path)
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.NotZero(t, created[0].ID)

	total, err := e.ApplyAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Len(t, categorized(t, s, "Groceries"), 1)
	assert.Len(t, categorized(t, s, "Transport"), 3)
}

func TestParseFileRejectsInvalidRule(t *testing.T) {
	_, err := ParseFile([]byte("rules:\n  - like: x\n"))
	var vErr *models.ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestEnsureSkipsEquivalentRule(t *testing.T) {
	ctx := context.Background()
	e, _ := setup(t)
	lower := int64(-5000)

	first, created, err := e.Ensure(ctx, models.Rule{LikePattern: "uber", LowerBound: &lower, Category: "Transport"})
	require.NoError(t, err)
	assert.True(t, created)

	again := int64(-5000)
	same, created, err := e.Ensure(ctx, models.Rule{LikePattern: " UBER ", LowerBound: &again, Source: "all", Category: "Transport"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, same.ID)

	_, created, err = e.Ensure(ctx, models.Rule{LikePattern: "uber", Category: "Transport"})
	require.NoError(t, err)
	assert.True(t, created, "a rule without the bound selects other rows")

	stored, err := e.List(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}
