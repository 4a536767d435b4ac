package models

import (
	"fmt"
	"strings"
)

// Direction restricts a filter or rule to debits, credits or both.
type Direction string

const (
	DirectionAll    Direction = "all"
	DirectionDebit  Direction = "debit"
	DirectionCredit Direction = "credit"
)

// ParseDirection accepts "", "all", "debit" and "credit".
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(strings.ToLower(strings.TrimSpace(s))); d {
	case "", DirectionAll:
		return DirectionAll, nil
	case DirectionDebit, DirectionCredit:
		return d, nil
	default:
		return "", &ValidationError{Field: "direction", Reason: fmt.Sprintf("unknown direction %q", s)}
	}
}

// UpdateMode selects which rows a rule is allowed to overwrite.
type UpdateMode string

const (
	UpdateEmptyOnly  UpdateMode = "empty_only"
	UpdateFilledOnly UpdateMode = "filled_only"
	UpdateAll        UpdateMode = "all"
)

// ScopeAll is the wildcard value of a rule's source and currency scopes.
const ScopeAll = "all"

// Rule assigns Category to every ledger row matching its predicate.
type Rule struct {
	ID             int64      `json:"id" yaml:"-"`
	LikePattern    string     `json:"like_pattern,omitempty" yaml:"like,omitempty"`
	NotLikePattern string     `json:"not_like_pattern,omitempty" yaml:"not_like,omitempty"`
	LowerBound     *int64     `json:"lower_bound,omitempty" yaml:"lower_bound,omitempty"`
	UpperBound     *int64     `json:"upper_bound,omitempty" yaml:"upper_bound,omitempty"`
	Direction      Direction  `json:"direction" yaml:"direction,omitempty"`
	UpdateMode     UpdateMode `json:"update_mode" yaml:"update_mode,omitempty"`
	Source         string     `json:"source" yaml:"source,omitempty"`
	Currency       string     `json:"currency" yaml:"currency,omitempty"`
	Category       string     `json:"category" yaml:"category"`
}

// ValidationError reports a missing or invalid field on user input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Category is a user-curated category name offered to rules and manual
// assignments.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
