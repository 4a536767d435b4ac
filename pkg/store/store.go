package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schema string

// ErrNotFound is returned when a row addressed by id does not exist.
var ErrNotFound = errors.New("not found")

const dateLayout = "2006-01-02"

// MemoryDSN opens a private in-memory database, used by tests.
const MemoryDSN = ":memory:"

// Store holds ledger entries, exchange rates, rules and the available
// currency set in one SQLite database.
type Store struct {
	db     *sql.DB
	logger *log.Logger
}

// Open opens or creates the database at path and applies the schema.
func Open(path string, logger *log.Logger) (*Store, error) {
	dsn := path
	if path != MemoryDSN {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
		dsn = path + "?_foreign_keys=on&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite is single-writer; one connection also keeps :memory: databases
	// alive for the lifetime of the store.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("execute schema: %w", err)
	}

	logger.Debug("database ready", "path", path)
	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Predicate is a conjunction of parameterised SQL conditions over the ledger
// table.
type Predicate struct {
	Clauses []string
	Args    []any
}

// And returns a copy of p with one more condition.
func (p Predicate) And(clause string, args ...any) Predicate {
	out := Predicate{
		Clauses: append(append([]string(nil), p.Clauses...), clause),
		Args:    append(append([]any(nil), p.Args...), args...),
	}
	return out
}

// In adds "column IN (...)" for a non-empty value list.
func (p Predicate) In(column string, values []string) Predicate {
	if len(values) == 0 {
		return p
	}
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	marks := strings.TrimSuffix(strings.Repeat("?,", len(values)), ",")
	return p.And(column+" IN ("+marks+")", args...)
}

// SQL renders the WHERE body and its arguments.
func (p Predicate) SQL() (string, []any) {
	if len(p.Clauses) == 0 {
		return "1=1", nil
	}
	return strings.Join(p.Clauses, " AND "), p.Args
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

// withTx runs fn in a transaction, rolling back when fn fails.
func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
