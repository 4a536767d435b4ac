package parser

import "fmt"

// RowParseError describes a single statement row that was skipped because
// its date or amount could not be parsed. It never aborts a file.
type RowParseError struct {
	Row int
	Err error
}

func (e *RowParseError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e *RowParseError) Unwrap() error { return e.Err }
