package orm

import (
	"errors"
	"fmt"
)

var (
	ErrNotStruct       = errors.New("orm: not a struct")
	ErrUnsupportedType = errors.New("orm: unsupported mapping type")
	ErrInvalidTag      = errors.New("orm: invalid eorm tag")
	ErrMissingColumn   = errors.New("orm: no column for field")
	ErrMultipleColumns = errors.New("orm: a slice mapping type is needed for multiple columns")
	ErrConversion      = errors.New("orm: value conversion failed")
	ErrValidation      = errors.New("orm: validation failed")
)

// RowError is a failure to bind one field of one row. Binding goes on with
// the next field and the next row.
type RowError struct {
	Row    int    // 1-based sheet row, 0 for header level errors
	Field  string // struct field
	Column string // header name
	Err    error
}

func (e RowError) Error() string {
	switch {
	case e.Row == 0:
		return fmt.Sprintf("orm: field %s column %q: %v", e.Field, e.Column, e.Err)
	case e.Field == "":
		return fmt.Sprintf("orm: row %d: %v", e.Row, e.Err)
	default:
		return fmt.Sprintf("orm: row %d field %s column %q: %v", e.Row, e.Field, e.Column, e.Err)
	}
}

func (e RowError) Unwrap() error { return e.Err }
