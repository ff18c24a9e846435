package xlstream

import (
	"errors"
	"fmt"
)

var (
	// fatal: abort the current decode
	ErrMalformedDocument    = errors.New("xlstream: malformed document")
	ErrMissingEntry         = errors.New("xlstream: missing entry")
	ErrInvalidConfiguration = errors.New("xlstream: invalid configuration")
	ErrNotFound             = errors.New("xlstream: not found")
	ErrClosed               = errors.New("xlstream: document closed")

	// recoverable: turned into diagnostics, the cell resolves to absent
	ErrUnresolvedReference = errors.New("xlstream: unresolved reference")
	ErrMalformedReference  = errors.New("xlstream: malformed reference")
	ErrParseError          = errors.New("xlstream: cell value parse error")
	// ErrCellError #NULL!, #DIV/0!, #VALUE!, #REF!, #NAME?, #NUM!, #N/A
	ErrCellError = errors.New("xlstream: error cell value")
)

// ResolveError is a per-cell failure. It never crosses the row boundary: the
// decoder records it as a Diagnostic and stores an absent value instead.
type ResolveError struct {
	Stage string // which resolution step failed, see the Stage* constants
	Ref   string // cell reference, e.g. "B7"
	Text  string // the offending raw text
	Err   error
}

func (e *ResolveError) Error() string {
	if e.Ref == "" {
		return fmt.Sprintf("%s: %q: %v", e.Stage, e.Text, e.Err)
	}
	return fmt.Sprintf("%s %s: %q: %v", e.Stage, e.Ref, e.Text, e.Err)
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}

func newResolveError(stage, text string, err error) *ResolveError {
	return &ResolveError{Stage: stage, Text: text, Err: err}
}

func configError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfiguration, fmt.Sprintf(format, args...))
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedDocument, fmt.Sprintf(format, args...))
}
