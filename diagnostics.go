package xlstream

import (
	"errors"
	"fmt"
	"sync"
)

// Resolution stages reported in diagnostics.
const (
	StageSharedString    = "SharedString"
	StageStyle           = "Style"
	StageNumberFormat    = "NumberFormat"
	StageParseInteger    = "ParseInteger"
	StageParseDecimal    = "ParseDecimal"
	StageParseDateTime   = "ParseDateTime"
	StageParseBool       = "ParseBool"
	StageCellError       = "CellError"
	StageColumnReference = "ColumnReference"
	StageReadTables      = "ReadTables"
)

type Diagnostic struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("[%s]:[%s]", d.Stage, d.Message)
}

func diagnosticOf(err error) Diagnostic {
	var re *ResolveError
	if errors.As(err, &re) {
		return Diagnostic{Stage: re.Stage, Message: re.Error()}
	}
	return Diagnostic{Stage: "Decode", Message: err.Error()}
}

// diagnosticLog is the session-wide, append-only log. Decodes collect into a
// private slice and merge once they finish.
type diagnosticLog struct {
	lock    sync.Mutex
	entries []Diagnostic
}

func (l *diagnosticLog) append(ds ...Diagnostic) {
	if len(ds) == 0 {
		return
	}
	l.lock.Lock()
	defer l.lock.Unlock()
	l.entries = append(l.entries, ds...)
}

func (l *diagnosticLog) snapshot() []Diagnostic {
	l.lock.Lock()
	defer l.lock.Unlock()
	out := make([]Diagnostic, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *diagnosticLog) drain() []Diagnostic {
	l.lock.Lock()
	defer l.lock.Unlock()
	out := l.entries
	l.entries = nil
	return out
}
