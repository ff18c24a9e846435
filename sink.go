package xlstream

import (
	"bytes"
	"encoding/json"
	"slices"
)

type (
	// Cell is a resolved in-window cell.
	Cell struct {
		Column int // 0-based
		Value  Value
	}

	// Sink accumulates decoded rows. The decoder calls it with whole rows
	// only, in strictly increasing row order; a row is never delivered
	// partially.
	Sink interface {
		Header(row int, cells []Cell)
		Append(row int, cells []Cell)
	}

	Column struct {
		Name   string
		Kind   Kind // kind of the header value, KindString when the header was absent
		Source int  // 0-based sheet column
	}

	TableRow struct {
		Row    int // 1-based sheet row
		Values []Value
	}

	Table struct {
		Name    string
		Columns []Column
		Rows    []TableRow
	}

	Field struct {
		Name  string
		Value Value
	}

	// Record is one data row as ordered name/value pairs.
	Record struct {
		Row    int
		Fields []Field
	}
)

// names is the column -> name mapping established by the header row and
// shared by the table and map sinks.
type names map[int]string

func (n names) capture(cells []Cell) {
	for _, c := range cells {
		if c.Value.IsAbsent() {
			n[c.Column] = IndexToColumn(c.Column)
		} else {
			n[c.Column] = c.Value.String()
		}
	}
}

func (n names) of(col int) string {
	if name, ok := n[col]; ok {
		return name
	}
	return IndexToColumn(col)
}

// TableSink builds a typed Table.
type TableSink struct {
	table    Table
	position map[int]int // sheet column -> index in Columns
}

func NewTableSink(name string) *TableSink {
	return &TableSink{table: Table{Name: name}, position: make(map[int]int)}
}

func (s *TableSink) Header(_ int, cells []Cell) {
	for _, c := range cells {
		if c.Value.IsAbsent() {
			s.addColumn(IndexToColumn(c.Column), KindString, c.Column)
		} else {
			s.addColumn(c.Value.String(), c.Value.Kind(), c.Column)
		}
	}
}

// addColumn places a column at its sheet position among the known columns,
// shifting the values of rows already appended.
func (s *TableSink) addColumn(name string, kind Kind, source int) int {
	if pos, ok := s.position[source]; ok {
		return pos
	}
	pos := len(s.table.Columns)
	for i, c := range s.table.Columns {
		if c.Source > source {
			pos = i
			break
		}
	}
	s.table.Columns = slices.Insert(s.table.Columns, pos, Column{Name: name, Kind: kind, Source: source})
	for src, p := range s.position {
		if p >= pos {
			s.position[src] = p + 1
		}
	}
	s.position[source] = pos
	for i := range s.table.Rows {
		if values := s.table.Rows[i].Values; pos <= len(values) {
			s.table.Rows[i].Values = slices.Insert(values, pos, Absent)
		}
	}
	return pos
}

func (s *TableSink) Append(row int, cells []Cell) {
	for _, c := range cells {
		if _, ok := s.position[c.Column]; !ok {
			s.addColumn(IndexToColumn(c.Column), KindString, c.Column)
		}
	}
	values := make([]Value, len(s.table.Columns))
	for _, c := range cells {
		values[s.position[c.Column]] = c.Value
	}
	s.table.Rows = append(s.table.Rows, TableRow{Row: row, Values: values})
}

func (s *TableSink) Table() *Table {
	t := s.table
	return &t
}

func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Value returns the value of row i in the named column, Absent when either
// does not exist.
func (t *Table) Value(i int, name string) Value {
	col := t.ColumnIndex(name)
	if i < 0 || i >= len(t.Rows) || col < 0 || col >= len(t.Rows[i].Values) {
		return Absent
	}
	return t.Rows[i].Values[col]
}

func (t *Table) Records() []Record {
	out := make([]Record, 0, len(t.Rows))
	for _, r := range t.Rows {
		rec := Record{Row: r.Row}
		for i, v := range r.Values {
			if !v.IsAbsent() {
				rec.Fields = append(rec.Fields, Field{Name: t.Columns[i].Name, Value: v})
			}
		}
		out = append(out, rec)
	}
	return out
}

// ArraySink keeps every data row as values positioned by column, relative to
// the window's first column. Header rows are ignored.
type ArraySink struct {
	offset int
	rows   [][]Value
	index  []int
}

func NewArraySink(startColumn int) *ArraySink {
	return &ArraySink{offset: startColumn}
}

func (s *ArraySink) Header(int, []Cell) {}

func (s *ArraySink) Append(row int, cells []Cell) {
	var values []Value
	for _, c := range cells {
		pos := c.Column - s.offset
		if pos < 0 {
			continue
		}
		for pos >= len(values) {
			values = append(values, Absent)
		}
		values[pos] = c.Value
	}
	s.rows = append(s.rows, values)
	s.index = append(s.index, row)
}

func (s *ArraySink) Rows() [][]Value { return s.rows }

// RowNumbers returns the 1-based sheet row of every collected row.
func (s *ArraySink) RowNumbers() []int { return s.index }

// MapSink keeps every data row as a Record named after the header row.
// Columns without a header are named by their letters. Empty cells before
// the last present one of a row are kept as Absent fields, so a record lines
// up with the same row of an ArraySink.
type MapSink struct {
	offset  int
	names   names
	records []Record
}

func NewMapSink(startColumn int) *MapSink {
	return &MapSink{offset: startColumn, names: make(names)}
}

func (s *MapSink) Header(_ int, cells []Cell) {
	s.names.capture(cells)
}

func (s *MapSink) Append(row int, cells []Cell) {
	rec := Record{Row: row, Fields: make([]Field, 0, len(cells))}
	next := s.offset
	for _, c := range cells {
		if c.Column < s.offset {
			continue
		}
		for ; next < c.Column; next++ {
			rec.Fields = append(rec.Fields, Field{Name: s.names.of(next), Value: Absent})
		}
		rec.Fields = append(rec.Fields, Field{Name: s.names.of(c.Column), Value: c.Value})
		next = c.Column + 1
	}
	s.records = append(s.records, rec)
}

func (s *MapSink) Records() []Record { return s.records }

// Get returns the first value named name.
func (r Record) Get(name string) (Value, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Absent, false
}

// GetAll returns every value named name, in column order.
func (r Record) GetAll(name string) []Value {
	var out []Value
	for _, f := range r.Fields {
		if f.Name == name {
			out = append(out, f.Value)
		}
	}
	return out
}

func (r Record) Names() []string {
	out := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		out[i] = f.Name
	}
	return out
}

func (r Record) Values() []Value {
	out := make([]Value, len(r.Fields))
	for i, f := range r.Fields {
		out[i] = f.Value
	}
	return out
}

// MarshalJSON keeps the column order of the fields.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.Fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
