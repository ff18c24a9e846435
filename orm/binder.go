package orm

import (
	"errors"
	"fmt"
	"iter"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/stephenfire/go-xlstream"
)

// Binder turns decoded records into values of the struct type T. Fields are
// selected by the eorm tag, which holds the escaped header name (or several,
// comma separated) of the column feeding the field:
//
//	type Order struct {
//		ID    int64     `eorm:"No."`
//		Buyer string    `eorm:"Buyer%20Name,Customer" validate:"required"`
//		Dates []time.Time `eorm:"Date"`
//	}
//
// A slice field collects every column carrying one of its names. A method
// Set<Field> with a single supported parameter takes precedence over
// assigning the field directly.
type Binder[T any] struct {
	typ     reflect.Type
	params  *Params
	mappers []*ColumnMapper
}

func NewBinder[T any](opts ...Option) (*Binder[T], error) {
	objType := reflect.TypeOf((*T)(nil)).Elem()
	if objType.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: got %s", ErrNotStruct, objType.Kind())
	}
	b := &Binder[T]{typ: objType, params: NewParams(opts...)}
	for i := 0; i < objType.NumField(); i++ {
		m, ok, err := newColumnMapper(objType, i)
		if err != nil {
			return nil, err
		}
		if ok {
			b.mappers = append(b.mappers, m)
		}
	}
	return b, nil
}

func (b *Binder[T]) Mappers() []*ColumnMapper { return b.mappers }

// Check matches the header against the tagged fields: a single valued field
// may not find more than one column, and in strict mode every field has to
// find one.
func (b *Binder[T]) Check(header []string) error {
	var errs []error
	for _, m := range b.mappers {
		count := 0
		for _, name := range header {
			if m.matches(name, b.params.TrimSpace) {
				count++
			}
		}
		switch {
		case count == 0 && b.params.Strict:
			errs = append(errs, RowError{Field: m.fieldName, Column: m.titles[0], Err: ErrMissingColumn})
		case count > 1 && !m.mappingType.IsSlice():
			errs = append(errs, RowError{Field: m.fieldName, Column: m.titles[0], Err: ErrMultipleColumns})
		}
	}
	return errors.Join(errs...)
}

// BindRecord binds one record. The returned value is nil when any field
// failed; errs lists every failure of the row.
func (b *Binder[T]) BindRecord(rec xlstream.Record) (*T, []RowError) {
	obj := reflect.New(b.typ)
	var errs []RowError
	for _, m := range b.mappers {
		var values []xlstream.Value
		for _, f := range rec.Fields {
			if m.matches(f.Name, b.params.TrimSpace) {
				values = append(values, f.Value)
			}
		}
		if len(values) == 0 {
			continue
		}
		if err := m.SetValue(obj, values); err != nil {
			errs = append(errs, RowError{Row: rec.Row, Field: m.fieldName, Column: m.titles[0], Err: err})
		}
	}
	if len(errs) == 0 && b.params.Validator != nil {
		errs = b.validate(rec.Row, obj.Interface())
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return obj.Interface().(*T), nil
}

func (b *Binder[T]) validate(row int, obj any) []RowError {
	err := b.params.Validator.Struct(obj)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []RowError{{Row: row, Err: fmt.Errorf("%w: %w", ErrValidation, err)}}
	}
	out := make([]RowError, 0, len(verrs))
	for _, fe := range verrs {
		column := fe.Field()
		if m := b.mapperOf(fe.StructField()); m != nil {
			column = m.titles[0]
		}
		out = append(out, RowError{
			Row:    row,
			Field:  fe.StructField(),
			Column: column,
			Err:    fmt.Errorf("%w: failed on '%s'", ErrValidation, fe.Tag()),
		})
	}
	return out
}

func (b *Binder[T]) mapperOf(fieldName string) *ColumnMapper {
	for _, m := range b.mappers {
		if m.fieldName == fieldName {
			return m
		}
	}
	return nil
}

// All yields every record bound, failed rows with a nil value and their
// errors.
func (b *Binder[T]) All(records []xlstream.Record) iter.Seq2[*T, []RowError] {
	return func(yield func(*T, []RowError) bool) {
		for _, rec := range records {
			if !yield(b.BindRecord(rec)) {
				return
			}
		}
	}
}

// Bind binds every record, leaving out the rows that failed.
func (b *Binder[T]) Bind(records []xlstream.Record) ([]*T, []RowError) {
	var (
		out  []*T
		errs []RowError
	)
	for obj, rowErrs := range b.All(records) {
		if len(rowErrs) > 0 {
			errs = append(errs, rowErrs...)
			continue
		}
		out = append(out, obj)
	}
	return out, errs
}

// BindTable checks the table header, then binds all of its rows.
func (b *Binder[T]) BindTable(table *xlstream.Table) ([]*T, []RowError, error) {
	header := make([]string, len(table.Columns))
	for i, c := range table.Columns {
		header[i] = c.Name
	}
	if err := b.Check(header); err != nil {
		return nil, nil, err
	}
	out, errs := b.Bind(table.Records())
	return out, errs, nil
}

func (b *Binder[T]) Info() string {
	sb := strings.Builder{}
	for i, m := range b.mappers {
		if i > 0 {
			sb.WriteString(fmt.Sprintln())
		}
		sb.WriteString(fmt.Sprintf("%4d: %s", i+1, m))
	}
	return sb.String()
}
