package orm

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/stephenfire/go-xlstream"
)

type (
	MappingType byte

	// ColumnMapper binds one tagged struct field to the column(s) named by
	// its tag.
	ColumnMapper struct {
		fieldIndex  int
		mappingType MappingType
		fieldType   reflect.Type // type of the field, or of the setter parameter when HasSetter
		fieldName   string
		titles      []string // unescaped header names from the eorm tag, any of them matches
		Setter      reflect.Method
		HasSetter   bool
	}
)

const (
	MTString MappingType = iota
	MTInt64
	MTFloat64
	MTBool
	MTTime
	MTStringSlice
	MTInt64Slice
	MTFloat64Slice
	MTBoolSlice
	MTTimeSlice
	MTInvalid
)

var timeType = reflect.TypeOf(time.Time{})

func singleMappingType(typ reflect.Type) MappingType {
	if typ == timeType {
		return MTTime
	}
	switch typ.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return MTInt64
	case reflect.Float32, reflect.Float64:
		return MTFloat64
	case reflect.String:
		return MTString
	case reflect.Bool:
		return MTBool
	default:
		return MTInvalid
	}
}

func NewMappingType(typ reflect.Type) (MappingType, error) {
	if typ.Kind() == reflect.Slice {
		mt := singleMappingType(typ.Elem())
		if mt == MTInvalid {
			return MTInvalid, fmt.Errorf("%w: %s", ErrUnsupportedType, typ)
		}
		return mt + MTStringSlice, nil
	}
	mt := singleMappingType(typ)
	if mt == MTInvalid {
		return MTInvalid, fmt.Errorf("%w: %s", ErrUnsupportedType, typ)
	}
	return mt, nil
}

func (mt MappingType) IsSlice() bool  { return mt >= MTStringSlice && mt <= MTTimeSlice }
func (mt MappingType) IsSingle() bool { return mt <= MTTime }
func (mt MappingType) IsValid() bool  { return mt < MTInvalid }

// Elem is the mapping type of one element of a slice mapping type.
func (mt MappingType) Elem() MappingType {
	if mt.IsSlice() {
		return mt - MTStringSlice
	}
	return mt
}

func (mt MappingType) String() string {
	switch mt {
	case MTString:
		return "~string"
	case MTInt64:
		return "~int64"
	case MTFloat64:
		return "~float64"
	case MTBool:
		return "~bool"
	case MTTime:
		return "time.Time"
	case MTStringSlice, MTInt64Slice, MTFloat64Slice, MTBoolSlice, MTTimeSlice:
		return "[]" + mt.Elem().String()
	default:
		return fmt.Sprintf("N/A(0x%x)", byte(mt))
	}
}

func (m *ColumnMapper) String() string {
	sb := strings.Builder{}
	sb.WriteString(fmt.Sprintf("[%d]", m.fieldIndex))
	sb.WriteString(m.fieldName)
	sb.WriteString(fmt.Sprintf("(%s)", m.mappingType))
	sb.WriteString(":[")
	sb.WriteString(strings.Join(m.titles, "|"))
	sb.WriteString("]:")
	sb.WriteString(fmt.Sprintf("HasSetter=%t", m.HasSetter))
	return sb.String()
}

func (m *ColumnMapper) FieldName() string         { return m.fieldName }
func (m *ColumnMapper) MappingType() MappingType { return m.mappingType }
func (m *ColumnMapper) Titles() []string          { return m.titles }

func (m *ColumnMapper) matches(name string, trim bool) bool {
	if trim {
		name = strings.TrimSpace(name)
	}
	for _, t := range m.titles {
		if t == name {
			return true
		}
	}
	return false
}

// SetValue writes values into the field of obj, a pointer to the struct,
// through the setter when there is one. Absent values are skipped.
func (m *ColumnMapper) SetValue(obj reflect.Value, values []xlstream.Value) error {
	present := values[:0:0]
	for _, v := range values {
		if !v.IsAbsent() {
			present = append(present, v)
		}
	}
	if len(present) == 0 {
		return nil
	}

	var in reflect.Value
	if m.mappingType.IsSlice() {
		in = reflect.MakeSlice(m.fieldType, 0, len(present))
		for _, v := range present {
			ev, err := convert(v, m.mappingType.Elem(), m.fieldType.Elem())
			if err != nil {
				return err
			}
			in = reflect.Append(in, ev)
		}
	} else {
		if len(present) > 1 {
			return fmt.Errorf("%w: %d values for %s", ErrMultipleColumns, len(present), m.fieldName)
		}
		ev, err := convert(present[0], m.mappingType, m.fieldType)
		if err != nil {
			return err
		}
		in = ev
	}

	if m.HasSetter {
		m.Setter.Func.Call([]reflect.Value{obj, in})
		return nil
	}
	obj.Elem().Field(m.fieldIndex).Set(in)
	return nil
}

func convert(v xlstream.Value, mt MappingType, typ reflect.Type) (reflect.Value, error) {
	out := reflect.New(typ).Elem()
	switch mt {
	case MTString:
		out.SetString(v.String())
	case MTInt64:
		i, err := toInt64(v)
		if err != nil {
			return out, err
		}
		if out.OverflowInt(i) {
			return out, fmt.Errorf("%w: %d overflows %s", ErrConversion, i, typ)
		}
		out.SetInt(i)
	case MTFloat64:
		f, err := toFloat64(v)
		if err != nil {
			return out, err
		}
		out.SetFloat(f)
	case MTBool:
		b, err := toBool(v)
		if err != nil {
			return out, err
		}
		out.SetBool(b)
	case MTTime:
		t, err := toTime(v)
		if err != nil {
			return out, err
		}
		out.Set(reflect.ValueOf(t))
	default:
		return out, fmt.Errorf("%w: %s", ErrUnsupportedType, typ)
	}
	return out, nil
}

func conversionError(v xlstream.Value, target string) error {
	return fmt.Errorf("%w: %s %q to %s", ErrConversion, v.Kind(), v.String(), target)
}

func toInt64(v xlstream.Value) (int64, error) {
	switch v.Kind() {
	case xlstream.KindInt32, xlstream.KindInt64:
		return v.Int(), nil
	case xlstream.KindDecimal:
		f := v.Decimal()
		if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
			return 0, conversionError(v, "int64")
		}
		return int64(f), nil
	case xlstream.KindBool:
		if v.Bool() {
			return 1, nil
		}
		return 0, nil
	case xlstream.KindString:
		i, err := strconv.ParseInt(strings.TrimSpace(v.Str()), 10, 64)
		if err != nil {
			return 0, conversionError(v, "int64")
		}
		return i, nil
	default:
		return 0, conversionError(v, "int64")
	}
}

func toFloat64(v xlstream.Value) (float64, error) {
	switch v.Kind() {
	case xlstream.KindInt32, xlstream.KindInt64:
		return float64(v.Int()), nil
	case xlstream.KindDecimal:
		return v.Decimal(), nil
	case xlstream.KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Str()), 64)
		if err != nil {
			return 0, conversionError(v, "float64")
		}
		return f, nil
	default:
		return 0, conversionError(v, "float64")
	}
}

func toBool(v xlstream.Value) (bool, error) {
	switch v.Kind() {
	case xlstream.KindBool:
		return v.Bool(), nil
	case xlstream.KindInt32, xlstream.KindInt64:
		return v.Int() != 0, nil
	case xlstream.KindString:
		switch strings.ToUpper(strings.TrimSpace(v.Str())) {
		case "TRUE", "1", "YES", "Y":
			return true, nil
		case "FALSE", "0", "NO", "N":
			return false, nil
		}
	}
	return false, conversionError(v, "bool")
}

var timeLayouts = []string{time.DateOnly, time.DateTime, time.RFC3339}

func toTime(v xlstream.Value) (time.Time, error) {
	switch v.Kind() {
	case xlstream.KindDateTime:
		return v.Time(), nil
	case xlstream.KindString:
		s := strings.TrimSpace(v.Str())
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
	}
	return time.Time{}, conversionError(v, "time.Time")
}

// findSetterMethod looks for func (*T) Set<Field>(v) with a supported
// parameter type.
func findSetterMethod(objType reflect.Type, fieldName string) (method reflect.Method, mtType MappingType, paramType reflect.Type, found bool) {
	ptrType := reflect.PointerTo(objType)
	method, ok := ptrType.MethodByName("Set" + fieldName)
	if !ok || method.Type.NumIn() != 2 {
		return reflect.Method{}, MTInvalid, nil, false
	}
	paramType = method.Type.In(1)
	mtType, err := NewMappingType(paramType)
	if err != nil {
		return reflect.Method{}, MTInvalid, nil, false
	}
	return method, mtType, paramType, true
}

func newColumnMapper(objType reflect.Type, index int) (*ColumnMapper, bool, error) {
	field := objType.Field(index)
	tag, ok := field.Tag.Lookup("eorm")
	if !ok || tag == "-" {
		return nil, false, nil
	}
	var titles []string
	for _, part := range strings.Split(tag, ",") {
		title, err := TitleUnescape(part)
		if err != nil {
			return nil, false, fmt.Errorf("%w: field %s: %w", ErrInvalidTag, field.Name, err)
		}
		if title == "" {
			return nil, false, fmt.Errorf("%w: field %s: empty title", ErrInvalidTag, field.Name)
		}
		titles = append(titles, title)
	}

	m := &ColumnMapper{fieldIndex: index, fieldName: field.Name, titles: titles}
	if setter, mt, paramType, found := findSetterMethod(objType, field.Name); found {
		m.Setter, m.mappingType, m.fieldType, m.HasSetter = setter, mt, paramType, true
		return m, true, nil
	}
	if !field.IsExported() {
		return nil, false, fmt.Errorf("%w: unexported field %s without a setter", ErrUnsupportedType, field.Name)
	}
	mt, err := NewMappingType(field.Type)
	if err != nil {
		return nil, false, fmt.Errorf("field %s: %w", field.Name, err)
	}
	m.mappingType, m.fieldType = mt, field.Type
	return m, true, nil
}
