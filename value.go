package xlstream

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

type Kind byte

const (
	KindAbsent Kind = iota
	KindString
	KindInt32
	KindInt64
	KindDecimal
	KindDateTime
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindString:
		return "string"
	case KindInt32:
		return "int32"
	case KindInt64:
		return "int64"
	case KindDecimal:
		return "decimal"
	case KindDateTime:
		return "datetime"
	case KindBool:
		return "bool"
	default:
		return fmt.Sprintf("N/A(0x%x)", byte(k))
	}
}

// Value is a resolved cell value. The zero Value is absent.
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
	t    time.Time
}

var Absent = Value{}

func StringValue(s string) Value      { return Value{kind: KindString, s: s} }
func Int32Value(i int32) Value        { return Value{kind: KindInt32, i: int64(i)} }
func Int64Value(i int64) Value        { return Value{kind: KindInt64, i: i} }
func DecimalValue(f float64) Value    { return Value{kind: KindDecimal, f: f} }
func DateTimeValue(t time.Time) Value { return Value{kind: KindDateTime, t: t} }

func BoolValue(b bool) Value {
	if b {
		return Value{kind: KindBool, i: 1}
	}
	return Value{kind: KindBool}
}

func (v Value) Kind() Kind       { return v.kind }
func (v Value) IsAbsent() bool   { return v.kind == KindAbsent }
func (v Value) Str() string      { return v.s }
func (v Value) Int() int64       { return v.i }
func (v Value) Decimal() float64 { return v.f }
func (v Value) Time() time.Time  { return v.t }
func (v Value) Bool() bool       { return v.kind == KindBool && v.i != 0 }

// Interface returns the Go value: nil, string, int32, int64, float64,
// time.Time or bool.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt32:
		return int32(v.i)
	case KindInt64:
		return v.i
	case KindDecimal:
		return v.f
	case KindDateTime:
		return v.t
	case KindBool:
		return v.Bool()
	default:
		return nil
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt32, KindInt64:
		return strconv.FormatInt(v.i, 10)
	case KindDecimal:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindDateTime:
		if v.t.Hour() == 0 && v.t.Minute() == 0 && v.t.Second() == 0 && v.t.Nanosecond() == 0 {
			return v.t.Format(time.DateOnly)
		}
		return v.t.Format(time.DateTime)
	case KindBool:
		return strconv.FormatBool(v.Bool())
	default:
		return ""
	}
}

func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.s == o.s
	case KindDecimal:
		return v.f == o.f
	case KindDateTime:
		return v.t.Equal(o.t)
	default:
		return v.i == o.i
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}
