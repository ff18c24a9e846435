package xlstream

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// RawCell is one cell as it appears in the sheet markup. It lives only until
// the end of its row.
type RawCell struct {
	Ref      string // e.g. "B7"
	Column   int    // 0-based
	Type     string // t attribute: s, str, inlineStr, b, e, d, n or empty
	Style    string // s attribute
	HasStyle bool
	Text     string // text of <v>, or of <is> for inline strings
}

var (
	// naiveEpoch is day zero of the default date conversion: a plain
	// 1900-01-01 + days, without the 1900 leap year compensation.
	naiveEpoch = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)
	// serialEpoch is day zero of spreadsheet serial dates (1900 date system).
	serialEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
)

// maxSerialDays is one past 9999-12-31 as a day count.
const maxSerialDays = 2958466

type resolver struct {
	strings SharedStrings
	styles  *Styles
	rawText bool
	epoch   time.Time
}

func newResolver(sst SharedStrings, styles *Styles, params *Params) *resolver {
	r := &resolver{strings: sst, styles: styles, rawText: params.RawText, epoch: naiveEpoch}
	if params.SerialDates {
		r.epoch = serialEpoch
	}
	return r
}

// Resolve turns a raw cell into a typed value. A non-nil error is always a
// *ResolveError and the returned value is then Absent.
func (r *resolver) Resolve(c RawCell) (Value, error) {
	switch c.Type {
	case "s":
		text := strings.TrimSpace(c.Text)
		ordinal, err := strconv.Atoi(text)
		if err != nil {
			return Absent, r.fail(StageSharedString, c, fmt.Errorf("%w: ordinal: %w", ErrUnresolvedReference, err))
		}
		s, err := r.strings.Get(ordinal)
		if err != nil {
			return Absent, r.fail(StageSharedString, c, err)
		}
		return StringValue(s), nil
	case "str", "inlineStr":
		return StringValue(c.Text), nil
	case "b":
		switch strings.TrimSpace(c.Text) {
		case "1", "true", "TRUE":
			return BoolValue(true), nil
		case "0", "false", "FALSE":
			return BoolValue(false), nil
		default:
			return Absent, r.fail(StageParseBool, c, ErrParseError)
		}
	case "e":
		return Absent, r.fail(StageCellError, c, ErrCellError)
	case "d":
		t, err := parseISODate(strings.TrimSpace(c.Text))
		if err != nil {
			return Absent, r.fail(StageParseDateTime, c, fmt.Errorf("%w: %w", ErrParseError, err))
		}
		return DateTimeValue(t), nil
	}

	// numeric: only the style tells what the number means
	if !c.HasStyle {
		return r.raw(c), nil
	}
	formatID, err := r.styles.FormatID(c.Style)
	if err != nil {
		return Absent, r.fail(StageStyle, c, err)
	}
	kind, err := r.styles.Classify(formatID)
	if err != nil {
		return Absent, r.fail(StageNumberFormat, c, err)
	}
	return r.parse(kind, c)
}

func (r *resolver) parse(kind FormatKind, c RawCell) (Value, error) {
	text := strings.TrimSpace(c.Text)
	switch kind {
	case FormatInteger:
		if v, ok := parseInteger(text); ok {
			return v, nil
		}
		return Absent, r.fail(StageParseInteger, c, ErrParseError)
	case FormatGeneral:
		if v, ok := parseInteger(text); ok {
			return v, nil
		}
		fallthrough
	case FormatDecimal:
		f, err := parseNumber(text)
		if err != nil {
			return Absent, r.fail(StageParseDecimal, c, fmt.Errorf("%w: %w", ErrParseError, err))
		}
		return DecimalValue(f), nil
	case FormatDate, FormatTime:
		days, err := parseNumber(text)
		if err != nil {
			return Absent, r.fail(StageParseDateTime, c, fmt.Errorf("%w: %w", ErrParseError, err))
		}
		t, err := r.addDays(days)
		if err != nil {
			return Absent, r.fail(StageParseDateTime, c, err)
		}
		return DateTimeValue(t), nil
	default:
		return r.raw(c), nil
	}
}

func (r *resolver) raw(c RawCell) Value {
	if r.rawText {
		return StringValue(c.Text)
	}
	return Absent
}

// addDays adds a fractional day count to the epoch, rounded to the
// millisecond.
func (r *resolver) addDays(days float64) (time.Time, error) {
	if math.IsNaN(days) || math.IsInf(days, 0) || math.Abs(days) >= maxSerialDays {
		return time.Time{}, fmt.Errorf("%w: day count %v out of range", ErrParseError, days)
	}
	whole := math.Floor(days)
	ms := math.Round((days - whole) * float64(24*time.Hour/time.Millisecond))
	return r.epoch.AddDate(0, 0, int(whole)).Add(time.Duration(ms) * time.Millisecond), nil
}

func (r *resolver) fail(stage string, c RawCell, err error) *ResolveError {
	re := newResolveError(stage, c.Text, err)
	re.Ref = c.Ref
	return re
}

// parseNumber accepts plain decimal notation only. strconv also takes NaN,
// Inf, hex floats and underscores, none of which a cell value may hold.
func parseNumber(text string) (float64, error) {
	if text == "" {
		return 0, errors.New("empty number")
	}
	for i := 0; i < len(text); i++ {
		switch c := text[i]; {
		case c >= '0' && c <= '9', c == '.', c == '-', c == '+', c == 'e', c == 'E':
		default:
			return 0, fmt.Errorf("invalid number %q", text)
		}
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("number %q out of range", text)
	}
	return f, nil
}

// parseInteger tries the 32-bit range first, then 64-bit.
func parseInteger(text string) (Value, bool) {
	if i, err := strconv.ParseInt(text, 10, 32); err == nil {
		return Int32Value(int32(i)), true
	}
	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		return Int64Value(i), true
	}
	return Absent, false
}

var isoLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02T15:04", time.DateOnly, "15:04:05.999999999"}

func parseISODate(text string) (time.Time, error) {
	var err error
	for _, layout := range isoLayouts {
		var t time.Time
		if t, err = time.Parse(layout, text); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}
