package xlstream

import "strings"

type FormatKind byte

const (
	FormatRaw FormatKind = iota
	FormatGeneral
	FormatInteger
	FormatDecimal
	FormatDate
	FormatTime
)

func (k FormatKind) String() string {
	switch k {
	case FormatRaw:
		return "raw"
	case FormatGeneral:
		return "general"
	case FormatInteger:
		return "integer"
	case FormatDecimal:
		return "decimal"
	case FormatDate:
		return "date"
	case FormatTime:
		return "time"
	default:
		return "unknown"
	}
}

// firstCustomFormat is the lowest number format id available to documents.
const firstCustomFormat = 164

// builtinFormats maps the well-known number format ids to their kind without
// looking at a pattern.
var builtinFormats = map[string]FormatKind{
	"0":  FormatGeneral, // General
	"1":  FormatInteger, // 0
	"2":  FormatDecimal, // 0.00
	"3":  FormatInteger, // #,##0
	"4":  FormatDecimal, // #,##0.00
	"9":  FormatDecimal, // 0%
	"10": FormatDecimal, // 0.00%
	"11": FormatDecimal, // 0.00E+00
	"12": FormatDecimal, // # ?/?
	"13": FormatDecimal, // # ??/??
	"14": FormatDate,    // mm-dd-yy
	"15": FormatDate,    // d-mmm-yy
	"16": FormatDate,    // d-mmm
	"17": FormatDate,    // mmm-yy
	"18": FormatTime,    // h:mm AM/PM
	"19": FormatTime,    // h:mm:ss AM/PM
	"20": FormatTime,    // h:mm
	"21": FormatTime,    // h:mm:ss
	"22": FormatDate,    // m/d/yy h:mm
	"37": FormatInteger, // #,##0 ;(#,##0)
	"38": FormatInteger, // #,##0 ;[Red](#,##0)
	"39": FormatDecimal, // #,##0.00;(#,##0.00)
	"40": FormatDecimal, // #,##0.00;[Red](#,##0.00)
	"45": FormatTime,    // mm:ss
	"46": FormatTime,    // [h]:mm:ss
	"47": FormatTime,    // mmss.0
	"48": FormatDecimal, // ##0.0E+0
	"49": FormatRaw,     // @
}

// BuiltinFormat reports the kind of a built-in number format id.
func BuiltinFormat(id string) (FormatKind, bool) {
	k, ok := builtinFormats[id]
	return k, ok
}

// ClassifyFormat maps a format pattern to a kind by structural heuristics,
// first match wins:
//
//	year and month, or month and day        date
//	hour and minute                         time
//	decimal point with digit placeholders   decimal
//	digit placeholders only                 integer
//	anything else                           raw
func ClassifyFormat(pattern string) FormatKind {
	r := reduceFormat(pattern)
	has := func(c byte) bool { return strings.IndexByte(r, c) >= 0 }
	y, m, d, h := has('y'), has('m'), has('d'), has('h')
	switch {
	case (y && m) || (m && d):
		return FormatDate
	case h && m:
		return FormatTime
	}
	digits := strings.ContainsAny(r, "0#?")
	if digits && has('.') {
		return FormatDecimal
	}
	if digits && strings.Trim(r, "0#?,") == "" {
		return FormatInteger
	}
	return FormatRaw
}

// reduceFormat lower-cases the first section of a pattern and drops quoted
// literals, escaped and padding characters and bracketed sections.
func reduceFormat(pattern string) string {
	var sb strings.Builder
	sb.Grow(len(pattern))
	quoted, bracket := false, false
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch {
		case quoted:
			quoted = c != '"'
		case bracket:
			bracket = c != ']'
		case c == '"':
			quoted = true
		case c == '[':
			bracket = true
		case c == '\\' || c == '_' || c == '*':
			i++
		case c == ';':
			return sb.String()
		case c >= 'A' && c <= 'Z':
			sb.WriteByte(c + 'a' - 'A')
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}
