package orm

import (
	"strconv"
	"strings"
)

const upperhex = "0123456789ABCDEF"

// header names may hold characters that are awkward inside a struct tag
func shouldEscape(c byte) bool {
	switch c {
	case '\'', '"', '/', '\\', '\n', '\r', '\t', '`', ' ', '%', ',':
		return true
	}
	return false
}

func unhex(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

type EscapeError string

func (e EscapeError) Error() string {
	return "orm: invalid title escape " + strconv.Quote(string(e))
}

// TitleEscape percent-encodes a header name so it can be written in an
// eorm tag.
func TitleEscape(title string) string {
	n := 0
	for i := 0; i < len(title); i++ {
		if shouldEscape(title[i]) {
			n++
		}
	}
	if n == 0 {
		return title
	}
	var sb strings.Builder
	sb.Grow(len(title) + 2*n)
	for i := 0; i < len(title); i++ {
		c := title[i]
		if !shouldEscape(c) {
			sb.WriteByte(c)
			continue
		}
		sb.WriteByte('%')
		sb.WriteByte(upperhex[c>>4])
		sb.WriteByte(upperhex[c&0x0f])
	}
	return sb.String()
}

// TitleUnescape reverses TitleEscape. Any %XX sequence is decoded, not only
// the ones TitleEscape produces.
func TitleUnescape(tag string) (string, error) {
	if strings.IndexByte(tag, '%') < 0 {
		return tag, nil
	}
	var sb strings.Builder
	sb.Grow(len(tag))
	for i := 0; i < len(tag); i++ {
		if tag[i] != '%' {
			sb.WriteByte(tag[i])
			continue
		}
		if i+2 >= len(tag) {
			return "", EscapeError(tag[i:])
		}
		hi, ok1 := unhex(tag[i+1])
		lo, ok2 := unhex(tag[i+2])
		if !ok1 || !ok2 {
			return "", EscapeError(tag[i : i+3])
		}
		sb.WriteByte(hi<<4 | lo)
		i += 2
	}
	return sb.String(), nil
}
