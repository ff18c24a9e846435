package xlstream

import (
	"bytes"
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/muktihari/xmltokenizer"
)

var (
	cdataOpen  = []byte("<![CDATA[")
	cdataClose = []byte("]]>")
)

// readToken splits one raw token, a tag followed by the character data up to
// the next tag, into token. Names, attribute values and data are slices of
// raw. ok is false for anything that is not an element: declarations,
// comments, doctypes and stray text.
func readToken(raw []byte, token *xmltokenizer.Token) (ok bool, err error) {
	token.Name = xmltokenizer.Name{}
	token.Attrs = token.Attrs[:0]
	token.Data = nil
	token.SelfClosing, token.IsEndElement = false, false

	if len(raw) < 2 || raw[0] != '<' || raw[1] == '?' || raw[1] == '!' {
		return false, nil
	}
	end := tagEnd(raw)
	if end < 0 {
		return false, fmt.Errorf("unterminated tag %q", truncate(raw))
	}
	tag := raw[1:end]
	if len(tag) > 0 && tag[0] == '/' {
		token.IsEndElement = true
		tag = tag[1:]
	}
	if n := len(tag); n > 0 && tag[n-1] == '/' {
		token.SelfClosing = true
		tag = tag[:n-1]
	}

	i := 0
	for i < len(tag) && !isSpace(tag[i]) {
		i++
	}
	if i == 0 {
		return false, fmt.Errorf("tag without a name %q", truncate(raw))
	}
	token.Name = splitName(tag[:i])
	if err = readAttrs(tag[i:], token); err != nil {
		return false, fmt.Errorf("%s: %w", token.Name.Full, err)
	}
	token.Data = raw[end+1:]
	return true, nil
}

// tagEnd is the index of the '>' closing the tag at the start of raw, -1 when
// there is none. Quoted attribute values may hold '>'.
func tagEnd(raw []byte) int {
	var quote byte
	for i := 1; i < len(raw); i++ {
		switch c := raw[i]; {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '>':
			return i
		}
	}
	return -1
}

func splitName(full []byte) xmltokenizer.Name {
	name := xmltokenizer.Name{Full: full, Local: full}
	if i := bytes.IndexByte(full, ':'); i >= 0 {
		name.Prefix, name.Local = full[:i], full[i+1:]
	}
	return name
}

func readAttrs(b []byte, token *xmltokenizer.Token) error {
	for {
		b = bytes.TrimLeft(b, " \t\r\n")
		if len(b) == 0 {
			return nil
		}
		eq := bytes.IndexByte(b, '=')
		if eq <= 0 {
			return fmt.Errorf("attribute %q without a value", truncate(b))
		}
		name := bytes.TrimRight(b[:eq], " \t\r\n")
		b = bytes.TrimLeft(b[eq+1:], " \t\r\n")
		if len(b) == 0 || (b[0] != '"' && b[0] != '\'') {
			return fmt.Errorf("attribute %s is not quoted", name)
		}
		closing := bytes.IndexByte(b[1:], b[0])
		if closing < 0 {
			return fmt.Errorf("attribute %s is not terminated", name)
		}
		token.Attrs = append(token.Attrs, xmltokenizer.Attr{Name: splitName(name), Value: b[1 : closing+1]})
		b = b[closing+2:]
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

func truncate(b []byte) []byte {
	if len(b) > 32 {
		return b[:32]
	}
	return b
}

// appendUnescaped appends data to dst with the predefined XML entities and
// character references decoded. Anything else, HTML entities included, is
// kept as written.
func appendUnescaped(dst, data []byte) []byte {
	for {
		amp := bytes.IndexByte(data, '&')
		if amp < 0 {
			return append(dst, data...)
		}
		dst = append(dst, data[:amp]...)
		data = data[amp:]
		semi := bytes.IndexByte(data, ';')
		if semi < 0 {
			return append(dst, data...)
		}
		if r, ok := entity(data[1:semi]); ok {
			dst = utf8.AppendRune(dst, r)
		} else {
			dst = append(dst, data[:semi+1]...)
		}
		data = data[semi+1:]
	}
}

func entity(name []byte) (rune, bool) {
	switch string(name) {
	case "lt":
		return '<', true
	case "gt":
		return '>', true
	case "amp":
		return '&', true
	case "quot":
		return '"', true
	case "apos":
		return '\'', true
	}
	if len(name) < 2 || name[0] != '#' {
		return 0, false
	}
	var (
		n   uint64
		err error
	)
	if name[1] == 'x' {
		n, err = strconv.ParseUint(string(name[2:]), 16, 32)
	} else {
		n, err = strconv.ParseUint(string(name[1:]), 10, 32)
	}
	if err != nil || n == 0 || n > utf8.MaxRune || !utf8.ValidRune(rune(n)) {
		return 0, false
	}
	return rune(n), true
}
