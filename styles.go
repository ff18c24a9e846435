package xlstream

import (
	"encoding/xml"
	"fmt"
	"io"
	"io/fs"
	"strconv"
)

// Styles holds what the resolver needs from xl/styles.xml: the custom number
// format overrides and, per cell style index, the number format id.
type Styles struct {
	numFmts map[string]string
	cellXfs []string
}

func NewStyles(numFmts map[string]string, cellXfs []string) *Styles {
	if numFmts == nil {
		numFmts = make(map[string]string)
	}
	return &Styles{numFmts: numFmts, cellXfs: cellXfs}
}

func (s *Styles) Len() int {
	if s == nil {
		return 0
	}
	return len(s.cellXfs)
}

// FormatID returns the number format id of a cell style index.
func (s *Styles) FormatID(styleIndex string) (string, error) {
	idx, err := strconv.Atoi(styleIndex)
	if err != nil {
		return "", fmt.Errorf("%w: style index %q: %w", ErrUnresolvedReference, styleIndex, err)
	}
	if idx < 0 || idx >= s.Len() {
		return "", fmt.Errorf("%w: style index %d out of range [0,%d)", ErrUnresolvedReference, idx, s.Len())
	}
	return s.cellXfs[idx], nil
}

// Pattern returns the custom pattern declared for a format id.
func (s *Styles) Pattern(formatID string) (string, bool) {
	if s == nil {
		return "", false
	}
	p, ok := s.numFmts[formatID]
	return p, ok
}

// Classify resolves a format id to a kind. A pattern declared in the
// document wins over the built-in table.
func (s *Styles) Classify(formatID string) (FormatKind, error) {
	if p, ok := s.Pattern(formatID); ok {
		return ClassifyFormat(p), nil
	}
	if k, ok := BuiltinFormat(formatID); ok {
		return k, nil
	}
	// other reserved ids are locale dependent (currency, CJK dates)
	if id, err := strconv.Atoi(formatID); err == nil && id >= 0 && id < firstCustomFormat {
		return FormatRaw, nil
	}
	return FormatRaw, fmt.Errorf("%w: number format %s", ErrUnresolvedReference, formatID)
}

func loadStyles(fsys fs.FS) (*Styles, error) {
	rc, found, err := openPart(fsys, entryStyles)
	if err != nil || !found {
		return NewStyles(nil, nil), err
	}
	defer rc.Close()

	styles := NewStyles(nil, nil)
	dec := newXMLDecoder(rc)
	// numFmts and cellXfs are independent groups; xf also appears under
	// cellStyleXfs, which must not shift the style indexes.
	var inNumFmts, inCellXfs bool
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return styles, nil
		}
		if err != nil {
			return nil, malformed("%s: %v", entryStyles, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "numFmts":
				inNumFmts = true
			case "cellXfs":
				inCellXfs = true
			case "numFmt":
				if inNumFmts {
					id, code := attr(t, "numFmtId"), attr(t, "formatCode")
					if id != "" {
						styles.numFmts[id] = code
					}
				}
			case "xf":
				if inCellXfs {
					id := attr(t, "numFmtId")
					if id == "" {
						id = "0"
					}
					styles.cellXfs = append(styles.cellXfs, id)
				}
				if err = dec.Skip(); err != nil {
					return nil, malformed("%s: %v", entryStyles, err)
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "numFmts":
				inNumFmts = false
			case "cellXfs":
				inCellXfs = false
			}
		}
	}
}

func attr(se xml.StartElement, local string) string {
	for _, a := range se.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}
