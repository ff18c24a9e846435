package xlstream

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"golang.org/x/net/html/charset"
)

const (
	entrySharedStrings = "xl/sharedStrings.xml"
	entryStyles        = "xl/styles.xml"
	entryWorkbook      = "xl/workbook.xml"
	entryWorkbookRels  = "xl/_rels/workbook.xml.rels"
)

// SharedStrings is the ordinal-addressed string pool of a document, in
// document order. It is read-only once loaded.
type SharedStrings []string

func (s SharedStrings) Len() int { return len(s) }

func (s SharedStrings) Get(ordinal int) (string, error) {
	if ordinal < 0 || ordinal >= len(s) {
		return "", fmt.Errorf("%w: shared string %d out of range [0,%d)", ErrUnresolvedReference, ordinal, len(s))
	}
	return s[ordinal], nil
}

// openPart opens an archive entry; found is false when the entry does not exist.
func openPart(fsys fs.FS, name string) (rc io.ReadCloser, found bool, err error) {
	f, err := fsys.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("xlstream: open %s: %w", name, err)
	}
	return f, true, nil
}

func newXMLDecoder(r io.Reader) *xml.Decoder {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel
	return dec
}

func loadSharedStrings(fsys fs.FS) (SharedStrings, error) {
	rc, found, err := openPart(fsys, entrySharedStrings)
	if err != nil || !found {
		return nil, err
	}
	defer rc.Close()

	var sst SharedStrings
	dec := newXMLDecoder(rc)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return sst, nil
		}
		if err != nil {
			return nil, malformed("%s: %v", entrySharedStrings, err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "si" {
			continue
		}
		text, err := readStringItem(dec)
		if err != nil {
			return nil, malformed("%s: item %d: %v", entrySharedStrings, len(sst), err)
		}
		sst = append(sst, text)
	}
}

// readStringItem collects the text of an <si> (or <is>) element: either one
// <t> or the runs <r><t>. Phonetic runs (<rPh>) are not part of the value.
func readStringItem(dec *xml.Decoder) (string, error) {
	var sb strings.Builder
	depth, inText, skip := 1, false, 0
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			switch {
			case skip > 0:
				skip++
			case t.Name.Local == "rPh":
				skip = 1
			case t.Name.Local == "t":
				inText = true
			}
		case xml.EndElement:
			depth--
			switch {
			case skip > 0:
				skip--
			case t.Name.Local == "t":
				inText = false
			}
		case xml.CharData:
			if inText && skip == 0 {
				sb.Write(t)
			}
		}
	}
	return sb.String(), nil
}
