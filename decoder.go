package xlstream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/muktihari/xmltokenizer"
)

type decodeState byte

const (
	stateSeeking decodeState = iota // before or between rows of interest
	stateHeader                     // inside the header row
	stateData                       // inside a data row
	stateDone                       // window exhausted or input consumed
)

func (s decodeState) String() string {
	switch s {
	case stateSeeking:
		return "Seeking"
	case stateHeader:
		return "HeaderCapture"
	case stateData:
		return "DataCapture"
	case stateDone:
		return "Done"
	default:
		return "N/A"
	}
}

// decoder walks one worksheet part once. It owns its buffers and its
// diagnostics; nothing in it is shared with other decodes.
type decoder struct {
	entry   string
	params  *Params
	resolve *resolver
	sink    Sink
	diags   []Diagnostic

	state       decodeState
	inSheetData bool
	rowOpen     bool
	row         int // current row number
	lastRow     int
	cells       []Cell

	inCell       bool
	cellInWindow bool
	hasValue     bool
	inInline     bool
	inPhonetic   bool
	inText       bool // inside <v> or a captured <t>, CDATA sections append
	cell         RawCell
	text         []byte
}

func newDecoder(entry string, params *Params, res *resolver, sink Sink) *decoder {
	return &decoder{entry: entry, params: params, resolve: res, sink: sink}
}

func (d *decoder) run(ctx context.Context, r io.Reader) error {
	tok := xmltokenizer.New(r)
	var token xmltokenizer.Token
	for d.state != stateDone {
		raw, err := tok.RawToken()
		if err != nil && err != io.EOF {
			return malformed("%s: %v", d.entry, err)
		}
		if len(raw) > 0 {
			if herr := d.handleRaw(ctx, raw, &token); herr != nil {
				return herr
			}
		}
		if err == io.EOF {
			break
		}
	}
	if d.state != stateDone {
		// input ended without closing the row in progress
		d.closeCell()
		d.closeRow()
		d.state = stateDone
	}
	return nil
}

// handleRaw decodes one raw token. Token of the tokenizer trims character
// data, so the markup is split here and the text after the tag is kept
// exactly as written.
func (d *decoder) handleRaw(ctx context.Context, raw []byte, token *xmltokenizer.Token) error {
	if raw[0] != '<' {
		// character data delivered on its own
		if d.inText {
			d.appendText(raw)
		}
		return nil
	}
	if bytes.HasPrefix(raw, cdataOpen) {
		if d.inText {
			d.appendText(raw)
		}
		return nil
	}
	ok, err := readToken(raw, token)
	if err != nil {
		return malformed("%s: %v", d.entry, err)
	}
	if !ok {
		return nil
	}
	return d.handle(ctx, token)
}

func (d *decoder) handle(ctx context.Context, token *xmltokenizer.Token) error {
	name := localName(token)
	if len(name) == 0 {
		// declarations, comments, doctypes
		return nil
	}
	if !d.inSheetData {
		if !token.IsEndElement && string(name) == "sheetData" {
			if token.SelfClosing {
				d.state = stateDone
			} else {
				d.inSheetData = true
			}
		}
		return nil
	}

	if token.IsEndElement {
		switch string(name) {
		case "sheetData":
			d.closeCell()
			d.closeRow()
			d.state = stateDone
		case "row":
			d.closeRow()
		case "c":
			d.closeCell()
		case "v", "t":
			d.inText = false
		case "is":
			d.inInline = false
		case "rPh":
			d.inPhonetic = false
		}
		return nil
	}

	switch string(name) {
	case "row":
		if err := d.openRow(ctx, token); err != nil {
			return err
		}
		if token.SelfClosing {
			d.closeRow()
		}
	case "c":
		if err := d.openCell(token); err != nil {
			return err
		}
		if token.SelfClosing {
			d.closeCell()
		}
	case "v":
		if d.capturing() {
			d.text = d.text[:0]
			d.hasValue = true
			d.appendText(token.Data)
			d.inText = !token.SelfClosing
		}
	case "is":
		if d.capturing() {
			d.text = d.text[:0]
			d.hasValue = true
			d.inInline = !token.SelfClosing
		}
	case "rPh":
		d.inPhonetic = d.inInline && !token.SelfClosing
	case "t":
		if d.inInline && !d.inPhonetic && d.capturing() {
			d.appendText(token.Data)
			d.inText = !token.SelfClosing
		}
	}
	return nil
}

func (d *decoder) capturing() bool {
	return d.inCell && d.cellInWindow
}

func (d *decoder) openRow(ctx context.Context, token *xmltokenizer.Token) error {
	// cancellation is checked per row, never per cell
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("xlstream: decode %s: %w", d.entry, err)
	}
	if d.rowOpen {
		return malformed("%s: row opened inside row %d", d.entry, d.row)
	}
	ref, ok := attrValue(token, "r")
	if !ok {
		return malformed("%s: row without a row number after row %d", d.entry, d.lastRow)
	}
	n, err := strconv.Atoi(string(ref))
	if err != nil || n < 1 {
		return malformed("%s: invalid row number %q after row %d", d.entry, ref, d.lastRow)
	}
	if n <= d.lastRow {
		return malformed("%s: row %d follows row %d", d.entry, n, d.lastRow)
	}
	d.row, d.lastRow = n, n

	switch {
	case d.params.pastEnd(n):
		d.state = stateDone
		return nil
	case d.params.isHeaderRow(n):
		d.state = stateHeader
	case d.params.isDataRow(n):
		d.state = stateData
	default:
		d.state = stateSeeking
	}
	d.rowOpen = true
	d.cells = make([]Cell, 0, cap(d.cells))
	return nil
}

func (d *decoder) openCell(token *xmltokenizer.Token) error {
	d.inCell, d.cellInWindow, d.hasValue = true, false, false
	d.inInline, d.inPhonetic, d.inText = false, false, false
	if !d.rowOpen || (d.state != stateHeader && d.state != stateData) {
		return nil
	}
	ref, ok := attrValue(token, "r")
	if !ok {
		return malformed("%s: cell without a reference in row %d", d.entry, d.row)
	}
	refText := string(ref)
	letters, row, err := SplitCellRef(refText)
	if err == nil && row != 0 && row != d.row {
		err = fmt.Errorf("%w: cell %s in row %d", ErrMalformedReference, refText, d.row)
	}
	col := 0
	if err == nil {
		col, err = ColumnToIndex(letters)
	}
	if err != nil {
		re := newResolveError(StageColumnReference, refText, err)
		re.Ref = refText
		d.diags = append(d.diags, diagnosticOf(re))
		return nil
	}
	if !d.params.inColumns(col) {
		return nil
	}
	typ, _ := attrValue(token, "t")
	style, hasStyle := attrValue(token, "s")
	d.cell = RawCell{Ref: refText, Column: col, Type: string(typ), Style: string(style), HasStyle: hasStyle}
	d.cellInWindow = true
	return nil
}

func (d *decoder) closeCell() {
	if d.capturing() && d.hasValue {
		d.cell.Text = string(d.text)
		v, err := d.resolve.Resolve(d.cell)
		if err != nil {
			d.diags = append(d.diags, diagnosticOf(err))
		}
		d.cells = append(d.cells, Cell{Column: d.cell.Column, Value: v})
	}
	d.inCell, d.cellInWindow, d.hasValue = false, false, false
	d.inInline, d.inPhonetic, d.inText = false, false, false
}

func (d *decoder) closeRow() {
	if !d.rowOpen {
		return
	}
	d.rowOpen = false
	switch d.state {
	case stateHeader:
		d.sink.Header(d.row, d.cells)
		d.state = stateSeeking
	case stateData:
		d.sink.Append(d.row, d.cells)
		if d.params.HasEndRow() && d.row >= d.params.EndRow {
			// rows only increase: nothing after this one is in the window
			d.state = stateDone
		}
	}
}

func localName(token *xmltokenizer.Token) []byte {
	return bytes.TrimPrefix(token.Name.Local, []byte{'/'})
}

func attrValue(token *xmltokenizer.Token, local string) ([]byte, bool) {
	for i := range token.Attrs {
		if string(token.Attrs[i].Name.Local) == local {
			return token.Attrs[i].Value, true
		}
	}
	return nil, false
}

// appendText adds character data to the cell text, decoding references.
// A leading CDATA section is taken literally.
func (d *decoder) appendText(data []byte) {
	if bytes.HasPrefix(data, cdataOpen) {
		text, rest, _ := bytes.Cut(data[len(cdataOpen):], cdataClose)
		d.text = append(d.text, text...)
		data = rest
	}
	d.text = appendUnescaped(d.text, data)
}
