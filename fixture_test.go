package xlstream

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"testing/fstest"

	"github.com/xuri/excelize/v2"
)

const xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

func sheetXML(rows ...string) string {
	return xmlHeader + `<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">` +
		`<dimension ref="A1"/><sheetData>` + strings.Join(rows, "") + `</sheetData></worksheet>`
}

func sstXML(items ...string) string {
	var sb strings.Builder
	sb.WriteString(xmlHeader)
	sb.WriteString(fmt.Sprintf(`<sst xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" count="%d" uniqueCount="%d">`, len(items), len(items)))
	for _, item := range items {
		sb.WriteString("<si><t>" + item + "</t></si>")
	}
	sb.WriteString("</sst>")
	return sb.String()
}

// stylesXML declares numFmts as id=pattern pairs and one cellXfs entry per
// format id given in xfs.
func stylesXML(numFmts map[string]string, xfs ...string) string {
	var sb strings.Builder
	sb.WriteString(xmlHeader)
	sb.WriteString(`<styleSheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">`)
	if len(numFmts) > 0 {
		ids := make([]string, 0, len(numFmts))
		for id := range numFmts {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		sb.WriteString(fmt.Sprintf(`<numFmts count="%d">`, len(ids)))
		for _, id := range ids {
			sb.WriteString(fmt.Sprintf(`<numFmt numFmtId="%s" formatCode="%s"/>`, id, numFmts[id]))
		}
		sb.WriteString(`</numFmts>`)
	}
	sb.WriteString(`<cellStyleXfs count="1"><xf numFmtId="0" fontId="0"/></cellStyleXfs>`)
	sb.WriteString(fmt.Sprintf(`<cellXfs count="%d">`, len(xfs)))
	for _, id := range xfs {
		sb.WriteString(fmt.Sprintf(`<xf numFmtId="%s" fontId="0" applyNumberFormat="1"/>`, id))
	}
	sb.WriteString(`</cellXfs></styleSheet>`)
	return sb.String()
}

func workbookXML(names ...string) string {
	var sb strings.Builder
	sb.WriteString(xmlHeader)
	sb.WriteString(`<workbook xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"><sheets>`)
	for i, name := range names {
		sb.WriteString(fmt.Sprintf(`<sheet name="%s" sheetId="%d" r:id="rId%d"/>`, name, i+1, i+1))
	}
	sb.WriteString(`</sheets></workbook>`)
	return sb.String()
}

func relsXML(targets ...string) string {
	var sb strings.Builder
	sb.WriteString(xmlHeader)
	sb.WriteString(`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	for i, target := range targets {
		sb.WriteString(fmt.Sprintf(`<Relationship Id="rId%d" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet" Target="%s"/>`, i+1, target))
	}
	sb.WriteString(`</Relationships>`)
	return sb.String()
}

func mapFS(parts map[string]string) fstest.MapFS {
	fsys := make(fstest.MapFS, len(parts))
	for name, data := range parts {
		fsys[name] = &fstest.MapFile{Data: []byte(data)}
	}
	return fsys
}

// instrumentedFS records the entries opened and the bytes handed out, and
// never returns more than chunk bytes per Read.
type instrumentedFS struct {
	fsys      fs.FS
	chunk     int
	lock      sync.Mutex
	opens     map[string]int
	delivered atomic.Int64
}

func newInstrumentedFS(fsys fs.FS, chunk int) *instrumentedFS {
	return &instrumentedFS{fsys: fsys, chunk: chunk, opens: make(map[string]int)}
}

func (f *instrumentedFS) Open(name string) (fs.File, error) {
	f.lock.Lock()
	f.opens[name]++
	f.lock.Unlock()
	file, err := f.fsys.Open(name)
	if err != nil {
		return nil, err
	}
	return &chunkedFile{File: file, owner: f}, nil
}

func (f *instrumentedFS) openCount(name string) int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.opens[name]
}

func (f *instrumentedFS) reset() {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.opens = make(map[string]int)
	f.delivered.Store(0)
}

type chunkedFile struct {
	fs.File
	owner *instrumentedFS
}

func (c *chunkedFile) Read(p []byte) (int, error) {
	if c.owner.chunk > 0 && len(p) > c.owner.chunk {
		p = p[:c.owner.chunk]
	}
	n, err := c.File.Read(p)
	c.owner.delivered.Add(int64(n))
	return n, err
}

// recordingSink keeps every call in order.
type recordingSink struct {
	headers []int
	rows    []int
	cells   [][]Cell
}

func (s *recordingSink) Header(row int, cells []Cell) {
	s.headers = append(s.headers, row)
	s.cells = append(s.cells, append([]Cell(nil), cells...))
}

func (s *recordingSink) Append(row int, cells []Cell) {
	s.rows = append(s.rows, row)
	s.cells = append(s.cells, append([]Cell(nil), cells...))
}

// excelizeFixture writes a workbook built by fill into a temporary file.
func excelizeFixture(t *testing.T, fill func(f *excelize.File)) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.xlsx")
	if err := os.WriteFile(path, excelizeBytes(t, fill), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func excelizeBytes(t *testing.T, fill func(f *excelize.File)) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()
	fill(f)
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return bytes.Clone(buf.Bytes())
}

func mustStyle(t *testing.T, f *excelize.File, style *excelize.Style) int {
	t.Helper()
	id, err := f.NewStyle(style)
	if err != nil {
		t.Fatalf("new style: %v", err)
	}
	return id
}
