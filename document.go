package xlstream

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"sync"
	"sync/atomic"

	"github.com/klauspost/compress/zip"
)

// Document is an opened workbook. Shared strings, styles and the sheet
// catalog are loaded once by the constructors and are read-only afterwards,
// so any number of decodes may run on one Document concurrently.
type Document struct {
	fsys    fs.FS
	closer  io.Closer
	closed  atomic.Bool
	strings SharedStrings
	styles  *Styles
	catalog *Catalog
	diags   diagnosticLog
}

// Open opens the workbook file at path.
func Open(path string) (*Document, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("xlstream: open %s: %w", path, err)
	}
	doc, err := load(&zr.Reader, zr)
	if err != nil {
		_ = zr.Close()
		return nil, err
	}
	return doc, nil
}

// OpenReader reads a workbook of the given size from r.
func OpenReader(r io.ReaderAt, size int64) (*Document, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("xlstream: open archive: %w", err)
	}
	return load(zr, nil)
}

// New uses fsys as the archive: every part is opened by its entry name,
// e.g. "xl/sharedStrings.xml". Every Open must return an independent reader.
func New(fsys fs.FS) (*Document, error) {
	return load(fsys, nil)
}

func load(fsys fs.FS, closer io.Closer) (*Document, error) {
	sst, err := loadSharedStrings(fsys)
	if err != nil {
		return nil, err
	}
	styles, err := loadStyles(fsys)
	if err != nil {
		return nil, err
	}
	catalog, err := loadCatalog(fsys)
	if err != nil {
		return nil, err
	}
	return &Document{fsys: fsys, closer: closer, strings: sst, styles: styles, catalog: catalog}, nil
}

func (d *Document) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	if d.closer != nil {
		return d.closer.Close()
	}
	return nil
}

func (d *Document) Sheets() []SheetDescriptor { return d.catalog.Sheets() }

func (d *Document) SheetByName(name string) (SheetDescriptor, error) {
	return d.catalog.ByName(name)
}

func (d *Document) SharedStrings() SharedStrings { return d.strings }

func (d *Document) Styles() *Styles { return d.styles }

// Diagnostics returns a copy of every diagnostic recorded so far.
func (d *Document) Diagnostics() []Diagnostic { return d.diags.snapshot() }

// DrainDiagnostics returns the recorded diagnostics and clears the log.
func (d *Document) DrainDiagnostics() []Diagnostic { return d.diags.drain() }

// Decode streams one window of one sheet into sink. Configuration errors are
// reported before the worksheet is opened. Rows already delivered to sink
// stay there when a fatal error stops the decode.
func (d *Document) Decode(ctx context.Context, sink Sink, opts ...Option) error {
	return d.decode(ctx, sink, NewParams(opts...))
}

func (d *Document) decode(ctx context.Context, sink Sink, params *Params) error {
	if d.closed.Load() {
		return ErrClosed
	}
	if err := params.Validate(); err != nil {
		return err
	}
	entry, rc, err := d.openSheet(params)
	if err != nil {
		return err
	}
	defer rc.Close()

	dec := newDecoder(entry, params, newResolver(d.strings, d.styles, params), sink)
	err = dec.run(ctx, rc)
	d.diags.append(dec.diags...)
	return err
}

// openSheet opens the worksheet part: sheet{Order}.xml by convention, the
// relationship target of the sheet when that part does not exist.
func (d *Document) openSheet(params *Params) (string, io.ReadCloser, error) {
	var (
		sheet SheetDescriptor
		known bool
	)
	if params.SheetName != "" {
		s, err := d.catalog.ByName(params.SheetName)
		if err != nil {
			return "", nil, err
		}
		sheet, known = s, true
	} else if sheet, known = d.catalog.ByOrder(params.SheetOrder); !known {
		sheet = SheetDescriptor{Order: params.SheetOrder}
	}

	candidates := []string{sheet.Entry()}
	if known && sheet.Target != "" && sheet.Target != sheet.Entry() {
		candidates = append(candidates, sheet.Target)
	}
	for _, entry := range candidates {
		rc, found, err := openPart(d.fsys, entry)
		if err != nil {
			return "", nil, err
		}
		if found {
			return entry, rc, nil
		}
	}
	return "", nil, fmt.Errorf("%w: %s", ErrMissingEntry, sheet.Entry())
}

// ReadTable decodes a window into a typed table named after the sheet.
func (d *Document) ReadTable(ctx context.Context, opts ...Option) (*Table, error) {
	params := NewParams(opts...)
	sink := NewTableSink(d.tableName(params))
	if err := d.decode(ctx, sink, params); err != nil {
		return nil, err
	}
	return sink.Table(), nil
}

// ReadRows decodes a window into rows of values positioned by column.
func (d *Document) ReadRows(ctx context.Context, opts ...Option) ([][]Value, error) {
	params := NewParams(opts...)
	sink := NewArraySink(params.StartColumn)
	if err := d.decode(ctx, sink, params); err != nil {
		return nil, err
	}
	return sink.Rows(), nil
}

// ReadRecords decodes a window into header-named records.
func (d *Document) ReadRecords(ctx context.Context, opts ...Option) ([]Record, error) {
	params := NewParams(opts...)
	sink := NewMapSink(params.StartColumn)
	if err := d.decode(ctx, sink, params); err != nil {
		return nil, err
	}
	return sink.Records(), nil
}

// ReadTables decodes every configuration concurrently. The result has one
// slot per configuration; a configuration that failed leaves its slot nil
// and records a diagnostic instead of failing the whole batch.
func (d *Document) ReadTables(ctx context.Context, configs ...*Params) []*Table {
	tables := make([]*Table, len(configs))
	var wg sync.WaitGroup
	for i, cfg := range configs {
		if cfg == nil {
			d.diags.append(Diagnostic{Stage: StageReadTables, Message: fmt.Sprintf("config %d: %v", i, configError("nil parameters"))})
			continue
		}
		wg.Add(1)
		go func(i int, params *Params) {
			defer wg.Done()
			sink := NewTableSink(d.tableName(params))
			if err := d.decode(ctx, sink, params); err != nil {
				d.diags.append(Diagnostic{Stage: StageReadTables, Message: fmt.Sprintf("config %d: %v", i, err)})
				return
			}
			tables[i] = sink.Table()
		}(i, NewParams(WithParams(cfg)))
	}
	wg.Wait()
	return tables
}

func (d *Document) tableName(params *Params) string {
	if params.SheetName != "" {
		return params.SheetName
	}
	if s, ok := d.catalog.ByOrder(params.SheetOrder); ok {
		return s.Name
	}
	return fmt.Sprintf("sheet%d", params.SheetOrder)
}
