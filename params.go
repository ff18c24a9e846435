package xlstream

type (
	// Params is the per-invocation decode configuration. Row numbers are
	// 1-based like the sheet markup, column indexes are 0-based.
	Params struct {
		SheetOrder   int    // 1-based storage order of the sheet, used when SheetName is empty
		SheetName    string // resolved through the workbook catalog
		HeaderRow    int    // row holding column names, 0 for none
		StartRow     int    // first data row; must be greater than HeaderRow when a header is set
		EndRow       int    // last data row, 0 for unbounded
		StartColumn  int    // first column (0-based)
		EndColumn    int    // last column (0-based), only meaningful when hasEndColumn
		RawText      bool   // numeric cells that cannot be classified keep their raw text instead of absent
		SerialDates  bool   // use the 1899-12-30 spreadsheet epoch instead of the naive 1900-01-01 one
		hasEndColumn bool
	}

	Option func(p *Params)
)

func NewParams(opts ...Option) *Params {
	params := &Params{SheetOrder: 1}
	for _, opt := range opts {
		opt(params)
	}
	return params
}

func WithSheet(order int) Option          { return func(p *Params) { p.SheetOrder = order } }
func WithSheetName(name string) Option    { return func(p *Params) { p.SheetName = name } }
func WithHeaderRow(row int) Option        { return func(p *Params) { p.HeaderRow = row } }
func WithStartRow(row int) Option         { return func(p *Params) { p.StartRow = row } }
func WithEndRow(row int) Option           { return func(p *Params) { p.EndRow = row } }
func WithStartColumn(col int) Option      { return func(p *Params) { p.StartColumn = col } }
func WithRawText() Option                 { return func(p *Params) { p.RawText = true } }
func WithSerialDates() Option             { return func(p *Params) { p.SerialDates = true } }
func WithParams(src *Params) Option       { return func(p *Params) { p.CopyFrom(src) } }
func WithRows(start, end int) Option      { return func(p *Params) { p.StartRow, p.EndRow = start, end } }
func WithEndColumn(col int) Option        { return func(p *Params) { p.EndColumn, p.hasEndColumn = col, true } }
func WithColumns(start, end int) Option   { return func(p *Params) { p.StartColumn = start; WithEndColumn(end)(p) } }
func WithoutEndColumn() Option            { return func(p *Params) { p.EndColumn, p.hasEndColumn = 0, false } }
func WithHeader(header, start int) Option { return func(p *Params) { p.HeaderRow, p.StartRow = header, start } }

func (p *Params) CopyFrom(src *Params) *Params {
	p.SheetOrder = src.SheetOrder
	p.SheetName = src.SheetName
	p.HeaderRow = src.HeaderRow
	p.StartRow = src.StartRow
	p.EndRow = src.EndRow
	p.StartColumn = src.StartColumn
	p.EndColumn = src.EndColumn
	p.hasEndColumn = src.hasEndColumn
	p.RawText = src.RawText
	p.SerialDates = src.SerialDates
	return p
}

func (p *Params) HasHeader() bool    { return p.HeaderRow > 0 }
func (p *Params) HasEndRow() bool    { return p.EndRow > 0 }
func (p *Params) HasEndColumn() bool { return p.hasEndColumn }

// Validate reports configuration errors. It runs before any worksheet I/O.
func (p *Params) Validate() error {
	switch {
	case p.SheetName == "" && p.SheetOrder < 1:
		return configError("sheet order %d must be at least 1", p.SheetOrder)
	case p.HeaderRow < 0 || p.StartRow < 0 || p.EndRow < 0:
		return configError("negative row in window (header=%d start=%d end=%d)", p.HeaderRow, p.StartRow, p.EndRow)
	case p.HasHeader() && p.StartRow <= p.HeaderRow:
		return configError("start row %d must be after header row %d", p.StartRow, p.HeaderRow)
	case p.HasEndRow() && p.EndRow < p.StartRow:
		return configError("end row %d is before start row %d", p.EndRow, p.StartRow)
	case p.StartColumn < 0:
		return configError("negative start column %d", p.StartColumn)
	case p.hasEndColumn && p.EndColumn < p.StartColumn:
		return configError("end column %d is before start column %d", p.EndColumn, p.StartColumn)
	}
	return nil
}

func (p *Params) isHeaderRow(row int) bool { return p.HasHeader() && row == p.HeaderRow }
func (p *Params) isDataRow(row int) bool   { return row >= p.StartRow && (!p.HasEndRow() || row <= p.EndRow) }
func (p *Params) pastEnd(row int) bool     { return p.HasEndRow() && row > p.EndRow }
func (p *Params) inColumns(col int) bool {
	return col >= p.StartColumn && (!p.hasEndColumn || col <= p.EndColumn)
}
