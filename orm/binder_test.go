package orm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stephenfire/go-common/math"
	"github.com/stephenfire/go-tools"
	"github.com/stephenfire/go-xlstream"
	"github.com/xuri/excelize/v2"
)

type Integer int64

type Account struct {
	ID      int64     `eorm:"No."`
	Name    string    `eorm:"Name,Customer" validate:"required"`
	Numbers []Integer `eorm:"Number"`
	Active  bool      `eorm:"Active"`
	Opened  time.Time `eorm:"Opened"`
	Balance *big.Int  `eorm:"Balance%20Due"`
	Ratio   float32   `eorm:"Ratio"`
	Note    string    `eorm:"-"`
	ignored int
}

func (a *Account) SetBalance(in int64) {
	a.Balance = big.NewInt(in)
}

func (a *Account) Equals(o *Account) bool {
	if a == o {
		return true
	}
	if a == nil || o == nil {
		return false
	}
	return a.ID == o.ID && a.Name == o.Name &&
		tools.KS[Integer](a.Numbers).Equal(o.Numbers) &&
		a.Active == o.Active && a.Opened.Equal(o.Opened) &&
		math.CompareBigInt(a.Balance, o.Balance) == 0 &&
		a.Ratio == o.Ratio && a.Note == o.Note
}

func (a *Account) String() string {
	if a == nil {
		return "<nil>"
	}
	return fmt.Sprintf("{id:%d name:%s numbers:%v active:%t opened:%s balance:%s ratio:%g}",
		a.ID, a.Name, a.Numbers, a.Active, a.Opened.Format(time.DateOnly), math.BigIntForPrint(a.Balance), a.Ratio)
}

func record(row int, pairs ...any) xlstream.Record {
	rec := xlstream.Record{Row: row}
	for i := 0; i+1 < len(pairs); i += 2 {
		rec.Fields = append(rec.Fields, xlstream.Field{Name: pairs[i].(string), Value: pairs[i+1].(xlstream.Value)})
	}
	return rec
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func mustBinder(t *testing.T, opts ...Option) *Binder[Account] {
	t.Helper()
	b, err := NewBinder[Account](opts...)
	if err != nil {
		t.Fatalf("NewBinder: %v", err)
	}
	return b
}

func TestBindRecord(t *testing.T) {
	b := mustBinder(t)
	rec := record(2,
		"No.", xlstream.Int32Value(1),
		"Customer", xlstream.StringValue("Alice"),
		"Number", xlstream.Int32Value(3),
		"Number", xlstream.DecimalValue(4),
		"Active", xlstream.BoolValue(true),
		"Opened", xlstream.DateTimeValue(day(2024, 1, 6)),
		"Balance Due", xlstream.Int64Value(1_000_000_000_000),
		"Ratio", xlstream.DecimalValue(0.5),
		"Note", xlstream.StringValue("not bound"),
	)
	got, errs := b.BindRecord(rec)
	if len(errs) > 0 {
		t.Fatalf("BindRecord: %v", errs)
	}
	want := &Account{
		ID:      1,
		Name:    "Alice",
		Numbers: []Integer{3, 4},
		Active:  true,
		Opened:  day(2024, 1, 6),
		Balance: big.NewInt(1_000_000_000_000),
		Ratio:   0.5,
	}
	if !got.Equals(want) {
		t.Fatalf("got %s, want %s", got, want)
	}
	t.Logf("%s", got)
}

func TestBindRecordFromText(t *testing.T) {
	b := mustBinder(t)
	got, errs := b.BindRecord(record(3,
		"No.", xlstream.StringValue(" 12 "),
		"Name", xlstream.StringValue("Bob"),
		"Number", xlstream.Absent,
		"Active", xlstream.StringValue("yes"),
		"Opened", xlstream.StringValue("2023-12-31"),
		"Ratio", xlstream.StringValue("1.25"),
	))
	if len(errs) > 0 {
		t.Fatalf("BindRecord: %v", errs)
	}
	want := &Account{ID: 12, Name: "Bob", Active: true, Opened: day(2023, 12, 31), Ratio: 1.25}
	if !got.Equals(want) {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestBindRecordErrors(t *testing.T) {
	b := mustBinder(t)
	got, errs := b.BindRecord(record(4,
		"No.", xlstream.StringValue("abc"),
		"Name", xlstream.StringValue("Carol"),
		"Number", xlstream.DecimalValue(1.5),
		"Active", xlstream.StringValue("maybe"),
	))
	if got != nil {
		t.Fatalf("failed row bound to %s", got)
	}
	if len(errs) != 3 {
		t.Fatalf("errors = %v", errs)
	}
	for i, field := range []string{"ID", "Numbers", "Active"} {
		if errs[i].Row != 4 || errs[i].Field != field || !errors.Is(errs[i], ErrConversion) {
			t.Fatalf("error %d = %v, want a conversion error of %s", i, errs[i], field)
		}
	}
	if errs[0].Column != "No." {
		t.Fatalf("column = %q", errs[0].Column)
	}

	_, errs = b.BindRecord(record(5,
		"Name", xlstream.StringValue("a"),
		"Customer", xlstream.StringValue("b"),
	))
	if len(errs) != 1 || !errors.Is(errs[0], ErrMultipleColumns) {
		t.Fatalf("two columns for Name: %v", errs)
	}
}

func TestBindOverflow(t *testing.T) {
	type small struct {
		Level int8 `eorm:"Level"`
	}
	b, err := NewBinder[small]()
	if err != nil {
		t.Fatal(err)
	}
	if _, errs := b.BindRecord(record(2, "Level", xlstream.Int32Value(300))); len(errs) != 1 || !errors.Is(errs[0], ErrConversion) {
		t.Fatalf("overflow: %v", errs)
	}
	got, errs := b.BindRecord(record(2, "Level", xlstream.Int32Value(-7)))
	if len(errs) > 0 || got.Level != -7 {
		t.Fatalf("got %v, %v", got, errs)
	}
}

func TestBindValidation(t *testing.T) {
	rec := record(6, "No.", xlstream.Int32Value(6))

	if got, errs := mustBinder(t).BindRecord(rec); len(errs) > 0 || got.ID != 6 {
		t.Fatalf("without validator: %v, %v", got, errs)
	}

	got, errs := mustBinder(t, WithDefaultValidator()).BindRecord(rec)
	if got != nil || len(errs) != 1 {
		t.Fatalf("with validator: %v, %v", got, errs)
	}
	e := errs[0]
	if e.Row != 6 || e.Field != "Name" || e.Column != "Name" || !errors.Is(e, ErrValidation) {
		t.Fatalf("validation error = %+v", e)
	}
	if !strings.Contains(e.Error(), "'required'") {
		t.Fatalf("error text = %s", e)
	}
}

func TestCheck(t *testing.T) {
	header := []string{"No.", "Customer", "Number", "Number", "Active", "Balance Due", "Ratio"}
	if err := mustBinder(t).Check(header); err != nil {
		t.Fatalf("Check: %v", err)
	}
	err := mustBinder(t, WithStrict()).Check(header)
	if !errors.Is(err, ErrMissingColumn) || !strings.Contains(err.Error(), "Opened") {
		t.Fatalf("strict Check = %v", err)
	}
	err = mustBinder(t).Check(append(header, "Name"))
	if !errors.Is(err, ErrMultipleColumns) {
		t.Fatalf("Check with Name and Customer = %v", err)
	}

	spaced := []string{" No. ", "Name "}
	if err = mustBinder(t, WithStrict()).Check(spaced); !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("untrimmed Check = %v", err)
	}
	b := mustBinder(t, WithTrimSpace())
	got, errs := b.BindRecord(record(2, " No. ", xlstream.Int32Value(9), "Name ", xlstream.StringValue("Dan")))
	if len(errs) > 0 || got.ID != 9 || got.Name != "Dan" {
		t.Fatalf("trimmed bind: %v, %v", got, errs)
	}
}

func TestNewBinderErrors(t *testing.T) {
	if _, err := NewBinder[int](); !errors.Is(err, ErrNotStruct) {
		t.Fatalf("int: %v", err)
	}
	type badEscape struct {
		A string `eorm:"bad%zz"`
	}
	if _, err := NewBinder[badEscape](); !errors.Is(err, ErrInvalidTag) {
		t.Fatalf("bad escape: %v", err)
	}
	type emptyTitle struct {
		A string `eorm:"a,"`
	}
	if _, err := NewBinder[emptyTitle](); !errors.Is(err, ErrInvalidTag) {
		t.Fatalf("empty title: %v", err)
	}
	type mapField struct {
		M map[string]int `eorm:"m"`
	}
	if _, err := NewBinder[mapField](); !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("map field: %v", err)
	}
	type hidden struct {
		h string `eorm:"h"`
	}
	if _, err := NewBinder[hidden](); !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("unexported field: %v", err)
	}
}

func TestMappers(t *testing.T) {
	b := mustBinder(t)
	mappers := b.Mappers()
	if len(mappers) != 7 {
		t.Fatalf("%d mappers:\n%s", len(mappers), b.Info())
	}
	byName := make(map[string]*ColumnMapper)
	for _, m := range mappers {
		byName[m.FieldName()] = m
	}
	if m := byName["Numbers"]; m.MappingType() != MTInt64Slice || m.MappingType().Elem() != MTInt64 {
		t.Fatalf("Numbers mapping = %s", m.MappingType())
	}
	if m := byName["Balance"]; !m.HasSetter || m.MappingType() != MTInt64 || m.Titles()[0] != "Balance Due" {
		t.Fatalf("Balance mapper = %s", m)
	}
	if titles := byName["Name"].Titles(); len(titles) != 2 || titles[1] != "Customer" {
		t.Fatalf("Name titles = %v", titles)
	}
	if _, ok := byName["Note"]; ok {
		t.Fatal("Note is excluded by its tag")
	}

	info := b.Info()
	if !strings.HasPrefix(info, "   1: [0]ID(~int64):[No.]:HasSetter=false") ||
		!strings.Contains(info, "[5]Balance(~int64):[Balance Due]:HasSetter=true") ||
		!strings.Contains(info, "[2]Numbers([]~int64):[Number]") {
		t.Fatalf("Info:\n%s", info)
	}
	t.Logf("\n%s", info)
}

func TestBindTable(t *testing.T) {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()
	integer, err := f.NewStyle(&excelize.Style{NumFmt: 1})
	if err != nil {
		t.Fatal(err)
	}
	header := []string{"No.", "Customer", "Number", "Number", "Active", "Opened", "Balance Due"}
	for i, h := range header {
		_ = f.SetCellValue("Sheet1", xlstream.CellRef(i, 1), h)
	}
	rows := [][]any{
		{1, "Alice", 3, 4, true, day(2024, 1, 6), 1000},
		{2, nil, 5, nil, false, day(2023, 12, 31), 2000},
		{3, "Carol", nil, 6, true, nil, nil},
	}
	for r, values := range rows {
		for c, v := range values {
			if v == nil {
				continue
			}
			ref := xlstream.CellRef(c, r+2)
			_ = f.SetCellValue("Sheet1", ref, v)
			if _, ok := v.(int); ok {
				_ = f.SetCellStyle("Sheet1", ref, ref, integer)
			}
		}
	}
	path := filepath.Join(t.TempDir(), "accounts.xlsx")
	if err = f.SaveAs(path); err != nil {
		t.Fatal(err)
	}

	doc, err := xlstream.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		_ = doc.Close()
	}()
	table, err := doc.ReadTable(context.Background(), xlstream.WithHeader(1, 2), xlstream.WithSerialDates())
	if err != nil {
		t.Fatal(err)
	}

	b := mustBinder(t, WithDefaultValidator())
	accounts, errs, err := b.BindTable(table)
	if err != nil {
		t.Fatalf("BindTable: %v", err)
	}
	if len(errs) != 1 || errs[0].Row != 3 || errs[0].Field != "Name" || !errors.Is(errs[0], ErrValidation) {
		t.Fatalf("row errors = %v", errs)
	}
	want := []*Account{
		{ID: 1, Name: "Alice", Numbers: []Integer{3, 4}, Active: true, Opened: day(2024, 1, 6), Balance: big.NewInt(1000)},
		{ID: 3, Name: "Carol", Numbers: []Integer{6}, Active: true},
	}
	if len(accounts) != len(want) {
		t.Fatalf("accounts = %v", accounts)
	}
	for i := range want {
		if !accounts[i].Equals(want[i]) {
			t.Fatalf("account %d = %s, want %s", i, accounts[i], want[i])
		}
	}

	if _, _, err = mustBinder(t, WithStrict()).BindTable(table); !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("strict BindTable = %v", err)
	}
}

func TestAllStopsEarly(t *testing.T) {
	b := mustBinder(t)
	records := []xlstream.Record{
		record(2, "No.", xlstream.Int32Value(1)),
		record(3, "No.", xlstream.StringValue("x")),
		record(4, "No.", xlstream.Int32Value(3)),
	}
	seen := 0
	for obj, errs := range b.All(records) {
		seen++
		if seen == 2 {
			if obj != nil || len(errs) != 1 {
				t.Fatalf("second record: %v, %v", obj, errs)
			}
			break
		}
	}
	if seen != 2 {
		t.Fatalf("iterated %d records", seen)
	}
	out, errs := b.Bind(records)
	if len(out) != 2 || out[1].ID != 3 || len(errs) != 1 || errs[0].Row != 3 {
		t.Fatalf("Bind = %v, %v", out, errs)
	}
}
