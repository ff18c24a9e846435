package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/stephenfire/go-xlstream"
)

const (
	modeTable   = "table"
	modeRows    = "rows"
	modeRecords = "records"

	formatJSON = "json"
	formatCSV  = "csv"
)

func writeSheets(w io.Writer, sheets []xlstream.SheetDescriptor) error {
	for _, s := range sheets {
		if _, err := fmt.Fprintf(w, "%4d: [%s] id=%d entry=%s\n", s.Order, s.Name, s.ID, s.Entry()); err != nil {
			return err
		}
	}
	return nil
}

func dumpTo(ctx context.Context, w io.Writer, doc *xlstream.Document, mode, format string, opts ...xlstream.Option) error {
	if format != formatJSON && format != formatCSV {
		return fmt.Errorf("unknown format %q", format)
	}
	switch mode {
	case modeTable:
		table, err := doc.ReadTable(ctx, opts...)
		if err != nil {
			return err
		}
		if format == formatJSON {
			return writeJSON(w, tableJSON(table))
		}
		return writeTableCSV(w, table)
	case modeRows:
		rows, err := doc.ReadRows(ctx, opts...)
		if err != nil {
			return err
		}
		if format == formatJSON {
			return writeJSON(w, rows)
		}
		return writeRowsCSV(w, rows)
	case modeRecords:
		records, err := doc.ReadRecords(ctx, opts...)
		if err != nil {
			return err
		}
		if format == formatJSON {
			return writeJSON(w, records)
		}
		return writeRecordsCSV(w, records)
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
}

type (
	columnJSON struct {
		Name   string `json:"name"`
		Kind   string `json:"kind"`
		Column string `json:"column"`
	}

	rowJSON struct {
		Row    int              `json:"row"`
		Values []xlstream.Value `json:"values"`
	}

	tableOut struct {
		Name    string       `json:"name"`
		Columns []columnJSON `json:"columns"`
		Rows    []rowJSON    `json:"rows"`
	}
)

func tableJSON(t *xlstream.Table) *tableOut {
	out := &tableOut{Name: t.Name}
	for _, c := range t.Columns {
		out.Columns = append(out.Columns, columnJSON{Name: c.Name, Kind: c.Kind.String(), Column: xlstream.IndexToColumn(c.Source)})
	}
	for _, r := range t.Rows {
		out.Rows = append(out.Rows, rowJSON{Row: r.Row, Values: r.Values})
	}
	return out
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeTableCSV(w io.Writer, t *xlstream.Table) error {
	cw := csv.NewWriter(w)
	header := make([]string, 0, len(t.Columns)+1)
	header = append(header, "row")
	for _, c := range t.Columns {
		header = append(header, c.Name)
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range t.Rows {
		line := make([]string, len(t.Columns)+1)
		line[0] = strconv.Itoa(r.Row)
		for i, v := range r.Values {
			line[i+1] = v.String()
		}
		if err := cw.Write(line); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeRowsCSV(w io.Writer, rows [][]xlstream.Value) error {
	cw := csv.NewWriter(w)
	for _, row := range rows {
		line := make([]string, len(row))
		for i, v := range row {
			line[i] = v.String()
		}
		if err := cw.Write(line); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeRecordsCSV(w io.Writer, records []xlstream.Record) error {
	cw := csv.NewWriter(w)
	for _, rec := range records {
		line := []string{strconv.Itoa(rec.Row)}
		for _, f := range rec.Fields {
			line = append(line, f.Name+"="+f.Value.String())
		}
		if err := cw.Write(line); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
