package main

import (
	"context"
	"os"
	"os/signal"
	"sort"
	"sync/atomic"
	"syscall"

	"github.com/stephenfire/go-common/log"
	"github.com/stephenfire/go-xlstream"
	"github.com/urfave/cli/v2"
)

var (
	fileFlag = &cli.StringFlag{
		Name:     "file",
		Usage:    "the input xlsx `FILE`",
		Required: true,
		Aliases:  []string{"f"},
	}

	sheetFlag = &cli.IntFlag{
		Name:    "sheet",
		Usage:   "1-based storage `ORDER` of the sheet",
		Value:   1,
		Aliases: []string{"s"},
	}

	sheetNameFlag = &cli.StringFlag{
		Name:    "sheet-name",
		Usage:   "`NAME` of the sheet, takes precedence over --sheet",
		Aliases: []string{"n"},
	}

	headerFlag = &cli.IntFlag{
		Name:  "header",
		Usage: "1-based `ROW` holding the column names, 0 for none",
	}

	startFlag = &cli.IntFlag{
		Name:  "start",
		Usage: "first data `ROW`",
	}

	endFlag = &cli.IntFlag{
		Name:  "end",
		Usage: "last data `ROW`, 0 for all",
	}

	startColFlag = &cli.StringFlag{
		Name:  "start-col",
		Usage: "first `COLUMN` in letters",
		Value: "A",
	}

	endColFlag = &cli.StringFlag{
		Name:  "end-col",
		Usage: "last `COLUMN` in letters, empty for all",
	}

	modeFlag = &cli.StringFlag{
		Name:    "mode",
		Usage:   "output shape: table, rows or records",
		Value:   modeRecords,
		Aliases: []string{"m"},
	}

	formatFlag = &cli.StringFlag{
		Name:  "format",
		Usage: "output format: json or csv",
		Value: formatJSON,
	}

	serialDatesFlag = &cli.BoolFlag{
		Name:  "serial-dates",
		Usage: "convert date cells with the 1899-12-30 epoch",
	}

	rawTextFlag = &cli.BoolFlag{
		Name:  "raw-text",
		Usage: "keep the raw text of numbers whose format is unknown",
	}

	dumpFlags = []cli.Flag{
		fileFlag,
		sheetFlag,
		sheetNameFlag,
		headerFlag,
		startFlag,
		endFlag,
		startColFlag,
		endColFlag,
		modeFlag,
		formatFlag,
		serialDatesFlag,
		rawTextFlag,
	}
)

func main() {
	app := &cli.App{
		Name:      "xlsxdump",
		Usage:     "stream the cells of an xlsx sheet as json or csv",
		Version:   xlstream.Version.String(),
		Copyright: xlstream.Copyright,
		Commands: []*cli.Command{
			{
				Name:   "sheets",
				Usage:  "list the sheets of a workbook",
				Flags:  []cli.Flag{fileFlag},
				Action: sheets,
			},
			{
				Name:   "dump",
				Usage:  "decode a window of a sheet",
				Flags:  dumpFlags,
				Action: dump,
			},
		},
	}
	sort.Sort(cli.CommandsByName(app.Commands))
	sort.Sort(cli.FlagsByName(app.Flags))
	for _, cmd := range app.Commands {
		sort.Sort(cli.FlagsByName(cmd.Flags))
	}
	var canceled atomic.Bool
	baseCtx, cancel := context.WithCancel(context.Background())
	go func() {
		defer func() {
			if canceled.CompareAndSwap(false, true) {
				cancel()
			}
		}()
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		ss := <-sigs
		log.Warnf("GOT A SYSTEM SIGNAL[%s]\n", ss.String())
	}()
	if err := app.RunContext(baseCtx, os.Args); err != nil {
		log.Errorf("exit from main: %v", err)
		if canceled.CompareAndSwap(false, true) {
			cancel()
		}
		os.Exit(1)
	}
}

func sheets(ctx *cli.Context) error {
	doc, err := xlstream.Open(ctx.String(fileFlag.Name))
	if err != nil {
		return err
	}
	defer func() {
		_ = doc.Close()
	}()
	return writeSheets(ctx.App.Writer, doc.Sheets())
}

func dump(ctx *cli.Context) error {
	opts, err := optionsOf(ctx)
	if err != nil {
		return err
	}
	doc, err := xlstream.Open(ctx.String(fileFlag.Name))
	if err != nil {
		return err
	}
	defer func() {
		_ = doc.Close()
	}()
	err = dumpTo(ctx.Context, ctx.App.Writer, doc, ctx.String(modeFlag.Name), ctx.String(formatFlag.Name), opts...)
	for _, d := range doc.DrainDiagnostics() {
		log.Warnf("%s", d)
	}
	return err
}

func optionsOf(ctx *cli.Context) ([]xlstream.Option, error) {
	header, start := ctx.Int(headerFlag.Name), ctx.Int(startFlag.Name)
	if header > 0 && !ctx.IsSet(startFlag.Name) {
		start = header + 1
	}
	opts := []xlstream.Option{
		xlstream.WithSheet(ctx.Int(sheetFlag.Name)),
		xlstream.WithHeaderRow(header),
		xlstream.WithRows(start, ctx.Int(endFlag.Name)),
	}
	if name := ctx.String(sheetNameFlag.Name); name != "" {
		opts = append(opts, xlstream.WithSheetName(name))
	}
	startCol, err := xlstream.ColumnToIndex(ctx.String(startColFlag.Name))
	if err != nil {
		return nil, err
	}
	opts = append(opts, xlstream.WithStartColumn(startCol))
	if letters := ctx.String(endColFlag.Name); letters != "" {
		endCol, err := xlstream.ColumnToIndex(letters)
		if err != nil {
			return nil, err
		}
		opts = append(opts, xlstream.WithEndColumn(endCol))
	}
	if ctx.Bool(serialDatesFlag.Name) {
		opts = append(opts, xlstream.WithSerialDates())
	}
	if ctx.Bool(rawTextFlag.Name) {
		opts = append(opts, xlstream.WithRawText())
	}
	return opts, nil
}
