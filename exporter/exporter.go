package exporter

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/csv"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/danthegoodman1/fixturegen/datastore"
	"github.com/danthegoodman1/fixturegen/parquet_accumulator"
	"github.com/danthegoodman1/fixturegen/stats"
	"github.com/danthegoodman1/fixturegen/utils"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/xitongsys/parquet-go/writer"
)

type Format string

const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"

	writeBufferSize = 1 << 20
	// parquet-go marshalling goroutines
	parquetNP = 4
)

// csvChunkRows bounds how many rows are rendered to text at once.
var csvChunkRows int64 = 64 * 1024

var (
	ErrUnknownFormat    = errors.New("unknown export format")
	ErrColumnRowsDiffer = errors.New("columns do not share the table's row count")
	ErrEmptyTable       = errors.New("table has no columns")
)

type (
	// Table is one export: a record plus the descriptive fields copied into its stat.
	Table struct {
		Name     string
		Record   arrow.Record
		Column   string
		DataType string
		Value    string
		// StartedAt is when work on the table began; zero means the start of the write
		StartedAt time.Time
	}

	Exporter struct {
		Store  datastore.DataStore
		Format Format
		Mem    memory.Allocator
	}
)

func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatCSV, FormatParquet:
		return Format(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

func New(store datastore.DataStore, format Format, mem memory.Allocator) *Exporter {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	return &Exporter{Store: store, Format: format, Mem: mem}
}

// FileName is the file a table is written to, e.g. intOne.csv.
func (e *Exporter) FileName(table string) string {
	return table + "." + string(e.Format)
}

// ExportTable writes the table's header and rows to <name>.<format>, overwriting
// any previous file, and reports how long it took and how large the file is.
// A failed write returns an error and may leave a truncated file behind.
func (e *Exporter) ExportTable(ctx context.Context, t Table) (stats.ExportStat, error) {
	logger := zerolog.Ctx(ctx)
	start := t.StartedAt
	if start.IsZero() {
		start = time.Now()
	}

	if err := checkRecord(t.Record); err != nil {
		return stats.ExportStat{}, utils.NewFixtureError(utils.KindConfig, t.Name, err)
	}

	fileName := e.FileName(t.Name)
	f, err := e.Store.CreateFile(ctx, fileName)
	if err != nil {
		return stats.ExportStat{}, utils.NewFixtureError(utils.KindIO, t.Name, err)
	}

	bw := bufio.NewWriterSize(f, writeBufferSize)
	switch e.Format {
	case FormatCSV:
		err = e.writeCSV(bw, t.Record)
	case FormatParquet:
		err = e.writeParquet(ctx, bw, t.Record)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownFormat, e.Format)
	}
	if err == nil {
		err = bw.Flush()
	}
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("error closing %s: %w", fileName, cerr)
	}
	if err != nil {
		return stats.ExportStat{}, utils.NewFixtureError(utils.KindIO, t.Name, err)
	}
	d := time.Since(start)

	size, err := e.Store.FileSize(ctx, fileName)
	if err != nil {
		return stats.ExportStat{}, utils.NewFixtureError(utils.KindIO, t.Name, err)
	}

	stat := stats.New(t.Name, t.Column, uint64(t.Record.NumRows()), t.DataType, t.Value, uint64(size), d)
	logger.Debug().Str("table", t.Name).Str("path", e.Store.Path(fileName)).Int64("bytes", size).Int64("durationNS", d.Nanoseconds()).Str("durationHuman", d.String()).Msg("exported table")
	return stat, nil
}

func checkRecord(rec arrow.Record) error {
	if rec == nil || rec.NumCols() == 0 {
		return ErrEmptyTable
	}
	for i, col := range rec.Columns() {
		if int64(col.Len()) != rec.NumRows() {
			return fmt.Errorf("%w: column %s has %d rows, table has %d", ErrColumnRowsDiffer, rec.ColumnName(i), col.Len(), rec.NumRows())
		}
	}
	return nil
}

func (e *Exporter) writeCSV(w io.Writer, rec arrow.Record) error {
	var cw *csv.Writer
	n := rec.NumRows()
	// a zero-row record still gets its header
	for off := int64(0); off == 0 || off < n; off += csvChunkRows {
		chunk := rec.NewSlice(off, min(off+csvChunkRows, n))
		rendered, err := RenderCanonical(e.Mem, chunk)
		chunk.Release()
		if err != nil {
			return err
		}
		if cw == nil {
			cw = csv.NewWriter(w, rendered.Schema(), csv.WithComma(','), csv.WithHeader(true))
		}
		err = cw.Write(rendered)
		rendered.Release()
		if err != nil {
			return fmt.Errorf("error in csv Write at row %d: %w", off, err)
		}
	}
	if err := cw.Flush(); err != nil {
		return fmt.Errorf("error in csv Flush: %w", err)
	}
	return nil
}

func (e *Exporter) writeParquet(ctx context.Context, w io.Writer, rec arrow.Record) error {
	psa, err := parquet_accumulator.FromArrowSchema(rec.Schema())
	if err != nil {
		return fmt.Errorf("error in FromArrowSchema: %w", err)
	}
	parquetSchema, err := psa.GetSchemaString()
	if err != nil {
		return fmt.Errorf("error in GetSchemaString: %w", err)
	}
	zerolog.Ctx(ctx).Debug().Strs("columns", psa.GetColumnNames()).Strs("types", psa.GetColumnTypes()).Msg("writing parquet")

	pw, err := writer.NewJSONWriterFromWriter(parquetSchema, w, parquetNP)
	if err != nil {
		return fmt.Errorf("error in NewJSONWriterFromWriter: %w", err)
	}

	for i := 0; i < int(rec.NumRows()); i++ {
		row, err := psa.Row(rec, i)
		if err != nil {
			return fmt.Errorf("error in psa.Row: %w", err)
		}
		rowBytes, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("error in json.Marshal of row: %w", err)
		}
		if err = pw.Write(string(rowBytes)); err != nil {
			return fmt.Errorf("error in pw.Write for row %d: %w", i, err)
		}
	}
	if err = pw.WriteStop(); err != nil {
		return fmt.Errorf("error in pw.WriteStop: %w", err)
	}
	return nil
}
