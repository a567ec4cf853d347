package exporter

import (
	"fmt"
	"math"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/danthegoodman1/fixturegen/catalog"
)

// Canonical text layouts for temporal columns. Both synthesis backends go
// through these, so their files are byte-identical.
const (
	LayoutDateTime           = "2006-01-02 15:04:05"
	LayoutDateTimeMs         = "2006-01-02 15:04:05.000"
	LayoutDateTimeMsTimeZone = "2006-01-02 15:04:05.000-07:00"
	LayoutDate               = "2006-01-02"
)

// RenderCanonical returns a record where float, timestamp, date and large string
// columns are replaced by their canonical text; other columns are shared with rec.
// Floats always carry a fraction (1 is written as 1.0). Release the result.
func RenderCanonical(mem memory.Allocator, rec arrow.Record) (arrow.Record, error) {
	fields := make([]arrow.Field, rec.NumCols())
	cols := make([]arrow.Array, rec.NumCols())
	defer func() {
		for _, col := range cols {
			if col != nil {
				col.Release()
			}
		}
	}()

	for i, col := range rec.Columns() {
		f := rec.Schema().Field(i)
		switch arr := col.(type) {
		case *array.Float32:
			cols[i] = renderStrings(mem, arr.Len(),
				func(j int) int64 { return int64(math.Float32bits(arr.Value(j))) },
				func(j int) string { return catalog.FormatValue(arr.Value(j)) },
			)
			f.Type = arrow.BinaryTypes.String
		case *array.Timestamp:
			layout, loc, err := timestampLayout(arr.DataType().(*arrow.TimestampType))
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", f.Name, err)
			}
			unit := arr.DataType().(*arrow.TimestampType).Unit
			cols[i] = renderStrings(mem, arr.Len(),
				func(j int) int64 { return int64(arr.Value(j)) },
				func(j int) string { return arr.Value(j).ToTime(unit).In(loc).Format(layout) },
			)
			f.Type = arrow.BinaryTypes.String
		case *array.Date32:
			cols[i] = renderStrings(mem, arr.Len(),
				func(j int) int64 { return int64(arr.Value(j)) },
				func(j int) string { return arr.Value(j).ToTime().Format(LayoutDate) },
			)
			f.Type = arrow.BinaryTypes.String
		case *array.LargeString:
			// rendered a chunk at a time, so the narrower offsets always fit
			b := array.NewStringBuilder(mem)
			b.Reserve(arr.Len())
			for j := 0; j < arr.Len(); j++ {
				b.Append(arr.Value(j))
			}
			cols[i] = b.NewArray()
			b.Release()
			f.Type = arrow.BinaryTypes.String
		default:
			col.Retain()
			cols[i] = col
		}
		fields[i] = f
	}

	return array.NewRecord(arrow.NewSchema(fields, nil), cols, rec.NumRows()), nil
}

func timestampLayout(ts *arrow.TimestampType) (string, *time.Location, error) {
	if ts.TimeZone != "" {
		loc, err := catalog.ParseOffset(ts.TimeZone)
		if err != nil {
			return "", nil, err
		}
		return LayoutDateTimeMsTimeZone, loc, nil
	}
	if ts.Unit == arrow.Second {
		return LayoutDateTime, time.UTC, nil
	}
	return LayoutDateTimeMs, time.UTC, nil
}

// renderStrings builds a string array of text(j). Runs of equal key(j) reuse the
// previous text, so a fixed-value column is formatted once.
func renderStrings(mem memory.Allocator, n int, key func(j int) int64, text func(j int) string) arrow.Array {
	b := array.NewStringBuilder(mem)
	defer b.Release()
	b.Reserve(n)

	var (
		prevKey  int64
		prevText string
	)
	for j := 0; j < n; j++ {
		k := key(j)
		if j == 0 || k != prevKey {
			prevKey, prevText = k, text(j)
		}
		b.Append(prevText)
	}
	return b.NewArray()
}
