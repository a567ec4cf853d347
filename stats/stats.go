package stats

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/danthegoodman1/fixturegen/utils"
)

const (
	CombinedColumn   = "All Columns"
	CombinedDataType = "Mixed"
	CombinedValue    = "Multiple"
)

type (
	// ExportStat describes one exported table. It is never modified once produced.
	ExportStat struct {
		Table                 string
		Column                string
		Rows                  uint64
		DataType              string
		Value                 string
		FileSizeBytes         uint64
		FileSizeMB            float64
		GenerationTimeSeconds float64
	}
)

var Schema = arrow.NewSchema([]arrow.Field{
	{Name: "Table", Type: arrow.BinaryTypes.String},
	{Name: "Column", Type: arrow.BinaryTypes.String},
	{Name: "Rows", Type: arrow.PrimitiveTypes.Uint64},
	{Name: "DataType", Type: arrow.BinaryTypes.String},
	{Name: "Value", Type: arrow.BinaryTypes.String},
	{Name: "FileSizeBytes", Type: arrow.PrimitiveTypes.Uint64},
	{Name: "FileSizeMB", Type: arrow.PrimitiveTypes.Float64},
	{Name: "GenerationTime", Type: arrow.PrimitiveTypes.Float64},
}, nil)

// New fills in the derived size and time fields of a stat.
func New(table, column string, rows uint64, dataType, value string, fileSize uint64, d time.Duration) ExportStat {
	return ExportStat{
		Table:                 table,
		Column:                column,
		Rows:                  rows,
		DataType:              dataType,
		Value:                 value,
		FileSizeBytes:         fileSize,
		FileSizeMB:            utils.BytesToMB(fileSize),
		GenerationTimeSeconds: d.Seconds(),
	}
}

// TotalBytes sums the file sizes of stats.
func TotalBytes(stats []ExportStat) (n uint64) {
	for _, st := range stats {
		n += st.FileSizeBytes
	}
	return
}

// ToRecord converts stats into the summary table, one row per stat in order.
func ToRecord(mem memory.Allocator, stats []ExportStat) arrow.Record {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	b := array.NewRecordBuilder(mem, Schema)
	defer b.Release()
	b.Reserve(len(stats))

	for _, st := range stats {
		b.Field(0).(*array.StringBuilder).Append(st.Table)
		b.Field(1).(*array.StringBuilder).Append(st.Column)
		b.Field(2).(*array.Uint64Builder).Append(st.Rows)
		b.Field(3).(*array.StringBuilder).Append(st.DataType)
		b.Field(4).(*array.StringBuilder).Append(st.Value)
		b.Field(5).(*array.Uint64Builder).Append(st.FileSizeBytes)
		b.Field(6).(*array.Float64Builder).Append(st.FileSizeMB)
		b.Field(7).(*array.Float64Builder).Append(st.GenerationTimeSeconds)
	}
	return b.NewRecord()
}

// Render prints the run report: the completion line, the stats table and the
// list of generated tables.
func Render(w io.Writer, total time.Duration, stats []ExportStat) error {
	if _, err := fmt.Fprintf(w, "Total data generation and export completed in %.2f seconds\n", total.Seconds()); err != nil {
		return err
	}

	fmt.Fprint(w, "\nStats:\n")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Table\tColumn\tRows\tDataType\tValue\tFileSizeBytes\tFileSizeMB\tGenerationTime\t")
	for _, st := range stats {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%d\t%s\t%s\t\n",
			st.Table, st.Column, st.Rows, st.DataType, st.Value, st.FileSizeBytes,
			strconv.FormatFloat(st.FileSizeMB, 'f', 6, 64),
			strconv.FormatFloat(st.GenerationTimeSeconds, 'f', 6, 64),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprint(w, "\nList of all tables:\n")
	for _, st := range stats {
		if _, err := fmt.Fprintf(w, "- %s: %s (%s)\n", st.Table, st.Column, st.DataType); err != nil {
			return err
		}
	}
	return nil
}
