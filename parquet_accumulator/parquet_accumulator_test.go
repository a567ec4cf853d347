package parquet_accumulator

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"
)

var testSchema = arrow.NewSchema([]arrow.Field{
	{Name: "colA", Type: arrow.BinaryTypes.String},
	{Name: "colB", Type: arrow.PrimitiveTypes.Float32},
	{Name: "colC", Type: &arrow.TimestampType{Unit: arrow.Second}},
	{Name: "colD", Type: arrow.FixedWidthTypes.Date32},
}, nil)

func TestGetSchemaString(t *testing.T) {
	a, err := FromArrowSchema(testSchema)
	if err != nil {
		t.Fatal(err)
	}

	schemaString, err := a.GetSchemaString()
	if err != nil {
		t.Fatal(err)
	}
	if schemaString != `{"Tag":"name=parquet_go_root, repetitiontype=REQUIRED","Fields":[{"Tag":"type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN, name=colA, repetitiontype=REQUIRED"},{"Tag":"type=FLOAT, name=colB, repetitiontype=REQUIRED"},{"Tag":"type=INT64, convertedtype=TIMESTAMP_MILLIS, name=colC, repetitiontype=REQUIRED"},{"Tag":"type=INT32, convertedtype=DATE, name=colD, repetitiontype=REQUIRED"}]}` {
		t.Log(schemaString)
		t.Fatal("got incorrect schema string")
	}

	names := a.GetColumnNames()
	if len(names) != 4 || names[2] != "colC" {
		t.Fatalf("unexpected column names %v", names)
	}
	types := a.GetColumnTypes()
	if types[0] != "utf8" || types[1] != "float" || types[2] != "timestamp_millis" || types[3] != "date" {
		t.Fatalf("unexpected column types %v", types)
	}
}

func TestRejectsDuplicatesAndUnsupported(t *testing.T) {
	a := NewParquetAccumulator()
	if err := a.AddField(arrow.Field{Name: "value", Type: arrow.PrimitiveTypes.Int32}); err != nil {
		t.Fatal(err)
	}
	if err := a.AddField(arrow.Field{Name: "value", Type: arrow.PrimitiveTypes.Int64}); !errors.Is(err, ErrDuplicateField) {
		t.Fatalf("expected duplicate field error, got %v", err)
	}
	if err := a.AddField(arrow.Field{Name: "b", Type: arrow.FixedWidthTypes.Boolean}); !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected unsupported type error, got %v", err)
	}
}

func buildRecord(t *testing.T, mem memory.Allocator, n int) arrow.Record {
	b := array.NewRecordBuilder(mem, testSchema)
	defer b.Release()
	for i := 0; i < n; i++ {
		b.Field(0).(*array.StringBuilder).Append("uk")
		b.Field(1).(*array.Float32Builder).Append(1)
		b.Field(2).(*array.TimestampBuilder).Append(1690547696)
		b.Field(3).(*array.Date32Builder).Append(19566)
	}
	return b.NewRecord()
}

func TestRowScalesSeconds(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	a, err := FromArrowSchema(testSchema)
	if err != nil {
		t.Fatal(err)
	}
	rec := buildRecord(t, mem, 1)
	defer rec.Release()

	row, err := a.Row(rec, 0)
	if err != nil {
		t.Fatal(err)
	}
	if row["colA"] != "uk" {
		t.Fatalf("got colA %v", row["colA"])
	}
	if row["colC"] != int64(1690547696000) {
		t.Fatalf("expected seconds scaled to millis, got %v", row["colC"])
	}
	if row["colD"] != int32(19566) {
		t.Fatalf("got colD %v", row["colD"])
	}
}

func TestFullCycle(t *testing.T) {
	mem := memory.NewGoAllocator()
	const n = 5

	psa, err := FromArrowSchema(testSchema)
	if err != nil {
		t.Fatal(err)
	}
	parquetSchema, err := psa.GetSchemaString()
	if err != nil {
		t.Fatal("error in GetSchemaString")
	}

	rec := buildRecord(t, mem, n)
	defer rec.Release()

	path := filepath.Join(t.TempDir(), "temp.parquet")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}

	pw, err := writer.NewJSONWriterFromWriter(parquetSchema, f, 4)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < n; i++ {
		row, err := psa.Row(rec, i)
		if err != nil {
			t.Fatal(err)
		}
		b, err := json.Marshal(row)
		if err != nil {
			t.Fatal("error in json.Marshal: %w", err)
		}
		if err = pw.Write(string(b)); err != nil {
			t.Fatal(err)
		}
	}

	if err = pw.WriteStop(); err != nil {
		t.Fatal(err)
	}
	f.Close()

	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		t.Fatal("Can't open file", err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, parquetSchema, 4)
	if err != nil {
		t.Fatal("Can't create parquet reader", err)
	}
	defer pr.ReadStop()

	if num := int(pr.GetNumRows()); num != n {
		t.Fatalf("expected %d rows, got %d", n, num)
	}
}
