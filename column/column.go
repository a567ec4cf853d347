package column

import (
	"context"
	"errors"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/danthegoodman1/fixturegen/catalog"
	"github.com/danthegoodman1/fixturegen/utils"
)

type (
	// BuildFunc fills numRows copies of a coerced scalar into a new array.
	BuildFunc func(mem memory.Allocator, s catalog.Scalar, numRows int) arrow.Array

	// Synthesizer turns catalog specs into a record of fixed-value columns.
	Synthesizer interface {
		// SynthesizeTable builds one column per spec, in order, named by names.
		SynthesizeTable(ctx context.Context, table string, specs []catalog.ColumnSpec, names []string, numRows int64) (arrow.Record, error)
		Close() error
	}
)

var (
	Builders = make(map[catalog.DataType]BuildFunc)

	ErrBuilderNotFound = errors.New("no column builder for data type")
	ErrNameMismatch    = errors.New("column names do not match specs")
	ErrInvalidRowCount = errors.New("row count must be positive")
)

func init() {
	RegisterBuilders()
}

func RegisterBuilders() {
	Builders[catalog.Integer] = func(mem memory.Allocator, s catalog.Scalar, numRows int) arrow.Array {
		b := array.NewInt32Builder(mem)
		defer b.Release()
		b.Reserve(numRows)
		for i := 0; i < numRows; i++ {
			b.UnsafeAppend(int32(s.Int))
		}
		return b.NewArray()
	}
	Builders[catalog.Float] = func(mem memory.Allocator, s catalog.Scalar, numRows int) arrow.Array {
		b := array.NewFloat32Builder(mem)
		defer b.Release()
		b.Reserve(numRows)
		for i := 0; i < numRows; i++ {
			b.UnsafeAppend(s.Float)
		}
		return b.NewArray()
	}
	Builders[catalog.String] = func(mem memory.Allocator, s catalog.Scalar, numRows int) arrow.Array {
		b := array.NewLargeStringBuilder(mem)
		defer b.Release()
		b.Reserve(numRows)
		b.ReserveData(numRows * len(s.Str))
		for i := 0; i < numRows; i++ {
			b.Append(s.Str)
		}
		return b.NewArray()
	}
	temporal := func(mem memory.Allocator, s catalog.Scalar, numRows int) arrow.Array {
		b := array.NewTimestampBuilder(mem, ArrowType(s).(*arrow.TimestampType))
		defer b.Release()
		b.Reserve(numRows)
		v := arrow.Timestamp(s.Timestamp())
		for i := 0; i < numRows; i++ {
			b.UnsafeAppend(v)
		}
		return b.NewArray()
	}
	Builders[catalog.DateTime] = temporal
	Builders[catalog.DateTimeMs] = temporal
	Builders[catalog.DateTimeMsTimeZone] = temporal
	Builders[catalog.Date] = func(mem memory.Allocator, s catalog.Scalar, numRows int) arrow.Array {
		b := array.NewDate32Builder(mem)
		defer b.Release()
		b.Reserve(numRows)
		v := arrow.Date32(s.Timestamp())
		for i := 0; i < numRows; i++ {
			b.UnsafeAppend(v)
		}
		return b.NewArray()
	}
	Builders[catalog.UnixTimestamp] = func(mem memory.Allocator, s catalog.Scalar, numRows int) arrow.Array {
		b := array.NewInt64Builder(mem)
		defer b.Release()
		b.Reserve(numRows)
		for i := 0; i < numRows; i++ {
			b.UnsafeAppend(s.Int)
		}
		return b.NewArray()
	}
}

// ArrowType is the in-memory type a coerced scalar is materialized as.
func ArrowType(s catalog.Scalar) arrow.DataType {
	switch s.Type {
	case catalog.Integer:
		return arrow.PrimitiveTypes.Int32
	case catalog.Float:
		return arrow.PrimitiveTypes.Float32
	case catalog.String:
		return arrow.BinaryTypes.LargeString
	case catalog.DateTime:
		return &arrow.TimestampType{Unit: arrow.Second}
	case catalog.DateTimeMs:
		return &arrow.TimestampType{Unit: arrow.Millisecond}
	case catalog.DateTimeMsTimeZone:
		return &arrow.TimestampType{Unit: arrow.Millisecond, TimeZone: s.Offset}
	case catalog.Date:
		return arrow.FixedWidthTypes.Date32
	case catalog.UnixTimestamp:
		return arrow.PrimitiveTypes.Int64
	}
	return nil
}

// Synthesize returns numRows elements all equal to value coerced to dt.
// The caller owns the returned array and must Release it.
func Synthesize(mem memory.Allocator, dt catalog.DataType, value any, numRows int64) (arrow.Array, error) {
	if numRows <= 0 {
		return nil, utils.NewFixtureError(utils.KindConfig, "", fmt.Errorf("%w: %d", ErrInvalidRowCount, numRows))
	}
	f, ok := Builders[dt]
	if !ok {
		return nil, utils.NewFixtureError(utils.KindConfig, "", fmt.Errorf("%w: %s", ErrBuilderNotFound, dt))
	}
	s, err := catalog.Coerce(dt, value)
	if err != nil {
		return nil, utils.NewFixtureError(utils.KindCoercion, "", err)
	}
	return f(mem, s, int(numRows)), nil
}

// Field describes the column a spec produces under the given name.
func Field(spec catalog.ColumnSpec, name string) (arrow.Field, error) {
	s, err := catalog.Coerce(spec.DataType, spec.Value)
	if err != nil {
		return arrow.Field{}, utils.NewFixtureError(utils.KindCoercion, spec.TableName, err)
	}
	dt := ArrowType(s)
	if dt == nil {
		return arrow.Field{}, utils.NewFixtureError(utils.KindConfig, spec.TableName, fmt.Errorf("%w: %s", ErrBuilderNotFound, spec.DataType))
	}
	return arrow.Field{Name: name, Type: dt}, nil
}

// Schema builds the record schema for specs named by names.
func Schema(specs []catalog.ColumnSpec, names []string) (*arrow.Schema, error) {
	if len(specs) != len(names) {
		return nil, fmt.Errorf("%w: %d specs, %d names", ErrNameMismatch, len(specs), len(names))
	}
	fields := make([]arrow.Field, len(specs))
	for i, spec := range specs {
		f, err := Field(spec, names[i])
		if err != nil {
			return nil, err
		}
		fields[i] = f
	}
	return arrow.NewSchema(fields, nil), nil
}
