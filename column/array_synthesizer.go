package column

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/danthegoodman1/fixturegen/catalog"
	"github.com/danthegoodman1/fixturegen/utils"
	"github.com/rs/zerolog"
)

// ArraySynthesizer materializes columns directly with Arrow builders.
type ArraySynthesizer struct {
	mem memory.Allocator
}

func NewArraySynthesizer(mem memory.Allocator) *ArraySynthesizer {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	return &ArraySynthesizer{mem: mem}
}

func (as *ArraySynthesizer) SynthesizeTable(ctx context.Context, table string, specs []catalog.ColumnSpec, names []string, numRows int64) (arrow.Record, error) {
	logger := zerolog.Ctx(ctx)
	s := time.Now()

	schema, err := Schema(specs, names)
	if err != nil {
		return nil, withTable(err, table)
	}

	cols := make([]arrow.Array, 0, len(specs))
	defer func() {
		for _, col := range cols {
			col.Release()
		}
	}()
	for _, spec := range specs {
		col, err := Synthesize(as.mem, spec.DataType, spec.Value, numRows)
		if err != nil {
			return nil, withTable(err, spec.TableName)
		}
		cols = append(cols, col)
	}

	rec := array.NewRecord(schema, cols, numRows)
	logger.Debug().Str("table", table).Int("columns", len(cols)).Int64("rows", numRows).Str("durationHuman", time.Since(s).String()).Msg("synthesized table")
	return rec, nil
}

func (as *ArraySynthesizer) Close() error {
	return nil
}

// withTable fills in the table of a FixtureError that did not know it yet.
func withTable(err error, table string) error {
	var fe *utils.FixtureError
	if errors.As(err, &fe) {
		if fe.Table == "" {
			return utils.NewFixtureError(fe.Kind, table, fe.Err)
		}
		return err
	}
	return fmt.Errorf("error synthesizing table %s: %w", table, err)
}
