package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/danthegoodman1/fixturegen/catalog"
	"github.com/danthegoodman1/fixturegen/column"
	"github.com/danthegoodman1/fixturegen/gologger"
	"github.com/danthegoodman1/fixturegen/utils"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	// registers the "sqlite" driver
	_ "modernc.org/sqlite"
)

var (
	logger = gologger.NewLogger()

	ErrRowCountMismatch = errors.New("engine returned unexpected row count")
)

// Session is one in-memory SQLite database, scoped to a single pipeline run.
// Tables are created with the engine's own casting rules and read back as Arrow records.
type Session struct {
	db  *sql.DB
	mem memory.Allocator
	dsn string
}

// Open creates a fresh in-memory database. Each session gets its own database name
// so concurrent sessions in one process never share tables.
func Open(ctx context.Context, mem memory.Allocator) (*Session, error) {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	dsn := fmt.Sprintf("file:fixturegen-%s?mode=memory&cache=shared", uuid.NewString())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("error in sql.Open: %w", err)
	}
	// the database lives as long as one connection holds it open
	db.SetMaxOpenConns(1)
	db.SetConnMaxIdleTime(0)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error pinging engine: %w", err)
	}
	zerolog.Ctx(ctx).Debug().Str("dsn", dsn).Msg("opened engine session")
	return &Session{db: db, mem: mem, dsn: dsn}, nil
}

func (s *Session) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("error closing engine session: %w", err)
	}
	logger.Debug().Str("dsn", s.dsn).Msg("closed engine session")
	return nil
}

// SynthesizeTable creates the table inside the engine, one fixed-value column per spec,
// then reads it back. Scalars are always bound as parameters.
func (s *Session) SynthesizeTable(ctx context.Context, table string, specs []catalog.ColumnSpec, names []string, numRows int64) (arrow.Record, error) {
	logger := zerolog.Ctx(ctx)
	st := time.Now()

	if numRows <= 0 {
		return nil, utils.NewFixtureError(utils.KindConfig, table, fmt.Errorf("%w: %d", column.ErrInvalidRowCount, numRows))
	}
	schema, err := column.Schema(specs, names)
	if err != nil {
		return nil, err
	}

	scalars := make([]catalog.Scalar, len(specs))
	for i, spec := range specs {
		sc, err := catalog.Coerce(spec.DataType, spec.Value)
		if err != nil {
			return nil, utils.NewFixtureError(utils.KindCoercion, spec.TableName, err)
		}
		scalars[i] = sc
	}

	stmt, args, err := CreateTableStatement(table, scalars, numRows)
	if err != nil {
		return nil, utils.NewFixtureError(utils.KindConfig, table, err)
	}

	if _, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+QuoteIdent(table)); err != nil {
		return nil, fmt.Errorf("error dropping engine table %s: %w", table, err)
	}
	if _, err := s.db.ExecContext(ctx, stmt, args...); err != nil {
		return nil, fmt.Errorf("error creating engine table %s: %w", table, err)
	}
	logger.Debug().Str("table", table).Str("durationHuman", time.Since(st).String()).Msg("created engine table")

	rec, err := s.readTable(ctx, table, schema, scalars, numRows)
	if err != nil {
		return nil, err
	}
	logger.Debug().Str("table", table).Int64("rows", numRows).Str("durationHuman", time.Since(st).String()).Msg("synthesized table in engine")
	return rec, nil
}

func (s *Session) readTable(ctx context.Context, table string, schema *arrow.Schema, scalars []catalog.Scalar, numRows int64) (arrow.Record, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT * FROM "+QuoteIdent(table))
	if err != nil {
		return nil, fmt.Errorf("error querying engine table %s: %w", table, err)
	}
	defer rows.Close()

	b := array.NewRecordBuilder(s.mem, schema)
	defer b.Release()
	b.Reserve(int(numRows))

	dest := make([]any, len(scalars))
	ints := make([]int64, len(scalars))
	floats := make([]float64, len(scalars))
	strs := make([]string, len(scalars))
	for i, sc := range scalars {
		switch sc.Type {
		case catalog.Float:
			dest[i] = &floats[i]
		case catalog.String:
			dest[i] = &strs[i]
		default:
			dest[i] = &ints[i]
		}
	}

	var n int64
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, utils.NewFixtureError(utils.KindCoercion, table, fmt.Errorf("error in rows.Scan: %w", err))
		}
		for i, sc := range scalars {
			switch fb := b.Field(i).(type) {
			case *array.Int32Builder:
				fb.Append(int32(ints[i]))
			case *array.Int64Builder:
				fb.Append(ints[i])
			case *array.Float32Builder:
				fb.Append(float32(floats[i]))
			case *array.LargeStringBuilder:
				fb.Append(strs[i])
			case *array.TimestampBuilder:
				fb.Append(arrow.Timestamp(ints[i]))
			case *array.Date32Builder:
				fb.Append(arrow.Date32(ints[i]))
			default:
				return nil, fmt.Errorf("%w: %s", column.ErrBuilderNotFound, sc.Type)
			}
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating engine table %s: %w", table, err)
	}
	if n != numRows {
		return nil, fmt.Errorf("%w: table %s has %d rows, wanted %d", ErrRowCountMismatch, table, n, numRows)
	}

	return b.NewRecord(), nil
}

// CreateTableStatement builds the CREATE TABLE ... AS statement that fills numRows
// rows. Columns are aliased positionally (c0, c1, ...) so repeated catalog column
// names never collide inside the engine.
func CreateTableStatement(table string, scalars []catalog.Scalar, numRows int64) (string, []any, error) {
	args := []any{numRows}
	exprs := make([]string, len(scalars))
	for i, sc := range scalars {
		p := len(args) + 1
		expr, arg, err := castExpr(sc, p)
		if err != nil {
			return "", nil, err
		}
		args = append(args, arg)
		exprs[i] = fmt.Sprintf("%s AS %s", expr, QuoteIdent(fmt.Sprintf("c%d", i)))
	}

	var sb strings.Builder
	sb.WriteString("CREATE TABLE ")
	sb.WriteString(QuoteIdent(table))
	sb.WriteString(" AS WITH RECURSIVE seq(n) AS (SELECT 1 UNION ALL SELECT n + 1 FROM seq WHERE n < ?1) SELECT ")
	sb.WriteString(strings.Join(exprs, ", "))
	sb.WriteString(" FROM seq")
	return sb.String(), args, nil
}

// castExpr is the engine-side cast for one column, reading its scalar from ?p.
func castExpr(sc catalog.Scalar, p int) (string, any, error) {
	switch sc.Type {
	case catalog.Integer, catalog.UnixTimestamp:
		return fmt.Sprintf("CAST(?%d AS INTEGER)", p), sc.Int, nil
	case catalog.Float:
		return fmt.Sprintf("CAST(?%d AS REAL)", p), float64(sc.Float), nil
	case catalog.String:
		return fmt.Sprintf("CAST(?%d AS TEXT)", p), sc.Str, nil
	case catalog.DateTime:
		return fmt.Sprintf("CAST(strftime('%%s', ?%d) AS INTEGER)", p), sc.Literal(), nil
	case catalog.DateTimeMs, catalog.DateTimeMsTimeZone:
		// whole seconds plus the millisecond part of %f (SS.SSS); offsets are folded to UTC
		return fmt.Sprintf("(CAST(strftime('%%s', ?%[1]d) AS INTEGER) * 1000 + CAST(substr(strftime('%%f', ?%[1]d), 4) AS INTEGER))", p), sc.Literal(), nil
	case catalog.Date:
		return fmt.Sprintf("(CAST(strftime('%%s', ?%d) AS INTEGER) / 86400)", p), sc.Literal(), nil
	}
	return "", nil, fmt.Errorf("%w: %s", catalog.ErrUnknownDataType, sc.Type)
}

// QuoteIdent quotes an identifier for the engine, doubling embedded quotes.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
