package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/danthegoodman1/fixturegen/catalog"
	"github.com/danthegoodman1/fixturegen/column"
	"github.com/danthegoodman1/fixturegen/crdb"
	"github.com/danthegoodman1/fixturegen/datastore"
	"github.com/danthegoodman1/fixturegen/engine"
	"github.com/danthegoodman1/fixturegen/exporter"
	"github.com/danthegoodman1/fixturegen/gologger"
	"github.com/danthegoodman1/fixturegen/migrations"
	"github.com/danthegoodman1/fixturegen/s3_helper"
	"github.com/danthegoodman1/fixturegen/stats"
	"github.com/danthegoodman1/fixturegen/utils"
	"github.com/dustin/go-humanize"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

type Backend string

const (
	// BackendArrow builds columns directly in memory
	BackendArrow Backend = "arrow"
	// BackendEngine creates each table inside an embedded SQL engine
	BackendEngine Backend = "engine"
)

var (
	logger   = gologger.NewLogger()
	validate = validator.New()

	ErrStatsNotRecorded = errors.New("recorded stats do not match the run")
)

type (
	Options struct {
		NumRows int64           `validate:"gt=0"`
		Backend Backend         `validate:"oneof=arrow engine"`
		Format  exporter.Format `validate:"oneof=csv parquet"`
		OutDir  string
		// Catalog defaults to catalog.Default
		Catalog []catalog.ColumnSpec

		Upload      bool
		RecordStats bool

		// Report receives the human readable run report; nil prints nothing
		Report io.Writer
		Mem    memory.Allocator
	}

	Result struct {
		RunID string
		// Stats has one entry per catalog table, then the combined table
		Stats []stats.ExportStat
		// Files lists every written file in write order, stats file last
		Files []string
		// UploadedKeys is set when Upload was requested
		UploadedKeys []string
		Total        time.Duration
	}
)

// WithDefaults fills in the arrow backend and csv format when unset.
func (o Options) WithDefaults() Options {
	if o.Backend == "" {
		o.Backend = BackendArrow
	}
	if o.Format == "" {
		o.Format = exporter.FormatCSV
	}
	return o
}

// Validate checks the options without touching the filesystem.
func (o Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		return utils.NewFixtureError(utils.KindConfig, "", err)
	}
	return catalog.Validate(o.catalog())
}

func (o Options) catalog() []catalog.ColumnSpec {
	if o.Catalog == nil {
		return catalog.Default
	}
	return o.Catalog
}

func newSynthesizer(ctx context.Context, backend Backend, mem memory.Allocator) (column.Synthesizer, error) {
	if backend == BackendEngine {
		session, err := engine.Open(ctx, mem)
		if err != nil {
			return nil, err
		}
		return session, nil
	}
	return column.NewArraySynthesizer(mem), nil
}

// Run generates one file per catalog table, then the combined table, then the
// stats table, strictly in that order. The first error aborts the run; files
// already written are left in place.
func Run(ctx context.Context, opts Options) (Result, error) {
	start := time.Now()
	runID := utils.GenKSortedID("run_")
	ctx = gologger.WithRunID(ctx, logger, runID)
	logger := zerolog.Ctx(ctx)

	res := Result{RunID: runID}
	opts = opts.WithDefaults()
	if err := opts.Validate(); err != nil {
		return res, err
	}
	specs := opts.catalog()
	mem := opts.Mem
	if mem == nil {
		mem = memory.NewGoAllocator()
	}

	store, err := datastore.NewDiskDataStore(opts.OutDir)
	if err != nil {
		return res, utils.NewFixtureError(utils.KindIO, "", err)
	}
	defer store.Shutdown(ctx)

	synth, err := newSynthesizer(ctx, opts.Backend, mem)
	if err != nil {
		return res, fmt.Errorf("error opening %s backend: %w", opts.Backend, err)
	}
	defer func() {
		if err := synth.Close(); err != nil {
			logger.Error().Err(err).Msg("error closing synthesizer")
		}
	}()

	exp := exporter.New(store, opts.Format, mem)
	logger.Info().Int64("rows", opts.NumRows).Str("backend", string(opts.Backend)).Str("format", string(opts.Format)).Int("tables", len(specs)).Msg("starting fixture run")

	for _, spec := range specs {
		st, err := synthesizeAndExport(ctx, synth, exp, opts.NumRows, exporter.Table{
			Name:     spec.TableName,
			Column:   spec.ColumnName,
			DataType: spec.DataType.String(),
			Value:    catalog.FormatValue(spec.Value),
		}, []catalog.ColumnSpec{spec}, []string{spec.ColumnName})
		if err != nil {
			return res, err
		}
		res.Stats = append(res.Stats, st)
		res.Files = append(res.Files, exp.FileName(spec.TableName))
	}

	st, err := synthesizeAndExport(ctx, synth, exp, opts.NumRows, exporter.Table{
		Name:     catalog.CombinedTableName,
		Column:   stats.CombinedColumn,
		DataType: stats.CombinedDataType,
		Value:    stats.CombinedValue,
	}, specs, catalog.CombinedColumnNames(specs))
	if err != nil {
		return res, err
	}
	res.Stats = append(res.Stats, st)
	res.Files = append(res.Files, exp.FileName(catalog.CombinedTableName))

	statsRec := stats.ToRecord(mem, res.Stats)
	_, err = exp.ExportTable(ctx, exporter.Table{Name: catalog.StatsTableName, Record: statsRec})
	statsRec.Release()
	if err != nil {
		return res, err
	}
	res.Files = append(res.Files, exp.FileName(catalog.StatsTableName))
	res.Total = time.Since(start)

	if opts.Upload {
		res.UploadedKeys, err = s3_helper.UploadFixtures(ctx, store, runID, res.Files)
		if err != nil {
			return res, err
		}
	}
	if opts.RecordStats {
		if err := recordStats(ctx, runID, res.Stats); err != nil {
			return res, err
		}
	}

	totalBytes := stats.TotalBytes(res.Stats)
	logger.Info().Int("files", len(res.Files)).Uint64("bytes", totalBytes).Str("sizeHuman", humanize.IBytes(totalBytes)).Str("durationHuman", res.Total.String()).Msg("fixture run complete")
	if opts.Report != nil {
		if err := stats.Render(opts.Report, res.Total, res.Stats); err != nil {
			return res, fmt.Errorf("error rendering report: %w", err)
		}
	}
	return res, nil
}

func synthesizeAndExport(ctx context.Context, synth column.Synthesizer, exp *exporter.Exporter, numRows int64, t exporter.Table, specs []catalog.ColumnSpec, names []string) (stats.ExportStat, error) {
	if err := ctx.Err(); err != nil {
		return stats.ExportStat{}, err
	}
	t.StartedAt = time.Now()
	rec, err := synth.SynthesizeTable(ctx, t.Name, specs, names, numRows)
	if err != nil {
		return stats.ExportStat{}, err
	}
	defer rec.Release()
	t.Record = rec
	return exp.ExportTable(ctx, t)
}

func recordStats(ctx context.Context, runID string, all []stats.ExportStat) error {
	if utils.CRDB_DSN == "" {
		return utils.NewFixtureError(utils.KindConfig, "", errors.New("CRDB_DSN is not set"))
	}
	if _, err := migrations.RunMigrations(utils.CRDB_DSN); err != nil {
		return fmt.Errorf("error in RunMigrations: %w", err)
	}
	if err := crdb.ConnectToDB(ctx); err != nil {
		return fmt.Errorf("error connecting to CRDB: %w", err)
	}
	defer crdb.Close()

	if err := crdb.InsertExportStats(ctx, crdb.PGPool, runID, all); err != nil {
		return err
	}
	n, err := crdb.CountRunStats(ctx, crdb.PGPool, runID)
	if err != nil {
		return fmt.Errorf("error in CountRunStats: %w", err)
	}
	if n != int64(len(all)) {
		return fmt.Errorf("%w: stored %d of %d", ErrStatsNotRecorded, n, len(all))
	}
	return nil
}
