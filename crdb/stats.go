package crdb

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/danthegoodman1/fixturegen/stats"
	"github.com/danthegoodman1/fixturegen/utils"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"
)

const insertStatSQL = `INSERT INTO fixture_stats (
	id, run_id, position, table_name, column_name, row_count, data_type, value,
	file_size_bytes, file_size_mb, generation_time_seconds
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (run_id, position) DO NOTHING`

// StatArgs returns the insert arguments for the stat at position i of a run.
func StatArgs(runID string, i int, st stats.ExportStat) []any {
	return []any{
		utils.GenRandomID("stat_"),
		runID,
		int64(i),
		st.Table,
		st.Column,
		int64(st.Rows),
		st.DataType,
		st.Value,
		int64(st.FileSizeBytes),
		st.FileSizeMB,
		st.GenerationTimeSeconds,
	}
}

// InsertExportStats stores the stats of one run in a single transaction. Rows are
// keyed by (run_id, position), so a retried insert does not duplicate them.
func InsertExportStats(ctx context.Context, pool *pgxpool.Pool, runID string, all []stats.ExportStat) error {
	logger := zerolog.Ctx(ctx)
	err := utils.ReliableExecInTx(ctx, pool, StandardContextTimeout, func(ctx context.Context, tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for i, st := range all {
			batch.Queue(insertStatSQL, StatArgs(runID, i, st)...)
		}
		br := tx.SendBatch(ctx, batch)
		for range all {
			if _, err := br.Exec(); err != nil {
				br.Close()
				if isSchemaError(err) {
					return utils.PermError(fmt.Sprintf("error in br.Exec: %s", err))
				}
				return fmt.Errorf("error in br.Exec: %w", err)
			}
		}
		return br.Close()
	})
	if err != nil {
		return fmt.Errorf("error in ReliableExecInTx: %w", err)
	}
	logger.Debug().Int("stats", len(all)).Msg("recorded export stats")
	return nil
}

// isSchemaError reports syntax and undefined object errors (SQLSTATE class 42),
// which no retry can fix.
func isSchemaError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, "42")
}

// CountRunStats returns how many stats rows are stored for a run.
func CountRunStats(ctx context.Context, pool *pgxpool.Pool, runID string) (n int64, err error) {
	err = utils.ReliableExec(ctx, pool, StandardContextTimeout, func(ctx context.Context, conn *pgxpool.Conn) error {
		return conn.QueryRow(ctx, "SELECT count(*) FROM fixture_stats WHERE run_id = $1", runID).Scan(&n)
	})
	return
}
