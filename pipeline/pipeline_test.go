package pipeline

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danthegoodman1/fixturegen/catalog"
	"github.com/danthegoodman1/fixturegen/exporter"
	"github.com/danthegoodman1/fixturegen/stats"
	"github.com/danthegoodman1/fixturegen/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readDir(t *testing.T, dir string) map[string]string {
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	files := make(map[string]string, len(entries))
	for _, e := range entries {
		b, err := os.ReadFile(filepath.Join(dir, e.Name()))
		require.NoError(t, err)
		files[e.Name()] = string(b)
	}
	return files
}

func TestRunDefaultCatalog(t *testing.T) {
	dir := t.TempDir()
	var report bytes.Buffer
	res, err := Run(context.Background(), Options{NumRows: 3, OutDir: dir, Report: &report})
	require.NoError(t, err)

	require.Len(t, res.Stats, len(catalog.Default)+1)
	for i, spec := range catalog.Default {
		assert.Equal(t, spec.TableName, res.Stats[i].Table)
		assert.Equal(t, spec.ColumnName, res.Stats[i].Column)
		assert.Equal(t, spec.DataType.String(), res.Stats[i].DataType)
		assert.EqualValues(t, 3, res.Stats[i].Rows)
		assert.Equal(t, spec.TableName+".csv", res.Files[i])
	}
	assert.Equal(t, "1.0", res.Stats[1].Value)

	combined := res.Stats[len(res.Stats)-1]
	assert.Equal(t, catalog.CombinedTableName, combined.Table)
	assert.Equal(t, stats.CombinedColumn, combined.Column)
	assert.Equal(t, stats.CombinedDataType, combined.DataType)
	assert.Equal(t, stats.CombinedValue, combined.Value)
	assert.Equal(t, "stats.csv", res.Files[len(res.Files)-1])

	files := readDir(t, dir)
	assert.Len(t, files, len(catalog.Default)+2)
	assert.Equal(t, "value\n1\n1\n1\n", files["intOne.csv"])
	assert.Equal(t, "countryCode\nuk\nuk\nuk\n", files["countryCode.csv"])

	statLines := strings.Split(strings.TrimSuffix(files["stats.csv"], "\n"), "\n")
	require.Len(t, statLines, len(catalog.Default)+2)
	assert.Equal(t, "Table,Column,Rows,DataType,Value,FileSizeBytes,FileSizeMB,GenerationTime", statLines[0])
	assert.True(t, strings.HasPrefix(statLines[1], "intOne,value,3,Integer,1,12,"), statLines[1])
	assert.True(t, strings.HasPrefix(statLines[len(statLines)-1], "combined_table,All Columns,3,Mixed,Multiple,"))

	for _, st := range res.Stats {
		assert.EqualValues(t, len(files[st.Table+".csv"]), st.FileSizeBytes, st.Table)
		assert.Equal(t, utils.BytesToMB(st.FileSizeBytes), st.FileSizeMB)
	}

	out := report.String()
	assert.True(t, strings.HasPrefix(out, "Total data generation and export completed in "))
	assert.Contains(t, out, "\nList of all tables:\n- intOne: value (Integer)\n- floatOne: value (Float)\n")
	assert.True(t, strings.HasSuffix(out, "- unixTimestampCol: unixTimestamp (UnixTimestamp)\n- combined_table: All Columns (Mixed)\n"))
	assert.NotEmpty(t, res.RunID)
}

func TestRunIsDeterministic(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	_, err := Run(context.Background(), Options{NumRows: 50, OutDir: a})
	require.NoError(t, err)
	_, err = Run(context.Background(), Options{NumRows: 50, OutDir: b})
	require.NoError(t, err)

	fa, fb := readDir(t, a), readDir(t, b)
	delete(fa, "stats.csv")
	delete(fb, "stats.csv")
	assert.Equal(t, fa, fb)
}

func TestBackendsProduceIdenticalFiles(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	_, err := Run(context.Background(), Options{NumRows: 20, OutDir: a, Backend: BackendArrow})
	require.NoError(t, err)
	_, err = Run(context.Background(), Options{NumRows: 20, OutDir: b, Backend: BackendEngine})
	require.NoError(t, err)

	fa, fb := readDir(t, a), readDir(t, b)
	delete(fa, "stats.csv")
	delete(fb, "stats.csv")
	require.Len(t, fa, len(catalog.Default)+1)
	for name, content := range fa {
		assert.Equal(t, content, fb[name], name)
	}
}

func TestRunParquet(t *testing.T) {
	dir := t.TempDir()
	res, err := Run(context.Background(), Options{NumRows: 5, OutDir: dir, Format: exporter.FormatParquet})
	require.NoError(t, err)
	for _, name := range res.Files {
		assert.True(t, strings.HasSuffix(name, ".parquet"), name)
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err)
	}
}

func TestInvalidInputWritesNothing(t *testing.T) {
	cases := map[string]struct {
		opts Options
		kind utils.ErrKind
	}{
		"zero rows": {
			opts: Options{NumRows: 0},
			kind: utils.KindConfig,
		},
		"negative rows": {
			opts: Options{NumRows: -4},
			kind: utils.KindConfig,
		},
		"unknown backend": {
			opts: Options{NumRows: 1, Backend: "duckdb"},
			kind: utils.KindConfig,
		},
		"bad scalar": {
			opts: Options{NumRows: 1, Catalog: []catalog.ColumnSpec{
				{TableName: "intOne", ColumnName: "value", DataType: catalog.Integer, Value: 1},
				{TableName: "badDate", ColumnName: "date", DataType: catalog.Date, Value: "not a date"},
			}},
			kind: utils.KindCoercion,
		},
		"reserved name": {
			opts: Options{NumRows: 1, Catalog: []catalog.ColumnSpec{
				{TableName: "stats", ColumnName: "value", DataType: catalog.Integer, Value: 1},
			}},
			kind: utils.KindConfig,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "out")
			tc.opts.OutDir = dir
			_, err := Run(context.Background(), tc.opts)
			require.Error(t, err)
			assert.True(t, utils.IsKind(err, tc.kind), err.Error())

			_, statErr := os.Stat(dir)
			assert.True(t, os.IsNotExist(statErr), "output directory should not exist")
		})
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, Options{NumRows: 1, OutDir: t.TempDir()})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCombinedTableHeader(t *testing.T) {
	dir := t.TempDir()
	_, err := Run(context.Background(), Options{NumRows: 2, OutDir: dir})
	require.NoError(t, err)

	b, err := os.ReadFile(filepath.Join(dir, "combined_table.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(b), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "intOne_value,floatOne_value,intMillion_value,countryCode,countryName,dateTime,dateTimeMs,dateTimeMsTimeZone,date,unixTimestamp", lines[0])
	assert.Equal(t, "1,1.0,1000000,uk,United Kingdom,2023-07-28 12:34:56,2023-07-28 12:34:56.789,2023-07-28 12:34:56.789+00:00,2023-07-28,1690547696", lines[1])
}
