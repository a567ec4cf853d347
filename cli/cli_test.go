package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	cmd := RootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestParseNumRows(t *testing.T) {
	n, err := ParseNumRows("1000")
	require.NoError(t, err)
	assert.EqualValues(t, 1000, n)

	for _, arg := range []string{"0", "-1", "abc", "1.5", ""} {
		_, err := ParseNumRows(arg)
		assert.ErrorIs(t, err, ErrBadRowCount, arg)
		assert.Equal(t, 2, ExitCode(err), arg)
	}
}

func TestRootWritesFixtures(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	out, err := execute(t, "4", "--out-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Total data generation and export completed in ")
	assert.Contains(t, out, "- combined_table: All Columns (Mixed)")

	b, err := os.ReadFile(filepath.Join(dir, "intOne.csv"))
	require.NoError(t, err)
	assert.Equal(t, "value\n1\n1\n1\n1\n", string(b))
	_, err = os.Stat(filepath.Join(dir, "stats.csv"))
	assert.NoError(t, err)
}

func TestRootRejectsBadArgs(t *testing.T) {
	for _, args := range [][]string{{"0"}, {"-5"}, {"ten"}, {}, {"1", "2"}, {"3", "--rows-per-file", "2"}} {
		dir := filepath.Join(t.TempDir(), "out")
		_, err := execute(t, append(args, "--out-dir", dir)...)
		require.Error(t, err, strings.Join(args, " "))
		assert.Equal(t, 2, ExitCode(err), strings.Join(args, " "))

		_, statErr := os.Stat(dir)
		assert.True(t, os.IsNotExist(statErr))
	}
}

func TestRootRejectsUnknownBackend(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	_, err := execute(t, "1", "--backend", "duckdb", "--out-dir", dir)
	require.Error(t, err)
	assert.Equal(t, 2, ExitCode(err))
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "fixturegen dev\n", out)
}
