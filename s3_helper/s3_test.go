package s3_helper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "fixtures/run_abc/intOne.csv", ObjectKey("fixtures", "run_abc", "intOne.csv"))
	assert.Equal(t, "a/b/run_abc/stats.csv", ObjectKey("/a/b/", "run_abc", "stats.csv"))
	assert.Equal(t, "run_abc/stats.csv", ObjectKey("", "run_abc", "stats.csv"))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "text/csv", *ContentType("combined_table.csv"))
	assert.Equal(t, "application/vnd.apache.parquet", *ContentType("combined_table.parquet"))
	assert.Equal(t, "application/octet-stream", *ContentType("notes"))
}
