package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/danthegoodman1/fixturegen/utils"
)

const (
	CombinedTableName = "combined_table"
	StatsTableName    = "stats"
)

type (
	// ColumnSpec declares one fixture table made of a single fixed-value column.
	ColumnSpec struct {
		TableName  string
		ColumnName string
		DataType   DataType
		// Value is an int, float, string or time.Time; it must coerce to DataType
		Value any
	}
)

var (
	ErrEmptyCatalog   = errors.New("catalog is empty")
	ErrMissingName    = errors.New("table and column names are required")
	ErrDuplicateTable = errors.New("duplicate table name")
	ErrReservedTable  = errors.New("reserved table name")
	ErrInvalidName    = errors.New("table name is not a plain file name")
)

// Default is the built-in fixture catalog.
var Default = []ColumnSpec{
	{TableName: "intOne", ColumnName: "value", DataType: Integer, Value: 1},
	{TableName: "floatOne", ColumnName: "value", DataType: Float, Value: 1.0},
	{TableName: "intMillion", ColumnName: "value", DataType: Integer, Value: 1000000},
	{TableName: "countryCode", ColumnName: "countryCode", DataType: String, Value: "uk"},
	{TableName: "countryName", ColumnName: "countryName", DataType: String, Value: "United Kingdom"},
	{TableName: "dateTimeCol", ColumnName: "dateTime", DataType: DateTime, Value: "2023-07-28 12:34:56"},
	{TableName: "dateTimeMsCol", ColumnName: "dateTimeMs", DataType: DateTimeMs, Value: "2023-07-28 12:34:56.789"},
	{TableName: "dateTimeMsTimeZoneCol", ColumnName: "dateTimeMsTimeZone", DataType: DateTimeMsTimeZone, Value: "2023-07-28 12:34:56.789+00:00"},
	{TableName: "dateCol", ColumnName: "date", DataType: Date, Value: "2023-07-28"},
	// 2023-07-28 12:34:56 UTC
	{TableName: "unixTimestampCol", ColumnName: "unixTimestamp", DataType: UnixTimestamp, Value: int64(1690547696)},
}

// Validate checks every spec before anything is written: names, data types and
// that each scalar coerces to its declared type.
func Validate(specs []ColumnSpec) error {
	if len(specs) == 0 {
		return utils.NewFixtureError(utils.KindConfig, "", ErrEmptyCatalog)
	}
	seen := make(map[string]struct{}, len(specs))
	for _, spec := range specs {
		if spec.TableName == "" || spec.ColumnName == "" {
			return utils.NewFixtureError(utils.KindConfig, spec.TableName, ErrMissingName)
		}
		if strings.ContainsAny(spec.TableName, `/\`) || spec.TableName == "." || spec.TableName == ".." {
			return utils.NewFixtureError(utils.KindConfig, spec.TableName, ErrInvalidName)
		}
		if spec.TableName == CombinedTableName || spec.TableName == StatsTableName {
			return utils.NewFixtureError(utils.KindConfig, spec.TableName, ErrReservedTable)
		}
		if _, exists := seen[spec.TableName]; exists {
			return utils.NewFixtureError(utils.KindConfig, spec.TableName, ErrDuplicateTable)
		}
		seen[spec.TableName] = struct{}{}

		if !spec.DataType.Valid() {
			return utils.NewFixtureError(utils.KindConfig, spec.TableName, fmt.Errorf("%w: %s", ErrUnknownDataType, spec.DataType))
		}
		if _, err := Coerce(spec.DataType, spec.Value); err != nil {
			return utils.NewFixtureError(utils.KindCoercion, spec.TableName, err)
		}
	}
	return nil
}

// CombinedColumnNames returns the combined table's column names in catalog order.
// A column name used by more than one spec is qualified as <table>_<column>.
func CombinedColumnNames(specs []ColumnSpec) []string {
	counts := make(map[string]int, len(specs))
	for _, spec := range specs {
		counts[spec.ColumnName]++
	}
	names := make([]string, len(specs))
	for i, spec := range specs {
		if counts[spec.ColumnName] > 1 {
			names[i] = spec.TableName + "_" + spec.ColumnName
		} else {
			names[i] = spec.ColumnName
		}
	}
	return names
}
