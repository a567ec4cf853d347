package parquet_accumulator

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

type (
	ParquetSchemaAccumulator struct {
		schema ParquetSchema
		// scale multiplies a column's raw value before it is written, by column index
		scale []int64
	}

	ParquetSchema struct {
		TagStructs SchemaTag        `json:"-,omitempty"`
		Fields     []*ParquetSchema `json:",omitempty"`
	}

	ParquetJSONSchema struct {
		Tag    string               `json:",omitempty"`
		Fields []*ParquetJSONSchema `json:",omitempty"`
	}

	SchemaTag struct {
		Name           string         `json:"name,omitempty"`
		Type           string         `json:"type,omitempty"`
		ConvertedType  string         `json:"convertedtype,omitempty"`
		RepetitionType RepetitionType `json:"repetitiontype,omitempty"`
		Encoding       string         `json:"encoding,omitempty"`
	}

	RepetitionType string
)

var (
	Optional RepetitionType = "OPTIONAL"
	Required RepetitionType = "REQUIRED"

	ErrUnsupportedType = errors.New("arrow type has no parquet mapping")
	ErrDuplicateField  = errors.New("duplicate parquet field name")
)

func NewParquetAccumulator() ParquetSchemaAccumulator {
	return ParquetSchemaAccumulator{
		schema: ParquetSchema{
			TagStructs: SchemaTag{
				Name:           "parquet_go_root",
				RepetitionType: Required,
			},
		},
	}
}

// FromArrowSchema accumulates every field of an Arrow schema, in order.
func FromArrowSchema(schema *arrow.Schema) (ParquetSchemaAccumulator, error) {
	pa := NewParquetAccumulator()
	for _, f := range schema.Fields() {
		if err := pa.AddField(f); err != nil {
			return pa, err
		}
	}
	return pa, nil
}

// AddField appends the parquet column for an Arrow field. Fixture columns never
// hold nulls, so every column is REQUIRED.
func (pa *ParquetSchemaAccumulator) AddField(f arrow.Field) error {
	if pa.fieldExists(f.Name) {
		return fmt.Errorf("%w: %s", ErrDuplicateField, f.Name)
	}
	schema, scale, err := pa.getParquetSchema(f)
	if err != nil {
		return err
	}
	pa.schema.Fields = append(pa.schema.Fields, schema)
	pa.scale = append(pa.scale, scale)
	return nil
}

// getParquetSchema returns the column schema and the factor raw values are scaled by
func (pa *ParquetSchemaAccumulator) getParquetSchema(f arrow.Field) (*ParquetSchema, int64, error) {
	schema := &ParquetSchema{
		TagStructs: SchemaTag{
			Name:           f.Name,
			RepetitionType: Required,
		},
	}
	var scale int64 = 1
	switch dt := f.Type.(type) {
	case *arrow.Int32Type:
		schema.TagStructs.Type = "INT32"
	case *arrow.Int64Type:
		schema.TagStructs.Type = "INT64"
	case *arrow.Uint64Type:
		schema.TagStructs.Type = "INT64"
		schema.TagStructs.ConvertedType = "UINT_64"
	case *arrow.Float32Type:
		schema.TagStructs.Type = "FLOAT"
	case *arrow.Float64Type:
		schema.TagStructs.Type = "DOUBLE"
	case *arrow.StringType, *arrow.LargeStringType:
		schema.TagStructs.Type = "BYTE_ARRAY"
		schema.TagStructs.ConvertedType = "UTF8"
		schema.TagStructs.Encoding = "PLAIN"
	case *arrow.Date32Type:
		schema.TagStructs.Type = "INT32"
		schema.TagStructs.ConvertedType = "DATE"
	case *arrow.TimestampType:
		schema.TagStructs.Type = "INT64"
		schema.TagStructs.ConvertedType = "TIMESTAMP_MILLIS"
		switch dt.Unit {
		case arrow.Second:
			scale = 1000
		case arrow.Millisecond:
		default:
			return nil, 0, fmt.Errorf("%w: %s unit %s", ErrUnsupportedType, f.Name, dt.Unit)
		}
	default:
		return nil, 0, fmt.Errorf("%w: %s (%s)", ErrUnsupportedType, f.Name, f.Type)
	}

	return schema, scale, nil
}

func (pa *ParquetSchemaAccumulator) fieldExists(fieldName string) (exists bool) {
	for _, field := range pa.schema.Fields {
		if field.TagStructs.Name == fieldName {
			return true
		}
	}
	return
}

func (pa *ParquetSchemaAccumulator) GetColumnNames() []string {
	var cols []string
	for _, field := range pa.schema.Fields {
		cols = append(cols, field.TagStructs.Name)
	}
	return cols
}

func (ps *ParquetSchema) GetType() string {
	if ps.TagStructs.ConvertedType != "" {
		return strings.ToLower(ps.TagStructs.ConvertedType)
	}
	return strings.ToLower(ps.TagStructs.Type)
}

// GetColumnTypes returns the logical type of each column in the same order
func (pa *ParquetSchemaAccumulator) GetColumnTypes() []string {
	var cols []string
	for _, field := range pa.schema.Fields {
		cols = append(cols, field.GetType())
	}
	return cols
}

// ToParquetJSONSchema recursively converts
func (ps *ParquetSchema) ToParquetJSONSchema() *ParquetJSONSchema {
	var tagArr []string
	if ps.TagStructs.Type != "" {
		tagArr = append(tagArr, "type="+ps.TagStructs.Type)
	}
	if ps.TagStructs.ConvertedType != "" {
		tagArr = append(tagArr, "convertedtype="+ps.TagStructs.ConvertedType)
	}
	if ps.TagStructs.Encoding != "" {
		tagArr = append(tagArr, "encoding="+ps.TagStructs.Encoding)
	}
	if ps.TagStructs.Name != "" {
		tagArr = append(tagArr, "name="+ps.TagStructs.Name)
	}
	if string(ps.TagStructs.RepetitionType) != "" {
		tagArr = append(tagArr, "repetitiontype="+string(ps.TagStructs.RepetitionType))
	}
	var fields []*ParquetJSONSchema
	for _, field := range ps.Fields {
		fields = append(fields, field.ToParquetJSONSchema())
	}
	return &ParquetJSONSchema{
		Tag:    strings.Join(tagArr, ", "),
		Fields: fields,
	}
}

// GetSchemaString returns the JSON formatted schema string
func (pa *ParquetSchemaAccumulator) GetSchemaString() (string, error) {
	var fields []*ParquetJSONSchema
	for _, field := range pa.schema.Fields {
		fields = append(fields, field.ToParquetJSONSchema())
	}
	pjs := ParquetJSONSchema{
		Tag:    "name=parquet_go_root, repetitiontype=REQUIRED",
		Fields: fields,
	}

	b, err := json.Marshal(pjs)
	if err != nil {
		return "", fmt.Errorf("error in json.Marshal: %w", err)
	}
	return string(b), nil
}

// Row returns row i of rec keyed by parquet column name, with values converted
// to what the columns were declared as.
func (pa *ParquetSchemaAccumulator) Row(rec arrow.Record, i int) (map[string]any, error) {
	if int(rec.NumCols()) != len(pa.schema.Fields) {
		return nil, fmt.Errorf("record has %d columns, schema has %d", rec.NumCols(), len(pa.schema.Fields))
	}
	row := make(map[string]any, len(pa.schema.Fields))
	for j, field := range pa.schema.Fields {
		var v any
		switch col := rec.Column(j).(type) {
		case *array.Int32:
			v = col.Value(i)
		case *array.Int64:
			v = col.Value(i)
		case *array.Uint64:
			v = col.Value(i)
		case *array.Float32:
			v = col.Value(i)
		case *array.Float64:
			v = col.Value(i)
		case *array.String:
			v = col.Value(i)
		case *array.LargeString:
			v = col.Value(i)
		case *array.Date32:
			v = int32(col.Value(i))
		case *array.Timestamp:
			v = int64(col.Value(i)) * pa.scale[j]
		default:
			return nil, fmt.Errorf("%w: %s (%T)", ErrUnsupportedType, field.TagStructs.Name, col)
		}
		row[field.TagStructs.Name] = v
	}
	return row, nil
}
