package catalog

import (
	"errors"
	"fmt"
)

type DataType int

const (
	Integer DataType = iota
	Float
	String
	DateTime
	DateTimeMs
	DateTimeMsTimeZone
	Date
	UnixTimestamp
)

var (
	ErrUnknownDataType = errors.New("unknown data type")

	typeNames = map[DataType]string{
		Integer:            "Integer",
		Float:              "Float",
		String:             "String",
		DateTime:           "DateTime",
		DateTimeMs:         "DateTimeMs",
		DateTimeMsTimeZone: "DateTimeMsTimeZone",
		Date:               "Date",
		UnixTimestamp:      "UnixTimestamp",
	}
)

func (dt DataType) String() string {
	if name, ok := typeNames[dt]; ok {
		return name
	}
	return fmt.Sprintf("DataType(%d)", int(dt))
}

// Valid reports whether dt is one of the declared data types.
func (dt DataType) Valid() bool {
	_, ok := typeNames[dt]
	return ok
}

func ParseDataType(name string) (DataType, error) {
	for dt, n := range typeNames {
		if n == name {
			return dt, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownDataType, name)
}
