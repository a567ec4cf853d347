package catalog

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

type (
	// Scalar is a catalog value coerced to its declared data type.
	Scalar struct {
		Type DataType
		// Int holds Integer (int32 range) and UnixTimestamp values
		Int   int64
		Float float32
		Str   string
		// Time holds temporal values truncated to the type's precision. For
		// DateTimeMsTimeZone it is expressed in the literal's offset, otherwise UTC.
		Time time.Time
		// Offset is the retained UTC offset for DateTimeMsTimeZone, e.g. "+00:00"
		Offset string
	}
)

var (
	ErrInvalidValue   = errors.New("value does not parse as declared type")
	ErrOutOfRange     = errors.New("value out of range for declared type")
	ErrNilValue       = errors.New("value is nil")
	ErrUnparsableTime = errors.New("unparsable date/time literal")

	timeLayouts = []string{
		"2006-01-02 15:04:05Z07:00",
		"2006-01-02T15:04:05Z07:00",
		"2006-01-02 15:04:05-0700",
		"2006-01-02T15:04:05-0700",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04Z07:00",
		"2006-01-02 15:04",
		"2006-01-02",
	}
)

// Coerce parses value as dt. It accepts Go integers, floats, strings and time.Time.
func Coerce(dt DataType, value any) (Scalar, error) {
	s := Scalar{Type: dt}
	if value == nil {
		return s, ErrNilValue
	}

	switch dt {
	case Integer:
		i, err := toInt(value)
		if err != nil {
			return s, err
		}
		if i < math.MinInt32 || i > math.MaxInt32 {
			return s, fmt.Errorf("%w: %d does not fit in 32 bits", ErrOutOfRange, i)
		}
		s.Int = i
	case UnixTimestamp:
		if t, ok := value.(time.Time); ok {
			s.Int = t.Unix()
			break
		}
		i, err := toInt(value)
		if err != nil {
			return s, err
		}
		s.Int = i
	case Float:
		f, err := toFloat(value)
		if err != nil {
			return s, err
		}
		// the engine stores NaN as NULL, so non-finite values have no column form
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return s, fmt.Errorf("%w: %g is not finite", ErrInvalidValue, f)
		}
		if math.Abs(f) > math.MaxFloat32 {
			return s, fmt.Errorf("%w: %g does not fit in 32 bits", ErrOutOfRange, f)
		}
		s.Float = float32(f)
	case String:
		str, ok := value.(string)
		if !ok {
			return s, fmt.Errorf("%w: expected string, got %T", ErrInvalidValue, value)
		}
		s.Str = str
	case DateTime, DateTimeMs, DateTimeMsTimeZone, Date:
		t, hasOffset, err := toTime(value)
		if err != nil {
			return s, err
		}
		switch dt {
		case DateTime:
			s.Time = t.UTC().Truncate(time.Second)
		case DateTimeMs:
			s.Time = t.UTC().Truncate(time.Millisecond)
		case DateTimeMsTimeZone:
			if !hasOffset {
				t = t.UTC()
			}
			s.Time = t.Truncate(time.Millisecond)
			s.Offset = t.Format("-07:00")
		case Date:
			s.Time = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		}
	default:
		return s, fmt.Errorf("%w: %s", ErrUnknownDataType, dt)
	}
	return s, nil
}

// Timestamp returns the temporal value as a count of the type's unit since the
// epoch: seconds for DateTime, milliseconds for the Ms variants, days for Date.
func (s Scalar) Timestamp() int64 {
	switch s.Type {
	case DateTime:
		return s.Time.Unix()
	case DateTimeMs, DateTimeMsTimeZone:
		return s.Time.UnixMilli()
	case Date:
		return s.Time.Unix() / 86400
	}
	return s.Int
}

// Literal is the scalar rendered the way the engine expects it as a bound parameter.
func (s Scalar) Literal() string {
	switch s.Type {
	case Integer, UnixTimestamp:
		return strconv.FormatInt(s.Int, 10)
	case Float:
		return strconv.FormatFloat(float64(s.Float), 'g', -1, 32)
	case String:
		return s.Str
	case DateTime:
		return s.Time.Format("2006-01-02 15:04:05")
	case DateTimeMs:
		return s.Time.Format("2006-01-02 15:04:05.000")
	case DateTimeMsTimeZone:
		return s.Time.Format("2006-01-02 15:04:05.000-07:00")
	case Date:
		return s.Time.Format("2006-01-02")
	}
	return ""
}

// FormatValue renders a catalog value for the stats table.
func FormatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return formatFloat(v, 64)
	case float32:
		return formatFloat(float64(v), 32)
	case time.Time:
		return v.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(v)
	}
}

func formatFloat(f float64, bits int) string {
	s := strconv.FormatFloat(f, 'f', -1, bits)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

// ParseOffset turns a "+HH:MM" offset into a fixed zone.
func ParseOffset(offset string) (*time.Location, error) {
	if offset == "" || offset == "Z" {
		return time.UTC, nil
	}
	t, err := time.Parse("-07:00", offset)
	if err != nil {
		return nil, fmt.Errorf("error in time.Parse for offset %q: %w", offset, err)
	}
	_, secs := t.Zone()
	return time.FixedZone(offset, secs), nil
}

func toInt(value any) (int64, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return 0, fmt.Errorf("%w: %d", ErrOutOfRange, v)
		}
		return int64(v), nil
	case float32:
		return floatToInt(float64(v))
	case float64:
		return floatToInt(v)
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not an integer", ErrInvalidValue, v)
		}
		return i, nil
	}
	return 0, fmt.Errorf("%w: cannot use %T as an integer", ErrInvalidValue, value)
}

func floatToInt(f float64) (int64, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, fmt.Errorf("%w: %g is not integral", ErrInvalidValue, f)
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("%w: %g", ErrOutOfRange, f)
	}
	return int64(f), nil
}

func toFloat(value any) (float64, error) {
	switch v := value.(type) {
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a float", ErrInvalidValue, v)
		}
		return f, nil
	}
	i, err := toInt(value)
	if err != nil {
		return 0, fmt.Errorf("%w: cannot use %T as a float", ErrInvalidValue, value)
	}
	return float64(i), nil
}

// toTime parses an ISO-8601-like literal. hasOffset reports whether the input
// carried an explicit UTC offset.
func toTime(value any) (t time.Time, hasOffset bool, err error) {
	switch v := value.(type) {
	case time.Time:
		return v, true, nil
	case string:
		lit := strings.TrimSpace(v)
		for _, layout := range timeLayouts {
			parsed, perr := time.Parse(layout, lit)
			if perr != nil {
				continue
			}
			return parsed, strings.Contains(layout, "Z07") || strings.Contains(layout, "-07"), nil
		}
		err = fmt.Errorf("%w: %q", ErrUnparsableTime, v)
		return
	}
	err = fmt.Errorf("%w: cannot use %T as a date/time", ErrInvalidValue, value)
	return
}
