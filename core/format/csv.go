package format

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
)

var ErrNeedEscape = errors.New("field needs escaping, but no escape character is set")

// Encoder encodes records using the rules of a Dialect.
type Encoder struct {
	dialect Dialect
}

func NewEncoder(dialect Dialect) (*Encoder, error) {
	if err := dialect.Validate(); err != nil {
		return nil, err
	}

	return &Encoder{
		dialect: dialect,
	}, nil
}

// Encode returns values as a single record, including the line terminator.
// Nothing is returned unless the whole record could be encoded.
func (e *Encoder) Encode(values []any) ([]byte, error) {
	var b strings.Builder
	for i, v := range values {
		if i > 0 {
			b.WriteRune(e.dialect.Delimiter)
		}

		field, err := Stringify(v)
		if err != nil {
			return nil, fmt.Errorf("field %d: %w", i, err)
		}
		quote := e.needsQuotes(v, field, len(values) == 1)

		if err := e.writeField(&b, field, quote); err != nil {
			return nil, fmt.Errorf("field %d: %w", i, err)
		}
	}
	b.WriteString(e.dialect.LineTerminator)

	return []byte(b.String()), nil
}

func (e *Encoder) needsQuotes(value any, field string, single bool) bool {
	switch e.dialect.Quoting {
	case QuoteAll:
		return true
	case QuoteNone:
		return false
	case QuoteNonNumeric:
		if !isNumeric(value) {
			return true
		}
	}

	// single empty field is quoted, otherwise the record is an empty line
	if single && field == "" {
		return true
	}

	return strings.ContainsAny(field, "\r\n") ||
		strings.ContainsRune(field, e.dialect.Delimiter) ||
		strings.ContainsRune(field, e.dialect.QuoteChar) ||
		(e.dialect.EscapeChar != 0 && strings.ContainsRune(field, e.dialect.EscapeChar))
}

func (e *Encoder) writeField(b *strings.Builder, field string, quote bool) error {
	d := e.dialect

	if quote {
		b.WriteRune(d.QuoteChar)
	}

	for _, r := range field {
		switch {
		case d.EscapeChar != 0 && r == d.EscapeChar:
			b.WriteRune(d.EscapeChar)

		case d.QuoteChar != 0 && r == d.QuoteChar:
			if d.Quoting != QuoteNone && d.DoubleQuote {
				b.WriteRune(d.QuoteChar)
				break
			}
			if d.EscapeChar == 0 {
				return ErrNeedEscape
			}
			b.WriteRune(d.EscapeChar)

		case !quote && (r == d.Delimiter || r == '\r' || r == '\n'):
			if d.EscapeChar == 0 {
				return ErrNeedEscape
			}
			b.WriteRune(d.EscapeChar)
		}
		b.WriteRune(r)
	}

	if quote {
		b.WriteRune(d.QuoteChar)
	}
	return nil
}

// Stringify converts a value to its textual representation in a record.
// Floats are written in their shortest round-trip form and always keep
// a fractional part, e.g. 1500000.0.
func Stringify(value any) (string, error) {
	rv := reflect.ValueOf(value)
	if !rv.IsValid() || (rv.Kind() == reflect.Pointer && rv.IsNil()) {
		return "", nil
	}

	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case time.Time:
		return v.Format(time.RFC3339Nano), nil
	case *time.Time:
		return v.Format(time.RFC3339Nano), nil
	case driver.Valuer:
		val, err := v.Value()
		if err != nil {
			return "", fmt.Errorf("%T.Value: %w", value, err)
		}
		if _, again := val.(driver.Valuer); again {
			return fmt.Sprint(val), nil
		}
		return Stringify(val)
	case fmt.Stringer:
		return v.String(), nil
	case error:
		return v.Error(), nil
	}

	switch rv.Kind() {
	case reflect.Pointer:
		return Stringify(rv.Elem().Interface())
	case reflect.Float32:
		return formatFloat(rv.Float(), 32), nil
	case reflect.Float64:
		return formatFloat(rv.Float(), 64), nil
	}

	return fmt.Sprint(value), nil
}

// formatFloat switches to exponent notation outside of [1e-4, 1e16).
func formatFloat(f float64, bitSize int) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}

	if abs := math.Abs(f); abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(f, 'e', -1, bitSize)
	}

	s := strconv.FormatFloat(f, 'f', -1, bitSize)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func isNumeric(value any) bool {
	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return false
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}
