package output

import (
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strings"

	"github.com/kndndrj/rowcsv/core/format"
)

// fmt reports bad verbs, missing and extra arguments inline, e.g. "%!d(string=x)".
var badFormatPattern = regexp.MustCompile(`%!([a-zA-Z]\(|\(EXTRA|\(BADWIDTH|\(BADPREC|\(NOVERB)`)

// applyFieldFormat formats a single value with a printf style format.
// Integers are converted to floats for floating point verbs, floats are
// truncated for %d and %s accepts any value in its record form.
// %i and %u are aliases of %d.
func applyFieldFormat(f string, value any) (string, error) {
	runes := []rune(f)
	positions := verbPositions(runes)
	if len(positions) != 1 {
		return "", fmt.Errorf("format %q must have exactly one verb, has %d", f, len(positions))
	}
	if positions[0] == len(runes) {
		return "", fmt.Errorf("format %q ends with a dangling %%", f)
	}

	verb := runes[positions[0]]
	switch {
	case verb == 'i' || verb == 'u':
		runes[positions[0]] = 'd'
		f = string(runes)
		value = floatToInt(value)
	case verb == 'd':
		value = floatToInt(value)
	case strings.ContainsRune("eEfFgG", verb):
		value = intToFloat(value)
	case verb == 's':
		s, err := format.Stringify(value)
		if err != nil {
			return "", err
		}
		value = s
	}

	out := fmt.Sprintf(f, value)
	if badFormatPattern.MatchString(out) && !strings.Contains(fmt.Sprint(value), "%!") {
		return "", fmt.Errorf("format %q does not match value of type %T", f, value)
	}

	return out, nil
}

// verbPositions returns rune indexes of verbs, skipping "%%".
// A dangling percent sign is reported as len(runes).
func verbPositions(runes []rune) []int {
	var positions []int
	for i := 0; i < len(runes); i++ {
		if runes[i] != '%' {
			continue
		}
		i++
		// flags, width, precision and argument indexes
		for i < len(runes) && strings.ContainsRune("+-# 0123456789.*[]", runes[i]) {
			i++
		}
		if i >= len(runes) {
			positions = append(positions, len(runes))
			break
		}
		if runes[i] == '%' {
			continue
		}
		positions = append(positions, i)
	}

	return positions
}

func intToFloat(value any) any {
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint())
	default:
		return value
	}
}

// floatToInt truncates towards zero.
func floatToInt(value any) any {
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return value
		}
		return int64(f)
	default:
		return value
	}
}
