package format

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownDialect = errors.New("unknown dialect")
	ErrInvalidDialect = errors.New("invalid dialect")
)

// Quoting controls which fields are enclosed in quote characters.
type Quoting int

const (
	// QuoteMinimal quotes only fields containing special characters.
	QuoteMinimal Quoting = iota
	// QuoteAll quotes every field.
	QuoteAll
	// QuoteNonNumeric quotes every field which is not a number.
	QuoteNonNumeric
	// QuoteNone never quotes and escapes special characters instead.
	QuoteNone
)

func (q Quoting) String() string {
	switch q {
	case QuoteMinimal:
		return "minimal"
	case QuoteAll:
		return "all"
	case QuoteNonNumeric:
		return "nonnumeric"
	case QuoteNone:
		return "none"
	default:
		return ""
	}
}

func QuotingFromString(s string) (Quoting, error) {
	for _, q := range []Quoting{QuoteMinimal, QuoteAll, QuoteNonNumeric, QuoteNone} {
		if strings.EqualFold(s, q.String()) {
			return q, nil
		}
	}
	return QuoteMinimal, fmt.Errorf("unknown quoting: %q", s)
}

// Dialect is a set of rules used to encode records.
type Dialect struct {
	Delimiter rune
	QuoteChar rune
	// EscapeChar is used with QuoteNone and when DoubleQuote is false.
	// Zero means no escape character.
	EscapeChar     rune
	DoubleQuote    bool
	LineTerminator string
	Quoting        Quoting
}

var (
	// Excel is the default dialect: comma separated, minimal quoting, CRLF line endings.
	Excel = Dialect{
		Delimiter:      ',',
		QuoteChar:      '"',
		DoubleQuote:    true,
		LineTerminator: "\r\n",
		Quoting:        QuoteMinimal,
	}

	// ExcelTab is Excel with tabs as delimiters.
	ExcelTab = Dialect{
		Delimiter:      '\t',
		QuoteChar:      '"',
		DoubleQuote:    true,
		LineTerminator: "\r\n",
		Quoting:        QuoteMinimal,
	}

	// Unix quotes all fields and uses LF line endings.
	Unix = Dialect{
		Delimiter:      ',',
		QuoteChar:      '"',
		DoubleQuote:    true,
		LineTerminator: "\n",
		Quoting:        QuoteAll,
	}
)

var dialects = map[string]Dialect{
	"excel":     Excel,
	"excel-tab": ExcelTab,
	"unix":      Unix,
}

// DialectByName returns one of the predefined dialects.
func DialectByName(name string) (Dialect, error) {
	d, ok := dialects[strings.ToLower(name)]
	if !ok {
		return Dialect{}, fmt.Errorf("%w: %q", ErrUnknownDialect, name)
	}
	return d, nil
}

func (d Dialect) Validate() error {
	switch {
	case d.Delimiter == 0:
		return fmt.Errorf("%w: delimiter must be set", ErrInvalidDialect)
	case d.Delimiter == '\r' || d.Delimiter == '\n':
		return fmt.Errorf("%w: delimiter can't be a line break", ErrInvalidDialect)
	case d.Delimiter == d.QuoteChar:
		return fmt.Errorf("%w: delimiter and quote character must differ", ErrInvalidDialect)
	case d.EscapeChar != 0 && (d.EscapeChar == d.Delimiter || d.EscapeChar == d.QuoteChar):
		return fmt.Errorf("%w: escape character must differ from delimiter and quote character", ErrInvalidDialect)
	case d.LineTerminator == "":
		return fmt.Errorf("%w: line terminator must be set", ErrInvalidDialect)
	case d.Quoting != QuoteNone && d.QuoteChar == 0:
		return fmt.Errorf("%w: quote character must be set for %s quoting", ErrInvalidDialect, d.Quoting)
	}
	return nil
}
