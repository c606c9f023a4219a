package output

import (
	"fmt"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/kndndrj/rowcsv/core"
	"github.com/kndndrj/rowcsv/core/format"
	"github.com/kndndrj/rowcsv/logs"
)

type csvConfig struct {
	header       bool
	customHeader core.Header
	prefix       bool
	fieldFormats map[string]string
	dialect      format.Dialect
	dialectErr   error
	charset      encoding.Encoding
	charsetErr   error
	log          logs.Logger
}

func defaultCSVConfig() *csvConfig {
	return &csvConfig{
		header:       true,
		fieldFormats: make(map[string]string),
		dialect:      format.Excel,
		log:          logs.Nop(),
	}
}

// CSVOption configures a CSVWriter. Options are applied in order,
// so dialect tweaks should come after WithDialect or WithDialectName.
type CSVOption func(*csvConfig)

// WithHeader enables or disables the header generated from the first row's columns.
func WithHeader(enabled bool) CSVOption {
	return func(c *csvConfig) {
		c.header = enabled
		c.customHeader = nil
	}
}

// WithCustomHeader writes the provided header instead of the generated one.
// Its length must match the number of columns of the first row.
func WithCustomHeader(header core.Header) CSVOption {
	return func(c *csvConfig) {
		c.header = true
		c.customHeader = header
	}
}

// WithPrefixModelNames prefixes entity attributes with the entity kind, e.g. "User.id".
func WithPrefixModelNames(enabled bool) CSVOption {
	return func(c *csvConfig) {
		c.prefix = enabled
	}
}

// WithFieldFormat registers a printf style format for column key.
// Keys are matched after prefixing.
func WithFieldFormat(key, f string) CSVOption {
	return func(c *csvConfig) {
		c.fieldFormats[key] = f
	}
}

func WithFieldFormats(formats map[string]string) CSVOption {
	return func(c *csvConfig) {
		for k, f := range formats {
			c.fieldFormats[k] = f
		}
	}
}

func WithDialect(d format.Dialect) CSVOption {
	return func(c *csvConfig) {
		c.dialect = d
	}
}

// WithDialectName selects one of the predefined dialects: excel, excel-tab or unix.
func WithDialectName(name string) CSVOption {
	return func(c *csvConfig) {
		d, err := format.DialectByName(name)
		if err != nil {
			c.dialectErr = err
			return
		}
		c.dialect = d
	}
}

func WithDelimiter(delimiter rune) CSVOption {
	return func(c *csvConfig) {
		c.dialect.Delimiter = delimiter
	}
}

func WithQuoteChar(quote rune) CSVOption {
	return func(c *csvConfig) {
		c.dialect.QuoteChar = quote
	}
}

func WithEscapeChar(escape rune) CSVOption {
	return func(c *csvConfig) {
		c.dialect.EscapeChar = escape
	}
}

func WithQuoting(q format.Quoting) CSVOption {
	return func(c *csvConfig) {
		c.dialect.Quoting = q
	}
}

func WithLineTerminator(terminator string) CSVOption {
	return func(c *csvConfig) {
		c.dialect.LineTerminator = terminator
	}
}

func WithLogger(logger logs.Logger) CSVOption {
	return func(c *csvConfig) {
		if logger != nil {
			c.log = logger
		}
	}
}

// WithEncoding transcodes output from utf-8 to the named charset, e.g. "windows-1252".
// Names are resolved as in the WHATWG encoding standard.
func WithEncoding(name string) CSVOption {
	return func(c *csvConfig) {
		e, err := htmlindex.Get(name)
		if err != nil {
			c.charsetErr = fmt.Errorf("unknown encoding %q: %w", name, err)
			return
		}
		if n, _ := htmlindex.Name(e); n == "utf-8" {
			c.charset = nil
			return
		}
		c.charset = e
	}
}
