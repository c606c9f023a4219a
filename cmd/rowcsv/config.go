package main

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/spf13/pflag"

	"github.com/kndndrj/rowcsv/core"
	"github.com/kndndrj/rowcsv/core/format"
	"github.com/kndndrj/rowcsv/logs"
	"github.com/kndndrj/rowcsv/output"
)

type config struct {
	Type     string
	URL      string
	Query    string
	Entity   string
	Out      string
	LogLevel string

	NoHeader   bool
	Header     []string
	Prefix     bool
	Formats    []string
	Dialect    string
	Delimiter  string
	Quoting    string
	LineEnding string
	EscapeChar string
	QuoteChar  string
	Encoding   string
}

func parseFlags(args []string) (*config, error) {
	cfg := new(config)

	fs := pflag.NewFlagSet("rowcsv", pflag.ContinueOnError)
	fs.StringVarP(&cfg.Type, "type", "t", "", "database type, e.g. sqlite, postgres, mysql")
	fs.StringVarP(&cfg.URL, "url", "u", "", "connection url, supports {{ env `VAR` }}, {{ file `path` }} and {{ exec `cmd` }}")
	fs.StringVarP(&cfg.Query, "query", "q", "", "query to execute")
	fs.StringVarP(&cfg.Entity, "entity", "e", "", "treat each row as an entity of this kind")
	fs.StringVarP(&cfg.Out, "out", "o", "-", "output file, parent directories are created; - for stdout")
	fs.StringVarP(&cfg.LogLevel, "log-level", "l", "info", "one of debug, info, warn, error")
	fs.BoolVar(&cfg.NoHeader, "no-header", false, "don't write the header")
	fs.StringSliceVar(&cfg.Header, "header", nil, "custom header, comma separated")
	fs.BoolVarP(&cfg.Prefix, "prefix", "p", false, "prefix entity attributes with the entity kind")
	fs.StringArrayVarP(&cfg.Formats, "format", "f", nil, "column format as key=printf-format, can be repeated")
	fs.StringVarP(&cfg.Dialect, "dialect", "d", "excel", "one of excel, excel-tab, unix")
	fs.StringVar(&cfg.Delimiter, "delimiter", "", "override dialect delimiter")
	fs.StringVar(&cfg.Quoting, "quoting", "", "override dialect quoting: minimal, all, nonnumeric, none")
	fs.StringVar(&cfg.QuoteChar, "quote-char", "", "override dialect quote character")
	fs.StringVar(&cfg.EscapeChar, "escape-char", "", "escape character")
	fs.StringVar(&cfg.Encoding, "encoding", "utf-8", "output charset, e.g. windows-1252")
	fs.StringVar(&cfg.LineEnding, "line-ending", "", "override dialect line ending: lf or crlf")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	switch {
	case cfg.Type == "":
		return nil, errors.New("--type is required")
	case cfg.Query == "":
		return nil, errors.New("--query is required")
	case cfg.NoHeader && len(cfg.Header) > 0:
		return nil, errors.New("--no-header and --header are mutually exclusive")
	}

	return cfg, nil
}

func (cfg *config) connectionParams() *core.ConnectionParams {
	return &core.ConnectionParams{
		Type: cfg.Type,
		URL:  cfg.URL,
	}
}

func (cfg *config) logLevel() (logs.Level, error) {
	return logs.LevelFromString(cfg.LogLevel)
}

func singleRune(flag, value string) (rune, error) {
	if utf8.RuneCountInString(value) != 1 {
		return 0, fmt.Errorf("--%s must be a single character, got %q", flag, value)
	}
	r, _ := utf8.DecodeRuneInString(value)
	return r, nil
}

// writerOptions converts flags to csv writer options.
func (cfg *config) writerOptions(logger logs.Logger) ([]output.CSVOption, error) {
	opts := []output.CSVOption{
		output.WithDialectName(cfg.Dialect),
		output.WithPrefixModelNames(cfg.Prefix),
		output.WithEncoding(cfg.Encoding),
		output.WithLogger(logger),
	}

	switch {
	case cfg.NoHeader:
		opts = append(opts, output.WithHeader(false))
	case len(cfg.Header) > 0:
		opts = append(opts, output.WithCustomHeader(cfg.Header))
	}

	for _, f := range cfg.Formats {
		key, value, ok := strings.Cut(f, "=")
		if !ok || key == "" || value == "" {
			return nil, fmt.Errorf("invalid --format %q, expected key=format", f)
		}
		opts = append(opts, output.WithFieldFormat(key, value))
	}

	if cfg.Delimiter != "" {
		d := cfg.Delimiter
		if d == `\t` {
			d = "\t"
		}
		r, err := singleRune("delimiter", d)
		if err != nil {
			return nil, err
		}
		opts = append(opts, output.WithDelimiter(r))
	}

	if cfg.QuoteChar != "" {
		r, err := singleRune("quote-char", cfg.QuoteChar)
		if err != nil {
			return nil, err
		}
		opts = append(opts, output.WithQuoteChar(r))
	}

	if cfg.EscapeChar != "" {
		r, err := singleRune("escape-char", cfg.EscapeChar)
		if err != nil {
			return nil, err
		}
		opts = append(opts, output.WithEscapeChar(r))
	}

	if cfg.Quoting != "" {
		q, err := format.QuotingFromString(cfg.Quoting)
		if err != nil {
			return nil, err
		}
		opts = append(opts, output.WithQuoting(q))
	}

	switch strings.ToLower(cfg.LineEnding) {
	case "":
	case "lf":
		opts = append(opts, output.WithLineTerminator("\n"))
	case "crlf":
		opts = append(opts, output.WithLineTerminator("\r\n"))
	default:
		return nil, fmt.Errorf("unknown --line-ending %q", cfg.LineEnding)
	}

	return opts, nil
}
