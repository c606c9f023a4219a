package output

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/kndndrj/rowcsv/core"
	"github.com/kndndrj/rowcsv/core/format"
)

var ErrClosed = errors.New("csv writer is closed")

// Ownership tells whether CSVWriter is responsible for closing its sink.
type Ownership int

const (
	// BorrowedSink is never closed by the writer.
	BorrowedSink Ownership = iota
	// OwnedSink is opened by the writer and closed on Close.
	OwnedSink
)

// CSVWriter flattens rows and writes them as csv records.
// It is not safe for concurrent use.
type CSVWriter struct {
	sink      io.Writer
	ownership Ownership
	name      string

	encoder *format.Encoder
	config  *csvConfig

	headerWritten bool
	closed        bool
	rows          int
}

// NewCSV returns a writer which writes to w. w is never closed by the writer.
func NewCSV(w io.Writer, opts ...CSVOption) (*CSVWriter, error) {
	return newCSV(w, BorrowedSink, "", opts...)
}

// CreateCSV creates (or truncates) the file at path, together with any missing
// parent directories. The file is owned by the returned writer.
func CreateCSV(path string, opts ...CSVOption) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: os.MkdirAll: %w", core.ErrSink, err)
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("%w: os.Create: %w", core.ErrSink, err)
	}

	w, err := newCSV(file, OwnedSink, path, opts...)
	if err != nil {
		_ = file.Close()
		return nil, err
	}

	w.config.log.Debugf("opened %q for writing", path)
	return w, nil
}

// WriteCSVFile creates a writer for path, passes it to fn and closes it
// afterwards, even if fn fails.
func WriteCSVFile(path string, fn func(*CSVWriter) error, opts ...CSVOption) (err error) {
	w, err := CreateCSV(path, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return fn(w)
}

func newCSV(w io.Writer, ownership Ownership, name string, opts ...CSVOption) (*CSVWriter, error) {
	config := defaultCSVConfig()
	for _, opt := range opts {
		opt(config)
	}
	if config.dialectErr != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrConfiguration, config.dialectErr)
	}

	if config.charsetErr != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrConfiguration, config.charsetErr)
	}

	enc, err := format.NewEncoder(config.dialect)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrConfiguration, err)
	}

	return &CSVWriter{
		sink:      w,
		ownership: ownership,
		name:      name,
		encoder:   enc,
		config:    config,
	}, nil
}

func (cw *CSVWriter) Ownership() Ownership {
	return cw.ownership
}

// Rows returns the number of data records written so far.
func (cw *CSVWriter) Rows() int {
	return cw.rows
}

// WriteRow flattens a single row and writes it, preceded by the header
// if this is the first row.
func (cw *CSVWriter) WriteRow(row core.Row) error {
	if cw.closed {
		return fmt.Errorf("%w: %w", core.ErrSink, ErrClosed)
	}

	columns := core.Flatten(row, cw.config.prefix)

	if !cw.headerWritten {
		if err := cw.writeHeader(columns); err != nil {
			return err
		}
		cw.headerWritten = true
	}

	values := make([]any, len(columns))
	for i, col := range columns {
		f, ok := cw.config.fieldFormats[col.Key]
		if !ok {
			values[i] = col.Value
			continue
		}

		formatted, err := applyFieldFormat(f, col.Value)
		if err != nil {
			return fmt.Errorf("%w: column %q: %w", core.ErrFormatting, col.Key, err)
		}
		values[i] = formatted
	}

	if err := cw.write(values); err != nil {
		return err
	}

	cw.rows++
	return nil
}

func (cw *CSVWriter) writeHeader(columns core.ColumnSpec) error {
	if !cw.config.header {
		return nil
	}

	header := columns.Keys()
	if cw.config.customHeader != nil {
		if len(cw.config.customHeader) != len(columns) {
			return fmt.Errorf("%w: header/row length mismatch: header has %d columns, row has %d",
				core.ErrConfiguration, len(cw.config.customHeader), len(columns))
		}
		header = cw.config.customHeader
	}

	values := make([]any, len(header))
	for i, h := range header {
		values[i] = h
	}

	if err := cw.write(values); err != nil {
		return err
	}

	cw.config.log.Debugf("wrote header with %d columns", len(header))
	return nil
}

// write encodes and transcodes a whole record before it reaches the sink,
// so a failure leaves only complete records behind.
func (cw *CSVWriter) write(values []any) error {
	record, err := cw.encoder.Encode(values)
	if err != nil {
		return fmt.Errorf("%w: encoder.Encode: %w", core.ErrFormatting, err)
	}

	if cw.config.charset != nil {
		record, err = cw.config.charset.NewEncoder().Bytes(record)
		if err != nil {
			return fmt.Errorf("%w: transcoding record: %w", core.ErrFormatting, err)
		}
	}

	if _, err := cw.sink.Write(record); err != nil {
		return fmt.Errorf("%w: sink.Write: %w", core.ErrSink, err)
	}
	return nil
}

// WriteRows writes all rows in order. It stops at the first error.
func (cw *CSVWriter) WriteRows(rows []core.Row) error {
	for i, row := range rows {
		if err := cw.WriteRow(row); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}
	return nil
}

// WriteAll classifies each value with core.RowOf and writes it.
// Values can be entities, rows or plain scalars.
func (cw *CSVWriter) WriteAll(values []any) error {
	for i, v := range values {
		if err := cw.WriteRow(core.RowOf(v)); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}
	return nil
}

// WriteStream drains the stream one row at a time. The stream is closed on return.
// Errors produced by the stream are wrapped with core.ErrSource.
func (cw *CSVWriter) WriteStream(ctx context.Context, stream core.RowStream) error {
	defer stream.Close()

	for i := 0; stream.HasNext(); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		row, err := stream.Next()
		if err != nil {
			return fmt.Errorf("%w: row %d: %w", core.ErrSource, i, err)
		}
		if row == nil {
			continue
		}

		if err := cw.WriteRow(row); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}

	cw.config.log.Debugf("stream drained, %d rows written", cw.rows)
	return nil
}

// WriteChan writes rows received from a channel until it's closed or ctx is done.
func (cw *CSVWriter) WriteChan(ctx context.Context, rows <-chan core.Row) error {
	for i := 0; ; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case row, ok := <-rows:
			if !ok {
				return nil
			}
			if row == nil {
				continue
			}
			if err := cw.WriteRow(row); err != nil {
				return fmt.Errorf("row %d: %w", i, err)
			}
		}
	}
}

// Close closes the sink if it's owned by the writer. Records are never
// buffered, so a borrowed sink needs no further action.
// Calling Close multiple times is safe.
func (cw *CSVWriter) Close() error {
	if cw.closed {
		return nil
	}
	cw.closed = true

	closer, ok := cw.sink.(io.Closer)
	if !ok || cw.ownership != OwnedSink {
		return nil
	}

	if err := closer.Close(); err != nil {
		return fmt.Errorf("%w: %w", core.ErrSink, err)
	}
	cw.config.log.Debugf("closed %q after %d rows", cw.name, cw.rows)
	return nil
}
