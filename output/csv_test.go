package output_test

import (
	"bytes"
	"context"
	"database/sql/driver"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kndndrj/rowcsv/core"
	"github.com/kndndrj/rowcsv/core/builders"
	"github.com/kndndrj/rowcsv/core/format"
	"github.com/kndndrj/rowcsv/core/mock"
	"github.com/kndndrj/rowcsv/output"
)

const (
	expectedWithHeader = `"id","name","value"
"1","mary","12.31"
"2","joe","12.31"
"3","susan","12.31"
`
	expectedWithoutHeader = `"1","mary","12.31"
"2","joe","12.31"
"3","susan","12.31"
`
	expectedPrefixedFormatted = `"User.id","User.name","User.value"
"1","mary","12.3"
"2","joe","12.3"
"3","susan","12.3"
`
	expectedDuplicate = `"id","name","value","id","name","value"
"1","mary","12.31","1","mary","12.31"
"2","joe","12.31","2","joe","12.31"
"3","susan","12.31","3","susan","12.31"
`
)

func TestCSVWriter_WriteRows(t *testing.T) {
	users := mock.NewUsers()

	type testCase struct {
		name     string
		rows     []core.Row
		opts     []output.CSVOption
		expected string
	}

	testCases := []testCase{
		{
			name: "entities with prefixed header and formatting",
			rows: mock.EntityRows(users),
			opts: []output.CSVOption{
				output.WithPrefixModelNames(true),
				output.WithFieldFormats(map[string]string{"User.value": "%.1f"}),
			},
			expected: expectedPrefixedFormatted,
		},
		{
			name:     "columns with header",
			rows:     mock.ColumnRows(users, false),
			expected: expectedWithHeader,
		},
		{
			name:     "columns without header",
			rows:     mock.ColumnRows(users, false),
			opts:     []output.CSVOption{output.WithHeader(false)},
			expected: expectedWithoutHeader,
		},
		{
			name:     "duplicate entity columns",
			rows:     mock.ColumnRows(users, true),
			opts:     []output.CSVOption{output.WithHeader(true)},
			expected: expectedDuplicate,
		},
		{
			name:     "plain named columns",
			rows:     []core.Row{core.Classify(core.Header{"id", "name", "value"}, []any{1, "mary", 12.31})},
			expected: "\"id\",\"name\",\"value\"\n\"1\",\"mary\",\"12.31\"\n",
		},
		{
			name: "prefixing leaves plain columns untouched",
			rows: []core.Row{{
				core.Column("total", 2),
				core.Column("User", core.MustStructEntity(users[0])),
			}},
			opts:     []output.CSVOption{output.WithPrefixModelNames(true)},
			expected: "\"total\",\"User.id\",\"User.name\",\"User.value\"\n\"2\",\"1\",\"mary\",\"12.31\"\n",
		},
		{
			name: "custom header",
			rows: mock.EntityRows(users[:1]),
			opts: []output.CSVOption{
				output.WithCustomHeader(core.Header{"ID", "Name", "Value"}),
				output.WithFieldFormat("value", "%08.3f"),
			},
			expected: "\"ID\",\"Name\",\"Value\"\n\"1\",\"mary\",\"0012.310\"\n",
		},
		{
			name: "integer format truncates floats",
			rows: mock.EntityRows(users[:1]),
			opts: []output.CSVOption{
				output.WithHeader(false),
				output.WithFieldFormat("value", "%d"),
			},
			expected: "\"1\",\"mary\",\"12\"\n",
		},
		{
			name: "floats are never written in exponent form",
			rows: []core.Row{core.Classify(
				core.Header{"amount", "whole", "small"},
				[]any{1500000.0, 100.0, 123456789.0},
			)},
			expected: "\"amount\",\"whole\",\"small\"\n\"1500000.0\",\"100.0\",\"123456789.0\"\n",
		},
		{
			name: "later rows don't change the header",
			rows: []core.Row{
				core.Classify(core.Header{"a"}, []any{1}),
				core.Classify(core.Header{"b", "c"}, []any{2, 3}),
			},
			expected: "\"a\"\n\"1\"\n\"2\",\"3\"\n",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := require.New(t)

			b := new(bytes.Buffer)
			opts := append([]output.CSVOption{output.WithDialectName("unix")}, tc.opts...)
			w, err := output.NewCSV(b, opts...)
			r.NoError(err)

			r.NoError(w.WriteRows(tc.rows))
			r.NoError(w.Close())

			r.Equal(tc.expected, b.String())
			r.Equal(len(tc.rows), w.Rows())
		})
	}
}

func TestCSVWriter_WriteAll(t *testing.T) {
	r := require.New(t)

	var values []any
	for _, u := range mock.NewUsers() {
		values = append(values, core.MustStructEntity(u))
	}

	b := new(bytes.Buffer)
	w, err := output.NewCSV(b, output.WithDialect(format.Unix))
	r.NoError(err)

	r.NoError(w.WriteAll(values))
	r.Equal(expectedWithHeader, b.String())
}

func TestCSVWriter_DefaultDialect(t *testing.T) {
	r := require.New(t)

	b := new(bytes.Buffer)
	w, err := output.NewCSV(b)
	r.NoError(err)

	r.NoError(w.WriteRows(mock.ColumnRows(mock.NewUsers()[:1], false)))
	r.Equal("id,name,value\r\n1,mary,12.31\r\n", b.String())
}

func TestCSVWriter_DialectOptions(t *testing.T) {
	r := require.New(t)

	b := new(bytes.Buffer)
	w, err := output.NewCSV(b,
		output.WithDialectName("excel"),
		output.WithDelimiter(';'),
		output.WithQuoteChar('\''),
		output.WithQuoting(format.QuoteNonNumeric),
		output.WithLineTerminator("\n"),
	)
	r.NoError(err)

	r.NoError(w.WriteRows(mock.NewRows(0, 2)))
	r.Equal("'id';'name'\n0;'row_0'\n1;'row_1'\n", b.String())

	_, err = output.NewCSV(b, output.WithDialectName("nope"))
	r.ErrorIs(err, core.ErrConfiguration)
	r.ErrorIs(err, format.ErrUnknownDialect)

	_, err = output.NewCSV(b, output.WithDelimiter('"'))
	r.ErrorIs(err, core.ErrConfiguration)
}

func TestCSVWriter_CustomHeaderMismatch(t *testing.T) {
	r := require.New(t)

	b := new(bytes.Buffer)
	w, err := output.NewCSV(b, output.WithCustomHeader(core.Header{"only", "two"}))
	r.NoError(err)

	err = w.WriteRows(mock.EntityRows(mock.NewUsers()))
	r.ErrorIs(err, core.ErrConfiguration)
	r.Empty(b.String())
	r.Equal(0, w.Rows())
}

func TestCSVWriter_FormattingError(t *testing.T) {
	r := require.New(t)

	b := new(bytes.Buffer)
	w, err := output.NewCSV(b,
		output.WithDialect(format.Unix),
		output.WithFieldFormat("name", "%d"),
	)
	r.NoError(err)

	err = w.WriteRows(mock.EntityRows(mock.NewUsers()))
	r.ErrorIs(err, core.ErrFormatting)

	// header is already out, the failing row is not
	r.Equal("\"id\",\"name\",\"value\"\n", b.String())
}

func TestCSVWriter_FormatIsPure(t *testing.T) {
	r := require.New(t)

	row := core.Classify(core.Header{"v"}, []any{2.345})

	b := new(bytes.Buffer)
	w, err := output.NewCSV(b,
		output.WithHeader(false),
		output.WithFieldFormat("v", "%.2f"),
		output.WithLineTerminator("\n"),
	)
	r.NoError(err)

	r.NoError(w.WriteRows([]core.Row{row, row, row}))
	r.Equal("2.35\n2.35\n2.35\n", b.String())
}

type failingWriter struct {
	after int
	n     int
}

func (fw *failingWriter) Write(p []byte) (int, error) {
	if fw.n >= fw.after {
		return 0, errors.New("disk full")
	}
	fw.n++
	return len(p), nil
}

func TestCSVWriter_SinkError(t *testing.T) {
	r := require.New(t)

	w, err := output.NewCSV(&failingWriter{after: 2})
	r.NoError(err)

	err = w.WriteRows(mock.NewRows(0, 5))
	r.ErrorIs(err, core.ErrSink)
	r.ErrorContains(err, "disk full")
	// header and the first row made it
	r.Equal(1, w.Rows())
}

func TestCSVWriter_WriteStream(t *testing.T) {
	r := require.New(t)

	stream := mock.NewRowStream(
		mock.ColumnRows(mock.NewUsers(), false),
		mock.RowStreamWithNextSleep(10*time.Millisecond),
		// header is generated from the flattened rows, not from the stream
		mock.RowStreamWithHeader(core.Header{"User"}),
	)

	b := new(bytes.Buffer)
	w, err := output.NewCSV(b, output.WithDialectName("unix"))
	r.NoError(err)

	r.NoError(w.WriteStream(context.Background(), stream))
	r.Equal(expectedWithHeader, b.String())
	r.Equal(1, stream.Closed())
}

func TestCSVWriter_WriteStream_SourceError(t *testing.T) {
	r := require.New(t)

	expectedErr := errors.New("connection reset")
	stream := mock.NewRowStream(
		mock.EntityRows(mock.NewUsers()),
		mock.RowStreamWithErrorAt(1, expectedErr),
	)

	b := new(bytes.Buffer)
	w, err := output.NewCSV(b, output.WithDialectName("unix"))
	r.NoError(err)

	err = w.WriteStream(context.Background(), stream)
	r.ErrorIs(err, core.ErrSource)
	r.ErrorIs(err, expectedErr)

	r.Equal("\"id\",\"name\",\"value\"\n\"1\",\"mary\",\"12.31\"\n", b.String())
	r.Equal(1, stream.Closed())
	r.Equal(2, stream.Consumed())
}

func TestCSVWriter_WriteStream_Canceled(t *testing.T) {
	r := require.New(t)

	stream := mock.NewRowStream(mock.NewRows(0, 10))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w, err := output.NewCSV(new(bytes.Buffer))
	r.NoError(err)

	err = w.WriteStream(ctx, stream)
	r.ErrorIs(err, context.Canceled)
	r.Equal(0, stream.Consumed())
	r.Equal(1, stream.Closed())
}

func TestCSVWriter_WriteChan(t *testing.T) {
	r := require.New(t)

	rows := make(chan core.Row)
	go func() {
		defer close(rows)
		for _, row := range mock.EntityRows(mock.NewUsers()) {
			rows <- row
			// nil rows are skipped
			rows <- nil
		}
	}()

	b := new(bytes.Buffer)
	w, err := output.NewCSV(b, output.WithDialectName("unix"), output.WithHeader(false))
	r.NoError(err)

	r.NoError(w.WriteChan(context.Background(), rows))
	r.Equal(expectedWithoutHeader, b.String())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	r.ErrorIs(w.WriteChan(ctx, make(chan core.Row)), context.DeadlineExceeded)
}

func TestCSVWriter_WriteStream_SkipsNilRows(t *testing.T) {
	r := require.New(t)

	users := mock.EntityRows(mock.NewUsers())
	stream := mock.NewRowStream([]core.Row{users[0], nil, users[1], users[2], nil})

	b := new(bytes.Buffer)
	w, err := output.NewCSV(b, output.WithDialectName("unix"))
	r.NoError(err)

	r.NoError(w.WriteStream(context.Background(), stream))
	r.Equal(expectedWithHeader, b.String())
	r.Equal(3, w.Rows())
}

func yieldUsers(fail error) func(context.Context, func(core.Row) error) error {
	return func(ctx context.Context, yield func(core.Row) error) error {
		for _, row := range mock.EntityRows(mock.NewUsers()) {
			if err := yield(row); err != nil {
				return err
			}
		}
		return fail
	}
}

func TestCSVWriter_WriteStream_YieldStream(t *testing.T) {
	r := require.New(t)

	closed := 0
	stream := builders.NewYieldStream(context.Background(), nil, yieldUsers(nil))
	stream.SetCallback(func() { closed++ })

	b := new(bytes.Buffer)
	w, err := output.NewCSV(b, output.WithDialectName("unix"))
	r.NoError(err)

	r.NoError(w.WriteStream(context.Background(), stream))
	r.Equal(expectedWithHeader, b.String())
	r.Equal(1, closed)
}

func TestCSVWriter_WriteStream_YieldStreamError(t *testing.T) {
	r := require.New(t)

	expectedErr := errors.New("cursor lost")
	closed := 0
	stream := builders.NewYieldStream(context.Background(), nil, yieldUsers(expectedErr))
	stream.SetCallback(func() { closed++ })

	b := new(bytes.Buffer)
	w, err := output.NewCSV(b, output.WithDialectName("unix"))
	r.NoError(err)

	err = w.WriteStream(context.Background(), stream)
	r.ErrorIs(err, core.ErrSource)
	r.ErrorIs(err, expectedErr)
	r.ErrorContains(err, "row 3")

	// rows yielded before the failure are kept
	r.Equal(expectedWithHeader, b.String())
	r.Equal(3, w.Rows())
	r.Equal(1, closed)
}

// cancelingWriter cancels a context once it received n writes.
type cancelingWriter struct {
	bytes.Buffer
	n      int
	cancel context.CancelFunc
}

func (cw *cancelingWriter) Write(p []byte) (int, error) {
	cw.n--
	if cw.n == 0 {
		cw.cancel()
	}
	return cw.Buffer.Write(p)
}

func TestCSVWriter_WriteStream_YieldStreamCanceled(t *testing.T) {
	r := require.New(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// producer never stops on its own, it blocks in yield until canceled
	produced := 0
	stream := builders.NewYieldStream(ctx, nil, func(ctx context.Context, yield func(core.Row) error) error {
		for i := 0; ; i++ {
			if err := yield(core.Classify(core.Header{"n"}, []any{i})); err != nil {
				return err
			}
			produced++
		}
	})
	closed := 0
	stream.SetCallback(func() { closed++ })

	// header and the first row
	sink := &cancelingWriter{n: 2, cancel: cancel}
	w, err := output.NewCSV(sink, output.WithDialectName("unix"))
	r.NoError(err)

	err = w.WriteStream(ctx, stream)
	r.ErrorIs(err, context.Canceled)

	r.Equal("\"n\"\n\"0\"\n", sink.String())
	r.Equal(1, w.Rows())
	// stream is closed and the producer has exited
	r.Equal(1, closed)
	r.LessOrEqual(produced, 2)
}

func TestCSVWriter_EncodingKeepsCompleteRecords(t *testing.T) {
	r := require.New(t)

	b := new(bytes.Buffer)
	w, err := output.NewCSV(b,
		output.WithDialectName("unix"),
		output.WithEncoding("windows-1252"),
	)
	r.NoError(err)

	header := core.Header{"a", "b"}
	r.NoError(w.WriteRow(core.Classify(header, []any{"ok", "fine"})))

	err = w.WriteRow(core.Classify(header, []any{"good", "日本"}))
	r.ErrorIs(err, core.ErrFormatting)
	r.Equal("\"a\",\"b\"\n\"ok\",\"fine\"\n", b.String())

	// the writer stays usable after a rejected record
	r.NoError(w.WriteRow(core.Classify(header, []any{"still", "ok"})))
	r.Equal("\"a\",\"b\"\n\"ok\",\"fine\"\n\"still\",\"ok\"\n", b.String())
	r.Equal(2, w.Rows())
}

type failingValuer struct{}

func (failingValuer) Value() (driver.Value, error) {
	return nil, errors.New("cannot convert")
}

func TestCSVWriter_ValuerError(t *testing.T) {
	r := require.New(t)

	b := new(bytes.Buffer)
	w, err := output.NewCSV(b, output.WithDialectName("unix"), output.WithHeader(false))
	r.NoError(err)

	err = w.WriteRow(core.Row{core.Column("ok", 1), core.Column("v", failingValuer{})})
	r.ErrorIs(err, core.ErrFormatting)
	r.ErrorContains(err, "cannot convert")
	r.Empty(b.String())
	r.Equal(0, w.Rows())
}

type trackingCloser struct {
	bytes.Buffer
	closed int
}

func (tc *trackingCloser) Close() error {
	tc.closed++
	return nil
}

func TestCSVWriter_BorrowedSinkIsNotClosed(t *testing.T) {
	r := require.New(t)

	sink := new(trackingCloser)
	w, err := output.NewCSV(sink)
	r.NoError(err)
	r.Equal(output.BorrowedSink, w.Ownership())

	r.NoError(w.WriteRows(mock.NewRows(0, 1)))
	r.NoError(w.Close())
	r.NoError(w.Close())

	r.Equal(0, sink.closed)

	err = w.WriteRow(mock.NewRows(1, 2)[0])
	r.ErrorIs(err, output.ErrClosed)
	r.ErrorIs(err, core.ErrSink)
}

func TestCreateCSV(t *testing.T) {
	r := require.New(t)

	path := filepath.Join(t.TempDir(), "nested", "dir", "test.csv")

	w, err := output.CreateCSV(path, output.WithDialectName("unix"))
	r.NoError(err)
	r.Equal(output.OwnedSink, w.Ownership())

	r.NoError(w.WriteRows(mock.EntityRows(mock.NewUsers())))
	r.NoError(w.Close())
	// second close is a no-op
	r.NoError(w.Close())

	got, err := os.ReadFile(path)
	r.NoError(err)
	r.Equal(expectedWithHeader, string(got))
}

func TestWriteCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "test.csv")

	err := output.WriteCSVFile(path, func(w *output.CSVWriter) error {
		return w.WriteRows(mock.EntityRows(mock.NewUsers()))
	}, output.WithDialectName("unix"), output.WithHeader(false))
	require.NoError(t, err)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, expectedWithoutHeader, string(got))

	// file is closed and partial output kept even if writing fails
	expectedErr := errors.New("upstream failure")
	err = output.WriteCSVFile(path, func(w *output.CSVWriter) error {
		if err := w.WriteRows(mock.EntityRows(mock.NewUsers()[:1])); err != nil {
			return err
		}
		return expectedErr
	}, output.WithDialectName("unix"))
	require.ErrorIs(t, err, expectedErr)

	got, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "\"id\",\"name\",\"value\"\n\"1\",\"mary\",\"12.31\"\n", string(got))
}

func TestCreateCSV_InvalidPath(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	_, err := output.CreateCSV(filepath.Join(blocker, "test.csv"))
	require.ErrorIs(t, err, core.ErrSink)
}

func TestCSVWriter_Encoding(t *testing.T) {
	r := require.New(t)

	var buf bytes.Buffer
	w, err := output.NewCSV(&buf,
		output.WithDialectName("unix"),
		output.WithEncoding("windows-1252"),
	)
	r.NoError(err)

	r.NoError(w.WriteRow(core.Row{core.Column("name", "café")}))
	r.NoError(w.Close())

	r.Equal([]byte("\"name\"\n\"caf\xe9\"\n"), buf.Bytes())
}

func TestCSVWriter_EncodingUTF8(t *testing.T) {
	r := require.New(t)

	var buf bytes.Buffer
	w, err := output.NewCSV(&buf, output.WithEncoding("UTF-8"))
	r.NoError(err)

	r.NoError(w.WriteRow(core.Row{core.Column("name", "café")}))
	r.NoError(w.Close())

	r.Equal("name\r\ncafé\r\n", buf.String())
}

func TestCSVWriter_UnknownEncoding(t *testing.T) {
	_, err := output.NewCSV(&bytes.Buffer{}, output.WithEncoding("klingon"))
	require.ErrorIs(t, err, core.ErrConfiguration)
}
