package mock

import (
	"errors"
	"time"

	"github.com/kndndrj/rowcsv/core"
)

var ErrNoNextRow = errors.New("no next row")

var _ core.RowStream = (*RowStream)(nil)

// RowStream is a mocked row stream serving rows from memory.
type RowStream struct {
	rows   []core.Row
	index  int
	closed int
	config *rowStreamConfig
}

// NewRowStream returns a mocked row stream with provided rows.
// Header is taken from the flattened first row, if not provided with options.
func NewRowStream(rows []core.Row, opts ...RowStreamOption) *RowStream {
	config := &rowStreamConfig{
		failAt: -1,
	}
	if len(rows) > 0 {
		config.header = core.Flatten(rows[0], false).Keys()
	}
	for _, opt := range opts {
		opt(config)
	}

	return &RowStream{
		rows:   rows,
		config: config,
	}
}

func (rs *RowStream) Header() core.Header {
	return rs.config.header
}

func (rs *RowStream) HasNext() bool {
	return rs.index < len(rs.rows)
}

func (rs *RowStream) Next() (core.Row, error) {
	time.Sleep(rs.config.nextSleep)

	if rs.index == rs.config.failAt {
		rs.index++
		return nil, rs.config.failErr
	}
	if !rs.HasNext() {
		return nil, ErrNoNextRow
	}

	row := rs.rows[rs.index]
	rs.index++
	return row, nil
}

func (rs *RowStream) Close() {
	rs.closed++
}

// Closed returns how many times Close was called.
func (rs *RowStream) Closed() int {
	return rs.closed
}

// Consumed returns the number of rows requested so far.
func (rs *RowStream) Consumed() int {
	return rs.index
}
