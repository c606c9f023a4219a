package builders

import (
	"context"
	"database/sql"
	"strings"

	"github.com/kndndrj/rowcsv/core"
)

var _ core.Driver = (*Client)(nil)

// default sql client used by other specific implementations
type Client struct {
	db             *sql.DB
	typeProcessors map[string]func(any) any
}

func NewClient(db *sql.DB, opts ...ClientOption) *Client {
	config := clientConfig{
		typeProcessors: make(map[string]func(any) any),
	}
	for _, opt := range opts {
		opt(&config)
	}

	return &Client{
		db:             db,
		typeProcessors: config.typeProcessors,
	}
}

func (c *Client) Close() {
	c.db.Close()
}

func (c *Client) getTypeProcessor(typ string) func(any) any {
	proc, ok := c.typeProcessors[strings.ToLower(typ)]
	if ok {
		return proc
	}

	return func(val any) any {
		valb, ok := val.([]byte)
		if ok {
			return string(valb)
		}
		return val
	}
}

// Exec executes a query and returns the number of affected rows.
func (c *Client) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

// Query executes a query and returns a stream of rows with named columns.
func (c *Client) Query(ctx context.Context, query string, args ...any) (core.RowStream, error) {
	rows, err := c.query(ctx, query, args, func(header core.Header, values []any) core.Row {
		return core.Classify(header, values)
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// QueryEntities executes a query and returns a stream of rows, each holding
// a single entity of the provided kind with the selected columns as attributes.
func (c *Client) QueryEntities(ctx context.Context, kind string, query string, args ...any) (core.RowStream, error) {
	rows, err := c.query(ctx, query, args, func(header core.Header, values []any) core.Row {
		attrs := make([]core.Attribute, len(values))
		for i := range values {
			attrs[i] = core.Attribute{Name: header[i], Value: values[i]}
		}
		return core.RowOf(core.NewMapEntity(kind, attrs...))
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) query(ctx context.Context, query string, args []any, build func(core.Header, []any) core.Row) (*ResultStream, error) {
	dbRows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	header, err := dbRows.Columns()
	if err != nil {
		_ = dbRows.Close()
		return nil, err
	}

	dbCols, err := dbRows.ColumnTypes()
	if err != nil {
		_ = dbRows.Close()
		return nil, err
	}

	processors := make([]func(any) any, len(dbCols))
	for i := range dbCols {
		processors[i] = c.getTypeProcessor(dbCols[i].DatabaseTypeName())
	}

	// hasNext advances the cursor, so it has to be idempotent until next is called
	advanced, has := false, false
	hasNextFunc := func() bool {
		if advanced {
			return has
		}
		advanced = true
		has = dbRows.Next()
		return has
	}

	nextFunc := func() (core.Row, error) {
		if !hasNextFunc() {
			if err := dbRows.Err(); err != nil {
				return nil, err
			}
			return nil, ErrNoNextRow
		}
		advanced = false

		columns := make([]any, len(dbCols))
		columnPointers := make([]any, len(dbCols))
		for i := range columns {
			columnPointers[i] = &columns[i]
		}

		if err := dbRows.Scan(columnPointers...); err != nil {
			return nil, err
		}

		for i := range columns {
			columns[i] = processors[i](columns[i])
		}

		return build(header, columns), nil
	}

	// surface iteration errors (e.g. broken connection) instead of silently stopping
	hasNextOrErr := func() bool {
		return hasNextFunc() || dbRows.Err() != nil
	}

	rows := NewResultStreamBuilder().
		WithNextFunc(nextFunc, hasNextOrErr).
		WithHeader(header).
		WithCloseFunc(func() {
			_ = dbRows.Close()
		}).
		Build()

	return rows, nil
}
