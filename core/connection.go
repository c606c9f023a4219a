package core

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type ConnectionID string

// Connection is an opened database described by ConnectionParams.
type Connection struct {
	params           *ConnectionParams
	unexpandedParams *ConnectionParams

	driver Driver
}

func NewConnection(params *ConnectionParams, adapter Adapter) (*Connection, error) {
	expanded, err := params.Expand()
	if err != nil {
		return nil, fmt.Errorf("params.Expand: %w", err)
	}

	if expanded.ID == "" {
		expanded.ID = ConnectionID(uuid.New().String())
	}

	driver, err := adapter.Connect(expanded.URL)
	if err != nil {
		return nil, fmt.Errorf("adapter.Connect: %w", err)
	}

	return &Connection{
		params:           expanded,
		unexpandedParams: params,

		driver: driver,
	}, nil
}

func (c *Connection) GetID() ConnectionID {
	return c.params.ID
}

func (c *Connection) GetType() string {
	return c.params.Type
}

// GetParams returns the parameters before expansion, safe to log
// since expanded secrets are not part of them.
func (c *Connection) GetParams() *ConnectionParams {
	return c.unexpandedParams
}

// Query executes a query returning rows of named columns.
func (c *Connection) Query(ctx context.Context, query string, args ...any) (RowStream, error) {
	rows, err := c.driver.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("driver.Query: %w", err)
	}
	return rows, nil
}

// QueryEntities executes a query returning one entity of the given kind per row.
func (c *Connection) QueryEntities(ctx context.Context, kind string, query string, args ...any) (RowStream, error) {
	rows, err := c.driver.QueryEntities(ctx, kind, query, args...)
	if err != nil {
		return nil, fmt.Errorf("driver.QueryEntities: %w", err)
	}
	return rows, nil
}

// Exec executes a statement which doesn't return rows, e.g. a schema migration.
func (c *Connection) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	affected, err := c.driver.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("driver.Exec: %w", err)
	}
	return affected, nil
}

func (c *Connection) Close() {
	c.driver.Close()
}
