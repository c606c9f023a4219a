package core

import "context"

type CellKind int

const (
	CellScalar CellKind = iota
	CellColumn
	CellEntity
)

func (k CellKind) String() string {
	switch k {
	case CellScalar:
		return "scalar"
	case CellColumn:
		return "column"
	case CellEntity:
		return "entity"
	default:
		return ""
	}
}

type (
	// Cell is a single element of a row. It is either an unnamed scalar,
	// a named column or an entity whose attributes are expanded into columns.
	Cell struct {
		kind   CellKind
		name   string
		value  any
		entity Entity
	}

	// Row is one unit of query output which is rendered as one record.
	Row []Cell

	// Header holds column names.
	Header []string

	// RowStream is a result from an executed query and has a form of an iterator.
	RowStream interface {
		Header() Header
		Next() (Row, error)
		HasNext() bool
		Close()
	}
)

// Scalar returns an unnamed cell.
func Scalar(value any) Cell {
	if e, ok := value.(Entity); ok {
		return EntityCell(e)
	}
	return Cell{kind: CellScalar, value: value}
}

// Column returns a named cell. Entity values keep the name, but are
// expanded during flattening.
func Column(name string, value any) Cell {
	c := Cell{kind: CellColumn, name: name, value: value}
	if e, ok := value.(Entity); ok {
		c.entity = e
	}
	return c
}

// EntityCell returns a cell holding a bare entity.
func EntityCell(e Entity) Cell {
	return Cell{kind: CellEntity, entity: e}
}

func (c Cell) Kind() CellKind { return c.kind }

func (c Cell) Name() string { return c.name }

func (c Cell) Value() any {
	if c.entity != nil {
		return c.entity
	}
	return c.value
}

// Entity returns the entity held by the cell, if any.
func (c Cell) Entity() (Entity, bool) {
	return c.entity, c.entity != nil
}

// Classify builds a row out of named values. Values implementing Entity
// are classified as nested entities. Values past the end of header are
// added as scalars.
func Classify(header Header, values []any) Row {
	row := make(Row, 0, len(values))
	for i, v := range values {
		if i < len(header) {
			row = append(row, Column(header[i], v))
			continue
		}
		row = append(row, Scalar(v))
	}
	return row
}

// RowOf classifies a single value produced by a query layer.
func RowOf(value any) Row {
	switch v := value.(type) {
	case Row:
		return v
	case Cell:
		return Row{v}
	case Entity:
		return Row{EntityCell(v)}
	default:
		return Row{Scalar(v)}
	}
}

type (
	// Driver is an interface for a specific database driver
	Driver interface {
		// Query returns rows of named columns.
		Query(ctx context.Context, query string, args ...any) (RowStream, error)
		// QueryEntities returns rows holding a single entity of provided kind.
		QueryEntities(ctx context.Context, kind string, query string, args ...any) (RowStream, error)
		// Exec executes a statement and returns the number of affected rows.
		Exec(ctx context.Context, query string, args ...any) (int64, error)
		Close()
	}

	// Adapter is an object which allows to connect to database via url
	Adapter interface {
		Connect(url string) (Driver, error)
	}
)
