package core

type (
	// ColumnPair is a single flattened column.
	ColumnPair struct {
		Key   string
		Value any
	}

	// ColumnSpec holds the flattened columns of a single row in source order.
	ColumnSpec []ColumnPair
)

// Keys returns column keys in order.
func (cs ColumnSpec) Keys() Header {
	keys := make(Header, len(cs))
	for i, c := range cs {
		keys[i] = c.Key
	}
	return keys
}

// Values returns column values in order.
func (cs ColumnSpec) Values() []any {
	values := make([]any, len(cs))
	for i, c := range cs {
		values[i] = c.Value
	}
	return values
}

// Flatten expands a row into ordered key-value pairs.
// Entity attributes are keyed with "<kind>.<attribute>" when prefix is set.
// Non-entity columns are never prefixed and scalars get an empty key.
// A bare scalar row is therefore one column with an empty header cell,
// not zero columns, so its value is still written.
func Flatten(row Row, prefix bool) ColumnSpec {
	var out ColumnSpec
	for _, cell := range row {
		if e, ok := cell.Entity(); ok {
			out = appendEntity(out, e, prefix)
			continue
		}

		switch cell.Kind() {
		case CellColumn:
			out = append(out, ColumnPair{Key: cell.Name(), Value: cell.Value()})
		case CellScalar:
			out = append(out, ColumnPair{Value: cell.Value()})
		}
	}
	return out
}

func appendEntity(out ColumnSpec, e Entity, prefix bool) ColumnSpec {
	kind := e.Kind()
	for _, attr := range e.Attributes() {
		key := attr.Name
		if prefix {
			key = kind + "." + attr.Name
		}
		out = append(out, ColumnPair{Key: key, Value: attr.Value})
	}
	return out
}
