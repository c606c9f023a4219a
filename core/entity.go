package core

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

var ErrNotAStruct = errors.New("entity value is not a struct")

type (
	// Attribute is a single named value of an entity.
	Attribute struct {
		Name  string
		Value any
	}

	// Entity is a structured object whose attributes become flattened output columns.
	// Attributes must be returned in declared order.
	Entity interface {
		Kind() string
		Attributes() []Attribute
	}

	// Kinder can be implemented by structs wrapped with NewStructEntity
	// to override the kind name derived from the type.
	Kinder interface {
		EntityKind() string
	}
)

var _ Entity = (*MapEntity)(nil)

// MapEntity is an entity with explicitly provided kind and attributes.
type MapEntity struct {
	kind  string
	attrs []Attribute
}

func NewMapEntity(kind string, attrs ...Attribute) *MapEntity {
	return &MapEntity{
		kind:  kind,
		attrs: attrs,
	}
}

// Set replaces the value of an existing attribute or appends a new one.
func (e *MapEntity) Set(name string, value any) {
	for i := range e.attrs {
		if e.attrs[i].Name == name {
			e.attrs[i].Value = value
			return
		}
	}
	e.attrs = append(e.attrs, Attribute{Name: name, Value: value})
}

func (e *MapEntity) Kind() string {
	return e.kind
}

func (e *MapEntity) Attributes() []Attribute {
	out := make([]Attribute, len(e.attrs))
	copy(out, e.attrs)
	return out
}

var _ Entity = (*StructEntity)(nil)

// StructEntity exposes exported fields of a struct as entity attributes.
//
// Attribute names are taken from the "db" struct tag and default to the field
// name. Fields tagged with "-" are skipped and anonymous embedded structs are
// expanded in place.
type StructEntity struct {
	value reflect.Value
	kind  string
}

// NewStructEntity wraps a struct or a pointer to a struct. Pointers are
// dereferenced on every Attributes call, so the current values are returned.
func NewStructEntity(v any) (*StructEntity, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, fmt.Errorf("%w: nil %s", ErrNotAStruct, rv.Type())
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %T", ErrNotAStruct, v)
	}

	kind := rv.Type().Name()
	if k, ok := v.(Kinder); ok {
		kind = k.EntityKind()
	}

	return &StructEntity{
		value: reflect.ValueOf(v),
		kind:  kind,
	}, nil
}

// MustStructEntity is like NewStructEntity, but panics on error.
func MustStructEntity(v any) *StructEntity {
	e, err := NewStructEntity(v)
	if err != nil {
		panic(err)
	}
	return e
}

func (e *StructEntity) Kind() string {
	return e.kind
}

func (e *StructEntity) Attributes() []Attribute {
	rv := e.value
	for rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	return structAttributes(rv, nil)
}

func structAttributes(rv reflect.Value, out []Attribute) []Attribute {
	typ := rv.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		tag := field.Tag.Get("db")
		if tag == "-" || !field.IsExported() {
			continue
		}

		fv := rv.Field(i)
		if field.Anonymous && tag == "" {
			for fv.Kind() == reflect.Pointer {
				if fv.IsNil() {
					break
				}
				fv = fv.Elem()
			}
			if fv.Kind() == reflect.Struct {
				out = structAttributes(fv, out)
				continue
			}
		}

		name := field.Name
		if tag != "" {
			if n, _, _ := strings.Cut(tag, ","); n != "" {
				name = n
			}
		}

		out = append(out, Attribute{Name: name, Value: fv.Interface()})
	}
	return out
}
