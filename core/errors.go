package core

import "errors"

var (
	// ErrConfiguration is returned when writer configuration does not match the data,
	// e.g. custom header length differs from the number of columns.
	ErrConfiguration = errors.New("configuration error")
	// ErrFormatting is returned when a field format can't be applied to a value.
	ErrFormatting = errors.New("formatting error")
	// ErrSink is returned when writing to or closing the output fails.
	ErrSink = errors.New("sink error")
	// ErrSource is returned when the row source fails to produce the next row.
	ErrSource = errors.New("source error")
)
