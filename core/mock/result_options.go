package mock

import (
	"time"

	"github.com/kndndrj/rowcsv/core"
)

type rowStreamConfig struct {
	nextSleep time.Duration
	header    core.Header
	failAt    int
	failErr   error
}

type RowStreamOption func(*rowStreamConfig)

func RowStreamWithNextSleep(s time.Duration) RowStreamOption {
	return func(c *rowStreamConfig) {
		c.nextSleep = s
	}
}

func RowStreamWithHeader(header core.Header) RowStreamOption {
	return func(c *rowStreamConfig) {
		c.header = header
	}
}

// RowStreamWithErrorAt makes Next return err instead of the row at index.
func RowStreamWithErrorAt(index int, err error) RowStreamOption {
	return func(c *rowStreamConfig) {
		c.failAt = index
		c.failErr = err
	}
}
