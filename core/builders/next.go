package builders

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/kndndrj/rowcsv/core"
)

var ErrNoNextRow = errors.New("no next row")

// NextSingle creates next and hasNext functions from a provided single row
func NextSingle(row core.Row) (func() (core.Row, error), func() bool) {
	has := true

	// iterator functions
	next := func() (core.Row, error) {
		if !has {
			return nil, ErrNoNextRow
		}
		has = false
		return row, nil
	}

	hasNext := func() bool {
		return has
	}

	return next, hasNext
}

// NextSlice creates next and hasNext functions from provided values.
// preprocess converts a single value from slice to a row.
func NextSlice[T any](values []T, preprocess func(T) core.Row) (func() (core.Row, error), func() bool) {
	index := 0

	hasNext := func() bool {
		return index < len(values)
	}

	// iterator functions
	next := func() (core.Row, error) {
		if !hasNext() {
			return nil, ErrNoNextRow
		}

		row := preprocess(values[index])
		index++
		return row, nil
	}

	return next, hasNext
}

// NextNil creates next and hasNext functions that don't return anything (no rows)
func NextNil() (func() (core.Row, error), func() bool) {
	hasNext := func() bool {
		return false
	}

	// iterator functions
	next := func() (core.Row, error) {
		return nil, ErrNoNextRow
	}

	return next, hasNext
}

// NextYield runs fn in a separate goroutine and creates next and hasNext functions
// from the rows it yields. yield blocks until the row is consumed, so the producer
// never runs ahead of the consumer by more than one row.
//
// The returned stop function cancels the producer and waits for it to exit.
// An error returned by fn is reported once by next, after all yielded rows.
func NextYield(ctx context.Context, fn func(ctx context.Context, yield func(core.Row) error) error) (next func() (core.Row, error), hasNext func() bool, stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)

	ch := make(chan core.Row)

	g.Go(func() error {
		defer close(ch)
		return fn(gctx, func(row core.Row) error {
			if err := gctx.Err(); err != nil {
				return err
			}
			select {
			case ch <- row:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	})

	var (
		buffered    core.Row
		hasBuffered bool
		done        bool
		err         error
	)

	// fetch blocks until the producer yields a row or exits
	fetch := func() {
		if hasBuffered || done {
			return
		}
		row, ok := <-ch
		if !ok {
			done = true
			err = g.Wait()
			return
		}
		buffered, hasBuffered = row, true
	}

	hasNext = func() bool {
		fetch()
		return hasBuffered || err != nil
	}

	next = func() (core.Row, error) {
		fetch()
		if hasBuffered {
			row := buffered
			buffered, hasBuffered = nil, false
			return row, nil
		}
		if err != nil {
			e := err
			err = nil
			return nil, e
		}
		return nil, ErrNoNextRow
	}

	stop = func() {
		cancel()
		for range ch {
		}
		_ = g.Wait()
	}

	return next, hasNext, stop
}

// NewYieldStream is a shorthand for building a stream out of NextYield.
func NewYieldStream(ctx context.Context, header core.Header, fn func(ctx context.Context, yield func(core.Row) error) error) *ResultStream {
	next, hasNext, stop := NextYield(ctx, fn)

	return NewResultStreamBuilder().
		WithNextFunc(next, hasNext).
		WithHeader(header).
		WithCloseFunc(stop).
		Build()
}
