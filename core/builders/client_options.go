package builders

import "strings"

type clientConfig struct {
	typeProcessors map[string]func(any) any
}

type ClientOption func(*clientConfig)

// WithCustomTypeProcessor converts values of database type typ (case insensitive)
// before they are added to a row. The first processor registered for a type wins.
func WithCustomTypeProcessor(typ string, fn func(any) any) ClientOption {
	return func(cc *clientConfig) {
		t := strings.ToLower(typ)
		if _, ok := cc.typeProcessors[t]; ok {
			return
		}

		cc.typeProcessors[t] = fn
	}
}

// WithBytesProcessor registers fn for each of the types and calls it only
// for raw []byte values. Other values pass through unchanged.
func WithBytesProcessor(fn func([]byte) any, types ...string) ClientOption {
	proc := func(a any) any {
		b, ok := a.([]byte)
		if !ok {
			return a
		}
		return fn(b)
	}

	return func(cc *clientConfig) {
		for _, typ := range types {
			WithCustomTypeProcessor(typ, proc)(cc)
		}
	}
}
