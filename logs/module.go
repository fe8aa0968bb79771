package logs

import "github.com/reusee/dscope"

type Module struct {
	dscope.Module
}

type Span string

type spanKey struct{}

// SpanKey is the context.Value key under which the current Span is stored.
var SpanKey = spanKey{}
