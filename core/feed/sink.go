package feed

import (
	"context"
	"iter"
)

// ErrorHandler decides what a sink does when pushing fails. attempt starts
// at 1 for the first failure of a given unit of work. Returning true asks the
// sink to retry.
type ErrorHandler interface {
	HandleError(ctx context.Context, err error, attempt int) bool
}

// ErrorHandlerFunc adapts a function to ErrorHandler.
type ErrorHandlerFunc func(ctx context.Context, err error, attempt int) bool

// HandleError calls f.
func (f ErrorHandlerFunc) HandleError(ctx context.Context, err error, attempt int) bool {
	return f(ctx, err, attempt)
}

// NeverRetry is the handler used when none is supplied.
var NeverRetry ErrorHandler = ErrorHandlerFunc(func(context.Context, error, int) bool { return false })

// Sink consumes one batch synchronously. items yields the batch in enqueue
// order and must not be retained after Push returns.
//
// Push returns nil, nil when every item was accepted. Otherwise it may
// return the first item it could not process; the dispatcher does not act on
// it. An error returned while ctx is cancelled is treated as a cancelled
// sink call and ends the worker session.
type Sink[T any] interface {
	Push(ctx context.Context, items iter.Seq[T], handler ErrorHandler) (*T, error)
}

// SinkFunc adapts a function to Sink.
type SinkFunc[T any] func(ctx context.Context, items iter.Seq[T], handler ErrorHandler) (*T, error)

// Push calls f.
func (f SinkFunc[T]) Push(ctx context.Context, items iter.Seq[T], handler ErrorHandler) (*T, error) {
	return f(ctx, items, handler)
}
