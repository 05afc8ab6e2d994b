package dispatch

import "context"

// Request describes one call into the dispatcher as seen by middleware.
type Request struct {
	URL     string
	Partial Partial

	// Replay is set when the request is being replayed from the pending queue.
	Replay bool

	// EntryID is the pending entry ID for replays.
	EntryID string

	host Host
}

// Next continues the middleware chain.
type Next func(ctx context.Context, req *Request) Result

// Middleware wraps every routing call, including queue replays.
type Middleware interface {
	Handle(ctx context.Context, req *Request, next Next) Result
}

// MiddlewareFunc adapts a function to Middleware.
type MiddlewareFunc func(ctx context.Context, req *Request, next Next) Result

// Handle implements Middleware.
func (f MiddlewareFunc) Handle(ctx context.Context, req *Request, next Next) Result {
	return f(ctx, req, next)
}

// chain composes mws around final. The first middleware is outermost.
func chain(mws []Middleware, final Next) Next {
	next := final
	for i := len(mws) - 1; i >= 0; i-- {
		mw, inner := mws[i], next
		next = func(ctx context.Context, req *Request) Result {
			return mw.Handle(ctx, req, inner)
		}
	}
	return next
}

// QueueObserver is implemented by middleware that wants to see the pending
// queue depth whenever it changes.
type QueueObserver interface {
	ObserveQueueDepth(depth int)
}
