package client

import "context"

// Component is the base interface for client extensions.
type Component interface {
	Name() string
	Init(c *Client) error
	Shutdown() error
}

// QueryFunc is the next step in the middleware chain: a rendered query
// plus its native arguments, returning the raw result set.
type QueryFunc func(ctx context.Context, query string, args []any) (*ResultSet, error)

// QueryMiddleware intercepts FetchAll executions. Middlewares run in the
// order they were registered; each may short-circuit (for example a cache
// hit) or delegate to next.
type QueryMiddleware interface {
	Component
	Process(ctx context.Context, query string, args []any, next QueryFunc) (*ResultSet, error)
}
