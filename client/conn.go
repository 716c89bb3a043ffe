package client

import (
	"context"
	"database/sql"
)

// Conn is one dedicated database connection checked out of a *sql.DB.
// Pooling happens in pool.Pool; database/sql is only used as the bridge
// to the native driver.
type Conn struct {
	sc *sql.Conn
}

// Close returns the underlying connection to the driver.
func (c *Conn) Close() error { return c.sc.Close() }

// ExecContext runs a statement that returns no rows.
func (c *Conn) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.sc.ExecContext(ctx, query, args...)
}

// QueryContext runs a statement that returns rows.
func (c *Conn) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.sc.QueryContext(ctx, query, args...)
}
