package client

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/asyncsql/asyncsql/core"
	"github.com/asyncsql/asyncsql/dialect"
	"github.com/asyncsql/asyncsql/logger"
	"github.com/asyncsql/asyncsql/pool"
)

// Options configures a Client.
type Options struct {
	Pool     pool.Options
	Logger   logger.Logger
	Encoders *core.Registry
}

// ResultSet is the raw shape rows come back in: column names and one
// []any per row holding strings (or nil for SQL NULL). Decoding into
// richer types is left to the caller.
type ResultSet struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Client executes statements against pooled dedicated connections.
type Client struct {
	db   *sql.DB
	pool *pool.Pool[*Conn]
	dial dialect.Dialect
	enc  *core.Registry
	log  logger.Logger
	mws  []QueryMiddleware
}

// Open builds a client for a registered driver/dialect pair. Each pool
// connection is a dedicated *sql.Conn checked out of a lazily-opened
// *sql.DB, so the pool in this package is the only layer doing reuse.
func Open(driver, dsn string, opts Options) (*Client, error) {
	d, ok := dialect.Get(driver)
	if !ok {
		return nil, fmt.Errorf("client: unknown dialect %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	// database/sql must not cache connections of its own.
	db.SetMaxIdleConns(0)
	db.SetMaxOpenConns(opts.Pool.MaxConnections)

	if opts.Logger == nil {
		opts.Logger = logger.NewStdLogger()
	}
	if opts.Encoders == nil {
		opts.Encoders = core.NewRegistry()
	}
	if opts.Pool.Logger == nil {
		opts.Pool.Logger = opts.Logger
	}

	factory := func(ctx context.Context) (*Conn, error) {
		sc, err := db.Conn(ctx)
		if err != nil {
			return nil, err
		}
		return &Conn{sc: sc}, nil
	}
	p, err := pool.New(factory, opts.Pool)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Client{
		db:   db,
		pool: p,
		dial: d,
		enc:  opts.Encoders,
		log:  opts.Logger,
	}, nil
}

// Encoders returns the registry used to resolve statement values.
func (c *Client) Encoders() *core.Registry { return c.enc }

// Dialect returns the dialect the client renders native queries for.
func (c *Client) Dialect() dialect.Dialect { return c.dial }

// Stats exposes the underlying pool counters.
func (c *Client) Stats() pool.Stats { return c.pool.Stats() }

// Use registers a middleware on the FetchAll path after initializing it.
func (c *Client) Use(mw QueryMiddleware) error {
	if err := mw.Init(c); err != nil {
		return err
	}
	c.mws = append(c.mws, mw)
	return nil
}

// Execute renders the statement natively and runs it, returning the
// number of affected rows.
func (c *Client) Execute(ctx context.Context, st *core.Statement) (int64, error) {
	query, args, err := st.RenderNative(c.dial, c.enc)
	if err != nil {
		return 0, err
	}
	pc, err := c.pool.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer c.pool.Release(pc)

	start := time.Now()
	res, err := pc.Conn().ExecContext(ctx, query, args...)
	c.log.SQL(query, time.Since(start), args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		// Some drivers cannot report this; the execution itself succeeded.
		return 0, nil
	}
	return n, nil
}

// FetchAll renders the statement natively, runs it through the middleware
// chain and materializes every row.
func (c *Client) FetchAll(ctx context.Context, st *core.Statement) (*ResultSet, error) {
	query, args, err := st.RenderNative(c.dial, c.enc)
	if err != nil {
		return nil, err
	}
	handler := QueryFunc(c.runQuery)
	for i := len(c.mws) - 1; i >= 0; i-- {
		mw, next := c.mws[i], handler
		handler = func(ctx context.Context, query string, args []any) (*ResultSet, error) {
			return mw.Process(ctx, query, args, next)
		}
	}
	return handler(ctx, query, args)
}

func (c *Client) runQuery(ctx context.Context, query string, args []any) (*ResultSet, error) {
	pc, err := c.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer c.pool.Release(pc)

	start := time.Now()
	rows, err := pc.Conn().QueryContext(ctx, query, args...)
	c.log.SQL(query, time.Since(start), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	rs := &ResultSet{Columns: cols}
	for rows.Next() {
		raw := make([]sql.RawBytes, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make([]any, len(cols))
		for i, rb := range raw {
			if rb == nil {
				row[i] = nil
			} else {
				row[i] = string(rb)
			}
		}
		rs.Rows = append(rs.Rows, row)
	}
	// A cursor that broke partway through yields no result at all; a
	// partial set would be indistinguishable from a complete one.
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rs, nil
}

// Close shuts middlewares down, closes the pool and the underlying
// database handle. Safe to call more than once.
func (c *Client) Close() error {
	var firstErr error
	for _, mw := range c.mws {
		if err := mw.Shutdown(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.mws = nil
	if err := c.pool.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := c.db.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
