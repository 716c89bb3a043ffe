// Package asyncsql is the runtime core of an asynchronous SQL database
// client: a bounded connection pool with lifetime management and a
// statement engine that binds positional and named parameters over raw
// SQL and renders either injection-safe inline text or dialect-specific
// native queries.
package asyncsql

import (
	"github.com/asyncsql/asyncsql/client"
	"github.com/asyncsql/asyncsql/core"
	"github.com/asyncsql/asyncsql/pool"
)

// Re-export core types and functions
type (
	Statement       = core.Statement
	DollarStatement = core.DollarStatement
	Registry        = core.Registry
	Encoder         = core.Encoder
	EncoderFunc     = core.EncoderFunc
	Error           = core.Error
	ErrorCode       = core.ErrorCode
)

var (
	NewStatement       = core.NewStatement
	NewDollarStatement = core.NewDollarStatement
	NewRegistry        = core.NewRegistry
	EncodeLiteral      = core.EncodeLiteral
	ResolveNative      = core.ResolveNative

	ErrPoolClosed   = core.ErrPoolClosed
	ErrPoolTimedOut = core.ErrPoolTimedOut
)

// Re-export the pool surface
type (
	Pool[C pool.Connection]   = pool.Pool[C]
	Pooled[C pool.Connection] = pool.Pooled[C]
	PoolOptions               = pool.Options
	PoolStats                 = pool.Stats
)

// Re-export the client surface
type (
	Client        = client.Client
	ClientOptions = client.Options
	ResultSet     = client.ResultSet
)

var Open = client.Open
