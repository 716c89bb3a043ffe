package pool

import (
	"context"
	"sync/atomic"
	"time"
)

// Connection is the opaque handle managed by the pool. The pool only ever
// closes it; everything else a connection can do belongs to the caller.
type Connection interface {
	Close() error
}

// Factory creates connections on demand. Failures are opaque to the pool:
// propagated on the acquire path, logged on the warmup path.
type Factory[C Connection] func(ctx context.Context) (C, error)

// State is the lifecycle state of a pooled connection. A connection is
// owned by exactly one of: the caller holding it (Acquired), the pool's
// idle set (Idle), or nobody (Closed).
type State int32

const (
	StateAcquired State = iota
	StateIdle
	StateClosed
)

// Pooled wraps one externally created connection handle together with the
// timestamps its expiration policies are based on.
type Pooled[C Connection] struct {
	conn           C
	createdAt      time.Time
	lastReleasedAt atomic.Int64 // unix nanos
	state          atomic.Int32
}

func newPooled[C Connection](conn C) *Pooled[C] {
	p := &Pooled[C]{conn: conn, createdAt: time.Now()}
	p.touch()
	return p
}

// Conn returns the wrapped connection handle.
func (p *Pooled[C]) Conn() C { return p.conn }

// State returns the current lifecycle state.
func (p *Pooled[C]) State() State { return State(p.state.Load()) }

// Age is the time since the connection was created.
func (p *Pooled[C]) Age(now time.Time) time.Duration {
	return now.Sub(p.createdAt)
}

// IdleTime is the time since the connection was last released.
func (p *Pooled[C]) IdleTime(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, p.lastReleasedAt.Load()))
}

func (p *Pooled[C]) touch() {
	p.lastReleasedAt.Store(time.Now().UnixNano())
}

func (p *Pooled[C]) transition(from, to State) bool {
	return p.state.CompareAndSwap(int32(from), int32(to))
}

func (p *Pooled[C]) setState(s State) {
	p.state.Store(int32(s))
}
