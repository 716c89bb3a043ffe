package pool

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/asyncsql/asyncsql/core"
	"github.com/asyncsql/asyncsql/logger"
)

// Pool is a bounded connection pool. Connections are created by the
// supplied factory, handed out by Acquire and returned by Release.
// Acquire is the only operation that blocks; Release never does.
//
// All counter mutations happen atomically with the ownership transfer
// they describe: creation permits are reserved by compare-and-swap on the
// total counter, and the idle set is a buffered channel sized to the pool
// capacity so handing a connection back never blocks.
type Pool[C Connection] struct {
	factory Factory[C]
	opts    Options
	log     logger.Logger

	idle    chan *Pooled[C]
	total   atomic.Int64
	idleN   atomic.Int64
	closed  atomic.Bool
	closeCh chan struct{}
}

// New builds a pool, starts its periodic cleanup task and, when
// MinConnections is set, warms that many connections in the background.
// Warmup failures are logged and do not fail construction.
func New[C Connection](factory Factory[C], opts Options) (*Pool[C], error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewSilentLogger()
	}
	p := &Pool[C]{
		factory: factory,
		opts:    opts,
		log:     opts.Logger,
		idle:    make(chan *Pooled[C], opts.MaxConnections),
		closeCh: make(chan struct{}),
	}
	go p.cleanupLoop()
	if opts.MinConnections > 0 {
		go p.warmup(opts.MinConnections)
	}
	return p, nil
}

// Acquire returns a connection, reusing an idle one when possible,
// creating a new one while under capacity, and otherwise blocking until a
// connection is released, the pool closes, the context is done, or the
// configured AcquireTimeout elapses (surfaced as core.ErrPoolTimedOut).
func (p *Pool[C]) Acquire(ctx context.Context) (*Pooled[C], error) {
	if p.closed.Load() {
		return nil, core.ErrPoolClosed
	}
	var timeoutC <-chan time.Time
	if p.opts.AcquireTimeout > 0 {
		t := time.NewTimer(p.opts.AcquireTimeout)
		defer t.Stop()
		timeoutC = t.C
	}
	for {
		if pc, ok := p.tryIdle(); ok {
			return pc, nil
		}
		if p.closed.Load() {
			return nil, core.ErrPoolClosed
		}
		if p.reserveSlot() {
			return p.create(ctx)
		}
		select {
		case pc := <-p.idle:
			p.idleN.Add(-1)
			if p.closed.Load() {
				p.destroy(pc)
				return nil, core.ErrPoolClosed
			}
			if p.expired(pc, time.Now()) {
				p.destroy(pc)
				continue
			}
			pc.setState(StateAcquired)
			return pc, nil
		case <-p.closeCh:
			return nil, core.ErrPoolClosed
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timeoutC:
			return nil, core.ErrPoolTimedOut
		}
	}
}

// Release hands a connection back to the idle set, or closes it when the
// pool has closed in the meantime. Releasing a connection that is already
// idle or closed is a no-op.
func (p *Pool[C]) Release(pc *Pooled[C]) {
	if pc == nil {
		return
	}
	if !pc.transition(StateAcquired, StateIdle) {
		return
	}
	pc.touch()
	if p.closed.Load() {
		p.destroy(pc)
		return
	}
	p.idleN.Add(1)
	p.idle <- pc
	// The pool may have closed and drained between the check above and
	// the send; pull one back out so nothing is stranded.
	if p.closed.Load() {
		select {
		case pc2 := <-p.idle:
			p.idleN.Add(-1)
			p.destroy(pc2)
		default:
		}
	}
}

// Close stops the cleanup task, drains and closes every idle connection
// and rejects further acquires. Connections still held by callers close
// through Release's closed-pool branch. Close is idempotent.
func (p *Pool[C]) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(p.closeCh)
	for {
		select {
		case pc := <-p.idle:
			p.idleN.Add(-1)
			p.destroy(pc)
		default:
			if p.idleN.Load() < 0 {
				p.idleN.Store(0)
			}
			if p.total.Load() < 0 {
				p.total.Store(0)
			}
			return nil
		}
	}
}

// Stats is a point-in-time snapshot of the pool counters.
type Stats struct {
	Total    int64
	Idle     int64
	Acquired int64
}

func (p *Pool[C]) Stats() Stats {
	total := p.total.Load()
	idle := p.idleN.Load()
	return Stats{Total: total, Idle: idle, Acquired: total - idle}
}

// tryIdle drains the idle set without blocking, destroying expired
// connections as it goes.
func (p *Pool[C]) tryIdle() (*Pooled[C], bool) {
	for {
		select {
		case pc := <-p.idle:
			p.idleN.Add(-1)
			if p.expired(pc, time.Now()) {
				p.destroy(pc)
				continue
			}
			pc.setState(StateAcquired)
			return pc, true
		default:
			return nil, false
		}
	}
}

// reserveSlot atomically claims one creation permit while under capacity.
// Every reserved slot must become a live connection or be returned with
// total.Add(-1).
func (p *Pool[C]) reserveSlot() bool {
	for {
		n := p.total.Load()
		if n >= int64(p.opts.MaxConnections) {
			return false
		}
		if p.total.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// create turns a reserved slot into an acquired connection, returning the
// permit on factory failure.
func (p *Pool[C]) create(ctx context.Context) (*Pooled[C], error) {
	conn, err := p.factory(ctx)
	if err != nil {
		p.total.Add(-1)
		return nil, err
	}
	pc := newPooled(conn)
	if p.closed.Load() {
		p.destroy(pc)
		return nil, core.ErrPoolClosed
	}
	return pc, nil
}

// destroy closes a connection exactly once and decrements the total.
func (p *Pool[C]) destroy(pc *Pooled[C]) {
	if State(pc.state.Swap(int32(StateClosed))) == StateClosed {
		return
	}
	if err := pc.conn.Close(); err != nil {
		p.log.Warn("pool: closing connection: %v", err)
	}
	p.total.Add(-1)
}

func (p *Pool[C]) expired(pc *Pooled[C], now time.Time) bool {
	if p.opts.IdleTimeout > 0 && pc.IdleTime(now) >= p.opts.IdleTimeout {
		return true
	}
	if p.opts.MaxLifetime > 0 && pc.Age(now) >= p.opts.MaxLifetime {
		return true
	}
	return false
}

// warmup eagerly creates up to n idle connections. Each failure is logged
// and the remaining slots are still attempted.
func (p *Pool[C]) warmup(n int) {
	ctx := context.Background()
	for i := 0; i < n; i++ {
		if p.closed.Load() {
			return
		}
		if !p.reserveSlot() {
			return
		}
		conn, err := p.factory(ctx)
		if err != nil {
			p.total.Add(-1)
			p.log.Warn("pool: warmup connection %d/%d failed: %v", i+1, n, err)
			continue
		}
		pc := newPooled(conn)
		pc.setState(StateIdle)
		if p.closed.Load() {
			p.destroy(pc)
			return
		}
		p.idleN.Add(1)
		p.idle <- pc
		if p.closed.Load() {
			select {
			case pc2 := <-p.idle:
				p.idleN.Add(-1)
				p.destroy(pc2)
			default:
			}
			return
		}
	}
}

func (p *Pool[C]) cleanupLoop() {
	t := time.NewTicker(p.opts.CleanupInterval)
	defer t.Stop()
	for {
		select {
		case <-p.closeCh:
			return
		case <-t.C:
			p.cleanupExpired()
		}
	}
}

// cleanupExpired scans one bounded batch of idle connections. Expired
// connections close only while the total stays above MinConnections; an
// expired connection at or below the minimum is kept in service rather
// than replaced.
func (p *Pool[C]) cleanupExpired() {
	now := time.Now()
	batch := len(p.idle)
	for i := 0; i < batch; i++ {
		select {
		case pc := <-p.idle:
			p.idleN.Add(-1)
			if p.closed.Load() {
				p.destroy(pc)
				continue
			}
			if p.expired(pc, now) && p.total.Load() > int64(p.opts.MinConnections) {
				p.destroy(pc)
				continue
			}
			p.idleN.Add(1)
			p.idle <- pc
		default:
			return
		}
	}
}
