package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/asyncsql/asyncsql/core"
)

type fakeConn struct {
	id     int64
	closed atomic.Bool
}

func (c *fakeConn) Close() error {
	c.closed.Store(true)
	return nil
}

type fakeFactory struct {
	created atomic.Int64
	fail    atomic.Bool
}

func (f *fakeFactory) new(ctx context.Context) (*fakeConn, error) {
	if f.fail.Load() {
		return nil, errors.New("factory down")
	}
	return &fakeConn{id: f.created.Add(1)}, nil
}

func newTestPool(t *testing.T, opts Options) (*Pool[*fakeConn], *fakeFactory) {
	t.Helper()
	f := &fakeFactory{}
	p, err := New(f.new, opts)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { p.Close() })
	return p, f
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, d time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestAcquireRelease(t *testing.T) {
	p, f := newTestPool(t, Options{MaxConnections: 2})

	pc, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if s := p.Stats(); s.Total != 1 || s.Acquired != 1 || s.Idle != 0 {
		t.Errorf("stats after acquire: %+v", s)
	}

	p.Release(pc)
	if s := p.Stats(); s.Total != 1 || s.Idle != 1 {
		t.Errorf("stats after release: %+v", s)
	}

	pc2, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if pc2 != pc {
		t.Error("expected the idle connection to be reused")
	}
	if f.created.Load() != 1 {
		t.Errorf("factory calls = %d, want 1", f.created.Load())
	}
}

func TestConcurrentAcquireRelease(t *testing.T) {
	const goroutines = 16
	const iterations = 50

	p, _ := newTestPool(t, Options{MaxConnections: 4, AcquireTimeout: 5 * time.Second})

	var wg sync.WaitGroup
	errs := make(chan error, goroutines)
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				pc, err := p.Acquire(context.Background())
				if err != nil {
					errs <- err
					return
				}
				p.Release(pc)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}

	s := p.Stats()
	if s.Total > 4 {
		t.Errorf("total %d exceeds max", s.Total)
	}
	if s.Acquired != 0 {
		t.Errorf("acquired = %d at quiescence", s.Acquired)
	}
	if s.Idle != s.Total {
		t.Errorf("idle %d != total %d at quiescence", s.Idle, s.Total)
	}
}

func TestAcquireClosedPool(t *testing.T) {
	p, _ := newTestPool(t, Options{MaxConnections: 1})
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	_, err := p.Acquire(context.Background())
	if !errors.Is(err, core.ErrPoolClosed) {
		t.Errorf("err = %v, want PoolClosed", err)
	}
}

func TestAcquireTimeout(t *testing.T) {
	p, _ := newTestPool(t, Options{MaxConnections: 1, AcquireTimeout: 50 * time.Millisecond})

	pc, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer p.Release(pc)

	before := p.Stats()
	_, err = p.Acquire(context.Background())
	if !errors.Is(err, core.ErrPoolTimedOut) {
		t.Errorf("err = %v, want PoolTimedOut", err)
	}
	after := p.Stats()
	if before.Total != after.Total {
		t.Errorf("total changed across timeout: %d -> %d", before.Total, after.Total)
	}
}

func TestAcquireContextCanceled(t *testing.T) {
	p, _ := newTestPool(t, Options{MaxConnections: 1})

	pc, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer p.Release(pc)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err = p.Acquire(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if s := p.Stats(); s.Total != 1 {
		t.Errorf("total = %d after canceled acquire", s.Total)
	}
}

func TestDoubleReleaseIsNoOp(t *testing.T) {
	p, _ := newTestPool(t, Options{MaxConnections: 2})

	pc, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	p.Release(pc)
	p.Release(pc)
	p.Release(pc)

	if s := p.Stats(); s.Total != 1 || s.Idle != 1 {
		t.Errorf("stats after repeated release: %+v", s)
	}

	if _, err := p.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestIdleExpiry(t *testing.T) {
	p, f := newTestPool(t, Options{
		MaxConnections:  2,
		IdleTimeout:     20 * time.Millisecond,
		CleanupInterval: time.Hour, // keep the background task out of the way
	})

	pc, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	first := pc.Conn()
	p.Release(pc)

	time.Sleep(50 * time.Millisecond)

	pc2, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if pc2.Conn() == first {
		t.Error("expected a fresh connection after idle expiry")
	}
	if !first.closed.Load() {
		t.Error("expired connection was not closed")
	}
	if f.created.Load() != 2 {
		t.Errorf("factory calls = %d, want 2", f.created.Load())
	}
}

func TestMaxLifetimeExpiry(t *testing.T) {
	p, _ := newTestPool(t, Options{
		MaxConnections:  2,
		MaxLifetime:     20 * time.Millisecond,
		CleanupInterval: time.Hour,
	})

	pc, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	first := pc.Conn()
	p.Release(pc)

	time.Sleep(50 * time.Millisecond)

	pc2, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if pc2.Conn() == first {
		t.Error("expected a fresh connection after lifetime expiry")
	}
}

func TestWarmup(t *testing.T) {
	p, f := newTestPool(t, Options{MinConnections: 3, MaxConnections: 5})
	waitFor(t, 2*time.Second, func() bool {
		s := p.Stats()
		return s.Total == 3 && s.Idle == 3
	})
	if f.created.Load() != 3 {
		t.Errorf("factory calls = %d, want 3", f.created.Load())
	}
}

func TestWarmupFailureIsNonFatal(t *testing.T) {
	f := &fakeFactory{}
	f.fail.Store(true)
	p, err := New(f.new, Options{MinConnections: 2, MaxConnections: 4})
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	waitFor(t, 2*time.Second, func() bool { return f.created.Load() == 0 && p.Stats().Total == 0 })

	f.fail.Store(false)
	pc, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	p.Release(pc)
}

func TestFactoryFailureReturnsPermit(t *testing.T) {
	f := &fakeFactory{}
	f.fail.Store(true)
	p, err := New(f.new, Options{MaxConnections: 1})
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	if _, err := p.Acquire(context.Background()); err == nil {
		t.Fatal("expected factory error")
	}
	if s := p.Stats(); s.Total != 0 {
		t.Errorf("total = %d after factory failure", s.Total)
	}

	f.fail.Store(false)
	if _, err := p.Acquire(context.Background()); err != nil {
		t.Fatalf("permit leaked: %v", err)
	}
}

func TestCleanupRetainsMinimum(t *testing.T) {
	p, _ := newTestPool(t, Options{
		MinConnections:  1,
		MaxConnections:  2,
		IdleTimeout:     10 * time.Millisecond,
		CleanupInterval: 20 * time.Millisecond,
	})

	a, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	b, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	p.Release(a)
	p.Release(b)

	waitFor(t, 2*time.Second, func() bool { return p.Stats().Total == 1 })

	// The remaining expired connection stays in service at the minimum.
	time.Sleep(100 * time.Millisecond)
	if s := p.Stats(); s.Total != 1 {
		t.Errorf("total = %d, want the minimum retained", s.Total)
	}
}

func TestReleaseAfterClose(t *testing.T) {
	p, _ := newTestPool(t, Options{MaxConnections: 1})

	pc, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}

	p.Release(pc)
	if !pc.Conn().closed.Load() {
		t.Error("connection not closed by release on a closed pool")
	}
	if s := p.Stats(); s.Total != 0 {
		t.Errorf("total = %d after final release", s.Total)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	p, _ := newTestPool(t, Options{MaxConnections: 1})
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestCloseWakesWaiters(t *testing.T) {
	p, _ := newTestPool(t, Options{MaxConnections: 1})

	pc, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer p.Release(pc)

	done := make(chan error, 1)
	go func() {
		_, err := p.Acquire(context.Background())
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	p.Close()

	select {
	case err := <-done:
		if !errors.Is(err, core.ErrPoolClosed) {
			t.Errorf("err = %v, want PoolClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("waiter not woken by Close")
	}
}

func TestOptionsValidation(t *testing.T) {
	f := &fakeFactory{}
	if _, err := New(f.new, Options{}); err == nil {
		t.Error("expected error for missing MaxConnections")
	}
	if _, err := New(f.new, Options{MaxConnections: 1, MinConnections: 2}); err == nil {
		t.Error("expected error for min > max")
	}
	if _, err := New(f.new, Options{MaxConnections: 1, MinConnections: -1}); err == nil {
		t.Error("expected error for negative min")
	}
}
