package pool

import (
	"fmt"
	"time"

	"github.com/asyncsql/asyncsql/logger"
)

// defaultCleanupInterval is how often the background task scans idle
// connections for expiration when Options.CleanupInterval is unset.
const defaultCleanupInterval = 30 * time.Second

// Options configures a Pool.
type Options struct {
	// MinConnections is the number of connections created eagerly at
	// pool start and retained by the cleanup task. Optional.
	MinConnections int

	// MaxConnections bounds the total number of live connections.
	// Required, must be positive.
	MaxConnections int

	// AcquireTimeout bounds how long Acquire blocks when the pool is at
	// capacity. Zero means wait indefinitely (until the context is done
	// or the pool closes).
	AcquireTimeout time.Duration

	// IdleTimeout expires a connection that has sat unused since its
	// last release for at least this long. Zero disables the check.
	IdleTimeout time.Duration

	// MaxLifetime expires a connection this long after creation,
	// regardless of use. Zero disables the check.
	MaxLifetime time.Duration

	// CleanupInterval is the period of the background expiration scan.
	CleanupInterval time.Duration

	// Logger receives warmup and cleanup diagnostics. Defaults to a
	// silent logger.
	Logger logger.Logger
}

func (o *Options) validate() error {
	if o.MaxConnections <= 0 {
		return fmt.Errorf("pool: MaxConnections must be positive, got %d", o.MaxConnections)
	}
	if o.MinConnections < 0 {
		return fmt.Errorf("pool: MinConnections must not be negative, got %d", o.MinConnections)
	}
	if o.MinConnections > o.MaxConnections {
		return fmt.Errorf("pool: MinConnections (%d) exceeds MaxConnections (%d)",
			o.MinConnections, o.MaxConnections)
	}
	return nil
}
