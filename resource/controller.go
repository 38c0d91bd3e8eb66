package resource

import (
	"context"
)

// Config holds resource limits. Zero values mean unlimited.
type Config struct {
	// MemoryLimitBytes caps the backing memory reserved by arenas.
	MemoryLimitBytes int64

	// IOLimitBytesPerSec caps snapshot read and write throughput.
	IOLimitBytesPerSec int64
}

// Usage is a point-in-time view of a Controller.
type Usage struct {
	MemoryUsed  int64
	MemoryPeak  int64
	MemoryLimit int64
}

// Controller governs memory handed to arenas and snapshot IO bandwidth.
// It is safe for concurrent use, and a nil *Controller imposes no limits.
type Controller struct {
	mem *memoryBudget
	io  *bandwidth // nil when unlimited
}

// NewController creates a controller for cfg.
func NewController(cfg Config) *Controller {
	return &Controller{
		mem: newMemoryBudget(cfg.MemoryLimitBytes),
		io:  newBandwidth(cfg.IOLimitBytesPerSec),
	}
}

// AcquireMemory reserves n bytes without blocking. It fails with
// ErrMemoryLimitExceeded when the reservation does not fit.
func (c *Controller) AcquireMemory(n int64) error {
	if c == nil || n <= 0 {
		return nil
	}
	return c.mem.acquire(n)
}

// ReleaseMemory returns a reservation made by AcquireMemory.
func (c *Controller) ReleaseMemory(n int64) {
	if c == nil || n <= 0 {
		return
	}
	c.mem.release(n)
}

// MemoryUsage returns the bytes currently reserved.
func (c *Controller) MemoryUsage() int64 {
	return c.Usage().MemoryUsed
}

// MemoryPeak returns the highest reservation observed.
func (c *Controller) MemoryPeak() int64 {
	return c.Usage().MemoryPeak
}

// MemoryLimit returns the memory limit, 0 when unlimited.
func (c *Controller) MemoryLimit() int64 {
	return c.Usage().MemoryLimit
}

// Usage reports the memory counters.
func (c *Controller) Usage() Usage {
	if c == nil {
		return Usage{}
	}
	return Usage{
		MemoryUsed:  c.mem.used.Load(),
		MemoryPeak:  c.mem.peak.Load(),
		MemoryLimit: c.mem.limit,
	}
}

// AcquireIO blocks until n bytes of IO are allowed or ctx is done.
func (c *Controller) AcquireIO(ctx context.Context, n int) error {
	if c == nil || c.io == nil {
		return nil
	}
	return c.io.wait(ctx, n)
}

// TryAcquireIO takes n bytes of IO budget if it is available right now.
func (c *Controller) TryAcquireIO(n int) bool {
	if c == nil || c.io == nil {
		return true
	}
	return c.io.allow(n)
}
