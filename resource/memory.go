package resource

import (
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// ErrMemoryLimitExceeded is returned when a reservation does not fit under
// the memory limit.
var ErrMemoryLimitExceeded = errors.New("memory limit exceeded")

// memoryBudget tracks reserved bytes against an optional hard limit.
type memoryBudget struct {
	limit int64
	sem   *semaphore.Weighted // nil when unlimited
	used  atomic.Int64
	peak  atomic.Int64
}

func newMemoryBudget(limit int64) *memoryBudget {
	m := &memoryBudget{limit: limit}
	if limit > 0 {
		m.sem = semaphore.NewWeighted(limit)
	}
	return m
}

func (m *memoryBudget) acquire(n int64) error {
	if m.sem != nil && !m.sem.TryAcquire(n) {
		return fmt.Errorf("%w: requested %d bytes with %d of %d in use",
			ErrMemoryLimitExceeded, n, m.used.Load(), m.limit)
	}
	used := m.used.Add(n)
	for {
		peak := m.peak.Load()
		if used <= peak || m.peak.CompareAndSwap(peak, used) {
			return nil
		}
	}
}

func (m *memoryBudget) release(n int64) {
	if m.sem != nil {
		m.sem.Release(n)
	}
	m.used.Add(-n)
}
