package arena

import "time"

// MetricsCollector receives arena events.
// Implementations must be cheap; they run inline with every operation.
type MetricsCollector interface {
	// RecordAlloc is called after each allocation attempt.
	// size is the aligned size, grew reports whether the buffer was relocated.
	RecordAlloc(size int, grew bool, err error)

	// RecordFree is called after each release with the aligned size.
	RecordFree(size int)

	// RecordGrowth is called after the backing buffer was relocated.
	RecordGrowth(oldCapacity, newCapacity int, duration time.Duration)

	// RecordCoalesce is called when a coalesce pass merged regions.
	RecordCoalesce(merged int)

	// RecordUsage reports the live byte count and capacity after a change.
	RecordUsage(used, capacity int)
}

type noopMetrics struct{}

func (noopMetrics) RecordAlloc(int, bool, error)         {}
func (noopMetrics) RecordFree(int)                       {}
func (noopMetrics) RecordGrowth(int, int, time.Duration) {}
func (noopMetrics) RecordCoalesce(int)                   {}
func (noopMetrics) RecordUsage(int, int)                 {}
