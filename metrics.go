package tensorarena

import (
	"sync/atomic"
	"time"

	"github.com/hupe1980/tensorarena/internal/arena"
)

// MetricsCollector receives arena events. Implement it to integrate with a
// monitoring system; metrics.PrometheusCollector is a ready-made one.
//
// Collectors run inline with every Alloc and Free and must be cheap.
type MetricsCollector = arena.MetricsCollector

// NoopMetricsCollector discards all events.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordAlloc(int, bool, error)         {}
func (NoopMetricsCollector) RecordFree(int)                       {}
func (NoopMetricsCollector) RecordGrowth(int, int, time.Duration) {}
func (NoopMetricsCollector) RecordCoalesce(int)                   {}
func (NoopMetricsCollector) RecordUsage(int, int)                 {}

// BasicMetricsCollector keeps simple in-memory counters.
// Useful for debugging and tests without external dependencies.
type BasicMetricsCollector struct {
	AllocCount       atomic.Int64
	AllocErrors      atomic.Int64
	AllocBytes       atomic.Int64
	FreeCount        atomic.Int64
	FreeBytes        atomic.Int64
	GrowthCount      atomic.Int64
	GrowthTotalNanos atomic.Int64
	CoalescedRegions atomic.Int64
	Used             atomic.Int64
	PeakUsed         atomic.Int64
	Capacity         atomic.Int64
}

var _ MetricsCollector = (*BasicMetricsCollector)(nil)

// RecordAlloc implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAlloc(size int, _ bool, err error) {
	b.AllocCount.Add(1)
	if err != nil {
		b.AllocErrors.Add(1)
		return
	}
	b.AllocBytes.Add(int64(size))
}

// RecordFree implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFree(size int) {
	b.FreeCount.Add(1)
	b.FreeBytes.Add(int64(size))
}

// RecordGrowth implements MetricsCollector.
func (b *BasicMetricsCollector) RecordGrowth(_, newCapacity int, duration time.Duration) {
	b.GrowthCount.Add(1)
	b.GrowthTotalNanos.Add(duration.Nanoseconds())
	b.Capacity.Store(int64(newCapacity))
}

// RecordCoalesce implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCoalesce(merged int) {
	b.CoalescedRegions.Add(int64(merged))
}

// RecordUsage implements MetricsCollector.
func (b *BasicMetricsCollector) RecordUsage(used, capacity int) {
	u := int64(used)
	b.Used.Store(u)
	b.Capacity.Store(int64(capacity))
	for {
		peak := b.PeakUsed.Load()
		if u <= peak || b.PeakUsed.CompareAndSwap(peak, u) {
			return
		}
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		AllocCount:       b.AllocCount.Load(),
		AllocErrors:      b.AllocErrors.Load(),
		AllocBytes:       b.AllocBytes.Load(),
		FreeCount:        b.FreeCount.Load(),
		FreeBytes:        b.FreeBytes.Load(),
		GrowthCount:      b.GrowthCount.Load(),
		GrowthAvgNanos:   b.getAvgGrowthNanos(),
		CoalescedRegions: b.CoalescedRegions.Load(),
		Used:             b.Used.Load(),
		PeakUsed:         b.PeakUsed.Load(),
		Capacity:         b.Capacity.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgGrowthNanos() int64 {
	count := b.GrowthCount.Load()
	if count == 0 {
		return 0
	}
	return b.GrowthTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	AllocCount       int64
	AllocErrors      int64
	AllocBytes       int64
	FreeCount        int64
	FreeBytes        int64
	GrowthCount      int64
	GrowthAvgNanos   int64
	CoalescedRegions int64
	Used             int64
	PeakUsed         int64
	Capacity         int64
}
