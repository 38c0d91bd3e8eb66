package arena

import (
	"fmt"
)

// Stats is a point-in-time snapshot of arena usage.
type Stats struct {
	Used        int // bytes handed out to live allocations
	Capacity    int // size of the backing buffer
	FreeBytes   int // sum of free region lengths
	FreeRegions int // number of free regions, before coalescing

	Allocs    uint64
	Frees     uint64
	Growths   uint64
	Coalesced uint64 // region merges performed
}

// Utilization returns Used/Capacity, or 0 for an empty arena.
func (s Stats) Utilization() float64 {
	if s.Capacity == 0 {
		return 0
	}
	return float64(s.Used) / float64(s.Capacity)
}

// Region is a free span of the arena.
type Region struct {
	Offset uint64
	Length uint64
}

// End returns the offset one past the region.
func (r Region) End() uint64 { return r.Offset + r.Length }

// Stats returns current usage. It has no side effects.
func (a *Arena) Stats() Stats {
	return Stats{
		Used:        a.used,
		Capacity:    a.capacity,
		FreeBytes:   a.free.bytes,
		FreeRegions: a.free.len(),
		Allocs:      a.allocs,
		Frees:       a.frees,
		Growths:     a.growths,
		Coalesced:   a.coalesced,
	}
}

func (a *Arena) String() string {
	return fmt.Sprintf("arena{used=%d capacity=%d free=%d regions=%d alignment=%d}",
		a.used, a.capacity, a.free.bytes, a.free.len(), a.alignment)
}

// Regions returns the free regions in ascending offset order.
// Regions freed since the last Alloc are not yet coalesced.
func (a *Arena) Regions() []Region {
	spans := a.free.spans()
	out := make([]Region, len(spans))
	for i, s := range spans {
		out[i] = Region{Offset: uint64(s.off), Length: uint64(s.n)}
	}
	return out
}

// Validate checks the arena's internal consistency: free regions are aligned,
// in bounds and disjoint, and used plus free bytes equals capacity. With debug
// checks enabled no free region may overlap a live range.
func (a *Arena) Validate() error {
	if a.capacity%a.alignment != 0 {
		return a.invariant("capacity %d not aligned to %d", a.capacity, a.alignment)
	}
	if a.used < 0 || a.used > a.capacity {
		return a.invariant("used %d outside [0,%d]", a.used, a.capacity)
	}

	sum, prevEnd := 0, 0
	for _, s := range a.free.spans() {
		switch {
		case s.n <= 0:
			return a.invariant("empty free region at %d", s.off)
		case s.off%a.alignment != 0 || s.n%a.alignment != 0:
			return a.invariant("free region [%d,%d) not aligned", s.off, s.end())
		case s.off < prevEnd:
			return a.invariant("free region [%d,%d) overlaps predecessor ending at %d", s.off, s.end(), prevEnd)
		case s.off > a.capacity || s.n > a.capacity-s.off:
			return a.invariant("free region at %d of length %d ends past capacity %d", s.off, s.n, a.capacity)
		}
		if a.live != nil && a.live.overlaps(s.off, s.n) {
			return a.invariant("free region [%d,%d) overlaps a live range", s.off, s.end())
		}
		sum += s.n
		prevEnd = s.end()
	}

	if sum != a.free.bytes {
		return a.invariant("free bytes %d, index reports %d", sum, a.free.bytes)
	}
	if a.used+sum != a.capacity {
		return a.invariant("used %d + free %d != capacity %d", a.used, sum, a.capacity)
	}
	if a.live != nil && a.live.bytes() != a.used {
		return a.invariant("live bytes %d != used %d", a.live.bytes(), a.used)
	}
	return nil
}

func (a *Arena) invariant(format string, args ...any) error {
	return &AllocError{
		Op:       "validate",
		Capacity: a.capacity,
		Used:     a.used,
		Err:      fmt.Errorf("%w: "+format, append([]any{ErrInvariantViolation}, args...)...),
	}
}
