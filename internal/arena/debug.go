package arena

import (
	"fmt"
	"math"

	"github.com/RoaringBitmap/roaring/v2"
)

// liveSet tracks allocated ranges in units of the arena alignment.
// Only present when debug checks are enabled.
type liveSet struct {
	rb   *roaring.Bitmap
	unit int
}

func newLiveSet(unit int) *liveSet {
	return &liveSet{rb: roaring.New(), unit: unit}
}

// units maps a byte range to the half-open unit range [lo, hi).
func (l *liveSet) units(off, size int) (uint64, uint64, error) {
	if off%l.unit != 0 || size%l.unit != 0 {
		return 0, 0, fmt.Errorf("%w: range [%d,%d) is not aligned to %d", ErrInvalidFree, off, off+size, l.unit)
	}
	lo := uint64(off / l.unit)
	hi := uint64((off + size) / l.unit)
	if hi > math.MaxUint32+1 {
		return 0, 0, fmt.Errorf("%w: range [%d,%d) exceeds debug tracking limit", ErrInvariantViolation, off, off+size)
	}
	return lo, hi, nil
}

func (l *liveSet) add(off, size int) error {
	lo, hi, err := l.units(off, size)
	if err != nil {
		return err
	}
	l.rb.AddRange(lo, hi)
	return nil
}

// remove clears a range, failing if any unit of it is not live.
func (l *liveSet) remove(off, size int) error {
	lo, hi, err := l.units(off, size)
	if err != nil {
		return err
	}

	probe := roaring.New()
	probe.AddRange(lo, hi)
	if live := l.rb.AndCardinality(probe); live != hi-lo {
		return fmt.Errorf("%w: range [%d,%d) has %d of %d units live",
			ErrInvalidFree, off, off+size, live, hi-lo)
	}

	l.rb.RemoveRange(lo, hi)
	return nil
}

// overlaps reports whether any unit of the range is live.
func (l *liveSet) overlaps(off, size int) bool {
	lo, hi, err := l.units(off, size)
	if err != nil {
		return true
	}
	probe := roaring.New()
	probe.AddRange(lo, hi)
	return l.rb.Intersects(probe)
}

// bytes returns the number of live bytes.
func (l *liveSet) bytes() int {
	return int(l.rb.GetCardinality()) * l.unit
}

func (l *liveSet) reset() {
	l.rb.Clear()
}
