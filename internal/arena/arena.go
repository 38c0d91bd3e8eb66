package arena

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/hupe1980/tensorarena/backend"
	"github.com/hupe1980/tensorarena/internal/conv"
)

// Arena hands out aligned byte ranges inside a single growable buffer.
//
// Callers address storage by offset. Offsets stay valid across growth; the
// slice returned by Base does not, so it must be re-resolved after any Alloc.
//
// An Arena is not safe for concurrent use.
type Arena struct {
	opts      options
	alignment int
	minCap    int

	buf      backend.Buffer
	base     []byte
	capacity int
	used     int

	free   *freeIndex
	live   *liveSet
	closed bool

	allocs    uint64
	frees     uint64
	growths   uint64
	coalesced uint64
}

// New creates an empty arena. No memory is requested until the first Alloc
// or Base call.
func New(opts ...Option) (*Arena, error) {
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}

	a := &Arena{
		opts:      o,
		alignment: o.alignment,
		free:      newFreeIndex(),
	}

	a.minCap = o.alignment
	if o.minCapacity > 0 {
		if a.minCap, err = a.roundUp(o.minCapacity); err != nil {
			return nil, &AllocError{Op: "new", Size: o.minCapacity, Err: err}
		}
	}

	if o.debugChecks {
		a.live = newLiveSet(o.alignment)
	}

	return a, nil
}

// Alignment returns the allocation granularity.
func (a *Arena) Alignment() int { return a.alignment }

// Capacity returns the size of the backing buffer in bytes.
func (a *Arena) Capacity() int { return a.capacity }

// Used returns the number of bytes handed out to live allocations.
func (a *Arena) Used() int { return a.used }

// AlignedSize rounds size up to the arena alignment. Zero rounds to one
// aligned unit, the amount Alloc(0) consumes. Negative sizes return 0.
func (a *Arena) AlignedSize(size int) int {
	if size < 0 {
		return 0
	}
	return ((size-1)/a.alignment + 1) * a.alignment
}

// roundUp is AlignedSize with overflow detection. A zero size consumes one
// aligned unit.
func (a *Arena) roundUp(size int) (int, error) {
	switch {
	case size < 0:
		return 0, fmt.Errorf("%w: negative size %d", ErrInvalidArgument, size)
	case size == 0:
		return a.alignment, nil
	}
	units := (size-1)/a.alignment + 1
	n, err := conv.MulInt(units, a.alignment)
	if err != nil {
		return 0, fmt.Errorf("%w: size %d: %w", ErrOutOfMemory, size, err)
	}
	return n, nil
}

// Alloc reserves size bytes and returns the offset of the range.
//
// The size is rounded up to the alignment. Free regions are coalesced, then
// the lowest-offset region large enough is used. When none fits, the buffer
// doubles until the request fits past its current end and live bytes are
// copied over.
func (a *Arena) Alloc(size int) (uint64, error) {
	if a.closed {
		return 0, a.fail("alloc", 0, size, ErrClosed)
	}

	n, err := a.roundUp(size)
	if err != nil {
		a.opts.metrics.RecordAlloc(size, false, err)
		return 0, a.fail("alloc", 0, size, err)
	}

	if a.buf == nil {
		if err := a.materialize(n); err != nil {
			a.opts.metrics.RecordAlloc(n, false, err)
			return 0, a.fail("alloc", 0, n, err)
		}
	}

	if merged := a.free.coalesce(); merged > 0 {
		a.coalesced += uint64(merged)
		a.opts.metrics.RecordCoalesce(merged)
	}

	grew := false
	off, ok := a.free.firstFit(n)
	if !ok {
		if off, err = a.grow(n); err != nil {
			a.opts.metrics.RecordAlloc(n, false, err)
			return 0, a.fail("alloc", 0, n, err)
		}
		grew = true
	}

	if a.live != nil {
		if err := a.live.add(off, n); err != nil {
			a.free.insert(span{off: off, n: n})
			a.opts.metrics.RecordAlloc(n, grew, err)
			return 0, a.fail("alloc", uint64(off), n, err)
		}
	}

	a.used += n
	a.allocs++
	a.opts.metrics.RecordAlloc(n, grew, nil)
	a.opts.metrics.RecordUsage(a.used, a.capacity)

	return uint64(off), nil
}

// Free returns the range [offset, offset+size) to the arena. The size is
// rounded up to the alignment; adjacent free ranges are merged by the next
// Alloc.
//
// Without debug checks the range is trusted: releasing a range that is not
// live corrupts the arena.
func (a *Arena) Free(offset uint64, size int) error {
	if a.closed {
		return a.fail("free", offset, size, ErrClosed)
	}

	off, err := conv.Uint64ToInt(offset)
	if err != nil {
		return a.fail("free", offset, size, fmt.Errorf("%w: %w", ErrInvalidArgument, err))
	}
	n, err := a.roundUp(size)
	if err != nil {
		return a.fail("free", offset, size, err)
	}

	if a.live != nil {
		if off+n > a.capacity {
			return a.fail("free", offset, n, fmt.Errorf("%w: range ends past capacity", ErrInvalidFree))
		}
		if err := a.live.remove(off, n); err != nil {
			return a.fail("free", offset, n, err)
		}
	}

	a.used -= n
	a.frees++
	a.free.insert(span{off: off, n: n})
	a.opts.metrics.RecordFree(n)
	a.opts.metrics.RecordUsage(a.used, a.capacity)

	return nil
}

// Base returns the backing buffer, materializing it if needed. An arena that
// never allocated is materialized with its minimum capacity, all of it free.
//
// The slice is invalidated by the next Alloc that grows the arena.
func (a *Arena) Base() ([]byte, error) {
	if a.closed {
		return nil, a.fail("base", 0, 0, ErrClosed)
	}
	if a.buf == nil {
		size := a.capacity
		if size == 0 {
			size = a.minCap
		}
		if err := a.materialize(size); err != nil {
			return nil, a.fail("base", 0, size, err)
		}
	}
	return a.base, nil
}

// Reset marks every byte free without releasing the buffer.
// Capacity is retained.
func (a *Arena) Reset() error {
	if a.closed {
		return a.fail("reset", 0, 0, ErrClosed)
	}
	a.free.reset()
	if a.capacity > 0 {
		a.free.insert(span{off: 0, n: a.capacity})
	}
	if a.live != nil {
		a.live.reset()
	}
	a.used = 0
	a.opts.metrics.RecordUsage(a.used, a.capacity)
	return nil
}

// Close releases the backing buffer. It is idempotent; the buffer is
// released exactly once.
func (a *Arena) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true

	var err error
	if a.buf != nil {
		err = a.releaseBuffer(a.buf, a.capacity)
		a.buf, a.base = nil, nil
	}
	a.free.reset()
	if a.live != nil {
		a.live.reset()
	}
	return err
}

// materialize acquires the first buffer and seeds it as one free region.
func (a *Arena) materialize(size int) error {
	buf, err := a.acquireBuffer(size)
	if err != nil {
		return err
	}
	a.buf = buf
	a.base = buf.Bytes()[:size]
	a.capacity = size
	a.free.insert(span{off: 0, n: size})

	a.opts.logger.Debug("arena materialized", "capacity", size)
	return nil
}

// grow relocates the buffer so that size bytes fit at the current end and
// returns the offset of the new range. The remainder of the new buffer is
// registered as free.
func (a *Arena) grow(size int) (int, error) {
	ext := a.capacity
	if last, ok := a.free.last(); ok && last.end() > a.capacity {
		return 0, fmt.Errorf("%w: free region [%d,%d) ends past capacity %d",
			ErrInvariantViolation, last.off, last.end(), a.capacity)
	}

	if ext > math.MaxInt-size {
		return 0, fmt.Errorf("%w: extension %d+%d overflows", ErrOutOfMemory, ext, size)
	}
	need := ext + size

	newCap := a.capacity
	for newCap < need {
		if newCap > math.MaxInt/2 {
			return 0, fmt.Errorf("%w: cannot double capacity %d", ErrOutOfMemory, newCap)
		}
		newCap *= 2
	}

	start := time.Now()
	buf, err := a.acquireBuffer(newCap)
	if err != nil {
		return 0, err
	}

	oldBuf, oldCap := a.buf, a.capacity
	next := buf.Bytes()[:newCap]
	copy(next, a.base[:min(oldCap, newCap)])

	a.buf = buf
	a.base = next
	a.capacity = newCap
	a.growths++

	if err := a.releaseBuffer(oldBuf, oldCap); err != nil {
		a.opts.logger.Warn("arena: releasing relocated buffer failed",
			"capacity", oldCap,
			"error", err,
		)
	}

	if tail := newCap - need; tail > 0 {
		a.free.insert(span{off: need, n: tail})
	}

	elapsed := time.Since(start)
	a.opts.metrics.RecordGrowth(oldCap, newCap, elapsed)
	a.opts.logger.Debug("arena grew",
		"old_capacity", oldCap,
		"new_capacity", newCap,
		"offset", ext,
		"size", size,
		"duration", elapsed,
	)

	return ext, nil
}

// acquireBuffer reserves size bytes with the acquirer, then the backend.
// Both failures map to ErrOutOfMemory.
func (a *Arena) acquireBuffer(size int) (backend.Buffer, error) {
	if acq := a.opts.acquirer; acq != nil {
		if err := acq.AcquireMemory(int64(size)); err != nil {
			return nil, fmt.Errorf("%w: %d bytes: %w", ErrOutOfMemory, size, err)
		}
	}

	buf, err := a.opts.backend.Allocate(size)
	if err == nil && len(buf.Bytes()) < size {
		_ = a.opts.backend.Release(buf)
		err = fmt.Errorf("backend returned %d bytes", len(buf.Bytes()))
	}
	if err != nil {
		if acq := a.opts.acquirer; acq != nil {
			acq.ReleaseMemory(int64(size))
		}
		return nil, fmt.Errorf("%w: %d bytes: %w", ErrOutOfMemory, size, err)
	}
	return buf, nil
}

func (a *Arena) releaseBuffer(buf backend.Buffer, size int) error {
	err := a.opts.backend.Release(buf)
	if acq := a.opts.acquirer; acq != nil {
		acq.ReleaseMemory(int64(size))
	}
	return err
}

// fail wraps err with the arena state and logs it.
func (a *Arena) fail(op string, offset uint64, size int, err error) error {
	e := &AllocError{
		Op:       op,
		Offset:   offset,
		Size:     size,
		Capacity: a.capacity,
		Used:     a.used,
		Err:      err,
	}
	if !errors.Is(err, ErrClosed) {
		a.opts.logger.Error("arena operation failed",
			"op", op,
			"offset", offset,
			"size", size,
			"capacity", a.capacity,
			"used", a.used,
			"error", err,
		)
	}
	return e
}
