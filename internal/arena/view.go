package arena

import (
	"fmt"
	"unsafe"

	"github.com/hupe1980/tensorarena/internal/conv"
)

// Bytes returns the size bytes at offset, resolved against the current
// buffer. The slice is invalidated by growth.
func (a *Arena) Bytes(offset uint64, size int) ([]byte, error) {
	if a.closed {
		return nil, a.fail("bytes", offset, size, ErrClosed)
	}
	off, err := a.checkRange(offset, size)
	if err != nil {
		return nil, a.fail("bytes", offset, size, err)
	}
	return a.base[off : off+size : off+size], nil
}

// View returns n elements of T starting at offset.
//
// T must not contain pointers. The offset must satisfy T's alignment, which
// holds for every Alloc offset when the arena alignment is a multiple of it.
func View[T any](a *Arena, offset uint64, n int) ([]T, error) {
	var zero T
	elem := int(unsafe.Sizeof(zero))

	size, err := conv.MulInt(n, elem)
	if err != nil {
		return nil, a.fail("view", offset, n, fmt.Errorf("%w: %w", ErrInvalidArgument, err))
	}
	b, err := a.Bytes(offset, size)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return []T{}, nil
	}

	p := unsafe.Pointer(unsafe.SliceData(b))
	if uintptr(p)%unsafe.Alignof(zero) != 0 {
		return nil, a.fail("view", offset, size,
			fmt.Errorf("%w: offset not aligned for %T", ErrInvalidArgument, zero))
	}
	return unsafe.Slice((*T)(p), n), nil
}

// Float32s returns a float32 view of n elements at offset.
func (a *Arena) Float32s(offset uint64, n int) ([]float32, error) {
	return View[float32](a, offset, n)
}

// Int64s returns an int64 view of n elements at offset.
func (a *Arena) Int64s(offset uint64, n int) ([]int64, error) {
	return View[int64](a, offset, n)
}

func (a *Arena) checkRange(offset uint64, size int) (int, error) {
	if size < 0 {
		return 0, fmt.Errorf("%w: negative size %d", ErrInvalidArgument, size)
	}
	if a.base == nil {
		return 0, fmt.Errorf("%w: arena not materialized", ErrInvalidArgument)
	}
	off, err := conv.Uint64ToInt(offset)
	if err != nil || off > a.capacity || size > a.capacity-off {
		return 0, fmt.Errorf("%w: range [%d,+%d) outside capacity %d",
			ErrInvalidArgument, offset, size, a.capacity)
	}
	return off, nil
}
