package mem

import (
	"fmt"
	"unsafe"
)

// CacheLine is the default buffer alignment. It is also wide enough for
// AVX-512 loads.
const CacheLine = 64

// Alloc returns a zeroed slice of size bytes whose first byte sits on an
// align boundary. align must be a power of two; values below 2 impose no
// alignment. Non-positive sizes return nil.
//
// The slice is cut from a larger allocation and its capacity is clipped to
// size, so appends reallocate instead of running into the padding.
func Alloc(size, align int) []byte {
	if size <= 0 {
		return nil
	}
	if align < 2 {
		return make([]byte, size)
	}
	if align&(align-1) != 0 {
		panic(fmt.Sprintf("mem: alignment %d is not a power of two", align))
	}

	raw := make([]byte, size+align-1)
	skip := Padding(raw, align)
	return raw[skip : skip+size : skip+size]
}

// Padding returns how many bytes must be skipped from the start of b to
// reach an align boundary.
func Padding(b []byte, align int) int {
	if len(b) == 0 || align < 2 {
		return 0
	}
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(b))) //nolint:gosec // address arithmetic only
	return int(-addr & uintptr(align-1))
}

// IsAligned reports whether the first byte of b is aligned to align.
func IsAligned(b []byte, align int) bool {
	return Padding(b, align) == 0
}
