package conv

import (
	"errors"
	"fmt"
	"math"
)

// ErrOverflow is returned when a value does not fit the target type.
var ErrOverflow = errors.New("integer overflow")

func overflow(v any, target string) error {
	return fmt.Errorf("%w: %v does not fit %s", ErrOverflow, v, target)
}

// IntToUint32 converts a non-negative int that fits in 32 bits.
func IntToUint32(v int) (uint32, error) {
	if v < 0 || uint64(v) > math.MaxUint32 {
		return 0, overflow(v, "uint32")
	}
	return uint32(v), nil
}

// IntToUint64 converts a non-negative int.
func IntToUint64(v int) (uint64, error) {
	if v < 0 {
		return 0, overflow(v, "uint64")
	}
	return uint64(v), nil
}

// Uint64ToInt converts v if it is at most math.MaxInt.
func Uint64ToInt(v uint64) (int, error) {
	if v > math.MaxInt {
		return 0, overflow(v, "int")
	}
	return int(v), nil
}

// Uint32ToInt converts v. It only fails where int is 32 bits wide.
func Uint32ToInt(v uint32) (int, error) {
	if uint64(v) > math.MaxInt {
		return 0, overflow(v, "int")
	}
	return int(v), nil
}

// MulInt multiplies two non-negative ints.
func MulInt(a, b int) (int, error) {
	if a < 0 || b < 0 || (a != 0 && b > math.MaxInt/a) {
		return 0, fmt.Errorf("%w: %d * %d", ErrOverflow, a, b)
	}
	return a * b, nil
}
