// Package backend provides the raw buffers an arena allocates from.
package backend

import "errors"

// ErrZeroSize is returned when a zero or negative sized buffer is requested.
var ErrZeroSize = errors.New("backend: buffer size must be positive")

// Buffer is a handle to a contiguous block of memory obtained from a Backend.
type Buffer interface {
	// Bytes returns the memory. Its length is the requested size.
	Bytes() []byte
}

// Backend hands out and takes back raw buffers.
//
// An arena calls Allocate when it materializes or grows its backing buffer
// and Release exactly once for every buffer it stops using.
type Backend interface {
	Allocate(size int) (Buffer, error)
	Release(buf Buffer) error
}

// Default returns the backend used when none is configured.
func Default() Backend {
	return NewMmap()
}
