package arena

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfMemory is returned when the backend or the memory limit
	// cannot provide a buffer large enough for a request.
	ErrOutOfMemory = errors.New("arena: out of memory")
	// ErrInvariantViolation is returned when the arena detects corrupt internal state.
	ErrInvariantViolation = errors.New("arena: invariant violation")
	// ErrInvalidArgument is returned for negative sizes and invalid options.
	ErrInvalidArgument = errors.New("arena: invalid argument")
	// ErrInvalidFree is returned by debug checks when a released range is not live.
	ErrInvalidFree = errors.New("arena: invalid free")
	// ErrClosed is returned when the arena is used after Close.
	ErrClosed = errors.New("arena: closed")
)

// AllocError describes a failed arena operation together with the arena
// state at the time of failure.
//
// The underlying sentinel can be matched with errors.Is.
type AllocError struct {
	Op       string
	// Offset is the range the operation targeted. It is zero for an Alloc
	// that placed nothing.
	Offset   uint64
	Size     int
	Capacity int
	Used     int
	Err      error
}

func (e *AllocError) Error() string {
	return fmt.Sprintf("%v (op=%s offset=%d size=%d capacity=%d used=%d)",
		e.Err, e.Op, e.Offset, e.Size, e.Capacity, e.Used)
}

func (e *AllocError) Unwrap() error { return e.Err }
