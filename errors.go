package tensorarena

import "github.com/hupe1980/tensorarena/internal/arena"

var (
	// ErrOutOfMemory is returned when the backend or the memory limit
	// cannot supply a buffer.
	ErrOutOfMemory = arena.ErrOutOfMemory
	// ErrInvariantViolation is returned when internal bookkeeping is corrupt.
	ErrInvariantViolation = arena.ErrInvariantViolation
	// ErrInvalidArgument is returned for negative sizes and invalid options.
	ErrInvalidArgument = arena.ErrInvalidArgument
	// ErrInvalidFree is returned by debug checks for double or stray frees.
	ErrInvalidFree = arena.ErrInvalidFree
	// ErrClosed is returned when an arena is used after Close.
	ErrClosed = arena.ErrClosed
)
