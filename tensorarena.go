package tensorarena

import (
	"github.com/hupe1980/tensorarena/internal/arena"
)

// DefaultAlignment is the alignment used when none is configured.
const DefaultAlignment = arena.DefaultAlignment

type (
	// Arena is a growable region allocator. See New.
	Arena = arena.Arena
	// Region is a free byte range [Offset, Offset+Length).
	Region = arena.Region
	// Stats is a point-in-time summary of an arena.
	Stats = arena.Stats
	// Image is the exported state of an arena, as consumed by FromImage.
	Image = arena.Image
	// AllocError describes a failed arena operation.
	AllocError = arena.AllocError
)

// New creates an arena. No memory is acquired until the first Alloc.
func New(opts ...Option) (*Arena, error) {
	return arena.New(opts...)
}

// MustNew is like New but panics on invalid options.
func MustNew(opts ...Option) *Arena {
	a, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return a
}

// FromImage creates an arena holding a copy of img.
func FromImage(img Image, opts ...Option) (*Arena, error) {
	return arena.FromImage(img, opts...)
}

// View reinterprets n elements of type T starting at offset. The slice is
// invalidated by the next Alloc.
func View[T any](a *Arena, offset uint64, n int) ([]T, error) {
	return arena.View[T](a, offset, n)
}
