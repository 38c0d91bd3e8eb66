package arena

import (
	"fmt"

	"github.com/hupe1980/tensorarena/internal/conv"
)

// Image is the complete state of an arena: geometry, free regions and buffer
// contents.
type Image struct {
	Alignment int
	Capacity  int
	Used      int
	Regions   []Region
	// Data aliases the arena buffer and is invalidated by the next Alloc.
	Data []byte
}

// Image exports the arena state. An arena that never materialized yields an
// image with zero capacity and no data.
func (a *Arena) Image() (Image, error) {
	if a.closed {
		return Image{}, a.fail("image", 0, 0, ErrClosed)
	}
	return Image{
		Alignment: a.alignment,
		Capacity:  a.capacity,
		Used:      a.used,
		Regions:   a.Regions(),
		Data:      a.base,
	}, nil
}

// FromImage builds an arena holding a copy of img. The alignment is taken
// from the image; an option that sets a different one is rejected. The
// restored arena is validated before it is returned.
func FromImage(img Image, opts ...Option) (*Arena, error) {
	opts = append([]Option{WithAlignment(img.Alignment)}, opts...)

	a, err := New(opts...)
	if err != nil {
		return nil, err
	}
	if a.alignment != img.Alignment {
		return nil, &AllocError{Op: "restore", Size: a.alignment,
			Err: fmt.Errorf("%w: alignment %d conflicts with image alignment %d",
				ErrInvalidArgument, a.alignment, img.Alignment)}
	}
	if img.Capacity < 0 || len(img.Data) != img.Capacity {
		return nil, &AllocError{Op: "restore", Size: len(img.Data), Capacity: img.Capacity,
			Err: fmt.Errorf("%w: image data length %d != capacity %d",
				ErrInvalidArgument, len(img.Data), img.Capacity)}
	}
	if img.Capacity == 0 {
		if img.Used != 0 || len(img.Regions) != 0 {
			return nil, &AllocError{Op: "restore", Used: img.Used,
				Err: fmt.Errorf("%w: empty image with state", ErrInvalidArgument)}
		}
		return a, nil
	}

	if err := a.restore(img); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *Arena) restore(img Image) error {
	buf, err := a.acquireBuffer(img.Capacity)
	if err != nil {
		return a.fail("restore", 0, img.Capacity, err)
	}
	a.buf = buf
	a.base = buf.Bytes()[:img.Capacity]
	a.capacity = img.Capacity
	copy(a.base, img.Data)

	if a.live != nil {
		if err := a.live.add(0, a.capacity); err != nil {
			return a.fail("restore", 0, a.capacity, err)
		}
	}

	for _, r := range img.Regions {
		off, err := conv.Uint64ToInt(r.Offset)
		if err != nil {
			return a.fail("restore", r.Offset, 0, fmt.Errorf("%w: %w", ErrInvalidArgument, err))
		}
		n, err := conv.Uint64ToInt(r.Length)
		if err != nil {
			return a.fail("restore", r.Offset, 0, fmt.Errorf("%w: %w", ErrInvalidArgument, err))
		}
		if a.live != nil {
			if err := a.live.remove(off, n); err != nil {
				return a.fail("restore", r.Offset, n, err)
			}
		}
		a.free.insert(span{off: off, n: n})
	}
	a.used = img.Used

	return a.Validate()
}
