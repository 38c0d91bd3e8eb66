package arena

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/tensorarena/backend"
	"github.com/hupe1980/tensorarena/testutil"
)

func buildImageArena(t *testing.T) (*Arena, []uint64) {
	t.Helper()
	a, _ := newTestArena(t, WithAlignment(16))
	rng := testutil.NewRNG(3)

	var offs []uint64
	for _, size := range []int{40, 100, 16, 300, 8} {
		off, err := a.Alloc(size)
		require.NoError(t, err)
		b, err := a.Bytes(off, size)
		require.NoError(t, err)
		rng.FillBytes(b)
		offs = append(offs, off)
	}
	require.NoError(t, a.Free(offs[1], 100))
	require.NoError(t, a.Free(offs[3], 300))
	return a, offs
}

func TestArena_ImageRoundTrip(t *testing.T) {
	for _, debug := range []bool{false, true} {
		src, offs := buildImageArena(t)

		img, err := src.Image()
		require.NoError(t, err)
		assert.Equal(t, 16, img.Alignment)
		assert.Equal(t, src.Capacity(), img.Capacity)
		assert.Equal(t, src.Used(), img.Used)
		assert.Len(t, img.Data, img.Capacity)

		opts := []Option{WithBackend(backend.NewHeap())}
		if debug {
			opts = append(opts, WithDebugChecks())
		}
		dst, err := FromImage(img, opts...)
		require.NoError(t, err)
		t.Cleanup(func() { _ = dst.Close() })

		assert.Equal(t, src.Regions(), dst.Regions())
		assert.Equal(t, src.Used(), dst.Used())
		assert.Equal(t, src.Capacity(), dst.Capacity())

		srcBase, err := src.Base()
		require.NoError(t, err)
		dstBase, err := dst.Base()
		require.NoError(t, err)
		assert.Equal(t, srcBase, dstBase)
		assert.NotSame(t, &srcBase[0], &dstBase[0], "restored arena owns its buffer")

		// Live ranges of the source are live in the copy.
		require.NoError(t, dst.Free(offs[0], 40))
		if debug {
			assert.ErrorIs(t, dst.Free(offs[1], 100), ErrInvalidFree)
		}
		require.NoError(t, dst.Validate())
	}
}

func TestArena_ImageEmpty(t *testing.T) {
	src, _ := newTestArena(t)

	img, err := src.Image()
	require.NoError(t, err)
	assert.Equal(t, 0, img.Capacity)
	assert.Nil(t, img.Data)

	dst, err := FromImage(img)
	require.NoError(t, err)
	assert.Equal(t, 0, dst.Capacity())
	require.NoError(t, dst.Close())
}

func TestFromImage_Invalid(t *testing.T) {
	valid := func() Image {
		return Image{
			Alignment: 8,
			Capacity:  32,
			Used:      16,
			Regions:   []Region{{Offset: 16, Length: 16}},
			Data:      make([]byte, 32),
		}
	}

	tests := []struct {
		name   string
		mutate func(*Image)
		opts   []Option
		want   error
	}{
		{"zero alignment", func(i *Image) { i.Alignment = 0 }, nil, ErrInvalidArgument},
		{"data length", func(i *Image) { i.Data = i.Data[:8] }, nil, ErrInvalidArgument},
		{"empty with state", func(i *Image) { i.Capacity, i.Data = 0, nil }, nil, ErrInvalidArgument},
		{"alignment override", func(*Image) {}, []Option{WithAlignment(16)}, ErrInvalidArgument},
		{"used mismatch", func(i *Image) { i.Used = 8 }, nil, ErrInvariantViolation},
		{"region past capacity", func(i *Image) { i.Regions = []Region{{Offset: 16, Length: 32}}; i.Used = 0 }, nil, ErrInvariantViolation},
		{"overlapping regions", func(i *Image) {
			i.Regions = []Region{{Offset: 0, Length: 16}, {Offset: 8, Length: 8}}
			i.Used = 8
		}, nil, ErrInvariantViolation},
		{"unaligned region", func(i *Image) { i.Regions = []Region{{Offset: 12, Length: 16}}; i.Used = 16 }, nil, ErrInvariantViolation},
		{"region wrapping past max int", func(i *Image) {
			i.Regions = []Region{{Offset: math.MaxInt - 7, Length: 16}}
		}, nil, ErrInvariantViolation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := valid()
			tt.mutate(&img)

			be := testutil.NewCountingBackend()
			_, err := FromImage(img, append([]Option{WithBackend(be)}, tt.opts...)...)
			require.ErrorIs(t, err, tt.want)
			assert.Equal(t, 0, be.Live(), "failed restore releases its buffer")
		})
	}

	t.Run("valid", func(t *testing.T) {
		a, err := FromImage(valid(), WithBackend(backend.NewHeap()))
		require.NoError(t, err)
		require.NoError(t, a.Close())
	})
}
