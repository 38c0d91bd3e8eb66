package arena

import (
	"bytes"
	"errors"
	"log/slog"
	"math/bits"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/tensorarena/backend"
	"github.com/hupe1980/tensorarena/resource"
	"github.com/hupe1980/tensorarena/testutil"
)

func newTestArena(t testing.TB, opts ...Option) (*Arena, *testutil.CountingBackend) {
	t.Helper()
	be := testutil.NewCountingBackend()
	a, err := New(append([]Option{WithBackend(be)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a, be
}

func TestArena_New(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		a, be := newTestArena(t)

		assert.Equal(t, DefaultAlignment, a.Alignment())
		assert.Equal(t, 0, a.Capacity())
		assert.Equal(t, 0, a.Used())
		assert.Empty(t, a.Regions())
		assert.Equal(t, 0, be.Allocs(), "construction must not allocate")
	})

	t.Run("invalid alignment", func(t *testing.T) {
		for _, align := range []int{0, -8} {
			_, err := New(WithAlignment(align))
			assert.ErrorIs(t, err, ErrInvalidArgument)
		}
	})

	t.Run("negative min capacity", func(t *testing.T) {
		_, err := New(WithMinCapacity(-1))
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})
}

func TestArena_AlignedSize(t *testing.T) {
	a, _ := newTestArena(t)

	tests := []struct {
		size int
		want int
	}{
		{-1, 0},
		{0, 8},
		{1, 8},
		{7, 8},
		{8, 8},
		{9, 16},
		{10, 16},
		{17, 24},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, a.AlignedSize(tt.size), "size=%d", tt.size)
	}
}

func TestArena_Scenario(t *testing.T) {
	a, be := newTestArena(t)

	off, err := a.Alloc(10)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), off)
	assert.Equal(t, 16, a.Capacity())
	assert.Equal(t, 16, a.Used())
	assert.Equal(t, []int{16}, be.Sizes())

	off, err = a.Alloc(8)
	require.NoError(t, err)
	assert.Equal(t, uint64(16), off)
	assert.Equal(t, 32, a.Capacity())
	assert.Equal(t, 24, a.Used())
	assert.Equal(t, []int{16, 32}, be.Sizes())
	assert.Equal(t, 1, be.Releases(), "old buffer released on growth")
	assert.Equal(t, []Region{{Offset: 24, Length: 8}}, a.Regions(), "unused tail is free")

	require.NoError(t, a.Free(0, 16))
	assert.Equal(t, 8, a.Used())
	assert.Equal(t, []Region{{0, 16}, {24, 8}}, a.Regions())

	off, err = a.Alloc(8)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), off)
	assert.Equal(t, 16, a.Used())
	assert.Equal(t, []Region{{8, 8}, {24, 8}}, a.Regions())

	require.NoError(t, a.Free(16, 8))
	assert.Equal(t, 8, a.Used())
	assert.Equal(t, []Region{{8, 8}, {16, 8}, {24, 8}}, a.Regions(), "free does not coalesce")

	// The next allocation merges [8,16) [16,24) [24,32) before placing.
	off, err = a.Alloc(24)
	require.NoError(t, err)
	assert.Equal(t, uint64(8), off)
	assert.Equal(t, 32, a.Used())
	assert.Equal(t, 32, a.Capacity())
	assert.Empty(t, a.Regions())
	assert.Equal(t, uint64(2), a.Stats().Coalesced)

	off, err = a.Alloc(32)
	require.NoError(t, err)
	assert.Equal(t, uint64(32), off)
	assert.Equal(t, 64, a.Capacity())
	assert.Equal(t, 64, a.Used())

	require.NoError(t, a.Validate())
}

func TestArena_ZeroAndNegativeSize(t *testing.T) {
	a, _ := newTestArena(t)

	off, err := a.Alloc(0)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), off)
	assert.Equal(t, 8, a.Used(), "zero size consumes one aligned unit")

	off, err = a.Alloc(0)
	require.NoError(t, err)
	assert.Equal(t, uint64(8), off, "distinct zero-size allocations do not share an offset")

	_, err = a.Alloc(-1)
	require.ErrorIs(t, err, ErrInvalidArgument)
	assert.Equal(t, 16, a.Used())

	require.NoError(t, a.Free(0, 0))
	assert.Equal(t, 8, a.Used())

	assert.ErrorIs(t, a.Free(8, -4), ErrInvalidArgument)
	require.NoError(t, a.Validate())
}

func TestArena_GrowthPreservesData(t *testing.T) {
	a, _ := newTestArena(t)

	off, err := a.Alloc(16)
	require.NoError(t, err)

	b, err := a.Bytes(off, 16)
	require.NoError(t, err)
	for i := range b {
		b[i] = byte(i + 1)
	}
	before, err := a.Base()
	require.NoError(t, err)

	big, err := a.Alloc(1000)
	require.NoError(t, err)
	assert.Equal(t, uint64(16), big)
	assert.Equal(t, 1024, a.Capacity())

	after, err := a.Base()
	require.NoError(t, err)
	assert.NotSame(t, &before[0], &after[0], "growth relocates the buffer")

	b, err = a.Bytes(off, 16)
	require.NoError(t, err)
	for i := range b {
		assert.Equal(t, byte(i+1), b[i])
	}
}

func TestArena_GrowthSufficiency(t *testing.T) {
	a, _ := newTestArena(t, WithAlignment(16))
	rng := testutil.NewRNG(99)

	for _, size := range rng.Sizes(200, 300) {
		prevCap := a.Capacity()
		prevGrowths := a.Stats().Growths

		off, err := a.Alloc(size)
		require.NoError(t, err)

		capNow := a.Capacity()
		require.GreaterOrEqual(t, capNow, prevCap)
		if a.Stats().Growths == prevGrowths || prevCap == 0 {
			continue
		}

		// A growth places the request at the old end of the buffer.
		assert.Equal(t, uint64(prevCap), off)
		assert.GreaterOrEqual(t, capNow, prevCap+a.AlignedSize(size))
		ratio := capNow / prevCap
		assert.Zero(t, capNow%prevCap)
		assert.Equal(t, 1, bits.OnesCount(uint(ratio)), "ratio %d is not a power of two", ratio)
	}
}

func TestArena_ReuseRoundTrip(t *testing.T) {
	tests := []struct {
		s1, s2 int
	}{
		{64, 64},
		{64, 1},
		{100, 50},
		{8, 0},
	}
	for _, tt := range tests {
		a, _ := newTestArena(t)

		_, err := a.Alloc(24)
		require.NoError(t, err)

		first, err := a.Alloc(tt.s1)
		require.NoError(t, err)
		require.NoError(t, a.Free(first, tt.s1))

		second, err := a.Alloc(tt.s2)
		require.NoError(t, err)
		assert.Equal(t, first, second, "s1=%d s2=%d", tt.s1, tt.s2)
	}
}

// TestArena_RandomOperations drives random alloc/free sequences and checks
// every invariant after each step.
func TestArena_RandomOperations(t *testing.T) {
	for _, align := range []int{1, 8, 64} {
		rng := testutil.NewRNG(uint64(align))
		a, be := newTestArena(t, WithAlignment(align), WithDebugChecks())

		type alloc struct {
			off  uint64
			size int
			tag  byte
		}
		var live []alloc
		requested := 0
		prevCap := 0

		for step := range 2000 {
			if len(live) == 0 || rng.Intn(100) < 60 {
				size := 1 + rng.Intn(200)
				off, err := a.Alloc(size)
				require.NoError(t, err)
				require.Zero(t, off%uint64(align), "offset %d not aligned", off)

				tag := byte(step)
				b, err := a.Bytes(off, size)
				require.NoError(t, err)
				for i := range b {
					b[i] = tag
				}
				live = append(live, alloc{off: off, size: size, tag: tag})
				requested += a.AlignedSize(size)

				// Placement runs after a full coalesce: no two free regions touch.
				regions := a.Regions()
				for i := 1; i < len(regions); i++ {
					require.Less(t, regions[i-1].End(), regions[i].Offset)
				}
			} else {
				i := rng.Intn(len(live))
				victim := live[i]
				live[i] = live[len(live)-1]
				live = live[:len(live)-1]

				require.NoError(t, a.Free(victim.off, victim.size))
				requested -= a.AlignedSize(victim.size)
			}

			require.NoError(t, a.Validate())
			require.Equal(t, requested, a.Used())
			require.LessOrEqual(t, a.Used(), a.Capacity())
			require.GreaterOrEqual(t, a.Capacity(), prevCap)
			prevCap = a.Capacity()
		}

		sorted := append([]alloc(nil), live...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].off < sorted[j].off })
		for i := 1; i < len(sorted); i++ {
			prevEnd := sorted[i-1].off + uint64(a.AlignedSize(sorted[i-1].size))
			require.LessOrEqual(t, prevEnd, sorted[i].off, "live ranges overlap")
		}

		for _, l := range live {
			b, err := a.Bytes(l.off, l.size)
			require.NoError(t, err)
			require.Equal(t, bytes.Repeat([]byte{l.tag}, l.size), b, "data at %d lost", l.off)
		}

		assert.Equal(t, 1, be.Live(), "exactly one buffer is held")
	}
}

func TestArena_OutOfMemory(t *testing.T) {
	t.Run("backend failure", func(t *testing.T) {
		a, be := newTestArena(t)
		be.FailAfter = 1

		off, err := a.Alloc(8)
		require.NoError(t, err)

		_, err = a.Alloc(16)
		require.ErrorIs(t, err, ErrOutOfMemory)
		require.ErrorIs(t, err, testutil.ErrBackendExhausted)

		var allocErr *AllocError
		require.ErrorAs(t, err, &allocErr)
		assert.Equal(t, "alloc", allocErr.Op)
		assert.Equal(t, uint64(0), allocErr.Offset, "no range was placed")
		assert.Equal(t, 16, allocErr.Size)
		assert.Equal(t, 8, allocErr.Capacity)
		assert.Equal(t, 8, allocErr.Used)

		// The arena is left untouched and usable.
		assert.Equal(t, 8, a.Capacity())
		require.NoError(t, a.Validate())
		require.NoError(t, a.Free(off, 8))
		off, err = a.Alloc(8)
		require.NoError(t, err)
		assert.Equal(t, uint64(0), off)
	})

	t.Run("first materialization", func(t *testing.T) {
		a, be := newTestArena(t)
		be.Inner = failingBackend{}

		_, err := a.Alloc(8)
		require.ErrorIs(t, err, ErrOutOfMemory)
		assert.Equal(t, 0, a.Capacity())

		_, err = a.Base()
		assert.ErrorIs(t, err, ErrOutOfMemory)
	})

	t.Run("memory limit", func(t *testing.T) {
		rc := resource.NewController(resource.Config{MemoryLimitBytes: 64})
		a, _ := newTestArena(t, WithMemoryAcquirer(rc))

		_, err := a.Alloc(32)
		require.NoError(t, err)
		assert.Equal(t, int64(32), rc.MemoryUsage())

		// Growing to 64 needs the old and new buffer at once.
		_, err = a.Alloc(32)
		require.ErrorIs(t, err, ErrOutOfMemory)
		require.ErrorIs(t, err, resource.ErrMemoryLimitExceeded)
		assert.Equal(t, int64(32), rc.MemoryUsage())
		assert.Equal(t, 32, a.Capacity())

		require.NoError(t, a.Close())
		assert.Equal(t, int64(0), rc.MemoryUsage())
	})

	t.Run("memory accounting across growth", func(t *testing.T) {
		rc := resource.NewController(resource.Config{MemoryLimitBytes: 1024})
		a, _ := newTestArena(t, WithMemoryAcquirer(rc))

		_, err := a.Alloc(32)
		require.NoError(t, err)
		_, err = a.Alloc(32)
		require.NoError(t, err)

		assert.Equal(t, int64(64), rc.MemoryUsage())
		assert.Equal(t, int64(96), rc.MemoryPeak())
	})
}

type failingBackend struct{}

func (failingBackend) Allocate(int) (backend.Buffer, error) {
	return nil, errors.New("device out of memory")
}

func (failingBackend) Release(backend.Buffer) error { return nil }

type shortBackend struct{ backend.Heap }

func (s *shortBackend) Allocate(size int) (backend.Buffer, error) {
	return s.Heap.Allocate(size / 2)
}

func TestArena_ShortBuffer(t *testing.T) {
	a, err := New(WithBackend(&shortBackend{}))
	require.NoError(t, err)

	_, err = a.Alloc(64)
	assert.ErrorIs(t, err, ErrOutOfMemory)
	assert.Equal(t, 0, a.Capacity())
}

func TestArena_DebugChecks(t *testing.T) {
	t.Run("double free", func(t *testing.T) {
		a, _ := newTestArena(t, WithDebugChecks())

		off, err := a.Alloc(16)
		require.NoError(t, err)
		require.NoError(t, a.Free(off, 16))

		err = a.Free(off, 16)
		require.ErrorIs(t, err, ErrInvalidFree)
		assert.Equal(t, 0, a.Used(), "rejected free leaves accounting intact")
		require.NoError(t, a.Validate())
	})

	t.Run("partially live range", func(t *testing.T) {
		a, _ := newTestArena(t, WithDebugChecks())

		off, err := a.Alloc(16)
		require.NoError(t, err)

		assert.ErrorIs(t, a.Free(off, 32), ErrInvalidFree)
		assert.Equal(t, 16, a.Used())
	})

	t.Run("unaligned offset", func(t *testing.T) {
		a, _ := newTestArena(t, WithDebugChecks())

		_, err := a.Alloc(32)
		require.NoError(t, err)

		assert.ErrorIs(t, a.Free(4, 8), ErrInvalidFree)
	})

	t.Run("past capacity", func(t *testing.T) {
		a, _ := newTestArena(t, WithDebugChecks())

		_, err := a.Alloc(8)
		require.NoError(t, err)

		assert.ErrorIs(t, a.Free(64, 8), ErrInvalidFree)
	})

	t.Run("disabled by default", func(t *testing.T) {
		a, _ := newTestArena(t)

		off, err := a.Alloc(16)
		require.NoError(t, err)
		require.NoError(t, a.Free(off, 16))
		assert.NoError(t, a.Free(off, 16), "misuse is trusted without debug checks")
	})
}

func TestArena_Base(t *testing.T) {
	t.Run("min capacity", func(t *testing.T) {
		a, be := newTestArena(t, WithMinCapacity(100))

		base, err := a.Base()
		require.NoError(t, err)
		assert.Len(t, base, 104)
		assert.Equal(t, 104, a.Capacity())
		assert.Equal(t, []Region{{0, 104}}, a.Regions())

		off, err := a.Alloc(8)
		require.NoError(t, err)
		assert.Equal(t, uint64(0), off)
		assert.Equal(t, 1, be.Allocs(), "no growth needed")
		require.NoError(t, a.Validate())
	})

	t.Run("default min capacity", func(t *testing.T) {
		a, _ := newTestArena(t)

		base, err := a.Base()
		require.NoError(t, err)
		assert.Len(t, base, DefaultAlignment)
	})

	t.Run("stable without allocation", func(t *testing.T) {
		a, be := newTestArena(t)

		_, err := a.Alloc(32)
		require.NoError(t, err)
		b1, err := a.Base()
		require.NoError(t, err)
		b2, err := a.Base()
		require.NoError(t, err)

		assert.Same(t, &b1[0], &b2[0])
		assert.Equal(t, 1, be.Allocs())
	})
}

func TestArena_Close(t *testing.T) {
	t.Run("releases exactly once", func(t *testing.T) {
		a, be := newTestArena(t)

		for _, size := range []int{8, 8, 64, 512} {
			_, err := a.Alloc(size)
			require.NoError(t, err)
		}
		require.Greater(t, be.Allocs(), 1)

		require.NoError(t, a.Close())
		assert.Equal(t, be.Allocs(), be.Releases())
		assert.Equal(t, 0, be.Live())

		require.NoError(t, a.Close(), "close is idempotent")
		assert.Equal(t, be.Allocs(), be.Releases())
	})

	t.Run("never materialized", func(t *testing.T) {
		a, be := newTestArena(t)

		require.NoError(t, a.Close())
		assert.Equal(t, 0, be.Releases())
	})

	t.Run("use after close", func(t *testing.T) {
		a, _ := newTestArena(t)
		require.NoError(t, a.Close())

		_, err := a.Alloc(8)
		assert.ErrorIs(t, err, ErrClosed)
		assert.ErrorIs(t, a.Free(0, 8), ErrClosed)
		_, err = a.Base()
		assert.ErrorIs(t, err, ErrClosed)
		_, err = a.Bytes(0, 8)
		assert.ErrorIs(t, err, ErrClosed)
		_, err = a.Image()
		assert.ErrorIs(t, err, ErrClosed)
		assert.ErrorIs(t, a.Reset(), ErrClosed)
	})
}

func TestArena_Reset(t *testing.T) {
	a, be := newTestArena(t, WithDebugChecks())

	for range 10 {
		_, err := a.Alloc(24)
		require.NoError(t, err)
	}
	capBefore := a.Capacity()

	require.NoError(t, a.Reset())
	assert.Equal(t, 0, a.Used())
	assert.Equal(t, capBefore, a.Capacity())
	assert.Equal(t, []Region{{0, uint64(capBefore)}}, a.Regions())
	require.NoError(t, a.Validate())

	off, err := a.Alloc(24)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), off)
	assert.Equal(t, 1, be.Live())
}

func TestArena_Stats(t *testing.T) {
	a, _ := newTestArena(t)

	assert.Equal(t, Stats{}, a.Stats())
	assert.Zero(t, a.Stats().Utilization())

	off, err := a.Alloc(16)
	require.NoError(t, err)
	_, err = a.Alloc(16)
	require.NoError(t, err)
	require.NoError(t, a.Free(off, 16))

	s := a.Stats()
	assert.Equal(t, 16, s.Used)
	assert.Equal(t, 32, s.Capacity)
	assert.Equal(t, 16, s.FreeBytes)
	assert.Equal(t, 1, s.FreeRegions)
	assert.Equal(t, uint64(2), s.Allocs)
	assert.Equal(t, uint64(1), s.Frees)
	assert.Equal(t, uint64(1), s.Growths)
	assert.InDelta(t, 0.5, s.Utilization(), 1e-9)

	assert.Equal(t, "arena{used=16 capacity=32 free=16 regions=1 alignment=8}", a.String())
}

func TestArena_Validate(t *testing.T) {
	a, _ := newTestArena(t)
	_, err := a.Alloc(32)
	require.NoError(t, err)

	// Corrupt the index: a free region overlapping a live range.
	a.free.insert(span{off: 8, n: 8})

	err = a.Validate()
	require.ErrorIs(t, err, ErrInvariantViolation)

	var allocErr *AllocError
	require.ErrorAs(t, err, &allocErr)
	assert.Equal(t, "validate", allocErr.Op)
}

func TestArena_GrowInvariant(t *testing.T) {
	a, _ := newTestArena(t)
	_, err := a.Alloc(16)
	require.NoError(t, err)

	a.free.insert(span{off: 64, n: 8})

	_, err = a.Alloc(128)
	assert.ErrorIs(t, err, ErrInvariantViolation)
}

type recordingMetrics struct {
	allocs    int
	failed    int
	grew      int
	frees     int
	growths   [][2]int
	coalesced int
	used      int
	capacity  int
}

func (m *recordingMetrics) RecordAlloc(_ int, grew bool, err error) {
	if err != nil {
		m.failed++
		return
	}
	m.allocs++
	if grew {
		m.grew++
	}
}

func (m *recordingMetrics) RecordFree(int) { m.frees++ }

func (m *recordingMetrics) RecordGrowth(oldCap, newCap int, _ time.Duration) {
	m.growths = append(m.growths, [2]int{oldCap, newCap})
}

func (m *recordingMetrics) RecordCoalesce(merged int) { m.coalesced += merged }

func (m *recordingMetrics) RecordUsage(used, capacity int) {
	m.used, m.capacity = used, capacity
}

func TestArena_Metrics(t *testing.T) {
	m := &recordingMetrics{}
	a, _ := newTestArena(t, WithMetricsCollector(m))

	o1, err := a.Alloc(8)
	require.NoError(t, err)
	o2, err := a.Alloc(8)
	require.NoError(t, err)
	_, err = a.Alloc(16)
	require.NoError(t, err)
	require.NoError(t, a.Free(o1, 8))
	require.NoError(t, a.Free(o2, 8))
	_, err = a.Alloc(16)
	require.NoError(t, err)
	_, err = a.Alloc(-1)
	require.Error(t, err)

	assert.Equal(t, 4, m.allocs)
	assert.Equal(t, 1, m.failed)
	assert.Equal(t, 2, m.grew)
	assert.Equal(t, 2, m.frees)
	assert.Equal(t, [][2]int{{8, 16}, {16, 32}}, m.growths)
	assert.Equal(t, 1, m.coalesced)
	assert.Equal(t, 32, m.used)
	assert.Equal(t, 32, m.capacity)
}

func TestArena_Logging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	a, be := newTestArena(t, WithLogger(logger))
	_, err := a.Alloc(8)
	require.NoError(t, err)
	_, err = a.Alloc(8)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"msg":"arena grew"`)
	assert.Contains(t, buf.String(), `"new_capacity":16`)

	be.FailAfter = be.Allocs()
	_, err = a.Alloc(64)
	require.Error(t, err)
	assert.Contains(t, buf.String(), `"level":"ERROR"`)
	assert.Contains(t, buf.String(), `"op":"alloc"`)
	assert.Contains(t, buf.String(), `"capacity":16`)
}

func BenchmarkArena_AllocFree(b *testing.B) {
	a, _ := newTestArena(b, WithBackend(backend.NewHeap()))
	rng := testutil.NewRNG(1)
	sizes := rng.TensorSizes(1024, 1024, 4, 1.2)

	offs := make([]uint64, len(sizes))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for j, s := range sizes {
			off, err := a.Alloc(s)
			if err != nil {
				b.Fatal(err)
			}
			offs[j] = off
		}
		for j, s := range sizes {
			if err := a.Free(offs[j], s); err != nil {
				b.Fatal(err)
			}
		}
	}
}

func BenchmarkArena_Grow(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		a, err := New(WithBackend(backend.NewHeap()))
		if err != nil {
			b.Fatal(err)
		}
		for range 16 {
			if _, err := a.Alloc(4096); err != nil {
				b.Fatal(err)
			}
		}
		_ = a.Close()
	}
}
