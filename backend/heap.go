package backend

import (
	"fmt"

	"github.com/hupe1980/tensorarena/internal/mem"
)

// Heap allocates buffers on the Go heap.
type Heap struct {
	align int
}

// NewHeap returns a heap backend whose buffers start on a cache line.
func NewHeap() *Heap { return NewHeapAligned(mem.CacheLine) }

// NewHeapAligned returns a heap backend whose buffers start on an align
// boundary. align must be a power of two.
func NewHeapAligned(align int) *Heap {
	if align < 1 || align&(align-1) != 0 {
		panic(fmt.Sprintf("backend: heap alignment %d is not a power of two", align))
	}
	return &Heap{align: align}
}

type heapBuffer struct {
	data []byte
}

func (b *heapBuffer) Bytes() []byte { return b.data }

// Allocate returns a zeroed buffer of size bytes.
func (h *Heap) Allocate(size int) (Buffer, error) {
	if size <= 0 {
		return nil, ErrZeroSize
	}
	return &heapBuffer{data: mem.Alloc(size, h.align)}, nil
}

// Release drops the reference; the garbage collector reclaims the memory.
func (h *Heap) Release(buf Buffer) error {
	hb, ok := buf.(*heapBuffer)
	if !ok {
		return fmt.Errorf("backend: heap cannot release %T", buf)
	}
	hb.data = nil
	return nil
}
