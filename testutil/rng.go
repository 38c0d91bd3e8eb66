package testutil

import (
	"encoding/binary"
	"math/rand/v2"
	"sync"
)

// RNG is a seeded, goroutine-safe source of allocation workloads.
type RNG struct {
	mu   sync.Mutex
	seed uint64
	src  *rand.ChaCha8
	r    *rand.Rand
}

// NewRNG returns a generator that yields the same sequence for the same seed.
func NewRNG(seed uint64) *RNG {
	g := &RNG{seed: seed}
	g.reset()
	return g
}

func (g *RNG) reset() {
	var key [32]byte
	binary.LittleEndian.PutUint64(key[:], g.seed)
	g.src = rand.NewChaCha8(key)
	g.r = rand.New(g.src)
}

// Reset rewinds the generator to its seed.
func (g *RNG) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reset()
}

// Intn returns a value in [0, n).
func (g *RNG) Intn(n int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.r.IntN(n)
}

// FillBytes fills dst with random bytes.
func (g *RNG) FillBytes(dst []byte) {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, _ = g.src.Read(dst)
}

// Sizes returns n request sizes drawn uniformly from [1, maxSize].
func (g *RNG) Sizes(n, maxSize int) []int {
	g.mu.Lock()
	defer g.mu.Unlock()

	sizes := make([]int, n)
	for i := range sizes {
		sizes[i] = 1 + g.r.IntN(maxSize)
	}
	return sizes
}

// TensorSizes returns n request sizes shaped like tensor buffers: a Zipf
// distributed element count in [1, maxElems] times elemSize. Most requests
// are small and a few are large. s is the skew and must exceed 1.
func (g *RNG) TensorSizes(n, maxElems, elemSize int, s float64) []int {
	g.mu.Lock()
	defer g.mu.Unlock()

	z := rand.NewZipf(g.r, s, 1, uint64(max(maxElems, 1)-1))
	sizes := make([]int, n)
	for i := range sizes {
		sizes[i] = (int(z.Uint64()) + 1) * elemSize //nolint:gosec // bounded by maxElems
	}
	return sizes
}
