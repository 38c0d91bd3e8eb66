package testutil

import (
	"errors"
	"sync"

	"github.com/hupe1980/tensorarena/backend"
)

// ErrBackendExhausted is returned by CountingBackend once its budget is spent.
var ErrBackendExhausted = errors.New("testutil: backend exhausted")

// CountingBackend records every allocation and release of an inner backend
// so tests can check that each buffer is released exactly once.
// FailAfter caps the number of successful allocations; zero means no cap.
type CountingBackend struct {
	Inner     backend.Backend
	FailAfter int

	mu       sync.Mutex
	sizes    []int
	releases int
	live     map[backend.Buffer]struct{}
}

// NewCountingBackend wraps a heap backend.
func NewCountingBackend() *CountingBackend {
	return &CountingBackend{
		Inner: backend.NewHeap(),
		live:  make(map[backend.Buffer]struct{}),
	}
}

func (c *CountingBackend) Allocate(size int) (backend.Buffer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.FailAfter > 0 && len(c.sizes) >= c.FailAfter {
		return nil, ErrBackendExhausted
	}
	buf, err := c.Inner.Allocate(size)
	if err != nil {
		return nil, err
	}
	c.live[buf] = struct{}{}
	c.sizes = append(c.sizes, size)
	return buf, nil
}

// Release fails for buffers it did not hand out or already took back.
func (c *CountingBackend) Release(buf backend.Buffer) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.live[buf]; !ok {
		return errors.New("testutil: release of unknown buffer")
	}
	delete(c.live, buf)
	c.releases++
	return c.Inner.Release(buf)
}

// Allocs returns the number of successful allocations.
func (c *CountingBackend) Allocs() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sizes)
}

func (c *CountingBackend) Releases() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.releases
}

// Live returns the number of buffers not yet released.
func (c *CountingBackend) Live() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.live)
}

// Sizes returns the size of every successful allocation in order.
func (c *CountingBackend) Sizes() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int(nil), c.sizes...)
}
