package backend

import (
	"fmt"

	"github.com/hupe1980/tensorarena/internal/mmap"
)

// AccessPattern is a kernel hint describing how mapped buffers are accessed.
type AccessPattern = mmap.Advice

// Access hints accepted by WithAccessPattern.
const (
	AccessDefault    = mmap.AdviceNormal
	AccessSequential = mmap.AdviceSequential
	AccessRandom     = mmap.AdviceRandom
	AccessWillNeed   = mmap.AdviceWillNeed
)

// Mmap allocates buffers as anonymous memory mappings outside the Go heap.
type Mmap struct {
	advice AccessPattern
}

// MmapOption configures the mmap backend.
type MmapOption func(*Mmap)

// WithAccessPattern sets the kernel access hint applied to every new mapping.
func WithAccessPattern(p AccessPattern) MmapOption {
	return func(m *Mmap) {
		m.advice = p
	}
}

// NewMmap returns an mmap backend.
func NewMmap(opts ...MmapOption) *Mmap {
	m := &Mmap{advice: AccessDefault}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Allocate maps size bytes of zero-filled anonymous memory.
func (m *Mmap) Allocate(size int) (Buffer, error) {
	if size <= 0 {
		return nil, ErrZeroSize
	}

	mapping, err := mmap.MapAnon(size)
	if err != nil {
		return nil, fmt.Errorf("backend: map %d bytes: %w", size, err)
	}

	if m.advice != AccessDefault {
		if err := mapping.Advise(m.advice); err != nil {
			_ = mapping.Close()
			return nil, fmt.Errorf("backend: advise: %w", err)
		}
	}

	return mapping, nil
}

// Release unmaps the buffer.
func (m *Mmap) Release(buf Buffer) error {
	mapping, ok := buf.(*mmap.Mapping)
	if !ok {
		return fmt.Errorf("backend: mmap cannot release %T", buf)
	}
	return mapping.Close()
}
