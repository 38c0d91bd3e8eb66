package arena

import (
	"log/slog"

	"github.com/hupe1980/tensorarena/backend"
)

// DefaultAlignment is the default allocation granularity in bytes.
// It matches the widest tensor element type (int64/float64).
const DefaultAlignment = 8

// MemoryAcquirer reserves memory before the arena requests a buffer.
// resource.Controller implements it.
type MemoryAcquirer interface {
	AcquireMemory(amount int64) error
	ReleaseMemory(amount int64)
}

type options struct {
	alignment   int
	minCapacity int
	backend     backend.Backend
	acquirer    MemoryAcquirer
	logger      *slog.Logger
	metrics     MetricsCollector
	debugChecks bool
}

// Option is a configuration option for Arena.
type Option func(*options)

// WithAlignment sets the allocation granularity. Every size is rounded up to
// a multiple of it and every returned offset is a multiple of it.
func WithAlignment(alignment int) Option {
	return func(o *options) {
		o.alignment = alignment
	}
}

// WithMinCapacity sets the buffer size used when Base materializes an arena
// that has never allocated. It is rounded up to the alignment.
func WithMinCapacity(n int) Option {
	return func(o *options) {
		o.minCapacity = n
	}
}

// WithBackend sets the memory backend. Defaults to backend.Default().
func WithBackend(b backend.Backend) Option {
	return func(o *options) {
		o.backend = b
	}
}

// WithMemoryAcquirer sets the memory acquirer consulted before every
// backend allocation.
func WithMemoryAcquirer(acquirer MemoryAcquirer) Option {
	return func(o *options) {
		o.acquirer = acquirer
	}
}

// WithLogger sets the structured logger. Defaults to discarding output.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetricsCollector sets the metrics collector.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metrics = mc
	}
}

// WithDebugChecks enables misuse detection: releasing a range that is not
// fully live fails with ErrInvalidFree. Off by default; it tracks every
// allocation unit and costs time and memory proportional to the arena size.
func WithDebugChecks() Option {
	return func(o *options) {
		o.debugChecks = true
	}
}

func buildOptions(opts []Option) (options, error) {
	o := options{
		alignment: DefaultAlignment,
	}
	for _, opt := range opts {
		opt(&o)
	}

	if o.alignment <= 0 {
		return o, &AllocError{Op: "new", Size: o.alignment, Err: ErrInvalidArgument}
	}
	if o.minCapacity < 0 {
		return o, &AllocError{Op: "new", Size: o.minCapacity, Err: ErrInvalidArgument}
	}
	if o.backend == nil {
		o.backend = backend.Default()
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	if o.metrics == nil {
		o.metrics = noopMetrics{}
	}
	return o, nil
}
