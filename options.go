package tensorarena

import (
	"github.com/hupe1980/tensorarena/backend"
	"github.com/hupe1980/tensorarena/internal/arena"
	"github.com/hupe1980/tensorarena/resource"
)

// Option configures an Arena.
type Option = arena.Option

// WithAlignment sets the alignment every size and offset is a multiple of.
// It must be positive. Default: 8.
func WithAlignment(alignment int) Option {
	return arena.WithAlignment(alignment)
}

// WithBackend sets the memory backend. Default: anonymous mmap.
//
// Use backend.NewHeap() for Go-heap buffers, e.g. in tests or when the
// process runs without mmap support.
func WithBackend(b backend.Backend) Option {
	return arena.WithBackend(b)
}

// WithMinCapacity sets the capacity Base materializes when nothing was
// allocated yet.
func WithMinCapacity(n int) Option {
	return arena.WithMinCapacity(n)
}

// WithMemoryLimit caps the backing memory of the arena at limit bytes,
// counting both buffers while a growth is in progress.
func WithMemoryLimit(limit int64) Option {
	return arena.WithMemoryAcquirer(resource.NewController(resource.Config{
		MemoryLimitBytes: limit,
	}))
}

// WithResourceController accounts the arena's buffers against rc. Share one
// controller between arenas to enforce a process-wide budget.
func WithResourceController(rc *resource.Controller) Option {
	return arena.WithMemoryAcquirer(rc)
}

// WithLogger sets the logger. A nil logger disables logging.
func WithLogger(l *Logger) Option {
	if l == nil {
		return arena.WithLogger(nil)
	}
	return arena.WithLogger(l.Logger)
}

// WithMetricsCollector sets the collector receiving arena events.
func WithMetricsCollector(mc MetricsCollector) Option {
	return arena.WithMetricsCollector(mc)
}

// WithDebugChecks tracks live ranges so that double frees and frees of
// unallocated ranges fail with ErrInvalidFree.
func WithDebugChecks() Option {
	return arena.WithDebugChecks()
}
