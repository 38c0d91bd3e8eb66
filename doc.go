// Package tensorarena provides a growable arena allocator for tensor-graph
// runtimes.
//
// An Arena hands out aligned byte ranges of one contiguous buffer. Ranges are
// identified by their offset, so they stay valid when the buffer grows:
// growth doubles the capacity, copies the old contents and releases the old
// buffer. Call Base (or Bytes) again after any Alloc to obtain the current
// address.
//
// # Quick Start
//
//	a, err := tensorarena.New(tensorarena.WithAlignment(64))
//	if err != nil {
//	    return err
//	}
//	defer a.Close()
//
//	off, err := a.Alloc(4 * 1024 * 1024) // activation buffer
//	if err != nil {
//	    return err
//	}
//	act, _ := a.Float32s(off, 1024*1024)
//	...
//	_ = a.Free(off, 4*1024*1024)
//
// # Placement
//
// Sizes are rounded up to the alignment. Free ranges are kept in offset order
// and merged with their neighbours lazily, at the start of the next Alloc.
// The lowest-offset range that fits is used; when none fits, the request is
// placed at the current end of the buffer and the buffer grows.
//
// # Memory Governance
//
// WithMemoryLimit caps the bytes an arena may hold. During growth the old and
// new buffers coexist, so the peak is the sum of both. Exceeding the limit
// fails the Alloc with ErrOutOfMemory and leaves the arena unchanged.
//
// # Persistence
//
// Package snapshot saves an arena to a blobstore.BlobStore (local
// filesystem, S3 or MinIO) and restores it with identical placement.
//
// # Observability
//
//   - WithLogger: structured logging (log/slog)
//   - WithMetricsCollector: BasicMetricsCollector, or metrics.PrometheusCollector
//
// # Concurrency
//
// An Arena is not safe for concurrent use. Arenas are cheap; give each
// executor its own.
package tensorarena
