package snapshot

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/tensorarena/blobstore"
	"github.com/hupe1980/tensorarena/internal/arena"
	"github.com/hupe1980/tensorarena/resource"
)

const tracerName = "github.com/hupe1980/tensorarena/snapshot"

type options struct {
	compression Compression
	rc          *resource.Controller
	tracer      trace.Tracer
	arenaOpts   []arena.Option
	chunkSize   int64
	concurrency int
	maxCapacity int
}

// Option configures Save and Load.
type Option func(*options)

// WithCompression sets the payload compression used by Save.
// Default: CompressionLZ4.
func WithCompression(c Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithResourceController throttles snapshot IO through the controller's
// IO limit.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.rc = rc
	}
}

// WithTracer overrides the tracer. Default: the global provider's tracer.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) {
		o.tracer = t
	}
}

// WithArenaOptions passes options to the arena built by Load.
func WithArenaOptions(opts ...arena.Option) Option {
	return func(o *options) {
		o.arenaOpts = append(o.arenaOpts, opts...)
	}
}

// WithReadConcurrency sets the chunk size and number of parallel range
// reads Load issues.
func WithReadConcurrency(chunkSize int64, concurrency int) Option {
	return func(o *options) {
		o.chunkSize = chunkSize
		o.concurrency = concurrency
	}
}

// WithMaxCapacity makes Load reject snapshots whose arena capacity exceeds
// n bytes. Default: no limit.
func WithMaxCapacity(n int) Option {
	return func(o *options) {
		o.maxCapacity = n
	}
}

func buildOptions(opts []Option) options {
	o := options{
		compression: CompressionLZ4,
		chunkSize:   blobstore.DefaultChunkSize,
		concurrency: blobstore.DefaultReadConcurrency,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(tracerName)
	}
	return o
}

// Save encodes a and writes it to store under name. The blob is published
// only when the whole snapshot was written.
func Save(ctx context.Context, store blobstore.BlobStore, name string, a *arena.Arena, opts ...Option) (err error) {
	o := buildOptions(opts)

	ctx, span := o.tracer.Start(ctx, "snapshot.Save", trace.WithAttributes(
		attribute.String("snapshot.name", name),
		attribute.String("snapshot.compression", o.compression.String()),
	))
	defer func() { endSpan(span, err) }()

	img, err := a.Image()
	if err != nil {
		return err
	}
	data, err := Encode(img, o.compression)
	if err != nil {
		return err
	}
	span.SetAttributes(
		attribute.Int("arena.capacity", img.Capacity),
		attribute.Int("arena.used", img.Used),
		attribute.Int("snapshot.bytes", len(data)),
	)

	wb, err := store.Create(ctx, name)
	if err != nil {
		return fmt.Errorf("snapshot: create %s: %w", name, err)
	}
	w := resource.NewRateLimitedWriter(ctx, wb, o.rc)
	if _, err := w.Write(data); err != nil {
		_ = blobstore.Discard(wb)
		return fmt.Errorf("snapshot: write %s: %w", name, err)
	}
	if err := wb.Sync(); err != nil {
		_ = blobstore.Discard(wb)
		return fmt.Errorf("snapshot: sync %s: %w", name, err)
	}
	if err := wb.Close(); err != nil {
		return fmt.Errorf("snapshot: close %s: %w", name, err)
	}
	return nil
}

// Load reads the snapshot stored under name and restores it into a new
// arena. The arena is validated before it is returned.
func Load(ctx context.Context, store blobstore.BlobStore, name string, opts ...Option) (a *arena.Arena, err error) {
	o := buildOptions(opts)

	ctx, span := o.tracer.Start(ctx, "snapshot.Load", trace.WithAttributes(
		attribute.String("snapshot.name", name),
	))
	defer func() { endSpan(span, err) }()

	blob, err := store.Open(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("snapshot: open %s: %w", name, err)
	}
	defer func() { _ = blob.Close() }()

	var src blobstore.Blob = blob
	if o.rc != nil {
		src = &throttledBlob{Blob: blob, rc: o.rc}
	}
	data, err := blobstore.ReadAll(ctx, src, o.chunkSize, o.concurrency)
	if err != nil {
		return nil, fmt.Errorf("snapshot: read %s: %w", name, err)
	}
	span.SetAttributes(attribute.Int("snapshot.bytes", len(data)))

	img, err := DecodeLimit(data, o.maxCapacity)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("arena.capacity", img.Capacity),
		attribute.Int("arena.used", img.Used),
	)

	return arena.FromImage(img, o.arenaOpts...)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// throttledBlob charges every range read against the IO limit.
type throttledBlob struct {
	blobstore.Blob
	rc *resource.Controller
}

func (b *throttledBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if err := b.rc.AcquireIO(ctx, len(p)); err != nil {
		return 0, err
	}
	return b.Blob.ReadAt(ctx, p, off)
}
