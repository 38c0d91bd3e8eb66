package snapshot

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/tensorarena/blobstore"
	"github.com/hupe1980/tensorarena/internal/arena"
)

// VersionName returns the blob name Publish uses for version v of key.
// Versions are zero padded so blob listings sort in commit order.
func VersionName(key string, v uint64) string {
	return fmt.Sprintf("%s/%020d.tarn", key, v)
}

// Publish saves a as the next version of key and commits the pointer to
// catalog. When another writer commits the same version first, the blob
// written here is deleted and the error wraps blobstore.ErrConflict.
func Publish(ctx context.Context, store blobstore.BlobStore, catalog blobstore.Catalog, key string, a *arena.Arena, opts ...Option) (p blobstore.Pointer, err error) {
	o := buildOptions(opts)

	ctx, span := o.tracer.Start(ctx, "snapshot.Publish", trace.WithAttributes(
		attribute.String("snapshot.key", key),
	))
	defer func() { endSpan(span, err) }()

	next := uint64(1)
	switch cur, err := catalog.Latest(ctx, key); {
	case err == nil:
		next = cur.Version + 1
	case !errors.Is(err, blobstore.ErrNotFound):
		return blobstore.Pointer{}, fmt.Errorf("snapshot: latest %s: %w", key, err)
	}

	p = blobstore.Pointer{Version: next, Blob: VersionName(key, next)}
	span.SetAttributes(attribute.Int64("snapshot.version", int64(next))) //nolint:gosec // versions stay small

	if err := Save(ctx, store, p.Blob, a, opts...); err != nil {
		return blobstore.Pointer{}, err
	}
	if err := catalog.Commit(ctx, key, p); err != nil {
		_ = store.Delete(ctx, p.Blob)
		return blobstore.Pointer{}, fmt.Errorf("snapshot: commit %s: %w", key, err)
	}
	return p, nil
}

// LoadLatest restores the newest committed version of key.
func LoadLatest(ctx context.Context, store blobstore.BlobStore, catalog blobstore.Catalog, key string, opts ...Option) (*arena.Arena, blobstore.Pointer, error) {
	p, err := catalog.Latest(ctx, key)
	if err != nil {
		return nil, blobstore.Pointer{}, fmt.Errorf("snapshot: latest %s: %w", key, err)
	}
	a, err := Load(ctx, store, p.Blob, opts...)
	if err != nil {
		return nil, blobstore.Pointer{}, err
	}
	return a, p, nil
}
