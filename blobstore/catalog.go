package blobstore

import (
	"context"
	"errors"
	"sync"
)

// ErrConflict is returned by Catalog.Commit when another writer committed
// the same version first.
var ErrConflict = errors.New("blobstore: version already committed")

// Pointer names the blob holding one committed version of a key.
type Pointer struct {
	Version uint64
	Blob    string
}

// Catalog tracks the current version of keyed blobs. Blobs are immutable,
// so publishing a new version means writing a fresh blob and committing a
// pointer to it.
type Catalog interface {
	// Latest returns the highest committed pointer for key, or ErrNotFound.
	Latest(ctx context.Context, key string) (Pointer, error)
	// Commit records p for key. It fails with ErrConflict when p.Version is
	// already taken.
	Commit(ctx context.Context, key string, p Pointer) error
}

// MemoryCatalog is an in-process Catalog.
type MemoryCatalog struct {
	mu     sync.Mutex
	latest map[string]Pointer
}

var _ Catalog = (*MemoryCatalog)(nil)

func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{latest: make(map[string]Pointer)}
}

func (c *MemoryCatalog) Latest(ctx context.Context, key string) (Pointer, error) {
	if err := ctx.Err(); err != nil {
		return Pointer{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.latest[key]
	if !ok {
		return Pointer{}, ErrNotFound
	}
	return p, nil
}

// Commit accepts only versions above the current one.
func (c *MemoryCatalog) Commit(ctx context.Context, key string, p Pointer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.latest[key]; ok && p.Version <= cur.Version {
		return ErrConflict
	}
	c.latest[key] = p
	return nil
}
