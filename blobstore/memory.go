package blobstore

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"

	"github.com/google/btree"
)

type memoryEntry struct {
	name string
	data []byte
}

func lessEntry(a, b memoryEntry) bool { return a.name < b.name }

// MemoryStore keeps blobs in process memory, ordered by name. It is safe for
// concurrent use and intended for tests and short-lived checkpoints.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs *btree.BTreeG[memoryEntry]
}

var _ BlobStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		blobs: btree.NewG(8, lessEntry),
	}
}

func (m *MemoryStore) store(name string, data []byte) {
	m.mu.Lock()
	m.blobs.ReplaceOrInsert(memoryEntry{name: name, data: data})
	m.mu.Unlock()
}

// Open returns a handle to the stored bytes. Stored blobs are never mutated,
// so handles stay valid after the blob is replaced or deleted.
func (m *MemoryStore) Open(ctx context.Context, name string) (Blob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	e, ok := m.blobs.Get(memoryEntry{name: name})
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return memoryBlob(e.data), nil
}

// Create buffers writes; the blob is stored on Close.
func (m *MemoryStore) Create(ctx context.Context, name string) (WritableBlob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &memoryWriter{store: m, name: name}, nil
}

// Put stores a copy of data.
func (m *MemoryStore) Put(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.store(name, bytes.Clone(data))
	return nil
}

// Delete removes a blob.
func (m *MemoryStore) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	m.blobs.Delete(memoryEntry{name: name})
	m.mu.Unlock()
	return nil
}

// List returns the sorted names starting with prefix.
func (m *MemoryStore) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var names []string
	m.blobs.AscendGreaterOrEqual(memoryEntry{name: prefix}, func(e memoryEntry) bool {
		if !strings.HasPrefix(e.name, prefix) {
			return false
		}
		names = append(names, e.name)
		return true
	})
	return names, nil
}

// memoryBlob is an immutable stored blob.
type memoryBlob []byte

func (b memoryBlob) ReadAt(_ context.Context, p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(b)) {
		return 0, io.EOF
	}
	n := copy(p, b[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (b memoryBlob) Close() error { return nil }

func (b memoryBlob) Size() int64 { return int64(len(b)) }

// Bytes implements Mappable.
func (b memoryBlob) Bytes() ([]byte, error) { return b, nil }

type memoryWriter struct {
	store *MemoryStore
	name  string
	buf   bytes.Buffer
	done  bool
}

func (w *memoryWriter) Write(p []byte) (int, error) {
	if w.done {
		return 0, io.ErrClosedPipe
	}
	return w.buf.Write(p)
}

func (w *memoryWriter) Sync() error { return nil }

// Close stores the written bytes under the blob name.
func (w *memoryWriter) Close() error {
	if w.done {
		return nil
	}
	w.done = true
	w.store.store(w.name, bytes.Clone(w.buf.Bytes()))
	return nil
}

// Abort drops the written bytes.
func (w *memoryWriter) Abort() error {
	w.done = true
	w.buf.Reset()
	return nil
}
