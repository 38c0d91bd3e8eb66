package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/hupe1980/tensorarena/internal/mmap"
)

// ErrInvalidName is returned for blob names that would escape the store root.
var ErrInvalidName = errors.New("blobstore: invalid blob name")

const tempMarker = ".tmp-"

// LocalStore keeps blobs as files under a root directory. Writes land in a
// hidden temporary file that is renamed into place on Close, and reads go
// through a read-only memory mapping.
type LocalStore struct {
	root string
}

// NewLocalStore returns a store rooted at dir. The directory is created on
// the first write.
func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{root: dir}
}

// resolve maps a slash-separated blob name to a file path under the root.
func (s *LocalStore) resolve(name string) (string, error) {
	clean := path.Clean(name)
	if name == "" || path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

func (s *LocalStore) Open(ctx context.Context, name string) (Blob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.resolve(name)
	if err != nil {
		return nil, err
	}
	m, err := mmap.Open(p)
	if err != nil {
		return nil, err
	}
	return &fileBlob{m: m}, nil
}

// Create opens a temporary file next to the destination.
func (s *LocalStore) Create(ctx context.Context, name string) (WritableBlob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dst, err := s.resolve(name)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(dst)+tempMarker+"*")
	if err != nil {
		return nil, err
	}
	return &fileWriter{f: f, dst: dst}, nil
}

// Put writes and fsyncs data, then publishes it under name.
func (s *LocalStore) Put(ctx context.Context, name string, data []byte) error {
	w, err := s.Create(ctx, name)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		_ = Discard(w)
		return err
	}
	if err := w.Sync(); err != nil {
		_ = Discard(w)
		return err
	}
	return w.Close()
}

func (s *LocalStore) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.resolve(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// List walks the root. Hidden files, including unfinished writes, are not
// listed. A missing root lists as empty.
func (s *LocalStore) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		switch {
		case err != nil && p == s.root && errors.Is(err, fs.ErrNotExist):
			return filepath.SkipDir
		case err != nil:
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		if name := filepath.ToSlash(rel); strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(names)
	return names, nil
}

// fileBlob serves reads from a memory mapping.
type fileBlob struct {
	m *mmap.Mapping
}

func (b *fileBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(p) == 0 {
		return 0, nil
	}
	return b.m.ReadAt(p, off)
}

func (b *fileBlob) Size() int64 { return int64(b.m.Size()) }

func (b *fileBlob) Bytes() ([]byte, error) { return b.m.Bytes(), nil }

func (b *fileBlob) Close() error { return b.m.Close() }

type fileWriter struct {
	f    *os.File
	dst  string
	done bool
}

func (w *fileWriter) Write(p []byte) (int, error) {
	if w.done {
		return 0, io.ErrClosedPipe
	}
	return w.f.Write(p)
}

func (w *fileWriter) Sync() error {
	if w.done {
		return io.ErrClosedPipe
	}
	return w.f.Sync()
}

// Close renames the temporary file over the destination and syncs the
// directory so the rename survives a crash.
func (w *fileWriter) Close() error {
	if w.done {
		return nil
	}
	w.done = true

	tmp := w.f.Name()
	if err := w.f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, w.dst); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return syncDir(filepath.Dir(w.dst))
}

// Abort removes the temporary file.
func (w *fileWriter) Abort() error {
	if w.done {
		return nil
	}
	w.done = true
	_ = w.f.Close()
	return os.Remove(w.f.Name())
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer func() { _ = d.Close() }()
	// Some platforms cannot fsync a directory handle.
	if err := d.Sync(); err != nil && !errors.Is(err, os.ErrInvalid) && !errors.Is(err, errors.ErrUnsupported) {
		return err
	}
	return nil
}
