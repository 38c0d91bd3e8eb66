package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"
)

// DefaultChunkSize is the range size ReadAll fetches per request.
const DefaultChunkSize = 8 << 20

// DefaultReadConcurrency is the number of ranges ReadAll fetches at once.
const DefaultReadConcurrency = 4

// ReadAll returns the full contents of b.
//
// Mappable blobs are copied from their mapping. Others are fetched in
// chunkSize ranges, up to concurrency at a time, which keeps remote stores
// busy on large blobs.
func ReadAll(ctx context.Context, b Blob, chunkSize int64, concurrency int) ([]byte, error) {
	size := b.Size()
	if size < 0 {
		return nil, fmt.Errorf("blobstore: negative blob size %d", size)
	}
	if size == 0 {
		return []byte{}, nil
	}

	if m, ok := b.(Mappable); ok {
		data, err := m.Bytes()
		if err == nil && int64(len(data)) == size {
			return append([]byte(nil), data...), nil
		}
	}

	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if concurrency <= 0 {
		concurrency = DefaultReadConcurrency
	}

	buf := make([]byte, size)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for off := int64(0); off < size; off += chunkSize {
		end := min(off+chunkSize, size)
		g.Go(func() error {
			n, err := b.ReadAt(gctx, buf[off:end], off)
			if err != nil && !errors.Is(err, io.EOF) {
				return fmt.Errorf("blobstore: read [%d,%d): %w", off, end, err)
			}
			if int64(n) != end-off {
				return fmt.Errorf("blobstore: short read at %d: %w", off, io.ErrUnexpectedEOF)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return buf, nil
}
