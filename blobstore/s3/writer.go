package s3

import (
	"context"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// uploadWriter feeds a pipe that a background manager upload drains.
type uploadWriter struct {
	pw   *io.PipeWriter
	done chan error

	mu     sync.Mutex
	closed bool
	err    error
}

func startUpload(ctx context.Context, uploader *manager.Uploader, input *s3.PutObjectInput) *uploadWriter {
	pr, pw := io.Pipe()
	input.Body = pr

	w := &uploadWriter{pw: pw, done: make(chan error, 1)}
	go func() {
		_, err := uploader.Upload(ctx, input)
		_ = pr.CloseWithError(err)
		w.done <- err
	}()
	return w
}

func (w *uploadWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return 0, io.ErrClosedPipe
	}
	return w.pw.Write(p)
}

// Sync is a no-op; data is committed on Close.
func (w *uploadWriter) Sync() error { return nil }

// Close signals EOF and waits for the upload. Later calls return the same
// result.
func (w *uploadWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return w.err
	}
	w.closed = true
	_ = w.pw.Close()
	w.err = <-w.done
	return w.err
}

// Abort fails the upload. The uploader aborts any multipart upload it
// started unless WithLeavePartsOnError is set.
func (w *uploadWriter) Abort() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	_ = w.pw.CloseWithError(context.Canceled)
	<-w.done
	w.err = context.Canceled
	return nil
}
