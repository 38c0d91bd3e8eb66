package resource

import (
	"context"
	"io"
	"time"

	"golang.org/x/time/rate"
)

// bandwidth is a token bucket sized to one second of throughput.
type bandwidth struct {
	lim *rate.Limiter
}

func newBandwidth(bytesPerSec int64) *bandwidth {
	if bytesPerSec <= 0 {
		return nil
	}
	return &bandwidth{lim: rate.NewLimiter(rate.Limit(bytesPerSec), int(bytesPerSec))}
}

// wait splits n into burst-sized pieces so large requests never fail
// outright.
func (b *bandwidth) wait(ctx context.Context, n int) error {
	burst := b.lim.Burst()
	for n > 0 {
		step := min(n, burst)
		if err := b.lim.WaitN(ctx, step); err != nil {
			return err
		}
		n -= step
	}
	return nil
}

func (b *bandwidth) allow(n int) bool {
	return b.lim.AllowN(time.Now(), n)
}

// RateLimitedWriter charges every write against a Controller's IO budget
// before passing it on.
type RateLimitedWriter struct {
	ctx context.Context
	w   io.Writer
	rc  *Controller
}

// NewRateLimitedWriter wraps w. A nil rc passes writes through.
func NewRateLimitedWriter(ctx context.Context, w io.Writer, rc *Controller) *RateLimitedWriter {
	return &RateLimitedWriter{ctx: ctx, w: w, rc: rc}
}

func (w *RateLimitedWriter) Write(p []byte) (int, error) {
	if err := w.rc.AcquireIO(w.ctx, len(p)); err != nil {
		return 0, err
	}
	return w.w.Write(p)
}

// RateLimitedReader charges what each read returned against a Controller's
// IO budget.
type RateLimitedReader struct {
	ctx context.Context
	r   io.Reader
	rc  *Controller
}

// NewRateLimitedReader wraps r. A nil rc passes reads through.
func NewRateLimitedReader(ctx context.Context, r io.Reader, rc *Controller) *RateLimitedReader {
	return &RateLimitedReader{ctx: ctx, r: r, rc: rc}
}

func (r *RateLimitedReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if n > 0 {
		if werr := r.rc.AcquireIO(r.ctx, n); werr != nil {
			return n, werr
		}
	}
	return n, err
}
