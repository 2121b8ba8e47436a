package upload

import (
	"context"
	"io"
	"sync"

	"golang.org/x/time/rate"
)

// progressReader reports every read to onRead until it is detached. The
// HTTP transport may keep reading a request body after the request has
// been canceled; detaching stops those late bytes from being counted.
type progressReader struct {
	r        io.Reader
	onRead   func(n int)
	mu       sync.Mutex
	detached bool
}

func newProgressReader(r io.Reader, onRead func(n int)) *progressReader {
	return &progressReader{r: r, onRead: onRead}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.mu.Lock()
		if !p.detached {
			p.onRead(n)
		}
		p.mu.Unlock()
	}
	return n, err
}

func (p *progressReader) detach() {
	p.mu.Lock()
	p.detached = true
	p.mu.Unlock()
}

// ThrottledReader limits how fast the wrapped reader can be drained
type ThrottledReader struct {
	ctx     context.Context
	r       io.Reader
	limiter *rate.Limiter
}

// NewLimiter returns a limiter for bytesPerSec, or nil when unlimited
func NewLimiter(bytesPerSec int64) *rate.Limiter {
	if bytesPerSec <= 0 {
		return nil
	}
	burst := int(bytesPerSec)
	if burst < 32<<10 {
		burst = 32 << 10
	}
	return rate.NewLimiter(rate.Limit(bytesPerSec), burst)
}

// NewThrottledReader wraps r; a nil limiter returns r unchanged
func NewThrottledReader(ctx context.Context, r io.Reader, limiter *rate.Limiter) io.Reader {
	if limiter == nil {
		return r
	}
	return &ThrottledReader{ctx: ctx, r: r, limiter: limiter}
}

func (t *ThrottledReader) Read(b []byte) (int, error) {
	if burst := t.limiter.Burst(); len(b) > burst {
		b = b[:burst]
	}
	n, err := t.r.Read(b)
	if n > 0 {
		if werr := t.limiter.WaitN(t.ctx, n); werr != nil {
			return n, werr
		}
	}
	return n, err
}
