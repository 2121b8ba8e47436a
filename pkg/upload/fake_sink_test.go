package upload

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"time"
)

var errInjected = errors.New("injected failure")

// fakeSink assembles chunks in memory and records every attempt
type fakeSink struct {
	mu        sync.Mutex
	min       int64
	data      []byte
	chunks    []Chunk
	attempts  map[int]int
	failures  map[int]int
	began     int
	completed int
	aborted   int

	// hook runs before the body is consumed; a non-nil error fails the attempt
	hook func(ctx context.Context, chunk Chunk, attempt int, body io.Reader) error
}

func newFakeSink() *fakeSink {
	return &fakeSink{attempts: map[int]int{}, failures: map[int]int{}}
}

func (f *fakeSink) MinChunkSize() int64 { return f.min }

func (f *fakeSink) Begin(ctx context.Context, total int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.began++
	f.data = make([]byte, total)
	return nil
}

func (f *fakeSink) WriteChunk(ctx context.Context, chunk Chunk, body io.Reader) error {
	f.mu.Lock()
	f.attempts[chunk.Index]++
	attempt := f.attempts[chunk.Index]
	fail := f.failures[chunk.Index] > 0
	if fail {
		f.failures[chunk.Index]--
	}
	hook := f.hook
	f.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, chunk, attempt, body); err != nil {
			return err
		}
	}

	buf, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	if fail {
		return errInjected
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	copy(f.data[chunk.Offset:], buf)
	f.chunks = append(f.chunks, chunk)
	return nil
}

func (f *fakeSink) Complete(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed++
	return "mem://object", nil
}

func (f *fakeSink) Abort(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.aborted++
	return nil
}

func (f *fakeSink) snapshot() (chunks []Chunk, attempts map[int]int, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	attempts = make(map[int]int, len(f.attempts))
	for k, v := range f.attempts {
		attempts[k] = v
	}
	return append([]Chunk(nil), f.chunks...), attempts, bytes.Clone(f.data)
}

// fakeClock only moves when told to
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
