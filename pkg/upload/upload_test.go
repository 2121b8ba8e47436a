package upload

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func randomBytes(t *testing.T, n int) []byte {
	t.Helper()
	b := make([]byte, n)
	_, err := rand.Read(b)
	require.NoError(t, err)
	return b
}

func testOptions() Options {
	return Options{
		InitialChunkSize:    64 << 10,
		MinChunkSize:        64 << 10,
		MaxChunkSize:        64 << 10,
		TargetChunkDuration: time.Second,
		MaxRetries:          5,
		RetryBase:           time.Second,
		RetryMax:            30 * time.Second,
	}
}

// recordSleeps replaces backoff sleeping with a recorder
func recordSleeps(u *Uploader) *[]time.Duration {
	var mu sync.Mutex
	delays := []time.Duration{}
	u.sleep = func(ctx context.Context, d time.Duration) error {
		mu.Lock()
		delays = append(delays, d)
		mu.Unlock()
		return ctx.Err()
	}
	return &delays
}

func TestUploadCoversFileExactlyOnce(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	data := randomBytes(t, 300<<10+123)
	sink := newFakeSink()
	u := New(bytes.NewReader(data), int64(len(data)), sink, testOptions())

	result, err := u.Upload(context.Background())
	require.NoError(t, err)

	chunks, _, got := sink.snapshot()
	assert.Equal(t, data, got)
	assert.Equal(t, "mem://object", result.Location)
	assert.Equal(t, len(chunks), result.Chunks)
	assert.Equal(t, 1, sink.began)
	assert.Equal(t, 1, sink.completed)
	assert.Equal(t, 0, sink.aborted)

	var next int64
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.Equal(t, next, c.Offset, "ranges must be contiguous")
		assert.Equal(t, int64(len(data)), c.Total)
		next += c.Size
	}
	assert.Equal(t, int64(len(data)), next)

	p := u.Progress()
	assert.Equal(t, StateCompleted, p.State)
	assert.Equal(t, int64(len(data)), p.BytesUploaded)
	assert.InDelta(t, 100.0, p.Percent, 0.001)
}

func TestUploadProgressIsMonotonic(t *testing.T) {
	data := randomBytes(t, 200<<10)
	var mu sync.Mutex
	var events []Progress

	opts := testOptions()
	opts.OnProgress = func(p Progress) {
		mu.Lock()
		events = append(events, p)
		mu.Unlock()
	}

	u := New(bytes.NewReader(data), int64(len(data)), newFakeSink(), opts)
	_, err := u.Upload(context.Background())
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, events)
	var last int64
	for _, e := range events {
		assert.GreaterOrEqual(t, e.BytesUploaded, last)
		assert.LessOrEqual(t, e.BytesUploaded, e.TotalBytes)
		last = e.BytesUploaded
	}
	assert.Equal(t, StateCompleted, events[len(events)-1].State)
}

func TestUploadRetriesWithBackoff(t *testing.T) {
	data := randomBytes(t, 200<<10)
	sink := newFakeSink()
	sink.failures[1] = 2

	u := New(bytes.NewReader(data), int64(len(data)), sink, testOptions())
	delays := recordSleeps(u)

	result, err := u.Upload(context.Background())
	require.NoError(t, err)

	_, attempts, got := sink.snapshot()
	assert.Equal(t, data, got)
	assert.Equal(t, 3, attempts[1])
	assert.Equal(t, 1, attempts[0])
	assert.Equal(t, 2, result.Retries)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *delays)
}

func TestUploadGivesUpAfterMaxRetries(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	data := randomBytes(t, 100<<10)
	sink := newFakeSink()
	sink.failures[0] = 100

	opts := testOptions()
	opts.RetryMax = 4 * time.Second
	u := New(bytes.NewReader(data), int64(len(data)), sink, opts)
	delays := recordSleeps(u)

	_, err := u.Upload(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errInjected)

	_, attempts, _ := sink.snapshot()
	assert.Equal(t, 1+opts.MaxRetries, attempts[0], "never more than 1+maxRetries attempts")
	assert.Equal(t, 1, sink.aborted)
	assert.Equal(t, 0, sink.completed)
	assert.Equal(t, []time.Duration{
		time.Second, 2 * time.Second, 4 * time.Second, 4 * time.Second, 4 * time.Second,
	}, *delays)

	p := u.Progress()
	assert.Equal(t, StateFailed, p.State)
	assert.Equal(t, int64(0), p.BytesUploaded, "failed range is rolled back")
	assert.Equal(t, opts.MaxRetries, p.Retries)
}

func TestUploadZeroByteFile(t *testing.T) {
	sink := newFakeSink()
	u := New(bytes.NewReader(nil), 0, sink, testOptions())

	result, err := u.Upload(context.Background())
	require.NoError(t, err)

	chunks, attempts, _ := sink.snapshot()
	assert.Empty(t, chunks)
	assert.Empty(t, attempts)
	assert.Equal(t, 1, sink.began)
	assert.Equal(t, 1, sink.completed)
	assert.Equal(t, 0, result.Chunks)
	assert.InDelta(t, 100.0, u.Progress().Percent, 0.001)
}

func TestUploadRejectsSecondStart(t *testing.T) {
	u := New(bytes.NewReader(nil), 0, newFakeSink(), testOptions())
	_, err := u.Upload(context.Background())
	require.NoError(t, err)

	_, err = u.Upload(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyStarted)
}

func TestPauseRollsBackAndResumeRestartsRange(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	data := randomBytes(t, 192<<10)
	chunkSize := int64(64 << 10)
	sink := newFakeSink()

	started := make(chan struct{})
	sink.hook = func(ctx context.Context, chunk Chunk, attempt int, body io.Reader) error {
		if chunk.Index != 1 || attempt != 1 {
			return nil
		}
		buf := make([]byte, 1000)
		if _, err := io.ReadFull(body, buf); err != nil {
			return err
		}
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}

	u := New(bytes.NewReader(data), int64(len(data)), sink, testOptions())
	delays := recordSleeps(u)

	type outcome struct {
		result *Result
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		r, err := u.Upload(context.Background())
		done <- outcome{r, err}
	}()

	<-started
	assert.Equal(t, chunkSize+1000, u.Progress().BytesUploaded)

	require.True(t, u.Pause())
	assert.Equal(t, StatePaused, u.State())
	assert.False(t, u.Pause(), "already paused")

	require.Eventually(t, func() bool {
		return u.Progress().BytesUploaded == chunkSize
	}, time.Second, 5*time.Millisecond, "partial range is rolled back")

	// the loop holds while paused
	time.Sleep(20 * time.Millisecond)
	_, attempts, _ := sink.snapshot()
	assert.Equal(t, 1, attempts[1])

	require.True(t, u.Resume())
	out := <-done
	require.NoError(t, out.err)

	_, attempts, got := sink.snapshot()
	assert.Equal(t, data, got)
	assert.Equal(t, 2, attempts[1])
	assert.Equal(t, 0, out.result.Retries, "a pause is not a retry")
	assert.Empty(t, *delays)
}

func TestPauseAfterLastRangeHoldsCompletion(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	data := randomBytes(t, 128<<10)
	sink := newFakeSink()

	var u *Uploader
	var pausedOnce atomic.Bool
	opts := testOptions()
	opts.OnProgress = func(p Progress) {
		if p.ChunkIndex == 2 && p.State == StateUploading && pausedOnce.CompareAndSwap(false, true) {
			u.Pause()
		}
	}
	u = New(bytes.NewReader(data), int64(len(data)), sink, opts)

	done := make(chan error, 1)
	go func() {
		_, err := u.Upload(context.Background())
		done <- err
	}()

	require.Eventually(t, pausedOnce.Load, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, StatePaused, u.State())
	sink.mu.Lock()
	completed := sink.completed
	sink.mu.Unlock()
	assert.Equal(t, 0, completed, "paused upload must not complete")

	require.True(t, u.Resume())
	require.NoError(t, <-done)
	assert.Equal(t, StateCompleted, u.State())
	assert.Equal(t, 1, sink.completed)
}

func TestCancelAbortsSink(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	data := randomBytes(t, 128<<10)
	sink := newFakeSink()
	started := make(chan struct{})
	sink.hook = func(ctx context.Context, chunk Chunk, attempt int, body io.Reader) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}

	u := New(bytes.NewReader(data), int64(len(data)), sink, testOptions())
	done := make(chan error, 1)
	go func() {
		_, err := u.Upload(context.Background())
		done <- err
	}()

	<-started
	u.Cancel()

	err := <-done
	assert.ErrorIs(t, err, ErrCanceled)
	assert.Equal(t, StateCanceled, u.State())
	assert.Equal(t, 1, sink.aborted)
	assert.Equal(t, 0, sink.completed)
}

func TestCancelWhilePaused(t *testing.T) {
	data := randomBytes(t, 128<<10)
	sink := newFakeSink()
	started := make(chan struct{})
	sink.hook = func(ctx context.Context, chunk Chunk, attempt int, body io.Reader) error {
		if attempt == 1 && chunk.Index == 0 {
			close(started)
			<-ctx.Done()
			return ctx.Err()
		}
		return nil
	}

	u := New(bytes.NewReader(data), int64(len(data)), sink, testOptions())
	done := make(chan error, 1)
	go func() {
		_, err := u.Upload(context.Background())
		done <- err
	}()

	<-started
	require.True(t, u.Pause())
	u.Cancel()

	assert.ErrorIs(t, <-done, ErrCanceled)
	assert.Equal(t, StateCanceled, u.State())
}

func TestCancelBeforeUpload(t *testing.T) {
	sink := newFakeSink()
	u := New(bytes.NewReader([]byte("abc")), 3, sink, testOptions())
	u.Cancel()

	_, err := u.Upload(context.Background())
	assert.ErrorIs(t, err, ErrCanceled)
	assert.Equal(t, 0, sink.began)
}

func TestParentContextCancelStopsUpload(t *testing.T) {
	data := randomBytes(t, 128<<10)
	sink := newFakeSink()
	sink.failures[0] = 100

	ctx, cancel := context.WithCancel(context.Background())
	u := New(bytes.NewReader(data), int64(len(data)), sink, testOptions())
	u.sleep = func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}

	_, err := u.Upload(ctx)
	assert.True(t, errors.Is(err, ErrCanceled))
	assert.Equal(t, StateCanceled, u.State())
}

func TestAdaptiveChunkSizing(t *testing.T) {
	const mib = 1 << 20
	data := make([]byte, 7*mib)
	clock := newFakeClock()

	sink := newFakeSink()
	// 1 MiB/s link
	sink.hook = func(ctx context.Context, chunk Chunk, attempt int, body io.Reader) error {
		clock.Advance(time.Duration(chunk.Size) * time.Second / mib)
		return nil
	}

	opts := Options{
		InitialChunkSize:    mib,
		MinChunkSize:        256 << 10,
		MaxChunkSize:        10 * mib,
		TargetChunkDuration: 2 * time.Second,
		MaxRetries:          5,
	}
	u := New(bytes.NewReader(data), int64(len(data)), sink, opts)
	u.now = clock.Now

	_, err := u.Upload(context.Background())
	require.NoError(t, err)

	chunks, _, _ := sink.snapshot()
	sizes := make([]int64, len(chunks))
	for i, c := range chunks {
		sizes[i] = c.Size
	}
	assert.Equal(t, []int64{mib, 2 * mib, 2 * mib, 2 * mib}, sizes)
}

func TestSinkMinimumRaisesChunkSize(t *testing.T) {
	data := make([]byte, 12<<20)
	sink := newFakeSink()
	sink.min = 5 << 20

	opts := DefaultOptions()
	u := New(bytes.NewReader(data), int64(len(data)), sink, opts)
	_, err := u.Upload(context.Background())
	require.NoError(t, err)

	chunks, _, _ := sink.snapshot()
	require.NotEmpty(t, chunks)
	for _, c := range chunks[:len(chunks)-1] {
		assert.GreaterOrEqual(t, c.Size, int64(5<<20))
	}
}

func TestTogglePause(t *testing.T) {
	u := New(bytes.NewReader(nil), 0, newFakeSink(), testOptions())
	assert.Equal(t, StateIdle, u.TogglePause(), "idle uploads cannot pause")

	u.mu.Lock()
	u.state = StateUploading
	u.mu.Unlock()

	assert.Equal(t, StatePaused, u.TogglePause())
	assert.Equal(t, StateUploading, u.TogglePause())
}
