// Package upload sends one file to object storage as a sequence of
// adaptively sized byte ranges, with per-range retries, pause/resume and
// live progress.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/socialhub/socialhub-cli/pkg/logger"
	"golang.org/x/time/rate"
)

// State is the lifecycle of an upload
type State string

const (
	StateIdle      State = "idle"
	StateUploading State = "uploading"
	StatePaused    State = "paused"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateCanceled  State = "canceled"
)

// Terminal reports whether no further transitions are possible
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCanceled
}

var (
	ErrCanceled       = errors.New("upload canceled")
	ErrAlreadyStarted = errors.New("upload already started")
)

// Chunk is one byte range of the source, [Offset, Offset+Size)
type Chunk struct {
	Index  int
	Offset int64
	Size   int64
	Total  int64
}

// End is the inclusive last byte offset of the chunk
func (c Chunk) End() int64 {
	return c.Offset + c.Size - 1
}

// Sink is the storage target an Uploader writes to
type Sink interface {
	// Begin prepares a new upload of total bytes
	Begin(ctx context.Context, total int64) error
	// WriteChunk sends one range. body yields exactly chunk.Size bytes.
	WriteChunk(ctx context.Context, chunk Chunk, body io.Reader) error
	// Complete finalizes the upload and returns where the object lives
	Complete(ctx context.Context) (string, error)
	// Abort discards whatever was uploaded so far
	Abort(ctx context.Context) error
	// MinChunkSize is the smallest non-final chunk the sink accepts
	MinChunkSize() int64
}

// Progress is a snapshot of an upload
type Progress struct {
	BytesUploaded int64         `json:"bytes_uploaded"`
	TotalBytes    int64         `json:"total_bytes"`
	Percent       float64       `json:"percent"`
	SpeedBps      float64       `json:"speed_bps"`
	ETA           time.Duration `json:"eta"`
	ChunkIndex    int           `json:"chunk_index"`
	ChunkCount    int           `json:"chunk_count"`
	ChunkSize     int64         `json:"chunk_size"`
	Retries       int           `json:"retries"`
	State         State         `json:"state"`
	Err           error         `json:"-"`
}

// Result describes a finished upload
type Result struct {
	Location string
	Size     int64
	Chunks   int
	Retries  int
	Duration time.Duration
}

// Uploader owns one upload of one source of known size. Upload runs the
// transfer; Pause, Resume and Cancel may be called from other goroutines.
type Uploader struct {
	src     io.ReaderAt
	size    int64
	sink    Sink
	opts    Options
	limiter *rate.Limiter

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	mu           sync.Mutex
	state        State
	paused       bool
	resumed      chan struct{}
	canceled     bool
	cancelUpload context.CancelFunc
	cancelChunk  context.CancelFunc
	pauses       int

	committed  int64
	inflight   int64
	retries    int
	chunkIndex int
	chunkSize  int64
	err        error

	throughput *throughputTracker
	speed      *speedMeter
}

// New creates an uploader for size bytes of src
func New(src io.ReaderAt, size int64, sink Sink, opts Options) *Uploader {
	opts = opts.normalize(sink.MinChunkSize())
	return &Uploader{
		src:        src,
		size:       size,
		sink:       sink,
		opts:       opts,
		limiter:    NewLimiter(opts.MaxBytesPerSec),
		now:        time.Now,
		sleep:      sleepContext,
		state:      StateIdle,
		chunkSize:  opts.InitialChunkSize,
		throughput: newThroughputTracker(throughputWindow),
		speed:      newSpeedMeter(speedWindow),
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Upload transfers the whole source and blocks until it completes, fails
// or is canceled
func (u *Uploader) Upload(ctx context.Context) (*Result, error) {
	u.mu.Lock()
	if u.canceled {
		u.state = StateCanceled
		u.mu.Unlock()
		u.emit()
		return nil, ErrCanceled
	}
	if u.state != StateIdle {
		u.mu.Unlock()
		return nil, ErrAlreadyStarted
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	u.cancelUpload = cancel
	u.state = StateUploading
	u.mu.Unlock()

	start := u.now()
	logger.Debug("Upload starting", "size", u.size, "initial_chunk", u.opts.InitialChunkSize)
	u.emit()

	if err := u.sink.Begin(ctx, u.size); err != nil {
		return nil, u.finish(ctx, fmt.Errorf("failed to begin upload: %w", err))
	}

	var offset int64
	index := 0
	for offset < u.size {
		u.mu.Lock()
		size := u.chunkSize
		u.mu.Unlock()
		if remaining := u.size - offset; size > remaining {
			size = remaining
		}

		chunk := Chunk{Index: index, Offset: offset, Size: size, Total: u.size}
		elapsed, err := u.sendChunk(ctx, chunk)
		if err != nil {
			return nil, u.finish(ctx, err)
		}

		offset += size
		index++

		u.mu.Lock()
		u.throughput.record(size, elapsed)
		u.chunkIndex = index
		u.chunkSize = nextChunkSize(u.throughput.average(), u.opts.TargetChunkDuration,
			u.chunkSize, u.opts.MinChunkSize, u.opts.MaxChunkSize)
		next := u.chunkSize
		u.mu.Unlock()

		logger.Debug("Chunk uploaded", "index", chunk.Index, "size", size, "elapsed", elapsed, "next_size", next)
		u.emit()
	}

	// a pause after the last range holds the upload short of completing
	if err := u.waitWhilePaused(ctx); err != nil {
		return nil, u.finish(ctx, err)
	}

	location, err := u.sink.Complete(ctx)
	if err != nil {
		return nil, u.finish(ctx, fmt.Errorf("failed to complete upload: %w", err))
	}

	u.mu.Lock()
	u.state = StateCompleted
	result := &Result{
		Location: location,
		Size:     u.size,
		Chunks:   index,
		Retries:  u.retries,
		Duration: u.now().Sub(start),
	}
	u.mu.Unlock()
	u.emit()

	logger.Debug("Upload complete", "location", location, "chunks", index, "retries", result.Retries)
	return result, nil
}

// sendChunk uploads one range, retrying failures with backoff. A pause
// aborts the attempt without counting it and waits for Resume before the
// same range is sent again.
func (u *Uploader) sendChunk(ctx context.Context, chunk Chunk) (time.Duration, error) {
	attempt := 0
	for {
		if err := u.waitWhilePaused(ctx); err != nil {
			return 0, err
		}

		chunkCtx, cancel := context.WithCancel(ctx)
		u.mu.Lock()
		if u.paused {
			u.mu.Unlock()
			cancel()
			continue
		}
		u.cancelChunk = cancel
		u.inflight = 0
		pausesBefore := u.pauses
		u.mu.Unlock()

		body := newProgressReader(
			NewThrottledReader(chunkCtx, io.NewSectionReader(u.src, chunk.Offset, chunk.Size), u.limiter),
			u.addInflight,
		)

		started := u.now()
		err := u.sink.WriteChunk(chunkCtx, chunk, body)
		body.detach()
		elapsed := u.now().Sub(started)
		cancel()

		u.mu.Lock()
		u.cancelChunk = nil
		wasPaused := u.pauses != pausesBefore
		if err == nil {
			u.committed += chunk.Size
			u.inflight = 0
			u.mu.Unlock()
			return elapsed, nil
		}
		// roll back the partial range
		u.inflight = 0
		u.mu.Unlock()
		u.emit()

		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		if wasPaused {
			logger.Debug("Chunk interrupted by pause", "index", chunk.Index)
			continue
		}

		attempt++
		if attempt > u.opts.MaxRetries {
			return 0, fmt.Errorf("chunk %d failed after %d retries: %w", chunk.Index, u.opts.MaxRetries, err)
		}

		delay := backoff(attempt, u.opts.RetryBase, u.opts.RetryMax)
		u.mu.Lock()
		u.retries++
		u.mu.Unlock()
		logger.Warn("Chunk failed, retrying", "index", chunk.Index, "attempt", attempt, "delay", delay, "error", err)
		u.emit()

		if err := u.sleep(ctx, delay); err != nil {
			return 0, err
		}
	}
}

func (u *Uploader) waitWhilePaused(ctx context.Context) error {
	u.mu.Lock()
	if !u.paused {
		u.mu.Unlock()
		return nil
	}
	resumed := u.resumed
	u.mu.Unlock()

	select {
	case <-resumed:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (u *Uploader) addInflight(n int) {
	u.mu.Lock()
	u.inflight += int64(n)
	if u.committed+u.inflight > u.size {
		u.inflight = u.size - u.committed
	}
	u.speed.add(u.now(), int64(n))
	u.mu.Unlock()
	u.emit()
}

// finish records a terminal failure or cancellation and aborts the sink
func (u *Uploader) finish(ctx context.Context, cause error) error {
	u.mu.Lock()
	canceled := u.canceled || ctx.Err() != nil
	if canceled {
		u.state = StateCanceled
		u.err = ErrCanceled
	} else {
		u.state = StateFailed
		u.err = cause
	}
	u.paused = false
	u.mu.Unlock()

	abortCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := u.sink.Abort(abortCtx); err != nil {
		logger.Warn("Failed to abort upload", "error", err)
	}
	u.emit()

	if canceled {
		logger.Debug("Upload canceled")
		return ErrCanceled
	}
	logger.Error("Upload failed", "error", cause)
	return cause
}

// Pause aborts the in-flight range and holds the loop until Resume. It
// returns false when the upload is not running.
func (u *Uploader) Pause() bool {
	u.mu.Lock()
	if u.state != StateUploading {
		u.mu.Unlock()
		return false
	}
	u.paused = true
	u.pauses++
	u.state = StatePaused
	u.resumed = make(chan struct{})
	if u.cancelChunk != nil {
		u.cancelChunk()
	}
	u.speed.reset()
	u.mu.Unlock()

	logger.Debug("Upload paused")
	u.emit()
	return true
}

// Resume continues a paused upload from the same range
func (u *Uploader) Resume() bool {
	u.mu.Lock()
	if !u.paused || u.state != StatePaused {
		u.mu.Unlock()
		return false
	}
	u.paused = false
	u.state = StateUploading
	close(u.resumed)
	u.mu.Unlock()

	logger.Debug("Upload resumed")
	u.emit()
	return true
}

// TogglePause pauses a running upload or resumes a paused one
func (u *Uploader) TogglePause() State {
	if !u.Pause() {
		u.Resume()
	}
	return u.State()
}

// Cancel stops the upload and aborts the sink. It is safe to call at any time.
func (u *Uploader) Cancel() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.state.Terminal() {
		return
	}
	u.canceled = true
	if u.cancelUpload != nil {
		u.cancelUpload()
	}
}

// State returns the current lifecycle state
func (u *Uploader) State() State {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.state
}

// Progress returns a snapshot of the upload
func (u *Uploader) Progress() Progress {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.snapshot()
}

func (u *Uploader) snapshot() Progress {
	uploaded := u.committed + u.inflight
	if uploaded > u.size {
		uploaded = u.size
	}

	percent := 100.0
	if u.size > 0 {
		percent = float64(uploaded) / float64(u.size) * 100
	}

	var speed float64
	if u.state == StateUploading {
		speed = u.speed.rate(u.now())
	}

	remaining := u.size - u.committed
	count := u.chunkIndex
	if remaining > 0 && u.chunkSize > 0 {
		count += int((remaining + u.chunkSize - 1) / u.chunkSize)
	}

	return Progress{
		BytesUploaded: uploaded,
		TotalBytes:    u.size,
		Percent:       percent,
		SpeedBps:      speed,
		ETA:           eta(u.size-uploaded, speed),
		ChunkIndex:    u.chunkIndex,
		ChunkCount:    count,
		ChunkSize:     u.chunkSize,
		Retries:       u.retries,
		State:         u.state,
		Err:           u.err,
	}
}

func (u *Uploader) emit() {
	if u.opts.OnProgress == nil {
		return
	}
	u.mu.Lock()
	p := u.snapshot()
	u.mu.Unlock()
	u.opts.OnProgress(p)
}
