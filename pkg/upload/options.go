package upload

import (
	"time"

	"github.com/socialhub/socialhub-cli/pkg/config"
)

const (
	DefaultInitialChunkSize int64 = 1 << 20
	DefaultMinChunkSize     int64 = 256 << 10
	DefaultMaxChunkSize     int64 = 10 << 20

	DefaultTargetChunkDuration = 2 * time.Second
	DefaultMaxRetries          = 5
	DefaultRetryBase           = time.Second
	DefaultRetryMax            = 30 * time.Second

	// throughputWindow is how many completed chunks feed the size estimate
	throughputWindow = 5
	// speedWindow is the span the reported speed is averaged over
	speedWindow = 5 * time.Second
)

// NoRetries as Options.MaxRetries fails a range on its first error
const NoRetries = -1

// Options tunes chunk sizing, retries and bandwidth
type Options struct {
	InitialChunkSize    int64
	MinChunkSize        int64
	MaxChunkSize        int64
	TargetChunkDuration time.Duration

	// MaxRetries is the retry budget per range. Zero takes the default;
	// use NoRetries to disable retrying.
	MaxRetries int
	RetryBase  time.Duration
	RetryMax   time.Duration

	// MaxBytesPerSec caps upload bandwidth; zero means unlimited
	MaxBytesPerSec int64

	// OnProgress receives a snapshot after every change. It is called
	// synchronously and must not block.
	OnProgress func(Progress)
}

// DefaultOptions returns the built-in tuning
func DefaultOptions() Options {
	return Options{
		InitialChunkSize:    DefaultInitialChunkSize,
		MinChunkSize:        DefaultMinChunkSize,
		MaxChunkSize:        DefaultMaxChunkSize,
		TargetChunkDuration: DefaultTargetChunkDuration,
		MaxRetries:          DefaultMaxRetries,
		RetryBase:           DefaultRetryBase,
		RetryMax:            DefaultRetryMax,
	}
}

// OptionsFromConfig reads the upload.* keys. upload.max_retries = 0
// disables retrying.
func OptionsFromConfig() Options {
	retries := config.GetInt("upload.max_retries")
	if retries <= 0 {
		retries = NoRetries
	}
	return Options{
		InitialChunkSize:    config.GetInt64("upload.initial_chunk_size"),
		MinChunkSize:        config.GetInt64("upload.min_chunk_size"),
		MaxChunkSize:        config.GetInt64("upload.max_chunk_size"),
		TargetChunkDuration: time.Duration(config.GetFloat64("upload.target_chunk_seconds") * float64(time.Second)),
		MaxRetries:          retries,
		RetryBase:           time.Duration(config.GetInt("upload.retry_base_ms")) * time.Millisecond,
		RetryMax:            time.Duration(config.GetInt("upload.retry_max_ms")) * time.Millisecond,
		MaxBytesPerSec:      config.GetInt64("upload.max_bytes_per_sec"),
	}
}

// normalize fills zero values with defaults, turns NoRetries into a zero
// budget and raises the minimum chunk size to what the sink accepts
func (o Options) normalize(sinkMin int64) Options {
	d := DefaultOptions()
	if o.InitialChunkSize <= 0 {
		o.InitialChunkSize = d.InitialChunkSize
	}
	if o.MinChunkSize <= 0 {
		o.MinChunkSize = d.MinChunkSize
	}
	if o.MaxChunkSize <= 0 {
		o.MaxChunkSize = d.MaxChunkSize
	}
	if o.TargetChunkDuration <= 0 {
		o.TargetChunkDuration = d.TargetChunkDuration
	}
	switch {
	case o.MaxRetries == 0:
		o.MaxRetries = d.MaxRetries
	case o.MaxRetries < 0:
		o.MaxRetries = 0
	}
	if o.RetryBase <= 0 {
		o.RetryBase = d.RetryBase
	}
	if o.RetryMax < o.RetryBase {
		o.RetryMax = o.RetryBase
	}

	if sinkMin > o.MinChunkSize {
		o.MinChunkSize = sinkMin
	}
	if o.MaxChunkSize < o.MinChunkSize {
		o.MaxChunkSize = o.MinChunkSize
	}
	o.InitialChunkSize = clamp(o.InitialChunkSize, o.MinChunkSize, o.MaxChunkSize)
	return o
}
