package upload

import "time"

func clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// throughputTracker keeps the per-chunk throughput of the most recent chunks
type throughputTracker struct {
	samples []float64
	size    int
}

func newThroughputTracker(size int) *throughputTracker {
	return &throughputTracker{size: size}
}

// record adds the throughput of one completed chunk in bytes per second
func (t *throughputTracker) record(bytes int64, elapsed time.Duration) {
	if elapsed <= 0 || bytes <= 0 {
		return
	}
	t.samples = append(t.samples, float64(bytes)/elapsed.Seconds())
	if len(t.samples) > t.size {
		t.samples = t.samples[len(t.samples)-t.size:]
	}
}

func (t *throughputTracker) average() float64 {
	if len(t.samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range t.samples {
		sum += s
	}
	return sum / float64(len(t.samples))
}

// nextChunkSize sizes the next chunk so it takes about target at the
// recent throughput. With no measurement yet it keeps current.
func nextChunkSize(avgThroughput float64, target time.Duration, current, min, max int64) int64 {
	if avgThroughput <= 0 {
		return clamp(current, min, max)
	}
	want := avgThroughput * target.Seconds()
	if want >= float64(max) {
		return max
	}
	return clamp(int64(want), min, max)
}

// backoff returns base·2^(attempt-1), capped at max. attempt starts at 1.
func backoff(attempt int, base, max time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}
