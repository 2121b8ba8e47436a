package upload

import "time"

// minSpeedSpan keeps a single early sample from reporting an absurd rate
const minSpeedSpan = 250 * time.Millisecond

type speedSample struct {
	at time.Time
	n  int64
}

// speedMeter averages bytes sent over a sliding time window. It counts
// every byte that went on the wire, including bytes of aborted attempts.
type speedMeter struct {
	window  time.Duration
	samples []speedSample
}

func newSpeedMeter(window time.Duration) *speedMeter {
	return &speedMeter{window: window}
}

func (m *speedMeter) add(at time.Time, n int64) {
	if n <= 0 {
		return
	}
	m.samples = append(m.samples, speedSample{at: at, n: n})
	m.prune(at)
}

func (m *speedMeter) prune(now time.Time) {
	cutoff := now.Add(-m.window)
	i := 0
	for i < len(m.samples) && m.samples[i].at.Before(cutoff) {
		i++
	}
	m.samples = m.samples[i:]
}

// rate returns bytes per second over the window ending at now
func (m *speedMeter) rate(now time.Time) float64 {
	m.prune(now)
	if len(m.samples) == 0 {
		return 0
	}
	var total int64
	for _, s := range m.samples {
		total += s.n
	}
	span := now.Sub(m.samples[0].at)
	if span < minSpeedSpan {
		span = minSpeedSpan
	}
	return float64(total) / span.Seconds()
}

func (m *speedMeter) reset() {
	m.samples = nil
}

// eta estimates the time left for remaining bytes at speed bytes/s
func eta(remaining int64, speed float64) time.Duration {
	if remaining <= 0 {
		return 0
	}
	if speed <= 0 {
		return -1
	}
	return time.Duration(float64(remaining) / speed * float64(time.Second))
}
