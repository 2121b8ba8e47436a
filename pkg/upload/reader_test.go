package upload

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestNewLimiter(t *testing.T) {
	assert.Nil(t, NewLimiter(0))

	l := NewLimiter(1000)
	require.NotNil(t, l)
	assert.Equal(t, 32<<10, l.Burst())

	l = NewLimiter(10 << 20)
	assert.Equal(t, 10<<20, l.Burst())
}

func TestThrottledReaderPassesData(t *testing.T) {
	data := bytes.Repeat([]byte("x"), 100<<10)
	r := NewThrottledReader(context.Background(), bytes.NewReader(data), rate.NewLimiter(rate.Inf, 16<<10))

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestThrottledReaderNilLimiterIsPassthrough(t *testing.T) {
	src := bytes.NewReader([]byte("abc"))
	assert.Same(t, src, NewThrottledReader(context.Background(), src, nil))
}

func TestThrottledReaderStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	limiter := rate.NewLimiter(1, 1024)
	r := NewThrottledReader(ctx, bytes.NewReader(make([]byte, 4096)), limiter)

	buf := make([]byte, 4096)
	_, err := r.Read(buf)
	assert.Error(t, err)
}

func TestProgressReaderDetach(t *testing.T) {
	var counted int
	p := newProgressReader(bytes.NewReader(make([]byte, 100)), func(n int) { counted += n })

	buf := make([]byte, 40)
	_, _ = p.Read(buf)
	p.detach()
	_, _ = p.Read(buf)

	assert.Equal(t, 40, counted)
}
