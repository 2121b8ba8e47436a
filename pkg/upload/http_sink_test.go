package upload

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/socialhub/socialhub-cli/pkg/client"
	"github.com/socialhub/socialhub-cli/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storageRequest struct {
	method       string
	path         string
	contentRange string
	uploadID     string
	auth         string
	length       int64
	body         []byte
}

type fakeStorage struct {
	mu       sync.Mutex
	requests []storageRequest
	failNext int
}

func (s *fakeStorage) handler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	s.mu.Lock()
	s.requests = append(s.requests, storageRequest{
		method:       r.Method,
		path:         r.URL.Path,
		contentRange: r.Header.Get("Content-Range"),
		uploadID:     r.Header.Get(UploadIDHeader),
		auth:         r.Header.Get("Authorization"),
		length:       r.ContentLength,
		body:         body,
	})
	fail := s.failNext > 0
	if fail {
		s.failNext--
	}
	s.mu.Unlock()

	if fail {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream hiccup"))
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *fakeStorage) all() []storageRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]storageRequest(nil), s.requests...)
}

func newStorage(t *testing.T) *fakeStorage {
	t.Helper()
	fs := &fakeStorage{}
	srv := httptest.NewServer(http.HandlerFunc(fs.handler))
	t.Cleanup(srv.Close)

	require.NoError(t, config.Init(filepath.Join(t.TempDir(), "config.toml")))
	config.Set("backend.url", srv.URL)
	config.Set("backend.anon_key", "anon")
	config.Set("backend.timeout", 1)
	client.Init()
	client.SetAuthToken("user-jwt")
	return fs
}

func TestHTTPSinkSendsContentRanges(t *testing.T) {
	fs := newStorage(t)
	data := bytes.Repeat([]byte("0123456789"), 25<<10)

	sink := NewHTTPSink("media", "u1/clip.mp4", "video/mp4")
	opts := Options{InitialChunkSize: 100 << 10, MinChunkSize: 100 << 10, MaxChunkSize: 100 << 10, MaxRetries: 2}
	u := New(bytes.NewReader(data), int64(len(data)), sink, opts)

	result, err := u.Upload(context.Background())
	require.NoError(t, err)
	assert.Contains(t, result.Location, "/storage/v1/object/public/media/u1/clip.mp4")

	reqs := fs.all()
	require.Len(t, reqs, 3)
	assert.Equal(t, "bytes 0-102399/256000", reqs[0].contentRange)
	assert.Equal(t, "bytes 102400-204799/256000", reqs[1].contentRange)
	assert.Equal(t, "bytes 204800-255999/256000", reqs[2].contentRange)

	var assembled []byte
	for _, r := range reqs {
		assert.Equal(t, http.MethodPut, r.method)
		assert.Equal(t, "/storage/v1/object/media/u1/clip.mp4", r.path)
		assert.Equal(t, sink.UploadID(), r.uploadID)
		assert.Equal(t, "Bearer user-jwt", r.auth)
		assert.Equal(t, int64(len(r.body)), r.length)
		assembled = append(assembled, r.body...)
	}
	assert.Equal(t, data, assembled)
}

func TestHTTPSinkRetriesServerErrors(t *testing.T) {
	fs := newStorage(t)
	fs.failNext = 1
	data := bytes.Repeat([]byte("a"), 50<<10)

	opts := Options{InitialChunkSize: 64 << 10, MaxChunkSize: 64 << 10, MaxRetries: 3, RetryBase: time.Millisecond}
	u := New(bytes.NewReader(data), int64(len(data)), NewHTTPSink("media", "k", "video/mp4"), opts)

	result, err := u.Upload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Retries)
	assert.Len(t, fs.all(), 2)
}

func TestHTTPSinkAbortDeletesOnFailure(t *testing.T) {
	fs := newStorage(t)
	fs.failNext = 100
	data := bytes.Repeat([]byte("a"), 10<<10)

	opts := Options{MaxRetries: 1, RetryBase: time.Millisecond}
	u := New(bytes.NewReader(data), int64(len(data)), NewHTTPSink("media", "k", "video/mp4"), opts)

	_, err := u.Upload(context.Background())
	require.Error(t, err)

	reqs := fs.all()
	require.Len(t, reqs, 3)
	assert.Equal(t, http.MethodDelete, reqs[2].method)
}

func TestHTTPSinkEmptyObject(t *testing.T) {
	fs := newStorage(t)

	u := New(bytes.NewReader(nil), 0, NewHTTPSink("media", "empty.png", "image/png"), Options{})
	_, err := u.Upload(context.Background())
	require.NoError(t, err)

	reqs := fs.all()
	require.Len(t, reqs, 1)
	assert.Equal(t, "bytes */0", reqs[0].contentRange)
}

func TestHTTPSinkSlowChunksOutlastAPITimeout(t *testing.T) {
	fs := newStorage(t)
	data := bytes.Repeat([]byte("s"), 96<<10)

	// 96 KiB at 32 KiB/s streams for about two seconds, past backend.timeout
	opts := Options{
		InitialChunkSize: 96 << 10,
		MinChunkSize:     96 << 10,
		MaxChunkSize:     96 << 10,
		MaxRetries:       NoRetries,
		MaxBytesPerSec:   32 << 10,
	}
	u := New(bytes.NewReader(data), int64(len(data)), NewHTTPSink("media", "slow.mp4", "video/mp4"), opts)

	result, err := u.Upload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Retries)

	reqs := fs.all()
	require.Len(t, reqs, 1)
	assert.Equal(t, data, reqs[0].body)
}
