package api

import (
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/socialhub/socialhub-cli/pkg/client"
	"github.com/socialhub/socialhub-cli/pkg/config"
	"github.com/stretchr/testify/require"
)

// recorded is one request seen by the fake backend
type recorded struct {
	Method string
	Path   string
	Query  map[string][]string
	Header http.Header
	Body   string
}

type fakeBackend struct {
	mu       sync.Mutex
	requests []recorded
}

func (f *fakeBackend) last(t *testing.T) recorded {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests, "backend saw no requests")
	return f.requests[len(f.requests)-1]
}

func (f *fakeBackend) all() []recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recorded(nil), f.requests...)
}

// newBackend points the shared client at a test server that records each
// request before handing it to handler.
func newBackend(t *testing.T, handler http.HandlerFunc) *fakeBackend {
	t.Helper()
	fb := &fakeBackend{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		fb.mu.Lock()
		fb.requests = append(fb.requests, recorded{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Header: r.Header.Clone(),
			Body:   string(body),
		})
		fb.mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	require.NoError(t, config.Init(filepath.Join(t.TempDir(), "config.toml")))
	config.Set("backend.url", srv.URL)
	config.Set("backend.anon_key", "anon")
	client.Init()
	return fb
}

func respondJSON(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}
