package service

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/socialhub/socialhub-cli/pkg/client"
	"github.com/socialhub/socialhub-cli/pkg/config"
	"github.com/socialhub/socialhub-cli/pkg/credentials"
	"github.com/socialhub/socialhub-cli/pkg/output"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	Method string
	Path   string
	Query  map[string][]string
	Body   string
}

// fakeBackend answers "METHOD /path" routes and records every request.
// Unrouted requests get an empty JSON array.
type fakeBackend struct {
	mu       sync.Mutex
	routes   map[string]http.HandlerFunc
	prefixes map[string]http.HandlerFunc
	requests []recorded
}

func (f *fakeBackend) on(method, path string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[method+" "+path] = h
}

// onPrefix routes every path under prefix, e.g. storage objects
func (f *fakeBackend) onPrefix(method, prefix string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prefixes[method+" "+prefix] = h
}

func (f *fakeBackend) find(method, path string) []recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recorded
	for _, r := range f.requests {
		if r.Method == method && r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

func (f *fakeBackend) count(method, prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.requests {
		if r.Method == method && strings.HasPrefix(r.Path, prefix) {
			n++
		}
	}
	return n
}

func (f *fakeBackend) handler(method, path string) http.HandlerFunc {
	f.mu.Lock()
	defer f.mu.Unlock()
	if h, ok := f.routes[method+" "+path]; ok {
		return h
	}
	for key, h := range f.prefixes {
		m, p, _ := strings.Cut(key, " ")
		if m == method && strings.HasPrefix(path, p) {
			return h
		}
	}
	return respondJSON(http.StatusOK, `[]`)
}

// testEnv is a configured client against a fake backend with captured output
type testEnv struct {
	backend *fakeBackend
	out     *bytes.Buffer
	dir     string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	color.NoColor = true

	fb := &fakeBackend{routes: map[string]http.HandlerFunc{}, prefixes: map[string]http.HandlerFunc{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		fb.mu.Lock()
		fb.requests = append(fb.requests, recorded{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Body:   string(body),
		})
		fb.mu.Unlock()
		fb.handler(r.Method, r.URL.Path)(w, r)
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	require.NoError(t, config.Init(filepath.Join(dir, "config.toml")))
	config.Set("backend.url", srv.URL)
	config.Set("backend.anon_key", "anon")
	config.Set("upload.max_retries", 0)
	config.Set("output.format", "text")
	client.Init()

	var buf bytes.Buffer
	prev := output.Writer
	output.Writer = &buf
	t.Cleanup(func() {
		output.Writer = prev
		config.Set("output.format", "text")
	})

	return &testEnv{backend: fb, out: &buf, dir: dir}
}

// login stores a session for userID
func (e *testEnv) login(t *testing.T, userID, username string, admin bool) {
	t.Helper()
	require.NoError(t, credentials.Save(&credentials.Credentials{
		AccessToken: "token-" + userID,
		ExpiresAt:   time.Now().Add(time.Hour),
		UserID:      userID,
		Username:    username,
		Email:       username + "@example.com",
		IsAdmin:     admin,
	}))
}

func respondJSON(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

// respondPage answers a counted select with rows and a total
func respondPage(total int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Range", "0-0/"+strconv.Itoa(total))
		respondJSON(http.StatusOK, body)(w, r)
	}
}

// quietUploads never draws the progress bar and collects progress lines
func quietUploads(progress io.Writer) *UploadService {
	return &UploadService{progressOut: progress, interactive: func() bool { return false }}
}
