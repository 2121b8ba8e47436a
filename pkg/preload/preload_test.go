package preload

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

type videoServer struct {
	*httptest.Server

	mu       sync.Mutex
	hits     map[string]int
	ranges   map[string]string
	canceled chan string
	block    map[string]bool
}

func newVideoServer(t *testing.T) *videoServer {
	t.Helper()
	vs := &videoServer{
		hits:     make(map[string]int),
		ranges:   make(map[string]string),
		canceled: make(chan string, 16),
		block:    make(map[string]bool),
	}
	vs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		vs.mu.Lock()
		vs.hits[r.URL.Path]++
		vs.ranges[r.URL.Path] = r.Header.Get("Range")
		block := vs.block[r.URL.Path]
		vs.mu.Unlock()

		if block {
			<-r.Context().Done()
			vs.canceled <- r.URL.Path
			return
		}
		if strings.HasSuffix(r.URL.Path, "full.mp4") {
			w.WriteHeader(http.StatusOK)
			w.Write(bytes.Repeat([]byte("x"), 4096))
			return
		}
		w.WriteHeader(http.StatusPartialContent)
		w.Write(bytes.Repeat([]byte("v"), 16))
	}))
	t.Cleanup(vs.Close)
	return vs
}

func (vs *videoServer) hitCount(path string) int {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	return vs.hits[path]
}

func (vs *videoServer) urls(names ...string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = vs.URL + "/" + n
	}
	return out
}

func newTestPreloader(opts Options) *Preloader {
	return New(resty.New(), opts)
}

func TestUpcoming(t *testing.T) {
	urls := []string{"a", "b", "", "b", "c", "a", "d"}

	assert.Equal(t, []string{"b", "c"}, Upcoming(urls, 0, 2))
	assert.Equal(t, []string{"b", "c", "d"}, Upcoming(urls, 0, 10))
	assert.Equal(t, []string{"a", "b"}, Upcoming(urls, -1, 2))
	assert.Empty(t, Upcoming(urls, 6, 2))
	assert.Empty(t, Upcoming(urls, 0, 0))
}

func TestPrefetchesUpcomingHeads(t *testing.T) {
	vs := newVideoServer(t)
	p := newTestPreloader(Options{Count: 2, Bytes: 1024, Concurrency: 2, MaxEntries: 4})
	defer p.Close()

	urls := vs.urls("v0.mp4", "v1.mp4", "v2.mp4", "v3.mp4")
	p.SetIndex(urls, 0)
	p.Wait()

	assert.ElementsMatch(t, urls[1:3], p.Cached())
	data, ok := p.Get(urls[1])
	require.True(t, ok)
	assert.Len(t, data, 16)

	_, ok = p.Get(urls[0])
	assert.False(t, ok, "current video is not prefetched")

	vs.mu.Lock()
	assert.Equal(t, "bytes=0-1023", vs.ranges["/v1.mp4"])
	vs.mu.Unlock()
}

func TestNeverFetchesCachedURLTwice(t *testing.T) {
	vs := newVideoServer(t)
	p := newTestPreloader(Options{Count: 2, Bytes: 64, Concurrency: 1, MaxEntries: 4})
	defer p.Close()

	urls := vs.urls("v0.mp4", "v1.mp4", "v2.mp4")
	p.SetIndex(urls, 0)
	p.SetIndex(urls, 0)
	p.Wait()
	p.SetIndex(urls, 0)
	p.Wait()

	assert.Equal(t, 1, vs.hitCount("/v1.mp4"))
	assert.Equal(t, 1, vs.hitCount("/v2.mp4"))
	assert.Equal(t, 2, p.Fetches())
}

func TestTruncatesWhenRangeIgnored(t *testing.T) {
	vs := newVideoServer(t)
	p := newTestPreloader(Options{Count: 1, Bytes: 100, Concurrency: 1, MaxEntries: 2})
	defer p.Close()

	urls := vs.urls("v0.mp4", "full.mp4")
	p.SetIndex(urls, 0)
	p.Wait()

	data, ok := p.Get(urls[1])
	require.True(t, ok)
	assert.Len(t, data, 100)
}

func TestMovingIndexCancelsStaleFetches(t *testing.T) {
	vs := newVideoServer(t)
	vs.block["/slow.mp4"] = true

	p := newTestPreloader(Options{Count: 1, Bytes: 64, Concurrency: 2, MaxEntries: 4})
	defer p.Close()

	urls := vs.urls("v0.mp4", "slow.mp4", "v2.mp4", "v3.mp4")
	p.SetIndex(urls, 0)

	require.Eventually(t, func() bool { return vs.hitCount("/slow.mp4") == 1 }, 2*time.Second, 5*time.Millisecond)

	p.SetIndex(urls, 2)

	select {
	case path := <-vs.canceled:
		assert.Equal(t, "/slow.mp4", path)
	case <-time.After(2 * time.Second):
		t.Fatal("stale prefetch was not canceled")
	}
	p.Wait()

	_, ok := p.Get(urls[1])
	assert.False(t, ok)
	_, ok = p.Get(urls[3])
	assert.True(t, ok)
	assert.Empty(t, p.Pending())
}

func TestEvictsOldestFirst(t *testing.T) {
	vs := newVideoServer(t)
	p := newTestPreloader(Options{Count: 1, Bytes: 64, Concurrency: 1, MaxEntries: 2})
	defer p.Close()

	urls := vs.urls("v0.mp4", "v1.mp4", "v2.mp4", "v3.mp4")
	for i := 0; i < 3; i++ {
		p.SetIndex(urls, i)
		p.Wait()
	}

	assert.Equal(t, urls[2:4], p.Cached())
	_, ok := p.Get(urls[1])
	assert.False(t, ok)
}

func TestFailedFetchIsNotCached(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	p := newTestPreloader(Options{Count: 1, Bytes: 64, Concurrency: 1, MaxEntries: 2})
	defer p.Close()

	p.SetIndex([]string{srv.URL + "/a", srv.URL + "/missing"}, 0)
	p.Wait()

	assert.Empty(t, p.Cached())
	assert.Empty(t, p.Pending())
}

func TestCloseStopsInflightFetches(t *testing.T) {
	vs := newVideoServer(t)
	vs.block["/slow.mp4"] = true

	p := newTestPreloader(Options{Count: 1, Bytes: 64, Concurrency: 1, MaxEntries: 2})
	p.SetIndex(vs.urls("v0.mp4", "slow.mp4"), 0)
	require.Eventually(t, func() bool { return vs.hitCount("/slow.mp4") == 1 }, 2*time.Second, 5*time.Millisecond)

	p.Close()
	<-vs.canceled

	assert.Empty(t, p.Cached())
	// no-op once closed
	p.SetIndex(vs.urls("v0.mp4", "v1.mp4"), 0)
	assert.Empty(t, p.Pending())
}
