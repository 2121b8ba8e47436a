// Package preload warms the first bytes of the videos a viewer is about to
// reach so playback starts without a stall.
package preload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/socialhub/socialhub-cli/pkg/client"
	"github.com/socialhub/socialhub-cli/pkg/config"
	"github.com/socialhub/socialhub-cli/pkg/logger"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Options bounds how much is prefetched
type Options struct {
	Count       int   // upcoming videos to warm
	Bytes       int64 // leading bytes fetched per video
	Concurrency int   // simultaneous fetches
	MaxEntries  int   // cached videos kept in memory
}

// DefaultOptions matches the config defaults
func DefaultOptions() Options {
	return Options{Count: 2, Bytes: 1 << 20, Concurrency: 2, MaxEntries: 8}
}

// OptionsFromConfig reads preload.*
func OptionsFromConfig() Options {
	return Options{
		Count:       config.GetInt("preload.count"),
		Bytes:       config.GetInt64("preload.bytes"),
		Concurrency: config.GetInt("preload.concurrency"),
		MaxEntries:  config.GetInt("preload.max_entries"),
	}
}

func (o Options) normalize() Options {
	def := DefaultOptions()
	if o.Count < 0 {
		o.Count = 0
	}
	if o.Bytes <= 0 {
		o.Bytes = def.Bytes
	}
	if o.Concurrency <= 0 {
		o.Concurrency = def.Concurrency
	}
	if o.MaxEntries <= 0 {
		o.MaxEntries = def.MaxEntries
	}
	if o.MaxEntries < o.Count {
		o.MaxEntries = o.Count
	}
	return o
}

type entry struct {
	data      []byte
	fetchedAt time.Time
}

type job struct {
	cancel context.CancelFunc
}

// Preloader keeps an in-memory cache of video heads. It is safe for
// concurrent use.
type Preloader struct {
	http *resty.Client
	opts Options
	sem  *semaphore.Weighted

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	entries  map[string]*entry
	order    []string
	inflight map[string]*job
	fetches  int
}

// New creates a preloader that fetches through httpClient
func New(httpClient *resty.Client, opts Options) *Preloader {
	opts = opts.normalize()
	ctx, cancel := context.WithCancel(context.Background())
	return &Preloader{
		http:     httpClient,
		opts:     opts,
		sem:      semaphore.NewWeighted(int64(opts.Concurrency)),
		ctx:      ctx,
		cancel:   cancel,
		entries:  make(map[string]*entry),
		inflight: make(map[string]*job),
	}
}

// NewFromConfig creates a preloader on the shared backend client
func NewFromConfig() *Preloader {
	return New(client.GetClient(), OptionsFromConfig())
}

// Upcoming returns up to count distinct URLs following index, skipping
// blanks and the current URL
func Upcoming(urls []string, index, count int) []string {
	if index < -1 || count <= 0 {
		return nil
	}
	current := ""
	if index >= 0 && index < len(urls) {
		current = urls[index]
	}

	seen := make(map[string]bool)
	var out []string
	for i := index + 1; i < len(urls) && len(out) < count; i++ {
		u := urls[i]
		if u == "" || u == current || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}

// SetIndex moves the viewer to urls[index]. Fetches for videos no longer
// upcoming are canceled and missing upcoming videos start downloading in
// the background.
func (p *Preloader) SetIndex(urls []string, index int) {
	upcoming := Upcoming(urls, index, p.opts.Count)
	want := make(map[string]bool, len(upcoming))
	for _, u := range upcoming {
		want[u] = true
	}

	type task struct {
		url string
		ctx context.Context
		job *job
	}

	p.mu.Lock()
	if p.ctx.Err() != nil {
		p.mu.Unlock()
		return
	}
	for u, j := range p.inflight {
		if !want[u] {
			j.cancel()
			delete(p.inflight, u)
			logger.Debug("Preload canceled", "url", u)
		}
	}
	var tasks []task
	for _, u := range upcoming {
		if _, ok := p.entries[u]; ok {
			continue
		}
		if _, ok := p.inflight[u]; ok {
			continue
		}
		ctx, cancel := context.WithCancel(p.ctx)
		j := &job{cancel: cancel}
		p.inflight[u] = j
		tasks = append(tasks, task{url: u, ctx: ctx, job: j})
	}
	if len(tasks) > 0 {
		p.wg.Add(1)
	}
	p.mu.Unlock()

	if len(tasks) == 0 {
		return
	}

	go func() {
		defer p.wg.Done()
		var g errgroup.Group
		for _, t := range tasks {
			g.Go(func() error {
				defer t.job.cancel()
				if err := p.sem.Acquire(t.ctx, 1); err != nil {
					p.finish(t.url, t.job, nil, err)
					return nil
				}
				data, err := p.fetch(t.ctx, t.url)
				p.sem.Release(1)
				p.finish(t.url, t.job, data, err)
				return nil
			})
		}
		_ = g.Wait()
	}()
}

func (p *Preloader) fetch(ctx context.Context, url string) ([]byte, error) {
	resp, err := p.http.R().
		SetContext(ctx).
		SetHeader("Range", fmt.Sprintf("bytes=0-%d", p.opts.Bytes-1)).
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		return nil, err
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusPartialContent {
		return nil, fmt.Errorf("preload %s: status %d", url, resp.StatusCode())
	}
	// servers that ignore Range send the whole file
	return io.ReadAll(io.LimitReader(body, p.opts.Bytes))
}

func (p *Preloader) finish(url string, j *job, data []byte, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	current := p.inflight[url] == j
	if current {
		delete(p.inflight, url)
	}
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			logger.Debug("Preload failed", "url", url, "error", err)
		}
		return
	}
	if !current {
		return
	}

	p.fetches++
	p.entries[url] = &entry{data: data, fetchedAt: time.Now()}
	p.order = append(p.order, url)
	for len(p.order) > p.opts.MaxEntries {
		oldest := p.order[0]
		p.order = p.order[1:]
		delete(p.entries, oldest)
		logger.Debug("Preload evicted", "url", oldest)
	}
	logger.Debug("Preloaded", "url", url, "bytes", len(data))
}

// Get returns the cached head of url
func (p *Preloader) Get(url string) ([]byte, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[url]
	if !ok {
		return nil, false
	}
	return e.data, true
}

// Cached lists cached URLs, oldest first
func (p *Preloader) Cached() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.order...)
}

// Pending lists URLs still downloading
func (p *Preloader) Pending() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.inflight))
	for u := range p.inflight {
		out = append(out, u)
	}
	return out
}

// Fetches counts completed downloads
func (p *Preloader) Fetches() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fetches
}

// Wait blocks until every started fetch has finished
func (p *Preloader) Wait() {
	p.wg.Wait()
}

// Close cancels outstanding fetches and waits for them to exit
func (p *Preloader) Close() {
	p.mu.Lock()
	p.cancel()
	p.inflight = make(map[string]*job)
	p.mu.Unlock()
	p.wg.Wait()
}
