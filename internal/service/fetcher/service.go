package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-dashboard-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/observability"
)

// DefaultTimeout bounds a single list request.
const DefaultTimeout = 10 * time.Second

type Config struct {
	Timeout time.Duration
}

// Listener receives every state the fetcher publishes, in order. It is
// invoked with the fetcher lock held and must not call back into the Fetcher.
type Listener func(state attendance.PageState)

// call is one issued list request.
type call struct {
	gen    uint64
	req    attendance.PageRequest
	cancel context.CancelFunc
	done   chan struct{}
	state  attendance.PageState
	err    error
}

// Fetcher issues paged list requests and applies only the result of the most
// recently issued one.
type Fetcher struct {
	source   attendance.ListSource
	timeout  time.Duration
	listener Listener
	metrics  *observability.Metrics

	mu      sync.Mutex
	gen     uint64
	state   attendance.PageState
	pending *call
	closed  bool
}

func New(source attendance.ListSource, cfg Config, listener Listener, metrics *observability.Metrics) *Fetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Fetcher{
		source:   source,
		timeout:  timeout,
		listener: listener,
		metrics:  metrics,
		state:    attendance.PageState{Rows: []attendance.Record{}},
	}
}

// Pending is an issued request whose outcome has not been collected yet.
type Pending struct {
	c *call
}

// Wait blocks until the request settles or ctx is done.
func (p *Pending) Wait(ctx context.Context) (attendance.PageState, error) {
	return wait(ctx, p.c)
}

// Fetch issues req and blocks until it settles. A request equal to the one
// still outstanding joins it instead of reaching the upstream again. The
// returned error wraps ErrSuperseded when a newer request was issued before
// this one settled, and ErrFetchFailed when the upstream call failed.
func (f *Fetcher) Fetch(ctx context.Context, req attendance.PageRequest) (attendance.PageState, error) {
	p, err := f.Begin(ctx, req)
	if err != nil {
		return attendance.PageState{}, err
	}
	return p.Wait(ctx)
}

// Begin issues req without waiting for it. The request takes its place in
// issue order before Begin returns, so of two Begin calls made in sequence
// only the second can be applied.
func (f *Fetcher) Begin(ctx context.Context, req attendance.PageRequest) (*Pending, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, attendance.ErrFetcherClosed
	}
	if p := f.pending; p != nil && p.req.Equal(req) {
		return &Pending{c: p}, nil
	}

	if prev := f.pending; prev != nil {
		prev.cancel()
	}
	f.gen++
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.timeout)
	c := &call{
		gen:    f.gen,
		req:    req,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	f.pending = c

	loading := f.state
	loading.Loading = true
	f.state = loading
	f.publish()

	go f.run(fctx, c)
	return &Pending{c: c}, nil
}

// State returns the current page state.
func (f *Fetcher) State() attendance.PageState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Close stops the fetcher from applying any further result. Outstanding
// requests are cancelled; their callers receive ErrFetcherClosed.
func (f *Fetcher) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	f.closed = true
	if f.pending != nil {
		f.pending.cancel()
	}
}

func (f *Fetcher) run(ctx context.Context, c *call) {
	defer c.cancel()

	start := time.Now()
	result, err := f.source.List(ctx, c.req.Resource.Path, c.req.Values())
	elapsed := time.Since(start)

	f.mu.Lock()
	defer f.mu.Unlock()
	defer close(c.done)

	if f.pending == c {
		f.pending = nil
	}

	switch {
	case f.closed:
		c.state, c.err = f.state, attendance.ErrFetcherClosed
		return
	case c.gen != f.gen:
		f.metrics.ObserveFetch(c.req.Resource.Path, observability.OutcomeSuperseded, elapsed)
		c.state, c.err = f.state, attendance.ErrSuperseded
		return
	}

	next := attendance.PageState{
		Rows:       []attendance.Record{},
		Generation: c.gen,
		Request:    c.req,
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("list request timed out after %s: %w", f.timeout, err)
		}
		slog.Warn("Failed to fetch page",
			"resource", c.req.Resource.Path,
			"page", c.req.Page(),
			"generation", c.gen,
			"error", err,
		)
		f.metrics.ObserveFetch(c.req.Resource.Path, observability.OutcomeFailure, elapsed)
		next.Error = err.Error()
		c.err = fmt.Errorf("%w: %w", attendance.ErrFetchFailed, err)
	} else {
		f.metrics.ObserveFetch(c.req.Resource.Path, observability.OutcomeSuccess, elapsed)
		if result.Rows != nil {
			next.Rows = result.Rows
		}
		next.TotalCount = result.TotalCount
	}

	f.state = next
	c.state = next
	f.publish()
}

// publish must be called with f.mu held.
func (f *Fetcher) publish() {
	if f.listener != nil && !f.closed {
		f.listener(f.state)
	}
}

func wait(ctx context.Context, c *call) (attendance.PageState, error) {
	select {
	case <-c.done:
		return c.state, c.err
	case <-ctx.Done():
		return attendance.PageState{}, ctx.Err()
	}
}
