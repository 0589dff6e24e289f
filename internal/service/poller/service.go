package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-dashboard-go/internal/domain/metrics"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/observability"
)

const (
	DefaultInterval = 10 * time.Second
	DefaultTimeout  = 10 * time.Second
)

type Config struct {
	// Name labels logs and metrics, usually the metrics endpoint.
	Name     string
	Interval time.Duration
	Timeout  time.Duration
}

// Listener receives each delivered snapshot. It is invoked with the poller
// lock held and must not call back into the Poller.
type Listener func(snapshot metrics.Snapshot)

// Poller refreshes an aggregate snapshot on a fixed period and delivers only
// snapshots that are both newer and different from the last delivered one.
type Poller struct {
	source   metrics.Source
	cfg      Config
	listener Listener
	metrics  *observability.Metrics

	mu          sync.Mutex
	issued      uint64
	delivered   uint64
	latest      metrics.Snapshot
	fingerprint [32]byte
	hasLatest   bool
	cancelTick  context.CancelFunc
}

func New(source metrics.Source, cfg Config, listener Listener, m *observability.Metrics) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Poller{
		source:   source,
		cfg:      cfg,
		listener: listener,
		metrics:  m,
	}
}

// Handle owns a running poll loop. It must be stopped when its consumer goes
// away.
type Handle struct {
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
	done   chan struct{}
}

// Stop cancels the ticker and any in-flight fetch, then waits for every poll
// goroutine to exit. It is safe to call more than once.
func (h *Handle) Stop() {
	h.once.Do(func() {
		h.cancel()
		h.wg.Wait()
		close(h.done)
	})
}

// Done is closed once Stop has returned.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Start begins polling. The first tick fires immediately.
func (p *Poller) Start(ctx context.Context) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{cancel: cancel, done: make(chan struct{})}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()

		ticker := time.NewTicker(p.cfg.Interval)
		defer ticker.Stop()

		p.tick(ctx, &h.wg)
		for {
			select {
			case <-ctx.Done():
				slog.Debug("Metrics poller stopping", "name", p.cfg.Name)
				return
			case <-ticker.C:
				p.tick(ctx, &h.wg)
			}
		}
	}()

	slog.Debug("Metrics poller started", "name", p.cfg.Name, "interval", p.cfg.Interval)
	return h
}

// Latest returns the last delivered snapshot.
func (p *Poller) Latest() (metrics.Snapshot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.latest.Clone(), p.hasLatest
}

// tick issues one fetch and cancels the one before it.
func (p *Poller) tick(ctx context.Context, wg *sync.WaitGroup) {
	p.mu.Lock()
	if p.cancelTick != nil {
		p.cancelTick()
	}
	p.issued++
	seq := p.issued
	fctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	p.cancelTick = cancel
	p.mu.Unlock()

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()

		snapshot, err := p.source.Fetch(fctx)
		p.deliver(ctx, seq, snapshot, err)
	}()
}

func (p *Poller) deliver(ctx context.Context, seq uint64, snapshot metrics.Snapshot, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if ctx.Err() != nil {
		return
	}
	if seq <= p.delivered {
		p.metrics.ObservePoll(p.cfg.Name, observability.OutcomeStale)
		return
	}
	if err != nil {
		if errors.Is(err, context.Canceled) && seq < p.issued {
			p.metrics.ObservePoll(p.cfg.Name, observability.OutcomeStale)
			return
		}
		slog.Warn("Failed to poll metrics", "name", p.cfg.Name, "seq", seq, "error", err)
		p.metrics.ObservePoll(p.cfg.Name, observability.OutcomeFailure)
		return
	}

	p.delivered = seq
	fingerprint := snapshot.Fingerprint()
	if p.hasLatest && fingerprint == p.fingerprint {
		p.metrics.ObservePoll(p.cfg.Name, observability.OutcomeUnchanged)
		return
	}

	p.latest = snapshot.Clone()
	p.fingerprint = fingerprint
	p.hasLatest = true
	p.metrics.ObservePoll(p.cfg.Name, observability.OutcomeSuccess)
	if p.listener != nil {
		p.listener(p.latest.Clone())
	}
}
