package screen

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cmlabs-hris/hris-dashboard-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/domain/export"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/domain/metrics"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/domain/screen"
	exportsvc "github.com/cmlabs-hris/hris-dashboard-go/internal/service/export"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/service/fetcher"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/service/poller"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/service/query"
)

// Publisher delivers screen events to subscribers.
type Publisher func(event string, data any)

// Screen is one open dashboard view. It owns its filter exclusively; every
// exported method is safe for concurrent use.
type Screen struct {
	ID      string
	Kind    screen.Kind
	Profile screen.Profile
	// OwnerID is the user who opened the screen. No other user can see it.
	OwnerID string

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	publish Publisher

	fetcher  *fetcher.Fetcher
	poller   *poller.Poller
	handle   *poller.Handle
	exporter *exportsvc.Orchestrator

	mu      sync.Mutex
	builder *query.Builder
	event   attendance.PageEvent
	jobs    map[string]trackedJob
	closed  bool

	lastSeen atomic.Int64
}

// jobRetention bounds how long a settled job nobody asked about is kept.
const jobRetention = 10 * time.Minute

type trackedJob struct {
	job     export.Job
	settled time.Time
}

func (j trackedJob) terminal() bool {
	return j.job.State == export.StateSucceeded || j.job.State == export.StateFailed
}

// Info is the public summary of a screen.
type Info struct {
	ID      string        `json:"id"`
	Kind    screen.Kind   `json:"kind"`
	Rows    int           `json:"rows"`
	Metrics bool          `json:"metrics"`
	Exports []export.Kind `json:"exports"`
}

func (s *Screen) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	exports := s.Profile.Exports
	if exports == nil {
		exports = []export.Kind{}
	}
	return Info{
		ID:      s.ID,
		Kind:    s.Kind,
		Rows:    s.event.Rows,
		Metrics: s.poller != nil,
		Exports: exports,
	}
}

// ========================================
// FILTERS
// ========================================

// Every setter below re-issues the list fetch from the first page, keeping the
// current page size and sort. issued is false when the filter is still
// incomplete (a date range with one end picked) and nothing was sent.

func (s *Screen) SetSearch(term string) (bool, error) {
	return s.mutate(func(b *query.Builder) error {
		b.SetSearch(term)
		return nil
	})
}

func (s *Screen) SetDate(date time.Time) (bool, error) {
	return s.mutate(func(b *query.Builder) error {
		b.SetDate(date)
		return nil
	})
}

func (s *Screen) SetDateRange(from, to time.Time) (bool, error) {
	return s.mutate(func(b *query.Builder) error {
		b.SetDateRange(from, to)
		return nil
	})
}

// SetMonth only feeds monthly report exports and does not refetch.
func (s *Screen) SetMonth(year int, month time.Month) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return screen.ErrScreenNotFound
	}
	return s.builder.SetMonth(year, month)
}

func (s *Screen) SetCategoricalFilter(name string, values []string) (bool, error) {
	return s.mutate(func(b *query.Builder) error {
		return b.SetCategoricalFilter(name, values)
	})
}

func (s *Screen) SetStatus(status attendance.Status) (bool, error) {
	return s.mutate(func(b *query.Builder) error {
		return b.SetStatus(status)
	})
}

func (s *Screen) ActivateCriterion(c attendance.Criterion) (bool, error) {
	return s.mutate(func(b *query.Builder) error {
		return b.ActivateCriterion(c)
	})
}

// Filter returns a snapshot of the current filter.
func (s *Screen) Filter() attendance.FilterState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.builder.Filter()
}

func (s *Screen) mutate(fn func(b *query.Builder) error) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, screen.ErrScreenNotFound
	}
	if err := fn(s.builder); err != nil {
		return false, err
	}
	s.event = attendance.PageEvent{
		First:     0,
		Rows:      s.event.Rows,
		SortField: s.event.SortField,
		SortOrder: s.event.SortOrder,
	}
	return s.issueLocked()
}

// ========================================
// PAGING
// ========================================

// Load handles a table lazy-load event.
func (s *Screen) Load(event attendance.PageEvent) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, screen.ErrScreenNotFound
	}
	if event.Rows <= 0 {
		event.Rows = s.event.Rows
	}
	s.event = event
	return s.issueLocked()
}

// Clear resets the filter and reloads the first page.
func (s *Screen) Clear() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, screen.ErrScreenNotFound
	}
	s.builder.Reset()
	s.event = query.DefaultEvent(s.event.Rows)
	return s.issueLocked()
}

// Page returns the current page state.
func (s *Screen) Page() attendance.PageState {
	return s.fetcher.State()
}

// issueLocked builds the request for the current event and filter and fetches
// it in the background. s.mu must be held.
func (s *Screen) issueLocked() (bool, error) {
	req, err := query.BuildRequest(s.Profile.Resource, s.event, s.builder.Filter())
	if err != nil {
		if errors.Is(err, attendance.ErrIncompleteDateRange) {
			return false, nil
		}
		return false, err
	}

	// Begin runs under s.mu so requests are ordered the way they were issued.
	pending, err := s.fetcher.Begin(s.ctx, req)
	if err != nil {
		if errors.Is(err, attendance.ErrFetcherClosed) {
			return false, screen.ErrScreenNotFound
		}
		return false, err
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_, err := pending.Wait(s.ctx)
		switch {
		case err == nil,
			errors.Is(err, attendance.ErrSuperseded),
			errors.Is(err, attendance.ErrFetcherClosed),
			errors.Is(err, context.Canceled):
		default:
			slog.Debug("Screen fetch settled with error", "screen_id", s.ID, "error", err)
		}
	}()
	return true, nil
}

// ========================================
// METRICS
// ========================================

// Metrics returns the last delivered snapshot. ok is false before the first
// poll completes.
func (s *Screen) Metrics() (metrics.Snapshot, bool, error) {
	if s.poller == nil {
		return metrics.Snapshot{}, false, metrics.ErrNoMetricsEndpoint
	}
	snapshot, ok := s.poller.Latest()
	return snapshot, ok, nil
}

// ========================================
// EXPORTS
// ========================================

// Export starts a report export in the background and returns the job.
func (s *Screen) Export(kind export.Kind) (export.Job, error) {
	if !kind.Valid() {
		return export.Job{}, export.ErrUnknownKind
	}
	if !s.Profile.Offers(kind) {
		return export.Job{}, export.ErrKindNotOffered
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return export.Job{}, screen.ErrScreenNotFound
	}

	s.pruneJobsLocked(time.Now())
	job, err := s.exporter.Prepare(kind, s.builder.Filter())
	if err != nil {
		return export.Job{}, err
	}
	s.jobs[job.ID] = trackedJob{job: job}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_, _ = s.exporter.Run(s.ctx, job)
	}()
	return job, nil
}

// Job returns the latest known state of an export. A settled job is handed
// out once and then forgotten.
func (s *Screen) Job(id string) (export.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tracked, ok := s.jobs[id]
	if !ok {
		return export.Job{}, false
	}
	if tracked.terminal() {
		delete(s.jobs, id)
	}
	return tracked.job, true
}

// pruneJobsLocked drops settled jobs older than jobRetention. s.mu must be
// held.
func (s *Screen) pruneJobsLocked(now time.Time) {
	for id, tracked := range s.jobs {
		if tracked.terminal() && now.Sub(tracked.settled) > jobRetention {
			delete(s.jobs, id)
		}
	}
}

// Busy reports whether any export is in flight.
func (s *Screen) Busy() bool {
	return s.exporter.Busy()
}

// notify records the final job state and forwards the notification.
func (s *Screen) notify(_ context.Context, n export.Notification) {
	s.mu.Lock()
	if _, ok := s.jobs[n.Job.ID]; ok {
		s.jobs[n.Job.ID] = trackedJob{job: n.Job, settled: time.Now()}
	}
	s.mu.Unlock()
	s.publish(screen.EventNotification, n)
}

// ========================================
// LIFECYCLE
// ========================================

// Touch marks the screen as in use.
func (s *Screen) Touch() {
	s.lastSeen.Store(time.Now().UnixNano())
}

func (s *Screen) LastSeen() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}

// close releases the poller handle, stops applying fetch results and waits
// for background work to finish.
func (s *Screen) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	if s.handle != nil {
		s.handle.Stop()
	}
	s.fetcher.Close()
	s.cancel()
	s.wg.Wait()
}
