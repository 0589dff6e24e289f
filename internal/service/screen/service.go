package screen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-dashboard-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/domain/export"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/domain/metrics"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/domain/screen"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/observability"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/pkg/sse"
	exportsvc "github.com/cmlabs-hris/hris-dashboard-go/internal/service/export"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/service/fetcher"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/service/poller"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/service/query"
	"github.com/google/uuid"
)

// MaxRows caps the page size a screen may request.
const MaxRows = 100

type Config struct {
	Rows          int
	FetchTimeout  time.Duration
	PollInterval  time.Duration
	PollTimeout   time.Duration
	ExportTimeout time.Duration
	IdleTTL       time.Duration
}

// Dependencies are the collaborators shared by every screen.
type Dependencies struct {
	Lists      attendance.ListSource
	Metrics    MetricsFactory
	Blobs      export.BlobSource
	Downloader export.Downloader
	Hub        *sse.Hub
	Telemetry  *observability.Metrics
}

// Service is the registry of open screens.
type Service struct {
	deps   Dependencies
	cfg    Config
	shared *sharedMetrics
	now    func() time.Time

	mu      sync.RWMutex
	screens map[string]*Screen
}

func NewService(deps Dependencies, cfg Config) *Service {
	if cfg.Rows <= 0 {
		cfg.Rows = attendance.DefaultPageSize
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = poller.DefaultTimeout
	}
	s := &Service{
		deps:    deps,
		cfg:     cfg,
		now:     time.Now,
		screens: make(map[string]*Screen),
	}
	if deps.Metrics != nil {
		s.shared = &sharedMetrics{factory: deps.Metrics, timeout: cfg.PollTimeout}
	}
	return s
}

// Open creates a screen owned by ownerID, starts its metrics poller and
// loads the first page.
func (s *Service) Open(kind screen.Kind, rows int, ownerID string) (*Screen, error) {
	profile, ok := screen.ProfileFor(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %s", screen.ErrUnknownKind, kind)
	}
	if rows <= 0 {
		rows = s.cfg.Rows
	}
	if rows > MaxRows {
		rows = MaxRows
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate screen id: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sc := &Screen{
		ID:      id.String(),
		Kind:    kind,
		Profile: profile,
		OwnerID: ownerID,
		ctx:     ctx,
		cancel:  cancel,
		builder: query.NewBuilder(),
		event:   query.DefaultEvent(rows),
		jobs:    make(map[string]trackedJob),
	}
	sc.publish = s.publisher(sc.ID)
	sc.Touch()

	sc.fetcher = fetcher.New(s.deps.Lists, fetcher.Config{Timeout: s.cfg.FetchTimeout}, func(state attendance.PageState) {
		sc.publish(screen.EventPage, state.Response())
	}, s.deps.Telemetry)

	sc.exporter = exportsvc.New(s.deps.Blobs, s.deps.Downloader, export.NotifierFunc(sc.notify), exportsvc.Config{Timeout: s.cfg.ExportTimeout}, s.deps.Telemetry)
	sc.exporter.OnBusyChange(func(busy bool) {
		sc.publish(screen.EventBusy, map[string]bool{"busy": busy})
	})

	if profile.MetricsEndpoint != "" && s.shared != nil {
		sc.poller = poller.New(s.shared.source(profile.MetricsEndpoint), poller.Config{
			Name:     profile.MetricsEndpoint,
			Interval: s.cfg.PollInterval,
			Timeout:  s.cfg.PollTimeout,
		}, func(snapshot metrics.Snapshot) {
			sc.publish(screen.EventMetrics, snapshot)
		}, s.deps.Telemetry)
	}

	s.mu.Lock()
	s.screens[sc.ID] = sc
	open := len(s.screens)
	s.mu.Unlock()
	s.deps.Telemetry.SetScreensOpen(open)

	if sc.poller != nil {
		sc.handle = sc.poller.Start(ctx)
	}
	if _, err := sc.Load(sc.event); err != nil {
		slog.Warn("Failed to issue initial page load", "screen_id", sc.ID, "error", err)
	}

	slog.Info("Screen opened", "screen_id", sc.ID, "kind", kind, "rows", rows, "owner_id", ownerID)
	return sc, nil
}

// Get returns an open screen of ownerID and marks it as in use. Screens of
// other users are reported as not found.
func (s *Service) Get(id, ownerID string) (*Screen, error) {
	s.mu.RLock()
	sc, ok := s.screens[id]
	s.mu.RUnlock()
	if !ok || sc.OwnerID != ownerID {
		return nil, screen.ErrScreenNotFound
	}
	sc.Touch()
	return sc, nil
}

// Close tears a screen down.
func (s *Service) Close(id string) error {
	s.mu.Lock()
	sc, ok := s.screens[id]
	delete(s.screens, id)
	open := len(s.screens)
	s.mu.Unlock()
	if !ok {
		return screen.ErrScreenNotFound
	}

	s.deps.Telemetry.SetScreensOpen(open)
	sc.close()
	if s.deps.Hub != nil {
		s.deps.Hub.Close(id)
	}
	slog.Info("Screen closed", "screen_id", id)
	return nil
}

// Sweep closes screens idle for longer than the configured TTL.
func (s *Service) Sweep(ctx context.Context) error {
	if s.cfg.IdleTTL <= 0 {
		return nil
	}
	cutoff := s.now().Add(-s.cfg.IdleTTL)

	s.mu.RLock()
	var idle []string
	for id, sc := range s.screens {
		if sc.LastSeen().Before(cutoff) && (s.deps.Hub == nil || s.deps.Hub.SubscriberCount(id) == 0) {
			idle = append(idle, id)
		}
	}
	s.mu.RUnlock()

	for _, id := range idle {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Close(id); err != nil && !errors.Is(err, screen.ErrScreenNotFound) {
			return err
		}
	}
	if len(idle) > 0 {
		slog.Info("Swept idle screens", "count", len(idle))
	}
	return nil
}

// Count returns the number of open screens.
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.screens)
}

// Shutdown closes every screen.
func (s *Service) Shutdown() {
	s.mu.RLock()
	ids := make([]string, 0, len(s.screens))
	for id := range s.screens {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	for _, id := range ids {
		_ = s.Close(id)
	}
}

func (s *Service) publisher(id string) Publisher {
	hub := s.deps.Hub
	if hub == nil {
		return func(string, any) {}
	}
	return func(event string, data any) {
		hub.Publish(id, sse.Event{Event: event, Data: data})
	}
}
