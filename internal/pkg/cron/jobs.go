package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hris-dashboard-go/internal/pkg/storage"
)

// ScreenSweeper closes idle screen sessions.
type ScreenSweeper interface {
	Sweep(ctx context.Context) error
}

// DashboardJobs holds the housekeeping of the dashboard service.
type DashboardJobs struct {
	screens     ScreenSweeper
	storage     storage.FileStorage
	artifactTTL time.Duration
	now         func() time.Time
}

func NewDashboardJobs(screens ScreenSweeper, fs storage.FileStorage, artifactTTL time.Duration) *DashboardJobs {
	return &DashboardJobs{
		screens:     screens,
		storage:     fs,
		artifactTTL: artifactTTL,
		now:         time.Now,
	}
}

// Register adds every dashboard job to the scheduler.
func (j *DashboardJobs) Register(s *Scheduler, screenEvery, artifactEvery time.Duration) {
	if j.screens != nil {
		s.AddJob("sweep_idle_screens", screenEvery, j.SweepScreens)
	}
	if j.storage != nil && j.artifactTTL > 0 {
		s.AddJob("sweep_report_artifacts", artifactEvery, j.SweepArtifacts)
	}
}

// SweepScreens closes screens nobody has touched within their idle TTL.
func (j *DashboardJobs) SweepScreens(ctx context.Context) error {
	if err := j.screens.Sweep(ctx); err != nil {
		return fmt.Errorf("failed to sweep screens: %w", err)
	}
	return nil
}

// SweepArtifacts removes report files older than the artifact TTL.
func (j *DashboardJobs) SweepArtifacts(ctx context.Context) error {
	removed, err := j.storage.Sweep(ctx, j.now().Add(-j.artifactTTL))
	if err != nil {
		return fmt.Errorf("failed to sweep report artifacts: %w", err)
	}
	if removed > 0 {
		slog.Info("Removed expired report artifacts", "count", removed)
	}
	return nil
}
