package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-dashboard-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/domain/export"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/observability"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/service/query"
	"github.com/google/uuid"
)

// DefaultTimeout bounds a single report request.
const DefaultTimeout = 60 * time.Second

const (
	successSummary = "Report Downloaded"
	successDetail  = "Report is ready to download"
	errorSummary   = "Error"
	errorDetail    = "Error downloading the report"
)

type Config struct {
	Timeout time.Duration
}

// BusyListener is told every time the busy indicator flips.
type BusyListener func(busy bool)

// Orchestrator turns filter snapshots into downloadable report files. Each
// trigger runs as an independent job; the busy indicator is on while at least
// one job is in flight.
type Orchestrator struct {
	source     export.BlobSource
	downloader export.Downloader
	notifier   export.Notifier
	timeout    time.Duration
	metrics    *observability.Metrics
	now        func() time.Time

	mu       sync.Mutex
	inFlight int
	onBusy   BusyListener
}

func New(source export.BlobSource, downloader export.Downloader, notifier export.Notifier, cfg Config, metrics *observability.Metrics) *Orchestrator {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if notifier == nil {
		notifier = export.NotifierFunc(func(context.Context, export.Notification) {})
	}
	return &Orchestrator{
		source:     source,
		downloader: downloader,
		notifier:   notifier,
		timeout:    timeout,
		metrics:    metrics,
		now:        time.Now,
	}
}

// OnBusyChange registers the busy indicator listener.
func (o *Orchestrator) OnBusyChange(fn BusyListener) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onBusy = fn
}

// Prepare validates the export against the filter snapshot and returns a
// fresh job. Nothing is sent upstream when the filter does not apply.
func (o *Orchestrator) Prepare(kind export.Kind, filter attendance.FilterState) (export.Job, error) {
	if _, err := query.ExportParams(kind, filter); err != nil {
		return export.Job{}, err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return export.Job{}, fmt.Errorf("failed to generate job id: %w", err)
	}
	return export.Job{
		ID:        id.String(),
		Kind:      kind,
		Filter:    filter.Clone(),
		State:     export.StateInFlight,
		CreatedAt: o.now(),
	}, nil
}

// Run executes a prepared job to completion. The returned job is either
// Succeeded with a download URL or Failed; a matching notification is always
// emitted.
func (o *Orchestrator) Run(ctx context.Context, job export.Job) (export.Job, error) {
	o.acquire()
	defer o.release()

	job.State = export.StateInFlight
	err := o.run(ctx, &job)
	if err != nil {
		slog.Error("Failed to export report", "job_id", job.ID, "kind", job.Kind, "error", err)
		o.metrics.ObserveExport(string(job.Kind), observability.OutcomeFailure)
		job.State = export.StateFailed
		job.Err = err.Error()
		o.notifier.Notify(context.WithoutCancel(ctx), export.Notification{
			Severity: export.SeverityError,
			Summary:  errorSummary,
			Detail:   errorDetail,
			Job:      job,
		})
		return job, fmt.Errorf("%w: %w", export.ErrExportFailed, err)
	}

	slog.Info("Report exported", "job_id", job.ID, "kind", job.Kind, "file", job.FileName)
	o.metrics.ObserveExport(string(job.Kind), observability.OutcomeSuccess)
	job.State = export.StateSucceeded
	o.notifier.Notify(ctx, export.Notification{
		Severity: export.SeveritySuccess,
		Summary:  successSummary,
		Detail:   successDetail,
		Job:      job,
	})
	return job, nil
}

// TriggerExport prepares and runs one export.
func (o *Orchestrator) TriggerExport(ctx context.Context, kind export.Kind, filter attendance.FilterState) (export.Job, error) {
	job, err := o.Prepare(kind, filter)
	if err != nil {
		return export.Job{}, err
	}
	return o.Run(ctx, job)
}

// Busy reports whether any export is in flight.
func (o *Orchestrator) Busy() bool {
	return o.InFlight() > 0
}

func (o *Orchestrator) InFlight() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.inFlight
}

func (o *Orchestrator) run(ctx context.Context, job *export.Job) error {
	info, ok := job.Kind.Info()
	if !ok {
		return fmt.Errorf("%w: %s", export.ErrUnknownKind, job.Kind)
	}
	params, err := query.ExportParams(job.Kind, job.Filter)
	if err != nil {
		return err
	}

	rctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	blob, err := o.source.Download(rctx, info.Endpoint, params)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("report request timed out after %s: %w", o.timeout, err)
		}
		return err
	}
	if len(blob.Body) == 0 {
		return export.ErrEmptyPayload
	}

	file := export.File{
		Name:        job.Kind.FileName(o.now()),
		ContentType: export.ContentTypeXLSX,
		Body:        blob.Body,
	}
	url, err := o.downloader.Deliver(rctx, *job, file)
	if err != nil {
		return fmt.Errorf("failed to deliver report: %w", err)
	}
	job.FileName = file.Name
	job.URL = url
	return nil
}

func (o *Orchestrator) acquire() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.inFlight++
	o.metrics.ExportStarted()
	if o.inFlight == 1 && o.onBusy != nil {
		o.onBusy(true)
	}
}

func (o *Orchestrator) release() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.inFlight--
	o.metrics.ExportFinished()
	if o.inFlight == 0 && o.onBusy != nil {
		o.onBusy(false)
	}
}
