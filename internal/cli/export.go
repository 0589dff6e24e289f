package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/cmlabs-hris/hris-dashboard-go/internal/domain/export"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/pkg/storage"
	exportsvc "github.com/cmlabs-hris/hris-dashboard-go/internal/service/export"
)

// Execute implements the go-flags Commander interface for ExportCommand.
func (c *ExportCommand) Execute(args []string) error {
	c.configureLogging()

	b, err := c.FilterFlags.builder()
	if err != nil {
		return err
	}

	dir, err := filepath.Abs(c.Out)
	if err != nil {
		return fmt.Errorf("resolve output directory: %w", err)
	}
	fs, err := storage.NewLocalStorage(dir, "file://"+filepath.ToSlash(dir))
	if err != nil {
		return err
	}

	client, err := c.client()
	if err != nil {
		return err
	}

	var notice export.Notification
	orchestrator := exportsvc.New(client, exportsvc.NewStorageDownloader(fs, exportsvc.FlatKey),
		export.NotifierFunc(func(_ context.Context, n export.Notification) { notice = n }),
		exportsvc.Config{Timeout: c.timeout()}, nil)

	ctx, stop := signalContext()
	defer stop()

	job, err := orchestrator.TriggerExport(ctx, export.Kind(c.Kind), b.Filter())
	if err != nil {
		if notice.Summary != "" {
			return fmt.Errorf("%s: %w", notice.Detail, err)
		}
		return err
	}

	if c.jsonOutput() {
		return c.printJSON(job)
	}
	fmt.Fprintf(c.out, "%s: %s\n", notice.Detail, filepath.Join(dir, job.FileName))
	return nil
}
