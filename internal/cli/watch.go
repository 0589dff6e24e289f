package cli

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/hris-dashboard-go/internal/domain/metrics"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/domain/screen"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/service/poller"
)

// Execute implements the go-flags Commander interface for WatchCommand.
func (c *WatchCommand) Execute(args []string) error {
	c.configureLogging()

	profile, ok := screen.ProfileFor(screen.Kind(c.Screen))
	if !ok {
		return fmt.Errorf("%w: %s", screen.ErrUnknownKind, c.Screen)
	}
	if profile.MetricsEndpoint == "" {
		return fmt.Errorf("%w: %s", metrics.ErrNoMetricsEndpoint, c.Screen)
	}

	client, err := c.client()
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()
	return c.watch(ctx, client.MetricsSource(profile.MetricsEndpoint), profile.MetricsEndpoint)
}

func (c *WatchCommand) watch(ctx context.Context, source metrics.Source, name string) error {
	snapshots := make(chan metrics.Snapshot, 1)
	p := poller.New(source, poller.Config{
		Name:     name,
		Interval: c.Interval,
		Timeout:  c.timeout(),
	}, func(snapshot metrics.Snapshot) {
		// The listener runs under the poller lock, drop the older pending
		// snapshot instead of blocking.
		select {
		case snapshots <- snapshot:
		default:
			select {
			case <-snapshots:
			default:
			}
			snapshots <- snapshot
		}
	}, nil)

	handle := p.Start(ctx)
	defer handle.Stop()

	delivered := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case snapshot := <-snapshots:
			if err := c.print(snapshot); err != nil {
				return err
			}
			delivered++
			if c.Count > 0 && delivered >= c.Count {
				return nil
			}
		}
	}
}

func (c *WatchCommand) print(snapshot metrics.Snapshot) error {
	if c.jsonOutput() {
		return c.printJSON(snapshot)
	}
	fmt.Fprintf(c.out, "%-12s %8s %8s %8s %8s %8s\n", "DATE", "PRESENT", "ABSENT", "LATE", "EARLY", "OVERTIME")
	for _, p := range snapshot.Points {
		fmt.Fprintf(c.out, "%-12s %8d %8d %8d %8d %8d\n", p.Date, p.Present, p.Absent, p.LateEntry, p.EarlyExit, p.Overtime)
	}
	fmt.Fprintln(c.out)
	return nil
}
