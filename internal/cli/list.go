package cli

import (
	"fmt"

	"github.com/cmlabs-hris/hris-dashboard-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/domain/screen"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/service/fetcher"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/service/query"
)

// Execute implements the go-flags Commander interface for ListCommand.
func (c *ListCommand) Execute(args []string) error {
	c.configureLogging()

	profile, ok := screen.ProfileFor(screen.Kind(c.Screen))
	if !ok {
		return fmt.Errorf("%w: %s", screen.ErrUnknownKind, c.Screen)
	}
	if c.Page < 1 {
		return fmt.Errorf("--page must be at least 1")
	}
	if c.Rows < 1 {
		return fmt.Errorf("--rows must be at least 1")
	}

	b, err := c.FilterFlags.builder()
	if err != nil {
		return err
	}

	event := attendance.PageEvent{
		First:     (c.Page - 1) * c.Rows,
		Rows:      c.Rows,
		SortField: c.Sort,
		SortOrder: attendance.SortAscending,
	}
	if c.Desc {
		event.SortOrder = attendance.SortDescending
	}
	req, err := query.BuildRequest(profile.Resource, event, b.Filter())
	if err != nil {
		return err
	}

	client, err := c.client()
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	f := fetcher.New(client, fetcher.Config{Timeout: c.timeout()}, nil, nil)
	defer f.Close()

	state, err := f.Fetch(ctx, req)
	if err != nil {
		return err
	}

	page := state.Response()
	if c.jsonOutput() {
		return c.printJSON(page)
	}

	pages := 0
	if page.PageSize > 0 {
		pages = (page.TotalCount + page.PageSize - 1) / page.PageSize
	}
	fmt.Fprintf(c.out, "%s page %d of %d (%d rows total)\n", profile.Resource.Path, page.Page, pages, page.TotalCount)
	for _, row := range page.Rows {
		fmt.Fprintln(c.out, string(row))
	}
	return nil
}
