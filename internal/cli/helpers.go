package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cmlabs-hris/hris-dashboard-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/pkg/upstream"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/pkg/validator"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/service/query"
)

var errBaseURLRequired = errors.New("--base-url or UPSTREAM_BASE_URL is required")

func (c *baseCommand) client() (*upstream.Client, error) {
	if c.globals == nil || c.globals.BaseURL == "" {
		return nil, errBaseURLRequired
	}
	return upstream.New(upstream.Options{
		BaseURL: c.globals.BaseURL,
		Token:   c.globals.Token,
	})
}

func (c *baseCommand) timeout() time.Duration {
	if c.globals == nil {
		return 0
	}
	return c.globals.Timeout
}

func (c *baseCommand) jsonOutput() bool {
	return c.globals != nil && c.globals.JSON
}

// configureLogging keeps library logs quiet unless --verbose is set.
func (c *baseCommand) configureLogging() {
	level := slog.LevelWarn
	if c.globals != nil && c.globals.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func (c *baseCommand) printJSON(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// builder turns the filter flags into a query builder.
func (f FilterFlags) builder() (*query.Builder, error) {
	b := query.NewBuilder()
	b.SetSearch(f.Search)

	date, err := validator.ParseOptionalDate(f.Date)
	if err != nil {
		return nil, fmt.Errorf("--date: %w", err)
	}
	b.SetDate(date)

	from, err := validator.ParseOptionalDate(f.From)
	if err != nil {
		return nil, fmt.Errorf("--from: %w", err)
	}
	to, err := validator.ParseOptionalDate(f.To)
	if err != nil {
		return nil, fmt.Errorf("--to: %w", err)
	}
	b.SetDateRange(from, to)

	if f.Month != "" {
		month, err := time.Parse("2006-01", f.Month)
		if err != nil {
			return nil, fmt.Errorf("--month: invalid month %q", f.Month)
		}
		if err := b.SetMonth(month.Year(), month.Month()); err != nil {
			return nil, err
		}
	}

	if f.Status != "" {
		if err := b.SetStatus(attendance.Status(f.Status)); err != nil {
			return nil, err
		}
	}
	if f.Criterion != "" {
		if err := b.ActivateCriterion(attendance.Criterion(f.Criterion)); err != nil {
			return nil, err
		}
	}

	for _, raw := range f.Filter {
		name, values, ok := strings.Cut(raw, "=")
		if !ok {
			return nil, fmt.Errorf("--filter %q: expected name=v1,v2", raw)
		}
		if err := b.SetCategoricalFilter(strings.TrimSpace(name), strings.Split(values, ",")); err != nil {
			return nil, err
		}
	}
	return b, nil
}
