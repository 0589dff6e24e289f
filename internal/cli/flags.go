package cli

import (
	"io"
	"time"
)

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	BaseURL string        `long:"base-url" env:"UPSTREAM_BASE_URL" description:"Attendance API base URL"`
	Token   string        `long:"token" env:"UPSTREAM_TOKEN" description:"Bearer token for the attendance API"`
	Timeout time.Duration `long:"timeout" description:"Timeout of a single upstream request" default:"10s"`
	JSON    bool          `long:"json" description:"Output in JSON format"`
	Verbose bool          `long:"verbose" description:"Enable verbose output"`
	Version bool          `long:"version" description:"Show version and exit"`
}

type baseCommand struct {
	globals *GlobalFlags
	version string
	out     io.Writer
}

// FilterFlags are the filter selections shared by list and export.
type FilterFlags struct {
	Search    string   `long:"search" description:"Free-text search"`
	Date      string   `long:"date" description:"Single date (YYYY-MM-DD)"`
	From      string   `long:"from" description:"Date range start (YYYY-MM-DD)"`
	To        string   `long:"to" description:"Date range end (YYYY-MM-DD)"`
	Month     string   `long:"month" description:"Report month (YYYY-MM)"`
	Status    string   `long:"status" description:"Shift status" choice:"P" choice:"A"`
	Criterion string   `long:"criterion" description:"Attendance criterion (lateEntry, earlyExit, overtime, missedPunch, insufficientDutyHours)"`
	Filter    []string `long:"filter" description:"Categorical filter as name=v1,v2 (repeatable)"`
}

// ListCommand fetches one page of a screen's list resource.
type ListCommand struct {
	Screen string `long:"screen" description:"Screen kind" choice:"monthly_in_out" choice:"daily" choice:"mandays" choice:"logs" default:"monthly_in_out"`
	Page   int    `long:"page" description:"One-based page number" default:"1"`
	Rows   int    `long:"rows" description:"Page size" default:"10"`
	Sort   string `long:"sort" description:"Sort field"`
	Desc   bool   `long:"desc" description:"Sort descending"`

	FilterFlags `group:"Filter Options"`

	baseCommand `no-flag:"true"`
}

// WatchCommand polls a screen's metrics endpoint.
type WatchCommand struct {
	Screen   string        `long:"screen" description:"Screen kind" choice:"monthly_in_out" choice:"daily" default:"monthly_in_out"`
	Interval time.Duration `long:"interval" description:"Poll interval" default:"10s"`
	Count    int           `long:"count" description:"Stop after N delivered snapshots (0 runs until interrupted)" default:"0"`

	baseCommand `no-flag:"true"`
}

// ExportCommand exports a report to a directory.
type ExportCommand struct {
	Kind string `long:"kind" description:"Report kind" choice:"attendance" choice:"employee_monthly" choice:"all_employee_monthly" choice:"mandays" choice:"mandays_worked" required:"true"`
	Out  string `long:"out" description:"Output directory" default:"."`

	FilterFlags `group:"Filter Options"`

	baseCommand `no-flag:"true"`
}
