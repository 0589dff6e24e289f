package screen

import (
	"errors"
	"slices"

	"github.com/cmlabs-hris/hris-dashboard-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/domain/export"
)

var (
	ErrScreenNotFound = errors.New("screen session not found")
	ErrUnknownKind    = errors.New("unknown screen kind")
)

// Kind identifies a dashboard view.
type Kind string

const (
	KindMonthlyInOut Kind = "monthly_in_out"
	KindMandays      Kind = "mandays"
	KindLogs         Kind = "logs"
	KindDaily        Kind = "daily"
)

// Event names published to screen subscribers.
const (
	EventPage         = "page"
	EventMetrics      = "metrics"
	EventBusy         = "busy"
	EventNotification = "notification"
)

// Profile binds a screen kind to its list resource, metrics endpoint and the
// reports it offers.
type Profile struct {
	Kind            Kind
	Resource        attendance.Resource
	MetricsEndpoint string
	Exports         []export.Kind
}

var profiles = map[Kind]Profile{
	KindMonthlyInOut: {
		Kind: KindMonthlyInOut,
		Resource: attendance.Resource{
			Path:              "attendance/",
			DateParam:         "logdate",
			Search:            true,
			AttendanceFilters: true,
		},
		MetricsEndpoint: "attendance/metrics/monthly/",
		Exports:         []export.Kind{export.KindAttendance, export.KindEmployeeMonthly, export.KindAllEmployeeMonthly},
	},
	KindDaily: {
		Kind: KindDaily,
		Resource: attendance.Resource{
			Path:              "attendance/",
			DateParam:         "logdate",
			Search:            true,
			AttendanceFilters: true,
		},
		MetricsEndpoint: "attendance/metrics/daily/",
		Exports:         []export.Kind{export.KindAttendance},
	},
	KindMandays: {
		Kind: KindMandays,
		Resource: attendance.Resource{
			Path:      "attendance/mandays/",
			DateParam: "logdate",
		},
		Exports: []export.Kind{export.KindMandays, export.KindMandaysWorked},
	},
	KindLogs: {
		Kind: KindLogs,
		Resource: attendance.Resource{
			Path:             "logs/",
			Search:           true,
			DefaultSortField: "log_datetime",
		},
	},
}

// ProfileFor returns the profile of a screen kind.
func ProfileFor(kind Kind) (Profile, bool) {
	p, ok := profiles[kind]
	return p, ok
}

// Offers reports whether the screen can export the given kind.
func (p Profile) Offers(kind export.Kind) bool {
	return slices.Contains(p.Exports, kind)
}
