package export

import (
	"time"

	"github.com/cmlabs-hris/hris-dashboard-go/internal/domain/attendance"
)

// ContentTypeXLSX is the declared content type of every report.
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Kind is one of the closed set of report kinds.
type Kind string

const (
	KindAttendance         Kind = "attendance"
	KindEmployeeMonthly    Kind = "employee_monthly"
	KindAllEmployeeMonthly Kind = "all_employee_monthly"
	KindMandays            Kind = "mandays"
	KindMandaysWorked      Kind = "mandays_worked"
)

// KindInfo binds a report kind to its endpoint and file name prefix.
type KindInfo struct {
	Endpoint string
	Prefix   string
}

var kinds = map[Kind]KindInfo{
	KindAttendance:         {Endpoint: "attendance/export/", Prefix: "Attendance_Report"},
	KindEmployeeMonthly:    {Endpoint: "attendance/employee/", Prefix: "Employee_Monthly_Report"},
	KindAllEmployeeMonthly: {Endpoint: "attendance/export/allemployees/", Prefix: "All_Employee_Monthly_Report"},
	KindMandays:            {Endpoint: "attendance/mandays/report/", Prefix: "Mandays_Report"},
	KindMandaysWorked:      {Endpoint: "attendance/mandays/work_report/", Prefix: "Mandays_Worked_Report"},
}

func (k Kind) Info() (KindInfo, bool) {
	info, ok := kinds[k]
	return info, ok
}

func (k Kind) Valid() bool {
	_, ok := kinds[k]
	return ok
}

// FileName returns <Prefix>_<YYYY-MM-DD>.xlsx for the given day.
func (k Kind) FileName(now time.Time) string {
	return kinds[k].Prefix + "_" + now.Format(attendance.DateLayout) + ".xlsx"
}

// State is the lifecycle of an export job.
type State string

const (
	StateIdle      State = "idle"
	StateInFlight  State = "in_flight"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// Job is an ephemeral export request. Every trigger creates a fresh Job;
// jobs are never persisted.
type Job struct {
	ID        string                 `json:"id"`
	Kind      Kind                   `json:"kind"`
	Filter    attendance.FilterState `json:"-"`
	State     State                  `json:"state"`
	FileName  string                 `json:"file_name,omitempty"`
	URL       string                 `json:"url,omitempty"`
	Err       string                 `json:"error,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// File is a materialized report ready to hand to the download mechanism.
type File struct {
	Name        string
	ContentType string
	Body        []byte
}

// Severity of a user-facing notification.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
	SeverityWarn    Severity = "warn"
)

// Notification is a non-modal, dismissible message for the user. Job is the
// final state of the export it reports on.
type Notification struct {
	Severity Severity `json:"severity"`
	Summary  string   `json:"summary"`
	Detail   string   `json:"detail"`
	Job      Job      `json:"job"`
}
