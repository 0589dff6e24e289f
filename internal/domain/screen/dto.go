package screen

import (
	"github.com/cmlabs-hris/hris-dashboard-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/domain/export"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/domain/metrics"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/pkg/validator"
)

// ========================================
// REQUESTS
// ========================================

type OpenRequest struct {
	Kind Kind `json:"kind" validate:"required,oneof=monthly_in_out mandays logs daily"`
	Rows int  `json:"rows" validate:"gte=0,lte=100"`
}

func (r *OpenRequest) Validate() error {
	return validator.Struct(r)
}

type SearchRequest struct {
	Term string `json:"term" validate:"max=200"`
}

func (r *SearchRequest) Validate() error {
	return validator.Struct(r)
}

// DateRequest sets the single-date filter. An empty date clears it.
type DateRequest struct {
	Date string `json:"date" validate:"date"`
}

func (r *DateRequest) Validate() error {
	return validator.Struct(r)
}

// DateRangeRequest sets either or both ends of the range.
type DateRangeRequest struct {
	From string `json:"from" validate:"date"`
	To   string `json:"to" validate:"date"`
}

func (r *DateRangeRequest) Validate() error {
	return validator.Struct(r)
}

type MonthRequest struct {
	Year  int `json:"year" validate:"required,gte=2000,lte=9999"`
	Month int `json:"month" validate:"required,gte=1,lte=12"`
}

func (r *MonthRequest) Validate() error {
	return validator.Struct(r)
}

type StatusRequest struct {
	Status attendance.Status `json:"status" validate:"omitempty,oneof=P A"`
}

func (r *StatusRequest) Validate() error {
	return validator.Struct(r)
}

type CriterionRequest struct {
	Criterion attendance.Criterion `json:"criterion" validate:"required"`
}

func (r *CriterionRequest) Validate() error {
	return validator.Struct(r)
}

type CategoricalRequest struct {
	Values []string `json:"values" validate:"max=500,dive,max=200"`
}

func (r *CategoricalRequest) Validate() error {
	return validator.Struct(r)
}

type ExportRequest struct {
	Kind export.Kind `json:"kind" validate:"required"`
}

func (r *ExportRequest) Validate() error {
	return validator.Struct(r)
}

// ========================================
// RESPONSES
// ========================================

type FilterResponse struct {
	Search      string                        `json:"search"`
	Date        string                        `json:"date,omitempty"`
	From        string                        `json:"from,omitempty"`
	To          string                        `json:"to,omitempty"`
	Year        int                           `json:"year,omitempty"`
	Month       int                           `json:"month,omitempty"`
	Status      attendance.Status             `json:"status"`
	Criterion   attendance.Criterion          `json:"criterion,omitempty"`
	Flags       map[attendance.Criterion]bool `json:"flags"`
	Categorical map[string][]string           `json:"categorical"`
}

func NewFilterResponse(f attendance.FilterState) FilterResponse {
	categorical := f.Clone().Categorical
	return FilterResponse{
		Search:      f.Search,
		Date:        attendance.FormatDate(f.Date),
		From:        attendance.FormatDate(f.From),
		To:          attendance.FormatDate(f.To),
		Year:        f.Year,
		Month:       int(f.Month),
		Status:      f.Status,
		Criterion:   f.Criterion,
		Flags:       f.Flags(),
		Categorical: categorical,
	}
}

// IssuedResponse reports whether a filter change or load sent a request.
type IssuedResponse struct {
	Issued bool `json:"issued"`
}

// MetricsResponse is not ready until the first poll has been delivered.
type MetricsResponse struct {
	Ready    bool              `json:"ready"`
	Snapshot *metrics.Snapshot `json:"snapshot,omitempty"`
}

type StreamTokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}
