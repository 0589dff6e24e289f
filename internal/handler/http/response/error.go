package response

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/cmlabs-hris/hris-dashboard-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/domain/auth"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/domain/export"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/domain/metrics"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/domain/screen"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/pkg/storage"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/pkg/upstream"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/pkg/validator"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/service/lookup"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	// Upstream responded with a non-2xx status
	var apiErr *upstream.APIError
	if errors.As(err, &apiErr) {
		BadGateway(w, "Upstream request failed", map[string]string{
			"status":  strconv.Itoa(apiErr.StatusCode),
			"message": apiErr.Message,
		})
		return
	}

	switch {
	// Auth domain errors
	case errors.Is(err, auth.ErrTokenExpired):
		Unauthorized(w, "Token expired")
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, auth.ErrStreamTokenMismatch):
		Unauthorized(w, err.Error())

	// Screen domain errors
	case errors.Is(err, screen.ErrScreenNotFound):
		NotFound(w, "Screen not found")
	case errors.Is(err, screen.ErrUnknownKind):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, metrics.ErrNoMetricsEndpoint):
		NotFound(w, "Screen has no metrics")

	// Filter errors
	case errors.Is(err, attendance.ErrUnknownFilter),
		errors.Is(err, attendance.ErrUnknownCriterion),
		errors.Is(err, attendance.ErrUnknownStatus),
		errors.Is(err, attendance.ErrInvalidMonth):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, attendance.ErrFilterNotApplicable),
		errors.Is(err, attendance.ErrInvalidDateRange):
		writeJSON(w, http.StatusUnprocessableEntity, Response{
			Success: false,
			Error: &ErrorDetail{
				Code:    "FILTER_NOT_APPLICABLE",
				Message: err.Error(),
			},
		})

	// Export domain errors
	case errors.Is(err, export.ErrUnknownKind),
		errors.Is(err, export.ErrKindNotOffered):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, export.ErrDownloadMissing),
		errors.Is(err, storage.ErrNotFound):
		NotFound(w, "Download not found")
	case errors.Is(err, storage.ErrInvalidPath):
		BadRequest(w, "Invalid download path", nil)

	// Lookup errors
	case errors.Is(err, lookup.ErrUnknownLookup):
		NotFound(w, err.Error())

	// Upstream transport errors
	case errors.Is(err, context.DeadlineExceeded):
		GatewayTimeout(w, "Upstream request timed out")
	case errors.Is(err, attendance.ErrFetchFailed),
		errors.Is(err, export.ErrExportFailed):
		BadGateway(w, err.Error(), nil)

	// Default
	default:
		InternalServerError(w, "An unexpected error occurred")
	}
}
