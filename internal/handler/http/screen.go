package http

import (
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/cmlabs-hris/hris-dashboard-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/domain/export"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/domain/screen"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/handler/http/response"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/pkg/validator"
	screensvc "github.com/cmlabs-hris/hris-dashboard-go/internal/service/screen"
	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/blake2b"
)

type ScreenHandler interface {
	Open(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	Close(w http.ResponseWriter, r *http.Request)
	Page(w http.ResponseWriter, r *http.Request)
	Load(w http.ResponseWriter, r *http.Request)
	Clear(w http.ResponseWriter, r *http.Request)
	Filters(w http.ResponseWriter, r *http.Request)
	SetSearch(w http.ResponseWriter, r *http.Request)
	SetDate(w http.ResponseWriter, r *http.Request)
	SetDateRange(w http.ResponseWriter, r *http.Request)
	SetMonth(w http.ResponseWriter, r *http.Request)
	SetStatus(w http.ResponseWriter, r *http.Request)
	SetCriterion(w http.ResponseWriter, r *http.Request)
	SetCategorical(w http.ResponseWriter, r *http.Request)
	Metrics(w http.ResponseWriter, r *http.Request)
	Export(w http.ResponseWriter, r *http.Request)
	GetExport(w http.ResponseWriter, r *http.Request)
	StreamToken(w http.ResponseWriter, r *http.Request)
}

type screenHandlerImpl struct {
	screens    *screensvc.Service
	jwtService jwt.Service
}

func NewScreenHandler(screens *screensvc.Service, jwtService jwt.Service) ScreenHandler {
	return &screenHandlerImpl{
		screens:    screens,
		jwtService: jwtService,
	}
}

// Open implements ScreenHandler.
func (h *screenHandlerImpl) Open(w http.ResponseWriter, r *http.Request) {
	var req screen.OpenRequest
	if !decode(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	sc, err := h.screens.Open(req.Kind, req.Rows, middleware.UserIDFromContext(r.Context()))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Screen opened", sc.Info())
}

// Get implements ScreenHandler.
func (h *screenHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.screen(w, r)
	if !ok {
		return
	}
	response.Success(w, sc.Info())
}

// Close implements ScreenHandler.
func (h *screenHandlerImpl) Close(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.screen(w, r)
	if !ok {
		return
	}
	if err := h.screens.Close(sc.ID); err != nil {
		response.HandleError(w, err)
		return
	}
	response.SuccessWithMessage(w, "Screen closed", nil)
}

// Page implements ScreenHandler. The ETag is a digest of the rendered page so
// pollers can revalidate cheaply.
func (h *screenHandlerImpl) Page(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.screen(w, r)
	if !ok {
		return
	}
	state := sc.Page()
	page := state.Response()

	raw, err := json.Marshal(page)
	if err != nil {
		response.InternalServerError(w, "Failed to encode page")
		return
	}
	sum := blake2b.Sum256(raw)
	etag := `"` + hex.EncodeToString(sum[:16]) + `"`
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	totalPages := 0
	if page.PageSize > 0 {
		totalPages = (page.TotalCount + page.PageSize - 1) / page.PageSize
	}
	response.SuccessWithMeta(w, page, &response.Meta{
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalCount: page.TotalCount,
		TotalPages: totalPages,
		Generation: page.Generation,
	})
}

// Load implements ScreenHandler.
func (h *screenHandlerImpl) Load(w http.ResponseWriter, r *http.Request) {
	var event attendance.PageEvent
	if !decode(w, r, &event) {
		return
	}
	if event.First < 0 || event.Rows < 0 || event.Rows > screensvc.MaxRows {
		response.HandleError(w, validator.ValidationErrors{{Field: "rows", Message: "must be between 0 and 100 with a non-negative first"}})
		return
	}
	if event.SortOrder != 0 && event.SortOrder != attendance.SortAscending && event.SortOrder != attendance.SortDescending {
		response.HandleError(w, validator.ValidationErrors{{Field: "sortOrder", Message: "must be 1 or -1"}})
		return
	}

	h.issue(w, r, func(sc *screensvc.Screen) (bool, error) {
		return sc.Load(event)
	})
}

// Clear implements ScreenHandler.
func (h *screenHandlerImpl) Clear(w http.ResponseWriter, r *http.Request) {
	h.issue(w, r, func(sc *screensvc.Screen) (bool, error) {
		return sc.Clear()
	})
}

// Filters implements ScreenHandler.
func (h *screenHandlerImpl) Filters(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.screen(w, r)
	if !ok {
		return
	}
	response.Success(w, screen.NewFilterResponse(sc.Filter()))
}

// SetSearch implements ScreenHandler.
func (h *screenHandlerImpl) SetSearch(w http.ResponseWriter, r *http.Request) {
	var req screen.SearchRequest
	if !decodeValid(w, r, &req) {
		return
	}
	h.issue(w, r, func(sc *screensvc.Screen) (bool, error) {
		return sc.SetSearch(req.Term)
	})
}

// SetDate implements ScreenHandler.
func (h *screenHandlerImpl) SetDate(w http.ResponseWriter, r *http.Request) {
	var req screen.DateRequest
	if !decodeValid(w, r, &req) {
		return
	}
	date, err := validator.ParseOptionalDate(req.Date)
	if err != nil {
		response.HandleError(w, validator.ValidationErrors{{Field: "date", Message: err.Error()}})
		return
	}
	h.issue(w, r, func(sc *screensvc.Screen) (bool, error) {
		return sc.SetDate(date)
	})
}

// SetDateRange implements ScreenHandler.
func (h *screenHandlerImpl) SetDateRange(w http.ResponseWriter, r *http.Request) {
	var req screen.DateRangeRequest
	if !decodeValid(w, r, &req) {
		return
	}
	from, err := validator.ParseOptionalDate(req.From)
	if err != nil {
		response.HandleError(w, validator.ValidationErrors{{Field: "from", Message: err.Error()}})
		return
	}
	to, err := validator.ParseOptionalDate(req.To)
	if err != nil {
		response.HandleError(w, validator.ValidationErrors{{Field: "to", Message: err.Error()}})
		return
	}
	h.issue(w, r, func(sc *screensvc.Screen) (bool, error) {
		return sc.SetDateRange(from, to)
	})
}

// SetMonth implements ScreenHandler. The month only feeds report exports.
func (h *screenHandlerImpl) SetMonth(w http.ResponseWriter, r *http.Request) {
	var req screen.MonthRequest
	if !decodeValid(w, r, &req) {
		return
	}
	sc, ok := h.screen(w, r)
	if !ok {
		return
	}
	if err := sc.SetMonth(req.Year, time.Month(req.Month)); err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, screen.NewFilterResponse(sc.Filter()))
}

// SetStatus implements ScreenHandler.
func (h *screenHandlerImpl) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req screen.StatusRequest
	if !decodeValid(w, r, &req) {
		return
	}
	h.issue(w, r, func(sc *screensvc.Screen) (bool, error) {
		return sc.SetStatus(req.Status)
	})
}

// SetCriterion implements ScreenHandler.
func (h *screenHandlerImpl) SetCriterion(w http.ResponseWriter, r *http.Request) {
	var req screen.CriterionRequest
	if !decodeValid(w, r, &req) {
		return
	}
	h.issue(w, r, func(sc *screensvc.Screen) (bool, error) {
		return sc.ActivateCriterion(req.Criterion)
	})
}

// SetCategorical implements ScreenHandler.
func (h *screenHandlerImpl) SetCategorical(w http.ResponseWriter, r *http.Request) {
	var req screen.CategoricalRequest
	if !decodeValid(w, r, &req) {
		return
	}
	name := chi.URLParam(r, "name")
	h.issue(w, r, func(sc *screensvc.Screen) (bool, error) {
		return sc.SetCategoricalFilter(name, req.Values)
	})
}

// Metrics implements ScreenHandler.
func (h *screenHandlerImpl) Metrics(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.screen(w, r)
	if !ok {
		return
	}
	snapshot, ready, err := sc.Metrics()
	if err != nil {
		response.HandleError(w, err)
		return
	}
	res := screen.MetricsResponse{Ready: ready}
	if ready {
		res.Snapshot = &snapshot
	}
	response.Success(w, res)
}

// Export implements ScreenHandler.
func (h *screenHandlerImpl) Export(w http.ResponseWriter, r *http.Request) {
	var req screen.ExportRequest
	if !decodeValid(w, r, &req) {
		return
	}
	sc, ok := h.screen(w, r)
	if !ok {
		return
	}

	job, err := sc.Export(req.Kind)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	slog.Info("Export requested", "screen_id", sc.ID, "job_id", job.ID, "kind", job.Kind, "user_id", middleware.UserIDFromContext(r.Context()))
	response.Accepted(w, "Export started", job)
}

// GetExport implements ScreenHandler.
func (h *screenHandlerImpl) GetExport(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.screen(w, r)
	if !ok {
		return
	}
	job, found := sc.Job(chi.URLParam(r, "job"))
	if !found {
		response.HandleError(w, export.ErrDownloadMissing)
		return
	}
	response.Success(w, job)
}

// StreamToken implements ScreenHandler.
func (h *screenHandlerImpl) StreamToken(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.screen(w, r)
	if !ok {
		return
	}
	token, expiresIn, err := h.jwtService.GenerateStreamToken(middleware.UserIDFromContext(r.Context()), sc.ID)
	if err != nil {
		slog.Error("Failed to generate stream token", "screen_id", sc.ID, "error", err)
		response.InternalServerError(w, "Failed to generate stream token")
		return
	}
	response.Success(w, screen.StreamTokenResponse{Token: token, ExpiresIn: expiresIn})
}

func (h *screenHandlerImpl) screen(w http.ResponseWriter, r *http.Request) (*screensvc.Screen, bool) {
	sc, err := h.screens.Get(chi.URLParam(r, "id"), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		response.HandleError(w, err)
		return nil, false
	}
	return sc, true
}

// issue runs a fetch-issuing screen operation and answers 202.
func (h *screenHandlerImpl) issue(w http.ResponseWriter, r *http.Request, fn func(sc *screensvc.Screen) (bool, error)) {
	sc, ok := h.screen(w, r)
	if !ok {
		return
	}
	issued, err := fn(sc)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	if !issued {
		response.SuccessWithMessage(w, "Filter incomplete, nothing loaded", screen.IssuedResponse{Issued: false})
		return
	}
	response.Accepted(w, "Loading", screen.IssuedResponse{Issued: true})
}

type validatable interface {
	Validate() error
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		slog.Debug("Failed to decode request body", "error", err)
		response.BadRequest(w, "Invalid request body", nil)
		return false
	}
	return true
}

func decodeValid(w http.ResponseWriter, r *http.Request, v validatable) bool {
	if !decode(w, r, v) {
		return false
	}
	if err := v.Validate(); err != nil {
		response.HandleError(w, err)
		return false
	}
	return true
}
