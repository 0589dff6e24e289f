package http

import (
	"net/http"

	"github.com/cmlabs-hris/hris-dashboard-go/internal/handler/http/response"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/service/lookup"
	"github.com/go-chi/chi/v5"
)

type LookupHandler interface {
	Names(w http.ResponseWriter, r *http.Request)
	Options(w http.ResponseWriter, r *http.Request)
}

type lookupHandlerImpl struct {
	lookupService lookup.LookupService
}

func NewLookupHandler(lookupService lookup.LookupService) LookupHandler {
	return &lookupHandlerImpl{lookupService: lookupService}
}

// Names implements LookupHandler.
func (h *lookupHandlerImpl) Names(w http.ResponseWriter, r *http.Request) {
	response.Success(w, lookup.Names())
}

// Options implements LookupHandler. ?refresh=true bypasses the cache.
func (h *lookupHandlerImpl) Options(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	load := h.lookupService.Options
	if getBoolQueryParam(r, "refresh", false) {
		load = h.lookupService.Refresh
	}

	options, err := load(r.Context(), name)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, options)
}

// getBoolQueryParam gets a bool query parameter with a default value
func getBoolQueryParam(r *http.Request, key string, defaultVal bool) bool {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}
	return val == "true" || val == "1"
}
