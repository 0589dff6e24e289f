package http

import (
	"context"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path"

	"github.com/cmlabs-hris/hris-dashboard-go/internal/domain/export"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/handler/http/response"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/pkg/storage"
	"github.com/go-chi/chi/v5"
)

type DownloadHandler interface {
	Download(w http.ResponseWriter, r *http.Request)
}

type downloadHandlerImpl struct {
	storage storage.FileStorage
	// keep leaves served files in place instead of deleting them
	keep bool
}

func NewDownloadHandler(fs storage.FileStorage, keep bool) DownloadHandler {
	return &downloadHandlerImpl{storage: fs, keep: keep}
}

// Download serves a generated report as an attachment. Served files are
// removed unless the handler was built to keep them; the artifact sweep
// catches whatever is never fetched.
func (h *downloadHandlerImpl) Download(w http.ResponseWriter, r *http.Request) {
	fileName := chi.URLParam(r, "file")
	key := path.Join(chi.URLParam(r, "job"), fileName)

	file, err := h.storage.Download(r.Context(), key)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	defer file.Close()

	w.Header().Set("Content-Type", export.ContentTypeXLSX)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": fileName}))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, file); err != nil {
		slog.Warn("Failed to stream download", "key", key, "error", err)
		return
	}

	if h.keep {
		return
	}
	if err := h.storage.Delete(context.WithoutCancel(r.Context()), key); err != nil {
		slog.Warn("Failed to delete served download", "key", key, "error", err)
	}
}
