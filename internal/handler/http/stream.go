package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cmlabs-hris/hris-dashboard-go/internal/domain/screen"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/handler/http/response"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/pkg/sse"
	screensvc "github.com/cmlabs-hris/hris-dashboard-go/internal/service/screen"
	"github.com/go-chi/chi/v5"
)

const defaultKeepalive = 30 * time.Second

type StreamHandler interface {
	Stream(w http.ResponseWriter, r *http.Request)
}

type streamHandlerImpl struct {
	screens    *screensvc.Service
	hub        *sse.Hub
	jwtService jwt.Service
	keepalive  time.Duration
}

func NewStreamHandler(screens *screensvc.Service, hub *sse.Hub, jwtService jwt.Service) StreamHandler {
	return &streamHandlerImpl{
		screens:    screens,
		hub:        hub,
		jwtService: jwtService,
		keepalive:  defaultKeepalive,
	}
}

// Stream handles the SSE connection of one screen
func (h *streamHandlerImpl) Stream(w http.ResponseWriter, r *http.Request) {
	screenID := chi.URLParam(r, "id")

	// Get token from query parameter (SSE doesn't support custom headers)
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		response.Unauthorized(w, "Missing token")
		return
	}

	userID, err := h.jwtService.ValidateStreamToken(tokenStr, screenID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	sc, err := h.screens.Get(screenID, userID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	// Check if streaming is supported
	flusher, ok := w.(http.Flusher)
	if !ok {
		response.InternalServerError(w, "Streaming not supported")
		return
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	events, cleanup := h.hub.Subscribe(screenID)
	defer cleanup()

	slog.Debug("Screen stream connected", "screen_id", screenID, "user_id", userID)

	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\",\"screen_id\":%q}\n\n", screenID)
	writeEvent(w, screen.EventPage, sc.Page().Response())
	if snapshot, ready, err := sc.Metrics(); err == nil && ready {
		writeEvent(w, screen.EventMetrics, snapshot)
	}
	flusher.Flush()

	keepalive := time.NewTicker(h.keepalive)
	defer keepalive.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				// Screen closed
				fmt.Fprint(w, "event: closed\ndata: {}\n\n")
				flusher.Flush()
				return
			}
			writeEvent(w, event.Event, event.Data)
			flusher.Flush()

		case <-keepalive.C:
			sc.Touch()
			fmt.Fprintf(w, "event: ping\ndata: {\"timestamp\":%d}\n\n", time.Now().Unix())
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, name string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Warn("Failed to encode stream event", "event", name, "error", err)
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
}
