// Package httphandler is the HTTP driving adapter: a small operational
// surface for liveness probes and container healthchecks.
package httphandler

import (
	"log/slog"
	"net/http"

	"github.com/ericfisherdev/blinkobot/internal/application"
)

// Handler serves the operational endpoints.
type Handler struct {
	svc    *application.RelayService
	logger *slog.Logger
}

// NewHandler creates a Handler over the relay service.
func NewHandler(svc *application.RelayService, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/health", h.Health)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// Health reports liveness along with how many users have a stored token and
// how many note correlations are tracked.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		h.logger.Error("failed to gather stats", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:          "ok",
		ConfiguredUsers: stats.ConfiguredUsers,
		TrackedNotes:    stats.TrackedNotes,
	})
}
