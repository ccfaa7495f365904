package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/qelal/qelal/internal/auth"
	"github.com/qelal/qelal/internal/service"
)

// StatsHandler handles HTTP requests for click analytics.
type StatsHandler struct {
	svc    *service.StatsService
	logger *slog.Logger
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(svc *service.StatsService, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{
		svc:    svc,
		logger: logger,
	}
}

// Get handles GET /api/v1/drops/{slug}/stats.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if slug == "" {
		writeError(w, http.StatusBadRequest, "MISSING_SLUG", "Slug is required")
		return
	}

	userID := auth.UserIDFromContext(r.Context())
	stats, err := h.svc.GetStats(r.Context(), userID, slug)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDropNotFound):
			writeError(w, http.StatusNotFound, "DROP_NOT_FOUND", "Drop not found")
		case errors.Is(err, service.ErrNotAuthorized):
			writeError(w, http.StatusForbidden, "FORBIDDEN", "Not authorized to view stats")
		default:
			h.logger.Error("internal_error", "error", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		}
		return
	}

	writeJSON(w, http.StatusOK, stats)
}
