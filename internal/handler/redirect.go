package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/qelal/qelal/internal/handler/dto"
	"github.com/qelal/qelal/internal/redirect"
	"github.com/qelal/qelal/internal/service"
)

// RedirectHandler serves the redirect hot path and the unlock endpoint.
type RedirectHandler struct {
	svc         *service.DropService
	frontendURL string
	logger      *slog.Logger
}

// NewRedirectHandler creates a new RedirectHandler. frontendURL is the
// origin of the web app hosting the unlock, expired and bundle pages.
func NewRedirectHandler(svc *service.DropService, frontendURL string, logger *slog.Logger) *RedirectHandler {
	return &RedirectHandler{
		svc:         svc,
		frontendURL: frontendURL,
		logger:      logger,
	}
}

// Redirect handles GET /{slug}.
func (h *RedirectHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if slug == "" {
		http.NotFound(w, r)
		return
	}

	start := time.Now()

	result, err := h.svc.Resolve(r.Context(), slug, r.Header.Get("User-Agent"), r.Header.Get("Referer"))
	duration := time.Since(start)

	if err != nil {
		h.logger.Error("redirect_error",
			"slug", slug,
			"error", err,
			"duration_ms", float64(duration.Microseconds())/1000,
		)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	decision := result.Decision

	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "private, max-age=0")
	if decision.NoReferrer {
		w.Header().Set("Referrer-Policy", "no-referrer")
	} else {
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	}

	h.logger.Info("redirect_resolved",
		"slug", slug,
		"outcome", string(decision.Outcome),
		"duration_ms", float64(duration.Microseconds())/1000,
	)

	switch decision.Outcome {
	case redirect.OutcomeNotFound:
		http.NotFound(w, r)

	case redirect.OutcomeExpired:
		http.Redirect(w, r, redirect.ExpiredURL(h.frontendURL), http.StatusFound)

	case redirect.OutcomeCloak:
		h.renderHTML(w, http.StatusOK, func() error {
			return redirect.RenderCloakPage(w, redirect.PreviewData(result.Drop, h.pageURL(r), ""))
		})

	case redirect.OutcomeUnlock:
		http.Redirect(w, r, redirect.UnlockURL(result.Drop, h.frontendURL), http.StatusFound)

	case redirect.OutcomeMetaPreview:
		target := redirect.Target(result.Drop, h.frontendURL)
		h.renderHTML(w, http.StatusOK, func() error {
			return redirect.RenderMetaPreview(w, redirect.PreviewData(result.Drop, h.pageURL(r), target))
		})

	default:
		http.Redirect(w, r, redirect.Target(result.Drop, h.frontendURL), http.StatusFound)
	}
}

// Unlock handles POST /unlock/{slug}.
func (h *RedirectHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if slug == "" {
		writeError(w, http.StatusNotFound, "DROP_NOT_FOUND", "Drop not found")
		return
	}

	var req dto.UnlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	drop, err := h.svc.Unlock(r.Context(), slug, req.Password, r.Header.Get("User-Agent"), r.Header.Get("Referer"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDropNotFound):
			writeError(w, http.StatusNotFound, "DROP_NOT_FOUND", "Drop not found")
		case errors.Is(err, service.ErrIncorrectPassword):
			writeError(w, http.StatusUnauthorized, "INCORRECT_PASSWORD", "Incorrect password")
		default:
			h.logger.Error("unlock_error", "slug", slug, "error", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		}
		return
	}

	h.logger.Info("drop_unlocked", "slug", slug)

	writeJSON(w, http.StatusOK, dto.UnlockResponse{
		TargetURL: redirect.Target(drop, h.frontendURL),
	})
}

// renderHTML writes an HTML interstitial, falling back to a plain 500
// when the template fails before any bytes are out.
func (h *RedirectHandler) renderHTML(w http.ResponseWriter, status int, render func() error) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := render(); err != nil {
		h.logger.Error("interstitial_render_failed", "error", err)
	}
}

// pageURL reconstructs the public URL of the current request.
func (h *RedirectHandler) pageURL(r *http.Request) string {
	scheme := "https"
	if r.TLS == nil {
		scheme = "http"
	}
	return scheme + "://" + r.Host + r.URL.Path
}
