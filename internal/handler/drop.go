package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/qelal/qelal/internal/auth"
	"github.com/qelal/qelal/internal/authz"
	"github.com/qelal/qelal/internal/handler/dto"
	"github.com/qelal/qelal/internal/service"
)

// DropHandler handles HTTP requests for drop operations.
type DropHandler struct {
	svc     *service.DropService
	baseURL string
	logger  *slog.Logger
}

// NewDropHandler creates a new DropHandler. baseURL is the public origin
// short URLs are built from.
func NewDropHandler(svc *service.DropService, baseURL string, logger *slog.Logger) *DropHandler {
	return &DropHandler{
		svc:     svc,
		baseURL: baseURL,
		logger:  logger,
	}
}

// CreateLink handles POST /shorten.
func (h *DropHandler) CreateLink(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	input := service.CreateLinkInput{
		LongURL:         req.LongURL,
		Slug:            req.Slug,
		MaxClicks:       req.MaxClicks,
		ExpiresAt:       req.ExpiresAt,
		Password:        req.Password,
		MetaTitle:       req.MetaTitle,
		MetaDescription: req.MetaDescription,
		Cloaked:         req.Cloaked,
	}

	ownerID := auth.UserIDFromContext(r.Context())
	drop, err := h.svc.CreateLink(r.Context(), ownerID, input)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("link_created",
		"slug", drop.Slug,
		"has_custom_slug", req.Slug != "",
		"anonymous", ownerID == nil,
	)

	writeJSON(w, http.StatusCreated, dto.ToDropResponse(drop, h.baseURL, ownerDecision(ownerID)))
}

// CreateBundle handles POST /bundles.
func (h *DropHandler) CreateBundle(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateBundleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	input := service.CreateBundleInput{
		Title:           req.Title,
		Description:     req.Description,
		Slug:            req.Slug,
		Items:           req.Items,
		Style:           req.Style,
		AccessLevel:     req.AccessLevel,
		MaxClicks:       req.MaxClicks,
		ExpiresAt:       req.ExpiresAt,
		Password:        req.Password,
		MetaTitle:       req.MetaTitle,
		MetaDescription: req.MetaDescription,
		Cloaked:         req.Cloaked,
	}

	ownerID := auth.UserIDFromContext(r.Context())
	drop, err := h.svc.CreateBundle(r.Context(), ownerID, input)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("bundle_created",
		"slug", drop.Slug,
		"item_count", len(drop.Items),
		"anonymous", ownerID == nil,
	)

	writeJSON(w, http.StatusCreated, dto.ToDropResponse(drop, h.baseURL, ownerDecision(ownerID)))
}

// Get handles GET /api/v1/drops/{slug}.
func (h *DropHandler) Get(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if slug == "" {
		writeError(w, http.StatusBadRequest, "MISSING_SLUG", "Slug is required")
		return
	}

	userID := auth.UserIDFromContext(r.Context())
	drop, decision, err := h.svc.GetDrop(r.Context(), userID, slug)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToDropResponse(drop, h.baseURL, decision))
}

// List handles GET /api/v1/drops.
func (h *DropHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	drops, err := h.svc.ListMine(r.Context(), *userID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToDropListResponse(drops, h.baseURL))
}

// Update handles PATCH /api/v1/drops/{slug}.
func (h *DropHandler) Update(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if slug == "" {
		writeError(w, http.StatusBadRequest, "MISSING_SLUG", "Slug is required")
		return
	}

	var req dto.UpdateDropRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	input := service.UpdateDropInput{
		Title:           req.Title,
		Description:     req.Description,
		Items:           req.Items,
		Style:           req.Style,
		LongURL:         req.LongURL,
		MetaTitle:       req.MetaTitle,
		MetaDescription: req.MetaDescription,
		Slug:            req.Slug,
		MaxClicks:       req.MaxClicks,
		ClearCap:        req.ClearCap,
		ExpiresAt:       req.ExpiresAt,
		ClearExpiry:     req.ClearExpiry,
		Password:        req.Password,
		ClearPassword:   req.ClearPassword,
		Cloaked:         req.Cloaked,
		AccessLevel:     req.AccessLevel,
	}

	userID := auth.UserIDFromContext(r.Context())
	drop, err := h.svc.UpdateDrop(r.Context(), userID, slug, input)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("drop_updated", "slug", drop.Slug, "type", string(drop.Variant))

	// Re-resolve the role so the response carries tokens for managers.
	updated, decision, err := h.svc.GetDrop(r.Context(), userID, drop.Slug)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToDropResponse(updated, h.baseURL, decision))
}

// Delete handles DELETE /api/v1/drops/{slug}.
func (h *DropHandler) Delete(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if slug == "" {
		writeError(w, http.StatusBadRequest, "MISSING_SLUG", "Slug is required")
		return
	}

	userID := auth.UserIDFromContext(r.Context())
	if err := h.svc.DeleteDrop(r.Context(), userID, slug); err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("drop_deleted", "slug", slug)

	w.WriteHeader(http.StatusNoContent)
}

// handleServiceError maps service errors to HTTP responses.
func (h *DropHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrDropNotFound):
		writeError(w, http.StatusNotFound, "DROP_NOT_FOUND", "Drop not found")
	case errors.Is(err, service.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, "FORBIDDEN", "Not authorized for this drop")
	case errors.Is(err, service.ErrSlugExists):
		writeError(w, http.StatusConflict, "SLUG_TAKEN", "Slug already exists")
	case errors.Is(err, service.ErrInvalidSlug):
		writeError(w, http.StatusBadRequest, "INVALID_SLUG", "Invalid slug format")
	case errors.Is(err, service.ErrInvalidDestination):
		writeError(w, http.StatusBadRequest, "INVALID_DESTINATION", "Invalid destination URL")
	case errors.Is(err, service.ErrURLTooLong):
		writeError(w, http.StatusBadRequest, "URL_TOO_LONG", "Destination URL exceeds maximum length")
	case errors.Is(err, service.ErrExpiresInPast):
		writeError(w, http.StatusUnprocessableEntity, "EXPIRES_IN_PAST", "Expiry date must be in the future")
	case errors.Is(err, service.ErrInvalidMaxClicks):
		writeError(w, http.StatusBadRequest, "INVALID_MAX_CLICKS", "Click cap must be positive")
	case errors.Is(err, service.ErrTitleRequired):
		writeError(w, http.StatusBadRequest, "TITLE_REQUIRED", "Bundle title is required")
	case errors.Is(err, service.ErrInvalidAccessLevel):
		writeError(w, http.StatusBadRequest, "INVALID_ACCESS_LEVEL", "Invalid access level")
	case errors.Is(err, service.ErrInvalidItem):
		writeError(w, http.StatusBadRequest, "INVALID_ITEM", "Invalid bundle item")
	default:
		h.logger.Error("internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}

// ownerDecision is the decision implied by creating a drop: owners manage
// everything, anonymous creators get no ongoing role.
func ownerDecision(ownerID *int64) authz.Decision {
	if ownerID == nil {
		return authz.Decision{}
	}
	return authz.Decision{Role: authz.RoleOwner, CanEditContent: true}
}
