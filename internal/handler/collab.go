package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/qelal/qelal/internal/auth"
	"github.com/qelal/qelal/internal/authz"
	"github.com/qelal/qelal/internal/handler/dto"
	"github.com/qelal/qelal/internal/model"
	"github.com/qelal/qelal/internal/service"
)

// CollabHandler handles HTTP requests for collaboration operations.
type CollabHandler struct {
	svc     *service.CollabService
	baseURL string
	logger  *slog.Logger
}

// NewCollabHandler creates a new CollabHandler.
func NewCollabHandler(svc *service.CollabService, baseURL string, logger *slog.Logger) *CollabHandler {
	return &CollabHandler{
		svc:     svc,
		baseURL: baseURL,
		logger:  logger,
	}
}

// Invite handles POST /api/v1/bundles/{slug}/collaborators.
func (h *CollabHandler) Invite(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	userID := auth.UserIDFromContext(r.Context())
	if userID == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	var req dto.InviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	grant, err := h.svc.Invite(r.Context(), *userID, slug, req.Email, model.CollabRole(req.Role))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("collaborator_invited",
		"bundle_slug", slug,
		"role", req.Role,
	)

	writeJSON(w, http.StatusCreated, dto.ToCollaborationResponse(grant, slug))
}

// Remove handles DELETE /api/v1/bundles/{slug}/collaborators/{userID}.
func (h *CollabHandler) Remove(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	userID := auth.UserIDFromContext(r.Context())
	if userID == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	collaboratorID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_USER_ID", "Invalid collaborator ID")
		return
	}

	if err := h.svc.Remove(r.Context(), *userID, slug, collaboratorID); err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("collaborator_removed",
		"bundle_slug", slug,
		"collaborator_id", collaboratorID,
	)

	w.WriteHeader(http.StatusNoContent)
}

// InviteGlobal handles POST /api/v1/collaborators. The grant covers every
// drop the caller owns, current and future.
func (h *CollabHandler) InviteGlobal(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	var req dto.InviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	grant, err := h.svc.Invite(r.Context(), *userID, "", req.Email, model.CollabRole(req.Role))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("account_collaborator_invited", "role", req.Role)

	writeJSON(w, http.StatusCreated, dto.ToCollaborationResponse(grant, ""))
}

// ListGlobal handles GET /api/v1/collaborators.
func (h *CollabHandler) ListGlobal(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	collaborators, err := h.svc.ListAccountCollaborators(r.Context(), *userID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToCollaboratorListResponse(collaborators))
}

// RemoveGlobal handles DELETE /api/v1/collaborators/{userID}.
func (h *CollabHandler) RemoveGlobal(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	collaboratorID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_USER_ID", "Invalid collaborator ID")
		return
	}

	if err := h.svc.RemoveGlobal(r.Context(), *userID, collaboratorID); err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("account_collaborator_removed", "collaborator_id", collaboratorID)

	w.WriteHeader(http.StatusNoContent)
}

// Leave handles DELETE /api/v1/collaborations/{ownerID}: the caller
// abandons the account-wide grant that owner gave them.
func (h *CollabHandler) Leave(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	ownerID, err := strconv.ParseInt(chi.URLParam(r, "ownerID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_USER_ID", "Invalid owner ID")
		return
	}

	if err := h.svc.LeaveAccount(r.Context(), *userID, ownerID); err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("account_left", "owner_id", ownerID)

	w.WriteHeader(http.StatusNoContent)
}

// Join handles POST /api/v1/bundles/{slug}/join.
func (h *CollabHandler) Join(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	userID := auth.UserIDFromContext(r.Context())
	if userID == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	var req dto.JoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	grant, bundle, err := h.svc.JoinViaToken(r.Context(), *userID, slug, req.Token)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	// Owners joining their own bundle get no grant.
	decision := authz.Decision{Role: authz.RoleOwner, CanEditContent: true}
	role := ""
	if grant != nil {
		role = string(grant.Role)
		decision = authz.Decision{
			Role:           authz.Role(grant.Role),
			CanEditContent: grant.Role == model.CollabManager,
		}
	}

	h.logger.Info("bundle_joined", "bundle_slug", slug, "role", role)

	writeJSON(w, http.StatusOK, dto.JoinResponse{
		Role:   role,
		Bundle: dto.ToDropResponse(bundle, h.baseURL, decision),
	})
}

// RotateTokens handles POST /api/v1/bundles/{slug}/tokens/rotate.
func (h *CollabHandler) RotateTokens(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	userID := auth.UserIDFromContext(r.Context())
	if userID == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	bundle, err := h.svc.RotateTokens(r.Context(), *userID, slug)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("share_tokens_rotated", "bundle_slug", slug)

	writeJSON(w, http.StatusOK, dto.TokenRotationResponse{
		ManagerToken: bundle.ManagerToken,
		AnalystToken: bundle.AnalystToken,
	})
}

// List handles GET /api/v1/bundles/{slug}/collaborators.
func (h *CollabHandler) List(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	userID := auth.UserIDFromContext(r.Context())
	if userID == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	collaborators, err := h.svc.ListCollaborators(r.Context(), *userID, slug)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToCollaboratorListResponse(collaborators))
}

// handleServiceError maps collaboration service errors to HTTP responses.
func (h *CollabHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrDropNotFound):
		writeError(w, http.StatusNotFound, "BUNDLE_NOT_FOUND", "Bundle not found")
	case errors.Is(err, service.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, "FORBIDDEN", "Not authorized for this bundle")
	case errors.Is(err, service.ErrInvalidRole):
		writeError(w, http.StatusBadRequest, "INVALID_ROLE", "Role must be manager or analyst")
	case errors.Is(err, service.ErrSelfInvite):
		writeError(w, http.StatusBadRequest, "SELF_INVITE", "Cannot invite yourself")
	case errors.Is(err, service.ErrCollaboratorNotFound):
		writeError(w, http.StatusNotFound, "COLLABORATOR_NOT_FOUND", "No account with that email")
	case errors.Is(err, service.ErrDuplicateGrant):
		writeError(w, http.StatusConflict, "ALREADY_COLLABORATOR", "User is already a collaborator")
	case errors.Is(err, service.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid share token")
	default:
		h.logger.Error("internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}
