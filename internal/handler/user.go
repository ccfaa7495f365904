package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/qelal/qelal/internal/auth"
	"github.com/qelal/qelal/internal/handler/dto"
	"github.com/qelal/qelal/internal/service"
)

// UserHandler handles login, logout and profile requests.
type UserHandler struct {
	svc    *service.UserService
	logger *slog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(svc *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		svc:    svc,
		logger: logger,
	}
}

// Login handles POST /auth/login.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}
	if req.AccessToken == "" {
		writeError(w, http.StatusBadRequest, "MISSING_TOKEN", "Access token is required")
		return
	}

	result, err := h.svc.Login(r.Context(), req.AccessToken)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Could not verify identity")
			return
		}
		h.logger.Error("login_error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}

	h.logger.Info("user_logged_in", "user_id", result.User.ID)

	writeJSON(w, http.StatusOK, dto.LoginResponse{
		Token: result.Token,
		User:  dto.ToUserResponse(result.User),
	})
}

// Logout handles POST /auth/logout.
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	header := r.Header.Get("Authorization")
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Valid session token required")
		return
	}

	if err := h.svc.Logout(r.Context(), token); err != nil {
		h.logger.Error("logout_error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /auth/me.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	user, err := h.svc.Me(r.Context(), *userID)
	if err != nil {
		h.logger.Error("profile_error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}

	writeJSON(w, http.StatusOK, dto.ToUserResponse(user))
}

// ClaimHandle handles PUT /auth/me/handle.
func (h *UserHandler) ClaimHandle(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	var req dto.ClaimHandleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if err := h.svc.ClaimHandle(r.Context(), *userID, req.Handle); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidHandle):
			writeError(w, http.StatusBadRequest, "INVALID_HANDLE", "Handle must be 3-20 lowercase letters, digits, hyphens or underscores")
		case errors.Is(err, service.ErrHandleTaken):
			writeError(w, http.StatusConflict, "HANDLE_TAKEN", "Handle already taken")
		default:
			h.logger.Error("handle_error", "error", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		}
		return
	}

	h.logger.Info("handle_claimed", "user_id", *userID)

	w.WriteHeader(http.StatusNoContent)
}
