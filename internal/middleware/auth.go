package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/qelal/qelal/internal/auth"
	"github.com/qelal/qelal/internal/cache"
	"github.com/qelal/qelal/internal/model"
	"github.com/qelal/qelal/internal/repository"
)

// AuthConfig holds configuration for the session auth middleware.
type AuthConfig struct {
	Logger     *slog.Logger
	Repository *repository.Repository
	Cache      *cache.Cache
}

// RequireAuth authenticates requests with a bearer session token and
// injects the user into the request context. Requests without a valid
// session are refused with 401.
func RequireAuth(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := resolveSession(cfg, r)
			if user == nil {
				writeAuthError(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.ContextWithUser(r.Context(), user)))
		})
	}
}

// OptionalAuth resolves the session when one is presented but lets
// anonymous requests through. Used on endpoints whose behavior depends
// on who is asking without requiring login.
func OptionalAuth(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user := resolveSession(cfg, r); user != nil {
				r = r.WithContext(auth.ContextWithUser(r.Context(), user))
			}

			next.ServeHTTP(w, r)
		})
	}
}

// resolveSession turns a bearer token into a user. Returns nil when the
// request carries no token or the token does not map to a live session.
func resolveSession(cfg AuthConfig, r *http.Request) *model.User {
	token := extractBearerToken(r)
	if token == "" {
		return nil
	}

	session, err := cfg.Cache.GetSession(r.Context(), token)
	if err != nil || session == nil {
		cfg.Logger.Warn("authentication failed",
			slog.String("reason", "unknown_session"),
			slog.String("ip", r.RemoteAddr),
			slog.String("endpoint", r.Method+" "+r.URL.Path),
			slog.String("request_id", GetRequestID(r.Context())),
		)
		return nil
	}

	u, err := cfg.Repository.GetUserByID(r.Context(), session.UserID)
	if err != nil {
		cfg.Logger.Warn("authentication failed",
			slog.String("reason", "user_missing"),
			slog.Int64("user_id", session.UserID),
			slog.String("request_id", GetRequestID(r.Context())),
		)
		return nil
	}

	return u
}

// extractBearerToken pulls the session token from the Authorization header.
func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}

	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}

	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}

// writeAuthError writes a 401 Unauthorized response.
func writeAuthError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":{"code":"UNAUTHORIZED","message":"Valid session token required"}}`))
}
