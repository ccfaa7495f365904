package auth

import (
	"context"

	"github.com/qelal/qelal/internal/model"
)

// contextKey is a private type for context keys to avoid collisions.
type contextKey string

const userContextKey contextKey = "auth_user"

// ContextWithUser returns a context carrying the authenticated user.
func ContextWithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext retrieves the authenticated user, or nil if the request
// is anonymous.
func UserFromContext(ctx context.Context) *model.User {
	user, _ := ctx.Value(userContextKey).(*model.User)
	return user
}

// UserIDFromContext returns a pointer to the authenticated user's id,
// or nil for anonymous requests. The pointer form feeds straight into
// the authorization resolver.
func UserIDFromContext(ctx context.Context) *int64 {
	user := UserFromContext(ctx)
	if user == nil {
		return nil
	}
	id := user.ID
	return &id
}
