package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/qelal/qelal/internal/model"
)

// Common errors for user repository operations.
var (
	ErrUserNotFound = errors.New("user not found")
	ErrHandleExists = errors.New("handle already taken")
)

// The handle column is NULL until the user claims one; NULLs never
// collide under the unique index, an empty string would.
const userColumns = `id, email, name, COALESCE(handle, ''), avatar_url, external_id, created_at`

// UpsertUserByExternalID creates the user on first login and refreshes the
// profile fields supplied by the identity provider on every later login.
// The handle is chosen by the user and never overwritten here.
func (r *Repository) UpsertUserByExternalID(ctx context.Context, user *model.User) (*model.User, error) {
	query := `
		INSERT INTO users (email, name, avatar_url, external_id, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (external_id) DO UPDATE SET
			email = EXCLUDED.email,
			name = EXCLUDED.name,
			avatar_url = EXCLUDED.avatar_url
		RETURNING ` + userColumns + `
	`

	var out model.User
	err := r.pool.QueryRow(ctx, query,
		user.Email,
		user.Name,
		user.AvatarURL,
		user.ExternalID,
	).Scan(
		&out.ID,
		&out.Email,
		&out.Name,
		&out.Handle,
		&out.AvatarURL,
		&out.ExternalID,
		&out.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	return &out, nil
}

// GetUserByID retrieves a user by their ID.
func (r *Repository) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanUser(r.pool.QueryRow(ctx, query, id))
}

// GetUserByEmail retrieves a user by their email address.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.scanUser(r.pool.QueryRow(ctx, query, email))
}

// SetUserHandle claims a public handle for the user.
// Returns ErrHandleExists when another user already holds it.
func (r *Repository) SetUserHandle(ctx context.Context, userID int64, handle string) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE users SET handle = $2 WHERE id = $1`, userID, handle)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrHandleExists
		}
		return fmt.Errorf("failed to set handle: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

func (r *Repository) scanUser(row pgx.Row) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.Handle,
		&user.AvatarURL,
		&user.ExternalID,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}
