package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/qelal/qelal/internal/model"
)

// Common errors for collaboration repository operations.
var (
	ErrGrantNotFound  = errors.New("collaboration not found")
	ErrDuplicateGrant = errors.New("collaboration already exists")
)

const collabColumns = `id, owner_id, collaborator_id, role, bundle_id, created_at`

// CreateCollaboration inserts a grant. A unique index over
// (owner, collaborator, bundle) keeps at most one row per triple.
func (r *Repository) CreateCollaboration(ctx context.Context, collab *model.Collaboration) error {
	query := `
		INSERT INTO collaborations (owner_id, collaborator_id, role, bundle_id, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(ctx, query,
		collab.OwnerID,
		collab.CollaboratorID,
		collab.Role,
		collab.BundleID,
	).Scan(&collab.ID, &collab.CreatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateGrant
		}
		return fmt.Errorf("failed to create collaboration: %w", err)
	}

	return nil
}

// ListCollaborationsByCollaborator returns every grant held by a user.
// The authorization resolver filters by owner and bundle.
func (r *Repository) ListCollaborationsByCollaborator(ctx context.Context, collaboratorID int64) ([]model.Collaboration, error) {
	query := `
		SELECT ` + collabColumns + `
		FROM collaborations
		WHERE collaborator_id = $1
		ORDER BY created_at ASC
	`

	return r.queryCollaborations(ctx, query, collaboratorID)
}

// ListCollaborationsByBundle returns the grants scoped to one bundle.
func (r *Repository) ListCollaborationsByBundle(ctx context.Context, bundleID int64) ([]model.Collaboration, error) {
	query := `
		SELECT ` + collabColumns + `
		FROM collaborations
		WHERE bundle_id = $1
		ORDER BY created_at ASC
	`

	return r.queryCollaborations(ctx, query, bundleID)
}

// ListGlobalCollaborationsByOwner returns the account-wide grants an owner
// has handed out (bundle_id null).
func (r *Repository) ListGlobalCollaborationsByOwner(ctx context.Context, ownerID int64) ([]model.Collaboration, error) {
	query := `
		SELECT ` + collabColumns + `
		FROM collaborations
		WHERE owner_id = $1 AND bundle_id IS NULL
		ORDER BY created_at ASC
	`

	return r.queryCollaborations(ctx, query, ownerID)
}

// GetCollaboration fetches the grant for one (owner, collaborator, bundle)
// triple. A nil bundleID addresses the account-wide grant.
func (r *Repository) GetCollaboration(ctx context.Context, ownerID, collaboratorID int64, bundleID *int64) (*model.Collaboration, error) {
	query := `
		SELECT ` + collabColumns + `
		FROM collaborations
		WHERE owner_id = $1 AND collaborator_id = $2 AND bundle_id IS NOT DISTINCT FROM $3
	`

	var collab model.Collaboration
	err := r.pool.QueryRow(ctx, query, ownerID, collaboratorID, bundleID).Scan(
		&collab.ID,
		&collab.OwnerID,
		&collab.CollaboratorID,
		&collab.Role,
		&collab.BundleID,
		&collab.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGrantNotFound
		}
		return nil, fmt.Errorf("failed to get collaboration: %w", err)
	}

	return &collab, nil
}

// DeleteCollaboration removes the grant for one (owner, collaborator,
// bundle) triple. A nil bundleID addresses the account-wide grant.
func (r *Repository) DeleteCollaboration(ctx context.Context, ownerID, collaboratorID int64, bundleID *int64) error {
	result, err := r.pool.Exec(ctx,
		`DELETE FROM collaborations
		 WHERE owner_id = $1 AND collaborator_id = $2 AND bundle_id IS NOT DISTINCT FROM $3`,
		ownerID, collaboratorID, bundleID)
	if err != nil {
		return fmt.Errorf("failed to delete collaboration: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrGrantNotFound
	}

	return nil
}

func (r *Repository) queryCollaborations(ctx context.Context, query string, args ...any) ([]model.Collaboration, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query collaborations: %w", err)
	}
	defer rows.Close()

	var collabs []model.Collaboration
	for rows.Next() {
		var collab model.Collaboration
		err := rows.Scan(
			&collab.ID,
			&collab.OwnerID,
			&collab.CollaboratorID,
			&collab.Role,
			&collab.BundleID,
			&collab.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan collaboration: %w", err)
		}
		collabs = append(collabs, collab)
	}

	return collabs, rows.Err()
}
