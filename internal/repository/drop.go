package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/qelal/qelal/internal/model"
)

// Common errors for drop repository operations.
var (
	ErrDropNotFound = errors.New("drop not found")
	ErrSlugExists   = errors.New("slug already exists")
)

const linkColumns = `
	id, slug, long_url, owner_id, clicks, max_clicks, expires_at,
	password_hash, meta_title, meta_description, cloaked, created_at
`

const bundleColumns = `
	id, slug, owner_id, title, description, items, style, access_level,
	manager_token, analyst_token, clicks, max_clicks, expires_at,
	password_hash, meta_title, meta_description, cloaked, created_at
`

// GetDropBySlug resolves a slug against both the urls and bundles tables.
// This is the hot path for redirects. Returns ErrDropNotFound if the slug
// matches neither table.
func (r *Repository) GetDropBySlug(ctx context.Context, slug string) (*model.Drop, error) {
	query := `SELECT ` + linkColumns + ` FROM urls WHERE slug = $1`

	drop, err := scanLink(r.pool.QueryRow(ctx, query, slug))
	if err == nil {
		return drop, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to get link by slug: %w", err)
	}

	query = `SELECT ` + bundleColumns + ` FROM bundles WHERE slug = $1`

	drop, err = scanBundle(r.pool.QueryRow(ctx, query, slug))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDropNotFound
		}
		return nil, fmt.Errorf("failed to get bundle by slug: %w", err)
	}

	return drop, nil
}

// SlugExists checks whether a slug is taken in either table.
// Both tables share one namespace.
func (r *Repository) SlugExists(ctx context.Context, slug string) (bool, error) {
	query := `
		SELECT EXISTS(SELECT 1 FROM urls WHERE slug = $1)
		    OR EXISTS(SELECT 1 FROM bundles WHERE slug = $1)
	`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, slug).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check slug existence: %w", err)
	}

	return exists, nil
}

// CreateLink inserts a new short link. When drop.Slug is empty the slug is
// minted from the row's serial ID inside the same transaction, so the row
// is never visible without a slug.
func (r *Repository) CreateLink(ctx context.Context, drop *model.Drop, mint func(id int64) string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO urls (slug, long_url, owner_id, max_clicks, expires_at,
			password_hash, meta_title, meta_description, cloaked)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`

	err = tx.QueryRow(ctx, query,
		nullableSlug(drop.Slug),
		drop.LongURL,
		drop.OwnerID,
		drop.MaxClicks,
		drop.ExpiresAt,
		drop.PasswordHash,
		drop.MetaTitle,
		drop.MetaDescription,
		drop.Cloaked,
	).Scan(&drop.ID, &drop.CreatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrSlugExists
		}
		return fmt.Errorf("failed to create link: %w", err)
	}

	if drop.Slug == "" {
		drop.Slug = mint(drop.ID)
		if _, err := tx.Exec(ctx, `UPDATE urls SET slug = $2 WHERE id = $1`, drop.ID, drop.Slug); err != nil {
			if isUniqueViolation(err) {
				return ErrSlugExists
			}
			return fmt.Errorf("failed to mint slug: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit link: %w", err)
	}

	drop.Variant = model.VariantLink
	return nil
}

// CreateBundle inserts a new bundle, minting its slug the same way as
// CreateLink when none is given.
func (r *Repository) CreateBundle(ctx context.Context, drop *model.Drop, mint func(id int64) string) error {
	items, style, err := marshalBundlePayload(drop)
	if err != nil {
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO bundles (slug, owner_id, title, description, items, style,
			access_level, manager_token, analyst_token, max_clicks, expires_at,
			password_hash, meta_title, meta_description, cloaked)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at
	`

	err = tx.QueryRow(ctx, query,
		nullableSlug(drop.Slug),
		drop.OwnerID,
		drop.Title,
		drop.Description,
		items,
		style,
		drop.AccessLevel,
		drop.ManagerToken,
		drop.AnalystToken,
		drop.MaxClicks,
		drop.ExpiresAt,
		drop.PasswordHash,
		drop.MetaTitle,
		drop.MetaDescription,
		drop.Cloaked,
	).Scan(&drop.ID, &drop.CreatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrSlugExists
		}
		return fmt.Errorf("failed to create bundle: %w", err)
	}

	if drop.Slug == "" {
		drop.Slug = mint(drop.ID)
		if _, err := tx.Exec(ctx, `UPDATE bundles SET slug = $2 WHERE id = $1`, drop.ID, drop.Slug); err != nil {
			if isUniqueViolation(err) {
				return ErrSlugExists
			}
			return fmt.Errorf("failed to mint slug: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit bundle: %w", err)
	}

	drop.Variant = model.VariantBundle
	return nil
}

// UpdateLink updates a link's mutable fields.
func (r *Repository) UpdateLink(ctx context.Context, drop *model.Drop) error {
	query := `
		UPDATE urls
		SET slug = $2, long_url = $3, max_clicks = $4, expires_at = $5,
			password_hash = $6, meta_title = $7, meta_description = $8, cloaked = $9
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query,
		drop.ID,
		drop.Slug,
		drop.LongURL,
		drop.MaxClicks,
		drop.ExpiresAt,
		drop.PasswordHash,
		drop.MetaTitle,
		drop.MetaDescription,
		drop.Cloaked,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrSlugExists
		}
		return fmt.Errorf("failed to update link: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrDropNotFound
	}

	return nil
}

// UpdateBundle updates a bundle's mutable fields.
func (r *Repository) UpdateBundle(ctx context.Context, drop *model.Drop) error {
	items, style, err := marshalBundlePayload(drop)
	if err != nil {
		return err
	}

	query := `
		UPDATE bundles
		SET slug = $2, title = $3, description = $4, items = $5, style = $6,
			access_level = $7, manager_token = $8, analyst_token = $9,
			max_clicks = $10, expires_at = $11, password_hash = $12,
			meta_title = $13, meta_description = $14, cloaked = $15
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query,
		drop.ID,
		drop.Slug,
		drop.Title,
		drop.Description,
		items,
		style,
		drop.AccessLevel,
		drop.ManagerToken,
		drop.AnalystToken,
		drop.MaxClicks,
		drop.ExpiresAt,
		drop.PasswordHash,
		drop.MetaTitle,
		drop.MetaDescription,
		drop.Cloaked,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrSlugExists
		}
		return fmt.Errorf("failed to update bundle: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrDropNotFound
	}

	return nil
}

// DeleteDrop removes a drop. Click rows cascade via foreign keys.
func (r *Repository) DeleteDrop(ctx context.Context, variant model.DropVariant, id int64) error {
	table := "urls"
	if variant == model.VariantBundle {
		table = "bundles"
	}

	result, err := r.pool.Exec(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete drop: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrDropNotFound
	}

	return nil
}

// RegisterClick atomically counts one click against a drop's cap.
// Returns false when the cap is already reached; the row is untouched
// in that case, so concurrent redirects can never overshoot the cap.
func (r *Repository) RegisterClick(ctx context.Context, variant model.DropVariant, id int64) (bool, error) {
	table := "urls"
	if variant == model.VariantBundle {
		table = "bundles"
	}

	query := `
		UPDATE ` + table + `
		SET clicks = clicks + 1
		WHERE id = $1 AND (max_clicks IS NULL OR clicks < max_clicks)
		RETURNING clicks
	`

	var clicks int64
	err := r.pool.QueryRow(ctx, query, id).Scan(&clicks)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to register click: %w", err)
	}

	return true, nil
}

// ListDropsByOwner returns all of an owner's drops, newest first,
// bundles and links interleaved.
func (r *Repository) ListDropsByOwner(ctx context.Context, ownerID int64) ([]*model.Drop, error) {
	var drops []*model.Drop

	query := `SELECT ` + linkColumns + ` FROM urls WHERE owner_id = $1`
	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		drop, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		drops = append(drops, drop)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating links: %w", err)
	}

	query = `SELECT ` + bundleColumns + ` FROM bundles WHERE owner_id = $1`
	rows, err = r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bundles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		drop, err := scanBundle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bundle: %w", err)
		}
		drops = append(drops, drop)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bundles: %w", err)
	}

	sortDropsNewestFirst(drops)
	return drops, nil
}

// ListBundlesByIDs fetches the bundles for the given IDs.
// Used to resolve bundle-scoped collaborations into drops.
func (r *Repository) ListBundlesByIDs(ctx context.Context, ids []int64) ([]*model.Drop, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT ` + bundleColumns + ` FROM bundles WHERE id = ANY($1)`
	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list bundles by IDs: %w", err)
	}
	defer rows.Close()

	var drops []*model.Drop
	for rows.Next() {
		drop, err := scanBundle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bundle: %w", err)
		}
		drops = append(drops, drop)
	}

	return drops, rows.Err()
}

func sortDropsNewestFirst(drops []*model.Drop) {
	for i := 1; i < len(drops); i++ {
		for j := i; j > 0 && drops[j].CreatedAt.After(drops[j-1].CreatedAt); j-- {
			drops[j], drops[j-1] = drops[j-1], drops[j]
		}
	}
}

// scanLink scans a urls row into a Drop.
func scanLink(row pgx.Row) (*model.Drop, error) {
	drop := &model.Drop{Variant: model.VariantLink}
	err := row.Scan(
		&drop.ID,
		&drop.Slug,
		&drop.LongURL,
		&drop.OwnerID,
		&drop.Clicks,
		&drop.MaxClicks,
		&drop.ExpiresAt,
		&drop.PasswordHash,
		&drop.MetaTitle,
		&drop.MetaDescription,
		&drop.Cloaked,
		&drop.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return drop, nil
}

// scanBundle scans a bundles row into a Drop.
func scanBundle(row pgx.Row) (*model.Drop, error) {
	drop := &model.Drop{Variant: model.VariantBundle}
	var items, style []byte
	err := row.Scan(
		&drop.ID,
		&drop.Slug,
		&drop.OwnerID,
		&drop.Title,
		&drop.Description,
		&items,
		&style,
		&drop.AccessLevel,
		&drop.ManagerToken,
		&drop.AnalystToken,
		&drop.Clicks,
		&drop.MaxClicks,
		&drop.ExpiresAt,
		&drop.PasswordHash,
		&drop.MetaTitle,
		&drop.MetaDescription,
		&drop.Cloaked,
		&drop.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(items) > 0 {
		if err := json.Unmarshal(items, &drop.Items); err != nil {
			return nil, fmt.Errorf("failed to decode bundle items: %w", err)
		}
	}
	if len(style) > 0 {
		if err := json.Unmarshal(style, &drop.Style); err != nil {
			return nil, fmt.Errorf("failed to decode bundle style: %w", err)
		}
	}

	return drop, nil
}

// nullableSlug maps an unset slug to NULL so rows awaiting a minted slug
// never collide on the unique index.
func nullableSlug(slug string) any {
	if slug == "" {
		return nil
	}
	return slug
}

func marshalBundlePayload(drop *model.Drop) (items, style []byte, err error) {
	if drop.Items == nil {
		drop.Items = []model.BundleItem{}
	}
	items, err = json.Marshal(drop.Items)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode bundle items: %w", err)
	}

	style, err = json.Marshal(drop.Style)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode bundle style: %w", err)
	}

	return items, style, nil
}
