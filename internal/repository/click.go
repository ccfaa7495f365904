package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/qelal/qelal/internal/model"
)

// topReferersLimit caps the referer leaderboard in stats reports.
const topReferersLimit = 5

// BulkInsertClicks inserts click events with idempotency via
// ON CONFLICT DO NOTHING on the event ID. Redeliveries from the stream
// consumer are silently dropped.
func (r *Repository) BulkInsertClicks(ctx context.Context, clicks []*model.Click) error {
	if len(clicks) == 0 {
		return nil
	}

	batch := &pgx.Batch{}

	query := `
		INSERT INTO clicks (
			id, event_id, url_id, bundle_id, referer, user_agent,
			device_type, timestamp, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (event_id) DO NOTHING
	`

	for _, click := range clicks {
		batch.Queue(query,
			click.ID,
			click.EventID,
			click.URLID,
			click.BundleID,
			nullableString(click.Referer),
			nullableString(click.UserAgent),
			click.DeviceType,
			click.Timestamp,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(clicks); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("batch insert click %d: %w", i, err)
		}
	}

	return nil
}

// GetStats builds the analytics report for one drop: total clicks,
// hour-bucketed history, device breakdown, and the top referring sites.
func (r *Repository) GetStats(ctx context.Context, variant model.DropVariant, dropID int64) (*model.Stats, error) {
	column := "url_id"
	if variant == model.VariantBundle {
		column = "bundle_id"
	}

	stats := &model.Stats{
		History:     []model.HourBucket{},
		Devices:     []model.DeviceCount{},
		TopReferers: []model.RefererCount{},
	}

	history, total, err := r.clickHistory(ctx, column, dropID)
	if err != nil {
		return nil, err
	}
	stats.History = history
	stats.TotalClicks = total

	devices, err := r.deviceBreakdown(ctx, column, dropID)
	if err != nil {
		return nil, err
	}
	stats.Devices = devices

	referers, err := r.topReferers(ctx, column, dropID)
	if err != nil {
		return nil, err
	}
	stats.TopReferers = referers

	return stats, nil
}

// clickHistory groups clicks into hourly buckets, oldest first.
func (r *Repository) clickHistory(ctx context.Context, column string, dropID int64) ([]model.HourBucket, int64, error) {
	query := `
		SELECT date_trunc('hour', timestamp) AS hour, COUNT(*)
		FROM clicks
		WHERE ` + column + ` = $1
		GROUP BY hour
		ORDER BY hour ASC
	`

	rows, err := r.pool.Query(ctx, query, dropID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query click history: %w", err)
	}
	defer rows.Close()

	buckets := []model.HourBucket{}
	var total int64
	for rows.Next() {
		var bucket model.HourBucket
		if err := rows.Scan(&bucket.Hour, &bucket.Count); err != nil {
			return nil, 0, fmt.Errorf("failed to scan hour bucket: %w", err)
		}
		bucket.Hour = bucket.Hour.UTC()
		total += bucket.Count
		buckets = append(buckets, bucket)
	}

	return buckets, total, rows.Err()
}

// deviceBreakdown counts clicks per device class.
func (r *Repository) deviceBreakdown(ctx context.Context, column string, dropID int64) ([]model.DeviceCount, error) {
	query := `
		SELECT COALESCE(NULLIF(device_type, ''), 'Unknown'), COUNT(*)
		FROM clicks
		WHERE ` + column + ` = $1
		GROUP BY 1
		ORDER BY 2 DESC
	`

	rows, err := r.pool.Query(ctx, query, dropID)
	if err != nil {
		return nil, fmt.Errorf("failed to query device breakdown: %w", err)
	}
	defer rows.Close()

	devices := []model.DeviceCount{}
	for rows.Next() {
		var device model.DeviceCount
		if err := rows.Scan(&device.Device, &device.Count); err != nil {
			return nil, fmt.Errorf("failed to scan device count: %w", err)
		}
		devices = append(devices, device)
	}

	return devices, rows.Err()
}

// topReferers returns the most frequent referring sites, clicks without a
// Referer header counted under "Direct".
func (r *Repository) topReferers(ctx context.Context, column string, dropID int64) ([]model.RefererCount, error) {
	query := `
		SELECT COALESCE(NULLIF(referer, ''), 'Direct'), COUNT(*)
		FROM clicks
		WHERE ` + column + ` = $1
		GROUP BY 1
		ORDER BY 2 DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, dropID, topReferersLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top referers: %w", err)
	}
	defer rows.Close()

	referers := []model.RefererCount{}
	for rows.Next() {
		var referer model.RefererCount
		if err := rows.Scan(&referer.Referer, &referer.Count); err != nil {
			return nil, fmt.Errorf("failed to scan referer count: %w", err)
		}
		referers = append(referers, referer)
	}

	return referers, rows.Err()
}

// PruneClicksBefore removes click rows older than the cutoff.
// Intended for retention jobs; returns the number of rows removed.
func (r *Repository) PruneClicksBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM clicks WHERE timestamp < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune clicks: %w", err)
	}
	return result.RowsAffected(), nil
}

// nullableString returns nil for empty strings.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
