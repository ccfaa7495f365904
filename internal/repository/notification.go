package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/qelal/qelal/internal/model"
)

// ErrNotificationNotFound is returned when a notification does not exist
// or belongs to another user.
var ErrNotificationNotFound = errors.New("notification not found")

// CreateNotification inserts an in-app notification.
func (r *Repository) CreateNotification(ctx context.Context, n *model.Notification) error {
	query := `
		INSERT INTO notifications (user_id, type, title, message, link, read, created_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, NOW())
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(ctx, query,
		n.UserID,
		n.Type,
		n.Title,
		n.Message,
		n.Link,
	).Scan(&n.ID, &n.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	return nil
}

// ListNotificationsByUser returns a user's notifications, newest first.
func (r *Repository) ListNotificationsByUser(ctx context.Context, userID int64, limit int) ([]model.Notification, error) {
	query := `
		SELECT id, user_id, type, title, message, link, read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	notifications := []model.Notification{}
	for rows.Next() {
		var n model.Notification
		err := rows.Scan(
			&n.ID,
			&n.UserID,
			&n.Type,
			&n.Title,
			&n.Message,
			&n.Link,
			&n.Read,
			&n.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}

	return notifications, rows.Err()
}

// MarkNotificationRead marks a single notification as read.
// Scoped to the user so one user cannot touch another's rows.
func (r *Repository) MarkNotificationRead(ctx context.Context, userID, notificationID int64) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`,
		notificationID, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}

	return nil
}

// MarkAllNotificationsRead marks all of a user's notifications as read.
func (r *Repository) MarkAllNotificationsRead(ctx context.Context, userID int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE notifications SET read = TRUE WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}

	return nil
}
