package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/qelal/qelal/internal/model"
	"github.com/qelal/qelal/internal/repository"
)

// defaultNotificationLimit caps a single notification page.
const defaultNotificationLimit = 50

// ErrNotificationNotFound is returned for unknown or foreign notifications.
var ErrNotificationNotFound = errors.New("notification not found")

// NotificationReadStore reads and mutates a user's notifications.
type NotificationReadStore interface {
	ListNotificationsByUser(ctx context.Context, userID int64, limit int) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, userID, notificationID int64) error
	MarkAllNotificationsRead(ctx context.Context, userID int64) error
}

// NotificationService exposes a user's in-app notification feed.
type NotificationService struct {
	store NotificationReadStore
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(store NotificationReadStore) *NotificationService {
	return &NotificationService{store: store}
}

// List returns the user's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID int64, limit int) ([]model.Notification, error) {
	if limit <= 0 || limit > defaultNotificationLimit {
		limit = defaultNotificationLimit
	}

	notifications, err := s.store.ListNotificationsByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	return notifications, nil
}

// MarkRead marks one notification as read.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID int64) error {
	err := s.store.MarkNotificationRead(ctx, userID, notificationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotificationNotFound) {
			return ErrNotificationNotFound
		}
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}

// MarkAllRead marks every notification of the user as read.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID int64) error {
	if err := s.store.MarkAllNotificationsRead(ctx, userID); err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}
