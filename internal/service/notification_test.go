package service

import (
	"context"
	"testing"
	"time"

	"github.com/qelal/qelal/internal/model"
	"github.com/qelal/qelal/internal/repository"
)

type fakeNotificationReadStore struct {
	notifications []model.Notification
}

func (f *fakeNotificationReadStore) ListNotificationsByUser(_ context.Context, userID int64, limit int) ([]model.Notification, error) {
	var out []model.Notification
	for _, n := range f.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeNotificationReadStore) MarkNotificationRead(_ context.Context, userID, notificationID int64) error {
	for i, n := range f.notifications {
		if n.ID == notificationID && n.UserID == userID {
			f.notifications[i].Read = true
			return nil
		}
	}
	return repository.ErrNotificationNotFound
}

func (f *fakeNotificationReadStore) MarkAllNotificationsRead(_ context.Context, userID int64) error {
	for i, n := range f.notifications {
		if n.UserID == userID {
			f.notifications[i].Read = true
		}
	}
	return nil
}

func TestNotificationList_DefaultLimit(t *testing.T) {
	t.Parallel()

	store := &fakeNotificationReadStore{}
	for i := int64(1); i <= 60; i++ {
		store.notifications = append(store.notifications, model.Notification{
			ID:        i,
			UserID:    1,
			Type:      model.NotificationCollabInvite,
			Title:     "invited",
			CreatedAt: time.Now(),
		})
	}

	svc := NewNotificationService(store)

	got, err := svc.List(context.Background(), 1, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != defaultNotificationLimit {
		t.Errorf("len = %d, want default limit %d", len(got), defaultNotificationLimit)
	}
}

func TestNotificationMarkRead(t *testing.T) {
	t.Parallel()

	store := &fakeNotificationReadStore{notifications: []model.Notification{
		{ID: 1, UserID: 1},
		{ID: 2, UserID: 2},
	}}
	svc := NewNotificationService(store)

	if err := svc.MarkRead(context.Background(), 1, 1); err != nil {
		t.Fatalf("MarkRead() error = %v", err)
	}
	if !store.notifications[0].Read {
		t.Error("notification not marked read")
	}

	// A user cannot mark another user's notification.
	if err := svc.MarkRead(context.Background(), 1, 2); err != ErrNotificationNotFound {
		t.Errorf("foreign MarkRead() error = %v, want ErrNotificationNotFound", err)
	}
}

func TestNotificationMarkAllRead(t *testing.T) {
	t.Parallel()

	store := &fakeNotificationReadStore{notifications: []model.Notification{
		{ID: 1, UserID: 1},
		{ID: 2, UserID: 1},
		{ID: 3, UserID: 2},
	}}
	svc := NewNotificationService(store)

	if err := svc.MarkAllRead(context.Background(), 1); err != nil {
		t.Fatalf("MarkAllRead() error = %v", err)
	}

	if !store.notifications[0].Read || !store.notifications[1].Read {
		t.Error("user 1 notifications should all be read")
	}
	if store.notifications[2].Read {
		t.Error("user 2 notification should be untouched")
	}
}
