// Package model defines domain entities for the application.
package model

import "time"

// NotificationType tags what a notification is about.
type NotificationType string

const (
	NotificationCollabInvite  NotificationType = "collab_invite"
	NotificationCollabJoined  NotificationType = "collab_joined"
	NotificationCollabRemoved NotificationType = "collab_removed"
)

// Notification is an in-app message addressed to one user.
// Created as a side effect of collaboration changes; never auto-deleted.
type Notification struct {
	ID        int64            `json:"id"`
	UserID    int64            `json:"user_id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Link      string           `json:"link,omitempty"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"created_at"`
}
