package dto

import (
	"time"

	"github.com/qelal/qelal/internal/model"
)

// LoginRequest represents the request body for logging in with an
// identity-provider access token.
type LoginRequest struct {
	AccessToken string `json:"access_token"`
}

// LoginResponse carries the session token and the resolved profile.
type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// ClaimHandleRequest represents the request body for claiming a handle.
type ClaimHandleRequest struct {
	Handle string `json:"username"`
}

// UserResponse represents a user profile in API responses.
type UserResponse struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	Handle    string    `json:"username,omitempty"`
	AvatarURL string    `json:"profile_pic,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NotificationResponse represents a notification in API responses.
type NotificationResponse struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Link      string    `json:"link,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// NotificationListResponse lists a user's notifications, newest first.
type NotificationListResponse struct {
	Data []NotificationResponse `json:"data"`
}

// ToUserResponse converts a User model to UserResponse DTO.
func ToUserResponse(u *model.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Handle:    u.Handle,
		AvatarURL: u.AvatarURL,
		CreatedAt: u.CreatedAt,
	}
}

// ToNotificationListResponse converts Notification models.
func ToNotificationListResponse(notifications []model.Notification) *NotificationListResponse {
	responses := make([]NotificationResponse, len(notifications))
	for i, n := range notifications {
		responses[i] = NotificationResponse{
			ID:        n.ID,
			Type:      string(n.Type),
			Title:     n.Title,
			Message:   n.Message,
			Link:      n.Link,
			Read:      n.Read,
			CreatedAt: n.CreatedAt,
		}
	}
	return &NotificationListResponse{Data: responses}
}
