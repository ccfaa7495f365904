// Package model defines domain entities for the application.
package model

import (
	"regexp"
	"time"
)

// HandlePattern validates public profile handles: lowercase, 3-20 chars.
var HandlePattern = regexp.MustCompile(`^[a-z0-9_-]{3,20}$`)

// User is an identity record created on first external-identity login.
type User struct {
	ID         int64     `json:"id"`
	Email      string    `json:"email"`
	Name       string    `json:"name,omitempty"`
	Handle     string    `json:"username,omitempty"`
	AvatarURL  string    `json:"profile_pic,omitempty"`
	ExternalID string    `json:"-"` // immutable once set
	CreatedAt  time.Time `json:"created_at"`
}

// ValidHandle reports whether the handle matches the allowed pattern.
func ValidHandle(handle string) bool {
	return HandlePattern.MatchString(handle)
}
