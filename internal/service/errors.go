// Package service provides business logic for the application.
package service

import "errors"

// Service errors.
var (
	ErrDropNotFound         = errors.New("drop not found")
	ErrNotAuthorized        = errors.New("not authorized")
	ErrSlugExists           = errors.New("slug already exists")
	ErrInvalidSlug          = errors.New("invalid slug format")
	ErrInvalidDestination   = errors.New("invalid destination URL")
	ErrURLTooLong           = errors.New("destination URL too long")
	ErrExpiresInPast        = errors.New("expires_at must be in the future")
	ErrInvalidMaxClicks     = errors.New("max_clicks must be positive")
	ErrTitleRequired        = errors.New("bundle title is required")
	ErrInvalidAccessLevel   = errors.New("invalid access level")
	ErrInvalidItem          = errors.New("invalid bundle item")
	ErrIncorrectPassword    = errors.New("incorrect password")
	ErrInvalidToken         = errors.New("invalid join token")
	ErrDuplicateGrant       = errors.New("collaboration already exists")
	ErrSelfInvite           = errors.New("cannot invite yourself")
	ErrCollaboratorNotFound = errors.New("collaborator not found")
	ErrInvalidRole          = errors.New("invalid collaborator role")
	ErrInvalidHandle        = errors.New("invalid handle format")
	ErrHandleTaken          = errors.New("handle already taken")
)
