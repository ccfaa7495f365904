package dto

import (
	"time"

	"github.com/qelal/qelal/internal/model"
	"github.com/qelal/qelal/internal/service"
)

// InviteRequest represents the request body for inviting a collaborator.
type InviteRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// JoinRequest represents the request body for joining via a share token.
type JoinRequest struct {
	Token string `json:"token"`
}

// CollaborationResponse represents a collaboration grant.
type CollaborationResponse struct {
	ID             int64     `json:"id"`
	OwnerID        int64     `json:"owner_id"`
	CollaboratorID int64     `json:"collaborator_id"`
	Role           string    `json:"role"`
	BundleSlug     string    `json:"bundle_slug,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// CollaboratorResponse pairs a collaborator's profile with their role.
type CollaboratorResponse struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	Handle    string    `json:"username,omitempty"`
	AvatarURL string    `json:"profile_pic,omitempty"`
	Role      string    `json:"role"`
	GrantedAt time.Time `json:"granted_at"`
}

// CollaboratorListResponse lists the collaborators of a bundle.
type CollaboratorListResponse struct {
	Data []CollaboratorResponse `json:"data"`
}

// JoinResponse is returned after a successful token join.
type JoinResponse struct {
	Role   string        `json:"role,omitempty"`
	Bundle *DropResponse `json:"bundle"`
}

// TokenRotationResponse carries the fresh join tokens after rotation.
type TokenRotationResponse struct {
	ManagerToken string `json:"manager_token"`
	AnalystToken string `json:"analyst_token"`
}

// ToCollaborationResponse converts a Collaboration model, resolving the
// bundle slug when the grant is scoped.
func ToCollaborationResponse(c *model.Collaboration, bundleSlug string) *CollaborationResponse {
	return &CollaborationResponse{
		ID:             c.ID,
		OwnerID:        c.OwnerID,
		CollaboratorID: c.CollaboratorID,
		Role:           string(c.Role),
		BundleSlug:     bundleSlug,
		CreatedAt:      c.CreatedAt,
	}
}

// ToCollaboratorListResponse converts service collaborator records.
func ToCollaboratorListResponse(collaborators []service.Collaborator) *CollaboratorListResponse {
	responses := make([]CollaboratorResponse, len(collaborators))
	for i, c := range collaborators {
		responses[i] = CollaboratorResponse{
			ID:        c.User.ID,
			Email:     c.User.Email,
			Name:      c.User.Name,
			Handle:    c.User.Handle,
			AvatarURL: c.User.AvatarURL,
			Role:      string(c.Role),
			GrantedAt: c.Collaboration.CreatedAt,
		}
	}
	return &CollaboratorListResponse{Data: responses}
}
