// Package model defines domain entities for the application.
package model

import "time"

// CollabRole is the role a collaboration grants.
type CollabRole string

const (
	CollabManager CollabRole = "manager"
	CollabAnalyst CollabRole = "analyst"
)

// IsValid checks if the role is one of the grantable roles.
func (r CollabRole) IsValid() bool {
	return r == CollabManager || r == CollabAnalyst
}

// Collaboration grants a collaborator a role over an owner's drops.
// BundleID nil means the grant covers the owner's entire account;
// otherwise it is scoped to one bundle. At most one row exists per
// (owner, collaborator, bundle) triple.
type Collaboration struct {
	ID             int64      `json:"id"`
	OwnerID        int64      `json:"owner_id"`
	CollaboratorID int64      `json:"collaborator_id"`
	Role           CollabRole `json:"role"`
	BundleID       *int64     `json:"bundle_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// IsGlobal reports whether the grant covers the owner's whole account.
func (c *Collaboration) IsGlobal() bool {
	return c.BundleID == nil
}

// Covers reports whether the grant applies to the given bundle.
func (c *Collaboration) Covers(bundleID int64) bool {
	return c.BundleID != nil && *c.BundleID == bundleID
}
