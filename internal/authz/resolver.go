// Package authz resolves the effective role a requester holds over a drop
// by combining ownership, global collaboration grants, bundle-scoped
// grants, and anonymous access levels.
package authz

import (
	"github.com/qelal/qelal/internal/model"
)

// Role is the effective role of a requester over one drop.
type Role string

const (
	RoleOwner   Role = "owner"
	RoleManager Role = "manager"
	RoleAnalyst Role = "analyst"
	RoleViewer  Role = "viewer"
	RoleNone    Role = "none"
)

// Decision is the outcome of role resolution.
type Decision struct {
	Role Role
	// CanEditContent covers title, description, items, styling and meta
	// fields. Permission-locked fields (slug, password, cap, expiry,
	// cloak, access level, token rotation) additionally require
	// CanManage.
	CanEditContent bool
}

// CanManage reports whether permission-locked fields may be changed.
func (d Decision) CanManage() bool {
	return d.Role == RoleOwner || d.Role == RoleManager
}

// CanViewStats reports whether analytics may be read.
func (d Decision) CanViewStats() bool {
	return d.Role == RoleOwner || d.Role == RoleManager || d.Role == RoleAnalyst
}

// Resolve computes the effective role for userID (nil = anonymous) over
// drop. collabs must be the collaboration rows where the requester is the
// collaborator; rows for other users are ignored.
//
// Rules are evaluated in strict order, first match wins:
//  1. direct ownership
//  2. the drop's owner is in the requester's eligible-owner pool
//     (themselves plus every owner who granted them a global collaboration)
//  3. a collaboration scoped to this specific bundle
//  4. the bundle's anonymous access level
//  5. none
//
// A pool-derived manager role is never downgraded by a weaker
// bundle-scoped row; the specific lookup only applies when the pool did
// not already match.
func Resolve(userID *int64, drop *model.Drop, collabs []model.Collaboration) Decision {
	if drop == nil {
		return Decision{Role: RoleNone}
	}

	if userID != nil {
		if drop.OwnedBy(*userID) {
			return Decision{Role: RoleOwner, CanEditContent: true}
		}

		if drop.OwnerID != nil && inEligiblePool(*userID, *drop.OwnerID, collabs) {
			return Decision{Role: RoleManager, CanEditContent: true}
		}

		if drop.IsBundle() {
			if row := bundleGrant(*userID, drop.ID, collabs); row != nil {
				if row.Role == model.CollabManager {
					return Decision{Role: RoleManager, CanEditContent: true}
				}
				// Analysts read analytics only; the anonymous edit
				// path does not apply to them.
				return Decision{Role: RoleAnalyst}
			}
		}
	}

	// Anonymous or otherwise unauthorized requesters fall through to the
	// bundle's access level. SingleLinks have no public access path.
	if drop.IsBundle() {
		switch drop.AccessLevel {
		case model.AccessView:
			return Decision{Role: RoleViewer}
		case model.AccessEdit:
			return Decision{Role: RoleViewer, CanEditContent: true}
		}
	}

	return Decision{Role: RoleNone}
}

// inEligiblePool reports whether targetOwner is the requester themselves
// or any owner who granted the requester a global collaboration.
func inEligiblePool(userID, targetOwner int64, collabs []model.Collaboration) bool {
	if targetOwner == userID {
		return true
	}
	for _, c := range collabs {
		if c.CollaboratorID != userID || !c.IsGlobal() {
			continue
		}
		if c.OwnerID == targetOwner {
			return true
		}
	}
	return false
}

// bundleGrant returns the collaboration scoped to exactly this bundle,
// if one exists for the requester.
func bundleGrant(userID, bundleID int64, collabs []model.Collaboration) *model.Collaboration {
	for i := range collabs {
		c := &collabs[i]
		if c.CollaboratorID == userID && c.Covers(bundleID) {
			return c
		}
	}
	return nil
}

// MatchToken resolves which role a presented join token grants on a
// bundle. Returns the zero role and false when the token matches neither
// stored secret.
func MatchToken(bundle *model.Drop, token string) (model.CollabRole, bool) {
	if !bundle.IsBundle() || token == "" {
		return "", false
	}
	if tokenEqual(token, bundle.ManagerToken) {
		return model.CollabManager, true
	}
	if tokenEqual(token, bundle.AnalystToken) {
		return model.CollabAnalyst, true
	}
	return "", false
}
