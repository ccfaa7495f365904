package service

import (
	"context"
	"errors"
	"testing"

	"github.com/qelal/qelal/internal/authz"
	"github.com/qelal/qelal/internal/model"
)

func newCollabFixture(t *testing.T) (*CollabService, *fakeStore, *model.Drop) {
	t.Helper()

	store := newFakeStore()
	store.addUser(&model.User{ID: 1, Email: "owner@example.com", Name: "Owner"})
	store.addUser(&model.User{ID: 2, Email: "friend@example.com", Name: "Friend"})
	store.addUser(&model.User{ID: 3, Email: "third@example.com", Name: "Third"})

	drops, _, _ := newDropService(store)
	bundle, err := drops.CreateBundle(context.Background(), int64Ptr(1), CreateBundleInput{Title: "Shared links"})
	if err != nil {
		t.Fatalf("failed to create bundle: %v", err)
	}

	svc := NewCollabService(store, store, store, store, testLogger())
	return svc, store, bundle
}

func TestInvite(t *testing.T) {
	svc, store, bundle := newCollabFixture(t)
	ctx := context.Background()

	collab, err := svc.Invite(ctx, 1, bundle.Slug, "friend@example.com", model.CollabManager)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if collab.CollaboratorID != 2 || collab.Role != model.CollabManager {
		t.Errorf("unexpected grant: %+v", collab)
	}
	if collab.BundleID == nil || *collab.BundleID != bundle.ID {
		t.Error("grant should be scoped to the bundle")
	}

	if len(store.notices) != 1 || store.notices[0].UserID != 2 {
		t.Errorf("expected invite notification for user 2, got %+v", store.notices)
	}
	if store.notices[0].Type != model.NotificationCollabInvite {
		t.Errorf("notification type = %s", store.notices[0].Type)
	}
}

func TestInvite_Errors(t *testing.T) {
	svc, _, bundle := newCollabFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		userID int64
		slug   string
		email  string
		role   model.CollabRole
		want   error
	}{
		{"bad_role", 1, bundle.Slug, "friend@example.com", "admin", ErrInvalidRole},
		{"self_invite", 1, bundle.Slug, "owner@example.com", model.CollabManager, ErrSelfInvite},
		{"unknown_email", 1, bundle.Slug, "nobody@example.com", model.CollabAnalyst, ErrCollaboratorNotFound},
		{"unknown_bundle", 1, "missing", "friend@example.com", model.CollabManager, ErrDropNotFound},
		{"not_manager", 3, bundle.Slug, "friend@example.com", model.CollabManager, ErrNotAuthorized},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := svc.Invite(ctx, test.userID, test.slug, test.email, test.role)
			if !errors.Is(err, test.want) {
				t.Errorf("got %v, want %v", err, test.want)
			}
		})
	}
}

func TestInvite_Duplicate(t *testing.T) {
	svc, _, bundle := newCollabFixture(t)
	ctx := context.Background()

	if _, err := svc.Invite(ctx, 1, bundle.Slug, "friend@example.com", model.CollabAnalyst); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := svc.Invite(ctx, 1, bundle.Slug, "friend@example.com", model.CollabManager)
	if !errors.Is(err, ErrDuplicateGrant) {
		t.Errorf("got %v, want ErrDuplicateGrant", err)
	}
}

func TestInvite_ManagerMayInvite(t *testing.T) {
	svc, _, bundle := newCollabFixture(t)
	ctx := context.Background()

	if _, err := svc.Invite(ctx, 1, bundle.Slug, "friend@example.com", model.CollabManager); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A bundle-scoped manager can invite further collaborators.
	if _, err := svc.Invite(ctx, 2, bundle.Slug, "third@example.com", model.CollabAnalyst); err != nil {
		t.Errorf("manager invite: %v", err)
	}
}

func TestInviteGlobal(t *testing.T) {
	svc, store, bundle := newCollabFixture(t)
	ctx := context.Background()

	// Empty bundle slug grants account-wide access.
	collab, err := svc.Invite(ctx, 1, "", "friend@example.com", model.CollabManager)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !collab.IsGlobal() {
		t.Fatalf("grant should be account-wide: %+v", collab)
	}
	if collab.OwnerID != 1 || collab.CollaboratorID != 2 {
		t.Errorf("unexpected grant: %+v", collab)
	}

	if len(store.notices) != 1 || store.notices[0].UserID != 2 {
		t.Errorf("expected invite notification for user 2, got %+v", store.notices)
	}

	// The grant makes the holder a manager of every bundle the owner has.
	drops, _, _ := newDropService(store)
	_, decision, err := drops.GetDrop(ctx, int64Ptr(2), bundle.Slug)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Role != authz.RoleManager || !decision.CanEditContent {
		t.Errorf("decision = %+v, want manager with content edit", decision)
	}
}

func TestInviteGlobal_Errors(t *testing.T) {
	svc, _, _ := newCollabFixture(t)
	ctx := context.Background()

	if _, err := svc.Invite(ctx, 1, "", "owner@example.com", model.CollabManager); !errors.Is(err, ErrSelfInvite) {
		t.Errorf("self invite: got %v, want ErrSelfInvite", err)
	}
	if _, err := svc.Invite(ctx, 1, "", "nobody@example.com", model.CollabAnalyst); !errors.Is(err, ErrCollaboratorNotFound) {
		t.Errorf("unknown email: got %v, want ErrCollaboratorNotFound", err)
	}

	if _, err := svc.Invite(ctx, 1, "", "friend@example.com", model.CollabManager); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Invite(ctx, 1, "", "friend@example.com", model.CollabAnalyst); !errors.Is(err, ErrDuplicateGrant) {
		t.Errorf("duplicate: got %v, want ErrDuplicateGrant", err)
	}
}

func TestRemoveGlobal(t *testing.T) {
	svc, store, _ := newCollabFixture(t)
	ctx := context.Background()

	if _, err := svc.Invite(ctx, 1, "", "friend@example.com", model.CollabManager); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := svc.RemoveGlobal(ctx, 1, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.grants) != 0 {
		t.Error("grant should be gone")
	}

	if err := svc.RemoveGlobal(ctx, 1, 2); !errors.Is(err, ErrCollaboratorNotFound) {
		t.Errorf("second remove: got %v, want ErrCollaboratorNotFound", err)
	}
}

func TestLeaveAccount(t *testing.T) {
	svc, store, _ := newCollabFixture(t)
	ctx := context.Background()

	if _, err := svc.Invite(ctx, 1, "", "friend@example.com", model.CollabAnalyst); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := svc.LeaveAccount(ctx, 2, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.grants) != 0 {
		t.Error("grant should be gone")
	}

	// The owner is told.
	last := store.notices[len(store.notices)-1]
	if last.UserID != 1 || last.Type != model.NotificationCollabRemoved {
		t.Errorf("expected leave notification for owner, got %+v", last)
	}
}

func TestListAccountCollaborators(t *testing.T) {
	svc, _, _ := newCollabFixture(t)
	ctx := context.Background()

	if _, err := svc.Invite(ctx, 1, "", "friend@example.com", model.CollabManager); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Invite(ctx, 1, "", "third@example.com", model.CollabAnalyst); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	collaborators, err := svc.ListAccountCollaborators(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(collaborators) != 2 {
		t.Fatalf("collaborators = %d, want 2", len(collaborators))
	}
	for _, c := range collaborators {
		if !c.Collaboration.IsGlobal() {
			t.Errorf("expected account-wide grant, got %+v", c.Collaboration)
		}
	}
}

func TestJoinViaToken(t *testing.T) {
	svc, store, bundle := newCollabFixture(t)
	ctx := context.Background()

	collab, joined, err := svc.JoinViaToken(ctx, 2, bundle.Slug, bundle.AnalystToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if joined.ID != bundle.ID {
		t.Error("expected the joined bundle back")
	}
	if collab.Role != model.CollabAnalyst {
		t.Errorf("role = %s, want analyst", collab.Role)
	}

	// The owner is notified.
	if len(store.notices) != 1 || store.notices[0].UserID != 1 {
		t.Errorf("expected join notification for owner, got %+v", store.notices)
	}
}

func TestJoinViaToken_Idempotent(t *testing.T) {
	svc, _, bundle := newCollabFixture(t)
	ctx := context.Background()

	first, _, err := svc.JoinViaToken(ctx, 2, bundle.Slug, bundle.AnalystToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Re-joining, even with the stronger token, returns the existing
	// grant unchanged.
	second, _, err := svc.JoinViaToken(ctx, 2, bundle.Slug, bundle.ManagerToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if second.ID != first.ID || second.Role != model.CollabAnalyst {
		t.Errorf("rejoin changed the grant: %+v", second)
	}
}

func TestJoinViaToken_InvalidToken(t *testing.T) {
	svc, _, bundle := newCollabFixture(t)

	_, _, err := svc.JoinViaToken(context.Background(), 2, bundle.Slug, "bogus")
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("got %v, want ErrInvalidToken", err)
	}
}

func TestJoinViaToken_OwnerNeedsNoGrant(t *testing.T) {
	svc, store, bundle := newCollabFixture(t)

	collab, joined, err := svc.JoinViaToken(context.Background(), 1, bundle.Slug, bundle.ManagerToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if collab != nil {
		t.Error("owner join should not create a grant")
	}
	if joined == nil || len(store.grants) != 0 {
		t.Error("owner join should return the bundle and leave grants empty")
	}
}

func TestRemove(t *testing.T) {
	svc, store, bundle := newCollabFixture(t)
	ctx := context.Background()

	if _, err := svc.Invite(ctx, 1, bundle.Slug, "friend@example.com", model.CollabAnalyst); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := svc.Remove(ctx, 1, bundle.Slug, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.grants) != 0 {
		t.Error("grant should be gone")
	}

	if err := svc.Remove(ctx, 1, bundle.Slug, 2); !errors.Is(err, ErrCollaboratorNotFound) {
		t.Errorf("second remove: got %v, want ErrCollaboratorNotFound", err)
	}
}

func TestRemove_SelfRemoval(t *testing.T) {
	svc, store, bundle := newCollabFixture(t)
	ctx := context.Background()

	if _, err := svc.Invite(ctx, 1, bundle.Slug, "friend@example.com", model.CollabAnalyst); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// An analyst cannot remove others.
	if err := svc.Remove(ctx, 2, bundle.Slug, 3); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("analyst removing another: got %v, want ErrNotAuthorized", err)
	}

	// But may always revoke their own grant.
	if err := svc.Remove(ctx, 2, bundle.Slug, 2); err != nil {
		t.Fatalf("self removal: %v", err)
	}
	if len(store.grants) != 0 {
		t.Error("grant should be gone")
	}

	// The owner learns about the departure.
	last := store.notices[len(store.notices)-1]
	if last.UserID != 1 || last.Type != model.NotificationCollabRemoved {
		t.Errorf("expected leave notification for owner, got %+v", last)
	}
}

func TestRotateTokens(t *testing.T) {
	svc, _, bundle := newCollabFixture(t)
	ctx := context.Background()

	oldManager, oldAnalyst := bundle.ManagerToken, bundle.AnalystToken

	rotated, err := svc.RotateTokens(ctx, 1, bundle.Slug)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rotated.ManagerToken == oldManager || rotated.AnalystToken == oldAnalyst {
		t.Error("tokens should change on rotation")
	}

	// The old token no longer joins.
	if _, _, err := svc.JoinViaToken(ctx, 2, bundle.Slug, oldAnalyst); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("old token join: got %v, want ErrInvalidToken", err)
	}
}

func TestListCollaborators(t *testing.T) {
	svc, _, bundle := newCollabFixture(t)
	ctx := context.Background()

	if _, err := svc.Invite(ctx, 1, bundle.Slug, "friend@example.com", model.CollabManager); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Invite(ctx, 1, bundle.Slug, "third@example.com", model.CollabAnalyst); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	collaborators, err := svc.ListCollaborators(ctx, 1, bundle.Slug)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(collaborators) != 2 {
		t.Fatalf("collaborators = %d, want 2", len(collaborators))
	}

	roles := map[string]model.CollabRole{}
	for _, c := range collaborators {
		roles[c.User.Email] = c.Role
	}
	if roles["friend@example.com"] != model.CollabManager || roles["third@example.com"] != model.CollabAnalyst {
		t.Errorf("unexpected roles: %v", roles)
	}
}
