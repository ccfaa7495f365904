//go:build integration

package repository

import (
	"errors"
	"testing"

	"github.com/qelal/qelal/internal/testutil"
)

func TestIntegrationUserRepository_UpsertTwoDistinctUsers(t *testing.T) {
	ctx, repo := newTestEnv(t)

	first, err := repo.UpsertUserByExternalID(ctx, testutil.NewTestUser(t, "first"))
	if err != nil {
		t.Fatalf("UpsertUserByExternalID (first) failed: %v", err)
	}

	// A second account with no handle yet must not collide with the
	// first one's unclaimed handle.
	second, err := repo.UpsertUserByExternalID(ctx, testutil.NewTestUser(t, "second"))
	if err != nil {
		t.Fatalf("UpsertUserByExternalID (second) failed: %v", err)
	}

	if first.ID == second.ID {
		t.Errorf("distinct users share ID %d", first.ID)
	}
	if first.Handle != "" || second.Handle != "" {
		t.Errorf("fresh users should have empty handles, got %q and %q", first.Handle, second.Handle)
	}
}

func TestIntegrationUserRepository_UpsertRefreshesProfile(t *testing.T) {
	ctx, repo := newTestEnv(t)

	user := testutil.NewTestUser(t, "refresh")
	created, err := repo.UpsertUserByExternalID(ctx, user)
	if err != nil {
		t.Fatalf("UpsertUserByExternalID failed: %v", err)
	}

	if err := repo.SetUserHandle(ctx, created.ID, "kept-handle"); err != nil {
		t.Fatalf("SetUserHandle failed: %v", err)
	}

	user.Name = "Renamed"
	user.AvatarURL = "https://example.com/avatar.png"

	updated, err := repo.UpsertUserByExternalID(ctx, user)
	if err != nil {
		t.Fatalf("UpsertUserByExternalID (repeat) failed: %v", err)
	}

	if updated.ID != created.ID {
		t.Errorf("repeat login changed ID: got %d, want %d", updated.ID, created.ID)
	}
	if updated.Name != "Renamed" || updated.AvatarURL != "https://example.com/avatar.png" {
		t.Errorf("profile not refreshed: %+v", updated)
	}
	if updated.Handle != "kept-handle" {
		t.Errorf("handle overwritten on repeat login: %q", updated.Handle)
	}
}

func TestIntegrationUserRepository_SetUserHandle_Duplicate(t *testing.T) {
	ctx, repo := newTestEnv(t)

	first, err := repo.UpsertUserByExternalID(ctx, testutil.NewTestUser(t, "holder"))
	if err != nil {
		t.Fatalf("UpsertUserByExternalID failed: %v", err)
	}
	second, err := repo.UpsertUserByExternalID(ctx, testutil.NewTestUser(t, "claimer"))
	if err != nil {
		t.Fatalf("UpsertUserByExternalID failed: %v", err)
	}

	if err := repo.SetUserHandle(ctx, first.ID, "taken"); err != nil {
		t.Fatalf("SetUserHandle failed: %v", err)
	}

	err = repo.SetUserHandle(ctx, second.ID, "taken")
	if !errors.Is(err, ErrHandleExists) {
		t.Errorf("expected ErrHandleExists, got: %v", err)
	}
}
