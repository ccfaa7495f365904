package model

import (
	"testing"
	"time"
)

func TestDrop_IsExpiredAt(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	limit := int64(10)

	tests := []struct {
		name string
		drop Drop
		want bool
	}{
		{"no expiry no cap", Drop{}, false},
		{"future expiry", Drop{ExpiresAt: &future}, false},
		{"past expiry", Drop{ExpiresAt: &past}, true},
		{"under cap", Drop{Clicks: 9, MaxClicks: &limit}, false},
		{"at cap", Drop{Clicks: 10, MaxClicks: &limit}, true},
		{"over cap", Drop{Clicks: 11, MaxClicks: &limit}, true},
		{"past expiry and under cap", Drop{ExpiresAt: &past, Clicks: 1, MaxClicks: &limit}, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.drop.IsExpiredAt(now); got != tt.want {
				t.Errorf("IsExpiredAt() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDrop_HasPasswordAndMeta(t *testing.T) {
	t.Parallel()

	d := Drop{}
	if d.HasPassword() {
		t.Error("empty hash should not count as password")
	}
	if d.HasMeta() {
		t.Error("empty meta fields should not count as meta")
	}

	d.PasswordHash = "$argon2id$..."
	d.MetaDescription = "launch"

	if !d.HasPassword() {
		t.Error("HasPassword() = false with hash set")
	}
	if !d.HasMeta() {
		t.Error("HasMeta() = false with description set")
	}
}

func TestAccessLevel_IsValid(t *testing.T) {
	t.Parallel()

	valid := []AccessLevel{AccessRestricted, AccessView, AccessEdit}
	for _, level := range valid {
		if !level.IsValid() {
			t.Errorf("%q should be valid", level)
		}
	}
	if AccessLevel("public").IsValid() {
		t.Error("unknown level should be invalid")
	}
}

func TestCollabRole_IsValid(t *testing.T) {
	t.Parallel()

	if !CollabManager.IsValid() || !CollabAnalyst.IsValid() {
		t.Error("known roles should be valid")
	}
	if CollabRole("owner").IsValid() {
		t.Error("owner is not a grantable role")
	}
}

func TestCollaboration_Covers(t *testing.T) {
	t.Parallel()

	bundleID := int64(7)
	global := Collaboration{OwnerID: 1, CollaboratorID: 2}
	scoped := Collaboration{OwnerID: 1, CollaboratorID: 2, BundleID: &bundleID}

	if !global.IsGlobal() {
		t.Error("grant without bundle should be global")
	}
	if scoped.IsGlobal() {
		t.Error("scoped grant should not be global")
	}

	if global.Covers(7) {
		t.Error("global grants are resolved separately, not via Covers")
	}
	if !scoped.Covers(7) {
		t.Error("scoped grant should cover its bundle")
	}
	if scoped.Covers(8) {
		t.Error("scoped grant should not cover other bundles")
	}
}
