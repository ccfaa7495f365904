package repository

import (
	"testing"
	"time"

	"github.com/qelal/qelal/internal/model"
)

func TestNullableSlug(t *testing.T) {
	t.Parallel()

	if got := nullableSlug(""); got != nil {
		t.Errorf("empty slug should map to nil, got %v", got)
	}

	if got := nullableSlug("abc"); got != "abc" {
		t.Errorf("non-empty slug should pass through, got %v", got)
	}
}

func TestNullableString(t *testing.T) {
	t.Parallel()

	if got := nullableString(""); got != nil {
		t.Errorf("empty string should map to nil, got %v", got)
	}

	if got := nullableString("https://ref.example"); got != "https://ref.example" {
		t.Errorf("non-empty string should pass through, got %v", got)
	}
}

func TestSortDropsNewestFirst(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	drops := []*model.Drop{
		{Slug: "old", CreatedAt: base},
		{Slug: "newest", CreatedAt: base.Add(2 * time.Hour)},
		{Slug: "middle", CreatedAt: base.Add(time.Hour)},
	}

	sortDropsNewestFirst(drops)

	want := []string{"newest", "middle", "old"}
	for i, slug := range want {
		if drops[i].Slug != slug {
			t.Errorf("position %d = %s, want %s", i, drops[i].Slug, slug)
		}
	}
}

func TestSortDropsNewestFirst_Empty(t *testing.T) {
	t.Parallel()

	sortDropsNewestFirst(nil)
	sortDropsNewestFirst([]*model.Drop{})
}
