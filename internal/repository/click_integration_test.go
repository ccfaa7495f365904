//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/qelal/qelal/internal/model"
	"github.com/qelal/qelal/internal/testutil"
)

func newStatsLink(t *testing.T, ctx context.Context, repo *Repository) *model.Drop {
	t.Helper()
	link := &model.Drop{
		Variant: model.VariantLink,
		Slug:    testutil.UniqueID("stats"),
		LongURL: "https://example.com/stats",
	}
	if err := repo.CreateLink(ctx, link, func(int64) string { return link.Slug }); err != nil {
		t.Fatalf("CreateLink failed: %v", err)
	}
	return link
}

func TestIntegrationClickRepository_HourlyBuckets(t *testing.T) {
	ctx, repo := newTestEnv(t)
	link := newStatsLink(t, ctx, repo)

	day := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	clicks := []*model.Click{
		testutil.NewTestClick(t, &link.ID, nil, day.Add(10*time.Hour+5*time.Minute)),
		testutil.NewTestClick(t, &link.ID, nil, day.Add(10*time.Hour+47*time.Minute)),
		testutil.NewTestClick(t, &link.ID, nil, day.Add(11*time.Hour+2*time.Minute)),
	}
	if err := repo.BulkInsertClicks(ctx, clicks); err != nil {
		t.Fatalf("BulkInsertClicks failed: %v", err)
	}

	stats, err := repo.GetStats(ctx, model.VariantLink, link.ID)
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}

	if stats.TotalClicks != 3 {
		t.Errorf("TotalClicks = %d, want 3", stats.TotalClicks)
	}
	if len(stats.History) != 2 {
		t.Fatalf("buckets = %d, want 2 (%+v)", len(stats.History), stats.History)
	}
	if !stats.History[0].Hour.Equal(day.Add(10*time.Hour)) || stats.History[0].Count != 2 {
		t.Errorf("first bucket = %+v, want 10:00 x2", stats.History[0])
	}
	if !stats.History[1].Hour.Equal(day.Add(11*time.Hour)) || stats.History[1].Count != 1 {
		t.Errorf("second bucket = %+v, want 11:00 x1", stats.History[1])
	}
}

func TestIntegrationClickRepository_BulkInsert_Idempotent(t *testing.T) {
	ctx, repo := newTestEnv(t)
	link := newStatsLink(t, ctx, repo)

	click := testutil.NewTestClick(t, &link.ID, nil, time.Now().UTC())
	if err := repo.BulkInsertClicks(ctx, []*model.Click{click}); err != nil {
		t.Fatalf("BulkInsertClicks failed: %v", err)
	}

	// Stream redelivery: same event ID, fresh row ID.
	redelivered := *click
	redelivered.ID = testutil.UniqueID("click")
	if err := repo.BulkInsertClicks(ctx, []*model.Click{&redelivered}); err != nil {
		t.Fatalf("BulkInsertClicks (redelivery) failed: %v", err)
	}

	stats, err := repo.GetStats(ctx, model.VariantLink, link.ID)
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.TotalClicks != 1 {
		t.Errorf("TotalClicks = %d, want 1 after redelivery", stats.TotalClicks)
	}
}

func TestIntegrationClickRepository_TopReferers(t *testing.T) {
	ctx, repo := newTestEnv(t)
	link := newStatsLink(t, ctx, repo)

	now := time.Now().UTC()
	var clicks []*model.Click

	// Two clicks without a referer bucket as Direct, two from one site,
	// and five single-click sites to push one of them off the top five.
	for i := 0; i < 2; i++ {
		clicks = append(clicks, testutil.NewTestClick(t, &link.ID, nil, now))
	}
	for i := 0; i < 2; i++ {
		c := testutil.NewTestClick(t, &link.ID, nil, now)
		c.Referer = "https://popular.example"
		clicks = append(clicks, c)
	}
	for _, site := range []string{"a", "b", "c", "d", "e"} {
		c := testutil.NewTestClick(t, &link.ID, nil, now)
		c.Referer = "https://" + site + ".example"
		clicks = append(clicks, c)
	}

	if err := repo.BulkInsertClicks(ctx, clicks); err != nil {
		t.Fatalf("BulkInsertClicks failed: %v", err)
	}

	stats, err := repo.GetStats(ctx, model.VariantLink, link.ID)
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}

	if len(stats.TopReferers) != 5 {
		t.Fatalf("top referers = %d, want 5 (%+v)", len(stats.TopReferers), stats.TopReferers)
	}
	if stats.TopReferers[0].Referer != "Direct" && stats.TopReferers[0].Referer != "https://popular.example" {
		t.Errorf("leader = %+v, want Direct or popular.example", stats.TopReferers[0])
	}

	counts := map[string]int64{}
	for _, r := range stats.TopReferers {
		counts[r.Referer] = r.Count
	}
	if counts["Direct"] != 2 {
		t.Errorf("Direct count = %d, want 2", counts["Direct"])
	}
	if counts["https://popular.example"] != 2 {
		t.Errorf("popular.example count = %d, want 2", counts["https://popular.example"])
	}
}

func TestIntegrationClickRepository_Prune(t *testing.T) {
	ctx, repo := newTestEnv(t)
	link := newStatsLink(t, ctx, repo)

	now := time.Now().UTC()
	old := testutil.NewTestClick(t, &link.ID, nil, now.Add(-48*time.Hour))
	fresh := testutil.NewTestClick(t, &link.ID, nil, now)
	if err := repo.BulkInsertClicks(ctx, []*model.Click{old, fresh}); err != nil {
		t.Fatalf("BulkInsertClicks failed: %v", err)
	}

	removed, err := repo.PruneClicksBefore(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("PruneClicksBefore failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}

	stats, err := repo.GetStats(ctx, model.VariantLink, link.ID)
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.TotalClicks != 1 {
		t.Errorf("TotalClicks = %d, want 1 after prune", stats.TotalClicks)
	}
}
