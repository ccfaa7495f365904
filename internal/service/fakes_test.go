package service

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/qelal/qelal/internal/analytics"
	"github.com/qelal/qelal/internal/model"
	"github.com/qelal/qelal/internal/repository"
)

// fakeStore is an in-memory stand-in for the repository used by the
// service tests.
type fakeStore struct {
	mu      sync.Mutex
	nextID  int64
	drops   map[string]*model.Drop // keyed by slug
	grants  []model.Collaboration
	users   map[int64]*model.User
	notices []model.Notification
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		drops: make(map[string]*model.Drop),
		users: make(map[int64]*model.User),
	}
}

func (f *fakeStore) addUser(u *model.User) {
	f.users[u.ID] = u
}

func (f *fakeStore) GetDropBySlug(_ context.Context, slug string) (*model.Drop, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d, ok := f.drops[slug]; ok {
		copied := *d
		return &copied, nil
	}
	return nil, repository.ErrDropNotFound
}

func (f *fakeStore) SlugExists(_ context.Context, slug string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.drops[slug]
	return ok, nil
}

func (f *fakeStore) CreateLink(_ context.Context, drop *model.Drop, mint func(int64) string) error {
	return f.insert(drop, model.VariantLink, mint)
}

func (f *fakeStore) CreateBundle(_ context.Context, drop *model.Drop, mint func(int64) string) error {
	return f.insert(drop, model.VariantBundle, mint)
}

func (f *fakeStore) insert(drop *model.Drop, variant model.DropVariant, mint func(int64) string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	drop.ID = f.nextID
	drop.Variant = variant
	if drop.Slug == "" {
		drop.Slug = mint(drop.ID)
	}
	if _, ok := f.drops[drop.Slug]; ok {
		return repository.ErrSlugExists
	}

	copied := *drop
	f.drops[drop.Slug] = &copied
	return nil
}

func (f *fakeStore) UpdateLink(_ context.Context, drop *model.Drop) error {
	return f.update(drop)
}

func (f *fakeStore) UpdateBundle(_ context.Context, drop *model.Drop) error {
	return f.update(drop)
}

func (f *fakeStore) update(drop *model.Drop) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for slug, existing := range f.drops {
		if existing.ID == drop.ID && existing.Variant == drop.Variant {
			if slug != drop.Slug {
				if _, taken := f.drops[drop.Slug]; taken {
					return repository.ErrSlugExists
				}
				delete(f.drops, slug)
			}
			copied := *drop
			f.drops[drop.Slug] = &copied
			return nil
		}
	}
	return repository.ErrDropNotFound
}

func (f *fakeStore) DeleteDrop(_ context.Context, variant model.DropVariant, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for slug, existing := range f.drops {
		if existing.ID == id && existing.Variant == variant {
			delete(f.drops, slug)
			return nil
		}
	}
	return repository.ErrDropNotFound
}

func (f *fakeStore) RegisterClick(_ context.Context, variant model.DropVariant, id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, existing := range f.drops {
		if existing.ID == id && existing.Variant == variant {
			if existing.MaxClicks != nil && existing.Clicks >= *existing.MaxClicks {
				return false, nil
			}
			existing.Clicks++
			return true, nil
		}
	}
	return false, repository.ErrDropNotFound
}

func (f *fakeStore) ListDropsByOwner(_ context.Context, ownerID int64) ([]*model.Drop, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*model.Drop
	for _, d := range f.drops {
		if d.OwnerID != nil && *d.OwnerID == ownerID {
			copied := *d
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeStore) ListBundlesByIDs(_ context.Context, ids []int64) ([]*model.Drop, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*model.Drop
	for _, d := range f.drops {
		if d.Variant != model.VariantBundle {
			continue
		}
		for _, id := range ids {
			if d.ID == id {
				copied := *d
				out = append(out, &copied)
			}
		}
	}
	return out, nil
}

func (f *fakeStore) CreateCollaboration(_ context.Context, collab *model.Collaboration) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, existing := range f.grants {
		if existing.OwnerID == collab.OwnerID &&
			existing.CollaboratorID == collab.CollaboratorID &&
			sameBundle(existing.BundleID, collab.BundleID) {
			return repository.ErrDuplicateGrant
		}
	}

	collab.ID = int64(len(f.grants) + 1)
	f.grants = append(f.grants, *collab)
	return nil
}

func sameBundle(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (f *fakeStore) GetCollaboration(_ context.Context, ownerID, collaboratorID int64, bundleID *int64) (*model.Collaboration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.grants {
		g := f.grants[i]
		if g.OwnerID == ownerID && g.CollaboratorID == collaboratorID && sameBundle(g.BundleID, bundleID) {
			return &g, nil
		}
	}
	return nil, repository.ErrGrantNotFound
}

func (f *fakeStore) DeleteCollaboration(_ context.Context, ownerID, collaboratorID int64, bundleID *int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.grants {
		g := f.grants[i]
		if g.OwnerID == ownerID && g.CollaboratorID == collaboratorID && sameBundle(g.BundleID, bundleID) {
			f.grants = append(f.grants[:i], f.grants[i+1:]...)
			return nil
		}
	}
	return repository.ErrGrantNotFound
}

func (f *fakeStore) ListCollaborationsByBundle(_ context.Context, bundleID int64) ([]model.Collaboration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []model.Collaboration
	for _, g := range f.grants {
		if g.BundleID != nil && *g.BundleID == bundleID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeStore) ListGlobalCollaborationsByOwner(_ context.Context, ownerID int64) ([]model.Collaboration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []model.Collaboration
	for _, g := range f.grants {
		if g.OwnerID == ownerID && g.BundleID == nil {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeStore) ListCollaborationsByCollaborator(_ context.Context, collaboratorID int64) ([]model.Collaboration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []model.Collaboration
	for _, g := range f.grants {
		if g.CollaboratorID == collaboratorID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeStore) GetUserByID(_ context.Context, id int64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, repository.ErrUserNotFound
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (f *fakeStore) CreateNotification(_ context.Context, n *model.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	n.ID = int64(len(f.notices) + 1)
	f.notices = append(f.notices, *n)
	return nil
}

// fakeSlugCache records negative cache traffic.
type fakeSlugCache struct {
	mu       sync.Mutex
	negative map[string]bool
}

func newFakeSlugCache() *fakeSlugCache {
	return &fakeSlugCache{negative: make(map[string]bool)}
}

func (f *fakeSlugCache) IsNegativelyCached(_ context.Context, slug string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.negative[slug], nil
}

func (f *fakeSlugCache) SetNegativeCache(_ context.Context, slug string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.negative[slug] = true
	return nil
}

func (f *fakeSlugCache) InvalidateSlug(_ context.Context, slug string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.negative, slug)
	return nil
}

// fakePublisher collects published click events synchronously.
type fakePublisher struct {
	mu     sync.Mutex
	events []analytics.ClickEventPayload
}

func (f *fakePublisher) PublishAsync(event analytics.ClickEventPayload) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
