package service

import (
	"context"
	"testing"
	"time"

	"github.com/qelal/qelal/internal/auth"
	"github.com/qelal/qelal/internal/cache"
	"github.com/qelal/qelal/internal/model"
	"github.com/qelal/qelal/internal/repository"
)

type fakeVerifier struct {
	identity *auth.Identity
	err      error
}

func (f fakeVerifier) Verify(_ context.Context, _ string) (*auth.Identity, error) {
	return f.identity, f.err
}

type fakeUserStore struct {
	usersByExternal map[string]*model.User
	usersByID       map[int64]*model.User
	handles         map[string]int64
	nextID          int64
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		usersByExternal: make(map[string]*model.User),
		usersByID:       make(map[int64]*model.User),
		handles:         make(map[string]int64),
		nextID:          1,
	}
}

func (f *fakeUserStore) UpsertUserByExternalID(_ context.Context, user *model.User) (*model.User, error) {
	if existing, ok := f.usersByExternal[user.ExternalID]; ok {
		existing.Email = user.Email
		existing.Name = user.Name
		existing.AvatarURL = user.AvatarURL
		return existing, nil
	}

	stored := *user
	stored.ID = f.nextID
	stored.CreatedAt = time.Now().UTC()
	f.nextID++
	f.usersByExternal[stored.ExternalID] = &stored
	f.usersByID[stored.ID] = &stored
	return &stored, nil
}

func (f *fakeUserStore) GetUserByID(_ context.Context, id int64) (*model.User, error) {
	if u, ok := f.usersByID[id]; ok {
		return u, nil
	}
	return nil, repository.ErrUserNotFound
}

func (f *fakeUserStore) SetUserHandle(_ context.Context, userID int64, handle string) error {
	if owner, taken := f.handles[handle]; taken && owner != userID {
		return repository.ErrHandleExists
	}
	u, ok := f.usersByID[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	f.handles[handle] = userID
	u.Handle = handle
	return nil
}

type fakeSessionStore struct {
	sessions map[string]*cache.Session
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[string]*cache.Session)}
}

func (f *fakeSessionStore) SetSession(_ context.Context, token string, session *cache.Session, _ time.Duration) error {
	f.sessions[token] = session
	return nil
}

func (f *fakeSessionStore) DeleteSession(_ context.Context, token string) error {
	delete(f.sessions, token)
	return nil
}

func newTestUserService(verifier auth.Verifier) (*UserService, *fakeUserStore, *fakeSessionStore) {
	users := newFakeUserStore()
	sessions := newFakeSessionStore()
	svc := NewUserService(users, sessions, verifier, time.Hour, testLogger())
	return svc, users, sessions
}

func TestLogin_FirstLoginCreatesUser(t *testing.T) {
	t.Parallel()

	svc, users, sessions := newTestUserService(fakeVerifier{identity: &auth.Identity{
		ExternalID: "ext-1",
		Email:      "sena@example.com",
		Name:       "Sena",
	}})

	result, err := svc.Login(context.Background(), "provider-token")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	if result.User.Email != "sena@example.com" {
		t.Errorf("email = %q", result.User.Email)
	}
	if result.Token == "" {
		t.Error("expected a session token")
	}
	if len(users.usersByID) != 1 {
		t.Errorf("users created = %d, want 1", len(users.usersByID))
	}

	session, ok := sessions.sessions[result.Token]
	if !ok {
		t.Fatal("session not stored under returned token")
	}
	if session.UserID != result.User.ID {
		t.Errorf("session user = %d, want %d", session.UserID, result.User.ID)
	}
}

func TestLogin_RepeatLoginReusesUser(t *testing.T) {
	t.Parallel()

	svc, users, _ := newTestUserService(fakeVerifier{identity: &auth.Identity{
		ExternalID: "ext-1",
		Email:      "sena@example.com",
	}})

	first, err := svc.Login(context.Background(), "t1")
	if err != nil {
		t.Fatalf("first Login() error = %v", err)
	}
	second, err := svc.Login(context.Background(), "t2")
	if err != nil {
		t.Fatalf("second Login() error = %v", err)
	}

	if first.User.ID != second.User.ID {
		t.Errorf("user IDs differ: %d vs %d", first.User.ID, second.User.ID)
	}
	if len(users.usersByID) != 1 {
		t.Errorf("users created = %d, want 1", len(users.usersByID))
	}
	if first.Token == second.Token {
		t.Error("each login should mint a fresh session token")
	}
}

func TestLogin_InvalidProviderToken(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestUserService(fakeVerifier{err: auth.ErrInvalidIdentityToken})

	if _, err := svc.Login(context.Background(), "bad"); err != ErrInvalidCredentials {
		t.Errorf("Login() error = %v, want ErrInvalidCredentials", err)
	}
}

func TestLogout_DeletesSession(t *testing.T) {
	t.Parallel()

	svc, _, sessions := newTestUserService(fakeVerifier{identity: &auth.Identity{ExternalID: "ext-1", Email: "a@b.c"}})

	result, err := svc.Login(context.Background(), "t")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	if err := svc.Logout(context.Background(), result.Token); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if _, ok := sessions.sessions[result.Token]; ok {
		t.Error("session still present after logout")
	}
}

func TestClaimHandle(t *testing.T) {
	t.Parallel()

	svc, users, _ := newTestUserService(fakeVerifier{identity: &auth.Identity{ExternalID: "ext-1", Email: "a@b.c"}})
	result, err := svc.Login(context.Background(), "t")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	if err := svc.ClaimHandle(context.Background(), result.User.ID, "sena-links"); err != nil {
		t.Fatalf("ClaimHandle() error = %v", err)
	}
	if users.usersByID[result.User.ID].Handle != "sena-links" {
		t.Error("handle not stored")
	}

	tests := []struct {
		name    string
		handle  string
		wantErr error
	}{
		{"too short", "ab", ErrInvalidHandle},
		{"uppercase", "Sena", ErrInvalidHandle},
		{"spaces", "my handle", ErrInvalidHandle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := svc.ClaimHandle(context.Background(), result.User.ID, tt.handle); err != tt.wantErr {
				t.Errorf("ClaimHandle(%q) error = %v, want %v", tt.handle, err, tt.wantErr)
			}
		})
	}
}

func TestClaimHandle_Taken(t *testing.T) {
	t.Parallel()

	users := newFakeUserStore()
	sessions := newFakeSessionStore()
	svc := NewUserService(users, sessions, fakeVerifier{}, time.Hour, testLogger())

	u1, _ := users.UpsertUserByExternalID(context.Background(), &model.User{ExternalID: "e1", Email: "a@b.c"})
	u2, _ := users.UpsertUserByExternalID(context.Background(), &model.User{ExternalID: "e2", Email: "d@e.f"})

	if err := svc.ClaimHandle(context.Background(), u1.ID, "taken"); err != nil {
		t.Fatalf("first claim error = %v", err)
	}
	if err := svc.ClaimHandle(context.Background(), u2.ID, "taken"); err != ErrHandleTaken {
		t.Errorf("second claim error = %v, want ErrHandleTaken", err)
	}
}
