package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/qelal/qelal/internal/auth"
	"github.com/qelal/qelal/internal/cache"
	"github.com/qelal/qelal/internal/model"
	"github.com/qelal/qelal/internal/repository"
)

// ErrInvalidCredentials is returned when the identity provider rejects the
// presented access token.
var ErrInvalidCredentials = errors.New("invalid credentials")

// UserStore is the subset of repository methods the user service uses.
type UserStore interface {
	UpsertUserByExternalID(ctx context.Context, user *model.User) (*model.User, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	SetUserHandle(ctx context.Context, userID int64, handle string) error
}

// SessionStore persists bearer sessions.
type SessionStore interface {
	SetSession(ctx context.Context, token string, session *cache.Session, ttl time.Duration) error
	DeleteSession(ctx context.Context, token string) error
}

// UserService handles login, sessions and profile management.
type UserService struct {
	users      UserStore
	sessions   SessionStore
	verifier   auth.Verifier
	sessionTTL time.Duration
	logger     *slog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(users UserStore, sessions SessionStore, verifier auth.Verifier, sessionTTL time.Duration, logger *slog.Logger) *UserService {
	return &UserService{
		users:      users,
		sessions:   sessions,
		verifier:   verifier,
		sessionTTL: sessionTTL,
		logger:     logger.With("component", "service.user"),
	}
}

// LoginResult is a verified user plus their fresh session token.
type LoginResult struct {
	User  *model.User
	Token string
}

// Login exchanges an identity-provider access token for a session. The
// user row is created on first login and profile fields are refreshed on
// every later one.
func (s *UserService) Login(ctx context.Context, accessToken string) (*LoginResult, error) {
	identity, err := s.verifier.Verify(ctx, accessToken)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidIdentityToken) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to verify identity: %w", err)
	}

	user, err := s.users.UpsertUserByExternalID(ctx, &model.User{
		Email:      identity.Email,
		Name:       identity.Name,
		AvatarURL:  identity.AvatarURL,
		ExternalID: identity.ExternalID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	token, err := auth.GenerateToken(auth.SessionTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	session := &cache.Session{
		UserID:    user.ID,
		Email:     user.Email,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.sessions.SetSession(ctx, token, session, s.sessionTTL); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	s.logger.Info("user logged in", "user_id", user.ID)

	return &LoginResult{User: user, Token: token}, nil
}

// Logout revokes a session token.
func (s *UserService) Logout(ctx context.Context, token string) error {
	if err := s.sessions.DeleteSession(ctx, token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Me returns the profile behind a user ID.
func (s *UserService) Me(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrNotAuthorized
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

// ClaimHandle sets the user's public handle.
func (s *UserService) ClaimHandle(ctx context.Context, userID int64, handle string) error {
	if !model.ValidHandle(handle) {
		return ErrInvalidHandle
	}

	if err := s.users.SetUserHandle(ctx, userID, handle); err != nil {
		if errors.Is(err, repository.ErrHandleExists) {
			return ErrHandleTaken
		}
		return fmt.Errorf("failed to set handle: %w", err)
	}

	return nil
}
