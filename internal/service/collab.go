package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/qelal/qelal/internal/auth"
	"github.com/qelal/qelal/internal/authz"
	"github.com/qelal/qelal/internal/model"
	"github.com/qelal/qelal/internal/repository"
)

// CollabStore is the subset of repository methods the collaboration
// service uses. A nil bundle ID addresses an account-wide grant.
type CollabStore interface {
	CreateCollaboration(ctx context.Context, collab *model.Collaboration) error
	GetCollaboration(ctx context.Context, ownerID, collaboratorID int64, bundleID *int64) (*model.Collaboration, error)
	DeleteCollaboration(ctx context.Context, ownerID, collaboratorID int64, bundleID *int64) error
	ListCollaborationsByBundle(ctx context.Context, bundleID int64) ([]model.Collaboration, error)
	ListGlobalCollaborationsByOwner(ctx context.Context, ownerID int64) ([]model.Collaboration, error)
	ListCollaborationsByCollaborator(ctx context.Context, collaboratorID int64) ([]model.Collaboration, error)
}

// CollabUserStore resolves users for invitations.
type CollabUserStore interface {
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
}

// CollabDropStore loads and updates bundles for grants and token rotation.
type CollabDropStore interface {
	GetDropBySlug(ctx context.Context, slug string) (*model.Drop, error)
	UpdateBundle(ctx context.Context, drop *model.Drop) error
}

// NotificationStore records in-app notifications.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n *model.Notification) error
}

// CollabService handles collaboration invitations, token joins and
// membership management.
type CollabService struct {
	collabs       CollabStore
	users         CollabUserStore
	drops         CollabDropStore
	notifications NotificationStore
	logger        *slog.Logger
}

// NewCollabService creates a new CollabService.
func NewCollabService(collabs CollabStore, users CollabUserStore, drops CollabDropStore, notifications NotificationStore, logger *slog.Logger) *CollabService {
	return &CollabService{
		collabs:       collabs,
		users:         users,
		drops:         drops,
		notifications: notifications,
		logger:        logger.With("component", "service.collab"),
	}
}

// Collaborator pairs a grant with the user holding it.
type Collaborator struct {
	User          *model.User          `json:"user"`
	Role          model.CollabRole     `json:"role"`
	Collaboration *model.Collaboration `json:"-"`
}

// Invite grants a role to the user behind an email address. With a bundle
// slug the grant is scoped to that bundle and owners or managers may
// invite; with an empty slug the caller grants account-wide access to
// everything they own.
func (s *CollabService) Invite(ctx context.Context, userID int64, bundleSlug, email string, role model.CollabRole) (*model.Collaboration, error) {
	if !role.IsValid() {
		return nil, ErrInvalidRole
	}

	if bundleSlug == "" {
		return s.inviteGlobal(ctx, userID, email, role)
	}

	bundle, err := s.manageableBundle(ctx, userID, bundleSlug)
	if err != nil {
		return nil, err
	}

	collaborator, err := s.lookupCollaborator(ctx, email)
	if err != nil {
		return nil, err
	}

	if collaborator.ID == userID || (bundle.OwnerID != nil && collaborator.ID == *bundle.OwnerID) {
		return nil, ErrSelfInvite
	}

	collab := &model.Collaboration{
		OwnerID:        *bundle.OwnerID,
		CollaboratorID: collaborator.ID,
		Role:           role,
		BundleID:       &bundle.ID,
	}

	if err := s.collabs.CreateCollaboration(ctx, collab); err != nil {
		if errors.Is(err, repository.ErrDuplicateGrant) {
			return nil, ErrDuplicateGrant
		}
		return nil, fmt.Errorf("failed to create collaboration: %w", err)
	}

	s.notify(ctx, collaborator.ID, model.NotificationCollabInvite,
		"You were added to a bundle",
		fmt.Sprintf("You now have %s access to %q.", role, bundle.Title),
		"/bundle/"+bundle.Slug,
	)

	return collab, nil
}

// inviteGlobal creates an account-wide grant (bundle_id null) over every
// drop the inviting user owns, now and later.
func (s *CollabService) inviteGlobal(ctx context.Context, ownerID int64, email string, role model.CollabRole) (*model.Collaboration, error) {
	collaborator, err := s.lookupCollaborator(ctx, email)
	if err != nil {
		return nil, err
	}

	if collaborator.ID == ownerID {
		return nil, ErrSelfInvite
	}

	collab := &model.Collaboration{
		OwnerID:        ownerID,
		CollaboratorID: collaborator.ID,
		Role:           role,
	}

	if err := s.collabs.CreateCollaboration(ctx, collab); err != nil {
		if errors.Is(err, repository.ErrDuplicateGrant) {
			return nil, ErrDuplicateGrant
		}
		return nil, fmt.Errorf("failed to create collaboration: %w", err)
	}

	owner, err := s.users.GetUserByID(ctx, ownerID)
	ownerName := "An account"
	if err == nil && owner.Name != "" {
		ownerName = owner.Name
	}
	s.notify(ctx, collaborator.ID, model.NotificationCollabInvite,
		"You were added to an account",
		fmt.Sprintf("%s granted you %s access to all of their drops.", ownerName, role),
		"",
	)

	return collab, nil
}

func (s *CollabService) lookupCollaborator(ctx context.Context, email string) (*model.User, error) {
	collaborator, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrCollaboratorNotFound
		}
		return nil, fmt.Errorf("failed to look up collaborator: %w", err)
	}
	return collaborator, nil
}

// Remove revokes a collaborator's grant on a bundle. Managers and owners
// may remove anyone; a collaborator may always remove themselves.
func (s *CollabService) Remove(ctx context.Context, userID int64, bundleSlug string, collaboratorID int64) error {
	var bundle *model.Drop
	var err error
	if collaboratorID == userID {
		bundle, err = s.loadBundle(ctx, bundleSlug)
	} else {
		bundle, err = s.manageableBundle(ctx, userID, bundleSlug)
	}
	if err != nil {
		return err
	}

	if err := s.collabs.DeleteCollaboration(ctx, *bundle.OwnerID, collaboratorID, &bundle.ID); err != nil {
		if errors.Is(err, repository.ErrGrantNotFound) {
			return ErrCollaboratorNotFound
		}
		return fmt.Errorf("failed to delete collaboration: %w", err)
	}

	if collaboratorID == userID {
		s.notify(ctx, *bundle.OwnerID, model.NotificationCollabRemoved,
			"Collaborator left",
			fmt.Sprintf("A collaborator left %q.", bundle.Title),
			"/bundle/"+bundle.Slug,
		)
		return nil
	}

	s.notify(ctx, collaboratorID, model.NotificationCollabRemoved,
		"Access removed",
		fmt.Sprintf("Your access to %q was removed.", bundle.Title),
		"",
	)

	return nil
}

// RemoveGlobal revokes an account-wide grant the owner handed out.
func (s *CollabService) RemoveGlobal(ctx context.Context, ownerID, collaboratorID int64) error {
	if err := s.collabs.DeleteCollaboration(ctx, ownerID, collaboratorID, nil); err != nil {
		if errors.Is(err, repository.ErrGrantNotFound) {
			return ErrCollaboratorNotFound
		}
		return fmt.Errorf("failed to delete collaboration: %w", err)
	}

	s.notify(ctx, collaboratorID, model.NotificationCollabRemoved,
		"Access removed",
		"Your account-wide access was revoked.",
		"",
	)

	return nil
}

// LeaveAccount abandons an account-wide grant from the collaborator side.
func (s *CollabService) LeaveAccount(ctx context.Context, userID, ownerID int64) error {
	if err := s.collabs.DeleteCollaboration(ctx, ownerID, userID, nil); err != nil {
		if errors.Is(err, repository.ErrGrantNotFound) {
			return ErrCollaboratorNotFound
		}
		return fmt.Errorf("failed to delete collaboration: %w", err)
	}

	s.notify(ctx, ownerID, model.NotificationCollabRemoved,
		"Collaborator left",
		"A collaborator left your account.",
		"",
	)

	return nil
}

// ListAccountCollaborators returns the users holding account-wide grants
// from the owner.
func (s *CollabService) ListAccountCollaborators(ctx context.Context, ownerID int64) ([]Collaborator, error) {
	grants, err := s.collabs.ListGlobalCollaborationsByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list collaborations: %w", err)
	}
	return s.resolveCollaborators(ctx, grants), nil
}

// JoinViaToken redeems a share token for a grant on a bundle. Joining is
// idempotent: a user who already holds a grant gets the existing one back
// unchanged, whatever role the presented token carries.
func (s *CollabService) JoinViaToken(ctx context.Context, userID int64, bundleSlug, token string) (*model.Collaboration, *model.Drop, error) {
	bundle, err := s.loadBundle(ctx, bundleSlug)
	if err != nil {
		return nil, nil, err
	}

	role, ok := authz.MatchToken(bundle, token)
	if !ok {
		return nil, nil, ErrInvalidToken
	}

	// The owner needs no grant.
	if bundle.OwnedBy(userID) {
		return nil, bundle, nil
	}

	collab := &model.Collaboration{
		OwnerID:        *bundle.OwnerID,
		CollaboratorID: userID,
		Role:           role,
		BundleID:       &bundle.ID,
	}

	err = s.collabs.CreateCollaboration(ctx, collab)
	if err != nil {
		if !errors.Is(err, repository.ErrDuplicateGrant) {
			return nil, nil, fmt.Errorf("failed to create collaboration: %w", err)
		}
		existing, err := s.collabs.GetCollaboration(ctx, *bundle.OwnerID, userID, &bundle.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load existing collaboration: %w", err)
		}
		return existing, bundle, nil
	}

	if bundle.OwnerID != nil {
		joiner, err := s.users.GetUserByID(ctx, userID)
		name := "Someone"
		if err == nil && joiner.Name != "" {
			name = joiner.Name
		}
		s.notify(ctx, *bundle.OwnerID, model.NotificationCollabJoined,
			"New collaborator",
			fmt.Sprintf("%s joined %q as %s.", name, bundle.Title, role),
			"/bundle/"+bundle.Slug,
		)
	}

	return collab, bundle, nil
}

// RotateTokens replaces both share tokens of a bundle, invalidating every
// link that embeds the old ones. Existing grants are untouched.
func (s *CollabService) RotateTokens(ctx context.Context, userID int64, bundleSlug string) (*model.Drop, error) {
	bundle, err := s.manageableBundle(ctx, userID, bundleSlug)
	if err != nil {
		return nil, err
	}

	managerToken, err := auth.GenerateToken(auth.DefaultTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to generate manager token: %w", err)
	}
	analystToken, err := auth.GenerateToken(auth.DefaultTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to generate analyst token: %w", err)
	}

	bundle.ManagerToken = managerToken
	bundle.AnalystToken = analystToken

	if err := s.drops.UpdateBundle(ctx, bundle); err != nil {
		return nil, fmt.Errorf("failed to rotate tokens: %w", err)
	}

	return bundle, nil
}

// ListCollaborators returns the users holding grants on a bundle.
func (s *CollabService) ListCollaborators(ctx context.Context, userID int64, bundleSlug string) ([]Collaborator, error) {
	bundle, err := s.manageableBundle(ctx, userID, bundleSlug)
	if err != nil {
		return nil, err
	}

	grants, err := s.collabs.ListCollaborationsByBundle(ctx, bundle.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list collaborations: %w", err)
	}

	return s.resolveCollaborators(ctx, grants), nil
}

// resolveCollaborators attaches user profiles to grants, skipping rows
// whose user can no longer be loaded.
func (s *CollabService) resolveCollaborators(ctx context.Context, grants []model.Collaboration) []Collaborator {
	collaborators := make([]Collaborator, 0, len(grants))
	for i := range grants {
		grant := &grants[i]
		user, err := s.users.GetUserByID(ctx, grant.CollaboratorID)
		if err != nil {
			s.logger.Warn("collaborator user missing", "user_id", grant.CollaboratorID, "error", err)
			continue
		}
		collaborators = append(collaborators, Collaborator{
			User:          user,
			Role:          grant.Role,
			Collaboration: grant,
		})
	}
	return collaborators
}

// manageableBundle loads a bundle and verifies the requester may manage it.
func (s *CollabService) manageableBundle(ctx context.Context, userID int64, bundleSlug string) (*model.Drop, error) {
	bundle, err := s.loadBundle(ctx, bundleSlug)
	if err != nil {
		return nil, err
	}

	grants, err := s.collabs.ListCollaborationsByCollaborator(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load collaborations: %w", err)
	}

	decision := authz.Resolve(&userID, bundle, grants)
	if !decision.CanManage() {
		return nil, ErrNotAuthorized
	}

	return bundle, nil
}

func (s *CollabService) loadBundle(ctx context.Context, bundleSlug string) (*model.Drop, error) {
	drop, err := s.drops.GetDropBySlug(ctx, bundleSlug)
	if err != nil {
		if errors.Is(err, repository.ErrDropNotFound) {
			return nil, ErrDropNotFound
		}
		return nil, fmt.Errorf("failed to load bundle: %w", err)
	}
	if !drop.IsBundle() || drop.OwnerID == nil {
		return nil, ErrDropNotFound
	}
	return drop, nil
}

// notify writes an in-app notification; failures are logged, never fatal.
func (s *CollabService) notify(ctx context.Context, userID int64, typ model.NotificationType, title, message, link string) {
	n := &model.Notification{
		UserID:  userID,
		Type:    typ,
		Title:   title,
		Message: message,
		Link:    link,
	}
	if err := s.notifications.CreateNotification(ctx, n); err != nil {
		s.logger.Warn("failed to create notification", "user_id", userID, "type", typ, "error", err)
	}
}
