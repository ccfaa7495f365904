package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"time"

	"github.com/qelal/qelal/internal/analytics"
	"github.com/qelal/qelal/internal/auth"
	"github.com/qelal/qelal/internal/authz"
	"github.com/qelal/qelal/internal/metrics"
	"github.com/qelal/qelal/internal/model"
	"github.com/qelal/qelal/internal/redirect"
	"github.com/qelal/qelal/internal/repository"
	"github.com/qelal/qelal/internal/slug"
)

// Custom slug validation regex: 3-50 chars, alphanumeric + hyphen + underscore.
var slugRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,50}$`)

// reservedSlugs are path segments claimed by the application itself.
var reservedSlugs = map[string]bool{
	"api":     true,
	"auth":    true,
	"shorten": true,
	"bundles": true,
	"unlock":  true,
	"healthz": true,
	"readyz":  true,
}

const (
	maxDestinationLength = 2048
	maxBundleItems       = 100
)

// DropStore is the subset of repository methods the drop service uses.
type DropStore interface {
	GetDropBySlug(ctx context.Context, slug string) (*model.Drop, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	CreateLink(ctx context.Context, drop *model.Drop, mint func(id int64) string) error
	CreateBundle(ctx context.Context, drop *model.Drop, mint func(id int64) string) error
	UpdateLink(ctx context.Context, drop *model.Drop) error
	UpdateBundle(ctx context.Context, drop *model.Drop) error
	DeleteDrop(ctx context.Context, variant model.DropVariant, id int64) error
	RegisterClick(ctx context.Context, variant model.DropVariant, id int64) (bool, error)
	ListDropsByOwner(ctx context.Context, ownerID int64) ([]*model.Drop, error)
	ListBundlesByIDs(ctx context.Context, ids []int64) ([]*model.Drop, error)
}

// GrantStore loads the collaboration rows held by a requester.
type GrantStore interface {
	ListCollaborationsByCollaborator(ctx context.Context, collaboratorID int64) ([]model.Collaboration, error)
}

// SlugCache is the negative-lookup cache in front of slug resolution.
type SlugCache interface {
	IsNegativelyCached(ctx context.Context, slug string) (bool, error)
	SetNegativeCache(ctx context.Context, slug string) error
	InvalidateSlug(ctx context.Context, slug string) error
}

// ClickPublisher enqueues click events off the redirect path.
type ClickPublisher interface {
	PublishAsync(event analytics.ClickEventPayload)
}

// DropService handles link and bundle business logic.
type DropService struct {
	drops   DropStore
	grants  GrantStore
	slugs   SlugCache
	clicks  ClickPublisher
	metrics metrics.Recorder
	logger  *slog.Logger
	now     func() time.Time
}

// NewDropService creates a new DropService.
func NewDropService(drops DropStore, grants GrantStore, slugs SlugCache, clicks ClickPublisher, logger *slog.Logger, recorder metrics.Recorder) *DropService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &DropService{
		drops:   drops,
		grants:  grants,
		slugs:   slugs,
		clicks:  clicks,
		metrics: recorder,
		logger:  logger.With("component", "service.drop"),
		now:     time.Now,
	}
}

// CreateLinkInput defines input for creating a short link.
type CreateLinkInput struct {
	LongURL         string
	Slug            string
	MaxClicks       *int64
	ExpiresAt       *time.Time
	Password        string
	MetaTitle       string
	MetaDescription string
	Cloaked         bool
}

// CreateLink creates a new short link. An empty Slug mints one from the
// row ID in the shared codec alphabet.
func (s *DropService) CreateLink(ctx context.Context, ownerID *int64, input CreateLinkInput) (*model.Drop, error) {
	if err := validateDestination(input.LongURL); err != nil {
		return nil, err
	}
	if err := s.validateShared(ctx, input.Slug, input.MaxClicks, input.ExpiresAt); err != nil {
		return nil, err
	}

	hash, err := hashIfSet(input.Password)
	if err != nil {
		return nil, err
	}

	drop := &model.Drop{
		Variant:         model.VariantLink,
		Slug:            input.Slug,
		OwnerID:         ownerID,
		LongURL:         input.LongURL,
		MaxClicks:       input.MaxClicks,
		ExpiresAt:       input.ExpiresAt,
		PasswordHash:    hash,
		MetaTitle:       input.MetaTitle,
		MetaDescription: input.MetaDescription,
		Cloaked:         input.Cloaked,
	}

	if err := s.drops.CreateLink(ctx, drop, slug.Encode); err != nil {
		if errors.Is(err, repository.ErrSlugExists) {
			return nil, ErrSlugExists
		}
		return nil, fmt.Errorf("failed to create link: %w", err)
	}

	_ = s.slugs.InvalidateSlug(ctx, drop.Slug)
	s.metrics.IncDropCreated(string(model.VariantLink))

	return drop, nil
}

// CreateBundleInput defines input for creating a bundle.
type CreateBundleInput struct {
	Title           string
	Description     string
	Slug            string
	Items           []model.BundleItem
	Style           *model.BundleStyle
	AccessLevel     model.AccessLevel
	MaxClicks       *int64
	ExpiresAt       *time.Time
	Password        string
	MetaTitle       string
	MetaDescription string
	Cloaked         bool
}

// CreateBundle creates a new bundle with fresh join tokens. Minted bundle
// slugs carry the "b-" prefix to keep them out of the link keyspace.
func (s *DropService) CreateBundle(ctx context.Context, ownerID *int64, input CreateBundleInput) (*model.Drop, error) {
	if input.Title == "" {
		return nil, ErrTitleRequired
	}
	if err := validateItems(input.Items); err != nil {
		return nil, err
	}
	if err := s.validateShared(ctx, input.Slug, input.MaxClicks, input.ExpiresAt); err != nil {
		return nil, err
	}

	accessLevel := input.AccessLevel
	if accessLevel == "" {
		accessLevel = model.AccessRestricted
	}
	if !accessLevel.IsValid() {
		return nil, ErrInvalidAccessLevel
	}

	style := model.DefaultBundleStyle()
	if input.Style != nil {
		style = *input.Style
	}

	hash, err := hashIfSet(input.Password)
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

	drop := &model.Drop{
		Variant:         model.VariantBundle,
		Slug:            input.Slug,
		OwnerID:         ownerID,
		Title:           input.Title,
		Description:     input.Description,
		Items:           input.Items,
		Style:           style,
		AccessLevel:     accessLevel,
		ManagerToken:    managerToken,
		AnalystToken:    analystToken,
		MaxClicks:       input.MaxClicks,
		ExpiresAt:       input.ExpiresAt,
		PasswordHash:    hash,
		MetaTitle:       input.MetaTitle,
		MetaDescription: input.MetaDescription,
		Cloaked:         input.Cloaked,
	}

	mint := func(id int64) string {
		return slug.BundlePrefix + slug.Encode(id)
	}
	if err := s.drops.CreateBundle(ctx, drop, mint); err != nil {
		if errors.Is(err, repository.ErrSlugExists) {
			return nil, ErrSlugExists
		}
		return nil, fmt.Errorf("failed to create bundle: %w", err)
	}

	_ = s.slugs.InvalidateSlug(ctx, drop.Slug)
	s.metrics.IncDropCreated(string(model.VariantBundle))

	return drop, nil
}

// GetDrop loads a drop for an API read and resolves the requester's role.
// Single links are private to their owner; bundles additionally open to
// collaborators and, depending on access level, to everyone.
func (s *DropService) GetDrop(ctx context.Context, userID *int64, slugStr string) (*model.Drop, authz.Decision, error) {
	drop, err := s.loadDrop(ctx, slugStr)
	if err != nil {
		return nil, authz.Decision{}, err
	}

	decision := authz.Resolve(userID, drop, s.loadGrants(ctx, userID))
	if decision.Role == authz.RoleNone {
		return nil, decision, ErrNotAuthorized
	}

	return drop, decision, nil
}

// UpdateDropInput defines the patchable fields of a drop. Nil pointers
// leave the field unchanged.
type UpdateDropInput struct {
	// Content fields (bundle): editable with can_edit_content.
	Title       *string
	Description *string
	Items       []model.BundleItem
	Style       *model.BundleStyle

	// Content fields (link).
	LongURL *string

	// Meta fields count as content.
	MetaTitle       *string
	MetaDescription *string

	// Permission-locked fields: owner or manager only.
	Slug          *string
	MaxClicks     *int64
	ClearCap      bool
	ExpiresAt     *time.Time
	ClearExpiry   bool
	Password      *string
	ClearPassword bool
	Cloaked       *bool
	AccessLevel   *model.AccessLevel
}

func (in *UpdateDropInput) touchesLocked() bool {
	return in.Slug != nil || in.MaxClicks != nil || in.ClearCap ||
		in.ExpiresAt != nil || in.ClearExpiry ||
		in.Password != nil || in.ClearPassword ||
		in.Cloaked != nil || in.AccessLevel != nil
}

// UpdateDrop applies a patch to a drop after an authorization check.
// Content fields require can_edit_content; the permission-locked fields
// require an owner or manager role.
func (s *DropService) UpdateDrop(ctx context.Context, userID *int64, slugStr string, input UpdateDropInput) (*model.Drop, error) {
	drop, err := s.loadDrop(ctx, slugStr)
	if err != nil {
		return nil, err
	}

	decision := authz.Resolve(userID, drop, s.loadGrants(ctx, userID))
	if !decision.CanEditContent {
		return nil, ErrNotAuthorized
	}
	if input.touchesLocked() && !decision.CanManage() {
		return nil, ErrNotAuthorized
	}

	oldSlug := drop.Slug
	if err := s.applyUpdate(ctx, drop, input); err != nil {
		return nil, err
	}

	if drop.IsBundle() {
		err = s.drops.UpdateBundle(ctx, drop)
	} else {
		err = s.drops.UpdateLink(ctx, drop)
	}
	if err != nil {
		if errors.Is(err, repository.ErrSlugExists) {
			return nil, ErrSlugExists
		}
		if errors.Is(err, repository.ErrDropNotFound) {
			return nil, ErrDropNotFound
		}
		return nil, fmt.Errorf("failed to update drop: %w", err)
	}

	s.metrics.IncDropUpdated(string(drop.Variant))

	_ = s.slugs.InvalidateSlug(ctx, drop.Slug)
	if oldSlug != drop.Slug {
		_ = s.slugs.InvalidateSlug(ctx, oldSlug)
	}

	return drop, nil
}

func (s *DropService) applyUpdate(ctx context.Context, drop *model.Drop, input UpdateDropInput) error {
	if drop.IsBundle() {
		if input.Title != nil {
			if *input.Title == "" {
				return ErrTitleRequired
			}
			drop.Title = *input.Title
		}
		if input.Description != nil {
			drop.Description = *input.Description
		}
		if input.Items != nil {
			if err := validateItems(input.Items); err != nil {
				return err
			}
			drop.Items = input.Items
		}
		if input.Style != nil {
			drop.Style = *input.Style
		}
		if input.AccessLevel != nil {
			if !input.AccessLevel.IsValid() {
				return ErrInvalidAccessLevel
			}
			drop.AccessLevel = *input.AccessLevel
		}
	} else {
		if input.LongURL != nil {
			if err := validateDestination(*input.LongURL); err != nil {
				return err
			}
			drop.LongURL = *input.LongURL
		}
	}

	if input.MetaTitle != nil {
		drop.MetaTitle = *input.MetaTitle
	}
	if input.MetaDescription != nil {
		drop.MetaDescription = *input.MetaDescription
	}

	if input.Slug != nil && *input.Slug != drop.Slug {
		if err := s.validateCustomSlug(ctx, *input.Slug); err != nil {
			return err
		}
		drop.Slug = *input.Slug
	}

	if input.ClearCap {
		drop.MaxClicks = nil
	} else if input.MaxClicks != nil {
		if *input.MaxClicks <= 0 {
			return ErrInvalidMaxClicks
		}
		drop.MaxClicks = input.MaxClicks
	}

	if input.ClearExpiry {
		drop.ExpiresAt = nil
	} else if input.ExpiresAt != nil {
		if input.ExpiresAt.Before(s.now()) {
			return ErrExpiresInPast
		}
		drop.ExpiresAt = input.ExpiresAt
	}

	if input.ClearPassword {
		drop.PasswordHash = ""
	} else if input.Password != nil && *input.Password != "" {
		hash, err := auth.HashPassword(*input.Password)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		drop.PasswordHash = hash
	}

	if input.Cloaked != nil {
		drop.Cloaked = *input.Cloaked
	}

	return nil
}

// DeleteDrop removes a drop. Owners and managers may delete.
func (s *DropService) DeleteDrop(ctx context.Context, userID *int64, slugStr string) error {
	drop, err := s.loadDrop(ctx, slugStr)
	if err != nil {
		return err
	}

	decision := authz.Resolve(userID, drop, s.loadGrants(ctx, userID))
	if !decision.CanManage() {
		return ErrNotAuthorized
	}

	if err := s.drops.DeleteDrop(ctx, drop.Variant, drop.ID); err != nil {
		if errors.Is(err, repository.ErrDropNotFound) {
			return ErrDropNotFound
		}
		return fmt.Errorf("failed to delete drop: %w", err)
	}

	s.metrics.IncDropDeleted(string(drop.Variant))
	_ = s.slugs.InvalidateSlug(ctx, drop.Slug)

	return nil
}

// ResolveResult is the evaluated redirect for one slug request.
type ResolveResult struct {
	Drop     *model.Drop
	Decision redirect.Decision
}

// Resolve evaluates a slug request on the redirect hot path. When the
// outcome reaches the target, the click is counted atomically against the
// cap and the event is published to the click stream without blocking.
func (s *DropService) Resolve(ctx context.Context, slugStr, userAgent, referer string) (*ResolveResult, error) {
	start := s.now()
	defer func() {
		s.metrics.ObserveRedirectDuration(time.Since(start))
	}()

	if negative, _ := s.slugs.IsNegativelyCached(ctx, slugStr); negative {
		decision := redirect.Decision{Outcome: redirect.OutcomeNotFound}
		s.metrics.IncRedirectOutcome(string(decision.Outcome))
		return &ResolveResult{Decision: decision}, nil
	}

	drop, err := s.drops.GetDropBySlug(ctx, slugStr)
	if err != nil {
		if errors.Is(err, repository.ErrDropNotFound) {
			_ = s.slugs.SetNegativeCache(ctx, slugStr)
			decision := redirect.Decision{Outcome: redirect.OutcomeNotFound}
			s.metrics.IncRedirectOutcome(string(decision.Outcome))
			return &ResolveResult{Decision: decision}, nil
		}
		return nil, fmt.Errorf("failed to resolve slug: %w", err)
	}

	decision := redirect.Decide(drop, userAgent, s.now())

	if decision.RecordClick {
		counted, err := s.drops.RegisterClick(ctx, drop.Variant, drop.ID)
		if err != nil {
			// Counting is best effort; the redirect still goes through.
			s.logger.Warn("failed to register click", "slug", slugStr, "error", err)
		} else if !counted {
			// Lost the race to the last click under the cap.
			decision = redirect.Decision{Outcome: redirect.OutcomeExpired, NoReferrer: decision.NoReferrer}
		} else {
			drop.Clicks++
			s.clicks.PublishAsync(analytics.NewClickEvent(drop, referer, userAgent, s.now()))
		}
	}

	s.metrics.IncRedirectOutcome(string(decision.Outcome))
	return &ResolveResult{Drop: drop, Decision: decision}, nil
}

// Unlock verifies a password-protected drop and, on success, counts the
// click and returns the drop so the caller can reveal the target.
func (s *DropService) Unlock(ctx context.Context, slugStr, password, userAgent, referer string) (*model.Drop, error) {
	drop, err := s.loadDrop(ctx, slugStr)
	if err != nil {
		return nil, err
	}

	if drop.IsExpiredAt(s.now()) {
		return nil, ErrDropNotFound
	}

	// A drop without a stored hash has nothing to unlock; an empty hash
	// never matches any attempt.
	if !drop.HasPassword() {
		s.metrics.IncUnlockAttempt("failed")
		return nil, ErrIncorrectPassword
	}

	ok, err := auth.VerifyPassword(password, drop.PasswordHash)
	if err != nil || !ok {
		s.metrics.IncUnlockAttempt("failed")
		return nil, ErrIncorrectPassword
	}

	s.metrics.IncUnlockAttempt("success")

	counted, err := s.drops.RegisterClick(ctx, drop.Variant, drop.ID)
	if err != nil {
		s.logger.Warn("failed to register click", "slug", slugStr, "error", err)
	} else if !counted {
		return nil, ErrDropNotFound
	} else {
		drop.Clicks++
		s.clicks.PublishAsync(analytics.NewClickEvent(drop, referer, userAgent, s.now()))
	}

	return drop, nil
}

// ListMine returns the drops a user can see on their dashboard: their own,
// every drop of owners who granted them a global collaboration, and the
// individual bundles shared with them.
func (s *DropService) ListMine(ctx context.Context, userID int64) ([]*model.Drop, error) {
	drops, err := s.drops.ListDropsByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list drops: %w", err)
	}

	grants, err := s.grants.ListCollaborationsByCollaborator(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list collaborations: %w", err)
	}

	seen := make(map[string]bool, len(drops))
	for _, d := range drops {
		seen[string(d.Variant)+":"+d.Slug] = true
	}

	var bundleIDs []int64
	for _, grant := range grants {
		if grant.IsGlobal() {
			shared, err := s.drops.ListDropsByOwner(ctx, grant.OwnerID)
			if err != nil {
				return nil, fmt.Errorf("failed to list shared drops: %w", err)
			}
			for _, d := range shared {
				key := string(d.Variant) + ":" + d.Slug
				if !seen[key] {
					seen[key] = true
					drops = append(drops, d)
				}
			}
			continue
		}
		bundleIDs = append(bundleIDs, *grant.BundleID)
	}

	if len(bundleIDs) > 0 {
		bundles, err := s.drops.ListBundlesByIDs(ctx, bundleIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to list shared bundles: %w", err)
		}
		for _, d := range bundles {
			key := string(d.Variant) + ":" + d.Slug
			if !seen[key] {
				seen[key] = true
				drops = append(drops, d)
			}
		}
	}

	return drops, nil
}

// loadDrop resolves a slug to a drop, mapping missing rows to ErrDropNotFound.
func (s *DropService) loadDrop(ctx context.Context, slugStr string) (*model.Drop, error) {
	drop, err := s.drops.GetDropBySlug(ctx, slugStr)
	if err != nil {
		if errors.Is(err, repository.ErrDropNotFound) {
			return nil, ErrDropNotFound
		}
		return nil, fmt.Errorf("failed to load drop: %w", err)
	}
	return drop, nil
}

// loadGrants fetches the requester's collaboration rows; anonymous
// requesters have none. Failures degrade to no grants rather than
// blocking the request.
func (s *DropService) loadGrants(ctx context.Context, userID *int64) []model.Collaboration {
	if userID == nil {
		return nil
	}
	grants, err := s.grants.ListCollaborationsByCollaborator(ctx, *userID)
	if err != nil {
		s.logger.Warn("failed to load collaborations", "user_id", *userID, "error", err)
		return nil
	}
	return grants
}

// validateShared checks the fields common to links and bundles.
func (s *DropService) validateShared(ctx context.Context, slugStr string, maxClicks *int64, expiresAt *time.Time) error {
	if slugStr != "" {
		if err := s.validateCustomSlug(ctx, slugStr); err != nil {
			return err
		}
	}
	if maxClicks != nil && *maxClicks <= 0 {
		return ErrInvalidMaxClicks
	}
	if expiresAt != nil && expiresAt.Before(s.now()) {
		return ErrExpiresInPast
	}
	return nil
}

func (s *DropService) validateCustomSlug(ctx context.Context, slugStr string) error {
	if !slugRegex.MatchString(slugStr) || reservedSlugs[slugStr] {
		return ErrInvalidSlug
	}

	exists, err := s.drops.SlugExists(ctx, slugStr)
	if err != nil {
		return fmt.Errorf("failed to check slug: %w", err)
	}
	if exists {
		return ErrSlugExists
	}

	return nil
}

// validateDestination validates a destination URL.
func validateDestination(dest string) error {
	if dest == "" {
		return ErrInvalidDestination
	}

	if len(dest) > maxDestinationLength {
		return ErrURLTooLong
	}

	parsed, err := url.Parse(dest)
	if err != nil {
		return ErrInvalidDestination
	}

	// Only allow http and https schemes
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ErrInvalidDestination
	}

	// Must have a host
	if parsed.Host == "" {
		return ErrInvalidDestination
	}

	return nil
}

func validateItems(items []model.BundleItem) error {
	if len(items) > maxBundleItems {
		return ErrInvalidItem
	}
	for _, item := range items {
		if item.Label == "" {
			return ErrInvalidItem
		}
		if err := validateDestination(item.URL); err != nil {
			return ErrInvalidItem
		}
	}
	return nil
}

func hashIfSet(password string) (string, error) {
	if password == "" {
		return "", nil
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return hash, nil
}
