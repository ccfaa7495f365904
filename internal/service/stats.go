package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/qelal/qelal/internal/authz"
	"github.com/qelal/qelal/internal/model"
	"github.com/qelal/qelal/internal/repository"
)

// StatsStore builds analytics reports from stored clicks.
type StatsStore interface {
	GetStats(ctx context.Context, variant model.DropVariant, dropID int64) (*model.Stats, error)
}

// DropResolver resolves a slug to its drop.
type DropResolver interface {
	GetDropBySlug(ctx context.Context, slug string) (*model.Drop, error)
}

// StatsService gates analytics reports behind role resolution.
type StatsService struct {
	drops  DropResolver
	grants GrantStore
	stats  StatsStore
}

// NewStatsService creates a new StatsService.
func NewStatsService(drops DropResolver, grants GrantStore, stats StatsStore) *StatsService {
	return &StatsService{drops: drops, grants: grants, stats: stats}
}

// GetStats returns the analytics report for a drop. Owners, managers and
// analysts may read stats; everyone else is refused regardless of the
// bundle's anonymous access level.
func (s *StatsService) GetStats(ctx context.Context, userID *int64, slugStr string) (*model.Stats, error) {
	drop, err := s.loadDrop(ctx, slugStr)
	if err != nil {
		return nil, err
	}

	var grants []model.Collaboration
	if userID != nil {
		grants, err = s.grants.ListCollaborationsByCollaborator(ctx, *userID)
		if err != nil {
			return nil, fmt.Errorf("failed to load collaborations: %w", err)
		}
	}

	decision := authz.Resolve(userID, drop, grants)
	if !decision.CanViewStats() {
		return nil, ErrNotAuthorized
	}

	stats, err := s.stats.GetStats(ctx, drop.Variant, drop.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to build stats: %w", err)
	}

	stats.Title = drop.Title
	if stats.Title == "" {
		stats.Title = drop.Slug
	}

	return stats, nil
}

func (s *StatsService) loadDrop(ctx context.Context, slugStr string) (*model.Drop, error) {
	drop, err := s.drops.GetDropBySlug(ctx, slugStr)
	if err != nil {
		if errors.Is(err, repository.ErrDropNotFound) {
			return nil, ErrDropNotFound
		}
		return nil, fmt.Errorf("failed to load drop: %w", err)
	}
	return drop, nil
}
