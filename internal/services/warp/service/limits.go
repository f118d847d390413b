package service

import (
	"context"

	"github.com/google/uuid"

	apperrors "github.com/dasjeff/warppoint/internal/platform/errors"
)

// GetWarpLimit returns the owner's warp quota, creating the profile with the
// configured default on first access.
func (s *Service) GetWarpLimit(ctx context.Context, owner uuid.UUID) (int, error) {
	profile, err := s.profileFor(ctx, owner)
	if err != nil {
		return 0, err
	}
	return profile.WarpLimit, nil
}

// SetWarpLimit updates the owner's warp quota. On success the cached profile
// is overwritten in place with the known new value; a failed update evicts
// the cached profile instead so a stale limit is never served.
func (s *Service) SetWarpLimit(ctx context.Context, owner uuid.UUID, limit int) error {
	ctx, span := startSpan(ctx, "warp.set_limit", owner)
	defer span.End()

	if limit < 0 {
		return apperrors.WithMetadata(apperrors.CodeLimitNegative,
			"warp limit must be non-negative", limitMetadata(limit))
	}

	profile, err := s.profileFor(ctx, owner)
	if err != nil {
		return err
	}

	if err := s.store.UpdateWarpLimit(ctx, owner, limit); err != nil {
		s.cache.InvalidateProfile(owner)
		return storageFailure("update warp limit", err)
	}

	profile.WarpLimit = limit
	s.cache.PutProfile(owner, profile)
	return nil
}
