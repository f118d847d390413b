package service

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"

	apperrors "github.com/dasjeff/warppoint/internal/platform/errors"
	"github.com/dasjeff/warppoint/internal/services/warp/domain"
	"github.com/dasjeff/warppoint/internal/services/warp/storage"
)

// CreateWarp registers a new warp for owner after quota and duplicate checks.
// The returned warp carries its assigned id.
func (s *Service) CreateWarp(ctx context.Context, owner uuid.UUID, name string, loc domain.Location) (domain.Warp, error) {
	ctx, span := startSpan(ctx, "warp.create", owner)
	defer span.End()

	if err := domain.ValidateName(name); err != nil {
		return domain.Warp{}, err
	}

	profile, err := s.profileFor(ctx, owner)
	if err != nil {
		return domain.Warp{}, err
	}
	warps, err := s.warpsFor(ctx, owner)
	if err != nil {
		return domain.Warp{}, err
	}
	if len(warps) >= profile.WarpLimit {
		return domain.Warp{}, apperrors.WithMetadata(apperrors.CodeLimitExceeded,
			"warp limit reached", limitMetadata(profile.WarpLimit))
	}
	for _, existing := range warps {
		if domain.NamesEqual(existing.Name, name) {
			return domain.Warp{}, apperrors.WithMetadata(apperrors.CodeDuplicateName,
				"warp name already in use", map[string]string{"name": name})
		}
	}

	created, err := s.store.CreateWarp(ctx, domain.Warp{
		OwnerID:   owner,
		Name:      name,
		Location:  loc,
		CreatedAt: s.now(),
	})
	if err != nil {
		// The pre-check ran off a cached snapshot; the unique key is the
		// arbiter when two same-owner creates race.
		if errors.Is(err, storage.ErrAlreadyExists) {
			s.cache.Invalidate(owner)
			return domain.Warp{}, apperrors.WithMetadata(apperrors.CodeDuplicateName,
				"warp name already in use", map[string]string{"name": name})
		}
		return domain.Warp{}, storageFailure("create warp", err)
	}

	s.cache.Invalidate(owner)
	return created, nil
}

// DeleteWarp removes the named warp for owner.
func (s *Service) DeleteWarp(ctx context.Context, owner uuid.UUID, name string) error {
	ctx, span := startSpan(ctx, "warp.delete", owner)
	defer span.End()

	if err := s.store.DeleteWarpByOwnerAndName(ctx, owner, name); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperrors.WithMetadata(apperrors.CodeNotFound,
				"warp not found", map[string]string{"name": name})
		}
		return storageFailure("delete warp", err)
	}

	s.cache.Invalidate(owner)
	return nil
}

// GetWarp fetches one warp by owner and name. The lookup is case-insensitive.
func (s *Service) GetWarp(ctx context.Context, owner uuid.UUID, name string) (domain.Warp, error) {
	warps, err := s.warpsFor(ctx, owner)
	if err != nil {
		return domain.Warp{}, err
	}
	for _, warp := range warps {
		if domain.NamesEqual(warp.Name, name) {
			return warp, nil
		}
	}
	return domain.Warp{}, apperrors.WithMetadata(apperrors.CodeNotFound,
		"warp not found", map[string]string{"name": name})
}

// ListWarps returns every warp owned by owner. The result is the caller's
// to keep; mutations to it never reach the cached view.
func (s *Service) ListWarps(ctx context.Context, owner uuid.UUID) ([]domain.Warp, error) {
	warps, err := s.warpsFor(ctx, owner)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Warp, len(warps))
	copy(out, warps)
	return out, nil
}

// WarpCount returns how many warps owner has. A cache miss fetches the
// authoritative list once so the list, count, and name views warm together.
func (s *Service) WarpCount(ctx context.Context, owner uuid.UUID) (int, error) {
	if count, ok := s.cache.Count(owner); ok {
		return count, nil
	}
	warps, err := s.warpsFor(ctx, owner)
	if err != nil {
		return 0, err
	}
	return len(warps), nil
}

// CachedWarpNames returns the cached name list for owner without blocking on
// storage. A cold cache yields an empty list and triggers a background
// refresh so a subsequent call sees the real names.
func (s *Service) CachedWarpNames(owner uuid.UUID) []string {
	if names, ok := s.cache.Names(owner); ok {
		out := make([]string, len(names))
		copy(out, names)
		return out
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		if _, err := s.warpsFor(ctx, owner); err != nil {
			log.Printf("warp service: background name refresh for %s: %v", owner, err)
		}
	}()
	return nil
}

// ListOwners returns every owner with at least one warp.
func (s *Service) ListOwners(ctx context.Context) ([]uuid.UUID, error) {
	owners, err := s.store.ListOwners(ctx)
	if err != nil {
		return nil, storageFailure("list owners", err)
	}
	return owners, nil
}

// InvalidateOwner evicts every cached view for owner.
func (s *Service) InvalidateOwner(owner uuid.UUID) {
	s.cache.Invalidate(owner)
}

// ClearAllCaches wipes the cache for every owner.
func (s *Service) ClearAllCaches() {
	s.cache.Clear()
}
