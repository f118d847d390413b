package service

import (
	"context"
	"log"
	"strconv"

	"github.com/google/uuid"

	apperrors "github.com/dasjeff/warppoint/internal/platform/errors"
)

// Teleport moves entity to owner's named warp, enforcing the per-owner
// cooldown. The last-warp-time is persisted before the move; a persistence
// failure there is logged but does not abort the teleport.
func (s *Service) Teleport(ctx context.Context, entity uuid.UUID, owner uuid.UUID, name string) error {
	ctx, span := startSpan(ctx, "warp.teleport", owner)
	defer span.End()

	profile, err := s.profileFor(ctx, owner)
	if err != nil {
		return err
	}

	now := s.now()
	if profile.OnCooldown(s.cfg.Cooldown, now) {
		remaining := profile.RemainingCooldown(s.cfg.Cooldown, now)
		return apperrors.WithMetadata(apperrors.CodeCooldownActive,
			"teleport on cooldown", map[string]string{
				"remaining_seconds": strconv.FormatInt(int64(remaining.Seconds()), 10),
			})
	}

	warp, err := s.GetWarp(ctx, owner, name)
	if err != nil {
		return err
	}

	if s.worlds != nil && !s.worlds.ResolveWorld(warp.Location.World) {
		return apperrors.WithMetadata(apperrors.CodeWorldUnavailable,
			"world is not available", map[string]string{"world": warp.Location.World})
	}

	if err := s.store.UpdateLastWarpTime(ctx, owner, now); err != nil {
		log.Printf("warp service: persist last warp time for %s: %v", owner, err)
	}
	s.cache.Invalidate(owner)

	if s.mover == nil {
		return apperrors.New(apperrors.CodeTeleportFailed, "no movement backend configured")
	}
	if err := s.mover.Move(ctx, entity, warp.Location); err != nil {
		return apperrors.Wrap(apperrors.CodeTeleportFailed, "movement failed", err)
	}
	return nil
}
