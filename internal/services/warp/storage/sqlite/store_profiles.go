package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dasjeff/warppoint/internal/services/warp/domain"
	"github.com/dasjeff/warppoint/internal/services/warp/storage"
)

// GetProfile fetches an owner's profile.
func (s *Store) GetProfile(ctx context.Context, owner uuid.UUID) (domain.Profile, error) {
	if err := ctx.Err(); err != nil {
		return domain.Profile{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Profile{}, fmt.Errorf("storage is not configured")
	}
	if owner == uuid.Nil {
		return domain.Profile{}, fmt.Errorf("owner id is required")
	}

	var (
		limit        int
		lastWarpTime int64
	)
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT warp_limit, last_warp_time
FROM profiles
WHERE owner_id = ?
`, owner.String())
	if err := row.Scan(&limit, &lastWarpTime); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Profile{}, storage.ErrNotFound
		}
		return domain.Profile{}, fmt.Errorf("get profile: %w", err)
	}

	profile := domain.Profile{OwnerID: owner, WarpLimit: limit}
	if lastWarpTime > 0 {
		profile.LastWarpTime = fromMillis(lastWarpTime)
	}
	return profile, nil
}

// GetOrCreateProfile fetches an owner's profile, lazily creating it with the
// configured default warp limit on first access.
func (s *Store) GetOrCreateProfile(ctx context.Context, owner uuid.UUID) (domain.Profile, error) {
	profile, err := s.GetProfile(ctx, owner)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return domain.Profile{}, err
	}

	// INSERT OR IGNORE keeps concurrent first accesses idempotent: the loser
	// re-reads whatever the winner persisted.
	if _, err := s.sqlDB.ExecContext(ctx, `
INSERT OR IGNORE INTO profiles (owner_id, warp_limit, last_warp_time)
VALUES (?, ?, 0)
`, owner.String(), s.defaultWarpLimit); err != nil {
		return domain.Profile{}, fmt.Errorf("create profile: %w", err)
	}

	return s.GetProfile(ctx, owner)
}

// UpdateWarpLimit sets an owner's warp limit.
func (s *Store) UpdateWarpLimit(ctx context.Context, owner uuid.UUID, limit int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if owner == uuid.Nil {
		return fmt.Errorf("owner id is required")
	}
	if limit < 0 {
		return fmt.Errorf("warp limit must be non-negative")
	}

	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE profiles
SET warp_limit = ?
WHERE owner_id = ?
`, limit, owner.String())
	if err != nil {
		return fmt.Errorf("update warp limit: %w", err)
	}
	return requireAffectedRow(result, "update warp limit")
}

// UpdateLastWarpTime records an owner's most recent successful teleport.
func (s *Store) UpdateLastWarpTime(ctx context.Context, owner uuid.UUID, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if owner == uuid.Nil {
		return fmt.Errorf("owner id is required")
	}

	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE profiles
SET last_warp_time = ?
WHERE owner_id = ?
`, toMillis(at), owner.String())
	if err != nil {
		return fmt.Errorf("update last warp time: %w", err)
	}
	return requireAffectedRow(result, "update last warp time")
}
