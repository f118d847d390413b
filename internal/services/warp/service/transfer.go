package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	apperrors "github.com/dasjeff/warppoint/internal/platform/errors"
	"github.com/dasjeff/warppoint/internal/services/warp/domain"
	"github.com/dasjeff/warppoint/internal/services/warp/storage"
)

// TransferWarp moves the named warp from source to target in one
// transaction. The target receives a copy with a new id and a fresh
// creation timestamp; the source row is deleted. The warp never exists for
// both owners or for neither: a zero-row delete aborts the transaction and
// rolls back the insert.
func (s *Service) TransferWarp(ctx context.Context, source, target uuid.UUID, name string) error {
	ctx, span := startSpan(ctx, "warp.transfer", source)
	defer span.End()

	// Pre-checks run off the cache and provide no exclusivity; the unique
	// key inside the transaction is the authoritative rejection.
	targetProfile, err := s.profileFor(ctx, target)
	if err != nil {
		return err
	}
	targetWarps, err := s.warpsFor(ctx, target)
	if err != nil {
		return err
	}
	if len(targetWarps) >= targetProfile.WarpLimit {
		return apperrors.WithMetadata(apperrors.CodeTargetLimitExceeded,
			"target owner warp limit reached", limitMetadata(targetProfile.WarpLimit))
	}
	for _, existing := range targetWarps {
		if domain.NamesEqual(existing.Name, name) {
			return apperrors.WithMetadata(apperrors.CodeTargetDuplicateName,
				"target owner already has a warp with this name", map[string]string{"name": name})
		}
	}

	sourceWarp, err := s.store.GetWarpByOwnerAndName(ctx, source, name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperrors.WithMetadata(apperrors.CodeNotFound,
				"warp not found", map[string]string{"name": name})
		}
		return storageFailure("load source warp", err)
	}

	err = s.store.RunInTx(ctx, func(tx storage.Tx) error {
		if _, err := tx.CreateWarp(ctx, domain.Warp{
			OwnerID:   target,
			Name:      sourceWarp.Name,
			Location:  sourceWarp.Location,
			CreatedAt: s.now(),
		}); err != nil {
			return err
		}
		return tx.DeleteWarpByID(ctx, sourceWarp.ID)
	})
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrAlreadyExists):
			// The stale snapshot let the pre-check pass; evict it so the
			// next attempt rejects without re-entering the transaction.
			s.cache.Invalidate(target)
			return apperrors.WithMetadata(apperrors.CodeTargetDuplicateName,
				"target owner already has a warp with this name", map[string]string{"name": name})
		case errors.Is(err, storage.ErrPoolExhausted):
			return apperrors.Wrap(apperrors.CodePoolExhausted, "storage pool exhausted", err)
		default:
			return apperrors.Wrap(apperrors.CodeTransactionFailure, "transfer rolled back", err)
		}
	}

	s.cache.Invalidate(source)
	s.cache.Invalidate(target)
	return nil
}
