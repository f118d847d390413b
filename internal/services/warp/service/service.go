// Package service orchestrates warp registry operations. It composes the
// storage layer and the owner cache into quota-respecting, cooldown-aware
// operations and is the only package other subsystems call.
//
// Operations on different owners are independent. Operations on the same
// owner are not serialized in-process: concurrent mutations may both pass the
// cached pre-checks, and the storage layer's unique key is the authoritative
// arbiter. The loser of that race receives the same typed conflict the
// pre-check would have produced.
package service

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/dasjeff/warppoint/internal/platform/errors"
	"github.com/dasjeff/warppoint/internal/services/warp/cache"
	"github.com/dasjeff/warppoint/internal/services/warp/domain"
	"github.com/dasjeff/warppoint/internal/services/warp/storage"
)

// Mover performs the actual entity movement. Implementations own dispatch to
// the host's main loop; Move returns after the movement completed or failed.
type Mover interface {
	Move(ctx context.Context, entity uuid.UUID, loc domain.Location) error
}

// WorldResolver reports whether a world name refers to a world the host can
// place entities in.
type WorldResolver interface {
	ResolveWorld(name string) bool
}

// Config carries the orchestrator's tunables.
type Config struct {
	// Cooldown is the minimum elapsed time between successful teleports
	// for one owner.
	Cooldown time.Duration
}

// Service implements the warp registry operations.
type Service struct {
	store  storage.Store
	cache  *cache.OwnerCache
	mover  Mover
	worlds WorldResolver
	cfg    Config
	now    func() time.Time
}

// New creates a Service. A nil now falls back to time.Now.
func New(store storage.Store, ownerCache *cache.OwnerCache, mover Mover, worlds WorldResolver, cfg Config, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	if ownerCache == nil {
		ownerCache = cache.New()
	}
	return &Service{
		store:  store,
		cache:  ownerCache,
		mover:  mover,
		worlds: worlds,
		cfg:    cfg,
		now:    now,
	}
}

// refreshTimeout bounds the detached background refresh spawned on a cold
// name-list read.
const refreshTimeout = 10 * time.Second

func tracer() trace.Tracer {
	return otel.Tracer("warppoint/service")
}

func startSpan(ctx context.Context, op string, owner uuid.UUID) (context.Context, trace.Span) {
	return tracer().Start(ctx, op, trace.WithAttributes(
		attribute.String("warp.owner_id", owner.String()),
	))
}

// profileFor reads the owner's profile through the cache, creating the
// profile row on first access.
func (s *Service) profileFor(ctx context.Context, owner uuid.UUID) (domain.Profile, error) {
	if profile, ok := s.cache.Profile(owner); ok {
		return profile, nil
	}
	profile, err := s.store.GetOrCreateProfile(ctx, owner)
	if err != nil {
		return domain.Profile{}, storageFailure("load profile", err)
	}
	s.cache.PutProfile(owner, profile)
	return profile, nil
}

// warpsFor reads the owner's warp list through the cache. A miss fetches the
// authoritative list once and populates the list, count, and name views
// together.
func (s *Service) warpsFor(ctx context.Context, owner uuid.UUID) ([]domain.Warp, error) {
	if warps, ok := s.cache.Warps(owner); ok {
		return warps, nil
	}
	warps, err := s.store.ListWarpsByOwner(ctx, owner)
	if err != nil {
		return nil, storageFailure("list warps", err)
	}
	s.cache.PutWarps(owner, warps)
	return warps, nil
}

// storageFailure maps storage layer errors to typed service errors.
// Unexpected errors are logged here and collapsed for the caller.
func storageFailure(op string, err error) *apperrors.Error {
	switch {
	case errors.Is(err, storage.ErrPoolExhausted):
		return apperrors.Wrap(apperrors.CodePoolExhausted, "storage pool exhausted", err)
	case errors.Is(err, storage.ErrNotFound):
		return apperrors.Wrap(apperrors.CodeNotFound, "record not found", err)
	default:
		log.Printf("warp service: %s: %v", op, err)
		return apperrors.Wrap(apperrors.CodeInternal, op+" failed", err)
	}
}

func limitMetadata(limit int) map[string]string {
	return map[string]string{"limit": strconv.Itoa(limit)}
}
