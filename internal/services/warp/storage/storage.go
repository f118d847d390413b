// Package storage defines persistence contracts for warp registry state.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dasjeff/warppoint/internal/services/warp/domain"
)

// ErrNotFound indicates a requested record is missing or a mutation touched
// zero rows.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness-constrained record already exists.
var ErrAlreadyExists = errors.New("record already exists")

// ErrPoolExhausted indicates connection acquisition timed out against the
// bounded pool.
var ErrPoolExhausted = errors.New("connection pool exhausted")

// WarpStore persists warps.
//
// Each call acquires its own short-lived connection; multi-row mutations go
// through TxRunner instead.
type WarpStore interface {
	CreateWarp(ctx context.Context, warp domain.Warp) (domain.Warp, error)
	GetWarpByID(ctx context.Context, id int64) (domain.Warp, error)
	GetWarpByOwnerAndName(ctx context.Context, owner uuid.UUID, name string) (domain.Warp, error)
	ListWarpsByOwner(ctx context.Context, owner uuid.UUID) ([]domain.Warp, error)
	CountWarpsByOwner(ctx context.Context, owner uuid.UUID) (int, error)
	UpdateWarp(ctx context.Context, warp domain.Warp) error
	DeleteWarpByID(ctx context.Context, id int64) error
	DeleteWarpByOwnerAndName(ctx context.Context, owner uuid.UUID, name string) error
	ListOwners(ctx context.Context) ([]uuid.UUID, error)
}

// ProfileStore persists per-owner registry profiles.
type ProfileStore interface {
	GetProfile(ctx context.Context, owner uuid.UUID) (domain.Profile, error)
	GetOrCreateProfile(ctx context.Context, owner uuid.UUID) (domain.Profile, error)
	UpdateWarpLimit(ctx context.Context, owner uuid.UUID, limit int) error
	UpdateLastWarpTime(ctx context.Context, owner uuid.UUID, at time.Time) error
}

// Tx exposes the repository mutations that may participate in an
// externally-owned transaction. Implementations never commit, roll back, or
// release the underlying connection; the transaction owner does.
type Tx interface {
	CreateWarp(ctx context.Context, warp domain.Warp) (domain.Warp, error)
	DeleteWarpByID(ctx context.Context, id int64) error
}

// TxRunner executes a unit of work under a single transaction: committed when
// fn returns nil, rolled back when fn returns an error.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(tx Tx) error) error
}

// Store is the full persistence surface the orchestrator composes.
type Store interface {
	WarpStore
	ProfileStore
	TxRunner
	Close() error
}
