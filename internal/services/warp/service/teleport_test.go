package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/dasjeff/warppoint/internal/platform/errors"
)

func TestTeleportMovesEntity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()

	if _, err := f.svc.CreateWarp(ctx, owner, "home", testLocation()); err != nil {
		t.Fatalf("CreateWarp: %v", err)
	}
	if err := f.svc.Teleport(ctx, owner, owner, "home"); err != nil {
		t.Fatalf("Teleport: %v", err)
	}
	if len(f.mover.moves) != 1 || f.mover.moves[0] != testLocation() {
		t.Fatalf("moves = %v, want one to %+v", f.mover.moves, testLocation())
	}
}

func TestTeleportCooldown(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()

	if _, err := f.svc.CreateWarp(ctx, owner, "home", testLocation()); err != nil {
		t.Fatalf("CreateWarp: %v", err)
	}
	if err := f.svc.Teleport(ctx, owner, owner, "home"); err != nil {
		t.Fatalf("first Teleport: %v", err)
	}

	err := f.svc.Teleport(ctx, owner, owner, "home")
	wantCode(t, err, apperrors.CodeCooldownActive)

	var domainErr *apperrors.Error
	if !errors.As(err, &domainErr) {
		t.Fatalf("error type = %T", err)
	}
	if remaining := domainErr.Metadata["remaining_seconds"]; remaining != "3" {
		t.Fatalf("remaining_seconds = %q, want 3", remaining)
	}

	f.clock.Advance(3 * time.Second)
	if err := f.svc.Teleport(ctx, owner, owner, "home"); err != nil {
		t.Fatalf("Teleport after cooldown: %v", err)
	}
}

func TestTeleportEvictsOwnerCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()

	if _, err := f.svc.CreateWarp(ctx, owner, "home", testLocation()); err != nil {
		t.Fatalf("CreateWarp: %v", err)
	}
	if err := f.svc.Teleport(ctx, owner, owner, "home"); err != nil {
		t.Fatalf("Teleport: %v", err)
	}

	// Eviction is all four views or none; the teleport's last-warp-time
	// write must not leave partial owner state behind.
	if _, ok := f.svc.cache.Profile(owner); ok {
		t.Fatal("profile view survived teleport")
	}
	if _, ok := f.svc.cache.Warps(owner); ok {
		t.Fatal("warp list view survived teleport")
	}
	if _, ok := f.svc.cache.Count(owner); ok {
		t.Fatal("count view survived teleport")
	}
	if _, ok := f.svc.cache.Names(owner); ok {
		t.Fatal("name view survived teleport")
	}
}

func TestTeleportMissingWarp(t *testing.T) {
	f := newFixture(t)
	err := f.svc.Teleport(context.Background(), uuid.New(), uuid.New(), "ghost")
	wantCode(t, err, apperrors.CodeNotFound)
}

func TestTeleportUnavailableWorld(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()

	if _, err := f.svc.CreateWarp(ctx, owner, "home", testLocation()); err != nil {
		t.Fatalf("CreateWarp: %v", err)
	}
	f.worlds.unavailable["world"] = true

	err := f.svc.Teleport(ctx, owner, owner, "home")
	wantCode(t, err, apperrors.CodeWorldUnavailable)
	if len(f.mover.moves) != 0 {
		t.Fatal("entity moved despite unavailable world")
	}
}

func TestTeleportMoveFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()

	if _, err := f.svc.CreateWarp(ctx, owner, "home", testLocation()); err != nil {
		t.Fatalf("CreateWarp: %v", err)
	}
	f.mover.err = errors.New("entity despawned")

	err := f.svc.Teleport(ctx, owner, owner, "home")
	wantCode(t, err, apperrors.CodeTeleportFailed)
}
