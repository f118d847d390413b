package domain

import (
	"time"

	"github.com/google/uuid"
)

// Profile holds per-owner registry settings and cooldown state.
//
// LastWarpTime's zero value means the owner has never teleported.
type Profile struct {
	OwnerID      uuid.UUID
	WarpLimit    int
	LastWarpTime time.Time
}

// OnCooldown reports whether a teleport at now would violate the cooldown.
func (p Profile) OnCooldown(cooldown time.Duration, now time.Time) bool {
	if p.LastWarpTime.IsZero() || cooldown <= 0 {
		return false
	}
	return now.Sub(p.LastWarpTime) < cooldown
}

// RemainingCooldown returns the time left until the owner may teleport again,
// rounded up to whole seconds so callers never report "0s remaining" while
// still blocked.
func (p Profile) RemainingCooldown(cooldown time.Duration, now time.Time) time.Duration {
	if !p.OnCooldown(cooldown, now) {
		return 0
	}
	remaining := cooldown - now.Sub(p.LastWarpTime)
	secs := (remaining + time.Second - 1) / time.Second * time.Second
	return secs
}
