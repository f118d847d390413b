// Package domain holds the warp registry's core entities and validation rules.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dasjeff/warppoint/internal/platform/errors"
)

// Name length bounds for warps.
const (
	MinNameLength = 3
	MaxNameLength = 32
)

// Location is a named point in 3D space with orientation.
type Location struct {
	World string
	X     float64
	Y     float64
	Z     float64
	Yaw   float32
	Pitch float32
}

// Warp is a named, owned point in 3D space.
//
// (OwnerID, Name) is unique per registry, compared case-insensitively but
// stored case-preserving.
type Warp struct {
	ID        int64
	OwnerID   uuid.UUID
	Name      string
	Location  Location
	CreatedAt time.Time
}

// ValidateName checks warp naming rules: 3-32 characters, alphanumeric or
// underscore only.
func ValidateName(name string) error {
	if len(name) < MinNameLength || len(name) > MaxNameLength {
		return errors.WithMetadata(errors.CodeWarpNameInvalid, "warp name length out of range",
			map[string]string{"name": name})
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '_':
		default:
			return errors.WithMetadata(errors.CodeWarpNameInvalid, "warp name contains illegal character",
				map[string]string{"name": name})
		}
	}
	return nil
}

// NamesEqual compares two warp names under the registry's case-insensitive rule.
func NamesEqual(a, b string) bool {
	return strings.EqualFold(a, b)
}
