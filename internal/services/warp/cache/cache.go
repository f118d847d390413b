// Package cache holds the owner-keyed in-memory views of warp registry state.
//
// Four maps are kept per owner: profile, warp list, warp count, and warp name
// list. The derived views (list, count, names) are populated together from one
// fetched list and evicted together, so a present entry is always internally
// consistent with the repository state it was read from. Eviction is
// all-or-nothing per owner; the sole exception is the limit-change fast path
// (PutProfile overwrite, InvalidateProfile on a failed update), which touches
// the profile view alone. The cache provides read-through convenience, not
// linearizability; the storage layer's uniqueness constraints are the
// correctness backstop.
package cache

import (
	"github.com/VictoriaMetrics/metrics"
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/dasjeff/warppoint/internal/services/warp/domain"
)

var (
	hitsTotal   = metrics.NewCounter(`warppoint_cache_hits_total`)
	missesTotal = metrics.NewCounter(`warppoint_cache_misses_total`)
)

// OwnerCache caches per-owner registry state.
type OwnerCache struct {
	profiles *xsync.MapOf[uuid.UUID, domain.Profile]
	warps    *xsync.MapOf[uuid.UUID, []domain.Warp]
	counts   *xsync.MapOf[uuid.UUID, int]
	names    *xsync.MapOf[uuid.UUID, []string]
}

// New creates an empty OwnerCache.
func New() *OwnerCache {
	return &OwnerCache{
		profiles: xsync.NewMapOf[uuid.UUID, domain.Profile](),
		warps:    xsync.NewMapOf[uuid.UUID, []domain.Warp](),
		counts:   xsync.NewMapOf[uuid.UUID, int](),
		names:    xsync.NewMapOf[uuid.UUID, []string](),
	}
}

// Profile returns the cached profile for an owner.
func (c *OwnerCache) Profile(owner uuid.UUID) (domain.Profile, bool) {
	profile, ok := c.profiles.Load(owner)
	observe(ok)
	return profile, ok
}

// Warps returns the cached warp list for an owner.
func (c *OwnerCache) Warps(owner uuid.UUID) ([]domain.Warp, bool) {
	warps, ok := c.warps.Load(owner)
	observe(ok)
	return warps, ok
}

// Count returns the cached warp count for an owner.
func (c *OwnerCache) Count(owner uuid.UUID) (int, bool) {
	count, ok := c.counts.Load(owner)
	observe(ok)
	return count, ok
}

// Names returns the cached warp name list for an owner.
func (c *OwnerCache) Names(owner uuid.UUID) ([]string, bool) {
	names, ok := c.names.Load(owner)
	observe(ok)
	return names, ok
}

// PutWarps populates the three derived views for an owner from one
// authoritative list. Populating them together prevents a count/content skew
// between views.
func (c *OwnerCache) PutWarps(owner uuid.UUID, warps []domain.Warp) {
	names := make([]string, 0, len(warps))
	for _, warp := range warps {
		names = append(names, warp.Name)
	}
	c.warps.Store(owner, warps)
	c.counts.Store(owner, len(warps))
	c.names.Store(owner, names)
}

// PutProfile caches an owner's profile.
func (c *OwnerCache) PutProfile(owner uuid.UUID, profile domain.Profile) {
	c.profiles.Store(owner, profile)
}

// Invalidate evicts all four views for one owner. Eviction is all-or-nothing
// per owner; there is no field-level patching.
func (c *OwnerCache) Invalidate(owner uuid.UUID) {
	c.profiles.Delete(owner)
	c.warps.Delete(owner)
	c.counts.Delete(owner)
	c.names.Delete(owner)
}

// InvalidateProfile evicts only the profile view, used when a limit-change
// fast path failed and the cached value may no longer match storage.
func (c *OwnerCache) InvalidateProfile(owner uuid.UUID) {
	c.profiles.Delete(owner)
}

// Clear wipes every owner from all four views.
func (c *OwnerCache) Clear() {
	c.profiles.Clear()
	c.warps.Clear()
	c.counts.Clear()
	c.names.Clear()
}

func observe(hit bool) {
	if hit {
		hitsTotal.Inc()
		return
	}
	missesTotal.Inc()
}
