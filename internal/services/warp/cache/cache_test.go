package cache

import (
	"testing"

	"github.com/google/uuid"

	"github.com/dasjeff/warppoint/internal/services/warp/domain"
)

func testWarps(owner uuid.UUID, names ...string) []domain.Warp {
	warps := make([]domain.Warp, 0, len(names))
	for i, name := range names {
		warps = append(warps, domain.Warp{
			ID:      int64(i + 1),
			OwnerID: owner,
			Name:    name,
			Location: domain.Location{
				World: "world",
				X:     float64(i),
			},
		})
	}
	return warps
}

func TestPutWarpsPopulatesDerivedViews(t *testing.T) {
	c := New()
	owner := uuid.New()

	c.PutWarps(owner, testWarps(owner, "home", "base"))

	warps, ok := c.Warps(owner)
	if !ok || len(warps) != 2 {
		t.Fatalf("warps = %v, %v; want 2 entries", warps, ok)
	}
	count, ok := c.Count(owner)
	if !ok || count != 2 {
		t.Fatalf("count = %d, %v; want 2", count, ok)
	}
	names, ok := c.Names(owner)
	if !ok || len(names) != 2 || names[0] != "home" || names[1] != "base" {
		t.Fatalf("names = %v, %v; want [home base]", names, ok)
	}
}

func TestInvalidateEvictsAllViews(t *testing.T) {
	c := New()
	owner := uuid.New()
	other := uuid.New()

	c.PutWarps(owner, testWarps(owner, "home"))
	c.PutProfile(owner, domain.Profile{OwnerID: owner, WarpLimit: 5})
	c.PutWarps(other, testWarps(other, "camp"))

	c.Invalidate(owner)

	if _, ok := c.Profile(owner); ok {
		t.Fatal("profile survived invalidation")
	}
	if _, ok := c.Warps(owner); ok {
		t.Fatal("warp list survived invalidation")
	}
	if _, ok := c.Count(owner); ok {
		t.Fatal("count survived invalidation")
	}
	if _, ok := c.Names(owner); ok {
		t.Fatal("names survived invalidation")
	}
	if _, ok := c.Warps(other); !ok {
		t.Fatal("invalidation leaked to another owner")
	}
}

func TestInvalidateProfileKeepsWarpViews(t *testing.T) {
	c := New()
	owner := uuid.New()

	c.PutWarps(owner, testWarps(owner, "home"))
	c.PutProfile(owner, domain.Profile{OwnerID: owner, WarpLimit: 5})

	c.InvalidateProfile(owner)

	if _, ok := c.Profile(owner); ok {
		t.Fatal("profile survived invalidation")
	}
	if _, ok := c.Warps(owner); !ok {
		t.Fatal("warp list was evicted by profile invalidation")
	}
}

func TestClearWipesEveryOwner(t *testing.T) {
	c := New()
	first := uuid.New()
	second := uuid.New()

	c.PutWarps(first, testWarps(first, "home"))
	c.PutProfile(second, domain.Profile{OwnerID: second, WarpLimit: 3})

	c.Clear()

	if _, ok := c.Warps(first); ok {
		t.Fatal("first owner survived clear")
	}
	if _, ok := c.Profile(second); ok {
		t.Fatal("second owner survived clear")
	}
}

func TestMissReturnsZeroValues(t *testing.T) {
	c := New()
	owner := uuid.New()

	if profile, ok := c.Profile(owner); ok || profile.WarpLimit != 0 {
		t.Fatalf("Profile miss = %v, %v", profile, ok)
	}
	if count, ok := c.Count(owner); ok || count != 0 {
		t.Fatalf("Count miss = %d, %v", count, ok)
	}
}
