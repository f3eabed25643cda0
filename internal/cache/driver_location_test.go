package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T) (DriverLocationCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewDriverLocationCache(client), mr
}

func TestUpdateAndGetLocation(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)

	heading := 90.0
	if err := c.UpdateLocation(ctx, "d1", -23.55, -46.63, &heading, nil, nil); err != nil {
		t.Fatalf("UpdateLocation() error = %v", err)
	}

	loc, err := c.GetDriverLocation(ctx, "d1")
	if err != nil {
		t.Fatalf("GetDriverLocation() error = %v", err)
	}
	if loc == nil || loc.Lat != -23.55 || loc.Lng != -46.63 || loc.Heading != 90 {
		t.Errorf("location = %+v", loc)
	}

	missing, err := c.GetDriverLocation(ctx, "nobody")
	if err != nil || missing != nil {
		t.Errorf("GetDriverLocation(nobody) = %+v, %v", missing, err)
	}
}

func TestGetLocationsSkipsMissing(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)

	c.UpdateLocation(ctx, "d1", -23.55, -46.63, nil, nil, nil)
	c.UpdateLocation(ctx, "d3", -23.56, -46.64, nil, nil, nil)

	locs, err := c.GetLocations(ctx, []string{"d1", "d2", "d3"})
	if err != nil {
		t.Fatalf("GetLocations() error = %v", err)
	}
	if len(locs) != 2 || locs["d1"] == nil || locs["d3"] == nil {
		t.Errorf("locations = %v", locs)
	}
}

func TestLocationExpires(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	c.UpdateLocation(ctx, "d1", -23.55, -46.63, nil, nil, nil)
	mr.FastForward(locationTTL + 1)

	loc, _ := c.GetDriverLocation(ctx, "d1")
	if loc != nil {
		t.Errorf("location after ttl = %+v, want nil", loc)
	}
}

func TestRemoveDriver(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)

	c.UpdateLocation(ctx, "d1", -23.5505, -46.6333, nil, nil, nil)
	if err := c.RemoveDriver(ctx, "d1"); err != nil {
		t.Fatalf("RemoveDriver() error = %v", err)
	}
	if loc, _ := c.GetDriverLocation(ctx, "d1"); loc != nil {
		t.Errorf("location after remove = %+v", loc)
	}
}

func TestActiveRideKeys(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)

	c.SetActiveRide(ctx, "d1", "r1")
	c.SetPatientActiveRide(ctx, "p1", "r1")

	if got, _ := c.GetActiveRide(ctx, "d1"); got != "r1" {
		t.Errorf("GetActiveRide() = %q", got)
	}
	if got, _ := c.GetPatientActiveRide(ctx, "p1"); got != "r1" {
		t.Errorf("GetPatientActiveRide() = %q", got)
	}

	c.ClearActiveRide(ctx, "d1")
	c.ClearPatientActiveRide(ctx, "p1")
	if got, _ := c.GetActiveRide(ctx, "d1"); got != "" {
		t.Errorf("GetActiveRide() after clear = %q", got)
	}
	if got, _ := c.GetPatientActiveRide(ctx, "p1"); got != "" {
		t.Errorf("GetPatientActiveRide() after clear = %q", got)
	}
}
