package terrain

import (
	"errors"
	"math"
	"testing"

	"overlay-planner/internal/geometry"
)

func rect(x0, y0, x1, y1 int32) geometry.Ring {
	return geometry.Ring{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}}
}

func twoSectors(t *testing.T) (*Sector, *Sector) {
	t.Helper()
	a, err := NewSector(1, "west", rect(0, 0, 100, 100), nil, geometry.DoubleVector3{}, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// rotated half a turn so its local right edge lands on a's right edge
	b, err := NewSector(2, "east", rect(0, 0, 100, 100), nil, geometry.DoubleVector3{X: 200, Y: 100}, math.Pi)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return a, b
}

func TestSectorTransformRoundTrip(t *testing.T) {
	_, b := twoSectors(t)
	local := geometry.DoubleVector2{X: 25, Y: 75}
	world := b.LocalToWorld(local)
	if math.Abs(world.X-175) > 1e-9 || math.Abs(world.Y-25) > 1e-9 {
		t.Fatalf("unexpected world point %v", world)
	}
	back := b.WorldToLocal(world)
	if back.Distance(local) > 1e-9 {
		t.Fatalf("expected round trip to %v, got %v", local, back)
	}
	bound := b.WorldBound()
	if math.Abs(bound.Min[0]-100) > 1e-9 || math.Abs(bound.Max[0]-200) > 1e-9 {
		t.Fatalf("unexpected world bound %v", bound)
	}
}

func TestNewServiceValidatesPortals(t *testing.T) {
	a, b := twoSectors(t)
	// b's edge 3 lies on world x=200, away from a
	if _, err := NewService([]*Sector{a, b}, []Portal{{SectorA: 1, EdgeA: 1, SectorB: 2, EdgeB: 3}}); !errors.Is(err, ErrInvalidPortal) {
		t.Fatalf("expected portal mismatch, got %v", err)
	}

	if _, err := NewService([]*Sector{a, b}, []Portal{{SectorA: 1, EdgeA: 1, SectorB: 2, EdgeB: 1}}); err != nil {
		t.Fatalf("expected rotated sector portal to validate, got %v", err)
	}
	c, err := NewSector(3, "east", rect(0, 0, 100, 100), nil, geometry.DoubleVector3{X: 100}, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// c's edge 3 runs (0,100)->(0,0) in local and world (100,100)->(100,0)
	if _, err := NewService([]*Sector{a, c}, []Portal{{SectorA: 1, EdgeA: 1, SectorB: 3, EdgeB: 3}}); err != nil {
		t.Fatalf("expected matching portal to validate, got %v", err)
	}
	if _, err := NewService([]*Sector{a}, []Portal{{SectorA: 1, EdgeA: 1, SectorB: 9, EdgeB: 0}}); !errors.Is(err, ErrUnknownSector) {
		t.Fatalf("expected unknown sector error, got %v", err)
	}
}

func TestServiceHoleVersions(t *testing.T) {
	a, b := twoSectors(t)
	svc, err := NewService([]*Sector{a, b}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	before := svc.Snapshot()

	id, err := svc.AddHole(1, rect(10, 10, 20, 20))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	after := svc.Snapshot()
	if after.ID == before.ID {
		t.Fatalf("expected a new snapshot identity")
	}
	if after.Version(1) != before.Version(1)+1 || after.Version(2) != before.Version(2) {
		t.Fatalf("expected only sector 1 to change version")
	}
	if len(before.HoleRings(1)) != 0 || len(after.HoleRings(1)) != 1 {
		t.Fatalf("expected old snapshot to stay unchanged")
	}

	if err := svc.RemoveHole(id); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	removed := svc.Snapshot()
	if len(removed.HoleRings(1)) != 0 || removed.Version(1) != after.Version(1)+1 {
		t.Fatalf("expected hole removal to bump the version")
	}
	if err := svc.RemoveHole(id); !errors.Is(err, ErrUnknownHole) {
		t.Fatalf("expected unknown hole error, got %v", err)
	}
	if _, err := svc.AddHole(7, rect(0, 0, 1, 1)); !errors.Is(err, ErrUnknownSector) {
		t.Fatalf("expected unknown sector error, got %v", err)
	}
}

func TestAddWorldHoleMapsIntoSectors(t *testing.T) {
	a, b := twoSectors(t)
	svc, err := NewService([]*Sector{a, b}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// straddles the line x=100 where both sectors meet
	ring := []geometry.DoubleVector3{{X: 90, Y: 40}, {X: 110, Y: 40}, {X: 110, Y: 60}, {X: 90, Y: 60}}
	id, touched, err := svc.AddWorldHole(ring)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(touched) != 2 {
		t.Fatalf("expected both sectors to be touched, got %v", touched)
	}
	snap := svc.Snapshot()
	for _, sid := range touched {
		hs := snap.DynamicHoles(sid)
		if len(hs) != 1 || hs[0].ID != id {
			t.Fatalf("expected hole %s in sector %d, got %v", id, sid, hs)
		}
	}
	local := snap.DynamicHoles(2)[0].Ring.Bounds()
	if local != (geometry.IntRect{Left: 90, Top: 40, Right: 110, Bottom: 60}) {
		t.Fatalf("unexpected local bounds in rotated sector: %v", local)
	}
	if snap.HoleCount() != 1 {
		t.Fatalf("expected one distinct hole, got %d", snap.HoleCount())
	}
}

func TestParseHoles(t *testing.T) {
	data := []byte(`{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {}, "geometry": {"type": "Polygon", "coordinates": [[[0,0],[10,0],[10,10],[5,10.001],[0,10],[0,0]]]}},
    {"type": "Feature", "properties": {}, "geometry": {"type": "MultiPolygon", "coordinates": [[[[20,20],[30,20],[30,30],[20,20]]], [[[40,40],[40.1,40],[40.1,40.1],[40,40]]]]}},
    {"type": "Feature", "properties": {}, "geometry": {"type": "Point", "coordinates": [1,1]}}
  ]
}`)
	rings, err := ParseHoles(data, HoleLoadOptions{SimplifyEpsilon: 0.01, MinArea: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rings) != 2 {
		t.Fatalf("expected the tiny ring and the point to be dropped, got %d rings", len(rings))
	}
	if len(rings[0]) != 4 {
		t.Fatalf("expected the near-collinear vertex to be simplified away, got %v", rings[0])
	}
	if len(rings[1]) != 3 {
		t.Fatalf("expected the triangle to be kept, got %v", rings[1])
	}

	// a tolerance wider than the ring would collapse it
	coarse, err := ParseHoles(data, HoleLoadOptions{SimplifyEpsilon: 100})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(coarse) != 3 || len(coarse[0]) != 5 {
		t.Fatalf("expected collapsing rings to be kept unsimplified, got %v", coarse)
	}
	if _, err := ParseHoles([]byte("not json"), HoleLoadOptions{}); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestParseHolesClockwiseArea(t *testing.T) {
	data := []byte(`{"type": "FeatureCollection", "features": [
  {"type": "Feature", "properties": {}, "geometry": {"type": "Polygon", "coordinates": [[[0,0],[0,10],[10,10],[10,0],[0,0]]]}},
  {"type": "Feature", "properties": {}, "geometry": {"type": "Polygon", "coordinates": [[[0,0],[0,0.5],[0.5,0.5],[0.5,0],[0,0]]]}}
]}`)
	rings, err := ParseHoles(data, HoleLoadOptions{MinArea: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rings) != 1 || len(rings[0]) != 4 {
		t.Fatalf("expected only the large clockwise ring, got %v", rings)
	}
}
