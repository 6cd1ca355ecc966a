package region

import (
	"math"
	"testing"

	"overlay-planner/internal/geometry"
	"overlay-planner/internal/polygons"
)

func rect(x0, y0, x1, y1 int32) geometry.Ring {
	return geometry.Ring{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}}
}

func mustRegion(t *testing.T, contour geometry.Ring, holes ...geometry.Ring) *Region {
	t.Helper()
	node := &polygons.PolyNode{Contour: contour.Oriented(true)}
	for _, h := range holes {
		node.Children = append(node.Children, &polygons.PolyNode{Contour: h.Oriented(false), IsHole: true})
	}
	r, err := newRegion(0, node, polygons.NewEarClipper())
	if err != nil {
		t.Fatalf("unexpected region error: %v", err)
	}
	return r
}

// uRoom is a U-shaped room with a small hole in its base.
func uRoom(t *testing.T) *Region {
	contour := geometry.Ring{
		{X: 0, Y: 0}, {X: 300, Y: 0}, {X: 300, Y: 300}, {X: 200, Y: 300},
		{X: 200, Y: 100}, {X: 100, Y: 100}, {X: 100, Y: 300}, {X: 0, Y: 300},
	}
	return mustRegion(t, contour, rect(130, 30, 170, 60))
}

func squareRoom(t *testing.T) *Region {
	return mustRegion(t, rect(0, 0, 1000, 1000), rect(340, 340, 660, 660))
}

func shortestPaths(points []geometry.IntVector2, connected func(i, j int) bool) [][]float64 {
	n := len(points)
	d := make([][]float64, n)
	for i := range d {
		d[i] = make([]float64, n)
		for j := range d[i] {
			switch {
			case i == j:
				d[i][j] = 0
			case connected(i, j):
				d[i][j] = points[i].Distance(points[j])
			default:
				d[i][j] = math.Inf(1)
			}
		}
	}
	for k := 0; k < n; k++ {
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				if d[i][k]+d[k][j] < d[i][j] {
					d[i][j] = d[i][k] + d[k][j]
				}
			}
		}
	}
	return d
}

func polylineLength(path []geometry.IntVector2) float64 {
	var l float64
	for i := 1; i < len(path); i++ {
		l += path[i-1].Distance(path[i])
	}
	return l
}

func TestTriangulationAdjacencySymmetry(t *testing.T) {
	for _, r := range []*Region{squareRoom(t), uRoom(t)} {
		boundary := 0
		for ti, tri := range r.Triangles {
			for e, n := range tri.Neighbors {
				if n == NoNeighbor {
					boundary++
					continue
				}
				a, b := tri.Points[e], tri.Points[(e+1)%3]
				other := r.Triangles[n]
				found := false
				for oe := 0; oe < 3; oe++ {
					if other.Points[oe] == b && other.Points[(oe+1)%3] == a {
						found = other.Neighbors[oe] == int32(ti)
					}
				}
				if !found {
					t.Fatalf("triangle %d edge %d: neighbor %d does not link back", ti, e, n)
				}
			}
		}
		if boundary != len(r.Barriers) {
			t.Fatalf("expected %d boundary edges, got %d", len(r.Barriers), boundary)
		}
	}
}

func TestWaypointsAreReflexVertices(t *testing.T) {
	r := squareRoom(t)
	if got := r.Waypoints.Count(); got != 4 {
		t.Fatalf("expected the 4 hole corners as waypoints, got %v", r.Waypoints.Waypoints)
	}
	u := uRoom(t)
	if got := u.Waypoints.Count(); got != 6 {
		t.Fatalf("expected 2 reflex contour corners and 4 hole corners, got %v", u.Waypoints.Waypoints)
	}
}

func TestWaypointLUTMatchesBruteForce(t *testing.T) {
	for _, r := range []*Region{squareRoom(t), uRoom(t)} {
		wm := r.Waypoints
		want := shortestPaths(wm.Waypoints, func(i, j int) bool {
			return r.SegmentClear(wm.Waypoints[i], wm.Waypoints[j])
		})
		for a := range wm.Waypoints {
			for b := range wm.Waypoints {
				got := wm.Lookup(a, b)
				if math.Abs(got.Cost-want[a][b]) > 1e-6 {
					t.Fatalf("lookup(%d, %d): expected %v, got %v", a, b, want[a][b], got)
				}
				path := wm.Path(a, b)
				if path[0] != a || path[len(path)-1] != b {
					t.Fatalf("path(%d, %d) has wrong endpoints: %v", a, b, path)
				}
				if c := wm.PathCost(path); math.Abs(c-want[a][b]) > 1e-6 {
					t.Fatalf("path(%d, %d) = %v has length %v, expected %v", a, b, path, c, want[a][b])
				}
				for i := 1; i < len(path); i++ {
					if !r.SegmentClear(wm.Waypoints[path[i-1]], wm.Waypoints[path[i]]) {
						t.Fatalf("path(%d, %d) hop %d is blocked", a, b, i)
					}
				}
			}
		}
	}
}

func TestVisibilityMatchesSegmentClear(t *testing.T) {
	r := uRoom(t)
	var samples []geometry.IntVector2
	for x := int32(7); x < 300; x += 23 {
		for y := int32(11); y < 300; y += 29 {
			p := geometry.NewIntVector2(x, y)
			if r.ContainsPoint(p.ToDouble()) {
				samples = append(samples, p)
			}
		}
	}
	samples = append(samples, geometry.NewIntVector2(250, 100), geometry.NewIntVector2(150, 0))
	for i, w := range r.Waypoints.Waypoints {
		for _, p := range samples {
			if got, want := r.Waypoints.IsVisible(i, p), r.SegmentClear(w, p); got != want {
				t.Fatalf("waypoint %v to %v: visibility %v, segment test %v", w, p, got, want)
			}
		}
	}
}

func TestSegmentClear(t *testing.T) {
	r := squareRoom(t)
	cases := []struct {
		a, b geometry.IntVector2
		want bool
	}{
		{geometry.NewIntVector2(0, 0), geometry.NewIntVector2(1000, 0), true},
		{geometry.NewIntVector2(0, 0), geometry.NewIntVector2(1000, 1000), false},
		{geometry.NewIntVector2(0, 340), geometry.NewIntVector2(1000, 340), true},
		{geometry.NewIntVector2(340, 0), geometry.NewIntVector2(340, 1000), true},
		{geometry.NewIntVector2(0, 20), geometry.NewIntVector2(330, 1000), true},
		{geometry.NewIntVector2(500, 500), geometry.NewIntVector2(0, 0), false},
	}
	for _, tc := range cases {
		if got := r.SegmentClear(tc.a, tc.b); got != tc.want {
			t.Fatalf("segment %v-%v: expected %v, got %v", tc.a, tc.b, tc.want, got)
		}
	}
}

func TestCrossoverLinks(t *testing.T) {
	r := squareRoom(t)
	counters := &Counters{}
	m := NewCrossoverPointManager(r, counters)

	bottom := geometry.NewIntLineSegment2(geometry.NewIntVector2(0, 0), geometry.NewIntVector2(1000, 0))
	top := geometry.NewIntLineSegment2(geometry.NewIntVector2(1000, 1000), geometry.NewIntVector2(0, 1000))
	batches := []struct {
		seg    geometry.IntLineSegment2
		points []geometry.IntVector2
	}{
		{bottom, []geometry.IntVector2{{X: 100, Y: 0}, {X: 500, Y: 0}}},
		{top, []geometry.IntVector2{{X: 500, Y: 1000}, {X: 900, Y: 1000}}},
		{bottom, []geometry.IntVector2{{X: 800, Y: 0}}},
	}
	for _, batch := range batches {
		if _, err := m.AddMany(batch.seg, batch.points); err != nil {
			t.Fatalf("unexpected add error: %v", err)
		}
		points := append(append([]geometry.IntVector2{}, m.Points()...), r.Waypoints.Waypoints...)
		want := shortestPaths(points, func(i, j int) bool { return r.SegmentClear(points[i], points[j]) })
		for i := 0; i < m.Len(); i++ {
			for j := 0; j < m.Len(); j++ {
				link := m.Link(i, j)
				direct := m.Point(i).Distance(m.Point(j))
				if link.Cost < direct-1e-9 {
					t.Fatalf("link %d->%d cost %v below straight line %v", i, j, link.Cost, direct)
				}
				if r.SegmentClear(m.Point(i), m.Point(j)) && link.Cost > direct+1e-9 {
					t.Fatalf("link %d->%d cost %v worse than clear straight line %v", i, j, link.Cost, direct)
				}
				if math.Abs(link.Cost-want[i][j]) > 1e-6 {
					t.Fatalf("link %d->%d: expected shortest cost %v, got %v", i, j, want[i][j], link)
				}
				path, err := m.ExpandLink(m.Point(i), m.LinksToWaypoints(i), m.Point(j), link)
				if err != nil {
					t.Fatalf("expand %d->%d: %v", i, j, err)
				}
				if l := polylineLength(path); math.Abs(l-link.Cost) > 1e-6 {
					t.Fatalf("expanded %d->%d length %v, link cost %v", i, j, l, link.Cost)
				}
			}
		}
	}
	if counters.PointsAdded.Load() != 5 {
		t.Fatalf("expected 5 points counted, got %d", counters.PointsAdded.Load())
	}
	if counters.BarrierCacheHits.Load() == 0 {
		t.Fatalf("expected barrier cache hits for repeated segment pairs")
	}
}

func TestLinksFromPoint(t *testing.T) {
	r := squareRoom(t)
	m := NewCrossoverPointManager(r, nil)

	empty, err := m.LinksFromPoint(geometry.NewIntVector2(10, 10))
	if err != nil {
		t.Fatalf("unexpected error on empty manager: %v", err)
	}
	if len(empty.ToCrossovers) != 0 {
		t.Fatalf("expected empty crossover row, got %d", len(empty.ToCrossovers))
	}

	src, err := m.LinksFromPoint(geometry.NewIntVector2(0, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	dst, err := m.LinksFromPoint(geometry.NewIntVector2(999, 999))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	link, err := m.LinkBetween(src, dst)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if link.Kind != LinkViaWaypoint {
		t.Fatalf("expected a detour around the hole, got %v", link)
	}
	want := math.Hypot(660, 340) + math.Hypot(339, 659)
	if math.Abs(link.Cost-want) > 1e-6 {
		t.Fatalf("expected cost %v around one corner, got %v", want, link.Cost)
	}
	path, err := m.ExpandLink(src.Point, src.ToWaypoints, dst.Point, link)
	if err != nil {
		t.Fatalf("unexpected expand error: %v", err)
	}
	if len(path) != 3 {
		t.Fatalf("expected a single bend, got %v", path)
	}
}

func TestViewPointQueries(t *testing.T) {
	r := squareRoom(t)
	view := &LocalGeometryView{Radius: 10, Regions: []*Region{r}}

	if _, _, ok := view.PointToTriangle(geometry.DoubleVector2{X: 100, Y: 900}); !ok {
		t.Fatalf("expected land point to be located")
	}
	if _, _, ok := view.PointToTriangle(geometry.DoubleVector2{X: 500, Y: 500}); ok {
		t.Fatalf("expected hole point not to be located")
	}

	p, moved := view.NearestLandPointAndIsHole(geometry.NewIntVector2(10, 10))
	if moved || p != geometry.NewIntVector2(10, 10) {
		t.Fatalf("expected land point unchanged, got %v %v", p, moved)
	}
	p, moved = view.NearestLandPointAndIsHole(geometry.NewIntVector2(500, 350))
	if !moved {
		t.Fatalf("expected hole point to be reported")
	}
	if p.Distance(geometry.NewIntVector2(500, 340)) > 1.5 {
		t.Fatalf("expected push out to the nearest hole edge, got %v", p)
	}
	if _, ok := view.RegionOf(p); !ok {
		t.Fatalf("expected pushed point %v to be on land", p)
	}
}
