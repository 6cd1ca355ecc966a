package region

import (
	"fmt"
	"math"
	"sort"

	"overlay-planner/internal/geometry"
	"overlay-planner/internal/polygons"
)

// NoNeighbor marks a triangle edge that lies on the land boundary.
const NoNeighbor int32 = -1

// containsEps is the tolerance for boundary-inclusive containment of float points.
const containsEps = 1e-6

// Triangle is one cell of a region's triangulation. Neighbors[i] is the triangle across the
// edge Points[i] -> Points[(i+1)%3].
type Triangle struct {
	Points    [3]geometry.IntVector2
	Neighbors [3]int32
	Centroid  geometry.DoubleVector2
}

// Contains checks if p lies in the closed triangle, within eps.
func (t *Triangle) Contains(p geometry.DoubleVector2, eps float64) bool {
	for i := 0; i < 3; i++ {
		a, b := t.Points[i].ToDouble(), t.Points[(i+1)%3].ToDouble()
		ab := b.Sub(a)
		n := ab.Norm2D()
		if n == 0 {
			continue
		}
		if ab.Cross(p.Sub(a))/n < -eps {
			return false
		}
	}
	return true
}

// Region is one connected land area of a sector for one agent radius. Land is on the left
// of every barrier.
type Region struct {
	Index     int
	Contour   geometry.Ring
	Holes     []geometry.Ring
	Bounds    geometry.IntRect
	Triangles []Triangle
	Barriers  []geometry.IntLineSegment2
	Waypoints *WaypointManager
}

// LocalGeometryView is the compiled walkable geometry of one sector for one agent radius.
type LocalGeometryView struct {
	Radius  float64
	Tree    *polygons.PolyTree
	Regions []*Region
}

// CompileView compiles land and holes for radius, triangulates every resulting region and
// builds its waypoint manager. A view without regions is valid and means nothing is walkable.
func CompileView(c *polygons.Compiler, tri polygons.Triangulator, land, holes []geometry.Ring, radius float64) (*LocalGeometryView, error) {
	tree, err := c.Compile(land, holes, radius)
	if err != nil {
		return nil, err
	}
	view := &LocalGeometryView{Radius: radius, Tree: tree}
	for _, node := range tree.LandNodes() {
		r, err := newRegion(len(view.Regions), node, tri)
		if err != nil {
			return nil, fmt.Errorf("compile region %d: %w", len(view.Regions), err)
		}
		view.Regions = append(view.Regions, r)
	}
	return view, nil
}

func newRegion(index int, node *polygons.PolyNode, tri polygons.Triangulator) (*Region, error) {
	r := &Region{
		Index:   index,
		Contour: node.Contour,
		Holes:   node.Holes(),
		Bounds:  node.Contour.Bounds(),
	}
	r.Barriers = append(r.Barriers, r.Contour.Edges()...)
	for _, h := range r.Holes {
		r.Barriers = append(r.Barriers, h.Edges()...)
	}

	triangles, err := tri.Triangulate(r.Contour, r.Holes)
	if err != nil {
		return nil, err
	}
	r.Triangles = make([]Triangle, 0, len(triangles))
	for _, t := range triangles {
		if geometry.ComputeClockness(t[0], t[1], t[2]) != geometry.CounterClockwise {
			return nil, fmt.Errorf("triangle %v is not counter-clockwise: %w", t, polygons.ErrDegenerateGeometry)
		}
		r.Triangles = append(r.Triangles, Triangle{
			Points:    t,
			Neighbors: [3]int32{NoNeighbor, NoNeighbor, NoNeighbor},
			Centroid: geometry.DoubleVector2{
				X: float64(int64(t[0].X)+int64(t[1].X)+int64(t[2].X)) / 3,
				Y: float64(int64(t[0].Y)+int64(t[1].Y)+int64(t[2].Y)) / 3,
			},
		})
	}
	linkNeighbors(r.Triangles)
	r.Waypoints = NewWaypointManager(r)
	return r, nil
}

type edgeRef struct {
	tri  int32
	edge int
}

// linkNeighbors matches triangle edges by their undirected endpoints.
func linkNeighbors(triangles []Triangle) {
	open := make(map[geometry.IntLineSegment2]edgeRef, len(triangles)*3/2)
	for ti := range triangles {
		for e := 0; e < 3; e++ {
			key := geometry.IntLineSegment2{
				First:  triangles[ti].Points[e],
				Second: triangles[ti].Points[(e+1)%3],
			}.Canonical()
			other, ok := open[key]
			if !ok {
				open[key] = edgeRef{tri: int32(ti), edge: e}
				continue
			}
			delete(open, key)
			triangles[ti].Neighbors[e] = other.tri
			triangles[other.tri].Neighbors[other.edge] = int32(ti)
		}
	}
}

// ContainsPoint reports whether p is on land, boundary included.
func (r *Region) ContainsPoint(p geometry.DoubleVector2) bool {
	if r.Contour.Locate(p, containsEps) == geometry.Outside {
		return false
	}
	for _, h := range r.Holes {
		if h.Locate(p, containsEps) == geometry.Inside {
			return false
		}
	}
	return true
}

// SegmentClear reports whether the segment a-b stays on land. Touching the boundary and
// running along it is allowed; crossing it is not.
func (r *Region) SegmentClear(a, b geometry.IntVector2) bool {
	return r.segmentClearAgainst(a, b, r.Barriers)
}

func (r *Region) segmentClearAgainst(a, b geometry.IntVector2, barriers []geometry.IntLineSegment2) bool {
	if !r.ContainsPoint(a.ToDouble()) || !r.ContainsPoint(b.ToDouble()) {
		return false
	}
	if a == b {
		return true
	}
	seg := geometry.IntLineSegment2{First: a, Second: b}
	bounds := seg.Bounds()
	ts := []float64{0, 1}
	for _, e := range barriers {
		if !bounds.Intersects(e.Bounds()) {
			continue
		}
		if seg.ProperlyIntersects(e) {
			return false
		}
		if seg.ContainsPoint(e.First) {
			ts = append(ts, seg.ProjectionParameter(e.First.ToDouble()))
		}
		if seg.ContainsPoint(e.Second) {
			ts = append(ts, seg.ProjectionParameter(e.Second.ToDouble()))
		}
	}
	if len(ts) == 2 {
		return r.ContainsPoint(seg.PointAt(0.5))
	}
	sort.Float64s(ts)
	for i := 1; i < len(ts); i++ {
		if ts[i]-ts[i-1] < 1e-9 {
			continue
		}
		if !r.ContainsPoint(seg.PointAt((ts[i] + ts[i-1]) / 2)) {
			return false
		}
	}
	return true
}

// PointToTriangle locates p, returning the triangle index within the region.
func (r *Region) PointToTriangle(p geometry.DoubleVector2) (int, bool) {
	if !r.Bounds.ContainsF(p) {
		return 0, false
	}
	for i := range r.Triangles {
		if r.Triangles[i].Contains(p, containsEps) {
			return i, true
		}
	}
	return 0, false
}

// PointToTriangle locates p across all regions using a bounding box prefilter.
func (v *LocalGeometryView) PointToTriangle(p geometry.DoubleVector2) (region, triangle int, ok bool) {
	for _, r := range v.Regions {
		if t, ok := r.PointToTriangle(p); ok {
			return r.Index, t, true
		}
	}
	return 0, 0, false
}

// RegionOf returns the region containing p.
func (v *LocalGeometryView) RegionOf(p geometry.IntVector2) (*Region, bool) {
	if ri, _, ok := v.PointToTriangle(p.ToDouble()); ok {
		return v.Regions[ri], true
	}
	return nil, false
}

// NearestLandPointAndIsHole returns p itself when it is on land. Otherwise it returns the
// nearest integer land point and true. With no land at all, p and true are returned.
func (v *LocalGeometryView) NearestLandPointAndIsHole(p geometry.IntVector2) (geometry.IntVector2, bool) {
	if _, ok := v.RegionOf(p); ok {
		return p, false
	}
	pd := p.ToDouble()
	best := p
	bestDist := math.Inf(1)
	for _, r := range v.Regions {
		for _, e := range r.Barriers {
			nearest := e.NearestPoint(pd)
			d := nearest.Distance(pd)
			if d >= bestDist {
				continue
			}
			if q, ok := r.snapToLand(nearest, e); ok {
				best, bestDist = q, d
			}
		}
	}
	return best, true
}

// snapToLand rounds a point on barrier e to an integer point inside the region, falling back
// to the barrier's nearer endpoint which is always on land.
func (r *Region) snapToLand(q geometry.DoubleVector2, e geometry.IntLineSegment2) (geometry.IntVector2, bool) {
	fx, fy := math.Floor(q.X), math.Floor(q.Y)
	candidates := []geometry.IntVector2{
		{X: int32(fx), Y: int32(fy)},
		{X: int32(fx) + 1, Y: int32(fy)},
		{X: int32(fx), Y: int32(fy) + 1},
		{X: int32(fx) + 1, Y: int32(fy) + 1},
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].ToDouble().Distance(q) < candidates[j].ToDouble().Distance(q)
	})
	for _, c := range candidates {
		if _, ok := r.PointToTriangle(c.ToDouble()); ok {
			return c, true
		}
	}
	if e.First.ToDouble().Distance(q) <= e.Second.ToDouble().Distance(q) {
		return e.First, true
	}
	return e.Second, true
}
