package region

import (
	"fmt"

	"overlay-planner/internal/geometry"
)

// PointLinks are the optimal links of one point to every waypoint and crossover point of a
// region. Rows of stored crossover points and rows computed on demand for path endpoints
// share this shape.
type PointLinks struct {
	Point        geometry.IntVector2
	Visible      []int
	ToWaypoints  []PathLink
	ToCrossovers []PathLink
}

type segmentPair struct {
	a, b geometry.IntLineSegment2
}

func newSegmentPair(a, b geometry.IntLineSegment2) segmentPair {
	a, b = a.Canonical(), b.Canonical()
	if pointLess(b.First, a.First) || (b.First == a.First && pointLess(b.Second, a.Second)) {
		a, b = b, a
	}
	return segmentPair{a: a, b: b}
}

func pointLess(p, q geometry.IntVector2) bool {
	return p.X < q.X || (p.X == q.X && p.Y < q.Y)
}

// CrossoverPointManager keeps the crossover points of one region with their links to every
// waypoint and to each other. Indices are append-only. Mutation must be serialized by the
// caller.
type CrossoverPointManager struct {
	region   *Region
	counters *Counters

	points       []geometry.IntVector2
	segments     []geometry.IntLineSegment2
	visible      [][]int
	toWaypoints  [][]PathLink
	toCrossovers [][]PathLink

	barrierCache map[segmentPair][]geometry.IntLineSegment2
}

func NewCrossoverPointManager(r *Region, counters *Counters) *CrossoverPointManager {
	if counters == nil {
		counters = &Counters{}
	}
	return &CrossoverPointManager{
		region:       r,
		counters:     counters,
		barrierCache: make(map[segmentPair][]geometry.IntLineSegment2),
	}
}

func (m *CrossoverPointManager) Region() *Region { return m.region }

func (m *CrossoverPointManager) Len() int { return len(m.points) }

func (m *CrossoverPointManager) Point(i int) geometry.IntVector2 { return m.points[i] }

func (m *CrossoverPointManager) Points() []geometry.IntVector2 { return m.points }

// LinksToWaypoints returns the row of point i.
func (m *CrossoverPointManager) LinksToWaypoints(i int) []PathLink { return m.toWaypoints[i] }

// LinksToCrossovers returns the links from point i to every crossover point.
func (m *CrossoverPointManager) LinksToCrossovers(i int) []PathLink { return m.toCrossovers[i] }

// Link returns the optimal link from crossover i to crossover j.
func (m *CrossoverPointManager) Link(i, j int) PathLink { return m.toCrossovers[i][j] }

// Row returns the stored links of crossover i.
func (m *CrossoverPointManager) Row(i int) *PointLinks {
	return &PointLinks{
		Point:        m.points[i],
		Visible:      m.visible[i],
		ToWaypoints:  m.toWaypoints[i],
		ToCrossovers: m.toCrossovers[i],
	}
}

// AddMany appends points lying on the boundary segment and returns their indices. Each new
// point gets links to every waypoint and both-way links with every existing point, so no
// existing row is stale afterwards.
func (m *CrossoverPointManager) AddMany(segment geometry.IntLineSegment2, points []geometry.IntVector2) ([]int, error) {
	indices := make([]int, 0, len(points))
	for _, p := range points {
		idx, err := m.add(segment, p)
		if err != nil {
			return indices, fmt.Errorf("add crossover point %v: %w", p, err)
		}
		indices = append(indices, idx)
	}
	return indices, nil
}

func (m *CrossoverPointManager) add(segment geometry.IntLineSegment2, p geometry.IntVector2) (int, error) {
	visible := m.region.Waypoints.VisibleFrom(p)
	toWaypoints, err := m.linksToWaypoints(p, visible)
	if err != nil {
		return 0, err
	}

	idx := len(m.points)
	out := make([]PathLink, idx+1)
	in := make([]PathLink, idx)
	for j := 0; j < idx; j++ {
		q := m.points[j]
		clear := m.clearBetween(segment, p, m.segments[j], q)
		if out[j], err = m.linkBetween(p, toWaypoints, q, m.visible[j], clear); err != nil {
			return 0, fmt.Errorf("link to crossover %d: %w", j, err)
		}
		if in[j], err = m.linkBetween(q, m.toWaypoints[j], p, visible, clear); err != nil {
			return 0, fmt.Errorf("link from crossover %d: %w", j, err)
		}
	}
	out[idx] = DirectLink(0)

	for j := 0; j < idx; j++ {
		m.toCrossovers[j] = append(m.toCrossovers[j], in[j])
	}
	m.points = append(m.points, p)
	m.segments = append(m.segments, segment)
	m.visible = append(m.visible, visible)
	m.toWaypoints = append(m.toWaypoints, toWaypoints)
	m.toCrossovers = append(m.toCrossovers, out)
	m.counters.PointsAdded.Add(1)
	return idx, nil
}

// LinksFromPoint computes links from an arbitrary land point of the region. With no crossover
// points the crossover row is empty.
func (m *CrossoverPointManager) LinksFromPoint(p geometry.IntVector2) (*PointLinks, error) {
	visible := m.region.Waypoints.VisibleFrom(p)
	toWaypoints, err := m.linksToWaypoints(p, visible)
	if err != nil {
		return nil, fmt.Errorf("links from %v: %w", p, err)
	}
	links := &PointLinks{
		Point:        p,
		Visible:      visible,
		ToWaypoints:  toWaypoints,
		ToCrossovers: make([]PathLink, len(m.points)),
	}
	for j, q := range m.points {
		clear := m.region.SegmentClear(p, q)
		if links.ToCrossovers[j], err = m.linkBetween(p, toWaypoints, q, m.visible[j], clear); err != nil {
			return nil, fmt.Errorf("links from %v to crossover %d: %w", p, j, err)
		}
	}
	return links, nil
}

// LinkBetween computes the optimal link from src to dst, both rows of this region.
func (m *CrossoverPointManager) LinkBetween(src, dst *PointLinks) (PathLink, error) {
	clear := m.region.SegmentClear(src.Point, dst.Point)
	return m.linkBetween(src.Point, src.ToWaypoints, dst.Point, dst.Visible, clear)
}

func (m *CrossoverPointManager) linksToWaypoints(p geometry.IntVector2, visible []int) ([]PathLink, error) {
	wm := m.region.Waypoints
	row := make([]PathLink, wm.Count())
	isVisible := make([]bool, wm.Count())
	for _, v := range visible {
		isVisible[v] = true
	}
	for w := range row {
		if isVisible[w] {
			row[w] = DirectLink(p.Distance(wm.Waypoints[w]))
			continue
		}
		best := UnreachableLink()
		for _, v := range visible {
			through := wm.Lookup(v, w)
			if !through.IsReachable() {
				continue
			}
			if c := p.Distance(wm.Waypoints[v]) + through.Cost; c < best.Cost {
				best = ViaWaypoint(v, c)
			}
		}
		if !best.IsReachable() {
			return nil, fmt.Errorf("waypoint %d from %v: %w", w, p, ErrNoOptimalLink)
		}
		row[w] = best
	}
	return row, nil
}

// linkBetween picks the straight line when clear, else the last waypoint k before dst that
// minimizes src->k plus |k dst|.
func (m *CrossoverPointManager) linkBetween(src geometry.IntVector2, srcToWaypoints []PathLink, dst geometry.IntVector2, dstVisible []int, clear bool) (PathLink, error) {
	m.counters.LinkComputations.Add(1)
	if clear {
		m.counters.DirectLinks.Add(1)
		return DirectLink(src.Distance(dst)), nil
	}
	wm := m.region.Waypoints
	best := UnreachableLink()
	for _, k := range dstVisible {
		if !srcToWaypoints[k].IsReachable() {
			continue
		}
		if c := srcToWaypoints[k].Cost + wm.Waypoints[k].Distance(dst); c < best.Cost {
			best = ViaWaypoint(k, c)
		}
	}
	if !best.IsReachable() {
		return best, fmt.Errorf("%v to %v: %w", src, dst, ErrNoOptimalLink)
	}
	m.counters.WaypointLinks.Add(1)
	return best, nil
}

// clearBetween tests line of sight between points on two boundary segments against the
// barriers that can touch the convex hull of both segments.
func (m *CrossoverPointManager) clearBetween(sa geometry.IntLineSegment2, a geometry.IntVector2, sb geometry.IntLineSegment2, b geometry.IntVector2) bool {
	key := newSegmentPair(sa, sb)
	candidates, ok := m.barrierCache[key]
	if ok {
		m.counters.BarrierCacheHits.Add(1)
	} else {
		m.counters.BarrierCacheMisses.Add(1)
		candidates = candidateBarriers(m.region.Barriers, sa, sb)
		m.barrierCache[key] = candidates
	}
	m.counters.CandidateBarriers.Add(int64(len(candidates)))
	return m.region.segmentClearAgainst(a, b, candidates)
}

func candidateBarriers(barriers []geometry.IntLineSegment2, sa, sb geometry.IntLineSegment2) []geometry.IntLineSegment2 {
	hull := geometry.Ring(geometry.ConvexHull([]geometry.IntVector2{sa.First, sa.Second, sb.First, sb.Second}))
	bounds := hull.Bounds()
	var out []geometry.IntLineSegment2
	for _, e := range barriers {
		if !bounds.Intersects(e.Bounds()) {
			continue
		}
		if len(hull) < 3 || barrierTouchesHull(e, hull) {
			out = append(out, e)
		}
	}
	return out
}

func barrierTouchesHull(e geometry.IntLineSegment2, hull geometry.Ring) bool {
	if hull.Locate(e.First.ToDouble(), 0) != geometry.Outside || hull.Locate(e.Second.ToDouble(), 0) != geometry.Outside {
		return true
	}
	for _, h := range hull.Edges() {
		if e.Intersects(h) {
			return true
		}
	}
	return false
}

// ExpandLink turns a link from src to dst into the polyline it stands for. srcToWaypoints is
// the src row the link was computed from.
func (m *CrossoverPointManager) ExpandLink(src geometry.IntVector2, srcToWaypoints []PathLink, dst geometry.IntVector2, link PathLink) ([]geometry.IntVector2, error) {
	switch link.Kind {
	case LinkDirect:
		return []geometry.IntVector2{src, dst}, nil
	case LinkViaWaypoint:
		path, err := m.expandToWaypoint(src, srcToWaypoints, int(link.Waypoint))
		if err != nil {
			return nil, err
		}
		return appendPoint(path, dst), nil
	}
	return nil, fmt.Errorf("expand %v to %v: %w", src, dst, ErrNoOptimalLink)
}

func (m *CrossoverPointManager) expandToWaypoint(src geometry.IntVector2, srcToWaypoints []PathLink, k int) ([]geometry.IntVector2, error) {
	wm := m.region.Waypoints
	link := srcToWaypoints[k]
	switch link.Kind {
	case LinkDirect:
		return appendPoint([]geometry.IntVector2{src}, wm.Waypoints[k]), nil
	case LinkViaWaypoint:
		chain := wm.Path(int(link.Waypoint), k)
		if chain == nil {
			return nil, fmt.Errorf("waypoint %d to %d: %w", link.Waypoint, k, ErrNoOptimalLink)
		}
		path := []geometry.IntVector2{src}
		for _, w := range chain {
			path = appendPoint(path, wm.Waypoints[w])
		}
		return path, nil
	}
	return nil, fmt.Errorf("%v to waypoint %d: %w", src, k, ErrNoOptimalLink)
}

func appendPoint(path []geometry.IntVector2, p geometry.IntVector2) []geometry.IntVector2 {
	if len(path) > 0 && path[len(path)-1] == p {
		return path
	}
	return append(path, p)
}
