package geometry

import "sort"

// Ring is a closed polygon contour; the closing edge from the last to the first point is implicit.
type Ring []IntVector2

// SignedArea2 returns twice the signed area. Positive means counter-clockwise.
func (r Ring) SignedArea2() int64 {
	var sum int64
	for i := range r {
		sum += r[i].Cross(r[(i+1)%len(r)])
	}
	return sum
}

func (r Ring) IsCounterClockwise() bool { return r.SignedArea2() > 0 }

func (r Ring) Reversed() Ring {
	out := make(Ring, len(r))
	for i, p := range r {
		out[len(r)-1-i] = p
	}
	return out
}

// Oriented returns the ring with the requested winding, copying only when it must flip.
func (r Ring) Oriented(counterClockwise bool) Ring {
	if r.IsCounterClockwise() == counterClockwise {
		return r
	}
	return r.Reversed()
}

func (r Ring) Bounds() IntRect { return BoundingRect(r) }

// Edges returns the ring's edges in winding order.
func (r Ring) Edges() []IntLineSegment2 {
	edges := make([]IntLineSegment2, 0, len(r))
	for i := range r {
		edges = append(edges, IntLineSegment2{First: r[i], Second: r[(i+1)%len(r)]})
	}
	return edges
}

// Location of a point relative to a ring.
type Location int8

const (
	Outside Location = iota
	OnBoundary
	Inside
)

// Locate classifies p against the ring using ray casting. Points within eps of an edge are
// reported as OnBoundary.
func (r Ring) Locate(p DoubleVector2, eps float64) Location {
	n := len(r)
	if n < 3 {
		return Outside
	}
	inside := false
	for i := 0; i < n; i++ {
		v1 := r[i].ToDouble()
		v2 := r[(i+1)%n].ToDouble()
		seg := IntLineSegment2{First: r[i], Second: r[(i+1)%n]}
		if seg.DistanceToPoint(p) <= eps {
			return OnBoundary
		}
		// Check if the ray from point to the right intersects the edge
		if (v1.Y > p.Y) != (v2.Y > p.Y) {
			x := v1.X + (p.Y-v1.Y)*(v2.X-v1.X)/(v2.Y-v1.Y)
			if p.X < x {
				inside = !inside
			}
		}
	}
	if inside {
		return Inside
	}
	return Outside
}

// ConvexHull computes the counter-clockwise convex hull using the monotone chain algorithm.
// Collinear points are dropped; fewer than three distinct non-collinear inputs yield the
// extreme points only.
func ConvexHull(points []IntVector2) []IntVector2 {
	pts := make([]IntVector2, len(points))
	copy(pts, points)
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].X != pts[j].X {
			return pts[i].X < pts[j].X
		}
		return pts[i].Y < pts[j].Y
	})
	unique := pts[:0]
	for i, p := range pts {
		if i == 0 || p != pts[i-1] {
			unique = append(unique, p)
		}
	}
	pts = unique
	if len(pts) < 3 {
		return pts
	}

	hull := make([]IntVector2, 0, 2*len(pts))
	for _, p := range pts {
		// Remove points that create a right turn
		for len(hull) >= 2 && ComputeClockness(hull[len(hull)-2], hull[len(hull)-1], p) != CounterClockwise {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(pts) - 2; i >= 0; i-- {
		p := pts[i]
		for len(hull) >= lower && ComputeClockness(hull[len(hull)-2], hull[len(hull)-1], p) != CounterClockwise {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}
