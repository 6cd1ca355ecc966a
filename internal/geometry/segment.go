package geometry

import "math"

// Clockness is the orientation of an ordered point triple.
type Clockness int8

const (
	Clockwise        Clockness = -1
	Neither          Clockness = 0
	CounterClockwise Clockness = 1
)

// ComputeClockness determines orientation of (a, b, c) using the exact integer cross product
func ComputeClockness(a, b, c IntVector2) Clockness {
	cross := b.Sub(a).Cross(c.Sub(a))
	switch {
	case cross > 0:
		return CounterClockwise
	case cross < 0:
		return Clockwise
	}
	return Neither
}

// IntLineSegment2 is a segment between two integer points
type IntLineSegment2 struct {
	First  IntVector2 `json:"first" msgpack:"first"`
	Second IntVector2 `json:"second" msgpack:"second"`
}

func NewIntLineSegment2(a, b IntVector2) IntLineSegment2 {
	return IntLineSegment2{First: a, Second: b}
}

func (s IntLineSegment2) Bounds() IntRect {
	return BoundingRect([]IntVector2{s.First, s.Second})
}

func (s IntLineSegment2) Length() float64 { return s.First.Distance(s.Second) }

func (s IntLineSegment2) Reversed() IntLineSegment2 {
	return IntLineSegment2{First: s.Second, Second: s.First}
}

// Canonical orders the endpoints so that equal segments compare equal regardless of direction.
func (s IntLineSegment2) Canonical() IntLineSegment2 {
	if s.Second.X < s.First.X || (s.Second.X == s.First.X && s.Second.Y < s.First.Y) {
		return s.Reversed()
	}
	return s
}

// PointAt linearly interpolates along the segment, t in [0, 1].
func (s IntLineSegment2) PointAt(t float64) DoubleVector2 {
	a, b := s.First.ToDouble(), s.Second.ToDouble()
	return a.Add(b.Sub(a).Mul(t))
}

// ContainsPoint checks if q lies on the closed segment
func (s IntLineSegment2) ContainsPoint(q IntVector2) bool {
	if ComputeClockness(s.First, s.Second, q) != Neither {
		return false
	}
	return onSegment(s.First, s.Second, q)
}

// Intersects checks if two closed segments share at least one point.
func (s IntLineSegment2) Intersects(o IntLineSegment2) bool {
	p1, p2 := s.First, s.Second
	p3, p4 := o.First, o.Second

	d1 := ComputeClockness(p3, p4, p1)
	d2 := ComputeClockness(p3, p4, p2)
	d3 := ComputeClockness(p1, p2, p3)
	d4 := ComputeClockness(p1, p2, p4)

	if d1*d2 < 0 && d3*d4 < 0 {
		return true
	}

	// Collinear and touching cases
	if d1 == 0 && onSegment(p3, p4, p1) {
		return true
	}
	if d2 == 0 && onSegment(p3, p4, p2) {
		return true
	}
	if d3 == 0 && onSegment(p1, p2, p3) {
		return true
	}
	if d4 == 0 && onSegment(p1, p2, p4) {
		return true
	}
	return false
}

// ProperlyIntersects reports a crossing at a single point interior to both segments.
func (s IntLineSegment2) ProperlyIntersects(o IntLineSegment2) bool {
	d1 := ComputeClockness(o.First, o.Second, s.First)
	d2 := ComputeClockness(o.First, o.Second, s.Second)
	d3 := ComputeClockness(s.First, s.Second, o.First)
	d4 := ComputeClockness(s.First, s.Second, o.Second)
	return d1*d2 < 0 && d3*d4 < 0
}

// onSegment checks if collinear point q lies within the bounding box of pr
func onSegment(p, r, q IntVector2) bool {
	return q.X <= max(p.X, r.X) && q.X >= min(p.X, r.X) &&
		q.Y <= max(p.Y, r.Y) && q.Y >= min(p.Y, r.Y)
}

// ProjectionParameter returns t such that First + t*(Second-First) is the projection of q.
func (s IntLineSegment2) ProjectionParameter(q DoubleVector2) float64 {
	a, b := s.First.ToDouble(), s.Second.ToDouble()
	ab := b.Sub(a)
	denom := ab.Dot(ab)
	if denom == 0 {
		return 0
	}
	return q.Sub(a).Dot(ab) / denom
}

// NearestPoint returns the closest point on the closed segment to q.
func (s IntLineSegment2) NearestPoint(q DoubleVector2) DoubleVector2 {
	t := s.ProjectionParameter(q)
	t = math.Max(0, math.Min(1, t))
	return s.PointAt(t)
}

// DistanceToPoint is the Euclidean distance from q to the closed segment.
func (s IntLineSegment2) DistanceToPoint(q DoubleVector2) float64 {
	return s.NearestPoint(q).Distance(q)
}

// RayLineDistance returns the distance along the ray origin+t*dir (dir unit) at which the
// ray meets the segment's supporting line, or +Inf when parallel or behind the origin.
func (s IntLineSegment2) RayLineDistance(origin, dir DoubleVector2) float64 {
	a, b := s.First.ToDouble(), s.Second.ToDouble()
	ab := b.Sub(a)
	denom := dir.Cross(ab)
	if math.Abs(denom) < 1e-12 {
		return math.Inf(1)
	}
	t := a.Sub(origin).Cross(ab) / denom
	if t < 0 {
		return math.Inf(1)
	}
	return t
}
