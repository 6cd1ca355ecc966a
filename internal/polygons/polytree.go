package polygons

import (
	"errors"

	"overlay-planner/internal/geometry"
)

// ErrDegenerateGeometry is returned when a compile step meets geometry it cannot process:
// self-overlapping triangulation input, zero-area rings or winding violations.
var ErrDegenerateGeometry = errors.New("degenerate geometry")

// PolyNode is one ring of a polygon tree. Depth alternates land (IsHole false) and hole.
// Land contours are counter-clockwise and hole contours clockwise, so walkable area is
// always on the left of every directed edge.
type PolyNode struct {
	Contour  geometry.Ring
	IsHole   bool
	Children []*PolyNode
}

// PolyTree is the root of a compiled polygon tree. Its children are outermost land rings.
type PolyTree struct {
	Children []*PolyNode
}

// IsEmpty reports whether no land survived compilation.
func (t *PolyTree) IsEmpty() bool { return t == nil || len(t.Children) == 0 }

// LandNodes returns all land rings in depth-first order, including islands inside holes.
func (t *PolyTree) LandNodes() []*PolyNode {
	var out []*PolyNode
	var visit func(nodes []*PolyNode)
	visit = func(nodes []*PolyNode) {
		for _, n := range nodes {
			if !n.IsHole {
				out = append(out, n)
			}
			visit(n.Children)
		}
	}
	if t != nil {
		visit(t.Children)
	}
	return out
}

// Holes returns the direct hole children of a land node.
func (n *PolyNode) Holes() []geometry.Ring {
	var holes []geometry.Ring
	for _, c := range n.Children {
		if c.IsHole {
			holes = append(holes, c.Contour)
		}
	}
	return holes
}

// normalize enforces winding by depth and drops rings that cannot bound area.
func normalize(nodes []*PolyNode, hole bool) []*PolyNode {
	out := nodes[:0]
	for _, n := range nodes {
		n.IsHole = hole
		n.Contour = dedupeRing(n.Contour)
		if len(n.Contour) < 3 || n.Contour.SignedArea2() == 0 {
			continue
		}
		n.Contour = n.Contour.Oriented(!hole)
		n.Children = normalize(n.Children, !hole)
		out = append(out, n)
	}
	return out
}

// dedupeRing removes repeated consecutive points and collinear spikes.
func dedupeRing(r geometry.Ring) geometry.Ring {
	out := make(geometry.Ring, 0, len(r))
	for _, p := range r {
		if len(out) > 0 && out[len(out)-1] == p {
			continue
		}
		out = append(out, p)
	}
	for len(out) > 1 && out[0] == out[len(out)-1] {
		out = out[:len(out)-1]
	}
	changed := true
	for changed && len(out) >= 3 {
		changed = false
		for i := 0; i < len(out); i++ {
			prev := out[(i+len(out)-1)%len(out)]
			next := out[(i+1)%len(out)]
			if geometry.ComputeClockness(prev, out[i], next) == geometry.Neither {
				out = append(out[:i], out[i+1:]...)
				changed = true
				break
			}
		}
	}
	return out
}
