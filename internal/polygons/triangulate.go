package polygons

import (
	"fmt"
	"math"
	"sort"

	"overlay-planner/internal/geometry"
)

// Triangulator is the constrained triangulation collaborator. Output triangles are
// counter-clockwise and cover exactly the region bounded by contour minus holes.
type Triangulator interface {
	Triangulate(contour geometry.Ring, holes []geometry.Ring) ([][3]geometry.IntVector2, error)
}

// EarClipper triangulates polygons with holes with the earcut algorithm: holes are bridged
// into the outer ring, then ears are clipped. Orientation predicates are exact integer tests.
// A library triangulator can replace it behind Triangulator.
type EarClipper struct{}

func NewEarClipper() *EarClipper { return &EarClipper{} }

type earNode struct {
	p          geometry.IntVector2
	i          int // source vertex id, shared by bridge duplicates
	prev, next *earNode
	steiner    bool
}

func orient(a, b, c geometry.IntVector2) int64 {
	return b.Sub(a).Cross(c.Sub(a))
}

func (e *EarClipper) Triangulate(contour geometry.Ring, holes []geometry.Ring) ([][3]geometry.IntVector2, error) {
	if len(contour) < 3 {
		return nil, fmt.Errorf("triangulate contour of %d points: %w", len(contour), ErrDegenerateGeometry)
	}
	t := &earState{}
	outer := t.linkedList(contour.Oriented(true))
	if outer == nil || outer.next == outer.prev {
		return nil, fmt.Errorf("triangulate contour of %d points: %w", len(contour), ErrDegenerateGeometry)
	}
	if len(holes) > 0 {
		outer = t.eliminateHoles(holes, outer)
	}
	t.earcutLinked(outer, 0)
	if t.err != nil {
		return nil, t.err
	}
	return t.triangles, nil
}

type earState struct {
	nextID    int
	triangles [][3]geometry.IntVector2
	err       error
}

func (t *earState) linkedList(ring geometry.Ring) *earNode {
	var last *earNode
	for _, p := range ring {
		last = t.insertNode(p, last)
	}
	if last != nil && last.p == last.next.p {
		removeNode(last)
		last = last.next
	}
	return last
}

func (t *earState) insertNode(p geometry.IntVector2, last *earNode) *earNode {
	n := &earNode{p: p, i: t.nextID}
	t.nextID++
	if last == nil {
		n.prev = n
		n.next = n
	} else {
		n.next = last.next
		n.prev = last
		last.next.prev = n
		last.next = n
	}
	return n
}

func removeNode(n *earNode) {
	n.next.prev = n.prev
	n.prev.next = n.next
}

// filterPoints removes duplicate and collinear points between start and end.
func filterPoints(start, end *earNode) *earNode {
	if start == nil {
		return nil
	}
	if end == nil {
		end = start
	}
	p := start
	for {
		again := false
		if !p.steiner && (p.p == p.next.p || orient(p.prev.p, p.p, p.next.p) == 0) {
			removeNode(p)
			p = p.prev
			end = p
			if p == p.next {
				break
			}
			again = true
		} else {
			p = p.next
		}
		if !again && p == end {
			break
		}
	}
	return end
}

func (t *earState) earcutLinked(ear *earNode, pass int) {
	if ear == nil || t.err != nil {
		return
	}
	stop := ear
	for ear.prev != ear.next {
		prev, next := ear.prev, ear.next
		if isEar(ear) {
			t.triangles = append(t.triangles, [3]geometry.IntVector2{prev.p, ear.p, next.p})
			removeNode(ear)
			ear = next.next
			stop = next.next
			continue
		}
		ear = next

		// a full pass without finding an ear
		if ear == stop {
			switch pass {
			case 0:
				t.earcutLinked(filterPoints(ear, nil), 1)
			case 1:
				t.splitEarcut(filterPoints(ear, nil))
			default:
				t.err = fmt.Errorf("no ear in ring of %d points: %w", ringLength(ear), ErrDegenerateGeometry)
			}
			return
		}
	}
}

func ringLength(n *earNode) int {
	count := 0
	p := n
	for {
		count++
		p = p.next
		if p == n {
			return count
		}
	}
}

// isEar checks whether the convex vertex ear can be clipped: no other vertex may touch the
// triangle, and no edge leaving a coincident vertex may enter it.
func isEar(ear *earNode) bool {
	a, b, c := ear.prev.p, ear.p, ear.next.p
	if orient(a, b, c) <= 0 {
		return false // reflex or collinear
	}
	minX, maxX := min(a.X, b.X, c.X), max(a.X, b.X, c.X)
	minY, maxY := min(a.Y, b.Y, c.Y), max(a.Y, b.Y, c.Y)

	for p := ear.next.next; p != ear.prev; p = p.next {
		q := p.p
		if q.X < minX || q.X > maxX || q.Y < minY || q.Y > maxY {
			continue
		}
		switch q {
		case a:
			if edgeEntersCorner(p, a, b, c) {
				return false
			}
			continue
		case b:
			if edgeEntersCorner(p, b, c, a) {
				return false
			}
			continue
		case c:
			if edgeEntersCorner(p, c, a, b) {
				return false
			}
			continue
		}
		if pointInTriangle(a, b, c, q) {
			return false
		}
	}
	return true
}

// edgeEntersCorner reports whether an edge incident to node p (located at corner v of a
// counter-clockwise triangle v, next, prev) points strictly into the triangle's interior angle.
func edgeEntersCorner(p *earNode, v, next, prev geometry.IntVector2) bool {
	for _, q := range []geometry.IntVector2{p.prev.p, p.next.p} {
		d := q.Sub(v)
		if next.Sub(v).Cross(d) > 0 && d.Cross(prev.Sub(v)) > 0 {
			return true
		}
	}
	return false
}

// pointInTriangle is inclusive of the boundary; the triangle must be counter-clockwise.
func pointInTriangle(a, b, c, p geometry.IntVector2) bool {
	return orient(a, b, p) >= 0 && orient(b, c, p) >= 0 && orient(c, a, p) >= 0
}

func (t *earState) eliminateHoles(holes []geometry.Ring, outer *earNode) *earNode {
	queue := make([]*earNode, 0, len(holes))
	for _, h := range holes {
		if len(h) < 3 {
			continue
		}
		list := t.linkedList(h.Oriented(false))
		if list == nil {
			continue
		}
		if list == list.next {
			list.steiner = true
		}
		queue = append(queue, getLeftmost(list))
	}
	sort.SliceStable(queue, func(i, j int) bool {
		if queue[i].p.X != queue[j].p.X {
			return queue[i].p.X < queue[j].p.X
		}
		return queue[i].p.Y < queue[j].p.Y
	})
	for _, h := range queue {
		outer = t.eliminateHole(h, outer)
	}
	return outer
}

func (t *earState) eliminateHole(hole, outer *earNode) *earNode {
	bridge := findHoleBridge(hole, outer)
	if bridge == nil {
		t.err = fmt.Errorf("no bridge for hole at %v: %w", hole.p, ErrDegenerateGeometry)
		return outer
	}
	bridgeReverse := t.splitPolygon(bridge, hole)
	filterPoints(bridgeReverse, bridgeReverse.next)
	return filterPoints(bridge, bridge.next)
}

func getLeftmost(start *earNode) *earNode {
	p, leftmost := start, start
	for {
		if p.p.X < leftmost.p.X || (p.p.X == leftmost.p.X && p.p.Y < leftmost.p.Y) {
			leftmost = p
		}
		p = p.next
		if p == start {
			return leftmost
		}
	}
}

// findHoleBridge finds an outer vertex visible from the hole's leftmost point by casting a
// ray to the left and refining towards the vertex of smallest angle.
func findHoleBridge(hole, outer *earNode) *earNode {
	hx, hy := float64(hole.p.X), float64(hole.p.Y)
	qx := -1e300
	var m *earNode

	p := outer
	for {
		py, pny := float64(p.p.Y), float64(p.next.p.Y)
		if hy <= py && hy >= pny && pny != py {
			px, pnx := float64(p.p.X), float64(p.next.p.X)
			x := px + (hy-py)*(pnx-px)/(pny-py)
			if x <= hx && x > qx {
				qx = x
				if px < pnx {
					m = p
				} else {
					m = p.next
				}
				if x == hx {
					return m // hole touches outer segment
				}
			}
		}
		p = p.next
		if p == outer {
			break
		}
	}
	if m == nil {
		return nil
	}

	stop := m
	mx, my := float64(m.p.X), float64(m.p.Y)
	tanMin := math.Inf(1)
	p = m
	for {
		px, py := float64(p.p.X), float64(p.p.Y)
		if hx >= px && px >= mx && hx != px && pointInTriangleF(hx, hy, qx, hy, mx, my, px, py) {
			tan := math.Abs(hy-py) / (hx - px)
			if locallyInside(p, hole) &&
				(tan < tanMin || (tan == tanMin && (p.p.X > m.p.X || (p.p.X == m.p.X && sectorContainsSector(m, p))))) {
				m = p
				tanMin = tan
			}
		}
		p = p.next
		if p == stop {
			break
		}
	}
	return m
}

// pointInTriangleF is inclusive and orientation agnostic.
func pointInTriangleF(ax, ay, bx, by, cx, cy, px, py float64) bool {
	d1 := (bx-ax)*(py-ay) - (by-ay)*(px-ax)
	d2 := (cx-bx)*(py-by) - (cy-by)*(px-bx)
	d3 := (ax-cx)*(py-cy) - (ay-cy)*(px-cx)
	hasNeg := d1 < 0 || d2 < 0 || d3 < 0
	hasPos := d1 > 0 || d2 > 0 || d3 > 0
	return !(hasNeg && hasPos)
}

func sectorContainsSector(m, p *earNode) bool {
	return orient(m.prev.p, m.p, p.prev.p) > 0 && orient(p.next.p, m.p, m.next.p) > 0
}

// locallyInside checks if the diagonal a-b leaves a into the polygon's interior.
func locallyInside(a, b *earNode) bool {
	if orient(a.prev.p, a.p, a.next.p) > 0 {
		return orient(a.p, b.p, a.next.p) <= 0 && orient(a.p, a.prev.p, b.p) <= 0
	}
	return orient(a.p, b.p, a.prev.p) > 0 || orient(a.p, a.next.p, b.p) > 0
}

// splitPolygon links a and b with a doubled bridge and returns the duplicate of b.
func (t *earState) splitPolygon(a, b *earNode) *earNode {
	a2 := &earNode{p: a.p, i: a.i}
	b2 := &earNode{p: b.p, i: b.i}
	an, bp := a.next, b.prev

	a.next = b
	b.prev = a

	a2.next = an
	an.prev = a2

	b2.next = a2
	a2.prev = b2

	bp.next = b2
	b2.prev = bp
	return b2
}

// splitEarcut splits a stuck polygon along any valid diagonal and triangulates both halves.
func (t *earState) splitEarcut(start *earNode) {
	if start == nil {
		return
	}
	a := start
	for {
		for b := a.next.next; b != a.prev; b = b.next {
			if a.i != b.i && isValidDiagonal(a, b) {
				c := t.splitPolygon(a, b)
				a = filterPoints(a, a.next)
				c = filterPoints(c, c.next)
				t.earcutLinked(a, 2)
				t.earcutLinked(c, 2)
				return
			}
		}
		a = a.next
		if a == start {
			break
		}
	}
	t.err = fmt.Errorf("no valid diagonal in ring of %d points: %w", ringLength(start), ErrDegenerateGeometry)
}

func isValidDiagonal(a, b *earNode) bool {
	if a.next.i == b.i || a.prev.i == b.i || intersectsPolygon(a, b) {
		return false
	}
	if locallyInside(a, b) && locallyInside(b, a) && middleInside(a, b) &&
		(orient(a.prev.p, a.p, b.prev.p) != 0 || orient(a.p, b.prev.p, b.p) != 0) {
		return true
	}
	return a.p == b.p && orient(a.prev.p, a.p, a.next.p) < 0 && orient(b.prev.p, b.p, b.next.p) < 0
}

func intersectsPolygon(a, b *earNode) bool {
	diagonal := geometry.IntLineSegment2{First: a.p, Second: b.p}
	p := a
	for {
		if p.i != a.i && p.next.i != a.i && p.i != b.i && p.next.i != b.i &&
			diagonal.Intersects(geometry.IntLineSegment2{First: p.p, Second: p.next.p}) {
			return true
		}
		p = p.next
		if p == a {
			return false
		}
	}
}

func middleInside(a, b *earNode) bool {
	inside := false
	px := float64(a.p.X+b.p.X) / 2
	py := float64(a.p.Y+b.p.Y) / 2
	p := a
	for {
		y0, y1 := float64(p.p.Y), float64(p.next.p.Y)
		if (y0 > py) != (y1 > py) && y1 != y0 {
			x0, x1 := float64(p.p.X), float64(p.next.p.X)
			if px < (x1-x0)*(py-y0)/(y1-y0)+x0 {
				inside = !inside
			}
		}
		p = p.next
		if p == a {
			return inside
		}
	}
}
