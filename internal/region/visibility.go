package region

import (
	"math"
	"sort"

	"overlay-planner/internal/geometry"
)

const angleEps = 1e-9

type angularInterval struct {
	start, end float64
	barrier    geometry.IntLineSegment2
}

// wedge is the land sector at the origin, sweeping counter-clockwise from out to in.
type wedge struct {
	out, in geometry.IntVector2
}

func (w wedge) contains(d geometry.IntVector2) bool {
	if w.out.Cross(w.in) >= 0 {
		return w.out.Cross(d) >= 0 && d.Cross(w.in) >= 0
	}
	// reflex land wedge: reject only the open convex complement
	return !(w.in.Cross(d) > 0 && d.Cross(w.out) > 0)
}

// VisibilityPolygon answers which points are visible from Origin. It stores sorted angular
// intervals over [0, 2π), each carrying the nearest barrier seen from Origin in that range.
type VisibilityPolygon struct {
	Origin    geometry.IntVector2
	intervals []angularInterval
	wedges    []wedge
	blocked   bool
}

func bearing(d geometry.DoubleVector2) float64 {
	a := math.Atan2(d.Y, d.X)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}

// NewVisibilityPolygon computes the visibility polygon of origin among barriers whose left
// side is land.
func NewVisibilityPolygon(origin geometry.IntVector2, barriers []geometry.IntLineSegment2) *VisibilityPolygon {
	vp := &VisibilityPolygon{Origin: origin}
	o := origin.ToDouble()

	var spans []angularInterval
	var incident []incidentEdge
	for _, e := range barriers {
		switch {
		case e.First == origin:
			incident = append(incident, incidentEdge{dir: e.Second.Sub(origin), outgoing: true})
			continue
		case e.Second == origin:
			incident = append(incident, incidentEdge{dir: e.First.Sub(origin), outgoing: false})
			continue
		}
		a, b := e.First.Sub(origin), e.Second.Sub(origin)
		c := a.Cross(b)
		if c == 0 {
			if e.ContainsPoint(origin) {
				incident = append(incident,
					incidentEdge{dir: b, outgoing: true},
					incidentEdge{dir: a, outgoing: false})
			}
			continue
		}
		s, t := bearing(a.ToDouble()), bearing(b.ToDouble())
		if c < 0 {
			s, t = t, s
		}
		if t < s {
			spans = append(spans,
				angularInterval{start: s, end: 2 * math.Pi, barrier: e},
				angularInterval{start: 0, end: t, barrier: e})
		} else {
			spans = append(spans, angularInterval{start: s, end: t, barrier: e})
		}
	}
	vp.wedges, vp.blocked = buildWedges(incident)

	critical := make([]float64, 0, 2*len(spans)+2)
	critical = append(critical, 0, 2*math.Pi)
	for _, s := range spans {
		critical = append(critical, s.start, s.end)
	}
	sort.Float64s(critical)

	for i := 1; i < len(critical); i++ {
		lo, hi := critical[i-1], critical[i]
		if hi-lo < angleEps {
			continue
		}
		mid := (lo + hi) / 2
		dir := geometry.DoubleVector2{X: math.Cos(mid), Y: math.Sin(mid)}
		bestDist := math.Inf(1)
		var best geometry.IntLineSegment2
		found := false
		for _, s := range spans {
			if mid < s.start || mid > s.end {
				continue
			}
			d := s.barrier.RayLineDistance(o, dir)
			if d < bestDist {
				bestDist, best, found = d, s.barrier, true
			}
		}
		if !found {
			continue
		}
		if n := len(vp.intervals); n > 0 && vp.intervals[n-1].barrier == best && vp.intervals[n-1].end >= lo-angleEps {
			vp.intervals[n-1].end = hi
			continue
		}
		vp.intervals = append(vp.intervals, angularInterval{start: lo, end: hi, barrier: best})
	}
	return vp
}

type incidentEdge struct {
	dir      geometry.IntVector2
	outgoing bool
}

// buildWedges pairs each outgoing boundary direction with the next direction counter-clockwise.
// blocked is true when the origin is on the boundary but no land wedge could be formed.
func buildWedges(incident []incidentEdge) ([]wedge, bool) {
	if len(incident) == 0 {
		return nil, false
	}
	sort.Slice(incident, func(i, j int) bool {
		return bearing(incident[i].dir.ToDouble()) < bearing(incident[j].dir.ToDouble())
	})
	var wedges []wedge
	for i, e := range incident {
		if !e.outgoing {
			continue
		}
		next := incident[(i+1)%len(incident)]
		if next.outgoing {
			continue
		}
		wedges = append(wedges, wedge{out: e.dir, in: next.dir})
	}
	return wedges, len(wedges) == 0
}

// Contains reports whether p is visible from the origin. Rays grazing a barrier endpoint count
// as visible, as do points on the boundary itself.
func (vp *VisibilityPolygon) Contains(p geometry.IntVector2) bool {
	if p == vp.Origin {
		return true
	}
	d := p.Sub(vp.Origin)
	if vp.blocked {
		return false
	}
	if len(vp.wedges) > 0 {
		inLand := false
		for _, w := range vp.wedges {
			if w.contains(d) {
				inLand = true
				break
			}
		}
		if !inLand {
			return false
		}
	}

	theta := bearing(d.ToDouble())
	found := false
	for _, th := range [...]float64{theta, theta - 2*math.Pi, theta + 2*math.Pi} {
		i := sort.Search(len(vp.intervals), func(i int) bool { return vp.intervals[i].end >= th-angleEps })
		for ; i < len(vp.intervals) && vp.intervals[i].start <= th+angleEps; i++ {
			found = true
			if onOriginSide(vp.intervals[i].barrier, vp.Origin, p) {
				return true
			}
		}
	}
	return !found
}

func onOriginSide(e geometry.IntLineSegment2, origin, p geometry.IntVector2) bool {
	sp := geometry.ComputeClockness(e.First, e.Second, p)
	return sp == geometry.Neither || sp == geometry.ComputeClockness(e.First, e.Second, origin)
}
