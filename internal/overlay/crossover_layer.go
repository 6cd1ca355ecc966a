package overlay

import (
	"fmt"
	"math"

	"overlay-planner/internal/geometry"
	"overlay-planner/internal/region"
	"overlay-planner/internal/terrain"
)

type layerKey struct {
	sector int
	radius float64
}

type sampleKey struct {
	portal int
	radius float64
}

// portalSide names one side of a portal of the snapshot's portal list.
type portalSide struct {
	portal int
	b      bool
}

// regionPair is the crossover sampling of two regions meeting across a portal. pointsA[i] and
// pointsB[i] are the same world point.
type regionPair struct {
	regionA, regionB int
	pointsA, pointsB []geometry.IntVector2
}

// portalSamples is the sampling of one portal between two views.
type portalSamples struct {
	viewA, viewB *region.LocalGeometryView
	pairs        []regionPair
}

// sectorLayer holds a crossover manager per region of one sector view, filled from every
// portal touching the sector. It stays valid while the sector and all of its portal
// neighbors keep the views it was built from.
type sectorLayer struct {
	views    map[int]*region.LocalGeometryView
	managers []*region.CrossoverPointManager
	// indices[side][k] are the indices the k-th region pair of that portal side received.
	indices map[portalSide][][]int
}

func (l *sectorLayer) current(views map[int]*region.LocalGeometryView) bool {
	for id, v := range l.views {
		if views[id] != v {
			return false
		}
	}
	return true
}

// crossoverCache keeps sector layers and portal samplings between compiles. A hole change
// rebuilds only the layers of the touched sector and its portal neighbors.
type crossoverCache struct {
	opts     Options
	counters *region.Counters
	samples  map[sampleKey]*portalSamples
	layers   map[layerKey]*sectorLayer
}

func newCrossoverCache(opts Options, counters *region.Counters) *crossoverCache {
	return &crossoverCache{
		opts:     opts,
		counters: counters,
		samples:  make(map[sampleKey]*portalSamples),
		layers:   make(map[layerKey]*sectorLayer),
	}
}

// compile assembles a network, reusing every sector layer whose views are unchanged. It
// returns the number of reused layers.
func (c *crossoverCache) compile(snap *terrain.Snapshot, radius float64, views map[int]*region.LocalGeometryView) (*Network, int, error) {
	for _, sec := range snap.Sectors {
		if _, ok := views[sec.ID]; !ok {
			return nil, 0, fmt.Errorf("compile network: no view for sector %d: %w", sec.ID, terrain.ErrUnknownSector)
		}
	}
	touching := make(map[int][]int)
	for i, p := range snap.Portals {
		touching[p.SectorA] = append(touching[p.SectorA], i)
		if p.SectorB != p.SectorA {
			touching[p.SectorB] = append(touching[p.SectorB], i)
		}
	}

	var nodes []*Node
	bySector := make(map[int][]*Node)
	layers := make(map[int]*sectorLayer, len(snap.Sectors))
	reused := 0
	for _, sec := range snap.Sectors {
		view := views[sec.ID]
		layer, hit, err := c.layer(snap, radius, sec, touching[sec.ID], views)
		if err != nil {
			return nil, 0, err
		}
		if hit {
			reused++
		}
		layers[sec.ID] = layer
		for i, r := range view.Regions {
			n := &Node{
				ID:         len(nodes),
				Sector:     sec,
				View:       view,
				Region:     r,
				Crossovers: layer.managers[i],
				Bound:      sec.WorldBoundOf(r.Contour),
			}
			nodes = append(nodes, n)
			bySector[sec.ID] = append(bySector[sec.ID], n)
		}
	}

	var edges []*EdgeGroup
	for i, p := range snap.Portals {
		s := c.sample(snap, radius, i, views)
		rowsA := layers[p.SectorA].indices[portalSide{i, false}]
		rowsB := layers[p.SectorB].indices[portalSide{i, true}]
		for k, pair := range s.pairs {
			na := bySector[p.SectorA][pair.regionA]
			nb := bySector[p.SectorB][pair.regionB]
			edges = append(edges,
				&EdgeGroup{Source: na, Destination: nb, SourceIndices: rowsA[k], DestinationIndices: rowsB[k], Portal: p},
				&EdgeGroup{Source: nb, Destination: na, SourceIndices: rowsB[k], DestinationIndices: rowsA[k], Portal: p},
			)
		}
	}

	net := &Network{
		SnapshotID: snap.ID,
		Radius:     radius,
		sectors:    snap.Sectors,
		bySector:   bySector,
	}
	wire(net, nodes, edges)
	return net, reused, nil
}

// layer returns the crossover layer of sec, building it when a view it depends on changed.
func (c *crossoverCache) layer(snap *terrain.Snapshot, radius float64, sec *terrain.Sector, portals []int, views map[int]*region.LocalGeometryView) (*sectorLayer, bool, error) {
	key := layerKey{sector: sec.ID, radius: radius}
	if l, ok := c.layers[key]; ok && l.current(views) {
		return l, true, nil
	}

	view := views[sec.ID]
	l := &sectorLayer{
		views:   map[int]*region.LocalGeometryView{sec.ID: view},
		indices: make(map[portalSide][][]int),
	}
	for _, r := range view.Regions {
		l.managers = append(l.managers, region.NewCrossoverPointManager(r, c.counters))
	}
	for _, i := range portals {
		p := snap.Portals[i]
		s := c.sample(snap, radius, i, views)
		l.views[p.SectorA], l.views[p.SectorB] = s.viewA, s.viewB
		for _, side := range []portalSide{{i, false}, {i, true}} {
			sectorID, edge := p.SectorA, p.EdgeA
			if side.b {
				sectorID, edge = p.SectorB, p.EdgeB
			}
			if sectorID != sec.ID {
				continue
			}
			seg := sec.ContourEdge(edge)
			rows := make([][]int, len(s.pairs))
			for k, pair := range s.pairs {
				r, points := pair.regionA, pair.pointsA
				if side.b {
					r, points = pair.regionB, pair.pointsB
				}
				idx, err := l.managers[r].AddMany(seg, points)
				if err != nil {
					return nil, false, fmt.Errorf("portal %d:%d-%d:%d on sector %d region %d: %w",
						p.SectorA, p.EdgeA, p.SectorB, p.EdgeB, sec.ID, r, err)
				}
				rows[k] = idx
			}
			l.indices[side] = rows
		}
	}
	c.layers[key] = l
	return l, false, nil
}

// sample returns the crossover sampling of portal i for the current views of its sectors.
func (c *crossoverCache) sample(snap *terrain.Snapshot, radius float64, i int, views map[int]*region.LocalGeometryView) *portalSamples {
	p := snap.Portals[i]
	va, vb := views[p.SectorA], views[p.SectorB]
	key := sampleKey{portal: i, radius: radius}
	if s, ok := c.samples[key]; ok && s.viewA == va && s.viewB == vb {
		return s
	}
	secA, _ := snap.Sector(p.SectorA)
	secB, _ := snap.Sector(p.SectorB)
	s := &portalSamples{
		viewA: va,
		viewB: vb,
		pairs: samplePortal(secA.ContourEdge(p.EdgeA), secB.ContourEdge(p.EdgeB), va, vb, c.opts.spacing(radius)),
	}
	c.samples[key] = s
	return s
}

// evict drops layers and samplings built on views that are no longer live.
func (c *crossoverCache) evict(live map[*region.LocalGeometryView]bool) {
	for k, l := range c.layers {
		for _, v := range l.views {
			if !live[v] {
				delete(c.layers, k)
				break
			}
		}
	}
	for k, s := range c.samples {
		if !live[s.viewA] || !live[s.viewB] {
			delete(c.samples, k)
		}
	}
}

type interval struct{ lo, hi float64 }

// landIntervals returns the parameter ranges of edge, from First to Second, that the region
// contour runs along.
func landIntervals(r *region.Region, edge geometry.IntLineSegment2) []interval {
	var out []interval
	for _, ce := range r.Contour.Edges() {
		if geometry.ComputeClockness(edge.First, edge.Second, ce.First) != geometry.Neither ||
			geometry.ComputeClockness(edge.First, edge.Second, ce.Second) != geometry.Neither {
			continue
		}
		t0 := edge.ProjectionParameter(ce.First.ToDouble())
		t1 := edge.ProjectionParameter(ce.Second.ToDouble())
		lo, hi := math.Max(0, math.Min(t0, t1)), math.Min(1, math.Max(t0, t1))
		if hi > lo {
			out = append(out, interval{lo, hi})
		}
	}
	return out
}

// samplePortal samples matching crossover points on both sides of a portal for every pair of
// regions whose land meets across it.
func samplePortal(ea, eb geometry.IntLineSegment2, va, vb *region.LocalGeometryView, spacing float64) []regionPair {
	length := ea.Length()
	if length == 0 {
		return nil
	}

	var pairs []regionPair
	for _, ra := range va.Regions {
		ia := landIntervals(ra, ea)
		if len(ia) == 0 {
			continue
		}
		for _, rb := range vb.Regions {
			pair := regionPair{regionA: ra.Index, regionB: rb.Index}
			seen := make(map[geometry.IntVector2]bool)
			for _, ib := range landIntervals(rb, eb) {
				// b runs the shared edge in the opposite direction
				ib = interval{1 - ib.hi, 1 - ib.lo}
				for _, a := range ia {
					lo, hi := math.Max(a.lo, ib.lo), math.Min(a.hi, ib.hi)
					if (hi-lo)*length < 1 {
						continue
					}
					for _, t := range samples(lo, hi, length, spacing) {
						pa := ea.PointAt(t).LossyToIntVector2()
						pb := eb.PointAt(1 - t).LossyToIntVector2()
						if seen[pa] || !ra.ContainsPoint(pa.ToDouble()) || !rb.ContainsPoint(pb.ToDouble()) {
							continue
						}
						seen[pa] = true
						pair.pointsA = append(pair.pointsA, pa)
						pair.pointsB = append(pair.pointsB, pb)
					}
				}
			}
			if len(pair.pointsA) > 0 {
				pairs = append(pairs, pair)
			}
		}
	}
	return pairs
}

// samples spaces points evenly over [lo, hi], endpoints included, no further apart than spacing.
func samples(lo, hi, length, spacing float64) []float64 {
	span := (hi - lo) * length
	n := int(math.Ceil(span/spacing)) + 1
	if n < 2 {
		n = 2
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = lo + (hi-lo)*float64(i)/float64(n-1)
	}
	return out
}
