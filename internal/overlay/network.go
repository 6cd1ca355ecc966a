package overlay

import (
	"fmt"
	"log"
	"math"

	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"overlay-planner/internal/geometry"
	"overlay-planner/internal/region"
	"overlay-planner/internal/terrain"
)

// Node is one land region of one sector for the network's agent radius.
type Node struct {
	ID         int
	Sector     *terrain.Sector
	View       *region.LocalGeometryView
	Region     *region.Region
	Crossovers *region.CrossoverPointManager
	Bound      orb.Bound

	Outbound []*EdgeGroup
	Inbound  []*EdgeGroup

	crossings [][]Crossing
	network   *Network
}

// Crossing is the twin of a crossover point on a neighboring node.
type Crossing struct {
	Node  *Node
	Index int
}

// Network returns the network the node was wired into.
func (n *Node) Network() *Network { return n.network }

func (n *Node) String() string {
	return fmt.Sprintf("node %d (sector %d, region %d)", n.ID, n.Sector.ID, n.Region.Index)
}

// Crossings returns the twins of crossover point i across every outbound edge group.
func (n *Node) Crossings(i int) []Crossing {
	if i >= len(n.crossings) {
		return nil
	}
	return n.crossings[i]
}

// LocalToWorld maps a point in the node's sector frame to world space.
func (n *Node) LocalToWorld(p geometry.IntVector2) geometry.DoubleVector3 {
	return n.Sector.LocalToWorld(p.ToDouble())
}

// EdgeGroup pairs crossover points of two nodes along one portal. SourceIndices[i] in Source
// and DestinationIndices[i] in Destination are the same world point; crossing costs nothing.
type EdgeGroup struct {
	Source             *Node
	Destination        *Node
	SourceIndices      []int
	DestinationIndices []int
	Portal             terrain.Portal
}

// Network is the compiled overlay graph for one terrain snapshot and agent radius. It is
// read-only once compiled.
type Network struct {
	SnapshotID uuid.UUID
	Radius     float64
	Nodes      []*Node
	Edges      []*EdgeGroup

	sectors  []*terrain.Sector
	bySector map[int][]*Node
	index    *SpatialIndex
}

// Options configure network compilation.
type Options struct {
	// Crossover spacing along a portal is max(SpacingMin, radius*SpacingFactor).
	SpacingMin    float64
	SpacingFactor float64
}

func DefaultOptions() Options {
	return Options{SpacingMin: 5, SpacingFactor: 0.1}
}

func (o Options) spacing(radius float64) float64 {
	return math.Max(o.SpacingMin, radius*o.SpacingFactor)
}

// Compile assembles the network from per-sector views. views must hold an entry for every
// sector of the snapshot.
func Compile(snap *terrain.Snapshot, radius float64, views map[int]*region.LocalGeometryView, opts Options, counters *region.Counters) (*Network, error) {
	net, _, err := newCrossoverCache(opts, counters).compile(snap, radius, views)
	return net, err
}

// wire links nodes, edges and network once all of them exist.
func wire(net *Network, nodes []*Node, edges []*EdgeGroup) {
	net.Nodes = nodes
	net.Edges = edges
	for _, n := range nodes {
		n.network = net
	}
	for _, e := range edges {
		e.Source.Outbound = append(e.Source.Outbound, e)
		e.Destination.Inbound = append(e.Destination.Inbound, e)
		src := e.Source
		if len(src.crossings) < src.Crossovers.Len() {
			src.crossings = append(src.crossings, make([][]Crossing, src.Crossovers.Len()-len(src.crossings))...)
		}
		for k, i := range e.SourceIndices {
			src.crossings[i] = append(src.crossings[i], Crossing{Node: e.Destination, Index: e.DestinationIndices[k]})
		}
	}
	net.index = NewSpatialIndex(nodes)
}

// NodesOfSector returns the nodes of a sector, indexed by region.
func (net *Network) NodesOfSector(sectorID int) []*Node { return net.bySector[sectorID] }

// PointToNode finds the node whose land contains the world point and returns the point in the
// node's local frame.
func (net *Network) PointToNode(world geometry.DoubleVector3) (*Node, geometry.IntVector2, bool) {
	for _, n := range net.index.QueryPoint(world.X, world.Y) {
		local := n.Sector.WorldToLocalInt(world)
		if _, ok := n.Region.PointToTriangle(local.ToDouble()); ok {
			return n, local, true
		}
	}
	return nil, geometry.IntVector2{}, false
}

// ResolvePosition is PointToNode with push-out-of-hole recovery: a point inside a hole of a
// sector is snapped to the nearest land of that sector. pushed reports the snap.
func (net *Network) ResolvePosition(world geometry.DoubleVector3) (node *Node, local geometry.IntVector2, pushed bool, ok bool) {
	if n, l, ok := net.PointToNode(world); ok {
		return n, l, false, true
	}
	var best *Node
	var bestLocal geometry.IntVector2
	bestDist := math.Inf(1)
	for _, sec := range net.sectors {
		nodes := net.bySector[sec.ID]
		if len(nodes) == 0 {
			continue
		}
		raw := sec.WorldToLocalInt(world)
		if !sec.LocalBounds().Contains(raw) {
			continue
		}
		view := nodes[0].View
		snapped, _ := view.NearestLandPointAndIsHole(raw)
		r, found := view.RegionOf(snapped)
		if !found {
			continue
		}
		if d := raw.Distance(snapped); d < bestDist {
			best, bestLocal, bestDist = nodes[r.Index], snapped, d
		}
	}
	if best == nil {
		return nil, geometry.IntVector2{}, false, false
	}
	log.Printf("⚠️  Position %v was inside a hole, pushed to %v on %v\n", world, bestLocal, best)
	return best, bestLocal, true, true
}

// Stats summarizes the network size.
type Stats struct {
	Nodes      int `json:"nodes" msgpack:"nodes"`
	EdgeGroups int `json:"edgeGroups" msgpack:"edgeGroups"`
	Crossovers int `json:"crossovers" msgpack:"crossovers"`
	Waypoints  int `json:"waypoints" msgpack:"waypoints"`
	Triangles  int `json:"triangles" msgpack:"triangles"`
}

func (net *Network) Stats() Stats {
	s := Stats{Nodes: len(net.Nodes), EdgeGroups: len(net.Edges)}
	for _, n := range net.Nodes {
		s.Crossovers += n.Crossovers.Len()
		s.Waypoints += n.Region.Waypoints.Count()
		s.Triangles += len(n.Region.Triangles)
	}
	return s
}

// DebugLines returns world-space segments for visualization: region boundaries, waypoint
// visibility edges and direct crossover links, each undirected segment once.
func (net *Network) DebugLines() [][]geometry.DoubleVector3 {
	lines := make([][]geometry.DoubleVector3, 0)

	type key struct {
		node int
		seg  geometry.IntLineSegment2
	}
	seen := make(map[key]bool)
	add := func(n *Node, a, b geometry.IntVector2) {
		k := key{n.ID, geometry.IntLineSegment2{First: a, Second: b}.Canonical()}
		if a == b || seen[k] {
			return
		}
		seen[k] = true
		lines = append(lines, []geometry.DoubleVector3{n.LocalToWorld(a), n.LocalToWorld(b)})
	}

	for _, n := range net.Nodes {
		for _, e := range n.Region.Barriers {
			add(n, e.First, e.Second)
		}
		wm := n.Region.Waypoints
		for i := range wm.Waypoints {
			for j := 0; j < i; j++ {
				if wm.Lookup(i, j).Kind == region.LinkDirect {
					add(n, wm.Waypoints[i], wm.Waypoints[j])
				}
			}
		}
		for i := 0; i < n.Crossovers.Len(); i++ {
			for j := 0; j < i; j++ {
				if n.Crossovers.Link(i, j).Kind == region.LinkDirect {
					add(n, n.Crossovers.Point(i), n.Crossovers.Point(j))
				}
			}
		}
	}
	return lines
}
