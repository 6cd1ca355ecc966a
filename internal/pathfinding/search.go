package pathfinding

import (
	"fmt"

	"overlay-planner/internal/geometry"
	"overlay-planner/internal/overlay"
	"overlay-planner/internal/region"
)

// portalSlack is how far apart the two sides of a crossing may be in world space after
// rounding to each sector's integer frame.
const portalSlack = 1.5

// endpoint is a resolved query point with its links into its node.
type endpoint struct {
	World geometry.DoubleVector3
	Node  *overlay.Node
	Local geometry.IntVector2
	Links *region.PointLinks

	// toTarget is the link to the target, set when Node is the target's node.
	toTarget region.PathLink
}

func resolve(net *overlay.Network, world geometry.DoubleVector3) (*endpoint, bool, error) {
	n, local, _, ok := net.ResolvePosition(world)
	if !ok {
		return nil, false, nil
	}
	links, err := n.Crossovers.LinksFromPoint(local)
	if err != nil {
		return nil, false, err
	}
	return &endpoint{World: n.LocalToWorld(local), Node: n, Local: local, Links: links}, true, nil
}

// step is a finalized search unit and the neighbor it was reached from.
type step struct {
	via  key
	cost float64
}

// search holds the state shared by the forward and the reversed query. Forward searches root at
// the single source and record predecessors; reversed searches root at the target and record
// the next hop toward it.
type search struct {
	net      *overlay.Network
	reversed bool

	target  *endpoint
	sources []*endpoint
	byNode  map[int][]int

	settled map[key]step
	open    *openSet
	pending int // sources not yet settled
}

func newSearch(net *overlay.Network, target *endpoint, reversed bool) *search {
	return &search{
		net:      net,
		reversed: reversed,
		target:   target,
		byNode:   make(map[int][]int),
		settled:  make(map[key]step),
		open:     newOpenSet(),
	}
}

// addSource registers a source and returns its index.
func (s *search) addSource(src *endpoint) (int, error) {
	if src.Node == s.target.Node {
		link, err := src.Node.Crossovers.LinkBetween(src.Links, s.target.Links)
		if err != nil {
			return 0, err
		}
		src.toTarget = link
	}
	i := len(s.sources)
	s.sources = append(s.sources, src)
	s.byNode[src.Node.ID] = append(s.byNode[src.Node.ID], i)
	s.pending++
	return i, nil
}

func (s *search) tkey() key { return targetKey(s.target.Node.ID) }

func (s *search) skey(i int) key { return sourceKey(s.sources[i].Node.ID, i) }

func (s *search) node(k key) *overlay.Node { return s.net.Nodes[k.node] }

// world returns the world position of a search unit.
func (s *search) world(k key) geometry.DoubleVector3 {
	switch k.kind {
	case keySource:
		return s.sources[k.index].World
	case keyTarget:
		return s.target.World
	}
	n := s.node(k)
	return n.LocalToWorld(n.Crossovers.Point(k.index))
}

func (s *search) heuristic(k key) float64 {
	if s.reversed {
		return 0
	}
	return s.world(k).Distance(s.target.World)
}

func (s *search) relax(k, via key, cost float64, link region.PathLink) {
	if !link.IsReachable() {
		return
	}
	if _, done := s.settled[k]; done {
		return
	}
	g := cost + link.Cost
	s.open.relax(k, via, g, s.heuristic(k))
}

// run settles units until stop reports true or the frontier is empty.
func (s *search) run(stop func() bool) error {
	for s.open.Len() > 0 && !stop() {
		it := s.open.pop()
		if _, done := s.settled[it.key]; done {
			continue
		}
		s.settled[it.key] = step{via: it.pred, cost: it.G}
		if it.key.kind == keySource {
			s.pending--
		}
		var err error
		switch {
		case it.key.kind == keyCrossover:
			err = s.expandCrossover(it.key, it.G)
		case it.key.kind == keySource && !s.reversed:
			s.expandSource(it.key, it.G)
		case it.key.kind == keyTarget && s.reversed:
			s.expandTarget(it.key, it.G)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *search) expandSource(k key, g float64) {
	src := s.sources[k.index]
	for j, link := range src.Links.ToCrossovers {
		s.relax(crossoverKey(src.Node.ID, j), k, g, link)
	}
	if src.Node == s.target.Node {
		s.relax(s.tkey(), k, g, src.toTarget)
	}
}

func (s *search) expandTarget(k key, g float64) {
	n := s.target.Node
	for j, link := range s.target.Links.ToCrossovers {
		s.relax(crossoverKey(n.ID, j), k, g, link)
	}
	for _, i := range s.byNode[n.ID] {
		s.relax(s.skey(i), k, g, s.sources[i].toTarget)
	}
}

func (s *search) expandCrossover(k key, g float64) error {
	n := s.node(k)
	cm := n.Crossovers
	for j := 0; j < cm.Len(); j++ {
		if j == k.index {
			continue
		}
		link := cm.Link(k.index, j)
		if s.reversed {
			link = cm.Link(j, k.index)
		}
		s.relax(crossoverKey(n.ID, j), k, g, link)
	}
	for _, c := range n.Crossings(k.index) {
		s.relax(crossoverKey(c.Node.ID, c.Index), k, g, region.DirectLink(0))
	}

	if s.reversed {
		for _, i := range s.byNode[n.ID] {
			s.relax(s.skey(i), k, g, s.sources[i].Links.ToCrossovers[k.index])
		}
		return nil
	}
	if n == s.target.Node {
		link, err := cm.LinkBetween(cm.Row(k.index), s.target.Links)
		if err != nil {
			return fmt.Errorf("expand %v: %w", k, err)
		}
		s.relax(s.tkey(), k, g, link)
	}
	return nil
}

// chain returns the settled units from source i to the target in travel order.
func (s *search) chain(i int) ([]key, bool) {
	start, goal := s.skey(i), s.tkey()
	if s.reversed {
		var out []key
		for k := start; ; {
			st, ok := s.settled[k]
			if !ok {
				return nil, false
			}
			out = append(out, k)
			if k == goal {
				return out, true
			}
			k = st.via
		}
	}
	var out []key
	for k := goal; ; {
		st, ok := s.settled[k]
		if !ok {
			return nil, false
		}
		out = append(out, k)
		if k == start {
			break
		}
		k = st.via
	}
	for l, r := 0, len(out)-1; l < r; l, r = l+1, r-1 {
		out[l], out[r] = out[r], out[l]
	}
	return out, true
}

// roadmap backtracks source i into walk actions.
func (s *search) roadmap(i int) (*Roadmap, bool, error) {
	keys, ok := s.chain(i)
	if !ok {
		return nil, false, nil
	}
	rm := &Roadmap{Cost: s.settled[keys[0]].cost}
	if !s.reversed {
		rm.Cost = s.settled[keys[len(keys)-1]].cost
	}
	for h := 1; h < len(keys); h++ {
		actions, err := s.hop(keys[h-1], keys[h])
		if err != nil {
			return nil, false, fmt.Errorf("roadmap for source %d: %w", i, err)
		}
		rm.Actions = append(rm.Actions, actions...)
	}
	return rm, true, nil
}

// hop expands the link from a to b, a before b in travel order.
func (s *search) hop(a, b key) ([]Action, error) {
	if a.kind == keyCrossover && b.kind == keyCrossover && a.node != b.node {
		return nil, nil
	}
	n := s.node(a)
	cm := n.Crossovers

	var from, to geometry.IntVector2
	var fromLinks []region.PathLink
	var link region.PathLink
	switch a.kind {
	case keySource:
		src := s.sources[a.index]
		from, fromLinks = src.Local, src.Links.ToWaypoints
		if b.kind == keyTarget {
			link = src.toTarget
		} else {
			link = src.Links.ToCrossovers[b.index]
		}
	case keyCrossover:
		from, fromLinks = cm.Point(a.index), cm.LinksToWaypoints(a.index)
		if b.kind == keyTarget {
			var err error
			if link, err = cm.LinkBetween(cm.Row(a.index), s.target.Links); err != nil {
				return nil, err
			}
		} else {
			link = cm.Link(a.index, b.index)
		}
	default:
		return nil, fmt.Errorf("hop from %v: %w", a, region.ErrNoOptimalLink)
	}
	if b.kind == keyTarget {
		to = s.target.Local
	} else {
		to = cm.Point(b.index)
	}

	points, err := cm.ExpandLink(from, fromLinks, to, link)
	if err != nil {
		return nil, err
	}
	return walks(n, points), nil
}

func walks(n *overlay.Node, points []geometry.IntVector2) []Action {
	actions := make([]Action, 0, len(points))
	for i := 1; i < len(points); i++ {
		actions = append(actions, Action{
			Kind:             ActionWalk,
			Node:             n.ID,
			Sector:           n.Sector.ID,
			Source:           n.LocalToWorld(points[i-1]),
			Destination:      n.LocalToWorld(points[i]),
			LocalSource:      points[i-1],
			LocalDestination: points[i],
		})
	}
	return actions
}

// TryFindPath finds a roadmap from src to dst in world space. Points inside holes are pushed
// to the nearest land first. The bool is false when no path exists; errors report broken
// network invariants.
func TryFindPath(net *overlay.Network, src, dst geometry.DoubleVector3) (*Roadmap, bool, error) {
	target, ok, err := resolve(net, dst)
	if err != nil || !ok {
		return nil, false, err
	}
	source, ok, err := resolve(net, src)
	if err != nil || !ok {
		return nil, false, err
	}

	s := newSearch(net, target, false)
	i, err := s.addSource(source)
	if err != nil {
		return nil, false, err
	}
	if source.Node == target.Node {
		// same region: the straight line or the waypoint route is optimal
		s.settled[s.skey(i)] = step{via: s.skey(i)}
		s.settled[s.tkey()] = step{via: s.skey(i), cost: source.toTarget.Cost}
		return s.roadmap(i)
	}

	s.open.relax(s.skey(i), s.skey(i), 0, s.heuristic(s.skey(i)))
	goal := s.tkey()
	if err := s.run(func() bool { _, done := s.settled[goal]; return done }); err != nil {
		return nil, false, err
	}
	return s.roadmap(i)
}
