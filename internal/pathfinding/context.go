package pathfinding

import (
	"github.com/google/uuid"

	"overlay-planner/internal/geometry"
	"overlay-planner/internal/overlay"
	"overlay-planner/internal/terrain"
)

// ResultContext is a destination-rooted search that can be backtracked for any of its sources
// and extended with more sources later. It is bound to the network, and so to the terrain
// snapshot, it was computed on. It is not safe for concurrent use.
type ResultContext struct {
	SnapshotID  uuid.UUID
	Radius      float64
	Destination geometry.DoubleVector3

	search  *search
	sources []int // caller index -> search source index, -1 if unresolved
}

// UniformCostSearch searches backward from destination until every source is reached or
// nothing else is reachable. The bool reports whether at least one source was reached.
func UniformCostSearch(net *overlay.Network, destination geometry.DoubleVector3, sources []geometry.DoubleVector3) (*ResultContext, bool, error) {
	target, ok, err := resolve(net, destination)
	if err != nil || !ok {
		return nil, false, err
	}
	s := newSearch(net, target, true)
	root := s.tkey()
	s.open.relax(root, root, 0, 0)

	c := &ResultContext{
		SnapshotID:  net.SnapshotID,
		Radius:      net.Radius,
		Destination: destination,
		search:      s,
	}
	first, err := c.Extend(sources)
	if err != nil {
		return nil, false, err
	}
	for i := range sources {
		if _, ok := c.Cost(first + i); ok {
			return c, true, nil
		}
	}
	return c, false, nil
}

// Extend adds sources to the context and resumes the search until they are reached. It returns
// the index of the first added source. Units settled earlier keep their exact costs; new
// sources are seeded from every settled unit of their node.
func (c *ResultContext) Extend(sources []geometry.DoubleVector3) (int, error) {
	s := c.search
	first := len(c.sources)
	for _, p := range sources {
		src, ok, err := resolve(s.net, p)
		if err != nil {
			return first, err
		}
		if !ok {
			c.sources = append(c.sources, -1)
			continue
		}
		i, err := s.addSource(src)
		if err != nil {
			return first, err
		}
		c.sources = append(c.sources, i)
		c.seed(i)
	}
	err := s.run(func() bool { return s.pending == 0 })
	return first, err
}

// seed relaxes a new source from the settled units it links to.
func (c *ResultContext) seed(i int) {
	s := c.search
	src := s.sources[i]
	k := s.skey(i)
	if st, ok := s.settled[s.tkey()]; ok && src.Node == s.target.Node {
		s.relax(k, s.tkey(), st.cost, src.toTarget)
	}
	for j, link := range src.Links.ToCrossovers {
		if st, ok := s.settled[crossoverKey(src.Node.ID, j)]; ok {
			s.relax(k, crossoverKey(src.Node.ID, j), st.cost, link)
		}
	}
}

// Len is the number of sources added so far.
func (c *ResultContext) Len() int { return len(c.sources) }

// Cost returns the path cost of source i.
func (c *ResultContext) Cost(i int) (float64, bool) {
	if i < 0 || i >= len(c.sources) || c.sources[i] < 0 {
		return 0, false
	}
	s := c.search
	st, ok := s.settled[s.skey(c.sources[i])]
	return st.cost, ok
}

// Roadmap backtracks source i toward the destination. It is false when the source is
// unreachable.
func (c *ResultContext) Roadmap(i int) (*Roadmap, bool, error) {
	if i < 0 || i >= len(c.sources) || c.sources[i] < 0 {
		return nil, false, nil
	}
	return c.search.roadmap(c.sources[i])
}

// IsStale reports whether the context was computed against another terrain snapshot.
func (c *ResultContext) IsStale(snap *terrain.Snapshot) bool {
	return snap == nil || snap.ID != c.SnapshotID
}
