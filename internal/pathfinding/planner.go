package pathfinding

import (
	"sync"

	"github.com/google/uuid"

	"overlay-planner/internal/geometry"
	"overlay-planner/internal/overlay"
	"overlay-planner/internal/terrain"
)

// RetryGate remembers the snapshot a query failed against so it is not retried until the
// terrain changes.
type RetryGate[K comparable] struct {
	mu     sync.Mutex
	failed map[K]uuid.UUID
}

func NewRetryGate[K comparable]() *RetryGate[K] {
	return &RetryGate[K]{failed: make(map[K]uuid.UUID)}
}

// Allow reports whether k may be searched against snapshot.
func (g *RetryGate[K]) Allow(k K, snapshot uuid.UUID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	id, ok := g.failed[k]
	return !ok || id != snapshot
}

// Record stores the outcome of searching k against snapshot.
func (g *RetryGate[K]) Record(k K, snapshot uuid.UUID, found bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if found {
		delete(g.failed, k)
		return
	}
	g.failed[k] = snapshot
}

type routeKey struct {
	radius   float64
	from, to geometry.DoubleVector3
}

type swarmKey struct {
	radius float64
	to     geometry.DoubleVector3
}

// Planner answers route queries against the current terrain.
type Planner struct {
	terrain  *terrain.Service
	networks *overlay.Manager
	gate     *RetryGate[routeKey]

	mu     sync.Mutex
	swarms map[swarmKey]*ResultContext
}

func NewPlanner(svc *terrain.Service, networks *overlay.Manager) *Planner {
	return &Planner{
		terrain:  svc,
		networks: networks,
		gate:     NewRetryGate[routeKey](),
		swarms:   make(map[swarmKey]*ResultContext),
	}
}

// Terrain returns the terrain service the planner reads.
func (p *Planner) Terrain() *terrain.Service { return p.terrain }

// Network returns the network of the current snapshot for radius.
func (p *Planner) Network(radius float64) (*overlay.Network, error) {
	return p.networks.Network(p.terrain.Snapshot(), radius)
}

// Route finds a roadmap from one point to another. A query that failed is answered with false
// without searching until the terrain snapshot changes.
func (p *Planner) Route(radius float64, from, to geometry.DoubleVector3) (*Roadmap, bool, error) {
	snap := p.terrain.Snapshot()
	k := routeKey{radius: radius, from: from, to: to}
	if !p.gate.Allow(k, snap.ID) {
		return nil, false, nil
	}
	net, err := p.networks.Network(snap, radius)
	if err != nil {
		return nil, false, err
	}
	rm, found, err := TryFindPath(net, from, to)
	if err != nil {
		return nil, false, err
	}
	p.gate.Record(k, snap.ID, found)
	return rm, found, nil
}

// Swarm routes many agents to one destination. The search context is kept per destination and
// extended with new agents while the terrain is unchanged. Unreachable agents get nil.
func (p *Planner) Swarm(radius float64, to geometry.DoubleVector3, from []geometry.DoubleVector3) ([]*Roadmap, error) {
	snap := p.terrain.Snapshot()
	net, err := p.networks.Network(snap, radius)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for k, c := range p.swarms {
		if c.IsStale(snap) {
			delete(p.swarms, k)
		}
	}

	k := swarmKey{radius: radius, to: to}
	first := 0
	ctx, ok := p.swarms[k]
	if ok {
		if first, err = ctx.Extend(from); err != nil {
			return nil, err
		}
	} else {
		if ctx, _, err = UniformCostSearch(net, to, from); err != nil {
			return nil, err
		}
		if ctx == nil {
			return make([]*Roadmap, len(from)), nil
		}
		p.swarms[k] = ctx
	}

	out := make([]*Roadmap, len(from))
	for i := range from {
		rm, found, err := ctx.Roadmap(first + i)
		if err != nil {
			return nil, err
		}
		if found {
			out[i] = rm
		}
	}
	return out, nil
}
