package overlay

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"overlay-planner/internal/geometry"
	"overlay-planner/internal/polygons"
	"overlay-planner/internal/region"
	"overlay-planner/internal/terrain"
)

type viewKey struct {
	sector  int
	version uint64
	radius  float64
}

type networkKey struct {
	snapshot uuid.UUID
	radius   float64
}

// Manager compiles and caches networks. Views are reused across snapshots as long as the
// sector's hole version is unchanged, crossover layers as long as the views of the sector
// and its portal neighbors are; networks are cached per snapshot and radius.
type Manager struct {
	Counters *region.Counters

	compiler *polygons.Compiler
	tri      polygons.Triangulator
	opts     Options

	mu       sync.Mutex
	views    map[viewKey]*region.LocalGeometryView
	layers   *crossoverCache
	networks map[networkKey]*Network
}

func NewManager(compiler *polygons.Compiler, tri polygons.Triangulator, opts Options) *Manager {
	if compiler == nil {
		compiler = polygons.NewCompiler(nil)
	}
	if tri == nil {
		tri = polygons.NewEarClipper()
	}
	counters := &region.Counters{}
	return &Manager{
		Counters: counters,
		compiler: compiler,
		tri:      tri,
		opts:     opts,
		views:    make(map[viewKey]*region.LocalGeometryView),
		layers:   newCrossoverCache(opts, counters),
		networks: make(map[networkKey]*Network),
	}
}

// Network returns the network of snap for radius, compiling what is not cached. Compiling a
// newer snapshot evicts cache entries that no longer match it.
func (m *Manager) Network(snap *terrain.Snapshot, radius float64) (*Network, error) {
	if radius < 0 {
		return nil, fmt.Errorf("network for radius %v: negative radius", radius)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := networkKey{snapshot: snap.ID, radius: radius}
	if net, ok := m.networks[key]; ok {
		return net, nil
	}

	start := time.Now()
	views, compiled, err := m.viewsFor(snap, radius)
	if err != nil {
		return nil, err
	}
	net, reused, err := m.layers.compile(snap, radius, views)
	if err != nil {
		return nil, err
	}
	m.networks[key] = net
	m.evict(snap)

	stats := net.Stats()
	log.Printf("✅ Overlay network compiled for radius %.2f in %v\n", radius, time.Since(start))
	log.Printf("   Views: %d compiled, %d reused\n", compiled, len(views)-compiled)
	log.Printf("   Crossover layers: %d built, %d reused\n", len(views)-reused, reused)
	log.Printf("   Nodes: %d, edge groups: %d, crossovers: %d, waypoints: %d\n",
		stats.Nodes, stats.EdgeGroups, stats.Crossovers, stats.Waypoints)
	return net, nil
}

// viewsFor returns the views of every sector, compiling missing ones in parallel.
func (m *Manager) viewsFor(snap *terrain.Snapshot, radius float64) (map[int]*region.LocalGeometryView, int, error) {
	views := make(map[int]*region.LocalGeometryView, len(snap.Sectors))
	var missing []*terrain.Sector
	for _, sec := range snap.Sectors {
		if v, ok := m.views[viewKey{sec.ID, snap.Version(sec.ID), radius}]; ok {
			views[sec.ID] = v
			continue
		}
		missing = append(missing, sec)
	}

	results := make([]*region.LocalGeometryView, len(missing))
	errs := make([]error, len(missing))
	var wg sync.WaitGroup
	for i, sec := range missing {
		wg.Add(1)
		go func(i int, sec *terrain.Sector) {
			defer wg.Done()
			land := []geometry.Ring{sec.Contour}
			results[i], errs[i] = region.CompileView(m.compiler, m.tri, land, snap.HoleRings(sec.ID), radius)
		}(i, sec)
	}
	wg.Wait()

	for i, sec := range missing {
		if errs[i] != nil {
			return nil, 0, fmt.Errorf("compile sector %d: %w", sec.ID, errs[i])
		}
		views[sec.ID] = results[i]
		m.views[viewKey{sec.ID, snap.Version(sec.ID), radius}] = results[i]
	}
	return views, len(missing), nil
}

// evict drops views of outdated sector versions, the crossover layers built on them and
// networks of other snapshots.
func (m *Manager) evict(snap *terrain.Snapshot) {
	live := make(map[*region.LocalGeometryView]bool, len(m.views))
	for k, v := range m.views {
		if k.version != snap.Version(k.sector) {
			delete(m.views, k)
			continue
		}
		live[v] = true
	}
	m.layers.evict(live)
	for k := range m.networks {
		if k.snapshot != snap.ID {
			delete(m.networks, k)
		}
	}
}

// CachedViews is the number of cached views.
func (m *Manager) CachedViews() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.views)
}
