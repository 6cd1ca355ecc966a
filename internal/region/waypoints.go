package region

import (
	"math"
	"sync"

	"overlay-planner/internal/geometry"
)

// WaypointManager holds the detour hubs of one region: contour and hole vertices that turn
// away from land. Paths between them come from an all-pairs table stored only for
// table[high][low].
type WaypointManager struct {
	Waypoints []geometry.IntVector2

	barriers []geometry.IntLineSegment2

	mu         sync.Mutex
	visibility []*VisibilityPolygon

	lut [][]PathLink
}

// NewWaypointManager finds the region's waypoints and computes the waypoint LUT.
func NewWaypointManager(r *Region) *WaypointManager {
	m := &WaypointManager{barriers: r.Barriers}
	m.Waypoints = append(m.Waypoints, reflexVertices(r.Contour)...)
	for _, h := range r.Holes {
		m.Waypoints = append(m.Waypoints, reflexVertices(h)...)
	}
	m.visibility = make([]*VisibilityPolygon, len(m.Waypoints))
	m.buildLUT()
	return m
}

// reflexVertices returns vertices where the ring turns clockwise. With land on the left those
// are the corners a shortest path can bend around.
func reflexVertices(ring geometry.Ring) []geometry.IntVector2 {
	var out []geometry.IntVector2
	n := len(ring)
	for i := range ring {
		prev, next := ring[(i+n-1)%n], ring[(i+1)%n]
		if geometry.ComputeClockness(prev, ring[i], next) == geometry.Clockwise {
			out = append(out, ring[i])
		}
	}
	return out
}

func (m *WaypointManager) Count() int { return len(m.Waypoints) }

// Visibility returns the memoized visibility polygon of waypoint i.
func (m *WaypointManager) Visibility(i int) *VisibilityPolygon {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.visibility[i] == nil {
		m.visibility[i] = NewVisibilityPolygon(m.Waypoints[i], m.barriers)
	}
	return m.visibility[i]
}

// IsVisible checks if p can be reached from waypoint i in a straight line.
func (m *WaypointManager) IsVisible(i int, p geometry.IntVector2) bool {
	return m.Visibility(i).Contains(p)
}

// VisibleFrom lists the waypoints that see p.
func (m *WaypointManager) VisibleFrom(p geometry.IntVector2) []int {
	var out []int
	for i := range m.Waypoints {
		if m.IsVisible(i, p) {
			out = append(out, i)
		}
	}
	return out
}

// buildLUT runs a dense Dijkstra from every waypoint over mutually visible pairs. Row hi keeps
// the paths from hi to every lower index, each entry naming the waypoint just before the
// target.
func (m *WaypointManager) buildLUT() {
	n := len(m.Waypoints)
	if n == 0 {
		return
	}
	adjacent := make([][]bool, n)
	for i := range adjacent {
		adjacent[i] = make([]bool, n)
	}
	for i := 0; i < n; i++ {
		for j := 0; j < i; j++ {
			if m.IsVisible(i, m.Waypoints[j]) && m.IsVisible(j, m.Waypoints[i]) {
				adjacent[i][j] = true
				adjacent[j][i] = true
			}
		}
	}

	m.lut = make([][]PathLink, n)
	dist := make([]float64, n)
	prev := make([]int, n)
	done := make([]bool, n)
	for src := 1; src < n; src++ {
		for i := range dist {
			dist[i] = math.Inf(1)
			prev[i] = -1
			done[i] = false
		}
		dist[src] = 0
		for {
			u := -1
			for i := 0; i < n; i++ {
				if !done[i] && !math.IsInf(dist[i], 1) && (u < 0 || dist[i] < dist[u]) {
					u = i
				}
			}
			if u < 0 {
				break
			}
			done[u] = true
			for v := 0; v < n; v++ {
				if done[v] || !adjacent[u][v] {
					continue
				}
				if d := dist[u] + m.Waypoints[u].Distance(m.Waypoints[v]); d < dist[v] {
					dist[v] = d
					prev[v] = u
				}
			}
		}

		row := make([]PathLink, src)
		for lo := 0; lo < src; lo++ {
			switch {
			case prev[lo] < 0:
				row[lo] = UnreachableLink()
			case prev[lo] == src:
				row[lo] = DirectLink(dist[lo])
			default:
				row[lo] = ViaWaypoint(prev[lo], dist[lo])
			}
		}
		m.lut[src] = row
	}
}

// Lookup returns the shortest path link between waypoints a and b.
func (m *WaypointManager) Lookup(a, b int) PathLink {
	if a == b {
		return DirectLink(0)
	}
	return m.lut[max(a, b)][min(a, b)]
}

// Path returns the waypoint indices from a to b inclusive, or nil if they are not connected.
// Both ends walk toward each other, always advancing the lower index, since only
// table[high][low] is stored.
func (m *WaypointManager) Path(a, b int) []int {
	if a == b {
		return []int{a}
	}
	if !m.Lookup(a, b).IsReachable() {
		return nil
	}
	head := []int{a}
	tail := []int{b}
	x, y := a, b
	for guard := 0; x != y && guard <= len(m.Waypoints); guard++ {
		link := m.lut[max(x, y)][min(x, y)]
		if link.Kind != LinkViaWaypoint {
			break
		}
		prior := int(link.Waypoint)
		if y < x {
			y = prior
			tail = append(tail, y)
		} else {
			x = prior
			head = append(head, x)
		}
	}
	if head[len(head)-1] == tail[len(tail)-1] {
		tail = tail[:len(tail)-1]
	}
	for i := len(tail) - 1; i >= 0; i-- {
		head = append(head, tail[i])
	}
	return head
}

// PathCost sums the lengths along Path(a, b).
func (m *WaypointManager) PathCost(path []int) float64 {
	var cost float64
	for i := 1; i < len(path); i++ {
		cost += m.Waypoints[path[i-1]].Distance(m.Waypoints[path[i]])
	}
	return cost
}
