package overlay

import (
	"sort"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
)

// nodeEntry wraps a node for R-tree storage
type nodeEntry struct {
	node *Node
	bbox rtreego.Rect
}

// Bounds implements rtreego.Spatial interface
func (e *nodeEntry) Bounds() rtreego.Rect {
	return e.bbox
}

// SpatialIndex answers which nodes may contain a world point. It is read-only after
// construction and safe for concurrent queries.
type SpatialIndex struct {
	tree *rtreego.Rtree
}

// minExtent keeps degenerate bounds queryable; rtreego rejects zero-length sides.
const minExtent = 1e-6

// NewSpatialIndex indexes nodes by their planar world bounds.
func NewSpatialIndex(nodes []*Node) *SpatialIndex {
	tree := rtreego.NewTree(2, 25, 50) // 2D, min 25, max 50 entries per node

	for _, n := range nodes {
		bbox, err := boundToRect(n.Bound)
		if err == nil {
			tree.Insert(&nodeEntry{node: n, bbox: bbox})
		}
	}

	return &SpatialIndex{tree: tree}
}

// QueryPoint returns nodes whose bounds contain the point, ordered by node ID.
func (si *SpatialIndex) QueryPoint(x, y float64) []*Node {
	return si.QueryRegion(x-minExtent, y-minExtent, x+minExtent, y+minExtent)
}

// QueryRegion returns nodes whose bounds intersect the given bounding box
func (si *SpatialIndex) QueryRegion(minX, minY, maxX, maxY float64) []*Node {
	bbox, err := rtreego.NewRect(
		rtreego.Point{minX, minY},
		[]float64{max(maxX-minX, minExtent), max(maxY-minY, minExtent)},
	)
	if err != nil {
		return nil
	}

	results := si.tree.SearchIntersect(bbox)
	nodes := make([]*Node, 0, len(results))
	for _, item := range results {
		nodes = append(nodes, item.(*nodeEntry).node)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return nodes
}

func (si *SpatialIndex) Size() int { return si.tree.Size() }

// boundToRect converts an orb bound into an rtreego rectangle
func boundToRect(b orb.Bound) (rtreego.Rect, error) {
	return rtreego.NewRect(
		rtreego.Point{b.Min[0], b.Min[1]},
		[]float64{max(b.Max[0]-b.Min[0], minExtent), max(b.Max[1]-b.Min[1], minExtent)},
	)
}
