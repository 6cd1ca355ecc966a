package polygons

import (
	"fmt"

	clipper "github.com/ctessum/go.clipper"

	"overlay-planner/internal/geometry"
)

// Service is the polygon boolean/offset collaborator consumed by the compiler.
type Service interface {
	// Punch subtracts excluded rings from included rings and returns the resulting tree.
	Punch(included, excluded []geometry.Ring) (*PolyTree, error)
	// Offset grows (delta > 0) or shrinks (delta < 0) closed rings. The result is a flat
	// set of rings with positive winding for outers.
	Offset(rings []geometry.Ring, delta float64) []geometry.Ring
}

// ClipperService implements Service on top of the Clipper library.
type ClipperService struct {
	// MiterLimit bounds how far sharp corners extend when offsetting.
	MiterLimit float64
}

func NewClipperService() *ClipperService {
	return &ClipperService{MiterLimit: 2}
}

func (s *ClipperService) Punch(included, excluded []geometry.Ring) (*PolyTree, error) {
	c := clipper.NewClipper(0)
	if len(included) > 0 {
		c.AddPaths(toPaths(included), clipper.PtSubject, true)
	}
	if len(excluded) > 0 {
		c.AddPaths(toPaths(excluded), clipper.PtClip, true)
	}
	tree, ok := c.Execute2(clipper.CtDifference, clipper.PftNonZero, clipper.PftNonZero)
	if !ok {
		return nil, fmt.Errorf("punch %d included, %d excluded rings: %w", len(included), len(excluded), ErrDegenerateGeometry)
	}
	out := &PolyTree{Children: fromPolyNodes(tree.Childs())}
	out.Children = normalize(out.Children, false)
	return out, nil
}

func (s *ClipperService) Offset(rings []geometry.Ring, delta float64) []geometry.Ring {
	if len(rings) == 0 {
		return nil
	}
	if delta == 0 {
		return rings
	}
	co := clipper.NewClipperOffset()
	co.MiterLimit = s.MiterLimit
	co.AddPaths(toPaths(rings), clipper.JtMiter, clipper.EtClosedPolygon)
	return fromPaths(co.Execute(delta))
}

// toPaths converts rings to Clipper paths, normalizing every ring to positive winding so
// overlapping holes union under the non-zero fill rule.
func toPaths(rings []geometry.Ring) clipper.Paths {
	paths := make(clipper.Paths, 0, len(rings))
	for _, r := range rings {
		if len(r) < 3 {
			continue
		}
		r = r.Oriented(true)
		path := make(clipper.Path, 0, len(r))
		for _, p := range r {
			path = append(path, &clipper.IntPoint{X: clipper.CInt(p.X), Y: clipper.CInt(p.Y)})
		}
		paths = append(paths, path)
	}
	return paths
}

func fromPath(path clipper.Path) geometry.Ring {
	ring := make(geometry.Ring, 0, len(path))
	for _, p := range path {
		ring = append(ring, geometry.IntVector2{X: int32(p.X), Y: int32(p.Y)})
	}
	return ring
}

func fromPaths(paths clipper.Paths) []geometry.Ring {
	rings := make([]geometry.Ring, 0, len(paths))
	for _, p := range paths {
		rings = append(rings, fromPath(p))
	}
	return rings
}

func fromPolyNodes(nodes []*clipper.PolyNode) []*PolyNode {
	out := make([]*PolyNode, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, &PolyNode{
			Contour:  fromPath(n.Contour()),
			IsHole:   n.IsHole(),
			Children: fromPolyNodes(n.Childs()),
		})
	}
	return out
}
