package polygons

import (
	"fmt"

	"overlay-planner/internal/geometry"
)

// DefaultStabilizer is the dilate/erode round trip applied to holes before the agent radius.
const DefaultStabilizer = 0.05

// Compiler turns a sector blueprint into the land polygon tree for one agent radius.
type Compiler struct {
	Service    Service
	Stabilizer float64
}

func NewCompiler(svc Service) *Compiler {
	if svc == nil {
		svc = NewClipperService()
	}
	return &Compiler{Service: svc, Stabilizer: DefaultStabilizer}
}

// Compile punches holes dilated by radius out of the land contours. A tree with no land is a
// valid result meaning "currently unwalkable".
func (c *Compiler) Compile(land, holes []geometry.Ring, radius float64) (*PolyTree, error) {
	if radius < 0 {
		return nil, fmt.Errorf("compile with radius %v: negative radius", radius)
	}
	holes = RemoveContainedRings(holes)
	if len(holes) > 0 && c.Stabilizer > 0 {
		holes = c.Service.Offset(holes, c.Stabilizer)
		holes = c.Service.Offset(holes, -c.Stabilizer)
	}
	if radius > 0 {
		holes = c.Service.Offset(holes, radius)
	}
	tree, err := c.Service.Punch(land, holes)
	if err != nil {
		return nil, fmt.Errorf("compile with radius %v: %w", radius, err)
	}
	return tree, nil
}
