package terrain

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/paulmach/orb"

	"overlay-planner/internal/geometry"
)

var (
	ErrUnknownSector = errors.New("unknown sector")
	ErrUnknownHole   = errors.New("unknown hole")
	ErrInvalidPortal = errors.New("invalid portal")
)

// Sector is a locally flat area with its own integer frame. Contour is the walkable outline
// in local coordinates; Holes are static obstacles authored with the sector.
type Sector struct {
	ID      int
	Name    string
	Contour geometry.Ring
	Holes   []geometry.Ring

	transform mgl64.Mat4
	inverse   mgl64.Mat4
}

// NewSector places a sector at origin, rotated by yaw radians around the vertical axis.
func NewSector(id int, name string, contour geometry.Ring, holes []geometry.Ring, origin geometry.DoubleVector3, yaw float64) (*Sector, error) {
	transform := mgl64.Translate3D(origin.X, origin.Y, origin.Z).Mul4(mgl64.HomogRotate3DZ(yaw))
	return NewSectorWithTransform(id, name, contour, holes, transform)
}

func NewSectorWithTransform(id int, name string, contour geometry.Ring, holes []geometry.Ring, transform mgl64.Mat4) (*Sector, error) {
	if len(contour) < 3 || contour.SignedArea2() == 0 {
		return nil, fmt.Errorf("sector %d: contour needs at least 3 non-collinear points", id)
	}
	if math.Abs(transform.Det()) < 1e-12 {
		return nil, fmt.Errorf("sector %d: transform is not invertible", id)
	}
	return &Sector{
		ID:        id,
		Name:      name,
		Contour:   contour.Oriented(true),
		Holes:     holes,
		transform: transform,
		inverse:   transform.Inv(),
	}, nil
}

func (s *Sector) Transform() mgl64.Mat4 { return s.transform }

func (s *Sector) LocalToWorld(p geometry.DoubleVector2) geometry.DoubleVector3 {
	v := s.transform.Mul4x1(mgl64.Vec4{p.X, p.Y, 0, 1})
	return geometry.DoubleVector3{X: v[0], Y: v[1], Z: v[2]}
}

func (s *Sector) WorldToLocal(p geometry.DoubleVector3) geometry.DoubleVector2 {
	v := s.inverse.Mul4x1(mgl64.Vec4{p.X, p.Y, p.Z, 1})
	return geometry.DoubleVector2{X: v[0], Y: v[1]}
}

// WorldToLocalInt maps a world point into the sector frame, rounding to the integer grid.
func (s *Sector) WorldToLocalInt(p geometry.DoubleVector3) geometry.IntVector2 {
	return s.WorldToLocal(p).LossyToIntVector2()
}

func (s *Sector) LocalBounds() geometry.IntRect { return s.Contour.Bounds() }

// WorldBound is the planar world-space bound of the sector's contour.
func (s *Sector) WorldBound() orb.Bound {
	return s.WorldBoundOf(s.Contour)
}

// WorldBoundOf returns the planar world bound of a local ring.
func (s *Sector) WorldBoundOf(ring geometry.Ring) orb.Bound {
	var b orb.Bound
	for i, p := range ring {
		w := s.LocalToWorld(p.ToDouble())
		pt := orb.Point{w.X, w.Y}
		if i == 0 {
			b = pt.Bound()
			continue
		}
		b = b.Extend(pt)
	}
	return b
}

// ContourEdge returns edge i of the contour in winding order.
func (s *Sector) ContourEdge(i int) geometry.IntLineSegment2 {
	n := len(s.Contour)
	return geometry.IntLineSegment2{First: s.Contour[i%n], Second: s.Contour[(i+1)%n]}
}

// Portal joins edge EdgeA of sector SectorA to edge EdgeB of sector SectorB. Both contours are
// counter-clockwise, so the edges run in opposite directions: EdgeA's first point meets
// EdgeB's second point in world space.
type Portal struct {
	SectorA int `json:"sectorA" msgpack:"sectorA"`
	EdgeA   int `json:"edgeA" msgpack:"edgeA"`
	SectorB int `json:"sectorB" msgpack:"sectorB"`
	EdgeB   int `json:"edgeB" msgpack:"edgeB"`
}

// portalTolerance is the world distance allowed between matching portal endpoints.
const portalTolerance = 1.0

func validatePortal(p Portal, a, b *Sector) error {
	if p.EdgeA < 0 || p.EdgeA >= len(a.Contour) || p.EdgeB < 0 || p.EdgeB >= len(b.Contour) {
		return fmt.Errorf("portal %d:%d-%d:%d edge out of range: %w", p.SectorA, p.EdgeA, p.SectorB, p.EdgeB, ErrInvalidPortal)
	}
	ea, eb := a.ContourEdge(p.EdgeA), b.ContourEdge(p.EdgeB)
	a0, a1 := a.LocalToWorld(ea.First.ToDouble()), a.LocalToWorld(ea.Second.ToDouble())
	b0, b1 := b.LocalToWorld(eb.First.ToDouble()), b.LocalToWorld(eb.Second.ToDouble())
	if a0.Distance(b1) > portalTolerance || a1.Distance(b0) > portalTolerance {
		return fmt.Errorf("portal %d:%d-%d:%d edges do not meet (%v-%v vs %v-%v): %w",
			p.SectorA, p.EdgeA, p.SectorB, p.EdgeB, a0, a1, b1, b0, ErrInvalidPortal)
	}
	return nil
}
