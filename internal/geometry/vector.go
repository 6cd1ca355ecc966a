package geometry

import (
	"fmt"
	"math"
)

// IntVector2 is a point in a sector-local integer frame.
type IntVector2 struct {
	X int32 `json:"x" msgpack:"x"`
	Y int32 `json:"y" msgpack:"y"`
}

// IntVector3 is an integer point with height.
type IntVector3 struct {
	X int32 `json:"x" msgpack:"x"`
	Y int32 `json:"y" msgpack:"y"`
	Z int32 `json:"z" msgpack:"z"`
}

// DoubleVector2 is a floating point 2D vector.
type DoubleVector2 struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
}

// DoubleVector3 is a floating point 3D vector, used for world positions.
type DoubleVector3 struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
	Z float64 `json:"z" msgpack:"z"`
}

func NewIntVector2(x, y int32) IntVector2 { return IntVector2{X: x, Y: y} }

func (v IntVector2) Add(o IntVector2) IntVector2 { return IntVector2{v.X + o.X, v.Y + o.Y} }
func (v IntVector2) Sub(o IntVector2) IntVector2 { return IntVector2{v.X - o.X, v.Y - o.Y} }

// Dot and Cross are computed in int64 so int32 coordinates never overflow.
func (v IntVector2) Dot(o IntVector2) int64 {
	return int64(v.X)*int64(o.X) + int64(v.Y)*int64(o.Y)
}

func (v IntVector2) Cross(o IntVector2) int64 {
	return int64(v.X)*int64(o.Y) - int64(v.Y)*int64(o.X)
}

func (v IntVector2) SquaredNorm2() int64 { return v.Dot(v) }

func (v IntVector2) Norm2F() float64 { return math.Sqrt(float64(v.SquaredNorm2())) }

// Distance calculates Euclidean distance between two points
func (v IntVector2) Distance(o IntVector2) float64 { return v.Sub(o).Norm2F() }

func (v IntVector2) ToDouble() DoubleVector2 { return DoubleVector2{float64(v.X), float64(v.Y)} }

func (v IntVector2) String() string { return fmt.Sprintf("(%d, %d)", v.X, v.Y) }

func (v IntVector3) XY() IntVector2 { return IntVector2{v.X, v.Y} }

func (v IntVector3) ToDouble() DoubleVector3 {
	return DoubleVector3{float64(v.X), float64(v.Y), float64(v.Z)}
}

func (v DoubleVector2) Add(o DoubleVector2) DoubleVector2 { return DoubleVector2{v.X + o.X, v.Y + o.Y} }
func (v DoubleVector2) Sub(o DoubleVector2) DoubleVector2 { return DoubleVector2{v.X - o.X, v.Y - o.Y} }
func (v DoubleVector2) Mul(s float64) DoubleVector2       { return DoubleVector2{v.X * s, v.Y * s} }
func (v DoubleVector2) Dot(o DoubleVector2) float64       { return v.X*o.X + v.Y*o.Y }
func (v DoubleVector2) Cross(o DoubleVector2) float64     { return v.X*o.Y - v.Y*o.X }
func (v DoubleVector2) Norm2D() float64                   { return math.Sqrt(v.Dot(v)) }
func (v DoubleVector2) Distance(o DoubleVector2) float64  { return v.Sub(o).Norm2D() }

// Normalize returns the unit vector, or the zero vector for a zero input.
func (v DoubleVector2) Normalize() DoubleVector2 {
	n := v.Norm2D()
	if n == 0 {
		return DoubleVector2{}
	}
	return DoubleVector2{v.X / n, v.Y / n}
}

// LossyToIntVector2 rounds to the nearest integer point.
func (v DoubleVector2) LossyToIntVector2() IntVector2 {
	return IntVector2{int32(math.Round(v.X)), int32(math.Round(v.Y))}
}

func (v DoubleVector2) String() string { return fmt.Sprintf("(%.3f, %.3f)", v.X, v.Y) }

func (v DoubleVector3) Add(o DoubleVector3) DoubleVector3 {
	return DoubleVector3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

func (v DoubleVector3) Sub(o DoubleVector3) DoubleVector3 {
	return DoubleVector3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

func (v DoubleVector3) Norm2D() float64 { return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z) }

func (v DoubleVector3) Distance(o DoubleVector3) float64 { return v.Sub(o).Norm2D() }

func (v DoubleVector3) XY() DoubleVector2 { return DoubleVector2{v.X, v.Y} }

func (v DoubleVector3) String() string { return fmt.Sprintf("(%.3f, %.3f, %.3f)", v.X, v.Y, v.Z) }

// IntRect is an inclusive axis-aligned integer rectangle.
type IntRect struct {
	Left, Top, Right, Bottom int32
}

// BoundingRect returns the bounds of the given points. Empty input yields a zero rect.
func BoundingRect(points []IntVector2) IntRect {
	if len(points) == 0 {
		return IntRect{}
	}
	r := IntRect{points[0].X, points[0].Y, points[0].X, points[0].Y}
	for _, p := range points[1:] {
		r = r.Extend(p)
	}
	return r
}

func (r IntRect) Extend(p IntVector2) IntRect {
	if p.X < r.Left {
		r.Left = p.X
	}
	if p.X > r.Right {
		r.Right = p.X
	}
	if p.Y < r.Top {
		r.Top = p.Y
	}
	if p.Y > r.Bottom {
		r.Bottom = p.Y
	}
	return r
}

func (r IntRect) Union(o IntRect) IntRect {
	return r.Extend(IntVector2{o.Left, o.Top}).Extend(IntVector2{o.Right, o.Bottom})
}

func (r IntRect) ContainsF(p DoubleVector2) bool {
	return p.X >= float64(r.Left) && p.X <= float64(r.Right) &&
		p.Y >= float64(r.Top) && p.Y <= float64(r.Bottom)
}

func (r IntRect) Contains(p IntVector2) bool {
	return p.X >= r.Left && p.X <= r.Right && p.Y >= r.Top && p.Y <= r.Bottom
}

// ContainsRect checks if o is fully contained in r
func (r IntRect) ContainsRect(o IntRect) bool {
	return o.Left >= r.Left && o.Right <= r.Right && o.Top >= r.Top && o.Bottom <= r.Bottom
}

func (r IntRect) Intersects(o IntRect) bool {
	return r.Left <= o.Right && o.Left <= r.Right && r.Top <= o.Bottom && o.Top <= r.Bottom
}
