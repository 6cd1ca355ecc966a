package geometry

import (
	"math"
	"testing"
)

func TestComputeClockness(t *testing.T) {
	a, b := NewIntVector2(0, 0), NewIntVector2(10, 0)
	cases := []struct {
		c    IntVector2
		want Clockness
	}{
		{NewIntVector2(5, 5), CounterClockwise},
		{NewIntVector2(5, -5), Clockwise},
		{NewIntVector2(20, 0), Neither},
	}
	for _, tc := range cases {
		if got := ComputeClockness(a, b, tc.c); got != tc.want {
			t.Fatalf("clockness of %v: expected %d, got %d", tc.c, tc.want, got)
		}
	}
}

func TestSegmentIntersection(t *testing.T) {
	s := NewIntLineSegment2(NewIntVector2(0, 0), NewIntVector2(10, 10))
	cases := []struct {
		name     string
		o        IntLineSegment2
		touches  bool
		properly bool
	}{
		{"crossing", NewIntLineSegment2(NewIntVector2(0, 10), NewIntVector2(10, 0)), true, true},
		{"endpoint touch", NewIntLineSegment2(NewIntVector2(10, 10), NewIntVector2(20, 0)), true, false},
		{"t junction", NewIntLineSegment2(NewIntVector2(5, 5), NewIntVector2(10, 0)), true, false},
		{"collinear overlap", NewIntLineSegment2(NewIntVector2(5, 5), NewIntVector2(15, 15)), true, false},
		{"disjoint", NewIntLineSegment2(NewIntVector2(0, 5), NewIntVector2(-5, 10)), false, false},
	}
	for _, tc := range cases {
		if got := s.Intersects(tc.o); got != tc.touches {
			t.Fatalf("%s: expected Intersects %v, got %v", tc.name, tc.touches, got)
		}
		if got := s.ProperlyIntersects(tc.o); got != tc.properly {
			t.Fatalf("%s: expected ProperlyIntersects %v, got %v", tc.name, tc.properly, got)
		}
	}
}

func TestNearestPointAndRayDistance(t *testing.T) {
	s := NewIntLineSegment2(NewIntVector2(0, 10), NewIntVector2(10, 10))
	if got := s.NearestPoint(DoubleVector2{X: -5, Y: 0}); got != (DoubleVector2{X: 0, Y: 10}) {
		t.Fatalf("expected clamp to first endpoint, got %v", got)
	}
	if d := s.DistanceToPoint(DoubleVector2{X: 5, Y: 4}); math.Abs(d-6) > 1e-12 {
		t.Fatalf("expected distance 6, got %v", d)
	}
	if d := s.RayLineDistance(DoubleVector2{X: 5, Y: 0}, DoubleVector2{X: 0, Y: 1}); math.Abs(d-10) > 1e-12 {
		t.Fatalf("expected ray distance 10, got %v", d)
	}
	if d := s.RayLineDistance(DoubleVector2{X: 5, Y: 0}, DoubleVector2{X: 0, Y: -1}); !math.IsInf(d, 1) {
		t.Fatalf("expected +Inf behind the origin, got %v", d)
	}
}

func TestRingOrientationAndLocate(t *testing.T) {
	square := Ring{{0, 0}, {10, 0}, {10, 10}, {0, 10}}
	if !square.IsCounterClockwise() {
		t.Fatalf("expected square to be counter-clockwise")
	}
	if square.Reversed().IsCounterClockwise() {
		t.Fatalf("expected reversed square to be clockwise")
	}
	if got := square.SignedArea2(); got != 200 {
		t.Fatalf("expected doubled area 200, got %d", got)
	}
	cases := []struct {
		p    DoubleVector2
		want Location
	}{
		{DoubleVector2{X: 5, Y: 5}, Inside},
		{DoubleVector2{X: 10, Y: 5}, OnBoundary},
		{DoubleVector2{X: 0, Y: 0}, OnBoundary},
		{DoubleVector2{X: 11, Y: 5}, Outside},
	}
	for _, tc := range cases {
		if got := square.Locate(tc.p, 1e-9); got != tc.want {
			t.Fatalf("locate %v: expected %d, got %d", tc.p, tc.want, got)
		}
	}
}

func TestConvexHull(t *testing.T) {
	points := []IntVector2{{0, 0}, {5, 0}, {10, 0}, {10, 10}, {5, 5}, {0, 10}, {0, 0}}
	hull := ConvexHull(points)
	if len(hull) != 4 {
		t.Fatalf("expected 4 hull points, got %v", hull)
	}
	if !Ring(hull).IsCounterClockwise() {
		t.Fatalf("expected counter-clockwise hull, got %v", hull)
	}
}

func TestIntRect(t *testing.T) {
	r := BoundingRect([]IntVector2{{3, 4}, {-1, 7}, {2, -2}})
	if r != (IntRect{Left: -1, Top: -2, Right: 3, Bottom: 7}) {
		t.Fatalf("unexpected bounds %v", r)
	}
	if !r.Contains(NewIntVector2(0, 0)) || r.Contains(NewIntVector2(4, 0)) {
		t.Fatalf("unexpected containment for %v", r)
	}
	if !r.Intersects(IntRect{Left: 3, Top: 7, Right: 9, Bottom: 9}) {
		t.Fatalf("expected touching rects to intersect")
	}
}
