package polygons

import (
	"testing"

	"overlay-planner/internal/geometry"
)

func triangleArea2(tris [][3]geometry.IntVector2) int64 {
	var sum int64
	for _, tri := range tris {
		sum += geometry.Ring(tri[:]).SignedArea2()
	}
	return sum
}

func TestEarClipperAreas(t *testing.T) {
	cases := []struct {
		name    string
		contour geometry.Ring
		holes   []geometry.Ring
	}{
		{"square", square(0, 0, 10, 10), nil},
		{"clockwise input", square(0, 0, 10, 10).Reversed(), nil},
		{"l shape", geometry.Ring{{X: 0, Y: 0}, {X: 20, Y: 0}, {X: 20, Y: 10}, {X: 10, Y: 10}, {X: 10, Y: 20}, {X: 0, Y: 20}}, nil},
		{"square with hole", square(0, 0, 1000, 1000), []geometry.Ring{square(340, 340, 660, 660).Reversed()}},
		{"two holes", square(0, 0, 100, 100), []geometry.Ring{square(10, 10, 30, 30).Reversed(), square(60, 50, 80, 90).Reversed()}},
	}
	for _, tc := range cases {
		tris, err := NewEarClipper().Triangulate(tc.contour, tc.holes)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		want := tc.contour.Oriented(true).SignedArea2()
		for _, h := range tc.holes {
			want -= h.Oriented(true).SignedArea2()
		}
		if got := triangleArea2(tris); got != want {
			t.Fatalf("%s: expected doubled area %d, got %d", tc.name, want, got)
		}
		for _, tri := range tris {
			if geometry.ComputeClockness(tri[0], tri[1], tri[2]) != geometry.CounterClockwise {
				t.Fatalf("%s: expected counter-clockwise triangle, got %v", tc.name, tri)
			}
		}
	}
}

func TestEarClipperRejectsDegenerateContour(t *testing.T) {
	if _, err := NewEarClipper().Triangulate(geometry.Ring{{X: 0, Y: 0}, {X: 1, Y: 1}}, nil); err == nil {
		t.Fatalf("expected error for two-point contour")
	}
}
