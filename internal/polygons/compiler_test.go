package polygons

import (
	"testing"

	"overlay-planner/internal/geometry"
)

func square(x0, y0, x1, y1 int32) geometry.Ring {
	return geometry.Ring{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}}
}

func nearRect(got, want geometry.IntRect, tolerance int32) bool {
	d := func(a, b int32) bool { return a-b <= tolerance && b-a <= tolerance }
	return d(got.Left, want.Left) && d(got.Top, want.Top) && d(got.Right, want.Right) && d(got.Bottom, want.Bottom)
}

func TestCompileDilatesHoles(t *testing.T) {
	c := NewCompiler(nil)
	tree, err := c.Compile([]geometry.Ring{square(0, 0, 1000, 1000)}, []geometry.Ring{square(350, 350, 650, 650)}, 10)
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}
	land := tree.LandNodes()
	if len(land) != 1 {
		t.Fatalf("expected one land region, got %d", len(land))
	}
	if !land[0].Contour.IsCounterClockwise() {
		t.Fatalf("expected land contour to be counter-clockwise")
	}
	if !nearRect(land[0].Contour.Bounds(), geometry.IntRect{Left: 0, Top: 0, Right: 1000, Bottom: 1000}, 0) {
		t.Fatalf("expected sector contour to stay in place, got %v", land[0].Contour.Bounds())
	}
	holes := land[0].Holes()
	if len(holes) != 1 {
		t.Fatalf("expected one hole, got %d", len(holes))
	}
	if holes[0].IsCounterClockwise() {
		t.Fatalf("expected hole to be clockwise")
	}
	if !nearRect(holes[0].Bounds(), geometry.IntRect{Left: 340, Top: 340, Right: 660, Bottom: 660}, 1) {
		t.Fatalf("expected hole dilated by the radius, got %v", holes[0].Bounds())
	}
}

func TestCompileErodedToNothing(t *testing.T) {
	c := NewCompiler(nil)
	tree, err := c.Compile([]geometry.Ring{square(0, 0, 100, 100)}, []geometry.Ring{square(10, 10, 90, 90)}, 50)
	if err != nil {
		t.Fatalf("expected empty tree without error, got %v", err)
	}
	if !tree.IsEmpty() {
		t.Fatalf("expected no land to survive, got %d regions", len(tree.LandNodes()))
	}
}

func TestCompileSplitsLand(t *testing.T) {
	c := NewCompiler(nil)
	tree, err := c.Compile([]geometry.Ring{square(0, 0, 1000, 1000)}, []geometry.Ring{square(-100, 450, 1100, 550)}, 5)
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}
	if got := len(tree.LandNodes()); got != 2 {
		t.Fatalf("expected full-width hole to split land in two, got %d", got)
	}
}

func TestCompileRejectsNegativeRadius(t *testing.T) {
	if _, err := NewCompiler(nil).Compile([]geometry.Ring{square(0, 0, 10, 10)}, nil, -1); err == nil {
		t.Fatalf("expected error for negative radius")
	}
}

func TestRemoveContainedRings(t *testing.T) {
	rings := []geometry.Ring{
		square(0, 0, 100, 100),
		square(10, 10, 20, 20),
		square(90, 90, 120, 120),
	}
	got := RemoveContainedRings(rings)
	if len(got) != 2 {
		t.Fatalf("expected the nested ring to be dropped, got %d rings", len(got))
	}
	for _, r := range got {
		if r.Bounds() == square(10, 10, 20, 20).Bounds() {
			t.Fatalf("expected nested ring to be removed")
		}
	}
}

func TestNormalizeDropsDegenerateRings(t *testing.T) {
	nodes := []*PolyNode{
		{Contour: geometry.Ring{{X: 0, Y: 0}, {X: 5, Y: 0}, {X: 10, Y: 0}}},
		{Contour: square(0, 0, 10, 10).Reversed(), Children: []*PolyNode{{Contour: square(2, 2, 4, 4)}}},
	}
	got := normalize(nodes, false)
	if len(got) != 1 {
		t.Fatalf("expected collinear ring to be dropped, got %d", len(got))
	}
	if !got[0].Contour.IsCounterClockwise() || got[0].IsHole {
		t.Fatalf("expected land ring to be counter-clockwise")
	}
	if child := got[0].Children[0]; !child.IsHole || child.Contour.IsCounterClockwise() {
		t.Fatalf("expected child to be a clockwise hole")
	}
}
