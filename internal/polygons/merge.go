package polygons

import "overlay-planner/internal/geometry"

// RemoveContainedRings drops rings that lie fully inside another ring of the set. Clipping
// would union them away anyway; filtering first keeps the clipper input small when many
// dynamic holes overlap.
func RemoveContainedRings(rings []geometry.Ring) []geometry.Ring {
	if len(rings) <= 1 {
		return rings
	}

	bounds := make([]geometry.IntRect, len(rings))
	for i, r := range rings {
		bounds[i] = r.Bounds()
	}

	contained := make([]bool, len(rings))
	for i := range rings {
		if contained[i] {
			continue
		}
		for j := range rings {
			if i == j || contained[j] {
				continue
			}
			if isRingContainedIn(rings[i], bounds[i], rings[j], bounds[j]) {
				contained[i] = true
				break
			}
		}
	}

	result := make([]geometry.Ring, 0, len(rings))
	for i, r := range rings {
		if !contained[i] {
			result = append(result, r)
		}
	}
	return result
}

// isRingContainedIn checks if ring a is fully contained within ring b
func isRingContainedIn(a geometry.Ring, ab geometry.IntRect, b geometry.Ring, bb geometry.IntRect) bool {
	if len(a) == 0 || len(b) < 3 {
		return false
	}
	// Quick bounding box check first
	if !bb.ContainsRect(ab) {
		return false
	}
	for _, v := range a {
		if b.Locate(v.ToDouble(), 0) != geometry.Inside {
			return false
		}
	}
	// All vertices inside is not enough for concave b; no edge of a may cross b.
	for _, ea := range a.Edges() {
		for _, eb := range b.Edges() {
			if ea.Intersects(eb) {
				return false
			}
		}
	}
	return true
}
