package terrain

import (
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/simplify"

	"overlay-planner/internal/geometry"
)

// HoleLoadOptions controls how GeoJSON obstacle rings are cleaned up before use.
type HoleLoadOptions struct {
	// SimplifyEpsilon is the Douglas-Peucker tolerance in world units; 0 disables it.
	SimplifyEpsilon float64
	// MinArea drops rings smaller than this world area.
	MinArea float64
}

// LoadHolesFromDir loads every *.geojson file in dir as world-space hole rings. Files that
// cannot be read or parsed are logged and skipped.
func LoadHolesFromDir(dir string, opts HoleLoadOptions) ([][]geometry.DoubleVector3, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.geojson"))
	if err != nil {
		return nil, err
	}

	log.Printf("Loading holes from %d GeoJSON files...\n", len(files))

	var all [][]geometry.DoubleVector3
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			log.Printf("⚠️  Failed to read %s: %v\n", file, err)
			continue
		}
		rings, err := ParseHoles(data, opts)
		if err != nil {
			log.Printf("⚠️  Failed to parse %s: %v\n", file, err)
			continue
		}
		all = append(all, rings...)
		log.Printf("   ✅ Loaded %d holes from %s\n", len(rings), filepath.Base(file))
	}

	log.Printf("Total holes loaded: %d\n", len(all))
	return all, nil
}

// ParseHoles reads the outer rings of Polygon and MultiPolygon features. Interior rings are
// ignored: a hole inside a hole adds nothing walkable.
func ParseHoles(data []byte, opts HoleLoadOptions) ([][]geometry.DoubleVector3, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse feature collection: %w", err)
	}
	var out [][]geometry.DoubleVector3
	for _, f := range fc.Features {
		var polygons []orb.Polygon
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			polygons = append(polygons, g)
		case orb.MultiPolygon:
			polygons = append(polygons, g...)
		default:
			continue
		}
		for _, p := range polygons {
			if len(p) == 0 {
				continue
			}
			if ring, ok := cleanRing(p[0], opts); ok {
				out = append(out, ring)
			}
		}
	}
	return out, nil
}

// cleanRing drops small rings and simplifies the rest. A ring that would collapse under
// simplification is kept as it was.
func cleanRing(r orb.Ring, opts HoleLoadOptions) ([]geometry.DoubleVector3, bool) {
	if len(r) < 3 {
		return nil, false
	}
	if !r.Closed() {
		r = append(r.Clone(), r[0])
	}
	if len(r) < 4 {
		return nil, false
	}
	if opts.MinArea > 0 {
		if _, area := planar.CentroidArea(r); math.Abs(area) < opts.MinArea {
			return nil, false
		}
	}
	if opts.SimplifyEpsilon > 0 {
		if simplified := simplify.DouglasPeucker(opts.SimplifyEpsilon).Ring(r.Clone()); len(simplified) >= 4 {
			r = simplified
		}
	}
	ring := make([]geometry.DoubleVector3, 0, len(r)-1)
	for _, p := range r[:len(r)-1] {
		ring = append(ring, geometry.DoubleVector3{X: p[0], Y: p[1]})
	}
	return ring, true
}
