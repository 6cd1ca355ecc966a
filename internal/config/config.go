package config

import (
	"errors"
	"fmt"
	"log"
	"math"
	"os"

	"github.com/hjson/hjson-go/v4"

	"overlay-planner/internal/geometry"
	"overlay-planner/internal/overlay"
	"overlay-planner/internal/polygons"
	"overlay-planner/internal/terrain"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Log         LogConfig         `json:"log"`
	Server      ServerConfig      `json:"server"`
	Pathfinding PathfindingConfig `json:"pathfinding"`
	Sectors     []SectorConfig    `json:"sectors"`
	Portals     []PortalConfig    `json:"portals"`
	// HolesDir holds GeoJSON files loaded as dynamic world-space holes at startup.
	HolesDir   string           `json:"holesDir"`
	HoleFilter HoleFilterConfig `json:"holeFilter"`
}

type LogConfig struct {
	Prefix       string `json:"prefix"`
	Microseconds bool   `json:"microseconds"`
	UTC          bool   `json:"utc"`
	ShortFile    bool   `json:"shortFile"`
}

type ServerConfig struct {
	Addr string `json:"addr"`
}

type PathfindingConfig struct {
	Radius        float64 `json:"radius"`        // default agent radius
	SpacingMin    float64 `json:"spacingMin"`    // crossover spacing floor
	SpacingFactor float64 `json:"spacingFactor"` // crossover spacing per unit of radius
	Stabilizer    float64 `json:"stabilizer"`    // hole dilate/erode round trip
}

type SectorConfig struct {
	ID      int          `json:"id"`
	Name    string       `json:"name"`
	Origin  [3]float64   `json:"origin"`
	Yaw     float64      `json:"yaw"` // degrees, counter-clockwise
	Contour [][2]int32   `json:"contour"`
	Holes   [][][2]int32 `json:"holes"`
}

type PortalConfig struct {
	SectorA int `json:"sectorA"`
	EdgeA   int `json:"edgeA"`
	SectorB int `json:"sectorB"`
	EdgeB   int `json:"edgeB"`
}

type HoleFilterConfig struct {
	SimplifyEpsilon float64 `json:"simplifyEpsilon"`
	MinArea         float64 `json:"minArea"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":8080"},
		Pathfinding: PathfindingConfig{
			SpacingMin:    5,
			SpacingFactor: 0.1,
			Stabilizer:    polygons.DefaultStabilizer,
		},
	}
}

// Load reads an hjson config file over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	c := Default()
	if err := hjson.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse config: %w: %v", ErrInvalidConfig, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	if len(c.Sectors) == 0 {
		return fmt.Errorf("%w: no sectors", ErrInvalidConfig)
	}
	for _, s := range c.Sectors {
		if len(s.Contour) < 3 {
			return fmt.Errorf("%w: sector %d contour has %d points", ErrInvalidConfig, s.ID, len(s.Contour))
		}
		for i, h := range s.Holes {
			if len(h) < 3 {
				return fmt.Errorf("%w: sector %d hole %d has %d points", ErrInvalidConfig, s.ID, i, len(h))
			}
		}
	}
	p := c.Pathfinding
	if p.Radius < 0 || p.Stabilizer < 0 {
		return fmt.Errorf("%w: negative radius or stabilizer", ErrInvalidConfig)
	}
	if p.SpacingMin <= 0 || p.SpacingFactor < 0 {
		return fmt.Errorf("%w: crossover spacing must be positive", ErrInvalidConfig)
	}
	return nil
}

// ApplyLog configures the standard logger.
func (c *Config) ApplyLog() {
	flags := log.LstdFlags
	if c.Log.Microseconds {
		flags |= log.Lmicroseconds
	}
	if c.Log.UTC {
		flags |= log.LUTC
	}
	if c.Log.ShortFile {
		flags |= log.Lshortfile
	}
	log.SetFlags(flags)
	log.SetPrefix(c.Log.Prefix)
}

func (c *Config) OverlayOptions() overlay.Options {
	return overlay.Options{SpacingMin: c.Pathfinding.SpacingMin, SpacingFactor: c.Pathfinding.SpacingFactor}
}

func (c *Config) Compiler() *polygons.Compiler {
	comp := polygons.NewCompiler(nil)
	comp.Stabilizer = c.Pathfinding.Stabilizer
	return comp
}

// NewManager returns a network manager configured from c.
func (c *Config) NewManager() *overlay.Manager {
	return overlay.NewManager(c.Compiler(), polygons.NewEarClipper(), c.OverlayOptions())
}

func toRing(points [][2]int32) geometry.Ring {
	r := make(geometry.Ring, 0, len(points))
	for _, p := range points {
		r = append(r, geometry.IntVector2{X: p[0], Y: p[1]})
	}
	return r
}

// Build creates the terrain service and loads the startup holes.
func (c *Config) Build() (*terrain.Service, error) {
	sectors := make([]*terrain.Sector, 0, len(c.Sectors))
	for _, sc := range c.Sectors {
		holes := make([]geometry.Ring, 0, len(sc.Holes))
		for _, h := range sc.Holes {
			holes = append(holes, toRing(h))
		}
		origin := geometry.DoubleVector3{X: sc.Origin[0], Y: sc.Origin[1], Z: sc.Origin[2]}
		s, err := terrain.NewSector(sc.ID, sc.Name, toRing(sc.Contour), holes, origin, sc.Yaw*math.Pi/180)
		if err != nil {
			return nil, fmt.Errorf("%w: sector %d: %v", ErrInvalidConfig, sc.ID, err)
		}
		sectors = append(sectors, s)
	}
	portals := make([]terrain.Portal, 0, len(c.Portals))
	for _, p := range c.Portals {
		portals = append(portals, terrain.Portal{SectorA: p.SectorA, EdgeA: p.EdgeA, SectorB: p.SectorB, EdgeB: p.EdgeB})
	}
	svc, err := terrain.NewService(sectors, portals)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	log.Printf("🗺️  Terrain: %d sectors, %d portals\n", len(sectors), len(portals))

	if c.HolesDir == "" {
		return svc, nil
	}
	rings, err := terrain.LoadHolesFromDir(c.HolesDir, terrain.HoleLoadOptions{
		SimplifyEpsilon: c.HoleFilter.SimplifyEpsilon,
		MinArea:         c.HoleFilter.MinArea,
	})
	if err != nil {
		return nil, fmt.Errorf("load holes: %w", err)
	}
	for i, ring := range rings {
		if _, _, err := svc.AddWorldHole(ring); err != nil {
			log.Printf("⚠️  Skipping hole %d: %v\n", i, err)
		}
	}
	return svc, nil
}
