package terrain

import (
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/google/uuid"

	"overlay-planner/internal/geometry"
)

// Hole is a dynamic obstacle in one sector's local frame. A hole added in world space gets
// one entry per sector it overlaps, all sharing the same ID.
type Hole struct {
	ID     uuid.UUID
	Sector int
	Ring   geometry.Ring
}

// Snapshot is an immutable view of the terrain. Its ID changes on every mutation; Version
// changes only for sectors whose hole set changed.
type Snapshot struct {
	ID      uuid.UUID
	Sectors []*Sector
	Portals []Portal

	byID     map[int]*Sector
	holes    map[int][]Hole
	versions map[int]uint64
}

func (s *Snapshot) Sector(id int) (*Sector, bool) {
	sec, ok := s.byID[id]
	return sec, ok
}

// Version is the hole-set version of a sector.
func (s *Snapshot) Version(id int) uint64 { return s.versions[id] }

// DynamicHoles returns the dynamic holes of a sector.
func (s *Snapshot) DynamicHoles(id int) []Hole { return s.holes[id] }

// HoleRings returns the static and dynamic hole rings of a sector.
func (s *Snapshot) HoleRings(id int) []geometry.Ring {
	sec, ok := s.byID[id]
	if !ok {
		return nil
	}
	rings := make([]geometry.Ring, 0, len(sec.Holes)+len(s.holes[id]))
	rings = append(rings, sec.Holes...)
	for _, h := range s.holes[id] {
		rings = append(rings, h.Ring)
	}
	return rings
}

// HoleCount is the number of distinct dynamic holes.
func (s *Snapshot) HoleCount() int {
	seen := make(map[uuid.UUID]struct{})
	for _, hs := range s.holes {
		for _, h := range hs {
			seen[h.ID] = struct{}{}
		}
	}
	return len(seen)
}

// Service owns the terrain. Writers are serialized; readers take a Snapshot and never see it
// change.
type Service struct {
	mu      sync.Mutex
	current *Snapshot
}

func NewService(sectors []*Sector, portals []Portal) (*Service, error) {
	snap := &Snapshot{
		ID:       uuid.New(),
		Sectors:  append([]*Sector(nil), sectors...),
		Portals:  append([]Portal(nil), portals...),
		byID:     make(map[int]*Sector, len(sectors)),
		holes:    make(map[int][]Hole),
		versions: make(map[int]uint64, len(sectors)),
	}
	sort.Slice(snap.Sectors, func(i, j int) bool { return snap.Sectors[i].ID < snap.Sectors[j].ID })
	for _, sec := range snap.Sectors {
		if _, dup := snap.byID[sec.ID]; dup {
			return nil, fmt.Errorf("duplicate sector %d", sec.ID)
		}
		snap.byID[sec.ID] = sec
	}
	for _, p := range snap.Portals {
		a, okA := snap.byID[p.SectorA]
		b, okB := snap.byID[p.SectorB]
		if !okA || !okB {
			return nil, fmt.Errorf("portal %d-%d: %w", p.SectorA, p.SectorB, ErrUnknownSector)
		}
		if err := validatePortal(p, a, b); err != nil {
			return nil, err
		}
	}
	return &Service{current: snap}, nil
}

// Snapshot returns the current terrain snapshot.
func (s *Service) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// AddHole adds a dynamic hole in a sector's local frame.
func (s *Service) AddHole(sectorID int, ring geometry.Ring) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.current.byID[sectorID]; !ok {
		return uuid.Nil, fmt.Errorf("add hole to sector %d: %w", sectorID, ErrUnknownSector)
	}
	if len(ring) < 3 {
		return uuid.Nil, fmt.Errorf("add hole to sector %d: ring has %d points", sectorID, len(ring))
	}
	id := uuid.New()
	s.publish(map[int][]Hole{sectorID: {{ID: id, Sector: sectorID, Ring: ring}}}, nil)
	return id, nil
}

// AddWorldHole maps a world-space ring into every sector whose world bounds it overlaps and
// returns the hole ID with the touched sector IDs.
func (s *Service) AddWorldHole(ring []geometry.DoubleVector3) (uuid.UUID, []int, error) {
	if len(ring) < 3 {
		return uuid.Nil, nil, fmt.Errorf("add world hole: ring has %d points", len(ring))
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New()
	added := make(map[int][]Hole)
	var touched []int
	for _, sec := range s.current.Sectors {
		local := make(geometry.Ring, 0, len(ring))
		for _, p := range ring {
			local = append(local, sec.WorldToLocalInt(p))
		}
		if local.SignedArea2() == 0 || !local.Bounds().Intersects(sec.LocalBounds()) {
			continue
		}
		added[sec.ID] = []Hole{{ID: id, Sector: sec.ID, Ring: local}}
		touched = append(touched, sec.ID)
	}
	if len(touched) == 0 {
		return uuid.Nil, nil, fmt.Errorf("add world hole: no sector overlaps the ring: %w", ErrUnknownSector)
	}
	s.publish(added, nil)
	log.Printf("🕳️  Hole %s added to sectors %v\n", id, touched)
	return id, touched, nil
}

// RemoveHole removes a dynamic hole from every sector it was added to.
func (s *Service) RemoveHole(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	found := false
	for _, hs := range s.current.holes {
		for _, h := range hs {
			if h.ID == id {
				found = true
			}
		}
	}
	if !found {
		return fmt.Errorf("remove hole %s: %w", id, ErrUnknownHole)
	}
	s.publish(nil, &id)
	return nil
}

// publish copies the current snapshot with holes added or one hole removed. Caller holds mu.
func (s *Service) publish(added map[int][]Hole, removed *uuid.UUID) {
	prev := s.current
	next := &Snapshot{
		ID:       uuid.New(),
		Sectors:  prev.Sectors,
		Portals:  prev.Portals,
		byID:     prev.byID,
		holes:    make(map[int][]Hole, len(prev.holes)),
		versions: make(map[int]uint64, len(prev.versions)),
	}
	for id, v := range prev.versions {
		next.versions[id] = v
	}
	for sectorID, hs := range prev.holes {
		kept := make([]Hole, 0, len(hs))
		for _, h := range hs {
			if removed != nil && h.ID == *removed {
				continue
			}
			kept = append(kept, h)
		}
		if len(kept) != len(hs) {
			next.versions[sectorID]++
		}
		if len(kept) > 0 {
			next.holes[sectorID] = kept
		}
	}
	for sectorID, hs := range added {
		next.holes[sectorID] = append(next.holes[sectorID], hs...)
		next.versions[sectorID]++
	}
	s.current = next
}
