package pathfinding

import (
	"fmt"

	"overlay-planner/internal/geometry"
)

// ActionKind tags the variants of Action. The set is closed.
type ActionKind uint8

const (
	// ActionWalk is a straight line inside one node.
	ActionWalk ActionKind = iota + 1
)

func (k ActionKind) String() string {
	switch k {
	case ActionWalk:
		return "walk"
	}
	return fmt.Sprintf("action(%d)", uint8(k))
}

// Action is one step of a roadmap.
type Action struct {
	Kind        ActionKind             `json:"kind" msgpack:"kind"`
	Node        int                    `json:"node" msgpack:"node"`
	Sector      int                    `json:"sector" msgpack:"sector"`
	Source      geometry.DoubleVector3 `json:"source" msgpack:"source"`
	Destination geometry.DoubleVector3 `json:"destination" msgpack:"destination"`

	LocalSource      geometry.IntVector2 `json:"localSource" msgpack:"localSource"`
	LocalDestination geometry.IntVector2 `json:"localDestination" msgpack:"localDestination"`
}

// Length is the local length of the action.
func (a Action) Length() float64 {
	switch a.Kind {
	case ActionWalk:
		return a.LocalSource.Distance(a.LocalDestination)
	}
	return 0
}

// Roadmap is an ordered motion plan. Cost is the search cost it was built from.
type Roadmap struct {
	Actions []Action `json:"actions" msgpack:"actions"`
	Cost    float64  `json:"cost" msgpack:"cost"`
}

// Length sums the action lengths.
func (r *Roadmap) Length() float64 {
	var total float64
	for _, a := range r.Actions {
		total += a.Length()
	}
	return total
}

// Points returns the world polyline of the roadmap. Consecutive duplicates, such as the two
// sides of a portal crossing, are collapsed.
func (r *Roadmap) Points() []geometry.DoubleVector3 {
	var out []geometry.DoubleVector3
	for _, a := range r.Actions {
		if len(out) == 0 || out[len(out)-1].Distance(a.Source) > portalSlack {
			out = append(out, a.Source)
		}
		out = append(out, a.Destination)
	}
	return out
}
