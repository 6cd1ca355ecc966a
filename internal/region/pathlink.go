package region

import (
	"errors"
	"fmt"
	"math"
)

// ErrNoOptimalLink is returned when a point in a connected region has no link to a waypoint
// or crossover point. It indicates broken visibility or LUT state, never a missing path.
var ErrNoOptimalLink = errors.New("no optimal link")

// LinkKind tags the variants of PathLink.
type LinkKind uint8

const (
	// LinkUnreachable is the error sentinel; it must not survive a successful compile.
	LinkUnreachable LinkKind = iota
	// LinkDirect is a straight line with no intermediate waypoint.
	LinkDirect
	// LinkViaWaypoint routes through Waypoint and the waypoint LUT.
	LinkViaWaypoint
)

// PathLink is the cheapest known route to some index.
type PathLink struct {
	Kind     LinkKind
	Waypoint int32
	Cost     float64
}

func DirectLink(cost float64) PathLink { return PathLink{Kind: LinkDirect, Cost: cost} }

func ViaWaypoint(waypoint int, cost float64) PathLink {
	return PathLink{Kind: LinkViaWaypoint, Waypoint: int32(waypoint), Cost: cost}
}

func UnreachableLink() PathLink { return PathLink{Kind: LinkUnreachable, Cost: math.Inf(1)} }

func (l PathLink) IsReachable() bool { return l.Kind != LinkUnreachable }

func (l PathLink) String() string {
	switch l.Kind {
	case LinkDirect:
		return fmt.Sprintf("direct(%.3f)", l.Cost)
	case LinkViaWaypoint:
		return fmt.Sprintf("via(%d, %.3f)", l.Waypoint, l.Cost)
	}
	return "unreachable"
}
