package region

import (
	"fmt"
	"sync/atomic"
)

// Counters collects crossover manager instrumentation. Increments are atomic so readers on
// other goroutines see consistent values; they do not make mutation concurrent-safe.
type Counters struct {
	PointsAdded        atomic.Int64
	LinkComputations   atomic.Int64
	DirectLinks        atomic.Int64
	WaypointLinks      atomic.Int64
	BarrierCacheHits   atomic.Int64
	BarrierCacheMisses atomic.Int64
	CandidateBarriers  atomic.Int64
}

func (c *Counters) String() string {
	if c == nil {
		return "counters(nil)"
	}
	return fmt.Sprintf("points=%d links=%d direct=%d via=%d cache=%d/%d candidates=%d",
		c.PointsAdded.Load(), c.LinkComputations.Load(), c.DirectLinks.Load(), c.WaypointLinks.Load(),
		c.BarrierCacheHits.Load(), c.BarrierCacheHits.Load()+c.BarrierCacheMisses.Load(),
		c.CandidateBarriers.Load())
}
