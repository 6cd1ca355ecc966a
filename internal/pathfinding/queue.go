package pathfinding

import (
	"container/heap"
	"fmt"
)

type keyKind uint8

const (
	keyCrossover keyKind = iota
	keySource
	keyTarget
)

// key identifies a search unit: a crossover point of a node, a query source or the target.
type key struct {
	node  int
	kind  keyKind
	index int
}

func crossoverKey(node, index int) key { return key{node: node, kind: keyCrossover, index: index} }

func sourceKey(node, index int) key { return key{node: node, kind: keySource, index: index} }

func targetKey(node int) key { return key{node: node, kind: keyTarget} }

func (k key) less(o key) bool {
	if k.node != o.node {
		return k.node < o.node
	}
	if k.kind != o.kind {
		return k.kind < o.kind
	}
	return k.index < o.index
}

func (k key) String() string {
	switch k.kind {
	case keySource:
		return fmt.Sprintf("source %d@%d", k.index, k.node)
	case keyTarget:
		return fmt.Sprintf("target@%d", k.node)
	}
	return fmt.Sprintf("crossover %d@%d", k.index, k.node)
}

// item is an open-set entry
type item struct {
	key   key
	pred  key
	G     float64 // Cost from the root
	F     float64 // G plus heuristic
	index int     // Index in the heap
}

// priorityQueue implements heap.Interface ordered by F, ties broken by key so results do not
// depend on insertion order.
type priorityQueue []*item

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool {
	if pq[i].F != pq[j].F {
		return pq[i].F < pq[j].F
	}
	return pq[i].key.less(pq[j].key)
}

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *priorityQueue) Push(x interface{}) {
	n := len(*pq)
	it := x.(*item)
	it.index = n
	*pq = append(*pq, it)
}

func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.index = -1
	*pq = old[0 : n-1]
	return it
}

// openSet is the frontier with decrease-key on entries already queued.
type openSet struct {
	pq      priorityQueue
	entries map[key]*item
}

func newOpenSet() *openSet {
	return &openSet{entries: make(map[key]*item)}
}

func (s *openSet) Len() int { return s.pq.Len() }

// relax queues k with cost g unless it is already queued at least as cheaply.
func (s *openSet) relax(k, pred key, g, h float64) {
	if it, ok := s.entries[k]; ok {
		if g >= it.G {
			return
		}
		it.G, it.F, it.pred = g, g+h, pred
		heap.Fix(&s.pq, it.index)
		return
	}
	it := &item{key: k, pred: pred, G: g, F: g + h}
	heap.Push(&s.pq, it)
	s.entries[k] = it
}

func (s *openSet) pop() *item {
	it := heap.Pop(&s.pq).(*item)
	delete(s.entries, it.key)
	return it
}
