package propagation

import (
	"container/heap"

	"github.com/talgya/crownfall/internal/calendar"
	"github.com/talgya/crownfall/internal/info"
	"github.com/talgya/crownfall/internal/world"
)

// node is one in-flight relay of a packet toward a target nation. The node
// exclusively owns its packet; the packet moves on delivery or drop.
type node struct {
	packet    *info.Packet
	current   world.ProvinceID
	target    world.NationID
	arrival   calendar.Date
	remaining float64 // Kilometers left to the target capital

	// route is the province path toward the target capital, found when the
	// node was seeded; routeIdx is current's position on it. Successors
	// share the slice and advance the index.
	route    []world.ProvinceID
	routeIdx int

	seq uint64 // Insertion order, for stable tie-break
}

// nodeHeap orders nodes by scheduled arrival, earliest first; ties resolve
// by insertion order so processing is stable.
type nodeHeap []*node

func (h nodeHeap) Len() int { return len(h) }

func (h nodeHeap) Less(i, j int) bool {
	di, dj := h[i].arrival.DayNumber(), h[j].arrival.DayNumber()
	if di != dj {
		return di < dj
	}
	return h[i].seq < h[j].seq
}

func (h nodeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *nodeHeap) Push(x any) { *h = append(*h, x.(*node)) }

func (h *nodeHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// popReady removes and returns all nodes with arrival on or before now.
func (h *nodeHeap) popReady(now calendar.Date) []*node {
	var ready []*node
	for h.Len() > 0 {
		top := (*h)[0]
		if top.arrival.After(now) {
			break
		}
		ready = append(ready, heap.Pop(h).(*node))
	}
	return ready
}
