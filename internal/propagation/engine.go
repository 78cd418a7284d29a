// Package propagation simulates the delayed, decaying spread of information
// packets through the province graph. A discrete-event engine advances
// packets hop by hop on a priority queue keyed by arrival date, degrading
// accuracy per relay, and hands completed deliveries to the configured sink.
package propagation

import (
	"container/heap"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/google/uuid"

	"github.com/talgya/crownfall/internal/bus"
	"github.com/talgya/crownfall/internal/calendar"
	"github.com/talgya/crownfall/internal/info"
	"github.com/talgya/crownfall/internal/world"
)

// TopicDelivered is published on the bus for every completed delivery.
const TopicDelivered = "information.delivered"

// Delivery is the bus payload for a completed delivery.
type Delivery struct {
	Packet *info.Packet
	Nation world.NationID
}

// DeliveryFunc receives a packet that reached a nation. Ownership of the
// packet transfers to the sink.
type DeliveryFunc func(p *info.Packet, nation world.NationID)

// Stats are the engine's running counters. Snapshots are returned by value.
type Stats struct {
	PacketsCreated         uint64
	PacketsPropagated      uint64
	PacketsDelivered       uint64
	ClassificationFailures uint64
	DroppedIrrelevant      uint64
	DroppedDistance        uint64
	ActiveEvictions        uint64
	AvgPropagationDays     float64
	AvgAccuracyAtDelivery  float64
}

// Default tuning. Setters validate replacements.
const (
	defaultSpeedMultiplier = 1.0
	defaultDegradationRate = 0.1
	defaultMaxDistance     = 5000.0
	defaultAccuracyFloor   = 0.2
	defaultMaxHops         = 12
	defaultBaseSpeed       = 100.0 // Kilometers per day for a courier

	// maxActivePerProvince bounds the per-province active-propagation
	// tracking; the oldest entries are evicted past this.
	maxActivePerProvince = 64
)

type provinceInfo struct {
	x, y  float64
	owner world.NationID
}

// Engine is the discrete-event propagation engine. One mutex guards the
// queue, the province cache, and active tracking; a second guards counters
// so statistics reads never contend with the hot path. Lock order is queue
// before stats, and neither is held across the delivery sink.
type Engine struct {
	atlas   world.Atlas
	clock   *calendar.Clock
	bus     *bus.Bus
	deliver DeliveryFunc

	queueMu    sync.Mutex
	queue      nodeHeap
	nextSeq    uint64
	active     map[world.ProvinceID][]uuid.UUID
	cache      map[world.ProvinceID]provinceInfo
	cacheValid bool
	delivered  map[uuid.UUID]map[world.NationID]bool
	intel      map[world.NationID]map[world.NationID]float64

	speedMultiplier float64
	degradationRate float64
	maxDistance     float64
	accuracyFloor   float64
	maxHops         int
	baseSpeed       float64

	statsMu sync.Mutex
	stats   Stats
}

// NewEngine creates an engine delivering into sink. The bus may be nil.
func NewEngine(atlas world.Atlas, clock *calendar.Clock, b *bus.Bus, sink DeliveryFunc) *Engine {
	return &Engine{
		atlas:           atlas,
		clock:           clock,
		bus:             b,
		deliver:         sink,
		active:          make(map[world.ProvinceID][]uuid.UUID),
		delivered:       make(map[uuid.UUID]map[world.NationID]bool),
		intel:           make(map[world.NationID]map[world.NationID]float64),
		speedMultiplier: defaultSpeedMultiplier,
		degradationRate: defaultDegradationRate,
		maxDistance:     defaultMaxDistance,
		accuracyFloor:   defaultAccuracyFloor,
		maxHops:         defaultMaxHops,
		baseSpeed:       defaultBaseSpeed,
	}
}

// SetPropagationSpeedMultiplier scales all travel speeds. Must be > 0.
func (e *Engine) SetPropagationSpeedMultiplier(m float64) {
	if m <= 0 {
		return
	}
	e.queueMu.Lock()
	e.speedMultiplier = m
	e.queueMu.Unlock()
}

// SetAccuracyDegradationRate sets the per-hop accuracy loss. Range [0,1].
func (e *Engine) SetAccuracyDegradationRate(r float64) {
	if r < 0 || r > 1 {
		return
	}
	e.queueMu.Lock()
	e.degradationRate = r
	e.queueMu.Unlock()
}

// SetMaxPropagationDistance caps how far packets travel. Must be > 0.
func (e *Engine) SetMaxPropagationDistance(d float64) {
	if d <= 0 {
		return
	}
	e.queueMu.Lock()
	e.maxDistance = d
	e.queueMu.Unlock()
}

// SetMaxHops caps relay count per packet. Must be > 0.
func (e *Engine) SetMaxHops(n int) {
	if n <= 0 {
		return
	}
	e.queueMu.Lock()
	e.maxHops = n
	e.queueMu.Unlock()
}

// SetIntelligenceBonus sets the speed bonus one nation's network grants on
// information flowing toward it from another nation's territory.
func (e *Engine) SetIntelligenceBonus(nation, target world.NationID, bonus float64) {
	if bonus < 0 {
		bonus = 0
	}
	e.queueMu.Lock()
	defer e.queueMu.Unlock()
	if e.intel[nation] == nil {
		e.intel[nation] = make(map[world.NationID]float64)
	}
	e.intel[nation][target] = bonus
}

// InvalidateProvinceCache forces a coordinate cache rebuild on next use.
// Call after province ownership changes.
func (e *Engine) InvalidateProvinceCache() {
	e.queueMu.Lock()
	e.cacheValid = false
	e.queueMu.Unlock()
}

// rebuildProvinceCache snapshots positions and owners for every province
// reachable from nation capitals. Caller holds queueMu.
func (e *Engine) rebuildProvinceCache() {
	e.cache = make(map[world.ProvinceID]provinceInfo)
	for _, nid := range e.atlas.Nations() {
		cap, ok := e.atlas.Capital(nid)
		if !ok {
			continue
		}
		// Walk outward from each capital; provinces appear once.
		frontier := []world.ProvinceID{cap}
		for len(frontier) > 0 {
			p := frontier[0]
			frontier = frontier[1:]
			if _, seen := e.cache[p]; seen {
				continue
			}
			x, y, ok := e.atlas.Position(p)
			if !ok {
				continue
			}
			e.cache[p] = provinceInfo{x: x, y: y, owner: e.atlas.Owner(p)}
			frontier = append(frontier, e.atlas.Neighbors(p)...)
		}
	}
	e.cacheValid = true
	slog.Debug("province cache rebuilt", "provinces", len(e.cache))
}

func (e *Engine) ensureCache() {
	if !e.cacheValid {
		e.rebuildProvinceCache()
	}
}

// ConvertEventToInformation is the universal ingestion point: it classifies
// a gameplay event string, derives severity from the numeric payload, and
// starts propagation. Unknown event types are dropped and counted.
func (e *Engine) ConvertEventToInformation(eventType string, source world.ProvinceID, data map[string]float64) {
	t, ok := info.Classify(eventType)
	if !ok {
		e.statsMu.Lock()
		e.stats.ClassificationFailures++
		e.statsMu.Unlock()
		slog.Debug("unclassifiable event dropped", "event_type", eventType, "province", source)
		return
	}

	e.queueMu.Lock()
	e.ensureCache()
	originator := e.cache[source].owner
	e.queueMu.Unlock()

	p := info.New(t, source, originator,
		info.SeverityFromData(t, data),
		fmt.Sprintf("%s near %s", info.TypeName(t), provinceLabel(e.atlas, source)),
		e.clock.Now())
	for k, v := range data {
		p.Numeric[k] = v
	}

	e.StartPropagation(p)
}

// InjectInformation starts propagation for an externally built packet,
// bypassing classification.
func (e *Engine) InjectInformation(p *info.Packet) {
	e.StartPropagation(p)
}

// StartPropagation delivers the packet to the source province's owner
// immediately, then seeds one propagation node per other reachable nation.
func (e *Engine) StartPropagation(p *info.Packet) {
	now := e.clock.Now()

	e.queueMu.Lock()
	e.ensureCache()

	src, known := e.cache[p.SourceProvince]
	if !known {
		e.queueMu.Unlock()
		e.bumpDropped(false)
		return
	}

	var seeded, droppedDistance uint64
	var deliveries []*node

	// The owner of the source province learns immediately, at full accuracy.
	if src.owner != 0 {
		deliveries = append(deliveries, &node{packet: p.Clone(), current: p.SourceProvince, target: src.owner, arrival: now})
	}

	for _, nid := range e.atlas.Nations() {
		if nid == src.owner {
			continue
		}
		cap, ok := e.atlas.Capital(nid)
		if !ok {
			continue
		}
		ci, ok := e.cache[cap]
		if !ok {
			droppedDistance++
			continue
		}
		dist := math.Hypot(src.x-ci.x, src.y-ci.y)
		if dist > e.maxDistance {
			droppedDistance++
			continue
		}
		path, ok := e.findPath(p.SourceProvince, cap)
		if !ok {
			droppedDistance++
			continue
		}
		n := &node{
			packet:    p.Clone(),
			current:   p.SourceProvince,
			target:    nid,
			arrival:   now,
			remaining: dist,
			route:     path,
			seq:       e.nextSeq,
		}
		e.nextSeq++
		heap.Push(&e.queue, n)
		e.trackActive(p.SourceProvince, p.ID)
		seeded++
	}
	e.queueMu.Unlock()

	for _, d := range deliveries {
		e.completeDelivery(d, now)
	}

	e.statsMu.Lock()
	e.stats.PacketsCreated++
	e.stats.PacketsPropagated += seeded
	e.stats.DroppedDistance += droppedDistance
	e.statsMu.Unlock()
}

// ProcessPropagationQueue advances the simulation one tick: every node whose
// arrival date has come either delivers or relays onward.
func (e *Engine) ProcessPropagationQueue() {
	now := e.clock.Now()

	e.queueMu.Lock()
	e.ensureCache()
	ready := e.queue.popReady(now)
	e.queueMu.Unlock()

	for _, n := range ready {
		e.queueMu.Lock()
		e.untrackActive(n.current, n.packet.ID)
		owner := e.cache[n.current].owner
		arrived := n.remaining <= 0 || owner == n.target
		e.queueMu.Unlock()

		if arrived {
			e.completeDelivery(n, now)
			continue
		}
		e.propagateToNeighbors(n, now)
	}
}

// propagateToNeighbors relays a node one hop along its route toward the
// target capital, with degraded accuracy and a recomputed arrival date.
func (e *Engine) propagateToNeighbors(n *node, now calendar.Date) {
	e.queueMu.Lock()
	targetCap, haveCap := e.atlas.Capital(n.target)
	tc, haveTC := e.cache[targetCap]
	cur, haveCur := e.cache[n.current]
	if !haveCap || !haveTC || !haveCur {
		e.queueMu.Unlock()
		e.bumpDropped(false)
		return
	}

	next, ok := e.nextHop(n, targetCap)
	if !ok {
		// The target became unreachable mid-flight.
		e.queueMu.Unlock()
		e.bumpDropped(false)
		return
	}
	if !e.shouldPropagate(n, next) {
		e.queueMu.Unlock()
		e.bumpDropped(true)
		return
	}
	ni, ok := e.cache[next]
	if !ok {
		e.queueMu.Unlock()
		e.bumpDropped(true)
		return
	}
	if src, haveSrc := e.cache[n.packet.SourceProvince]; haveSrc {
		if math.Hypot(ni.x-src.x, ni.y-src.y) > e.maxDistance {
			e.queueMu.Unlock()
			e.bumpDropped(false)
			return
		}
	}

	hopDist := math.Hypot(ni.x-cur.x, ni.y-cur.y)
	days := e.travelDays(n.packet, hopDist, ni.owner)

	succ := n.packet.Clone()
	succ.HopCount++
	succ.Accuracy = degrade(succ.Accuracy, e.degradationRate)
	succ.Path = append(succ.Path, next)

	sn := &node{
		packet:    succ,
		current:   next,
		target:    n.target,
		arrival:   now.AddDays(days),
		remaining: math.Hypot(ni.x-tc.x, ni.y-tc.y),
		route:     n.route,
		routeIdx:  n.routeIdx + 1,
		seq:       e.nextSeq,
	}
	e.nextSeq++
	heap.Push(&e.queue, sn)
	e.trackActive(next, succ.ID)
	e.queueMu.Unlock()

	e.statsMu.Lock()
	e.stats.PacketsPropagated++
	e.statsMu.Unlock()
}

// nextHop returns the province after current on the node's route toward the
// target capital. Ownership changes invalidate stored routes, so the search
// reruns when the route no longer lines up with the node. Caller holds
// queueMu.
func (e *Engine) nextHop(n *node, targetCap world.ProvinceID) (world.ProvinceID, bool) {
	if n.routeIdx+1 < len(n.route) && n.route[n.routeIdx] == n.current {
		return n.route[n.routeIdx+1], true
	}
	path, ok := e.findPath(n.current, targetCap)
	if !ok || len(path) < 2 {
		return 0, false
	}
	n.route = path
	n.routeIdx = 0
	return path[1], true
}

// findPath runs a bounded breadth-first search from one province to another,
// capped by the max propagation distance in accumulated hop kilometers.
// Returns the province path including both endpoints. Caller holds queueMu.
func (e *Engine) findPath(from, to world.ProvinceID) ([]world.ProvinceID, bool) {
	if from == to {
		return []world.ProvinceID{from}, true
	}

	type visit struct {
		prev     world.ProvinceID
		traveled float64
	}
	seen := map[world.ProvinceID]visit{from: {prev: from}}
	frontier := []world.ProvinceID{from}

	for len(frontier) > 0 {
		cur := frontier[0]
		frontier = frontier[1:]
		ci, ok := e.cache[cur]
		if !ok {
			continue
		}
		for _, nb := range e.atlas.Neighbors(cur) {
			if _, visited := seen[nb]; visited {
				continue
			}
			ni, ok := e.cache[nb]
			if !ok {
				continue
			}
			traveled := seen[cur].traveled + math.Hypot(ni.x-ci.x, ni.y-ci.y)
			if traveled > e.maxDistance {
				continue
			}
			seen[nb] = visit{prev: cur, traveled: traveled}
			if nb == to {
				path := []world.ProvinceID{to}
				for at := to; at != from; {
					at = seen[at].prev
					path = append([]world.ProvinceID{at}, path...)
				}
				return path, true
			}
			frontier = append(frontier, nb)
		}
	}
	return nil, false
}

// shouldPropagate decides whether a hop into a province is worth relaying.
// Caller holds queueMu.
func (e *Engine) shouldPropagate(n *node, next world.ProvinceID) bool {
	if degrade(n.packet.Accuracy, e.degradationRate) < e.accuracyFloor {
		return false
	}
	if n.packet.HopCount+1 > e.maxHops {
		return false
	}
	if n.packet.Visited(next) {
		return false // Loop prevention on the cyclic province graph.
	}
	if e.delivered[n.packet.ID][n.target] {
		return false // Target already informed; nothing left to carry.
	}
	return true
}

// travelDays converts a hop distance into whole days of travel, scaled by
// the global multiplier, packet severity, and any intelligence bonus the
// receiving province's owner holds on the originator.
func (e *Engine) travelDays(p *info.Packet, distance float64, receiver world.NationID) int {
	speed := e.baseSpeed * e.speedMultiplier * p.PropagationSpeed()
	if bonus, ok := e.intel[receiver][p.Originator]; ok {
		speed *= 1 + bonus
	}
	if speed <= 0 {
		return 1
	}
	days := int(math.Round(distance / speed))
	if days < 1 {
		days = 1
	}
	return days
}

// completeDelivery hands the node's packet to the sink, at most once per
// (packet, nation). Locks are released before the sink runs.
func (e *Engine) completeDelivery(n *node, now calendar.Date) {
	e.queueMu.Lock()
	if e.delivered[n.packet.ID] == nil {
		e.delivered[n.packet.ID] = make(map[world.NationID]bool)
	}
	if e.delivered[n.packet.ID][n.target] {
		e.queueMu.Unlock()
		return
	}
	e.delivered[n.packet.ID][n.target] = true
	e.queueMu.Unlock()

	days := float64(n.packet.PacketCreated.DaysUntil(now))

	e.statsMu.Lock()
	delivered := float64(e.stats.PacketsDelivered)
	e.stats.AvgPropagationDays = (e.stats.AvgPropagationDays*delivered + days) / (delivered + 1)
	e.stats.AvgAccuracyAtDelivery = (e.stats.AvgAccuracyAtDelivery*delivered + n.packet.Accuracy) / (delivered + 1)
	e.stats.PacketsDelivered++
	e.statsMu.Unlock()

	if e.bus != nil {
		e.bus.Publish(TopicDelivered, Delivery{Packet: n.packet.Clone(), Nation: n.target})
	}
	if e.deliver != nil {
		e.deliver(n.packet, n.target)
	}
}

// trackActive records an in-flight packet in a province, evicting the
// oldest entry when the bounded list is full. Caller holds queueMu.
func (e *Engine) trackActive(p world.ProvinceID, id uuid.UUID) {
	list := e.active[p]
	if len(list) >= maxActivePerProvince {
		list = list[1:]
		e.statsMu.Lock()
		e.stats.ActiveEvictions++
		e.statsMu.Unlock()
	}
	e.active[p] = append(list, id)
}

func (e *Engine) untrackActive(p world.ProvinceID, id uuid.UUID) {
	list := e.active[p]
	for i, v := range list {
		if v == id {
			e.active[p] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(e.active[p]) == 0 {
		delete(e.active, p)
	}
}

// PropagationPath returns the bounded-search relay path between two
// provinces, including both endpoints.
func (e *Engine) PropagationPath(from, to world.ProvinceID) ([]world.ProvinceID, bool) {
	e.queueMu.Lock()
	defer e.queueMu.Unlock()
	e.ensureCache()
	return e.findPath(from, to)
}

// ActivePropagations returns how many in-flight packets touch a province.
func (e *Engine) ActivePropagations(p world.ProvinceID) int {
	e.queueMu.Lock()
	defer e.queueMu.Unlock()
	return len(e.active[p])
}

// QueueLen returns the number of pending propagation nodes.
func (e *Engine) QueueLen() int {
	e.queueMu.Lock()
	defer e.queueMu.Unlock()
	return e.queue.Len()
}

func (e *Engine) bumpDropped(irrelevant bool) {
	e.statsMu.Lock()
	if irrelevant {
		e.stats.DroppedIrrelevant++
	} else {
		e.stats.DroppedDistance++
	}
	e.statsMu.Unlock()
}

// Statistics returns a snapshot of the running counters.
func (e *Engine) Statistics() Stats {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	return e.stats
}

// ResetStatistics zeroes all counters.
func (e *Engine) ResetStatistics() {
	e.statsMu.Lock()
	e.stats = Stats{}
	e.statsMu.Unlock()
}

func degrade(accuracy, rate float64) float64 {
	a := accuracy * (1 - rate)
	if a < 0 {
		return 0
	}
	return a
}

func provinceLabel(atlas world.Atlas, id world.ProvinceID) string {
	if m, ok := atlas.(*world.Map); ok {
		if p := m.Provinces[id]; p != nil {
			return p.Name
		}
	}
	return fmt.Sprintf("province %d", id)
}
