package director

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/talgya/crownfall/internal/attention"
	"github.com/talgya/crownfall/internal/calendar"
	"github.com/talgya/crownfall/internal/info"
	"github.com/talgya/crownfall/internal/world"
)

// State is the director lifecycle state.
type State int32

const (
	StateStopped State = iota
	StateInitializing
	StateRunning
	StatePaused
	StateShuttingDown
)

// StateName returns a human-readable state name.
func StateName(s State) string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StateInitializing:
		return "Initializing"
	case StateRunning:
		return "Running"
	case StatePaused:
		return "Paused"
	default:
		return "ShuttingDown"
	}
}

// Scheduling defaults. Actor and message caps bound per-frame work; the
// load balancer moves maxActorsPerFrame between the floor and ceiling.
const (
	defaultMaxActorsPerFrame   = 10
	defaultMaxMessagesPerActor = 5
	defaultTargetFrameTime     = 16 * time.Millisecond

	minActorsPerFrame = 5
	maxActorsPerFrame = 20

	loadBalanceInterval = 300 // Frames between load balancer passes
	pauseWakeInterval   = 100 * time.Millisecond
)

// actorEntry pairs a decider with its private message queue and fairness
// bookkeeping.
type actorEntry struct {
	id      attention.ActorID
	name    string
	decider Decider
	queue   *messageQueue

	lastServiced uint64 // Frame counter value when last given a slot
	regSeq       uint64 // Registration order, for stable scheduling
}

// Metrics is a snapshot of director throughput counters.
type Metrics struct {
	State            State
	TotalFrames      uint64
	TotalDecisions   uint64
	DroppedDecisions uint64
	PanicRecoveries  uint64
	DeferredActors   uint64
	QueuedMessages   int
	ActiveActors     int
	AvgFrameMs       float64
	AvgDecisionMs    float64
	ActorsPerFrame   int
}

// Director owns the AI decision loop: it schedules registered actors fairly
// across frames, pops ready messages from their priority queues, and runs
// their deciders inside a wall-clock frame budget on a single worker
// goroutine. Lock order is actor registry before stats.
type Director struct {
	attention *attention.Manager
	clock     *calendar.Clock

	state atomic.Int32

	mu       sync.Mutex // Guards actors, frameCounter, nextRegSeq
	actors   map[attention.ActorID]*actorEntry
	deciders map[attention.ActorID]Decider

	frameCounter uint64
	nextRegSeq   uint64

	actorsPerFrame   atomic.Int32
	messagesPerActor atomic.Int32
	frameBudget      atomic.Int64 // Nanoseconds

	stopCh chan struct{}
	wakeCh chan struct{}
	wg     sync.WaitGroup

	rngMu sync.Mutex
	rng   *rand.Rand

	bgMu       sync.Mutex
	background []func()

	statsMu          sync.Mutex
	totalFrames      uint64
	totalDecisions   uint64
	droppedDecisions uint64
	panicRecoveries  uint64
	deferredActors   uint64
	avgFrameMs       float64
	avgDecisionMs    float64
}

// NewDirector creates a stopped director bound to an attention manager and
// the game clock.
func NewDirector(att *attention.Manager, clock *calendar.Clock) *Director {
	d := &Director{
		attention: att,
		clock:     clock,
		actors:    make(map[attention.ActorID]*actorEntry),
		deciders:  make(map[attention.ActorID]Decider),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	d.actorsPerFrame.Store(defaultMaxActorsPerFrame)
	d.messagesPerActor.Store(defaultMaxMessagesPerActor)
	d.frameBudget.Store(int64(defaultTargetFrameTime))
	return d
}

// State returns the current lifecycle state.
func (d *Director) State() State {
	return State(d.state.Load())
}

// Start transitions Stopped -> Initializing -> Running and launches the
// worker goroutine. Starting from any other state is an error.
func (d *Director) Start() error {
	if !d.state.CompareAndSwap(int32(StateStopped), int32(StateInitializing)) {
		return fmt.Errorf("director: start from %s", StateName(d.State()))
	}

	d.stopCh = make(chan struct{})
	d.wakeCh = make(chan struct{}, 1)

	d.state.Store(int32(StateRunning))
	d.wg.Add(1)
	go d.workerLoop()

	slog.Info("director started",
		"actors_per_frame", d.actorsPerFrame.Load(),
		"messages_per_actor", d.messagesPerActor.Load(),
		"frame_budget", time.Duration(d.frameBudget.Load()))
	return nil
}

// Pause suspends decision processing. Queued messages are retained.
func (d *Director) Pause() error {
	if !d.state.CompareAndSwap(int32(StateRunning), int32(StatePaused)) {
		return fmt.Errorf("director: pause from %s", StateName(d.State()))
	}
	slog.Info("director paused")
	return nil
}

// Resume continues processing after a pause.
func (d *Director) Resume() error {
	if !d.state.CompareAndSwap(int32(StatePaused), int32(StateRunning)) {
		return fmt.Errorf("director: resume from %s", StateName(d.State()))
	}
	d.wake()
	slog.Info("director resumed")
	return nil
}

// Stop drains the worker and returns once it has exited. Queued messages
// survive a stop; Start picks them back up.
func (d *Director) Stop() error {
	s := d.State()
	if s != StateRunning && s != StatePaused {
		return fmt.Errorf("director: stop from %s", StateName(s))
	}
	d.state.Store(int32(StateShuttingDown))
	close(d.stopCh)
	d.wg.Wait()
	d.state.Store(int32(StateStopped))
	slog.Info("director stopped", "decisions", d.Snapshot().TotalDecisions)
	return nil
}

// Shutdown stops the worker and discards all actors and queued messages.
func (d *Director) Shutdown() {
	if s := d.State(); s == StateRunning || s == StatePaused {
		_ = d.Stop()
	}
	d.mu.Lock()
	d.actors = make(map[attention.ActorID]*actorEntry)
	d.deciders = make(map[attention.ActorID]Decider)
	d.mu.Unlock()
}

// SetFrameBudget sets the wall-clock budget one frame may spend executing
// deciders. Non-positive values are ignored.
func (d *Director) SetFrameBudget(budget time.Duration) {
	if budget <= 0 {
		return
	}
	d.frameBudget.Store(int64(budget))
}

// SetMaxActorsPerFrame bounds how many actors one frame services.
func (d *Director) SetMaxActorsPerFrame(n int) {
	if n < 1 {
		return
	}
	d.actorsPerFrame.Store(int32(n))
}

// SetMaxMessagesPerActor bounds how many messages one actor pops per frame.
func (d *Director) SetMaxMessagesPerActor(n int) {
	if n < 1 {
		return
	}
	d.messagesPerActor.Store(int32(n))
}

// RegisterNation adds a nation actor: an attention profile derived from the
// ruler archetype plus a NationAI decider. The actor ID doubles as the
// nation ID.
func (d *Director) RegisterNation(nation world.NationID, name string, ruler attention.Archetype) *NationAI {
	id := attention.ActorID(nation)
	ai := NewNationAI(nation, name)
	d.attention.RegisterNation(id, name, ruler)
	d.addActor(id, name, ai)
	return ai
}

// RegisterCharacter adds a character actor.
func (d *Director) RegisterCharacter(id attention.ActorID, name string, archetype attention.Archetype) *CharacterAI {
	ai := NewCharacterAI(id, name, archetype)
	d.attention.RegisterCharacter(id, name, archetype)
	d.addActor(id, name, ai)
	return ai
}

// RegisterCouncil adds an advisory council for a nation. Councils filter
// with the Administrator template.
func (d *Director) RegisterCouncil(id attention.ActorID, nation world.NationID, name string) *CouncilAI {
	ai := NewCouncilAI(id, nation, name)
	d.attention.RegisterCharacter(id, name, attention.Administrator)
	d.addActor(id, name, ai)
	return ai
}

// RegisterDecider adds an actor with a caller-supplied decider and
// archetype-derived attention profile.
func (d *Director) RegisterDecider(id attention.ActorID, name string, archetype attention.Archetype, dec Decider) {
	d.attention.RegisterCharacter(id, name, archetype)
	d.addActor(id, name, dec)
}

func (d *Director) addActor(id attention.ActorID, name string, dec Decider) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.actors[id] = &actorEntry{
		id:      id,
		name:    name,
		decider: dec,
		queue:   newMessageQueue(),
		regSeq:  d.nextRegSeq,
	}
	d.deciders[id] = dec
	d.nextRegSeq++
}

// UnregisterActor removes an actor and drops its queued messages. A message
// already popped for execution still runs to completion.
func (d *Director) UnregisterActor(id attention.ActorID) {
	d.mu.Lock()
	delete(d.actors, id)
	delete(d.deciders, id)
	d.mu.Unlock()
	d.attention.Unregister(id)
}

// ActorCount returns the number of registered actors.
func (d *Director) ActorCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.actors)
}

// Decider returns the decider registered for an actor.
func (d *Director) Decider(id attention.ActorID) (Decider, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	dec, ok := d.deciders[id]
	return dec, ok
}

// DeliverInformation queues one packet for one actor at the given priority.
// The director takes ownership of the packet. Scheduling delay depends on
// priority: critical is immediate, high waits 1–3 days, medium 1–2 weeks,
// low has no date delay but only runs when the actor's queue is idle.
func (d *Director) DeliverInformation(p *info.Packet, id attention.ActorID, prio Priority) error {
	return d.deliver(p, id, prio, 0)
}

func (d *Director) deliver(p *info.Packet, id attention.ActorID, prio Priority, extraDays int) error {
	if p == nil {
		return fmt.Errorf("director: nil packet for actor %d", id)
	}

	d.mu.Lock()
	entry, ok := d.actors[id]
	d.mu.Unlock()
	if !ok {
		return fmt.Errorf("director: actor %d not registered", id)
	}

	now := d.clock.Now()
	entry.queue.push(&Message{
		Packet:    p,
		Target:    id,
		Priority:  prio,
		Scheduled: now.AddDays(d.priorityDelay(prio) + extraDays),
		Received:  now,
	})
	d.wake()
	return nil
}

// priorityDelay picks the scheduling delay in game days for a priority.
func (d *Director) priorityDelay(prio Priority) int {
	switch prio {
	case PriorityHigh:
		return 1 + d.randN(3) // 1–3 days
	case PriorityMedium:
		return 7 + d.randN(8) // 1–2 weeks
	default:
		return 0
	}
}

func (d *Director) randN(n int) int {
	d.rngMu.Lock()
	defer d.rngMu.Unlock()
	return d.rng.Intn(n)
}

// BroadcastInformation routes one packet to every actor whose attention
// filter passes it. Each recipient gets its own clone; priority follows the
// adjusted relevance and the attention-computed processing delay stacks on
// the priority delay. Returns the number of recipients.
func (d *Director) BroadcastInformation(p *info.Packet) int {
	if p == nil {
		return 0
	}
	ids := d.attention.InterestedActors(p, false)
	delivered := 0
	for _, id := range ids {
		res := d.attention.FilterInformation(p, id)
		if !res.ShouldReceive {
			continue
		}
		prio := PriorityFromRelevance(res.AdjustedRelevance)
		if err := d.deliver(p.Clone(), id, prio, res.ProcessingDelay); err != nil {
			continue
		}
		delivered++
	}
	return delivered
}

// HandleDelivery is the propagation sink: a packet has physically reached a
// nation's capital. It runs the nation actor's attention filter and queues
// the packet if the filter passes. Unregistered nations drop silently.
func (d *Director) HandleDelivery(p *info.Packet, nation world.NationID) {
	id := attention.ActorID(nation)
	d.mu.Lock()
	_, ok := d.actors[id]
	d.mu.Unlock()
	if !ok {
		return
	}

	res := d.attention.FilterInformation(p, id)
	if !res.ShouldReceive {
		slog.Debug("delivery filtered",
			"nation", nation, "type", info.TypeName(p.Type), "reason", res.FilterReason)
		return
	}
	prio := PriorityFromRelevance(res.AdjustedRelevance)
	_ = d.deliver(p, id, prio, res.ProcessingDelay)
}

// PriorityFromRelevance maps a filtered relevance to a queue priority.
func PriorityFromRelevance(r info.Relevance) Priority {
	switch r {
	case info.Critical:
		return PriorityCritical
	case info.High:
		return PriorityHigh
	case info.Medium:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// QueueBackgroundTask schedules a function to run on the worker goroutine
// during a slack frame.
func (d *Director) QueueBackgroundTask(fn func()) {
	if fn == nil {
		return
	}
	d.bgMu.Lock()
	d.background = append(d.background, fn)
	d.bgMu.Unlock()
	d.wake()
}

func (d *Director) wake() {
	select {
	case d.wakeCh <- struct{}{}:
	default:
	}
}

// workerLoop is the single decision goroutine: process one frame, sleep out
// the remaining budget, repeat until stopped.
func (d *Director) workerLoop() {
	defer d.wg.Done()

	for {
		switch d.State() {
		case StateShuttingDown, StateStopped:
			return
		case StatePaused:
			select {
			case <-d.stopCh:
				return
			case <-d.wakeCh:
			case <-time.After(pauseWakeInterval):
			}
			continue
		}

		start := time.Now()
		decisions := d.processFrame(start)
		elapsed := time.Since(start)
		d.recordFrame(elapsed, decisions)

		if budget := time.Duration(d.frameBudget.Load()); elapsed < budget {
			select {
			case <-d.stopCh:
				return
			case <-d.wakeCh:
			case <-time.After(budget - elapsed):
			}
		}
	}
}

// processFrame services up to maxActorsPerFrame actors, least recently
// serviced first, and stops early when the wall-clock budget runs out.
// Returns the number of decisions executed.
func (d *Director) processFrame(start time.Time) int {
	budget := time.Duration(d.frameBudget.Load())
	maxActors := int(d.actorsPerFrame.Load())
	maxMsgs := int(d.messagesPerActor.Load())
	now := d.clock.Now()

	d.mu.Lock()
	d.frameCounter++
	frame := d.frameCounter
	candidates := make([]*actorEntry, 0, len(d.actors))
	for _, e := range d.actors {
		if e.queue.hasReady(now) {
			candidates = append(candidates, e)
		}
	}
	d.mu.Unlock()

	// Oldest service time first; registration order breaks ties so the
	// schedule is a stable round-robin.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].lastServiced != candidates[j].lastServiced {
			return candidates[i].lastServiced < candidates[j].lastServiced
		}
		return candidates[i].regSeq < candidates[j].regSeq
	})

	deferred := 0
	if len(candidates) > maxActors {
		deferred = len(candidates) - maxActors
		candidates = candidates[:maxActors]
	}

	decisions := 0
	for _, e := range candidates {
		if time.Since(start) >= budget {
			// Budget exhausted mid-frame; the actor keeps its old slot
			// age and goes first next frame.
			deferred++
			continue
		}
		e.lastServiced = frame
		for i := 0; i < maxMsgs; i++ {
			m := e.queue.popReady(now)
			if m == nil {
				break
			}
			d.execute(e, m)
			decisions++
			if time.Since(start) >= budget {
				break
			}
		}
	}

	if deferred > 0 {
		d.statsMu.Lock()
		d.deferredActors += uint64(deferred)
		d.statsMu.Unlock()
	}

	if frame%loadBalanceInterval == 0 {
		d.balanceLoad()
	}
	if decisions < maxActors/2 {
		d.runBackgroundTasks(start, budget)
	}
	return decisions
}

// execute runs one decider call with panic isolation. A panicking decider
// loses that one message; the worker keeps going.
func (d *Director) execute(e *actorEntry, m *Message) {
	defer func() {
		if r := recover(); r != nil {
			d.statsMu.Lock()
			d.droppedDecisions++
			d.panicRecoveries++
			d.statsMu.Unlock()
			slog.Error("decider panic recovered",
				"actor", e.id, "name", e.name, "panic", r)
		}
	}()

	if err := e.decider.HandleInformation(m); err != nil {
		d.statsMu.Lock()
		d.droppedDecisions++
		d.statsMu.Unlock()
		slog.Warn("decision failed", "actor", e.id, "error", err)
	}
}

// balanceLoad nudges maxActorsPerFrame up when backlogs grow and back down
// toward the default when queues drain, clamped to the floor and ceiling.
func (d *Director) balanceLoad() {
	d.mu.Lock()
	backlog := 0
	for _, e := range d.actors {
		backlog += e.queue.len()
	}
	actorCount := len(d.actors)
	d.mu.Unlock()

	cur := int(d.actorsPerFrame.Load())
	next := cur
	switch {
	case actorCount > 0 && backlog > actorCount*4 && cur < maxActorsPerFrame:
		next = cur + 2
	case backlog < actorCount && cur > minActorsPerFrame:
		next = cur - 1
	}
	if next > maxActorsPerFrame {
		next = maxActorsPerFrame
	}
	if next < minActorsPerFrame {
		next = minActorsPerFrame
	}
	if next != cur {
		d.actorsPerFrame.Store(int32(next))
		slog.Debug("load balanced", "actors_per_frame", next, "backlog", backlog)
	}
}

// runBackgroundTasks drains queued upkeep functions within the frame budget.
func (d *Director) runBackgroundTasks(start time.Time, budget time.Duration) {
	for time.Since(start) < budget {
		d.bgMu.Lock()
		if len(d.background) == 0 {
			d.bgMu.Unlock()
			return
		}
		fn := d.background[0]
		d.background = d.background[1:]
		d.bgMu.Unlock()
		fn()
	}
}

func (d *Director) recordFrame(elapsed time.Duration, decisions int) {
	ms := float64(elapsed) / float64(time.Millisecond)
	d.statsMu.Lock()
	defer d.statsMu.Unlock()
	d.totalFrames++
	d.totalDecisions += uint64(decisions)
	// Exponential moving average keeps the stats responsive without
	// storing a history.
	const alpha = 0.1
	if d.totalFrames == 1 {
		d.avgFrameMs = ms
	} else {
		d.avgFrameMs = d.avgFrameMs*(1-alpha) + ms*alpha
	}
	if decisions > 0 {
		per := ms / float64(decisions)
		if d.avgDecisionMs == 0 {
			d.avgDecisionMs = per
		} else {
			d.avgDecisionMs = d.avgDecisionMs*(1-alpha) + per*alpha
		}
	}
}

// QueuedMessages returns the total messages pending across all actors.
func (d *Director) QueuedMessages() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, e := range d.actors {
		n += e.queue.len()
	}
	return n
}

// Snapshot returns the current director metrics.
func (d *Director) Snapshot() Metrics {
	queued := d.QueuedMessages()
	actors := d.ActorCount()

	d.statsMu.Lock()
	defer d.statsMu.Unlock()
	return Metrics{
		State:            d.State(),
		TotalFrames:      d.totalFrames,
		TotalDecisions:   d.totalDecisions,
		DroppedDecisions: d.droppedDecisions,
		PanicRecoveries:  d.panicRecoveries,
		DeferredActors:   d.deferredActors,
		QueuedMessages:   queued,
		ActiveActors:     actors,
		AvgFrameMs:       d.avgFrameMs,
		AvgDecisionMs:    d.avgDecisionMs,
		ActorsPerFrame:   int(d.actorsPerFrame.Load()),
	}
}

// ResetMetrics zeroes the accumulated counters and averages. Queue depths
// and the actor registry are untouched.
func (d *Director) ResetMetrics() {
	d.statsMu.Lock()
	defer d.statsMu.Unlock()
	d.totalFrames = 0
	d.totalDecisions = 0
	d.droppedDecisions = 0
	d.panicRecoveries = 0
	d.deferredActors = 0
	d.avgFrameMs = 0
	d.avgDecisionMs = 0
}

// PerformanceReport renders the metrics snapshot as display lines.
func (d *Director) PerformanceReport() []string {
	m := d.Snapshot()
	return []string{
		fmt.Sprintf("state: %s", StateName(m.State)),
		fmt.Sprintf("frames: %d (avg %.2fms)", m.TotalFrames, m.AvgFrameMs),
		fmt.Sprintf("decisions: %d (avg %.3fms, %d dropped, %d panics)",
			m.TotalDecisions, m.AvgDecisionMs, m.DroppedDecisions, m.PanicRecoveries),
		fmt.Sprintf("actors: %d active, %d/frame, %d deferred",
			m.ActiveActors, m.ActorsPerFrame, m.DeferredActors),
		fmt.Sprintf("queued: %d messages", m.QueuedMessages),
	}
}
