package attention

import (
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/talgya/crownfall/internal/info"
	"github.com/talgya/crownfall/internal/world"
)

// ActorID identifies a registered AI actor (nation, character, or council).
type ActorID uint32

// Actor is one registered decision entity with its attention profile and
// running filter counters.
type Actor struct {
	ID       ActorID
	Name     string
	IsNation bool

	Profile Profile

	// Counters, guarded by the manager's stats mutex.
	Received uint64
	Filtered uint64
	AvgScore float64
}

// Result is the outcome of filtering one packet for one actor.
type Result struct {
	ShouldReceive     bool
	AdjustedRelevance info.Relevance
	AttentionScore    float64
	ProcessingDelay   int // Extra days before the actor acts on it
	FilterReason      string
}

// FilterStats aggregates filter outcomes across all actors.
type FilterStats struct {
	TotalFilters uint64
	TotalPassed  uint64
	TotalBlocked uint64
}

// Manager owns the actor registry and runs the per-actor attention filter.
// Lock order is registry then stats, matching the rest of the pipeline.
type Manager struct {
	mu     sync.RWMutex
	actors map[ActorID]*Actor

	globalMultiplier float64

	statsMu sync.Mutex
	stats   FilterStats
}

// NewManager creates an empty attention manager.
func NewManager() *Manager {
	return &Manager{
		actors:           make(map[ActorID]*Actor),
		globalMultiplier: 1.0,
	}
}

// RegisterNation adds a nation actor whose profile derives from its ruler's
// archetype. Re-registering an ID replaces the previous entry.
func (m *Manager) RegisterNation(id ActorID, name string, ruler Archetype) *Actor {
	return m.register(id, name, true, ruler)
}

// RegisterCharacter adds a character actor with an archetype-derived profile.
func (m *Manager) RegisterCharacter(id ActorID, name string, archetype Archetype) *Actor {
	return m.register(id, name, false, archetype)
}

func (m *Manager) register(id ActorID, name string, isNation bool, archetype Archetype) *Actor {
	a := &Actor{
		ID:       id,
		Name:     name,
		IsNation: isNation,
		Profile:  ProfileForArchetype(archetype),
	}

	m.mu.Lock()
	m.actors[id] = a
	m.mu.Unlock()

	slog.Debug("actor registered",
		"actor", id, "name", name, "nation", isNation,
		"archetype", ArchetypeName(archetype))
	return a
}

// Unregister removes an actor. Filtering for the ID fails from this point on.
func (m *Manager) Unregister(id ActorID) {
	m.mu.Lock()
	delete(m.actors, id)
	m.mu.Unlock()
}

// SetProfile replaces an actor's profile wholesale. Returns false for
// unknown actors.
func (m *Manager) SetProfile(id ActorID, p Profile) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.actors[id]
	if !ok {
		return false
	}
	a.Profile = p
	return true
}

// ProfileOf returns a copy of an actor's profile.
func (m *Manager) ProfileOf(id ActorID) (Profile, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.actors[id]
	if !ok {
		return Profile{}, false
	}
	return a.Profile, true
}

// SetGlobalMultiplier scales every attention score. Values <= 0 are ignored.
func (m *Manager) SetGlobalMultiplier(mult float64) {
	if mult <= 0 {
		return
	}
	m.mu.Lock()
	m.globalMultiplier = mult
	m.mu.Unlock()
}

// SetRivalry marks two nations as rivals of each other.
func (m *Manager) SetRivalry(a, b ActorID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addNation(a, b, func(p *Profile, n world.NationID) {
		p.Rivals = appendNation(p.Rivals, n)
	})
	m.addNation(b, a, func(p *Profile, n world.NationID) {
		p.Rivals = appendNation(p.Rivals, n)
	})
}

// SetAlliance marks two nations as allies of each other.
func (m *Manager) SetAlliance(a, b ActorID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addNation(a, b, func(p *Profile, n world.NationID) {
		p.Allies = appendNation(p.Allies, n)
	})
	m.addNation(b, a, func(p *Profile, n world.NationID) {
		p.Allies = appendNation(p.Allies, n)
	})
}

func (m *Manager) addNation(actor, other ActorID, add func(*Profile, world.NationID)) {
	if a, ok := m.actors[actor]; ok {
		add(&a.Profile, world.NationID(other))
	}
}

func appendNation(list []world.NationID, n world.NationID) []world.NationID {
	for _, v := range list {
		if v == n {
			return list
		}
	}
	return append(list, n)
}

// AddWatchedProvince puts a province on an actor's watch list.
func (m *Manager) AddWatchedProvince(id ActorID, province world.ProvinceID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.actors[id]
	if !ok {
		return
	}
	for _, p := range a.Profile.WatchedProvinces {
		if p == province {
			return
		}
	}
	a.Profile.WatchedProvinces = append(a.Profile.WatchedProvinces, province)
}

// FilterInformation runs the attention filter for one actor. The scoring is
// deterministic for a fixed (packet, profile) pair; only counters mutate.
func (m *Manager) FilterInformation(p *info.Packet, id ActorID) Result {
	m.mu.RLock()
	actor, ok := m.actors[id]
	var profile Profile
	mult := m.globalMultiplier
	if ok {
		profile = actor.Profile
	}
	m.mu.RUnlock()

	if !ok {
		res := Result{AdjustedRelevance: p.BaseRelevance, FilterReason: "actor not registered"}
		m.record(id, res)
		return res
	}

	res := Evaluate(p, &profile, mult)
	m.record(id, res)
	return res
}

// Evaluate is the pure filter pipeline: special-interest override, distance
// filter, type filter, scoring, threshold, relevance upgrade, delay.
func Evaluate(p *info.Packet, profile *Profile, globalMultiplier float64) Result {
	res := Result{AdjustedRelevance: p.BaseRelevance}

	// Special interests bypass every other filter.
	if isSpecialInterest(p, profile) {
		res.ShouldReceive = true
		res.AdjustedRelevance = info.Critical
		res.AttentionScore = 1.0
		res.FilterReason = "special interest"
		return res
	}

	if EstimatedDistance(p.HopCount) > profile.MaxAttentionDistance {
		res.FilterReason = "too distant"
		return res
	}

	if profile.TypeWeights[p.Type] < MinTypeWeight {
		res.FilterReason = "type not relevant"
		return res
	}

	score := Score(p, profile, globalMultiplier)
	res.AttentionScore = score

	if score < profile.LowThreshold {
		res.FilterReason = "below attention threshold"
		return res
	}

	res.ShouldReceive = true
	res.AdjustedRelevance = AdjustRelevance(p.BaseRelevance, profile, score)
	res.ProcessingDelay = ProcessingDelay(profile, score)
	res.FilterReason = "passed"
	return res
}

func isSpecialInterest(p *info.Packet, profile *Profile) bool {
	if p.Originator != 0 {
		for _, n := range profile.Rivals {
			if n == p.Originator {
				return true
			}
		}
		for _, n := range profile.Allies {
			if n == p.Originator {
				return true
			}
		}
	}
	for _, prov := range profile.WatchedProvinces {
		if prov == p.SourceProvince {
			return true
		}
	}
	return false
}

// InterestedActors filters the whole registry against one packet and returns
// the IDs that should receive it, ascending. Per-actor results are
// independent, so the batch fans out across goroutines.
func (m *Manager) InterestedActors(p *info.Packet, nationsOnly bool) []ActorID {
	m.mu.RLock()
	snapshot := make([]*Actor, 0, len(m.actors))
	profiles := make([]Profile, 0, len(m.actors))
	for _, a := range m.actors {
		if nationsOnly && !a.IsNation {
			continue
		}
		snapshot = append(snapshot, a)
		profiles = append(profiles, a.Profile)
	}
	mult := m.globalMultiplier
	m.mu.RUnlock()

	results := make([]Result, len(snapshot))
	var g errgroup.Group
	g.SetLimit(8)
	for i := range snapshot {
		i := i
		g.Go(func() error {
			results[i] = Evaluate(p, &profiles[i], mult)
			return nil
		})
	}
	g.Wait() // Workers never return errors.

	var interested []ActorID
	for i, a := range snapshot {
		m.record(a.ID, results[i])
		if results[i].ShouldReceive {
			interested = append(interested, a.ID)
		}
	}
	sort.Slice(interested, func(i, j int) bool { return interested[i] < interested[j] })
	return interested
}

// record folds a filter result into the aggregate and per-actor counters.
// Registry lock is taken (and released) before the stats lock.
func (m *Manager) record(id ActorID, res Result) {
	m.mu.RLock()
	a, ok := m.actors[id]
	m.mu.RUnlock()

	m.statsMu.Lock()
	defer m.statsMu.Unlock()

	m.stats.TotalFilters++
	if res.ShouldReceive {
		m.stats.TotalPassed++
	} else {
		m.stats.TotalBlocked++
	}

	if !ok {
		return
	}
	if res.ShouldReceive {
		a.Received++
	} else {
		a.Filtered++
	}
	n := float64(a.Received + a.Filtered)
	a.AvgScore = (a.AvgScore*(n-1) + res.AttentionScore) / n
}

// Stats returns a snapshot of the aggregate filter counters.
func (m *Manager) Stats() FilterStats {
	m.statsMu.Lock()
	defer m.statsMu.Unlock()
	return m.stats
}

// ResetStats zeroes the aggregate counters.
func (m *Manager) ResetStats() {
	m.statsMu.Lock()
	m.stats = FilterStats{}
	m.statsMu.Unlock()
}

// ActorCount returns the number of registered actors.
func (m *Manager) ActorCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.actors)
}

// Actors returns a snapshot of registered actor IDs, ascending.
func (m *Manager) Actors() []ActorID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]ActorID, 0, len(m.actors))
	for id := range m.actors {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// IsNation reports whether an actor ID is a registered nation actor.
func (m *Manager) IsNation(id ActorID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.actors[id]
	return ok && a.IsNation
}
