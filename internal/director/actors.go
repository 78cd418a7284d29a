package director

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/talgya/crownfall/internal/attention"
	"github.com/talgya/crownfall/internal/info"
	"github.com/talgya/crownfall/internal/world"
)

// Decider reacts to one delivered message. Implementations run on the
// director's worker goroutine; panics are recovered at the call boundary and
// counted as dropped decisions.
type Decider interface {
	HandleInformation(m *Message) error
}

// NationAI makes strategic decisions for one nation. It keeps a running
// threat assessment per foreign nation and an internal stability estimate.
type NationAI struct {
	Nation world.NationID
	Name   string

	mu        sync.Mutex
	threats   map[world.NationID]float64
	stability float64
	treasury  float64
	decisions uint64
}

// NewNationAI creates a nation decider with neutral assessments.
func NewNationAI(nation world.NationID, name string) *NationAI {
	return &NationAI{
		Nation:    nation,
		Name:      name,
		threats:   make(map[world.NationID]float64),
		stability: 0.7,
		treasury:  1000,
	}
}

// HandleInformation folds one packet into the nation's assessments.
func (n *NationAI) HandleInformation(m *Message) error {
	p := m.Packet
	if p == nil {
		return fmt.Errorf("nation %d: empty message", n.Nation)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.decisions++

	switch p.Type {
	case info.MilitaryAction, info.Rebellion:
		if p.Originator != 0 && p.Originator != n.Nation {
			// Weight the threat by how reliable the report still is.
			n.threats[p.Originator] += p.Severity * p.Accuracy * 0.2
			if n.threats[p.Originator] > 1 {
				n.threats[p.Originator] = 1
			}
		}
		if p.Originator == n.Nation && p.Type == info.Rebellion {
			n.stability -= p.Severity * 0.1
		}
	case info.AllianceFormation, info.DiplomaticChange:
		if p.Originator != 0 && p.Originator != n.Nation {
			n.threats[p.Originator] *= 0.9
		}
	case info.EconomicCrisis, info.TradeDisruption:
		n.treasury -= p.Severity * p.Accuracy * 50
	case info.PlagueOutbreak, info.NaturalDisaster:
		n.stability -= p.Severity * p.Accuracy * 0.05
	}
	if n.stability < 0 {
		n.stability = 0
	}

	slog.Debug("nation decision",
		"nation", n.Nation, "name", n.Name,
		"type", info.TypeName(p.Type), "priority", PriorityName(m.Priority),
		"severity", p.Severity, "accuracy", p.Accuracy)
	return nil
}

// ThreatLevel returns the current assessment of one foreign nation, 0–1.
func (n *NationAI) ThreatLevel(other world.NationID) float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.threats[other]
}

// Stability returns the nation's internal stability estimate, 0–1.
func (n *NationAI) Stability() float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.stability
}

// Decisions returns how many messages this nation has processed.
func (n *NationAI) Decisions() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.decisions
}

// CharacterAI reacts on behalf of an individual character. Characters track
// personal ambition and grudges rather than state policy.
type CharacterAI struct {
	ID        attention.ActorID
	Name      string
	Archetype attention.Archetype

	mu        sync.Mutex
	ambition  float64
	grudges   map[world.NationID]float64
	decisions uint64
}

// NewCharacterAI creates a character decider.
func NewCharacterAI(id attention.ActorID, name string, archetype attention.Archetype) *CharacterAI {
	return &CharacterAI{
		ID:        id,
		Name:      name,
		Archetype: archetype,
		ambition:  0.5,
		grudges:   make(map[world.NationID]float64),
	}
}

// HandleInformation updates the character's ambitions from one packet.
func (c *CharacterAI) HandleInformation(m *Message) error {
	p := m.Packet
	if p == nil {
		return fmt.Errorf("character %d: empty message", c.ID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.decisions++

	switch p.Type {
	case info.SuccessionCrisis:
		// Power vacuums invite ambition.
		c.ambition += p.Severity * 0.15
	case info.MilitaryAction:
		if p.Originator != 0 {
			c.grudges[p.Originator] += p.Severity * 0.1
		}
	case info.CulturalShift, info.ReligiousEvent:
		c.ambition += p.Severity * 0.05
	}
	if c.ambition > 1 {
		c.ambition = 1
	}

	slog.Debug("character decision",
		"character", c.ID, "name", c.Name,
		"type", info.TypeName(p.Type), "priority", PriorityName(m.Priority))
	return nil
}

// Ambition returns the character's current ambition, 0–1.
func (c *CharacterAI) Ambition() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ambition
}

// Decisions returns how many messages this character has processed.
func (c *CharacterAI) Decisions() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.decisions
}

// CouncilAI is an advisory body. It does not act directly; it accumulates
// agenda items its nation's ruler can consult.
type CouncilAI struct {
	ID     attention.ActorID
	Nation world.NationID
	Name   string

	mu        sync.Mutex
	agenda    []string
	decisions uint64
}

const maxAgendaItems = 32

// NewCouncilAI creates a council decider for one nation.
func NewCouncilAI(id attention.ActorID, nation world.NationID, name string) *CouncilAI {
	return &CouncilAI{ID: id, Nation: nation, Name: name}
}

// HandleInformation files the packet as an agenda item. The agenda is
// bounded; the oldest item falls off.
func (c *CouncilAI) HandleInformation(m *Message) error {
	p := m.Packet
	if p == nil {
		return fmt.Errorf("council %d: empty message", c.ID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.decisions++

	item := fmt.Sprintf("[%s] %s (%s)", PriorityName(m.Priority), p.Description, info.TypeName(p.Type))
	c.agenda = append(c.agenda, item)
	if len(c.agenda) > maxAgendaItems {
		c.agenda = c.agenda[1:]
	}
	return nil
}

// Agenda returns a copy of the pending agenda items, oldest first.
func (c *CouncilAI) Agenda() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.agenda))
	copy(out, c.agenda)
	return out
}

// Decisions returns how many messages this council has processed.
func (c *CouncilAI) Decisions() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.decisions
}
