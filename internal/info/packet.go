// Package info defines the information packet: an immutable-at-creation
// record of an in-world event that spreads through the province graph.
// Packets are owned by whichever queue currently holds them and are handed
// off by pointer, never shared; Clone makes the per-receiver copies.
package info

import (
	"github.com/google/uuid"

	"github.com/talgya/crownfall/internal/calendar"
	"github.com/talgya/crownfall/internal/world"
)

// Type classifies what kind of event a packet describes. The set is closed:
// unknown event strings fail classification and are dropped.
type Type uint8

const (
	MilitaryAction Type = iota
	DiplomaticChange
	EconomicCrisis
	SuccessionCrisis
	Rebellion
	TechnologyAdvance
	ReligiousEvent
	TradeDisruption
	AllianceFormation
	NaturalDisaster
	PlagueOutbreak
	CulturalShift

	// NumTypes is the number of information types.
	NumTypes = int(CulturalShift) + 1
)

// TypeName returns a human-readable name for an information type.
func TypeName(t Type) string {
	switch t {
	case MilitaryAction:
		return "MilitaryAction"
	case DiplomaticChange:
		return "DiplomaticChange"
	case EconomicCrisis:
		return "EconomicCrisis"
	case SuccessionCrisis:
		return "SuccessionCrisis"
	case Rebellion:
		return "Rebellion"
	case TechnologyAdvance:
		return "TechnologyAdvance"
	case ReligiousEvent:
		return "ReligiousEvent"
	case TradeDisruption:
		return "TradeDisruption"
	case AllianceFormation:
		return "AllianceFormation"
	case NaturalDisaster:
		return "NaturalDisaster"
	case PlagueOutbreak:
		return "PlagueOutbreak"
	case CulturalShift:
		return "CulturalShift"
	default:
		return "Unknown"
	}
}

// Relevance is the categorical importance tier of a packet for a receiver.
// Higher values are more relevant, so upgrades are a plain max.
type Relevance uint8

const (
	Irrelevant Relevance = iota
	Low
	Medium
	High
	Critical
)

// RelevanceName returns a human-readable name for a relevance tier.
func RelevanceName(r Relevance) string {
	switch r {
	case Critical:
		return "Critical"
	case High:
		return "High"
	case Medium:
		return "Medium"
	case Low:
		return "Low"
	default:
		return "Irrelevant"
	}
}

// Max returns the higher of two relevance tiers.
func (r Relevance) Max(other Relevance) Relevance {
	if other > r {
		return other
	}
	return r
}

// Packet is one propagating piece of information. Type, severity, and the
// payload are fixed at creation; accuracy only decreases and the hop fields
// only grow as the packet relays province to province.
type Packet struct {
	ID            uuid.UUID
	Type          Type
	BaseRelevance Relevance

	SourceProvince world.ProvinceID
	Originator     world.NationID // Nation (or character entity) that triggered the event

	Description string
	Severity    float64 // 0–1, affects propagation speed
	Accuracy    float64 // 1 at source, degrades per hop

	EventOccurred calendar.Date
	PacketCreated calendar.Date

	HopCount int
	Path     []world.ProvinceID // Provinces traveled through, for loop prevention

	Numeric map[string]float64
	Text    map[string]string
}

// PropagationSpeed returns the speed multiplier implied by severity:
// dramatic news travels faster. Ranges over [0.5, 1.5].
func (p *Packet) PropagationSpeed() float64 {
	return 0.5 + p.Severity
}

// Visited reports whether the packet already passed through a province.
func (p *Packet) Visited(id world.ProvinceID) bool {
	if id == p.SourceProvince {
		return true
	}
	for _, v := range p.Path {
		if v == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy. Used when one packet fans out to several
// successor hops or receiving actors.
func (p *Packet) Clone() *Packet {
	c := *p
	c.Path = append([]world.ProvinceID(nil), p.Path...)
	if p.Numeric != nil {
		c.Numeric = make(map[string]float64, len(p.Numeric))
		for k, v := range p.Numeric {
			c.Numeric[k] = v
		}
	}
	if p.Text != nil {
		c.Text = make(map[string]string, len(p.Text))
		for k, v := range p.Text {
			c.Text[k] = v
		}
	}
	return &c
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
