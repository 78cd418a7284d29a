package attention

import (
	"github.com/talgya/crownfall/internal/info"
	"github.com/talgya/crownfall/internal/world"
)

// Archetype is a ruler/character personality template. A nation's attention
// profile is derived from its ruler's archetype.
type Archetype uint8

const (
	WarriorKing Archetype = iota
	Conqueror
	Diplomat
	Administrator
	Merchant
	Scholar
	Zealot
	Builder
	Tyrant
	Reformer
	Balanced
)

// Personality is the nation-level disposition derived from the ruler.
type Personality uint8

const (
	PersonalityExpansionist Personality = iota
	PersonalityDiplomatic
	PersonalityEconomic
	PersonalityTechnological
	PersonalityReligious
	PersonalityDevelopmental
	PersonalityAggressive
	PersonalityProgressive
	PersonalityBalanced
)

// Profile controls what an actor notices and how urgently. One per actor,
// replaceable through the manager API but never mutated by filtering.
type Profile struct {
	// Attention weight per information type, 0–1. Types at or below
	// MinTypeWeight are filtered.
	TypeWeights [info.NumTypes]float64

	// Distance falloff.
	MaxAttentionDistance float64 // Kilometers (hop-estimated)
	AttentionFalloffRate float64

	// Relevance thresholds the attention score is measured against.
	CriticalThreshold float64
	HighThreshold     float64
	MediumThreshold   float64
	LowThreshold      float64

	// Special interests: packets touching these always get through.
	Rivals           []world.NationID
	Allies           []world.NationID
	WatchedProvinces []world.ProvinceID

	Archetype   Archetype
	Personality Personality
}

// baseProfile returns the neutral starting point every template adjusts.
func baseProfile() Profile {
	p := Profile{
		MaxAttentionDistance: 3000,
		AttentionFalloffRate: 0.5,
		CriticalThreshold:    0.9,
		HighThreshold:        0.7,
		MediumThreshold:      0.4,
		LowThreshold:         0.2,
		Archetype:            Balanced,
		Personality:          PersonalityBalanced,
	}
	for i := range p.TypeWeights {
		p.TypeWeights[i] = 0.5
	}
	return p
}

// ProfileForArchetype builds the attention template for an archetype.
// Unlisted types keep the balanced 0.5 weight.
func ProfileForArchetype(a Archetype) Profile {
	p := baseProfile()
	p.Archetype = a
	p.Personality = PersonalityFromArchetype(a)

	switch a {
	case Conqueror, WarriorKing:
		p.TypeWeights[info.MilitaryAction] = 1.0
		p.TypeWeights[info.Rebellion] = 0.9
		p.TypeWeights[info.SuccessionCrisis] = 0.8
		p.TypeWeights[info.AllianceFormation] = 0.7
		p.TypeWeights[info.DiplomaticChange] = 0.6
		p.TypeWeights[info.TechnologyAdvance] = 0.4
		p.TypeWeights[info.EconomicCrisis] = 0.3
		p.TypeWeights[info.ReligiousEvent] = 0.2
		// Wide attention range, low thresholds: conquerors care about more.
		p.MaxAttentionDistance = 4000
		p.AttentionFalloffRate = 0.3
		p.CriticalThreshold = 0.8
		p.HighThreshold = 0.6
		p.MediumThreshold = 0.3
		p.LowThreshold = 0.1

	case Diplomat:
		p.TypeWeights[info.DiplomaticChange] = 1.0
		p.TypeWeights[info.AllianceFormation] = 1.0
		p.TypeWeights[info.SuccessionCrisis] = 0.8
		p.TypeWeights[info.TradeDisruption] = 0.7
		p.TypeWeights[info.CulturalShift] = 0.6
		p.TypeWeights[info.MilitaryAction] = 0.5
		p.TypeWeights[info.Rebellion] = 0.4
		p.AttentionFalloffRate = 0.4

	case Merchant:
		p.TypeWeights[info.EconomicCrisis] = 1.0
		p.TypeWeights[info.TradeDisruption] = 1.0
		p.TypeWeights[info.PlagueOutbreak] = 0.8
		p.TypeWeights[info.NaturalDisaster] = 0.7
		p.TypeWeights[info.TechnologyAdvance] = 0.6
		p.TypeWeights[info.DiplomaticChange] = 0.5
		p.TypeWeights[info.MilitaryAction] = 0.3
		// Trade networks reach far.
		p.MaxAttentionDistance = 5000

	case Scholar:
		p.TypeWeights[info.TechnologyAdvance] = 1.0
		p.TypeWeights[info.CulturalShift] = 0.9
		p.TypeWeights[info.ReligiousEvent] = 0.7
		p.TypeWeights[info.PlagueOutbreak] = 0.6
		p.TypeWeights[info.NaturalDisaster] = 0.5
		p.TypeWeights[info.MilitaryAction] = 0.2
		p.MaxAttentionDistance = 2500
		p.AttentionFalloffRate = 0.6

	case Builder, Administrator:
		p.TypeWeights[info.NaturalDisaster] = 0.9
		p.TypeWeights[info.PlagueOutbreak] = 0.9
		p.TypeWeights[info.EconomicCrisis] = 0.8
		p.TypeWeights[info.TechnologyAdvance] = 0.7
		p.TypeWeights[info.Rebellion] = 0.6
		p.TypeWeights[info.TradeDisruption] = 0.5
		p.TypeWeights[info.MilitaryAction] = 0.3
		// Internal focus: short range.
		p.MaxAttentionDistance = 2000
		p.AttentionFalloffRate = 0.7

	case Zealot:
		p.TypeWeights[info.ReligiousEvent] = 1.0
		p.TypeWeights[info.CulturalShift] = 0.8
		p.TypeWeights[info.SuccessionCrisis] = 0.6

	case Tyrant:
		p.TypeWeights[info.Rebellion] = 1.0
		p.TypeWeights[info.MilitaryAction] = 0.9
		p.TypeWeights[info.SuccessionCrisis] = 0.8

	case Reformer:
		p.TypeWeights[info.TechnologyAdvance] = 0.9
		p.TypeWeights[info.CulturalShift] = 0.8
		p.TypeWeights[info.EconomicCrisis] = 0.7
	}

	return p
}

// PersonalityFromArchetype maps a ruler archetype to the nation disposition.
func PersonalityFromArchetype(a Archetype) Personality {
	switch a {
	case Conqueror, WarriorKing:
		return PersonalityExpansionist
	case Diplomat:
		return PersonalityDiplomatic
	case Merchant:
		return PersonalityEconomic
	case Scholar:
		return PersonalityTechnological
	case Zealot:
		return PersonalityReligious
	case Builder, Administrator:
		return PersonalityDevelopmental
	case Tyrant:
		return PersonalityAggressive
	case Reformer:
		return PersonalityProgressive
	default:
		return PersonalityBalanced
	}
}

// ArchetypeName returns a human-readable archetype name.
func ArchetypeName(a Archetype) string {
	switch a {
	case WarriorKing:
		return "Warrior King"
	case Conqueror:
		return "Conqueror"
	case Diplomat:
		return "Diplomat"
	case Administrator:
		return "Administrator"
	case Merchant:
		return "Merchant"
	case Scholar:
		return "Scholar"
	case Zealot:
		return "Zealot"
	case Builder:
		return "Builder"
	case Tyrant:
		return "Tyrant"
	case Reformer:
		return "Reformer"
	default:
		return "Balanced"
	}
}

// PersonalityName returns a human-readable personality name.
func PersonalityName(p Personality) string {
	switch p {
	case PersonalityExpansionist:
		return "Expansionist"
	case PersonalityDiplomatic:
		return "Diplomatic"
	case PersonalityEconomic:
		return "Economic"
	case PersonalityTechnological:
		return "Technological"
	case PersonalityReligious:
		return "Religious"
	case PersonalityDevelopmental:
		return "Developmental"
	case PersonalityAggressive:
		return "Aggressive"
	case PersonalityProgressive:
		return "Progressive"
	default:
		return "Balanced"
	}
}
