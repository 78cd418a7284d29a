package info

// Event classification: gameplay systems emit string-typed events; the
// dispatch table below maps them onto the closed Type enum once, at startup,
// so the hot path is a single map lookup. Unknown strings are a
// classification failure and the event is dropped by the caller.

var eventTypeTable = map[string]Type{
	// Canonical event-bus names.
	"MilitaryEvent":   MilitaryAction,
	"DiplomaticEvent": DiplomaticChange,
	"EconomicEvent":   EconomicCrisis,

	// Gameplay shorthand emitted by domain systems.
	"war_declared":       MilitaryAction,
	"battle_fought":      MilitaryAction,
	"siege_started":      MilitaryAction,
	"army_raised":        MilitaryAction,
	"treaty_signed":      DiplomaticChange,
	"embassy_expelled":   DiplomaticChange,
	"economic_crisis":    EconomicCrisis,
	"market_crash":       EconomicCrisis,
	"succession_crisis":  SuccessionCrisis,
	"ruler_died":         SuccessionCrisis,
	"rebellion":          Rebellion,
	"peasant_revolt":     Rebellion,
	"technology_advance": TechnologyAdvance,
	"religious_event":    ReligiousEvent,
	"heresy_declared":    ReligiousEvent,
	"trade_disruption":   TradeDisruption,
	"trade_route_lost":   TradeDisruption,
	"alliance_formed":    AllianceFormation,
	"natural_disaster":   NaturalDisaster,
	"earthquake":         NaturalDisaster,
	"flood":              NaturalDisaster,
	"plague_outbreak":    PlagueOutbreak,
	"cultural_shift":     CulturalShift,
}

// Classify maps an event type string to an information type. The second
// return is false for unknown event strings.
func Classify(eventType string) (Type, bool) {
	t, ok := eventTypeTable[eventType]
	return t, ok
}

// defaultSeverity is the assumed severity when the event payload carries none.
var defaultSeverity = [NumTypes]float64{
	MilitaryAction:    0.7,
	DiplomaticChange:  0.4,
	EconomicCrisis:    0.6,
	SuccessionCrisis:  0.8,
	Rebellion:         0.7,
	TechnologyAdvance: 0.3,
	ReligiousEvent:    0.4,
	TradeDisruption:   0.5,
	AllianceFormation: 0.5,
	NaturalDisaster:   0.8,
	PlagueOutbreak:    0.9,
	CulturalShift:     0.2,
}

// SeverityFromData derives severity from a numeric event payload. An explicit
// "severity" key wins; otherwise the per-type default applies, nudged upward
// by any "casualties" or "economic_impact" magnitude. Result is clamped to [0,1].
func SeverityFromData(t Type, data map[string]float64) float64 {
	if s, ok := data["severity"]; ok {
		return clamp01(s)
	}
	sev := defaultSeverity[t]
	if v, ok := data["casualties"]; ok && v > 0 {
		sev += 0.1
	}
	if v, ok := data["economic_impact"]; ok && v > 0.5 {
		sev += 0.1
	}
	return clamp01(sev)
}

// defaultRelevance is the base relevance tier a freshly classified packet
// starts with before per-actor adjustment.
var defaultRelevance = [NumTypes]Relevance{
	MilitaryAction:    High,
	DiplomaticChange:  Medium,
	EconomicCrisis:    Medium,
	SuccessionCrisis:  High,
	Rebellion:         High,
	TechnologyAdvance: Low,
	ReligiousEvent:    Low,
	TradeDisruption:   Medium,
	AllianceFormation: Medium,
	NaturalDisaster:   High,
	PlagueOutbreak:    Critical,
	CulturalShift:     Low,
}

// DefaultRelevance returns the base relevance tier for an information type.
func DefaultRelevance(t Type) Relevance {
	return defaultRelevance[t]
}
