// Package attention filters propagated information per AI actor: a stateless
// scoring layer (this file) and a stateful registry of actors and profiles.
package attention

import "github.com/talgya/crownfall/internal/info"

// Scoring weights: type affinity dominates, then severity, accuracy, and the
// packet's own base relevance.
const (
	typeWeightShare = 0.4
	severityShare   = 0.3
	accuracyShare   = 0.2
	relevanceShare  = 0.1

	// MinTypeWeight is the floor below which a type is filtered outright.
	MinTypeWeight = 0.1

	// KilometersPerHop is the fixed distance estimate per relay hop.
	KilometersPerHop = 200.0
)

// RelevanceScore maps a relevance tier onto the [0,1] scoring contribution.
func RelevanceScore(r info.Relevance) float64 {
	switch r {
	case info.Critical:
		return 1.0
	case info.High:
		return 0.7
	case info.Medium:
		return 0.4
	case info.Low:
		return 0.2
	default:
		return 0.0
	}
}

// EstimatedDistance converts hop count into a distance estimate in
// kilometers. Hops are the only distance signal the scorer sees.
func EstimatedDistance(hopCount int) float64 {
	return float64(hopCount) * KilometersPerHop
}

// Score computes the attention score for a packet against a profile,
// scaled by the global multiplier and clamped to [0,1]. Pure.
func Score(p *info.Packet, profile *Profile, globalMultiplier float64) float64 {
	score := typeWeightShare*profile.TypeWeights[p.Type] +
		severityShare*p.Severity +
		accuracyShare*p.Accuracy +
		relevanceShare*RelevanceScore(p.BaseRelevance)
	return clamp01(score * globalMultiplier)
}

// AdjustRelevance applies the profile's thresholds to an attention score.
// Upgrades only: the result is never below the packet's base relevance.
func AdjustRelevance(base info.Relevance, profile *Profile, score float64) info.Relevance {
	switch {
	case score >= profile.CriticalThreshold:
		return base.Max(info.Critical)
	case score >= profile.HighThreshold:
		return base.Max(info.High)
	case score >= profile.MediumThreshold:
		return base.Max(info.Medium)
	case score >= profile.LowThreshold:
		return base.Max(info.Low)
	default:
		return base
	}
}

// ProcessingDelay returns the extra days an actor sits on information before
// acting, tiered by which threshold the score clears.
func ProcessingDelay(profile *Profile, score float64) int {
	switch {
	case score >= profile.CriticalThreshold:
		return 0
	case score >= profile.HighThreshold:
		return 1
	case score >= profile.MediumThreshold:
		return 3
	default:
		return 7
	}
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
