package attention

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/crownfall/internal/calendar"
	"github.com/talgya/crownfall/internal/info"
)

func testPacket(t info.Type, severity float64) *info.Packet {
	return info.New(t, 1, 2, severity, "test", calendar.NewDate(1444, 1, 1))
}

func TestScoreWeightedSum(t *testing.T) {
	p := testPacket(info.MilitaryAction, 0.8)
	p.Accuracy = 0.9

	profile := baseProfile()
	profile.TypeWeights[info.MilitaryAction] = 0.5

	// 0.4*0.5 + 0.3*0.8 + 0.2*0.9 + 0.1*0.7 (High base relevance) = 0.69
	got := Score(p, &profile, 1.0)
	assert.InDelta(t, 0.69, got, 1e-9)
}

func TestScoreClampedByMultiplier(t *testing.T) {
	p := testPacket(info.PlagueOutbreak, 1.0)
	profile := baseProfile()
	profile.TypeWeights[info.PlagueOutbreak] = 1.0

	assert.Equal(t, 1.0, Score(p, &profile, 5.0), "scores clamp at 1")
	assert.Equal(t, 0.0, Score(p, &profile, 0.0))
}

func TestScoreIsPure(t *testing.T) {
	p := testPacket(info.Rebellion, 0.6)
	profile := ProfileForArchetype(Tyrant)
	before := profile

	first := Score(p, &profile, 1.0)
	second := Score(p, &profile, 1.0)

	assert.Equal(t, first, second)
	assert.Equal(t, before, profile, "scoring must not mutate the profile")
	assert.Equal(t, 0.6, p.Severity, "scoring must not mutate the packet")
}

func TestEstimatedDistance(t *testing.T) {
	assert.Equal(t, 0.0, EstimatedDistance(0))
	assert.Equal(t, 600.0, EstimatedDistance(3))
}

func TestAdjustRelevanceUpgradesOnly(t *testing.T) {
	profile := baseProfile()

	// Score clears the critical threshold: upgrade to Critical.
	assert.Equal(t, info.Critical, AdjustRelevance(info.Low, &profile, 0.95))

	// Low score never downgrades a critical packet.
	assert.Equal(t, info.Critical, AdjustRelevance(info.Critical, &profile, 0.05))

	// Mid score upgrades Low to Medium.
	assert.Equal(t, info.Medium, AdjustRelevance(info.Low, &profile, 0.5))
}

func TestProcessingDelayTiers(t *testing.T) {
	profile := baseProfile() // Thresholds 0.9 / 0.7 / 0.4 / 0.2

	assert.Equal(t, 0, ProcessingDelay(&profile, 0.95))
	assert.Equal(t, 1, ProcessingDelay(&profile, 0.75))
	assert.Equal(t, 3, ProcessingDelay(&profile, 0.5))
	assert.Equal(t, 7, ProcessingDelay(&profile, 0.25))
}

func TestEvaluateDistanceFilter(t *testing.T) {
	p := testPacket(info.MilitaryAction, 0.9)
	p.HopCount = 20 // 4000 km estimated

	profile := baseProfile() // Max attention 3000 km
	res := Evaluate(p, &profile, 1.0)

	assert.False(t, res.ShouldReceive)
	assert.Equal(t, "too distant", res.FilterReason)
}

func TestEvaluateTypeFilter(t *testing.T) {
	p := testPacket(info.CulturalShift, 0.9)
	profile := baseProfile()
	profile.TypeWeights[info.CulturalShift] = 0.05 // Below MinTypeWeight

	res := Evaluate(p, &profile, 1.0)

	assert.False(t, res.ShouldReceive)
	assert.Equal(t, "type not relevant", res.FilterReason)
}

func TestEvaluateThresholdFilter(t *testing.T) {
	p := testPacket(info.CulturalShift, 0.0)
	p.Accuracy = 0.1

	profile := baseProfile()
	profile.TypeWeights[info.CulturalShift] = 0.15
	// 0.4*0.15 + 0.3*0 + 0.2*0.1 + 0.1*0.2 = 0.1, below the 0.2 threshold.

	res := Evaluate(p, &profile, 1.0)

	assert.False(t, res.ShouldReceive)
	assert.Equal(t, "below attention threshold", res.FilterReason)
}

func TestEvaluateSpecialInterestBypassesFilters(t *testing.T) {
	p := testPacket(info.CulturalShift, 0.0)
	p.HopCount = 50 // Far beyond any attention range
	p.Originator = 2

	profile := baseProfile()
	profile.TypeWeights[info.CulturalShift] = 0.0
	profile.Rivals = append(profile.Rivals, 2)

	res := Evaluate(p, &profile, 1.0)

	require.True(t, res.ShouldReceive, "rival news always gets through")
	assert.Equal(t, info.Critical, res.AdjustedRelevance)
	assert.Equal(t, 1.0, res.AttentionScore)
}

func TestEvaluateWatchedProvince(t *testing.T) {
	p := testPacket(info.CulturalShift, 0.0)
	profile := baseProfile()
	profile.TypeWeights[info.CulturalShift] = 0.0
	profile.WatchedProvinces = append(profile.WatchedProvinces, p.SourceProvince)

	res := Evaluate(p, &profile, 1.0)
	assert.True(t, res.ShouldReceive)
	assert.Equal(t, info.Critical, res.AdjustedRelevance)
}

func TestManagerFilterInformation(t *testing.T) {
	m := NewManager()
	m.RegisterNation(1, "Aldoria", Conqueror)

	p := testPacket(info.MilitaryAction, 0.9)
	res := m.FilterInformation(p, 1)

	require.True(t, res.ShouldReceive, "a conqueror never misses a war")
	assert.GreaterOrEqual(t, res.AttentionScore, 0.1)

	// Unknown actors never receive.
	res = m.FilterInformation(p, 99)
	assert.False(t, res.ShouldReceive)
	assert.Equal(t, "actor not registered", res.FilterReason)

	stats := m.Stats()
	assert.Equal(t, uint64(2), stats.TotalFilters)
	assert.Equal(t, uint64(1), stats.TotalPassed)
	assert.Equal(t, uint64(1), stats.TotalBlocked)
}

func TestInterestedActorsSortedAndFiltered(t *testing.T) {
	m := NewManager()
	m.RegisterNation(3, "Cartha", Merchant)
	m.RegisterNation(1, "Aldoria", Conqueror)
	m.RegisterCharacter(2, "Brother Anselm", Scholar)

	p := testPacket(info.MilitaryAction, 1.0)

	ids := m.InterestedActors(p, false)
	require.NotEmpty(t, ids)
	for i := 1; i < len(ids); i++ {
		assert.Less(t, ids[i-1], ids[i], "results must be sorted ascending")
	}

	nations := m.InterestedActors(p, true)
	for _, id := range nations {
		assert.True(t, m.IsNation(id), "nationsOnly must exclude characters")
	}
}

func TestSetRivalrySymmetric(t *testing.T) {
	m := NewManager()
	m.RegisterNation(1, "Aldoria", Balanced)
	m.RegisterNation(2, "Vexia", Balanced)

	m.SetRivalry(1, 2)
	m.SetRivalry(1, 2) // Idempotent

	p1, ok := m.ProfileOf(1)
	require.True(t, ok)
	p2, ok := m.ProfileOf(2)
	require.True(t, ok)

	assert.Len(t, p1.Rivals, 1)
	assert.Len(t, p2.Rivals, 1)
	assert.EqualValues(t, 2, p1.Rivals[0])
	assert.EqualValues(t, 1, p2.Rivals[0])
}

func TestGlobalMultiplierIgnoresInvalid(t *testing.T) {
	m := NewManager()
	m.RegisterNation(1, "Aldoria", Balanced)
	m.SetGlobalMultiplier(-1) // Ignored

	p := testPacket(info.MilitaryAction, 0.9)
	res := m.FilterInformation(p, 1)
	assert.Greater(t, res.AttentionScore, 0.0, "invalid multiplier must not zero scores")
}
