package info

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/crownfall/internal/calendar"
	"github.com/talgya/crownfall/internal/world"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		event string
		want  Type
	}{
		{"war_declared", MilitaryAction},
		{"treaty_signed", DiplomaticChange},
		{"plague_outbreak", PlagueOutbreak},
		{"succession_crisis", SuccessionCrisis},
		{"MilitaryEvent", MilitaryAction},
	}
	for _, c := range cases {
		got, ok := Classify(c.event)
		require.True(t, ok, "event %q should classify", c.event)
		assert.Equal(t, c.want, got, "event %q", c.event)
	}

	_, ok := Classify("comet_sighted")
	assert.False(t, ok, "unknown events must fail classification")
}

func TestSeverityFromData(t *testing.T) {
	// Explicit severity wins over every heuristic.
	sev := SeverityFromData(MilitaryAction, map[string]float64{
		"severity":   0.25,
		"casualties": 5000,
	})
	assert.Equal(t, 0.25, sev)

	// Explicit severity is clamped.
	assert.Equal(t, 1.0, SeverityFromData(MilitaryAction, map[string]float64{"severity": 3}))
	assert.Equal(t, 0.0, SeverityFromData(MilitaryAction, map[string]float64{"severity": -1}))

	// Casualties nudge the default upward.
	base := SeverityFromData(MilitaryAction, nil)
	nudged := SeverityFromData(MilitaryAction, map[string]float64{"casualties": 100})
	assert.Greater(t, nudged, base)
}

func TestRelevanceMax(t *testing.T) {
	assert.Equal(t, Critical, Low.Max(Critical))
	assert.Equal(t, Critical, Critical.Max(Low))
	assert.Equal(t, High, High.Max(High))
	assert.True(t, Critical > High && High > Medium && Medium > Low && Low > Irrelevant)
}

func TestNewPacket(t *testing.T) {
	now := calendar.NewDate(1444, 1, 1)
	p := New(MilitaryAction, 7, 2, 0.8, "border raid", now)

	assert.Equal(t, 1.0, p.Accuracy, "fresh packets are fully accurate")
	assert.Equal(t, 0, p.HopCount)
	assert.Equal(t, High, p.BaseRelevance)
	assert.Equal(t, now, p.EventOccurred)
	assert.NotZero(t, p.ID)
}

func TestPropagationSpeed(t *testing.T) {
	now := calendar.NewDate(1444, 1, 1)

	dull := New(CulturalShift, 1, 0, 0.0, "fashion", now)
	dramatic := New(PlagueOutbreak, 1, 0, 1.0, "plague", now)

	assert.Equal(t, 0.5, dull.PropagationSpeed())
	assert.Equal(t, 1.5, dramatic.PropagationSpeed())
}

func TestVisited(t *testing.T) {
	now := calendar.NewDate(1444, 1, 1)
	p := New(Rebellion, 3, 1, 0.5, "revolt", now)
	p.Path = []world.ProvinceID{4, 5}

	assert.True(t, p.Visited(3), "source province counts as visited")
	assert.True(t, p.Visited(4))
	assert.True(t, p.Visited(5))
	assert.False(t, p.Visited(6))
}

func TestCloneIsDeep(t *testing.T) {
	now := calendar.NewDate(1444, 1, 1)
	p := New(EconomicCrisis, 1, 2, 0.6, "crash", now)
	p.Path = []world.ProvinceID{9}
	p.Numeric["loss"] = 100

	c := p.Clone()
	c.Path = append(c.Path, 10)
	c.Numeric["loss"] = 200
	c.Accuracy = 0.5

	assert.Equal(t, []world.ProvinceID{9}, p.Path)
	assert.Equal(t, 100.0, p.Numeric["loss"])
	assert.Equal(t, 1.0, p.Accuracy)
	assert.Equal(t, p.ID, c.ID, "clones keep the packet identity")
}
