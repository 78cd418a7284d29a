package propagation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/crownfall/internal/bus"
	"github.com/talgya/crownfall/internal/calendar"
	"github.com/talgya/crownfall/internal/info"
	"github.com/talgya/crownfall/internal/world"
)

// lineMap builds three provinces in a row, 200 km apart: A (nation 1's
// capital) — B (nation 1) — C (nation 2's capital).
func lineMap() *world.Map {
	m := world.NewMap()
	m.AddProvince(&world.Province{ID: 1, Name: "Avena", X: 0, Y: 0, Owner: 1, Neighbors: []world.ProvinceID{2}})
	m.AddProvince(&world.Province{ID: 2, Name: "Breza", X: 200, Y: 0, Owner: 1, Neighbors: []world.ProvinceID{1, 3}})
	m.AddProvince(&world.Province{ID: 3, Name: "Corvin", X: 400, Y: 0, Owner: 2, Neighbors: []world.ProvinceID{2}})
	m.AddNation(&world.Nation{ID: 1, Name: "Aldoria", Capital: 1})
	m.AddNation(&world.Nation{ID: 2, Name: "Vexia", Capital: 3})
	return m
}

// bendMap builds four provinces in a U shape. The walk from Avena to Dorn
// must first move away from Dorn in straight-line terms, so delivery depends
// on following the searched route rather than chasing raw distance.
func bendMap() *world.Map {
	m := world.NewMap()
	m.AddProvince(&world.Province{ID: 1, Name: "Avena", X: 0, Y: 0, Owner: 1, Neighbors: []world.ProvinceID{2}})
	m.AddProvince(&world.Province{ID: 2, Name: "Breza", X: 200, Y: 0, Owner: 1, Neighbors: []world.ProvinceID{1, 3}})
	m.AddProvince(&world.Province{ID: 3, Name: "Corvin", X: 200, Y: 200, Owner: 1, Neighbors: []world.ProvinceID{2, 4}})
	m.AddProvince(&world.Province{ID: 4, Name: "Dorn", X: 0, Y: 200, Owner: 2, Neighbors: []world.ProvinceID{3}})
	m.AddNation(&world.Nation{ID: 1, Name: "Aldoria", Capital: 1})
	m.AddNation(&world.Nation{ID: 2, Name: "Vexia", Capital: 4})
	return m
}

type recorded struct {
	packet *info.Packet
	nation world.NationID
}

// runUntilDelivered advances the clock day by day, processing the queue,
// until the engine's queue drains or the day limit is hit.
func runUntilDrained(t *testing.T, e *Engine, clock *calendar.Clock, maxDays int) {
	t.Helper()
	for i := 0; i < maxDays && e.QueueLen() > 0; i++ {
		clock.Advance(1)
		e.ProcessPropagationQueue()
	}
	require.Zero(t, e.QueueLen(), "queue did not drain within %d days", maxDays)
}

func TestSourceOwnerLearnsImmediately(t *testing.T) {
	clock := calendar.NewClock(calendar.NewDate(1444, 1, 1))
	var got []recorded
	e := NewEngine(lineMap(), clock, nil, func(p *info.Packet, n world.NationID) {
		got = append(got, recorded{p, n})
	})

	p := info.New(info.MilitaryAction, 1, 1, 0.5, "muster", clock.Now())
	e.InjectInformation(p)

	require.NotEmpty(t, got)
	assert.EqualValues(t, 1, got[0].nation)
	assert.Equal(t, 1.0, got[0].packet.Accuracy, "the owner hears first-hand")
	assert.Equal(t, 0, got[0].packet.HopCount)
}

func TestAccuracyDegradesPerHop(t *testing.T) {
	clock := calendar.NewClock(calendar.NewDate(1444, 1, 1))
	var got []recorded
	e := NewEngine(lineMap(), clock, nil, func(p *info.Packet, n world.NationID) {
		got = append(got, recorded{p, n})
	})
	e.SetAccuracyDegradationRate(0.1)

	p := info.New(info.MilitaryAction, 1, 1, 0.5, "muster", clock.Now())
	e.InjectInformation(p)
	runUntilDrained(t, e, clock, 60)

	// Nation 1 immediately, nation 2 after two hops (A -> B -> C).
	require.Len(t, got, 2)
	assert.EqualValues(t, 2, got[1].nation)
	assert.Equal(t, 2, got[1].packet.HopCount)
	assert.InDelta(t, 0.81, got[1].packet.Accuracy, 1e-9, "two hops at rate 0.1")
	assert.True(t, clock.Now().After(got[1].packet.EventOccurred), "distant news takes time")
}

func TestBentPathStillDelivers(t *testing.T) {
	clock := calendar.NewClock(calendar.NewDate(1444, 1, 1))
	var got []recorded
	e := NewEngine(bendMap(), clock, nil, func(p *info.Packet, n world.NationID) {
		got = append(got, recorded{p, n})
	})

	path, ok := e.PropagationPath(1, 4)
	require.True(t, ok)
	require.Equal(t, []world.ProvinceID{1, 2, 3, 4}, path)

	p := info.New(info.MilitaryAction, 1, 1, 0.5, "muster", clock.Now())
	e.InjectInformation(p)
	runUntilDrained(t, e, clock, 90)

	var reached *recorded
	for i := range got {
		if got[i].nation == 2 {
			reached = &got[i]
		}
	}
	require.NotNil(t, reached, "nation 2 is reachable and must hear the news")
	assert.Equal(t, 3, reached.packet.HopCount)
	assert.InDelta(t, 0.729, reached.packet.Accuracy, 1e-9, "three hops at rate 0.1")
}

func TestDeliveryAtMostOncePerNation(t *testing.T) {
	clock := calendar.NewClock(calendar.NewDate(1444, 1, 1))
	seen := make(map[world.NationID]int)
	e := NewEngine(lineMap(), clock, nil, func(p *info.Packet, n world.NationID) {
		seen[n]++
	})

	p := info.New(info.Rebellion, 2, 1, 0.8, "revolt", clock.Now())
	e.InjectInformation(p)
	runUntilDrained(t, e, clock, 60)

	for nation, count := range seen {
		assert.Equal(t, 1, count, "nation %d received %d copies", nation, count)
	}

	stats := e.Statistics()
	assert.Equal(t, uint64(1), stats.PacketsCreated)
	assert.EqualValues(t, len(seen), stats.PacketsDelivered)
}

func TestMaxDistanceDrops(t *testing.T) {
	clock := calendar.NewClock(calendar.NewDate(1444, 1, 1))
	var got []recorded
	e := NewEngine(lineMap(), clock, nil, func(p *info.Packet, n world.NationID) {
		got = append(got, recorded{p, n})
	})
	e.SetMaxPropagationDistance(300) // A to C is 400 km

	p := info.New(info.MilitaryAction, 1, 1, 0.9, "muster", clock.Now())
	e.InjectInformation(p)
	runUntilDrained(t, e, clock, 60)

	for _, r := range got {
		assert.NotEqualValues(t, 2, r.nation, "nation 2 is out of range")
	}
	assert.Greater(t, e.Statistics().DroppedDistance, uint64(0))
}

func TestAccuracyFloorStopsRelay(t *testing.T) {
	clock := calendar.NewClock(calendar.NewDate(1444, 1, 1))
	var got []recorded
	e := NewEngine(lineMap(), clock, nil, func(p *info.Packet, n world.NationID) {
		got = append(got, recorded{p, n})
	})
	e.SetAccuracyDegradationRate(0.9) // One hop leaves 0.1, under the 0.2 floor

	p := info.New(info.MilitaryAction, 1, 1, 0.9, "muster", clock.Now())
	e.InjectInformation(p)
	runUntilDrained(t, e, clock, 60)

	for _, r := range got {
		assert.NotEqualValues(t, 2, r.nation, "garbled news must not arrive")
	}
}

func TestClassificationFailureCounted(t *testing.T) {
	clock := calendar.NewClock(calendar.NewDate(1444, 1, 1))
	e := NewEngine(lineMap(), clock, nil, nil)

	e.ConvertEventToInformation("comet_sighted", 1, nil)

	stats := e.Statistics()
	assert.Equal(t, uint64(1), stats.ClassificationFailures)
	assert.Zero(t, stats.PacketsCreated)
}

func TestConvertEventSetsOriginator(t *testing.T) {
	clock := calendar.NewClock(calendar.NewDate(1444, 1, 1))
	var got []recorded
	e := NewEngine(lineMap(), clock, nil, func(p *info.Packet, n world.NationID) {
		got = append(got, recorded{p, n})
	})

	e.ConvertEventToInformation("war_declared", 3, map[string]float64{"severity": 0.9})

	require.NotEmpty(t, got)
	assert.EqualValues(t, 2, got[0].packet.Originator, "originator is the source owner")
	assert.EqualValues(t, 2, got[0].nation)
}

func TestDeliveryPublishedOnBus(t *testing.T) {
	clock := calendar.NewClock(calendar.NewDate(1444, 1, 1))
	b := bus.New()
	var deliveries []Delivery
	b.Subscribe(TopicDelivered, func(payload any) {
		if d, ok := payload.(Delivery); ok {
			deliveries = append(deliveries, d)
		}
	})

	e := NewEngine(lineMap(), clock, b, nil)
	p := info.New(info.MilitaryAction, 1, 1, 0.5, "muster", clock.Now())
	e.InjectInformation(p)

	require.NotEmpty(t, deliveries)
	assert.Equal(t, p.ID, deliveries[0].Packet.ID)
}

func TestPropagationPath(t *testing.T) {
	clock := calendar.NewClock(calendar.NewDate(1444, 1, 1))
	e := NewEngine(lineMap(), clock, nil, nil)

	path, ok := e.PropagationPath(1, 3)
	require.True(t, ok)
	assert.Equal(t, []world.ProvinceID{1, 2, 3}, path)

	_, ok = e.PropagationPath(1, 99)
	assert.False(t, ok)
}

func TestIntelligenceBonusSpeedsDelivery(t *testing.T) {
	run := func(bonus float64) int {
		clock := calendar.NewClock(calendar.NewDate(1444, 1, 1))
		arrival := -1
		e := NewEngine(lineMap(), clock, nil, func(p *info.Packet, n world.NationID) {
			if n == 2 {
				arrival = p.EventOccurred.DaysUntil(clock.Now())
			}
		})
		if bonus > 0 {
			e.SetIntelligenceBonus(2, 1, bonus)
		}
		p := info.New(info.MilitaryAction, 1, 1, 0.0, "quiet muster", clock.Now())
		e.InjectInformation(p)
		for i := 0; i < 60 && e.QueueLen() > 0; i++ {
			clock.Advance(1)
			e.ProcessPropagationQueue()
		}
		return arrival
	}

	slow := run(0)
	fast := run(2.0)
	require.Positive(t, slow)
	require.Positive(t, fast)
	assert.Less(t, fast, slow, "spy networks shorten travel time")
}
