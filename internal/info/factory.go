package info

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/talgya/crownfall/internal/calendar"
	"github.com/talgya/crownfall/internal/world"
)

// New builds a packet with full accuracy at the source. Severity is clamped
// to [0,1]; the hop fields start empty.
func New(t Type, source world.ProvinceID, originator world.NationID, severity float64, desc string, now calendar.Date) *Packet {
	return &Packet{
		ID:             uuid.New(),
		Type:           t,
		BaseRelevance:  DefaultRelevance(t),
		SourceProvince: source,
		Originator:     originator,
		Description:    desc,
		Severity:       clamp01(severity),
		Accuracy:       1.0,
		EventOccurred:  now,
		PacketCreated:  now,
		Numeric:        make(map[string]float64),
		Text:           make(map[string]string),
	}
}

// FromMilitaryEvent builds a military-action packet from a battle or war
// event payload.
func FromMilitaryEvent(source world.ProvinceID, aggressor world.NationID, data map[string]float64, now calendar.Date) *Packet {
	p := New(MilitaryAction, source, aggressor,
		SeverityFromData(MilitaryAction, data),
		fmt.Sprintf("Military action near %d", source), now)
	for k, v := range data {
		p.Numeric[k] = v
	}
	return p
}

// FromDiplomaticEvent builds a diplomatic-change packet. The source province
// is the acting nation's capital; callers resolve it from the atlas.
func FromDiplomaticEvent(capital world.ProvinceID, nation world.NationID, change string, now calendar.Date) *Packet {
	p := New(DiplomaticChange, capital, nation,
		defaultSeverity[DiplomaticChange],
		fmt.Sprintf("Diplomatic change: %s", change), now)
	p.Text["change"] = change
	return p
}

// FromEconomicEvent builds an economic-crisis packet with explicit severity.
func FromEconomicEvent(source world.ProvinceID, severity float64, desc string, now calendar.Date) *Packet {
	return New(EconomicCrisis, source, 0, severity, desc, now)
}

// FromSuccessionCrisis builds a succession-crisis packet naming the claimant.
func FromSuccessionCrisis(capital world.ProvinceID, nation world.NationID, claimant string, now calendar.Date) *Packet {
	p := New(SuccessionCrisis, capital, nation,
		defaultSeverity[SuccessionCrisis],
		fmt.Sprintf("Succession crisis: %s presses a claim", claimant), now)
	p.Text["claimant"] = claimant
	return p
}
