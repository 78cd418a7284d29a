// Package world provides the province graph: provinces with map coordinates,
// adjacency between them, and nation ownership. The propagation core consumes
// this through the read-only Atlas interface.
package world

import "math"

// ProvinceID identifies a province. Zero is never a valid ID.
type ProvinceID uint32

// NationID identifies a nation. Zero means unowned.
type NationID uint32

// Terrain types for provinces.
type Terrain uint8

const (
	TerrainPlains   Terrain = iota // Open farmland — fast travel
	TerrainForest                  // Slows couriers
	TerrainMountain                // Passes only, slow and unreliable
	TerrainCoast                   // Sea lanes, fast message traffic
	TerrainDesert                  // Sparse routes
)

// TerrainName returns a human-readable name for a terrain type.
func TerrainName(t Terrain) string {
	switch t {
	case TerrainPlains:
		return "Plains"
	case TerrainForest:
		return "Forest"
	case TerrainMountain:
		return "Mountain"
	case TerrainCoast:
		return "Coast"
	case TerrainDesert:
		return "Desert"
	default:
		return "Unknown"
	}
}

// Province is a single territory on the map. X/Y are abstract map
// coordinates in kilometers, used only as a decay input.
type Province struct {
	ID        ProvinceID   `json:"id"`
	Name      string       `json:"name"`
	X         float64      `json:"x"`
	Y         float64      `json:"y"`
	Terrain   Terrain      `json:"terrain"`
	Owner     NationID     `json:"owner"`
	Neighbors []ProvinceID `json:"neighbors"`
}

// Nation is a realm owning one or more provinces.
type Nation struct {
	ID      NationID   `json:"id"`
	Name    string     `json:"name"`
	Capital ProvinceID `json:"capital"`
}

// Atlas is the read interface the propagation core consumes. Implementations
// must be safe for concurrent readers.
type Atlas interface {
	// Neighbors returns the adjacent province IDs, or nil for unknown provinces.
	Neighbors(id ProvinceID) []ProvinceID
	// Position returns map coordinates for a province.
	Position(id ProvinceID) (x, y float64, ok bool)
	// Owner returns the owning nation, or zero for unowned/unknown provinces.
	Owner(id ProvinceID) NationID
	// Capital returns a nation's capital province.
	Capital(n NationID) (ProvinceID, bool)
	// Nations lists all nation IDs in ascending order.
	Nations() []NationID
}

// Map is the concrete province graph. It is read-mostly: built once by
// Generate and mutated only through SetOwner.
type Map struct {
	Provinces map[ProvinceID]*Province
	Realms    map[NationID]*Nation

	nationOrder []NationID
}

// NewMap creates an empty map.
func NewMap() *Map {
	return &Map{
		Provinces: make(map[ProvinceID]*Province),
		Realms:    make(map[NationID]*Nation),
	}
}

// AddProvince inserts a province into the map.
func (m *Map) AddProvince(p *Province) {
	m.Provinces[p.ID] = p
}

// AddNation inserts a nation and keeps the nation order sorted by ID.
func (m *Map) AddNation(n *Nation) {
	if _, exists := m.Realms[n.ID]; !exists {
		i := 0
		for i < len(m.nationOrder) && m.nationOrder[i] < n.ID {
			i++
		}
		m.nationOrder = append(m.nationOrder, 0)
		copy(m.nationOrder[i+1:], m.nationOrder[i:])
		m.nationOrder[i] = n.ID
	}
	m.Realms[n.ID] = n
}

// Neighbors implements Atlas.
func (m *Map) Neighbors(id ProvinceID) []ProvinceID {
	p := m.Provinces[id]
	if p == nil {
		return nil
	}
	return p.Neighbors
}

// Position implements Atlas.
func (m *Map) Position(id ProvinceID) (float64, float64, bool) {
	p := m.Provinces[id]
	if p == nil {
		return 0, 0, false
	}
	return p.X, p.Y, true
}

// Owner implements Atlas.
func (m *Map) Owner(id ProvinceID) NationID {
	p := m.Provinces[id]
	if p == nil {
		return 0
	}
	return p.Owner
}

// Capital implements Atlas.
func (m *Map) Capital(n NationID) (ProvinceID, bool) {
	realm := m.Realms[n]
	if realm == nil {
		return 0, false
	}
	return realm.Capital, true
}

// Nations implements Atlas.
func (m *Map) Nations() []NationID {
	out := make([]NationID, len(m.nationOrder))
	copy(out, m.nationOrder)
	return out
}

// SetOwner transfers a province to a new nation. Returns false for unknown
// provinces. Callers holding a coordinate cache must invalidate it afterwards.
func (m *Map) SetOwner(id ProvinceID, owner NationID) bool {
	p := m.Provinces[id]
	if p == nil {
		return false
	}
	p.Owner = owner
	return true
}

// Distance returns the straight-line distance in map kilometers between two
// provinces, or -1 if either is unknown.
func (m *Map) Distance(a, b ProvinceID) float64 {
	pa, pb := m.Provinces[a], m.Provinces[b]
	if pa == nil || pb == nil {
		return -1
	}
	dx, dy := pa.X-pb.X, pa.Y-pb.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// ProvinceCount returns the number of provinces.
func (m *Map) ProvinceCount() int {
	return len(m.Provinces)
}
