// Province map generation using layered simplex noise.
// Land cells on a jittered grid become provinces; nations grow outward from
// seeded capitals.
package world

import (
	"fmt"
	"math"
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// GenConfig holds map generation parameters.
type GenConfig struct {
	Width       int     // Grid columns
	Height      int     // Grid rows
	Spacing     float64 // Kilometers between adjacent grid cells
	Seed        int64   // Random seed (0 = random)
	SeaLevel    float64 // Elevation threshold below which cells are ocean
	MountainLvl float64 // Elevation threshold for mountain terrain
	NationCount int     // Number of nations to seed
}

// DefaultGenConfig returns a reasonable starting configuration: roughly
// 300 land provinces split across 12 nations.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Width:       24,
		Height:      18,
		Spacing:     200,
		Seed:        0,
		SeaLevel:    0.30,
		MountainLvl: 0.75,
		NationCount: 12,
	}
}

// SmallTestConfig returns a tiny map for rapid iteration.
func SmallTestConfig() GenConfig {
	return GenConfig{
		Width:       8,
		Height:      6,
		Spacing:     200,
		Seed:        42,
		SeaLevel:    0.25,
		MountainLvl: 0.80,
		NationCount: 3,
	}
}

var nationNames = []string{
	"Aldemar", "Brenwick", "Caldora", "Dunmore", "Eastveil", "Falkrath",
	"Gildenhall", "Hareth", "Ironmere", "Jorvald", "Kestwick", "Lowmark",
	"Myrren", "Northold", "Ostwyn", "Pellam",
}

var provincePrefixes = []string{
	"Ash", "Black", "Cold", "Deep", "Elm", "Fair", "Gold", "High",
	"Iron", "Long", "Mist", "North", "Oak", "Red", "Stone", "West",
}

var provinceSuffixes = []string{
	"bridge", "dale", "field", "ford", "gate", "haven", "hill", "holm",
	"march", "mere", "moor", "reach", "shire", "vale", "wick", "wood",
}

// Generate creates a province map with terrain, adjacency, and nations.
// Deterministic for a fixed seed.
func Generate(cfg GenConfig) *Map {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}

	elevNoise := opensimplex.NewNormalized(seed)
	rainNoise := opensimplex.NewNormalized(seed + 1)
	rng := rand.New(rand.NewSource(seed + 2))

	m := NewMap()

	// First pass: land cells become provinces with jittered positions.
	grid := make(map[[2]int]ProvinceID)
	nextID := ProvinceID(1)
	for row := 0; row < cfg.Height; row++ {
		for col := 0; col < cfg.Width; col++ {
			x := float64(col)
			y := float64(row)

			elev := octaveNoise(elevNoise, x, y, 4, 0.15, 0.5)
			rain := octaveNoise(rainNoise, x, y, 3, 0.12, 0.5)

			// Continental shaping: push edges below sea level.
			cx := (x - float64(cfg.Width)/2) / (float64(cfg.Width) / 2)
			cy := (y - float64(cfg.Height)/2) / (float64(cfg.Height) / 2)
			edge := 1.0 - math.Pow(math.Sqrt(cx*cx+cy*cy), 3)
			if edge < 0 {
				edge = 0
			}
			elev *= edge

			if elev < cfg.SeaLevel {
				continue // Ocean — no province.
			}

			p := &Province{
				ID:      nextID,
				Name:    provinceName(rng),
				X:       x*cfg.Spacing + (rng.Float64()-0.5)*cfg.Spacing*0.4,
				Y:       y*cfg.Spacing + (rng.Float64()-0.5)*cfg.Spacing*0.4,
				Terrain: deriveTerrain(elev, rain, cfg),
			}
			m.AddProvince(p)
			grid[[2]int{col, row}] = nextID
			nextID++
		}
	}

	// Second pass: adjacency between orthogonal grid neighbors.
	for cell, id := range grid {
		for _, d := range [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
			if nid, ok := grid[[2]int{cell[0] + d[0], cell[1] + d[1]}]; ok {
				m.Provinces[id].Neighbors = append(m.Provinces[id].Neighbors, nid)
			}
		}
	}

	// Coastal marking: land next to a missing grid cell borders the sea.
	for cell, id := range grid {
		for _, d := range [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
			if _, ok := grid[[2]int{cell[0] + d[0], cell[1] + d[1]}]; !ok {
				p := m.Provinces[id]
				if p.Terrain == TerrainPlains || p.Terrain == TerrainForest {
					p.Terrain = TerrainCoast
				}
				break
			}
		}
	}

	seedNations(m, cfg, rng)
	return m
}

// deriveTerrain determines terrain type from environmental parameters.
func deriveTerrain(elev, rain float64, cfg GenConfig) Terrain {
	if elev > cfg.MountainLvl {
		return TerrainMountain
	}
	if rain < 0.25 {
		return TerrainDesert
	}
	if rain > 0.55 {
		return TerrainForest
	}
	return TerrainPlains
}

// seedNations picks capitals spread across the map and grows each nation
// outward by nearest-capital assignment.
func seedNations(m *Map, cfg GenConfig, rng *rand.Rand) {
	if len(m.Provinces) == 0 || cfg.NationCount <= 0 {
		return
	}

	// Collect province IDs in deterministic order. IDs are assigned
	// sequentially from 1, so a linear scan finds them all.
	ids := make([]ProvinceID, 0, len(m.Provinces))
	for id := ProvinceID(1); len(ids) < len(m.Provinces); id++ {
		if _, ok := m.Provinces[id]; ok {
			ids = append(ids, id)
		}
	}

	count := cfg.NationCount
	if count > len(ids) {
		count = len(ids)
	}

	// Farthest-point sampling for capitals: first capital random, each
	// subsequent one maximizes distance to existing capitals.
	capitals := []ProvinceID{ids[rng.Intn(len(ids))]}
	for len(capitals) < count {
		var best ProvinceID
		bestDist := -1.0
		for _, id := range ids {
			nearest := math.MaxFloat64
			for _, cap := range capitals {
				if d := m.Distance(id, cap); d >= 0 && d < nearest {
					nearest = d
				}
			}
			if nearest != math.MaxFloat64 && nearest > bestDist {
				bestDist = nearest
				best = id
			}
		}
		capitals = append(capitals, best)
	}

	for i, cap := range capitals {
		nid := NationID(i + 1)
		m.AddNation(&Nation{ID: nid, Name: nationNames[i%len(nationNames)], Capital: cap})
	}

	// Assign every province to its nearest capital.
	for _, id := range ids {
		bestNation := NationID(1)
		bestDist := math.MaxFloat64
		for i, cap := range capitals {
			if d := m.Distance(id, cap); d >= 0 && d < bestDist {
				bestDist = d
				bestNation = NationID(i + 1)
			}
		}
		m.Provinces[id].Owner = bestNation
	}
}

func provinceName(rng *rand.Rand) string {
	return fmt.Sprintf("%s%s",
		provincePrefixes[rng.Intn(len(provincePrefixes))],
		provinceSuffixes[rng.Intn(len(provinceSuffixes))])
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}

// TerrainCounts returns a summary of terrain type distribution.
func TerrainCounts(m *Map) map[Terrain]int {
	counts := make(map[Terrain]int)
	for _, p := range m.Provinces {
		counts[p.Terrain]++
	}
	return counts
}
