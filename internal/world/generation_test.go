package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateDeterministic(t *testing.T) {
	cfg := SmallTestConfig()
	a := Generate(cfg)
	b := Generate(cfg)

	require.Equal(t, a.ProvinceCount(), b.ProvinceCount())
	for id, pa := range a.Provinces {
		pb := b.Provinces[id]
		require.NotNil(t, pb, "province %d missing in second map", id)
		assert.Equal(t, pa.Name, pb.Name)
		assert.Equal(t, pa.Terrain, pb.Terrain)
		assert.Equal(t, pa.Owner, pb.Owner)
		assert.Equal(t, pa.Neighbors, pb.Neighbors)
	}
}

func TestAdjacencySymmetric(t *testing.T) {
	m := Generate(SmallTestConfig())

	for id, p := range m.Provinces {
		for _, nb := range p.Neighbors {
			assert.NotEqual(t, id, nb, "province %d is its own neighbor", id)
			found := false
			for _, back := range m.Neighbors(nb) {
				if back == id {
					found = true
					break
				}
			}
			assert.True(t, found, "neighbor link %d->%d not reciprocated", id, nb)
		}
	}
}

func TestEveryProvinceOwned(t *testing.T) {
	m := Generate(SmallTestConfig())

	for id, p := range m.Provinces {
		assert.NotZero(t, p.Owner, "province %d has no owner", id)
		assert.NotNil(t, m.Realms[p.Owner], "province %d owned by unknown nation %d", id, p.Owner)
	}
}

func TestCapitalsBelongToOwner(t *testing.T) {
	m := Generate(SmallTestConfig())

	require.NotEmpty(t, m.Nations())
	for _, nid := range m.Nations() {
		cap, ok := m.Capital(nid)
		require.True(t, ok, "nation %d has no capital", nid)
		assert.Equal(t, nid, m.Owner(cap), "capital of nation %d owned by someone else", nid)
	}
}

func TestDistance(t *testing.T) {
	m := Generate(SmallTestConfig())

	var ids []ProvinceID
	for id := range m.Provinces {
		ids = append(ids, id)
		if len(ids) == 2 {
			break
		}
	}
	require.Len(t, ids, 2)

	assert.Zero(t, m.Distance(ids[0], ids[0]))
	assert.Greater(t, m.Distance(ids[0], ids[1]), 0.0)
	assert.Equal(t, -1.0, m.Distance(ids[0], ProvinceID(999999)))
}
