package persistence

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/crownfall/internal/attention"
	"github.com/talgya/crownfall/internal/calendar"
	"github.com/talgya/crownfall/internal/director"
	"github.com/talgya/crownfall/internal/info"
	"github.com/talgya/crownfall/internal/propagation"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDeliveryJournal(t *testing.T) {
	db := openTestDB(t)
	day := calendar.NewDate(1444, 2, 10)

	p := info.New(info.MilitaryAction, 7, 2, 0.8, "border raid", calendar.NewDate(1444, 2, 1))
	p.Accuracy = 0.81
	p.HopCount = 2

	require.NoError(t, db.RecordDelivery(p, 3, day))
	require.NoError(t, db.RecordDelivery(p, 5, day))

	rows, err := db.RecentDeliveries(0, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// Most recent first.
	assert.EqualValues(t, 5, rows[0].Nation)
	assert.Equal(t, p.ID.String(), rows[0].PacketID)
	assert.Equal(t, 0.81, rows[0].Accuracy)
	assert.Equal(t, 2, rows[0].Hops)
	assert.Equal(t, day.DayNumber(), rows[0].DeliveredDay)

	// Nation filter.
	rows, err = db.RecentDeliveries(3, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.EqualValues(t, 3, rows[0].Nation)
}

func TestStatsSnapshots(t *testing.T) {
	db := openTestDB(t)

	prop := propagation.Stats{PacketsCreated: 10, PacketsDelivered: 7, DroppedDistance: 2}
	filt := attention.FilterStats{TotalFilters: 20, TotalPassed: 12}
	dir := director.Metrics{TotalDecisions: 9, QueuedMessages: 3, AvgFrameMs: 1.5}

	require.NoError(t, db.SnapshotStats(calendar.NewDate(1444, 1, 30), prop, filt, dir))
	require.NoError(t, db.SnapshotStats(calendar.NewDate(1444, 2, 30), prop, filt, dir))

	rows, err := db.StatsHistory(0, 1<<30, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Less(t, rows[0].Day, rows[1].Day, "history is oldest first")
	assert.EqualValues(t, 10, rows[0].PacketsCreated)
	assert.EqualValues(t, 7, rows[0].PacketsDelivered)
	assert.EqualValues(t, 12, rows[0].FiltersPassed)
	assert.EqualValues(t, 9, rows[0].Decisions)
	assert.Equal(t, 1.5, rows[0].AvgFrameMs)
}

func TestMetaRoundTrip(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.SaveMeta("last_day", "360"))
	require.NoError(t, db.SaveMeta("last_day", "720")) // Upsert

	got, err := db.GetMeta("last_day")
	require.NoError(t, err)
	assert.Equal(t, "720", got)

	_, err = db.GetMeta("missing")
	assert.Error(t, err)
}

func TestPruneDeliveries(t *testing.T) {
	db := openTestDB(t)
	p := info.New(info.Rebellion, 1, 1, 0.5, "revolt", calendar.NewDate(1444, 1, 1))

	require.NoError(t, db.RecordDelivery(p, 1, calendar.NewDate(1444, 1, 5)))
	require.NoError(t, db.RecordDelivery(p, 2, calendar.NewDate(1445, 1, 5)))

	require.NoError(t, db.PruneDeliveries(calendar.NewDate(1445, 1, 1).DayNumber()))

	rows, err := db.RecentDeliveries(0, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.EqualValues(t, 2, rows[0].Nation)
}
