// Package persistence provides SQLite-based storage for the information
// pipeline: a journal of deliveries and injected events plus periodic
// statistics snapshots.
package persistence

import (
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/crownfall/internal/attention"
	"github.com/talgya/crownfall/internal/calendar"
	"github.com/talgya/crownfall/internal/director"
	"github.com/talgya/crownfall/internal/info"
	"github.com/talgya/crownfall/internal/propagation"
	"github.com/talgya/crownfall/internal/world"
)

// DB wraps a SQLite connection for pipeline journaling.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS deliveries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		packet_id TEXT NOT NULL,
		info_type INTEGER NOT NULL,
		nation INTEGER NOT NULL,
		source_province INTEGER NOT NULL,
		originator INTEGER NOT NULL,
		severity REAL NOT NULL,
		accuracy REAL NOT NULL,
		hops INTEGER NOT NULL,
		occurred_day INTEGER NOT NULL,
		delivered_day INTEGER NOT NULL,
		description TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		day INTEGER NOT NULL,
		event_type TEXT NOT NULL,
		province INTEGER NOT NULL,
		description TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS stats_snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		day INTEGER NOT NULL,
		packets_created INTEGER NOT NULL,
		packets_delivered INTEGER NOT NULL,
		dropped_distance INTEGER NOT NULL,
		filters_run INTEGER NOT NULL,
		filters_passed INTEGER NOT NULL,
		decisions INTEGER NOT NULL,
		queued_messages INTEGER NOT NULL,
		avg_frame_ms REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_deliveries_day ON deliveries(delivered_day);
	CREATE INDEX IF NOT EXISTS idx_deliveries_nation ON deliveries(nation);
	CREATE INDEX IF NOT EXISTS idx_events_day ON events(day);
	CREATE INDEX IF NOT EXISTS idx_snapshots_day ON stats_snapshots(day);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// DeliveryRow is one journaled packet delivery.
type DeliveryRow struct {
	PacketID     string  `db:"packet_id" json:"packet_id"`
	InfoType     int     `db:"info_type" json:"info_type"`
	Nation       uint32  `db:"nation" json:"nation"`
	Source       uint32  `db:"source_province" json:"source_province"`
	Originator   uint32  `db:"originator" json:"originator"`
	Severity     float64 `db:"severity" json:"severity"`
	Accuracy     float64 `db:"accuracy" json:"accuracy"`
	Hops         int     `db:"hops" json:"hops"`
	OccurredDay  int     `db:"occurred_day" json:"occurred_day"`
	DeliveredDay int     `db:"delivered_day" json:"delivered_day"`
	Description  string  `db:"description" json:"description"`
}

// RecordDelivery journals one delivery of a packet to a nation.
func (db *DB) RecordDelivery(p *info.Packet, nation world.NationID, day calendar.Date) error {
	_, err := db.conn.Exec(`INSERT INTO deliveries
		(packet_id, info_type, nation, source_province, originator,
		 severity, accuracy, hops, occurred_day, delivered_day, description)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID.String(), int(p.Type), nation, p.SourceProvince, p.Originator,
		p.Severity, p.Accuracy, p.HopCount,
		p.EventOccurred.DayNumber(), day.DayNumber(), p.Description,
	)
	if err != nil {
		return fmt.Errorf("record delivery: %w", err)
	}
	return nil
}

// RecordEvent journals one injected game event.
func (db *DB) RecordEvent(day calendar.Date, eventType string, province world.ProvinceID, description string) error {
	_, err := db.conn.Exec(
		"INSERT INTO events (day, event_type, province, description) VALUES (?, ?, ?, ?)",
		day.DayNumber(), eventType, province, description,
	)
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	return nil
}

// StatsRow is one periodic statistics snapshot.
type StatsRow struct {
	Day              int     `db:"day" json:"day"`
	PacketsCreated   uint64  `db:"packets_created" json:"packets_created"`
	PacketsDelivered uint64  `db:"packets_delivered" json:"packets_delivered"`
	DroppedDistance  uint64  `db:"dropped_distance" json:"dropped_distance"`
	FiltersRun       uint64  `db:"filters_run" json:"filters_run"`
	FiltersPassed    uint64  `db:"filters_passed" json:"filters_passed"`
	Decisions        uint64  `db:"decisions" json:"decisions"`
	QueuedMessages   int     `db:"queued_messages" json:"queued_messages"`
	AvgFrameMs       float64 `db:"avg_frame_ms" json:"avg_frame_ms"`
}

// SnapshotStats records one combined statistics snapshot for a game day.
func (db *DB) SnapshotStats(day calendar.Date, prop propagation.Stats, filt attention.FilterStats, dir director.Metrics) error {
	_, err := db.conn.Exec(`INSERT INTO stats_snapshots
		(day, packets_created, packets_delivered, dropped_distance,
		 filters_run, filters_passed, decisions, queued_messages, avg_frame_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		day.DayNumber(), prop.PacketsCreated, prop.PacketsDelivered, prop.DroppedDistance,
		filt.TotalFilters, filt.TotalPassed,
		dir.TotalDecisions, dir.QueuedMessages, dir.AvgFrameMs,
	)
	if err != nil {
		return fmt.Errorf("snapshot stats: %w", err)
	}
	return nil
}

// RecentDeliveries returns the newest deliveries, most recent first,
// optionally filtered to one nation (0 = all).
func (db *DB) RecentDeliveries(nation world.NationID, limit int) ([]DeliveryRow, error) {
	var rows []DeliveryRow
	var err error
	if nation == 0 {
		err = db.conn.Select(&rows, `SELECT packet_id, info_type, nation,
			source_province, originator, severity, accuracy, hops,
			occurred_day, delivered_day, description
			FROM deliveries ORDER BY id DESC LIMIT ?`, limit)
	} else {
		err = db.conn.Select(&rows, `SELECT packet_id, info_type, nation,
			source_province, originator, severity, accuracy, hops,
			occurred_day, delivered_day, description
			FROM deliveries WHERE nation = ? ORDER BY id DESC LIMIT ?`, nation, limit)
	}
	return rows, err
}

// StatsHistory returns snapshots in a day range, oldest first.
func (db *DB) StatsHistory(fromDay, toDay, limit int) ([]StatsRow, error) {
	var rows []StatsRow
	err := db.conn.Select(&rows, `SELECT day, packets_created, packets_delivered,
		dropped_distance, filters_run, filters_passed, decisions,
		queued_messages, avg_frame_ms
		FROM stats_snapshots WHERE day >= ? AND day <= ?
		ORDER BY day ASC LIMIT ?`, fromDay, toDay, limit)
	return rows, err
}

// SaveMeta stores a key-value pair.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM meta WHERE key = ?", key)
	return value, err
}

// PruneDeliveries deletes journal rows older than the given day, keeping the
// database bounded on long runs.
func (db *DB) PruneDeliveries(beforeDay int) error {
	res, err := db.conn.Exec("DELETE FROM deliveries WHERE delivered_day < ?", beforeDay)
	if err != nil {
		return fmt.Errorf("prune deliveries: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		slog.Debug("pruned delivery journal", "rows", n, "before_day", beforeDay)
	}
	return nil
}
