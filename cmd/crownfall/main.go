// Command crownfall runs the information propagation and AI decision
// pipeline over a generated province map.
package main

import (
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/talgya/crownfall/internal/api"
	"github.com/talgya/crownfall/internal/attention"
	"github.com/talgya/crownfall/internal/bus"
	"github.com/talgya/crownfall/internal/calendar"
	"github.com/talgya/crownfall/internal/config"
	"github.com/talgya/crownfall/internal/director"
	"github.com/talgya/crownfall/internal/info"
	"github.com/talgya/crownfall/internal/persistence"
	"github.com/talgya/crownfall/internal/propagation"
	"github.com/talgya/crownfall/internal/world"
)

// randomEvents is the pool the ambient event generator draws from. Weighted
// toward the mundane so critical news stays rare.
var randomEvents = []struct {
	eventType string
	weight    int
}{
	{"trade_disruption", 4},
	{"economic_crisis", 4},
	{"religious_event", 3},
	{"cultural_shift", 3},
	{"technology_advance", 2},
	{"treaty_signed", 2},
	{"rebellion", 1},
	{"plague_outbreak", 1},
	{"war_declared", 1},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	slog.Info("Crownfall — information propagation pipeline")

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	// ── Database ──────────────────────────────────────────────────────
	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.DBPath)

	// ── World Map (deterministic from seed) ──────────────────────────
	slog.Info("generating province map...")
	gen := world.DefaultGenConfig()
	gen.Seed = seed
	gen.Width = cfg.MapWidth
	gen.Height = cfg.MapHeight
	gen.NationCount = cfg.NationCount
	atlas := world.Generate(gen)

	for t, c := range world.TerrainCounts(atlas) {
		slog.Info("terrain", "type", world.TerrainName(t), "count", c)
	}
	slog.Info("world ready", "provinces", atlas.ProvinceCount(), "nations", len(atlas.Realms))

	// ── Pipeline ─────────────────────────────────────────────────────
	clock := calendar.NewClock(calendar.NewDate(1444, 1, 1))
	events := bus.New()

	att := attention.NewManager()
	dir := director.NewDirector(att, clock)
	dir.SetFrameBudget(cfg.FrameBudget)
	dir.SetMaxActorsPerFrame(cfg.MaxActorsPerFrame)
	dir.SetMaxMessagesPerActor(cfg.MaxMessagesPerActor)

	engine := propagation.NewEngine(atlas, clock, events, func(p *info.Packet, nation world.NationID) {
		if err := db.RecordDelivery(p, nation, clock.Now()); err != nil {
			slog.Warn("delivery journal write failed", "error", err)
		}
		dir.HandleDelivery(p, nation)
	})
	engine.SetPropagationSpeedMultiplier(cfg.PropagationSpeed)
	engine.SetAccuracyDegradationRate(cfg.DegradationRate)
	engine.SetMaxPropagationDistance(cfg.MaxDistance)

	events.Subscribe(propagation.TopicDelivered, func(payload any) {
		d, ok := payload.(propagation.Delivery)
		if !ok {
			return
		}
		slog.Debug("news arrived",
			"nation", d.Nation, "type", info.TypeName(d.Packet.Type),
			"accuracy", fmt.Sprintf("%.2f", d.Packet.Accuracy),
			"hops", d.Packet.HopCount)
	})

	// ── Actors ───────────────────────────────────────────────────────
	archetypes := []attention.Archetype{
		attention.Conqueror, attention.Diplomat, attention.Merchant,
		attention.Scholar, attention.Builder, attention.Zealot,
		attention.Tyrant, attention.Reformer, attention.WarriorKing,
	}
	nations := atlas.Nations()
	for _, id := range nations {
		realm := atlas.Realms[id]
		arch := archetypes[rng.Intn(len(archetypes))]
		dir.RegisterNation(id, realm.Name, arch)
		slog.Info("nation actor", "nation", id, "name", realm.Name,
			"archetype", attention.ArchetypeName(arch))
	}

	// Seed a few rivalries and alliances so special interests fire.
	for i := 0; i+1 < len(nations) && i < 4; i += 2 {
		a, b := attention.ActorID(nations[i]), attention.ActorID(nations[i+1])
		if i%4 == 0 {
			att.SetRivalry(a, b)
		} else {
			att.SetAlliance(a, b)
		}
	}

	// Rivals also run spies on each other: faster, more reliable news.
	if len(nations) >= 2 {
		engine.SetIntelligenceBonus(nations[0], nations[1], 0.5)
		engine.SetIntelligenceBonus(nations[1], nations[0], 0.5)
	}

	// ── Director upkeep ──────────────────────────────────────────────
	if err := dir.Start(); err != nil {
		slog.Error("director start failed", "error", err)
		os.Exit(1)
	}
	dir.QueueBackgroundTask(func() {
		for _, line := range dir.PerformanceReport() {
			slog.Debug("report", "line", line)
		}
	})

	// ── HTTP API ──────────────────────────────────────────────────────
	if cfg.AdminKey == "" {
		slog.Warn("CROWNFALL_ADMIN_KEY not set — admin POST endpoints will be disabled")
	}
	server := &api.Server{
		Atlas:     atlas,
		Clock:     clock,
		Engine:    engine,
		Attention: att,
		Director:  dir,
		DB:        db,
		Port:      cfg.HTTPPort,
		AdminKey:  cfg.AdminKey,
	}
	server.Start()

	// ── Run ───────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	fmt.Printf("\nCrownfall is live: %d provinces, %d nations, seed %d.\n",
		atlas.ProvinceCount(), len(atlas.Realms), seed)
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.HTTPPort)
	fmt.Println("Running... (Ctrl+C to stop)")

	provinces := make([]world.ProvinceID, 0, atlas.ProvinceCount())
	for id := range atlas.Provinces {
		provinces = append(provinces, id)
	}

	ticker := time.NewTicker(cfg.TickInterval)
	defer ticker.Stop()

	days := 0
loop:
	for {
		select {
		case sig := <-sigCh:
			slog.Info("received signal, shutting down", "signal", sig)
			break loop
		case <-ticker.C:
			clock.Advance(1)
			days++

			// Ambient events keep news flowing through the world.
			if rng.Float64() < 0.3 && len(provinces) > 0 {
				ev := pickEvent(rng)
				src := provinces[rng.Intn(len(provinces))]
				engine.ConvertEventToInformation(ev, src, map[string]float64{
					"severity": 0.3 + rng.Float64()*0.7,
				})
				if err := db.RecordEvent(clock.Now(), ev, src, "ambient event"); err != nil {
					slog.Warn("event journal write failed", "error", err)
				}
			}

			engine.ProcessPropagationQueue()

			if days%cfg.SnapshotEveryDays == 0 {
				if err := db.SnapshotStats(clock.Now(),
					engine.Statistics(), att.Stats(), dir.Snapshot()); err != nil {
					slog.Warn("stats snapshot failed", "error", err)
				}
				// A year of journal history is plenty.
				if old := clock.Now().DayNumber() - calendar.DaysPerYear; old > 0 {
					if err := db.PruneDeliveries(old); err != nil {
						slog.Warn("journal prune failed", "error", err)
					}
				}
			}
		}
	}

	// ── Shutdown ──────────────────────────────────────────────────────
	if err := dir.Stop(); err != nil {
		slog.Warn("director stop", "error", err)
	}
	if err := db.SnapshotStats(clock.Now(), engine.Statistics(), att.Stats(), dir.Snapshot()); err != nil {
		slog.Warn("final snapshot failed", "error", err)
	}
	if err := db.SaveMeta("last_day", fmt.Sprintf("%d", clock.Now().DayNumber())); err != nil {
		slog.Warn("meta save failed", "error", err)
	}

	stats := engine.Statistics()
	fmt.Printf("Stopped after %d game days: %d packets created, %d delivered, %d decisions.\n",
		days, stats.PacketsCreated, stats.PacketsDelivered, dir.Snapshot().TotalDecisions)
}

func pickEvent(rng *rand.Rand) string {
	total := 0
	for _, e := range randomEvents {
		total += e.weight
	}
	n := rng.Intn(total)
	for _, e := range randomEvents {
		n -= e.weight
		if n < 0 {
			return e.eventType
		}
	}
	return randomEvents[0].eventType
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
