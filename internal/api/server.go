// Package api serves the information pipeline over HTTP.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/crownfall/internal/attention"
	"github.com/talgya/crownfall/internal/calendar"
	"github.com/talgya/crownfall/internal/director"
	"github.com/talgya/crownfall/internal/persistence"
	"github.com/talgya/crownfall/internal/propagation"
	"github.com/talgya/crownfall/internal/world"
)

// Server serves pipeline state over HTTP.
type Server struct {
	Atlas     *world.Map
	Clock     *calendar.Clock
	Engine    *propagation.Engine
	Attention *attention.Manager
	Director  *director.Director
	DB        *persistence.DB
	Port      int
	AdminKey  string // Bearer token for POST endpoints. Empty = POST disabled.

	started time.Time
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	s.started = time.Now()

	eventThrottle := newThrottle(120, time.Hour)

	mux := http.NewServeMux()

	// Public endpoints.
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/provinces", s.handleProvinces)
	mux.HandleFunc("/api/v1/nations", s.handleNations)
	mux.HandleFunc("/api/v1/actors", s.handleActors)
	mux.HandleFunc("/api/v1/stats", s.handleStats)
	mux.HandleFunc("/api/v1/stats/history", s.handleStatsHistory)
	mux.HandleFunc("/api/v1/deliveries", s.handleDeliveries)
	mux.HandleFunc("/api/v1/report", s.handleReport)
	mux.HandleFunc("/api/v1/path/", s.handlePath)

	// Admin endpoints.
	mux.HandleFunc("/api/v1/event", s.adminOnly(eventThrottle.wrap(s.handleEvent)))
	mux.HandleFunc("/api/v1/pause", s.adminOnly(s.handlePause))
	mux.HandleFunc("/api/v1/resume", s.adminOnly(s.handleResume))
	mux.HandleFunc("/api/v1/speed", s.adminOnly(s.handleSpeed))

	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	go func() {
		handler := corsMiddleware(mux)
		if err := http.ListenAndServe(addr, handler); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// corsMiddleware adds CORS headers for allowed frontend origins. Set
// CORS_ORIGINS to a comma-separated list; localhost dev servers are always
// allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly requires bearer token auth on POST requests. GET passes through
// for endpoints that support both.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no CROWNFALL_ADMIN_KEY set)", http.StatusForbidden)
				return
			}
			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	m := s.Director.Snapshot()
	writeJSON(w, map[string]any{
		"name":            "Crownfall",
		"date":            s.Clock.Now().String(),
		"day":             s.Clock.Now().DayNumber(),
		"director_state":  director.StateName(m.State),
		"uptime":          humanize.Time(s.started),
		"provinces":       s.Atlas.ProvinceCount(),
		"nations":         len(s.Atlas.Realms),
		"actors":          m.ActiveActors,
		"queued_messages": m.QueuedMessages,
		"in_flight":       s.Engine.QueueLen(),
	})
}

func (s *Server) handleProvinces(w http.ResponseWriter, r *http.Request) {
	type provinceSummary struct {
		ID        uint32   `json:"id"`
		Name      string   `json:"name"`
		X         float64  `json:"x"`
		Y         float64  `json:"y"`
		Terrain   string   `json:"terrain"`
		Owner     uint32   `json:"owner"`
		Neighbors []uint32 `json:"neighbors"`
		InFlight  int      `json:"in_flight"`
	}

	result := make([]provinceSummary, 0, s.Atlas.ProvinceCount())
	for _, p := range s.Atlas.Provinces {
		neighbors := make([]uint32, len(p.Neighbors))
		for i, n := range p.Neighbors {
			neighbors[i] = uint32(n)
		}
		result = append(result, provinceSummary{
			ID:        uint32(p.ID),
			Name:      p.Name,
			X:         p.X,
			Y:         p.Y,
			Terrain:   world.TerrainName(p.Terrain),
			Owner:     uint32(p.Owner),
			Neighbors: neighbors,
			InFlight:  s.Engine.ActivePropagations(p.ID),
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	writeJSON(w, result)
}

func (s *Server) handleNations(w http.ResponseWriter, r *http.Request) {
	type nationSummary struct {
		ID        uint32 `json:"id"`
		Name      string `json:"name"`
		Capital   uint32 `json:"capital"`
		Provinces int    `json:"provinces"`
	}

	counts := make(map[world.NationID]int)
	for _, p := range s.Atlas.Provinces {
		counts[p.Owner]++
	}

	var result []nationSummary
	for _, id := range s.Atlas.Nations() {
		n := s.Atlas.Realms[id]
		if n == nil {
			continue
		}
		result = append(result, nationSummary{
			ID:        uint32(n.ID),
			Name:      n.Name,
			Capital:   uint32(n.Capital),
			Provinces: counts[n.ID],
		})
	}
	writeJSON(w, result)
}

func (s *Server) handleActors(w http.ResponseWriter, r *http.Request) {
	type actorSummary struct {
		ID          uint32 `json:"id"`
		IsNation    bool   `json:"is_nation"`
		Archetype   string `json:"archetype"`
		Personality string `json:"personality"`
	}

	var result []actorSummary
	for _, id := range s.Attention.Actors() {
		profile, ok := s.Attention.ProfileOf(id)
		if !ok {
			continue
		}
		result = append(result, actorSummary{
			ID:          uint32(id),
			IsNation:    s.Attention.IsNation(id),
			Archetype:   attention.ArchetypeName(profile.Archetype),
			Personality: attention.PersonalityName(profile.Personality),
		})
	}
	writeJSON(w, result)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	prop := s.Engine.Statistics()
	filt := s.Attention.Stats()
	dir := s.Director.Snapshot()

	writeJSON(w, map[string]any{
		"propagation": map[string]any{
			"packets_created":         prop.PacketsCreated,
			"packets_propagated":      prop.PacketsPropagated,
			"packets_delivered":       prop.PacketsDelivered,
			"classification_failures": prop.ClassificationFailures,
			"dropped_irrelevant":      prop.DroppedIrrelevant,
			"dropped_distance":        prop.DroppedDistance,
			"avg_propagation_days":    prop.AvgPropagationDays,
			"avg_accuracy":            prop.AvgAccuracyAtDelivery,
			"in_flight":               s.Engine.QueueLen(),
		},
		"attention": map[string]any{
			"filters_run":     filt.TotalFilters,
			"filters_passed":  filt.TotalPassed,
			"filters_blocked": filt.TotalBlocked,
		},
		"director": map[string]any{
			"state":            director.StateName(dir.State),
			"total_frames":     humanize.Comma(int64(dir.TotalFrames)),
			"total_decisions":  humanize.Comma(int64(dir.TotalDecisions)),
			"dropped":          dir.DroppedDecisions,
			"panics":           dir.PanicRecoveries,
			"deferred":         dir.DeferredActors,
			"queued":           dir.QueuedMessages,
			"avg_frame_ms":     dir.AvgFrameMs,
			"avg_decision_ms":  dir.AvgDecisionMs,
			"actors_per_frame": dir.ActorsPerFrame,
		},
	})
}

func (s *Server) handleStatsHistory(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}

	fromDay, toDay, limit := 0, 1<<31-1, 30
	if f := r.URL.Query().Get("from"); f != "" {
		if v, err := strconv.Atoi(f); err == nil {
			fromDay = v
		}
	}
	if t := r.URL.Query().Get("to"); t != "" {
		if v, err := strconv.Atoi(t); err == nil {
			toDay = v
		}
	}
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 1000 {
			limit = v
		}
	}

	rows, err := s.DB.StatsHistory(fromDay, toDay, limit)
	if err != nil {
		slog.Error("stats history query failed", "error", err)
		writeJSON(w, []persistence.StatsRow{})
		return
	}
	if rows == nil {
		rows = []persistence.StatsRow{}
	}
	writeJSON(w, rows)
}

func (s *Server) handleDeliveries(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}

	var nation world.NationID
	if n := r.URL.Query().Get("nation"); n != "" {
		if v, err := strconv.ParseUint(n, 10, 32); err == nil {
			nation = world.NationID(v)
		}
	}
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 500 {
			limit = v
		}
	}

	rows, err := s.DB.RecentDeliveries(nation, limit)
	if err != nil {
		slog.Error("deliveries query failed", "error", err)
		writeJSON(w, []persistence.DeliveryRow{})
		return
	}
	if rows == nil {
		rows = []persistence.DeliveryRow{}
	}
	writeJSON(w, rows)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"report": s.Director.PerformanceReport()})
}

// handlePath returns the relay path between two provinces:
// GET /api/v1/path/:from/:to
func (s *Server) handlePath(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/v1/path/"), "/")
	if len(parts) != 2 {
		http.Error(w, "usage: /api/v1/path/:from/:to", http.StatusBadRequest)
		return
	}
	from, err1 := strconv.ParseUint(parts[0], 10, 32)
	to, err2 := strconv.ParseUint(parts[1], 10, 32)
	if err1 != nil || err2 != nil {
		http.Error(w, "invalid province id", http.StatusBadRequest)
		return
	}

	path, ok := s.Engine.PropagationPath(world.ProvinceID(from), world.ProvinceID(to))
	if !ok {
		http.Error(w, "no path", http.StatusNotFound)
		return
	}
	ids := make([]uint32, len(path))
	for i, p := range path {
		ids[i] = uint32(p)
	}
	writeJSON(w, map[string]any{"path": ids, "hops": len(ids) - 1})
}

// handleEvent injects a game event into the pipeline.
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		EventType string             `json:"event_type"`
		Province  uint32             `json:"province"`
		Data      map[string]float64 `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.EventType == "" {
		http.Error(w, "event_type required", http.StatusBadRequest)
		return
	}
	if s.Atlas.Provinces[world.ProvinceID(req.Province)] == nil {
		http.Error(w, "unknown province", http.StatusBadRequest)
		return
	}

	s.Engine.ConvertEventToInformation(req.EventType, world.ProvinceID(req.Province), req.Data)
	if s.DB != nil {
		desc := fmt.Sprintf("injected %s", req.EventType)
		if err := s.DB.RecordEvent(s.Clock.Now(), req.EventType, world.ProvinceID(req.Province), desc); err != nil {
			slog.Warn("event journal write failed", "error", err)
		}
	}
	writeJSON(w, map[string]string{"status": "accepted"})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	if err := s.Director.Pause(); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, map[string]string{"state": director.StateName(s.Director.State())})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	if err := s.Director.Resume(); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, map[string]string{"state": director.StateName(s.Director.State())})
}

// handleSpeed adjusts the propagation speed multiplier.
func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		var req struct {
			Speed float64 `json:"speed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Speed <= 0 || req.Speed > 100 {
			http.Error(w, "speed must be in (0, 100]", http.StatusBadRequest)
			return
		}
		s.Engine.SetPropagationSpeedMultiplier(req.Speed)
		slog.Info("propagation speed changed", "speed", req.Speed)
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", "error", err)
	}
}
