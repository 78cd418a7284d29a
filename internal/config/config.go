// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every runtime knob. All fields come from the environment with
// sane defaults, so a bare binary runs a full simulation.
type Config struct {
	// HTTP API.
	HTTPPort int    `env:"CROWNFALL_PORT" envDefault:"8080"`
	AdminKey string `env:"CROWNFALL_ADMIN_KEY"` // Empty disables POST endpoints

	// Persistence.
	DBPath string `env:"CROWNFALL_DB" envDefault:"crownfall.db"`

	// Logging: debug, info, warn, error.
	LogLevel string `env:"CROWNFALL_LOG_LEVEL" envDefault:"info"`

	// World generation.
	Seed        int64 `env:"CROWNFALL_SEED" envDefault:"0"` // 0 = time-based
	MapWidth    int   `env:"CROWNFALL_MAP_WIDTH" envDefault:"24"`
	MapHeight   int   `env:"CROWNFALL_MAP_HEIGHT" envDefault:"18"`
	NationCount int   `env:"CROWNFALL_NATIONS" envDefault:"12"`

	// Simulation pacing: wall time per game day.
	TickInterval time.Duration `env:"CROWNFALL_TICK_INTERVAL" envDefault:"250ms"`

	// Propagation tuning.
	PropagationSpeed float64 `env:"CROWNFALL_PROPAGATION_SPEED" envDefault:"1.0"`
	DegradationRate  float64 `env:"CROWNFALL_DEGRADATION_RATE" envDefault:"0.1"`
	MaxDistance      float64 `env:"CROWNFALL_MAX_DISTANCE" envDefault:"5000"`

	// Decision scheduling.
	FrameBudget         time.Duration `env:"CROWNFALL_FRAME_BUDGET" envDefault:"16ms"`
	MaxActorsPerFrame   int           `env:"CROWNFALL_MAX_ACTORS_PER_FRAME" envDefault:"10"`
	MaxMessagesPerActor int           `env:"CROWNFALL_MAX_MESSAGES_PER_ACTOR" envDefault:"5"`

	// Days between persisted statistics snapshots.
	SnapshotEveryDays int `env:"CROWNFALL_SNAPSHOT_DAYS" envDefault:"30"`
}

// Load parses configuration from the environment and validates it.
func Load() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("config: port %d out of range", c.HTTPPort)
	}
	if c.MapWidth < 2 || c.MapHeight < 2 {
		return fmt.Errorf("config: map %dx%d too small", c.MapWidth, c.MapHeight)
	}
	if c.NationCount < 1 {
		return fmt.Errorf("config: need at least one nation")
	}
	if c.DegradationRate < 0 || c.DegradationRate >= 1 {
		return fmt.Errorf("config: degradation rate %.2f out of [0,1)", c.DegradationRate)
	}
	if c.PropagationSpeed <= 0 {
		return fmt.Errorf("config: propagation speed must be positive")
	}
	if c.TickInterval <= 0 || c.FrameBudget <= 0 {
		return fmt.Errorf("config: intervals must be positive")
	}
	if c.SnapshotEveryDays < 1 {
		return fmt.Errorf("config: snapshot interval must be at least one day")
	}
	return nil
}
