// Package config handles simulator configuration loading and management.
package config

import (
	"time"

	"github.com/Faultbox/platformer2d/pkg/gameplaytag"
)

// Config holds all simulator settings.
type Config struct {
	StateMachine StateMachineConfig `yaml:"state_machine" envPrefix:"STATE_"`
	Player       PlayerConfig       `yaml:"player" envPrefix:"PLAYER_"`
	Simulation   SimulationConfig   `yaml:"simulation" envPrefix:"SIM_"`
	Logging      LoggingConfig      `yaml:"logging" envPrefix:"LOG_"`
}

// StateMachineConfig configures every character's state controller.
type StateMachineConfig struct {
	InitialState  gameplaytag.Tag `yaml:"initial_state" env:"INITIAL"`
	HistoryLength int             `yaml:"history_length" env:"HISTORY"`
	Debug         bool            `yaml:"debug" env:"DEBUG"`
}

// PlayerConfig holds movement mechanic tuning.
type PlayerConfig struct {
	MaxJumps         int           `yaml:"max_jumps" env:"MAX_JUMPS"`
	CoyoteTime       time.Duration `yaml:"coyote_time" env:"COYOTE_TIME"`
	JumpBuffer       time.Duration `yaml:"jump_buffer" env:"JUMP_BUFFER"`
	DashDuration     time.Duration `yaml:"dash_duration" env:"DASH_DURATION"`
	DashCooldown     time.Duration `yaml:"dash_cooldown" env:"DASH_COOLDOWN"`
	WallJumpCooldown time.Duration `yaml:"wall_jump_cooldown" env:"WALL_JUMP_COOLDOWN"`
}

// SimulationConfig holds headless loop settings.
type SimulationConfig struct {
	TickRate int    `yaml:"tick_rate" env:"TICK_RATE"`           // frames per second when a frame has no dt
	Scenario string `yaml:"scenario" env:"SCENARIO"`
	Script   string `yaml:"script" env:"SCRIPT"`                 // empty uses the embedded player script
	Overlay  bool   `yaml:"overlay" env:"OVERLAY"`
	Memory   bool   `yaml:"overlay_memory" env:"OVERLAY_MEMORY"` // adds heap stats to the overlay
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level" env:"LEVEL"`
	LogFile string `yaml:"log_file" env:"FILE"`
}

// DefaultInitialState is the state every character starts in.
var DefaultInitialState = gameplaytag.MustParse("PlayerState.Idle")

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		StateMachine: StateMachineConfig{
			InitialState:  DefaultInitialState,
			HistoryLength: 5,
			Debug:         false,
		},
		Player: PlayerConfig{
			MaxJumps:         2,
			CoyoteTime:       250 * time.Millisecond,
			JumpBuffer:       100 * time.Millisecond,
			DashDuration:     500 * time.Millisecond,
			DashCooldown:     500 * time.Millisecond,
			WallJumpCooldown: 200 * time.Millisecond,
		},
		Simulation: SimulationConfig{
			TickRate: 60,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// FrameTime returns the fixed step derived from TickRate.
func (s SimulationConfig) FrameTime() float64 {
	if s.TickRate <= 0 {
		return 1.0 / 60
	}
	return 1.0 / float64(s.TickRate)
}
