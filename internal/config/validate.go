package config

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Validate checks ranges that would otherwise surface as odd gameplay.
func (c *Config) Validate() error {
	var errs []error

	if !c.StateMachine.InitialState.IsValid() {
		errs = append(errs, errors.New("state_machine.initial_state is empty or malformed"))
	}
	if c.StateMachine.HistoryLength < 0 {
		errs = append(errs, fmt.Errorf("state_machine.history_length must be >= 0, got %d", c.StateMachine.HistoryLength))
	}
	if c.Player.MaxJumps < 0 {
		errs = append(errs, fmt.Errorf("player.max_jumps must be >= 0, got %d", c.Player.MaxJumps))
	}
	durations := []struct {
		name  string
		value time.Duration
	}{
		{"player.coyote_time", c.Player.CoyoteTime},
		{"player.jump_buffer", c.Player.JumpBuffer},
		{"player.dash_duration", c.Player.DashDuration},
		{"player.dash_cooldown", c.Player.DashCooldown},
		{"player.wall_jump_cooldown", c.Player.WallJumpCooldown},
	}
	for _, d := range durations {
		if d.value < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative, got %s", d.name, d.value))
		}
	}
	if c.Simulation.TickRate < 0 {
		errs = append(errs, fmt.Errorf("simulation.tick_rate must be >= 0, got %d", c.Simulation.TickRate))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}
