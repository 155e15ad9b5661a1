// Package player implements the platformer character that owns a state
// controller. Movement rules live here as controller observers and in the
// script brain; the controller itself only sequences transitions.
package player

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Faultbox/platformer2d/internal/config"
	"github.com/Faultbox/platformer2d/internal/script"
	"github.com/Faultbox/platformer2d/internal/timer"
	"github.com/Faultbox/platformer2d/pkg/gameplaytag"
	"github.com/Faultbox/platformer2d/pkg/statemachine"
)

// Player states.
var (
	Idle       = gameplaytag.MustParse("PlayerState.Idle")
	Run        = gameplaytag.MustParse("PlayerState.Run")
	Jump       = gameplaytag.MustParse("PlayerState.Jump")
	DoubleJump = gameplaytag.MustParse("PlayerState.DoubleJump")
	Fall       = gameplaytag.MustParse("PlayerState.Fall")
	Dash       = gameplaytag.MustParse("PlayerState.Dash")
	WallSlide  = gameplaytag.MustParse("PlayerState.WallSlide")
)

// Timer names, also visible to scripts through timer(name).
const (
	TimerCoyote       = "coyote"
	TimerJumpBuffer   = "jump_buffer"
	TimerDash         = "dash"
	TimerDashCooldown = "dash_cooldown"
	TimerWallJump     = "wall_jump"
)

// ErrNotStarted is returned by Tick before BeginPlay.
var ErrNotStarted = errors.New("player: character not started")

// Input is one frame of controls plus what the collision layer reports.
type Input struct {
	Move      float64 // -1..1
	Jump      bool    // pressed this frame
	Dash      bool    // pressed this frame
	Grounded  bool
	Wall      bool
	VelocityY float64 // positive is up
}

// Tuning holds the movement constants in seconds.
type Tuning struct {
	MaxJumps         int
	CoyoteTime       float64
	JumpBuffer       float64
	DashDuration     float64
	DashCooldown     float64
	WallJumpCooldown float64
}

// TuningFrom converts the player config section.
func TuningFrom(cfg config.PlayerConfig) Tuning {
	return Tuning{
		MaxJumps:         cfg.MaxJumps,
		CoyoteTime:       cfg.CoyoteTime.Seconds(),
		JumpBuffer:       cfg.JumpBuffer.Seconds(),
		DashDuration:     cfg.DashDuration.Seconds(),
		DashCooldown:     cfg.DashCooldown.Seconds(),
		WallJumpCooldown: cfg.WallJumpCooldown.Seconds(),
	}
}

// Character is a controllable entity with its own state controller, timers
// and brain.
type Character struct {
	ID     uuid.UUID
	Name   string
	FSM    *statemachine.Controller[gameplaytag.Tag]
	Timers *timer.Manager
	Tuning Tuning

	brain          *script.Brain
	input          Input
	jumpsRemaining int
	stateTime      float64
	lastEnded      gameplaytag.Tag
	log            *zap.Logger
}

// NewCharacter creates a character driven by brain. A nil brain leaves all
// transitions to the caller.
func NewCharacter(name string, cfg *config.Config, brain *script.Brain, log *zap.Logger) *Character {
	if log == nil {
		log = zap.NewNop()
	}
	id := uuid.New()
	log = log.With(zap.String("player", name), zap.String("id", id.String()))

	smCfg := statemachine.NewConfig(name, cfg.StateMachine.InitialState)
	smCfg.HistoryLength = cfg.StateMachine.HistoryLength
	smCfg.Debug = cfg.StateMachine.Debug

	c := &Character{
		ID:     id,
		Name:   name,
		FSM:    statemachine.New(smCfg, statemachine.WithLogger(log)),
		Timers: timer.NewManager(),
		Tuning: TuningFrom(cfg.Player),
		brain:  brain,
		log:    log,
	}
	c.jumpsRemaining = c.Tuning.MaxJumps

	c.FSM.OnInit(c.onInit)
	c.FSM.OnEnd(c.onEnd)
	c.FSM.OnChanged(c.onChanged)
	c.FSM.OnTick(c.onTick)

	return c
}

// BeginPlay enters the initial state.
func (c *Character) BeginPlay() error {
	if err := c.FSM.Initialize(); err != nil {
		return fmt.Errorf("%s: %w", c.Name, err)
	}
	c.log.Info("character spawned", zap.Stringer("state", c.FSM.State()))
	return nil
}

// Tick runs one frame: timers, then the brain, then the controller tick.
func (c *Character) Tick(dt float64, in Input) error {
	if !c.FSM.Initialized() {
		return ErrNotStarted
	}
	c.input = in

	c.Timers.Advance(dt)

	if in.Jump && !in.Grounded && !c.CanJump() {
		c.Timers.Set(TimerJumpBuffer, c.Tuning.JumpBuffer, nil)
	}

	if c.brain != nil {
		next, err := c.brain.Decide(c)
		if err != nil {
			return fmt.Errorf("%s: %w", c.Name, err)
		}
		if next.IsValid() && next != c.FSM.State() {
			c.FSM.SwitchState(next)
		}
	}

	c.FSM.Tick(dt)
	return nil
}

// EndPlay detaches every observer and stops all timers.
func (c *Character) EndPlay() {
	c.FSM.Release()
	c.Timers.Reset()
	c.log.Info("character removed")
}

// JumpsRemaining returns the air jumps left before landing.
func (c *Character) JumpsRemaining() int {
	return c.jumpsRemaining
}

// SetDebug toggles controller diagnostics.
func (c *Character) SetDebug(enabled bool) {
	c.FSM.SetDebug(enabled)
}

func (c *Character) onInit(state gameplaytag.Tag) {
	c.stateTime = 0
	from := c.lastEnded
	c.lastEnded = gameplaytag.None

	switch state {
	case Idle, Run:
		c.jumpsRemaining = c.Tuning.MaxJumps
		c.Timers.Clear(TimerCoyote)
	case Fall:
		if from == Idle || from == Run {
			c.Timers.Set(TimerCoyote, c.Tuning.CoyoteTime, c.coyoteExpired)
		}
	case Jump:
		c.Timers.Clear(TimerJumpBuffer)
		switch {
		case from == WallSlide:
			c.Timers.Set(TimerWallJump, c.Tuning.WallJumpCooldown, nil)
		case c.input.Grounded || c.Timers.Active(TimerCoyote):
			c.Timers.Clear(TimerCoyote)
			c.jumpsRemaining = c.Tuning.MaxJumps - 1
		default:
			c.consumeJump()
		}
	case DoubleJump:
		c.Timers.Clear(TimerJumpBuffer)
		c.Timers.Clear(TimerCoyote)
		c.consumeJump()
	case Dash:
		c.Timers.Set(TimerDash, c.Tuning.DashDuration, c.dashFinished)
	}
}

func (c *Character) onEnd(state gameplaytag.Tag) {
	c.lastEnded = state
	if state == Dash {
		c.Timers.Clear(TimerDash)
		c.Timers.Set(TimerDashCooldown, c.Tuning.DashCooldown, nil)
	}
}

func (c *Character) onChanged(state gameplaytag.Tag) {
	c.log.Debug("state changed", zap.Stringer("state", state), zap.Int("jumps", c.jumpsRemaining))
}

func (c *Character) onTick(dt float64, _ gameplaytag.Tag) {
	c.stateTime += dt
}

func (c *Character) consumeJump() {
	if c.jumpsRemaining > 0 {
		c.jumpsRemaining--
	}
}

// coyoteExpired forfeits the unused ground jump.
func (c *Character) coyoteExpired() {
	if c.onGround() {
		return
	}
	if c.jumpsRemaining == c.Tuning.MaxJumps {
		c.consumeJump()
	}
}

func (c *Character) dashFinished() {
	next := Fall
	if c.input.Grounded {
		next = c.groundState()
	}
	c.FSM.SwitchState(next)
}

func (c *Character) groundState() gameplaytag.Tag {
	if c.input.Move != 0 {
		return Run
	}
	return Idle
}

func (c *Character) onGround() bool {
	s := c.FSM.State()
	return s == Idle || s == Run
}

// script.Host

// State returns the current state name.
func (c *Character) State() string {
	return c.FSM.State().String()
}

// PreviousState returns the most recent previous state name, or "".
func (c *Character) PreviousState() string {
	prev, ok := c.FSM.PreviousState()
	if !ok {
		return ""
	}
	return prev.String()
}

// History returns previous state names, oldest first.
func (c *Character) History() []string {
	items := c.FSM.History()
	out := make([]string, len(items))
	for i, t := range items {
		out[i] = t.String()
	}
	return out
}

// StateTime returns seconds spent in the current state.
func (c *Character) StateTime() float64 {
	return c.stateTime
}

// Input reports a named button. A buffered jump counts as pressed once the
// character is grounded.
func (c *Character) Input(name string) bool {
	switch name {
	case "jump":
		return c.input.Jump || (c.input.Grounded && c.Timers.Active(TimerJumpBuffer))
	case "dash":
		return c.input.Dash
	case "left":
		return c.input.Move < 0
	case "right":
		return c.input.Move > 0
	}
	return false
}

// Move returns the horizontal axis.
func (c *Character) Move() float64 { return c.input.Move }

// VelocityY returns the vertical velocity reported this frame.
func (c *Character) VelocityY() float64 { return c.input.VelocityY }

// Grounded reports whether the character stands on ground this frame.
func (c *Character) Grounded() bool { return c.input.Grounded }

// Wall reports whether the character touches a wall this frame.
func (c *Character) Wall() bool { return c.input.Wall }

// CanJump reports whether a jump request would be honoured.
func (c *Character) CanJump() bool {
	return c.jumpsRemaining > 0 || c.input.Grounded || c.FSM.State() == WallSlide
}

// CanDash reports whether a dash may start.
func (c *Character) CanDash() bool {
	return c.FSM.State() != Dash && !c.Timers.Active(TimerDashCooldown)
}

// TimerActive reports whether the named timer is armed.
func (c *Character) TimerActive(name string) bool {
	return c.Timers.Active(name)
}
