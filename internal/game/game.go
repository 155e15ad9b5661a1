// Package game implements the headless simulation loop that drives
// characters through a scenario.
package game

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/platformer2d/internal/config"
	"github.com/Faultbox/platformer2d/internal/debug"
	"github.com/Faultbox/platformer2d/internal/player"
	"github.com/Faultbox/platformer2d/internal/scenario"
	"github.com/Faultbox/platformer2d/internal/script"
	"github.com/Faultbox/platformer2d/pkg/gameplaytag"
	"github.com/Faultbox/platformer2d/pkg/statemachine"
)

// ErrNoPlayers is returned by Run before any Spawn.
var ErrNoPlayers = errors.New("game: no players spawned")

// Option configures a Game.
type Option func(*Game)

// WithOverlay updates o every frame and, when out is not nil, renders it
// there after each frame.
func WithOverlay(o *debug.Overlay, out io.Writer) Option {
	return func(g *Game) {
		g.overlay = o
		g.overlayOut = out
	}
}

// WithBrain uses brain instead of loading cfg.Simulation.Script.
func WithBrain(brain *script.Brain) Option {
	return func(g *Game) {
		g.brain = brain
	}
}

// Game is the main simulation instance.
type Game struct {
	cfg     *config.Config
	log     *zap.Logger
	brain   *script.Brain
	players []*player.Character
	trace   *Trace
	frame   int

	overlay    *debug.Overlay
	overlayOut io.Writer

	reloads chan *config.Config
}

// New creates a new game instance.
func New(cfg *config.Config, log *zap.Logger, opts ...Option) (*Game, error) {
	if log == nil {
		log = zap.NewNop()
	}

	g := &Game{
		cfg:     cfg,
		log:     log,
		trace:   &Trace{},
		reloads: make(chan *config.Config, 1),
	}
	for _, opt := range opts {
		opt(g)
	}

	if g.brain == nil {
		brain, err := script.Load(cfg.Simulation.Script)
		if err != nil {
			return nil, fmt.Errorf("failed to load brain: %w", err)
		}
		g.brain = brain
	}

	log.Info("game initialized",
		zap.String("script", g.brain.Name()),
		zap.Stringer("initial_state", cfg.StateMachine.InitialState),
		zap.Int("history_length", cfg.StateMachine.HistoryLength),
		zap.Bool("debug", cfg.StateMachine.Debug),
	)
	return g, nil
}

// Spawn adds a character and starts it. Its notifications are recorded in
// the trace from the initial state on.
func (g *Game) Spawn(name string) (*player.Character, error) {
	for _, p := range g.players {
		if p.Name == name {
			return nil, fmt.Errorf("game: player %q already spawned", name)
		}
	}

	p := player.NewCharacter(name, g.cfg, g.brain.Clone(), g.log.Named(name))
	g.record(p)
	if err := p.BeginPlay(); err != nil {
		p.EndPlay()
		return nil, err
	}
	g.players = append(g.players, p)
	return p, nil
}

// Players returns the spawned characters in spawn order.
func (g *Game) Players() []*player.Character {
	return g.players
}

// Reload queues cfg to be applied before the next frame. It is safe to call
// from another goroutine; only the newest pending config is kept.
func (g *Game) Reload(cfg *config.Config) {
	for {
		select {
		case g.reloads <- cfg:
			return
		default:
		}
		select {
		case <-g.reloads:
		default:
		}
	}
}

// Run plays every frame of sc against all players. It stops between frames
// when ctx is done and returns the trace recorded so far.
func (g *Game) Run(ctx context.Context, sc *scenario.Scenario) (*Trace, error) {
	if len(g.players) == 0 {
		return nil, ErrNoPlayers
	}

	frames := sc.Expand(g.cfg.Simulation.FrameTime())
	g.log.Info("starting scenario", zap.String("scenario", sc.Name), zap.Int("frames", len(frames)))

	for _, f := range frames {
		if err := ctx.Err(); err != nil {
			g.finish()
			return g.trace, err
		}
		g.drainReloads()

		if err := g.update(f); err != nil {
			g.finish()
			return g.trace, fmt.Errorf("frame %d: %w", g.frame, err)
		}

		if err := g.render(); err != nil {
			g.finish()
			return g.trace, fmt.Errorf("render error: %w", err)
		}
	}

	g.finish()
	g.log.Info("scenario finished",
		zap.String("scenario", sc.Name),
		zap.Int("frames", g.trace.Frames),
		zap.Stringer("state", g.trace.Final),
	)
	return g.trace, nil
}

// Close removes every player.
func (g *Game) Close() {
	g.log.Info("closing game")
	for _, p := range g.players {
		p.EndPlay()
	}
	g.players = nil
}

func (g *Game) update(f scenario.Frame) error {
	g.frame++
	if g.overlay != nil {
		g.overlay.BeginFrame(f.DT * 1000)
	}

	in := f.PlayerInput()
	for _, p := range g.players {
		if err := p.Tick(f.DT, in); err != nil {
			return err
		}
	}
	g.trace.Frames++
	return nil
}

func (g *Game) render() error {
	if g.overlay == nil {
		return nil
	}

	for _, p := range g.players {
		g.overlay.SetStatus(p.Name, fmt.Sprintf("%s (%.2fs) jumps=%d history=%s",
			p.FSM.State(), p.StateTime(), p.JumpsRemaining(), formatTags(p.FSM.History())))
	}

	if g.overlayOut == nil {
		return nil
	}
	return g.overlay.Render(g.overlayOut)
}

func (g *Game) drainReloads() {
	select {
	case cfg := <-g.reloads:
		g.apply(cfg)
	default:
	}
}

// apply takes over the settings that can change while running. Initial
// state and history length only affect players spawned afterwards.
func (g *Game) apply(cfg *config.Config) {
	g.cfg = cfg
	tuning := player.TuningFrom(cfg.Player)
	for _, p := range g.players {
		p.SetDebug(cfg.StateMachine.Debug)
		p.Tuning = tuning
	}
	if g.overlay != nil {
		g.overlay.Enabled = cfg.Simulation.Overlay
		g.overlay.ShowMemory = cfg.Simulation.Memory
	}
	g.log.Info("config reloaded", zap.Bool("debug", cfg.StateMachine.Debug))
}

func (g *Game) finish() {
	first := g.players[0]
	g.trace.Final = first.FSM.State()
	g.trace.History = first.FSM.History()
}

func (g *Game) record(p *player.Character) {
	add := func(kind statemachine.Kind) func(gameplaytag.Tag) {
		return func(state gameplaytag.Tag) {
			g.trace.Events = append(g.trace.Events, Event{
				Frame:  g.frame,
				Player: p.Name,
				Kind:   kind,
				State:  state,
			})
		}
	}
	p.FSM.OnInit(add(statemachine.KindInit))
	p.FSM.OnEnd(add(statemachine.KindEnd))
	p.FSM.OnChanged(add(statemachine.KindChanged))
	p.FSM.OnTick(func(float64, gameplaytag.Tag) {
		g.trace.Ticks++
	})
}

// Event is one recorded notification.
type Event struct {
	Frame  int
	Player string
	Kind   statemachine.Kind
	State  gameplaytag.Tag
}

func (e Event) String() string {
	return fmt.Sprintf("frame %4d %s %-7s %s", e.Frame, e.Player, e.Kind, e.State)
}

// Trace is what a Run observed. Final and History describe the first
// spawned player.
type Trace struct {
	Events  []Event
	Frames  int
	Ticks   int
	Final   gameplaytag.Tag
	History []gameplaytag.Tag
}

// Filter returns the events of one kind in order.
func (t *Trace) Filter(kind statemachine.Kind) []Event {
	var out []Event
	for _, e := range t.Events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// WriteTo prints one event per line followed by a summary.
func (t *Trace) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	for _, e := range t.Events {
		b.WriteString(e.String())
		b.WriteByte('\n')
	}
	b.WriteString("frames=" + strconv.Itoa(t.Frames) + " ticks=" + strconv.Itoa(t.Ticks))
	b.WriteString(" final=" + t.Final.String() + " history=" + formatTags(t.History) + "\n")

	n, err := io.WriteString(w, b.String())
	return int64(n), err
}

func formatTags(tags []gameplaytag.Tag) string {
	names := make([]string, len(tags))
	for i, t := range tags {
		names[i] = t.String()
	}
	return "[" + strings.Join(names, " ") + "]"
}
