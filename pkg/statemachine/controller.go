// Package statemachine implements a flat, single-active-state machine with a
// bounded history of exited states and broadcast lifecycle notifications.
//
// The controller enforces no transition table: any state may follow any
// other except itself. Domain legality is left to whoever calls SwitchState,
// usually observers reacting to the controller's notifications.
//
// A Controller is driven from a single update loop and is not safe for
// concurrent use.
package statemachine

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// DefaultHistoryLength is the history capacity used by NewConfig.
const DefaultHistoryLength = 5

var (
	// ErrAlreadyInitialized is returned by Initialize once the controller is active.
	ErrAlreadyInitialized = errors.New("state machine already initialized")
	// ErrNoInitialState is returned by Initialize when no initial state is configured.
	ErrNoInitialState = errors.New("state machine has no initial state")
)

// Config holds controller settings consumed before Initialize.
type Config[S comparable] struct {
	Owner         string // name used in diagnostics
	InitialState  S
	HistoryLength int
	Debug         bool
}

// NewConfig returns a Config with the default history length.
func NewConfig[S comparable](owner string, initial S) Config[S] {
	return Config[S]{
		Owner:         owner,
		InitialState:  initial,
		HistoryLength: DefaultHistoryLength,
	}
}

// TickEvent is the payload of the tick channel.
type TickEvent[S comparable] struct {
	DeltaTime float64
	State     S
}

// Option customizes a Controller.
type Option func(*options)

type options struct {
	log *zap.Logger
}

// WithLogger sets the diagnostic sink. Lines are only written while debug is enabled.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// Controller owns the current state, its history and four notification channels.
type Controller[S comparable] struct {
	owner       string
	current     S
	initial     S
	tickEnabled bool
	initialized bool
	debug       bool
	history     *History[S]
	log         *zap.Logger

	// set while a transition is in flight; SwitchState calls made from
	// callbacks during that window land in pending.
	switching  bool
	pending    S
	hasPending bool

	onInit    Channel[S]
	onEnd     Channel[S]
	onChanged Channel[S]
	onTick    Channel[TickEvent[S]]
}

// New creates an inactive controller. Call Initialize to enter the initial state.
func New[S comparable](cfg Config[S], opts ...Option) *Controller[S] {
	o := options{log: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Controller[S]{
		owner:   cfg.Owner,
		initial: cfg.InitialState,
		debug:   cfg.Debug,
		history: NewHistory[S](cfg.HistoryLength),
		log:     o.log,
	}
}

// Initialize performs the first transition into the configured initial state.
// No end notification is sent for the uninitialized state and nothing is
// recorded into the history.
func (c *Controller[S]) Initialize() error {
	if c.initialized {
		return ErrAlreadyInitialized
	}
	var zero S
	if c.initial == zero {
		return ErrNoInitialState
	}
	c.SwitchState(c.initial)
	return nil
}

// SwitchState transitions to target and reports whether it was accepted.
//
// A request for the current state is rejected. Otherwise the outgoing state
// is recorded in the history and end, init and changed are broadcast in that
// order. Requests made from a callback while a transition is in flight are
// checked against the state current at the time of the call and, if
// accepted, deferred until the transition completes; only the last such
// request is kept.
func (c *Controller[S]) SwitchState(target S) bool {
	if target == c.current {
		c.rejected(target)
		return false
	}
	if c.switching {
		c.pending, c.hasPending = target, true
		return true
	}

	c.transition(target)
	for c.hasPending {
		next := c.pending
		var zero S
		c.pending, c.hasPending = zero, false
		if next == c.current {
			c.rejected(next)
			continue
		}
		c.transition(next)
	}
	return true
}

func (c *Controller[S]) transition(target S) {
	c.switching = true
	completed := false
	defer func() {
		c.switching = false
		if !completed {
			// a callback panicked: resume ticking and drop queued requests
			var zero S
			c.tickEnabled = c.initialized
			c.pending, c.hasPending = zero, false
		}
	}()

	// the outgoing state must not tick once it has started ending
	c.tickEnabled = false

	prev := c.current
	wasActive := c.initialized
	if wasActive {
		c.history.Push(prev)
		c.onEnd.Broadcast(prev)
	}

	c.current = target
	c.initialized = true
	c.onInit.Broadcast(target)
	c.tickEnabled = true

	c.onChanged.Broadcast(target)
	completed = true

	if c.debug {
		if wasActive {
			c.log.Debug("state switched",
				zap.String("owner", c.owner),
				stateField("from", prev),
				stateField("to", target))
		} else {
			c.log.Debug("state initialized",
				zap.String("owner", c.owner),
				stateField("state", target))
		}
	}
}

func (c *Controller[S]) rejected(target S) {
	if !c.debug {
		return
	}
	c.log.Warn("could not switch state, already in it",
		zap.String("owner", c.owner),
		stateField("state", target))
}

// Tick broadcasts (deltaTime, current state) to tick subscribers unless a
// transition is in flight or the controller has not been initialized.
func (c *Controller[S]) Tick(deltaTime float64) {
	if c.tickEnabled {
		c.onTick.Broadcast(TickEvent[S]{DeltaTime: deltaTime, State: c.current})
	}
	if c.debug {
		c.traceFrame()
	}
}

func (c *Controller[S]) traceFrame() {
	c.log.Debug("current state",
		zap.String("owner", c.owner),
		stateField("state", c.current))
	for i, s := range c.history.Items() {
		c.log.Debug("history",
			zap.String("owner", c.owner),
			zap.Int("index", i),
			stateField("state", s))
	}
}

// OnInit registers fn to run after a new state is installed.
func (c *Controller[S]) OnInit(fn func(state S)) Subscription {
	return c.onInit.Subscribe(fn)
}

// OnEnd registers fn to run for the outgoing state before the new one is installed.
func (c *Controller[S]) OnEnd(fn func(state S)) Subscription {
	return c.onEnd.Subscribe(fn)
}

// OnChanged registers fn to run once a transition has completed.
func (c *Controller[S]) OnChanged(fn func(state S)) Subscription {
	return c.onChanged.Subscribe(fn)
}

// OnTick registers fn to run on every Tick while ticking is enabled.
func (c *Controller[S]) OnTick(fn func(deltaTime float64, state S)) Subscription {
	if fn == nil {
		return Subscription{}
	}
	return c.onTick.Subscribe(func(e TickEvent[S]) { fn(e.DeltaTime, e.State) })
}

// Subscribers returns the number of callbacks registered on a channel.
func (c *Controller[S]) Subscribers(kind Kind) int {
	switch kind {
	case KindInit:
		return c.onInit.Len()
	case KindEnd:
		return c.onEnd.Len()
	case KindChanged:
		return c.onChanged.Len()
	case KindTick:
		return c.onTick.Len()
	}
	return 0
}

// Release drops every subscriber and any deferred request. The owner calls it
// when it is destroyed.
func (c *Controller[S]) Release() {
	c.onInit.Clear()
	c.onEnd.Clear()
	c.onChanged.Clear()
	c.onTick.Clear()
	var zero S
	c.pending, c.hasPending = zero, false
}

// State returns the active state, or the zero value before initialization.
func (c *Controller[S]) State() S { return c.current }

// InitialState returns the configured initial state.
func (c *Controller[S]) InitialState() S { return c.initial }

// History returns the exited states, oldest first.
func (c *Controller[S]) History() []S { return c.history.Items() }

// PreviousState returns the most recently exited state.
func (c *Controller[S]) PreviousState() (S, bool) { return c.history.Last() }

// HistoryCapacity returns the configured history length.
func (c *Controller[S]) HistoryCapacity() int { return c.history.Cap() }

// TickEnabled reports whether Tick currently broadcasts.
func (c *Controller[S]) TickEnabled() bool { return c.tickEnabled }

// Initialized reports whether the first transition has happened.
func (c *Controller[S]) Initialized() bool { return c.initialized }

// Owner returns the owner name used in diagnostics.
func (c *Controller[S]) Owner() string { return c.owner }

// Debug reports whether diagnostics are enabled.
func (c *Controller[S]) Debug() bool { return c.debug }

// SetDebug toggles diagnostics. It has no effect on state semantics.
func (c *Controller[S]) SetDebug(enabled bool) { c.debug = enabled }

func stateField[S comparable](key string, s S) zap.Field {
	return zap.String(key, fmt.Sprint(s))
}
