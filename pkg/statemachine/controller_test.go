package statemachine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// recorder captures every notification as "kind:state".
type recorder struct {
	events []string
}

func (r *recorder) attach(c *Controller[string]) {
	c.OnEnd(func(s string) { r.events = append(r.events, "end:"+s) })
	c.OnInit(func(s string) { r.events = append(r.events, "init:"+s) })
	c.OnChanged(func(s string) { r.events = append(r.events, "changed:"+s) })
	c.OnTick(func(dt float64, s string) { r.events = append(r.events, fmt.Sprintf("tick:%s:%g", s, dt)) })
}

func (r *recorder) reset() { r.events = nil }

func newController(t *testing.T, initial string, history int) (*Controller[string], *recorder) {
	t.Helper()
	c := New(Config[string]{Owner: "test", InitialState: initial, HistoryLength: history})
	rec := &recorder{}
	rec.attach(c)
	return c, rec
}

func TestInitialize(t *testing.T) {
	c, rec := newController(t, "A", 5)

	assert.False(t, c.Initialized())
	assert.False(t, c.TickEnabled(), "nothing ticks before initialization")

	require.NoError(t, c.Initialize())

	assert.Equal(t, "A", c.State())
	assert.True(t, c.Initialized())
	assert.True(t, c.TickEnabled())
	assert.Empty(t, c.History(), "the uninitialized state is never recorded")
	assert.Equal(t, []string{"init:A", "changed:A"}, rec.events, "no end for the sentinel state")

	assert.ErrorIs(t, c.Initialize(), ErrAlreadyInitialized)
}

func TestInitializeWithoutInitialState(t *testing.T) {
	c, rec := newController(t, "", 5)

	assert.ErrorIs(t, c.Initialize(), ErrNoInitialState)
	assert.False(t, c.Initialized())
	assert.Empty(t, rec.events)
}

func TestSwitchStateBeforeInitializeActivates(t *testing.T) {
	c, rec := newController(t, "A", 5)

	assert.True(t, c.SwitchState("B"))
	assert.Equal(t, []string{"init:B", "changed:B"}, rec.events)
	assert.ErrorIs(t, c.Initialize(), ErrAlreadyInitialized)
}

func TestSwitchStateNoOp(t *testing.T) {
	c, rec := newController(t, "A", 5)
	require.NoError(t, c.Initialize())
	require.True(t, c.SwitchState("B"))

	history := c.History()
	rec.reset()

	assert.False(t, c.SwitchState("B"))
	assert.Equal(t, "B", c.State())
	assert.Equal(t, history, c.History())
	assert.True(t, c.TickEnabled())
	assert.Empty(t, rec.events)
}

func TestSwitchStateSameTwice(t *testing.T) {
	c, _ := newController(t, "A", 5)

	assert.True(t, c.SwitchState("A"))
	assert.False(t, c.SwitchState("A"))
	assert.Equal(t, "A", c.State())
	assert.Len(t, c.History(), 0)
}

func TestSwitchStateOrdering(t *testing.T) {
	c, rec := newController(t, "A", 5)
	require.NoError(t, c.Initialize())
	rec.reset()

	assert.True(t, c.SwitchState("B"))

	assert.Equal(t, "B", c.State())
	assert.Equal(t, []string{"A"}, c.History())
	assert.Equal(t, []string{"end:A", "init:B", "changed:B"}, rec.events)
}

func TestHistoryBound(t *testing.T) {
	c, _ := newController(t, "A", 3)
	require.NoError(t, c.Initialize())

	for _, s := range []string{"B", "C", "D", "E"} {
		require.True(t, c.SwitchState(s))
	}

	assert.Equal(t, "E", c.State())
	assert.Equal(t, []string{"B", "C", "D"}, c.History())
	assert.Equal(t, 3, c.HistoryCapacity())

	prev, ok := c.PreviousState()
	assert.True(t, ok)
	assert.Equal(t, "D", prev)
}

func TestHistoryCapacityZero(t *testing.T) {
	c, rec := newController(t, "A", 0)
	require.NoError(t, c.Initialize())
	rec.reset()

	require.True(t, c.SwitchState("B"))
	assert.Empty(t, c.History())
	assert.Equal(t, []string{"end:A", "init:B", "changed:B"}, rec.events, "end still fires without history")
}

func TestTickGating(t *testing.T) {
	c, rec := newController(t, "A", 5)

	c.Tick(0.5)
	assert.Empty(t, rec.events, "no tick before initialization")

	require.NoError(t, c.Initialize())
	rec.reset()

	c.Tick(0.016)
	assert.Equal(t, []string{"tick:A:0.016"}, rec.events)

	rec.reset()
	c.OnEnd(func(string) {
		assert.False(t, c.TickEnabled())
		c.Tick(1)
	})
	c.OnInit(func(string) {
		assert.False(t, c.TickEnabled())
		c.Tick(1)
	})
	c.OnChanged(func(string) {
		assert.True(t, c.TickEnabled())
	})

	require.True(t, c.SwitchState("B"))
	for _, e := range rec.events {
		assert.NotContains(t, e, "tick:", "outgoing or incoming state ticked mid-transition")
	}
	assert.True(t, c.TickEnabled())
}

func TestChangedWithoutSubscribers(t *testing.T) {
	c := New(NewConfig("owner", "A"))
	var order []string
	c.OnEnd(func(s string) { order = append(order, "end:"+s) })
	c.OnInit(func(s string) { order = append(order, "init:"+s) })
	require.NoError(t, c.Initialize())

	assert.Equal(t, 0, c.Subscribers(KindChanged))
	require.True(t, c.SwitchState("B"))
	assert.Equal(t, []string{"init:A", "end:A", "init:B"}, order)
	assert.Equal(t, DefaultHistoryLength, c.HistoryCapacity())
}

func TestSwitchFromCallbackIsDeferred(t *testing.T) {
	c, rec := newController(t, "Idle", 5)
	require.NoError(t, c.Initialize())
	rec.reset()

	c.OnInit(func(s string) {
		if s == "Jump" {
			assert.True(t, c.SwitchState("Fall"))
		}
	})

	require.True(t, c.SwitchState("Jump"))

	assert.Equal(t, "Fall", c.State())
	assert.Equal(t, []string{"Idle", "Jump"}, c.History())
	assert.Equal(t, []string{
		"end:Idle", "init:Jump", "changed:Jump",
		"end:Jump", "init:Fall", "changed:Fall",
	}, rec.events)
}

func TestSelfTransitionFromCallbackIsRejected(t *testing.T) {
	tests := []struct {
		name      string
		subscribe func(c *Controller[string], got *[]bool)
	}{
		{
			name: "from changed",
			subscribe: func(c *Controller[string], got *[]bool) {
				c.OnChanged(func(s string) { *got = append(*got, c.SwitchState(s)) })
			},
		},
		{
			name: "from init",
			subscribe: func(c *Controller[string], got *[]bool) {
				c.OnInit(func(s string) { *got = append(*got, c.SwitchState(c.State())) })
			},
		},
		{
			name: "from end while outgoing is current",
			subscribe: func(c *Controller[string], got *[]bool) {
				c.OnEnd(func(s string) { *got = append(*got, c.SwitchState(s)) })
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newController(t, "A", 5)
			require.NoError(t, c.Initialize())
			rec.reset()

			var got []bool
			tt.subscribe(c, &got)

			require.True(t, c.SwitchState("B"))
			assert.Equal(t, []bool{false}, got)
			assert.Equal(t, "B", c.State())
			assert.Equal(t, []string{"A"}, c.History())
			assert.Equal(t, []string{"end:A", "init:B", "changed:B"}, rec.events)
		})
	}
}

func TestPanickingCallbackLeavesControllerUsable(t *testing.T) {
	c, rec := newController(t, "A", 5)
	require.NoError(t, c.Initialize())

	c.OnEnd(func(s string) {
		if s == "A" {
			c.SwitchState("C")
		}
	})
	c.OnInit(func(s string) {
		if s == "B" {
			panic("observer failed")
		}
	})

	assert.Panics(t, func() { c.SwitchState("B") })
	assert.Equal(t, "B", c.State())
	assert.True(t, c.TickEnabled())

	rec.reset()
	c.Tick(1)
	assert.Equal(t, []string{"tick:B:1"}, rec.events)

	// the request queued before the panic is dropped
	rec.reset()
	require.True(t, c.SwitchState("D"))
	assert.Equal(t, "D", c.State())
	assert.Equal(t, []string{"A", "B"}, c.History())
	assert.Equal(t, []string{"end:B", "init:D", "changed:D"}, rec.events)
}

func TestUnsubscribe(t *testing.T) {
	c := New(NewConfig("owner", "A"))
	var calls int
	sub := c.OnTick(func(float64, string) { calls++ })
	require.NoError(t, c.Initialize())

	c.Tick(1)
	sub.Unsubscribe()
	sub.Unsubscribe()
	c.Tick(1)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, c.Subscribers(KindTick))
}

func TestRelease(t *testing.T) {
	c, rec := newController(t, "A", 5)
	require.NoError(t, c.Initialize())
	rec.reset()

	c.Release()
	for _, k := range []Kind{KindInit, KindEnd, KindChanged, KindTick} {
		assert.Equal(t, 0, c.Subscribers(k), k.String())
	}

	require.True(t, c.SwitchState("B"))
	c.Tick(1)
	assert.Empty(t, rec.events)
}

func TestDebugDiagnostics(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	c := New(Config[string]{Owner: "hero", InitialState: "A", HistoryLength: 2}, WithLogger(zap.New(core)))

	require.NoError(t, c.Initialize())
	c.SwitchState("A")
	c.Tick(1)
	assert.Equal(t, 0, logs.Len(), "diagnostics are off by default")

	c.SetDebug(true)
	assert.True(t, c.Debug())

	assert.False(t, c.SwitchState("A"))
	warn := logs.FilterLevelExact(zapcore.WarnLevel).All()
	require.Len(t, warn, 1)
	assert.Equal(t, "hero", warn[0].ContextMap()["owner"])
	assert.Equal(t, "A", warn[0].ContextMap()["state"])

	require.True(t, c.SwitchState("B"))
	switched := logs.FilterMessage("state switched").All()
	require.Len(t, switched, 1)
	assert.Equal(t, "A", switched[0].ContextMap()["from"])
	assert.Equal(t, "B", switched[0].ContextMap()["to"])

	c.Tick(1)
	assert.Equal(t, 1, logs.FilterMessage("current state").Len())
	assert.Equal(t, 1, logs.FilterMessage("history").Len())
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "init", KindInit.String())
	assert.Equal(t, "end", KindEnd.String())
	assert.Equal(t, "changed", KindChanged.String())
	assert.Equal(t, "tick", KindTick.String())
	assert.Equal(t, "unknown", Kind(99).String())
}
