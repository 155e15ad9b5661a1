package script

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/d5/tengo/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/platformer2d/pkg/gameplaytag"
)

type fakeHost struct {
	state    string
	previous string
	history  []string
	inputs   map[string]bool
	timers   map[string]bool
	move     float64
	vy       float64
	grounded bool
	wall     bool
	canJump  bool
	canDash  bool
}

func (h *fakeHost) State() string                { return h.state }
func (h *fakeHost) PreviousState() string        { return h.previous }
func (h *fakeHost) History() []string            { return h.history }
func (h *fakeHost) StateTime() float64           { return 0 }
func (h *fakeHost) Input(name string) bool       { return h.inputs[name] }
func (h *fakeHost) Move() float64                { return h.move }
func (h *fakeHost) VelocityY() float64           { return h.vy }
func (h *fakeHost) Grounded() bool               { return h.grounded }
func (h *fakeHost) Wall() bool                   { return h.wall }
func (h *fakeHost) CanJump() bool                { return h.canJump }
func (h *fakeHost) CanDash() bool                { return h.canDash }
func (h *fakeHost) TimerActive(name string) bool { return h.timers[name] }

func TestDefaultBrainDecide(t *testing.T) {
	brain, err := Default()
	require.NoError(t, err)
	assert.Equal(t, DefaultScript, brain.Name())

	tests := []struct {
		name string
		host fakeHost
		want string
	}{
		{
			name: "idle stays idle",
			host: fakeHost{state: "PlayerState.Idle", grounded: true},
			want: "",
		},
		{
			name: "move starts run",
			host: fakeHost{state: "PlayerState.Idle", grounded: true, move: 1},
			want: "PlayerState.Run",
		},
		{
			name: "run stops",
			host: fakeHost{state: "PlayerState.Run", grounded: true},
			want: "PlayerState.Idle",
		},
		{
			name: "ground jump",
			host: fakeHost{state: "PlayerState.Idle", grounded: true, canJump: true, inputs: map[string]bool{"jump": true}},
			want: "PlayerState.Jump",
		},
		{
			name: "air jump is double jump",
			host: fakeHost{state: "PlayerState.Fall", canJump: true, inputs: map[string]bool{"jump": true}},
			want: "PlayerState.DoubleJump",
		},
		{
			name: "coyote jump",
			host: fakeHost{state: "PlayerState.Fall", canJump: true, inputs: map[string]bool{"jump": true}, timers: map[string]bool{"coyote": true}},
			want: "PlayerState.Jump",
		},
		{
			name: "jump without jumps left",
			host: fakeHost{state: "PlayerState.DoubleJump", vy: 1, inputs: map[string]bool{"jump": true}},
			want: "",
		},
		{
			name: "buffered jump on landing",
			host: fakeHost{state: "PlayerState.Fall", grounded: true, canJump: true, inputs: map[string]bool{"jump": true}},
			want: "PlayerState.Jump",
		},
		{
			name: "dash",
			host: fakeHost{state: "PlayerState.Run", grounded: true, canDash: true, inputs: map[string]bool{"dash": true}},
			want: "PlayerState.Dash",
		},
		{
			name: "dash holds",
			host: fakeHost{state: "PlayerState.Dash", grounded: true, canJump: true, inputs: map[string]bool{"jump": true}},
			want: "",
		},
		{
			name: "walk off ledge",
			host: fakeHost{state: "PlayerState.Run"},
			want: "PlayerState.Fall",
		},
		{
			name: "rising jump keeps state",
			host: fakeHost{state: "PlayerState.Jump", vy: 2},
			want: "",
		},
		{
			name: "apex falls",
			host: fakeHost{state: "PlayerState.Jump", vy: 0},
			want: "PlayerState.Fall",
		},
		{
			name: "land",
			host: fakeHost{state: "PlayerState.Fall", grounded: true},
			want: "PlayerState.Idle",
		},
		{
			name: "grab wall",
			host: fakeHost{state: "PlayerState.Fall", wall: true},
			want: "PlayerState.WallSlide",
		},
		{
			name: "wall jump cooldown blocks grab",
			host: fakeHost{state: "PlayerState.Fall", wall: true, timers: map[string]bool{"wall_jump": true}},
			want: "",
		},
		{
			name: "leave wall",
			host: fakeHost{state: "PlayerState.WallSlide"},
			want: "PlayerState.Fall",
		},
		{
			name: "wall jump",
			host: fakeHost{state: "PlayerState.WallSlide", wall: true, canJump: true, inputs: map[string]bool{"jump": true}},
			want: "PlayerState.Jump",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host := tt.host
			got, err := brain.Decide(&host)
			require.NoError(t, err)
			if tt.want == "" {
				assert.Equal(t, gameplaytag.None, got)
				return
			}
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestCompileErrors(t *testing.T) {
	_, err := Compile("broken", []byte("decide := func(host) {"))
	assert.Error(t, err)

	_, err = Compile("nodecide", []byte("x := 1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decide")
}

func TestTransitionInvalidTag(t *testing.T) {
	brain, err := Compile("bad", []byte(`decide := func(host) { host.transition("not a tag") }`))
	require.NoError(t, err)

	_, err = brain.Decide(&fakeHost{})
	assert.Error(t, err)
}

func TestLastTransitionWins(t *testing.T) {
	brain, err := Compile("twice", []byte(`decide := func(host) {
	host.transition("PlayerState.Run")
	host.transition("PlayerState.Fall")
}`))
	require.NoError(t, err)

	got, err := brain.Decide(&fakeHost{})
	require.NoError(t, err)
	assert.Equal(t, "PlayerState.Fall", got.String())
}

func TestCloneDecidesLikeOriginal(t *testing.T) {
	brain, err := Default()
	require.NoError(t, err)
	clone := brain.Clone()

	host := &fakeHost{state: "PlayerState.Idle", grounded: true, move: -1}
	a, err := brain.Decide(host)
	require.NoError(t, err)
	b, err := clone.Decide(host)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, "PlayerState.Run", b.String())
}

func TestLoad(t *testing.T) {
	brain, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultScript, brain.Name())

	path := filepath.Join(t.TempDir(), "custom.tengo")
	require.NoError(t, os.WriteFile(path, []byte(`decide := func(host) { host.transition(host.previous_state()) }`), 0o644))

	brain, err = Load(path)
	require.NoError(t, err)
	got, err := brain.Decide(&fakeHost{previous: "PlayerState.Fall"})
	require.NoError(t, err)
	assert.Equal(t, "PlayerState.Fall", got.String())

	_, err = Load(filepath.Join(t.TempDir(), "missing.tengo"))
	assert.Error(t, err)
}

func TestHistoryLookup(t *testing.T) {
	brain, err := Compile("history", []byte(`decide := func(host) {
	if host.history(0) == "PlayerState.Fall" && host.history(1) == "PlayerState.Jump" && host.history(5) == "" {
		host.transition(host.history(2))
	}
}`))
	require.NoError(t, err)

	host := &fakeHost{history: []string{"PlayerState.Idle", "PlayerState.Jump", "PlayerState.Fall"}}
	got, err := brain.Decide(host)
	require.NoError(t, err)
	assert.Equal(t, "PlayerState.Idle", got.String())
}

func TestDeclareRejectsUnsupportedValue(t *testing.T) {
	s := tengo.NewScript([]byte(`x := __value`))
	err := declare(s, map[string]any{"__value": make(chan int)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "declaring __value")

	require.NoError(t, declare(s, map[string]any{"__value": 1}))
}
