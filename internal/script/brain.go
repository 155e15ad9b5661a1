// Package script runs tengo scripts that decide which state a character
// should switch to each frame.
//
// A script defines decide(host); the host map exposes read-only queries
// about the character plus transition(tag) to request a state.
package script

import (
	"embed"
	"fmt"
	"os"
	"strings"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"

	"github.com/Faultbox/platformer2d/pkg/gameplaytag"
)

//go:embed scripts/*.tengo
var scriptsFS embed.FS

// DefaultScript names the embedded player brain.
const DefaultScript = "scripts/player.tengo"

const dispatchScript = `
if __decide {
	decide(__host)
}
`

// Host is what a script can see of the character it drives.
type Host interface {
	State() string
	PreviousState() string
	History() []string
	StateTime() float64
	Input(name string) bool
	Move() float64
	VelocityY() float64
	Grounded() bool
	Wall() bool
	CanJump() bool
	CanDash() bool
	TimerActive(name string) bool
}

// Brain is a compiled script. Each character needs its own Brain (see Clone)
// because script globals live in the compiled program.
type Brain struct {
	name     string
	compiled *tengo.Compiled
	pending  gameplaytag.Tag
}

// Load compiles the script at path, or the embedded default when path is empty.
func Load(path string) (*Brain, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading script %s: %w", path, err)
	}
	return Compile(path, src)
}

// Default compiles the embedded player brain.
func Default() (*Brain, error) {
	src, err := scriptsFS.ReadFile(DefaultScript)
	if err != nil {
		return nil, err
	}
	return Compile(DefaultScript, src)
}

// Compile builds a Brain from source. A script without decide fails to
// compile since the dispatch snippet references it.
func Compile(name string, src []byte) (*Brain, error) {
	full := string(src) + "\n" + dispatchScript
	s := tengo.NewScript([]byte(full))
	if err := declare(s, map[string]any{
		"__decide": false,
		"__host":   map[string]any{},
	}); err != nil {
		return nil, fmt.Errorf("compiling script %s: %w", name, err)
	}
	s.SetImports(stdlib.GetModuleMap(stdlib.AllModuleNames()...))

	compiled, err := s.Compile()
	if err != nil {
		return nil, fmt.Errorf("compiling script %s: %w", name, err)
	}

	// run the top level once so runtime errors outside decide surface here
	if err := compiled.Run(); err != nil {
		return nil, fmt.Errorf("running script %s: %w", name, err)
	}

	return &Brain{name: name, compiled: compiled}, nil
}

// declare adds the host globals the dispatch snippet reads.
func declare(s *tengo.Script, vars map[string]any) error {
	for name, value := range vars {
		if err := s.Add(name, value); err != nil {
			return fmt.Errorf("declaring %s: %w", name, err)
		}
	}
	return nil
}

// Name returns the script path or embedded name.
func (b *Brain) Name() string {
	return b.name
}

// Clone returns an independent copy for another character.
func (b *Brain) Clone() *Brain {
	return &Brain{name: b.name, compiled: b.compiled.Clone()}
}

// Decide runs decide(host) and returns the requested state, or None when the
// script asked for nothing. If the script calls transition more than once the
// last request wins.
func (b *Brain) Decide(h Host) (gameplaytag.Tag, error) {
	b.pending = gameplaytag.None

	if err := b.compiled.Set("__decide", true); err != nil {
		return gameplaytag.None, err
	}
	if err := b.compiled.Set("__host", b.hostObject(h)); err != nil {
		return gameplaytag.None, err
	}
	if err := b.compiled.Run(); err != nil {
		return gameplaytag.None, fmt.Errorf("script %s: %w", b.name, err)
	}
	return b.pending, nil
}

func (b *Brain) hostObject(h Host) *tengo.ImmutableMap {
	values := map[string]tengo.Object{}

	values["transition"] = &tengo.UserFunction{Name: "transition", Value: func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) != 1 {
			return nil, tengo.ErrWrongNumArguments
		}
		tag, err := gameplaytag.Parse(objectAsString(args[0]))
		if err != nil {
			return nil, err
		}
		b.pending = tag
		return tengo.TrueValue, nil
	}}

	values["state"] = stringFunc("state", h.State)
	values["previous_state"] = stringFunc("previous_state", h.PreviousState)
	values["history"] = &tengo.UserFunction{Name: "history", Value: func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) != 1 {
			return nil, tengo.ErrWrongNumArguments
		}
		n, ok := tengo.ToInt(args[0])
		if !ok {
			return nil, tengo.ErrInvalidArgumentType{Name: "n", Expected: "int", Found: args[0].TypeName()}
		}
		// history(0) is the most recent previous state
		items := h.History()
		idx := len(items) - 1 - n
		if n < 0 || idx < 0 {
			return &tengo.String{Value: ""}, nil
		}
		return &tengo.String{Value: items[idx]}, nil
	}}
	values["state_time"] = floatFunc("state_time", h.StateTime)
	values["move"] = floatFunc("move", h.Move)
	values["velocity_y"] = floatFunc("velocity_y", h.VelocityY)
	values["grounded"] = boolFunc("grounded", h.Grounded)
	values["wall"] = boolFunc("wall", h.Wall)
	values["can_jump"] = boolFunc("can_jump", h.CanJump)
	values["can_dash"] = boolFunc("can_dash", h.CanDash)
	values["input"] = namedBoolFunc("input", h.Input)
	values["timer"] = namedBoolFunc("timer", h.TimerActive)

	return &tengo.ImmutableMap{Value: values}
}

func stringFunc(name string, fn func() string) *tengo.UserFunction {
	return &tengo.UserFunction{Name: name, Value: func(args ...tengo.Object) (tengo.Object, error) {
		return &tengo.String{Value: fn()}, nil
	}}
}

func floatFunc(name string, fn func() float64) *tengo.UserFunction {
	return &tengo.UserFunction{Name: name, Value: func(args ...tengo.Object) (tengo.Object, error) {
		return &tengo.Float{Value: fn()}, nil
	}}
}

func boolFunc(name string, fn func() bool) *tengo.UserFunction {
	return &tengo.UserFunction{Name: name, Value: func(args ...tengo.Object) (tengo.Object, error) {
		return boolObject(fn()), nil
	}}
}

func namedBoolFunc(name string, fn func(string) bool) *tengo.UserFunction {
	return &tengo.UserFunction{Name: name, Value: func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) != 1 {
			return nil, tengo.ErrWrongNumArguments
		}
		return boolObject(fn(objectAsString(args[0]))), nil
	}}
}

func boolObject(v bool) tengo.Object {
	if v {
		return tengo.TrueValue
	}
	return tengo.FalseValue
}

func objectAsString(obj tengo.Object) string {
	if obj == nil {
		return ""
	}
	switch v := obj.(type) {
	case *tengo.String:
		return v.Value
	default:
		return strings.Trim(v.String(), "\"")
	}
}
