// Package scenario loads scripted input sequences used to drive a character
// headlessly and checks the resulting state.
package scenario

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/platformer2d/internal/player"
	"github.com/Faultbox/platformer2d/pkg/gameplaytag"
)

// ErrNoFrames is returned for a scenario without frames.
var ErrNoFrames = errors.New("scenario: no frames")

// Scenario is a named list of frames plus the expected outcome.
type Scenario struct {
	Name   string  `yaml:"name"`
	Frames []Frame `yaml:"frames"`
	Expect Expect  `yaml:"expect"`
}

// Frame is one step of input. Repeat runs it several times; a zero DT uses
// the configured tick rate.
type Frame struct {
	Repeat    int     `yaml:"repeat,omitempty"`
	DT        float64 `yaml:"dt,omitempty"`
	Grounded  bool    `yaml:"grounded"`
	Wall      bool    `yaml:"wall,omitempty"`
	VelocityY float64 `yaml:"velocity_y,omitempty"`
	Input     Buttons `yaml:"input"`
}

// Buttons is the controller input of a frame.
type Buttons struct {
	Move float64 `yaml:"move,omitempty"`
	Jump bool    `yaml:"jump,omitempty"`
	Dash bool    `yaml:"dash,omitempty"`
}

// Expect is checked after the last frame. Empty fields are not checked.
type Expect struct {
	State   gameplaytag.Tag   `yaml:"state,omitempty"`
	History []gameplaytag.Tag `yaml:"history,omitempty"`
}

// MismatchError reports an expectation that did not hold.
type MismatchError struct {
	Scenario string
	Field    string
	Want     string
	Got      string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("scenario %q: %s: want %s, got %s", e.Scenario, e.Field, e.Want, e.Got)
}

// Load reads and parses a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse decodes a scenario from YAML.
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	if len(s.Frames) == 0 {
		return nil, ErrNoFrames
	}
	for i, f := range s.Frames {
		if f.Repeat < 0 {
			return nil, fmt.Errorf("frame %d: negative repeat %d", i, f.Repeat)
		}
		if f.DT < 0 {
			return nil, fmt.Errorf("frame %d: negative dt %g", i, f.DT)
		}
	}
	if s.Name == "" {
		s.Name = "unnamed"
	}
	return &s, nil
}

// Expand unrolls repeats and fills in defaultDT so every returned frame runs
// exactly once.
func (s *Scenario) Expand(defaultDT float64) []Frame {
	var out []Frame
	for _, f := range s.Frames {
		n := f.Repeat
		if n == 0 {
			n = 1
		}
		f.Repeat = 1
		if f.DT == 0 {
			f.DT = defaultDT
		}
		for i := 0; i < n; i++ {
			out = append(out, f)
		}
	}
	return out
}

// Verify compares the final state and history with the expectation.
func (s *Scenario) Verify(state gameplaytag.Tag, history []gameplaytag.Tag) error {
	if s.Expect.State.IsValid() && state != s.Expect.State {
		return &MismatchError{Scenario: s.Name, Field: "state", Want: s.Expect.State.String(), Got: state.String()}
	}
	if s.Expect.History != nil && !slices.Equal(history, s.Expect.History) {
		return &MismatchError{Scenario: s.Name, Field: "history", Want: joinTags(s.Expect.History), Got: joinTags(history)}
	}
	return nil
}

// PlayerInput converts the frame for player.Character.Tick.
func (f Frame) PlayerInput() player.Input {
	return player.Input{
		Move:      f.Input.Move,
		Jump:      f.Input.Jump,
		Dash:      f.Input.Dash,
		Grounded:  f.Grounded,
		Wall:      f.Wall,
		VelocityY: f.VelocityY,
	}
}

func joinTags(tags []gameplaytag.Tag) string {
	names := make([]string, len(tags))
	for i, t := range tags {
		names[i] = t.String()
	}
	return "[" + strings.Join(names, " ") + "]"
}
