// Package gameplaytag implements dotted hierarchical tags (e.g. "PlayerState.Idle").
//
// Tags are plain comparable values, so they can be used directly as map keys
// and as state identifiers for the statemachine package. Hierarchical matching
// is offered as a capability of the tag itself.
package gameplaytag

import (
	"errors"
	"fmt"
	"strings"
)

// Separator splits tag segments.
const Separator = "."

// ErrInvalidTag is returned when a tag name is malformed.
var ErrInvalidTag = errors.New("invalid gameplay tag")

// Tag is a hierarchical name. The zero value is None.
type Tag struct {
	name string
}

// None is the empty, invalid tag.
var None = Tag{}

// Parse validates name and returns the tag for it.
func Parse(name string) (Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return None, fmt.Errorf("%w: empty name", ErrInvalidTag)
	}
	for _, seg := range strings.Split(name, Separator) {
		if seg == "" {
			return None, fmt.Errorf("%w: %q has an empty segment", ErrInvalidTag, name)
		}
		for _, r := range seg {
			if !validRune(r) {
				return None, fmt.Errorf("%w: %q contains %q", ErrInvalidTag, name, r)
			}
		}
	}
	return Tag{name: name}, nil
}

// MustParse is like Parse but panics on error. Use it for package-level tags.
func MustParse(name string) Tag {
	t, err := Parse(name)
	if err != nil {
		panic(err)
	}
	return t
}

func validRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		return true
	}
	return false
}

// IsValid reports whether t is not None.
func (t Tag) IsValid() bool {
	return t.name != ""
}

// String returns the dotted name.
func (t Tag) String() string {
	return t.name
}

// MatchesExact reports whether both tags are valid and equal.
func (t Tag) MatchesExact(other Tag) bool {
	return t.IsValid() && t == other
}

// Matches reports whether t equals parent or lives below it.
// "A.B.C" matches "A.B" and "A" but not "A.BC".
func (t Tag) Matches(parent Tag) bool {
	if !t.IsValid() || !parent.IsValid() {
		return false
	}
	if t == parent {
		return true
	}
	return strings.HasPrefix(t.name, parent.name+Separator)
}

// Parent returns the direct parent tag, or None for a root tag.
func (t Tag) Parent() Tag {
	i := strings.LastIndex(t.name, Separator)
	if i < 0 {
		return None
	}
	return Tag{name: t.name[:i]}
}

// Leaf returns the last segment ("Idle" for "PlayerState.Idle").
func (t Tag) Leaf() string {
	i := strings.LastIndex(t.name, Separator)
	return t.name[i+1:]
}

// Depth returns the number of segments. None has depth 0.
func (t Tag) Depth() int {
	if !t.IsValid() {
		return 0
	}
	return strings.Count(t.name, Separator) + 1
}

// MarshalText implements encoding.TextMarshaler.
func (t Tag) MarshalText() ([]byte, error) {
	return []byte(t.name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. An empty value decodes to None.
func (t *Tag) UnmarshalText(text []byte) error {
	if strings.TrimSpace(string(text)) == "" {
		*t = None
		return nil
	}
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
