package statemachine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHistory(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		push     []int
		want     []int
	}{
		{"empty", 3, nil, []int{}},
		{"under_capacity", 3, []int{1, 2}, []int{1, 2}},
		{"at_capacity", 3, []int{1, 2, 3}, []int{1, 2, 3}},
		{"evicts_oldest", 3, []int{1, 2, 3, 4, 5}, []int{3, 4, 5}},
		{"wraps_many_times", 2, []int{1, 2, 3, 4, 5, 6, 7}, []int{6, 7}},
		{"zero_capacity", 0, []int{1, 2}, []int{}},
		{"negative_capacity", -4, []int{1}, []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHistory[int](tt.capacity)
			for _, v := range tt.push {
				h.Push(v)
			}
			assert.Equal(t, tt.want, h.Items())
			assert.Equal(t, len(tt.want), h.Len())
			assert.LessOrEqual(t, h.Len(), h.Cap())
		})
	}
}

func TestHistoryAccessors(t *testing.T) {
	h := NewHistory[string](2)

	_, ok := h.Last()
	assert.False(t, ok)

	h.Push("a")
	h.Push("b")
	h.Push("c")

	last, ok := h.Last()
	assert.True(t, ok)
	assert.Equal(t, "c", last)

	first, ok := h.At(0)
	assert.True(t, ok)
	assert.Equal(t, "b", first)

	_, ok = h.At(2)
	assert.False(t, ok)

	items := h.Items()
	items[0] = "mutated"
	assert.Equal(t, []string{"b", "c"}, h.Items(), "Items returns a copy")

	h.Clear()
	assert.Equal(t, 0, h.Len())
	assert.Equal(t, 2, h.Cap())
	h.Push("d")
	assert.Equal(t, []string{"d"}, h.Items())
}
