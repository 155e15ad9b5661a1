package statemachine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChannelOrder(t *testing.T) {
	var ch Channel[int]
	var got []string

	ch.Subscribe(func(v int) { got = append(got, "first") })
	ch.Subscribe(func(v int) { got = append(got, "second") })
	ch.Subscribe(nil)
	ch.Broadcast(1)

	assert.Equal(t, []string{"first", "second"}, got)
	assert.Equal(t, 2, ch.Len())
}

func TestChannelUnsubscribeDuringBroadcast(t *testing.T) {
	var ch Channel[int]
	var calls []string

	var second Subscription
	ch.Subscribe(func(int) {
		calls = append(calls, "first")
		second.Unsubscribe()
	})
	second = ch.Subscribe(func(int) { calls = append(calls, "second") })

	ch.Broadcast(1)
	assert.Equal(t, []string{"first", "second"}, calls, "current broadcast keeps its snapshot")

	calls = nil
	ch.Broadcast(2)
	assert.Equal(t, []string{"first"}, calls)
}

func TestChannelSubscribeDuringBroadcast(t *testing.T) {
	var ch Channel[int]
	var late int

	ch.Subscribe(func(int) {
		ch.Subscribe(func(int) { late++ })
	})

	ch.Broadcast(1)
	assert.Equal(t, 0, late)
	ch.Broadcast(2)
	assert.Equal(t, 1, late)
}

func TestChannelClear(t *testing.T) {
	var ch Channel[int]
	called := false
	sub := ch.Subscribe(func(int) { called = true })

	ch.Clear()
	sub.Unsubscribe()
	ch.Broadcast(1)

	assert.False(t, called)
	assert.Equal(t, 0, ch.Len())
	Subscription{}.Unsubscribe()
}
