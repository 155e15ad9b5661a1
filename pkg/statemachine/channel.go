package statemachine

// Kind names one of the controller's notification channels.
type Kind uint8

const (
	KindInit Kind = iota
	KindEnd
	KindChanged
	KindTick
)

// String returns the channel name.
func (k Kind) String() string {
	switch k {
	case KindInit:
		return "init"
	case KindEnd:
		return "end"
	case KindChanged:
		return "changed"
	case KindTick:
		return "tick"
	default:
		return "unknown"
	}
}

// Subscription detaches a callback from the channel it was registered on.
// The zero value is valid and does nothing.
type Subscription struct {
	cancel func()
}

// Unsubscribe removes the callback. Calling it more than once is harmless.
func (s Subscription) Unsubscribe() {
	if s.cancel != nil {
		s.cancel()
	}
}

type subscriber[E any] struct {
	id uint64
	fn func(E)
}

// Channel is an ordered registry of callbacks receiving events of type E.
//
// The subscriber slice is copied on every Subscribe/Unsubscribe, so a
// broadcast in progress keeps iterating the registry it started with;
// changes made from inside a callback apply to the next broadcast.
type Channel[E any] struct {
	subs   []subscriber[E]
	nextID uint64
}

// Subscribe appends fn to the registry. A nil fn is ignored.
func (c *Channel[E]) Subscribe(fn func(E)) Subscription {
	if fn == nil {
		return Subscription{}
	}
	c.nextID++
	id := c.nextID
	c.subs = append(c.subs[:len(c.subs):len(c.subs)], subscriber[E]{id: id, fn: fn})
	return Subscription{cancel: func() { c.remove(id) }}
}

func (c *Channel[E]) remove(id uint64) {
	for i, s := range c.subs {
		if s.id != id {
			continue
		}
		next := make([]subscriber[E], 0, len(c.subs)-1)
		next = append(next, c.subs[:i]...)
		c.subs = append(next, c.subs[i+1:]...)
		return
	}
}

// Broadcast calls every subscriber with e, in subscription order.
func (c *Channel[E]) Broadcast(e E) {
	for _, s := range c.subs {
		s.fn(e)
	}
}

// Len returns the number of subscribers.
func (c *Channel[E]) Len() int {
	return len(c.subs)
}

// Clear drops every subscriber.
func (c *Channel[E]) Clear() {
	c.subs = nil
}
