// Package timer implements a per-owner timer manager advanced by the frame
// delta, used for coyote time, jump buffering and cooldowns.
package timer

import "sort"

// Manager holds named one-shot timers. It is driven by Advance and never
// reads the wall clock.
type Manager struct {
	timers map[string]*entry
	now    float64
	seq    uint64
}

type entry struct {
	name     string
	start    float64
	deadline float64
	seq      uint64
	fn       func()
}

// NewManager returns an empty manager.
func NewManager() *Manager {
	return &Manager{timers: make(map[string]*entry)}
}

// Set (re)arms the timer name to fire after duration seconds. fn may be nil.
// A non-positive duration fires on the next Advance.
func (m *Manager) Set(name string, duration float64, fn func()) {
	if duration < 0 {
		duration = 0
	}
	m.seq++
	m.timers[name] = &entry{
		name:     name,
		start:    m.now,
		deadline: m.now + duration,
		seq:      m.seq,
		fn:       fn,
	}
}

// Clear disarms name without running its callback.
func (m *Manager) Clear(name string) {
	delete(m.timers, name)
}

// Active reports whether name is armed.
func (m *Manager) Active(name string) bool {
	_, ok := m.timers[name]
	return ok
}

// Remaining returns the seconds left on name, or 0 if it is not armed.
func (m *Manager) Remaining(name string) float64 {
	e, ok := m.timers[name]
	if !ok {
		return 0
	}
	return e.deadline - m.now
}

// Elapsed returns the seconds since name was armed, or 0 if it is not armed.
func (m *Manager) Elapsed(name string) float64 {
	e, ok := m.timers[name]
	if !ok {
		return 0
	}
	return m.now - e.start
}

// Now returns the accumulated time.
func (m *Manager) Now() float64 {
	return m.now
}

// Advance moves time forward by dt seconds and fires every expired timer in
// deadline order. A callback may re-arm timers; a timer armed during Advance
// only fires on a later call.
func (m *Manager) Advance(dt float64) {
	if dt > 0 {
		m.now += dt
	}

	var due []*entry
	for _, e := range m.timers {
		if e.deadline <= m.now {
			due = append(due, e)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].deadline != due[j].deadline {
			return due[i].deadline < due[j].deadline
		}
		return due[i].seq < due[j].seq
	})

	for _, e := range due {
		// skip timers cleared or re-armed by an earlier callback
		if cur, ok := m.timers[e.name]; !ok || cur != e {
			continue
		}
		delete(m.timers, e.name)
		if e.fn != nil {
			e.fn()
		}
	}
}

// Reset disarms every timer.
func (m *Manager) Reset() {
	m.timers = make(map[string]*entry)
}
