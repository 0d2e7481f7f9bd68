// Package hotkey provides a global hotkey listener using gohook, and a
// button.Pin driven by it so the desktop simulator has a button.
// It supports "hold" mode (pressed while the keys are held) and
// "toggle" mode (press to latch, press again to release).
package hotkey

import (
	"sync"
	"sync/atomic"

	hook "github.com/robotn/gohook"
)

// EventType indicates whether the virtual button went down or up.
type EventType int

const (
	// EventPress signals that the hotkey was activated.
	EventPress EventType = iota
	// EventRelease signals that the hotkey was deactivated.
	EventRelease
)

// Event is emitted on the channel returned by Events.
type Event struct {
	Type EventType
}

// Listener manages a global hotkey and emits press/release events.
type Listener struct {
	keys []string
	mode string // "hold" or "toggle"
	ch   chan Event
	done chan struct{}
	once sync.Once
}

// NewListener creates a Listener for the given key combo and mode.
// keys should be lowercase key names (e.g., ["ctrl", "shift", "k"]).
// mode must be "hold" or "toggle".
func NewListener(keys []string, mode string) *Listener {
	return &Listener{
		keys: keys,
		mode: mode,
		ch:   make(chan Event, 16),
		done: make(chan struct{}),
	}
}

// Events returns the channel that receives hotkey events.
// The channel is closed when Stop is called.
func (l *Listener) Events() <-chan Event {
	return l.ch
}

// Start begins listening for the global hotkey.
// This function blocks until Stop is called. Run it in a goroutine.
func (l *Listener) Start() {
	switch l.mode {
	case "toggle":
		l.registerToggle()
	default: // "hold"
		l.registerHold()
	}

	evChan := hook.Start()
	go func() {
		<-l.done
		hook.End()
	}()
	<-hook.Process(evChan)
	close(l.ch)
}

func (l *Listener) emit(t EventType) {
	select {
	case l.ch <- Event{Type: t}:
	default: // don't block if channel is full
	}
}

// registerHold: KeyDown -> EventPress, KeyUp -> EventRelease.
func (l *Listener) registerHold() {
	hook.Register(hook.KeyDown, l.keys, func(e hook.Event) { l.emit(EventPress) })
	hook.Register(hook.KeyUp, l.keys, func(e hook.Event) { l.emit(EventRelease) })
}

// registerToggle: first KeyDown -> EventPress, second -> EventRelease.
func (l *Listener) registerToggle() {
	t := &toggle{}
	hook.Register(hook.KeyDown, l.keys, func(e hook.Event) { l.emit(t.next()) })
}

type toggle struct {
	mu      sync.Mutex
	latched bool
}

func (t *toggle) next() EventType {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.latched = !t.latched
	if t.latched {
		return EventPress
	}
	return EventRelease
}

// Stop terminates the hotkey listener.
// It is safe to call multiple times.
func (l *Listener) Stop() {
	l.once.Do(func() {
		close(l.done)
	})
}

// Pin is an active-low button.Pin that follows hotkey events: Get reads
// false while the hotkey is pressed.
type Pin struct {
	pressed atomic.Bool
}

// Follow applies events to the pin until the channel closes. Run it in a
// goroutine.
func (p *Pin) Follow(events <-chan Event) {
	for ev := range events {
		p.pressed.Store(ev.Type == EventPress)
	}
	p.pressed.Store(false)
}

// Get returns the pin level.
func (p *Pin) Get() bool {
	return !p.pressed.Load()
}
