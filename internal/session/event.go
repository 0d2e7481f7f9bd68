package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/chaz8081/vknob/internal/hid"
)

// EventKind identifies a session lifecycle event.
type EventKind string

const (
	EventConnected    EventKind = "connected"
	EventPress        EventKind = "press"
	EventBonded       EventKind = "bonded"
	EventDisconnected EventKind = "disconnected"
	EventLinkError    EventKind = "link-error"
)

// Event is delivered to an Observer on the controller goroutine.
type Event struct {
	Time    time.Time
	Kind    EventKind
	Session uuid.UUID // zero for link errors outside a session
	Keys    hid.MediaKeys
	Err     string
}

// Observer receives session events. Implementations must not block.
type Observer interface {
	SessionEvent(ev Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ev Event)

// SessionEvent calls f.
func (f ObserverFunc) SessionEvent(ev Event) { f(ev) }
