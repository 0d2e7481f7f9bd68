package hid

import (
	"log/slog"

	"github.com/chaz8081/vknob/internal/link"
)

// CCCDNotifyEnabled is the first CCCD byte when the peer has subscribed
// to notifications.
const CCCDNotifyEnabled = 0x01

// KeypressSender is the part of the attribute server the notifier needs.
type KeypressSender interface {
	ReadAttribute(handle uint16, offset int, dst []byte) (int, error)
	Notify(handle uint16, data []byte) (link.WorkResult, error)
}

// Notifier sends a key as a press report followed by a clear report.
// Only momentary keys can be expressed; the notifier keeps no key state.
type Notifier struct {
	sender KeypressSender
}

// NewNotifier creates a Notifier backed by sender.
// Panics if sender is nil (programmer error).
func NewNotifier(sender KeypressSender) *Notifier {
	if sender == nil {
		panic("hid: NewNotifier called with nil sender")
	}
	return &Notifier{sender: sender}
}

// Notify sends keys then a clear report at dataHandle if the CCCD at
// cccdHandle has notifications enabled. It reports whether the peer
// disconnected during either send. Other send errors are logged and do
// not end the session.
func (n *Notifier) Notify(cccdHandle, dataHandle uint16, keys MediaKeys) (disconnected bool) {
	var cccd [1]byte
	c, err := n.sender.ReadAttribute(cccdHandle, 0, cccd[:])
	if err != nil || c == 0 || cccd[0] != CCCDNotifyEnabled {
		slog.Debug("[HID] notifications not enabled, dropping key", "keys", keys, "handle", dataHandle)
		return false
	}

	if n.send(dataHandle, keys) {
		return true
	}
	return n.send(dataHandle, Clear)
}

func (n *Notifier) send(handle uint16, keys MediaKeys) (disconnected bool) {
	res, err := n.sender.Notify(handle, []byte{byte(keys)})
	if err != nil {
		slog.Warn("[HID] notification failed", "keys", keys, "handle", handle, "error", err)
		return false
	}
	return res == link.WorkGotDisconnected
}
