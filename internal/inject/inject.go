// Package inject plays the host side of the remote on a desktop: input
// reports received from the device are turned into media key taps using
// robotgo.
package inject

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-vgo/robotgo"

	"github.com/chaz8081/vknob/internal/hid"
)

// ErrBadReport is returned for an input report of the wrong length.
var ErrBadReport = errors.New("inject: malformed input report")

// KeyTapper taps a single named key.
type KeyTapper interface {
	KeyTap(key string) error
}

// robotgoTapper taps keys on the local desktop.
type robotgoTapper struct{}

func (robotgoTapper) KeyTap(key string) error {
	return robotgo.KeyTap(key)
}

// robotgo key names for each report bit.
var tapKeys = map[hid.MediaKeys]string{
	hid.VolUp:     "audio_vol_up",
	hid.VolDown:   "audio_vol_down",
	hid.Mute:      "audio_mute",
	hid.PlayPause: "audio_play",
	hid.Stop:      "audio_stop",
	hid.NextTrack: "audio_next",
	hid.PrevTrack: "audio_prev",
}

// KeyName returns the robotgo key name for a single media key.
func KeyName(k hid.MediaKeys) (string, bool) {
	name, ok := tapKeys[k]
	return name, ok
}

// Injector taps media keys for input reports. A key is tapped once when
// its bit goes from clear to set, the way a host acts on key-down.
type Injector struct {
	tapper KeyTapper
	held   hid.MediaKeys
}

// NewInjector creates an Injector that taps keys on the local desktop.
func NewInjector() *Injector {
	return &Injector{tapper: robotgoTapper{}}
}

// NewInjectorWith creates an Injector backed by the given tapper.
// Panics if tapper is nil (programmer error).
func NewInjectorWith(tapper KeyTapper) *Injector {
	if tapper == nil {
		panic("inject: NewInjectorWith called with nil tapper")
	}
	return &Injector{tapper: tapper}
}

// HandleReport processes one raw input report value.
func (inj *Injector) HandleReport(data []byte) error {
	if len(data) != hid.InputReportSize {
		return fmt.Errorf("%w: %d bytes", ErrBadReport, len(data))
	}
	return inj.Inject(hid.MediaKeys(data[0]))
}

// Inject taps every key pressed in report that was not already held.
func (inj *Injector) Inject(report hid.MediaKeys) error {
	pressed := report &^ inj.held
	inj.held = report

	var errs []error
	for _, k := range pressed.Keys() {
		name := tapKeys[k]
		slog.Debug("[INJECT] key tap", "key", k, "name", name)
		if err := inj.tapper.KeyTap(name); err != nil {
			errs = append(errs, fmt.Errorf("inject: key tap %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
