// Package indicator drives the RGB status LED. It only maps session status
// to a colour; it holds no session logic.
package indicator

import (
	"fmt"
	"image/color"
	"log/slog"
	"sync"
)

// Status is the three-level signal shown to the operator.
type Status uint8

const (
	// StatusError covers initialisation and link bring-up failures.
	StatusError Status = iota
	// StatusIdle is shown while starting up, before advertising.
	StatusIdle
	// StatusReady is shown once advertising (and while serving).
	StatusReady
)

func (s Status) String() string {
	switch s {
	case StatusError:
		return "error"
	case StatusIdle:
		return "idle"
	case StatusReady:
		return "ready"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

// Hues on a 0-255 colour wheel.
const (
	HueRed    uint8 = 0
	HueYellow uint8 = 35
	HueGreen  uint8 = 85
)

// Hue returns the hue shown for s.
func (s Status) Hue() uint8 {
	switch s {
	case StatusIdle:
		return HueYellow
	case StatusReady:
		return HueGreen
	default:
		return HueRed
	}
}

// DefaultBrightness is the LED brightness on a 0-255 scale.
const DefaultBrightness uint8 = 10

// Indicator displays a Status. SetStatus is fire-and-forget.
type Indicator interface {
	SetStatus(s Status)
}

// HueToRGB converts a fully saturated hue at the given brightness to RGB,
// using the same six-sector wheel as the FastLED-style rainbow.
func HueToRGB(hue, brightness uint8) color.RGBA {
	region := int(hue) / 43
	rem := (int(hue) - region*43) * 6
	v := int(brightness)
	q := v * (255 - rem) / 255
	t := v * rem / 255

	var r, g, b int
	switch region {
	case 0:
		r, g, b = v, t, 0
	case 1:
		r, g, b = q, v, 0
	case 2:
		r, g, b = 0, v, t
	case 3:
		r, g, b = 0, q, v
	case 4:
		r, g, b = t, 0, v
	default:
		r, g, b = v, 0, q
	}
	return color.RGBA{R: uint8(r), G: uint8(g), B: uint8(b), A: 0xFF}
}

// Log is an Indicator that logs status changes; used on hosts without an LED.
type Log struct {
	mu   sync.Mutex
	last Status
	set  bool
}

// SetStatus logs s when it differs from the previous status.
func (l *Log) SetStatus(s Status) {
	l.mu.Lock()
	changed := !l.set || l.last != s
	l.last, l.set = s, true
	l.mu.Unlock()

	if changed {
		c := HueToRGB(s.Hue(), 0xFF)
		slog.Info("[LED] status", "status", s, "rgb", fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B))
	}
}

// Func adapts a plain function to the Indicator interface.
type Func func(s Status)

// SetStatus calls f.
func (f Func) SetStatus(s Status) { f(s) }
