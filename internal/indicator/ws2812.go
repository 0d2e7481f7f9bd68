//go:build tinygo

package indicator

import (
	"image/color"
	"machine"

	"tinygo.org/x/drivers/ws2812"
)

// WS2812 drives a single addressable RGB LED.
type WS2812 struct {
	dev        ws2812.Device
	brightness uint8
}

// NewWS2812 configures pin as the LED data line.
func NewWS2812(pin machine.Pin, brightness uint8) *WS2812 {
	pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	return &WS2812{dev: ws2812.New(pin), brightness: brightness}
}

// SetStatus writes the status colour. Write errors are ignored; the LED
// has no other way to report them.
func (w *WS2812) SetStatus(s Status) {
	_ = w.dev.WriteColors([]color.RGBA{HueToRGB(s.Hue(), w.brightness)})
}
