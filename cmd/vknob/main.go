//go:build tinygo

// Command vknob is the remote's firmware. It advertises as a BLE HID
// consumer-control device and sends the configured media key each time
// the button is pressed.
//
// Build:
//
//	tinygo flash -target=feather-nrf52840 ./cmd/vknob
package main

import (
	"context"
	"log"
	"machine"

	"github.com/chaz8081/vknob/internal/config"
	"github.com/chaz8081/vknob/internal/indicator"
	"github.com/chaz8081/vknob/internal/link/tinygoble"
	"github.com/chaz8081/vknob/internal/session"
)

// Board wiring. The button pulls the pin low when pressed.
var (
	buttonPin = machine.BUTTON
	ledPin    = machine.WS2812
)

func main() {
	led := indicator.NewWS2812(ledPin, indicator.DefaultBrightness)
	led.SetStatus(indicator.StatusIdle)

	buttonPin.Configure(machine.PinConfig{Mode: machine.PinInputPullup})

	cfg := config.Default()
	opts := cfg.SessionOptions()
	opts.Observer = session.ObserverFunc(func(ev session.Event) {
		log.Printf("%s %s", ev.Kind, ev.Session)
	})

	log.Printf("vknob starting: name=%s key=%s debounce=%d", opts.DeviceName, opts.Key, opts.DebounceThreshold)

	c := session.NewController(tinygoble.NewRadio(), buttonPin, led, opts)
	if err := c.Run(context.Background()); err != nil {
		log.Printf("radio failed: %v", err)
	}

	// Nothing left to do without a radio; keep the error colour lit.
	led.SetStatus(indicator.StatusError)
	select {}
}
