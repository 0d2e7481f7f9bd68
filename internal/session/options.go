package session

import (
	"time"

	"github.com/chaz8081/vknob/internal/button"
	"github.com/chaz8081/vknob/internal/gatt"
	"github.com/chaz8081/vknob/internal/hid"
	"github.com/chaz8081/vknob/internal/link"
)

// Options configures a Controller.
type Options struct {
	DeviceName string
	// CompanyID is advertised as manufacturer-specific data with an empty
	// payload. Zero omits it.
	CompanyID         uint16
	Profile           gatt.Profile
	Key               hid.MediaKeys
	DebounceThreshold int
	Advertising       link.AdvertisingParameters

	AdvertisePoll time.Duration // how often to check for a connection
	TickInterval  time.Duration // pause between serving ticks; 0 spins
	InitRetries   int           // bring-up retries before Run gives up
	ReconnectMax  int           // max bring-up backoff in seconds

	// Observer, if set, receives session lifecycle events.
	Observer Observer
}

// DefaultOptions returns sensible defaults for the firmware.
func DefaultOptions() Options {
	return Options{
		DeviceName:        "vKnob",
		CompanyID:         0x1337,
		Profile:           gatt.DefaultProfile(),
		Key:               hid.PlayPause,
		DebounceThreshold: button.DefaultThreshold,
		Advertising:       link.DefaultAdvertisingParameters(),
		AdvertisePoll:     10 * time.Millisecond,
		InitRetries:       5,
		ReconnectMax:      30,
	}
}

func (o *Options) applyDefaults() {
	d := DefaultOptions()
	if o.DeviceName == "" {
		o.DeviceName = d.DeviceName
	}
	if o.Profile == (gatt.Profile{}) {
		o.Profile = d.Profile
	}
	if o.Key == hid.Clear {
		o.Key = d.Key
	}
	if o.DebounceThreshold <= 0 {
		o.DebounceThreshold = d.DebounceThreshold
	}
	if o.Advertising == (link.AdvertisingParameters{}) {
		o.Advertising = d.Advertising
	}
	if o.AdvertisePoll <= 0 {
		o.AdvertisePoll = d.AdvertisePoll
	}
	if o.InitRetries < 0 {
		o.InitRetries = 0
	}
	if o.ReconnectMax <= 0 {
		o.ReconnectMax = d.ReconnectMax
	}
}

// AdvertisingData is the payload advertised at every bring-up.
func (o Options) AdvertisingData() link.AdvertisingData {
	return link.AdvertisingData{
		Flags:        link.FlagLELimitedDiscoverable | link.FlagBREDRNotSupported,
		ServiceUUIDs: gatt.ServiceUUIDs(),
		LocalName:    o.DeviceName,
		CompanyID:    o.CompanyID,
		Appearance:   link.AppearanceKeyboard,
	}
}
