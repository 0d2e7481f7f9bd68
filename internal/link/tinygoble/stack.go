//go:build linux || tinygo

package tinygoble

import "tinygo.org/x/bluetooth"

// advertiser is the part of *bluetooth.Advertisement the radio drives.
type advertiser interface {
	Configure(options bluetooth.AdvertisementOptions) error
	Start() error
	Stop() error
}

// valueWriter updates a registered characteristic's value. The stack
// notifies subscribed peers when the characteristic allows it.
type valueWriter interface {
	Write(p []byte) (n int, err error)
}

// stack is the part of *bluetooth.Adapter the radio uses.
type stack interface {
	Enable() error
	SetConnectHandler(c func(device bluetooth.Device, connected bool))
	Address() (bluetooth.MACAddress, error)
	AddService(s *bluetooth.Service) error
	Advertisement() advertiser
	Value(c *bluetooth.Characteristic) valueWriter
}

// adapterStack adapts a tinygo bluetooth adapter to stack.
type adapterStack struct {
	*bluetooth.Adapter
}

func (a adapterStack) Advertisement() advertiser { return a.DefaultAdvertisement() }

func (adapterStack) Value(c *bluetooth.Characteristic) valueWriter { return c }
