//go:build linux

package tinygoble

import (
	"errors"

	"tinygo.org/x/bluetooth"
)

var errAlreadyStarted = errors.New("advertisement already started")

// fakeAdvertiser refuses Configure while started, as BlueZ does.
type fakeAdvertiser struct {
	started    bool
	configures int
	starts     int
	stops      int
}

func (a *fakeAdvertiser) Configure(bluetooth.AdvertisementOptions) error {
	if a.started {
		return errAlreadyStarted
	}
	a.configures++
	return nil
}

func (a *fakeAdvertiser) Start() error {
	if a.started {
		return errAlreadyStarted
	}
	a.started = true
	a.starts++
	return nil
}

func (a *fakeAdvertiser) Stop() error {
	a.stops++
	if !a.started {
		return errors.New("advertisement not started")
	}
	a.started = false
	return nil
}

// fakeValue records what the radio writes to one characteristic.
type fakeValue struct {
	value  []byte
	writes int
}

func (v *fakeValue) Write(p []byte) (int, error) {
	v.value = append(v.value[:0], p...)
	v.writes++
	return len(p), nil
}

func (v *fakeValue) last() []byte { return v.value }

type fakeStack struct {
	enables  int
	handler  func(bluetooth.Device, bool)
	services []*bluetooth.Service
	adv      *fakeAdvertiser
}

func newFakeStack() *fakeStack {
	return &fakeStack{adv: &fakeAdvertiser{}}
}

func (s *fakeStack) Enable() error {
	s.enables++
	return nil
}

func (s *fakeStack) SetConnectHandler(c func(bluetooth.Device, bool)) { s.handler = c }

func (s *fakeStack) Address() (bluetooth.MACAddress, error) {
	return bluetooth.MACAddress{}, nil
}

func (s *fakeStack) AddService(svc *bluetooth.Service) error {
	s.services = append(s.services, svc)
	return nil
}

func (s *fakeStack) Advertisement() advertiser { return s.adv }

func (s *fakeStack) Value(*bluetooth.Characteristic) valueWriter { return &fakeValue{} }

// connect leaves the advertiser's state alone, as BlueZ does.
func (s *fakeStack) connect(connected bool) {
	s.handler(bluetooth.Device{}, connected)
}

func (s *fakeStack) value(r *Radio, handle uint16) *fakeValue {
	return r.chars[handle].(*fakeValue)
}
