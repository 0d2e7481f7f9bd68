//go:build linux || tinygo

// Package tinygoble binds link.Radio to tinygo.org/x/bluetooth: the
// SoftDevice on nRF52 boards and BlueZ on Linux.
//
// The stack owns attribute handles, CCCDs, pairing and bond storage, so
// this binding maps the table's fixed handles onto the characteristics it
// registers and reports the stack's view back through link.Server.
//
// Connect and write callbacks may run in interrupt context. They only
// touch atomics and the preallocated write ring; everything else happens
// on the goroutine calling DoWork.
package tinygoble

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"tinygo.org/x/bluetooth"

	"github.com/chaz8081/vknob/internal/gatt"
	"github.com/chaz8081/vknob/internal/link"
)

// ErrServicesChanged is returned when a later session's table declares
// different characteristics than the ones already registered.
var ErrServicesChanged = errors.New("tinygoble: attribute table changed after registration")

var errNotInitialized = errors.New("tinygoble: adapter not initialized")

// Radio is a link.Radio backed by a tinygo bluetooth adapter. Its methods
// must be called from a single goroutine.
type Radio struct {
	stack stack
	adv   advertiser

	enabled    bool
	advStarted bool
	params     link.AdvertisingParameters
	chars      map[uint16]valueWriter
	decls      map[uint16]gatt.CharacteristicDecl

	connected   atomic.Bool
	disconnects atomic.Uint32
	writes      writeRing
}

// NewRadio wraps bluetooth.DefaultAdapter.
func NewRadio() *Radio {
	return newRadio(adapterStack{bluetooth.DefaultAdapter})
}

func newRadio(st stack) *Radio {
	return &Radio{
		stack: st,
		chars: make(map[uint16]valueWriter),
		decls: make(map[uint16]gatt.CharacteristicDecl),
	}
}

// Init enables the stack once. Later calls keep the existing adapter and
// advertisement.
func (r *Radio) Init() error {
	if r.enabled {
		return nil
	}
	if err := r.stack.Enable(); err != nil {
		return fmt.Errorf("tinygoble: enable adapter: %w", err)
	}
	r.stack.SetConnectHandler(r.onConnect)
	r.adv = r.stack.Advertisement()
	r.enabled = true
	return nil
}

// onConnect runs on the stack's goroutine or in interrupt context.
func (r *Radio) onConnect(_ bluetooth.Device, connected bool) {
	r.connected.Store(connected)
	if !connected {
		r.disconnects.Add(1)
	}
}

func (r *Radio) Address() (link.Addr, error) {
	mac, err := r.stack.Address()
	if err != nil {
		return link.Addr{}, fmt.Errorf("tinygoble: read address: %w", err)
	}
	return link.Addr{Bytes: mac.MAC, Random: mac.IsRandom()}, nil
}

func (r *Radio) SetAdvertisingParameters(params link.AdvertisingParameters) error {
	r.params = params
	return nil
}

// SetAdvertisingData configures the advertisement. The stack chooses the
// flags and omits the appearance; the rest of d is carried over.
//
// BlueZ rejects Configure on a started advertisement, and the SoftDevice
// may still be advertising from before the last connection, so a started
// advertisement is stopped first.
func (r *Radio) SetAdvertisingData(d link.AdvertisingData) error {
	if _, err := d.Encode(); err != nil {
		return fmt.Errorf("tinygoble: %w", err)
	}
	if r.adv == nil {
		return errNotInitialized
	}
	if r.advStarted {
		if err := r.adv.Stop(); err != nil {
			slog.Debug("[LINK] stop advertisement before reconfigure", "error", err)
		}
		r.advStarted = false
	}
	if err := r.adv.Configure(advertisementOptions(d, r.params)); err != nil {
		return fmt.Errorf("tinygoble: configure advertisement: %w", err)
	}
	return nil
}

func advertisementOptions(d link.AdvertisingData, params link.AdvertisingParameters) bluetooth.AdvertisementOptions {
	opts := bluetooth.AdvertisementOptions{
		LocalName: d.LocalName,
		Interval:  bluetooth.NewDuration(intervalDuration(params.IntervalMin)),
	}
	for _, u := range d.ServiceUUIDs {
		opts.ServiceUUIDs = append(opts.ServiceUUIDs, bluetooth.New16BitUUID(u))
	}
	if d.CompanyID != 0 {
		opts.ManufacturerData = []bluetooth.ManufacturerDataElement{
			{CompanyID: d.CompanyID, Data: d.ManufacturerData},
		}
	}
	return opts
}

// intervalDuration converts 0.625 ms advertising units to a duration.
func intervalDuration(units uint16) time.Duration {
	return time.Duration(units) * 625 * time.Microsecond
}

// SetAdvertiseEnable starts or stops the advertisement. Repeating the
// current state is a no-op.
func (r *Radio) SetAdvertiseEnable(enable bool) error {
	if r.adv == nil {
		return errNotInitialized
	}
	if enable == r.advStarted {
		return nil
	}
	if enable {
		if err := r.adv.Start(); err != nil {
			return fmt.Errorf("tinygoble: start advertisement: %w", err)
		}
	} else if err := r.adv.Stop(); err != nil {
		return fmt.Errorf("tinygoble: stop advertisement: %w", err)
	}
	r.advStarted = enable
	return nil
}

func (r *Radio) Connected() bool { return r.connected.Load() }

// Serve registers the services on first use, then resets the writable
// characteristics to the new table's values. The stack restores bonds by
// itself, so key is only handed back through BondingKey.
func (r *Radio) Serve(table link.Attributes, local link.Addr, key *link.BondingKey) (link.Server, error) {
	epoch := r.disconnects.Load()
	if !r.Connected() {
		return nil, link.ErrNotConnected
	}

	if len(r.chars) == 0 {
		if err := r.register(table); err != nil {
			return nil, err
		}
	} else if err := r.reset(table); err != nil {
		return nil, err
	}

	slog.Info("[LINK] attribute server started", "addr", local, "bonded", key != nil)
	return &server{r: r, table: table, key: key.Clone(), epoch: epoch}, nil
}

func (r *Radio) register(table link.Attributes) error {
	for _, svc := range gatt.Services() {
		s := bluetooth.Service{UUID: bluetooth.New16BitUUID(svc.UUID)}
		for _, ch := range svc.Characteristics {
			value, err := initialValue(table, ch)
			if err != nil {
				return err
			}
			handle := ch.Handle
			c := new(bluetooth.Characteristic)
			s.Characteristics = append(s.Characteristics, bluetooth.CharacteristicConfig{
				Handle: c,
				UUID:   bluetooth.New16BitUUID(ch.UUID),
				Value:  value,
				Flags:  permissions(ch),
				WriteEvent: func(_ bluetooth.Connection, offset int, value []byte) {
					r.writes.push(handle, offset, value)
				},
			})
			r.chars[handle] = r.stack.Value(c)
			r.decls[handle] = ch
		}
		if err := r.stack.AddService(&s); err != nil {
			return fmt.Errorf("tinygoble: add service %#04x: %w", svc.UUID, err)
		}
	}
	return nil
}

// reset rewrites writable values left by the previous session and drops
// writes that arrived before this one started.
func (r *Radio) reset(table link.Attributes) error {
	r.writes.drain()
	for _, svc := range gatt.Services() {
		for _, ch := range svc.Characteristics {
			if !ch.Kind.CanWrite() || !ch.Kind.CanRead() {
				continue
			}
			c, ok := r.chars[ch.Handle]
			if !ok {
				return fmt.Errorf("%w: %#04x", ErrServicesChanged, ch.Handle)
			}
			value, err := initialValue(table, ch)
			if err != nil {
				return err
			}
			if _, err := c.Write(value); err != nil {
				return fmt.Errorf("tinygoble: reset %#04x: %w", ch.Handle, err)
			}
		}
	}
	return nil
}

func initialValue(table link.Attributes, ch gatt.CharacteristicDecl) ([]byte, error) {
	if !ch.Kind.CanRead() {
		return nil, nil
	}
	buf := make([]byte, gatt.ScratchCapacity)
	n, err := table.Read(ch.Handle, 0, buf)
	if err != nil {
		return nil, fmt.Errorf("tinygoble: read %#04x: %w", ch.Handle, err)
	}
	return buf[:n], nil
}

func permissions(ch gatt.CharacteristicDecl) bluetooth.CharacteristicPermissions {
	var p bluetooth.CharacteristicPermissions
	if ch.Kind.CanRead() {
		p |= bluetooth.CharacteristicReadPermission
	}
	if ch.Kind.CanWrite() {
		p |= bluetooth.CharacteristicWritePermission | bluetooth.CharacteristicWriteWithoutResponsePermission
	}
	if ch.Notify {
		p |= bluetooth.CharacteristicNotifyPermission
	}
	return p
}

// server is the per-connection view of the registered services.
type server struct {
	r     *Radio
	table link.Attributes
	key   *link.BondingKey
	pin   func(uint32)
	epoch uint32

	w   peerWrite
	buf [gatt.ScratchCapacity]byte
}

// DoWork applies at most one queued peer write.
func (s *server) DoWork() (link.WorkResult, error) {
	if s.r.disconnects.Load() != s.epoch || !s.r.Connected() {
		return link.WorkGotDisconnected, nil
	}
	if n := s.r.writes.takeDropped(); n > 0 {
		slog.Warn("[LINK] write queue full, dropped writes", "count", n)
	}
	if !s.r.writes.pop(&s.w) {
		return link.WorkDidSend, nil
	}
	err := s.apply(&s.w)
	if serr := s.sync(s.w.handle); serr != nil && err == nil {
		err = serr
	}
	return link.WorkDidSend, err
}

func (s *server) apply(w *peerWrite) error {
	if w.oversized() {
		return fmt.Errorf("%w: %#04x: %d > %d", gatt.ErrScratchOverflow, w.handle, w.n, gatt.ScratchCapacity)
	}
	return s.table.Write(w.handle, w.offset, w.bytes())
}

// sync copies the table's value of a readable characteristic back to the
// stack. The stack stores a peer's write before the table sees it, so a
// rejected write would otherwise stay readable.
func (s *server) sync(handle uint16) error {
	ch, ok := s.r.decls[handle]
	if !ok || !ch.Kind.CanRead() {
		return nil
	}
	n, err := s.table.Read(handle, 0, s.buf[:])
	if err != nil {
		return fmt.Errorf("tinygoble: read %#04x: %w", handle, err)
	}
	if _, err := s.r.chars[handle].Write(s.buf[:n]); err != nil {
		return fmt.Errorf("tinygoble: sync %#04x: %w", handle, err)
	}
	return nil
}

// Notify updates the characteristic value, which the stack sends to
// subscribed peers.
func (s *server) Notify(handle uint16, data []byte) (link.WorkResult, error) {
	if !s.r.Connected() {
		return link.WorkGotDisconnected, nil
	}
	c, ok := s.r.chars[handle]
	if !ok {
		return link.WorkDidSend, fmt.Errorf("%w: %#04x", gatt.ErrUnknownHandle, handle)
	}
	if _, err := c.Write(data); err != nil {
		return link.WorkDidSend, fmt.Errorf("tinygoble: notify %#04x: %w", handle, err)
	}
	return link.WorkDidSend, nil
}

// ReadAttribute serves CCCD reads as enabled while connected: the stack
// keeps the real CCCD and skips unsubscribed peers itself.
func (s *server) ReadAttribute(handle uint16, offset int, dst []byte) (int, error) {
	if handle == gatt.HandleInputReportCCCD || handle == gatt.HandleBatteryLevelCCCD {
		v := []byte{0x00, 0x00}
		if s.r.Connected() {
			v[0] = 0x01
		}
		return gatt.ReadAt(dst, v, offset), nil
	}
	return s.table.Read(handle, offset, dst)
}

func (s *server) BondingKey() *link.BondingKey { return s.key.Clone() }

// SetPINCallback stores fn. The stack shows no passkey through this
// binding, so fn is never called.
func (s *server) SetPINCallback(fn func(pin uint32)) { s.pin = fn }

// Close drops writes queued for this connection.
func (s *server) Close() error {
	s.r.writes.drain()
	return nil
}

var _ link.Radio = (*Radio)(nil)
var _ link.Server = (*server)(nil)
