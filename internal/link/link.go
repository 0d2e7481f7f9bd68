// Package link defines the BLE link-layer service consumed by the session
// controller. Bindings (the real radio stack, the in-process loopback)
// live in subpackages.
package link

import (
	"errors"
	"fmt"
)

// WorkResult is the outcome of one unit of attribute-server work.
type WorkResult int

const (
	// WorkDidSend means the work unit completed and the peer is still connected.
	WorkDidSend WorkResult = iota
	// WorkGotDisconnected means the peer went away.
	WorkGotDisconnected
)

func (r WorkResult) String() string {
	switch r {
	case WorkDidSend:
		return "did-send"
	case WorkGotDisconnected:
		return "got-disconnected"
	default:
		return fmt.Sprintf("WorkResult(%d)", int(r))
	}
}

// ErrNotConnected is returned by server operations issued without a peer.
var ErrNotConnected = errors.New("link: not connected")

// BondingKey is the long-term key (LTK) shared with a bonded peer.
type BondingKey [16]byte

// Clone returns a copy of k, or nil if k is nil.
func (k *BondingKey) Clone() *BondingKey {
	if k == nil {
		return nil
	}
	c := *k
	return &c
}

// Addr is a 48-bit device address in little-endian byte order, as the
// controller reports it.
type Addr struct {
	Bytes  [6]byte
	Random bool
}

// String formats the address most-significant byte first.
func (a Addr) String() string {
	b := a.Bytes
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", b[5], b[4], b[3], b[2], b[1], b[0])
}

// AdvertisingParameters configures the advertising interval in 0.625 ms units.
type AdvertisingParameters struct {
	IntervalMin uint16
	IntervalMax uint16
}

// DefaultAdvertisingParameters returns a 100 ms to 150 ms interval.
func DefaultAdvertisingParameters() AdvertisingParameters {
	return AdvertisingParameters{IntervalMin: 0x00A0, IntervalMax: 0x00F0}
}

// Attributes is the attribute table a Server dispatches peer reads and
// writes to.
type Attributes interface {
	Read(handle uint16, offset int, dst []byte) (int, error)
	Write(handle uint16, offset int, data []byte) error
}

// Radio is the connection lifecycle half of the link layer. The blocking
// calls (Init and the advertising commands) are expected to return quickly.
type Radio interface {
	// Init brings up the controller. It is called once per session.
	Init() error
	// Address returns the local public device address.
	Address() (Addr, error)
	SetAdvertisingParameters(params AdvertisingParameters) error
	SetAdvertisingData(data AdvertisingData) error
	SetAdvertiseEnable(enable bool) error
	// Connected reports whether a peer has connected since advertising began.
	Connected() bool
	// Serve starts the attribute server for the connected peer. key is the
	// bonding key from an earlier session, or nil.
	Serve(table Attributes, local Addr, key *BondingKey) (Server, error)
}

// Server is the attribute-server half of the link layer, valid for one
// connection.
type Server interface {
	// DoWork services at most one pending peer request or link event.
	DoWork() (WorkResult, error)
	// Notify sends a notification payload for the value at handle.
	Notify(handle uint16, data []byte) (WorkResult, error)
	// ReadAttribute reads a local attribute (including CCCDs) by handle.
	ReadAttribute(handle uint16, offset int, dst []byte) (int, error)
	// BondingKey returns the current long-term key, or nil before pairing.
	BondingKey() *BondingKey
	// SetPINCallback registers fn to display the pairing passkey.
	SetPINCallback(fn func(pin uint32))
	// Close releases the server. The table must not be used afterwards.
	Close() error
}
