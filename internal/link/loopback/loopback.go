// Package loopback is an in-process link layer. A Radio plays the
// peripheral's controller and a Peer plays the connected host, so the
// session controller can run end to end without a radio.
package loopback

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chaz8081/vknob/internal/gatt"
	"github.com/chaz8081/vknob/internal/link"
	"github.com/chaz8081/vknob/internal/pairing"
)

var (
	ErrQueueFull = errors.New("loopback: notification queue full")
	ErrNoServer  = errors.New("loopback: attribute server not running")
)

// DefaultAddress is the local address used when Options.Address is zero.
var DefaultAddress = link.Addr{Bytes: [6]byte{0x01, 0x00, 0x00, 0xC0, 0xDE, 0xC0}}

// PeerAddress is the address the simulated host connects from.
var PeerAddress = link.Addr{Bytes: [6]byte{0x10, 0x20, 0x30, 0x40, 0x50, 0x60}}

// Options configures a Radio.
type Options struct {
	Address link.Addr
	// NotifyQueue bounds undelivered notifications (default 64).
	NotifyQueue int
}

// Event is reported to the tracer for every link-level action.
type Event struct {
	Kind   string
	Handle uint16
	Data   []byte
}

// Radio is the device side of the loopback link. It implements link.Radio.
type Radio struct {
	opts Options

	mu          sync.Mutex
	initialized bool
	advertising bool
	connected   bool
	params      link.AdvertisingParameters
	advData     []byte
	cccd        map[uint16]uint16
	server      *server
	tracer      func(Event)

	requests      chan request
	notifications chan Notification

	peer *Peer
}

// NewRadio creates a Radio and its Peer.
func NewRadio(opts Options) *Radio {
	if opts.Address == (link.Addr{}) {
		opts.Address = DefaultAddress
	}
	if opts.NotifyQueue <= 0 {
		opts.NotifyQueue = 64
	}
	r := &Radio{
		opts:          opts,
		cccd:          make(map[uint16]uint16),
		requests:      make(chan request, 16),
		notifications: make(chan Notification, opts.NotifyQueue),
	}
	r.peer = &Peer{r: r}
	return r
}

// Peer returns the simulated host.
func (r *Radio) Peer() *Peer { return r.peer }

// SetTracer registers fn to receive link events. fn is called with the
// radio's lock held and must not call back into the radio.
func (r *Radio) SetTracer(fn func(Event)) {
	r.mu.Lock()
	r.tracer = fn
	r.mu.Unlock()
}

func (r *Radio) trace(kind string, handle uint16, data []byte) {
	if r.tracer == nil {
		return
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	r.tracer(Event{Kind: kind, Handle: handle, Data: cp})
}

func (r *Radio) Init() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.initialized = true
	r.advertising = false
	r.trace("init", 0, nil)
	return nil
}

func (r *Radio) Address() (link.Addr, error) {
	return r.opts.Address, nil
}

func (r *Radio) SetAdvertisingParameters(params link.AdvertisingParameters) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.initialized {
		return errors.New("loopback: radio not initialized")
	}
	r.params = params
	return nil
}

func (r *Radio) SetAdvertisingData(data link.AdvertisingData) error {
	b, err := data.Encode()
	if err != nil {
		return fmt.Errorf("loopback: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.advData = b
	return nil
}

func (r *Radio) SetAdvertiseEnable(enable bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if enable && r.advData == nil {
		return errors.New("loopback: advertising data not set")
	}
	r.advertising = enable
	r.trace("advertise", 0, r.advData)
	return nil
}

// Advertising reports whether the radio is currently advertising.
func (r *Radio) Advertising() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.advertising
}

// AdvertisingData returns the last encoded advertising payload.
func (r *Radio) AdvertisingData() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]byte(nil), r.advData...)
}

func (r *Radio) Connected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connected
}

// Serve starts the attribute server for the connected peer. A key equal
// to the peer's bond restores the bonded state without pairing.
func (r *Radio) Serve(table link.Attributes, local link.Addr, key *link.BondingKey) (link.Server, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.connected {
		return nil, link.ErrNotConnected
	}
	s := &server{r: r, table: table, local: local, key: key.Clone()}
	r.server = s
	if key != nil && r.peer.bond != nil && *key == *r.peer.bond {
		r.peer.encrypted = true
	}
	return s, nil
}

// server is the per-connection attribute server.
type server struct {
	r     *Radio
	table link.Attributes
	local link.Addr
	key   *link.BondingKey
	pin   func(uint32)
}

// DoWork services one queued peer request.
func (s *server) DoWork() (link.WorkResult, error) {
	select {
	case req := <-s.r.requests:
		return s.handle(req)
	default:
	}
	if !s.r.Connected() {
		return link.WorkGotDisconnected, nil
	}
	return link.WorkDidSend, nil
}

func (s *server) handle(req request) (link.WorkResult, error) {
	switch req.op {
	case opDisconnect:
		return link.WorkGotDisconnected, nil

	case opRead:
		buf := make([]byte, max(req.n, 0))
		n, err := s.ReadAttribute(req.handle, req.offset, buf)
		req.reply <- response{data: buf[:n], err: err}
		return link.WorkDidSend, err

	case opWrite:
		err := s.write(req.handle, req.offset, req.data)
		req.reply <- response{err: err}
		return link.WorkDidSend, err

	case opPair:
		pub, err := s.pair(req.data)
		req.reply <- response{data: pub, err: err}
		return link.WorkDidSend, err
	}
	return link.WorkDidSend, fmt.Errorf("loopback: unknown request %d", req.op)
}

func (s *server) write(handle uint16, offset int, data []byte) error {
	if isCCCD(handle) {
		if offset != 0 || len(data) != 2 {
			return fmt.Errorf("loopback: CCCD write must be 2 bytes at offset 0")
		}
		s.r.mu.Lock()
		s.r.cccd[handle] = binary.LittleEndian.Uint16(data)
		s.r.trace("cccd", handle, data)
		s.r.mu.Unlock()
		return nil
	}
	s.r.mu.Lock()
	s.r.trace("write", handle, data)
	s.r.mu.Unlock()
	return s.table.Write(handle, offset, data)
}

// pair runs the responder side of the key exchange and stores the new LTK.
func (s *server) pair(peerPub []byte) ([]byte, error) {
	kp, err := pairing.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	secret, err := kp.SharedSecret(peerPub)
	if err != nil {
		return nil, err
	}
	passkey, err := pairing.Passkey(secret)
	if err != nil {
		return nil, err
	}
	if s.pin != nil {
		s.pin(passkey)
	}
	ltk, err := pairing.DeriveLTK(secret, PeerAddress.Bytes, s.local.Bytes)
	if err != nil {
		return nil, err
	}
	key := link.BondingKey(ltk)
	s.key = &key

	s.r.mu.Lock()
	s.r.trace("pair", 0, nil)
	s.r.mu.Unlock()
	return kp.PublicKey(), nil
}

func (s *server) Notify(handle uint16, data []byte) (link.WorkResult, error) {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	if !s.r.connected {
		return link.WorkGotDisconnected, nil
	}
	n := Notification{Handle: handle, Data: append([]byte(nil), data...), Time: time.Now()}
	select {
	case s.r.notifications <- n:
	default:
		return link.WorkDidSend, ErrQueueFull
	}
	s.r.trace("notify", handle, data)
	return link.WorkDidSend, nil
}

func (s *server) ReadAttribute(handle uint16, offset int, dst []byte) (int, error) {
	if isCCCD(handle) {
		s.r.mu.Lock()
		v := s.r.cccd[handle]
		s.r.mu.Unlock()
		return gatt.ReadAt(dst, binary.LittleEndian.AppendUint16(nil, v), offset), nil
	}
	return s.table.Read(handle, offset, dst)
}

func (s *server) BondingKey() *link.BondingKey { return s.key.Clone() }

func (s *server) SetPINCallback(fn func(pin uint32)) { s.pin = fn }

// Close detaches the server and fails any requests still queued.
func (s *server) Close() error {
	s.r.mu.Lock()
	if s.r.server == s {
		s.r.server = nil
	}
	s.r.drainLocked()
	s.r.mu.Unlock()
	return nil
}

// drainLocked fails requests left over from an earlier connection.
func (r *Radio) drainLocked() {
	for {
		select {
		case req := <-r.requests:
			if req.reply != nil {
				req.reply <- response{err: ErrNoServer}
			}
		default:
			return
		}
	}
}

func isCCCD(handle uint16) bool {
	return handle == gatt.HandleInputReportCCCD || handle == gatt.HandleBatteryLevelCCCD
}

var _ link.Radio = (*Radio)(nil)
var _ link.Server = (*server)(nil)
