package loopback

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/chaz8081/vknob/internal/link"
	"github.com/chaz8081/vknob/internal/pairing"
)

type opKind int

const (
	opRead opKind = iota
	opWrite
	opPair
	opDisconnect
)

type request struct {
	op     opKind
	handle uint16
	offset int
	n      int
	data   []byte
	reply  chan response
}

type response struct {
	data []byte
	err  error
}

// Notification is a value notification received by the peer.
type Notification struct {
	Handle uint16
	Data   []byte
	Time   time.Time
}

// Pairing is the result of a completed key exchange.
type Pairing struct {
	Key     link.BondingKey
	Passkey uint32
}

// Peer is the simulated host. Its request methods block until the
// device's session loop services them in DoWork.
type Peer struct {
	r *Radio

	// bond and encrypted are guarded by r.mu.
	bond      *link.BondingKey
	encrypted bool
}

// connectPoll is how often Connect re-checks for advertising.
const connectPoll = time.Millisecond

// Connect waits for the device to advertise and connects to it.
func (p *Peer) Connect(ctx context.Context) error {
	for {
		p.r.mu.Lock()
		if p.r.advertising {
			p.r.advertising = false
			p.r.connected = true
			p.encrypted = false
			p.r.drainLocked()
			if p.bond == nil {
				// CCCD values persist only for bonded peers.
				p.r.cccd = make(map[uint16]uint16)
			}
			p.r.trace("connect", 0, PeerAddress.Bytes[:])
			p.r.mu.Unlock()
			return nil
		}
		p.r.mu.Unlock()

		select {
		case <-ctx.Done():
			return fmt.Errorf("loopback: connect: %w", ctx.Err())
		case <-time.After(connectPoll):
		}
	}
}

// Disconnect drops the connection. It does not wait for the device.
func (p *Peer) Disconnect() {
	p.r.mu.Lock()
	wasConnected := p.r.connected
	p.r.connected = false
	p.encrypted = false
	if wasConnected {
		p.r.trace("disconnect", 0, nil)
	}
	p.r.mu.Unlock()

	if wasConnected {
		select {
		case p.r.requests <- request{op: opDisconnect}:
		default:
		}
	}
}

// Connected reports whether the peer holds a connection.
func (p *Peer) Connected() bool {
	return p.r.Connected()
}

// Encrypted reports whether the link was secured with a stored bond
// or a fresh pairing.
func (p *Peer) Encrypted() bool {
	p.r.mu.Lock()
	defer p.r.mu.Unlock()
	return p.encrypted
}

// Bond returns the LTK the peer stored at its last pairing.
func (p *Peer) Bond() *link.BondingKey {
	p.r.mu.Lock()
	defer p.r.mu.Unlock()
	return p.bond.Clone()
}

// ForgetBond discards the stored LTK, as a host does on "forget device".
func (p *Peer) ForgetBond() {
	p.r.mu.Lock()
	p.bond = nil
	p.r.mu.Unlock()
}

// Read reads up to n bytes of the attribute at handle starting at offset.
func (p *Peer) Read(ctx context.Context, handle uint16, offset, n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("loopback: negative read length %d", n)
	}
	resp, err := p.do(ctx, request{op: opRead, handle: handle, offset: offset, n: n})
	if err != nil {
		return nil, err
	}
	return resp.data, resp.err
}

// ReadLong reads a whole value in chunks of size mtu-1, as a host does
// with Read Blob requests.
func (p *Peer) ReadLong(ctx context.Context, handle uint16, mtu int) ([]byte, error) {
	chunk := mtu - 1
	if chunk < 1 {
		return nil, errors.New("loopback: mtu too small")
	}
	var out []byte
	for {
		b, err := p.Read(ctx, handle, len(out), chunk)
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
		if len(b) < chunk {
			return out, nil
		}
	}
}

// Write writes data to the attribute at handle.
func (p *Peer) Write(ctx context.Context, handle uint16, offset int, data []byte) error {
	resp, err := p.do(ctx, request{op: opWrite, handle: handle, offset: offset, data: append([]byte(nil), data...)})
	if err != nil {
		return err
	}
	return resp.err
}

// Subscribe enables notifications through the CCCD at cccdHandle.
func (p *Peer) Subscribe(ctx context.Context, cccdHandle uint16) error {
	return p.Write(ctx, cccdHandle, 0, binary.LittleEndian.AppendUint16(nil, 0x0001))
}

// Unsubscribe disables notifications through the CCCD at cccdHandle.
func (p *Peer) Unsubscribe(ctx context.Context, cccdHandle uint16) error {
	return p.Write(ctx, cccdHandle, 0, []byte{0, 0})
}

// Pair runs the initiator side of the key exchange and stores the bond.
func (p *Peer) Pair(ctx context.Context) (Pairing, error) {
	kp, err := pairing.GenerateKeyPair()
	if err != nil {
		return Pairing{}, err
	}
	resp, err := p.do(ctx, request{op: opPair, data: kp.PublicKey()})
	if err != nil {
		return Pairing{}, err
	}
	if resp.err != nil {
		return Pairing{}, resp.err
	}

	secret, err := kp.SharedSecret(resp.data)
	if err != nil {
		return Pairing{}, err
	}
	passkey, err := pairing.Passkey(secret)
	if err != nil {
		return Pairing{}, err
	}
	ltk, err := pairing.DeriveLTK(secret, PeerAddress.Bytes, p.r.opts.Address.Bytes)
	if err != nil {
		return Pairing{}, err
	}

	key := link.BondingKey(ltk)
	p.r.mu.Lock()
	p.bond = &key
	p.encrypted = true
	p.r.mu.Unlock()
	return Pairing{Key: key, Passkey: passkey}, nil
}

// Notifications returns the channel of received notifications.
func (p *Peer) Notifications() <-chan Notification {
	return p.r.notifications
}

// NextNotification waits for one notification.
func (p *Peer) NextNotification(ctx context.Context) (Notification, error) {
	select {
	case n := <-p.r.notifications:
		return n, nil
	case <-ctx.Done():
		return Notification{}, fmt.Errorf("loopback: wait for notification: %w", ctx.Err())
	}
}

func (p *Peer) do(ctx context.Context, req request) (response, error) {
	if !p.Connected() {
		return response{}, link.ErrNotConnected
	}
	req.reply = make(chan response, 1)
	select {
	case p.r.requests <- req:
	case <-ctx.Done():
		return response{}, fmt.Errorf("loopback: send request: %w", ctx.Err())
	}
	select {
	case resp := <-req.reply:
		return resp, nil
	case <-ctx.Done():
		return response{}, fmt.Errorf("loopback: wait for reply: %w", ctx.Err())
	}
}
