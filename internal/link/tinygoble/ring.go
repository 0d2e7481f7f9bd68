//go:build linux || tinygo

package tinygoble

import (
	"sync/atomic"

	"github.com/chaz8081/vknob/internal/gatt"
)

// writeSlots is the number of peer writes held between DoWork calls.
const writeSlots = 8

// peerWrite is one write received from the peer. n may exceed the data
// capacity, in which case only the first ScratchCapacity bytes are kept.
type peerWrite struct {
	handle uint16
	offset int
	n      int
	data   [gatt.ScratchCapacity]byte
}

func (w *peerWrite) oversized() bool { return w.n > len(w.data) }

func (w *peerWrite) bytes() []byte { return w.data[:min(w.n, len(w.data))] }

// writeRing is a single-producer single-consumer queue of peer writes.
// push runs in the stack's callback context, which on the SoftDevice is an
// interrupt handler: it must not lock, allocate or log.
type writeRing struct {
	slots   [writeSlots]peerWrite
	head    atomic.Uint32 // next slot to pop
	tail    atomic.Uint32 // next slot to fill
	dropped atomic.Uint32
}

// push copies value into the next free slot. A full ring drops the write
// and counts it.
func (q *writeRing) push(handle uint16, offset int, value []byte) bool {
	t := q.tail.Load()
	if t-q.head.Load() >= writeSlots {
		q.dropped.Add(1)
		return false
	}
	s := &q.slots[t%writeSlots]
	s.handle, s.offset, s.n = handle, offset, len(value)
	copy(s.data[:], value)
	q.tail.Store(t + 1)
	return true
}

// pop copies the oldest write into w.
func (q *writeRing) pop(w *peerWrite) bool {
	h := q.head.Load()
	if h == q.tail.Load() {
		return false
	}
	*w = q.slots[h%writeSlots]
	q.head.Store(h + 1)
	return true
}

// takeDropped returns and resets the dropped-write count.
func (q *writeRing) takeDropped() uint32 {
	return q.dropped.Swap(0)
}

func (q *writeRing) drain() {
	var w peerWrite
	for q.pop(&w) {
	}
}
