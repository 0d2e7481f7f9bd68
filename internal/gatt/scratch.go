package gatt

import (
	"errors"
	"fmt"
)

// ScratchCapacity is the size of a writable characteristic's buffer.
const ScratchCapacity = 128

var (
	ErrScratchOverflow = errors.New("gatt: write exceeds scratch capacity")
	ErrInvalidOffset   = errors.New("gatt: invalid offset")
)

// Scratch is a fixed-capacity writable value with an explicit length.
type Scratch struct {
	buf [ScratchCapacity]byte
	n   int
}

// NewScratch returns a Scratch holding initial, truncated to capacity.
func NewScratch(initial []byte) *Scratch {
	s := &Scratch{}
	s.n = copy(s.buf[:], initial)
	return s
}

// Len returns the logical length of the value.
func (s *Scratch) Len() int { return s.n }

// Bytes returns a copy of the value.
func (s *Scratch) Bytes() []byte {
	out := make([]byte, s.n)
	copy(out, s.buf[:s.n])
	return out
}

// ReadAt copies the value starting at offset into dst.
func (s *Scratch) ReadAt(offset int, dst []byte) int {
	return ReadAt(dst, s.buf[:s.n], offset)
}

// WriteAt stores data at offset and sets the length to offset+len(data).
// Writes that would not fit are rejected and leave the value unchanged.
func (s *Scratch) WriteAt(offset int, data []byte) error {
	if offset < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidOffset, offset)
	}
	end := offset + len(data)
	if end > ScratchCapacity {
		return fmt.Errorf("%w: %d > %d", ErrScratchOverflow, end, ScratchCapacity)
	}
	copy(s.buf[offset:end], data)
	s.n = end
	return nil
}
