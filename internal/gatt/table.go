// Package gatt implements the attribute dispatch table for the remote's
// Device Information, Battery and HID services.
package gatt

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/chaz8081/vknob/internal/hid"
)

// Kind is the access mode of an attribute.
type Kind uint8

const (
	Readable Kind = 1 << iota
	Writable

	ReadWritable = Readable | Writable
)

func (k Kind) CanRead() bool  { return k&Readable != 0 }
func (k Kind) CanWrite() bool { return k&Writable != 0 }

func (k Kind) String() string {
	switch k {
	case Readable:
		return "read"
	case Writable:
		return "write"
	case ReadWritable:
		return "read-write"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

var (
	ErrUnknownHandle = errors.New("gatt: unknown handle")
	ErrNotReadable   = errors.New("gatt: attribute not readable")
	ErrNotWritable   = errors.New("gatt: attribute not writable")
)

// ReadFunc copies attribute bytes starting at offset into dst and returns
// the number of bytes copied.
type ReadFunc func(offset int, dst []byte) int

// WriteFunc stores data at offset.
type WriteFunc func(offset int, data []byte) error

// Entry is one attribute in the table.
type Entry struct {
	Handle uint16
	UUID   uint16
	Kind   Kind
	Notify bool
	Read   ReadFunc
	Write  WriteFunc
}

// Profile holds the device-specific values served by the table.
type Profile struct {
	Manufacturer   string
	VendorIDSource uint8
	VendorID       uint16
	ProductID      uint16
	ProductVersion uint16
	BatteryLevel   uint8
}

// VendorIDSourceUSB marks the vendor ID as assigned by the USB-IF.
const VendorIDSourceUSB = 0x02

// DefaultProfile returns the stock vKnob identity.
func DefaultProfile() Profile {
	return Profile{
		Manufacturer:   "vKnob",
		VendorIDSource: VendorIDSourceUSB,
		VendorID:       0x1337,
		ProductID:      0x1337,
		ProductVersion: 0x1337,
		BatteryLevel:   80,
	}
}

// PnPID encodes the 7-byte PnP ID characteristic value.
func (p Profile) PnPID() []byte {
	b := []byte{p.VendorIDSource}
	b = binary.LittleEndian.AppendUint16(b, p.VendorID)
	b = binary.LittleEndian.AppendUint16(b, p.ProductID)
	b = binary.LittleEndian.AppendUint16(b, p.ProductVersion)
	return b
}

var (
	// HIDInformation is bcdHID 1.01, country 0, flags NormallyConnectable.
	HIDInformation = []byte{0x01, 0x01, 0x00, 0x02}
	// BatteryPresentationFormat is uint8, exponent 0, unit percentage,
	// Bluetooth SIG namespace, description 0.
	BatteryPresentationFormat = []byte{0x04, 0x00, 0xAD, 0x27, 0x01, 0x00, 0x00}
	// InputReportReference is report ID 1, report type Input.
	InputReportReference = []byte{hid.InputReportID, 0x01}
)

// DefaultProtocolMode is Report Protocol Mode.
const DefaultProtocolMode = 0x01

// inputReportIdle is the snapshot returned by plain reads of the input report.
var inputReportIdle = []byte{byte(hid.Clear)}

// ReadAt copies min(len(dst), len(src)-offset) bytes of src starting at
// offset into dst. Offsets outside src copy nothing.
func ReadAt(dst, src []byte, offset int) int {
	if offset < 0 || offset >= len(src) {
		return 0
	}
	return copy(dst, src[offset:])
}

// Static returns a ReadFunc serving an immutable value.
func Static(value []byte) ReadFunc {
	return func(offset int, dst []byte) int {
		return ReadAt(dst, value, offset)
	}
}

// Table dispatches reads and writes by handle. The set of entries is
// fixed; the protocol mode and control point scratch buffers belong to
// the table and live exactly as long as it does.
type Table struct {
	entries      map[uint16]*Entry
	protocolMode *Scratch
	controlPoint *Scratch
}

// NewTable builds the table for one session.
func NewTable(p Profile) *Table {
	t := &Table{
		entries:      make(map[uint16]*Entry),
		protocolMode: NewScratch([]byte{DefaultProtocolMode}),
		controlPoint: NewScratch(nil),
	}

	t.add(Entry{Handle: HandleManufacturer, UUID: UUIDManufacturerName, Kind: Readable, Read: Static([]byte(p.Manufacturer))})
	t.add(Entry{Handle: HandlePnPID, UUID: UUIDPnPID, Kind: Readable, Read: Static(p.PnPID())})

	t.add(Entry{Handle: HandleBatteryLevel, UUID: UUIDBatteryLevel, Kind: Readable, Notify: true, Read: Static([]byte{p.BatteryLevel})})
	t.add(Entry{Handle: HandleBatteryFormat, UUID: UUIDPresentationFormat, Kind: Readable, Read: Static(BatteryPresentationFormat)})

	t.add(Entry{Handle: HandleHIDInfo, UUID: UUIDHIDInformation, Kind: Readable, Read: Static(HIDInformation)})
	t.add(Entry{Handle: HandleControlPoint, UUID: UUIDHIDControlPoint, Kind: Writable, Write: t.writeControlPoint})
	t.add(Entry{Handle: HandleReportMap, UUID: UUIDReportMap, Kind: Readable, Read: Static(hid.ReportMap[:])})
	t.add(Entry{
		Handle: HandleProtocolMode, UUID: UUIDProtocolMode, Kind: ReadWritable,
		Read: t.readProtocolMode, Write: t.writeProtocolMode,
	})
	t.add(Entry{Handle: HandleInputReport, UUID: UUIDReport, Kind: Readable, Notify: true, Read: Static(inputReportIdle)})
	t.add(Entry{Handle: HandleInputReportRef, UUID: UUIDReportReference, Kind: Readable, Read: Static(InputReportReference)})

	return t
}

func (t *Table) add(e Entry) {
	t.entries[e.Handle] = &e
}

// Read dispatches a read of the attribute at handle.
func (t *Table) Read(handle uint16, offset int, dst []byte) (int, error) {
	e, ok := t.entries[handle]
	if !ok {
		return 0, fmt.Errorf("%w: %#04x", ErrUnknownHandle, handle)
	}
	if !e.Kind.CanRead() || e.Read == nil {
		return 0, fmt.Errorf("%w: %#04x", ErrNotReadable, handle)
	}
	return e.Read(offset, dst), nil
}

// Write dispatches a write to the attribute at handle.
func (t *Table) Write(handle uint16, offset int, data []byte) error {
	e, ok := t.entries[handle]
	if !ok {
		return fmt.Errorf("%w: %#04x", ErrUnknownHandle, handle)
	}
	if !e.Kind.CanWrite() || e.Write == nil {
		return fmt.Errorf("%w: %#04x", ErrNotWritable, handle)
	}
	return e.Write(offset, data)
}

// Entry returns a copy of the entry at handle.
func (t *Table) Entry(handle uint16) (Entry, bool) {
	e, ok := t.entries[handle]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Entries returns all entries ordered by handle.
func (t *Table) Entries() []Entry {
	out := make([]Entry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Handle < out[j].Handle })
	return out
}

// Value reads the whole value at handle.
func (t *Table) Value(handle uint16) ([]byte, error) {
	buf := make([]byte, ScratchCapacity)
	n, err := t.Read(handle, 0, buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

// ProtocolMode returns a copy of the current protocol mode value.
func (t *Table) ProtocolMode() []byte { return t.protocolMode.Bytes() }

// ControlPoint returns a copy of the last HID control point value.
func (t *Table) ControlPoint() []byte { return t.controlPoint.Bytes() }

func (t *Table) readProtocolMode(offset int, dst []byte) int {
	slog.Debug("[GATT] protocol mode read", "offset", offset)
	return t.protocolMode.ReadAt(offset, dst)
}

func (t *Table) writeProtocolMode(offset int, data []byte) error {
	slog.Debug("[GATT] protocol mode write", "offset", offset, "data", data)
	if err := t.protocolMode.WriteAt(offset, data); err != nil {
		return fmt.Errorf("gatt: protocol mode: %w", err)
	}
	return nil
}

// writeControlPoint records Suspend/Exit Suspend commands. The remote has
// no low-power state to enter, so the value is only kept.
func (t *Table) writeControlPoint(offset int, data []byte) error {
	slog.Debug("[GATT] control point write", "offset", offset, "data", data)
	if err := t.controlPoint.WriteAt(offset, data); err != nil {
		return fmt.Errorf("gatt: control point: %w", err)
	}
	return nil
}
