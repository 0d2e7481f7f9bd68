// Package hid describes the consumer-control HID report exposed over GATT
// and sends momentary key reports to a subscribed peer.
package hid

import (
	"errors"
	"fmt"
)

// ReportMapSize is the length of ReportMap in bytes.
const ReportMapSize = 37

const (
	// InputReportID is the report ID of the single input report.
	InputReportID = 1
	// InputReportSize is the logical length of the input report in bytes.
	InputReportSize = 1
)

// ReportMap is the HID report descriptor served from the report map
// characteristic. It must not be modified.
var ReportMap = [ReportMapSize]byte{
	0x05, 0x0C, // Usage Page (Consumer)
	0x09, 0x01, // Usage (Consumer Control)
	0xA1, 0x01, // Collection (Application)
	0x85, 0x01, //   Report ID (1)
	0x09, 0xE9, //   Usage (Volume Increment)
	0x09, 0xEA, //   Usage (Volume Decrement)
	0x09, 0xE2, //   Usage (Mute)
	0x09, 0xCD, //   Usage (Play/Pause)
	0x09, 0xB7, //   Usage (Stop)
	0x09, 0xB5, //   Usage (Scan Next Track)
	0x09, 0xB6, //   Usage (Scan Previous Track)
	0x15, 0x00, //   Logical Minimum (0)
	0x25, 0x01, //   Logical Maximum (1)
	0x95, 0x07, //   Report Count (7)
	0x75, 0x01, //   Report Size (1)
	0x81, 0x02, //   Input (Data, Var, Abs)
	0x95, 0x01, //   Report Count (1)
	0x81, 0x03, //   Input (Const, Var, Abs)
	0xC0, // End Collection
}

// Short item tags (prefix byte with the size bits masked off).
const (
	itemInput         = 0x80
	itemCollection    = 0xA0
	itemEndCollection = 0xC0
	itemReportSize    = 0x74
	itemReportID      = 0x84
	itemReportCount   = 0x94
	itemLongPrefix    = 0xFE
)

var (
	ErrTruncatedItem        = errors.New("hid: truncated report descriptor item")
	ErrUnbalancedCollection = errors.New("hid: unbalanced collection")
	ErrLongItem             = errors.New("hid: long items are not supported")
)

// DescriptorInfo summarises a parsed report descriptor.
type DescriptorInfo struct {
	ReportIDs       []uint8
	InputReportBits int // per report, summed over all input main items
}

// ValidateReportMap walks the short-item encoding of a report descriptor,
// checking that every item is complete and collections are balanced.
// Global state (report size/count) follows the HID 1.11 item rules;
// Push/Pop are not tracked.
func ValidateReportMap(b []byte) (DescriptorInfo, error) {
	var info DescriptorInfo
	var depth int
	var reportSize, reportCount int

	for i := 0; i < len(b); {
		prefix := b[i]
		if prefix == itemLongPrefix {
			return info, ErrLongItem
		}
		size := int(prefix & 0x03)
		if size == 3 {
			size = 4
		}
		if i+1+size > len(b) {
			return info, fmt.Errorf("%w at offset %d", ErrTruncatedItem, i)
		}
		data := itemValue(b[i+1 : i+1+size])

		switch prefix &^ 0x03 {
		case itemCollection:
			depth++
		case itemEndCollection:
			depth--
			if depth < 0 {
				return info, fmt.Errorf("%w at offset %d", ErrUnbalancedCollection, i)
			}
		case itemReportID:
			info.ReportIDs = append(info.ReportIDs, uint8(data))
		case itemReportSize:
			reportSize = int(data)
		case itemReportCount:
			reportCount = int(data)
		case itemInput:
			info.InputReportBits += reportSize * reportCount
		}
		i += 1 + size
	}
	if depth != 0 {
		return info, ErrUnbalancedCollection
	}
	return info, nil
}

func itemValue(b []byte) uint32 {
	var v uint32
	for i, c := range b {
		v |= uint32(c) << (8 * i)
	}
	return v
}
