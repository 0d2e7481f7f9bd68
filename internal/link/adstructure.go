package link

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// MaxAdvertisingDataLen is the legacy advertising payload limit.
const MaxAdvertisingDataLen = 31

// AD types.
const (
	adTypeFlags             = 0x01
	adTypeServiceUUIDs16    = 0x03 // complete list
	adTypeCompleteLocalName = 0x09
	adTypeAppearance        = 0x19
	adTypeManufacturerData  = 0xFF
)

// Flags values.
const (
	FlagLELimitedDiscoverable uint8 = 0x01
	FlagLEGeneralDiscoverable uint8 = 0x02
	FlagBREDRNotSupported     uint8 = 0x04
)

// AppearanceKeyboard is the GAP appearance value for a HID keyboard.
const AppearanceKeyboard uint16 = 0x03C1

// ErrAdvertisingDataTooLong is returned when the encoded payload exceeds
// MaxAdvertisingDataLen.
var ErrAdvertisingDataTooLong = errors.New("link: advertising data too long")

// AdvertisingData is the content of the advertising payload.
type AdvertisingData struct {
	Flags        uint8
	ServiceUUIDs []uint16
	LocalName    string
	CompanyID    uint16
	// ManufacturerData follows the company identifier. A zero CompanyID
	// omits the manufacturer-specific structure.
	ManufacturerData []byte
	Appearance       uint16
}

// Encode serialises d as a sequence of length-type-value AD structures.
func (d AdvertisingData) Encode() ([]byte, error) {
	var buf []byte
	if d.Flags != 0 {
		buf = appendAD(buf, adTypeFlags, []byte{d.Flags})
	}
	if len(d.ServiceUUIDs) > 0 {
		uuids := make([]byte, 0, 2*len(d.ServiceUUIDs))
		for _, u := range d.ServiceUUIDs {
			uuids = binary.LittleEndian.AppendUint16(uuids, u)
		}
		buf = appendAD(buf, adTypeServiceUUIDs16, uuids)
	}
	if d.LocalName != "" {
		buf = appendAD(buf, adTypeCompleteLocalName, []byte(d.LocalName))
	}
	if d.CompanyID != 0 {
		payload := binary.LittleEndian.AppendUint16(nil, d.CompanyID)
		buf = appendAD(buf, adTypeManufacturerData, append(payload, d.ManufacturerData...))
	}
	if d.Appearance != 0 {
		buf = appendAD(buf, adTypeAppearance, binary.LittleEndian.AppendUint16(nil, d.Appearance))
	}
	if len(buf) > MaxAdvertisingDataLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrAdvertisingDataTooLong, len(buf))
	}
	return buf, nil
}

func appendAD(buf []byte, typ byte, data []byte) []byte {
	buf = append(buf, byte(len(data)+1), typ)
	return append(buf, data...)
}
