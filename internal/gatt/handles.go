package gatt

// Assigned 16-bit UUIDs used by the table.
const (
	UUIDDeviceInformation = 0x180A
	UUIDBattery           = 0x180F
	UUIDHumanInterface    = 0x1812

	UUIDManufacturerName   = 0x2A29
	UUIDPnPID              = 0x2A50
	UUIDBatteryLevel       = 0x2A19
	UUIDHIDInformation     = 0x2A4A
	UUIDHIDControlPoint    = 0x2A4C
	UUIDReportMap          = 0x2A4B
	UUIDProtocolMode       = 0x2A4E
	UUIDReport             = 0x2A4D
	UUIDClientCharConfig   = 0x2902
	UUIDPresentationFormat = 0x2904
	UUIDReportReference    = 0x2908
)

// Attribute handles. Declarations are included so the numbering matches
// what a peer discovers.
const (
	HandleDeviceInfoService uint16 = 0x0001
	HandleManufacturerDecl  uint16 = 0x0002
	HandleManufacturer      uint16 = 0x0003
	HandlePnPIDDecl         uint16 = 0x0004
	HandlePnPID             uint16 = 0x0005
	HandleBatteryService    uint16 = 0x0006
	HandleBatteryLevelDecl  uint16 = 0x0007
	HandleBatteryLevel      uint16 = 0x0008
	HandleBatteryLevelCCCD  uint16 = 0x0009
	HandleBatteryFormat     uint16 = 0x000A
	HandleHIDService        uint16 = 0x000B
	HandleHIDInfoDecl       uint16 = 0x000C
	HandleHIDInfo           uint16 = 0x000D
	HandleControlPointDecl  uint16 = 0x000E
	HandleControlPoint      uint16 = 0x000F
	HandleReportMapDecl     uint16 = 0x0010
	HandleReportMap         uint16 = 0x0011
	HandleProtocolModeDecl  uint16 = 0x0012
	HandleProtocolMode      uint16 = 0x0013
	HandleInputReportDecl   uint16 = 0x0014
	HandleInputReport       uint16 = 0x0015
	HandleInputReportCCCD   uint16 = 0x0016
	HandleInputReportRef    uint16 = 0x0017
	HandleLast                     = HandleInputReportRef
)

// ServiceDecl describes one declared service and its characteristics.
type ServiceDecl struct {
	UUID            uint16
	Handle          uint16
	Characteristics []CharacteristicDecl
}

// CharacteristicDecl describes one characteristic value and the
// descriptors that follow it.
type CharacteristicDecl struct {
	UUID        uint16
	Handle      uint16 // value handle
	Kind        Kind
	Notify      bool
	CCCD        uint16 // 0 unless Notify
	Descriptors []DescriptorDecl
}

// DescriptorDecl is a read-only descriptor served from the table.
type DescriptorDecl struct {
	UUID   uint16
	Handle uint16
}

// Services returns the declared services in declaration order.
func Services() []ServiceDecl {
	return []ServiceDecl{
		{
			UUID:   UUIDDeviceInformation,
			Handle: HandleDeviceInfoService,
			Characteristics: []CharacteristicDecl{
				{UUID: UUIDManufacturerName, Handle: HandleManufacturer, Kind: Readable},
				{UUID: UUIDPnPID, Handle: HandlePnPID, Kind: Readable},
			},
		},
		{
			UUID:   UUIDBattery,
			Handle: HandleBatteryService,
			Characteristics: []CharacteristicDecl{
				{
					UUID: UUIDBatteryLevel, Handle: HandleBatteryLevel, Kind: Readable,
					Notify: true, CCCD: HandleBatteryLevelCCCD,
					Descriptors: []DescriptorDecl{{UUID: UUIDPresentationFormat, Handle: HandleBatteryFormat}},
				},
			},
		},
		{
			UUID:   UUIDHumanInterface,
			Handle: HandleHIDService,
			Characteristics: []CharacteristicDecl{
				{UUID: UUIDHIDInformation, Handle: HandleHIDInfo, Kind: Readable},
				{UUID: UUIDHIDControlPoint, Handle: HandleControlPoint, Kind: Writable},
				{UUID: UUIDReportMap, Handle: HandleReportMap, Kind: Readable},
				{UUID: UUIDProtocolMode, Handle: HandleProtocolMode, Kind: ReadWritable},
				{
					UUID: UUIDReport, Handle: HandleInputReport, Kind: Readable,
					Notify: true, CCCD: HandleInputReportCCCD,
					Descriptors: []DescriptorDecl{{UUID: UUIDReportReference, Handle: HandleInputReportRef}},
				},
			},
		},
	}
}

// ServiceUUIDs returns the advertised service UUIDs, HID first.
func ServiceUUIDs() []uint16 {
	return []uint16{UUIDHumanInterface, UUIDBattery, UUIDDeviceInformation}
}
