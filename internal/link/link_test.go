package link

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestAdvertisingDataEncode(t *testing.T) {
	d := AdvertisingData{
		Flags:        FlagLELimitedDiscoverable | FlagBREDRNotSupported,
		ServiceUUIDs: []uint16{0x1812, 0x180F},
		LocalName:    "vKnob",
		CompanyID:    0x1337,
		Appearance:   AppearanceKeyboard,
	}
	got, err := d.Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	want := []byte{
		0x02, 0x01, 0x05,
		0x05, 0x03, 0x12, 0x18, 0x0F, 0x18,
		0x06, 0x09, 'v', 'K', 'n', 'o', 'b',
		0x03, 0xFF, 0x37, 0x13,
		0x03, 0x19, 0xC1, 0x03,
	}
	if !bytes.Equal(got, want) {
		t.Errorf("Encode() = % x\nwant       % x", got, want)
	}
}

func TestAdvertisingDataEncodeEmpty(t *testing.T) {
	got, err := AdvertisingData{}.Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Encode() = % x, want empty", got)
	}
}

func TestAdvertisingDataManufacturerPayload(t *testing.T) {
	got, err := AdvertisingData{CompanyID: 0x004C, ManufacturerData: []byte{0xAA, 0xBB}}.Encode()
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0x05, 0xFF, 0x4C, 0x00, 0xAA, 0xBB}
	if !bytes.Equal(got, want) {
		t.Errorf("Encode() = % x, want % x", got, want)
	}
}

func TestAdvertisingDataTooLong(t *testing.T) {
	d := AdvertisingData{Flags: FlagLEGeneralDiscoverable, LocalName: strings.Repeat("x", 30)}
	_, err := d.Encode()
	if !errors.Is(err, ErrAdvertisingDataTooLong) {
		t.Errorf("Encode() error = %v, want ErrAdvertisingDataTooLong", err)
	}
}

func TestBondingKeyClone(t *testing.T) {
	var nilKey *BondingKey
	if nilKey.Clone() != nil {
		t.Error("nil Clone() should be nil")
	}

	k := &BondingKey{1, 2, 3}
	c := k.Clone()
	if c == k || *c != *k {
		t.Fatalf("Clone() = %p %x, want distinct copy of %p", c, *c, k)
	}
	c[0] = 0xFF
	if k[0] != 1 {
		t.Error("mutating the clone changed the original")
	}
}

func TestAddrString(t *testing.T) {
	a := Addr{Bytes: [6]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0xC0}}
	if got := a.String(); got != "C0:05:04:03:02:01" {
		t.Errorf("String() = %q", got)
	}
}

func TestWorkResultString(t *testing.T) {
	tests := []struct {
		r    WorkResult
		want string
	}{
		{WorkDidSend, "did-send"},
		{WorkGotDisconnected, "got-disconnected"},
		{WorkResult(7), "WorkResult(7)"},
	}
	for _, tt := range tests {
		if got := tt.r.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", int(tt.r), got, tt.want)
		}
	}
}
