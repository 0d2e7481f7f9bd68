//go:build linux

package tinygoble

import (
	"errors"
	"testing"
	"time"

	"tinygo.org/x/bluetooth"

	"github.com/chaz8081/vknob/internal/gatt"
	"github.com/chaz8081/vknob/internal/link"
)

func TestPermissions(t *testing.T) {
	for _, svc := range gatt.Services() {
		for _, ch := range svc.Characteristics {
			p := permissions(ch)
			if got := p&bluetooth.CharacteristicReadPermission != 0; got != ch.Kind.CanRead() {
				t.Errorf("%#04x read permission = %v, want %v", ch.Handle, got, ch.Kind.CanRead())
			}
			if got := p&bluetooth.CharacteristicWritePermission != 0; got != ch.Kind.CanWrite() {
				t.Errorf("%#04x write permission = %v, want %v", ch.Handle, got, ch.Kind.CanWrite())
			}
			if got := p&bluetooth.CharacteristicNotifyPermission != 0; got != ch.Notify {
				t.Errorf("%#04x notify permission = %v, want %v", ch.Handle, got, ch.Notify)
			}
		}
	}
}

func TestAdvertisementOptions(t *testing.T) {
	d := link.AdvertisingData{
		LocalName:    "vKnob",
		ServiceUUIDs: gatt.ServiceUUIDs(),
		CompanyID:    0x1337,
	}
	opts := advertisementOptions(d, link.DefaultAdvertisingParameters())

	if opts.LocalName != "vKnob" {
		t.Errorf("LocalName = %q", opts.LocalName)
	}
	if len(opts.ServiceUUIDs) != 3 || opts.ServiceUUIDs[0] != bluetooth.New16BitUUID(gatt.UUIDHumanInterface) {
		t.Errorf("ServiceUUIDs = %v", opts.ServiceUUIDs)
	}
	if len(opts.ManufacturerData) != 1 || opts.ManufacturerData[0].CompanyID != 0x1337 {
		t.Errorf("ManufacturerData = %+v", opts.ManufacturerData)
	}

	d.CompanyID = 0
	if opts := advertisementOptions(d, link.DefaultAdvertisingParameters()); len(opts.ManufacturerData) != 0 {
		t.Error("zero company ID should omit manufacturer data")
	}
}

func TestIntervalDuration(t *testing.T) {
	if got := intervalDuration(0x00A0); got != 100*time.Millisecond {
		t.Errorf("intervalDuration(0xA0) = %v, want 100ms", got)
	}
}

func TestWriteRingDropsWhenFull(t *testing.T) {
	var q writeRing
	for i := 0; i < writeSlots+3; i++ {
		q.push(gatt.HandleProtocolMode, 0, []byte{byte(i)})
	}
	if n := q.takeDropped(); n != 3 {
		t.Errorf("dropped = %d, want 3", n)
	}
	if n := q.takeDropped(); n != 0 {
		t.Errorf("dropped after take = %d, want 0", n)
	}

	var w peerWrite
	for i := 0; i < writeSlots; i++ {
		if !q.pop(&w) {
			t.Fatalf("pop %d: ring empty", i)
		}
		if got := w.bytes(); len(got) != 1 || got[0] != byte(i) {
			t.Errorf("pop %d = % x", i, got)
		}
	}
	if q.pop(&w) {
		t.Error("pop on empty ring succeeded")
	}
}

func TestWriteRingDoesNotAllocate(t *testing.T) {
	var q writeRing
	var w peerWrite
	value := make([]byte, 200)
	allocs := testing.AllocsPerRun(100, func() {
		q.push(gatt.HandleProtocolMode, 0, value)
		q.pop(&w)
	})
	if allocs != 0 {
		t.Errorf("push+pop allocated %v times", allocs)
	}
	if !w.oversized() || len(w.bytes()) != gatt.ScratchCapacity {
		t.Errorf("oversized write kept n=%d, %d bytes", w.n, len(w.bytes()))
	}
}

func TestServerAppliesQueuedWrite(t *testing.T) {
	r := newRadio(newFakeStack())
	r.connected.Store(true)
	table := gatt.NewTable(gatt.DefaultProfile())
	s := &server{r: r, table: table}

	r.writes.push(gatt.HandleProtocolMode, 0, []byte{0x00})
	if res, err := s.DoWork(); res != link.WorkDidSend || err != nil {
		t.Fatalf("DoWork() = %v, %v", res, err)
	}
	if pm := table.ProtocolMode(); len(pm) != 1 || pm[0] != 0x00 {
		t.Errorf("protocol mode = % x, want 00", pm)
	}

	r.onConnect(bluetooth.Device{}, false)
	if res, _ := s.DoWork(); res != link.WorkGotDisconnected {
		t.Errorf("DoWork() after disconnect = %v", res)
	}
}

func TestServerReportsDisconnectBetweenPolls(t *testing.T) {
	r := newRadio(newFakeStack())
	r.connected.Store(true)
	s := &server{r: r, table: gatt.NewTable(gatt.DefaultProfile()), epoch: r.disconnects.Load()}

	// Drop and reconnect before the next DoWork.
	r.onConnect(bluetooth.Device{}, false)
	r.onConnect(bluetooth.Device{}, true)
	if res, _ := s.DoWork(); res != link.WorkGotDisconnected {
		t.Errorf("DoWork() = %v, want WorkGotDisconnected", res)
	}
}

func TestServerCCCDFollowsConnection(t *testing.T) {
	r := newRadio(newFakeStack())
	s := &server{r: r, table: gatt.NewTable(gatt.DefaultProfile())}
	buf := make([]byte, 2)

	r.connected.Store(true)
	if n, _ := s.ReadAttribute(gatt.HandleInputReportCCCD, 0, buf); n != 2 || buf[0] != 0x01 {
		t.Errorf("CCCD while connected = % x", buf[:n])
	}
	r.connected.Store(false)
	if n, _ := s.ReadAttribute(gatt.HandleInputReportCCCD, 0, buf); n != 2 || buf[0] != 0x00 {
		t.Errorf("CCCD while disconnected = % x", buf[:n])
	}
}

// bringUp runs one advertise, connect and serve cycle against r.
func bringUp(t *testing.T, r *Radio, st *fakeStack) (link.Server, *gatt.Table) {
	t.Helper()
	if err := r.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	d := link.AdvertisingData{LocalName: "vKnob", ServiceUUIDs: gatt.ServiceUUIDs()}
	if err := r.SetAdvertisingParameters(link.DefaultAdvertisingParameters()); err != nil {
		t.Fatalf("SetAdvertisingParameters() error = %v", err)
	}
	if err := r.SetAdvertisingData(d); err != nil {
		t.Fatalf("SetAdvertisingData() error = %v", err)
	}
	if err := r.SetAdvertiseEnable(true); err != nil {
		t.Fatalf("SetAdvertiseEnable(true) error = %v", err)
	}
	st.connect(true)
	table := gatt.NewTable(gatt.DefaultProfile())
	srv, err := r.Serve(table, link.Addr{}, nil)
	if err != nil {
		t.Fatalf("Serve() error = %v", err)
	}
	return srv, table
}

func TestRadioSecondSession(t *testing.T) {
	st := newFakeStack()
	r := newRadio(st)

	srv, _ := bringUp(t, r, st)
	r.writes.push(gatt.HandleProtocolMode, 0, []byte{0x00})
	if _, err := srv.DoWork(); err != nil {
		t.Fatalf("DoWork() error = %v", err)
	}
	st.connect(false)
	if res, _ := srv.DoWork(); res != link.WorkGotDisconnected {
		t.Fatalf("DoWork() after disconnect = %v", res)
	}
	srv.Close()

	srv, _ = bringUp(t, r, st)
	defer srv.Close()

	if st.enables != 1 {
		t.Errorf("Enable called %d times, want 1", st.enables)
	}
	if len(st.services) != 3 {
		t.Errorf("registered %d services, want 3", len(st.services))
	}
	if st.adv.stops == 0 {
		t.Error("advertisement was not stopped before reconfiguring")
	}
	if got := st.adv.configures; got != 2 {
		t.Errorf("Configure called %d times, want 2", got)
	}
	if got := st.value(r, gatt.HandleProtocolMode).last(); len(got) != 1 || got[0] != 0x01 {
		t.Errorf("protocol mode after reset = % x, want 01", got)
	}
	if res, err := srv.DoWork(); res != link.WorkDidSend || err != nil {
		t.Errorf("DoWork() = %v, %v", res, err)
	}
}

func TestRadioAdvertiseEnableIsIdempotent(t *testing.T) {
	st := newFakeStack()
	r := newRadio(st)
	if err := r.SetAdvertiseEnable(true); err == nil {
		t.Error("SetAdvertiseEnable before Init should fail")
	}
	if err := r.Init(); err != nil {
		t.Fatal(err)
	}
	if err := r.SetAdvertiseEnable(false); err != nil {
		t.Errorf("stop while stopped: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := r.SetAdvertiseEnable(true); err != nil {
			t.Errorf("start %d: %v", i, err)
		}
	}
	if st.adv.starts != 1 {
		t.Errorf("Start called %d times, want 1", st.adv.starts)
	}
}

func TestServerResyncsRejectedWrite(t *testing.T) {
	tests := []struct {
		name   string
		offset int
		value  []byte
	}{
		{"oversized", 0, make([]byte, gatt.ScratchCapacity+72)},
		{"past capacity", 100, make([]byte, 40)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newFakeStack()
			r := newRadio(st)
			srv, table := bringUp(t, r, st)
			defer srv.Close()

			pm := st.value(r, gatt.HandleProtocolMode)
			pm.Write(tt.value) // the stack keeps the peer's bytes
			r.writes.push(gatt.HandleProtocolMode, tt.offset, tt.value)

			_, err := srv.DoWork()
			if !errors.Is(err, gatt.ErrScratchOverflow) {
				t.Fatalf("DoWork() error = %v, want ErrScratchOverflow", err)
			}
			want := table.ProtocolMode()
			if got := pm.last(); string(got) != string(want) {
				t.Errorf("stack value = % x, want % x", got, want)
			}
		})
	}
}

func TestServerResyncsAcceptedWrite(t *testing.T) {
	st := newFakeStack()
	r := newRadio(st)
	srv, table := bringUp(t, r, st)
	defer srv.Close()

	r.writes.push(gatt.HandleProtocolMode, 0, []byte{0x00})
	if _, err := srv.DoWork(); err != nil {
		t.Fatal(err)
	}
	if got, want := st.value(r, gatt.HandleProtocolMode).last(), table.ProtocolMode(); string(got) != string(want) {
		t.Errorf("stack value = % x, want % x", got, want)
	}
	// Write-only characteristics are not copied back.
	r.writes.push(gatt.HandleControlPoint, 0, []byte{0x01})
	if _, err := srv.DoWork(); err != nil {
		t.Fatal(err)
	}
	if got := st.value(r, gatt.HandleControlPoint).writes; got != 0 {
		t.Errorf("control point written back %d times", got)
	}
}
