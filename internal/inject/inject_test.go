package inject

import (
	"errors"
	"testing"

	"github.com/chaz8081/vknob/internal/hid"
)

type mockTapper struct {
	taps []string
	err  error
}

func (m *mockTapper) KeyTap(key string) error {
	m.taps = append(m.taps, key)
	return m.err
}

func TestInjectPressAndClear(t *testing.T) {
	m := &mockTapper{}
	inj := NewInjectorWith(m)

	if err := inj.HandleReport([]byte{byte(hid.PlayPause)}); err != nil {
		t.Fatal(err)
	}
	if err := inj.HandleReport([]byte{0x00}); err != nil {
		t.Fatal(err)
	}

	if len(m.taps) != 1 || m.taps[0] != "audio_play" {
		t.Errorf("taps = %v, want [audio_play]", m.taps)
	}
}

func TestInjectHeldKeyTapsOnce(t *testing.T) {
	m := &mockTapper{}
	inj := NewInjectorWith(m)

	inj.Inject(hid.VolUp)
	inj.Inject(hid.VolUp)
	inj.Inject(hid.VolUp | hid.Mute)
	inj.Inject(hid.Clear)
	inj.Inject(hid.VolUp)

	want := []string{"audio_vol_up", "audio_mute", "audio_vol_up"}
	if len(m.taps) != len(want) {
		t.Fatalf("taps = %v, want %v", m.taps, want)
	}
	for i := range want {
		if m.taps[i] != want[i] {
			t.Errorf("tap %d = %q, want %q", i, m.taps[i], want[i])
		}
	}
}

func TestInjectBadReport(t *testing.T) {
	inj := NewInjectorWith(&mockTapper{})
	for _, data := range [][]byte{nil, {1, 2}} {
		if err := inj.HandleReport(data); !errors.Is(err, ErrBadReport) {
			t.Errorf("HandleReport(% x) error = %v, want ErrBadReport", data, err)
		}
	}
}

func TestInjectTapError(t *testing.T) {
	boom := errors.New("no display")
	m := &mockTapper{err: boom}
	inj := NewInjectorWith(m)

	err := inj.Inject(hid.NextTrack | hid.PrevTrack)
	if !errors.Is(err, boom) {
		t.Errorf("Inject() error = %v, want wrapped tap error", err)
	}
	if len(m.taps) != 2 {
		t.Errorf("taps = %v, want both keys attempted", m.taps)
	}
}

func TestEveryKeyHasName(t *testing.T) {
	for _, k := range hid.MediaKeys(0x7F).Keys() {
		if _, ok := KeyName(k); !ok {
			t.Errorf("no key name for %v", k)
		}
	}
}

func TestNewInjectorWithNilPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewInjectorWith(nil) should panic")
		}
	}()
	NewInjectorWith(nil)
}
