package hid

import (
	"fmt"
	"strings"
)

// MediaKeys is the one-byte consumer-control input report. Bit positions
// follow the usage order in ReportMap.
type MediaKeys uint8

const (
	Clear     MediaKeys = 0
	VolUp     MediaKeys = 1 << 0
	VolDown   MediaKeys = 1 << 1
	Mute      MediaKeys = 1 << 2
	PlayPause MediaKeys = 1 << 3
	Stop      MediaKeys = 1 << 4
	NextTrack MediaKeys = 1 << 5
	PrevTrack MediaKeys = 1 << 6
)

var keyNames = []struct {
	key  MediaKeys
	name string
}{
	{VolUp, "vol_up"},
	{VolDown, "vol_down"},
	{Mute, "mute"},
	{PlayPause, "play_pause"},
	{Stop, "stop"},
	{NextTrack, "next_track"},
	{PrevTrack, "prev_track"},
}

// Keys returns the individual keys set in k, in report bit order.
func (k MediaKeys) Keys() []MediaKeys {
	var out []MediaKeys
	for _, kn := range keyNames {
		if k&kn.key != 0 {
			out = append(out, kn.key)
		}
	}
	return out
}

func (k MediaKeys) String() string {
	if k == Clear {
		return "clear"
	}
	var names []string
	for _, kn := range keyNames {
		if k&kn.key != 0 {
			names = append(names, kn.name)
		}
	}
	if rest := k &^ 0x7F; rest != 0 {
		names = append(names, fmt.Sprintf("0x%02x", uint8(rest)))
	}
	return strings.Join(names, "|")
}

// ParseMediaKey parses a single key name as produced by String.
func ParseMediaKey(name string) (MediaKeys, error) {
	for _, kn := range keyNames {
		if kn.name == name {
			return kn.key, nil
		}
	}
	return Clear, fmt.Errorf("hid: unknown media key %q", name)
}
