// Package trace records session and link events to a CBOR file so a
// simulator run can be inspected afterwards.
package trace

import (
	"fmt"
	"strings"
	"time"
)

// Layer is where a record was captured.
type Layer uint8

const (
	LayerSession Layer = 0
	LayerLink    Layer = 1
)

func (l Layer) String() string {
	switch l {
	case LayerSession:
		return "SESSION"
	case LayerLink:
		return "LINK"
	default:
		return "UNKNOWN"
	}
}

// Record is one traced event. CBOR encoding uses integer keys.
type Record struct {
	Time    time.Time `cbor:"1,keyasint"`
	Session string    `cbor:"2,keyasint,omitempty"`
	Layer   Layer     `cbor:"3,keyasint"`
	Kind    string    `cbor:"4,keyasint"`
	Handle  uint16    `cbor:"5,keyasint,omitempty"`
	Data    []byte    `cbor:"6,keyasint,omitempty"`
	Keys    uint8     `cbor:"7,keyasint,omitempty"`
	Err     string    `cbor:"8,keyasint,omitempty"`
}

// String formats r as a single line.
func (r Record) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %-7s %-12s", r.Time.Format("15:04:05.000000"), r.Layer, r.Kind)
	if r.Session != "" {
		fmt.Fprintf(&b, " session=%.8s", r.Session)
	}
	if r.Handle != 0 {
		fmt.Fprintf(&b, " handle=0x%04X", r.Handle)
	}
	if len(r.Data) > 0 {
		fmt.Fprintf(&b, " data=% X", r.Data)
	}
	if r.Keys != 0 {
		fmt.Fprintf(&b, " keys=0x%02X", r.Keys)
	}
	if r.Err != "" {
		fmt.Fprintf(&b, " err=%q", r.Err)
	}
	return b.String()
}
