// Package button turns a noisy, active-low digital input into single
// press events.
package button

// DefaultThreshold is the number of consecutive "pressed" polls required
// before a press is reported.
const DefaultThreshold = 500

// Pin is a raw digital input. Get returns true while the input is high,
// which for the pulled-up button means released.
type Pin interface {
	Get() bool
}

// Debouncer is an edge-triggered counter over raw input levels.
// It is not safe for concurrent use; the session loop owns it.
type Debouncer struct {
	threshold int
	remaining int
}

// NewDebouncer creates a Debouncer that fires after threshold consecutive
// pressed polls. Thresholds below 1 are treated as 1.
func NewDebouncer(threshold int) *Debouncer {
	if threshold < 1 {
		threshold = 1
	}
	return &Debouncer{threshold: threshold, remaining: threshold}
}

// Threshold returns the configured number of pressed polls per event.
func (d *Debouncer) Threshold() int {
	return d.threshold
}

// Poll advances the debouncer with the current level (true = released)
// and reports whether a press event fired on this tick.
func (d *Debouncer) Poll(level bool) bool {
	if level {
		// Released: re-arm, and drop any countdown interrupted by bounce.
		d.remaining = d.threshold
		return false
	}
	if d.remaining == 0 {
		return false
	}
	d.remaining--
	return d.remaining == 0
}

// Reset re-arms the debouncer as if a release had been observed.
func (d *Debouncer) Reset() {
	d.remaining = d.threshold
}

// Button couples a Pin with a Debouncer.
type Button struct {
	pin Pin
	deb *Debouncer
}

// New creates a Button reading pin with the given debounce threshold.
// Panics if pin is nil (programmer error).
func New(pin Pin, threshold int) *Button {
	if pin == nil {
		panic("button: New called with nil pin")
	}
	return &Button{pin: pin, deb: NewDebouncer(threshold)}
}

// Pressed samples the pin once and reports whether a debounced press fired.
func (b *Button) Pressed() bool {
	return b.deb.Poll(b.pin.Get())
}

// PinFunc adapts a plain function to the Pin interface.
type PinFunc func() bool

// Get calls f.
func (f PinFunc) Get() bool { return f() }
