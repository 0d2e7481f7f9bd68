package button

import (
	"math/rand"
	"testing"
)

const (
	pressed  = false
	released = true
)

func TestDebouncerFiresAtThreshold(t *testing.T) {
	d := NewDebouncer(DefaultThreshold)

	fires := 0
	firedAt := -1
	for i := 1; i <= DefaultThreshold; i++ {
		if d.Poll(pressed) {
			fires++
			firedAt = i
		}
	}
	if d.Poll(released) {
		t.Fatal("Poll(released) fired")
	}

	if fires != 1 {
		t.Fatalf("fires = %d, want 1", fires)
	}
	if firedAt != DefaultThreshold {
		t.Errorf("fired at poll %d, want %d", firedAt, DefaultThreshold)
	}
}

func TestDebouncerShortPressDoesNotFire(t *testing.T) {
	d := NewDebouncer(10)
	for i := 0; i < 9; i++ {
		if d.Poll(pressed) {
			t.Fatalf("fired after %d pressed polls, threshold is 10", i+1)
		}
	}
	if d.Poll(released) {
		t.Fatal("Poll(released) fired")
	}
	// A fresh run must start counting from the threshold again.
	for i := 0; i < 9; i++ {
		if d.Poll(pressed) {
			t.Fatalf("bounce run fired after %d polls", i+1)
		}
	}
}

func TestDebouncerNoRefireWhileHeld(t *testing.T) {
	d := NewDebouncer(3)
	fires := 0
	for i := 0; i < 100; i++ {
		if d.Poll(pressed) {
			fires++
		}
	}
	if fires != 1 {
		t.Errorf("fires during long hold = %d, want 1", fires)
	}

	d.Poll(released)
	for i := 0; i < 3; i++ {
		if d.Poll(pressed) {
			fires++
		}
	}
	if fires != 2 {
		t.Errorf("fires after release and second press = %d, want 2", fires)
	}
}

func TestDebouncerThresholdClamp(t *testing.T) {
	d := NewDebouncer(0)
	if d.Threshold() != 1 {
		t.Fatalf("Threshold() = %d, want 1", d.Threshold())
	}
	if !d.Poll(pressed) {
		t.Error("threshold 1 should fire on first pressed poll")
	}
}

func TestDebouncerReset(t *testing.T) {
	d := NewDebouncer(2)
	d.Poll(pressed)
	d.Poll(pressed) // fires
	d.Reset()
	d.Poll(pressed)
	if !d.Poll(pressed) {
		t.Error("Reset should re-arm the debouncer")
	}
}

// TestDebouncerRandomSequences checks the fire-once-per-run property
// against a reference count over random level sequences.
func TestDebouncerRandomSequences(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	const threshold = 7

	for iter := 0; iter < 200; iter++ {
		d := NewDebouncer(threshold)
		run := 0
		wantFires, gotFires := 0, 0

		for i := 0; i < 500; i++ {
			level := rng.Intn(4) == 0 // mostly pressed, occasional release
			if level {
				run = 0
			} else {
				run++
				if run == threshold {
					wantFires++
				}
			}
			if d.Poll(level) {
				gotFires++
				if run != threshold {
					t.Fatalf("iter %d: fired with run length %d", iter, run)
				}
			}
		}
		if gotFires != wantFires {
			t.Fatalf("iter %d: fires = %d, want %d", iter, gotFires, wantFires)
		}
	}
}

func TestButtonPressed(t *testing.T) {
	level := released
	b := New(PinFunc(func() bool { return level }), 2)

	if b.Pressed() {
		t.Fatal("released button reported press")
	}
	level = pressed
	if b.Pressed() {
		t.Fatal("press fired before threshold")
	}
	if !b.Pressed() {
		t.Fatal("press did not fire at threshold")
	}
	if b.Pressed() {
		t.Fatal("held button fired twice")
	}
}

func TestNewPanicsOnNilPin(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("New(nil) should panic")
		}
	}()
	New(nil, 1)
}
