// Command test-hotkey is a manual test for the hotkey button.
// Run it, then press Ctrl+Shift+K to see raw edges and debounced presses.
// Press Ctrl+C to exit.
//
// Usage:
//
//	go run ./cmd/test-hotkey [--mode hold|toggle] [--threshold N]
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chaz8081/vknob/internal/button"
	"github.com/chaz8081/vknob/internal/hotkey"
)

func main() {
	mode := flag.String("mode", "hold", "hotkey mode: hold or toggle")
	threshold := flag.Int("threshold", 50, "debounce threshold in 1ms ticks")
	flag.Parse()

	keys := []string{"ctrl", "shift", "k"}
	fmt.Printf("Listening for Ctrl+Shift+K in %q mode (debounce %d ticks)...\n", *mode, *threshold)
	fmt.Println("Press Ctrl+C to exit.")

	listener := hotkey.NewListener(keys, *mode)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		fmt.Println("\nShutting down...")
		listener.Stop()
	}()

	// Fan raw events out to the console and the pin.
	raw := make(chan hotkey.Event, 16)
	go func() {
		defer close(raw)
		for ev := range listener.Events() {
			switch ev.Type {
			case hotkey.EventPress:
				fmt.Println(">>> DOWN")
			case hotkey.EventRelease:
				fmt.Println("<<< UP")
			}
			raw <- ev
		}
		fmt.Println("Event channel closed.")
	}()

	pin := &hotkey.Pin{}
	go pin.Follow(raw)

	b := button.New(pin, *threshold)
	go func() {
		presses := 0
		for range time.Tick(time.Millisecond) {
			if b.Pressed() {
				presses++
				fmt.Printf("*** PRESS #%d\n", presses)
			}
		}
	}()

	// Blocks until stopped
	listener.Start()
	fmt.Println("Done.")
	os.Exit(0)
}
