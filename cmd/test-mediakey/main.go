// Command test-mediakey is a manual test for media key injection.
// It waits 3 seconds, then taps the given media key on this machine.
// Start some audio playback before the countdown finishes.
//
// Usage:
//
//	go run ./cmd/test-mediakey [--key play_pause]
package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/chaz8081/vknob/internal/hid"
	"github.com/chaz8081/vknob/internal/inject"
)

func main() {
	keyName := flag.String("key", "play_pause", "media key: vol_up, vol_down, mute, play_pause, stop, next_track, prev_track")
	flag.Parse()

	key, err := hid.ParseMediaKey(*keyName)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Printf("Will send %s in 3 seconds...\n", key)

	for i := 3; i > 0; i-- {
		fmt.Printf("%d...\n", i)
		time.Sleep(time.Second)
	}

	// Press then clear, as the remote reports it.
	inj := inject.NewInjector()
	if err := inj.HandleReport([]byte{byte(key)}); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if err := inj.HandleReport([]byte{byte(hid.Clear)}); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Println("\nDone!")
}
