// Command vknob-sim runs the remote's session controller on a desktop.
// A global hotkey stands in for the button, and a simulated host on an
// in-process link pairs with the remote and turns its input reports into
// media key taps.
//
// Usage:
//
//	go run ./cmd/vknob-sim [--config path] [--trace file.cbor] [--dry-run] [--drop-after N] [--bluez]
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/chaz8081/vknob/internal/config"
	"github.com/chaz8081/vknob/internal/hotkey"
	"github.com/chaz8081/vknob/internal/indicator"
	"github.com/chaz8081/vknob/internal/inject"
	"github.com/chaz8081/vknob/internal/link"
	"github.com/chaz8081/vknob/internal/link/loopback"
	"github.com/chaz8081/vknob/internal/session"
	"github.com/chaz8081/vknob/internal/trace"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: ~/.config/vknob/config.yaml)")
	tracePath := flag.String("trace", "", "write a CBOR event trace to this file (overrides trace_path)")
	dryRun := flag.Bool("dry-run", false, "log media keys instead of tapping them")
	dropAfter := flag.Int("drop-after", 0, "host disconnects after this many presses (0 = never)")
	useBlueZ := flag.Bool("bluez", false, "advertise on the local Bluetooth adapter instead of the simulated host (Linux)")
	writeConfig := flag.Bool("write-config", false, "write the default config file and exit")
	flag.Parse()

	if *writeConfig {
		path, err := config.WriteDefault()
		if err != nil {
			log.Fatalf("config: %v", err)
		}
		if path == "" {
			log.Printf("Config already exists at %s", config.DefaultConfigPath())
			return
		}
		log.Printf("Wrote %s", path)
		return
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *tracePath != "" {
		cfg.TracePath = *tracePath
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config validation: %v", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: config.ParseLogLevel(cfg.LogLevel),
	})))

	printBanner(cfg, *useBlueZ)

	opts := cfg.SessionOptions()

	var recorder *trace.Recorder
	if cfg.TracePath != "" {
		recorder, err = trace.Create(cfg.TracePath)
		if err != nil {
			log.Fatalf("Failed to open trace file: %v", err)
		}
		opts.Observer = recorder
		log.Printf("Tracing to %s", cfg.TracePath)
	}

	var radio link.Radio
	var peer *loopback.Peer
	if *useBlueZ {
		hw, ok := hardwareRadio()
		if !ok {
			log.Fatal("--bluez is only supported on Linux")
		}
		radio = hw
	} else {
		lb := loopback.NewRadio(loopback.Options{})
		if recorder != nil {
			lb.SetTracer(func(ev loopback.Event) {
				recorder.LinkEvent(ev.Kind, ev.Handle, ev.Data)
			})
		}
		radio, peer = lb, lb.Peer()
	}

	listener := hotkey.NewListener(cfg.Button.Hotkey, "hold")
	pin := &hotkey.Pin{}
	go pin.Follow(listener.Events())
	go listener.Start()

	ctx, cancel := context.WithCancel(context.Background())

	if peer != nil {
		var injector *inject.Injector
		if *dryRun {
			injector = inject.NewInjectorWith(logTapper{})
		} else {
			injector = inject.NewInjector()
		}
		h := &host{peer: peer, injector: injector, dropAfter: *dropAfter}
		go h.run(ctx)
	}

	controller := session.NewController(radio, pin, &indicator.Log{}, opts)
	done := make(chan error, 1)
	go func() { done <- controller.Run(ctx) }()

	log.Println("Ready! Hold", strings.Join(cfg.Button.Hotkey, "+"), "to press the button. Ctrl+C to quit.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("Received %s, shutting down...", sig)
		cancel()
		<-done
	case err := <-done:
		cancel()
		log.Printf("Session controller stopped: %v", err)
	}

	listener.Stop()
	if recorder != nil {
		recorder.Close()
	}
	log.Println("Goodbye!")
	// Exit directly to avoid gohook's C cleanup crash.
	os.Exit(0)
}

// loadConfig loads the config from the specified path, or falls back to
// the default config path, or uses built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	defaultPath := config.DefaultConfigPath()
	if _, err := os.Stat(defaultPath); err == nil {
		cfg, err := config.Load(defaultPath)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", defaultPath, err)
		}
		log.Printf("Config loaded from %s", defaultPath)
		return cfg, nil
	}

	log.Println("No config file found, using defaults")
	return config.Default(), nil
}

// printBanner displays the startup configuration summary.
func printBanner(cfg *config.Config, bluez bool) {
	linkName := "loopback"
	if bluez {
		linkName = "bluez"
	}
	fmt.Println("=== vknob-sim ===")
	fmt.Printf("  Device:   %s (%s)\n", cfg.Device.Name, cfg.Device.Manufacturer)
	fmt.Printf("  Key:      %s\n", cfg.Button.Key)
	fmt.Printf("  Hotkey:   %s\n", strings.Join(cfg.Button.Hotkey, "+"))
	fmt.Printf("  Debounce: %d ticks\n", cfg.Button.DebounceTicks)
	fmt.Printf("  Link:     %s\n", linkName)
	fmt.Printf("  Log:      %s\n", cfg.LogLevel)
	fmt.Println("=================")
}
