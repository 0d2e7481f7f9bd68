package main

import (
	"context"
	"log"

	"github.com/chaz8081/vknob/internal/gatt"
	"github.com/chaz8081/vknob/internal/hid"
	"github.com/chaz8081/vknob/internal/inject"
	"github.com/chaz8081/vknob/internal/link/loopback"
)

// host plays the computer the remote is paired with.
type host struct {
	peer      *loopback.Peer
	injector  *inject.Injector
	dropAfter int
}

// run connects, pairs on first contact, subscribes to input reports and
// injects them until ctx is done.
func (h *host) run(ctx context.Context) {
	for ctx.Err() == nil {
		if err := h.peer.Connect(ctx); err != nil {
			return
		}
		if err := h.serveConnection(ctx); err != nil && ctx.Err() == nil {
			log.Printf("host: %v", err)
		}
		h.peer.Disconnect()
	}
}

func (h *host) serveConnection(ctx context.Context) error {
	if h.peer.Bond() == nil {
		p, err := h.peer.Pair(ctx)
		if err != nil {
			return err
		}
		log.Printf("host: paired, passkey %06d", p.Passkey)
	} else {
		log.Println("host: reconnected with stored bond")
	}

	if err := h.peer.Subscribe(ctx, gatt.HandleInputReportCCCD); err != nil {
		return err
	}

	presses := 0
	for {
		n, err := h.peer.NextNotification(ctx)
		if err != nil {
			return err
		}
		if n.Handle != gatt.HandleInputReport {
			continue
		}
		if err := h.injector.HandleReport(n.Data); err != nil {
			log.Printf("host: %v", err)
			continue
		}
		if len(n.Data) == 1 && hid.MediaKeys(n.Data[0]) == hid.Clear {
			presses++
			if h.dropAfter > 0 && presses >= h.dropAfter {
				log.Printf("host: dropping connection after %d presses", presses)
				return nil
			}
		}
	}
}

// logTapper prints keys instead of tapping them.
type logTapper struct{}

func (logTapper) KeyTap(key string) error {
	log.Printf("host: key tap %s", key)
	return nil
}
