// Package session runs the remote's advertise, connect, serve and
// disconnect cycle over a link.Radio, and keeps the bonding key between
// cycles.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chaz8081/vknob/internal/button"
	"github.com/chaz8081/vknob/internal/gatt"
	"github.com/chaz8081/vknob/internal/hid"
	"github.com/chaz8081/vknob/internal/indicator"
	"github.com/chaz8081/vknob/internal/link"
)

// State is the controller's lifecycle state.
type State int

const (
	StateIdle State = iota
	StateAdvertising
	StateServing
	StateDisconnected
	StateLinkError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAdvertising:
		return "advertising"
	case StateServing:
		return "serving"
	case StateDisconnected:
		return "disconnected"
	case StateLinkError:
		return "link-error"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Session is one advertise-to-disconnect cycle.
type Session struct {
	ID      uuid.UUID
	Local   link.Addr
	Table   *gatt.Table
	Started time.Time
}

// Controller owns everything that outlives a single Session: the
// debouncer and the bonding key.
type Controller struct {
	radio link.Radio
	pin   button.Pin
	ind   indicator.Indicator
	opts  Options
	deb   *button.Debouncer

	// sleep is swapped out by tests to skip backoff delays.
	sleep func(ctx context.Context, d time.Duration) error

	mu    sync.Mutex
	state State
	key   *link.BondingKey
}

// NewController creates a Controller. Zero-valued options fall back to
// DefaultOptions. Panics if any collaborator is nil (programmer error).
func NewController(radio link.Radio, pin button.Pin, ind indicator.Indicator, opts Options) *Controller {
	if radio == nil || pin == nil || ind == nil {
		panic("session: NewController called with nil collaborator")
	}
	opts.applyDefaults()
	return &Controller{
		radio: radio,
		pin:   pin,
		ind:   ind,
		opts:  opts,
		deb:   button.NewDebouncer(opts.DebounceThreshold),
		sleep: sleepCtx,
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// BondingKey returns a copy of the retained bonding key, or nil.
func (c *Controller) BondingKey() *link.BondingKey {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.key.Clone()
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// refreshKey stores the server's current key. A nil key never erases a
// retained one.
func (c *Controller) refreshKey(k *link.BondingKey) bool {
	if k == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.key != nil && *c.key == *k {
		return false
	}
	c.key = k.Clone()
	return true
}

// Run cycles through sessions until ctx is done or bring-up keeps failing
// for more than InitRetries consecutive attempts.
func (c *Controller) Run(ctx context.Context) error {
	c.ind.SetStatus(indicator.StatusIdle)

	failures := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := c.runSession(ctx)
		if err == nil {
			failures = 0
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		c.setState(StateLinkError)
		c.ind.SetStatus(indicator.StatusError)
		c.observe(Event{Kind: EventLinkError, Err: err.Error()})

		failures++
		if failures > c.opts.InitRetries {
			return fmt.Errorf("session: giving up after %d attempts: %w", failures, err)
		}
		delay := backoffDelay(failures-1, c.opts.ReconnectMax)
		slog.Error("[SESSION] bring-up failed, retrying", "error", err, "attempt", failures, "delay", delay)
		if err := c.sleep(ctx, delay); err != nil {
			return err
		}
	}
}

// runSession performs one full cycle. It returns nil after a disconnect
// and an error if the link could not be brought up.
func (c *Controller) runSession(ctx context.Context) error {
	local, err := c.startAdvertising()
	if err != nil {
		return err
	}
	c.setState(StateAdvertising)
	c.ind.SetStatus(indicator.StatusReady)
	slog.Info("[SESSION] advertising", "name", c.opts.DeviceName, "addr", local, "bonded", c.BondingKey() != nil)

	if err := c.waitConnected(ctx); err != nil {
		return err
	}

	sess := &Session{
		ID:      uuid.New(),
		Local:   local,
		Table:   gatt.NewTable(c.opts.Profile),
		Started: time.Now(),
	}
	srv, err := c.radio.Serve(sess.Table, local, c.BondingKey())
	if errors.Is(err, link.ErrNotConnected) {
		slog.Info("[SESSION] peer left before the server started")
		c.setState(StateDisconnected)
		return nil
	}
	if err != nil {
		return fmt.Errorf("session: start attribute server: %w", err)
	}
	defer srv.Close()

	srv.SetPINCallback(func(pin uint32) {
		slog.Info("[SESSION] pairing PIN", "session", sess.ID, "pin", fmt.Sprintf("%06d", pin))
	})

	c.setState(StateServing)
	slog.Info("[SESSION] connected", "session", sess.ID)
	c.observe(Event{Kind: EventConnected, Session: sess.ID})

	err = c.serve(ctx, sess, srv)

	c.setState(StateDisconnected)
	slog.Info("[SESSION] disconnected", "session", sess.ID, "duration", time.Since(sess.Started).Round(time.Millisecond))
	c.observe(Event{Kind: EventDisconnected, Session: sess.ID})
	return err
}

// startAdvertising brings up the controller and enables advertising with
// the retained bonding key available for the next connection.
func (c *Controller) startAdvertising() (link.Addr, error) {
	if err := c.radio.Init(); err != nil {
		return link.Addr{}, fmt.Errorf("session: init radio: %w", err)
	}
	local, err := c.radio.Address()
	if err != nil {
		return link.Addr{}, fmt.Errorf("session: read address: %w", err)
	}
	if err := c.radio.SetAdvertisingParameters(c.opts.Advertising); err != nil {
		return link.Addr{}, fmt.Errorf("session: set advertising parameters: %w", err)
	}
	if err := c.radio.SetAdvertisingData(c.opts.AdvertisingData()); err != nil {
		return link.Addr{}, fmt.Errorf("session: set advertising data: %w", err)
	}
	if err := c.radio.SetAdvertiseEnable(true); err != nil {
		return link.Addr{}, fmt.Errorf("session: enable advertising: %w", err)
	}
	return local, nil
}

func (c *Controller) waitConnected(ctx context.Context) error {
	for !c.radio.Connected() {
		if err := c.sleep(ctx, c.opts.AdvertisePoll); err != nil {
			return err
		}
	}
	return nil
}

// serve runs the cooperative poll loop until the peer disconnects or ctx
// is done.
func (c *Controller) serve(ctx context.Context, sess *Session, srv link.Server) error {
	notifier := hid.NewNotifier(srv)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if c.deb.Poll(c.pin.Get()) {
			slog.Info("[SESSION] button pressed", "session", sess.ID, "keys", c.opts.Key)
			c.observe(Event{Kind: EventPress, Session: sess.ID, Keys: c.opts.Key})
			if notifier.Notify(gatt.HandleInputReportCCCD, gatt.HandleInputReport, c.opts.Key) {
				return nil
			}
		}

		res, err := srv.DoWork()
		if err != nil {
			slog.Warn("[SESSION] attribute server error", "session", sess.ID, "error", err)
		}
		if res == link.WorkGotDisconnected {
			return nil
		}

		if c.refreshKey(srv.BondingKey()) {
			slog.Info("[SESSION] bonding key updated", "session", sess.ID)
			c.observe(Event{Kind: EventBonded, Session: sess.ID})
		}

		if c.opts.TickInterval > 0 {
			if err := c.sleep(ctx, c.opts.TickInterval); err != nil {
				return err
			}
		}
	}
}

func (c *Controller) observe(ev Event) {
	if c.opts.Observer == nil {
		return
	}
	ev.Time = time.Now()
	c.opts.Observer.SessionEvent(ev)
}
