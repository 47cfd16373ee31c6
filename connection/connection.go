// SPDX-License-Identifier: MIT
// Copyright (c) 2025 go-iecp5 contributors.

// Package connection implements the client-side link state machine on top
// of cs104.Client: connect/disconnect intent reconciliation, automatic
// reconnection, and the post-activation init sequence.
package connection

import (
	"context"
	"sync"
	"time"

	"github.com/marrasen/go-iecp5/asdu"
	"github.com/marrasen/go-iecp5/clog"
	"github.com/marrasen/go-iecp5/correlator"
	"github.com/marrasen/go-iecp5/cs104"
)

// State is one node of the client link state machine described in §4.6.
type State int

const (
	Closed State = iota
	ClosedAwaitOpen
	ClosedAwaitReconnect
	Open
	OpenMuted
	OpenAwaitClosed
)

func (s State) String() string {
	switch s {
	case Closed:
		return "Closed"
	case ClosedAwaitOpen:
		return "ClosedAwaitOpen"
	case ClosedAwaitReconnect:
		return "ClosedAwaitReconnect"
	case Open:
		return "Open"
	case OpenMuted:
		return "OpenMuted"
	case OpenAwaitClosed:
		return "OpenAwaitClosed"
	default:
		return "State(?)"
	}
}

// InitMode selects what the Connection does right after activation.
type InitMode int

const (
	// INIT_NONE does nothing after STARTDT_CON.
	INIT_NONE InitMode = iota
	// INIT_INTERROGATION sends a general interrogation to the broadcast CA.
	INIT_INTERROGATION
	// INIT_CLOCK_SYNC sends a clock-sync command to the broadcast CA.
	INIT_CLOCK_SYNC
	// INIT_ALL runs interrogation then clock sync.
	INIT_ALL
	// INIT_MUTED is hot-standby redundancy mode: the Connection never sends
	// STARTDT_ACT on its own, staying in OpenMuted until told otherwise.
	INIT_MUTED
)

// ReconnectDelay is the wait applied before re-dialing from ClosedAwaitReconnect.
const ReconnectDelay = 1 * time.Second

// Connection wraps a *cs104.Client with the state machine of §4.6.
type Connection struct {
	mu sync.Mutex
	clog.Clog

	client     *cs104.Client
	initMode   InitMode
	state      State
	reopen     bool // intent to reopen, set when connect() arrives during OpenAwaitClosed
	correlator *correlator.Table

	ctx    context.Context
	cancel context.CancelFunc

	onStateChange func(s State)
}

// New wraps client with the connection state machine, configured with the
// given post-activation init behavior.
func New(client *cs104.Client, mode InitMode) *Connection {
	c := &Connection{
		client:   client,
		initMode: mode,
		state:    Closed,
		Clog:     clog.NewLogger("connection => "),
	}
	client.SetOnConnectHandler(func(*cs104.Client) { c.handleTCPReady() })
	client.SetOnActivatedHandler(func(*cs104.Client) { c.handleActivated() })
	client.SetOnDeactivatedHandler(func(*cs104.Client) { c.handleDeactivated() })
	client.SetConnectionLostHandler(func(*cs104.Client) { c.handleLost() })
	return c
}

// SetOnStateChange registers a hook invoked whenever the state machine
// transitions.
func (c *Connection) SetOnStateChange(f func(s State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onStateChange = f
}

// SetCorrelator installs the command-correlation table used to await the
// init sequence's interrogation (INIT_INTERROGATION/INIT_ALL) before
// transitioning to Open. Without one, the init sequence reverts to firing
// its commands without waiting for their outcome.
func (c *Connection) SetCorrelator(t *correlator.Table) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.correlator = t
}

// State reports the current state.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Client exposes the wrapped transport for command dispatch (point/server
// use this to call asdu command builders directly).
func (c *Connection) Client() *cs104.Client { return c.client }

func (c *Connection) setState(s State) {
	c.state = s
	cb := c.onStateChange
	if cb != nil {
		cb(s)
	}
}

// Connect brings the connection from Closed (or ClosedAwaitReconnect) to
// ClosedAwaitOpen and starts dialing. Calling it while OpenAwaitClosed marks
// intent to reopen once the close completes, per the overlapping-command
// reconciliation rule.
func (c *Connection) Connect(ctx context.Context) {
	c.mu.Lock()
	switch c.state {
	case OpenAwaitClosed:
		c.reopen = true
		c.mu.Unlock()
		return
	case ClosedAwaitOpen, Open, OpenMuted:
		c.mu.Unlock()
		return
	}
	c.setState(ClosedAwaitOpen)
	c.ctx, c.cancel = context.WithCancel(ctx)
	runCtx := c.ctx
	c.mu.Unlock()

	go c.dialLoop(runCtx)
}

func (c *Connection) dialLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		err := c.client.Start(ctx)
		c.mu.Lock()
		if c.state == OpenAwaitClosed {
			c.setState(Closed)
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		c.Debug("connection lost, err=%v", err)

		c.mu.Lock()
		c.setState(ClosedAwaitReconnect)
		c.mu.Unlock()

		select {
		case <-ctx.Done():
			return
		case <-time.After(ReconnectDelay):
		}

		c.mu.Lock()
		c.setState(ClosedAwaitOpen)
		c.mu.Unlock()
	}
}

// Disconnect requests a graceful close. While ClosedAwaitOpen (dial in
// flight), it downgrades to OpenAwaitClosed per the reconciliation rule so
// the link is torn down as soon as it comes up.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	switch c.state {
	case ClosedAwaitOpen:
		c.setState(OpenAwaitClosed)
		c.mu.Unlock()
		return
	case Open, OpenMuted:
		c.setState(OpenAwaitClosed)
	default:
		c.mu.Unlock()
		return
	}
	cancel := c.cancel
	c.mu.Unlock()
	_ = c.client.Close()
	if cancel != nil {
		cancel()
	}
}

func (c *Connection) handleTCPReady() {
	c.mu.Lock()
	if c.state == OpenAwaitClosed {
		c.mu.Unlock()
		_ = c.client.Close()
		return
	}
	c.setState(OpenMuted)
	mode := c.initMode
	c.mu.Unlock()

	if mode != INIT_MUTED {
		c.client.SendStartDt()
	}
}

// handleActivated runs the post-activation init sequence of §4.6.
// INIT_INTERROGATION and INIT_ALL stay in OpenMuted until the general
// interrogation they issue resolves (ACT_CON/ACT_TERM, tracked via the
// correlator), only then sending clock sync (for INIT_ALL) and transitioning
// to Open; INIT_NONE/INIT_CLOCK_SYNC have nothing to await and open at once.
func (c *Connection) handleActivated() {
	c.mu.Lock()
	mode := c.initMode
	corr := c.correlator
	ctx := c.ctx
	c.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	coa := asdu.CauseOfTransmission{Cause: asdu.Activation}
	switch mode {
	case INIT_CLOCK_SYNC:
		c.mu.Lock()
		c.setState(Open)
		c.mu.Unlock()
		_ = c.client.ClockSynchronizationCmd(coa, asdu.GlobalCommonAddr, time.Now())
	case INIT_INTERROGATION:
		c.runInterrogationThenOpen(ctx, corr, coa, false)
	case INIT_ALL:
		c.runInterrogationThenOpen(ctx, corr, coa, true)
	default:
		c.mu.Lock()
		c.setState(Open)
		c.mu.Unlock()
	}
}

// runInterrogationThenOpen issues the general interrogation and, once it is
// tracked, awaits its ACT_CON/ACT_TERM pair (bounded by
// correlator.DefaultCommandTimeout) before sending clock sync (if
// alsoClockSync) and opening the connection. Without a correlator wired in,
// it falls back to the unawaited fire-and-forget behavior.
func (c *Connection) runInterrogationThenOpen(ctx context.Context, corr *correlator.Table, coa asdu.CauseOfTransmission, alsoClockSync bool) {
	if corr == nil {
		c.mu.Lock()
		c.setState(Open)
		c.mu.Unlock()
		_ = c.client.InterrogationCmd(coa, asdu.GlobalCommonAddr, asdu.QOIStation)
		if alsoClockSync {
			_ = c.client.ClockSynchronizationCmd(coa, asdu.GlobalCommonAddr, time.Now())
		}
		return
	}

	key := correlator.Key{CA: asdu.GlobalCommonAddr, Type: asdu.C_IC_NA_1}
	pending := corr.Track(key, correlator.AwaitConTerm, correlator.DefaultCommandTimeout)
	if err := c.client.InterrogationCmd(coa, asdu.GlobalCommonAddr, asdu.QOIStation); err != nil {
		corr.Drop(key)
		c.Warn("init interrogation send failed: %v", err)
		return
	}

	go func() {
		outcome := pending.Wait(ctx)
		if outcome != correlator.Success {
			c.Warn("init interrogation did not complete: %v", outcome)
			return
		}
		if alsoClockSync {
			_ = c.client.ClockSynchronizationCmd(coa, asdu.GlobalCommonAddr, time.Now())
		}
		c.mu.Lock()
		if c.state == OpenMuted {
			c.setState(Open)
		}
		c.mu.Unlock()
	}()
}

func (c *Connection) handleDeactivated() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Open {
		c.setState(OpenMuted)
	}
}

func (c *Connection) handleLost() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == OpenAwaitClosed {
		if c.reopen {
			c.reopen = false
			c.setState(ClosedAwaitOpen)
		}
		// dialLoop observes OpenAwaitClosed and finalizes to Closed otherwise.
	}
}
