package connection

import (
	"testing"

	"github.com/marrasen/go-iecp5/correlator"
	"github.com/marrasen/go-iecp5/cs104"
)

func TestState_String(t *testing.T) {
	if got := Open.String(); got != "Open" {
		t.Errorf("Open.String() = %q, want %q", got, "Open")
	}
	if got := State(99).String(); got != "State(?)" {
		t.Errorf("State(99).String() = %q, want %q", got, "State(?)")
	}
}

func TestConnection_Connect_NoOpWhenAlreadyTransitioning(t *testing.T) {
	tests := []struct {
		name  string
		state State
	}{
		{"already open", Open},
		{"open muted", OpenMuted},
		{"already dialing", ClosedAwaitOpen},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Connection{state: tt.state}
			c.Connect(nil)
			if c.State() != tt.state {
				t.Errorf("State() after Connect() = %v, want unchanged %v", c.State(), tt.state)
			}
		})
	}
}

func TestConnection_Connect_DuringOpenAwaitClosed_MarksReopen(t *testing.T) {
	c := &Connection{state: OpenAwaitClosed}
	c.Connect(nil)
	if c.State() != OpenAwaitClosed {
		t.Errorf("State() = %v, want unchanged %v", c.State(), OpenAwaitClosed)
	}
	if !c.reopen {
		t.Errorf("reopen = false, want true")
	}
}

func TestConnection_Disconnect_WhileDialing(t *testing.T) {
	c := &Connection{state: ClosedAwaitOpen}
	c.Disconnect()
	if c.State() != OpenAwaitClosed {
		t.Errorf("State() = %v, want %v", c.State(), OpenAwaitClosed)
	}
}

func TestConnection_Disconnect_WhileClosed_NoOp(t *testing.T) {
	c := &Connection{state: Closed}
	c.Disconnect()
	if c.State() != Closed {
		t.Errorf("State() = %v, want unchanged %v", c.State(), Closed)
	}
}

func TestConnection_HandleDeactivated(t *testing.T) {
	c := &Connection{state: Open}
	c.handleDeactivated()
	if c.State() != OpenMuted {
		t.Errorf("State() after handleDeactivated() = %v, want %v", c.State(), OpenMuted)
	}

	c2 := &Connection{state: Closed}
	c2.handleDeactivated()
	if c2.State() != Closed {
		t.Errorf("State() after handleDeactivated() on Closed = %v, want unchanged %v", c2.State(), Closed)
	}
}

func TestConnection_HandleLost_ReopenIntent(t *testing.T) {
	c := &Connection{state: OpenAwaitClosed, reopen: true}
	c.handleLost()
	if c.State() != ClosedAwaitOpen {
		t.Errorf("State() after handleLost() with reopen = %v, want %v", c.State(), ClosedAwaitOpen)
	}
	if c.reopen {
		t.Errorf("reopen = true after handleLost(), want false")
	}
}

func TestConnection_HandleLost_NoReopenIntent(t *testing.T) {
	c := &Connection{state: OpenAwaitClosed}
	c.handleLost()
	if c.State() != OpenAwaitClosed {
		t.Errorf("State() after handleLost() without reopen = %v, want unchanged %v", c.State(), OpenAwaitClosed)
	}
}

func TestConnection_HandleActivated_InitAll_NoCorrelator_OpensImmediately(t *testing.T) {
	cli := cs104.NewClient(nil, cs104.NewOption())
	c := &Connection{state: OpenMuted, initMode: INIT_ALL, client: cli}
	c.handleActivated()
	if c.State() != Open {
		t.Errorf("State() = %v, want %v", c.State(), Open)
	}
}

func TestConnection_HandleActivated_InitAll_WithCorrelator_StaysMutedUntilInterrogationResolves(t *testing.T) {
	cli := cs104.NewClient(nil, cs104.NewOption())
	corr := correlator.New(nil)
	c := &Connection{state: OpenMuted, initMode: INIT_ALL, client: cli, correlator: corr}
	c.handleActivated()
	// cli is never dialed, so the interrogation send fails and the command
	// is dropped before any wait is started: the connection must not have
	// been opened on the strength of an unsent command.
	if c.State() != OpenMuted {
		t.Errorf("State() = %v, want unchanged %v", c.State(), OpenMuted)
	}
}

func TestConnection_HandleActivated_InitNone_OpensImmediately(t *testing.T) {
	cli := cs104.NewClient(nil, cs104.NewOption())
	c := &Connection{state: OpenMuted, initMode: INIT_NONE, client: cli}
	c.handleActivated()
	if c.State() != Open {
		t.Errorf("State() = %v, want %v", c.State(), Open)
	}
}

func TestConnection_OnStateChange_Invoked(t *testing.T) {
	var got []State
	c := &Connection{state: ClosedAwaitOpen}
	c.SetOnStateChange(func(s State) { got = append(got, s) })
	c.Disconnect()
	if len(got) != 1 || got[0] != OpenAwaitClosed {
		t.Errorf("onStateChange calls = %v, want [%v]", got, OpenAwaitClosed)
	}
}
