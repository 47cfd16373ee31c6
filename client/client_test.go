package client

import (
	"context"
	"testing"
	"time"

	"github.com/marrasen/go-iecp5/asdu"
	"github.com/marrasen/go-iecp5/connection"
	"github.com/marrasen/go-iecp5/correlator"
	"github.com/marrasen/go-iecp5/cs104"
	"github.com/marrasen/go-iecp5/information"
	"github.com/marrasen/go-iecp5/point"
	"github.com/marrasen/go-iecp5/station"
)

func newTestEntry(t *testing.T, e *Engine) (*connection.Connection, *ConnEntry) {
	t.Helper()
	cli := cs104.NewClient(e, cs104.NewOption())
	conn := connection.New(cli, connection.INIT_NONE)
	entry := e.AddConnection(conn)
	return conn, entry
}

func TestEngine_AddRemoveConnection(t *testing.T) {
	e := New()
	conn, entry := newTestEntry(t, e)
	if got, ok := e.entryFor(conn.Client()); !ok || got != entry {
		t.Errorf("entryFor() = %v, %v, want %v, true", got, ok, entry)
	}
	e.RemoveConnection(conn)
	if _, ok := e.entryFor(conn.Client()); ok {
		t.Errorf("entryFor() after RemoveConnection = found, want not found")
	}
}

func TestEngine_Handle_UnknownConnection(t *testing.T) {
	e := New()
	var gotUnexpected bool
	e.SetUnexpectedHandler(func(c asdu.Connect, msg asdu.Message) { gotUnexpected = true })
	stray := cs104.NewClient(e, cs104.NewOption())
	msg := &asdu.SinglePointMsg{H: asdu.Header{Params: asdu.ParamsWide, Identifier: asdu.Identifier{
		Type: asdu.M_SP_NA_1, CommonAddr: 1,
	}}}
	if err := e.Handle(stray, msg); err == nil {
		t.Errorf("Handle() from unregistered connection error = nil, want error")
	}
	if !gotUnexpected {
		t.Errorf("unexpected handler was not invoked")
	}
}

func TestEngine_Handle_SinglePoint_CreatesStationAndPoint(t *testing.T) {
	e := New()
	conn, entry := newTestEntry(t, e)

	var newStationCA asdu.CommonAddr
	var newPointIOA asdu.InfoObjAddr
	e.SetOnNewStation(func(c *connection.Connection, ca asdu.CommonAddr) { newStationCA = ca })
	e.SetOnNewPoint(func(s *station.Station, ioa asdu.InfoObjAddr, typ asdu.TypeID) { newPointIOA = ioa })

	msg := &asdu.SinglePointMsg{
		H: asdu.Header{Params: asdu.ParamsWide, Identifier: asdu.Identifier{
			Type: asdu.M_SP_NA_1, CommonAddr: 3, Coa: asdu.CauseOfTransmission{Cause: asdu.Spontaneous},
		}},
		Items: []asdu.SinglePointInfo{{Ioa: 42, Value: true, Qds: asdu.QDSGood}},
	}
	if err := e.Handle(conn.Client(), msg); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if newStationCA != 3 {
		t.Errorf("onNewStation CA = %v, want 3", newStationCA)
	}
	if newPointIOA != 42 {
		t.Errorf("onNewPoint IOA = %v, want 42", newPointIOA)
	}

	s, ok := entry.Station(3)
	if !ok {
		t.Fatalf("Station(3) not found after Handle()")
	}
	p, ok := s.GetPoint(42)
	if !ok {
		t.Fatalf("GetPoint(42) not found after Handle()")
	}
	v, _ := p.Info().Single()
	if v != asdu.SPIOn {
		t.Errorf("point value = %v, want %v", v, asdu.SPIOn)
	}
}

func TestEngine_Handle_EndOfInit_InvokesHook(t *testing.T) {
	e := New()
	conn, _ := newTestEntry(t, e)
	var gotCOI asdu.CauseOfInitial
	var called bool
	e.SetOnStationInitialized(func(s *station.Station, coi asdu.CauseOfInitial) {
		called = true
		gotCOI = coi
	})
	msg := &asdu.EndOfInitMsg{
		H:   asdu.Header{Params: asdu.ParamsWide, Identifier: asdu.Identifier{Type: asdu.M_EI_NA_1, CommonAddr: 1}},
		COI: asdu.CauseOfInitial{Cause: asdu.COIRemoteReset},
	}
	if err := e.Handle(conn.Client(), msg); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if !called {
		t.Fatalf("onStationInitialized hook was not invoked")
	}
	if gotCOI.Cause != asdu.COIRemoteReset {
		t.Errorf("COI = %v, want %v", gotCOI.Cause, asdu.COIRemoteReset)
	}
}

func TestEngine_Handle_ResolveCommand(t *testing.T) {
	e := New()
	conn, entry := newTestEntry(t, e)
	key := correlator.Key{CA: 1, Type: asdu.C_SC_NA_1, IOA: 42}
	pending := entry.Correlator().Track(key, correlator.AwaitCon, time.Second)

	msg := &asdu.SingleCommandMsg{
		H: asdu.Header{Params: asdu.ParamsWide, Identifier: asdu.Identifier{
			Type: asdu.C_SC_NA_1, CommonAddr: 1, Coa: asdu.CauseOfTransmission{Cause: asdu.ActivationConfirm},
		}},
		Cmd: asdu.SingleCommandInfo{Ioa: 42},
	}
	if err := e.Handle(conn.Client(), msg); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if got := pending.Wait(context.Background()); got != correlator.Success {
		t.Errorf("Wait() = %v, want %v", got, correlator.Success)
	}
}

func TestEngine_TransmitMonitor_EndOfInit_ServerOnly(t *testing.T) {
	e := New()
	p := point.New(nil, 1, asdu.M_SP_NA_1, information.Information{})
	if err := e.TransmitMonitor(p, asdu.Spontaneous); err == nil {
		t.Errorf("TransmitMonitor() error = nil, want server-only error")
	}
	if err := e.EndOfInitialization(1, asdu.CauseOfInitial{}); err == nil {
		t.Errorf("EndOfInitialization() error = nil, want server-only error")
	}
}

func TestEngine_TransmitCommand_UnknownOwner(t *testing.T) {
	e := New()
	p := point.New(nil, 1, asdu.C_SC_NA_1, information.Information{})
	if err := e.TransmitCommand(p, asdu.Activation); err == nil {
		t.Errorf("TransmitCommand() error = nil, want errUnknownPointOwner")
	}
	if err := e.IssueRead(p); err == nil {
		t.Errorf("IssueRead() error = nil, want errUnknownPointOwner")
	}
}

func TestEngine_TransmitCommand_OwnedButDisconnected(t *testing.T) {
	e := New()
	conn, entry := newTestEntry(t, e)
	s, err := station.New(1, point.RoleClient, e, station.NewTimeZonePolicy(time.UTC, false))
	if err != nil {
		t.Fatalf("station.New() error = %v", err)
	}
	entry.AddStation(s)
	sc, err := information.NewSingleCommand(asdu.SCOOn, asdu.QualifierOfCommand{}, false, nil, false)
	if err != nil {
		t.Fatalf("NewSingleCommand() error = %v", err)
	}
	p := point.New(s, 5, asdu.C_SC_NA_1, sc)
	if err := s.AddPoint(p); err != nil {
		t.Fatalf("AddPoint() error = %v", err)
	}
	if err := e.TransmitCommand(p, asdu.Activation); err == nil {
		t.Errorf("TransmitCommand() on a disconnected client error = nil, want error")
	}
	_ = conn
}

func TestEngine_FireTimers_SkipsNonOpenConnections(t *testing.T) {
	e := New()
	conn, entry := newTestEntry(t, e)
	s, err := station.New(1, point.RoleClient, e, station.NewTimeZonePolicy(time.UTC, false))
	if err != nil {
		t.Fatalf("station.New() error = %v", err)
	}
	entry.AddStation(s)
	var fired bool
	p := point.New(s, 1, asdu.M_SP_NA_1, information.Information{})
	if err := s.AddPoint(p); err != nil {
		t.Fatalf("AddPoint() error = %v", err)
	}
	if err := p.OnTimer(func(p *point.DataPoint) { fired = true }, 50); err != nil {
		t.Fatalf("OnTimer() error = %v", err)
	}
	e.fireTimers(time.Now().Add(time.Second))
	if fired {
		t.Errorf("timer fired on a non-Open connection")
	}
	if conn.State() != connection.Closed {
		t.Fatalf("unexpected connection state %v", conn.State())
	}
}

