// SPDX-License-Identifier: MIT
// Copyright (c) 2025 go-iecp5 contributors.

// Package client implements the Client Engine: a pool of Connections, each
// with its own station/point cache and command-correlation table, plus the
// tick-driven data-point timer pass of §4.9.
package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/marrasen/go-iecp5/asdu"
	"github.com/marrasen/go-iecp5/clog"
	"github.com/marrasen/go-iecp5/connection"
	"github.com/marrasen/go-iecp5/correlator"
	"github.com/marrasen/go-iecp5/cs104"
	"github.com/marrasen/go-iecp5/information"
	"github.com/marrasen/go-iecp5/point"
	"github.com/marrasen/go-iecp5/station"
)

var (
	errUnknownConnection     = errors.New("client: message from an unregistered connection")
	errClientTransmitMonitor = errors.New("client: TransmitMonitor is server-only")
	errClientEndOfInit       = errors.New("client: EndOfInitialization is server-only")
	errUnknownPointOwner     = errors.New("client: point is not registered under any connection of this engine")
	errInvalidCommandType    = errors.New("client: TypeID is not a command variant")
)

// ConnEntry owns one Connection's station cache and command-correlation
// table. Obtained from Engine.AddConnection.
type ConnEntry struct {
	mu       sync.RWMutex
	conn     *connection.Connection
	stations map[asdu.CommonAddr]*station.Station
	table    *correlator.Table
}

// Connection returns the wrapped Connection.
func (ce *ConnEntry) Connection() *connection.Connection { return ce.conn }

// Correlator returns the command-correlation table for this connection,
// used to Track a command before issuing it and Wait for its outcome.
func (ce *ConnEntry) Correlator() *correlator.Table { return ce.table }

// AddStation registers a station this connection already knows about
// (e.g. configured up-front rather than discovered via on_new_station).
func (ce *ConnEntry) AddStation(s *station.Station) {
	ce.mu.Lock()
	defer ce.mu.Unlock()
	ce.stations[s.CommonAddress()] = s
}

// Station looks up a cached station by common address.
func (ce *ConnEntry) Station(ca asdu.CommonAddr) (*station.Station, bool) {
	ce.mu.RLock()
	defer ce.mu.RUnlock()
	s, ok := ce.stations[ca]
	return s, ok
}

func (ce *ConnEntry) allStations() []*station.Station {
	ce.mu.RLock()
	defer ce.mu.RUnlock()
	out := make([]*station.Station, 0, len(ce.stations))
	for _, s := range ce.stations {
		out = append(out, s)
	}
	return out
}

// Engine is the client-role ASDU dispatcher and connection-pool owner. A
// single Engine may back several Connections, each dialing a different
// server; it is installed as every pooled cs104.Client's asdu.Handler.
type Engine struct {
	clog.Clog

	mu       sync.RWMutex
	entries  map[*cs104.Client]*ConnEntry
	tickRate uint

	onNewStation         func(conn *connection.Connection, ca asdu.CommonAddr)
	onNewPoint           func(s *station.Station, ioa asdu.InfoObjAddr, typ asdu.TypeID)
	onStationInitialized func(s *station.Station, coi asdu.CauseOfInitial)
	onUnexpected         func(conn asdu.Connect, msg asdu.Message)
}

// New builds an empty Engine with a 50ms default tick rate.
func New() *Engine {
	return &Engine{
		Clog:     clog.NewLogger("client engine => "),
		entries:  make(map[*cs104.Client]*ConnEntry),
		tickRate: 50,
	}
}

// SetTickRate configures the tick rate used to validate OnTimer intervals
// on points owned by this engine's stations.
func (e *Engine) SetTickRate(ms uint) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tickRate = ms
}

// SetOnNewStation registers the hook consulted (after the default add) when
// an inbound ASDU references a station not yet cached on its connection.
func (e *Engine) SetOnNewStation(f func(conn *connection.Connection, ca asdu.CommonAddr)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onNewStation = f
}

// SetOnNewPoint registers the hook consulted (after the default add) when an
// inbound ASDU references a point not yet cached on its station.
func (e *Engine) SetOnNewPoint(f func(s *station.Station, ioa asdu.InfoObjAddr, typ asdu.TypeID)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onNewPoint = f
}

// SetOnStationInitialized registers the hook invoked on a received M_EI_NA_1.
func (e *Engine) SetOnStationInitialized(f func(s *station.Station, coi asdu.CauseOfInitial)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onStationInitialized = f
}

// SetUnexpectedHandler registers a callback for ASDUs from a connection this
// engine does not own, or TypeIDs it cannot dispatch.
func (e *Engine) SetUnexpectedHandler(f func(conn asdu.Connect, msg asdu.Message)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onUnexpected = f
}

// AddConnection registers conn with this engine and returns its ConnEntry.
// conn's underlying *cs104.Client must already have been constructed with
// this Engine as its Handler.
func (e *Engine) AddConnection(conn *connection.Connection) *ConnEntry {
	entry := &ConnEntry{
		conn:     conn,
		stations: make(map[asdu.CommonAddr]*station.Station),
		table:    correlator.New(e.unexpectedFor(conn)),
	}
	conn.SetCorrelator(entry.table)
	e.mu.Lock()
	e.entries[conn.Client()] = entry
	e.mu.Unlock()
	return entry
}

// RemoveConnection unregisters conn; any outstanding correlator entries are
// not resolved and will eventually time out on their own.
func (e *Engine) RemoveConnection(conn *connection.Connection) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.entries, conn.Client())
}

func (e *Engine) unexpectedFor(conn *connection.Connection) correlator.UnexpectedFunc {
	return func(key correlator.Key, coa asdu.CauseOfTransmission) {
		if e.onUnexpected != nil {
			e.onUnexpected(conn.Client(), nil)
		}
	}
}

func (e *Engine) entryFor(c asdu.Connect) (*ConnEntry, bool) {
	cli, ok := c.(*cs104.Client)
	if !ok {
		return nil, false
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	entry, ok := e.entries[cli]
	return entry, ok
}

func (e *Engine) findOwning(p *point.DataPoint) (*ConnEntry, asdu.CommonAddr, bool) {
	e.mu.RLock()
	entries := make([]*ConnEntry, 0, len(e.entries))
	for _, entry := range e.entries {
		entries = append(entries, entry)
	}
	e.mu.RUnlock()
	for _, entry := range entries {
		for _, s := range entry.allStations() {
			if pt, ok := s.GetPoint(p.IOA()); ok && pt == p {
				return entry, s.CommonAddress(), true
			}
		}
	}
	return nil, 0, false
}

func (e *Engine) ensureStation(entry *ConnEntry, ca asdu.CommonAddr) *station.Station {
	entry.mu.Lock()
	s, ok := entry.stations[ca]
	if !ok {
		s, _ = station.New(ca, point.RoleClient, e, station.NewTimeZonePolicy(time.UTC, false))
		entry.stations[ca] = s
	}
	entry.mu.Unlock()
	if !ok {
		e.mu.RLock()
		hook := e.onNewStation
		e.mu.RUnlock()
		if hook != nil {
			hook(entry.conn, ca)
		}
	}
	return s
}

func (e *Engine) ensurePoint(s *station.Station, ioa asdu.InfoObjAddr, typ asdu.TypeID) *point.DataPoint {
	if p, ok := s.GetPoint(ioa); ok {
		return p
	}
	p := point.New(s, ioa, typ, information.Information{})
	if err := s.AddPoint(p); err != nil {
		if existing, ok := s.GetPoint(ioa); ok {
			return existing
		}
		return p
	}
	e.mu.RLock()
	hook := e.onNewPoint
	e.mu.RUnlock()
	if hook != nil {
		hook(s, ioa, typ)
	}
	return p
}

// TickRateMs implements station.Sender.
func (e *Engine) TickRateMs() uint {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.tickRate
}

// EndOfInitialization implements station.Sender; client stations never
// originate M_EI_NA_1.
func (e *Engine) EndOfInitialization(ca asdu.CommonAddr, coi asdu.CauseOfInitial) error {
	return errClientEndOfInit
}

// TransmitMonitor implements point.Owner/station.Sender; client-role points
// cache remote data, they never spontaneously transmit it.
func (e *Engine) TransmitMonitor(p *point.DataPoint, cause asdu.Cause) error {
	return errClientTransmitMonitor
}

// TransmitCommand implements point.Owner: encodes p's current Information as
// the command ASDU matching p.Type() and sends it over the owning
// connection. Callers that need to await the outcome should Track the
// corresponding correlator.Key before calling Transmit.
func (e *Engine) TransmitCommand(p *point.DataPoint, cause asdu.Cause) error {
	entry, ca, ok := e.findOwning(p)
	if !ok {
		return errUnknownPointOwner
	}
	cli := entry.conn.Client()
	coa := asdu.CauseOfTransmission{Cause: cause}
	info := p.Info()
	var recordedAt time.Time
	if t := info.RecordedAt(); t != nil {
		recordedAt = *t
	}

	switch p.Type() {
	case asdu.C_SC_NA_1, asdu.C_SC_TA_1:
		v, _ := info.SingleCommand()
		return asdu.SingleCmd(cli, p.Type(), coa, ca, asdu.SingleCommandInfo{
			Ioa: p.IOA(), Value: v == asdu.SCOOn, Qoc: info.Qualifier(), Time: recordedAt,
		})
	case asdu.C_DC_NA_1, asdu.C_DC_TA_1:
		v, _ := info.DoubleCommand()
		return asdu.DoubleCmd(cli, p.Type(), coa, ca, asdu.DoubleCommandInfo{
			Ioa: p.IOA(), Value: v, Qoc: info.Qualifier(), Time: recordedAt,
		})
	case asdu.C_RC_NA_1, asdu.C_RC_TA_1:
		v, _ := info.StepCommand()
		return asdu.StepCmd(cli, p.Type(), coa, ca, asdu.StepCommandInfo{
			Ioa: p.IOA(), Value: v, Qoc: info.Qualifier(), Time: recordedAt,
		})
	case asdu.C_SE_NA_1, asdu.C_SE_TA_1:
		v, _ := info.SetpointNormalized()
		qos := asdu.QualifierOfSetpointCmd{Qual: info.SetpointQualifier(), InSelect: info.Select()}
		return asdu.SetpointCmdNormal(cli, p.Type(), coa, ca, asdu.SetpointCommandNormalInfo{
			Ioa: p.IOA(), Value: v, Qos: qos, Time: recordedAt,
		})
	case asdu.C_SE_NB_1, asdu.C_SE_TB_1:
		v, _ := info.SetpointScaled()
		qos := asdu.QualifierOfSetpointCmd{Qual: info.SetpointQualifier(), InSelect: info.Select()}
		return asdu.SetpointCmdScaled(cli, p.Type(), coa, ca, asdu.SetpointCommandScaledInfo{
			Ioa: p.IOA(), Value: v, Qos: qos, Time: recordedAt,
		})
	case asdu.C_SE_NC_1, asdu.C_SE_TC_1:
		v, _ := info.SetpointShortFloat()
		qos := asdu.QualifierOfSetpointCmd{Qual: info.SetpointQualifier(), InSelect: info.Select()}
		return asdu.SetpointCmdFloat(cli, p.Type(), coa, ca, asdu.SetpointCommandFloatInfo{
			Ioa: p.IOA(), Value: v, Qos: qos, Time: recordedAt,
		})
	case asdu.C_BO_NA_1, asdu.C_BO_TA_1:
		v, _ := info.Bitstring32Command()
		return asdu.BitsString32Cmd(cli, p.Type(), coa, ca, asdu.BitsString32CommandInfo{
			Ioa: p.IOA(), Value: v, Time: recordedAt,
		})
	default:
		return errInvalidCommandType
	}
}

// IssueRead implements point.Owner: sends a C_RD_NA_1 for p's IOA.
func (e *Engine) IssueRead(p *point.DataPoint) error {
	entry, ca, ok := e.findOwning(p)
	if !ok {
		return errUnknownPointOwner
	}
	return entry.conn.Client().ReadCmd(asdu.CauseOfTransmission{Cause: asdu.Request}, ca, p.IOA())
}

// Handle implements asdu.Handler, dispatching inbound monitoring data, the
// end-of-initialization notice, and command-reply confirmations.
func (e *Engine) Handle(c asdu.Connect, msg asdu.Message) error {
	entry, ok := e.entryFor(c)
	if !ok {
		if e.onUnexpected != nil {
			e.onUnexpected(c, msg)
		}
		return errUnknownConnection
	}

	switch m := msg.(type) {
	case *asdu.SinglePointMsg:
		ca := m.Header().Identifier.CommonAddr
		s := e.ensureStation(entry, ca)
		for _, it := range m.Items {
			sp := asdu.SPIOff
			if it.Value {
				sp = asdu.SPIOn
			}
			recordedAt, timestamped := monTimestamp(it.Time)
			info, err := information.NewSingle(sp, it.Qds, recordedAt, timestamped, false)
			if err != nil {
				continue
			}
			e.applyMonitor(s, it.Ioa, asdu.M_SP_NA_1, info)
		}
		return nil
	case *asdu.DoublePointMsg:
		ca := m.Header().Identifier.CommonAddr
		s := e.ensureStation(entry, ca)
		for _, it := range m.Items {
			recordedAt, timestamped := monTimestamp(it.Time)
			info, err := information.NewDouble(it.Value, it.Qds, recordedAt, timestamped, false)
			if err != nil {
				continue
			}
			e.applyMonitor(s, it.Ioa, asdu.M_DP_NA_1, info)
		}
		return nil
	case *asdu.StepPositionMsg:
		ca := m.Header().Identifier.CommonAddr
		s := e.ensureStation(entry, ca)
		for _, it := range m.Items {
			recordedAt, timestamped := monTimestamp(it.Time)
			info, err := information.NewStep(it.Value, it.Qds, recordedAt, timestamped, false)
			if err != nil {
				continue
			}
			e.applyMonitor(s, it.Ioa, asdu.M_ST_NA_1, info)
		}
		return nil
	case *asdu.BitString32Msg:
		ca := m.Header().Identifier.CommonAddr
		s := e.ensureStation(entry, ca)
		for _, it := range m.Items {
			recordedAt, timestamped := monTimestamp(it.Time)
			info, err := information.NewBitstring32(it.Value, it.Qds, recordedAt, timestamped, false)
			if err != nil {
				continue
			}
			e.applyMonitor(s, it.Ioa, asdu.M_BO_NA_1, info)
		}
		return nil
	case *asdu.MeasuredValueNormalMsg:
		ca := m.Header().Identifier.CommonAddr
		s := e.ensureStation(entry, ca)
		for _, it := range m.Items {
			recordedAt, timestamped := monTimestamp(it.Time)
			info, err := information.NewNormalized(it.Value, it.Qds, recordedAt, timestamped, false)
			if err != nil {
				continue
			}
			e.applyMonitor(s, it.Ioa, asdu.M_ME_NA_1, info)
		}
		return nil
	case *asdu.MeasuredValueScaledMsg:
		ca := m.Header().Identifier.CommonAddr
		s := e.ensureStation(entry, ca)
		for _, it := range m.Items {
			recordedAt, timestamped := monTimestamp(it.Time)
			info, err := information.NewScaled(it.Value, it.Qds, recordedAt, timestamped, false)
			if err != nil {
				continue
			}
			e.applyMonitor(s, it.Ioa, asdu.M_ME_NB_1, info)
		}
		return nil
	case *asdu.MeasuredValueFloatMsg:
		ca := m.Header().Identifier.CommonAddr
		s := e.ensureStation(entry, ca)
		for _, it := range m.Items {
			recordedAt, timestamped := monTimestamp(it.Time)
			info, err := information.NewShortFloat(it.Value, it.Qds, recordedAt, timestamped, false)
			if err != nil {
				continue
			}
			e.applyMonitor(s, it.Ioa, asdu.M_ME_NC_1, info)
		}
		return nil
	case *asdu.IntegratedTotalsMsg:
		ca := m.Header().Identifier.CommonAddr
		s := e.ensureStation(entry, ca)
		for _, it := range m.Items {
			recordedAt, timestamped := monTimestamp(it.Time)
			info, err := information.NewBinaryCounter(it.Value, recordedAt, timestamped, false)
			if err != nil {
				continue
			}
			e.applyMonitor(s, it.Ioa, asdu.M_IT_NA_1, info)
		}
		return nil
	case *asdu.EndOfInitMsg:
		ca := m.Header().Identifier.CommonAddr
		s := e.ensureStation(entry, ca)
		e.mu.RLock()
		hook := e.onStationInitialized
		e.mu.RUnlock()
		if hook != nil {
			hook(s, m.COI)
		}
		return nil
	case *asdu.SingleCommandMsg:
		return e.resolveCommand(entry, m.Header(), asdu.C_SC_NA_1, m.Cmd.Ioa)
	case *asdu.DoubleCommandMsg:
		return e.resolveCommand(entry, m.Header(), asdu.C_DC_NA_1, m.Cmd.Ioa)
	case *asdu.StepCommandMsg:
		return e.resolveCommand(entry, m.Header(), asdu.C_RC_NA_1, m.Cmd.Ioa)
	case *asdu.SetpointNormalMsg:
		return e.resolveCommand(entry, m.Header(), asdu.C_SE_NA_1, m.Cmd.Ioa)
	case *asdu.SetpointScaledMsg:
		return e.resolveCommand(entry, m.Header(), asdu.C_SE_NB_1, m.Cmd.Ioa)
	case *asdu.SetpointFloatMsg:
		return e.resolveCommand(entry, m.Header(), asdu.C_SE_NC_1, m.Cmd.Ioa)
	case *asdu.BitsString32CmdMsg:
		return e.resolveCommand(entry, m.Header(), asdu.C_BO_NA_1, m.Cmd.Ioa)
	case *asdu.InterrogationCmdMsg:
		return e.resolveCommand(entry, m.Header(), asdu.C_IC_NA_1, 0)
	case *asdu.CounterInterrogationCmdMsg:
		return e.resolveCommand(entry, m.Header(), asdu.C_CI_NA_1, 0)
	case *asdu.ReadCmdMsg:
		return e.resolveCommand(entry, m.Header(), asdu.C_RD_NA_1, m.IOA)
	case *asdu.ClockSyncCmdMsg:
		return e.resolveCommand(entry, m.Header(), asdu.C_CS_NA_1, 0)
	default:
		if e.onUnexpected != nil {
			e.onUnexpected(c, msg)
		}
		return nil
	}
}

func (e *Engine) applyMonitor(s *station.Station, ioa asdu.InfoObjAddr, typ asdu.TypeID, info information.Information) {
	p := e.ensurePoint(s, ioa, typ)
	if p.InvokeOnReceive(info) == point.ResponseFailure {
		return
	}
	p.SetInfo(info)
}

func (e *Engine) resolveCommand(entry *ConnEntry, h asdu.Header, typ asdu.TypeID, ioa asdu.InfoObjAddr) error {
	key := correlator.Key{
		CA:         h.Identifier.CommonAddr,
		Type:       typ,
		IOA:        ioa,
		Originator: h.Identifier.OrigAddr,
	}
	entry.table.Resolve(key, h.Identifier.Coa)
	return nil
}

// monTimestamp converts a monitoring item's embedded time.Time (zero for
// untimestamped NA_1 variants) into the (recordedAt, timestamped) pair the
// information constructors expect.
func monTimestamp(t time.Time) (*time.Time, bool) {
	if t.IsZero() {
		return nil, false
	}
	return &t, true
}

// RunTimers drives the per-point OnTimer pass (§4.9's "data-point timer"
// pass) across every connection's cached stations on a fixed tick until ctx
// is cancelled.
func (e *Engine) RunTimers(ctx context.Context, tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			e.fireTimers(now)
		}
	}
}

func (e *Engine) fireTimers(now time.Time) {
	e.mu.RLock()
	entries := make([]*ConnEntry, 0, len(e.entries))
	for _, entry := range e.entries {
		entries = append(entries, entry)
	}
	e.mu.RUnlock()

	for _, entry := range entries {
		if entry.conn.State() != connection.Open {
			continue
		}
		for _, s := range entry.allStations() {
			for _, p := range s.AllPointsSorted() {
				if cb, due := p.DueTimer(now); due {
					cb(p)
				}
			}
		}
	}
}
