// SPDX-License-Identifier: MIT
// Copyright (c) 2025 go-iecp5 contributors.

// Package server implements the Server Engine: station/point ownership over
// a cs104.Server, interrogation/read/clock-sync/command dispatch, the
// select-and-execute selection manager, and periodic inventory reporting.
package server

import (
	"context"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/marrasen/go-iecp5/asdu"
	"github.com/marrasen/go-iecp5/clog"
	"github.com/marrasen/go-iecp5/cs104"
	"github.com/marrasen/go-iecp5/information"
	"github.com/marrasen/go-iecp5/point"
	"github.com/marrasen/go-iecp5/station"
)

// DefaultSelectTimeout is the select-and-execute selection lifetime.
const DefaultSelectTimeout = 100 * time.Millisecond

// ClockSyncResult lets the clock-sync callback veto a C_CS_NA_1 request.
type ClockSyncResult int

const (
	ClockSyncAccepted ClockSyncResult = iota
	ClockSyncRejected
)

// Engine is the server-role ASDU dispatcher and station registry.
type Engine struct {
	clog.Clog

	mu       sync.RWMutex
	stations map[asdu.CommonAddr]*station.Station
	srv      *cs104.Server

	active   map[asdu.Connect]struct{}
	selects  map[selectionKey]*selection
	tickRate uint

	onClockSync func(remote net.Addr, t time.Time) ClockSyncResult
	onUnexpected func(conn asdu.Connect, msg asdu.Message)
}

type selectionKey struct {
	ca  asdu.CommonAddr
	ioa asdu.InfoObjAddr
}

type selection struct {
	conn       asdu.Connect
	originator asdu.OriginAddr
	typeID     asdu.TypeID
	expiresAt  time.Time
}

// New builds an Engine around an already-configured *cs104.Server (its
// handler must be this Engine, set via Handle being passed as asdu.Handler).
func New(srv *cs104.Server) *Engine {
	e := &Engine{
		Clog:     clog.NewLogger("server engine => "),
		stations: make(map[asdu.CommonAddr]*station.Station),
		srv:      srv,
		active:   make(map[asdu.Connect]struct{}),
		selects:  make(map[selectionKey]*selection),
		tickRate: 50,
		onClockSync: func(net.Addr, time.Time) ClockSyncResult { return ClockSyncAccepted },
	}
	srv.ConnState = e.handleConnState
	return e
}

// SetAcceptFunc installs the connection-request callback consulted with the
// peer address right after accept.
func (e *Engine) SetAcceptFunc(f func(remote net.Addr) bool) {
	e.srv.AcceptFunc = f
}

// SetClockSyncHandler registers the callback consulted on C_CS_NA_1.
func (e *Engine) SetClockSyncHandler(f func(remote net.Addr, t time.Time) ClockSyncResult) {
	if f != nil {
		e.onClockSync = f
	}
}

// SetUnexpectedHandler registers a callback for ASDUs this Engine cannot
// dispatch (unknown station, out-of-scope TypeID, etc.).
func (e *Engine) SetUnexpectedHandler(f func(conn asdu.Connect, msg asdu.Message)) {
	e.onUnexpected = f
}

// AddStation registers a station under its common address.
func (e *Engine) AddStation(s *station.Station) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stations[s.CommonAddress()] = s
}

// Station looks up a station by common address.
func (e *Engine) Station(ca asdu.CommonAddr) (*station.Station, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.stations[ca]
	return s, ok
}

func (e *Engine) stationsFor(ca asdu.CommonAddr) []*station.Station {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if ca == asdu.GlobalCommonAddr {
		out := make([]*station.Station, 0, len(e.stations))
		for _, s := range e.stations {
			out = append(out, s)
		}
		return out
	}
	if s, ok := e.stations[ca]; ok {
		return []*station.Station{s}
	}
	return nil
}

func (e *Engine) handleConnState(conn asdu.Connect, state cs104.ConnState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch state {
	case cs104.Activated:
		e.active[conn] = struct{}{}
	case cs104.Deactivated, cs104.Disconnected:
		delete(e.active, conn)
		for k, sel := range e.selects {
			if sel.conn == conn {
				delete(e.selects, k)
			}
		}
	}
}

// TickRateMs implements station.Sender.
func (e *Engine) TickRateMs() uint { return e.tickRate }

// EndOfInitialization implements station.Sender by broadcasting M_EI_NA_1.
func (e *Engine) EndOfInitialization(ca asdu.CommonAddr, coi asdu.CauseOfInitial) error {
	a := asdu.NewASDU(e.srv.Params(), asdu.Identifier{
		Type:     asdu.M_EI_NA_1,
		Variable: asdu.VariableStruct{IsSequence: false, Number: 1},
		Coa:      asdu.CauseOfTransmission{Cause: asdu.Initialized},
		CommonAddr: ca,
	})
	if err := a.AppendInfoObjAddr(0); err != nil {
		return err
	}
	a.AppendBytes(coi.Value())
	return e.srv.Send(a)
}

// TransmitMonitor implements point.Owner/station.Sender: spontaneous or
// periodic ASDU to every active peer.
func (e *Engine) TransmitMonitor(p *point.DataPoint, cause asdu.Cause) error {
	return e.sendBatch(e.srv, findOwningCA(e, p), cause, []*point.DataPoint{p})
}

// TransmitCommand is never called server-side (server points aren't
// commands issued by the station itself); present to satisfy point.Owner.
func (e *Engine) TransmitCommand(p *point.DataPoint, cause asdu.Cause) error {
	return errServerTransmitCommand
}

// IssueRead is never called server-side; present to satisfy point.Owner.
func (e *Engine) IssueRead(p *point.DataPoint) error {
	return errServerIssueRead
}

func findOwningCA(e *Engine, p *point.DataPoint) asdu.CommonAddr {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for ca, s := range e.stations {
		if pt, ok := s.GetPoint(p.IOA()); ok && pt == p {
			return ca
		}
	}
	return 0
}

// Handle implements asdu.Handler, dispatching inbound ASDUs by TypeID.
func (e *Engine) Handle(conn asdu.Connect, msg asdu.Message) error {
	switch m := msg.(type) {
	case *asdu.InterrogationCmdMsg:
		return e.handleInterrogation(conn, m)
	case *asdu.CounterInterrogationCmdMsg:
		return e.handleCounterInterrogation(conn, m)
	case *asdu.ReadCmdMsg:
		return e.handleRead(conn, m)
	case *asdu.ClockSyncCmdMsg:
		return e.handleClockSync(conn, m)
	case *asdu.SingleCommandMsg:
		sco := asdu.SCOOff
		if m.Cmd.Value {
			sco = asdu.SCOOn
		}
		recordedAt, timestamped := cmdTimestamp(m.Cmd.Time)
		info, err := information.NewSingleCommand(sco, m.Cmd.Qoc, m.Cmd.Qoc.InSelect, recordedAt, timestamped)
		if err != nil {
			return err
		}
		return e.handleCommand(conn, m.Header(), m.Cmd.Ioa, m.Cmd.Qoc.InSelect, asdu.C_SC_NA_1, info)
	case *asdu.DoubleCommandMsg:
		recordedAt, timestamped := cmdTimestamp(m.Cmd.Time)
		info, err := information.NewDoubleCommand(m.Cmd.Value, m.Cmd.Qoc, m.Cmd.Qoc.InSelect, recordedAt, timestamped)
		if err != nil {
			return err
		}
		return e.handleCommand(conn, m.Header(), m.Cmd.Ioa, m.Cmd.Qoc.InSelect, asdu.C_DC_NA_1, info)
	case *asdu.StepCommandMsg:
		recordedAt, timestamped := cmdTimestamp(m.Cmd.Time)
		info, err := information.NewStepCommand(m.Cmd.Value, m.Cmd.Qoc, m.Cmd.Qoc.InSelect, recordedAt, timestamped)
		if err != nil {
			return err
		}
		return e.handleCommand(conn, m.Header(), m.Cmd.Ioa, m.Cmd.Qoc.InSelect, asdu.C_RC_NA_1, info)
	case *asdu.SetpointNormalMsg:
		recordedAt, timestamped := cmdTimestamp(m.Cmd.Time)
		info, err := information.NewSetpointNormalized(m.Cmd.Value, m.Cmd.Qos, recordedAt, timestamped)
		if err != nil {
			return err
		}
		return e.handleSetpoint(conn, m.Header(), m.Cmd.Ioa, m.Cmd.Qos.InSelect, asdu.C_SE_NA_1, info)
	case *asdu.SetpointScaledMsg:
		recordedAt, timestamped := cmdTimestamp(m.Cmd.Time)
		info, err := information.NewSetpointScaled(m.Cmd.Value, m.Cmd.Qos, recordedAt, timestamped)
		if err != nil {
			return err
		}
		return e.handleSetpoint(conn, m.Header(), m.Cmd.Ioa, m.Cmd.Qos.InSelect, asdu.C_SE_NB_1, info)
	case *asdu.SetpointFloatMsg:
		recordedAt, timestamped := cmdTimestamp(m.Cmd.Time)
		info, err := information.NewSetpointShortFloat(m.Cmd.Value, m.Cmd.Qos, recordedAt, timestamped)
		if err != nil {
			return err
		}
		return e.handleSetpoint(conn, m.Header(), m.Cmd.Ioa, m.Cmd.Qos.InSelect, asdu.C_SE_NC_1, info)
	case *asdu.BitsString32CmdMsg:
		recordedAt, timestamped := cmdTimestamp(m.Cmd.Time)
		info, err := information.NewBitstring32Command(m.Cmd.Value, recordedAt, timestamped)
		if err != nil {
			return err
		}
		return e.handleCommand(conn, m.Header(), m.Cmd.Ioa, false, asdu.C_BO_NA_1, info)
	case *asdu.EndOfInitMsg:
		return errClientToServerEndOfInit
	default:
		if e.onUnexpected != nil {
			e.onUnexpected(conn, msg)
		}
		return nil
	}
}

// cmdTimestamp converts a command message's embedded time.Time (zero for the
// untimestamped NA_1 variants) into the (recordedAt, timestamped) pair the
// information constructors expect.
func cmdTimestamp(t time.Time) (*time.Time, bool) {
	if t.IsZero() {
		return nil, false
	}
	return &t, true
}

func (e *Engine) handleInterrogation(conn asdu.Connect, m *asdu.InterrogationCmdMsg) error {
	src := m.Header().ASDU()
	if err := replyMirror(conn, src, asdu.ActivationConfirm, false); err != nil {
		return err
	}

	group := 0
	if m.QOI >= asdu.QOIStation+1 {
		group = int(m.QOI) - int(asdu.QOIStation)
	}

	for _, s := range e.stationsFor(m.Header().Identifier.CommonAddr) {
		var pts []*point.DataPoint
		if group == 0 {
			pts = s.AllPointsSorted()
		} else {
			pts = s.PointsInGroup(group)
		}
		for _, p := range pts {
			p.InvokeOnBeforeAutoTransmit()
		}
		cause := asdu.Requested + asdu.Cause(group)
		if err := e.sendBatch(conn, s.CommonAddress(), cause, pts); err != nil {
			return err
		}
	}
	return replyMirror(conn, src, asdu.ActivationTermination, false)
}

// handleCounterInterrogation replies to a counter interrogation and applies
// the QCC freeze/reset semantics (§7.2.6.23): Read reports the live value
// unchanged; FreezeNoReset reports the live cumulative value, also
// unchanged; FreezeReset reports the current (incremental) value and then
// zeroes the counter so the next interrogation reports only what
// accumulated since; Reset zeroes the counter without transmitting it.
func (e *Engine) handleCounterInterrogation(conn asdu.Connect, m *asdu.CounterInterrogationCmdMsg) error {
	src := m.Header().ASDU()
	if err := replyMirror(conn, src, asdu.ActivationConfirm, false); err != nil {
		return err
	}
	group := int(m.QCC.Request)
	report := m.QCC.Freeze != asdu.QCCFrzReset
	reset := m.QCC.Freeze == asdu.QCCFrzFreezeReset || m.QCC.Freeze == asdu.QCCFrzReset
	for _, s := range e.stationsFor(m.Header().Identifier.CommonAddr) {
		var pts []*point.DataPoint
		var cause asdu.Cause
		if group == 0 || int(asdu.QCCTotal) == group {
			pts = s.PointsInGroup(1)
			for _, g := range []int{2, 3, 4} {
				pts = append(pts, s.PointsInGroup(g)...)
			}
			cause = asdu.RequestByGeneralCounter
		} else if group >= 1 && group <= 4 {
			pts = s.PointsInGroup(group)
			cause = asdu.RequestByGroup1Counter + asdu.Cause(group-1)
		}
		if report {
			if err := e.sendBatch(conn, s.CommonAddress(), cause, pts); err != nil {
				return err
			}
		}
		if reset {
			resetCounters(pts)
		}
	}
	return replyMirror(conn, src, asdu.ActivationTermination, false)
}

// resetCounters zeroes the binary counter reading of every M_IT_NA_1 point
// in pts, marking it adjusted so the discontinuity is visible downstream.
func resetCounters(pts []*point.DataPoint) {
	for _, p := range pts {
		if p.Type() != asdu.M_IT_NA_1 {
			continue
		}
		cur := p.Info()
		v, ok := cur.BinaryCounter()
		if !ok {
			continue
		}
		v.CounterReading = 0
		v.IsAdjusted = true
		newInfo, err := information.NewBinaryCounter(v, cur.RecordedAt(), cur.IsTimestamped(), cur.Readonly())
		if err != nil {
			continue
		}
		p.SetInfo(newInfo)
	}
}

func (e *Engine) handleRead(conn asdu.Connect, m *asdu.ReadCmdMsg) error {
	ca := m.Header().Identifier.CommonAddr
	s, ok := e.Station(ca)
	if !ok {
		return replyMirror(conn, m.Header().ASDU(), asdu.UnknownCommonAddrOfASDU, false)
	}
	p, ok := s.GetPoint(m.IOA)
	if !ok {
		return replyMirror(conn, m.Header().ASDU(), asdu.UnknownInfoObjAddr, false)
	}
	p.InvokeOnBeforeRead()
	return e.sendBatch(conn, ca, asdu.Request, []*point.DataPoint{p})
}

func (e *Engine) handleClockSync(conn asdu.Connect, m *asdu.ClockSyncCmdMsg) error {
	var remote net.Addr
	if conn.UnderlyingConn() != nil {
		remote = conn.UnderlyingConn().RemoteAddr()
	}
	result := e.onClockSync(remote, m.Time)
	return replyMirror(conn, m.Header().ASDU(), asdu.ActivationConfirm, result == ClockSyncRejected)
}

var (
	errServerTransmitCommand  = asduErr("server: TransmitCommand is client-only")
	errServerIssueRead        = asduErr("server: IssueRead is client-only")
	errClientToServerEndOfInit = asduErr("server: M_EI_NA_1 direction client->server is rejected")
)

func asduErr(s string) error { return &engineError{s} }

type engineError struct{ s string }

func (e *engineError) Error() string { return e.s }

func replyMirror(conn asdu.Connect, src *asdu.ASDU, cause asdu.Cause, negative bool) error {
	r := src.Reply(cause, src.CommonAddr)
	r.Coa.IsNegative = negative
	return conn.Send(r)
}

// sendBatch packs points into one or more ASDUs grouped by TypeID and sends
// them to conn (a single session for replies, or the Server itself to
// broadcast to every active peer). Within a TypeID, maximal runs of
// consecutive information object addresses are packed SQ=1 (shared base
// address) capped at the per-type byte budget derived from max_asdu_size;
// everything else is packed SQ=0, each object carrying its own address, also
// capped by the byte budget.
func (e *Engine) sendBatch(conn asdu.Connect, ca asdu.CommonAddr, cause asdu.Cause, points []*point.DataPoint) error {
	byType := make(map[asdu.TypeID][]*point.DataPoint)
	order := make([]asdu.TypeID, 0)
	for _, p := range points {
		if _, ok := byType[p.Type()]; !ok {
			order = append(order, p.Type())
		}
		byType[p.Type()] = append(byType[p.Type()], p)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	params := conn.Params()
	coa := asdu.CauseOfTransmission{Cause: cause}
	now := time.Now()
	for _, typ := range order {
		pts := byType[typ]
		sort.Slice(pts, func(i, j int) bool { return pts[i].IOA() < pts[j].IOA() })

		objSize, err := asdu.GetInfoObjSize(typ)
		if err != nil {
			return err
		}
		seqCap := (asdu.ASDUSizeMax - params.IdentifierSize() - params.InfoObjAddrSize) / objSize
		plainCap := (asdu.ASDUSizeMax - params.IdentifierSize()) / (objSize + params.InfoObjAddrSize)
		if seqCap < 1 || plainCap < 1 {
			return asdu.ErrLengthOutOfRange
		}

		for i := 0; i < len(pts); {
			runLen := 1
			for i+runLen < len(pts) && pts[i+runLen].IOA() == pts[i+runLen-1].IOA()+1 {
				runLen++
			}
			if runLen >= 2 {
				for start := 0; start < runLen; start += seqCap {
					end := start + seqCap
					if end > runLen {
						end = runLen
					}
					chunk := pts[i+start : i+end]
					if err := sendChunk(conn, coa, ca, typ, chunk, true); err != nil {
						return err
					}
					for _, p := range chunk {
						p.MarkSent(now)
					}
				}
				i += runLen
				continue
			}

			j := i
			batch := make([]*point.DataPoint, 0, plainCap)
			for j < len(pts) && len(batch) < plainCap {
				if j+1 < len(pts) && pts[j+1].IOA() == pts[j].IOA()+1 {
					break
				}
				batch = append(batch, pts[j])
				j++
			}
			if err := sendChunk(conn, coa, ca, typ, batch, false); err != nil {
				return err
			}
			for _, p := range batch {
				p.MarkSent(now)
			}
			i = j
		}
	}
	return nil
}

func sendChunk(conn asdu.Connect, coa asdu.CauseOfTransmission, ca asdu.CommonAddr, typ asdu.TypeID, pts []*point.DataPoint, isSequence bool) error {
	switch typ {
	case asdu.M_SP_NA_1:
		infos := make([]asdu.SinglePointInfo, 0, len(pts))
		for _, p := range pts {
			v, _ := p.Info().Single()
			infos = append(infos, asdu.SinglePointInfo{Ioa: p.IOA(), Value: v == asdu.SPIOn, Qds: p.Info().Quality()})
		}
		return asdu.Single(conn, isSequence, coa, ca, infos...)
	case asdu.M_DP_NA_1:
		infos := make([]asdu.DoublePointInfo, 0, len(pts))
		for _, p := range pts {
			v, _ := p.Info().Double()
			infos = append(infos, asdu.DoublePointInfo{Ioa: p.IOA(), Value: v, Qds: p.Info().Quality()})
		}
		return asdu.Double(conn, isSequence, coa, ca, infos...)
	case asdu.M_ST_NA_1:
		infos := make([]asdu.StepPositionInfo, 0, len(pts))
		for _, p := range pts {
			v, _ := p.Info().Step()
			infos = append(infos, asdu.StepPositionInfo{Ioa: p.IOA(), Value: v, Qds: p.Info().Quality()})
		}
		return asdu.Step(conn, isSequence, coa, ca, infos...)
	case asdu.M_BO_NA_1:
		infos := make([]asdu.BitString32Info, 0, len(pts))
		for _, p := range pts {
			v, _ := p.Info().Bitstring32()
			infos = append(infos, asdu.BitString32Info{Ioa: p.IOA(), Value: v, Qds: p.Info().Quality()})
		}
		return asdu.BitString32(conn, isSequence, coa, ca, infos...)
	case asdu.M_ME_NA_1:
		infos := make([]asdu.MeasuredValueNormalInfo, 0, len(pts))
		for _, p := range pts {
			v, _ := p.Info().Normalized()
			infos = append(infos, asdu.MeasuredValueNormalInfo{Ioa: p.IOA(), Value: v, Qds: p.Info().Quality()})
		}
		return asdu.MeasuredValueNormal(conn, isSequence, coa, ca, infos...)
	case asdu.M_ME_NB_1:
		infos := make([]asdu.MeasuredValueScaledInfo, 0, len(pts))
		for _, p := range pts {
			v, _ := p.Info().Scaled()
			infos = append(infos, asdu.MeasuredValueScaledInfo{Ioa: p.IOA(), Value: v, Qds: p.Info().Quality()})
		}
		return asdu.MeasuredValueScaled(conn, isSequence, coa, ca, infos...)
	case asdu.M_ME_NC_1:
		infos := make([]asdu.MeasuredValueFloatInfo, 0, len(pts))
		for _, p := range pts {
			v, _ := p.Info().ShortFloat()
			infos = append(infos, asdu.MeasuredValueFloatInfo{Ioa: p.IOA(), Value: v, Qds: p.Info().Quality()})
		}
		return asdu.MeasuredValueFloat(conn, isSequence, coa, ca, infos...)
	case asdu.M_IT_NA_1:
		infos := make([]asdu.BinaryCounterReadingInfo, 0, len(pts))
		for _, p := range pts {
			v, _ := p.Info().BinaryCounter()
			infos = append(infos, asdu.BinaryCounterReadingInfo{Ioa: p.IOA(), Value: v})
		}
		return asdu.IntegratedTotals(conn, isSequence, coa, ca, infos...)
	default:
		return nil
	}
}

// handleCommand drives the Direct / SelectAndExecute flow for a non-setpoint
// command ASDU (single/double/step/bitstring32).
func (e *Engine) handleCommand(conn asdu.Connect, h asdu.Header, ioa asdu.InfoObjAddr, isSelect bool, typ asdu.TypeID, info information.Information) error {
	ca := h.Identifier.CommonAddr
	originator := h.Identifier.OrigAddr
	src := h.ASDU()

	s, ok := e.Station(ca)
	if !ok {
		return replyMirror(conn, src, asdu.UnknownCommonAddrOfASDU, false)
	}
	p, ok := s.GetPoint(ioa)
	if !ok {
		return replyMirror(conn, src, asdu.UnknownInfoObjAddr, false)
	}

	if p.CommandMode() == point.Direct {
		return e.executeDirect(conn, src, p, originator, info)
	}
	return e.handleSelectAndExecute(conn, src, ca, ioa, typ, originator, isSelect, p, info)
}

func (e *Engine) handleSetpoint(conn asdu.Connect, h asdu.Header, ioa asdu.InfoObjAddr, isSelect bool, typ asdu.TypeID, info information.Information) error {
	ca := h.Identifier.CommonAddr
	originator := h.Identifier.OrigAddr
	src := h.ASDU()

	s, ok := e.Station(ca)
	if !ok {
		return replyMirror(conn, src, asdu.UnknownCommonAddrOfASDU, false)
	}
	p, ok := s.GetPoint(ioa)
	if !ok {
		return replyMirror(conn, src, asdu.UnknownInfoObjAddr, false)
	}
	if p.CommandMode() == point.Direct {
		return e.executeDirect(conn, src, p, originator, info)
	}
	return e.handleSelectAndExecute(conn, src, ca, ioa, typ, originator, isSelect, p, info)
}

func (e *Engine) executeDirect(conn asdu.Connect, src *asdu.ASDU, p *point.DataPoint, originator asdu.OriginAddr, info information.Information) error {
	state := p.InvokeOnReceive(info)
	negative := state == point.ResponseFailure
	if err := replyMirror(conn, src, asdu.ActivationConfirm, negative); err != nil {
		return err
	}
	if negative {
		return nil
	}
	if relIOA, ok := p.RelatedIOA(); ok && p.RelatedAutoReturn() {
		if rp, ok := e.pointByIOA(src.Identifier.CommonAddr, relIOA); ok {
			_ = e.sendBatch(conn, src.Identifier.CommonAddr, asdu.ReturnInfoRemote, []*point.DataPoint{rp})
		}
	}
	return nil
}

func (e *Engine) pointByIOA(ca asdu.CommonAddr, ioa asdu.InfoObjAddr) (*point.DataPoint, bool) {
	s, ok := e.Station(ca)
	if !ok {
		return nil, false
	}
	return s.GetPoint(ioa)
}

func (e *Engine) handleSelectAndExecute(conn asdu.Connect, src *asdu.ASDU, ca asdu.CommonAddr, ioa asdu.InfoObjAddr, typ asdu.TypeID, originator asdu.OriginAddr, isSelect bool, p *point.DataPoint, info information.Information) error {
	key := selectionKey{ca: ca, ioa: ioa}

	e.mu.Lock()
	existing, has := e.selects[key]
	if isSelect {
		if has && existing.conn != conn {
			e.mu.Unlock()
			return replyMirror(conn, src, asdu.ActivationConfirm, true)
		}
		e.selects[key] = &selection{conn: conn, originator: originator, typeID: typ, expiresAt: time.Now().Add(DefaultSelectTimeout)}
		e.mu.Unlock()
		return replyMirror(conn, src, asdu.ActivationConfirm, false)
	}

	if !has || existing.conn != conn || existing.originator != originator || existing.typeID != typ || time.Now().After(existing.expiresAt) {
		e.mu.Unlock()
		return replyMirror(conn, src, asdu.ActivationConfirm, true)
	}
	delete(e.selects, key)
	e.mu.Unlock()

	if err := e.executeDirect(conn, src, p, originator, info); err != nil {
		return err
	}
	return replyMirror(conn, src, asdu.ActivationTermination, false)
}

// RunPeriodic drives the select-expiry cleanup and periodic-inventory batch
// passes on a fixed tick until ctx is cancelled.
func (e *Engine) RunPeriodic(ctx context.Context, tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			e.expireSelections(now)
			e.reportDue(now)
		}
	}
}

func (e *Engine) expireSelections(now time.Time) {
	e.mu.Lock()
	expired := make([]*selection, 0)
	for k, sel := range e.selects {
		if now.After(sel.expiresAt) {
			expired = append(expired, sel)
			delete(e.selects, k)
		}
	}
	e.mu.Unlock()

	for _, sel := range expired {
		a := asdu.NewASDU(e.srv.Params(), asdu.Identifier{
			Type:     sel.typeID,
			Variable: asdu.VariableStruct{IsSequence: false, Number: 1},
			Coa:      asdu.CauseOfTransmission{Cause: asdu.ActivationTermination, IsNegative: true},
			OrigAddr: sel.originator,
		})
		_ = sel.conn.Send(a)
	}
}

func (e *Engine) reportDue(now time.Time) {
	e.mu.RLock()
	stations := make([]*station.Station, 0, len(e.stations))
	for _, s := range e.stations {
		stations = append(stations, s)
	}
	e.mu.RUnlock()

	for _, s := range stations {
		due := make([]*point.DataPoint, 0)
		for _, p := range s.AllPointsSorted() {
			if p.DueReport(now) {
				p.InvokeOnBeforeAutoTransmit()
				due = append(due, p)
			}
		}
		if len(due) > 0 {
			_ = e.sendBatch(e.srv, s.CommonAddress(), asdu.Periodic, due)
		}
	}
}
