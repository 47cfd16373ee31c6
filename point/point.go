// SPDX-License-Identifier: MIT
// Copyright (c) 2025 go-iecp5 contributors.

// Package point implements DataPoint, the unit of addressable process data
// owned by a Station.
package point

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/marrasen/go-iecp5/asdu"
	"github.com/marrasen/go-iecp5/information"
)

// Role distinguishes which side of a connection a DataPoint's owner plays,
// since on_before_read/on_before_auto_transmit are server-only and read()/
// transmit() behave differently per role.
type Role int

const (
	RoleClient Role = iota
	RoleServer
)

// CommandMode governs how a control-direction point handles incoming
// command ASDUs.
type CommandMode int

const (
	// Direct applies the command immediately on receipt.
	Direct CommandMode = iota
	// SelectAndExecute requires a prior successful select before execute.
	SelectAndExecute
)

// ResponseState is returned by on_receive to drive the ACT_CON polarity.
type ResponseState int

const (
	ResponseSuccess ResponseState = iota
	ResponseFailure
)

var (
	ErrInvalidType       = errors.New("point: TypeID is not a command variant")
	ErrGroupOutOfRange   = errors.New("point: group must be in [1,16]")
	ErrCounterGroupRange = errors.New("point: counter point groups restricted to [1,4]")
	ErrRelatedAutoReturn = errors.New("point: related_auto_return requires related_io_address")
	ErrServerOnlyHook    = errors.New("point: hook is server-only")
	ErrNoOwner           = errors.New("point: point has no owning station")
	ErrBadTimerInterval  = errors.New("point: timer interval must be 0 or a positive multiple of the tick rate (>=50ms)")
)

// Owner is the minimal surface a Station exposes to its points, kept here
// (rather than importing package station) to avoid a dependency cycle.
type Owner interface {
	Role() Role
	CommonAddress() asdu.CommonAddr
	Clock() time.Time
	AutoTimeSubstituted() bool
	// TransmitMonitor enqueues a spontaneous/periodic ASDU to active peers
	// (server role); Transmit does not call it in client role.
	TransmitMonitor(p *DataPoint, cause asdu.Cause) error
	// TransmitCommand is used by client-role transmit() on a command point.
	TransmitCommand(p *DataPoint, cause asdu.Cause) error
	// IssueRead sends a C_RD_NA_1 for the point's IOA (client-only).
	IssueRead(p *DataPoint) error
	TickRateMs() uint
}

// OnReceive handles an inbound command ASDU destined for this point.
type OnReceive func(p *DataPoint, info information.Information) ResponseState

// OnBeforeRead runs before the server answers a C_RD_NA_1 for this point.
type OnBeforeRead func(p *DataPoint)

// OnBeforeAutoTransmit runs before a periodic/interrogation batch includes this point.
type OnBeforeAutoTransmit func(p *DataPoint)

// OnTimer runs when the point's timer fires.
type OnTimer func(p *DataPoint)

// DataPoint is the unit of addressable process data: one IOA under one
// Station, carrying the latest Information plus callbacks and scheduling
// metadata.
type DataPoint struct {
	mu sync.RWMutex

	owner Owner

	ioa  asdu.InfoObjAddr
	typ  asdu.TypeID
	info information.Information

	relatedIOA        *asdu.InfoObjAddr
	relatedAutoReturn bool

	commandMode CommandMode

	reportIntervalMs uint
	timerIntervalMs  uint
	lastSentAt       time.Time
	timerNextAt      time.Time

	groups map[int]struct{}

	onReceive            OnReceive
	onBeforeRead         OnBeforeRead
	onBeforeAutoTransmit OnBeforeAutoTransmit
	onTimer              OnTimer
}

// New builds a DataPoint for typ at ioa, initially holding info. owner may be
// nil until the point is added to a Station (see station.Station.AddPoint).
func New(owner Owner, ioa asdu.InfoObjAddr, typ asdu.TypeID, info information.Information) *DataPoint {
	return &DataPoint{
		owner:  owner,
		ioa:    ioa,
		typ:    typ,
		info:   info,
		groups: make(map[int]struct{}),
	}
}

// IOA returns the point's information object address.
func (p *DataPoint) IOA() asdu.InfoObjAddr { return p.ioa }

// Type returns the point's TypeID.
func (p *DataPoint) Type() asdu.TypeID { return p.typ }

// SetOwner attaches or replaces the owning Station; called by station.AddPoint.
func (p *DataPoint) SetOwner(owner Owner) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.owner = owner
}

// Info returns a copy of the point's current Information.
func (p *DataPoint) Info() information.Information {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.info
}

// SetInfo replaces the point's Information. The caller is responsible for
// ensuring new.Kind() is compatible with the point's TypeID; ProcessedAt is
// refreshed by the Information constructors themselves.
func (p *DataPoint) SetInfo(newInfo information.Information) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.info = newInfo
}

// SetQuality updates the quality descriptor of the current Information,
// refreshing processed_at. Fails if the current Information is readonly.
func (p *DataPoint) SetQuality(q asdu.QualityDescriptor) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	updated, err := p.info.WithQuality(q)
	if err != nil {
		return err
	}
	p.info = updated
	return nil
}

// Touch refreshes recorded_at from the owning station's clock, tagging the
// value Substituted when the station auto-substitutes timestamps. It is a
// no-op for non-timestamped Information.
func (p *DataPoint) Touch() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.info.RecordedAt() == nil {
		return nil
	}
	if p.owner == nil {
		return ErrNoOwner
	}
	now := p.owner.Clock()
	updated, err := p.info.WithRecordedAt(now)
	if err != nil {
		return err
	}
	if p.owner.AutoTimeSubstituted() {
		updated, err = updated.WithQuality(updated.Quality() | asdu.QDSSubstituted)
		if err != nil {
			return err
		}
	}
	p.info = updated
	return nil
}

// Transmit enqueues a spontaneous/periodic ASDU for this point on a server,
// or issues the point's command ASDU on a client. Fails with ErrInvalidType
// if invoked on a client for a non-command TypeID.
func (p *DataPoint) Transmit(cause asdu.Cause) error {
	p.mu.RLock()
	owner := p.owner
	role := Role(0)
	if owner != nil {
		role = owner.Role()
	}
	p.mu.RUnlock()
	if owner == nil {
		return ErrNoOwner
	}
	if role == RoleClient {
		if !isCommandType(p.Type()) {
			return fmt.Errorf("%w: %s", ErrInvalidType, p.Type())
		}
		return owner.TransmitCommand(p, cause)
	}
	return owner.TransmitMonitor(p, cause)
}

// Read sends a C_RD_NA_1 for this point; client-only.
func (p *DataPoint) Read() error {
	p.mu.RLock()
	owner := p.owner
	p.mu.RUnlock()
	if owner == nil {
		return ErrNoOwner
	}
	if owner.Role() != RoleClient {
		return fmt.Errorf("point: read() is client-only")
	}
	return owner.IssueRead(p)
}

// OnReceive registers the inbound-command handler.
func (p *DataPoint) OnReceive(cb OnReceive) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onReceive = cb
}

// InvokeOnReceive calls the registered handler, defaulting to Success when
// none is registered.
func (p *DataPoint) InvokeOnReceive(info information.Information) ResponseState {
	p.mu.RLock()
	cb := p.onReceive
	p.mu.RUnlock()
	if cb == nil {
		return ResponseSuccess
	}
	return cb(p, info)
}

// OnBeforeRead registers the pre-read hook; server-only.
func (p *DataPoint) OnBeforeRead(cb OnBeforeRead) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.owner != nil && p.owner.Role() != RoleServer {
		return ErrServerOnlyHook
	}
	p.onBeforeRead = cb
	return nil
}

// InvokeOnBeforeRead calls the registered pre-read hook, if any.
func (p *DataPoint) InvokeOnBeforeRead() {
	p.mu.RLock()
	cb := p.onBeforeRead
	p.mu.RUnlock()
	if cb != nil {
		cb(p)
	}
}

// OnBeforeAutoTransmit registers the pre-periodic/interrogation hook; server-only.
func (p *DataPoint) OnBeforeAutoTransmit(cb OnBeforeAutoTransmit) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.owner != nil && p.owner.Role() != RoleServer {
		return ErrServerOnlyHook
	}
	p.onBeforeAutoTransmit = cb
	return nil
}

// InvokeOnBeforeAutoTransmit calls the registered hook, if any.
func (p *DataPoint) InvokeOnBeforeAutoTransmit() {
	p.mu.RLock()
	cb := p.onBeforeAutoTransmit
	p.mu.RUnlock()
	if cb != nil {
		cb(p)
	}
}

// OnTimer registers a periodic callback firing every interval_ms, which must
// be 0 (disabled) or a positive multiple of the owner's tick rate (>=50ms).
func (p *DataPoint) OnTimer(cb OnTimer, intervalMs uint) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if intervalMs != 0 {
		tick := uint(50)
		if p.owner != nil {
			if t := p.owner.TickRateMs(); t > 0 {
				tick = t
			}
		}
		if intervalMs < 50 || intervalMs%tick != 0 {
			return ErrBadTimerInterval
		}
	}
	p.onTimer = cb
	p.timerIntervalMs = intervalMs
	if intervalMs == 0 {
		p.timerNextAt = time.Time{}
	} else {
		p.timerNextAt = time.Now().Add(time.Duration(intervalMs) * time.Millisecond)
	}
	return nil
}

// DueTimer reports whether the point's timer has fired as of now, and
// advances timerNextAt if so.
func (p *DataPoint) DueTimer(now time.Time) (OnTimer, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.onTimer == nil || p.timerIntervalMs == 0 {
		return nil, false
	}
	if now.Before(p.timerNextAt) {
		return nil, false
	}
	p.timerNextAt = now.Add(time.Duration(p.timerIntervalMs) * time.Millisecond)
	return p.onTimer, true
}

// SetReportInterval configures the periodic-inventory interval in ms; 0 disables it.
func (p *DataPoint) SetReportInterval(ms uint) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reportIntervalMs = ms
}

// ReportIntervalMs returns the configured periodic-inventory interval.
func (p *DataPoint) ReportIntervalMs() uint {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.reportIntervalMs
}

// DueReport reports whether a periodic-inventory send is due as of now.
func (p *DataPoint) DueReport(now time.Time) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.reportIntervalMs > 0 && !now.Before(p.lastSentAt.Add(time.Duration(p.reportIntervalMs)*time.Millisecond))
}

// MarkSent records that the point was just serialized into an outbound batch.
func (p *DataPoint) MarkSent(now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastSentAt = now
}

// SetCommandMode sets Direct or SelectAndExecute handling for command points.
func (p *DataPoint) SetCommandMode(mode CommandMode) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.commandMode = mode
}

// CommandMode returns the point's command handling mode.
func (p *DataPoint) CommandMode() CommandMode {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.commandMode
}

// SetRelated configures related_io_address / related_auto_return for a
// control point. related_auto_return=true without a related IOA is an error.
func (p *DataPoint) SetRelated(relatedIOA *asdu.InfoObjAddr, autoReturn bool) error {
	if autoReturn && relatedIOA == nil {
		return ErrRelatedAutoReturn
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.relatedIOA = relatedIOA
	p.relatedAutoReturn = autoReturn
	return nil
}

// RelatedIOA returns the related monitoring point's IOA, if any.
func (p *DataPoint) RelatedIOA() (asdu.InfoObjAddr, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.relatedIOA == nil {
		return 0, false
	}
	return *p.relatedIOA, true
}

// RelatedAutoReturn reports whether RETURN_INFO_REMOTE should be emitted
// after a successful Direct-mode command.
func (p *DataPoint) RelatedAutoReturn() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.relatedAutoReturn
}

// isCounterType reports whether typ is one of the integrated-totals TypeIDs,
// whose groups are restricted to {1..4}.
func isCounterType(typ asdu.TypeID) bool {
	switch typ {
	case asdu.M_IT_NA_1, asdu.M_IT_TA_1, asdu.M_IT_TB_1:
		return true
	default:
		return false
	}
}

// AddGroup adds g (1..16) to the point's interrogation-group membership.
// Counter-type points are restricted to groups 1..4.
func (p *DataPoint) AddGroup(g int) error {
	if g < 1 || g > 16 {
		return ErrGroupOutOfRange
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if isCounterType(p.typ) && g > 4 {
		return ErrCounterGroupRange
	}
	p.groups[g] = struct{}{}
	return nil
}

// RemoveGroup removes g from the point's group membership.
func (p *DataPoint) RemoveGroup(g int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.groups, g)
}

// InGroup reports whether the point belongs to interrogation group g.
func (p *DataPoint) InGroup(g int) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.groups[g]
	return ok
}

// Groups returns a sorted-independent snapshot of the point's group set.
func (p *DataPoint) Groups() []int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]int, 0, len(p.groups))
	for g := range p.groups {
		out = append(out, g)
	}
	return out
}

// isCommandType reports whether typ is a control-direction TypeID.
func isCommandType(typ asdu.TypeID) bool {
	switch typ {
	case asdu.C_SC_NA_1, asdu.C_SC_TA_1,
		asdu.C_DC_NA_1, asdu.C_DC_TA_1,
		asdu.C_RC_NA_1, asdu.C_RC_TA_1,
		asdu.C_SE_NA_1, asdu.C_SE_TA_1,
		asdu.C_SE_NB_1, asdu.C_SE_TB_1,
		asdu.C_SE_NC_1, asdu.C_SE_TC_1,
		asdu.C_BO_NA_1, asdu.C_BO_TA_1:
		return true
	default:
		return false
	}
}
