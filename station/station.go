// SPDX-License-Identifier: MIT
// Copyright (c) 2025 go-iecp5 contributors.

// Package station implements Station, the IOA→DataPoint map addressed by a
// single ASDU common address.
package station

import (
	"errors"
	"sync"
	"time"

	"github.com/marrasen/go-iecp5/asdu"
	"github.com/marrasen/go-iecp5/point"
)

var (
	ErrCommonAddrRange = errors.New("station: common address must be in [1,65534]")
	ErrDuplicateIOA    = errors.New("station: information object address already in use")
	ErrUnknownIOA      = errors.New("station: no point at that information object address")
	ErrNotServer       = errors.New("station: signal_initialized is server-only")
)

// Sender is the role-specific transport a Station delegates transmit/read to;
// it is supplied by the server or client engine that owns the connection(s).
type Sender interface {
	TransmitMonitor(p *point.DataPoint, cause asdu.Cause) error
	TransmitCommand(p *point.DataPoint, cause asdu.Cause) error
	IssueRead(p *point.DataPoint) error
	TickRateMs() uint
	EndOfInitialization(ca asdu.CommonAddr, coi asdu.CauseOfInitial) error
}

// Station owns the points addressed by one ASDU common address and the
// timezone/DST policy applied to auto-stamped timestamps.
type Station struct {
	mu sync.RWMutex

	ca   asdu.CommonAddr
	role point.Role

	points map[asdu.InfoObjAddr]*point.DataPoint

	sender Sender
	tz     *TimeZonePolicy

	autoTimeSubstituted bool
}

// New builds a Station for common address ca (must be in [1,65534]; use
// asdu.GlobalCommonAddr only as a destination, never as a station's own
// address).
func New(ca asdu.CommonAddr, role point.Role, sender Sender, tz *TimeZonePolicy) (*Station, error) {
	if ca < 1 || ca > 65534 {
		return nil, ErrCommonAddrRange
	}
	if tz == nil {
		tz = NewTimeZonePolicy(time.UTC, false)
	}
	return &Station{
		ca:     ca,
		role:   role,
		points: make(map[asdu.InfoObjAddr]*point.DataPoint),
		sender: sender,
		tz:     tz,
	}, nil
}

// CommonAddress implements point.Owner.
func (s *Station) CommonAddress() asdu.CommonAddr { return s.ca }

// Role implements point.Owner.
func (s *Station) Role() point.Role { return s.role }

// TickRateMs implements point.Owner.
func (s *Station) TickRateMs() uint {
	if s.sender == nil {
		return 50
	}
	return s.sender.TickRateMs()
}

// Clock implements point.Owner: returns the current time adjusted by the
// station's timezone/DST policy.
func (s *Station) Clock() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tz.Now()
}

// AutoTimeSubstituted implements point.Owner.
func (s *Station) AutoTimeSubstituted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.autoTimeSubstituted
}

// SetAutoTimeSubstituted toggles whether auto-injected timestamps are
// tagged Quality.Substituted so peers can tell locally-stamped values from
// source-stamped ones.
func (s *Station) SetAutoTimeSubstituted(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autoTimeSubstituted = v
}

// SetDST updates the station's daylight-saving flag; per policy this shifts
// the effective wire offset by +/-3600s relative to the base tz_offset.
func (s *Station) SetDST(dst bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tz.SetDST(dst)
}

// TransmitMonitor implements point.Owner by delegating to the Sender.
func (s *Station) TransmitMonitor(p *point.DataPoint, cause asdu.Cause) error {
	if s.sender == nil {
		return errors.New("station: no sender attached")
	}
	return s.sender.TransmitMonitor(p, cause)
}

// TransmitCommand implements point.Owner by delegating to the Sender.
func (s *Station) TransmitCommand(p *point.DataPoint, cause asdu.Cause) error {
	if s.sender == nil {
		return errors.New("station: no sender attached")
	}
	return s.sender.TransmitCommand(p, cause)
}

// IssueRead implements point.Owner by delegating to the Sender.
func (s *Station) IssueRead(p *point.DataPoint) error {
	if s.sender == nil {
		return errors.New("station: no sender attached")
	}
	return s.sender.IssueRead(p)
}

// AddPoint registers p under its IOA, failing if the IOA is already in use.
func (s *Station) AddPoint(p *point.DataPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.points[p.IOA()]; exists {
		return ErrDuplicateIOA
	}
	p.SetOwner(s)
	s.points[p.IOA()] = p
	return nil
}

// GetPoint looks up a point by IOA.
func (s *Station) GetPoint(ioa asdu.InfoObjAddr) (*point.DataPoint, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.points[ioa]
	return p, ok
}

// RemovePoint deletes a point by IOA.
func (s *Station) RemovePoint(ioa asdu.InfoObjAddr) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.points[ioa]; !ok {
		return ErrUnknownIOA
	}
	delete(s.points, ioa)
	return nil
}

// Points returns a snapshot slice of every registered point.
func (s *Station) Points() []*point.DataPoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*point.DataPoint, 0, len(s.points))
	for _, p := range s.points {
		out = append(out, p)
	}
	return out
}

// PointsInGroup returns every point whose group set contains g, sorted by IOA.
func (s *Station) PointsInGroup(g int) []*point.DataPoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*point.DataPoint, 0)
	for _, p := range s.points {
		if p.InGroup(g) {
			out = append(out, p)
		}
	}
	sortByIOA(out)
	return out
}

// AllPointsSorted returns every point sorted by ascending IOA, the order
// required when packing an interrogation or periodic-report batch.
func (s *Station) AllPointsSorted() []*point.DataPoint {
	out := s.Points()
	sortByIOA(out)
	return out
}

func sortByIOA(points []*point.DataPoint) {
	for i := 1; i < len(points); i++ {
		for j := i; j > 0 && points[j].IOA() < points[j-1].IOA(); j-- {
			points[j], points[j-1] = points[j-1], points[j]
		}
	}
}

// SignalInitialized emits M_EI_NA_1 with the given cause of initialization.
// Server role only; client-direction use is rejected per the protocol.
func (s *Station) SignalInitialized(coi asdu.CauseOfInitial) error {
	if s.role != point.RoleServer {
		return ErrNotServer
	}
	if s.sender == nil {
		return errors.New("station: no sender attached")
	}
	return s.sender.EndOfInitialization(s.ca, coi)
}
