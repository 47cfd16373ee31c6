// SPDX-License-Identifier: MIT
// Copyright (c) 2025 go-iecp5 contributors.

package station

import (
	"sync"
	"time"
)

// dstShift is the adjustment applied to the base offset when a station's
// daylight-saving flag is set, per the wire convention this package defines
// around CP56Time2a's SU/IV bits: asdu.CP56Time2a/ParseCP56Time2a themselves
// stay byte-for-byte unchanged; this is a pre/post-conversion layer around
// them, not a wire fact.
const dstShift = time.Hour

// TimeZonePolicy governs how a Station's auto-stamped recorded_at relates
// to the CP56Time2a written/read on the wire: a fixed base offset from UTC,
// shifted by +/-1h while dst is asserted.
type TimeZonePolicy struct {
	mu     sync.RWMutex
	offset time.Duration
	dst    bool
}

// NewTimeZonePolicy builds a policy from a *time.Location's fixed offset
// (looked up at the zero time, since this package targets fixed civil
// offsets rather than full IANA rule tables) plus an initial DST flag.
func NewTimeZonePolicy(loc *time.Location, dst bool) *TimeZonePolicy {
	_, offsetSec := time.Time{}.In(loc).Zone()
	return &TimeZonePolicy{offset: time.Duration(offsetSec) * time.Second, dst: dst}
}

// SetDST toggles the daylight-saving flag, shifting the effective offset by
// +/-3600s relative to the base tz_offset.
func (z *TimeZonePolicy) SetDST(dst bool) {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.dst = dst
}

// DST reports the current daylight-saving flag.
func (z *TimeZonePolicy) DST() bool {
	z.mu.RLock()
	defer z.mu.RUnlock()
	return z.dst
}

// effectiveOffset returns the base offset plus the DST shift when asserted.
func (z *TimeZonePolicy) effectiveOffset() time.Duration {
	z.mu.RLock()
	defer z.mu.RUnlock()
	if z.dst {
		return z.offset + dstShift
	}
	return z.offset
}

// Location returns a *time.Location reflecting the current effective offset,
// suitable for passing straight to asdu.CP56Time2a/ParseCP56Time2a.
func (z *TimeZonePolicy) Location() *time.Location {
	off := z.effectiveOffset()
	name := "station"
	if z.DST() {
		name = "station-dst"
	}
	return time.FixedZone(name, int(off.Seconds()))
}

// Now returns the current wall-clock time in the station's effective zone.
func (z *TimeZonePolicy) Now() time.Time {
	return time.Now().In(z.Location())
}
