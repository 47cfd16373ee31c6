// SPDX-License-Identifier: MIT
// Copyright (c) 2025 go-iecp5 contributors.

// Package correlator tracks outstanding commands per connection and
// resolves them against inbound ASDUs carrying a matching cause of
// transmission.
package correlator

import (
	"context"
	"sync"
	"time"

	"github.com/marrasen/go-iecp5/asdu"
)

// DefaultCommandTimeout is applied when a caller does not override it.
const DefaultCommandTimeout = 10 * time.Second

// Expected is the resolution mode an outbound command registers.
type Expected int

const (
	// AwaitCon resolves Success on ACT_CON, Failure on anything else.
	AwaitCon Expected = iota
	// AwaitConTerm resolves on a matched ACT_CON/ACT_TERM pair count.
	AwaitConTerm
	// AwaitTerm resolves Success on ACT_TERM alone.
	AwaitTerm
	// AwaitRequest resolves Success on ACT_CON or a REQUEST-cause reply.
	AwaitRequest
)

// Outcome is the final resolution of a tracked command.
type Outcome int

const (
	Success Outcome = iota
	Failure
	Timeout
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "Success"
	case Failure:
		return "Failure"
	case Timeout:
		return "Timeout"
	default:
		return "Outcome(?)"
	}
}

// Key identifies one tracked command. Originator participates in the key
// only when the connection's Params.CauseSize == 2; callers that don't use
// originator-scoped addressing leave it zero throughout.
type Key struct {
	CA         asdu.CommonAddr
	Type       asdu.TypeID
	IOA        asdu.InfoObjAddr
	Originator asdu.OriginAddr
}

// UnexpectedFunc is invoked for an inbound ASDU that resolves no tracked
// key; cause is typically UnknownTypeID/UnknownInfoObjAddr/etc.
type UnexpectedFunc func(key Key, cause asdu.CauseOfTransmission)

type entry struct {
	expected Expected
	conCount int
	hadCon   bool
	done     chan Outcome
	once     sync.Once
}

func (e *entry) resolve(o Outcome) {
	e.once.Do(func() {
		e.done <- o
		close(e.done)
	})
}

// Table is a per-connection command-correlation table.
type Table struct {
	mu         sync.Mutex
	entries    map[Key]*entry
	unexpected UnexpectedFunc
}

// New builds an empty Table. unexpected may be nil.
func New(unexpected UnexpectedFunc) *Table {
	return &Table{entries: make(map[Key]*entry), unexpected: unexpected}
}

// Pending is a handle returned by Track, used to wait for the outcome.
type Pending struct {
	key     Key
	entry   *entry
	table   *Table
	timeout time.Duration
}

// Track registers key with the given expected resolution mode and returns a
// handle to wait on. timeout<=0 uses DefaultCommandTimeout.
func (t *Table) Track(key Key, expected Expected, timeout time.Duration) *Pending {
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	e := &entry{expected: expected, done: make(chan Outcome, 1)}
	t.mu.Lock()
	t.entries[key] = e
	t.mu.Unlock()
	return &Pending{key: key, entry: e, table: t, timeout: timeout}
}

// Wait blocks until the command resolves, the timeout elapses, or ctx is
// cancelled (surfaced as Timeout in both of the latter cases).
func (p *Pending) Wait(ctx context.Context) Outcome {
	timer := time.NewTimer(p.timeout)
	defer timer.Stop()
	select {
	case o := <-p.entry.done:
		return o
	case <-timer.C:
		p.table.forget(p.key)
		p.entry.resolve(Timeout)
		return Timeout
	case <-ctx.Done():
		p.table.forget(p.key)
		p.entry.resolve(Timeout)
		return Timeout
	}
}

func (t *Table) forget(key Key) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, key)
}

// globalKey substitutes CA with the broadcast address, used as a fallback
// lookup when the original command targeted every station on the link.
func globalKey(key Key) Key {
	key.CA = asdu.GlobalCommonAddr
	return key
}

// Resolve advances the entry (if any) matching key or its global-CA variant
// against an inbound cause of transmission, per the resolution table. It
// reports whether a tracked entry was found and has now (possibly) resolved.
func (t *Table) Resolve(key Key, coa asdu.CauseOfTransmission) bool {
	t.mu.Lock()
	e, ok := t.entries[key]
	if !ok {
		e, ok = t.entries[globalKey(key)]
		if ok {
			key = globalKey(key)
		}
	}
	t.mu.Unlock()

	if !ok {
		if t.unexpected != nil {
			t.unexpected(key, coa)
		}
		return false
	}

	if coa.IsNegative {
		t.forget(key)
		e.resolve(Failure)
		return true
	}

	switch e.expected {
	case AwaitCon:
		t.forget(key)
		if coa.Cause == asdu.ActivationConfirm {
			e.resolve(Success)
		} else {
			e.resolve(Failure)
		}
		return true

	case AwaitConTerm:
		switch coa.Cause {
		case asdu.ActivationConfirm:
			t.mu.Lock()
			e.conCount++
			e.hadCon = true
			t.mu.Unlock()
			return true
		case asdu.ActivationTermination:
			t.mu.Lock()
			e.conCount--
			count := e.conCount
			had := e.hadCon
			t.mu.Unlock()
			if count < 0 {
				t.forget(key)
				e.resolve(Failure)
				return true
			}
			if count == 0 && had {
				t.forget(key)
				e.resolve(Success)
				return true
			}
			return true
		default:
			t.forget(key)
			e.resolve(Failure)
			return true
		}

	case AwaitTerm:
		t.forget(key)
		if coa.Cause == asdu.ActivationTermination {
			e.resolve(Success)
		} else {
			e.resolve(Failure)
		}
		return true

	case AwaitRequest:
		t.forget(key)
		if coa.Cause == asdu.ActivationConfirm || coa.Cause == asdu.Request {
			e.resolve(Success)
		} else {
			e.resolve(Failure)
		}
		return true
	}
	return true
}

// Drop discards a tracked entry without resolving it, e.g. when its
// connection is torn down.
func (t *Table) Drop(key Key) {
	t.forget(key)
}
