// SPDX-License-Identifier: MIT
// Copyright (c) 2025 go-iecp5 contributors.

// Package information implements the value+quality+timestamp record carried
// by a data point, independent of wire encoding.
package information

import (
	"errors"
	"fmt"
	"time"

	"github.com/marrasen/go-iecp5/asdu"
)

// Kind discriminates the value carried by an Information record. Consumers
// read a Kind's value through its matching typed accessor rather than a
// type switch over an interface{}.
type Kind int

// Value kinds, companion standard 101 7.2.6.
const (
	KindSingle Kind = iota
	KindDouble
	KindStep
	KindBitstring32
	KindNormalized
	KindScaled
	KindShortFloat
	KindBinaryCounter
	KindProtectionEvent
	KindProtectionStartEvents
	KindProtectionOutputCircuits
	KindStatusWithChangeDetection
	KindSingleCommand
	KindDoubleCommand
	KindStepCommand
	KindSetpointNormalized
	KindSetpointScaled
	KindSetpointShortFloat
	KindBitstring32Command
)

func (k Kind) String() string {
	switch k {
	case KindSingle:
		return "Single"
	case KindDouble:
		return "Double"
	case KindStep:
		return "Step"
	case KindBitstring32:
		return "Bitstring32"
	case KindNormalized:
		return "Normalized"
	case KindScaled:
		return "Scaled"
	case KindShortFloat:
		return "ShortFloat"
	case KindBinaryCounter:
		return "BinaryCounter"
	case KindProtectionEvent:
		return "ProtectionEvent"
	case KindProtectionStartEvents:
		return "ProtectionStartEvents"
	case KindProtectionOutputCircuits:
		return "ProtectionOutputCircuits"
	case KindStatusWithChangeDetection:
		return "StatusWithChangeDetection"
	case KindSingleCommand:
		return "SingleCommand"
	case KindDoubleCommand:
		return "DoubleCommand"
	case KindStepCommand:
		return "StepCommand"
	case KindSetpointNormalized:
		return "SetpointNormalized"
	case KindSetpointScaled:
		return "SetpointScaled"
	case KindSetpointShortFloat:
		return "SetpointShortFloat"
	case KindBitstring32Command:
		return "Bitstring32Command"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ErrReadonly is returned by any mutator called on a readonly Information.
var ErrReadonly = errors.New("information: value is readonly")

// ErrKindMismatch is returned by a typed accessor invoked against an
// Information of a different Kind.
var ErrKindMismatch = errors.New("information: accessor does not match kind")

// ErrMissingTimestamp is returned when a timestamped Kind is constructed
// without a RecordedAt and the caller did not ask for auto-stamping.
var ErrMissingTimestamp = errors.New("information: timestamped value requires RecordedAt")

// ErrUnexpectedTimestamp is returned when a non-timestamped Kind is
// constructed with a RecordedAt.
var ErrUnexpectedTimestamp = errors.New("information: non-timestamped value must not carry RecordedAt")

// command holds the select-before-execute state carried by command kinds.
type command struct {
	qualifier asdu.QualifierOfCommand
	selectQoc asdu.QOSQual
	isSelect  bool
}

// Information is the tagged-union value+quality+timestamp record owned by a
// DataPoint. The zero value is not valid; build one with a New* constructor.
type Information struct {
	kind  Kind
	value interface{}

	quality    asdu.QualityDescriptor
	recordedAt *time.Time
	processedAt time.Time
	readonly   bool

	cmd command
}

// Kind reports the value kind carried by this Information.
func (i Information) Kind() Kind { return i.kind }

// Quality reports the quality descriptor. Binary-counter readings encode
// their own quality via BinaryCounterReading and ignore this field.
func (i Information) Quality() asdu.QualityDescriptor { return i.quality }

// RecordedAt reports the source timestamp, nil for non-timestamped kinds.
func (i Information) RecordedAt() *time.Time { return i.recordedAt }

// ProcessedAt reports when this Information was last assigned locally.
func (i Information) ProcessedAt() time.Time { return i.processedAt }

// Readonly reports whether mutators on this Information are rejected.
func (i Information) Readonly() bool { return i.readonly }

// IsCommand reports whether this Kind is one of the control-direction kinds.
func (i Information) IsCommand() bool {
	switch i.kind {
	case KindSingleCommand, KindDoubleCommand, KindStepCommand,
		KindSetpointNormalized, KindSetpointScaled, KindSetpointShortFloat,
		KindBitstring32Command:
		return true
	default:
		return false
	}
}

// IsTimestamped reports whether a RecordedAt was supplied. The constructors
// take the timestamped-ness of the concrete TypeID from their caller, since
// the same Kind (e.g. Single) has both a plain and a _TA_1/_TB_1 TypeID
// variant; Information itself only tracks whether a RecordedAt is present.
func (i Information) IsTimestamped() bool { return i.recordedAt != nil }

// Select reports the select-before-execute bit for a command Information.
func (i Information) Select() bool { return i.cmd.isSelect }

// Qualifier reports the command qualifier for a (non-setpoint) command Information.
func (i Information) Qualifier() asdu.QualifierOfCommand { return i.cmd.qualifier }

// SetpointQualifier reports the select-qualifier for a setpoint command Information.
func (i Information) SetpointQualifier() asdu.QOSQual { return i.cmd.selectQoc }

func withTimestamp(recordedAt *time.Time, timestamped bool) (*time.Time, error) {
	if timestamped {
		if recordedAt == nil {
			return nil, ErrMissingTimestamp
		}
		t := *recordedAt
		return &t, nil
	}
	if recordedAt != nil {
		return nil, ErrUnexpectedTimestamp
	}
	return nil, nil
}

func base(kind Kind, quality asdu.QualityDescriptor, recordedAt *time.Time, timestamped, readonly bool) (Information, error) {
	ts, err := withTimestamp(recordedAt, timestamped)
	if err != nil {
		return Information{}, err
	}
	return Information{
		kind:        kind,
		quality:     quality,
		recordedAt:  ts,
		processedAt: time.Now(),
		readonly:    readonly,
	}, nil
}

// NewSingle builds a Single-point Information.
func NewSingle(v asdu.SinglePoint, quality asdu.QualityDescriptor, recordedAt *time.Time, timestamped, readonly bool) (Information, error) {
	i, err := base(KindSingle, quality, recordedAt, timestamped, readonly)
	if err != nil {
		return Information{}, err
	}
	i.value = v
	return i, nil
}

// Single returns the Single-point value; ok is false if Kind() != KindSingle.
func (i Information) Single() (v asdu.SinglePoint, ok bool) {
	v, ok = i.value.(asdu.SinglePoint)
	return
}

// NewDouble builds a Double-point Information.
func NewDouble(v asdu.DoublePoint, quality asdu.QualityDescriptor, recordedAt *time.Time, timestamped, readonly bool) (Information, error) {
	i, err := base(KindDouble, quality, recordedAt, timestamped, readonly)
	if err != nil {
		return Information{}, err
	}
	i.value = v
	return i, nil
}

// Double returns the Double-point value; ok is false if Kind() != KindDouble.
func (i Information) Double() (v asdu.DoublePoint, ok bool) {
	v, ok = i.value.(asdu.DoublePoint)
	return
}

// NewStep builds a Step-position Information. Val must be in [-64, 63].
func NewStep(v asdu.StepPosition, quality asdu.QualityDescriptor, recordedAt *time.Time, timestamped, readonly bool) (Information, error) {
	if v.Val < -64 || v.Val > 63 {
		return Information{}, fmt.Errorf("information: step position %d out of [-64,63]", v.Val)
	}
	i, err := base(KindStep, quality, recordedAt, timestamped, readonly)
	if err != nil {
		return Information{}, err
	}
	i.value = v
	return i, nil
}

// Step returns the Step-position value; ok is false if Kind() != KindStep.
func (i Information) Step() (v asdu.StepPosition, ok bool) {
	v, ok = i.value.(asdu.StepPosition)
	return
}

// NewBitstring32 builds a 32-bit bitstring Information.
func NewBitstring32(v uint32, quality asdu.QualityDescriptor, recordedAt *time.Time, timestamped, readonly bool) (Information, error) {
	i, err := base(KindBitstring32, quality, recordedAt, timestamped, readonly)
	if err != nil {
		return Information{}, err
	}
	i.value = v
	return i, nil
}

// Bitstring32 returns the raw 32 bits; ok is false if Kind() != KindBitstring32.
func (i Information) Bitstring32() (v uint32, ok bool) {
	v, ok = i.value.(uint32)
	return
}

// NewNormalized builds a Normalized Information. v must be in [-1, 1-2^-15].
func NewNormalized(v asdu.Normalize, quality asdu.QualityDescriptor, recordedAt *time.Time, timestamped, readonly bool) (Information, error) {
	f := v.Float64()
	if f < -1 || f > 1-1.0/32768 {
		return Information{}, fmt.Errorf("information: normalized value %v out of range", f)
	}
	i, err := base(KindNormalized, quality, recordedAt, timestamped, readonly)
	if err != nil {
		return Information{}, err
	}
	i.value = v
	return i, nil
}

// Normalized returns the Normalized value; ok is false if Kind() != KindNormalized.
func (i Information) Normalized() (v asdu.Normalize, ok bool) {
	v, ok = i.value.(asdu.Normalize)
	return
}

// NewScaled builds a Scaled Information.
func NewScaled(v int16, quality asdu.QualityDescriptor, recordedAt *time.Time, timestamped, readonly bool) (Information, error) {
	i, err := base(KindScaled, quality, recordedAt, timestamped, readonly)
	if err != nil {
		return Information{}, err
	}
	i.value = v
	return i, nil
}

// Scaled returns the Scaled value; ok is false if Kind() != KindScaled.
func (i Information) Scaled() (v int16, ok bool) {
	v, ok = i.value.(int16)
	return
}

// NewShortFloat builds a ShortFloat (IEEE-754 32-bit) Information.
func NewShortFloat(v float32, quality asdu.QualityDescriptor, recordedAt *time.Time, timestamped, readonly bool) (Information, error) {
	i, err := base(KindShortFloat, quality, recordedAt, timestamped, readonly)
	if err != nil {
		return Information{}, err
	}
	i.value = v
	return i, nil
}

// ShortFloat returns the ShortFloat value; ok is false if Kind() != KindShortFloat.
func (i Information) ShortFloat() (v float32, ok bool) {
	v, ok = i.value.(float32)
	return
}

// NewBinaryCounter builds a BinaryCounterReading Information; the sequence
// field must be in [0, 31] (enforced by asdu.BinaryCounterReading.Value()
// masking it to 5 bits, so this constructor validates it explicitly instead
// of silently truncating).
func NewBinaryCounter(v asdu.BinaryCounterReading, recordedAt *time.Time, timestamped, readonly bool) (Information, error) {
	if v.SeqNumber > 31 {
		return Information{}, fmt.Errorf("information: binary counter sequence %d out of [0,31]", v.SeqNumber)
	}
	i, err := base(KindBinaryCounter, asdu.QDSGood, recordedAt, timestamped, readonly)
	if err != nil {
		return Information{}, err
	}
	i.value = v
	return i, nil
}

// BinaryCounter returns the counter reading; ok is false if Kind() != KindBinaryCounter.
func (i Information) BinaryCounter() (v asdu.BinaryCounterReading, ok bool) {
	v, ok = i.value.(asdu.BinaryCounterReading)
	return
}

// protectionEventValue bundles a SingleEvent with its elapsed-time field.
type protectionEventValue struct {
	event     asdu.SingleEvent
	elapsedMs uint16
}

// NewProtectionEvent builds a protection-equipment event Information.
// elapsedMs must be in [0, 2^16-1] (always true for a uint16, kept for
// parity with the other range-checked constructors).
func NewProtectionEvent(event asdu.SingleEvent, elapsedMs uint16, quality asdu.QualityDescriptorProtection, recordedAt *time.Time, timestamped, readonly bool) (Information, error) {
	i, err := base(KindProtectionEvent, asdu.QualityDescriptor(quality), recordedAt, timestamped, readonly)
	if err != nil {
		return Information{}, err
	}
	i.value = protectionEventValue{event, elapsedMs}
	return i, nil
}

// ProtectionEvent returns the event and its elapsed-ms field.
func (i Information) ProtectionEvent() (event asdu.SingleEvent, elapsedMs uint16, ok bool) {
	v, ok := i.value.(protectionEventValue)
	if !ok {
		return 0, 0, false
	}
	return v.event, v.elapsedMs, true
}

type startEventsValue struct {
	events   asdu.StartEvent
	relayMs  uint16
}

// NewProtectionStartEvents builds a packed start-events Information.
func NewProtectionStartEvents(events asdu.StartEvent, relayDurationMs uint16, quality asdu.QualityDescriptorProtection, recordedAt *time.Time, timestamped, readonly bool) (Information, error) {
	i, err := base(KindProtectionStartEvents, asdu.QualityDescriptor(quality), recordedAt, timestamped, readonly)
	if err != nil {
		return Information{}, err
	}
	i.value = startEventsValue{events, relayDurationMs}
	return i, nil
}

// ProtectionStartEvents returns the field set and relay duration.
func (i Information) ProtectionStartEvents() (events asdu.StartEvent, relayDurationMs uint16, ok bool) {
	v, ok := i.value.(startEventsValue)
	if !ok {
		return 0, 0, false
	}
	return v.events, v.relayMs, true
}

type outputCircuitsValue struct {
	circuits asdu.OutputCircuitInfo
	operateMs uint16
}

// NewProtectionOutputCircuits builds a packed output-circuit Information.
func NewProtectionOutputCircuits(circuits asdu.OutputCircuitInfo, relayOperatingMs uint16, quality asdu.QualityDescriptorProtection, recordedAt *time.Time, timestamped, readonly bool) (Information, error) {
	i, err := base(KindProtectionOutputCircuits, asdu.QualityDescriptor(quality), recordedAt, timestamped, readonly)
	if err != nil {
		return Information{}, err
	}
	i.value = outputCircuitsValue{circuits, relayOperatingMs}
	return i, nil
}

// ProtectionOutputCircuits returns the field set and relay operating time.
func (i Information) ProtectionOutputCircuits() (circuits asdu.OutputCircuitInfo, relayOperatingMs uint16, ok bool) {
	v, ok := i.value.(outputCircuitsValue)
	if !ok {
		return 0, 0, false
	}
	return v.circuits, v.operateMs, true
}

// NewStatusWithChangeDetection builds a status-and-change-detection Information.
func NewStatusWithChangeDetection(v asdu.StatusAndStatusChangeDetection, quality asdu.QualityDescriptor, recordedAt *time.Time, timestamped, readonly bool) (Information, error) {
	i, err := base(KindStatusWithChangeDetection, quality, recordedAt, timestamped, readonly)
	if err != nil {
		return Information{}, err
	}
	i.value = v
	return i, nil
}

// StatusWithChangeDetection returns the packed status/change-detection value.
func (i Information) StatusWithChangeDetection() (v asdu.StatusAndStatusChangeDetection, ok bool) {
	v, ok = i.value.(asdu.StatusAndStatusChangeDetection)
	return
}

// NewSingleCommand builds a single-command Information (control direction).
func NewSingleCommand(v asdu.SingleCommand, qual asdu.QualifierOfCommand, selectCmd bool, recordedAt *time.Time, timestamped bool) (Information, error) {
	i, err := base(KindSingleCommand, asdu.QDSGood, recordedAt, timestamped, false)
	if err != nil {
		return Information{}, err
	}
	i.value = v
	qual.InSelect = selectCmd
	i.cmd = command{qualifier: qual, isSelect: selectCmd}
	return i, nil
}

// SingleCommand returns the single-command value; ok is false if Kind() != KindSingleCommand.
func (i Information) SingleCommand() (v asdu.SingleCommand, ok bool) {
	v, ok = i.value.(asdu.SingleCommand)
	return
}

// NewDoubleCommand builds a double-command Information.
func NewDoubleCommand(v asdu.DoubleCommand, qual asdu.QualifierOfCommand, selectCmd bool, recordedAt *time.Time, timestamped bool) (Information, error) {
	i, err := base(KindDoubleCommand, asdu.QDSGood, recordedAt, timestamped, false)
	if err != nil {
		return Information{}, err
	}
	i.value = v
	qual.InSelect = selectCmd
	i.cmd = command{qualifier: qual, isSelect: selectCmd}
	return i, nil
}

// DoubleCommand returns the double-command value; ok is false if Kind() != KindDoubleCommand.
func (i Information) DoubleCommand() (v asdu.DoubleCommand, ok bool) {
	v, ok = i.value.(asdu.DoubleCommand)
	return
}

// NewStepCommand builds a step-command Information. v must be Lower, Higher,
// or one of the two reserved Invalid values.
func NewStepCommand(v asdu.StepCommand, qual asdu.QualifierOfCommand, selectCmd bool, recordedAt *time.Time, timestamped bool) (Information, error) {
	i, err := base(KindStepCommand, asdu.QDSGood, recordedAt, timestamped, false)
	if err != nil {
		return Information{}, err
	}
	i.value = v
	qual.InSelect = selectCmd
	i.cmd = command{qualifier: qual, isSelect: selectCmd}
	return i, nil
}

// StepCommand returns the step-command value; ok is false if Kind() != KindStepCommand.
func (i Information) StepCommand() (v asdu.StepCommand, ok bool) {
	v, ok = i.value.(asdu.StepCommand)
	return
}

// NewSetpointNormalized builds a normalized setpoint command Information.
func NewSetpointNormalized(v asdu.Normalize, qual asdu.QualifierOfSetpointCmd, recordedAt *time.Time, timestamped bool) (Information, error) {
	i, err := base(KindSetpointNormalized, asdu.QDSGood, recordedAt, timestamped, false)
	if err != nil {
		return Information{}, err
	}
	i.value = v
	i.cmd = command{selectQoc: asdu.QOSQual(qual.Qual), isSelect: qual.InSelect}
	return i, nil
}

// SetpointNormalized returns the normalized setpoint value.
func (i Information) SetpointNormalized() (v asdu.Normalize, ok bool) {
	v, ok = i.value.(asdu.Normalize)
	return
}

// NewSetpointScaled builds a scaled setpoint command Information.
func NewSetpointScaled(v int16, qual asdu.QualifierOfSetpointCmd, recordedAt *time.Time, timestamped bool) (Information, error) {
	i, err := base(KindSetpointScaled, asdu.QDSGood, recordedAt, timestamped, false)
	if err != nil {
		return Information{}, err
	}
	i.value = v
	i.cmd = command{selectQoc: asdu.QOSQual(qual.Qual), isSelect: qual.InSelect}
	return i, nil
}

// SetpointScaled returns the scaled setpoint value.
func (i Information) SetpointScaled() (v int16, ok bool) {
	v, ok = i.value.(int16)
	return
}

// NewSetpointShortFloat builds a short-float setpoint command Information.
func NewSetpointShortFloat(v float32, qual asdu.QualifierOfSetpointCmd, recordedAt *time.Time, timestamped bool) (Information, error) {
	i, err := base(KindSetpointShortFloat, asdu.QDSGood, recordedAt, timestamped, false)
	if err != nil {
		return Information{}, err
	}
	i.value = v
	i.cmd = command{selectQoc: asdu.QOSQual(qual.Qual), isSelect: qual.InSelect}
	return i, nil
}

// SetpointShortFloat returns the short-float setpoint value.
func (i Information) SetpointShortFloat() (v float32, ok bool) {
	v, ok = i.value.(float32)
	return
}

// NewBitstring32Command builds a 32-bit bitstring command Information.
func NewBitstring32Command(v uint32, recordedAt *time.Time, timestamped bool) (Information, error) {
	i, err := base(KindBitstring32Command, asdu.QDSGood, recordedAt, timestamped, false)
	if err != nil {
		return Information{}, err
	}
	i.value = v
	return i, nil
}

// Bitstring32Command returns the raw 32 bits of a bitstring command.
func (i Information) Bitstring32Command() (v uint32, ok bool) {
	v, ok = i.value.(uint32)
	return
}

// WithQuality returns a copy of i with its quality replaced, failing if i is
// readonly.
func (i Information) WithQuality(q asdu.QualityDescriptor) (Information, error) {
	if i.readonly {
		return Information{}, ErrReadonly
	}
	i.quality = q
	i.processedAt = time.Now()
	return i, nil
}

// WithRecordedAt returns a copy of i with RecordedAt replaced and
// ProcessedAt refreshed, failing if i is readonly or was constructed
// non-timestamped.
func (i Information) WithRecordedAt(t time.Time) (Information, error) {
	if i.readonly {
		return Information{}, ErrReadonly
	}
	if i.recordedAt == nil {
		return Information{}, ErrUnexpectedTimestamp
	}
	i.recordedAt = &t
	i.processedAt = time.Now()
	return i, nil
}
