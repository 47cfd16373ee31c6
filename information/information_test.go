package information

import (
	"testing"
	"time"

	"github.com/marrasen/go-iecp5/asdu"
)

func TestNewSingle(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name        string
		recordedAt  *time.Time
		timestamped bool
		wantErr     bool
	}{
		{"non-timestamped, no time", nil, false, false},
		{"non-timestamped, with time", &now, false, true},
		{"timestamped, no time", nil, true, true},
		{"timestamped, with time", &now, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSingle(asdu.SPIOn, asdu.QDSGood, tt.recordedAt, tt.timestamped, false)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewSingle() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestInformation_Single_KindMismatch(t *testing.T) {
	i, err := NewDouble(asdu.DPIDeterminedOn, asdu.QDSGood, nil, false, false)
	if err != nil {
		t.Fatalf("NewDouble() error = %v", err)
	}
	if _, ok := i.Single(); ok {
		t.Errorf("Single() ok = true for a Double-kind Information")
	}
	if v, ok := i.Double(); !ok || v != asdu.DPIDeterminedOn {
		t.Errorf("Double() = %v, %v, want %v, true", v, ok, asdu.DPIDeterminedOn)
	}
}

func TestNewStep_RangeCheck(t *testing.T) {
	tests := []struct {
		name    string
		val     int
		wantErr bool
	}{
		{"below range", -65, true},
		{"low bound", -64, false},
		{"high bound", 63, false},
		{"above range", 64, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewStep(asdu.StepPosition{Val: tt.val}, asdu.QDSGood, nil, false, false)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewStep() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewBinaryCounter_SequenceRange(t *testing.T) {
	tests := []struct {
		name    string
		seq     byte
		wantErr bool
	}{
		{"in range", 31, false},
		{"out of range", 32, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBinaryCounter(asdu.BinaryCounterReading{SeqNumber: tt.seq}, nil, false, false)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewBinaryCounter() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestInformation_WithQuality_Readonly(t *testing.T) {
	i, err := NewSingle(asdu.SPIOn, asdu.QDSGood, nil, false, true)
	if err != nil {
		t.Fatalf("NewSingle() error = %v", err)
	}
	if _, err := i.WithQuality(asdu.QDSInvalid); err != ErrReadonly {
		t.Errorf("WithQuality() error = %v, want %v", err, ErrReadonly)
	}
}

func TestInformation_WithQuality(t *testing.T) {
	i, err := NewSingle(asdu.SPIOn, asdu.QDSGood, nil, false, false)
	if err != nil {
		t.Fatalf("NewSingle() error = %v", err)
	}
	updated, err := i.WithQuality(asdu.QDSInvalid)
	if err != nil {
		t.Fatalf("WithQuality() error = %v", err)
	}
	if updated.Quality() != asdu.QDSInvalid {
		t.Errorf("Quality() = %v, want %v", updated.Quality(), asdu.QDSInvalid)
	}
}

func TestInformation_WithRecordedAt(t *testing.T) {
	now := time.Now()
	i, err := NewSingle(asdu.SPIOn, asdu.QDSGood, &now, true, false)
	if err != nil {
		t.Fatalf("NewSingle() error = %v", err)
	}
	later := now.Add(time.Minute)
	updated, err := i.WithRecordedAt(later)
	if err != nil {
		t.Fatalf("WithRecordedAt() error = %v", err)
	}
	if !updated.RecordedAt().Equal(later) {
		t.Errorf("RecordedAt() = %v, want %v", updated.RecordedAt(), later)
	}

	plain, err := NewSingle(asdu.SPIOn, asdu.QDSGood, nil, false, false)
	if err != nil {
		t.Fatalf("NewSingle() error = %v", err)
	}
	if _, err := plain.WithRecordedAt(now); err != ErrUnexpectedTimestamp {
		t.Errorf("WithRecordedAt() on non-timestamped error = %v, want %v", err, ErrUnexpectedTimestamp)
	}
}

func TestInformation_IsCommand(t *testing.T) {
	cmd, err := NewSingleCommand(asdu.SCOOn, asdu.QualifierOfCommand{}, false, nil, false)
	if err != nil {
		t.Fatalf("NewSingleCommand() error = %v", err)
	}
	if !cmd.IsCommand() {
		t.Errorf("IsCommand() = false, want true")
	}

	mon, err := NewSingle(asdu.SPIOn, asdu.QDSGood, nil, false, false)
	if err != nil {
		t.Fatalf("NewSingle() error = %v", err)
	}
	if mon.IsCommand() {
		t.Errorf("IsCommand() = true, want false")
	}
}

func TestInformation_SelectAndQualifier(t *testing.T) {
	qual := asdu.QualifierOfCommand{Qual: asdu.QOCShortPulseDuration}
	cmd, err := NewSingleCommand(asdu.SCOOn, qual, true, nil, false)
	if err != nil {
		t.Fatalf("NewSingleCommand() error = %v", err)
	}
	if !cmd.Select() {
		t.Errorf("Select() = false, want true")
	}
	if cmd.Qualifier().Qual != asdu.QOCShortPulseDuration {
		t.Errorf("Qualifier() = %v, want %v", cmd.Qualifier().Qual, asdu.QOCShortPulseDuration)
	}
}

func TestKind_String(t *testing.T) {
	if got := KindSingle.String(); got != "Single" {
		t.Errorf("KindSingle.String() = %q, want %q", got, "Single")
	}
	if got := Kind(999).String(); got != "Kind(999)" {
		t.Errorf("Kind(999).String() = %q, want %q", got, "Kind(999)")
	}
}
