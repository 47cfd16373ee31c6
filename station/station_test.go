package station

import (
	"testing"
	"time"

	"github.com/marrasen/go-iecp5/asdu"
	"github.com/marrasen/go-iecp5/information"
	"github.com/marrasen/go-iecp5/point"
)

type fakeSender struct {
	tickMs          uint
	endOfInitCalls  int
	endOfInitCoi    asdu.CauseOfInitial
	transmitMonErr  error
	transmitCmdErr  error
}

func (f *fakeSender) TransmitMonitor(p *point.DataPoint, cause asdu.Cause) error { return f.transmitMonErr }
func (f *fakeSender) TransmitCommand(p *point.DataPoint, cause asdu.Cause) error { return f.transmitCmdErr }
func (f *fakeSender) IssueRead(p *point.DataPoint) error                        { return nil }
func (f *fakeSender) TickRateMs() uint                                          { return f.tickMs }
func (f *fakeSender) EndOfInitialization(ca asdu.CommonAddr, coi asdu.CauseOfInitial) error {
	f.endOfInitCalls++
	f.endOfInitCoi = coi
	return nil
}

func TestNew_CommonAddrRange(t *testing.T) {
	tests := []struct {
		name    string
		ca      asdu.CommonAddr
		wantErr bool
	}{
		{"zero", 0, true},
		{"low bound", 1, false},
		{"high bound", 65534, false},
		{"too high", 65535, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.ca, point.RoleServer, &fakeSender{}, nil)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestStation_AddPoint_DuplicateIOA(t *testing.T) {
	s, err := New(1, point.RoleServer, &fakeSender{}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	p1 := point.New(s, 10, asdu.M_SP_NA_1, information.Information{})
	if err := s.AddPoint(p1); err != nil {
		t.Fatalf("AddPoint() error = %v", err)
	}
	p2 := point.New(s, 10, asdu.M_SP_NA_1, information.Information{})
	if err := s.AddPoint(p2); err != ErrDuplicateIOA {
		t.Errorf("AddPoint() error = %v, want %v", err, ErrDuplicateIOA)
	}
}

func TestStation_GetPoint_RemovePoint(t *testing.T) {
	s, err := New(1, point.RoleServer, &fakeSender{}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	p := point.New(s, 10, asdu.M_SP_NA_1, information.Information{})
	if err := s.AddPoint(p); err != nil {
		t.Fatalf("AddPoint() error = %v", err)
	}
	if got, ok := s.GetPoint(10); !ok || got != p {
		t.Errorf("GetPoint(10) = %v, %v, want %v, true", got, ok, p)
	}
	if err := s.RemovePoint(10); err != nil {
		t.Fatalf("RemovePoint() error = %v", err)
	}
	if err := s.RemovePoint(10); err != ErrUnknownIOA {
		t.Errorf("RemovePoint() on missing IOA error = %v, want %v", err, ErrUnknownIOA)
	}
}

func TestStation_AllPointsSorted(t *testing.T) {
	s, err := New(1, point.RoleServer, &fakeSender{}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	for _, ioa := range []asdu.InfoObjAddr{30, 10, 20} {
		if err := s.AddPoint(point.New(s, ioa, asdu.M_SP_NA_1, information.Information{})); err != nil {
			t.Fatalf("AddPoint(%d) error = %v", ioa, err)
		}
	}
	sorted := s.AllPointsSorted()
	if len(sorted) != 3 {
		t.Fatalf("AllPointsSorted() len = %d, want 3", len(sorted))
	}
	for i := 1; i < len(sorted); i++ {
		if sorted[i].IOA() < sorted[i-1].IOA() {
			t.Errorf("AllPointsSorted() not ascending: %v", sorted)
		}
	}
}

func TestStation_PointsInGroup(t *testing.T) {
	s, err := New(1, point.RoleServer, &fakeSender{}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	p1 := point.New(s, 1, asdu.M_SP_NA_1, information.Information{})
	p2 := point.New(s, 2, asdu.M_SP_NA_1, information.Information{})
	if err := s.AddPoint(p1); err != nil {
		t.Fatalf("AddPoint() error = %v", err)
	}
	if err := s.AddPoint(p2); err != nil {
		t.Fatalf("AddPoint() error = %v", err)
	}
	if err := p1.AddGroup(3); err != nil {
		t.Fatalf("AddGroup() error = %v", err)
	}
	got := s.PointsInGroup(3)
	if len(got) != 1 || got[0] != p1 {
		t.Errorf("PointsInGroup(3) = %v, want [p1]", got)
	}
}

func TestStation_SignalInitialized_ServerOnly(t *testing.T) {
	sender := &fakeSender{}
	client, err := New(1, point.RoleClient, sender, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := client.SignalInitialized(asdu.CauseOfInitial{Cause: asdu.COILocalPowerOn}); err != ErrNotServer {
		t.Errorf("SignalInitialized() on client role error = %v, want %v", err, ErrNotServer)
	}

	server, err := New(1, point.RoleServer, sender, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := server.SignalInitialized(asdu.CauseOfInitial{Cause: asdu.COILocalPowerOn}); err != nil {
		t.Fatalf("SignalInitialized() error = %v", err)
	}
	if sender.endOfInitCalls != 1 {
		t.Errorf("EndOfInitialization called %d times, want 1", sender.endOfInitCalls)
	}
}

func TestStation_Clock_UsesTimeZonePolicy(t *testing.T) {
	tz := NewTimeZonePolicy(time.FixedZone("test", 3600), false)
	s, err := New(1, point.RoleServer, &fakeSender{}, tz)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	_, offset := s.Clock().Zone()
	if offset != 3600 {
		t.Errorf("Clock() zone offset = %d, want 3600", offset)
	}
}

func TestTimeZonePolicy_SetDST(t *testing.T) {
	tz := NewTimeZonePolicy(time.UTC, false)
	_, before := tz.Location().Zone()
	tz.SetDST(true)
	_, after := tz.Location().Zone()
	if after-before != 3600 {
		t.Errorf("DST shift = %d, want 3600", after-before)
	}
}
