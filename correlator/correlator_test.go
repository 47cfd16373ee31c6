package correlator

import (
	"context"
	"testing"
	"time"

	"github.com/marrasen/go-iecp5/asdu"
)

func TestTable_Resolve_AwaitCon(t *testing.T) {
	tests := []struct {
		name string
		coa  asdu.CauseOfTransmission
		want Outcome
	}{
		{"confirmed", asdu.CauseOfTransmission{Cause: asdu.ActivationConfirm}, Success},
		{"other cause", asdu.CauseOfTransmission{Cause: asdu.Spontaneous}, Failure},
		{"negative", asdu.CauseOfTransmission{Cause: asdu.ActivationConfirm, IsNegative: true}, Failure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := New(nil)
			key := Key{CA: 1, Type: asdu.C_SC_NA_1, IOA: 10}
			pending := table.Track(key, AwaitCon, time.Second)
			if !table.Resolve(key, tt.coa) {
				t.Fatalf("Resolve() = false, want true")
			}
			if got := pending.Wait(context.Background()); got != tt.want {
				t.Errorf("Wait() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTable_Resolve_AwaitConTerm(t *testing.T) {
	table := New(nil)
	key := Key{CA: 1, Type: asdu.C_IC_NA_1, IOA: 0}
	pending := table.Track(key, AwaitConTerm, time.Second)

	if !table.Resolve(key, asdu.CauseOfTransmission{Cause: asdu.ActivationConfirm}) {
		t.Fatalf("Resolve(ACT_CON) = false, want true")
	}
	select {
	case <-pending.entry.done:
		t.Fatalf("resolved early after single ACT_CON")
	case <-time.After(10 * time.Millisecond):
	}

	if !table.Resolve(key, asdu.CauseOfTransmission{Cause: asdu.ActivationTermination}) {
		t.Fatalf("Resolve(ACT_TERM) = false, want true")
	}
	if got := pending.Wait(context.Background()); got != Success {
		t.Errorf("Wait() = %v, want %v", got, Success)
	}
}

func TestTable_Resolve_Unexpected(t *testing.T) {
	var gotKey Key
	var called bool
	table := New(func(key Key, cause asdu.CauseOfTransmission) {
		called = true
		gotKey = key
	})
	key := Key{CA: 1, Type: asdu.C_SC_NA_1, IOA: 10}
	if table.Resolve(key, asdu.CauseOfTransmission{Cause: asdu.ActivationConfirm}) {
		t.Errorf("Resolve() on untracked key = true, want false")
	}
	if !called {
		t.Errorf("unexpected callback was not invoked")
	}
	if gotKey != key {
		t.Errorf("unexpected callback key = %v, want %v", gotKey, key)
	}
}

func TestTable_Resolve_GlobalCommonAddrFallback(t *testing.T) {
	table := New(nil)
	key := Key{CA: asdu.GlobalCommonAddr, Type: asdu.C_IC_NA_1}
	pending := table.Track(key, AwaitCon, time.Second)

	lookup := Key{CA: 42, Type: asdu.C_IC_NA_1}
	if !table.Resolve(lookup, asdu.CauseOfTransmission{Cause: asdu.ActivationConfirm}) {
		t.Fatalf("Resolve() via global fallback = false, want true")
	}
	if got := pending.Wait(context.Background()); got != Success {
		t.Errorf("Wait() = %v, want %v", got, Success)
	}
}

func TestPending_Wait_Timeout(t *testing.T) {
	table := New(nil)
	key := Key{CA: 1, Type: asdu.C_SC_NA_1, IOA: 10}
	pending := table.Track(key, AwaitCon, 10*time.Millisecond)
	if got := pending.Wait(context.Background()); got != Timeout {
		t.Errorf("Wait() = %v, want %v", got, Timeout)
	}
}

func TestPending_Wait_ContextCancelled(t *testing.T) {
	table := New(nil)
	key := Key{CA: 1, Type: asdu.C_SC_NA_1, IOA: 10}
	pending := table.Track(key, AwaitCon, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if got := pending.Wait(ctx); got != Timeout {
		t.Errorf("Wait() with cancelled context = %v, want %v", got, Timeout)
	}
}

func TestTable_Drop(t *testing.T) {
	table := New(nil)
	key := Key{CA: 1, Type: asdu.C_SC_NA_1, IOA: 10}
	table.Track(key, AwaitCon, time.Second)
	table.Drop(key)
	if table.Resolve(key, asdu.CauseOfTransmission{Cause: asdu.ActivationConfirm}) {
		t.Errorf("Resolve() after Drop = true, want false")
	}
}

func TestOutcome_String(t *testing.T) {
	if got := Success.String(); got != "Success" {
		t.Errorf("Success.String() = %q, want %q", got, "Success")
	}
	if got := Outcome(99).String(); got != "Outcome(?)" {
		t.Errorf("Outcome(99).String() = %q, want %q", got, "Outcome(?)")
	}
}
