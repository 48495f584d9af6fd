package trace

import (
	"testing"
)

func TestRecorder_Record_AppendsInOrder(t *testing.T) {
	// GIVEN a recorder at envelope level
	r := NewRecorder(TraceLevelEnvelopes)

	// WHEN two envelopes are recorded
	r.Record(EnvelopeRecord{Seq: 1, Clock: 10, FromID: 0, ToID: 1, Label: "flood", Size: 100, Delivered: true})
	r.Record(EnvelopeRecord{Seq: 2, Clock: 12, FromID: 1, ToID: 2, Label: "flood", Size: 100, Delivered: false})

	// THEN both are stored in recording order
	if len(r.Envelopes) != 2 {
		t.Fatalf("expected 2 envelopes, got %d", len(r.Envelopes))
	}
	if r.Envelopes[0].Seq != 1 || r.Envelopes[1].Seq != 2 {
		t.Errorf("order not preserved: %+v", r.Envelopes)
	}
}

func TestRecorder_Enabled(t *testing.T) {
	tests := []struct {
		level      TraceLevel
		enabled    bool
		wantFields bool
	}{
		{TraceLevelNone, false, false},
		{"", false, false},
		{TraceLevelEnvelopes, true, false},
		{TraceLevelFields, true, true},
	}
	for _, tt := range tests {
		r := NewRecorder(tt.level)
		if r.Enabled() != tt.enabled {
			t.Errorf("level %q: Enabled() = %v, want %v", tt.level, r.Enabled(), tt.enabled)
		}
		if r.WantFields() != tt.wantFields {
			t.Errorf("level %q: WantFields() = %v, want %v", tt.level, r.WantFields(), tt.wantFields)
		}
	}

	var nilRecorder *Recorder
	if nilRecorder.Enabled() {
		t.Error("nil recorder must be disabled")
	}
}

func TestIsValidTraceLevel(t *testing.T) {
	for _, level := range []string{"", "none", "envelopes", "fields"} {
		if !IsValidTraceLevel(level) {
			t.Errorf("expected %q to be valid", level)
		}
	}
	if IsValidTraceLevel("everything") {
		t.Error("expected unknown level to be invalid")
	}
}
