package transcript

import (
	"testing"
	"time"
)

func floatPtr(f float64) *float64 { return &f }

func TestSession_AppendAssignsContiguousSeq(t *testing.T) {
	s := NewSession()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		unit, first := s.Append("x", nil, nil, now.Add(time.Duration(i)*time.Millisecond))
		if unit.Seq != i {
			t.Errorf("unit %d: got seq %d", i, unit.Seq)
		}
		if first != (i == 0) {
			t.Errorf("unit %d: first=%v", i, first)
		}
	}

	units, _ := s.Snapshot()
	for i := 1; i < len(units); i++ {
		if units[i].Seq != units[i-1].Seq+1 {
			t.Errorf("seq not strictly increasing at %d", i)
		}
	}
}

func TestSession_FirstAppendPinsAudioStart(t *testing.T) {
	s := NewSession()
	first := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if _, ok := s.AudioStart(); ok {
		t.Fatal("audio start set before first unit")
	}

	s.Append("a", nil, nil, first)
	start, ok := s.AudioStart()
	if !ok || !start.Equal(first) {
		t.Fatalf("expected audio start %v, got %v (ok=%v)", first, start, ok)
	}

	// Later units must not move the reference zero.
	s.Append("b", nil, nil, first.Add(time.Second))
	start, _ = s.AudioStart()
	if !start.Equal(first) {
		t.Errorf("audio start moved to %v", start)
	}
}

func TestSession_ActivateRejectsStaleSeq(t *testing.T) {
	s := NewSession()
	gen := s.Generation()

	if !s.Activate(gen, 2) {
		t.Fatal("expected activation of seq 2")
	}
	if s.Activate(gen, 1) {
		t.Error("activation of older seq must be rejected")
	}
	if s.Activate(gen, 2) {
		t.Error("repeat activation of same seq must be rejected")
	}
	if s.Highlighted() != 2 {
		t.Errorf("expected highlight 2, got %d", s.Highlighted())
	}
}

func TestSession_DeactivateIsCompareAndClear(t *testing.T) {
	s := NewSession()
	gen := s.Generation()

	s.Activate(gen, 0)
	s.Activate(gen, 1) // newer unit takes the highlight

	if s.Deactivate(gen, 0) {
		t.Error("stale deactivation cleared a newer highlight")
	}
	if s.Highlighted() != 1 {
		t.Errorf("expected highlight 1, got %d", s.Highlighted())
	}

	if !s.Deactivate(gen, 1) {
		t.Error("matching deactivation should clear")
	}
	if s.Highlighted() != NoHighlight {
		t.Errorf("expected no highlight, got %d", s.Highlighted())
	}
}

func TestSession_ResetClearsEverything(t *testing.T) {
	s := NewSession()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	s.Append("a", floatPtr(0), floatPtr(0.1), now)
	s.Append("b", floatPtr(0.1), floatPtr(0.2), now)
	s.Activate(s.Generation(), 0)

	units, hadHighlight := s.Reset()
	if len(units) != 2 {
		t.Errorf("expected 2 units from reset, got %d", len(units))
	}
	if !hadHighlight {
		t.Error("expected reset to report an active highlight")
	}

	if s.Len() != 0 {
		t.Errorf("units not cleared, len=%d", s.Len())
	}
	if s.Highlighted() != NoHighlight {
		t.Errorf("highlight not cleared, got %d", s.Highlighted())
	}
	if _, ok := s.AudioStart(); ok {
		t.Error("audio start not cleared")
	}
}

func TestSession_GenerationGuardsAcrossReset(t *testing.T) {
	s := NewSession()
	stale := s.Generation()
	s.Reset()

	if s.Activate(stale, 0) {
		t.Error("activation from a previous generation must be rejected")
	}
	if s.Deactivate(stale, 0) {
		t.Error("deactivation from a previous generation must be rejected")
	}
	if !s.Activate(s.Generation(), 0) {
		t.Error("current-generation activation should succeed")
	}
}
