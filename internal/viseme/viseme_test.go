package viseme

import (
	"testing"
	"time"
)

func TestSequenceForText_Digraphs(t *testing.T) {
	shapes := SequenceForText("the")
	if len(shapes) != 2 {
		t.Fatalf("expected 2 shapes for 'the', got %d: %v", len(shapes), shapes)
	}
	if shapes[0] != TH {
		t.Errorf("expected TH first, got %v", shapes[0])
	}
	if shapes[1] != E {
		t.Errorf("expected E second, got %v", shapes[1])
	}
}

func TestSequenceForText_CollapsesDuplicates(t *testing.T) {
	// 'm' and 'b' map to the same bilabial shape.
	shapes := SequenceForText("mb")
	if len(shapes) != 1 || shapes[0] != PP {
		t.Errorf("expected single PP, got %v", shapes)
	}
}

func TestSequenceForText_SkipsNonLetters(t *testing.T) {
	if got := SequenceForText("., !?"); got != nil {
		t.Errorf("expected nil for punctuation, got %v", got)
	}
	if got := SequenceForText(""); got != nil {
		t.Errorf("expected nil for empty text, got %v", got)
	}
}

func TestSequenceForText_CaseInsensitive(t *testing.T) {
	lower := SequenceForText("hello")
	upper := SequenceForText("HELLO")
	if len(lower) != len(upper) {
		t.Fatalf("case changed shape count: %v vs %v", lower, upper)
	}
	for i := range lower {
		if lower[i] != upper[i] {
			t.Errorf("shape %d differs: %v vs %v", i, lower[i], upper[i])
		}
	}
}

func TestFromTimedChars_BracketedBySilence(t *testing.T) {
	tl := FromTimedChars([]TimedChar{
		{Text: "b", Start: 0.0, End: 0.2},
		{Text: "a", Start: 0.2, End: 0.5},
	})

	if len(tl.Events) < 4 {
		t.Fatalf("expected at least 4 events, got %d", len(tl.Events))
	}
	if tl.Events[0].Shape != Sil || tl.Events[0].TimeMs != 0 {
		t.Errorf("timeline must open with silence at 0, got %+v", tl.Events[0])
	}
	last := tl.Events[len(tl.Events)-1]
	if last.Shape != Sil {
		t.Errorf("timeline must close with silence, got %+v", last)
	}
	if last.TimeMs != 550 {
		t.Errorf("expected closing silence at 550ms, got %v", last.TimeMs)
	}
	if tl.DurationMs != 600 {
		t.Errorf("expected duration 600ms, got %v", tl.DurationMs)
	}
}

func TestFromTimedChars_EventTimesFollowWindows(t *testing.T) {
	tl := FromTimedChars([]TimedChar{
		{Text: "m", Start: 1.0, End: 1.5},
	})

	// silence, PP, silence
	if len(tl.Events) != 3 {
		t.Fatalf("expected 3 events, got %d: %+v", len(tl.Events), tl.Events)
	}
	if tl.Events[1].Shape != PP || tl.Events[1].TimeMs != 1000 {
		t.Errorf("expected PP at 1000ms, got %+v", tl.Events[1])
	}
}

func TestFromTimedChars_SkipsDegenerateWindows(t *testing.T) {
	tl := FromTimedChars([]TimedChar{
		{Text: "a", Start: 0.5, End: 0.5},
		{Text: "b", Start: 0.9, End: 0.2},
	})
	if len(tl.Events) != 1 || tl.Events[0].Shape != Sil {
		t.Errorf("expected silence-only timeline, got %+v", tl.Events)
	}
	if tl.DurationMs != 0 {
		t.Errorf("expected zero duration, got %v", tl.DurationMs)
	}
}

func TestFromText_SpreadsAcrossDuration(t *testing.T) {
	tl := FromText("mama", 400*time.Millisecond)

	// m/a alternation survives duplicate collapsing: PP AA PP AA.
	inner := tl.Events[1 : len(tl.Events)-1]
	if len(inner) != 4 {
		t.Fatalf("expected 4 speaking events, got %d", len(inner))
	}
	if inner[0].TimeMs != 0 || inner[1].TimeMs != 100 || inner[3].TimeMs != 300 {
		t.Errorf("uneven spread: %+v", inner)
	}
}

func TestShapeString(t *testing.T) {
	if AA.String() != "aa" {
		t.Errorf("expected aa, got %s", AA.String())
	}
	if Shape(99).String() != "sil" {
		t.Errorf("out-of-range shape should read as sil, got %s", Shape(99).String())
	}
}
