package server

import (
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"

	"github.com/hmaged/voxline/internal/transcript"
	"github.com/hmaged/voxline/internal/viseme"
)

func TestHubBroadcastFanOut(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	ch1 := hub.Subscribe()
	ch2 := hub.Subscribe()
	defer hub.Unsubscribe(ch1)
	defer hub.Unsubscribe(ch2)

	hub.Broadcast([]byte("hello"))

	for i, ch := range []chan []byte{ch1, ch2} {
		select {
		case msg := <-ch:
			if string(msg) != "hello" {
				t.Errorf("client %d got %q", i, msg)
			}
		default:
			t.Errorf("client %d received nothing", i)
		}
	}
}

func TestHubSlowClientDoesNotBlock(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	ch := hub.Subscribe()
	defer hub.Unsubscribe(ch)

	// Fill the buffer past capacity; extra frames are dropped, not blocked on.
	for i := 0; i < 100; i++ {
		hub.Broadcast([]byte("x"))
	}

	if len(ch) != 64 {
		t.Errorf("expected full buffer of 64, got %d", len(ch))
	}
}

func TestHubHighlightClearEncodesNull(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	ch := hub.Subscribe()
	defer hub.Unsubscribe(ch)

	hub.NotifyHighlightChanged("s1", 3)
	hub.NotifyHighlightChanged("s1", transcript.NoHighlight)

	var active HighlightChangedEvent
	if err := json.Unmarshal(<-ch, &active); err != nil {
		t.Fatalf("unmarshal active event: %v", err)
	}
	if active.Type != "highlight_changed" || active.Index == nil || *active.Index != 3 {
		t.Errorf("active event wrong: %+v", active)
	}

	raw := <-ch
	var cleared map[string]any
	if err := json.Unmarshal(raw, &cleared); err != nil {
		t.Fatalf("unmarshal cleared event: %v", err)
	}
	if idx, present := cleared["index"]; !present || idx != nil {
		t.Errorf("cleared highlight must encode index:null, got %s", raw)
	}
}

func TestHubUnitAppendedCarriesTiming(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	ch := hub.Subscribe()
	defer hub.Unsubscribe(ch)

	start, end := 0.5, 0.75
	hub.NotifyUnitAppended("s1", transcript.SpeechUnit{Seq: 7, Text: "a", Start: &start, End: &end})

	var event UnitAppendedEvent
	if err := json.Unmarshal(<-ch, &event); err != nil {
		t.Fatalf("unmarshal unit event: %v", err)
	}
	if event.Seq != 7 || event.Text != "a" {
		t.Errorf("unit fields wrong: %+v", event)
	}
	if event.StartTime == nil || *event.StartTime != 0.5 || event.EndTime == nil || *event.EndTime != 0.75 {
		t.Errorf("timing lost: %+v", event)
	}
	if event.Version != EventVersion {
		t.Errorf("expected version %d, got %d", EventVersion, event.Version)
	}
}

func TestHubVisemeChangedNamesShape(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	ch := hub.Subscribe()
	defer hub.Unsubscribe(ch)

	hub.NotifyVisemeChanged(viseme.PP, 0.8, 4)

	var event VisemeChangedEvent
	if err := json.Unmarshal(<-ch, &event); err != nil {
		t.Fatalf("unmarshal viseme event: %v", err)
	}
	if event.Shape != int(viseme.PP) || event.ShapeName != "PP" {
		t.Errorf("shape fields wrong: %+v", event)
	}
	if event.Target != 4 {
		t.Errorf("expected target 4, got %d", event.Target)
	}
}
