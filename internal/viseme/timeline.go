package viseme

import "time"

// Event is a single viseme change at a point on a playback timeline.
type Event struct {
	Shape  Shape   `json:"visemeId"`
	TimeMs float64 `json:"time"`   // milliseconds from timeline start
	Weight float64 `json:"weight"` // intensity 0-1
}

// Timeline is a complete lip-sync animation for one utterance.
type Timeline struct {
	Events     []Event `json:"events"`
	DurationMs float64 `json:"duration"`
}

// TimedChar is one character with its speaking window in seconds from
// audio start, the shape the assistant stream delivers.
type TimedChar struct {
	Text  string  `json:"text"`
	Start float64 `json:"start_time"`
	End   float64 `json:"end_time"`
}

const (
	defaultWeight = 0.8
	// trailing silence padding after the last viseme, in milliseconds
	tailSilenceMs = 50
)

// FromTimedChars builds a timeline from character-level speech timing.
// Characters without a positive window and characters that map to no
// viseme are skipped; the timeline is bracketed by silence.
func FromTimedChars(chars []TimedChar) *Timeline {
	if len(chars) == 0 {
		return emptyTimeline()
	}

	events := []Event{{Shape: Sil, TimeMs: 0, Weight: 1.0}}
	var maxEndMs float64

	for _, c := range chars {
		startMs := c.Start * 1000
		endMs := c.End * 1000
		if endMs <= startMs {
			continue
		}
		if endMs > maxEndMs {
			maxEndMs = endMs
		}

		shapes := SequenceForText(c.Text)
		if len(shapes) == 0 {
			continue
		}

		step := (endMs - startMs) / float64(len(shapes))
		for i, shape := range shapes {
			events = append(events, Event{
				Shape:  shape,
				TimeMs: startMs + float64(i)*step,
				Weight: defaultWeight,
			})
		}
	}

	if len(events) == 1 {
		return emptyTimeline()
	}

	events = append(events, Event{Shape: Sil, TimeMs: maxEndMs + tailSilenceMs, Weight: 1.0})
	return &Timeline{
		Events:     events,
		DurationMs: maxEndMs + 2*tailSilenceMs,
	}
}

// FromText builds an estimated timeline when per-character timing is
// absent, spreading the text's viseme sequence evenly across duration.
func FromText(text string, duration time.Duration) *Timeline {
	shapes := SequenceForText(text)
	if len(shapes) == 0 || duration <= 0 {
		return emptyTimeline()
	}

	totalMs := float64(duration.Milliseconds())
	step := totalMs / float64(len(shapes))

	events := make([]Event, 0, len(shapes)+2)
	events = append(events, Event{Shape: Sil, TimeMs: 0, Weight: 1.0})
	for i, shape := range shapes {
		events = append(events, Event{
			Shape:  shape,
			TimeMs: float64(i) * step,
			Weight: defaultWeight,
		})
	}
	events = append(events, Event{Shape: Sil, TimeMs: totalMs, Weight: 1.0})

	return &Timeline{Events: events, DurationMs: totalMs + tailSilenceMs}
}

func emptyTimeline() *Timeline {
	return &Timeline{
		Events:     []Event{{Shape: Sil, TimeMs: 0, Weight: 1.0}},
		DurationMs: 0,
	}
}
