package server

import "time"

const EventVersion = 1

// Event is the envelope shared by every WebSocket frame.
type Event struct {
	Type      string `json:"type"`
	Version   int    `json:"version"`
	Timestamp string `json:"timestamp"`
}

type SessionStartedEvent struct {
	Event
	SessionID string `json:"session_id"`
}

type SessionResetEvent struct {
	Event
	SessionID string `json:"session_id"`
}

type UnitAppendedEvent struct {
	Event
	SessionID string   `json:"session_id"`
	Seq       int      `json:"seq"`
	Text      string   `json:"text"`
	StartTime *float64 `json:"start_time"`
	EndTime   *float64 `json:"end_time"`
}

// HighlightChangedEvent carries the active unit index, null when the
// highlight cleared.
type HighlightChangedEvent struct {
	Event
	SessionID string `json:"session_id"`
	Index     *int   `json:"index"`
}

type VisemeChangedEvent struct {
	Event
	Shape     int     `json:"shape"`
	ShapeName string  `json:"shape_name"`
	Weight    float64 `json:"weight"`
	Target    int     `json:"target"`
}

type AssistantStatusEvent struct {
	Event
	Connected bool `json:"connected"`
}

type ConnectionEvent struct {
	Event
	Connected bool `json:"connected"`
}

func newEvent(eventType string, now time.Time) Event {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	return Event{
		Type:      eventType,
		Version:   EventVersion,
		Timestamp: now.UTC().Format(time.RFC3339Nano),
	}
}
