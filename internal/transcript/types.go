// Package transcript owns the utterance session state and the highlight
// scheduler that synchronizes transcript display with audio playback.
package transcript

import "time"

// NoHighlight is the highlighted-index value meaning nothing is active.
const NoHighlight = -1

// SpeechUnit is one discrete chunk of spoken output, a character in the
// demo stream, with an optional timing window relative to audio start.
type SpeechUnit struct {
	Seq        int       `json:"seq"`
	Text       string    `json:"text"`
	Start      *float64  `json:"start_time,omitempty"` // seconds from audio start
	End        *float64  `json:"end_time,omitempty"`   // seconds from audio start
	ReceivedAt time.Time `json:"received_at"`
}

// Timed reports whether the unit arrived with a usable timing window.
func (u SpeechUnit) Timed() bool {
	return u.Start != nil && u.End != nil
}

// Store persists sessions and their units.
type Store interface {
	CreateSession(id string, startedAt time.Time) error
	AppendUnit(sessionID string, u SpeechUnit) error
	EndSession(id string, endedAt time.Time) error
}

// EventBroadcaster pushes transcript state changes to presentation clients.
// HighlightChanged receives NoHighlight when the highlight clears.
type EventBroadcaster interface {
	BroadcastSessionStarted(sessionID string)
	BroadcastSessionReset(sessionID string)
	BroadcastUnitAppended(sessionID string, u SpeechUnit)
	BroadcastHighlightChanged(sessionID string, index int)
}

// VisemeDriver is the puppet-facing side of the scheduler: it is told what
// is being spoken right now so mouth shapes can follow the highlight.
type VisemeDriver interface {
	SpeakUnit(text string, duration time.Duration)
	Silence()
}

// AlignmentSink receives the finished utterance when a session resets.
type AlignmentSink interface {
	SaveUtterance(units []SpeechUnit) error
}
