// Package assistant connects to the external voice-assistant service and
// feeds its character-timing stream into the transcript scheduler.
package assistant

// Message is one data-channel frame from the assistant service. Timing
// fields are optional; a unit may arrive without them.
type Message struct {
	Type      string   `json:"type"`
	Text      string   `json:"text"`
	StartTime *float64 `json:"start_time"`
	EndTime   *float64 `json:"end_time"`
}

// MessageTypeTranscription identifies character-timing frames. Other frame
// types on the channel are ignored.
const MessageTypeTranscription = "transcription"

// UnitSink consumes the speech-unit stream. Reset is invoked before a new
// assistant session starts and after one stops, so no stale highlight
// survives across episodes.
type UnitSink interface {
	Receive(text string, start, end *float64)
	Reset()
}
