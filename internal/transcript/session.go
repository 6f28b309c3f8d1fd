package transcript

import (
	"sync"
	"time"
)

// Session is one playback episode: the units received since the first unit
// arrived, the single active highlight, and the audio-start reference zero
// for every offset in the episode.
//
// The generation counter increments on every reset. Deferred highlight
// actions capture the generation they were scheduled under and become
// no-ops once it changes, so a reset never has to cancel in-flight timers.
type Session struct {
	mu            sync.Mutex
	audioStart    time.Time
	units         []SpeechUnit
	highlighted   int
	lastActivated int
	generation    uint64
}

// NewSession returns an empty session with no highlight.
func NewSession() *Session {
	return &Session{
		highlighted:   NoHighlight,
		lastActivated: NoHighlight,
	}
}

// Append adds a unit to the session and returns it with its sequence index
// assigned. The first append of an episode pins audioStart to now.
func (s *Session) Append(text string, start, end *float64, now time.Time) (SpeechUnit, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	first := len(s.units) == 0
	if first {
		s.audioStart = now
	}

	unit := SpeechUnit{
		Seq:        len(s.units),
		Text:       text,
		Start:      start,
		End:        end,
		ReceivedAt: now,
	}
	s.units = append(s.units, unit)
	return unit, first
}

// Activate marks seq as the highlighted unit. It refuses stale requests:
// a mismatched generation or a seq at or below the newest unit that has
// already activated this episode.
func (s *Session) Activate(generation uint64, seq int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation || seq <= s.lastActivated {
		return false
	}
	s.lastActivated = seq
	s.highlighted = seq
	return true
}

// Deactivate clears the highlight only while it still belongs to seq
// (compare-and-clear). A newer unit having taken the highlight makes the
// call a no-op.
func (s *Session) Deactivate(generation uint64, seq int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation || s.highlighted != seq {
		return false
	}
	s.highlighted = NoHighlight
	return true
}

// Reset atomically clears units, highlight, and audioStart, bumps the
// generation, and returns the units of the finished episode along with
// whether a highlight was active at reset time.
func (s *Session) Reset() ([]SpeechUnit, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	units := s.units
	hadHighlight := s.highlighted != NoHighlight

	s.units = nil
	s.highlighted = NoHighlight
	s.lastActivated = NoHighlight
	s.audioStart = time.Time{}
	s.generation++

	return units, hadHighlight
}

// Snapshot returns a copy of the accumulated units and the currently
// highlighted index (NoHighlight when nothing is active).
func (s *Session) Snapshot() ([]SpeechUnit, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	units := make([]SpeechUnit, len(s.units))
	copy(units, s.units)
	return units, s.highlighted
}

// Highlighted returns the active unit index, or NoHighlight.
func (s *Session) Highlighted() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.highlighted
}

// AudioStart returns the episode's reference zero and whether it is set.
func (s *Session) AudioStart() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.audioStart, !s.audioStart.IsZero()
}

// Generation returns the current reset generation.
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Len returns the number of accumulated units.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.units)
}
