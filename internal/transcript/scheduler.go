package transcript

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hmaged/voxline/internal/timing"
)

// Scheduler turns each timed speech unit into an activate/deactivate pair
// of deferred highlight transitions against the session's audio start.
// Malformed timing never fails the stream; the unit simply appears in the
// transcript without ever being highlighted.
type Scheduler struct {
	clock  timing.Clock
	timers *timing.Queue
	log    zerolog.Logger

	session *Session

	store     Store
	hub       EventBroadcaster
	puppet    VisemeDriver
	alignment AlignmentSink

	mu        sync.Mutex
	sessionID string
	startedAt time.Time
}

// SchedulerOptions carries the optional collaborators. Any of them may be
// nil; the scheduler degrades to in-memory highlighting only.
type SchedulerOptions struct {
	Store     Store
	Hub       EventBroadcaster
	Puppet    VisemeDriver
	Alignment AlignmentSink
}

// NewScheduler creates a Scheduler owning a fresh session.
func NewScheduler(clock timing.Clock, timers *timing.Queue, logger zerolog.Logger, opts SchedulerOptions) *Scheduler {
	return &Scheduler{
		clock:     clock,
		timers:    timers,
		log:       logger.With().Str("component", "scheduler").Logger(),
		session:   NewSession(),
		store:     opts.Store,
		hub:       opts.Hub,
		puppet:    opts.Puppet,
		alignment: opts.Alignment,
	}
}

// Receive ingests one speech unit from the assistant stream. It appends the
// unit to the session, persists and broadcasts it, and — when the unit
// carries a usable timing window — schedules its highlight transitions.
func (sch *Scheduler) Receive(text string, start, end *float64) {
	now := sch.clock.Now()
	unit, first := sch.session.Append(text, start, end, now)

	if first {
		sch.beginEpisode(now)
	}

	sessionID := sch.currentSessionID()
	if sch.store != nil {
		if err := sch.store.AppendUnit(sessionID, unit); err != nil {
			sch.log.Error().Err(err).Int("seq", unit.Seq).Msg("append unit failed")
		}
	}
	if sch.hub != nil {
		sch.hub.BroadcastUnitAppended(sessionID, unit)
	}

	if !unit.Timed() {
		sch.log.Debug().Int("seq", unit.Seq).Msg("unit arrived without timing, not highlighting")
		return
	}
	if *unit.End <= *unit.Start {
		sch.log.Debug().
			Int("seq", unit.Seq).
			Float64("start", *unit.Start).
			Float64("end", *unit.End).
			Msg("degenerate timing window, not highlighting")
		return
	}

	sch.scheduleHighlight(unit, now)
}

// scheduleHighlight applies the timing algorithm for one unit.
func (sch *Scheduler) scheduleHighlight(unit SpeechUnit, now time.Time) {
	audioStart, ok := sch.session.AudioStart()
	if !ok {
		return
	}

	nowElapsed := now.Sub(audioStart)
	unitStart := secondsToDuration(*unit.Start)
	unitEnd := secondsToDuration(*unit.End)
	duration := unitEnd - unitStart
	delay := unitStart - nowElapsed

	generation := sch.session.Generation()

	switch {
	case delay > 0:
		// Speech for this unit has not started yet.
		sch.timers.ScheduleAfter(delay, sch.activateAction(generation, unit, duration))
		sch.timers.ScheduleAfter(delay+duration, sch.deactivateAction(generation, unit.Seq))

	case nowElapsed < unitEnd:
		// We are behind real time but still inside the speaking window.
		remaining := unitEnd - nowElapsed
		sch.timers.ScheduleAfter(0, sch.activateAction(generation, unit, remaining))
		sch.timers.ScheduleAfter(remaining, sch.deactivateAction(generation, unit.Seq))

	default:
		// Window fully elapsed before we got here; the unit stays in the
		// transcript but is never highlighted.
		sch.log.Debug().
			Int("seq", unit.Seq).
			Dur("elapsed", nowElapsed).
			Dur("unit_end", unitEnd).
			Msg("unit window already elapsed, skipping highlight")
	}
}

func (sch *Scheduler) activateAction(generation uint64, unit SpeechUnit, duration time.Duration) func() {
	return func() {
		if !sch.session.Activate(generation, unit.Seq) {
			return
		}
		if sch.hub != nil {
			sch.hub.BroadcastHighlightChanged(sch.currentSessionID(), unit.Seq)
		}
		if sch.puppet != nil {
			sch.puppet.SpeakUnit(unit.Text, duration)
		}
	}
}

func (sch *Scheduler) deactivateAction(generation uint64, seq int) func() {
	return func() {
		if !sch.session.Deactivate(generation, seq) {
			return
		}
		if sch.hub != nil {
			sch.hub.BroadcastHighlightChanged(sch.currentSessionID(), NoHighlight)
		}
		if sch.puppet != nil {
			sch.puppet.Silence()
		}
	}
}

// Reset ends the current episode: it clears the session atomically, flushes
// the finished utterance to the alignment sink, and closes the stored
// session. Pending highlight timers become no-ops via the generation bump.
func (sch *Scheduler) Reset() {
	units, hadHighlight := sch.session.Reset()

	sch.mu.Lock()
	sessionID := sch.sessionID
	sch.sessionID = ""
	sch.mu.Unlock()

	if sessionID == "" {
		return
	}

	if hadHighlight && sch.hub != nil {
		sch.hub.BroadcastHighlightChanged(sessionID, NoHighlight)
	}
	if sch.puppet != nil {
		sch.puppet.Silence()
	}

	if len(units) > 0 && sch.alignment != nil {
		if err := sch.alignment.SaveUtterance(units); err != nil {
			sch.log.Error().Err(err).Str("session", sessionID).Msg("save alignment failed")
		}
	}
	if sch.store != nil {
		if err := sch.store.EndSession(sessionID, sch.clock.Now()); err != nil {
			sch.log.Error().Err(err).Str("session", sessionID).Msg("end session failed")
		}
	}
	if sch.hub != nil {
		sch.hub.BroadcastSessionReset(sessionID)
	}

	sch.log.Info().Str("session", sessionID).Int("units", len(units)).Msg("session reset")
}

// Transcript returns the accumulated units and the active highlight index.
func (sch *Scheduler) Transcript() ([]SpeechUnit, int) {
	return sch.session.Snapshot()
}

// SessionID returns the current episode's identifier, empty between
// episodes.
func (sch *Scheduler) SessionID() string {
	return sch.currentSessionID()
}

func (sch *Scheduler) beginEpisode(now time.Time) {
	sch.mu.Lock()
	id := now.UTC().Format("20060102150405")
	if !sch.startedAt.IsZero() && sch.startedAt.UTC().Format("20060102150405") == id {
		id = fmt.Sprintf("%s-%d", id, now.UnixNano()%1000)
	}
	sch.sessionID = id
	sch.startedAt = now
	sch.mu.Unlock()

	if sch.store != nil {
		if err := sch.store.CreateSession(id, now.UTC()); err != nil {
			sch.log.Error().Err(err).Str("session", id).Msg("create session failed")
		}
	}
	if sch.hub != nil {
		sch.hub.BroadcastSessionStarted(id)
	}
	sch.log.Info().Str("session", id).Msg("session started")
}

func (sch *Scheduler) currentSessionID() string {
	sch.mu.Lock()
	defer sch.mu.Unlock()
	return sch.sessionID
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
