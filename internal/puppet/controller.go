// Package puppet drives the facial-animation puppet: a single current
// viseme that can be set manually or follow the timed speech stream.
package puppet

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hmaged/voxline/internal/timing"
	"github.com/hmaged/voxline/internal/viseme"
)

// Change is one observable puppet mouth update.
type Change struct {
	Shape  viseme.Shape
	Weight float64
	// Target is the morph-target index for the shape, -1 when no model
	// is attached.
	Target int
}

// Controller holds the puppet's current viseme. Timed changes queued from
// the speech stream are guarded by a generation counter: any manual Set,
// Silence, or newer unit invalidates whatever was still pending.
type Controller struct {
	clock  timing.Clock
	timers *timing.Queue
	log    zerolog.Logger

	mu       sync.Mutex
	current  viseme.Shape
	weight   float64
	gen      uint64
	model    *Model
	onChange func(Change)
}

// NewController returns a Controller resting at silence.
func NewController(clock timing.Clock, timers *timing.Queue, logger zerolog.Logger) *Controller {
	return &Controller{
		clock:   clock,
		timers:  timers,
		log:     logger.With().Str("component", "puppet").Logger(),
		current: viseme.Sil,
	}
}

// AttachModel associates a loaded puppet model so changes carry morph
// target indices.
func (c *Controller) AttachModel(m *Model) {
	c.mu.Lock()
	c.model = m
	c.mu.Unlock()
}

// OnChange registers the callback invoked on every mouth update.
func (c *Controller) OnChange(fn func(Change)) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// Set drives the puppet manually, overriding any stream-driven playback.
func (c *Controller) Set(shape viseme.Shape, weight float64) error {
	if !shape.Valid() {
		return fmt.Errorf("viseme %d out of range", shape)
	}
	if weight < 0 || weight > 1 {
		return fmt.Errorf("weight %v out of range", weight)
	}

	c.mu.Lock()
	c.gen++
	c.mu.Unlock()

	c.apply(shape, weight)
	return nil
}

// SpeakUnit plays the viseme sequence for one spoken unit across its
// duration. Called by the highlight scheduler at activation time.
func (c *Controller) SpeakUnit(text string, duration time.Duration) {
	shapes := viseme.SequenceForText(text)
	if len(shapes) == 0 || duration <= 0 {
		return
	}

	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	step := duration / time.Duration(len(shapes))
	for i, shape := range shapes {
		shape := shape
		c.timers.ScheduleAfter(time.Duration(i)*step, func() {
			if !c.genMatches(gen) {
				return
			}
			c.apply(shape, defaultStreamWeight)
		})
	}
}

// Play schedules a full lip-sync timeline from now, for manual playback of
// a generated animation.
func (c *Controller) Play(tl *viseme.Timeline) {
	if tl == nil || len(tl.Events) == 0 {
		return
	}

	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	for _, ev := range tl.Events {
		ev := ev
		c.timers.ScheduleAfter(time.Duration(ev.TimeMs)*time.Millisecond, func() {
			if !c.genMatches(gen) {
				return
			}
			c.apply(ev.Shape, ev.Weight)
		})
	}
}

// Silence returns the mouth to rest and invalidates pending changes.
func (c *Controller) Silence() {
	c.mu.Lock()
	c.gen++
	c.mu.Unlock()
	c.apply(viseme.Sil, 1.0)
}

// Current returns the active viseme and weight.
func (c *Controller) Current() (viseme.Shape, float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current, c.weight
}

const defaultStreamWeight = 0.8

func (c *Controller) genMatches(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gen == c.gen
}

func (c *Controller) apply(shape viseme.Shape, weight float64) {
	c.mu.Lock()
	c.current = shape
	c.weight = weight
	fn := c.onChange
	target := -1
	if c.model != nil {
		target = c.model.TargetIndex(shape)
	}
	c.mu.Unlock()

	if fn != nil {
		fn(Change{Shape: shape, Weight: weight, Target: target})
	}
}
