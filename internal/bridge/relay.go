package bridge

import (
	"github.com/rs/zerolog"

	"github.com/hmaged/voxline/internal/bus"
	"github.com/hmaged/voxline/internal/transcript"
	"github.com/hmaged/voxline/internal/viseme"
)

// Notifier receives decoded bus events for delivery to clients. The
// WebSocket hub implements it.
type Notifier interface {
	NotifySessionStarted(sessionID string)
	NotifySessionReset(sessionID string)
	NotifyUnitAppended(sessionID string, unit transcript.SpeechUnit)
	NotifyHighlightChanged(sessionID string, index int)
	NotifyVisemeChanged(shape viseme.Shape, weight float64, target int)
	NotifyAssistantStatus(connected bool)
}

// Relay subscribes to the bus and forwards events to a Notifier.
type Relay struct {
	sink Notifier
	log  zerolog.Logger
}

// NewRelay creates a Relay targeting the given sink.
func NewRelay(sink Notifier, logger zerolog.Logger) *Relay {
	return &Relay{
		sink: sink,
		log:  logger.With().Str("component", "bridge").Logger(),
	}
}

// Bind subscribes the relay to all presentation-relevant bus events.
func (r *Relay) Bind(eventBus *bus.EventBus) {
	eventBus.Subscribe(bus.EventTypeSessionStarted, func(e bus.Event) {
		if id, ok := e.Data["session_id"].(string); ok {
			r.sink.NotifySessionStarted(id)
		}
	})

	eventBus.Subscribe(bus.EventTypeSessionReset, func(e bus.Event) {
		if id, ok := e.Data["session_id"].(string); ok {
			r.sink.NotifySessionReset(id)
		}
	})

	eventBus.Subscribe(bus.EventTypeUnitAppended, func(e bus.Event) {
		id, ok := e.Data["session_id"].(string)
		if !ok {
			r.log.Warn().Msg("unit event without session id")
			return
		}
		unit, ok := e.Data["unit"].(transcript.SpeechUnit)
		if !ok {
			r.log.Warn().Msg("unit event without unit payload")
			return
		}
		r.sink.NotifyUnitAppended(id, unit)
	})

	eventBus.Subscribe(bus.EventTypeHighlightChanged, func(e bus.Event) {
		id, ok := e.Data["session_id"].(string)
		if !ok {
			return
		}
		index, ok := e.Data["index"].(int)
		if !ok {
			return
		}
		r.sink.NotifyHighlightChanged(id, index)
	})

	eventBus.Subscribe(bus.EventTypeVisemeChanged, func(e bus.Event) {
		shape, ok := e.Data["shape"].(viseme.Shape)
		if !ok {
			return
		}
		weight, _ := e.Data["weight"].(float64)
		target, ok := e.Data["target"].(int)
		if !ok {
			target = -1
		}
		r.sink.NotifyVisemeChanged(shape, weight, target)
	})

	eventBus.SubscribeMultiple([]bus.EventType{
		bus.EventTypeAssistantConnected,
		bus.EventTypeAssistantDisconnected,
	}, func(e bus.Event) {
		connected, _ := e.Data["connected"].(bool)
		r.sink.NotifyAssistantStatus(connected)
	})
}
