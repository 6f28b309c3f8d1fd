// Package bridge connects producers to presentation clients through the
// event bus: the scheduler and puppet publish on one side, the relay
// forwards to the WebSocket hub on the other.
package bridge

import (
	"github.com/hmaged/voxline/internal/bus"
	"github.com/hmaged/voxline/internal/puppet"
	"github.com/hmaged/voxline/internal/transcript"
)

// Broadcaster publishes transcript events onto the bus. Implements
// transcript.EventBroadcaster.
type Broadcaster struct {
	bus *bus.EventBus
}

// NewBroadcaster creates a Broadcaster over the given bus.
func NewBroadcaster(eventBus *bus.EventBus) *Broadcaster {
	return &Broadcaster{bus: eventBus}
}

// BroadcastSessionStarted announces a new playback episode.
func (b *Broadcaster) BroadcastSessionStarted(sessionID string) {
	b.bus.PublishSync(bus.Event{
		Type: bus.EventTypeSessionStarted,
		Data: map[string]any{"session_id": sessionID},
	})
}

// BroadcastSessionReset announces the end of an episode.
func (b *Broadcaster) BroadcastSessionReset(sessionID string) {
	b.bus.PublishSync(bus.Event{
		Type: bus.EventTypeSessionReset,
		Data: map[string]any{"session_id": sessionID},
	})
}

// BroadcastUnitAppended announces a newly received speech unit.
func (b *Broadcaster) BroadcastUnitAppended(sessionID string, unit transcript.SpeechUnit) {
	b.bus.PublishSync(bus.Event{
		Type: bus.EventTypeUnitAppended,
		Data: map[string]any{"session_id": sessionID, "unit": unit},
	})
}

// BroadcastHighlightChanged announces a highlight transition. The index is
// transcript.NoHighlight when the highlight cleared.
func (b *Broadcaster) BroadcastHighlightChanged(sessionID string, index int) {
	b.bus.PublishSync(bus.Event{
		Type: bus.EventTypeHighlightChanged,
		Data: map[string]any{"session_id": sessionID, "index": index},
	})
}

// WirePuppet publishes every puppet mouth update onto the bus.
func WirePuppet(eventBus *bus.EventBus, controller *puppet.Controller) {
	controller.OnChange(func(c puppet.Change) {
		eventBus.PublishSync(bus.Event{
			Type: bus.EventTypeVisemeChanged,
			Data: map[string]any{
				"shape":  c.Shape,
				"weight": c.Weight,
				"target": c.Target,
			},
		})
	})
}

// PublishAssistantStatus puts assistant connection transitions on the bus.
func PublishAssistantStatus(eventBus *bus.EventBus, connected bool) {
	eventType := bus.EventTypeAssistantDisconnected
	if connected {
		eventType = bus.EventTypeAssistantConnected
	}
	eventBus.Publish(bus.Event{Type: eventType, Data: map[string]any{"connected": connected}})
}
