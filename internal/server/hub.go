package server

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hmaged/voxline/internal/transcript"
	"github.com/hmaged/voxline/internal/viseme"
)

// Hub fans events out to connected WebSocket clients. It implements
// bridge.Notifier so relayed bus events reach every client.
type Hub struct {
	log     zerolog.Logger
	mu      sync.RWMutex
	clients map[chan []byte]struct{}
}

// NewHub creates an empty hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		log:     logger.With().Str("component", "hub").Logger(),
		clients: make(map[chan []byte]struct{}),
	}
}

// Subscribe registers a new client channel.
func (h *Hub) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes a client channel.
func (h *Hub) Unsubscribe(ch chan []byte) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
	close(ch)
}

// Broadcast sends a frame to every client. Slow clients with a full buffer
// drop the frame rather than block the producers.
func (h *Hub) Broadcast(msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.clients {
		select {
		case ch <- msg:
		default:
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) NotifySessionStarted(sessionID string) {
	h.broadcastEvent(SessionStartedEvent{
		Event:     newEvent("session_started", time.Now().UTC()),
		SessionID: sessionID,
	})
}

func (h *Hub) NotifySessionReset(sessionID string) {
	h.broadcastEvent(SessionResetEvent{
		Event:     newEvent("session_reset", time.Now().UTC()),
		SessionID: sessionID,
	})
}

func (h *Hub) NotifyUnitAppended(sessionID string, unit transcript.SpeechUnit) {
	h.broadcastEvent(UnitAppendedEvent{
		Event:     newEvent("unit_appended", unit.ReceivedAt),
		SessionID: sessionID,
		Seq:       unit.Seq,
		Text:      unit.Text,
		StartTime: unit.Start,
		EndTime:   unit.End,
	})
}

func (h *Hub) NotifyHighlightChanged(sessionID string, index int) {
	event := HighlightChangedEvent{
		Event:     newEvent("highlight_changed", time.Now().UTC()),
		SessionID: sessionID,
	}
	if index != transcript.NoHighlight {
		event.Index = &index
	}
	h.broadcastEvent(event)
}

func (h *Hub) NotifyVisemeChanged(shape viseme.Shape, weight float64, target int) {
	h.broadcastEvent(VisemeChangedEvent{
		Event:     newEvent("viseme_changed", time.Now().UTC()),
		Shape:     int(shape),
		ShapeName: shape.String(),
		Weight:    weight,
		Target:    target,
	})
}

func (h *Hub) NotifyAssistantStatus(connected bool) {
	h.broadcastEvent(AssistantStatusEvent{
		Event:     newEvent("assistant_status", time.Now().UTC()),
		Connected: connected,
	})
}

func (h *Hub) broadcastEvent(event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.log.Error().Err(err).Msg("event marshal failed")
		return
	}
	h.Broadcast(payload)
}
