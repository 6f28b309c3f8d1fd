package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/hmaged/voxline/internal/assistant"
	"github.com/hmaged/voxline/internal/storage"
	"github.com/hmaged/voxline/internal/transcript"
	"github.com/hmaged/voxline/internal/viseme"
)

var sessionIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// SessionStore reads persisted sessions for the HTTP API.
type SessionStore interface {
	ListSessions(limit int) ([]storage.Session, error)
	GetUnits(sessionID string) ([]transcript.SpeechUnit, error)
}

// TranscriptSource exposes the live session to the HTTP API.
type TranscriptSource interface {
	Transcript() ([]transcript.SpeechUnit, int)
	SessionID() string
}

// ControlHooks wires API routes to the assistant client and puppet. Any
// hook may be nil; its route answers 503.
type ControlHooks struct {
	StartAssistant     func() error
	StopAssistant      func()
	AssistantRunning   func() bool
	AssistantConnected func() bool

	SetViseme     func(shape viseme.Shape, weight float64) error
	CurrentViseme func() (viseme.Shape, float64)
	PlayTimeline  func(tl *viseme.Timeline)
}

func registerAPIRoutes(mux *http.ServeMux, live TranscriptSource, store SessionStore, controls ControlHooks) {
	mux.HandleFunc("GET /api/transcript", func(w http.ResponseWriter, r *http.Request) {
		units, highlighted := live.Transcript()
		if units == nil {
			units = []transcript.SpeechUnit{}
		}

		var index *int
		if highlighted != transcript.NoHighlight {
			index = &highlighted
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"session_id": live.SessionID(),
			"units":      units,
			"highlight":  index,
		})
	})

	mux.HandleFunc("GET /api/sessions", func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			writeJSONError(w, http.StatusServiceUnavailable, "storage not configured")
			return
		}

		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				writeJSONError(w, http.StatusBadRequest, "invalid limit")
				return
			}
			limit = n
		}

		sessions, err := store.ListSessions(limit)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("list sessions: %v", err))
			return
		}
		if sessions == nil {
			sessions = []storage.Session{}
		}
		writeJSON(w, http.StatusOK, sessions)
	})

	mux.HandleFunc("GET /api/sessions/{id}/units", func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			writeJSONError(w, http.StatusServiceUnavailable, "storage not configured")
			return
		}

		sessionID := r.PathValue("id")
		if !sessionIDPattern.MatchString(sessionID) {
			writeJSONError(w, http.StatusForbidden, "invalid session id")
			return
		}

		units, err := store.GetUnits(sessionID)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("get units: %v", err))
			return
		}
		if units == nil {
			units = []transcript.SpeechUnit{}
		}
		writeJSON(w, http.StatusOK, units)
	})

	mux.HandleFunc("POST /api/assistant/start", func(w http.ResponseWriter, r *http.Request) {
		if controls.StartAssistant == nil {
			writeJSONError(w, http.StatusServiceUnavailable, "assistant not configured")
			return
		}
		if err := controls.StartAssistant(); err != nil {
			if errors.Is(err, assistant.ErrAlreadyRunning) {
				writeJSONError(w, http.StatusConflict, err.Error())
				return
			}
			writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("start assistant: %v", err))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("POST /api/assistant/stop", func(w http.ResponseWriter, r *http.Request) {
		if controls.StopAssistant == nil {
			writeJSONError(w, http.StatusServiceUnavailable, "assistant not configured")
			return
		}
		controls.StopAssistant()
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("GET /api/status", func(w http.ResponseWriter, r *http.Request) {
		running, connected := false, false
		if controls.AssistantRunning != nil {
			running = controls.AssistantRunning()
		}
		if controls.AssistantConnected != nil {
			connected = controls.AssistantConnected()
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"running":   running,
			"connected": connected,
		})
	})

	mux.HandleFunc("GET /api/puppet", func(w http.ResponseWriter, r *http.Request) {
		if controls.CurrentViseme == nil {
			writeJSONError(w, http.StatusServiceUnavailable, "puppet not configured")
			return
		}
		shape, weight := controls.CurrentViseme()
		writeJSON(w, http.StatusOK, map[string]any{
			"shape":      int(shape),
			"shape_name": shape.String(),
			"weight":     weight,
		})
	})

	mux.HandleFunc("POST /api/puppet/viseme", func(w http.ResponseWriter, r *http.Request) {
		if controls.SetViseme == nil {
			writeJSONError(w, http.StatusServiceUnavailable, "puppet not configured")
			return
		}

		var req struct {
			Shape  int     `json:"shape"`
			Weight float64 `json:"weight"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if err := controls.SetViseme(viseme.Shape(req.Shape), req.Weight); err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("POST /api/puppet/say", func(w http.ResponseWriter, r *http.Request) {
		if controls.PlayTimeline == nil {
			writeJSONError(w, http.StatusServiceUnavailable, "puppet not configured")
			return
		}

		var req struct {
			Text       string  `json:"text"`
			DurationMs float64 `json:"duration_ms"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Text == "" || req.DurationMs <= 0 {
			writeJSONError(w, http.StatusBadRequest, "text and duration_ms are required")
			return
		}

		tl := viseme.FromText(req.Text, time.Duration(req.DurationMs)*time.Millisecond)
		if len(tl.Events) <= 1 {
			writeJSONError(w, http.StatusBadRequest, "text has no speakable characters")
			return
		}
		controls.PlayTimeline(tl)
		writeJSON(w, http.StatusOK, tl)
	})

	mux.HandleFunc("POST /api/puppet/timeline", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Chars []viseme.TimedChar `json:"chars"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if len(req.Chars) == 0 {
			writeJSONError(w, http.StatusBadRequest, "chars are required")
			return
		}

		tl := viseme.FromTimedChars(req.Chars)
		if len(tl.Events) <= 1 {
			writeJSONError(w, http.StatusBadRequest, "no usable timing windows")
			return
		}
		writeJSON(w, http.StatusOK, tl)
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
