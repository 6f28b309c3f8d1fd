// Package server is the presentation boundary: a WebSocket event stream
// for live highlight and viseme updates plus a small JSON API over the
// session history and controls.
package server

import (
	"net/http"

	"github.com/rs/zerolog"
)

// Handler assembles the full HTTP surface.
func Handler(hub *Hub, live TranscriptSource, store SessionStore, controls ControlHooks, logger zerolog.Logger) http.Handler {
	mux := http.NewServeMux()
	registerWSRoute(mux, hub, logger)
	registerAPIRoutes(mux, live, store, controls)
	return mux
}
