/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/friendsincode/grimnir_reels/internal/content"
	"github.com/friendsincode/grimnir_reels/internal/eventbus"
	"github.com/friendsincode/grimnir_reels/internal/models"
	"github.com/friendsincode/grimnir_reels/internal/session"
)

// API exposes playback sessions over HTTP for remote presentation layers.
type API struct {
	manager *session.Manager
	bus     eventbus.Bus
	logger  zerolog.Logger

	startMuted bool
}

// New creates the API router wrapper.
func New(manager *session.Manager, bus eventbus.Bus, logger zerolog.Logger) *API {
	return &API{
		manager: manager,
		bus:     bus,
		logger:  logger.With().Str("component", "api").Logger(),

		startMuted: true,
	}
}

// SetStartMuted sets the mute state of sessions opened without an explicit
// muted field.
func (a *API) SetStartMuted(muted bool) {
	a.startMuted = muted
}

// Session commands accepted on /sessions/{id}/{action}.
var sessionActions = []string{
	"activate", "advance", "retreat", "pause", "resume", "mute", "volume",
	"key", "tap", "hold", "retry", "visibility", "scroll",
}

// Item reports and engagement accepted on /sessions/{id}/items/{itemID}/{action}.
var itemActions = []string{
	"loaded", "error", "rejected", "buffering", "ended", "like", "comment", "share",
}

// Routes mounts API routes on provided router.
func (a *API) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", a.handleHealth)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", a.handleSessionOpen)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", a.handleSessionGet)
				r.Delete("/", a.handleSessionClose)
				r.Get("/ws", a.handleSessionWS)

				for _, action := range sessionActions {
					r.Post("/"+action, a.handleSessionCommand(action))
				}
				r.Route("/items/{itemID}", func(r chi.Router) {
					for _, action := range itemActions {
						r.Post("/"+action, a.handleItemCommand(action))
					}
				})
			})
		})
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": a.manager.Count(),
	})
}

func sessionErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return http.StatusNotFound, "session_not_found"
	case errors.Is(err, content.ErrCollectionNotFound), errors.Is(err, session.ErrEmptyQueue):
		return http.StatusNotFound, "collection_not_found"
	case errors.Is(err, session.ErrInvalidSurface):
		return http.StatusBadRequest, "invalid_surface"
	case errors.Is(err, models.ErrInvalidMediaItem), errors.Is(err, session.ErrDuplicateItem):
		return http.StatusUnprocessableEntity, "invalid_queue"
	case errors.Is(err, errInvalidCommand):
		return http.StatusBadRequest, "invalid_command"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
