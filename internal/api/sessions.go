/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/friendsincode/grimnir_reels/internal/models"
	"github.com/friendsincode/grimnir_reels/internal/player"
	"github.com/friendsincode/grimnir_reels/internal/session"
)

var errInvalidCommand = errors.New("invalid command")

type openSessionRequest struct {
	CollectionID string `json:"collection_id"`
	Surface      string `json:"surface"`
	InitialIndex int    `json:"initial_index"`
	Muted        *bool  `json:"muted"`
	Limit        int    `json:"limit"`
}

type commandResponse struct {
	Changed  bool             `json:"changed"`
	Snapshot session.Snapshot `json:"snapshot"`
}

// command is one session operation, from a REST route or a websocket frame.
type command struct {
	Action string          `json:"action"`
	ItemID string          `json:"item_id,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

func (a *API) handleSessionOpen(w http.ResponseWriter, r *http.Request) {
	var req openSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.CollectionID == "" {
		writeError(w, http.StatusBadRequest, "collection_id_required")
		return
	}

	surface := models.SurfaceStory
	if req.Surface != "" {
		surface = models.Surface(req.Surface)
	}
	muted := a.startMuted
	if req.Muted != nil {
		muted = *req.Muted
	}

	s, err := a.manager.Open(r.Context(), session.OpenRequest{
		CollectionID: req.CollectionID,
		Limit:        req.Limit,
		Surface:      surface,
		InitialIndex: req.InitialIndex,
		Muted:        muted,
		Elements:     a.remoteElements,
	})
	if err != nil {
		status, code := sessionErrorStatus(err)
		if status >= http.StatusInternalServerError {
			a.logger.Error().Err(err).Str("collection_id", req.CollectionID).Msg("open session failed")
		}
		writeError(w, status, code)
		return
	}

	writeJSON(w, http.StatusCreated, s.Snapshot())
}

func (a *API) handleSessionGet(w http.ResponseWriter, r *http.Request) {
	s, err := a.manager.Get(chi.URLParam(r, "id"))
	if err != nil {
		status, code := sessionErrorStatus(err)
		writeError(w, status, code)
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

func (a *API) handleSessionClose(w http.ResponseWriter, r *http.Request) {
	if err := a.manager.Close(chi.URLParam(r, "id")); err != nil {
		status, code := sessionErrorStatus(err)
		writeError(w, status, code)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleSessionCommand(action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.runCommand(w, r, command{Action: action})
	}
}

func (a *API) handleItemCommand(action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.runCommand(w, r, command{Action: action, ItemID: chi.URLParam(r, "itemID")})
	}
}

func (a *API) runCommand(w http.ResponseWriter, r *http.Request, cmd command) {
	s, err := a.manager.Get(chi.URLParam(r, "id"))
	if err != nil {
		status, code := sessionErrorStatus(err)
		writeError(w, status, code)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 64<<10))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	if len(body) > 0 {
		cmd.Data = body
	}

	changed, err := dispatch(s, cmd)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_command")
		return
	}
	writeJSON(w, http.StatusOK, commandResponse{Changed: changed, Snapshot: s.Snapshot()})
}

type indexData struct {
	Index int `json:"index"`
}

type muteData struct {
	Muted *bool `json:"muted"`
}

type volumeData struct {
	Level float64 `json:"level"`
}

type keyData struct {
	Key string `json:"key"`
}

type tapData struct {
	X float64 `json:"x"`
}

type phaseData struct {
	Phase string `json:"phase"`
}

type visibilityData struct {
	Index int     `json:"index"`
	Ratio float64 `json:"ratio"`
}

type loadedData struct {
	DurationMS int64 `json:"duration_ms"`
	Width      int   `json:"width"`
	Height     int   `json:"height"`
}

type errorData struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type bufferingData struct {
	Buffering bool `json:"buffering"`
}

type commentData struct {
	Text string `json:"text"`
}

func decodeData(raw json.RawMessage, dest any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("%w: %v", errInvalidCommand, err)
	}
	return nil
}

// dispatch applies cmd to s and reports whether the session changed.
func dispatch(s *session.Session, cmd command) (bool, error) {
	switch cmd.Action {
	case "activate":
		var d indexData
		if err := decodeData(cmd.Data, &d); err != nil {
			return false, err
		}
		return s.RequestActivate(d.Index), nil
	case "advance":
		return s.Advance(), nil
	case "retreat":
		return s.Retreat(), nil
	case "pause":
		return s.Pause(), nil
	case "resume":
		return s.Resume(), nil
	case "mute":
		var d muteData
		if err := decodeData(cmd.Data, &d); err != nil {
			return false, err
		}
		if d.Muted == nil {
			// ToggleMute returns the new flag; the snapshot carries it.
			if s.State() != models.SessionActive {
				return false, nil
			}
			s.ToggleMute()
			return true, nil
		}
		return s.SetMuted(*d.Muted), nil
	case "volume":
		var d volumeData
		if err := decodeData(cmd.Data, &d); err != nil {
			return false, err
		}
		return s.SetVolume(d.Level), nil
	case "key":
		var d keyData
		if err := decodeData(cmd.Data, &d); err != nil {
			return false, err
		}
		return s.HandleKey(d.Key), nil
	case "tap":
		var d tapData
		if err := decodeData(cmd.Data, &d); err != nil {
			return false, err
		}
		return s.Tap(d.X), nil
	case "hold":
		var d phaseData
		if err := decodeData(cmd.Data, &d); err != nil {
			return false, err
		}
		switch d.Phase {
		case "start":
			return s.HoldStart(), nil
		case "end":
			return s.HoldEnd(), nil
		}
		return false, fmt.Errorf("%w: hold phase %q", errInvalidCommand, d.Phase)
	case "retry":
		d := indexData{Index: s.ActiveIndex()}
		if err := decodeData(cmd.Data, &d); err != nil {
			return false, err
		}
		return s.Retry(d.Index), nil
	case "visibility":
		var d visibilityData
		if err := decodeData(cmd.Data, &d); err != nil {
			return false, err
		}
		return s.ReportVisibility(d.Index, d.Ratio), nil
	case "scroll":
		d := phaseData{Phase: "event"}
		if err := decodeData(cmd.Data, &d); err != nil {
			return false, err
		}
		switch d.Phase {
		case "start":
			return s.ScrollStart(), nil
		case "event":
			return s.ScrollEvent(), nil
		}
		return false, fmt.Errorf("%w: scroll phase %q", errInvalidCommand, d.Phase)
	}

	if cmd.ItemID == "" {
		return false, fmt.Errorf("%w: unknown action %q", errInvalidCommand, cmd.Action)
	}

	switch cmd.Action {
	case "loaded":
		var d loadedData
		if err := decodeData(cmd.Data, &d); err != nil {
			return false, err
		}
		return s.ReportLoaded(cmd.ItemID, time.Duration(d.DurationMS)*time.Millisecond, d.Width, d.Height), nil
	case "error":
		var d errorData
		if err := decodeData(cmd.Data, &d); err != nil {
			return false, err
		}
		return s.ReportError(cmd.ItemID, elementError(d)), nil
	case "rejected":
		return s.ReportPlaybackRejected(cmd.ItemID), nil
	case "buffering":
		d := bufferingData{Buffering: true}
		if err := decodeData(cmd.Data, &d); err != nil {
			return false, err
		}
		return s.ReportBuffering(cmd.ItemID, d.Buffering), nil
	case "ended":
		return s.ReportEnded(cmd.ItemID), nil
	case "like":
		return s.Like(cmd.ItemID), nil
	case "comment":
		var d commentData
		if err := decodeData(cmd.Data, &d); err != nil {
			return false, err
		}
		return s.Comment(cmd.ItemID, d.Text), nil
	case "share":
		return s.Share(cmd.ItemID), nil
	}
	return false, fmt.Errorf("%w: unknown action %q", errInvalidCommand, cmd.Action)
}

func elementError(d errorData) error {
	msg := d.Message
	if msg == "" {
		msg = "reported by element"
	}
	if d.Kind == "load" {
		return fmt.Errorf("%w: %s", player.ErrLoad, msg)
	}
	return errors.New(msg)
}
