/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"context"
	"time"

	"github.com/friendsincode/grimnir_reels/internal/events"
	"github.com/friendsincode/grimnir_reels/internal/models"
	"github.com/friendsincode/grimnir_reels/internal/player"
)

// remoteElement drives a media element that lives in a client. Commands are
// published as element.command events and delivered over the session
// websocket. Play always succeeds here; the client reports autoplay refusals
// through the rejected route.
type remoteElement struct {
	pub       events.Publisher
	sessionID string
	index     int
	itemID    string
}

func (a *API) remoteElements(sessionID string, index int, item models.MediaItem) player.Element {
	return &remoteElement{pub: a.bus, sessionID: sessionID, index: index, itemID: item.ID}
}

func (e *remoteElement) send(action string, extra events.Payload) {
	payload := events.Payload{
		"session_id": e.sessionID,
		"index":      e.index,
		"item_id":    e.itemID,
		"action":     action,
	}
	for k, v := range extra {
		payload[k] = v
	}
	e.pub.Publish(events.EventElementCommand, payload)
}

func (e *remoteElement) Play(context.Context) error {
	e.send("play", nil)
	return nil
}

func (e *remoteElement) Pause() { e.send("pause", nil) }

func (e *remoteElement) Seek(pos time.Duration) {
	e.send("seek", events.Payload{"position_ms": pos.Milliseconds()})
}

func (e *remoteElement) SetMuted(muted bool) {
	e.send("mute", events.Payload{"muted": muted})
}

func (e *remoteElement) SetVolume(level float64) {
	e.send("volume", events.Payload{"level": level})
}
