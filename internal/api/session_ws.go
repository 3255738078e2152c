/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	ws "nhooyr.io/websocket"

	"github.com/friendsincode/grimnir_reels/internal/events"
	"github.com/friendsincode/grimnir_reels/internal/telemetry"
)

// wsMessage is one server to client frame.
type wsMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"session_id,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

type sessionEvent struct {
	eventType events.EventType
	payload   events.Payload
}

// handleSessionWS streams session events and element commands to the client
// and accepts the same commands as the REST routes.
func (a *API) handleSessionWS(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	s, err := a.manager.Get(sessionID)
	if err != nil {
		status, code := sessionErrorStatus(err)
		writeError(w, status, code)
		return
	}

	conn, err := ws.Accept(w, r, &ws.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		a.logger.Error().Err(err).Msg("websocket accept failed")
		return
	}
	defer conn.Close(ws.StatusInternalError, "server error")

	telemetry.WebsocketClients.Inc()
	defer telemetry.WebsocketClients.Dec()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	eventCh := a.subscribeSession(ctx, sessionID)

	if err := a.sendMessage(ctx, conn, sessionID, "snapshot", s.Snapshot()); err != nil {
		a.logger.Debug().Err(err).Msg("send snapshot failed")
		return
	}

	a.logger.Debug().Str("session_id", sessionID).Msg("session websocket connected")

	done := make(chan struct{})
	commandCh := make(chan command, 16)

	go func() {
		defer close(done)
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				if ws.CloseStatus(err) != ws.StatusNormalClosure {
					a.logger.Debug().Err(err).Msg("websocket read error")
				}
				return
			}

			var cmd command
			if err := json.Unmarshal(data, &cmd); err != nil {
				a.logger.Warn().Err(err).Msg("invalid websocket message")
				continue
			}

			select {
			case commandCh <- cmd:
			default:
				a.logger.Warn().Msg("command channel full, dropping message")
			}
		}
	}()

	pingTicker := time.NewTicker(15 * time.Second)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close(ws.StatusNormalClosure, "context cancelled")
			return

		case <-done:
			conn.Close(ws.StatusNormalClosure, "client disconnected")
			return

		case <-pingTicker.C:
			if err := a.sendMessage(ctx, conn, "", "ping", nil); err != nil {
				a.logger.Debug().Err(err).Msg("ping failed")
				return
			}

		case evt, ok := <-eventCh:
			if !ok {
				return
			}
			if err := a.sendMessage(ctx, conn, sessionID, string(evt.eventType), evt.payload); err != nil {
				a.logger.Debug().Err(err).Msg("send event failed")
				return
			}
			if evt.eventType == events.EventSessionClosed {
				conn.Close(ws.StatusNormalClosure, "session closed")
				return
			}

		case cmd := <-commandCh:
			changed, err := dispatch(s, cmd)
			if err != nil {
				a.logger.Warn().Err(err).Str("action", cmd.Action).Msg("command failed")
				a.sendError(ctx, conn, cmd.Action, err.Error())
				continue
			}
			_ = a.sendMessage(ctx, conn, sessionID, "ack", commandResponse{Changed: changed, Snapshot: s.Snapshot()})
		}
	}
}

// subscribeSession fans the bus subscriptions for sessionID into one channel
// until ctx is done.
func (a *API) subscribeSession(ctx context.Context, sessionID string) <-chan sessionEvent {
	types := append([]events.EventType{events.EventElementCommand}, events.SessionEvents...)
	out := make(chan sessionEvent, 64)

	var wg sync.WaitGroup
	for _, eventType := range types {
		sub := a.bus.Subscribe(eventType)
		wg.Add(1)
		go func(eventType events.EventType, sub events.Subscriber) {
			defer wg.Done()
			defer a.bus.Unsubscribe(eventType, sub)
			for {
				select {
				case <-ctx.Done():
					return
				case payload, ok := <-sub:
					if !ok {
						return
					}
					if id, _ := payload["session_id"].(string); id != sessionID {
						continue
					}
					select {
					case out <- sessionEvent{eventType: eventType, payload: payload}:
					case <-ctx.Done():
						return
					}
				}
			}
		}(eventType, sub)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

func (a *API) sendMessage(ctx context.Context, conn *ws.Conn, sessionID, msgType string, data any) error {
	msg := wsMessage{
		Type:      msgType,
		SessionID: sessionID,
		Timestamp: time.Now().UTC(),
	}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return err
		}
		msg.Data = raw
	}

	bytes, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return conn.Write(ctx, ws.MessageText, bytes)
}

func (a *API) sendError(ctx context.Context, conn *ws.Conn, action, errMsg string) {
	_ = a.sendMessage(ctx, conn, "", "error", map[string]string{
		"action":  action,
		"message": errMsg,
	})
}
