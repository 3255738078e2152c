/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package events

import "sync"

// EventType enumerates event categories.
type EventType string

const (
	EventSessionOpened   EventType = "session.opened"
	EventSessionClosed   EventType = "session.closed"
	EventSessionAdvanced EventType = "session.advanced"
	EventItemActivated   EventType = "item.activated"
	EventItemState       EventType = "item.state"
	EventItemErrored     EventType = "item.errored"
	EventMuteToggled     EventType = "audio.mute_toggled"

	// Engagement events raised by the viewer
	EventItemLiked     EventType = "item.liked"
	EventItemCommented EventType = "item.commented"
	EventItemShared    EventType = "item.shared"

	// Commands addressed to remote media elements
	EventElementCommand EventType = "element.command"
)

// SessionEvents lists every event type a session emits.
var SessionEvents = []EventType{
	EventSessionOpened,
	EventSessionClosed,
	EventSessionAdvanced,
	EventItemActivated,
	EventItemState,
	EventItemErrored,
	EventMuteToggled,
	EventItemLiked,
	EventItemCommented,
	EventItemShared,
}

// Payload generic event payload.
type Payload map[string]any

// Subscriber receives event payloads.
type Subscriber chan Payload

// Publisher is implemented by every event transport.
type Publisher interface {
	Publish(eventType EventType, payload Payload)
}

// Bus implements a simple in-process pubsub.
type Bus struct {
	mu   sync.RWMutex
	subs map[EventType][]Subscriber
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[EventType][]Subscriber)}
}

// Subscribe registers a subscriber for event type.
func (b *Bus) Subscribe(eventType EventType) Subscriber {
	ch := make(Subscriber, 32)
	b.mu.Lock()
	b.subs[eventType] = append(b.subs[eventType], ch)
	b.mu.Unlock()
	return ch
}

// Publish sends payload to subscribers. Slow subscribers miss events rather
// than block the publisher.
func (b *Bus) Publish(eventType EventType, payload Payload) {
	b.mu.RLock()
	subs := append([]Subscriber(nil), b.subs[eventType]...)
	b.mu.RUnlock()
	for _, sub := range subs {
		select {
		case sub <- payload:
		default:
		}
	}
}

// Unsubscribe removes the subscriber.
func (b *Bus) Unsubscribe(eventType EventType, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[eventType]
	for i, candidate := range subs {
		if candidate == sub {
			subs = append(subs[:i], subs[i+1:]...)
			close(sub)
			break
		}
	}
	b.subs[eventType] = subs
}

// Discard drops every event.
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(EventType, Payload) {}
