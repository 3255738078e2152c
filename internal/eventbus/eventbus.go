/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package eventbus fans session events out across reel instances. Every
// transport delivers to local subscribers through an in-memory bus and
// relays messages from other nodes into it.
package eventbus

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/friendsincode/grimnir_reels/internal/events"
	"github.com/google/uuid"
)

// SubjectPrefix namespaces event channels and subjects on shared brokers.
const SubjectPrefix = "grimnir_reels.events."

// Bus is the surface shared by every transport.
type Bus interface {
	events.Publisher
	Subscribe(eventType events.EventType) events.Subscriber
	Unsubscribe(eventType events.EventType, sub events.Subscriber)
	Close() error
}

// Memory is the single-node transport.
type Memory struct {
	*events.Bus
}

// NewMemory returns a Bus backed only by process memory.
func NewMemory() *Memory {
	return &Memory{Bus: events.NewBus()}
}

// Close implements Bus.
func (m *Memory) Close() error { return nil }

// envelope is the wire format shared by the Redis and NATS transports.
type envelope struct {
	EventType events.EventType `json:"event_type"`
	Payload   events.Payload   `json:"payload"`
	Timestamp time.Time        `json:"timestamp"`
	NodeID    string           `json:"node_id"`
	MessageID string           `json:"message_id"`
}

func marshalEnvelope(eventType events.EventType, payload events.Payload, nodeID string) ([]byte, error) {
	return json.Marshal(envelope{
		EventType: eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
		NodeID:    nodeID,
		MessageID: uuid.NewString(),
	})
}

func unmarshalEnvelope(data []byte) (*envelope, error) {
	var msg envelope
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal event envelope: %w", err)
	}
	if msg.EventType == "" {
		return nil, fmt.Errorf("event envelope missing event_type")
	}
	return &msg, nil
}

func subjectFor(eventType events.EventType) string {
	return SubjectPrefix + string(eventType)
}

// NodeID returns a process identifier of the form host-uuid. A non-empty
// instanceID is used as the host part.
func NodeID(instanceID string) string {
	host := strings.TrimSpace(instanceID)
	if host == "" {
		host, _ = os.Hostname()
	}
	if host == "" {
		host = "node"
	}
	return host + "-" + uuid.NewString()[:8]
}
