/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/friendsincode/grimnir_reels/internal/clock"
	"github.com/friendsincode/grimnir_reels/internal/content"
	"github.com/friendsincode/grimnir_reels/internal/events"
	"github.com/friendsincode/grimnir_reels/internal/models"
	"github.com/friendsincode/grimnir_reels/internal/telemetry"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrSessionNotFound is returned for an unknown or closed session ID.
var ErrSessionNotFound = errors.New("session not found")

// OpenRequest describes a session to open from a stored collection.
type OpenRequest struct {
	CollectionID string
	Limit        int
	Surface      models.Surface
	InitialIndex int
	Muted        bool
	Elements     ElementFactory
	Hooks        Hooks
}

// Manager tracks the live sessions of one host process.
type Manager struct {
	repo     content.Repository
	defaults Defaults
	clk      clock.Clock
	pub      events.Publisher
	logger   zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a session manager that loads queues from repo.
func NewManager(repo content.Repository, defaults Defaults, clk clock.Clock, pub events.Publisher, logger zerolog.Logger) *Manager {
	if clk == nil {
		clk = clock.Real()
	}
	if pub == nil {
		pub = events.Discard
	}
	return &Manager{
		repo:     repo,
		defaults: defaults,
		clk:      clk,
		pub:      pub,
		logger:   logger.With().Str("component", "session_manager").Logger(),
		sessions: make(map[string]*Session),
	}
}

// Open fetches the queue for req.CollectionID and opens a tracked session.
func (m *Manager) Open(ctx context.Context, req OpenRequest) (*Session, error) {
	ctx, span := telemetry.StartSpan(ctx, "session", "session.open")
	defer span.End()
	telemetry.AddSpanAttributes(span, map[string]any{
		"collection_id": req.CollectionID,
		"surface":       string(req.Surface),
		"limit":         req.Limit,
	})

	if !req.Surface.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSurface, req.Surface)
	}

	items, err := m.repo.FetchQueue(ctx, content.Query{CollectionID: req.CollectionID, Limit: req.Limit})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("fetch queue %s: %w", req.CollectionID, err)
	}

	id := uuid.NewString()
	hooks := req.Hooks.chain(Hooks{OnClose: func() { m.remove(id) }})

	s, err := Open(ctx, Config{
		ID:           id,
		Surface:      req.Surface,
		Items:        items,
		InitialIndex: req.InitialIndex,
		Muted:        req.Muted,
		Defaults:     m.defaults,
		Elements:     req.Elements,
		Hooks:        hooks,
		Clock:        m.clk,
		Publisher:    m.pub,
		Logger:       m.logger,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	m.mu.Lock()
	// A story that closes during its first activation is not tracked.
	if s.State() == models.SessionActive {
		m.sessions[id] = s
	}
	m.mu.Unlock()

	telemetry.AddSpanAttributes(span, map[string]any{"session_id": id, "items": len(items)})
	m.logger.Info().Str("session_id", id).Str("collection_id", req.CollectionID).Int("items", len(items)).Msg("session tracked")
	return s, nil
}

// Get returns the live session with id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Close closes and forgets the session with id.
func (m *Manager) Close(id string) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	s.Close()
	m.remove(id)
	return nil
}

// CloseAll closes every live session.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	live := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		live = append(live, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range live {
		s.Close()
	}
	if len(live) > 0 {
		m.logger.Info().Int("sessions", len(live)).Msg("closed all sessions")
	}
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}
