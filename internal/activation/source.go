/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package activation decides which queue index should become active. Sources
// only propose; the session's navigator accepts or rejects the proposal.
package activation

import "sync"

// Source delivers proposals to its Sink. The session keeps every source in
// step with navigation made by other triggers.
type Source interface {
	// SetActive rebinds the source to the index that is now active.
	SetActive(index int)
	// Close releases timers. A closed source never proposes.
	Close()
}

// Sink receives proposals as they are made. It is always called without the
// source's lock held.
type Sink func(index int)

// TimerSource proposes the next index once the active item's progress timer
// completes. It is the story viewer's activation policy.
type TimerSource struct {
	sink Sink

	mu     sync.Mutex
	active int
	bound  bool
	fired  bool
	closed bool
}

var (
	_ Source = (*TimerSource)(nil)
	_ Source = (*VisibilitySource)(nil)
)

// NewTimerSource creates a timer-driven source.
func NewTimerSource(sink Sink) *TimerSource {
	return &TimerSource{sink: sink}
}

// SetActive implements Source. It resets the source for a newly active index.
func (s *TimerSource) SetActive(active int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.active = active
	s.bound = true
	s.fired = false
}

// Complete reports that the progress timer for index reached 100%. Only the
// first completion for the bound index produces a proposal.
func (s *TimerSource) Complete(index int) bool {
	s.mu.Lock()
	if s.closed || !s.bound || s.fired || index != s.active {
		s.mu.Unlock()
		return false
	}
	s.fired = true
	sink := s.sink
	s.mu.Unlock()

	if sink != nil {
		sink(index + 1)
	}
	return true
}

// Close implements Source.
func (s *TimerSource) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}
