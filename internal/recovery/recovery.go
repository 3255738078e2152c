/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package recovery records per-item playback failures so that one broken item
// never blocks the rest of a queue.
package recovery

import (
	"sort"
	"sync"
	"time"
)

// Reason classifies a failure.
type Reason string

const (
	// ReasonLoad means the media failed to fetch or decode.
	ReasonLoad Reason = "load"
	// ReasonPlayback means the element failed after it started playing.
	ReasonPlayback Reason = "playback"
)

// Policy decides what happens to the queue when the active item fails.
type Policy string

const (
	// AutoAdvance keeps the progress timer running on its fallback duration so
	// the queue moves on by itself.
	AutoAdvance Policy = "auto_advance"
	// ManualSkip stops the timer and leaves the item paused until the user
	// retries it or navigates away.
	ManualSkip Policy = "manual_skip"
)

// DefaultMaxRetries bounds Retry per item.
const DefaultMaxRetries = 2

// Failure describes the latest failure of one item.
type Failure struct {
	ItemID   string
	Index    int
	Reason   Reason
	Err      error
	At       time.Time
	Attempts int
}

// Tracker keeps failures keyed by item id.
type Tracker struct {
	policy     Policy
	maxRetries int

	mu       sync.Mutex
	failures map[string]*Failure
	retries  map[string]int
}

// NewTracker creates a tracker for the given policy. maxRetries <= 0 selects
// DefaultMaxRetries.
func NewTracker(policy Policy, maxRetries int) *Tracker {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &Tracker{
		policy:     policy,
		maxRetries: maxRetries,
		failures:   make(map[string]*Failure),
		retries:    make(map[string]int),
	}
}

// Policy returns the configured queue policy.
func (t *Tracker) Policy() Policy {
	return t.policy
}

// Mark records a failure and returns the stored record.
func (t *Tracker) Mark(itemID string, index int, reason Reason, err error, at time.Time) Failure {
	t.mu.Lock()
	defer t.mu.Unlock()

	f, ok := t.failures[itemID]
	if !ok {
		f = &Failure{ItemID: itemID, Index: index}
		t.failures[itemID] = f
	}
	f.Reason = reason
	f.Err = err
	f.At = at
	f.Attempts = t.retries[itemID] + 1
	return *f
}

// Failed reports whether itemID currently has a recorded failure.
func (t *Tracker) Failed(itemID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.failures[itemID]
	return ok
}

// Get returns the failure for itemID, if any.
func (t *Tracker) Get(itemID string) (Failure, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	f, ok := t.failures[itemID]
	if !ok {
		return Failure{}, false
	}
	return *f, true
}

// BeginRetry clears the failure for itemID and counts the attempt. It returns
// false when the item has no failure or its retry budget is spent.
func (t *Tracker) BeginRetry(itemID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.failures[itemID]; !ok {
		return false
	}
	if t.retries[itemID] >= t.maxRetries {
		return false
	}
	t.retries[itemID]++
	delete(t.failures, itemID)
	return true
}

// Clear forgets any failure for itemID without consuming a retry.
func (t *Tracker) Clear(itemID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.failures, itemID)
}

// Failures returns all recorded failures ordered by queue index.
func (t *Tracker) Failures() []Failure {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Failure, 0, len(t.failures))
	for _, f := range t.failures {
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}
