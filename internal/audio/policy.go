/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package audio holds the session-scoped mute and volume policy.
package audio

import "sync"

// State is a snapshot of the policy.
type State struct {
	Muted  bool
	Volume float64
}

// Listener is notified after the policy changes.
type Listener func(State)

// Policy is the single source of truth for mute and volume within one playback
// session. Controllers read it on activation and subscribe while active; UI
// toggles write it. Reset restores the defaults and drops every subscriber so
// no state carries over into an unrelated surface.
type Policy struct {
	mu           sync.Mutex
	defaultMuted bool
	muted        bool
	volume       float64
	listeners    map[uint64]Listener
	nextID       uint64
}

// NewPolicy creates a policy starting muted or unmuted at full volume.
func NewPolicy(muted bool) *Policy {
	return &Policy{
		defaultMuted: muted,
		muted:        muted,
		volume:       1,
		listeners:    make(map[uint64]Listener),
	}
}

// Muted reports the current mute flag.
func (p *Policy) Muted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.muted
}

// Volume reports the current volume in [0, 1].
func (p *Policy) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// State returns the current mute and volume.
func (p *Policy) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return State{Muted: p.muted, Volume: p.volume}
}

// SetMuted updates the mute flag and notifies subscribers when it changed.
func (p *Policy) SetMuted(muted bool) bool {
	p.mu.Lock()
	if p.muted == muted {
		p.mu.Unlock()
		return false
	}
	p.muted = muted
	state, listeners := p.snapshotLocked()
	p.mu.Unlock()

	notify(listeners, state)
	return true
}

// Toggle flips the mute flag and returns the new value.
func (p *Policy) Toggle() bool {
	p.mu.Lock()
	p.muted = !p.muted
	muted := p.muted
	state, listeners := p.snapshotLocked()
	p.mu.Unlock()

	notify(listeners, state)
	return muted
}

// SetVolume clamps v to [0, 1], stores it and notifies subscribers when it changed.
func (p *Policy) SetVolume(v float64) bool {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}

	p.mu.Lock()
	if p.volume == v {
		p.mu.Unlock()
		return false
	}
	p.volume = v
	state, listeners := p.snapshotLocked()
	p.mu.Unlock()

	notify(listeners, state)
	return true
}

// Subscribe registers fn and returns a function that removes it. The returned
// function is safe to call more than once.
func (p *Policy) Subscribe(fn Listener) func() {
	p.mu.Lock()
	p.nextID++
	id := p.nextID
	p.listeners[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.listeners, id)
		p.mu.Unlock()
	}
}

// Subscribers returns the number of registered listeners.
func (p *Policy) Subscribers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.listeners)
}

// Reset restores the default mute flag and full volume and drops all
// subscribers without notifying them.
func (p *Policy) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.muted = p.defaultMuted
	p.volume = 1
	p.listeners = make(map[uint64]Listener)
}

func (p *Policy) snapshotLocked() (State, []Listener) {
	listeners := make([]Listener, 0, len(p.listeners))
	for _, l := range p.listeners {
		listeners = append(listeners, l)
	}
	return State{Muted: p.muted, Volume: p.volume}, listeners
}

func notify(listeners []Listener, state State) {
	for _, l := range listeners {
		l(state)
	}
}
