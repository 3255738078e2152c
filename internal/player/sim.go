/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package player

import (
	"context"
	"sync"
	"time"
)

// SimElement is an in-memory element used by the headless simulator and tests.
// It records commands and fails Play according to its configuration.
type SimElement struct {
	mu       sync.Mutex
	playErr  error
	unmuted  error
	muted    bool
	volume   float64
	playing  bool
	position time.Duration
	plays    int
	width    int
	height   int
}

// NewSimElement creates a simulated element.
func NewSimElement() *SimElement {
	return &SimElement{muted: true, volume: 1}
}

// FailPlay makes every Play return err. A nil err restores success.
func (e *SimElement) FailPlay(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.playErr = err
}

// RejectUnmuted makes Play return err whenever the element is unmuted, as a
// host autoplay policy would.
func (e *SimElement) RejectUnmuted(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.unmuted = err
}

// SetDimensions sets the size reported by Dimensions.
func (e *SimElement) SetDimensions(width, height int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.width, e.height = width, height
}

func (e *SimElement) Play(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.plays++
	if e.playErr != nil {
		return e.playErr
	}
	if !e.muted && e.unmuted != nil {
		return e.unmuted
	}
	e.playing = true
	return nil
}

func (e *SimElement) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.playing = false
}

func (e *SimElement) Seek(pos time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.position = pos
}

func (e *SimElement) SetMuted(muted bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.muted = muted
}

func (e *SimElement) SetVolume(level float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.volume = level
}

// Dimensions implements DimensionReporter.
func (e *SimElement) Dimensions() (int, int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.width, e.height, e.width > 0 && e.height > 0
}

// Playing reports whether the element is currently playing.
func (e *SimElement) Playing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playing
}

// Muted reports the element's mute flag.
func (e *SimElement) Muted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.muted
}

// Volume reports the element's volume.
func (e *SimElement) Volume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.volume
}

// Plays counts Play calls.
func (e *SimElement) Plays() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.plays
}
