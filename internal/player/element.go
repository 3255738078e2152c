/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package player binds queue items to underlying media elements.
package player

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrPlaybackRejected marks a play attempt refused by the host's autoplay
	// policy. It is expected behaviour, not a fault.
	ErrPlaybackRejected = errors.New("playback rejected by autoplay policy")

	// ErrLoad marks media that failed to fetch or decode.
	ErrLoad = errors.New("media failed to load")
)

// PlaybackController is the minimal control surface of a media element.
type PlaybackController interface {
	// Play starts or resumes playback. Elements report autoplay refusals by
	// returning an error wrapping ErrPlaybackRejected.
	Play(ctx context.Context) error
	Pause()
	Seek(pos time.Duration)
}

// VolumeController adjusts audio output of a media element.
type VolumeController interface {
	SetMuted(muted bool)
	SetVolume(level float64)
}

// Element is one underlying media element. Implementations must not call back
// into the owning session from these methods; asynchronous outcomes (loaded,
// error, ended) are reported through the session.
type Element interface {
	PlaybackController
	VolumeController
}

// DimensionReporter is implemented by elements that know their decoded size.
type DimensionReporter interface {
	Dimensions() (width, height int, ok bool)
}

// StaticElement backs image and text-card items, which have nothing to decode.
type StaticElement struct{}

func (StaticElement) Play(context.Context) error { return nil }
func (StaticElement) Pause()                     {}
func (StaticElement) Seek(time.Duration)         {}
func (StaticElement) SetMuted(bool)              {}
func (StaticElement) SetVolume(float64)          {}
