/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

// PlaybackState is the per-item, per-session playback state.
type PlaybackState string

const (
	PlaybackIdle      PlaybackState = "idle"
	PlaybackLoading   PlaybackState = "loading"
	PlaybackPlaying   PlaybackState = "playing"
	PlaybackPaused    PlaybackState = "paused"
	PlaybackErrored   PlaybackState = "errored"
	PlaybackCompleted PlaybackState = "completed"
)

// IsActive reports whether the state holds the decoder (playing or loading toward it).
func (s PlaybackState) IsActive() bool {
	return s == PlaybackPlaying || s == PlaybackLoading
}

// SessionState is the lifecycle of a playback session.
type SessionState string

const (
	SessionOpening SessionState = "opening"
	SessionActive  SessionState = "active"
	SessionClosing SessionState = "closing"
	SessionClosed  SessionState = "closed"
)

// Surface selects the presentation a session drives.
type Surface string

const (
	// SurfaceStory is the time-boxed slideshow; it closes after the last item.
	SurfaceStory Surface = "story"
	// SurfaceFeed is the scrollable moments feed; it is paged, never closed by navigation.
	SurfaceFeed Surface = "feed"
)

// Valid reports whether s is a known surface.
func (s Surface) Valid() bool {
	return s == SurfaceStory || s == SurfaceFeed
}
