/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package session

import (
	"errors"
	"time"

	"github.com/friendsincode/grimnir_reels/internal/activation"
	"github.com/friendsincode/grimnir_reels/internal/models"
	"github.com/friendsincode/grimnir_reels/internal/player"
	"github.com/friendsincode/grimnir_reels/internal/recovery"
	"github.com/friendsincode/grimnir_reels/internal/telemetry"
)

// ReportLoaded records decoded metadata for itemID. A known duration replaces
// the fallback countdown of the active item.
func (s *Session) ReportLoaded(itemID string, decoded time.Duration, width, height int) bool {
	if !s.lockActive() {
		return false
	}
	defer s.unlock()

	index, ok := s.index[itemID]
	if !ok {
		return false
	}
	if decoded > 0 {
		s.decoded[itemID] = decoded
	}
	if width > 0 && height > 0 {
		s.dims[itemID] = [2]int{width, height}
	}

	item := s.items[index]
	if index == s.nav.active && item.Kind.HasMedia() && decoded > 0 && !s.tracker.Failed(itemID) && s.countdown != nil {
		s.countdown.SetDuration(decoded)
	}
	return true
}

// ReportError marks itemID as failed. Errors wrapping player.ErrLoad are
// recorded as load failures, everything else as playback failures.
func (s *Session) ReportError(itemID string, err error) bool {
	if !s.lockActive() {
		return false
	}
	defer s.unlock()

	index, ok := s.index[itemID]
	if !ok || s.tracker.Failed(itemID) {
		return false
	}

	reason := recovery.ReasonPlayback
	if err == nil {
		err = player.ErrLoad
	}
	if errors.Is(err, player.ErrLoad) {
		reason = recovery.ReasonLoad
	}
	s.failLocked(index, reason, err)
	return true
}

// ReportPlaybackRejected records that the host refused to play the active
// item. The item stays paused and muted until the viewer resumes it.
func (s *Session) ReportPlaybackRejected(itemID string) bool {
	if !s.lockActive() {
		return false
	}
	defer s.unlock()

	index, ok := s.index[itemID]
	if !ok || index != s.nav.active || s.tracker.Failed(itemID) {
		return false
	}
	s.registry.Get(index).MarkPaused()
	if s.countdown != nil {
		s.countdown.Pause()
	}
	s.blocked = true
	telemetry.AutoplayRejectionsTotal.Inc()
	return true
}

// ReportBuffering holds the countdown while the active item waits for data.
func (s *Session) ReportBuffering(itemID string, buffering bool) bool {
	if !s.lockActive() {
		return false
	}
	defer s.unlock()

	index, ok := s.index[itemID]
	if !ok || index != s.nav.active || s.tracker.Failed(itemID) || s.countdown == nil {
		return false
	}
	if buffering == s.buffering {
		return false
	}
	s.buffering = buffering
	if buffering {
		s.countdown.Pause()
	} else if !s.paused && !s.blocked {
		s.countdown.Resume()
	}
	return true
}

// ReportEnded completes the active item's countdown when its media ends.
func (s *Session) ReportEnded(itemID string) bool {
	if !s.lockActive() {
		return false
	}
	defer s.unlock()

	index, ok := s.index[itemID]
	if !ok || index != s.nav.active || s.countdown == nil {
		return false
	}
	s.deferLocked(s.countdown.Complete)
	return true
}

// ReportVisibility forwards an intersection ratio for a feed item.
func (s *Session) ReportVisibility(index int, ratio float64) bool {
	src, ok := s.visibility(index)
	if !ok {
		return false
	}
	src.Observe(index, ratio)
	return true
}

// ScrollStart reports the beginning of a scroll gesture on the feed.
func (s *Session) ScrollStart() bool {
	src, ok := s.visibility(0)
	if !ok {
		return false
	}
	src.ScrollStart()
	return true
}

// ScrollEvent reports continued scrolling on the feed.
func (s *Session) ScrollEvent() bool {
	src, ok := s.visibility(0)
	if !ok {
		return false
	}
	src.ScrollEvent()
	return true
}

// visibility returns the feed visibility source. Observations are passed to it
// without the session lock so its proposals can re-enter the session.
func (s *Session) visibility(index int) (*activation.VisibilitySource, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != models.SessionActive || s.visSrc == nil || index < 0 || index >= len(s.items) {
		return nil, false
	}
	return s.visSrc, true
}
