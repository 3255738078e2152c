/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package session

import (
	"errors"

	"github.com/friendsincode/grimnir_reels/internal/events"
	"github.com/friendsincode/grimnir_reels/internal/player"
	"github.com/friendsincode/grimnir_reels/internal/recovery"
	"github.com/friendsincode/grimnir_reels/internal/telemetry"
)

// Pause holds the active item and its countdown.
func (s *Session) Pause() bool {
	if !s.lockActive() {
		return false
	}
	defer s.unlock()

	s.userInteracted = true
	return s.pauseLocked()
}

// Resume continues after Pause, or retries playback refused by autoplay.
func (s *Session) Resume() bool {
	if !s.lockActive() {
		return false
	}
	defer s.unlock()

	s.userInteracted = true
	return s.resumeLocked()
}

// TogglePause flips between Pause and Resume.
func (s *Session) TogglePause() bool {
	if !s.lockActive() {
		return false
	}
	defer s.unlock()

	s.userInteracted = true
	return s.togglePauseLocked()
}

// SetMuted writes the session audio policy.
func (s *Session) SetMuted(muted bool) bool {
	if !s.lockActive() {
		return false
	}
	defer s.unlock()

	s.userInteracted = true
	if !s.policy.SetMuted(muted) {
		return false
	}
	s.mutedChangedLocked(muted)
	return true
}

// ToggleMute flips the mute flag and returns the new value.
func (s *Session) ToggleMute() bool {
	if !s.lockActive() {
		return false
	}
	defer s.unlock()

	s.userInteracted = true
	return s.toggleMuteLocked()
}

// SetVolume sets the volume, clamped to [0, 1].
func (s *Session) SetVolume(level float64) bool {
	if !s.lockActive() {
		return false
	}
	defer s.unlock()

	s.userInteracted = true
	return s.policy.SetVolume(level)
}

// Retry re-attempts a failed item and makes it active. It returns false when
// the item has not failed or its retry budget is spent.
func (s *Session) Retry(index int) bool {
	if !s.lockActive() {
		return false
	}
	defer s.unlock()

	if index < 0 || index >= len(s.items) {
		return false
	}
	s.userInteracted = true
	item := s.items[index]
	if !s.tracker.BeginRetry(item.ID) {
		return false
	}
	s.logger.Info().Str("item_id", item.ID).Int("index", index).Msg("retrying item")
	s.activateLocked(index, triggerRetry)
	return true
}

// Like forwards a like for itemID to the host.
func (s *Session) Like(itemID string) bool {
	return s.engage(itemID, events.EventItemLiked, nil, func() {
		if s.hooks.OnLike != nil {
			s.hooks.OnLike(itemID)
		}
	})
}

// Comment forwards a comment for itemID to the host.
func (s *Session) Comment(itemID, text string) bool {
	return s.engage(itemID, events.EventItemCommented, events.Payload{"text": text}, func() {
		if s.hooks.OnComment != nil {
			s.hooks.OnComment(itemID, text)
		}
	})
}

// Share forwards a share for itemID to the host.
func (s *Session) Share(itemID string) bool {
	return s.engage(itemID, events.EventItemShared, nil, func() {
		if s.hooks.OnShare != nil {
			s.hooks.OnShare(itemID)
		}
	})
}

func (s *Session) engage(itemID string, eventType events.EventType, payload events.Payload, hook func()) bool {
	if !s.lockActive() {
		return false
	}
	defer s.unlock()

	index, ok := s.index[itemID]
	if !ok {
		return false
	}
	s.userInteracted = true
	if payload == nil {
		payload = events.Payload{}
	}
	payload["index"] = index
	payload["item_id"] = itemID
	s.publishLocked(eventType, payload)
	s.deferLocked(hook)
	return true
}

func (s *Session) pauseLocked() bool {
	if s.paused {
		return false
	}
	s.paused = true
	s.registry.Get(s.nav.active).Pause()
	if s.countdown != nil {
		s.countdown.Pause()
	}
	return true
}

func (s *Session) resumeLocked() bool {
	if !s.paused && !s.blocked {
		return false
	}
	s.paused = false

	item := s.items[s.nav.active]
	if s.tracker.Failed(item.ID) {
		s.applyFailurePolicyLocked(item)
		return true
	}

	if err := s.registry.Get(s.nav.active).Resume(s.ctx); err != nil {
		if errors.Is(err, player.ErrPlaybackRejected) {
			s.blocked = true
			telemetry.AutoplayRejectionsTotal.Inc()
			return false
		}
		s.failLocked(s.nav.active, recovery.ReasonPlayback, err)
		return true
	}
	s.blocked = false
	if s.countdown != nil && !s.buffering {
		s.countdown.Start()
		s.countdown.Resume()
	}
	return true
}

func (s *Session) togglePauseLocked() bool {
	if s.paused || s.blocked {
		return s.resumeLocked()
	}
	return s.pauseLocked()
}

func (s *Session) toggleMuteLocked() bool {
	muted := s.policy.Toggle()
	s.mutedChangedLocked(muted)
	return muted
}

func (s *Session) mutedChangedLocked(muted bool) {
	s.publishLocked(events.EventMuteToggled, events.Payload{"muted": muted})
	if hook := s.hooks.OnMuteToggle; hook != nil {
		s.deferLocked(func() { hook(muted) })
	}
}
