/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package session

import "github.com/friendsincode/grimnir_reels/internal/models"

// Keys understood by HandleKey.
const (
	KeyArrowRight = "ArrowRight"
	KeyArrowLeft  = "ArrowLeft"
	KeyArrowDown  = "ArrowDown"
	KeyArrowUp    = "ArrowUp"
	KeyEscape     = "Escape"
	KeySpace      = " "
	KeyMute       = "m"
)

// RequestActivate makes index the active item. The index is clamped to the
// queue; requesting the active index does nothing. It reports whether the
// active item changed.
func (s *Session) RequestActivate(index int) bool {
	if !s.lockActive() {
		return false
	}
	defer s.unlock()

	if s.nav.clamp(index) == s.nav.active {
		return false
	}
	s.userInteracted = true
	return s.requestLocked(index, triggerUser)
}

// Select activates the item at index, as a click on its thumbnail would.
func (s *Session) Select(index int) bool {
	return s.RequestActivate(index)
}

// Advance moves to the next item. On the last story item it closes the
// session; on the last feed item it does nothing.
func (s *Session) Advance() bool {
	if !s.lockActive() {
		return false
	}
	defer s.unlock()

	s.userInteracted = true
	return s.advanceLocked(triggerUser)
}

// Retreat moves to the previous item. It does nothing at index 0.
func (s *Session) Retreat() bool {
	if !s.lockActive() {
		return false
	}
	defer s.unlock()

	s.userInteracted = true
	return s.retreatLocked(triggerUser)
}

// HandleKey applies a keyboard command and reports whether the key is bound.
func (s *Session) HandleKey(key string) bool {
	if !s.lockActive() {
		return false
	}
	defer s.unlock()

	s.userInteracted = true
	switch key {
	case KeyArrowRight, KeyArrowDown:
		s.advanceLocked(triggerKey)
	case KeyArrowLeft, KeyArrowUp:
		s.retreatLocked(triggerKey)
	case KeyEscape:
		s.closeLocked("escape")
	case KeySpace, "Space", "Spacebar":
		s.togglePauseLocked()
	case KeyMute, "M":
		s.toggleMuteLocked()
	default:
		return false
	}
	return true
}

// Tap handles a tap at horizontal position x, given as a fraction of the
// viewer width. On the story surface the left third goes back and the rest
// goes forward. On the feed it toggles pause.
func (s *Session) Tap(x float64) bool {
	if !s.lockActive() {
		return false
	}
	defer s.unlock()

	s.userInteracted = true
	if s.surface == models.SurfaceFeed {
		return s.togglePauseLocked()
	}
	if x < 1.0/3.0 {
		return s.retreatLocked(triggerTap)
	}
	return s.advanceLocked(triggerTap)
}

// HoldStart pauses while the viewer is pressed.
func (s *Session) HoldStart() bool {
	if !s.lockActive() {
		return false
	}
	defer s.unlock()

	s.userInteracted = true
	return s.pauseLocked()
}

// HoldEnd resumes after a press-and-hold.
func (s *Session) HoldEnd() bool {
	if !s.lockActive() {
		return false
	}
	defer s.unlock()

	return s.resumeLocked()
}

func (s *Session) requestLocked(index int, trigger string) bool {
	target := s.nav.clamp(index)
	if target == s.nav.active {
		return false
	}
	s.activateLocked(target, trigger)
	return true
}

func (s *Session) advanceLocked(trigger string) bool {
	if s.nav.atLast() {
		if s.surface == models.SurfaceStory {
			return s.closeLocked("completed")
		}
		return false
	}
	s.activateLocked(s.nav.active+1, trigger)
	return true
}

func (s *Session) retreatLocked(trigger string) bool {
	if s.nav.atFirst() {
		return false
	}
	s.activateLocked(s.nav.active-1, trigger)
	return true
}
