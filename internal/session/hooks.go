/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package session

import "github.com/friendsincode/grimnir_reels/internal/models"

// Hooks are the host callbacks of a session. Every field is optional. Hooks
// run on the goroutine that caused them, after the session lock is released,
// so they may call back into the session.
type Hooks struct {
	OnAdvance     func(index int)
	OnClose       func()
	OnLike        func(itemID string)
	OnComment     func(itemID, text string)
	OnShare       func(itemID string)
	OnMuteToggle  func(muted bool)
	OnStateChange func(itemID string, state models.PlaybackState)
	OnProgress    func(index int, pct float64)
}

// chain returns hooks that call h and then next for every event.
func (h Hooks) chain(next Hooks) Hooks {
	return Hooks{
		OnAdvance: func(index int) {
			if h.OnAdvance != nil {
				h.OnAdvance(index)
			}
			if next.OnAdvance != nil {
				next.OnAdvance(index)
			}
		},
		OnClose: func() {
			if h.OnClose != nil {
				h.OnClose()
			}
			if next.OnClose != nil {
				next.OnClose()
			}
		},
		OnLike: func(itemID string) {
			if h.OnLike != nil {
				h.OnLike(itemID)
			}
			if next.OnLike != nil {
				next.OnLike(itemID)
			}
		},
		OnComment: func(itemID, text string) {
			if h.OnComment != nil {
				h.OnComment(itemID, text)
			}
			if next.OnComment != nil {
				next.OnComment(itemID, text)
			}
		},
		OnShare: func(itemID string) {
			if h.OnShare != nil {
				h.OnShare(itemID)
			}
			if next.OnShare != nil {
				next.OnShare(itemID)
			}
		},
		OnMuteToggle: func(muted bool) {
			if h.OnMuteToggle != nil {
				h.OnMuteToggle(muted)
			}
			if next.OnMuteToggle != nil {
				next.OnMuteToggle(muted)
			}
		},
		OnStateChange: func(itemID string, state models.PlaybackState) {
			if h.OnStateChange != nil {
				h.OnStateChange(itemID, state)
			}
			if next.OnStateChange != nil {
				next.OnStateChange(itemID, state)
			}
		},
		OnProgress: func(index int, pct float64) {
			if h.OnProgress != nil {
				h.OnProgress(index, pct)
			}
			if next.OnProgress != nil {
				next.OnProgress(index, pct)
			}
		},
	}
}
