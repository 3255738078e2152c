/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package player

import "github.com/friendsincode/grimnir_reels/internal/models"

var validTransitions = map[models.PlaybackState][]models.PlaybackState{
	models.PlaybackIdle: {
		models.PlaybackLoading,
		models.PlaybackPlaying,
		models.PlaybackErrored,
	},
	models.PlaybackLoading: {
		models.PlaybackPlaying,
		models.PlaybackPaused,
		models.PlaybackErrored,
		models.PlaybackIdle,
	},
	models.PlaybackPlaying: {
		models.PlaybackPaused,
		models.PlaybackCompleted,
		models.PlaybackErrored,
		models.PlaybackLoading,
	},
	models.PlaybackPaused: {
		models.PlaybackLoading,
		models.PlaybackPlaying,
		models.PlaybackErrored,
		models.PlaybackIdle,
		models.PlaybackCompleted,
	},
	models.PlaybackErrored: {
		models.PlaybackLoading,
		models.PlaybackIdle,
		models.PlaybackPaused,
	},
	models.PlaybackCompleted: {
		models.PlaybackLoading,
		models.PlaybackIdle,
		models.PlaybackPaused,
	},
}

func isValidTransition(from, to models.PlaybackState) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}

	for _, allowedState := range allowed {
		if allowedState == to {
			return true
		}
	}

	return false
}
