/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package player

import "github.com/friendsincode/grimnir_reels/internal/models"

// Registry holds one controller per queue index.
type Registry struct {
	controllers []*MediaController
}

// NewRegistry wraps controllers ordered by queue index.
func NewRegistry(controllers []*MediaController) *Registry {
	return &Registry{controllers: controllers}
}

// Len returns the number of controllers.
func (r *Registry) Len() int { return len(r.controllers) }

// Get returns the controller at index, or nil when out of range.
func (r *Registry) Get(index int) *MediaController {
	if index < 0 || index >= len(r.controllers) {
		return nil
	}
	return r.controllers[index]
}

// PauseAllExcept deactivates every controller other than keep that is not
// already idle.
func (r *Registry) PauseAllExcept(keep int) {
	for i, c := range r.controllers {
		if i == keep || c.State() == models.PlaybackIdle {
			continue
		}
		c.Deactivate()
	}
}

// Playing returns the indexes whose controllers are playing or loading.
func (r *Registry) Playing() []int {
	var out []int
	for i, c := range r.controllers {
		if c.State().IsActive() {
			out = append(out, i)
		}
	}
	return out
}

// DeactivateAll pauses every controller and detaches it from the audio policy.
func (r *Registry) DeactivateAll() {
	for _, c := range r.controllers {
		c.Deactivate()
	}
}
