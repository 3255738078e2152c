/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package progress

import (
	"time"

	"github.com/friendsincode/grimnir_reels/internal/models"
)

// Default timing values.
const (
	DefaultStatic        = 3000 * time.Millisecond
	DefaultMediaFallback = 6000 * time.Millisecond
	DefaultTick          = 50 * time.Millisecond
)

// Durations is the duration policy for items in a queue.
type Durations struct {
	// Static is used for image and text-card items.
	Static time.Duration
	// MediaFallback is used for video and audio when no duration is known.
	MediaFallback time.Duration
	// Tick is the progress update interval.
	Tick time.Duration
}

// DefaultDurations returns the standard 3s / 6s / 50ms policy.
func DefaultDurations() Durations {
	return Durations{
		Static:        DefaultStatic,
		MediaFallback: DefaultMediaFallback,
		Tick:          DefaultTick,
	}
}

// WithDefaults fills unset fields.
func (d Durations) WithDefaults() Durations {
	if d.Static <= 0 {
		d.Static = DefaultStatic
	}
	if d.MediaFallback <= 0 {
		d.MediaFallback = DefaultMediaFallback
	}
	if d.Tick <= 0 {
		d.Tick = DefaultTick
	}
	return d
}

// For returns the duration for item. decoded is the media duration reported
// by the element, zero when not yet known.
func (d Durations) For(item models.MediaItem, decoded time.Duration) time.Duration {
	d = d.WithDefaults()
	if item.Kind.IsTimed() {
		return d.Static
	}
	if decoded > 0 {
		return decoded
	}
	if hint := item.DurationHint(); hint > 0 {
		return hint
	}
	return d.MediaFallback
}
