/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import (
	"errors"
	"fmt"
	"time"
)

// MediaKind enumerates the playable item kinds.
type MediaKind string

const (
	KindImage    MediaKind = "image"
	KindVideo    MediaKind = "video"
	KindAudio    MediaKind = "audio"
	KindTextCard MediaKind = "text-card"
)

// Valid reports whether k is a known kind.
func (k MediaKind) Valid() bool {
	switch k {
	case KindImage, KindVideo, KindAudio, KindTextCard:
		return true
	}
	return false
}

// IsTimed reports whether the kind is shown for a fixed duration rather than
// for the length of decoded media.
func (k MediaKind) IsTimed() bool {
	return k == KindImage || k == KindTextCard
}

// HasMedia reports whether the kind is backed by a decodable media element.
func (k MediaKind) HasMedia() bool {
	return k == KindVideo || k == KindAudio
}

var (
	// ErrInvalidMediaItem is returned by Validate for malformed items.
	ErrInvalidMediaItem = errors.New("invalid media item")
)

// MediaItem describes one playable unit in a queue. Items are created by the
// content repository and are never mutated by the playback engine; sessions copy
// them at open time and only hand out values.
type MediaItem struct {
	ID             string    `gorm:"type:varchar(64);primaryKey" json:"id" yaml:"id"`
	CollectionID   string    `gorm:"type:varchar(64);index:idx_media_collection_position" json:"collection_id,omitempty" yaml:"-"`
	Position       int       `gorm:"index:idx_media_collection_position" json:"position,omitempty" yaml:"-"`
	Kind           MediaKind `gorm:"type:varchar(16)" json:"kind" yaml:"kind"`
	SourceURL      string    `json:"source_url" yaml:"source_url"`
	ThumbnailURL   string    `json:"thumbnail_url,omitempty" yaml:"thumbnail_url"`
	DurationHintMS int64     `json:"duration_hint_ms,omitempty" yaml:"duration_hint_ms"`
	AuthorRef      string    `gorm:"type:varchar(64);index" json:"author_ref" yaml:"author_ref"`
	Caption        string    `gorm:"type:text" json:"caption,omitempty" yaml:"caption"`
	CreatedAt      time.Time `json:"-" yaml:"-"`
	UpdatedAt      time.Time `json:"-" yaml:"-"`
}

// TableName overrides for GORM.
func (MediaItem) TableName() string {
	return "media_items"
}

// DurationHint returns the optional duration hint, zero when unset.
func (m MediaItem) DurationHint() time.Duration {
	if m.DurationHintMS <= 0 {
		return 0
	}
	return time.Duration(m.DurationHintMS) * time.Millisecond
}

// Validate checks the fields the engine relies on.
func (m MediaItem) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidMediaItem)
	}
	if !m.Kind.Valid() {
		return fmt.Errorf("%w: item %s has unknown kind %q", ErrInvalidMediaItem, m.ID, m.Kind)
	}
	if m.Kind != KindTextCard && m.SourceURL == "" {
		return fmt.Errorf("%w: item %s has no source url", ErrInvalidMediaItem, m.ID)
	}
	if m.DurationHintMS < 0 {
		return fmt.Errorf("%w: item %s has negative duration hint", ErrInvalidMediaItem, m.ID)
	}
	return nil
}
