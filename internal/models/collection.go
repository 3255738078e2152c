/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import (
	"fmt"
	"time"
)

// Collection groups the items of one story or feed.
type Collection struct {
	ID        string      `gorm:"type:varchar(64);primaryKey" json:"id" yaml:"id"`
	Title     string      `gorm:"type:varchar(255)" json:"title" yaml:"title"`
	Surface   Surface     `gorm:"type:varchar(16)" json:"surface" yaml:"surface"`
	Items     []MediaItem `gorm:"foreignKey:CollectionID" json:"items,omitempty" yaml:"items"`
	CreatedAt time.Time   `json:"-" yaml:"-"`
	UpdatedAt time.Time   `json:"-" yaml:"-"`
}

// TableName overrides the gorm table name.
func (Collection) TableName() string {
	return "collections"
}

// Normalize stamps every item with the collection ID and its position.
func (c *Collection) Normalize() {
	for i := range c.Items {
		c.Items[i].CollectionID = c.ID
		c.Items[i].Position = i
	}
}

// Validate checks the collection and all of its items.
func (c Collection) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("%w: collection id is empty", ErrInvalidMediaItem)
	}
	if c.Surface != "" && !c.Surface.Valid() {
		return fmt.Errorf("collection %s: unknown surface %q", c.ID, c.Surface)
	}
	for i, item := range c.Items {
		if err := item.Validate(); err != nil {
			return fmt.Errorf("collection %s item %d: %w", c.ID, i, err)
		}
	}
	return nil
}
