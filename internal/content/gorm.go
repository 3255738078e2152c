/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package content

import (
	"context"
	"fmt"

	"github.com/friendsincode/grimnir_reels/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormRepository reads queues from the media_items table.
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a database-backed repository.
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// FetchQueue implements Repository.
func (r *GormRepository) FetchQueue(ctx context.Context, q Query) ([]models.MediaItem, error) {
	var items []models.MediaItem
	tx := r.db.WithContext(ctx).
		Where("collection_id = ?", q.CollectionID).
		Order("position ASC").
		Order("id ASC")
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	if err := tx.Find(&items).Error; err != nil {
		return nil, fmt.Errorf("query media items: %w", err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, q.CollectionID)
	}
	return items, nil
}

// SaveCollection upserts a collection and replaces its items.
func (r *GormRepository) SaveCollection(ctx context.Context, c models.Collection) error {
	if err := c.Validate(); err != nil {
		return err
	}
	c.Normalize()
	items := c.Items
	c.Items = nil

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&c).Error; err != nil {
			return fmt.Errorf("upsert collection: %w", err)
		}
		if err := tx.Where("collection_id = ?", c.ID).Delete(&models.MediaItem{}).Error; err != nil {
			return fmt.Errorf("clear collection items: %w", err)
		}
		if len(items) == 0 {
			return nil
		}
		if err := tx.Create(&items).Error; err != nil {
			return fmt.Errorf("insert collection items: %w", err)
		}
		return nil
	})
}
