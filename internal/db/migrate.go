/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"fmt"

	"github.com/friendsincode/grimnir_reels/internal/models"
	"gorm.io/gorm"
)

// Migrate applies database schema migrations using GORM auto-migrate.
func Migrate(database *gorm.DB) error {
	if err := database.AutoMigrate(
		&models.Collection{},
		&models.MediaItem{},
	); err != nil {
		return err
	}

	if err := normalizeLegacyKinds(database); err != nil {
		return err
	}

	return nil
}

// normalizeLegacyKinds rewrites kind spellings written by older importers.
func normalizeLegacyKinds(database *gorm.DB) error {
	legacy := map[string]models.MediaKind{
		"photo":     models.KindImage,
		"clip":      models.KindVideo,
		"text":      models.KindTextCard,
		"textcard":  models.KindTextCard,
		"text_card": models.KindTextCard,
	}
	for from, to := range legacy {
		if err := database.Model(&models.MediaItem{}).
			Where("kind = ?", from).
			Update("kind", to).Error; err != nil {
			return fmt.Errorf("normalize legacy kind %q: %w", from, err)
		}
	}
	return nil
}
