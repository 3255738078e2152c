/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/friendsincode/grimnir_reels/internal/cache"
	"github.com/friendsincode/grimnir_reels/internal/content"
	"github.com/friendsincode/grimnir_reels/internal/db"
)

// Import flags
var (
	importFile   string
	importDryRun bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import collections from a YAML content file",
	Long: `Loads collections from a YAML content file into the database. Existing
collections with the same ID are updated and their item lists replaced.
Cached queues of imported collections are invalidated when caching is enabled.

Examples:
  grimnirreels import --file content.yaml --dry-run
  grimnirreels import --file content.yaml`,
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVar(&importFile, "file", "", "Path to YAML content file (required)")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Validate the file without writing")
	importCmd.MarkFlagRequired("file")
}

func runImport(cmd *cobra.Command, args []string) error {
	f, err := content.LoadFile(importFile)
	if err != nil {
		return err
	}

	items := 0
	for _, c := range f.Collections {
		items += len(c.Items)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Content file: %d collections, %d items\n", len(f.Collections), items)
	if importDryRun {
		for _, c := range f.Collections {
			fmt.Fprintf(cmd.OutOrStdout(), "  [dry-run] %s (%s): %d items\n", c.ID, c.Surface, len(c.Items))
		}
		return nil
	}

	if err := loadConfig(); err != nil {
		return err
	}

	database, err := db.Connect(cfg)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer db.Close(database)

	if err := db.Migrate(database); err != nil {
		return err
	}

	var queueCache *cache.Cache
	if cfg.CacheEnabled {
		cacheCfg := cache.DefaultConfig()
		cacheCfg.RedisAddr = cfg.RedisAddr
		cacheCfg.RedisPassword = cfg.RedisPassword
		cacheCfg.RedisDB = cfg.RedisDB
		queueCache, err = cache.New(cacheCfg, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("cache unavailable, cached queues will expire on their own")
			queueCache = nil
		} else {
			defer queueCache.Close()
		}
	}

	ctx := context.Background()
	repo := content.NewGormRepository(database)
	for _, c := range f.Collections {
		if err := repo.SaveCollection(ctx, c); err != nil {
			return fmt.Errorf("save collection %s: %w", c.ID, err)
		}
		if queueCache != nil {
			if err := queueCache.InvalidateCollection(ctx, c.ID); err != nil {
				logger.Warn().Err(err).Str("collection_id", c.ID).Msg("cache invalidation failed")
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "  imported %s: %d items\n", c.ID, len(c.Items))
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Import complete\n")
	return nil
}
