/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package content

import (
	"context"

	"github.com/friendsincode/grimnir_reels/internal/cache"
	"github.com/friendsincode/grimnir_reels/internal/models"
	"github.com/friendsincode/grimnir_reels/internal/telemetry"
	"github.com/rs/zerolog"
)

// CachedRepository serves queues from Redis and falls through to next on a
// miss. Cache failures never fail a fetch.
type CachedRepository struct {
	next   Repository
	cache  *cache.Cache
	logger zerolog.Logger
}

// NewCachedRepository wraps next with c.
func NewCachedRepository(next Repository, c *cache.Cache, logger zerolog.Logger) *CachedRepository {
	return &CachedRepository{
		next:   next,
		cache:  c,
		logger: logger.With().Str("component", "content_cache").Logger(),
	}
}

// FetchQueue implements Repository.
func (r *CachedRepository) FetchQueue(ctx context.Context, q Query) ([]models.MediaItem, error) {
	if !r.cache.IsAvailable() {
		telemetry.ContentCacheResultsTotal.WithLabelValues("bypass").Inc()
		return r.next.FetchQueue(ctx, q)
	}

	if items, ok := r.cache.GetQueue(ctx, q.CollectionID, q.Limit); ok {
		telemetry.ContentCacheResultsTotal.WithLabelValues("hit").Inc()
		return items, nil
	}
	telemetry.ContentCacheResultsTotal.WithLabelValues("miss").Inc()

	items, err := r.next.FetchQueue(ctx, q)
	if err != nil {
		return nil, err
	}
	if err := r.cache.SetQueue(ctx, q.CollectionID, q.Limit, items); err != nil {
		r.logger.Debug().Err(err).Str("collection_id", q.CollectionID).Msg("failed to cache queue")
	}
	return items, nil
}
