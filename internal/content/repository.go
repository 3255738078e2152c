/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package content loads playback queues from storage.
package content

import (
	"context"
	"errors"
	"time"

	"github.com/friendsincode/grimnir_reels/internal/models"
	"github.com/friendsincode/grimnir_reels/internal/telemetry"
)

// ErrCollectionNotFound is returned for an unknown or empty collection.
var ErrCollectionNotFound = errors.New("collection not found")

// Query selects a queue.
type Query struct {
	CollectionID string
	// Limit caps the number of items. Zero means no limit.
	Limit int
}

// Repository returns the ordered items of a collection.
type Repository interface {
	FetchQueue(ctx context.Context, q Query) ([]models.MediaItem, error)
}

// Instrument wraps repo with a span and a fetch duration histogram.
func Instrument(name string, repo Repository) Repository {
	return instrumented{name: name, next: repo}
}

type instrumented struct {
	name string
	next Repository
}

func (r instrumented) FetchQueue(ctx context.Context, q Query) ([]models.MediaItem, error) {
	ctx, span := telemetry.StartSpan(ctx, "content", "content.fetch_queue")
	defer span.End()
	telemetry.AddSpanAttributes(span, map[string]any{
		"repository":    r.name,
		"collection_id": q.CollectionID,
		"limit":         q.Limit,
	})

	start := time.Now()
	items, err := r.next.FetchQueue(ctx, q)
	telemetry.ContentFetchDuration.WithLabelValues(r.name).Observe(time.Since(start).Seconds())
	telemetry.RecordError(span, err)
	return items, err
}

func applyLimit(items []models.MediaItem, limit int) []models.MediaItem {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
