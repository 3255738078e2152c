/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package content

import (
	"context"
	"fmt"

	"github.com/friendsincode/grimnir_reels/internal/models"
	"github.com/friendsincode/grimnir_reels/internal/storage"
)

// ResolvingRepository rewrites s3:// source and thumbnail URLs into URLs a
// media element can fetch.
type ResolvingRepository struct {
	next      Repository
	presigner storage.Presigner
}

// NewResolvingRepository wraps next with p.
func NewResolvingRepository(next Repository, p storage.Presigner) *ResolvingRepository {
	return &ResolvingRepository{next: next, presigner: p}
}

// FetchQueue implements Repository.
func (r *ResolvingRepository) FetchQueue(ctx context.Context, q Query) ([]models.MediaItem, error) {
	items, err := r.next.FetchQueue(ctx, q)
	if err != nil {
		return nil, err
	}

	out := make([]models.MediaItem, len(items))
	for i, item := range items {
		if item.SourceURL, err = r.resolve(ctx, item.SourceURL); err != nil {
			return nil, fmt.Errorf("item %s source: %w", item.ID, err)
		}
		if item.ThumbnailURL, err = r.resolve(ctx, item.ThumbnailURL); err != nil {
			return nil, fmt.Errorf("item %s thumbnail: %w", item.ID, err)
		}
		out[i] = item
	}
	return out, nil
}

func (r *ResolvingRepository) resolve(ctx context.Context, raw string) (string, error) {
	bucket, key, ok := storage.ParseS3URL(raw)
	if !ok {
		return raw, nil
	}
	return r.presigner.Presign(ctx, bucket, key)
}
