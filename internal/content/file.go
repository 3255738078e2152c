/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package content

import (
	"context"
	"fmt"
	"os"

	"github.com/friendsincode/grimnir_reels/internal/models"
	"gopkg.in/yaml.v3"
)

// File is the on-disk layout of a content fixture.
type File struct {
	Collections []models.Collection `yaml:"collections"`
}

// LoadFile reads and validates a YAML content file.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read content file: %w", err)
	}
	return ParseFile(data)
}

// ParseFile decodes and validates YAML content.
func ParseFile(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse content file: %w", err)
	}

	seen := make(map[string]bool, len(f.Collections))
	for i := range f.Collections {
		c := &f.Collections[i]
		if err := c.Validate(); err != nil {
			return nil, err
		}
		if seen[c.ID] {
			return nil, fmt.Errorf("duplicate collection %q", c.ID)
		}
		seen[c.ID] = true
		c.Normalize()
	}
	return &f, nil
}

// FileRepository serves queues from a parsed content file.
type FileRepository struct {
	collections map[string]models.Collection
}

// NewFileRepository indexes the collections of f.
func NewFileRepository(f *File) *FileRepository {
	r := &FileRepository{collections: make(map[string]models.Collection, len(f.Collections))}
	for _, c := range f.Collections {
		r.collections[c.ID] = c
	}
	return r
}

// Collection returns the named collection.
func (r *FileRepository) Collection(id string) (models.Collection, bool) {
	c, ok := r.collections[id]
	return c, ok
}

// FetchQueue implements Repository.
func (r *FileRepository) FetchQueue(_ context.Context, q Query) ([]models.MediaItem, error) {
	c, ok := r.collections[q.CollectionID]
	if !ok || len(c.Items) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, q.CollectionID)
	}
	items := append([]models.MediaItem(nil), c.Items...)
	return applyLimit(items, q.Limit), nil
}
