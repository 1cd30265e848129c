package registry

import (
	"context"
	"fmt"

	"github.com/g960059/tiledash/internal/model"
)

// EntrySource supplies fresh snapshots of declared tiles. Returned slices are owned by the caller.
type EntrySource interface {
	Tiles(ctx context.Context, categoryKey string) ([]model.Tile, error)
	Categories(ctx context.Context) ([]model.Category, error)
}

type mergedSource struct {
	sources []EntrySource
}

// Merge combines independent contributors into one EntrySource. Categories keep
// first-seen order; tiles of a shared category are concatenated in source order and
// a tile whose component was already contributed is dropped.
func Merge(sources ...EntrySource) EntrySource {
	filtered := make([]EntrySource, 0, len(sources))
	for _, s := range sources {
		if s == nil {
			continue
		}
		filtered = append(filtered, s)
	}
	return &mergedSource{sources: filtered}
}

func (m *mergedSource) Tiles(ctx context.Context, categoryKey string) ([]model.Tile, error) {
	var all []model.Tile
	for i, s := range m.sources {
		tiles, err := s.Tiles(ctx, categoryKey)
		if err != nil {
			return nil, fmt.Errorf("source %d tiles for %s: %w", i, categoryKey, err)
		}
		all = append(all, tiles...)
	}
	return dedupeTiles(all), nil
}

func (m *mergedSource) Categories(ctx context.Context) ([]model.Category, error) {
	order := make([]string, 0)
	byKey := map[string]*model.Category{}
	for i, s := range m.sources {
		cats, err := s.Categories(ctx)
		if err != nil {
			return nil, fmt.Errorf("source %d categories: %w", i, err)
		}
		for _, c := range cats {
			key := model.NormalizeCategoryKey(c.Key)
			existing, ok := byKey[key]
			if !ok {
				cp := model.Category{Key: c.Key, Title: c.Title}
				byKey[key] = &cp
				order = append(order, key)
				existing = &cp
			}
			if existing.Title == "" {
				existing.Title = c.Title
			}
			existing.Tiles = append(existing.Tiles, c.Tiles...)
		}
	}
	out := make([]model.Category, 0, len(order))
	for _, key := range order {
		c := byKey[key]
		c.Tiles = dedupeTiles(c.Tiles)
		out = append(out, *c)
	}
	return out, nil
}

func dedupeTiles(tiles []model.Tile) []model.Tile {
	seen := map[string]struct{}{}
	out := make([]model.Tile, 0, len(tiles))
	for _, t := range tiles {
		if t.Intent != nil && t.Intent.HasComponent() {
			id := t.Intent.Component.Flatten()
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
		}
		out = append(out, t)
	}
	return out
}

// StaticSource serves a fixed set of categories. Useful for first-party tiles and tests.
type StaticSource struct {
	categories []model.Category
}

func NewStaticSource(categories ...model.Category) *StaticSource {
	return &StaticSource{categories: categories}
}

func (s *StaticSource) Tiles(_ context.Context, categoryKey string) ([]model.Tile, error) {
	key := model.NormalizeCategoryKey(categoryKey)
	for _, c := range s.categories {
		if model.NormalizeCategoryKey(c.Key) == key {
			return cloneTiles(c.Tiles), nil
		}
	}
	return nil, nil
}

func (s *StaticSource) Categories(context.Context) ([]model.Category, error) {
	out := make([]model.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, model.Category{Key: c.Key, Title: c.Title, Tiles: cloneTiles(c.Tiles)})
	}
	return out, nil
}

func cloneTiles(tiles []model.Tile) []model.Tile {
	if len(tiles) == 0 {
		return nil
	}
	out := make([]model.Tile, len(tiles))
	for i, t := range tiles {
		out[i] = t.Clone()
	}
	return out
}
