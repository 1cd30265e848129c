package api

import (
	"errors"
	"fmt"
	"time"

	"github.com/g960059/tiledash/internal/model"
)

const SchemaVersion = "v1"

var ErrUnsupportedSchema = errors.New("unsupported schema_version")

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	SchemaVersion string    `json:"schema_version"`
	GeneratedAt   time.Time `json:"generated_at"`
	Error         APIError  `json:"error"`
}

type IntentSpec struct {
	Action    string            `json:"action,omitempty"`
	Component string            `json:"component,omitempty"`
	Extras    map[string]string `json:"extras,omitempty"`
	Flags     int               `json:"flags,omitempty"`
}

type TileSpec struct {
	Key           string      `json:"key,omitempty"`
	Title         string      `json:"title"`
	Summary       string      `json:"summary,omitempty"`
	Icon          string      `json:"icon,omitempty"`
	Fragment      string      `json:"fragment,omitempty"`
	Intent        *IntentSpec `json:"intent,omitempty"`
	IntentAction  string      `json:"intent_action,omitempty"`
	Priority      int         `json:"priority,omitempty"`
	OwningPackage string      `json:"owning_package"`
	UserHandles   []int       `json:"user_handles,omitempty"`
}

type CategorySpec struct {
	Key   string     `json:"key"`
	Title string     `json:"title,omitempty"`
	Tiles []TileSpec `json:"tiles"`
}

// Catalog is the import file format.
type Catalog struct {
	SchemaVersion string         `json:"schema_version"`
	Packages      []string       `json:"packages,omitempty"`
	Profiles      []ProfileSpec  `json:"profiles,omitempty"`
	Categories    []CategorySpec `json:"categories"`
}

type ProfileSpec struct {
	User int    `json:"user"`
	Name string `json:"name,omitempty"`
}

// ModelCategories converts the catalog after checking its schema_version.
func (c Catalog) ModelCategories() ([]model.Category, error) {
	if c.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("catalog schema_version=%q: %w", c.SchemaVersion, ErrUnsupportedSchema)
	}
	out := make([]model.Category, 0, len(c.Categories))
	for _, cs := range c.Categories {
		cat := model.Category{Key: cs.Key, Title: cs.Title}
		for i, ts := range cs.Tiles {
			t, err := ts.ModelTile()
			if err != nil {
				return nil, fmt.Errorf("category %s tile %d: %w", cs.Key, i, err)
			}
			cat.Tiles = append(cat.Tiles, t)
		}
		out = append(out, cat)
	}
	return out, nil
}

func (ts TileSpec) ModelTile() (model.Tile, error) {
	t := model.Tile{
		Key:           ts.Key,
		Title:         ts.Title,
		Summary:       ts.Summary,
		Icon:          ts.Icon,
		Fragment:      ts.Fragment,
		IntentAction:  ts.IntentAction,
		Priority:      ts.Priority,
		OwningPackage: ts.OwningPackage,
	}
	for _, u := range ts.UserHandles {
		t.UserHandles = append(t.UserHandles, model.UserHandle(u))
	}
	if ts.Intent != nil {
		intent := model.Intent{Action: ts.Intent.Action, Flags: model.IntentFlag(ts.Intent.Flags)}
		if ts.Intent.Component != "" {
			cn, err := model.ParseComponent(ts.Intent.Component)
			if err != nil {
				return model.Tile{}, err
			}
			intent.Component = &cn
		}
		if len(ts.Intent.Extras) > 0 {
			intent.Extras = ts.Intent.Extras
		}
		t.Intent = &intent
	}
	return t, nil
}

type CategoryResponse struct {
	Key       string `json:"key"`
	Title     string `json:"title"`
	TileCount int    `json:"tile_count"`
}

type CategoriesEnvelope struct {
	SchemaVersion string             `json:"schema_version"`
	GeneratedAt   time.Time          `json:"generated_at"`
	Categories    []CategoryResponse `json:"categories"`
}

type ItemResponse struct {
	Key           string `json:"key"`
	Order         *int   `json:"order,omitempty"`
	PriorityGroup *int   `json:"priority_group,omitempty"`
	Title         string `json:"title"`
	Summary       string `json:"summary,omitempty"`
	Icon          string `json:"icon,omitempty"`
	Kind          string `json:"kind"`
	Fragment      string `json:"fragment,omitempty"`
	Action        string `json:"action,omitempty"`
	Component     string `json:"component,omitempty"`
}

type ItemsEnvelope struct {
	SchemaVersion string         `json:"schema_version"`
	GeneratedAt   time.Time      `json:"generated_at"`
	Category      string         `json:"category"`
	Items         []ItemResponse `json:"items"`
}

type PlanResponse struct {
	Kind       string `json:"kind"`
	State      string `json:"state"`
	Action     string `json:"action,omitempty"`
	Component  string `json:"component,omitempty"`
	User       *int   `json:"user,omitempty"`
	Candidates []int  `json:"candidates,omitempty"`
}

type PlanEnvelope struct {
	SchemaVersion string       `json:"schema_version"`
	GeneratedAt   time.Time    `json:"generated_at"`
	Plan          PlanResponse `json:"plan"`
}

type LaunchResponse struct {
	LaunchID   string `json:"launch_id"`
	Component  string `json:"component"`
	RecordedAt string `json:"recorded_at"`
}

type LaunchesEnvelope struct {
	SchemaVersion string           `json:"schema_version"`
	GeneratedAt   time.Time        `json:"generated_at"`
	Launches      []LaunchResponse `json:"launches"`
}
