package api

import (
	"errors"
	"testing"
)

func TestModelCategoriesChecksSchemaVersion(t *testing.T) {
	for _, version := range []string{"", "v2", "V1"} {
		c := Catalog{SchemaVersion: version, Categories: []CategorySpec{{Key: "device"}}}
		if _, err := c.ModelCategories(); !errors.Is(err, ErrUnsupportedSchema) {
			t.Fatalf("schema_version %q: expected ErrUnsupportedSchema, got %v", version, err)
		}
	}

	c := Catalog{SchemaVersion: SchemaVersion, Categories: []CategorySpec{{Key: "device", Tiles: []TileSpec{
		{Title: "Foo", Intent: &IntentSpec{Component: "pkg.A/.Foo"}, OwningPackage: "pkg.A", UserHandles: []int{0, 10}},
	}}}}
	cats, err := c.ModelCategories()
	if err != nil {
		t.Fatalf("model categories: %v", err)
	}
	if len(cats) != 1 || len(cats[0].Tiles) != 1 || cats[0].Tiles[0].Intent.Component.Class != "pkg.A.Foo" {
		t.Fatalf("unexpected categories: %+v", cats)
	}
}
