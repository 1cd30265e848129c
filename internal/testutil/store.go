package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/g960059/tiledash/internal/db"
	"github.com/g960059/tiledash/internal/model"
)

func NewStore(t *testing.T) (*db.Store, context.Context) {
	t.Helper()
	ctx := context.Background()
	store, err := db.Open(ctx, filepath.Join(t.TempDir(), "tiledash-test.db"))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	if err := db.ApplyMigrations(ctx, store.DB()); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return store, ctx
}

func Intent(component string) *model.Intent {
	cn := model.MustParseComponent(component)
	return &model.Intent{Component: &cn}
}

// DeviceCategory is a small catalog mixing first-party, vendor and multi-profile tiles.
func DeviceCategory() model.Category {
	return model.Category{
		Key:   "device",
		Title: "Device",
		Tiles: []model.Tile{
			{
				Title:         "Display",
				Summary:       "Brightness, wallpaper",
				Fragment:      "com.settings.DisplayFragment",
				Intent:        Intent("com.settings/.DisplaySettings"),
				Priority:      100,
				OwningPackage: "com.settings",
			},
			{
				Title:         "Foo",
				Intent:        Intent("pkg.A/.Foo"),
				Priority:      10,
				OwningPackage: "pkg.A",
				UserHandles:   []model.UserHandle{0, 10},
			},
			{
				Key:           "vendor_battery",
				Title:         "Battery",
				Intent:        &model.Intent{Action: "com.vendor.BATTERY", Extras: map[string]string{"source": "tile"}},
				IntentAction:  "com.vendor.BATTERY_DETAILS",
				OwningPackage: "com.vendor",
			},
		},
	}
}

func SeedCatalog(t *testing.T, store *db.Store, ctx context.Context, categories ...model.Category) {
	t.Helper()
	if len(categories) == 0 {
		categories = []model.Category{DeviceCategory()}
	}
	if err := store.ImportCatalog(ctx, categories); err != nil {
		t.Fatalf("seed catalog: %v", err)
	}
}
