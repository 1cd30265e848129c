package registry_test

import (
	"context"
	"testing"

	"github.com/g960059/tiledash/internal/db"
	"github.com/g960059/tiledash/internal/launch"
	"github.com/g960059/tiledash/internal/model"
	"github.com/g960059/tiledash/internal/registry"
	"github.com/g960059/tiledash/internal/testutil"
	"github.com/g960059/tiledash/internal/tile"
)

func TestProviderOverStoreBindsAndRecordsLaunch(t *testing.T) {
	store, ctx := testutil.NewStore(t)
	testutil.SeedCatalog(t, store, ctx)

	vendor := registry.NewStaticSource(model.Category{Key: "device", Tiles: []model.Tile{
		{Title: "Vendor display", Intent: testutil.Intent("com.settings/.DisplaySettings"), OwningPackage: "com.vendor"},
	}})
	contributors := registry.NewContributors()
	for _, c := range []registry.Contributor{
		{Name: "catalog", Package: "com.settings", ContractVersion: "v1", Source: store},
		{Name: "vendor", Package: "com.vendor", ContractVersion: "v1", Source: vendor},
	} {
		if err := contributors.Register(c); err != nil {
			t.Fatalf("register %s: %v", c.Name, err)
		}
	}

	resolver := launch.NewResolver(db.NewLaunchLog(store, nil, 0), 0)
	p := registry.NewProvider(contributors.Source(), resolver)

	items, err := p.ItemsForCategory(ctx, "device", "com.settings")
	if err != nil {
		t.Fatalf("items: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected vendor duplicate to be dropped, got %d items", len(items))
	}
	display, foo, battery := items[0], items[1], items[2]
	if display.Title != "Display" || display.Kind != tile.ItemNavigate || display.Order != -100 {
		t.Fatalf("unexpected display item: %+v", display)
	}
	if foo.Key != "dashboard_tile_pref_pkg.A.Foo" || foo.Order != -10 || foo.Kind != tile.ItemLaunch {
		t.Fatalf("unexpected foo item: %+v", foo)
	}
	if battery.Key != "vendor_battery" || battery.Order != tile.OrderUnset || battery.Launch.Intent().Action != "com.vendor.BATTERY_DETAILS" {
		t.Fatalf("unexpected battery item: %+v", battery)
	}

	var started []launch.Plan
	launcher := launch.LauncherFunc(func(_ context.Context, plan launch.Plan) error {
		started = append(started, plan)
		return nil
	})
	selector := launch.SelectorFunc(func(_ context.Context, candidates []model.UserHandle) (model.UserHandle, bool, error) {
		return candidates[len(candidates)-1], true, nil
	})
	outcome, err := foo.Launch.Activate(ctx, launcher, selector)
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	asUser, ok := outcome.Plan.(launch.AsUser)
	if outcome.State != launch.StateDispatched || !ok || asUser.User != 10 {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if len(started) != 1 {
		t.Fatalf("expected one dispatch, got %d", len(started))
	}

	records, err := store.ListLaunches(ctx, 0)
	if err != nil {
		t.Fatalf("list launches: %v", err)
	}
	if len(records) != 1 || records[0].Component != "pkg.A/.Foo" {
		t.Fatalf("unexpected launch records: %+v", records)
	}
}
