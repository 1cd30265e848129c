package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/g960059/tiledash/internal/api"
	"github.com/g960059/tiledash/internal/config"
	"github.com/g960059/tiledash/internal/launch"
	"github.com/g960059/tiledash/internal/model"
)

const catalogJSON = `{
  "schema_version": "v1",
  "packages": ["com.android.settings", "pkg.A"],
  "profiles": [{"user": 0, "name": "owner"}, {"user": 10, "name": "work"}],
  "categories": [
    {"key": "device", "title": "Device", "tiles": [
      {"title": "Display", "fragment": "com.android.settings.DisplayFragment", "intent": {"component": "com.android.settings/.DisplaySettings"}, "priority": 100, "owning_package": "com.android.settings"},
      {"title": "Foo", "intent": {"component": "pkg.A/.Foo"}, "priority": 10, "owning_package": "pkg.A"},
      {"key": "foo_work", "title": "Foo (work)", "intent": {"component": "pkg.A/.FooWork"}, "priority": 5, "owning_package": "pkg.A", "user_handles": [0, 10]},
      {"key": "gone", "title": "Uninstalled", "intent": {"component": "pkg.Gone/.Main"}, "owning_package": "pkg.Gone"},
      {"title": "Broken", "owning_package": "pkg.B"}
    ]},
    {"key": "network", "title": "Network", "tiles": []}
  ]
}`

func newTestRunner(t *testing.T) (*Runner, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.DBPath = filepath.Join(t.TempDir(), "catalog.db")
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return NewRunner(cfg, out, errOut), out, errOut
}

func importCatalog(t *testing.T, r *Runner, out, errOut *bytes.Buffer) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.json")
	if err := os.WriteFile(path, []byte(catalogJSON), 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	if code := r.Run(context.Background(), []string{"import", path}); code != 0 {
		t.Fatalf("expected exit 0, got %d stderr=%s", code, errOut.String())
	}
	if !strings.Contains(out.String(), "imported 2 categories") {
		t.Fatalf("unexpected import output: %s", out.String())
	}
	out.Reset()
}

func TestCategoriesListsImportedCatalog(t *testing.T) {
	r, out, errOut := newTestRunner(t)
	importCatalog(t, r, out, errOut)

	if code := r.Run(context.Background(), []string{"categories"}); code != 0 {
		t.Fatalf("expected exit 0, got %d stderr=%s", code, errOut.String())
	}
	if !strings.Contains(out.String(), "device\tDevice\t5\nnetwork\tNetwork\t0\n") {
		t.Fatalf("unexpected categories output: %q", out.String())
	}
}

func TestTilesJSONBindsItems(t *testing.T) {
	r, out, errOut := newTestRunner(t)
	importCatalog(t, r, out, errOut)

	args := []string{"tiles", "device", "--caller-package", "pkg.B", "--base-order", "0", "--json"}
	if code := r.Run(context.Background(), args); code != 0 {
		t.Fatalf("expected exit 0, got %d stderr=%s", code, errOut.String())
	}
	var env api.ItemsEnvelope
	if err := json.Unmarshal(out.Bytes(), &env); err != nil {
		t.Fatalf("decode items: %v\n%s", err, out.String())
	}
	if len(env.Items) != 4 {
		t.Fatalf("expected 4 bound items (broken tile skipped), got %d", len(env.Items))
	}
	foo := env.Items[1]
	if foo.Key != "dashboard_tile_pref_pkg.A.Foo" || foo.Order == nil || *foo.Order != -10 || foo.Kind != "launch" {
		t.Fatalf("unexpected foo item: %+v", foo)
	}
	if env.Items[0].Kind != "navigate" || env.Items[0].Fragment != "com.android.settings.DisplayFragment" {
		t.Fatalf("unexpected display item: %+v", env.Items[0])
	}
	if env.Items[3].Order != nil {
		t.Fatalf("expected zero priority tile to leave order unset: %+v", env.Items[3])
	}
}

func TestTilesBaseOrderSkippedForCallerPackage(t *testing.T) {
	r, out, errOut := newTestRunner(t)
	importCatalog(t, r, out, errOut)

	if code := r.Run(context.Background(), []string{"tiles", "device", "--caller-package", "pkg.A", "--base-order", "200"}); code != 0 {
		t.Fatalf("expected exit 0, got %d stderr=%s", code, errOut.String())
	}
	if !strings.Contains(out.String(), "dashboard_tile_pref_pkg.A.Foo\t-10\tlaunch\tFoo\n") {
		t.Fatalf("expected same-package exemption, got %q", out.String())
	}
	if !strings.Contains(out.String(), "dashboard_tile_pref_com.android.settings.DisplaySettings\t100\tnavigate\tDisplay\n") {
		t.Fatalf("expected offset for foreign package, got %q", out.String())
	}
}

func TestOpenLaunchesAsCallerUserAndRecords(t *testing.T) {
	r, out, errOut := newTestRunner(t)
	importCatalog(t, r, out, errOut)

	if code := r.Run(context.Background(), []string{"open", "device", "dashboard_tile_pref_pkg.A.Foo"}); code != 0 {
		t.Fatalf("expected exit 0, got %d stderr=%s", code, errOut.String())
	}
	if out.String() != "launch\tuser=0\tpkg.A/.Foo\n" {
		t.Fatalf("unexpected launch output: %q", out.String())
	}

	out.Reset()
	if code := r.Run(context.Background(), []string{"launches"}); code != 0 {
		t.Fatalf("expected exit 0, got %d stderr=%s", code, errOut.String())
	}
	if !strings.HasSuffix(out.String(), "\tpkg.A/.Foo\n") || strings.Count(out.String(), "\n") != 1 {
		t.Fatalf("expected exactly one launch record, got %q", out.String())
	}
}

func TestOpenMultiProfileRequiresSelection(t *testing.T) {
	r, out, errOut := newTestRunner(t)
	importCatalog(t, r, out, errOut)

	if code := r.Run(context.Background(), []string{"open", "device", "foo_work", "--json"}); code != 0 {
		t.Fatalf("expected exit 0, got %d stderr=%s", code, errOut.String())
	}
	var env api.PlanEnvelope
	if err := json.Unmarshal(out.Bytes(), &env); err != nil {
		t.Fatalf("decode plan: %v", err)
	}
	if env.Plan.State != "choose_profile" || len(env.Plan.Candidates) != 2 || env.Plan.Candidates[1] != 10 {
		t.Fatalf("unexpected plan: %+v", env.Plan)
	}

	out.Reset()
	if code := r.Run(context.Background(), []string{"open", "device", "foo_work", "--select", "10", "--json"}); code != 0 {
		t.Fatalf("expected exit 0, got %d stderr=%s", code, errOut.String())
	}
	body := out.String()
	jsonStart := strings.Index(body, "{")
	if jsonStart < 0 {
		t.Fatalf("expected JSON output, got %q", body)
	}
	if !strings.HasPrefix(body, "launch\tuser=10\tpkg.A/.FooWork\n") {
		t.Fatalf("expected dispatch as user 10, got %q", body)
	}
	env = api.PlanEnvelope{}
	if err := json.Unmarshal([]byte(body[jsonStart:]), &env); err != nil {
		t.Fatalf("decode plan: %v", err)
	}
	if env.Plan.State != "dispatched" || env.Plan.User == nil || *env.Plan.User != 10 {
		t.Fatalf("unexpected dispatched plan: %+v", env.Plan)
	}

	out.Reset()
	if code := r.Run(context.Background(), []string{"open", "device", "foo_work", "--select", "7"}); code != 1 {
		t.Fatalf("expected invalid selection to exit 1, got %d", code)
	}
}

func TestOpenUninstalledPackageFails(t *testing.T) {
	r, out, errOut := newTestRunner(t)
	importCatalog(t, r, out, errOut)

	if code := r.Run(context.Background(), []string{"open", "device", "gone"}); code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(errOut.String(), "unresolvable component") {
		t.Fatalf("expected unresolvable component error, got %q", errOut.String())
	}
}

func TestOpenFragmentNavigates(t *testing.T) {
	r, out, errOut := newTestRunner(t)
	importCatalog(t, r, out, errOut)

	if code := r.Run(context.Background(), []string{"open", "device", "dashboard_tile_pref_com.android.settings.DisplaySettings"}); code != 0 {
		t.Fatalf("expected exit 0, got %d stderr=%s", code, errOut.String())
	}
	if out.String() != "navigate\tcom.android.settings.DisplayFragment\n" {
		t.Fatalf("unexpected output: %q", out.String())
	}
}

func TestUsageErrorsExitTwo(t *testing.T) {
	r, _, errOut := newTestRunner(t)
	if code := r.Run(context.Background(), []string{"tiles"}); code != 2 {
		t.Fatalf("expected exit 2 for missing category, got %d", code)
	}
	if code := r.Run(context.Background(), []string{"launches", "--limit", "many"}); code != 2 {
		t.Fatalf("expected exit 2 for bad flag, got %d", code)
	}
	if !strings.Contains(errOut.String(), "usage: tiledash tiles") {
		t.Fatalf("expected usage in stderr, got %q", errOut.String())
	}
}

func TestOpenAppliesTopLevelIntentDecorations(t *testing.T) {
	r, out, errOut := newTestRunner(t)
	importCatalog(t, r, out, errOut)
	var started []launch.Plan
	r.WithLauncher(launch.LauncherFunc(func(_ context.Context, plan launch.Plan) error {
		started = append(started, plan)
		return nil
	}))

	if code := r.Run(context.Background(), []string{"open", "Device", "dashboard_tile_pref_pkg.A.Foo"}); code != 0 {
		t.Fatalf("expected exit 0, got %d stderr=%s", code, errOut.String())
	}
	if len(started) != 1 {
		t.Fatalf("expected one dispatch, got %d", len(started))
	}
	plan, ok := started[0].(launch.AsUser)
	if !ok || plan.Intent.Extras[model.ExtraShowMenu] != "true" || plan.Intent.Flags&model.FlagClearTask == 0 {
		t.Fatalf("unexpected dispatched plan: %#v", started[0])
	}
}

func TestHomeOpensSettings(t *testing.T) {
	r, out, errOut := newTestRunner(t)
	if code := r.Run(context.Background(), []string{"home"}); code != 0 {
		t.Fatalf("expected exit 0, got %d stderr=%s", code, errOut.String())
	}
	if out.String() != "launch\tdirect\t"+model.ActionSettings+"\n" {
		t.Fatalf("unexpected home output: %q", out.String())
	}
}

func TestTilesCategoryLookupIgnoresCase(t *testing.T) {
	r, out, errOut := newTestRunner(t)
	importCatalog(t, r, out, errOut)

	if code := r.Run(context.Background(), []string{"tiles", "DEVICE"}); code != 0 {
		t.Fatalf("expected exit 0, got %d stderr=%s", code, errOut.String())
	}
	if strings.Count(out.String(), "\n") != 4 {
		t.Fatalf("expected 4 items for mixed-case category, got %q", out.String())
	}
}

func TestJSONErrorEnvelopeCodes(t *testing.T) {
	r, out, errOut := newTestRunner(t)
	importCatalog(t, r, out, errOut)

	cases := []struct {
		args []string
		code string
	}{
		{[]string{"open", "device", "gone", "--json"}, model.ErrCodeUnresolvableComponent},
		{[]string{"open", "device", "missing", "--json"}, model.ErrCodeNotFound},
		{[]string{"open", "device", "foo_work", "--select", "7", "--json"}, model.ErrCodeInvalidSelection},
	}
	for _, tc := range cases {
		out.Reset()
		if code := r.Run(context.Background(), tc.args); code != 1 {
			t.Fatalf("%v: expected exit 1, got %d", tc.args, code)
		}
		var env api.ErrorResponse
		if err := json.Unmarshal(out.Bytes(), &env); err != nil {
			t.Fatalf("%v: decode error envelope: %v\n%s", tc.args, err, out.String())
		}
		if env.Error.Code != tc.code || env.SchemaVersion != api.SchemaVersion {
			t.Fatalf("%v: expected code %s, got %+v", tc.args, tc.code, env)
		}
	}

	out.Reset()
	if code := r.Run(context.Background(), []string{"open", "device", "gone"}); code != 1 || out.Len() != 0 {
		t.Fatalf("expected plain failure without envelope, got code=%d out=%q", code, out.String())
	}
}

func TestImportRejectsUnsupportedSchema(t *testing.T) {
	r, out, _ := newTestRunner(t)
	path := filepath.Join(t.TempDir(), "catalog.json")
	raw := strings.Replace(catalogJSON, `"schema_version": "v1"`, `"schema_version": "v2"`, 1)
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	if code := r.Run(context.Background(), []string{"import", path, "--json"}); code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	var env api.ErrorResponse
	if err := json.Unmarshal(out.Bytes(), &env); err != nil {
		t.Fatalf("decode error envelope: %v\n%s", err, out.String())
	}
	if env.Error.Code != model.ErrCodeUnsupportedSchema {
		t.Fatalf("unexpected error code: %+v", env.Error)
	}
}
