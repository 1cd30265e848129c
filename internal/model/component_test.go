package model

import "testing"

func TestParseComponentExpandsShortClass(t *testing.T) {
	cn, err := ParseComponent("pkg.A/.Foo")
	if err != nil {
		t.Fatalf("parse component: %v", err)
	}
	if cn.Package != "pkg.A" || cn.ClassName() != "pkg.A.Foo" {
		t.Fatalf("unexpected component: %+v", cn)
	}
	if got := cn.Flatten(); got != "pkg.A/.Foo" {
		t.Fatalf("expected short flatten form, got %q", got)
	}
}

func TestParseComponentKeepsForeignClass(t *testing.T) {
	cn := MustParseComponent("pkg.A/other.pkg.Bar")
	if cn.ClassName() != "other.pkg.Bar" {
		t.Fatalf("unexpected class: %q", cn.ClassName())
	}
	if got := cn.Flatten(); got != "pkg.A/other.pkg.Bar" {
		t.Fatalf("unexpected flatten: %q", got)
	}
}

func TestParseComponentRejectsMalformed(t *testing.T) {
	for _, raw := range []string{"", "pkg.A", "/Foo", "pkg.A/"} {
		if _, err := ParseComponent(raw); err == nil {
			t.Fatalf("expected %q to be rejected", raw)
		}
	}
}

func TestIntentCloneDoesNotAlias(t *testing.T) {
	cn := MustParseComponent("pkg.A/.Foo")
	orig := Intent{Action: "a", Component: &cn, Extras: map[string]string{"k": "v"}}
	cp := orig.Clone()
	cp.Extras["k"] = "changed"
	cp.Component.Class = "x.Y"
	if orig.Extras["k"] != "v" || orig.Component.Class != "pkg.A.Foo" {
		t.Fatalf("clone aliased source intent: %+v", orig)
	}
}

func TestTileDestinationPrefersFragment(t *testing.T) {
	cn := MustParseComponent("pkg.A/.Foo")
	tile := Tile{Fragment: "pkg.A.FooFragment", Intent: &Intent{Component: &cn}}
	if _, ok := tile.Destination().(FragmentNavigate); !ok {
		t.Fatalf("expected fragment destination, got %#v", tile.Destination())
	}
	tile.Fragment = ""
	if _, ok := tile.Destination().(IntentLaunch); !ok {
		t.Fatalf("expected intent destination, got %#v", tile.Destination())
	}
	tile.Intent = nil
	if tile.Destination() != nil {
		t.Fatalf("expected nil destination")
	}
}
