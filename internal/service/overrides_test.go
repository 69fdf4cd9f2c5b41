package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/wikifarm/farmd/internal/domain"
	"github.com/wikifarm/farmd/internal/domain/wiki"
)

func createWiki(t *testing.T, env *testEnv, dbname string) {
	t.Helper()
	_, err := env.registry.Create(context.Background(), "root", wiki.CreateRequest{
		DBName:   dbname,
		Sitename: "Wiki " + dbname,
		Language: "en",
	})
	if err != nil {
		t.Fatalf("create wiki %s: %v", dbname, err)
	}
}

func TestEffectiveSettingsMergesOverlayOntoDefaults(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	createWiki(t, env, "mergewiki")

	err := env.overrides.UpdateSettings(ctx, "root", "mergewiki", map[string]json.RawMessage{
		"wgSitename": json.RawMessage(`"Custom Name"`),
	})
	if err != nil {
		t.Fatalf("update settings: %v", err)
	}

	effective, err := env.overrides.EffectiveSettings(ctx, "mergewiki")
	if err != nil {
		t.Fatalf("effective settings: %v", err)
	}
	if string(effective["wgSitename"]) != `"Custom Name"` {
		t.Errorf("wgSitename = %s", effective["wgSitename"])
	}
	// Global default layer still visible where not overridden.
	if string(effective["wmgUseCite"]) != "true" {
		t.Errorf("wmgUseCite = %s, want default true", effective["wmgUseCite"])
	}
}

func TestEffectiveSettingsSkipsStaleKeys(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	createWiki(t, env, "stalewiki")

	// Write straight through the store: a key that was allow-listed once
	// but is no longer in the catalog.
	err := env.store.UpdateWikiSettings(ctx, "stalewiki", map[string]json.RawMessage{
		"wgUnknownKey": json.RawMessage(`"X"`),
		"wgSitename":   json.RawMessage(`"A"`),
	})
	if err != nil {
		t.Fatalf("store update: %v", err)
	}
	env.registry.Invalidate(ctx, "stalewiki")

	effective, err := env.overrides.EffectiveSettings(ctx, "stalewiki")
	if err != nil {
		t.Fatalf("effective settings: %v", err)
	}
	if string(effective["wgSitename"]) != `"A"` {
		t.Errorf("wgSitename = %s", effective["wgSitename"])
	}
	if _, ok := effective["wgUnknownKey"]; ok {
		t.Error("stale key surfaced in effective settings")
	}
}

func TestUpdateSettingsDropsUnknownAndValidatesKnown(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	createWiki(t, env, "valwiki")

	// Unknown keys are dropped silently, not stored.
	err := env.overrides.UpdateSettings(ctx, "root", "valwiki", map[string]json.RawMessage{
		"wgNotInCatalog": json.RawMessage(`"x"`),
	})
	if err != nil {
		t.Fatalf("update with unknown key: %v", err)
	}
	w, _ := env.store.GetWiki(ctx, "valwiki")
	if _, ok := w.Settings["wgNotInCatalog"]; ok {
		t.Error("unknown key was stored")
	}

	// A known key with an invalid value fails the whole update.
	err = env.overrides.UpdateSettings(ctx, "root", "valwiki", map[string]json.RawMessage{
		"wgLanguageCode": json.RawMessage(`"this-is-way-too-long"`),
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("invalid language: err = %v, want ErrValidation", err)
	}
}

func TestUpdateSettingsNormalizesValues(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	createWiki(t, env, "normwiki")

	err := env.overrides.UpdateSettings(ctx, "root", "normwiki", map[string]json.RawMessage{
		"wgEnableUploads":  json.RawMessage(`"0"`),
		"wgFileExtensions": json.RawMessage(`"png, jpg , gif"`),
	})
	if err != nil {
		t.Fatalf("update settings: %v", err)
	}

	w, _ := env.store.GetWiki(ctx, "normwiki")
	if string(w.Settings["wgEnableUploads"]) != "false" {
		t.Errorf("wgEnableUploads = %s, want coerced false", w.Settings["wgEnableUploads"])
	}
	if string(w.Settings["wgFileExtensions"]) != `["png","jpg","gif"]` {
		t.Errorf("wgFileExtensions = %s", w.Settings["wgFileExtensions"])
	}
}

func TestResetSettingRestoresDefault(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	createWiki(t, env, "resetwiki")

	err := env.overrides.UpdateSettings(ctx, "root", "resetwiki", map[string]json.RawMessage{
		"wgLogo": json.RawMessage(`"https://cdn.example/logo.png"`),
	})
	if err != nil {
		t.Fatalf("update settings: %v", err)
	}
	if err := env.overrides.ResetSetting(ctx, "root", "resetwiki", "wgLogo"); err != nil {
		t.Fatalf("reset: %v", err)
	}

	w, _ := env.store.GetWiki(ctx, "resetwiki")
	if _, ok := w.Settings["wgLogo"]; ok {
		t.Error("wgLogo still present after reset")
	}

	if err := env.overrides.ResetSetting(ctx, "root", "resetwiki", "wgNope"); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("reset unknown key: err = %v, want ErrValidation", err)
	}
}

func TestExtensionToggles(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	createWiki(t, env, "extwiki")

	// Cite is in the default layer.
	on, err := env.overrides.IsExtensionEnabled(ctx, "extwiki", "Cite")
	if err != nil {
		t.Fatalf("is enabled: %v", err)
	}
	if !on {
		t.Error("Cite should be enabled by default")
	}

	if err := env.overrides.EnableExtension(ctx, "root", "extwiki", "Gadgets"); err != nil {
		t.Fatalf("enable: %v", err)
	}
	on, _ = env.overrides.IsExtensionEnabled(ctx, "extwiki", "Gadgets")
	if !on {
		t.Error("Gadgets should be enabled")
	}

	if err := env.overrides.DisableExtension(ctx, "root", "extwiki", "Gadgets"); err != nil {
		t.Fatalf("disable: %v", err)
	}
	on, _ = env.overrides.IsExtensionEnabled(ctx, "extwiki", "Gadgets")
	if on {
		t.Error("Gadgets should be disabled")
	}

	if _, err := env.overrides.IsExtensionEnabled(ctx, "extwiki", "NoSuchThing"); !errors.Is(err, domain.ErrUnknownExtension) {
		t.Errorf("unknown extension: err = %v, want ErrUnknownExtension", err)
	}
}

func TestEnableExtensionRequirementChecks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	createWiki(t, env, "depwiki")

	// Give VisualEditor a requirement and InputBox a conflict for the test
	// catalog.
	ve := env.overrides.exts["VisualEditor"]
	ve.Requires = []string{"TemplateData"}
	env.overrides.exts["VisualEditor"] = ve

	ib := env.overrides.exts["InputBox"]
	ib.Conflicts = []string{"Cite"}
	env.overrides.exts["InputBox"] = ib

	before, _ := env.overrides.EffectiveSettings(ctx, "depwiki")

	err := env.overrides.EnableExtension(ctx, "root", "depwiki", "VisualEditor")
	if !errors.Is(err, domain.ErrUnmetRequirement) {
		t.Errorf("enable with unmet requirement: err = %v, want ErrUnmetRequirement", err)
	}

	err = env.overrides.EnableExtension(ctx, "root", "depwiki", "InputBox")
	if !errors.Is(err, domain.ErrConflict) {
		t.Errorf("enable with conflict: err = %v, want ErrConflict", err)
	}

	// Failed enables leave the overlay untouched.
	after, _ := env.overrides.EffectiveSettings(ctx, "depwiki")
	if len(after) != len(before) {
		t.Errorf("overlay changed: before %d keys, after %d", len(before), len(after))
	}
	for key, value := range before {
		if string(after[key]) != string(value) {
			t.Errorf("key %s changed from %s to %s", key, value, after[key])
		}
	}

	// Satisfying the requirement unblocks the enable.
	if err := env.overrides.EnableExtension(ctx, "root", "depwiki", "TemplateData"); err != nil {
		t.Fatalf("enable requirement: %v", err)
	}
	if err := env.overrides.EnableExtension(ctx, "root", "depwiki", "VisualEditor"); err != nil {
		t.Errorf("enable after requirement met: %v", err)
	}
}

func TestEnabledExtensionsListsDefaults(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	createWiki(t, env, "listwiki")

	names, err := env.overrides.EnabledExtensions(ctx, "listwiki")
	if err != nil {
		t.Fatalf("enabled extensions: %v", err)
	}
	want := []string{"Cite", "ParserFunctions", "WikiEditor"}
	if len(names) != len(want) {
		t.Fatalf("enabled = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("enabled[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}
