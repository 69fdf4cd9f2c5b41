package siteconfig

import (
	"encoding/json"
	"testing"

	"github.com/wikifarm/farmd/internal/domain/namespace"
	"github.com/wikifarm/farmd/internal/domain/permission"
)

func TestBuilderProjectsNamespaces(t *testing.T) {
	cfg := NewBuilder("testwiki").
		AddNamespace(namespace.Namespace{
			ID: 3002, Name: "Portal", Subpages: true, Content: true,
			Protection: "editinterface", Aliases: []string{"P", "Portals"},
		}).
		AddNamespace(namespace.Namespace{ID: 3000, Name: "Archive", Content: true}).
		Build()

	extra := cfg.ExtraNamespaces()
	if extra[3002] != "Portal" || extra[3003] != "Portal_talk" {
		t.Errorf("extra namespaces = %v", extra)
	}
	if extra[3000] != "Archive" || extra[3001] != "Archive_talk" {
		t.Errorf("extra namespaces = %v", extra)
	}

	sub := cfg.SubpageNamespaces()
	if !sub[3002] || !sub[3003] {
		t.Errorf("subpage namespaces = %v", sub)
	}
	if sub[3000] {
		t.Error("subpages set for namespace without the flag")
	}

	content := cfg.ContentNamespaces()
	if len(content) != 2 || content[0] != 3000 || content[1] != 3002 {
		t.Errorf("content namespaces = %v, want ascending [3000 3002]", content)
	}

	if prot := cfg.NamespaceProtection(); prot[3002] != "editinterface" {
		t.Errorf("protection = %v", prot)
	}
	aliases := cfg.NamespaceAliases()
	if aliases["P"] != 3002 || aliases["Portals"] != 3002 {
		t.Errorf("aliases = %v", aliases)
	}
}

func TestBuilderProjectsGroups(t *testing.T) {
	cfg := NewBuilder("testwiki").
		AddGroup(permission.Group{
			Name:        "sysop",
			Permissions: map[string]bool{"delete": true, "block": true},
			AddGroups:   []string{"rollbacker"},
		}).
		AddGroup(permission.Group{
			Name:        "sysop",
			Permissions: map[string]bool{"block": false, "protect": true},
		}).
		Build()

	perms := cfg.GroupPermissions()["sysop"]
	if !perms["delete"] || !perms["protect"] {
		t.Errorf("permissions = %v", perms)
	}
	// Later AddGroup wins on overlapping keys.
	if perms["block"] {
		t.Error("block should be overridden to false")
	}
	if add := cfg.GroupAddGroups()["sysop"]; len(add) != 1 || add[0] != "rollbacker" {
		t.Errorf("add groups = %v", add)
	}
}

func TestSnapshotAccessorsReturnClones(t *testing.T) {
	cfg := NewBuilder("testwiki").
		WithSettings(map[string]json.RawMessage{"wgSitename": json.RawMessage(`"A"`)}).
		AddNamespace(namespace.Namespace{ID: 3000, Name: "X"}).
		Build()

	settings := cfg.Settings()
	settings["wgSitename"] = json.RawMessage(`"B"`)
	if v, _ := cfg.Setting("wgSitename"); string(v) != `"A"` {
		t.Error("settings mutation leaked into snapshot")
	}

	extra := cfg.ExtraNamespaces()
	extra[5000] = "Injected"
	if _, ok := cfg.ExtraNamespaces()[5000]; ok {
		t.Error("namespace mutation leaked into snapshot")
	}
}
