// Package siteconfig builds the per-wiki configuration snapshot consumed by
// the host application at activation.
//
// The snapshot replaces the ambient mutable globals a wiki engine would
// otherwise patch at startup: a Builder collects the resolved state once,
// Build freezes it, and the result is passed explicitly to whatever needs it.
// Re-activating a process for a different wiki means building a new snapshot,
// never mutating an existing one.
package siteconfig

import (
	"encoding/json"
	"maps"
	"slices"

	"github.com/wikifarm/farmd/internal/domain/namespace"
	"github.com/wikifarm/farmd/internal/domain/permission"
)

// SiteConfig is an immutable configuration snapshot for one wiki activation.
// All accessor methods return copies; the underlying state is never exposed.
type SiteConfig struct {
	dbname   string
	settings map[string]json.RawMessage

	extraNamespaces   map[int]string
	subpageNamespaces map[int]bool
	contentNamespaces []int
	namespaceGuards   map[int]string
	namespaceAliases  map[string]int
	groupPermissions  map[string]map[string]bool
	groupAddGroups    map[string][]string
	groupRemoveGroups map[string][]string
}

// DBName returns the wiki the snapshot was built for.
func (c *SiteConfig) DBName() string { return c.dbname }

// Setting returns the effective value for key.
func (c *SiteConfig) Setting(key string) (json.RawMessage, bool) {
	v, ok := c.settings[key]
	return v, ok
}

// Settings returns a copy of the full effective settings map.
func (c *SiteConfig) Settings() map[string]json.RawMessage {
	return maps.Clone(c.settings)
}

// ExtraNamespaces returns id → name for all custom namespaces, talk
// companions included.
func (c *SiteConfig) ExtraNamespaces() map[int]string {
	return maps.Clone(c.extraNamespaces)
}

// SubpageNamespaces returns the ids with subpages enabled.
func (c *SiteConfig) SubpageNamespaces() map[int]bool {
	return maps.Clone(c.subpageNamespaces)
}

// ContentNamespaces returns the ids flagged as content namespaces, ascending.
func (c *SiteConfig) ContentNamespaces() []int {
	return slices.Clone(c.contentNamespaces)
}

// NamespaceProtection returns id → required permission.
func (c *SiteConfig) NamespaceProtection() map[int]string {
	return maps.Clone(c.namespaceGuards)
}

// NamespaceAliases returns alias → id.
func (c *SiteConfig) NamespaceAliases() map[string]int {
	return maps.Clone(c.namespaceAliases)
}

// GroupPermissions returns group → permission → granted.
func (c *SiteConfig) GroupPermissions() map[string]map[string]bool {
	out := make(map[string]map[string]bool, len(c.groupPermissions))
	for g, perms := range c.groupPermissions {
		out[g] = maps.Clone(perms)
	}
	return out
}

// GroupAddGroups returns group → groups its members may add others to.
func (c *SiteConfig) GroupAddGroups() map[string][]string {
	return cloneStringSliceMap(c.groupAddGroups)
}

// GroupRemoveGroups returns group → groups its members may remove others from.
func (c *SiteConfig) GroupRemoveGroups() map[string][]string {
	return cloneStringSliceMap(c.groupRemoveGroups)
}

func cloneStringSliceMap(m map[string][]string) map[string][]string {
	out := make(map[string][]string, len(m))
	for k, v := range m {
		out[k] = slices.Clone(v)
	}
	return out
}

// Builder accumulates resolved wiki state and freezes it into a SiteConfig.
// Not safe for concurrent use; build one per activation.
type Builder struct {
	cfg *SiteConfig
}

// NewBuilder starts a snapshot for the given wiki.
func NewBuilder(dbname string) *Builder {
	return &Builder{cfg: &SiteConfig{
		dbname:            dbname,
		settings:          make(map[string]json.RawMessage),
		extraNamespaces:   make(map[int]string),
		subpageNamespaces: make(map[int]bool),
		namespaceGuards:   make(map[int]string),
		namespaceAliases:  make(map[string]int),
		groupPermissions:  make(map[string]map[string]bool),
		groupAddGroups:    make(map[string][]string),
		groupRemoveGroups: make(map[string][]string),
	}}
}

// WithSettings copies the effective settings map into the snapshot.
func (b *Builder) WithSettings(settings map[string]json.RawMessage) *Builder {
	maps.Copy(b.cfg.settings, settings)
	return b
}

// AddNamespace projects one namespace override into the snapshot, registering
// the talk companion alongside the primary id.
func (b *Builder) AddNamespace(ns namespace.Namespace) *Builder {
	c := b.cfg
	c.extraNamespaces[ns.ID] = ns.Name
	c.extraNamespaces[ns.TalkID()] = ns.TalkName()

	if ns.Subpages {
		c.subpageNamespaces[ns.ID] = true
		c.subpageNamespaces[ns.TalkID()] = true
	}
	if ns.Content {
		c.contentNamespaces = append(c.contentNamespaces, ns.ID)
	}
	if ns.Protection != "" {
		c.namespaceGuards[ns.ID] = ns.Protection
	}
	for _, alias := range ns.Aliases {
		c.namespaceAliases[alias] = ns.ID
	}
	return b
}

// AddGroup projects one permission group override into the snapshot.
func (b *Builder) AddGroup(g permission.Group) *Builder {
	c := b.cfg
	perms, ok := c.groupPermissions[g.Name]
	if !ok {
		perms = make(map[string]bool, len(g.Permissions))
		c.groupPermissions[g.Name] = perms
	}
	maps.Copy(perms, g.Permissions)

	if len(g.AddGroups) > 0 {
		c.groupAddGroups[g.Name] = slices.Clone(g.AddGroups)
	}
	if len(g.RemoveGroups) > 0 {
		c.groupRemoveGroups[g.Name] = slices.Clone(g.RemoveGroups)
	}
	return b
}

// Build freezes and returns the snapshot. The builder must not be reused.
func (b *Builder) Build() *SiteConfig {
	slices.Sort(b.cfg.contentNamespaces)
	cfg := b.cfg
	b.cfg = nil
	return cfg
}
