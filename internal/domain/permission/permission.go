// Package permission defines per-wiki user group permission overrides.
package permission

import "slices"

// Group is one permission group override for a wiki. Permissions maps
// permission keys to grant/revoke; AddGroups and RemoveGroups list the groups
// members of this group may add others to or remove them from.
type Group struct {
	DBName       string          `json:"dbname"`
	Name         string          `json:"group"`
	Permissions  map[string]bool `json:"permissions"`
	AddGroups    []string        `json:"addgroups,omitempty"`
	RemoveGroups []string        `json:"removegroups,omitempty"`
}

// UpdateRequest holds the full replacement state of a group (upsert
// semantics, matching the storage contract).
type UpdateRequest struct {
	Permissions  map[string]bool `json:"permissions"`
	AddGroups    []string        `json:"addgroups,omitempty"`
	RemoveGroups []string        `json:"removegroups,omitempty"`
}

// defaultGroups exist on every wiki and can be modified but never deleted.
var defaultGroups = []string{"*", "user", "autoconfirmed", "bot", "sysop", "bureaucrat"}

// DefaultGroups returns the undeletable built-in group names.
func DefaultGroups() []string {
	return slices.Clone(defaultGroups)
}

// IsDefaultGroup reports whether name is one of the built-in groups.
func IsDefaultGroup(name string) bool {
	return slices.Contains(defaultGroups, name)
}
