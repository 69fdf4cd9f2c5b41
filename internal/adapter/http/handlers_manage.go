package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/wikifarm/farmd/internal/domain/namespace"
	"github.com/wikifarm/farmd/internal/domain/permission"
)

// GetSettings returns the wiki's effective settings: global defaults with
// the wiki's allow-listed overlay applied on top.
func (h *Handlers) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.Overrides.EffectiveSettings(r.Context(), urlParam(r, "dbname"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"settings": settings})
}

// UpdateSettings merges a partial overlay into the wiki's settings. Unknown
// keys are dropped; known keys are validated against their declared kind.
func (h *Handlers) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	partial, ok := readJSON[map[string]json.RawMessage](w, r)
	if !ok {
		return
	}
	dbname := urlParam(r, "dbname")
	if err := h.Overrides.UpdateSettings(r.Context(), actor(r), dbname, partial); err != nil {
		writeDomainError(w, err)
		return
	}
	settings, err := h.Overrides.EffectiveSettings(r.Context(), dbname)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"settings": settings})
}

// ResetSetting removes one key from the wiki's overlay.
func (h *Handlers) ResetSetting(w http.ResponseWriter, r *http.Request) {
	if err := h.Overrides.ResetSetting(r.Context(), actor(r), urlParam(r, "dbname"), urlParam(r, "key")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListEnabledExtensions returns the names of the wiki's enabled extensions.
func (h *Handlers) ListEnabledExtensions(w http.ResponseWriter, r *http.Request) {
	names, err := h.Overrides.EnabledExtensions(r.Context(), urlParam(r, "dbname"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"extensions": names})
}

// EnableExtension switches an extension on after dependency checks.
func (h *Handlers) EnableExtension(w http.ResponseWriter, r *http.Request) {
	if err := h.Overrides.EnableExtension(r.Context(), actor(r), urlParam(r, "dbname"), urlParam(r, "name")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DisableExtension switches an extension off.
func (h *Handlers) DisableExtension(w http.ResponseWriter, r *http.Request) {
	if err := h.Overrides.DisableExtension(r.Context(), actor(r), urlParam(r, "dbname"), urlParam(r, "name")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListNamespaces returns the wiki's custom namespace overrides.
func (h *Handlers) ListNamespaces(w http.ResponseWriter, r *http.Request) {
	namespaces, err := h.Namespaces.List(r.Context(), urlParam(r, "dbname"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"namespaces": namespaces})
}

// NextNamespaceID returns the next free even namespace id for the wiki.
func (h *Handlers) NextNamespaceID(w http.ResponseWriter, r *http.Request) {
	id, err := h.Namespaces.NextID(r.Context(), urlParam(r, "dbname"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id})
}

// GetNamespace returns one namespace override.
func (h *Handlers) GetNamespace(w http.ResponseWriter, r *http.Request) {
	id, ok := nsIDParam(w, r)
	if !ok {
		return
	}
	ns, err := h.Namespaces.Get(r.Context(), urlParam(r, "dbname"), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ns)
}

// AddNamespace creates a namespace override.
func (h *Handlers) AddNamespace(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[namespace.CreateRequest](w, r)
	if !ok {
		return
	}
	ns, err := h.Namespaces.Add(r.Context(), actor(r), urlParam(r, "dbname"), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ns)
}

// UpdateNamespace applies field changes to a namespace override.
func (h *Handlers) UpdateNamespace(w http.ResponseWriter, r *http.Request) {
	id, ok := nsIDParam(w, r)
	if !ok {
		return
	}
	req, ok := readJSON[namespace.UpdateRequest](w, r)
	if !ok {
		return
	}
	ns, err := h.Namespaces.Update(r.Context(), actor(r), urlParam(r, "dbname"), id, req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ns)
}

// DeleteNamespace removes a namespace override.
func (h *Handlers) DeleteNamespace(w http.ResponseWriter, r *http.Request) {
	id, ok := nsIDParam(w, r)
	if !ok {
		return
	}
	if err := h.Namespaces.Delete(r.Context(), actor(r), urlParam(r, "dbname"), id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func nsIDParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(urlParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid namespace id")
		return 0, false
	}
	return id, true
}

// ListGroups returns the wiki's permission group overrides.
func (h *Handlers) ListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.Permissions.List(r.Context(), urlParam(r, "dbname"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"groups": groups})
}

// GetGroup returns one permission group override.
func (h *Handlers) GetGroup(w http.ResponseWriter, r *http.Request) {
	g, err := h.Permissions.Get(r.Context(), urlParam(r, "dbname"), urlParam(r, "group"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// UpdateGroup upserts a permission group override.
func (h *Handlers) UpdateGroup(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[permission.UpdateRequest](w, r)
	if !ok {
		return
	}
	g, err := h.Permissions.Update(r.Context(), actor(r), urlParam(r, "dbname"), urlParam(r, "group"), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// DeleteGroup removes a permission group override. Built-in groups are
// refused regardless of caller.
func (h *Handlers) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	if err := h.Permissions.Delete(r.Context(), actor(r), urlParam(r, "dbname"), urlParam(r, "group")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SettingCatalog returns the allow-listed setting definitions grouped by
// section.
func (h *Handlers) SettingCatalog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"sections": h.Settings.BySection()})
}

// ExtensionCatalog returns the available extensions grouped by section.
func (h *Handlers) ExtensionCatalog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"sections": h.Extensions.BySection()})
}
